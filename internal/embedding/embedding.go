// Package embedding converts text into vectors through a remote model.
package embedding

import (
	"context"
	"strings"

	"github.com/tjfontaine/hybrid-agent/internal/api/gemini"
	"github.com/tjfontaine/hybrid-agent/internal/api/ollama"
	"github.com/tjfontaine/hybrid-agent/internal/core/ports"
)

const (
	// DefaultGeminiModel is the Gemini embedding model.
	DefaultGeminiModel = "text-embedding-004"

	// DefaultOllamaModel is the local embedding model.
	DefaultOllamaModel = "nomic-embed-text"
)

// Gemini embeds text with the Gemini embedContent endpoint.
type Gemini struct {
	client *gemini.Client
	model  string
}

var _ ports.Embedder = (*Gemini)(nil)

// NewGemini creates a Gemini embedder.
func NewGemini(client *gemini.Client, model string) *Gemini {
	if model == "" {
		model = DefaultGeminiModel
	}
	return &Gemini{client: client, model: model}
}

// GetEmbedding returns the vector for text. Blank text yields an empty
// vector and no error.
func (g *Gemini) GetEmbedding(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return []float32{}, nil
	}
	return g.client.EmbedContent(ctx, g.model, text)
}

// Ollama embeds text with a model served by a local Ollama server.
type Ollama struct {
	client *ollama.Client
	model  string
}

var _ ports.Embedder = (*Ollama)(nil)

// NewOllama creates an Ollama embedder.
func NewOllama(client *ollama.Client, model string) *Ollama {
	if model == "" {
		model = DefaultOllamaModel
	}
	return &Ollama{client: client, model: model}
}

// GetEmbedding returns the vector for text. Blank text yields an empty
// vector and no error.
func (o *Ollama) GetEmbedding(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return []float32{}, nil
	}
	return o.client.Embeddings(ctx, o.model, text)
}
