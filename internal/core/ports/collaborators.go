package ports

import (
	"context"

	"github.com/tjfontaine/hybrid-agent/internal/core/domain"
)

// Embedder converts text to a fixed-length vector. A zero-length result
// means the text could not be embedded; blank input never returns an error.
type Embedder interface {
	GetEmbedding(ctx context.Context, text string) ([]float32, error)
}

// TextExtractor turns a local file into text (OCR, audio transcription).
type TextExtractor interface {
	ExtractText(ctx context.Context, path string) (string, error)
}

// Searcher performs an outbound keyword web search.
type Searcher interface {
	Search(ctx context.Context, query string, max int) ([]domain.SearchResult, error)
}
