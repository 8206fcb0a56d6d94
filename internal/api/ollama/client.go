// Package ollama is a minimal client for the Ollama HTTP API.
package ollama

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const defaultBaseURL = "http://127.0.0.1:11434"

// ErrModelNotFound is returned when the server does not have the model.
var ErrModelNotFound = errors.New("model not found")

// ClientOption configures the client.
type ClientOption func(*Client)

// WithBaseURL sets a custom base URL.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		if baseURL != "" {
			c.baseURL = strings.TrimSuffix(baseURL, "/")
		}
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// Client is a custom HTTP client for the Ollama API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new Ollama API client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    defaultBaseURL,
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Show reports whether the model is present locally.
func (c *Client) Show(ctx context.Context, model string) error {
	resp, err := c.send(ctx, http.MethodPost, "/api/show", modelRequest{Model: model})
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

// Delete removes the model's weights from disk. A missing model is not an error.
func (c *Client) Delete(ctx context.Context, model string) error {
	resp, err := c.send(ctx, http.MethodDelete, "/api/delete", modelRequest{Model: model})
	if errors.Is(err, ErrModelNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

// Pull downloads the model, calling fn for each progress line.
func (c *Client) Pull(ctx context.Context, model string, fn func(PullProgress)) error {
	stream := true
	resp, err := c.send(ctx, http.MethodPost, "/api/pull", modelRequest{Model: model, Stream: &stream})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return scanLines(resp.Body, func(line []byte) error {
		var p PullProgress
		if err := json.Unmarshal(line, &p); err != nil {
			return fmt.Errorf("failed to unmarshal pull progress: %w", err)
		}
		if p.Error != "" {
			return fmt.Errorf("pull %s: %s", model, p.Error)
		}
		if fn != nil {
			fn(p)
		}
		return nil
	})
}

// Generate runs a non-streaming generation. An empty prompt loads (or, with
// KeepAlive of zero, unloads) the model without generating.
func (c *Client) Generate(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error) {
	req.Stream = false
	resp, err := c.send(ctx, http.MethodPost, "/api/generate", req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var out GenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return &out, nil
}

// StreamResult wraps a chunk or error from streaming.
type StreamResult struct {
	Chunk *GenerateResponse
	Err   error
}

// StreamGenerate sends a streaming generation request and returns a channel
// of chunks. The channel is closed after the done chunk, an error, or ctx
// cancellation.
func (c *Client) StreamGenerate(ctx context.Context, req *GenerateRequest) (<-chan StreamResult, error) {
	req.Stream = true
	resp, err := c.send(ctx, http.MethodPost, "/api/generate", req)
	if err != nil {
		return nil, err
	}

	out := make(chan StreamResult)
	go c.streamReader(ctx, resp.Body, out)
	return out, nil
}

func (c *Client) streamReader(ctx context.Context, body io.ReadCloser, out chan<- StreamResult) {
	defer close(out)
	defer body.Close()

	emit := func(r StreamResult) bool {
		select {
		case out <- r:
			return true
		case <-ctx.Done():
			return false
		}
	}

	errStop := errors.New("stop")
	err := scanLines(body, func(line []byte) error {
		var chunk GenerateResponse
		if err := json.Unmarshal(line, &chunk); err != nil {
			return fmt.Errorf("failed to unmarshal chunk: %w", err)
		}
		if chunk.Error != "" {
			return errors.New(chunk.Error)
		}
		if !emit(StreamResult{Chunk: &chunk}) || chunk.Done {
			return errStop
		}
		return nil
	})
	if err != nil && !errors.Is(err, errStop) && ctx.Err() == nil {
		emit(StreamResult{Err: err})
	}
}

// Embeddings returns the embedding of prompt.
func (c *Client) Embeddings(ctx context.Context, model, prompt string) ([]float32, error) {
	resp, err := c.send(ctx, http.MethodPost, "/api/embeddings", embeddingsRequest{Model: model, Prompt: prompt})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var out embeddingsResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return out.Embedding, nil
}

// ListModels lists the locally available models.
func (c *Client) ListModels(ctx context.Context) ([]Model, error) {
	resp, err := c.send(ctx, http.MethodGet, "/api/tags", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var out tagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return out.Models, nil
}

// send issues a JSON request and returns the response when the status is 2xx.
// The caller closes the body.
func (c *Client) send(ctx context.Context, method, path string, in any) (*http.Response, error) {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if in != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
		if resp.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %s", ErrModelNotFound, strings.TrimSpace(string(respBody)))
		}
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}
	return resp, nil
}

func scanLines(r io.Reader, fn func(line []byte) error) error {
	scanner := bufio.NewScanner(r)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)

	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		if err := fn(line); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("stream read error: %w", err)
	}
	return nil
}
