// Package cloud serves prompts from Google's Gemini models and exposes the
// registered capabilities to them as callable functions.
package cloud

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/tjfontaine/hybrid-agent/internal/api/gemini"
	"github.com/tjfontaine/hybrid-agent/internal/core/domain"
	"github.com/tjfontaine/hybrid-agent/internal/core/ports"
)

// DefaultModel is used until SetModel picks another.
const DefaultModel = "gemini-2.0-flash-lite"

// FallbackModels is returned when the model listing fails.
var FallbackModels = []string{"gemini-1.5-flash", "gemini-1.5-pro"}

// Declarations supplies the function declarations sent with every request.
type Declarations interface {
	ListDeclarations() []domain.Declaration
}

// Option configures the backend.
type Option func(*Backend)

// WithBaseURL sets a custom base URL for the API.
func WithBaseURL(baseURL string) Option {
	return func(b *Backend) { b.baseURL = baseURL }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(b *Backend) { b.httpClient = c }
}

// WithModel sets the initial model.
func WithModel(model string) Option {
	return func(b *Backend) {
		if model != "" {
			b.model.Store(model)
		}
	}
}

// WithDeclarations sets the capability source for function calling.
func WithDeclarations(d Declarations) Option {
	return func(b *Backend) { b.declarations = d }
}

// WithWordDelay paces the simulated word stream.
func WithWordDelay(d time.Duration) Option {
	return func(b *Backend) { b.wordDelay = d }
}

// WithMaxOutputTokens bounds the reply length. Zero uses the model default.
func WithMaxOutputTokens(n int) Option {
	return func(b *Backend) { b.maxOutputTokens = n }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(b *Backend) { b.logger = l }
}

// Backend is the cloud inference backend.
type Backend struct {
	client          *gemini.Client
	baseURL         string
	httpClient      *http.Client
	declarations    Declarations
	wordDelay       time.Duration
	maxOutputTokens int
	logger          *slog.Logger
	model           atomic.Value // string
}

var (
	_ ports.Backend      = (*Backend)(nil)
	_ ports.Generator    = (*Backend)(nil)
	_ ports.ModelCatalog = (*Backend)(nil)
)

// New creates a cloud backend. An empty apiKey is allowed: every call then
// answers with a "GEMINI_API_KEY missing" fragment.
func New(apiKey string, opts ...Option) *Backend {
	b := &Backend{logger: slog.Default()}
	b.model.Store(DefaultModel)
	for _, opt := range opts {
		opt(b)
	}

	var clientOpts []gemini.ClientOption
	if b.baseURL != "" {
		clientOpts = append(clientOpts, gemini.WithBaseURL(b.baseURL))
	}
	if b.httpClient != nil {
		clientOpts = append(clientOpts, gemini.WithHTTPClient(b.httpClient))
	}
	b.client = gemini.NewClient(apiKey, clientOpts...)
	return b
}

func (b *Backend) Name() string {
	return "cloud"
}

func (b *Backend) CurrentModel() string {
	return b.model.Load().(string)
}

func (b *Backend) SetModel(model string) {
	if model != "" {
		b.model.Store(model)
	}
}

// GenerateOnce sends the whole conversation and returns the reply as one
// fragment. It never fails: errors are rendered into the fragment text.
func (b *Backend) GenerateOnce(ctx context.Context, req *domain.Request) domain.Fragment {
	if !b.client.HasAPIKey() {
		return domain.TextFragment(gemini.ErrMissingAPIKey.Error())
	}

	apiReq := &gemini.GenerateContentRequest{
		Contents: toContents(req.Messages),
	}
	if req.System != "" {
		apiReq.SystemInstruction = &gemini.Content{Parts: []gemini.Part{{Text: req.System}}}
	}
	if b.declarations != nil {
		apiReq.Tools = toTools(b.declarations.ListDeclarations())
	}
	if b.maxOutputTokens > 0 {
		apiReq.GenerationConfig = &gemini.GenerationConfig{MaxOutputTokens: b.maxOutputTokens}
	}

	model := b.CurrentModel()
	resp, err := b.client.GenerateContent(ctx, model, apiReq)
	if err != nil {
		b.logger.Warn("gemini request failed",
			slog.String("model", model),
			slog.String("error", err.Error()))
		return errorFragment(err)
	}
	return ParseResponse(resp)
}

func errorFragment(err error) domain.Fragment {
	var apiErr *gemini.APIError
	var decErr *gemini.DecodeError
	switch {
	case errors.As(err, &apiErr):
		return domain.TextFragment("Error: " + apiErr.Body)
	case errors.As(err, &decErr):
		return domain.TextFragment("Error parsing Gemini response: " + decErr.Error())
	case errors.Is(err, gemini.ErrMissingAPIKey):
		return domain.TextFragment(err.Error())
	default:
		return domain.TextFragment("Error: " + err.Error())
	}
}

// Stream fetches the whole reply, then relays its text word by word
// followed by one terminal fragment carrying any function calls.
func (b *Backend) Stream(ctx context.Context, req *domain.Request) <-chan domain.Fragment {
	out := make(chan domain.Fragment)

	go func() {
		defer close(out)

		emit := func(f domain.Fragment) bool {
			select {
			case out <- f:
				return true
			case <-ctx.Done():
				return false
			}
		}

		reply := b.GenerateOnce(ctx, req)

		if reply.Text != "" {
			for i, word := range strings.Split(reply.Text, " ") {
				if i > 0 && b.wordDelay > 0 {
					select {
					case <-time.After(b.wordDelay):
					case <-ctx.Done():
						return
					}
				}
				if !emit(domain.TextFragment(word + " ")) {
					return
				}
			}
		}

		if len(reply.FunctionCalls) > 0 {
			emit(domain.Fragment{FunctionCalls: reply.FunctionCalls})
		}
	}()

	return out
}

// ListAvailableModels returns the Gemini chat models sorted descending.
// Without an API key the list is empty; when the listing fails the fallback
// pair is returned.
func (b *Backend) ListAvailableModels(ctx context.Context) []string {
	if !b.client.HasAPIKey() {
		return []string{}
	}

	list, err := b.client.ListModels(ctx)
	if err != nil {
		b.logger.Warn("failed to list models", slog.String("error", err.Error()))
		return append([]string(nil), FallbackModels...)
	}

	models := make([]string, 0, len(list.Models))
	for _, m := range list.Models {
		name := m.Name
		if !strings.Contains(name, "gemini") ||
			strings.Contains(name, "embedding") ||
			strings.Contains(name, "robotics") ||
			strings.Contains(name, "competitor") {
			continue
		}
		models = append(models, strings.TrimPrefix(name, "models/"))
	}
	sort.Sort(sort.Reverse(sort.StringSlice(models)))
	return models
}
