// Package local serves prompts from a model hosted on the same machine
// through an Ollama server.
package local

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/tjfontaine/hybrid-agent/internal/api/ollama"
	"github.com/tjfontaine/hybrid-agent/internal/core/domain"
	"github.com/tjfontaine/hybrid-agent/internal/core/ports"
)

const (
	// DefaultModel is a small instruction-tuned model using the Phi-3 template.
	DefaultModel = "phi3:mini"

	// DefaultMaxTokens bounds a single generation.
	DefaultMaxTokens = 2048
)

// Option configures the backend.
type Option func(*Backend)

// WithBaseURL sets the Ollama endpoint.
func WithBaseURL(baseURL string) Option {
	return func(b *Backend) { b.baseURL = baseURL }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(b *Backend) { b.httpClient = c }
}

// WithModel sets the model tag.
func WithModel(model string) Option {
	return func(b *Backend) {
		if model != "" {
			b.model.Store(model)
		}
	}
}

// WithMaxTokens sets the generation bound.
func WithMaxTokens(n int) Option {
	return func(b *Backend) {
		if n > 0 {
			b.maxTokens = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(b *Backend) { b.logger = l }
}

// Backend is the local inference backend.
//
// The model handle is shared by every stream. mu serializes Initialize,
// Reprovision and SetModel so no caller observes a half-loaded model;
// initialized lets the fast path skip the lock once loading finished.
type Backend struct {
	client     *ollama.Client
	baseURL    string
	httpClient *http.Client
	maxTokens  int
	logger     *slog.Logger

	mu          sync.Mutex
	model       atomic.Value // string
	initialized atomic.Bool
}

var (
	_ ports.Backend      = (*Backend)(nil)
	_ ports.Provisioner  = (*Backend)(nil)
	_ ports.ModelCatalog = (*Backend)(nil)
)

// New creates a local backend. The model is loaded lazily.
func New(opts ...Option) *Backend {
	b := &Backend{
		maxTokens: DefaultMaxTokens,
		logger:    slog.Default(),
	}
	b.model.Store(DefaultModel)
	for _, opt := range opts {
		opt(b)
	}

	var clientOpts []ollama.ClientOption
	if b.baseURL != "" {
		clientOpts = append(clientOpts, ollama.WithBaseURL(b.baseURL))
	}
	if b.httpClient != nil {
		clientOpts = append(clientOpts, ollama.WithHTTPClient(b.httpClient))
	}
	b.client = ollama.NewClient(clientOpts...)
	return b
}

func (b *Backend) Name() string {
	return "local"
}

// Initialize makes sure the model is downloaded and loaded.
func (b *Backend) Initialize(ctx context.Context) error {
	if b.initialized.Load() {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.initialized.Load() {
		return nil
	}
	return b.loadLocked(ctx, nil)
}

// Reprovision unloads the model, deletes its weights, downloads them again
// and reloads. Streams started while it runs wait in Initialize.
func (b *Backend) Reprovision(ctx context.Context, progress ports.ProgressFunc) error {
	if progress == nil {
		progress = func(string, float64) {}
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.initialized.Store(false)
	model := b.CurrentModel()
	log := b.logger.With(slog.String("model", model))
	log.Info("reprovisioning local model")

	progress("unloading", 0)
	zero := 0
	if _, err := b.client.Generate(ctx, &ollama.GenerateRequest{Model: model, KeepAlive: &zero}); err != nil &&
		!errors.Is(err, ollama.ErrModelNotFound) {
		log.Warn("failed to unload model", slog.String("error", err.Error()))
	}

	progress("deleting", 0)
	if err := b.client.Delete(ctx, model); err != nil {
		return fmt.Errorf("delete %s: %w", model, err)
	}

	if err := b.pullLocked(ctx, model, progress); err != nil {
		return err
	}
	if err := b.loadLocked(ctx, progress); err != nil {
		return err
	}

	progress("ready", 1)
	log.Info("local model reprovisioned")
	return nil
}

// loadLocked downloads the model when missing and warms it. b.mu must be held.
func (b *Backend) loadLocked(ctx context.Context, progress ports.ProgressFunc) error {
	model := b.CurrentModel()
	err := b.client.Show(ctx, model)
	if errors.Is(err, ollama.ErrModelNotFound) {
		b.logger.Info("local model missing, downloading", slog.String("model", model))
		err = b.pullLocked(ctx, model, progress)
	}
	if err != nil {
		return fmt.Errorf("prepare %s: %w", model, err)
	}

	if progress != nil {
		progress("loading", 1)
	}
	if _, err := b.client.Generate(ctx, &ollama.GenerateRequest{Model: model}); err != nil {
		return fmt.Errorf("load %s: %w", model, err)
	}

	b.initialized.Store(true)
	b.logger.Info("local model loaded", slog.String("model", model))
	return nil
}

// pullLocked downloads the model, folding per-layer byte counts into one
// overall fraction. b.mu must be held.
func (b *Backend) pullLocked(ctx context.Context, model string, progress ports.ProgressFunc) error {
	totals := make(map[string]int64)
	done := make(map[string]int64)
	last := 0.0

	err := b.client.Pull(ctx, model, func(p ollama.PullProgress) {
		if progress == nil {
			return
		}
		if p.Digest != "" && p.Total > 0 {
			totals[p.Digest] = p.Total
			done[p.Digest] = p.Completed
		}
		var total, completed int64
		for d, t := range totals {
			total += t
			completed += min(done[d], t)
		}
		if total > 0 {
			// Layers announce themselves one by one, so the raw ratio can dip.
			last = max(last, float64(completed)/float64(total))
		}
		progress(p.Status, last)
	})
	if err != nil {
		return fmt.Errorf("pull %s: %w", model, err)
	}
	return nil
}

// Stream generates a reply one token chunk at a time. Each chunk from the
// server is relayed as its own fragment; failures become a single error
// fragment.
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

		if err := b.Initialize(ctx); err != nil {
			b.logger.Error("local model unavailable", slog.String("error", err.Error()))
			emit(domain.TextFragment("Error: local model unavailable: " + err.Error()))
			return
		}

		chunks, err := b.client.StreamGenerate(ctx, &ollama.GenerateRequest{
			Model:  b.CurrentModel(),
			Prompt: RenderPrompt(req),
			Raw:    true,
			Options: &ollama.Options{
				NumPredict: b.maxTokens,
				Stop:       []string{tokEnd},
			},
		})
		if err != nil {
			emit(domain.TextFragment("Error: " + err.Error()))
			return
		}

		for res := range chunks {
			if res.Err != nil {
				emit(domain.TextFragment("Error: " + res.Err.Error()))
				return
			}
			if res.Chunk.Response == "" {
				continue
			}
			if !emit(domain.TextFragment(res.Chunk.Response)) {
				return
			}
		}
	}()

	return out
}

// ListAvailableModels lists models already present on the server, sorted
// descending. Failures yield an empty list.
func (b *Backend) ListAvailableModels(ctx context.Context) []string {
	models, err := b.client.ListModels(ctx)
	if err != nil {
		b.logger.Warn("failed to list local models", slog.String("error", err.Error()))
		return []string{}
	}
	names := make([]string, 0, len(models))
	for _, m := range models {
		names = append(names, m.Name)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))
	return names
}

func (b *Backend) CurrentModel() string {
	return b.model.Load().(string)
}

// SetModel switches the model; it is loaded on next use.
func (b *Backend) SetModel(model string) {
	if model == "" {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if model != b.CurrentModel() {
		b.model.Store(model)
		b.initialized.Store(false)
	}
}
