// Package memory remembers text with its embedding and retrieves the stored
// items most similar to a query.
package memory

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"github.com/tjfontaine/hybrid-agent/internal/core/domain"
	"github.com/tjfontaine/hybrid-agent/internal/core/ports"
	"github.com/tjfontaine/hybrid-agent/internal/metrics"
)

const (
	DefaultLimit     = 3
	DefaultThreshold = 0.6
)

// Option configures the service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithMetrics records save and search outcomes.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// Service is the memory store. Its failures never propagate: saves are
// skipped and searches come back empty, with the cause logged.
type Service struct {
	embedder ports.Embedder
	repo     ports.MemoryRepository
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

// NewService creates a memory service.
func NewService(embedder ports.Embedder, repo ports.MemoryRepository, opts ...Option) (*Service, error) {
	if embedder == nil {
		return nil, domain.ErrMissing("embedder")
	}
	if repo == nil {
		return nil, domain.ErrMissing("memory repository")
	}
	s := &Service{
		embedder: embedder,
		repo:     repo,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// SaveMemory embeds and stores content. It reports whether an item was
// stored; blank content or an empty embedding is silently skipped.
func (s *Service) SaveMemory(ctx context.Context, content string) (domain.MemoryItem, bool) {
	if strings.TrimSpace(content) == "" {
		s.metrics.ObserveMemory("save", "skipped")
		return domain.MemoryItem{}, false
	}

	vector, err := s.embedder.GetEmbedding(ctx, content)
	if err != nil {
		s.logger.Warn("error saving memory", slog.String("error", err.Error()))
		s.metrics.ObserveMemory("save", "error")
		return domain.MemoryItem{}, false
	}
	if len(vector) == 0 {
		s.metrics.ObserveMemory("save", "skipped")
		return domain.MemoryItem{}, false
	}

	item, err := s.repo.SaveMemory(ctx, content, vector)
	if err != nil {
		s.logger.Warn("error saving memory", slog.String("error", err.Error()))
		s.metrics.ObserveMemory("save", "error")
		return domain.MemoryItem{}, false
	}

	s.logger.Debug("memory saved", slog.Int64("id", item.ID), slog.Int("dimensions", len(vector)))
	s.metrics.ObserveMemory("save", "ok")
	return item, true
}

// SearchMemories scores every stored item against query and returns at most
// limit items with a score of at least threshold, best first. Equal scores
// keep storage order. A non-positive limit means DefaultLimit.
func (s *Service) SearchMemories(ctx context.Context, query string, limit int, threshold float64) []domain.ScoredMemory {
	if limit <= 0 {
		limit = DefaultLimit
	}

	queryVector, err := s.embedder.GetEmbedding(ctx, query)
	if err != nil {
		s.logger.Warn("error searching memories", slog.String("error", err.Error()))
		s.metrics.ObserveMemory("search", "error")
		return []domain.ScoredMemory{}
	}
	if len(queryVector) == 0 {
		s.metrics.ObserveMemory("search", "skipped")
		return []domain.ScoredMemory{}
	}

	all, err := s.repo.AllMemories(ctx)
	if err != nil {
		s.logger.Warn("error searching memories", slog.String("error", err.Error()))
		s.metrics.ObserveMemory("search", "error")
		return []domain.ScoredMemory{}
	}

	results := make([]domain.ScoredMemory, 0, limit)
	for _, item := range all {
		score := CosineSimilarity(queryVector, item.Vector)
		if score >= threshold {
			results = append(results, domain.ScoredMemory{Item: item, Score: score})
		}
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > limit {
		results = results[:limit]
	}

	s.metrics.ObserveMemory("search", "ok")
	return results
}
