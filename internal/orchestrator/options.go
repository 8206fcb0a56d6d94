package orchestrator

import (
	"log/slog"

	"github.com/tjfontaine/hybrid-agent/internal/core/ports"
	"github.com/tjfontaine/hybrid-agent/internal/metrics"
	"github.com/tjfontaine/hybrid-agent/internal/tokens"
)

const (
	// DefaultMaxToolRounds bounds the follow-up turns of one response.
	DefaultMaxToolRounds = 5

	// DefaultHistoryWindow is how many recent turns are sent as context.
	DefaultHistoryWindow = 20

	DefaultMemoryLimit     = 3
	DefaultMemoryThreshold = 0.6
)

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMetrics records routing, blocking, dispatch and timing.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithMemory injects memories similar to the prompt into the system prompt.
// Non-positive limit and threshold keep the defaults.
func WithMemory(m MemorySearcher, limit int, threshold float64) Option {
	return func(o *Orchestrator) {
		o.memory = m
		if limit > 0 {
			o.memoryLimit = limit
		}
		if threshold > 0 {
			o.memoryThreshold = threshold
		}
	}
}

// WithHistory reads the most recent window turns as context and persists
// every new turn.
func WithHistory(h ports.HistoryStore, window int) Option {
	return func(o *Orchestrator) {
		o.history = h
		if window > 0 {
			o.historyWindow = window
		}
	}
}

// WithBudget trims the history window to a token budget.
func WithBudget(b *tokens.Budget) Option {
	return func(o *Orchestrator) { o.budget = b }
}

// WithConsentPolicy decides whether unsafe capabilities may run.
func WithConsentPolicy(p ports.ConsentPolicy) Option {
	return func(o *Orchestrator) {
		if p != nil {
			o.consent = p
		}
	}
}

// WithMaxToolRounds bounds follow-up turns. Zero disables capability
// dispatch entirely.
func WithMaxToolRounds(n int) Option {
	return func(o *Orchestrator) {
		if n >= 0 {
			o.maxToolRounds = n
		}
	}
}
