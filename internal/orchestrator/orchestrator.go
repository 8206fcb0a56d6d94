// Package orchestrator answers prompts: it gates and scrubs the prompt, routes
// it to the local or cloud backend, relays the backend's stream and runs the
// capability calls the model asks for.
package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/tjfontaine/hybrid-agent/internal/core/domain"
	"github.com/tjfontaine/hybrid-agent/internal/core/ports"
	"github.com/tjfontaine/hybrid-agent/internal/metrics"
	"github.com/tjfontaine/hybrid-agent/internal/policy"
	"github.com/tjfontaine/hybrid-agent/internal/tokens"
)

// BlockedNotice is the only fragment of a response to an unsafe prompt.
const BlockedNotice = "⚠️ Request blocked: the prompt matched a safety rule."

// Markers lead every response and name the backend that serves it.
const (
	LocalMarker = "[Local] 🦞 "
	CloudMarker = "[Gemini] ✨ "
)

// SafetyGate checks and scrubs prompts.
type SafetyGate interface {
	IsPromptSafe(prompt string) bool
	ScrubPii(prompt string) string
}

// Dispatcher resolves and runs capabilities.
type Dispatcher interface {
	Lookup(name string) (ports.Capability, error)
	Dispatch(ctx context.Context, name string, args json.RawMessage) string
	Execute(ctx context.Context, c ports.Capability, args json.RawMessage) string
}

// MemorySearcher finds remembered text similar to a query.
type MemorySearcher interface {
	SearchMemories(ctx context.Context, query string, limit int, threshold float64) []domain.ScoredMemory
}

// Orchestrator is the top-level agent loop. It is safe for concurrent use;
// each call to StreamResponse is independent.
type Orchestrator struct {
	gate     SafetyGate
	policy   policy.Policy
	registry Dispatcher
	local    ports.Backend
	cloud    ports.Backend

	memory          MemorySearcher
	memoryLimit     int
	memoryThreshold float64
	history         ports.HistoryStore
	historyWindow   int
	budget          *tokens.Budget
	consent         ports.ConsentPolicy
	maxToolRounds   int

	metrics *metrics.Metrics
	logger  *slog.Logger
	tracer  trace.Tracer
}

// New creates an orchestrator. Every positional dependency is required.
func New(gate SafetyGate, p policy.Policy, registry Dispatcher, local, cloud ports.Backend, opts ...Option) (*Orchestrator, error) {
	switch {
	case gate == nil:
		return nil, fmt.Errorf("new orchestrator: %w", domain.ErrMissing("safety gate"))
	case p == nil:
		return nil, fmt.Errorf("new orchestrator: %w", domain.ErrMissing("routing policy"))
	case registry == nil:
		return nil, fmt.Errorf("new orchestrator: %w", domain.ErrMissing("capability registry"))
	case local == nil:
		return nil, fmt.Errorf("new orchestrator: %w", domain.ErrMissing("local backend"))
	case cloud == nil:
		return nil, fmt.Errorf("new orchestrator: %w", domain.ErrMissing("cloud backend"))
	}

	o := &Orchestrator{
		gate:            gate,
		policy:          p,
		registry:        registry,
		local:           local,
		cloud:           cloud,
		memoryLimit:     DefaultMemoryLimit,
		memoryThreshold: DefaultMemoryThreshold,
		historyWindow:   DefaultHistoryWindow,
		consent:         ports.AllowAll,
		maxToolRounds:   DefaultMaxToolRounds,
		logger:          slog.Default(),
		tracer:          otel.Tracer("github.com/tjfontaine/hybrid-agent/internal/orchestrator"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// Route returns the routing decision for a prompt after scrubbing.
func (o *Orchestrator) Route(prompt string) policy.Decision {
	return o.policy.Route(o.gate.ScrubPii(prompt))
}

// StreamResponse answers userPrompt. The returned channel is closed when the
// response is complete or ctx is cancelled.
func (o *Orchestrator) StreamResponse(ctx context.Context, systemPrompt, userPrompt string) <-chan domain.Fragment {
	out := make(chan domain.Fragment)
	go func() {
		defer close(out)
		o.run(ctx, systemPrompt, userPrompt, out)
	}()
	return out
}

func (o *Orchestrator) run(ctx context.Context, systemPrompt, userPrompt string, out chan<- domain.Fragment) {
	ctx, span := o.tracer.Start(ctx, "orchestrator.StreamResponse")
	defer span.End()

	emit := func(f domain.Fragment) bool {
		if f.IsEmpty() {
			return true
		}
		select {
		case out <- f:
			return true
		case <-ctx.Done():
			return false
		}
	}

	if !o.gate.IsPromptSafe(userPrompt) {
		o.metrics.IncBlocked()
		span.SetAttributes(attribute.Bool("agent.blocked", true))
		emit(domain.TextFragment(BlockedNotice))
		return
	}

	prompt := o.gate.ScrubPii(userPrompt)
	decision := o.policy.Route(prompt)
	backend, marker := o.local, LocalMarker
	if decision.Target == policy.TargetCloud {
		backend, marker = o.cloud, CloudMarker
	}

	span.SetAttributes(
		attribute.String("agent.backend", backend.Name()),
		attribute.String("agent.route_reason", decision.Reason))
	o.metrics.ObserveRoute(backend.Name(), decision.Reason)
	o.logger.Debug("prompt routed",
		slog.String("backend", backend.Name()),
		slog.String("reason", decision.Reason),
		slog.Int("prompt_length", len(prompt)))

	if !emit(domain.TextFragment(marker)) {
		return
	}

	start := time.Now()
	defer func() { o.metrics.ObserveResponse(backend.Name(), time.Since(start)) }()

	system, history := o.prefetch(ctx, systemPrompt, prompt)

	user := domain.Message{Role: domain.RoleUser, Content: prompt}
	history = o.budget.Fit(system, history, []domain.Message{user})
	msgs := append(append(make([]domain.Message, 0, len(history)+1), history...), user)
	o.persist(ctx, user)

	rounds := 0
	defer func() { o.metrics.ObserveToolRounds(rounds) }()

	for {
		var text strings.Builder
		var calls []domain.FunctionCall

		for frag := range backend.Stream(ctx, &domain.Request{System: system, Messages: msgs}) {
			if !emit(frag) {
				return
			}
			text.WriteString(frag.Text)
			calls = append(calls, frag.FunctionCalls...)
		}
		if ctx.Err() != nil {
			return
		}

		calls = withCallIDs(calls)
		reply := domain.Message{Role: domain.RoleAssistant, Content: text.String(), FunctionCalls: calls}
		msgs = append(msgs, reply)
		o.persist(ctx, reply)

		if len(calls) == 0 {
			return
		}
		if rounds >= o.maxToolRounds {
			emit(domain.TextFragment(fmt.Sprintf("Stopped after %d tool rounds.", rounds)))
			return
		}
		rounds++

		for _, call := range calls {
			result := o.invoke(ctx, call)
			toolMsg := domain.Message{
				Role:       domain.RoleTool,
				Name:       call.Name,
				Content:    result,
				ToolCallID: call.ID,
			}
			msgs = append(msgs, toolMsg)
			o.persist(ctx, toolMsg)
		}
	}
}

// prefetch loads memory context and the recent history window concurrently.
// Both are advisory: failures leave them empty.
func (o *Orchestrator) prefetch(ctx context.Context, systemPrompt, prompt string) (string, []domain.Message) {
	var (
		memories []domain.ScoredMemory
		history  []domain.Message
	)

	g, gctx := errgroup.WithContext(ctx)
	if o.memory != nil {
		g.Go(func() error {
			memories = o.memory.SearchMemories(gctx, prompt, o.memoryLimit, o.memoryThreshold)
			return nil
		})
	}
	if o.history != nil {
		g.Go(func() error {
			msgs, err := o.history.RecentMessages(gctx, o.historyWindow)
			if err != nil {
				o.logger.Warn("failed to load history", slog.String("error", err.Error()))
				return nil
			}
			history = msgs
			return nil
		})
	}
	_ = g.Wait()

	return o.systemWithMemories(systemPrompt, memories), history
}

func (o *Orchestrator) systemWithMemories(systemPrompt string, memories []domain.ScoredMemory) string {
	if len(memories) == 0 {
		return systemPrompt
	}
	var b strings.Builder
	b.WriteString(systemPrompt)
	if systemPrompt != "" {
		b.WriteString("\n\n")
	}
	b.WriteString("Relevant memories:")
	for _, m := range memories {
		b.WriteString("\n- ")
		b.WriteString(o.gate.ScrubPii(m.Item.Content))
	}
	return b.String()
}

// invoke runs one function call and returns the text fed back to the model.
func (o *Orchestrator) invoke(ctx context.Context, call domain.FunctionCall) string {
	ctx, span := o.tracer.Start(ctx, "orchestrator.invoke",
		trace.WithAttributes(attribute.String("agent.capability", call.Name)))
	defer span.End()

	start := time.Now()
	c, err := o.registry.Lookup(call.Name)
	if err == nil && c.IsUnsafe() && !o.consent.Approve(ctx, c, call) {
		o.logger.Info("capability declined", slog.String("capability", call.Name))
		o.metrics.ObserveDispatch(call.Name, "declined", time.Since(start))
		return fmt.Sprintf("Error: execution of '%s' was declined.", call.Name)
	}

	// The approved capability is the one that runs, even if the registry
	// changed since the lookup.
	var result string
	if err != nil {
		result = o.registry.Dispatch(ctx, call.Name, json.RawMessage(call.ArgumentsJSON()))
	} else {
		result = o.registry.Execute(ctx, c, json.RawMessage(call.ArgumentsJSON()))
	}

	outcome := "ok"
	switch {
	case err != nil:
		outcome = "unknown"
	case strings.HasPrefix(result, "Error"):
		outcome = "error"
	}
	span.SetAttributes(attribute.String("agent.outcome", outcome))
	o.metrics.ObserveDispatch(call.Name, outcome, time.Since(start))
	return result
}

func (o *Orchestrator) persist(ctx context.Context, msg domain.Message) {
	if o.history == nil {
		return
	}
	msg.CreatedAt = time.Now().UTC()
	if err := o.history.AppendMessage(context.WithoutCancel(ctx), msg); err != nil {
		o.logger.Warn("failed to persist message",
			slog.String("role", string(msg.Role)),
			slog.String("error", err.Error()))
	}
}

// withCallIDs returns calls with a fresh id on every call that lacks one.
func withCallIDs(calls []domain.FunctionCall) []domain.FunctionCall {
	if len(calls) == 0 {
		return nil
	}
	out := make([]domain.FunctionCall, len(calls))
	for i, c := range calls {
		if c.ID == "" {
			c.ID = "call_" + uuid.NewString()
		}
		out[i] = c
	}
	return out
}
