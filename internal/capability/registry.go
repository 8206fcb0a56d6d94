// Package capability holds the set of invocable capabilities and dispatches
// function calls to them.
package capability

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/tjfontaine/hybrid-agent/internal/core/domain"
	"github.com/tjfontaine/hybrid-agent/internal/core/ports"
)

// Registry stores capabilities by name. Names are case-sensitive; the last
// registration for a name wins.
type Registry struct {
	mu           sync.RWMutex
	capabilities map[string]ports.Capability
	logger       *slog.Logger
}

// NewRegistry creates a registry holding the given capabilities.
func NewRegistry(logger *slog.Logger, initial ...ports.Capability) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Registry{
		capabilities: make(map[string]ports.Capability, len(initial)),
		logger:       logger,
	}
	for _, c := range initial {
		r.Register(c)
	}
	return r
}

// Register adds or replaces a capability.
func (r *Registry) Register(c ports.Capability) {
	if c == nil || c.Name() == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.capabilities[c.Name()] = c
}

// Unregister removes a capability. It reports whether one was removed.
func (r *Registry) Unregister(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.capabilities[name]; !ok {
		return false
	}
	delete(r.capabilities, name)
	return true
}

// Lookup returns the capability registered under name.
func (r *Registry) Lookup(name string) (ports.Capability, error) {
	r.mu.RLock()
	c, ok := r.capabilities[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrCapabilityNotFound, name)
	}
	return c, nil
}

// List returns the registered capabilities sorted by name.
func (r *Registry) List() []ports.Capability {
	r.mu.RLock()
	out := make([]ports.Capability, 0, len(r.capabilities))
	for _, c := range r.capabilities {
		out = append(out, c)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// ListDeclarations returns the function declarations sent to backends that
// support function calling.
func (r *Registry) ListDeclarations() []domain.Declaration {
	caps := r.List()
	decls := make([]domain.Declaration, len(caps))
	for i, c := range caps {
		decls[i] = domain.Declaration{
			Name:        c.Name(),
			Description: c.Description(),
			Parameters:  c.Parameters(),
		}
	}
	return decls
}

// Dispatch executes the named capability. It always returns a result text so
// the caller can feed it back to the model; unknown names and capability
// panics become "Error" results.
func (r *Registry) Dispatch(ctx context.Context, name string, args json.RawMessage) string {
	c, err := r.Lookup(name)
	if err != nil {
		r.logger.Warn("dispatch to unknown capability", slog.String("capability", name))
		return fmt.Sprintf("Error: unknown capability '%s'", name)
	}
	return r.Execute(ctx, c, args)
}

// Execute runs an already resolved capability, even if its name has since
// been re-registered or removed. A panic becomes an "Error" result.
func (r *Registry) Execute(ctx context.Context, c ports.Capability, args json.RawMessage) (result string) {
	name := c.Name()
	start := time.Now()
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("capability panicked",
				slog.String("capability", name),
				slog.Any("panic", p))
			result = fmt.Sprintf("Error executing %s: %v", name, p)
		}
		r.logger.Debug("capability executed",
			slog.String("capability", name),
			slog.Duration("duration", time.Since(start)))
	}()

	return c.Execute(ctx, args)
}
