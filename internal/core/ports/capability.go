package ports

import (
	"context"
	"encoding/json"

	"github.com/tjfontaine/hybrid-agent/internal/core/domain"
)

// Capability is a named, independently invocable unit of action or extraction.
type Capability interface {
	Name() string
	Description() string
	// Parameters returns the JSON schema of the arguments object.
	Parameters() any
	// IsUnsafe reports whether the capability can touch the world beyond
	// read-only local inspection (process execution, network egress).
	IsUnsafe() bool
	// Execute runs the capability. It never fails past its boundary: every
	// failure is rendered as text starting with "Error".
	Execute(ctx context.Context, args json.RawMessage) string
}

// ConsentPolicy decides whether an unsafe capability may run.
type ConsentPolicy interface {
	Approve(ctx context.Context, capability Capability, call domain.FunctionCall) bool
}

// ConsentFunc adapts a function to ConsentPolicy.
type ConsentFunc func(ctx context.Context, capability Capability, call domain.FunctionCall) bool

// Approve calls f.
func (f ConsentFunc) Approve(ctx context.Context, capability Capability, call domain.FunctionCall) bool {
	return f(ctx, capability, call)
}

// AllowAll approves every call.
var AllowAll ConsentPolicy = ConsentFunc(func(context.Context, Capability, domain.FunctionCall) bool {
	return true
})
