package capability

import (
	"context"
	"encoding/json"
)

// Func is a capability backed by a plain function.
type Func struct {
	CapName        string
	CapDescription string
	Schema         any
	Unsafe         bool
	Fn             func(ctx context.Context, args json.RawMessage) string
}

func (f *Func) Name() string        { return f.CapName }
func (f *Func) Description() string { return f.CapDescription }
func (f *Func) Parameters() any     { return f.Schema }
func (f *Func) IsUnsafe() bool      { return f.Unsafe }

// Execute calls Fn.
func (f *Func) Execute(ctx context.Context, args json.RawMessage) string {
	return f.Fn(ctx, args)
}

// ObjectSchema builds a JSON schema for an object of string properties.
// props maps property names to descriptions.
func ObjectSchema(props map[string]string, required ...string) map[string]any {
	properties := make(map[string]any, len(props))
	for name, desc := range props {
		properties[name] = map[string]any{
			"type":        "string",
			"description": desc,
		}
	}
	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}
