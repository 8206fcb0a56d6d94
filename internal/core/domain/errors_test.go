package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		expected string
	}{
		{
			name:     "kind and message",
			err:      &Error{Kind: KindInputRejected, Message: "blocked"},
			expected: "input_rejected: blocked",
		},
		{
			name:     "with cause",
			err:      &Error{Kind: KindBackendFailure, Message: "generate", Err: errors.New("eof")},
			expected: "backend_failure: generate: eof",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestErrMissing(t *testing.T) {
	err := fmt.Errorf("new orchestrator: %w", ErrMissing("safety gate"))

	if !errors.Is(err, ErrMissingDependency) {
		t.Errorf("errors.Is(err, ErrMissingDependency) = false, want true")
	}
	if got := KindOf(err); got != KindConfiguration {
		t.Errorf("KindOf() = %q, want %q", got, KindConfiguration)
	}
	if got := KindOf(errors.New("plain")); got != "" {
		t.Errorf("KindOf(plain) = %q, want empty", got)
	}
}

func TestFragment_IsEmpty(t *testing.T) {
	tests := []struct {
		name string
		frag Fragment
		want bool
	}{
		{"empty", Fragment{}, true},
		{"text", TextFragment("hi"), false},
		{"calls only", Fragment{FunctionCalls: []FunctionCall{{Name: "web_search"}}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.frag.IsEmpty(); got != tt.want {
				t.Errorf("IsEmpty() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRequest_LastUserPrompt(t *testing.T) {
	req := &Request{Messages: []Message{
		{Role: RoleUser, Content: "first"},
		{Role: RoleAssistant, Content: "reply"},
		{Role: RoleUser, Content: "second"},
		{Role: RoleTool, Content: "result"},
	}}
	if got := req.LastUserPrompt(); got != "second" {
		t.Errorf("LastUserPrompt() = %q, want %q", got, "second")
	}
	if got := (&Request{}).LastUserPrompt(); got != "" {
		t.Errorf("LastUserPrompt() on empty = %q, want empty", got)
	}
}

func TestFunctionCall_ArgumentsJSON(t *testing.T) {
	if got := (FunctionCall{Name: "x"}).ArgumentsJSON(); got != "{}" {
		t.Errorf("ArgumentsJSON() = %q, want {}", got)
	}
	call := FunctionCall{Name: "x", Arguments: []byte(`{"query":"go"}`)}
	if got := call.ArgumentsJSON(); got != `{"query":"go"}` {
		t.Errorf("ArgumentsJSON() = %q", got)
	}
}
