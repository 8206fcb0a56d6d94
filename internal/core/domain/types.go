// Package domain defines the canonical types shared by every component of the
// agent runtime: conversation messages, streamed response fragments, function
// calls, capability declarations and memory records.
package domain

import (
	"encoding/json"
	"time"
)

// Role tags a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleTool:
		return true
	}
	return false
}

// FunctionCall is a request from a model to invoke a registered capability.
// Arguments is the raw JSON object produced by the backend; its encoding is
// opaque to the orchestrator.
type FunctionCall struct {
	ID        string          `json:"id,omitempty"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// ArgumentsJSON returns the arguments as a JSON object string, defaulting to "{}".
func (c FunctionCall) ArgumentsJSON() string {
	if len(c.Arguments) == 0 {
		return "{}"
	}
	return string(c.Arguments)
}

// Fragment is one incremental unit of a streamed agent reply.
//
// FunctionCalls is only populated on the terminal fragment of a backend turn.
// A fragment with empty text and no function calls is never emitted.
type Fragment struct {
	Text          string         `json:"text,omitempty"`
	FunctionCalls []FunctionCall `json:"function_calls,omitempty"`
}

// IsEmpty reports whether the fragment carries nothing worth emitting.
func (f Fragment) IsEmpty() bool {
	return f.Text == "" && len(f.FunctionCalls) == 0
}

// TextFragment is a shorthand for a text-only fragment.
func TextFragment(text string) Fragment {
	return Fragment{Text: text}
}

// Message is one role-tagged conversation turn.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
	// Name is the capability name for tool messages.
	Name string `json:"name,omitempty"`
	// ToolCallID links a tool result to the call that produced it.
	ToolCallID string `json:"tool_call_id,omitempty"`
	// FunctionCalls are the calls an assistant turn requested.
	FunctionCalls []FunctionCall `json:"function_calls,omitempty"`
	CreatedAt     time.Time      `json:"created_at,omitempty"`
}

// Request is the input to a backend turn: a system prompt plus the
// chronological conversation, the last entry being the newest turn.
type Request struct {
	System   string    `json:"system,omitempty"`
	Messages []Message `json:"messages"`
}

// NewRequest builds a single-turn request.
func NewRequest(system, user string) *Request {
	return &Request{
		System:   system,
		Messages: []Message{{Role: RoleUser, Content: user}},
	}
}

// LastUserPrompt returns the content of the newest user message.
func (r *Request) LastUserPrompt() string {
	for i := len(r.Messages) - 1; i >= 0; i-- {
		if r.Messages[i].Role == RoleUser {
			return r.Messages[i].Content
		}
	}
	return ""
}

// Declaration describes a capability to a model that supports function calling.
type Declaration struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Parameters  any    `json:"parameters,omitempty"` // JSON Schema
}

// MemoryItem is a remembered piece of text and its embedding.
type MemoryItem struct {
	ID        int64     `json:"id"`
	Content   string    `json:"content"`
	Vector    []float32 `json:"vector,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ScoredMemory pairs a memory with its similarity to a query.
type ScoredMemory struct {
	Item  MemoryItem `json:"item"`
	Score float64    `json:"score"`
}

// SearchResult is one ranked web search hit.
type SearchResult struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
}
