package tokens

import (
	"strings"
	"testing"

	"github.com/tjfontaine/hybrid-agent/internal/core/domain"
)

func TestEstimator_Count(t *testing.T) {
	e := NewEstimator()

	tests := []struct {
		name      string
		system    string
		msgs      []domain.Message
		minTokens int
		maxTokens int
	}{
		{
			name:      "simple message",
			msgs:      []domain.Message{{Role: domain.RoleUser, Content: "Hello, how are you?"}},
			minTokens: 5,
			maxTokens: 15,
		},
		{
			name:      "with system message",
			system:    "You are a helpful assistant.",
			msgs:      []domain.Message{{Role: domain.RoleUser, Content: "Hello"}},
			minTokens: 8,
			maxTokens: 20,
		},
		{
			name:      "empty",
			minTokens: 0,
			maxTokens: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := e.Count(tt.system, tt.msgs)
			if got < tt.minTokens || got > tt.maxTokens {
				t.Errorf("Count() = %d, want between %d and %d", got, tt.minTokens, tt.maxTokens)
			}
		})
	}
}

func TestTiktokenCounter_CountText(t *testing.T) {
	c := NewTiktokenCounter()

	n, err := c.CountText("hello world")
	if err != nil {
		t.Fatalf("CountText() error = %v", err)
	}
	if n != 2 {
		t.Errorf("CountText(hello world) = %d, want 2", n)
	}
}

func TestTiktokenCounter_Count(t *testing.T) {
	c := NewTiktokenCounter()

	short := c.Count("", []domain.Message{{Role: domain.RoleUser, Content: "hi"}})
	long := c.Count("be brief", []domain.Message{
		{Role: domain.RoleUser, Content: "hi"},
		{Role: domain.RoleAssistant, FunctionCalls: []domain.FunctionCall{{Name: "web_search", Arguments: []byte(`{"query":"go"}`)}}},
		{Role: domain.RoleTool, Name: "web_search", Content: "No results found."},
	})

	if short <= tokensPriming {
		t.Errorf("Count(short) = %d, want more than priming overhead", short)
	}
	if long <= short {
		t.Errorf("Count(long) = %d, want more than Count(short) = %d", long, short)
	}
}

// lengthCounter counts one token per content byte.
type lengthCounter struct{}

func (lengthCounter) Count(system string, msgs []domain.Message) int {
	n := len(system)
	for _, m := range msgs {
		n += len(m.Content)
	}
	return n
}

func TestBudget_Fit(t *testing.T) {
	history := []domain.Message{
		{Role: domain.RoleUser, Content: strings.Repeat("a", 10)},
		{Role: domain.RoleAssistant, Content: strings.Repeat("b", 10)},
		{Role: domain.RoleTool, Content: strings.Repeat("c", 10)},
		{Role: domain.RoleAssistant, Content: strings.Repeat("d", 10)},
	}
	tail := []domain.Message{{Role: domain.RoleUser, Content: strings.Repeat("e", 5)}}

	tests := []struct {
		name      string
		max       int
		wantFirst string
		wantLen   int
	}{
		{"disabled", 0, "a", 4},
		{"everything fits", 100, "a", 4},
		{"drop oldest", 35, "b", 3},
		{"orphaned tool result dropped", 25, "d", 1},
		{"nothing fits", 3, "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewBudget(tt.max, lengthCounter{}).Fit("", history, tail)
			if len(got) != tt.wantLen {
				t.Fatalf("Fit() kept %d messages, want %d", len(got), tt.wantLen)
			}
			if tt.wantLen > 0 && got[0].Content[:1] != tt.wantFirst {
				t.Errorf("Fit() first = %q, want prefix %q", got[0].Content, tt.wantFirst)
			}
		})
	}
}

func TestBudget_NilIsUnbounded(t *testing.T) {
	var b *Budget
	history := []domain.Message{{Role: domain.RoleUser, Content: "x"}}
	if got := b.Fit("", history, nil); len(got) != 1 {
		t.Errorf("nil Budget trimmed history to %d", len(got))
	}
}
