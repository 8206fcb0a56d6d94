package tokens

import "github.com/tjfontaine/hybrid-agent/internal/core/domain"

// Budget bounds the size of a prompt built from conversation history.
type Budget struct {
	counter   Counter
	maxTokens int
}

// NewBudget creates a budget of maxTokens. A non-positive maxTokens disables
// trimming. A nil counter uses tiktoken.
func NewBudget(maxTokens int, counter Counter) *Budget {
	if counter == nil {
		counter = NewTiktokenCounter()
	}
	return &Budget{counter: counter, maxTokens: maxTokens}
}

// Max returns the configured limit.
func (b *Budget) Max() int { return b.maxTokens }

// Fit drops the oldest history messages until system, history and tail fit
// the budget. tail is always kept. A tool result whose assistant call was
// dropped is dropped with it, so the window never starts with a tool message.
func (b *Budget) Fit(system string, history, tail []domain.Message) []domain.Message {
	if b == nil || b.maxTokens <= 0 {
		return history
	}

	window := history
	for len(window) > 0 {
		if b.counter.Count(system, joined(window, tail)) <= b.maxTokens {
			break
		}
		window = window[1:]
	}
	for len(window) > 0 && window[0].Role == domain.RoleTool {
		window = window[1:]
	}
	return window
}

func joined(a, b []domain.Message) []domain.Message {
	out := make([]domain.Message, 0, len(a)+len(b))
	out = append(out, a...)
	return append(out, b...)
}
