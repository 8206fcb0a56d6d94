// Package tokens counts conversation tokens and trims history windows to a
// token budget.
package tokens

import (
	"fmt"
	"sync"

	"github.com/tiktoken-go/tokenizer"

	"github.com/tjfontaine/hybrid-agent/internal/core/domain"
)

// Counter counts the tokens of a prompt: a system text plus messages.
type Counter interface {
	Count(system string, msgs []domain.Message) int
}

// Per-message overheads of the chat format.
const (
	tokensPerMessage = 3
	tokensPerRole    = 1
	tokensPerCall    = 3
	tokensPriming    = 3
)

// TiktokenCounter counts with a tiktoken encoding. Neither backend publishes
// its tokenizer; cl100k_base is a close enough proxy for budgeting.
type TiktokenCounter struct {
	encoding tokenizer.Encoding

	once  sync.Once
	codec tokenizer.Codec
	err   error
}

// NewTiktokenCounter creates a counter for the cl100k_base encoding.
func NewTiktokenCounter() *TiktokenCounter {
	return &TiktokenCounter{encoding: tokenizer.Cl100kBase}
}

func (c *TiktokenCounter) getCodec() (tokenizer.Codec, error) {
	c.once.Do(func() {
		c.codec, c.err = tokenizer.Get(c.encoding)
		if c.err != nil {
			c.err = fmt.Errorf("failed to get tokenizer encoding: %w", c.err)
		}
	})
	return c.codec, c.err
}

// CountText counts the tokens of a plain string.
func (c *TiktokenCounter) CountText(text string) (int, error) {
	codec, err := c.getCodec()
	if err != nil {
		return 0, err
	}
	ids, _, err := codec.Encode(text)
	if err != nil {
		return 0, err
	}
	return len(ids), nil
}

// Count implements Counter. If the encoding cannot be loaded the count falls
// back to the character estimate.
func (c *TiktokenCounter) Count(system string, msgs []domain.Message) int {
	codec, err := c.getCodec()
	if err != nil {
		return NewEstimator().Count(system, msgs)
	}

	encode := func(s string) int {
		if s == "" {
			return 0
		}
		ids, _, _ := codec.Encode(s)
		return len(ids)
	}

	total := 0
	if system != "" {
		total += tokensPerMessage + tokensPerRole + encode(system)
	}
	for _, m := range msgs {
		total += tokensPerMessage + tokensPerRole
		total += encode(m.Content)
		total += encode(m.Name)
		for _, fc := range m.FunctionCalls {
			total += encode(fc.Name) + encode(fc.ArgumentsJSON()) + tokensPerCall
		}
	}
	return total + tokensPriming
}

// Estimator approximates token counts from character counts.
type Estimator struct {
	// CharsPerToken is the average characters per token (default: 4)
	CharsPerToken float64
}

// NewEstimator creates a new token estimator.
func NewEstimator() *Estimator {
	return &Estimator{CharsPerToken: 4.0}
}

// Count implements Counter.
func (e *Estimator) Count(system string, msgs []domain.Message) int {
	chars := len(system)
	for _, m := range msgs {
		chars += len(m.Role) + len(m.Content) + 4
		for _, fc := range m.FunctionCalls {
			chars += len(fc.Name) + len(fc.Arguments)
		}
	}
	return int(float64(chars) / e.CharsPerToken)
}
