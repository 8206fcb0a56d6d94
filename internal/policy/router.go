// Package policy holds the routing policy that decides which backend serves a
// prompt. The policy is a swappable decision point: the default rule routes by
// prompt length and keywords, but latency budgets, declared capability needs
// or model confidence are equally valid implementations of Policy.
package policy

import (
	"strings"
	"unicode/utf8"
)

// Target identifies a backend variant.
type Target string

const (
	TargetLocal Target = "local"
	TargetCloud Target = "cloud"
)

// Decision is the outcome of a routing decision.
type Decision struct {
	Target Target
	// Reason is a short machine-readable explanation for logs and metrics.
	Reason string
}

// Policy chooses a backend for an already scrubbed prompt. Implementations
// must be deterministic pure functions of the prompt.
type Policy interface {
	Route(prompt string) Decision
}

// Func adapts a function to Policy.
type Func func(prompt string) Decision

// Route calls f.
func (f Func) Route(prompt string) Decision { return f(prompt) }

const (
	// DefaultMaxLocalLength is the exclusive length bound below which prompts stay local.
	DefaultMaxLocalLength = 50
)

// DefaultLocalKeywords force local routing regardless of length.
var DefaultLocalKeywords = []string{"time"}

// LengthKeywordPolicy routes to Local iff the prompt is shorter than
// MaxLocalLength code points or contains one of Keywords (case-insensitive
// substring); otherwise to Cloud.
type LengthKeywordPolicy struct {
	MaxLocalLength int
	Keywords       []string
}

// NewLengthKeywordPolicy creates the default policy. Zero or negative
// maxLocalLength and a nil keyword list fall back to the defaults.
func NewLengthKeywordPolicy(maxLocalLength int, keywords []string) *LengthKeywordPolicy {
	if maxLocalLength <= 0 {
		maxLocalLength = DefaultMaxLocalLength
	}
	if keywords == nil {
		keywords = DefaultLocalKeywords
	}
	lowered := make([]string, 0, len(keywords))
	for _, k := range keywords {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			lowered = append(lowered, k)
		}
	}
	return &LengthKeywordPolicy{MaxLocalLength: maxLocalLength, Keywords: lowered}
}

// Route implements Policy.
func (p *LengthKeywordPolicy) Route(prompt string) Decision {
	if utf8.RuneCountInString(prompt) < p.MaxLocalLength {
		return Decision{Target: TargetLocal, Reason: "short_prompt"}
	}
	lower := strings.ToLower(prompt)
	for _, k := range p.Keywords {
		if strings.Contains(lower, k) {
			return Decision{Target: TargetLocal, Reason: "keyword:" + k}
		}
	}
	return Decision{Target: TargetCloud, Reason: "default"}
}
