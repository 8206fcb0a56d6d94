// Package safety implements the pre-flight prompt checks: detection of
// prompt-injection phrases and redaction of personal data before a prompt
// leaves the machine.
package safety

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"
)

// DefaultJailbreakPattern matches the curated injection/override phrases.
const DefaultJailbreakPattern = `(ignore previous instructions|system override|delete all files|embedded instructions|simulated .* mode)`

// Redaction tokens. None of them matches any detector, which keeps
// ScrubPii idempotent.
const (
	EmailToken = "[EMAIL_REDACTED]"
	SSNToken   = "[SSN_REDACTED]"
	PhoneToken = "[PHONE_REDACTED]"
)

// Detector finds one kind of sensitive substring and replaces it with Token.
type Detector struct {
	Name    string
	Pattern *regexp.Regexp
	Token   string
}

// DefaultDetectors returns the built-in PII detectors in replacement order.
func DefaultDetectors() []Detector {
	return []Detector{
		{
			Name:    "email",
			Pattern: regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`),
			Token:   EmailToken,
		},
		{
			Name:    "ssn",
			Pattern: regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`),
			Token:   SSNToken,
		},
		{
			Name:    "phone",
			Pattern: regexp.MustCompile(`(?:\+?1[\s.-]?)?\(?\b\d{3}\)?[\s.-]?\d{3}[\s.-]\d{4}\b`),
			Token:   PhoneToken,
		},
	}
}

// Option configures a Gate.
type Option func(*Gate) error

// WithPatterns adds case-insensitive injection patterns.
func WithPatterns(patterns ...string) Option {
	return func(g *Gate) error {
		for _, p := range patterns {
			if strings.TrimSpace(p) == "" {
				continue
			}
			re, err := regexp.Compile("(?i)" + p)
			if err != nil {
				return fmt.Errorf("compile safety pattern %q: %w", p, err)
			}
			g.jailbreak = append(g.jailbreak, re)
		}
		return nil
	}
}

// WithDetector appends a PII detector after the built-in ones.
func WithDetector(d Detector) Option {
	return func(g *Gate) error {
		if d.Pattern == nil {
			return fmt.Errorf("detector %q has no pattern", d.Name)
		}
		if d.Pattern.MatchString(d.Token) {
			return fmt.Errorf("detector %q matches its own token", d.Name)
		}
		g.detectors = append(g.detectors, d)
		return nil
	}
}

// WithLogger sets the diagnostic logger.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Gate) error {
		g.logger = logger
		return nil
	}
}

// Gate is deterministic and performs no I/O beyond diagnostic logging.
type Gate struct {
	jailbreak []*regexp.Regexp
	detectors []Detector
	logger    *slog.Logger
}

// New creates a Gate with the default patterns and detectors.
func New(opts ...Option) (*Gate, error) {
	g := &Gate{
		jailbreak: []*regexp.Regexp{regexp.MustCompile("(?i)" + DefaultJailbreakPattern)},
		detectors: DefaultDetectors(),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(g); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// IsPromptSafe returns false iff the prompt matches an injection pattern.
// Empty and whitespace-only prompts are always safe.
func (g *Gate) IsPromptSafe(prompt string) bool {
	if strings.TrimSpace(prompt) == "" {
		return true
	}
	for _, re := range g.jailbreak {
		if re.MatchString(prompt) {
			g.logger.Warn("jailbreak attempt detected",
				slog.String("pattern", re.String()),
				slog.Int("prompt_length", len(prompt)))
			return false
		}
	}
	return true
}

// maxScrubPasses caps ScrubPii for detectors whose token matches their own
// pattern. The built-in detectors settle in two or three passes.
const maxScrubPasses = 8

// ScrubPii replaces every detected sensitive substring with its token. A
// replacement can expose a match that the left-to-right pass already
// skipped, so the detectors are rerun until the text stops changing.
func (g *Gate) ScrubPii(prompt string) string {
	if strings.TrimSpace(prompt) == "" {
		return prompt
	}
	scrubbed := prompt
	for range maxScrubPasses {
		next := scrubbed
		for _, d := range g.detectors {
			next = d.Pattern.ReplaceAllLiteralString(next, d.Token)
		}
		if next == scrubbed {
			break
		}
		scrubbed = next
	}
	return scrubbed
}
