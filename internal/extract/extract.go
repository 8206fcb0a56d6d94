// Package extract turns local media files into text by running an external
// OCR or transcription program.
package extract

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/tjfontaine/hybrid-agent/internal/procexec"
)

// FilePlaceholder is replaced by the input path in a command's arguments.
const FilePlaceholder = "{file}"

// DefaultTimeout bounds a single extraction.
const DefaultTimeout = 60 * time.Second

// Default programs used when none are configured.
var (
	DefaultOCR        = []string{"tesseract", FilePlaceholder, "stdout"}
	DefaultTranscribe = []string{"whisper-cli", "-nt", "-f", FilePlaceholder}
)

// Command runs a program and returns its trimmed standard output.
type Command struct {
	argv    []string
	timeout time.Duration
	logger  *slog.Logger
}

// NewCommand creates an extractor from an argv template. An empty template
// is rejected.
func NewCommand(argv []string, timeout time.Duration, logger *slog.Logger) (*Command, error) {
	if len(argv) == 0 || argv[0] == "" {
		return nil, fmt.Errorf("extract: empty command")
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Command{argv: append([]string(nil), argv...), timeout: timeout, logger: logger}, nil
}

// ExtractText runs the program against path.
func (c *Command) ExtractText(ctx context.Context, path string) (string, error) {
	args := make([]string, 0, len(c.argv)-1)
	for _, a := range c.argv[1:] {
		args = append(args, strings.ReplaceAll(a, FilePlaceholder, path))
	}

	res := procexec.Run(ctx, procexec.Command{Path: c.argv[0], Args: args, Timeout: c.timeout})
	switch {
	case res.Err != nil:
		return "", fmt.Errorf("run %s: %w", c.argv[0], res.Err)
	case res.TimedOut:
		return "", fmt.Errorf("%s timed out after %s", c.argv[0], c.timeout)
	case res.Cancelled:
		return "", ctx.Err()
	case res.ExitCode != 0:
		return "", fmt.Errorf("%s exited with code %d: %s", c.argv[0], res.ExitCode, strings.TrimSpace(res.Stderr))
	}

	c.logger.Debug("text extracted",
		slog.String("program", c.argv[0]),
		slog.Duration("duration", res.Duration),
		slog.Int("bytes", len(res.Stdout)))
	return strings.TrimSpace(res.Stdout), nil
}
