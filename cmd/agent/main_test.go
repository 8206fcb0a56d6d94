package main

import (
	"bufio"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/tjfontaine/hybrid-agent/internal/capability"
	"github.com/tjfontaine/hybrid-agent/internal/core/domain"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		level string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			logger := newLogger(tt.level, "text")
			if !logger.Enabled(context.Background(), tt.want) {
				t.Errorf("level %s not enabled", tt.want)
			}
			if tt.want > slog.LevelDebug && logger.Enabled(context.Background(), tt.want-1) {
				t.Errorf("level below %s enabled", tt.want)
			}
		})
	}
}

func TestPromptConsent(t *testing.T) {
	c := &capability.Func{CapName: "web_search", Unsafe: true}
	call := domain.FunctionCall{Name: "web_search", Arguments: json.RawMessage(`{"query":"go"}`)}

	tests := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"YES\n", true},
		{"n\n", false},
		{"\n", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(strings.TrimSpace(tt.input), func(t *testing.T) {
			var out strings.Builder
			p := &promptConsent{in: bufio.NewReader(strings.NewReader(tt.input)), out: &out}
			if got := p.Approve(context.Background(), c, call); got != tt.want {
				t.Errorf("Approve(%q) = %v, want %v", tt.input, got, tt.want)
			}
			if !strings.Contains(out.String(), `Allow web_search with {"query":"go"}?`) {
				t.Errorf("prompt = %q", out.String())
			}
		})
	}
}

func TestRootCommands(t *testing.T) {
	want := map[string]bool{"serve": true, "ask": true, "memory": true, "models": true, "reprovision": true, "skills": true}
	for _, c := range rootCmd.Commands() {
		delete(want, c.Name())
	}
	if len(want) != 0 {
		t.Errorf("missing commands: %v", want)
	}
}
