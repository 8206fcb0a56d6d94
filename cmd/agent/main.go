package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/tjfontaine/hybrid-agent/pkg/agent"
)

var rootCmd = &cobra.Command{
	Use:   "agent",
	Short: "A personal assistant that routes prompts between a local and a cloud model",
	Long: `agent answers prompts with a small local model or Gemini, recalls saved
memories, and can call tools: OCR, transcription, web search and script skills.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Load .env file if it exists
		_ = godotenv.Load()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "Path to config file (default config.yaml if present)")
}

// loadAgent reads the configuration named by --config and builds an agent.
func loadAgent(cmd *cobra.Command, opts ...agent.Option) (*agent.Agent, *agent.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := agent.LoadConfig(path)
	if err != nil {
		return nil, nil, err
	}

	logger := newLogger(cfg.Logging.Level, cfg.Logging.Format)
	slog.SetDefault(logger)

	a, err := agent.New(cfg, append([]agent.Option{agent.WithLogger(logger)}, opts...)...)
	if err != nil {
		return nil, nil, fmt.Errorf("create agent: %w", err)
	}
	return a, cfg, nil
}

// newLogger writes structured logs to stderr so command output stays clean.
func newLogger(level, format string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn", "warning":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: lvl}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
