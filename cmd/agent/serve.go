package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tjfontaine/hybrid-agent/internal/core/domain"
	"github.com/tjfontaine/hybrid-agent/internal/core/ports"
	"github.com/tjfontaine/hybrid-agent/pkg/agent"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long:  `Serves the streaming agent, memory, model and capability routes until interrupted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		var opts []agent.Option
		if deny, _ := cmd.Flags().GetBool("deny-unsafe"); deny {
			opts = append(opts, agent.WithConsentPolicy(ports.ConsentFunc(
				func(context.Context, ports.Capability, domain.FunctionCall) bool { return false })))
		}

		a, cfg, err := loadAgent(cmd, opts...)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := a.Start(ctx); err != nil {
			_ = a.Shutdown(context.Background())
			return err
		}

		<-ctx.Done()
		slog.Info("shutdown signal received")

		// Give outstanding requests a deadline for completion.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := a.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown did not complete in %v: %w", cfg.Server.ShutdownTimeout, err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().Bool("deny-unsafe", false, "Refuse every capability that runs programs or reaches the network")
}
