package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/tjfontaine/hybrid-agent/internal/core/domain"
	"github.com/tjfontaine/hybrid-agent/internal/core/ports"
	"github.com/tjfontaine/hybrid-agent/pkg/agent"
)

var askCmd = &cobra.Command{
	Use:   "ask <prompt>...",
	Short: "Answer one prompt and print the streamed reply",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		system, _ := cmd.Flags().GetString("system")
		yes, _ := cmd.Flags().GetBool("yes")

		var consent ports.ConsentPolicy = ports.AllowAll
		if !yes {
			consent = &promptConsent{in: bufio.NewReader(cmd.InOrStdin()), out: cmd.ErrOrStderr()}
		}

		a, _, err := loadAgent(cmd, agent.WithConsentPolicy(consent))
		if err != nil {
			return err
		}
		defer a.Shutdown(context.Background())

		out := cmd.OutOrStdout()
		for frag := range a.StreamResponse(cmd.Context(), system, strings.Join(args, " ")) {
			fmt.Fprint(out, frag.Text)
		}
		fmt.Fprintln(out)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(askCmd)
	askCmd.Flags().StringP("system", "s", "", "System prompt (default from config)")
	askCmd.Flags().BoolP("yes", "y", false, "Run unsafe capabilities without asking")
}

// promptConsent asks on the terminal before an unsafe capability runs.
type promptConsent struct {
	mu  sync.Mutex
	in  *bufio.Reader
	out io.Writer
}

func (p *promptConsent) Approve(_ context.Context, c ports.Capability, call domain.FunctionCall) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	fmt.Fprintf(p.out, "\nAllow %s with %s? [y/N] ", c.Name(), call.ArgumentsJSON())
	line, err := p.in.ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}

var _ ports.ConsentPolicy = (*promptConsent)(nil)
