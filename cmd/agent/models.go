package main

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List the models each backend can serve",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, _, err := loadAgent(cmd)
		if err != nil {
			return err
		}
		defer a.Shutdown(context.Background())

		catalogs := a.Catalogs()
		names := make([]string, 0, len(catalogs))
		for name := range catalogs {
			names = append(names, name)
		}
		sort.Strings(names)

		out := cmd.OutOrStdout()
		for _, name := range names {
			c := catalogs[name]
			current := c.CurrentModel()
			fmt.Fprintf(out, "%s (current: %s)\n", name, current)
			for _, m := range c.ListAvailableModels(cmd.Context()) {
				mark := " "
				if m == current {
					mark = "*"
				}
				fmt.Fprintf(out, "  %s %s\n", mark, m)
			}
		}
		return nil
	},
}

var reprovisionCmd = &cobra.Command{
	Use:   "reprovision",
	Short: "Delete and download the local model again",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, _, err := loadAgent(cmd)
		if err != nil {
			return err
		}
		defer a.Shutdown(context.Background())

		p := a.Provisioner()
		if p == nil {
			return fmt.Errorf("the local backend cannot be provisioned")
		}

		out := cmd.OutOrStdout()
		err = p.Reprovision(cmd.Context(), func(status string, fraction float64) {
			fmt.Fprintf(out, "\r%-40s %3.0f%%", status, fraction*100)
		})
		fmt.Fprintln(out)
		if err != nil {
			return fmt.Errorf("reprovision: %w", err)
		}
		fmt.Fprintln(out, "Local model ready.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(modelsCmd, reprovisionCmd)
}
