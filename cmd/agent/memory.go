package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var memoryCmd = &cobra.Command{
	Use:   "memory",
	Short: "Save and search long-term memories",
}

var memorySaveCmd = &cobra.Command{
	Use:   "save <text>...",
	Short: "Embed and store a memory",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, _, err := loadAgent(cmd)
		if err != nil {
			return err
		}
		defer a.Shutdown(context.Background())

		item, ok := a.Memory().SaveMemory(cmd.Context(), strings.Join(args, " "))
		if !ok {
			return fmt.Errorf("memory not saved: the text could not be embedded")
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Saved memory %d\n", item.ID)
		return nil
	},
}

var memorySearchCmd = &cobra.Command{
	Use:   "search <query>...",
	Short: "List the memories most similar to a query",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, cfg, err := loadAgent(cmd)
		if err != nil {
			return err
		}
		defer a.Shutdown(context.Background())

		limit, _ := cmd.Flags().GetInt("limit")
		if limit <= 0 {
			limit = cfg.Memory.Limit
		}
		threshold := cfg.Memory.Threshold
		if cmd.Flags().Changed("threshold") {
			threshold, _ = cmd.Flags().GetFloat64("threshold")
		}

		results := a.Memory().SearchMemories(cmd.Context(), strings.Join(args, " "), limit, threshold)
		out := cmd.OutOrStdout()
		if len(results) == 0 {
			fmt.Fprintln(out, "No matching memories.")
			return nil
		}
		for _, r := range results {
			fmt.Fprintf(out, "%.3f  [%d] %s\n", r.Score, r.Item.ID, r.Item.Content)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(memoryCmd)
	memoryCmd.AddCommand(memorySaveCmd, memorySearchCmd)
	memorySearchCmd.Flags().IntP("limit", "n", 0, "Maximum results (default from config)")
	memorySearchCmd.Flags().Float64("threshold", 0, "Minimum cosine similarity (default from config)")
}
