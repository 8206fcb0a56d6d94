package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var skillsCmd = &cobra.Command{
	Use:   "skills",
	Short: "List the registered capabilities, including script skills",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, _, err := loadAgent(cmd)
		if err != nil {
			return err
		}
		defer a.Shutdown(context.Background())

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "NAME\tUNSAFE\tDESCRIPTION")
		for _, c := range a.Capabilities().List() {
			fmt.Fprintf(tw, "%s\t%v\t%s\n", c.Name(), c.IsUnsafe(), c.Description())
		}
		return tw.Flush()
	},
}

func init() {
	rootCmd.AddCommand(skillsCmd)
}
