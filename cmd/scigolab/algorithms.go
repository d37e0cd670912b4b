package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/scigolab/catalog"
)

var algorithmsCmd = &cobra.Command{
	Use:   "algorithms",
	Short: "List the available algorithms",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tTASK\tBEST FOR")
		for _, d := range catalog.All() {
			fmt.Fprintf(w, "%s\t%s\t%s\n", d.ID, d.Kind, d.BestFor)
		}
		return w.Flush()
	},
}
