package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bwilder0/folktexts/internal/acs"
)

func newColumnsCmd() *cobra.Command {
	var sampleValue string

	cmd := &cobra.Command{
		Use:   "columns [name]",
		Short: "List registry columns or inspect one mapper",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			if len(args) == 0 {
				for _, name := range acs.ColumnNames() {
					col, ok := acs.Column(name)
					if !ok {
						continue
					}
					fmt.Fprintln(out, col.Describe())
				}
				return nil
			}

			col, ok := acs.Column(args[0])
			if !ok {
				return fmt.Errorf("columns: unknown column %q", args[0])
			}
			fmt.Fprintln(out, col.Describe())
			if q := col.Question(); q != nil {
				fmt.Fprintln(out, q.PromptText())
			}
			if sampleValue != "" {
				fmt.Fprintln(out, col.Sentence(sampleValue))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&sampleValue, "value", "", "render the sentence for this raw value")
	return cmd
}
