package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/bwilder0/folktexts/internal/acs"
)

func newTasksCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tasks",
		Short: "List available prediction tasks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tTARGET\tFEATURES\tDESCRIPTION")
			for _, name := range acs.TaskNames() {
				task, ok := acs.TaskByName(name)
				if !ok {
					continue
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
					task.Name, task.Target, strings.Join(task.Features, ","), task.Description)
			}
			return tw.Flush()
		},
	}
}
