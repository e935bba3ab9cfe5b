package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/bwilder0/folktexts/internal/config"
)

type cliState struct {
	configPath string
	cfg        *config.Config
}

var (
	osExit                 = os.Exit
	stderrWriter io.Writer = os.Stderr
)

func main() {
	cmd := newRootCmd()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(stderrWriter, err)
		osExit(1)
	}
}

func newRootCmd() *cobra.Command {
	st := &cliState{}

	root := &cobra.Command{
		Use:           "folktexts",
		Short:         "Benchmark LLM risk-score calibration on census prediction tasks",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.PersistentFlags().StringVar(&st.configPath, "config", "",
		"path to config file (default "+config.DefaultPath+"; a missing default file falls back to env vars)")

	root.AddCommand(newBenchmarkCmd(st))
	root.AddCommand(newTasksCmd())
	root.AddCommand(newColumnsCmd())
	root.AddCommand(newServeCmd(st))
	return root
}
