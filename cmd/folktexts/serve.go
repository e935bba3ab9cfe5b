package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/bwilder0/folktexts/api"
	"github.com/bwilder0/folktexts/internal/config"
	"github.com/bwilder0/folktexts/internal/store"
)

func newServeCmd(st *cliState) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve benchmark results over HTTP",
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(st.configPath)
			if err != nil {
				return err
			}
			st.cfg = cfg
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			path := strings.TrimSpace(st.cfg.Storage.Path)
			if path == "" {
				path = store.DefaultPath
			}

			results, err := store.Open(path)
			if err != nil {
				return err
			}
			defer results.Close()

			srv, err := api.NewServer(st.cfg, results)
			if err != nil {
				return err
			}
			return srv.Run(addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	return cmd
}
