package main

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mwalsh/jamreg/internal/server"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the registration HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}

			if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
				return fail(logger, "creating database directory", err)
			}

			srv, err := server.New(cfg, logger)
			if err != nil {
				return fail(logger, "creating server", err)
			}

			if err := srv.Start(); err != nil {
				return fail(logger, "server stopped", err)
			}
			return nil
		},
	}
}
