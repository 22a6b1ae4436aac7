package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/mwalsh/jamreg/internal/config"
)

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "jamreg",
		Short:         "Event registration intake, review, and repo provisioning",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	cmd.AddCommand(serveCmd())
	cmd.AddCommand(workerCmd())
	cmd.AddCommand(provisionCmd())

	return cmd
}

// setup loads configuration and builds the logger every subcommand shares.
func setup() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}

	level := slog.LevelInfo
	if cfg.IsDev() {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))

	return cfg, logger, nil
}

func fail(logger *slog.Logger, msg string, err error) error {
	if logger != nil {
		logger.Error(msg, slog.String("error", err.Error()))
	}
	return fmt.Errorf("%s: %w", msg, err)
}
