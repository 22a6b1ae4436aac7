package main

import (
	"errors"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/mwalsh/jamreg/internal/identity"
	sqliteRepo "github.com/mwalsh/jamreg/internal/repository/sqlite"
	"github.com/mwalsh/jamreg/internal/service"
)

func provisionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "provision <username>...",
		Short: "Create event repos and grant access for accepted participants",
		Long: "For each username, create the submission repository and add the user\n" +
			"as a collaborator. Steps already recorded in the repo-action ledger are\n" +
			"skipped, so the job is safe to re-run after a partial failure.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			if cfg.GitHubToken == "" {
				return errors.New("provisioning needs GITHUB_TOKEN")
			}

			db, err := sqliteRepo.New(cfg.DBPath)
			if err != nil {
				return fail(logger, "opening database", err)
			}
			defer db.Close()

			github := identity.NewClient(identity.Config{
				ClientID:     cfg.GitHubClientID,
				ClientSecret: cfg.GitHubClientSecret,
				CallbackURL:  cfg.GitHubCallbackURL,
				APIToken:     cfg.GitHubToken,
				Owner:        cfg.GitHubOwner,
			})

			ledger := service.NewLedgerService(db, logger)
			provisioner := service.NewProvisioner(ledger, github, logger)

			if err := provisioner.Provision(cmd.Context(), args); err != nil {
				return fail(logger, "provisioning finished with failures", err)
			}

			logger.Info("provisioning complete", slog.Int("users", len(args)))
			return nil
		},
	}
}
