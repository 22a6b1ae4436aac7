package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// Ledger action names written by the provisioner.
const (
	ActionCreateRepo  = "create-repo"
	ActionGrantAccess = "grant-access"
)

// RepoMutator performs the external GitHub mutations the provisioner drives.
type RepoMutator interface {
	CreateRepo(ctx context.Context, name string) error
	AddCollaborator(ctx context.Context, repo, username string) error
}

// Provisioner sets up event repositories for accepted participants: create
// the submission repo, then grant the participant push access. Every step is
// guarded by the ledger, so re-running after a partial failure only retries
// what did not complete.
type Provisioner struct {
	ledger  *LedgerService
	mutator RepoMutator
	logger  *slog.Logger
}

func NewProvisioner(ledger *LedgerService, mutator RepoMutator, logger *slog.Logger) *Provisioner {
	return &Provisioner{ledger: ledger, mutator: mutator, logger: logger}
}

// RepoName returns the submission repository name for a username.
func RepoName(username string) string {
	return fmt.Sprintf("entry-%s", username)
}

// Provision runs both steps for every username, collecting per-user errors
// instead of stopping at the first. The returned error joins every failure.
func (p *Provisioner) Provision(ctx context.Context, usernames []string) error {
	var errs []error
	for _, username := range usernames {
		if err := p.provisionOne(ctx, username); err != nil {
			p.logger.ErrorContext(ctx, "provisioning failed",
				slog.String("username", username),
				slog.String("error", err.Error()))
			errs = append(errs, fmt.Errorf("%s: %w", username, err))
		}
	}
	return errors.Join(errs...)
}

func (p *Provisioner) provisionOne(ctx context.Context, username string) error {
	repo := RepoName(username)

	if err := p.step(ctx, ActionCreateRepo, repo, func() error {
		return p.mutator.CreateRepo(ctx, repo)
	}); err != nil {
		return err
	}

	return p.step(ctx, ActionGrantAccess, repo, func() error {
		return p.mutator.AddCollaborator(ctx, repo, username)
	})
}

// step performs a mutation unless the ledger says it already happened, and
// records it afterwards. Check and record are not atomic: a crash between
// mutation and SetComplete repeats the mutation on the next run, so mutations
// must tolerate an already-applied state.
func (p *Provisioner) step(ctx context.Context, action, repo string, mutate func() error) error {
	done, err := p.ledger.IsComplete(ctx, action, repo)
	if err != nil {
		return err
	}
	if done {
		p.logger.DebugContext(ctx, "repo action already complete",
			slog.String("action", action),
			slog.String("repo", repo))
		return nil
	}

	if err := mutate(); err != nil {
		return fmt.Errorf("%s %s: %w", action, repo, err)
	}
	return p.ledger.SetComplete(ctx, action, repo)
}
