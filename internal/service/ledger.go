package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/mwalsh/jamreg/internal/apperror"
	"github.com/mwalsh/jamreg/internal/repository"
)

// LedgerService fronts the repo-action ledger: a durable record of which
// external repository mutations have already been performed, so batch jobs
// can re-run after partial failure without repeating work.
type LedgerService struct {
	actions repository.RepoActionRepository
	logger  *slog.Logger
}

func NewLedgerService(actions repository.RepoActionRepository, logger *slog.Logger) *LedgerService {
	return &LedgerService{actions: actions, logger: logger}
}

// IsComplete reports whether an action was already performed for a repo.
func (s *LedgerService) IsComplete(ctx context.Context, action, repo string) (bool, error) {
	action, repo, err := normalizePair(action, repo)
	if err != nil {
		return false, err
	}
	return s.actions.IsComplete(ctx, action, repo)
}

// SetComplete marks an action done for a repo. Marking twice is a no-op.
func (s *LedgerService) SetComplete(ctx context.Context, action, repo string) error {
	action, repo, err := normalizePair(action, repo)
	if err != nil {
		return err
	}
	if err := s.actions.SetComplete(ctx, action, repo); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "repo action recorded",
		slog.String("action", action),
		slog.String("repo", repo))
	return nil
}

// SetCompleteBulk marks an action done for many repos in one write. Repos
// already marked are skipped.
func (s *LedgerService) SetCompleteBulk(ctx context.Context, action string, repos []string) error {
	action = strings.TrimSpace(action)
	if action == "" {
		return apperror.ValidationFailed("action", "The action field is required.")
	}

	cleaned := make([]string, 0, len(repos))
	for _, repo := range repos {
		if repo = strings.TrimSpace(repo); repo != "" {
			cleaned = append(cleaned, repo)
		}
	}
	if len(cleaned) == 0 {
		return nil
	}

	if err := s.actions.SetCompleteBulk(ctx, action, cleaned); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "repo actions recorded in bulk",
		slog.String("action", action),
		slog.Int("repos", len(cleaned)))
	return nil
}

// ReposWithAction lists every repo the action was performed for.
func (s *LedgerService) ReposWithAction(ctx context.Context, action string) ([]string, error) {
	action = strings.TrimSpace(action)
	if action == "" {
		return nil, apperror.ValidationFailed("action", "The action field is required.")
	}
	return s.actions.ReposWithAction(ctx, action)
}

func normalizePair(action, repo string) (string, string, error) {
	action = strings.TrimSpace(action)
	repo = strings.TrimSpace(repo)
	if action == "" {
		return "", "", apperror.ValidationFailed("action", "The action field is required.")
	}
	if repo == "" {
		return "", "", apperror.ValidationFailed("repo", "The repo field is required.")
	}
	return action, repo, nil
}
