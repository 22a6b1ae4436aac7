package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mwalsh/jamreg/internal/apperror"
	"github.com/mwalsh/jamreg/internal/model"
	"github.com/mwalsh/jamreg/internal/notify"
	"github.com/mwalsh/jamreg/internal/queue"
	"github.com/mwalsh/jamreg/internal/repository"
)

// ReviewService implements the staff workflow over submitted applications.
// Decisions are terminal: the row is deleted once the side-effect task is on
// the queue. Enqueue happens before delete so a crash in between redelivers
// the task rather than losing it.
type ReviewService struct {
	apps    repository.ApplicationRepository
	entries repository.TimeEntryRepository
	commits repository.CommitRepository
	tasks   queue.Queue
	logger  *slog.Logger
}

func NewReviewService(
	apps repository.ApplicationRepository,
	entries repository.TimeEntryRepository,
	commits repository.CommitRepository,
	tasks queue.Queue,
	logger *slog.Logger,
) *ReviewService {
	return &ReviewService{
		apps:    apps,
		entries: entries,
		commits: commits,
		tasks:   tasks,
		logger:  logger,
	}
}

// Accept queues the acceptance email and deletes the application.
func (s *ReviewService) Accept(ctx context.Context, appID string) error {
	return s.decide(ctx, appID, notify.TemplateAccepted)
}

// Decline queues the rejection email and deletes the application.
func (s *ReviewService) Decline(ctx context.Context, appID string) error {
	return s.decide(ctx, appID, notify.TemplateDeclined)
}

func (s *ReviewService) decide(ctx context.Context, appID, template string) error {
	app, err := s.apps.GetByID(ctx, appID)
	if err != nil {
		return err
	}

	recipient := app.DecisionRecipient()
	if recipient == "" {
		s.logger.WarnContext(ctx, "application has no decision recipient",
			slog.String("applicationId", app.ID),
			slog.String("username", app.Username))
	} else {
		task, err := queue.NewDecisionEmailTask(recipient, template, app.Username)
		if err != nil {
			return err
		}
		if err := s.tasks.Enqueue(ctx, task); err != nil {
			return fmt.Errorf("queueing decision email for %s: %w", app.ID, err)
		}
	}

	if err := s.apps.Delete(ctx, app.ID); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "application decided",
		slog.String("applicationId", app.ID),
		slog.String("username", app.Username),
		slog.String("decision", template))

	return nil
}

// RemoveEntry retracts a participant's slot reservation and withdraws the
// application. When a time entry exists, the external removal task is queued
// with the entry's exact tier flags before either row is deleted.
func (s *ReviewService) RemoveEntry(ctx context.Context, appID string) error {
	app, err := s.apps.GetByID(ctx, appID)
	if err != nil {
		return err
	}

	entry, err := s.entries.GetByApplication(ctx, app.ID)
	switch {
	case err == nil:
		task, err := queue.NewTimeEntryRemovalTask(app.Username, entry.T1, entry.T2, entry.T3)
		if err != nil {
			return err
		}
		if err := s.tasks.Enqueue(ctx, task); err != nil {
			return fmt.Errorf("queueing time entry removal for %s: %w", app.ID, err)
		}
		if err := s.entries.DeleteByApplication(ctx, app.ID); err != nil {
			return err
		}
	case errors.Is(err, apperror.ErrNotFound):
		// No reservation to retract.
	default:
		return err
	}

	if err := s.apps.Delete(ctx, app.ID); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "entry removed",
		slog.String("applicationId", app.ID),
		slog.String("username", app.Username))

	return nil
}

// List returns one page of applications for the staff dashboard.
func (s *ReviewService) List(ctx context.Context, opts repository.ListOptions) ([]model.Application, error) {
	if opts.Page < 1 {
		opts.Page = 1
	}
	return s.apps.List(ctx, opts)
}

// Get returns a single application.
func (s *ReviewService) Get(ctx context.Context, appID string) (*model.Application, error) {
	return s.apps.GetByID(ctx, appID)
}

// MarkTiers records which tiers a participant confirmed, creating or
// replacing their single time entry.
func (s *ReviewService) MarkTiers(ctx context.Context, appID string, t1, t2, t3 bool) (*model.TimeEntry, error) {
	app, err := s.apps.GetByID(ctx, appID)
	if err != nil {
		return nil, err
	}
	if app.IsJudge {
		return nil, apperror.ValidationFailed("application", "Judges do not hold time entries.")
	}

	entry := &model.TimeEntry{ApplicationID: app.ID, T1: t1, T2: t2, T3: t3}
	if err := s.entries.Upsert(ctx, entry); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "tiers marked",
		slog.String("applicationId", app.ID),
		slog.Bool("t1", t1), slog.Bool("t2", t2), slog.Bool("t3", t3))

	return entry, nil
}

// RecordCommit ingests one commit observed in an applicant's event
// repository. Commit counts back the turned-up listing filter.
func (s *ReviewService) RecordCommit(ctx context.Context, appID, sha, message string) (*model.Commit, error) {
	app, err := s.apps.GetByID(ctx, appID)
	if err != nil {
		return nil, err
	}
	if sha == "" {
		return nil, apperror.ValidationFailed("sha", "The sha field is required.")
	}

	commit := &model.Commit{ApplicationID: app.ID, SHA: sha, Message: message}
	if err := s.commits.Add(ctx, commit); err != nil {
		return nil, err
	}
	return commit, nil
}
