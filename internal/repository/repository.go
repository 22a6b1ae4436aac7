// Package repository declares the storage interfaces consumed by the service
// layer. The sqlite subpackage provides the concrete implementation; tests
// substitute in-memory mocks.
package repository

import (
	"context"

	"github.com/mwalsh/jamreg/internal/model"
)

// PageSize is the fixed page size for application listings.
const PageSize = 5

// ListFilter selects which applications a listing returns.
type ListFilter string

const (
	FilterAll          ListFilter = ""
	FilterJudges       ListFilter = "judges"
	FilterParticipants ListFilter = "participants"
	FilterUnconfirmed  ListFilter = "unconfirmed" // participants without a time entry
	FilterConfirmed    ListFilter = "confirmed"   // participants with a time entry
	FilterTier1        ListFilter = "t1"
	FilterTier2        ListFilter = "t2"
	FilterTier3        ListFilter = "t3"
	FilterTurnedUp     ListFilter = "turnedup" // participants with at least one commit
	FilterSearch       ListFilter = "search"   // free-text over username and handles
)

// ListOptions describes one page of an application listing. Page is 1-based.
type ListOptions struct {
	Filter ListFilter
	Search string // used with FilterSearch; whitespace-separated terms
	Page   int
}

type ApplicationRepository interface {
	Create(ctx context.Context, app *model.Application) error
	GetByID(ctx context.Context, id string) (*model.Application, error)
	GetByGitHubID(ctx context.Context, ghID int64) (*model.Application, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, opts ListOptions) ([]model.Application, error)
}

type TimeEntryRepository interface {
	GetByApplication(ctx context.Context, appID string) (*model.TimeEntry, error)
	Upsert(ctx context.Context, entry *model.TimeEntry) error
	// DeleteByApplication removes the entry if present; deleting an absent
	// entry is a no-op, which keeps the removal task idempotent.
	DeleteByApplication(ctx context.Context, appID string) error
}

type CommitRepository interface {
	Add(ctx context.Context, commit *model.Commit) error
	CountByApplication(ctx context.Context, appID string) (int, error)
}

// RepoActionRepository is the idempotent ledger of actions already performed
// against external repositories.
type RepoActionRepository interface {
	IsComplete(ctx context.Context, action, repo string) (bool, error)
	SetComplete(ctx context.Context, action, repo string) error
	SetCompleteBulk(ctx context.Context, action string, repos []string) error
	ReposWithAction(ctx context.Context, action string) ([]string, error)
}
