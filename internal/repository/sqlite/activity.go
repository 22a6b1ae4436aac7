package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/mwalsh/jamreg/internal/apperror"
	"github.com/mwalsh/jamreg/internal/model"
	"github.com/mwalsh/jamreg/internal/repository"
)

var (
	_ repository.TimeEntryRepository = (*DB)(nil)
	_ repository.CommitRepository    = (*DB)(nil)
)

// GetByApplication returns the time entry for an application, or NotFound.
func (db *DB) GetByApplication(ctx context.Context, appID string) (*model.TimeEntry, error) {
	var entry model.TimeEntry

	err := db.conn.QueryRowContext(ctx,
		`SELECT id, application_id, t1, t2, t3, created_at
		 FROM time_entries WHERE application_id = ?`,
		appID,
	).Scan(&entry.ID, &entry.ApplicationID, &entry.T1, &entry.T2, &entry.T3, &entry.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("time entry", appID)
		}
		return nil, fmt.Errorf("sqlite: getting time entry for %s: %w", appID, err)
	}

	return &entry, nil
}

// Upsert creates or replaces the single time entry for an application.
func (db *DB) Upsert(ctx context.Context, entry *model.TimeEntry) error {
	if entry.ID == "" {
		entry.ID = xid.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO time_entries (id, application_id, t1, t2, t3, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(application_id) DO UPDATE SET t1 = excluded.t1, t2 = excluded.t2, t3 = excluded.t3`,
		entry.ID,
		entry.ApplicationID,
		entry.T1,
		entry.T2,
		entry.T3,
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: upserting time entry for %s: %w", entry.ApplicationID, err)
	}

	return nil
}

// DeleteByApplication removes the time entry if one exists. Absence is not an
// error: the removal flow must be safe to run twice.
func (db *DB) DeleteByApplication(ctx context.Context, appID string) error {
	_, err := db.conn.ExecContext(ctx,
		`DELETE FROM time_entries WHERE application_id = ?`, appID)
	if err != nil {
		return fmt.Errorf("sqlite: deleting time entry for %s: %w", appID, err)
	}
	return nil
}

// Add records one commit against an application.
func (db *DB) Add(ctx context.Context, commit *model.Commit) error {
	commit.ID = xid.New().String()
	if commit.CommittedAt.IsZero() {
		commit.CommittedAt = time.Now().UTC()
	}

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO commits (id, application_id, sha, message, committed_at)
		 VALUES (?, ?, ?, ?, ?)`,
		commit.ID,
		commit.ApplicationID,
		commit.SHA,
		commit.Message,
		commit.CommittedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: adding commit for %s: %w", commit.ApplicationID, err)
	}

	return nil
}

// CountByApplication returns how many commits an application has recorded.
func (db *DB) CountByApplication(ctx context.Context, appID string) (int, error) {
	var count int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM commits WHERE application_id = ?`, appID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("sqlite: counting commits for %s: %w", appID, err)
	}
	return count, nil
}
