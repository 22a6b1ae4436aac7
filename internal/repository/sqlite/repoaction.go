package sqlite

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"

	"github.com/mwalsh/jamreg/internal/repository"
)

var _ repository.RepoActionRepository = (*DB)(nil)

// IsComplete reports whether the action has already been recorded against the
// repository. Callers check this before performing an external mutation.
func (db *DB) IsComplete(ctx context.Context, action, repo string) (bool, error) {
	var count int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM repo_actions WHERE action = ? AND repo_name = ?`,
		action, repo,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("sqlite: checking repo action %s/%s: %w", action, repo, err)
	}
	return count > 0, nil
}

// SetComplete records that the action has been performed against the
// repository. Recording the same pair twice is a no-op: the UNIQUE(action,
// repo_name) constraint plus OR IGNORE keeps the ledger to one fact per pair.
func (db *DB) SetComplete(ctx context.Context, action, repo string) error {
	_, err := db.conn.ExecContext(ctx,
		`INSERT OR IGNORE INTO repo_actions (id, repo_name, action, created_at)
		 VALUES (?, ?, ?, ?)`,
		xid.New().String(), repo, action, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("sqlite: recording repo action %s/%s: %w", action, repo, err)
	}
	return nil
}

// SetCompleteBulk records the action against many repositories in a single
// statement. It carries the same idempotency as SetComplete: already-recorded
// pairs are ignored, not duplicated.
func (db *DB) SetCompleteBulk(ctx context.Context, action string, repos []string) error {
	if len(repos) == 0 {
		return nil
	}

	now := time.Now().UTC()
	placeholders := make([]string, 0, len(repos))
	args := make([]any, 0, len(repos)*4)
	for _, repo := range repos {
		placeholders = append(placeholders, "(?, ?, ?, ?)")
		args = append(args, xid.New().String(), repo, action, now)
	}

	query := `INSERT OR IGNORE INTO repo_actions (id, repo_name, action, created_at) VALUES ` +
		strings.Join(placeholders, ", ")

	if _, err := db.conn.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("sqlite: bulk recording repo action %s: %w", action, err)
	}
	return nil
}

// ReposWithAction returns every repository the action has been recorded for.
func (db *DB) ReposWithAction(ctx context.Context, action string) ([]string, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT repo_name FROM repo_actions WHERE action = ? ORDER BY repo_name`, action)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing repos for action %s: %w", action, err)
	}
	defer rows.Close()

	var repos []string
	for rows.Next() {
		var repo string
		if err := rows.Scan(&repo); err != nil {
			return nil, fmt.Errorf("sqlite: scanning repo action row: %w", err)
		}
		repos = append(repos, repo)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating repo actions: %w", err)
	}

	return repos, nil
}
