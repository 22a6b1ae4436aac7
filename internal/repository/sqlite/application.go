package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/xid"
	sqlite3 "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/mwalsh/jamreg/internal/apperror"
	"github.com/mwalsh/jamreg/internal/model"
	"github.com/mwalsh/jamreg/internal/repository"
)

var _ repository.ApplicationRepository = (*DB)(nil)

// streamHandleDeclined is stored when a participant declined to provide a
// stream handle. The column is non-nullable, so the absence is explicit.
const streamHandleDeclined = "USER_REJECTED"

const applicationColumns = `id, gh_id, username, judge, emails, dbo_handle,
	stream_handle, irc_handle, game_handle, contact_email, created_at`

// Create inserts a new application. A UNIQUE violation on gh_id is reported
// as the duplicate-application validation error, so concurrent submissions
// that race past the intake pre-check still resolve to exactly one row.
func (db *DB) Create(ctx context.Context, app *model.Application) error {
	app.ID = xid.New().String()
	app.CreatedAt = time.Now().UTC()

	emails, err := json.Marshal(app.Emails)
	if err != nil {
		return fmt.Errorf("sqlite: encoding emails: %w", err)
	}

	stream := ""
	if !app.IsJudge {
		if app.StreamHandle == nil {
			stream = streamHandleDeclined
		} else {
			stream = *app.StreamHandle
		}
	}

	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO applications (id, gh_id, username, judge, emails, dbo_handle,
		 stream_handle, irc_handle, game_handle, contact_email, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		app.ID,
		app.GitHubID,
		app.Username,
		app.IsJudge,
		string(emails),
		app.DBOHandle,
		stream,
		app.IRCHandle,
		app.GameHandle,
		app.ContactEmail,
		app.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Validation(
				apperror.FieldErrors{"duplicate": "An application/registration entry already exists for this user."},
				apperror.ErrDuplicateApplication,
			)
		}
		return fmt.Errorf("sqlite: creating application: %w", err)
	}

	return nil
}

// GetByID retrieves a single application.
func (db *DB) GetByID(ctx context.Context, id string) (*model.Application, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+applicationColumns+` FROM applications WHERE id = ?`, id)

	app, err := scanApplication(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("application", id)
		}
		return nil, fmt.Errorf("sqlite: getting application %s: %w", id, err)
	}
	return app, nil
}

// GetByGitHubID retrieves the application submitted by the given GitHub
// account, if any.
func (db *DB) GetByGitHubID(ctx context.Context, ghID int64) (*model.Application, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+applicationColumns+` FROM applications WHERE gh_id = ?`, ghID)

	app, err := scanApplication(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("application", strconv.FormatInt(ghID, 10))
		}
		return nil, fmt.Errorf("sqlite: getting application by gh_id %d: %w", ghID, err)
	}
	return app, nil
}

// Delete removes an application. Associated side effects (time entry removal,
// notifications) are the caller's responsibility.
func (db *DB) Delete(ctx context.Context, id string) error {
	result, err := db.conn.ExecContext(ctx, `DELETE FROM applications WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting application %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("application", id)
	}

	return nil
}

// List returns one page of applications matching the filter, newest first.
// The (created_at, id) ordering is deterministic even when rows share a
// creation timestamp.
func (db *DB) List(ctx context.Context, opts repository.ListOptions) ([]model.Application, error) {
	where, args := listPredicate(opts)

	page := opts.Page
	if page < 1 {
		page = 1
	}
	args = append(args, repository.PageSize, (page-1)*repository.PageSize)

	query := `SELECT ` + applicationColumns + ` FROM applications a`
	if where != "" {
		query += ` WHERE ` + where
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing applications: %w", err)
	}
	defer rows.Close()

	apps := make([]model.Application, 0, repository.PageSize)
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning application row: %w", err)
		}
		apps = append(apps, *app)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating applications: %w", err)
	}

	return apps, nil
}

// listPredicate translates a ListFilter into a WHERE clause over the
// applications table (aliased "a") plus its bind arguments.
func listPredicate(opts repository.ListOptions) (string, []any) {
	hasEntry := `EXISTS (SELECT 1 FROM time_entries te WHERE te.application_id = a.id)`

	switch opts.Filter {
	case repository.FilterJudges:
		return `a.judge = 1`, nil
	case repository.FilterParticipants:
		return `a.judge = 0`, nil
	case repository.FilterUnconfirmed:
		return `a.judge = 0 AND NOT ` + hasEntry, nil
	case repository.FilterConfirmed:
		return `a.judge = 0 AND ` + hasEntry, nil
	case repository.FilterTier1, repository.FilterTier2, repository.FilterTier3:
		tier := string(opts.Filter) // "t1" | "t2" | "t3", never user input
		return `EXISTS (SELECT 1 FROM time_entries te
			WHERE te.application_id = a.id AND te.` + tier + ` = 1)`, nil
	case repository.FilterTurnedUp:
		return `a.judge = 0 AND EXISTS (SELECT 1 FROM commits c WHERE c.application_id = a.id)`, nil
	case repository.FilterSearch:
		var clauses []string
		var args []any
		for _, term := range strings.Fields(opts.Search) {
			pattern := "%" + term + "%"
			// The stream handle is searchable too, but the stored sentinel
			// for "declined to provide" must never match a term.
			clauses = append(clauses,
				`(a.username LIKE ? OR a.dbo_handle LIKE ? OR a.irc_handle LIKE ? OR a.game_handle LIKE ?
				 OR (a.stream_handle != '`+streamHandleDeclined+`' AND a.stream_handle LIKE ?))`)
			args = append(args, pattern, pattern, pattern, pattern, pattern)
		}
		if len(clauses) == 0 {
			return "", nil
		}
		return strings.Join(clauses, " AND "), args
	default:
		return "", nil
	}
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanApplication(s scanner) (*model.Application, error) {
	var (
		app    model.Application
		emails string
		stream string
	)

	err := s.Scan(
		&app.ID,
		&app.GitHubID,
		&app.Username,
		&app.IsJudge,
		&emails,
		&app.DBOHandle,
		&stream,
		&app.IRCHandle,
		&app.GameHandle,
		&app.ContactEmail,
		&app.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(emails), &app.Emails); err != nil {
		return nil, fmt.Errorf("decoding emails: %w", err)
	}

	// The sentinel (and the empty string on judge rows) maps back to
	// "declined to provide" so domain logic stays null-aware.
	if stream != "" && stream != streamHandleDeclined {
		app.StreamHandle = &stream
	}

	return &app, nil
}

func isUniqueViolation(err error) bool {
	var se *sqlite3.Error
	if errors.As(err, &se) {
		code := se.Code()
		return code == sqlite3lib.SQLITE_CONSTRAINT_UNIQUE ||
			code == sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return false
}
