package sqlite

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/mwalsh/jamreg/internal/apperror"
	"github.com/mwalsh/jamreg/internal/model"
	"github.com/mwalsh/jamreg/internal/repository"
)

// newTestDB opens an in-memory database that lives for one test.
func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func createParticipant(t *testing.T, db *DB, ghID int64, username string) *model.Application {
	t.Helper()
	app := &model.Application{
		GitHubID:  ghID,
		Username:  username,
		IsJudge:   false,
		Emails:    []string{username + "@example.com"},
		DBOHandle: "dbo-" + username,
	}
	if err := db.Create(context.Background(), app); err != nil {
		t.Fatalf("failed to create test application: %v", err)
	}
	return app
}

func createJudge(t *testing.T, db *DB, ghID int64, username string) *model.Application {
	t.Helper()
	app := &model.Application{
		GitHubID:     ghID,
		Username:     username,
		IsJudge:      true,
		Emails:       []string{username + "@example.com"},
		DBOHandle:    "dbo-" + username,
		IRCHandle:    "irc-" + username,
		GameHandle:   username,
		ContactEmail: username + "@gmail.com",
	}
	if err := db.Create(context.Background(), app); err != nil {
		t.Fatalf("failed to create test judge: %v", err)
	}
	return app
}

func TestCreate_Roundtrip(t *testing.T) {
	db := newTestDB(t)

	stream := "streamer42"
	app := &model.Application{
		GitHubID:     1001,
		Username:     "alice",
		Emails:       []string{"alice@example.com", "a@other.org"},
		DBOHandle:    "team42",
		StreamHandle: &stream,
	}
	if err := db.Create(context.Background(), app); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if app.ID == "" {
		t.Error("Create() did not set app.ID")
	}
	if app.CreatedAt.IsZero() {
		t.Error("Create() did not set app.CreatedAt")
	}

	found, err := db.GetByID(context.Background(), app.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if found.Username != "alice" || found.DBOHandle != "team42" {
		t.Errorf("roundtrip mismatch: %+v", found)
	}
	if len(found.Emails) != 2 || found.Emails[0] != "alice@example.com" {
		t.Errorf("Emails = %v", found.Emails)
	}
	if found.StreamHandle == nil || *found.StreamHandle != "streamer42" {
		t.Errorf("StreamHandle = %v, want streamer42", found.StreamHandle)
	}
}

func TestCreate_StreamHandleSentinel(t *testing.T) {
	db := newTestDB(t)

	app := createParticipant(t, db, 1001, "alice") // no stream handle

	// The stored column must carry the explicit sentinel, never NULL or "".
	var stored string
	err := db.conn.QueryRow(
		`SELECT stream_handle FROM applications WHERE id = ?`, app.ID,
	).Scan(&stored)
	if err != nil {
		t.Fatalf("querying stored stream_handle: %v", err)
	}
	if stored != "USER_REJECTED" {
		t.Errorf("stored stream_handle = %q, want USER_REJECTED", stored)
	}

	// Reading back maps the sentinel to the null-aware domain value.
	found, err := db.GetByID(context.Background(), app.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if found.StreamHandle != nil {
		t.Errorf("StreamHandle = %v, want nil", *found.StreamHandle)
	}
}

func TestCreate_DuplicateGitHubID(t *testing.T) {
	db := newTestDB(t)

	createParticipant(t, db, 1001, "alice")

	// Same identity, other kind: the constraint is the authoritative signal.
	dupe := &model.Application{
		GitHubID:     1001,
		Username:     "alice",
		IsJudge:      true,
		DBOHandle:    "x",
		IRCHandle:    "x",
		GameHandle:   "x",
		ContactEmail: "alice@gmail.com",
	}
	err := db.Create(context.Background(), dupe)
	if err == nil {
		t.Fatal("Create() should fail on duplicate gh_id")
	}
	if !errors.Is(err, apperror.ErrDuplicateApplication) {
		t.Errorf("error = %v, want ErrDuplicateApplication", err)
	}
	if !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("error = %v, should also be a validation error", err)
	}
}

func TestGetByGitHubID(t *testing.T) {
	db := newTestDB(t)
	created := createParticipant(t, db, 1001, "alice")

	found, err := db.GetByGitHubID(context.Background(), 1001)
	if err != nil {
		t.Fatalf("GetByGitHubID() error = %v", err)
	}
	if found.ID != created.ID {
		t.Errorf("ID = %q, want %q", found.ID, created.ID)
	}

	_, err = db.GetByGitHubID(context.Background(), 9999)
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestDelete(t *testing.T) {
	db := newTestDB(t)
	created := createParticipant(t, db, 1001, "alice")

	if err := db.Delete(context.Background(), created.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	_, err := db.GetByID(context.Background(), created.ID)
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("after delete: error = %v, want ErrNotFound", err)
	}

	// A second delete observes NotFound, it does not corrupt state.
	err = db.Delete(context.Background(), created.ID)
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("second delete: error = %v, want ErrNotFound", err)
	}
}

func TestList_Filters(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	p1 := createParticipant(t, db, 1, "alpha")
	p2 := createParticipant(t, db, 2, "bravo")
	j1 := createJudge(t, db, 3, "charlie")

	// bravo is confirmed with t1+t3 and has turned up.
	entry := &model.TimeEntry{ApplicationID: p2.ID, T1: true, T3: true}
	if err := db.Upsert(ctx, entry); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	commit := &model.Commit{ApplicationID: p2.ID, SHA: "deadbeef", Message: "initial"}
	if err := db.Add(ctx, commit); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	cases := []struct {
		name   string
		opts   repository.ListOptions
		want   []string // usernames, any order
	}{
		{"all", repository.ListOptions{Filter: repository.FilterAll}, []string{"alpha", "bravo", "charlie"}},
		{"judges", repository.ListOptions{Filter: repository.FilterJudges}, []string{"charlie"}},
		{"participants", repository.ListOptions{Filter: repository.FilterParticipants}, []string{"alpha", "bravo"}},
		{"unconfirmed", repository.ListOptions{Filter: repository.FilterUnconfirmed}, []string{"alpha"}},
		{"confirmed", repository.ListOptions{Filter: repository.FilterConfirmed}, []string{"bravo"}},
		{"t1", repository.ListOptions{Filter: repository.FilterTier1}, []string{"bravo"}},
		{"t2", repository.ListOptions{Filter: repository.FilterTier2}, nil},
		{"t3", repository.ListOptions{Filter: repository.FilterTier3}, []string{"bravo"}},
		{"turnedup", repository.ListOptions{Filter: repository.FilterTurnedUp}, []string{"bravo"}},
		{"search hit", repository.ListOptions{Filter: repository.FilterSearch, Search: "irc-charlie"}, []string{"charlie"}},
		{"search multi-term", repository.ListOptions{Filter: repository.FilterSearch, Search: "dbo brav"}, []string{"bravo"}},
		{"search miss", repository.ListOptions{Filter: repository.FilterSearch, Search: "zulu"}, nil},
	}

	_ = p1
	_ = j1

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			apps, err := db.List(ctx, tc.opts)
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			got := map[string]bool{}
			for _, a := range apps {
				got[a.Username] = true
			}
			if len(got) != len(tc.want) {
				t.Fatalf("List() returned %d apps %v, want %d", len(got), got, len(tc.want))
			}
			for _, u := range tc.want {
				if !got[u] {
					t.Errorf("List() missing %q", u)
				}
			}
		})
	}
}

func TestList_SearchStreamHandle(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	stream := "glitchcaster"
	withStream := &model.Application{
		GitHubID:     1,
		Username:     "alpha",
		Emails:       []string{"alpha@example.com"},
		DBOHandle:    "dbo-alpha",
		StreamHandle: &stream,
	}
	if err := db.Create(ctx, withStream); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	createParticipant(t, db, 2, "bravo") // stored with the sentinel

	apps, err := db.List(ctx, repository.ListOptions{Filter: repository.FilterSearch, Search: "glitch"})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(apps) != 1 || apps[0].Username != "alpha" {
		t.Errorf("search by stream handle returned %v, want alpha", apps)
	}

	// The stored sentinel for a declined handle must never be searchable.
	for _, term := range []string{"USER_REJECTED", "REJECTED"} {
		apps, err := db.List(ctx, repository.ListOptions{Filter: repository.FilterSearch, Search: term})
		if err != nil {
			t.Fatalf("List(%q) error = %v", term, err)
		}
		if len(apps) != 0 {
			t.Errorf("search %q returned %v, the sentinel must not match", term, apps)
		}
	}
}

func TestList_PaginationDeterministic(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	for i := 0; i < 7; i++ {
		createParticipant(t, db, int64(100+i), fmt.Sprintf("user%02d", i))
	}

	page1, err := db.List(ctx, repository.ListOptions{Page: 1})
	if err != nil {
		t.Fatalf("List(page 1) error = %v", err)
	}
	page2, err := db.List(ctx, repository.ListOptions{Page: 2})
	if err != nil {
		t.Fatalf("List(page 2) error = %v", err)
	}

	if len(page1) != repository.PageSize {
		t.Errorf("page 1 has %d apps, want %d", len(page1), repository.PageSize)
	}
	if len(page2) != 2 {
		t.Errorf("page 2 has %d apps, want 2", len(page2))
	}

	// Newest first, and no row appears on both pages.
	if page1[0].Username != "user06" {
		t.Errorf("page1[0] = %q, want newest (user06)", page1[0].Username)
	}
	seen := map[string]bool{}
	for _, a := range append(page1, page2...) {
		if seen[a.ID] {
			t.Errorf("application %s appears on both pages", a.ID)
		}
		seen[a.ID] = true
	}

	// Same query, same order.
	again, err := db.List(ctx, repository.ListOptions{Page: 1})
	if err != nil {
		t.Fatalf("List(page 1 again) error = %v", err)
	}
	for i := range page1 {
		if again[i].ID != page1[i].ID {
			t.Fatalf("ordering not stable at index %d", i)
		}
	}
}

func TestTimeEntry_UpsertAndDelete(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	app := createParticipant(t, db, 1001, "alice")

	entry := &model.TimeEntry{ApplicationID: app.ID, T1: true}
	if err := db.Upsert(ctx, entry); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	// Upserting again flips tiers in place, it does not add a second row.
	entry2 := &model.TimeEntry{ApplicationID: app.ID, T1: true, T2: true}
	if err := db.Upsert(ctx, entry2); err != nil {
		t.Fatalf("second Upsert() error = %v", err)
	}

	found, err := db.GetByApplication(ctx, app.ID)
	if err != nil {
		t.Fatalf("GetByApplication() error = %v", err)
	}
	if !found.T1 || !found.T2 || found.T3 {
		t.Errorf("tiers = %v/%v/%v, want true/true/false", found.T1, found.T2, found.T3)
	}

	if err := db.DeleteByApplication(ctx, app.ID); err != nil {
		t.Fatalf("DeleteByApplication() error = %v", err)
	}
	if _, err := db.GetByApplication(ctx, app.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("after delete: error = %v, want ErrNotFound", err)
	}

	// Removing an absent entry is a no-op, not an error.
	if err := db.DeleteByApplication(ctx, app.ID); err != nil {
		t.Errorf("second DeleteByApplication() error = %v", err)
	}
}

func TestCommits_Count(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	app := createParticipant(t, db, 1001, "alice")

	for i := 0; i < 3; i++ {
		c := &model.Commit{ApplicationID: app.ID, SHA: fmt.Sprintf("sha%d", i)}
		if err := db.Add(ctx, c); err != nil {
			t.Fatalf("Add() error = %v", err)
		}
	}

	count, err := db.CountByApplication(ctx, app.ID)
	if err != nil {
		t.Fatalf("CountByApplication() error = %v", err)
	}
	if count != 3 {
		t.Errorf("count = %d, want 3", count)
	}
}
