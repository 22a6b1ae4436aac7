package sqlite

import (
	"context"
	"testing"
)

func TestRepoAction_SetCompleteIdempotent(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	if err := db.SetComplete(ctx, "grant-access", "repoA"); err != nil {
		t.Fatalf("SetComplete() error = %v", err)
	}
	// Second call must not error and must not change observable state.
	if err := db.SetComplete(ctx, "grant-access", "repoA"); err != nil {
		t.Fatalf("second SetComplete() error = %v", err)
	}

	complete, err := db.IsComplete(ctx, "grant-access", "repoA")
	if err != nil {
		t.Fatalf("IsComplete() error = %v", err)
	}
	if !complete {
		t.Error("IsComplete() = false, want true")
	}

	var rows int
	if err := db.conn.QueryRow(`SELECT COUNT(*) FROM repo_actions`).Scan(&rows); err != nil {
		t.Fatalf("counting ledger rows: %v", err)
	}
	if rows != 1 {
		t.Errorf("ledger has %d rows, want 1", rows)
	}
}

func TestRepoAction_IsCompleteDistinguishesPairs(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	if err := db.SetComplete(ctx, "grant-access", "repoA"); err != nil {
		t.Fatalf("SetComplete() error = %v", err)
	}

	for _, tc := range []struct {
		action, repo string
		want         bool
	}{
		{"grant-access", "repoA", true},
		{"grant-access", "repoB", false},
		{"create-repo", "repoA", false},
	} {
		got, err := db.IsComplete(ctx, tc.action, tc.repo)
		if err != nil {
			t.Fatalf("IsComplete(%s, %s) error = %v", tc.action, tc.repo, err)
		}
		if got != tc.want {
			t.Errorf("IsComplete(%s, %s) = %v, want %v", tc.action, tc.repo, got, tc.want)
		}
	}
}

func TestRepoAction_SetCompleteBulkDeduplicates(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	// repoB is already in the ledger; the bulk insert must skip it.
	if err := db.SetComplete(ctx, "create-repo", "repoB"); err != nil {
		t.Fatalf("SetComplete() error = %v", err)
	}

	err := db.SetCompleteBulk(ctx, "create-repo", []string{"repoA", "repoB", "repoC"})
	if err != nil {
		t.Fatalf("SetCompleteBulk() error = %v", err)
	}

	repos, err := db.ReposWithAction(ctx, "create-repo")
	if err != nil {
		t.Fatalf("ReposWithAction() error = %v", err)
	}
	want := []string{"repoA", "repoB", "repoC"}
	if len(repos) != len(want) {
		t.Fatalf("ReposWithAction() = %v, want %v", repos, want)
	}
	for i := range want {
		if repos[i] != want[i] {
			t.Errorf("repos[%d] = %q, want %q", i, repos[i], want[i])
		}
	}

	var rows int
	if err := db.conn.QueryRow(
		`SELECT COUNT(*) FROM repo_actions WHERE action = ?`, "create-repo",
	).Scan(&rows); err != nil {
		t.Fatalf("counting ledger rows: %v", err)
	}
	if rows != 3 {
		t.Errorf("ledger has %d rows for create-repo, want 3", rows)
	}
}

func TestRepoAction_SetCompleteBulkEmpty(t *testing.T) {
	db := newTestDB(t)

	if err := db.SetCompleteBulk(context.Background(), "create-repo", nil); err != nil {
		t.Errorf("SetCompleteBulk(nil) error = %v", err)
	}
}

func TestRepoAction_ReposWithActionEmpty(t *testing.T) {
	db := newTestDB(t)

	repos, err := db.ReposWithAction(context.Background(), "grant-access")
	if err != nil {
		t.Fatalf("ReposWithAction() error = %v", err)
	}
	if len(repos) != 0 {
		t.Errorf("ReposWithAction() = %v, want empty", repos)
	}
}
