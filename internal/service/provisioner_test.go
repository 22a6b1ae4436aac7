package service

import (
	"context"
	"errors"
	"testing"
)

func newLedgerFixture() (*LedgerService, *mockActionRepo) {
	actions := newMockActionRepo()
	return NewLedgerService(actions, testLogger()), actions
}

func TestLedger_RequiresActionAndRepo(t *testing.T) {
	ledger, _ := newLedgerFixture()
	ctx := context.Background()

	if _, err := ledger.IsComplete(ctx, "", "entry-alice"); err == nil {
		t.Error("IsComplete() should reject an empty action")
	}
	if err := ledger.SetComplete(ctx, "create-repo", "  "); err == nil {
		t.Error("SetComplete() should reject an empty repo")
	}
	if _, err := ledger.ReposWithAction(ctx, ""); err == nil {
		t.Error("ReposWithAction() should reject an empty action")
	}
}

func TestLedger_BulkSkipsBlanks(t *testing.T) {
	ledger, actions := newLedgerFixture()
	ctx := context.Background()

	if err := ledger.SetCompleteBulk(ctx, "create-repo", []string{"entry-alice", " ", "entry-bob"}); err != nil {
		t.Fatalf("SetCompleteBulk() error = %v", err)
	}
	if len(actions.done) != 2 {
		t.Errorf("recorded = %d, want 2", len(actions.done))
	}

	// All-blank input is a no-op, not an error.
	if err := ledger.SetCompleteBulk(ctx, "create-repo", []string{""}); err != nil {
		t.Errorf("SetCompleteBulk() error = %v", err)
	}
}

func TestProvision_RunsBothSteps(t *testing.T) {
	ledger, _ := newLedgerFixture()
	mutator := newMockMutator()
	p := NewProvisioner(ledger, mutator, testLogger())

	if err := p.Provision(context.Background(), []string{"alice"}); err != nil {
		t.Fatalf("Provision() error = %v", err)
	}

	if len(mutator.calls) != 2 {
		t.Fatalf("calls = %v, want create then collaborator", mutator.calls)
	}
	if mutator.calls[0].op != "create" || mutator.calls[0].repo != "entry-alice" {
		t.Errorf("first call = %+v", mutator.calls[0])
	}
	if mutator.calls[1].op != "collaborator" || mutator.calls[1].username != "alice" {
		t.Errorf("second call = %+v", mutator.calls[1])
	}

	for _, action := range []string{ActionCreateRepo, ActionGrantAccess} {
		done, err := ledger.IsComplete(context.Background(), action, "entry-alice")
		if err != nil {
			t.Fatalf("IsComplete() error = %v", err)
		}
		if !done {
			t.Errorf("%s not recorded in the ledger", action)
		}
	}
}

func TestProvision_SkipsCompletedSteps(t *testing.T) {
	ledger, _ := newLedgerFixture()
	if err := ledger.SetComplete(context.Background(), ActionCreateRepo, "entry-alice"); err != nil {
		t.Fatalf("SetComplete() error = %v", err)
	}

	mutator := newMockMutator()
	p := NewProvisioner(ledger, mutator, testLogger())

	if err := p.Provision(context.Background(), []string{"alice"}); err != nil {
		t.Fatalf("Provision() error = %v", err)
	}

	if len(mutator.calls) != 1 || mutator.calls[0].op != "collaborator" {
		t.Errorf("calls = %v, the completed create step must not repeat", mutator.calls)
	}
}

func TestProvision_ContinuesPastFailures(t *testing.T) {
	ledger, _ := newLedgerFixture()
	mutator := newMockMutator()
	mutator.createErrs["entry-alice"] = errors.New("api rate limited")
	p := NewProvisioner(ledger, mutator, testLogger())

	err := p.Provision(context.Background(), []string{"alice", "bob"})
	if err == nil {
		t.Fatal("Provision() should surface the failed user")
	}

	// bob is fully provisioned despite alice failing.
	done, lerr := ledger.IsComplete(context.Background(), ActionGrantAccess, "entry-bob")
	if lerr != nil {
		t.Fatalf("IsComplete() error = %v", lerr)
	}
	if !done {
		t.Error("bob should be provisioned even though alice failed")
	}

	// alice's failed step stays incomplete, so a re-run retries it.
	done, lerr = ledger.IsComplete(context.Background(), ActionCreateRepo, "entry-alice")
	if lerr != nil {
		t.Fatalf("IsComplete() error = %v", lerr)
	}
	if done {
		t.Error("failed step must not be recorded as complete")
	}
}

func TestProvision_RerunAfterFailureRetriesOnlyMissing(t *testing.T) {
	ledger, _ := newLedgerFixture()
	mutator := newMockMutator()
	mutator.createErrs["entry-alice"] = errors.New("api rate limited")
	p := NewProvisioner(ledger, mutator, testLogger())

	_ = p.Provision(context.Background(), []string{"alice"})

	// The API recovers; the re-run performs both of alice's steps.
	delete(mutator.createErrs, "entry-alice")
	if err := p.Provision(context.Background(), []string{"alice"}); err != nil {
		t.Fatalf("re-run error = %v", err)
	}

	if len(mutator.calls) != 2 {
		t.Errorf("calls = %v, want exactly create then collaborator across both runs", mutator.calls)
	}
}
