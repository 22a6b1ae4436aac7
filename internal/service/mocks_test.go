package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/mwalsh/jamreg/internal/apperror"
	"github.com/mwalsh/jamreg/internal/model"
	"github.com/mwalsh/jamreg/internal/queue"
	"github.com/mwalsh/jamreg/internal/repository"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// opLog records the order of side-effecting calls across mocks so tests can
// assert ordering between enqueue and delete.
type opLog struct {
	mu  sync.Mutex
	ops []string
}

func (l *opLog) record(op string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ops = append(l.ops, op)
}

func (l *opLog) all() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.ops...)
}

type mockAppRepo struct {
	log    *opLog
	nextID int
	apps   map[string]*model.Application

	// createErr, when set, is returned by Create after all lookups
	// succeeded. Simulates losing the uniqueness race to a concurrent
	// insert.
	createErr error
}

func newMockAppRepo(log *opLog) *mockAppRepo {
	return &mockAppRepo{log: log, apps: make(map[string]*model.Application)}
}

func (m *mockAppRepo) Create(ctx context.Context, app *model.Application) error {
	if m.createErr != nil {
		return m.createErr
	}
	for _, existing := range m.apps {
		if existing.GitHubID == app.GitHubID {
			return apperror.Validation(
				apperror.FieldErrors{"duplicate": "An application/registration entry already exists for this user."},
				apperror.ErrDuplicateApplication,
			)
		}
	}
	m.nextID++
	app.ID = fmt.Sprintf("app-%d", m.nextID)
	m.apps[app.ID] = app
	return nil
}

func (m *mockAppRepo) GetByID(ctx context.Context, id string) (*model.Application, error) {
	app, ok := m.apps[id]
	if !ok {
		return nil, apperror.NotFound("application", id)
	}
	return app, nil
}

func (m *mockAppRepo) GetByGitHubID(ctx context.Context, ghID int64) (*model.Application, error) {
	for _, app := range m.apps {
		if app.GitHubID == ghID {
			return app, nil
		}
	}
	return nil, apperror.NotFound("application", "gh")
}

func (m *mockAppRepo) Delete(ctx context.Context, id string) error {
	if _, ok := m.apps[id]; !ok {
		return apperror.NotFound("application", id)
	}
	delete(m.apps, id)
	if m.log != nil {
		m.log.record("delete application " + id)
	}
	return nil
}

func (m *mockAppRepo) List(ctx context.Context, opts repository.ListOptions) ([]model.Application, error) {
	out := make([]model.Application, 0, len(m.apps))
	for _, app := range m.apps {
		out = append(out, *app)
	}
	return out, nil
}

type mockEntryRepo struct {
	log     *opLog
	entries map[string]*model.TimeEntry // keyed by application ID
}

func newMockEntryRepo(log *opLog) *mockEntryRepo {
	return &mockEntryRepo{log: log, entries: make(map[string]*model.TimeEntry)}
}

func (m *mockEntryRepo) GetByApplication(ctx context.Context, appID string) (*model.TimeEntry, error) {
	entry, ok := m.entries[appID]
	if !ok {
		return nil, apperror.NotFound("time entry", appID)
	}
	return entry, nil
}

func (m *mockEntryRepo) Upsert(ctx context.Context, entry *model.TimeEntry) error {
	m.entries[entry.ApplicationID] = entry
	return nil
}

func (m *mockEntryRepo) DeleteByApplication(ctx context.Context, appID string) error {
	delete(m.entries, appID)
	if m.log != nil {
		m.log.record("delete entry " + appID)
	}
	return nil
}

type mockCommitRepo struct {
	commits []model.Commit
}

func (m *mockCommitRepo) Add(ctx context.Context, commit *model.Commit) error {
	m.commits = append(m.commits, *commit)
	return nil
}

func (m *mockCommitRepo) CountByApplication(ctx context.Context, appID string) (int, error) {
	n := 0
	for _, c := range m.commits {
		if c.ApplicationID == appID {
			n++
		}
	}
	return n, nil
}

type mockQueue struct {
	log   *opLog
	tasks []queue.Task
}

func newMockQueue(log *opLog) *mockQueue {
	return &mockQueue{log: log}
}

func (m *mockQueue) Enqueue(ctx context.Context, task queue.Task) error {
	m.tasks = append(m.tasks, task)
	if m.log != nil {
		m.log.record("enqueue " + task.Kind)
	}
	return nil
}

type mockEligibility struct {
	count int
	err   error
}

func (m *mockEligibility) RepositoryCount(ctx context.Context, username string) (int, error) {
	return m.count, m.err
}

type mockActionRepo struct {
	done map[string]bool // action + "\x00" + repo
}

func newMockActionRepo() *mockActionRepo {
	return &mockActionRepo{done: make(map[string]bool)}
}

func (m *mockActionRepo) key(action, repo string) string { return action + "\x00" + repo }

func (m *mockActionRepo) IsComplete(ctx context.Context, action, repo string) (bool, error) {
	return m.done[m.key(action, repo)], nil
}

func (m *mockActionRepo) SetComplete(ctx context.Context, action, repo string) error {
	m.done[m.key(action, repo)] = true
	return nil
}

func (m *mockActionRepo) SetCompleteBulk(ctx context.Context, action string, repos []string) error {
	for _, repo := range repos {
		m.done[m.key(action, repo)] = true
	}
	return nil
}

func (m *mockActionRepo) ReposWithAction(ctx context.Context, action string) ([]string, error) {
	var out []string
	for k, ok := range m.done {
		if ok && len(k) > len(action) && k[:len(action)] == action {
			out = append(out, k[len(action)+1:])
		}
	}
	return out, nil
}

type mutatorCall struct {
	op       string
	repo     string
	username string
}

type mockMutator struct {
	calls      []mutatorCall
	createErrs map[string]error // repo name -> error
}

func newMockMutator() *mockMutator {
	return &mockMutator{createErrs: make(map[string]error)}
}

func (m *mockMutator) CreateRepo(ctx context.Context, name string) error {
	if err := m.createErrs[name]; err != nil {
		return err
	}
	m.calls = append(m.calls, mutatorCall{op: "create", repo: name})
	return nil
}

func (m *mockMutator) AddCollaborator(ctx context.Context, repo, username string) error {
	m.calls = append(m.calls, mutatorCall{op: "collaborator", repo: repo, username: username})
	return nil
}
