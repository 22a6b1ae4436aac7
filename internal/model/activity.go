package model

import "time"

// TimeEntry records which participation tiers an application has reached.
// At most one exists per application.
type TimeEntry struct {
	ID            string    `json:"id"            db:"id"`
	ApplicationID string    `json:"applicationId" db:"application_id"`
	T1            bool      `json:"t1"            db:"t1"`
	T2            bool      `json:"t2"            db:"t2"`
	T3            bool      `json:"t3"            db:"t3"`
	CreatedAt     time.Time `json:"createdAt"     db:"created_at"`
}

// Commit is evidence of activity pushed to a participant's submission
// repository. An application "turned up" when it has at least one.
type Commit struct {
	ID            string    `json:"id"            db:"id"`
	ApplicationID string    `json:"applicationId" db:"application_id"`
	SHA           string    `json:"sha"           db:"sha"`
	Message       string    `json:"message"       db:"message"`
	CommittedAt   time.Time `json:"committedAt"   db:"committed_at"`
}

// RepoAction is one append-only ledger fact: the named action has been
// performed against the named repository. (action, repo_name) is unique in
// storage, which is what makes re-recording a no-op.
type RepoAction struct {
	ID        string    `json:"id"        db:"id"`
	RepoName  string    `json:"repoName"  db:"repo_name"`
	Action    string    `json:"action"    db:"action"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}
