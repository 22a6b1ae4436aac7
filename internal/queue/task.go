// Package queue carries the deferred side effects of review decisions: the
// decision email and the external time-entry removal. Delivery is
// at-least-once with no ordering between tasks, so every handler must be
// idempotent.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
)

// Task kinds double as AMQP routing keys.
const (
	KindDecisionEmail    = "task.decision_email"
	KindTimeEntryRemoval = "task.remove_time_entry"
)

// Task is a kind plus an opaque JSON payload.
type Task struct {
	Kind    string          `json:"kind"`
	Payload json.RawMessage `json:"payload"`
}

// DecisionEmail asks the worker to send an accept/decline email.
type DecisionEmail struct {
	Recipient string `json:"recipient"`
	Template  string `json:"template"`
	Username  string `json:"username"`
}

// TimeEntryRemoval asks the worker to retract a participant's slot
// reservation from the external scheduling system.
type TimeEntryRemoval struct {
	Username string `json:"username"`
	T1       bool   `json:"t1"`
	T2       bool   `json:"t2"`
	T3       bool   `json:"t3"`
}

// Queue accepts tasks for asynchronous processing.
type Queue interface {
	Enqueue(ctx context.Context, task Task) error
}

// NewDecisionEmailTask builds a decision-email task.
func NewDecisionEmailTask(recipient, template, username string) (Task, error) {
	return newTask(KindDecisionEmail, DecisionEmail{
		Recipient: recipient,
		Template:  template,
		Username:  username,
	})
}

// NewTimeEntryRemovalTask builds a time-entry-removal task.
func NewTimeEntryRemovalTask(username string, t1, t2, t3 bool) (Task, error) {
	return newTask(KindTimeEntryRemoval, TimeEntryRemoval{
		Username: username,
		T1:       t1,
		T2:       t2,
		T3:       t3,
	})
}

func newTask(kind string, payload any) (Task, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return Task{}, fmt.Errorf("queue: encoding %s payload: %w", kind, err)
	}
	return Task{Kind: kind, Payload: b}, nil
}

// Decode unmarshals a task payload into its typed form.
func Decode[T any](payload json.RawMessage) (T, error) {
	var t T
	if err := json.Unmarshal(payload, &t); err != nil {
		var zero T
		return zero, fmt.Errorf("queue: decoding payload: %w", err)
	}
	return t, nil
}
