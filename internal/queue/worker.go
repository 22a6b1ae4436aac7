package queue

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mwalsh/jamreg/internal/notify"
)

// EntryRemover retracts a slot reservation from the external scheduling
// system. Removing a reservation that no longer exists must succeed.
type EntryRemover interface {
	RemoveEntry(ctx context.Context, username string, t1, t2, t3 bool) error
}

// Dispatcher routes tasks to their handlers. Both the in-process queue and
// the AMQP consumer feed it.
type Dispatcher struct {
	notifier notify.Notifier
	remover  EntryRemover
	logger   *slog.Logger
}

func NewDispatcher(notifier notify.Notifier, remover EntryRemover, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{notifier: notifier, remover: remover, logger: logger}
}

// Handle processes one task. An error means the task should be redelivered.
func (d *Dispatcher) Handle(ctx context.Context, task Task) error {
	switch task.Kind {
	case KindDecisionEmail:
		email, err := Decode[DecisionEmail](task.Payload)
		if err != nil {
			return err
		}
		subject, body, err := notify.RenderDecision(email.Template, email.Username)
		if err != nil {
			return err
		}
		if err := d.notifier.Send(ctx, email.Recipient, subject, body); err != nil {
			return fmt.Errorf("sending decision email: %w", err)
		}
		d.logger.InfoContext(ctx, "decision email sent",
			slog.String("template", email.Template),
			slog.String("username", email.Username))
		return nil

	case KindTimeEntryRemoval:
		removal, err := Decode[TimeEntryRemoval](task.Payload)
		if err != nil {
			return err
		}
		if err := d.remover.RemoveEntry(ctx, removal.Username, removal.T1, removal.T2, removal.T3); err != nil {
			return fmt.Errorf("removing time entry: %w", err)
		}
		d.logger.InfoContext(ctx, "time entry removal applied",
			slog.String("username", removal.Username))
		return nil

	default:
		// Unknown kinds are dropped, not redelivered; requeueing them would
		// loop forever.
		d.logger.WarnContext(ctx, "skipping task of unknown kind", slog.String("kind", task.Kind))
		return nil
	}
}
