// Package notify delivers decision messages to applicants. The Notifier
// interface hides the delivery channel so SMTP or a third-party mailer can
// replace the console implementation without touching the queue worker.
package notify

import (
	"context"
	"log/slog"
)

// Notifier sends a rendered message to a single recipient.
type Notifier interface {
	Send(ctx context.Context, recipient, subject, body string) error
}

// ConsoleNotifier logs messages instead of delivering them. Default in
// development.
type ConsoleNotifier struct {
	logger *slog.Logger
}

func NewConsoleNotifier(logger *slog.Logger) *ConsoleNotifier {
	return &ConsoleNotifier{logger: logger}
}

func (c *ConsoleNotifier) Send(ctx context.Context, recipient, subject, body string) error {
	c.logger.InfoContext(ctx, "notification sent",
		slog.String("recipient", recipient),
		slog.String("subject", subject),
		slog.String("body", body))
	return nil
}

var _ Notifier = (*ConsoleNotifier)(nil)

// ConsoleEntryRemover stands in for the external scheduling system that holds
// participants' slot reservations. It logs the retraction; a real integration
// implements the same method against the scheduler's API. Retracting a
// reservation that no longer exists must succeed, the removal task can be
// delivered more than once.
type ConsoleEntryRemover struct {
	logger *slog.Logger
}

func NewConsoleEntryRemover(logger *slog.Logger) *ConsoleEntryRemover {
	return &ConsoleEntryRemover{logger: logger}
}

func (c *ConsoleEntryRemover) RemoveEntry(ctx context.Context, username string, t1, t2, t3 bool) error {
	c.logger.InfoContext(ctx, "time entry retracted from scheduler",
		slog.String("username", username),
		slog.Bool("t1", t1), slog.Bool("t2", t2), slog.Bool("t3", t3))
	return nil
}
