// Package notify delivers engine alerts (executions, partial fills, risk
// breaches, daily summaries) to operator channels. Senders render a typed
// Event in their channel's markup; the Notifier filters by event type so
// operators only receive the alerts they opted into.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// Sender is one delivery channel for engine events.
type Sender interface {
	Send(ctx context.Context, ev Event) error
	// Name identifies the channel in logs and combined errors.
	Name() string
}

// Notifier fans events out to all senders, subject to the configured event
// filter. An empty filter allows every event type.
type Notifier struct {
	senders []Sender
	allowed map[string]bool
	logger  *slog.Logger
}

// NewNotifier creates a Notifier over the given senders. events lists the
// event types to forward; empty means all.
func NewNotifier(senders []Sender, events []string, logger *slog.Logger) *Notifier {
	allowed := make(map[string]bool, len(events))
	for _, e := range events {
		allowed[strings.TrimSpace(e)] = true
	}
	return &Notifier{
		senders: senders,
		allowed: allowed,
		logger:  logger.With(slog.String("component", "notifier")),
	}
}

// Notify delivers the event to every sender whose filter admits it. A failed
// sender never blocks the others; failures come back joined so the caller
// sees every channel that missed the alert.
func (n *Notifier) Notify(ctx context.Context, ev Event) error {
	if len(n.allowed) > 0 && !n.allowed[ev.Type] {
		n.logger.DebugContext(ctx, "event filtered out",
			slog.String("event", ev.Type))
		return nil
	}
	if len(n.senders) == 0 {
		return nil
	}

	var errs []error
	for _, s := range n.senders {
		if err := s.Send(ctx, ev); err != nil {
			n.logger.ErrorContext(ctx, "sender failed",
				slog.String("sender", s.Name()),
				slog.String("event", ev.Type),
				slog.String("error", err.Error()))
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
			continue
		}
		n.logger.DebugContext(ctx, "event delivered",
			slog.String("sender", s.Name()),
			slog.String("event", ev.Type),
			slog.String("severity", ev.Severity.String()))
	}

	if len(errs) > 0 {
		return fmt.Errorf("notify: %w", errors.Join(errs...))
	}
	return nil
}
