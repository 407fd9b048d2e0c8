package services

import (
	"context"
	"errors"
	"log/slog"

	"fintrack/internal/core"
	"fintrack/internal/log"
)

// ChangeNotifier is told about every successful write so that dependent
// views can be refreshed.
type ChangeNotifier interface {
	Notify(ctx context.Context, c core.Change) error
}

// NotifierFunc adapts a function to ChangeNotifier.
type NotifierFunc func(ctx context.Context, c core.Change) error

func (f NotifierFunc) Notify(ctx context.Context, c core.Change) error { return f(ctx, c) }

// Notifiers fans a change out to every notifier, nil entries are skipped.
type Notifiers []ChangeNotifier

func (n Notifiers) Notify(ctx context.Context, c core.Change) error {
	var errs []error
	for _, notifier := range n {
		if notifier == nil {
			continue
		}
		if err := notifier.Notify(ctx, c); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// notify never fails the caller: the write already happened.
func notify(ctx context.Context, n ChangeNotifier, c core.Change) {
	if n == nil {
		return
	}
	if err := n.Notify(ctx, c); err != nil {
		month := ""
		if c.Month != nil {
			month = c.Month.String()
		}
		fields := log.NewFields().
			WithChange(string(c.Entity), string(c.Action), c.ID, month).
			WithOperation(log.OpNotify).
			WithError(err)
		slog.ErrorContext(ctx, "Failed to publish change notification", fields.ToSlice()...)
	}
}

func monthPtr(m core.YearMonth) *core.YearMonth {
	return &m
}
