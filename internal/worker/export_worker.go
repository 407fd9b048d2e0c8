package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"fintrack/internal/core"
	"fintrack/internal/reports"
	"fintrack/internal/sheets"
)

const maxParallelExports = 4

type (
	// BudgetReporter is the slice of reports.Engine the worker needs.
	BudgetReporter interface {
		BudgetVsActual(ctx context.Context, month *core.YearMonth) ([]reports.BudgetActual, error)
		CurrentMonth() core.YearMonth
	}

	// ChangeSource delivers change notifications until ctx ends.
	ChangeSource interface {
		ConsumeChanges(ctx context.Context, handler func(context.Context, core.Change) error) error
	}
)

// ExportWorker keeps the exported budget-vs-actual tables in step with the
// store. Change messages trigger a re-export of the affected month; a
// periodic pass re-exports the current month in case messages were lost.
type ExportWorker struct {
	reporter BudgetReporter
	exporter sheets.ReportExporter
	interval time.Duration
}

func NewExportWorker(reporter BudgetReporter, exporter sheets.ReportExporter, interval time.Duration) *ExportWorker {
	return &ExportWorker{reporter: reporter, exporter: exporter, interval: interval}
}

// HandleChange re-exports the month touched by c. Changes without a month
// refresh the current month. Category changes never alter a report, since
// transactions and budgets reference categories by name.
func (w *ExportWorker) HandleChange(ctx context.Context, c core.Change) error {
	if c.Entity == core.EntityCategory {
		slog.DebugContext(ctx, "Ignoring category change", "id", c.ID, "action", c.Action)
		return nil
	}
	month := w.reporter.CurrentMonth()
	if c.Month != nil {
		month = *c.Month
	}

	slog.InfoContext(ctx, "Processing change message",
		"entity", c.Entity,
		"action", c.Action,
		"id", c.ID,
		"month", month.String())

	return w.ExportMonth(ctx, month)
}

// ExportMonth recomputes budget-vs-actual for month and writes it, unless
// the exported copy already matches.
func (w *ExportWorker) ExportMonth(ctx context.Context, month core.YearMonth) error {
	rows, err := w.reporter.BudgetVsActual(ctx, &month)
	if err != nil {
		return fmt.Errorf("compute budget report %s: %w", month, err)
	}

	existing, found, err := w.exporter.ReadBudgetReport(ctx, month)
	if err != nil {
		slog.WarnContext(ctx, "Could not read exported report, rewriting", "month", month.String(), "error", err)
	} else if found && slices.Equal(existing, rows) {
		slog.DebugContext(ctx, "Exported report is current", "month", month.String())
		return nil
	}

	if err := w.exporter.WriteBudgetReport(ctx, month, rows); err != nil {
		return fmt.Errorf("export budget report %s: %w", month, err)
	}
	slog.InfoContext(ctx, "Budget report exported", "month", month.String(), "rows", len(rows))
	return nil
}

// ExportMonths exports several months concurrently and returns the first error.
func (w *ExportWorker) ExportMonths(ctx context.Context, months []core.YearMonth) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelExports)
	for _, m := range months {
		g.Go(func() error { return w.ExportMonth(ctx, m) })
	}
	return g.Wait()
}

// Run consumes changes from source, when set, and runs the periodic export
// until ctx is cancelled.
func (w *ExportWorker) Run(ctx context.Context, source ChangeSource) error {
	g, ctx := errgroup.WithContext(ctx)
	if source != nil {
		g.Go(func() error { return source.ConsumeChanges(ctx, w.HandleChange) })
	}
	g.Go(func() error { return w.runPeriodic(ctx) })

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (w *ExportWorker) runPeriodic(ctx context.Context) error {
	w.exportCurrent(ctx)
	if w.interval <= 0 {
		<-ctx.Done()
		return ctx.Err()
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			w.exportCurrent(ctx)
		}
	}
}

func (w *ExportWorker) exportCurrent(ctx context.Context) {
	month := w.reporter.CurrentMonth()
	if err := w.ExportMonth(ctx, month); err != nil && ctx.Err() == nil {
		slog.ErrorContext(ctx, "Periodic export failed", "month", month.String(), "error", err)
	}
}
