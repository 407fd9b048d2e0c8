package memory

import (
	"context"
	"slices"
	"sync"

	"fintrack/internal/core"
	"fintrack/internal/reports"
	"fintrack/internal/sheets"
)

// Exporter keeps exported reports in process. The worker falls back to it
// when no spreadsheet is configured.
type Exporter struct {
	mu      sync.Mutex
	reports map[core.YearMonth][]reports.BudgetActual
	writes  int
}

var _ sheets.ReportExporter = (*Exporter)(nil)

func New() *Exporter {
	return &Exporter{reports: map[core.YearMonth][]reports.BudgetActual{}}
}

func (e *Exporter) WriteBudgetReport(_ context.Context, month core.YearMonth, rows []reports.BudgetActual) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.reports[month] = slices.Clone(rows)
	e.writes++
	return nil
}

func (e *Exporter) ReadBudgetReport(_ context.Context, month core.YearMonth) ([]reports.BudgetActual, bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	rows, ok := e.reports[month]
	return slices.Clone(rows), ok, nil
}

// Writes reports how many reports were written so far.
func (e *Exporter) Writes() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.writes
}

// Months returns the exported months, oldest first.
func (e *Exporter) Months() []core.YearMonth {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]core.YearMonth, 0, len(e.reports))
	for m := range e.reports {
		out = append(out, m)
	}
	slices.SortFunc(out, func(a, b core.YearMonth) int {
		switch {
		case a.Before(b):
			return -1
		case b.Before(a):
			return 1
		}
		return 0
	})
	return out
}
