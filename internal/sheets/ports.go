package sheets

import (
	"context"

	"fintrack/internal/core"
	"fintrack/internal/reports"
)

// Ports for outbound adapters.
type (
	// ReportWriter replaces the exported budget-vs-actual table of a month.
	ReportWriter interface {
		WriteBudgetReport(ctx context.Context, month core.YearMonth, rows []reports.BudgetActual) error
	}

	// ReportReader returns the table last exported for a month; found is
	// false when the month was never exported.
	ReportReader interface {
		ReadBudgetReport(ctx context.Context, month core.YearMonth) (rows []reports.BudgetActual, found bool, err error)
	}

	ReportExporter interface {
		ReportWriter
		ReportReader
	}
)
