package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"fintrack/internal/cli"
	"fintrack/internal/core"
	"fintrack/internal/reports"
)

func reportCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print reports from the configured store",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "monthly",
		Short: "Total expenses per month",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			engine, closeFn, err := a.openEngine(cmd)
			if err != nil {
				return err
			}
			defer closeFn()

			rows, err := engine.MonthlyExpenseTotals(cmd.Context())
			if err != nil {
				return err
			}
			return writeMonthlyTotals(cmd.OutOrStdout(), rows)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "categories",
		Short: "Expenses per category in the current month",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			engine, closeFn, err := a.openEngine(cmd)
			if err != nil {
				return err
			}
			defer closeFn()

			rows, err := engine.CategorySpendThisMonth(cmd.Context())
			if err != nil {
				return err
			}
			return writeCategorySpend(cmd.OutOrStdout(), rows)
		},
	})

	var month string
	bva := &cobra.Command{
		Use:   "budget-vs-actual",
		Short: "Budgets against actual spend for a month",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var m *core.YearMonth
			if month != "" {
				parsed, err := core.ParseYearMonth(month)
				if err != nil {
					return fmt.Errorf("invalid --month %q: %w", month, err)
				}
				m = &parsed
			}

			engine, closeFn, err := a.openEngine(cmd)
			if err != nil {
				return err
			}
			defer closeFn()

			rows, err := engine.BudgetVsActual(cmd.Context(), m)
			if err != nil {
				return err
			}
			return writeBudgetVsActual(cmd.OutOrStdout(), rows)
		},
	}
	bva.Flags().StringVar(&month, "month", "", "month as YYYY-MM (default: current month)")
	cmd.AddCommand(bva)

	return cmd
}

func (a *app) openEngine(cmd *cobra.Command) (*reports.Engine, func() error, error) {
	res, err := cli.OpenStore(cmd.Context(), a.logger, a.cfg)
	if err != nil {
		return nil, nil, err
	}
	return reports.NewEngine(res.Store, res.Store), res.Cleanup, nil
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
}

func writeMonthlyTotals(w io.Writer, rows []reports.MonthlyTotal) error {
	tw := newTable(w)
	fmt.Fprintf(tw, "MONTH\tTOTAL\t\n")
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%.2f\t\n", r.Month, r.Total)
	}
	return tw.Flush()
}

func writeCategorySpend(w io.Writer, rows []reports.CategorySpend) error {
	tw := newTable(w)
	fmt.Fprintf(tw, "CATEGORY\tSPENT\t\n")
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%.2f\t\n", r.Category, r.Spent)
	}
	return tw.Flush()
}

func writeBudgetVsActual(w io.Writer, rows []reports.BudgetActual) error {
	tw := newTable(w)
	fmt.Fprintf(tw, "CATEGORY\tBUDGET\tSPENT\tREMAINING\tSTATUS\t\n")
	for _, r := range rows {
		remaining := decimal.NewFromFloat(r.Budget).Sub(decimal.NewFromFloat(r.Spent))
		status := "ok"
		if remaining.IsNegative() {
			status = "over"
		}
		fmt.Fprintf(tw, "%s\t%.2f\t%.2f\t%s\t%s\t\n", r.Category, r.Budget, r.Spent, remaining.StringFixed(2), status)
	}
	return tw.Flush()
}
