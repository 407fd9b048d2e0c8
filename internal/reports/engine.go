// Package reports derives the monthly totals, category spend and
// budget-vs-actual views. Nothing is cached: every call reads the store.
package reports

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"fintrack/internal/core"
	"fintrack/internal/ports"
)

type (
	MonthlyTotal struct {
		Month string  `json:"month"`
		Total float64 `json:"total"`
	}

	CategorySpend struct {
		Category string  `json:"category"`
		Spent    float64 `json:"spent"`
	}

	BudgetActual struct {
		Category string  `json:"category"`
		Budget   float64 `json:"budget"`
		Spent    float64 `json:"spent"`
	}

	Option func(*Engine)

	Engine struct {
		transactions ports.TransactionAggregator
		budgets      ports.BudgetStore
		now          func() time.Time
	}
)

// WithClock overrides the clock used to resolve the current month.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func NewEngine(transactions ports.TransactionAggregator, budgets ports.BudgetStore, opts ...Option) *Engine {
	e := &Engine{transactions: transactions, budgets: budgets, now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// CurrentMonth is the calendar month of the engine clock in UTC.
func (e *Engine) CurrentMonth() core.YearMonth {
	return core.MonthOf(e.now())
}

// MonthlyExpenseTotals sums expenses per calendar month, oldest first. Months
// without expenses are omitted.
func (e *Engine) MonthlyExpenseTotals(ctx context.Context) ([]MonthlyTotal, error) {
	sums, err := e.transactions.SumByMonth(ctx, core.Expense)
	if err != nil {
		return nil, fmt.Errorf("monthly expense totals: %w", err)
	}
	slices.SortStableFunc(sums, func(a, b core.MonthAmount) int {
		switch {
		case a.Month.Before(b.Month):
			return -1
		case b.Month.Before(a.Month):
			return 1
		}
		return 0
	})
	out := make([]MonthlyTotal, 0, len(sums))
	for _, s := range sums {
		out = append(out, MonthlyTotal{Month: s.Month.String(), Total: s.Amount.Float()})
	}
	return out, nil
}

// CategorySpendThisMonth sums expenses per category between the first and
// last day of the current month, both inclusive.
func (e *Engine) CategorySpendThisMonth(ctx context.Context) ([]CategorySpend, error) {
	month := e.CurrentMonth()
	sums, err := e.transactions.SumByCategory(ctx, ports.MonthRange(month), core.Expense)
	if err != nil {
		return nil, fmt.Errorf("category spend for %s: %w", month, err)
	}
	out := make([]CategorySpend, 0, len(sums))
	for _, s := range sums {
		out = append(out, CategorySpend{Category: s.Name, Spent: s.Amount.Float()})
	}
	return out, nil
}

// BudgetVsActual joins the budgets of month with the expenses of the same
// calendar month. A nil month means the current one.
//
// Every category with a budget or with spend appears exactly once. Budget
// rows come first in store order, duplicate budgets for one category are
// summed into the first row. Categories with spend and no budget follow,
// sorted by name, with a zero budget.
func (e *Engine) BudgetVsActual(ctx context.Context, month *core.YearMonth) ([]BudgetActual, error) {
	target := e.CurrentMonth()
	if month != nil {
		target = *month
	}

	var (
		budgets []core.Budget
		spent   []core.CategoryAmount
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		budgets, err = e.budgets.ListBudgetsByMonth(gctx, target)
		return err
	})
	g.Go(func() error {
		var err error
		spent, err = e.transactions.SumByCategoryForMonth(gctx, target, core.Expense)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("budget vs actual for %s: %w", target, err)
	}

	return joinBudgets(budgets, spent), nil
}

func joinBudgets(budgets []core.Budget, spent []core.CategoryAmount) []BudgetActual {
	spentBy := make(map[string]int64, len(spent))
	for _, s := range spent {
		spentBy[s.Name] += s.Amount.Cents
	}

	type row struct {
		category      string
		budget, spent int64
	}
	var rows []*row
	index := map[string]*row{}
	for _, b := range budgets {
		if r, ok := index[b.Category]; ok {
			r.budget += b.Amount.Cents
			continue
		}
		r := &row{category: b.Category, budget: b.Amount.Cents, spent: spentBy[b.Category]}
		index[b.Category] = r
		rows = append(rows, r)
	}

	var unbudgeted []*row
	for name, cents := range spentBy {
		if _, ok := index[name]; !ok {
			unbudgeted = append(unbudgeted, &row{category: name, spent: cents})
		}
	}
	slices.SortFunc(unbudgeted, func(a, b *row) int { return strings.Compare(a.category, b.category) })
	rows = append(rows, unbudgeted...)

	out := make([]BudgetActual, 0, len(rows))
	for _, r := range rows {
		out = append(out, BudgetActual{
			Category: r.category,
			Budget:   core.Money{Cents: r.budget}.Float(),
			Spent:    core.Money{Cents: r.spent}.Float(),
		})
	}
	return out
}
