// Package ports declares the storage contracts every backend implements.
package ports

import (
	"context"
	"errors"
	"math"

	"fintrack/internal/core"
)

const (
	DefaultPage     = 1
	DefaultPageSize = 5
)

// ErrNotFound is returned by single-record reads. Mutations on a missing id
// are a successful no-op and never return it.
var ErrNotFound = errors.New("not found")

type (
	// TransactionFilter is a conjunction of optional predicates; zero values
	// are ignored. The date range is inclusive on both ends.
	TransactionFilter struct {
		Type        core.TransactionType
		Description string
		StartDate   *core.Date
		EndDate     *core.Date
		Category    string
	}

	PageRequest struct {
		Page     int
		PageSize int
	}

	TransactionPage struct {
		Items      []core.Transaction
		Total      int
		Page       int
		TotalPages int
	}

	// DateRange selects transactions dated within [From, To].
	DateRange struct {
		From core.Date
		To   core.Date
	}
)

// Normalize applies the default page and page size to unset values.
func (p PageRequest) Normalize() PageRequest {
	if p.Page < 1 {
		p.Page = DefaultPage
	}
	if p.PageSize < 1 {
		p.PageSize = DefaultPageSize
	}
	return p
}

// Offset is the number of records skipped before the page. It saturates at
// math.MaxInt instead of overflowing for very large pages.
func (p PageRequest) Offset() int {
	if p.Page <= 1 || p.PageSize <= 0 {
		return 0
	}
	if p.Page-1 > math.MaxInt/p.PageSize {
		return math.MaxInt
	}
	return (p.Page - 1) * p.PageSize
}

// TotalPages returns ceil(total/pageSize).
func TotalPages(total, pageSize int) int {
	if pageSize < 1 || total <= 0 {
		return 0
	}
	return (total + pageSize - 1) / pageSize
}

// MonthRange returns the inclusive day range of m.
func MonthRange(m core.YearMonth) DateRange {
	return DateRange{From: m.FirstDay(), To: m.LastDay()}
}

// Contains reports whether d falls within the range.
func (r DateRange) Contains(d core.Date) bool {
	return !d.Before(r.From.Time) && !d.After(r.To.Time)
}

// Ports implemented by each backend.
type (
	TransactionStore interface {
		ListTransactions(ctx context.Context, f TransactionFilter, p PageRequest) (TransactionPage, error)
		GetTransaction(ctx context.Context, id string) (core.Transaction, error)
		CreateTransaction(ctx context.Context, tx core.Transaction) (id string, err error)
		UpdateTransaction(ctx context.Context, id string, tx core.Transaction) error
		DeleteTransaction(ctx context.Context, id string) error
	}

	// TransactionAggregator sums amounts in a single round trip per call.
	TransactionAggregator interface {
		SumByCategory(ctx context.Context, r DateRange, t core.TransactionType) ([]core.CategoryAmount, error)
		// SumByMonth returns totals ordered ascending by month.
		SumByMonth(ctx context.Context, t core.TransactionType) ([]core.MonthAmount, error)
		// SumByCategoryForMonth matches on the calendar year and month of each date.
		SumByCategoryForMonth(ctx context.Context, m core.YearMonth, t core.TransactionType) ([]core.CategoryAmount, error)
	}

	BudgetStore interface {
		ListBudgets(ctx context.Context) ([]core.Budget, error)
		ListBudgetsByMonth(ctx context.Context, m core.YearMonth) ([]core.Budget, error)
		// GetBudget returns ErrNotFound when no budget has the id.
		GetBudget(ctx context.Context, id string) (core.Budget, error)
		CreateBudget(ctx context.Context, b core.Budget) (id string, err error)
		UpdateBudget(ctx context.Context, id string, b core.Budget) error
		DeleteBudget(ctx context.Context, id string) error
		// UpsertBudget updates the oldest budget for (category, month) or
		// creates it when none exists.
		UpsertBudget(ctx context.Context, b core.Budget) (id string, err error)
	}

	CategoryStore interface {
		ListCategories(ctx context.Context) ([]core.Category, error)
		CreateCategory(ctx context.Context, name string) (id string, err error)
		RenameCategory(ctx context.Context, id, name string) error
		DeleteCategory(ctx context.Context, id string) error
	}

	Pinger interface {
		Ping(ctx context.Context) error
	}

	// Store is the full set of ports a backend provides.
	Store interface {
		TransactionStore
		TransactionAggregator
		BudgetStore
		CategoryStore
		Pinger
		Close() error
	}
)
