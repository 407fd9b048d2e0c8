package reports

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/core"
	"fintrack/internal/memory"
	"fintrack/internal/ports"
)

func fixedClock(y int, m time.Month, d int) func() time.Time {
	return func() time.Time { return time.Date(y, m, d, 12, 0, 0, 0, time.UTC) }
}

func expense(t *testing.T, s *memory.Store, cents int64, date core.Date, cat string) {
	t.Helper()
	_, err := s.CreateTransaction(context.Background(), core.Transaction{
		Amount: core.Money{Cents: cents}, Date: date, Description: "x", Type: core.Expense, Category: cat,
	})
	require.NoError(t, err)
}

func income(t *testing.T, s *memory.Store, cents int64, date core.Date, cat string) {
	t.Helper()
	_, err := s.CreateTransaction(context.Background(), core.Transaction{
		Amount: core.Money{Cents: cents}, Date: date, Description: "x", Type: core.Income, Category: cat,
	})
	require.NoError(t, err)
}

func budget(t *testing.T, s *memory.Store, cat string, cents int64, month string) {
	t.Helper()
	m, err := core.ParseYearMonth(month)
	require.NoError(t, err)
	_, err = s.CreateBudget(context.Background(), core.Budget{Category: cat, Amount: core.Money{Cents: cents}, Month: m})
	require.NoError(t, err)
}

func TestMonthlyExpenseTotals(t *testing.T) {
	s := memory.New(nil)
	expense(t, s, 10000, core.NewDate(2024, 1, 15), "Food")
	expense(t, s, 5000, core.NewDate(2024, 1, 20), "Food")
	expense(t, s, 3000, core.NewDate(2024, 2, 1), "Food")
	income(t, s, 250000, core.NewDate(2024, 3, 1), "Salary")

	got, err := NewEngine(s, s).MonthlyExpenseTotals(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []MonthlyTotal{
		{Month: "2024-01", Total: 150},
		{Month: "2024-02", Total: 30},
	}, got)
}

func TestMonthlyExpenseTotalsEmpty(t *testing.T) {
	s := memory.New(nil)
	got, err := NewEngine(s, s).MonthlyExpenseTotals(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestCategorySpendThisMonth(t *testing.T) {
	s := memory.New(nil)
	expense(t, s, 1000, core.NewDate(2024, 3, 1), "Food")
	expense(t, s, 2050, core.NewDate(2024, 3, 31), "Food")
	expense(t, s, 70000, core.NewDate(2024, 3, 5), "Rent")
	expense(t, s, 999, core.NewDate(2024, 2, 29), "Food")
	expense(t, s, 999, core.NewDate(2024, 4, 1), "Food")
	income(t, s, 999, core.NewDate(2024, 3, 10), "Gift")

	e := NewEngine(s, s, WithClock(fixedClock(2024, time.March, 15)))
	got, err := e.CategorySpendThisMonth(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, []CategorySpend{
		{Category: "Food", Spent: 30.5},
		{Category: "Rent", Spent: 700},
	}, got)
}

func TestBudgetVsActual(t *testing.T) {
	s := memory.New(nil)
	budget(t, s, "Food", 20000, "2024-03")
	expense(t, s, 5000, core.NewDate(2024, 3, 2), "Food")
	expense(t, s, 2500, core.NewDate(2024, 3, 28), "Food")
	expense(t, s, 50000, core.NewDate(2024, 3, 1), "Rent")
	// outside the target month
	expense(t, s, 1111, core.NewDate(2024, 4, 1), "Food")
	budget(t, s, "Food", 9900, "2024-04")

	march := core.YearMonth{Year: 2024, Month: time.March}
	got, err := NewEngine(s, s).BudgetVsActual(context.Background(), &march)
	require.NoError(t, err)
	assert.Equal(t, []BudgetActual{
		{Category: "Food", Budget: 200, Spent: 75},
		{Category: "Rent", Budget: 0, Spent: 500},
	}, got)
}

func TestBudgetVsActualDefaultsToCurrentMonth(t *testing.T) {
	s := memory.New(nil)
	budget(t, s, "Travel", 50000, "2025-07")
	budget(t, s, "Food", 100, "2025-06")

	e := NewEngine(s, s, WithClock(func() time.Time {
		// 23:30 on June 30th at UTC-2 is already July in UTC
		return time.Date(2025, 6, 30, 23, 30, 0, 0, time.FixedZone("UTC-2", -2*60*60))
	}))
	got, err := e.BudgetVsActual(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, []BudgetActual{{Category: "Travel", Budget: 500, Spent: 0}}, got)
}

func TestBudgetVsActualSumsDuplicateBudgets(t *testing.T) {
	s := memory.New(nil)
	budget(t, s, "Food", 10000, "2024-03")
	budget(t, s, "Food", 5000, "2024-03")
	budget(t, s, "Bills", 3000, "2024-03")
	expense(t, s, 4000, core.NewDate(2024, 3, 10), "Food")
	expense(t, s, 100, core.NewDate(2024, 3, 10), "Zoo")
	expense(t, s, 200, core.NewDate(2024, 3, 10), "Art")

	march := core.YearMonth{Year: 2024, Month: time.March}
	got, err := NewEngine(s, s).BudgetVsActual(context.Background(), &march)
	require.NoError(t, err)
	assert.Equal(t, []BudgetActual{
		{Category: "Bills", Budget: 30, Spent: 0},
		{Category: "Food", Budget: 150, Spent: 40},
		{Category: "Art", Budget: 0, Spent: 2},
		{Category: "Zoo", Budget: 0, Spent: 1},
	}, got)
}

func TestBudgetVsActualRoundsAfterSumming(t *testing.T) {
	s := memory.New(nil)
	for i := 0; i < 3; i++ {
		expense(t, s, 10, core.NewDate(2024, 5, 1), "Snacks") // 0.10 each
	}
	may := core.YearMonth{Year: 2024, Month: time.May}
	got, err := NewEngine(s, s).BudgetVsActual(context.Background(), &may)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 0.3, got[0].Spent)
}

type failingAggregator struct {
	ports.TransactionAggregator
}

var errStore = errors.New("store offline")

func (failingAggregator) SumByCategoryForMonth(context.Context, core.YearMonth, core.TransactionType) ([]core.CategoryAmount, error) {
	return nil, errStore
}

func (failingAggregator) SumByMonth(context.Context, core.TransactionType) ([]core.MonthAmount, error) {
	return nil, errStore
}

func TestEngineSurfacesStoreErrors(t *testing.T) {
	s := memory.New(nil)
	e := NewEngine(failingAggregator{}, s)

	_, err := e.BudgetVsActual(context.Background(), nil)
	assert.ErrorIs(t, err, errStore)

	_, err = e.MonthlyExpenseTotals(context.Background())
	assert.ErrorIs(t, err, errStore)
}

func TestConcurrentReports(t *testing.T) {
	s := memory.New(nil)
	budget(t, s, "Food", 20000, "2024-03")
	expense(t, s, 7500, core.NewDate(2024, 3, 2), "Food")
	e := NewEngine(s, s)
	march := core.YearMonth{Year: 2024, Month: time.March}

	done := make(chan []BudgetActual, 8)
	for i := 0; i < cap(done); i++ {
		go func() {
			rows, err := e.BudgetVsActual(context.Background(), &march)
			assert.NoError(t, err)
			done <- rows
		}()
	}
	for i := 0; i < cap(done); i++ {
		assert.Equal(t, []BudgetActual{{Category: "Food", Budget: 200, Spent: 75}}, <-done)
	}
}
