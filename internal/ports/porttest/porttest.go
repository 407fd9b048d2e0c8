// Package porttest holds behaviour tests shared by every ports.Store backend.
package porttest

import (
	"context"
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/core"
	"fintrack/internal/ports"
)

// Factory returns an empty store. Cleanup is the factory's responsibility.
type Factory func(t *testing.T) ports.Store

// Run executes the whole suite against stores built by newStore.
// missingID must be a well-formed id that no record will ever get.
func Run(t *testing.T, newStore Factory, missingID string) {
	t.Run("TransactionRoundTrip", func(t *testing.T) { testTransactionRoundTrip(t, newStore(t)) })
	t.Run("TransactionUpdateReplaces", func(t *testing.T) { testTransactionUpdate(t, newStore(t)) })
	t.Run("MissingIDIsNoop", func(t *testing.T) { testMissingIDNoop(t, newStore(t), missingID) })
	t.Run("Pagination", func(t *testing.T) { testPagination(t, newStore(t)) })
	t.Run("Filters", func(t *testing.T) { testFilters(t, newStore(t)) })
	t.Run("SumByMonth", func(t *testing.T) { testSumByMonth(t, newStore(t)) })
	t.Run("SumByCategory", func(t *testing.T) { testSumByCategory(t, newStore(t)) })
	t.Run("Budgets", func(t *testing.T) { testBudgets(t, newStore(t)) })
	t.Run("UpsertBudget", func(t *testing.T) { testUpsertBudget(t, newStore(t)) })
	t.Run("Categories", func(t *testing.T) { testCategories(t, newStore(t), missingID) })
}

func tx(amount int64, date core.Date, desc string, typ core.TransactionType, cat string) core.Transaction {
	return core.Transaction{Amount: core.Money{Cents: amount}, Date: date, Description: desc, Type: typ, Category: cat}
}

func mustCreate(t *testing.T, s ports.Store, in core.Transaction) string {
	t.Helper()
	id, err := s.CreateTransaction(context.Background(), in)
	require.NoError(t, err)
	require.NotEmpty(t, id)
	return id
}

func listAll(t *testing.T, s ports.Store, f ports.TransactionFilter) []core.Transaction {
	t.Helper()
	page, err := s.ListTransactions(context.Background(), f, ports.PageRequest{Page: 1, PageSize: 1000})
	require.NoError(t, err)
	return page.Items
}

func testTransactionRoundTrip(t *testing.T, s ports.Store) {
	ctx := context.Background()
	in := tx(1234, core.NewDate(2024, 1, 15), "Groceries", core.Expense, "Food")
	id := mustCreate(t, s, in)

	page, err := s.ListTransactions(ctx, ports.TransactionFilter{}, ports.PageRequest{})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	got := page.Items[0]
	assert.Equal(t, id, got.ID)
	in.ID = id
	assert.Equal(t, in, got)
	assert.Equal(t, 1, page.Total)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 1, page.TotalPages)

	single, err := s.GetTransaction(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, in, single)
}

func testTransactionUpdate(t *testing.T, s ports.Store) {
	ctx := context.Background()
	id := mustCreate(t, s, tx(500, core.NewDate(2024, 2, 1), "Bus", core.Expense, "Transport"))

	repl := tx(9900, core.NewDate(2024, 2, 3), "Salary", core.Income, "Work")
	require.NoError(t, s.UpdateTransaction(ctx, id, repl))

	got, err := s.GetTransaction(ctx, id)
	require.NoError(t, err)
	repl.ID = id
	assert.Equal(t, repl, got)

	require.NoError(t, s.DeleteTransaction(ctx, id))
	_, err = s.GetTransaction(ctx, id)
	assert.ErrorIs(t, err, ports.ErrNotFound)
	assert.Empty(t, listAll(t, s, ports.TransactionFilter{}))
}

func testMissingIDNoop(t *testing.T, s ports.Store, missingID string) {
	ctx := context.Background()
	keep := mustCreate(t, s, tx(100, core.NewDate(2024, 1, 1), "Coffee", core.Expense, "Food"))
	b := core.Budget{Category: "Food", Amount: core.Money{Cents: 100}, Month: core.YearMonth{Year: 2024, Month: time.January}}

	for _, id := range []string{missingID, "not-an-id", ""} {
		// twice, to pin idempotence
		for i := 0; i < 2; i++ {
			assert.NoError(t, s.DeleteTransaction(ctx, id), "delete transaction %q", id)
			assert.NoError(t, s.UpdateTransaction(ctx, id, tx(1, core.NewDate(2024, 1, 1), "x", core.Income, "y")), "update transaction %q", id)
			assert.NoError(t, s.DeleteBudget(ctx, id), "delete budget %q", id)
			assert.NoError(t, s.UpdateBudget(ctx, id, b), "update budget %q", id)
			assert.NoError(t, s.DeleteCategory(ctx, id), "delete category %q", id)
			assert.NoError(t, s.RenameCategory(ctx, id, "Other"), "rename category %q", id)
		}
		_, err := s.GetTransaction(ctx, id)
		assert.ErrorIs(t, err, ports.ErrNotFound)
		_, err = s.GetBudget(ctx, id)
		assert.ErrorIs(t, err, ports.ErrNotFound)
	}

	items := listAll(t, s, ports.TransactionFilter{})
	require.Len(t, items, 1)
	assert.Equal(t, keep, items[0].ID)
	assert.Equal(t, "Coffee", items[0].Description)

	budgets, err := s.ListBudgets(ctx)
	require.NoError(t, err)
	assert.Empty(t, budgets)
}

func testPagination(t *testing.T, s ports.Store) {
	ctx := context.Background()
	const n = 12
	for i := 1; i <= n; i++ {
		mustCreate(t, s, tx(int64(i*100), core.NewDate(2024, 1, i), fmt.Sprintf("item %02d", i), core.Expense, "Misc"))
	}

	first, err := s.ListTransactions(ctx, ports.TransactionFilter{}, ports.PageRequest{Page: 1, PageSize: 5})
	require.NoError(t, err)
	assert.Equal(t, n, first.Total)
	assert.Equal(t, 3, first.TotalPages)
	require.Len(t, first.Items, 5)
	// newest first
	assert.Equal(t, "item 12", first.Items[0].Description)
	assert.Equal(t, "item 08", first.Items[4].Description)

	last, err := s.ListTransactions(ctx, ports.TransactionFilter{}, ports.PageRequest{Page: 3, PageSize: 5})
	require.NoError(t, err)
	require.Len(t, last.Items, 2)
	assert.Equal(t, "item 02", last.Items[0].Description)
	assert.Equal(t, "item 01", last.Items[1].Description)

	beyond, err := s.ListTransactions(ctx, ports.TransactionFilter{}, ports.PageRequest{Page: 4, PageSize: 5})
	require.NoError(t, err)
	assert.Empty(t, beyond.Items)
	assert.Equal(t, 4, beyond.Page)
	assert.Equal(t, 3, beyond.TotalPages)
	assert.Equal(t, n, beyond.Total)

	for _, page := range []int{2305843009213693953, 4611686018427387905, math.MaxInt} {
		huge, err := s.ListTransactions(ctx, ports.TransactionFilter{}, ports.PageRequest{Page: page, PageSize: 4})
		require.NoError(t, err)
		assert.Empty(t, huge.Items, "page %d", page)
		assert.Equal(t, page, huge.Page)
		assert.Equal(t, n, huge.Total)
		assert.Equal(t, 3, huge.TotalPages)
	}

	defaults, err := s.ListTransactions(ctx, ports.TransactionFilter{}, ports.PageRequest{})
	require.NoError(t, err)
	assert.Len(t, defaults.Items, ports.DefaultPageSize)
	assert.Equal(t, 1, defaults.Page)

	empty, err := s.ListTransactions(ctx, ports.TransactionFilter{Category: "None"}, ports.PageRequest{})
	require.NoError(t, err)
	assert.Empty(t, empty.Items)
	assert.Equal(t, 0, empty.Total)
	assert.Equal(t, 0, empty.TotalPages)
}

func testFilters(t *testing.T, s ports.Store) {
	mustCreate(t, s, tx(300000, core.NewDate(2024, 1, 31), "January salary", core.Income, "Salary"))
	mustCreate(t, s, tx(300000, core.NewDate(2024, 2, 29), "February SALARY", core.Income, "Salary"))
	mustCreate(t, s, tx(4500, core.NewDate(2024, 2, 1), "Supermarket", core.Expense, "Food"))
	mustCreate(t, s, tx(1200, core.NewDate(2024, 2, 15), "Pizza night", core.Expense, "Food"))
	mustCreate(t, s, tx(2500, core.NewDate(2024, 3, 1), "Train 100% refund", core.Income, "Transport"))

	incomes := listAll(t, s, ports.TransactionFilter{Type: core.Income})
	require.Len(t, incomes, 3)
	for _, it := range incomes {
		assert.Equal(t, core.Income, it.Type)
	}

	start, end := core.NewDate(2024, 2, 1), core.NewDate(2024, 2, 29)
	febIncome := listAll(t, s, ports.TransactionFilter{Type: core.Income, StartDate: &start, EndDate: &end})
	require.Len(t, febIncome, 1)
	assert.Equal(t, "February SALARY", febIncome[0].Description)

	inFeb := listAll(t, s, ports.TransactionFilter{StartDate: &start, EndDate: &end})
	assert.Len(t, inFeb, 3, "range is inclusive on both ends")

	fromMarch := core.NewDate(2024, 3, 1)
	assert.Len(t, listAll(t, s, ports.TransactionFilter{StartDate: &fromMarch}), 1)
	assert.Len(t, listAll(t, s, ports.TransactionFilter{EndDate: &start}), 2)

	salary := listAll(t, s, ports.TransactionFilter{Description: "salary"})
	assert.Len(t, salary, 2, "description match ignores case")

	mustCreate(t, s, tx(450, core.NewDate(2024, 4, 2), "Café latte", core.Expense, "Food"))
	mustCreate(t, s, tx(90000, core.NewDate(2024, 4, 3), "ÉCOLE fees", core.Expense, "Education"))

	cafe := listAll(t, s, ports.TransactionFilter{Description: "CAFÉ"})
	require.Len(t, cafe, 1, "non-ASCII letters fold too")
	assert.Equal(t, "Café latte", cafe[0].Description)

	school := listAll(t, s, ports.TransactionFilter{Description: "école"})
	require.Len(t, school, 1)
	assert.Equal(t, "ÉCOLE fees", school[0].Description)

	literal := listAll(t, s, ports.TransactionFilter{Description: "100%"})
	require.Len(t, literal, 1, "description is matched literally")
	assert.Equal(t, "Transport", literal[0].Category)

	food := listAll(t, s, ports.TransactionFilter{Category: "Food", Description: "pizza"})
	require.Len(t, food, 1)
	assert.Equal(t, int64(1200), food[0].Amount.Cents)

	assert.Empty(t, listAll(t, s, ports.TransactionFilter{Category: "food"}), "category is an exact match")
}

func testSumByMonth(t *testing.T, s ports.Store) {
	ctx := context.Background()
	mustCreate(t, s, tx(10000, core.NewDate(2024, 1, 15), "a", core.Expense, "Food"))
	mustCreate(t, s, tx(5000, core.NewDate(2024, 1, 20), "b", core.Expense, "Rent"))
	mustCreate(t, s, tx(3000, core.NewDate(2024, 2, 1), "c", core.Expense, "Food"))
	mustCreate(t, s, tx(99900, core.NewDate(2024, 3, 1), "d", core.Income, "Salary"))
	mustCreate(t, s, tx(700, core.NewDate(2023, 12, 31), "e", core.Expense, "Food"))

	got, err := s.SumByMonth(ctx, core.Expense)
	require.NoError(t, err)
	assert.Equal(t, []core.MonthAmount{
		{Month: core.YearMonth{Year: 2023, Month: time.December}, Amount: core.Money{Cents: 700}},
		{Month: core.YearMonth{Year: 2024, Month: time.January}, Amount: core.Money{Cents: 15000}},
		{Month: core.YearMonth{Year: 2024, Month: time.February}, Amount: core.Money{Cents: 3000}},
	}, got)

	income, err := s.SumByMonth(ctx, core.Income)
	require.NoError(t, err)
	assert.Len(t, income, 1)
}

func testSumByCategory(t *testing.T, s ports.Store) {
	ctx := context.Background()
	mustCreate(t, s, tx(5000, core.NewDate(2024, 3, 1), "a", core.Expense, "Food"))
	mustCreate(t, s, tx(2500, core.NewDate(2024, 3, 31), "b", core.Expense, "Food"))
	mustCreate(t, s, tx(50000, core.NewDate(2024, 3, 10), "c", core.Expense, "Rent"))
	mustCreate(t, s, tx(999, core.NewDate(2024, 4, 1), "d", core.Expense, "Food"))
	mustCreate(t, s, tx(100000, core.NewDate(2024, 3, 5), "e", core.Income, "Salary"))

	march := core.YearMonth{Year: 2024, Month: time.March}
	want := []core.CategoryAmount{
		{Name: "Food", Amount: core.Money{Cents: 7500}},
		{Name: "Rent", Amount: core.Money{Cents: 50000}},
	}

	byMonth, err := s.SumByCategoryForMonth(ctx, march, core.Expense)
	require.NoError(t, err)
	assert.Equal(t, want, byMonth)

	byRange, err := s.SumByCategory(ctx, ports.MonthRange(march), core.Expense)
	require.NoError(t, err)
	assert.Equal(t, want, byRange)

	none, err := s.SumByCategoryForMonth(ctx, core.YearMonth{Year: 2023, Month: time.March}, core.Expense)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func testBudgets(t *testing.T, s ports.Store) {
	ctx := context.Background()
	mar := core.YearMonth{Year: 2024, Month: time.March}
	apr := core.YearMonth{Year: 2024, Month: time.April}

	foodID, err := s.CreateBudget(ctx, core.Budget{Category: "Food", Amount: core.Money{Cents: 20000}, Month: mar})
	require.NoError(t, err)
	_, err = s.CreateBudget(ctx, core.Budget{Category: "Rent", Amount: core.Money{Cents: 80000}, Month: apr})
	require.NoError(t, err)
	// plain create does not deduplicate
	_, err = s.CreateBudget(ctx, core.Budget{Category: "Food", Amount: core.Money{Cents: 1000}, Month: mar})
	require.NoError(t, err)

	all, err := s.ListBudgets(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	inMarch, err := s.ListBudgetsByMonth(ctx, mar)
	require.NoError(t, err)
	require.Len(t, inMarch, 2)
	for _, b := range inMarch {
		assert.Equal(t, "Food", b.Category)
		assert.Equal(t, mar, b.Month)
	}

	food, err := s.GetBudget(ctx, foodID)
	require.NoError(t, err)
	assert.Equal(t, core.Budget{ID: foodID, Category: "Food", Amount: core.Money{Cents: 20000}, Month: mar}, food)

	require.NoError(t, s.UpdateBudget(ctx, foodID, core.Budget{Category: "Groceries", Amount: core.Money{Cents: 25000}, Month: apr}))
	inApril, err := s.ListBudgetsByMonth(ctx, apr)
	require.NoError(t, err)
	require.Len(t, inApril, 2)
	assert.Equal(t, core.Budget{ID: foodID, Category: "Groceries", Amount: core.Money{Cents: 25000}, Month: apr}, inApril[0])

	require.NoError(t, s.DeleteBudget(ctx, foodID))
	all, err = s.ListBudgets(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
	_, err = s.GetBudget(ctx, foodID)
	assert.ErrorIs(t, err, ports.ErrNotFound)
}

func testUpsertBudget(t *testing.T, s ports.Store) {
	ctx := context.Background()
	mar := core.YearMonth{Year: 2024, Month: time.March}

	id, err := s.UpsertBudget(ctx, core.Budget{Category: "Food", Amount: core.Money{Cents: 20000}, Month: mar})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	again, err := s.UpsertBudget(ctx, core.Budget{Category: "Food", Amount: core.Money{Cents: 30000}, Month: mar})
	require.NoError(t, err)
	assert.Equal(t, id, again)

	other, err := s.UpsertBudget(ctx, core.Budget{Category: "Food", Amount: core.Money{Cents: 100}, Month: mar.Next()})
	require.NoError(t, err)
	assert.NotEqual(t, id, other)

	got, err := s.ListBudgetsByMonth(ctx, mar)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(30000), got[0].Amount.Cents)

	// concurrent upserts of one key from a single store leave one record
	may := mar.Next().Next()
	var wg sync.WaitGroup
	for i := 1; i <= 8; i++ {
		wg.Add(1)
		go func(cents int64) {
			defer wg.Done()
			_, err := s.UpsertBudget(ctx, core.Budget{Category: "Rent", Amount: core.Money{Cents: cents}, Month: may})
			assert.NoError(t, err)
		}(int64(i * 100))
	}
	wg.Wait()
	inMay, err := s.ListBudgetsByMonth(ctx, may)
	require.NoError(t, err)
	assert.Len(t, inMay, 1)

	// with duplicates already stored, the oldest record is the one updated
	jun := may.Next()
	oldest, err := s.CreateBudget(ctx, core.Budget{Category: "Fun", Amount: core.Money{Cents: 100}, Month: jun})
	require.NoError(t, err)
	dup, err := s.CreateBudget(ctx, core.Budget{Category: "Fun", Amount: core.Money{Cents: 200}, Month: jun})
	require.NoError(t, err)
	upserted, err := s.UpsertBudget(ctx, core.Budget{Category: "Fun", Amount: core.Money{Cents: 500}, Month: jun})
	require.NoError(t, err)
	assert.Equal(t, oldest, upserted)
	kept, err := s.GetBudget(ctx, dup)
	require.NoError(t, err)
	assert.Equal(t, int64(200), kept.Amount.Cents)
}

func testCategories(t *testing.T, s ports.Store, missingID string) {
	ctx := context.Background()
	foodID, err := s.CreateCategory(ctx, "Food")
	require.NoError(t, err)
	_, err = s.CreateCategory(ctx, "Bills")
	require.NoError(t, err)

	cats, err := s.ListCategories(ctx)
	require.NoError(t, err)
	require.Len(t, cats, 2)
	assert.Equal(t, "Bills", cats[0].Name)
	assert.Equal(t, "Food", cats[1].Name)

	require.NoError(t, s.RenameCategory(ctx, foodID, "Groceries"))
	require.NoError(t, s.RenameCategory(ctx, missingID, "Ghost"))
	cats, err = s.ListCategories(ctx)
	require.NoError(t, err)
	assert.Equal(t, []core.Category{cats[0], {ID: foodID, Name: "Groceries"}}, cats)

	// deleting a category leaves transactions that reference it untouched
	mustCreate(t, s, tx(100, core.NewDate(2024, 1, 1), "Apples", core.Expense, "Groceries"))
	require.NoError(t, s.DeleteCategory(ctx, foodID))
	cats, err = s.ListCategories(ctx)
	require.NoError(t, err)
	require.Len(t, cats, 1)
	assert.Len(t, listAll(t, s, ports.TransactionFilter{Category: "Groceries"}), 1)
}
