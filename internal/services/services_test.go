package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/core"
	"fintrack/internal/memory"
	"fintrack/internal/ports"
)

type recorder struct {
	mu      sync.Mutex
	changes []core.Change
	err     error
}

func (r *recorder) Notify(_ context.Context, c core.Change) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes = append(r.changes, c)
	return r.err
}

func (r *recorder) months() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, c := range r.changes {
		if c.Month != nil {
			out = append(out, c.Month.String())
		} else {
			out = append(out, "")
		}
	}
	return out
}

// countingStore records how often writes reach the store.
type countingStore struct {
	*memory.Store
	writes int
}

func (c *countingStore) CreateTransaction(ctx context.Context, t core.Transaction) (string, error) {
	c.writes++
	return c.Store.CreateTransaction(ctx, t)
}

func (c *countingStore) UpdateTransaction(ctx context.Context, id string, t core.Transaction) error {
	c.writes++
	return c.Store.UpdateTransaction(ctx, id, t)
}

func (c *countingStore) CreateBudget(ctx context.Context, b core.Budget) (string, error) {
	c.writes++
	return c.Store.CreateBudget(ctx, b)
}

func validInput() core.TransactionInput {
	return core.TransactionInput{Amount: 12.34, Date: "2024-03-15", Description: "Lunch", Type: "expense", Category: "Food"}
}

func TestTransactionServiceCreateNotifies(t *testing.T) {
	store := memory.New(nil)
	rec := &recorder{}
	svc := NewTransactionService(store, rec, 100)

	id, err := svc.Create(context.Background(), validInput())
	require.NoError(t, err)

	got, err := store.GetTransaction(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, int64(1234), got.Amount.Cents)

	require.Len(t, rec.changes, 1)
	assert.Equal(t, core.EntityTransaction, rec.changes[0].Entity)
	assert.Equal(t, core.ActionCreated, rec.changes[0].Action)
	assert.Equal(t, id, rec.changes[0].ID)
	assert.Equal(t, []string{"2024-03"}, rec.months())
}

func TestInvalidInputNeverReachesStore(t *testing.T) {
	store := &countingStore{Store: memory.New(nil)}
	rec := &recorder{}
	txs := NewTransactionService(store, rec, 100)
	budgets := NewBudgetService(store, rec)

	bad := []core.TransactionInput{
		{Amount: -5.0, Date: "2024-01-01", Description: "x", Type: "expense", Category: "c"},
		{Amount: 5.0, Date: "yesterday", Description: "x", Type: "expense", Category: "c"},
		{Amount: 5.0, Date: "2024-01-01", Description: "", Type: "expense", Category: "c"},
	}
	for _, in := range bad {
		_, err := txs.Create(context.Background(), in)
		assert.True(t, core.IsValidation(err), "%+v", in)
		assert.True(t, core.IsValidation(txs.Update(context.Background(), "some-id", in)))
	}
	_, err := budgets.Create(context.Background(), core.BudgetInput{Category: "Food", Amount: 10.0, Month: "2024/03"})
	assert.True(t, core.IsValidation(err))

	assert.Zero(t, store.writes)
	assert.Empty(t, rec.changes)

	page, err := txs.List(context.Background(), ports.TransactionFilter{}, ports.PageRequest{})
	require.NoError(t, err)
	assert.Zero(t, page.Total)
}

func TestTransactionServiceUpdateAcrossMonths(t *testing.T) {
	store := memory.New(nil)
	rec := &recorder{}
	svc := NewTransactionService(store, rec, 100)
	ctx := context.Background()

	id, err := svc.Create(ctx, validInput())
	require.NoError(t, err)

	in := validInput()
	in.Date = "2024-04-02"
	require.NoError(t, svc.Update(ctx, id, in))
	assert.Equal(t, []string{"2024-03", "2024-04", "2024-03"}, rec.months())

	got, err := svc.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, core.NewDate(2024, 4, 2), got.Date)
}

func TestTransactionServiceMissingIDIsNoop(t *testing.T) {
	rec := &recorder{}
	svc := NewTransactionService(memory.New(nil), rec, 100)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		assert.NoError(t, svc.Delete(ctx, "missing"))
		assert.NoError(t, svc.Update(ctx, "missing", validInput()))
	}
	assert.Empty(t, rec.changes)
}

func TestTransactionServiceListCapsPageSize(t *testing.T) {
	store := memory.New(nil)
	svc := NewTransactionService(store, nil, 3)
	for i := 0; i < 5; i++ {
		_, err := svc.Create(context.Background(), validInput())
		require.NoError(t, err)
	}
	page, err := svc.List(context.Background(), ports.TransactionFilter{}, ports.PageRequest{Page: 1, PageSize: 50})
	require.NoError(t, err)
	assert.Len(t, page.Items, 3)
	assert.Equal(t, 2, page.TotalPages)
}

func TestNotifierFailureDoesNotFailWrite(t *testing.T) {
	store := memory.New(nil)
	rec := &recorder{err: errors.New("broker down")}
	svc := NewTransactionService(store, rec, 100)

	id, err := svc.Create(context.Background(), validInput())
	require.NoError(t, err)
	require.NoError(t, svc.Delete(context.Background(), id))
	assert.Len(t, rec.changes, 2)
}

func TestNotifiersFanOut(t *testing.T) {
	a, b := &recorder{}, &recorder{err: errors.New("boom")}
	n := Notifiers{a, nil, b}
	err := n.Notify(context.Background(), core.Change{Entity: core.EntityCategory, Action: core.ActionCreated, ID: "1"})
	assert.EqualError(t, err, "boom")
	assert.Len(t, a.changes, 1)
	assert.Len(t, b.changes, 1)

	called := false
	fn := NotifierFunc(func(context.Context, core.Change) error { called = true; return nil })
	require.NoError(t, fn.Notify(context.Background(), core.Change{}))
	assert.True(t, called)
}

func TestBudgetServiceUpsertAndList(t *testing.T) {
	store := memory.New(nil)
	rec := &recorder{}
	svc := NewBudgetService(store, rec)
	ctx := context.Background()

	id, err := svc.Upsert(ctx, core.BudgetInput{Category: "Food", Amount: 200.0, Month: "2024-03"})
	require.NoError(t, err)
	again, err := svc.Upsert(ctx, core.BudgetInput{Category: "Food", Amount: "250", Month: "2024-03"})
	require.NoError(t, err)
	assert.Equal(t, id, again)

	_, err = svc.Create(ctx, core.BudgetInput{Category: "Rent", Amount: 800.0, Month: "2024-04"})
	require.NoError(t, err)

	march := core.YearMonth{Year: 2024, Month: 3}
	inMarch, err := svc.List(ctx, &march)
	require.NoError(t, err)
	require.Len(t, inMarch, 1)
	assert.Equal(t, int64(25000), inMarch[0].Amount.Cents)

	all, err := svc.List(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	require.NoError(t, svc.Update(ctx, id, core.BudgetInput{Category: "Food", Amount: 1.0, Month: "2024-03"}))
	require.NoError(t, svc.Delete(ctx, id))
	assert.Equal(t, []string{"2024-03", "2024-03", "2024-04", "2024-03", "2024-03"}, rec.months())
}

func TestBudgetServiceUpdateAcrossMonths(t *testing.T) {
	store := memory.New(nil)
	rec := &recorder{}
	svc := NewBudgetService(store, rec)
	ctx := context.Background()

	id, err := svc.Create(ctx, core.BudgetInput{Category: "Food", Amount: 200.0, Month: "2024-01"})
	require.NoError(t, err)

	require.NoError(t, svc.Update(ctx, id, core.BudgetInput{Category: "Food", Amount: 150.0, Month: "2024-04"}))
	assert.Equal(t, []string{"2024-01", "2024-04", "2024-01"}, rec.months())

	require.NoError(t, svc.Delete(ctx, id))
	assert.Equal(t, []string{"2024-01", "2024-04", "2024-01", "2024-04"}, rec.months())
	assert.Equal(t, core.ActionDeleted, rec.changes[3].Action)
}

func TestBudgetServiceMissingIDIsNoop(t *testing.T) {
	rec := &recorder{}
	svc := NewBudgetService(memory.New(nil), rec)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		assert.NoError(t, svc.Delete(ctx, "missing"))
		assert.NoError(t, svc.Update(ctx, "missing", core.BudgetInput{Category: "Food", Amount: 1.0, Month: "2024-03"}))
	}
	assert.Empty(t, rec.changes)
}

func TestCategoryServiceLifecycle(t *testing.T) {
	store := memory.New(nil)
	rec := &recorder{}
	svc := NewCategoryService(store, rec)
	ctx := context.Background()

	_, err := svc.Create(ctx, "   ")
	assert.ErrorIs(t, err, core.ErrEmptyCategoryName)

	id, err := svc.Create(ctx, " Travel ")
	require.NoError(t, err)
	require.NoError(t, svc.Rename(ctx, id, "Trips"))
	assert.True(t, core.IsValidation(svc.Rename(ctx, id, "")))

	cats, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []core.Category{{ID: id, Name: "Trips"}}, cats)

	require.NoError(t, svc.Delete(ctx, id))
	require.NoError(t, svc.Delete(ctx, id))
	assert.Len(t, rec.changes, 4)
}

func TestCategoryServiceSeedSkipsExisting(t *testing.T) {
	store := memory.New([]string{"Food"})
	svc := NewCategoryService(store, nil)

	added, err := svc.Seed(context.Background(), []string{"Food", "Rent", " ", "Rent", "Travel"})
	require.NoError(t, err)
	assert.Equal(t, 2, added)

	cats, err := svc.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, cats, 3)
}
