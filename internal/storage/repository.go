package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"fintrack/internal/core"
	"fintrack/internal/ports"
)

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
}

var _ ports.Store = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One connection serializes writers, which makes UpsertBudget atomic.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	// Run migrations
	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
	}, nil
}

func dsn(dbPath string) string {
	return "file:" + dbPath + "?_pragma=busy_timeout(5000)"
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// parseID reports false for ids that cannot exist in this store.
func parseID(id string) (int64, bool) {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}

func toCoreTransaction(t Transaction) (core.Transaction, error) {
	d, err := core.ParseDate(t.Date)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("transaction %d: %w", t.ID, err)
	}
	return core.Transaction{
		ID:          formatID(t.ID),
		Amount:      core.Money{Cents: t.AmountCents},
		Date:        d,
		Description: t.Description,
		Type:        core.TransactionType(t.Type),
		Category:    t.Category,
	}, nil
}

func toCoreBudget(b Budget) (core.Budget, error) {
	m, err := core.ParseYearMonth(b.Month)
	if err != nil {
		return core.Budget{}, fmt.Errorf("budget %d: %w", b.ID, err)
	}
	return core.Budget{
		ID:       formatID(b.ID),
		Category: b.Category,
		Amount:   core.Money{Cents: b.AmountCents},
		Month:    m,
	}, nil
}

func toCategoryAmounts(rows []CategorySum) []core.CategoryAmount {
	out := make([]core.CategoryAmount, 0, len(rows))
	for _, cs := range rows {
		out = append(out, core.CategoryAmount{
			Name:   cs.Category,
			Amount: core.Money{Cents: cs.TotalAmount},
		})
	}
	return out
}

func (r *SQLiteRepository) ListTransactions(ctx context.Context, f ports.TransactionFilter, p ports.PageRequest) (ports.TransactionPage, error) {
	p = p.Normalize()
	arg := ListTransactionsParams{
		Type:        string(f.Type),
		Description: f.Description,
		Category:    f.Category,
		Limit:       int64(p.PageSize),
		Offset:      int64(p.Offset()),
	}
	if f.StartDate != nil {
		arg.StartDate = f.StartDate.String()
	}
	if f.EndDate != nil {
		arg.EndDate = f.EndDate.String()
	}

	res, err := r.queries.ListTransactions(ctx, arg)
	if err != nil {
		return ports.TransactionPage{}, fmt.Errorf("list transactions: %w", err)
	}

	page := ports.TransactionPage{
		Items:      make([]core.Transaction, 0, len(res.Items)),
		Total:      int(res.Total),
		Page:       p.Page,
		TotalPages: ports.TotalPages(int(res.Total), p.PageSize),
	}
	for _, row := range res.Items {
		t, err := toCoreTransaction(row)
		if err != nil {
			return ports.TransactionPage{}, fmt.Errorf("list transactions: %w", err)
		}
		page.Items = append(page.Items, t)
	}
	return page, nil
}

func (r *SQLiteRepository) GetTransaction(ctx context.Context, id string) (core.Transaction, error) {
	n, ok := parseID(id)
	if !ok {
		return core.Transaction{}, ports.ErrNotFound
	}
	row, err := r.queries.GetTransaction(ctx, n)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, ports.ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	return toCoreTransaction(row)
}

func (r *SQLiteRepository) CreateTransaction(ctx context.Context, t core.Transaction) (string, error) {
	id, err := r.queries.CreateTransaction(ctx, CreateTransactionParams{
		AmountCents: t.Amount.Cents,
		Date:        t.Date.String(),
		Description: t.Description,
		Type:        string(t.Type),
		Category:    t.Category,
	})
	if err != nil {
		return "", fmt.Errorf("create transaction: %w", err)
	}

	slog.DebugContext(ctx, "Transaction saved to SQLite",
		"id", id,
		"type", t.Type,
		"amount_cents", t.Amount.Cents,
		"date", t.Date.String())

	return formatID(id), nil
}

func (r *SQLiteRepository) UpdateTransaction(ctx context.Context, id string, t core.Transaction) error {
	n, ok := parseID(id)
	if !ok {
		return nil
	}
	err := r.queries.UpdateTransaction(ctx, UpdateTransactionParams{
		ID:          n,
		AmountCents: t.Amount.Cents,
		Date:        t.Date.String(),
		Description: t.Description,
		Type:        string(t.Type),
		Category:    t.Category,
	})
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, id string) error {
	n, ok := parseID(id)
	if !ok {
		return nil
	}
	if err := r.queries.DeleteTransaction(ctx, n); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) SumByCategory(ctx context.Context, dr ports.DateRange, t core.TransactionType) ([]core.CategoryAmount, error) {
	rows, err := r.queries.SumByCategoryBetween(ctx, SumByCategoryBetweenParams{
		Type:      string(t),
		StartDate: dr.From.String(),
		EndDate:   dr.To.String(),
	})
	if err != nil {
		return nil, fmt.Errorf("sum by category: %w", err)
	}
	return toCategoryAmounts(rows), nil
}

func (r *SQLiteRepository) SumByCategoryForMonth(ctx context.Context, m core.YearMonth, t core.TransactionType) ([]core.CategoryAmount, error) {
	rows, err := r.queries.SumByCategoryForMonth(ctx, SumByCategoryForMonthParams{
		Type:  string(t),
		Year:  int64(m.Year),
		Month: int64(m.Month),
	})
	if err != nil {
		return nil, fmt.Errorf("sum by category for month %s: %w", m, err)
	}
	return toCategoryAmounts(rows), nil
}

func (r *SQLiteRepository) SumByMonth(ctx context.Context, t core.TransactionType) ([]core.MonthAmount, error) {
	rows, err := r.queries.SumByMonth(ctx, string(t))
	if err != nil {
		return nil, fmt.Errorf("sum by month: %w", err)
	}
	out := make([]core.MonthAmount, 0, len(rows))
	for _, ms := range rows {
		m, err := core.ParseYearMonth(ms.Month)
		if err != nil {
			return nil, fmt.Errorf("sum by month: %w", err)
		}
		out = append(out, core.MonthAmount{Month: m, Amount: core.Money{Cents: ms.TotalAmount}})
	}
	return out, nil
}

func (r *SQLiteRepository) budgets(rows []Budget, err error) ([]core.Budget, error) {
	if err != nil {
		return nil, err
	}
	out := make([]core.Budget, 0, len(rows))
	for _, row := range rows {
		b, err := toCoreBudget(row)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}

func (r *SQLiteRepository) ListBudgets(ctx context.Context) ([]core.Budget, error) {
	out, err := r.budgets(r.queries.ListBudgets(ctx))
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	return out, nil
}

func (r *SQLiteRepository) ListBudgetsByMonth(ctx context.Context, m core.YearMonth) ([]core.Budget, error) {
	out, err := r.budgets(r.queries.ListBudgetsByMonth(ctx, m.String()))
	if err != nil {
		return nil, fmt.Errorf("list budgets for %s: %w", m, err)
	}
	return out, nil
}

func (r *SQLiteRepository) GetBudget(ctx context.Context, id string) (core.Budget, error) {
	n, ok := parseID(id)
	if !ok {
		return core.Budget{}, ports.ErrNotFound
	}
	row, err := r.queries.GetBudget(ctx, n)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Budget{}, ports.ErrNotFound
	}
	if err != nil {
		return core.Budget{}, fmt.Errorf("get budget: %w", err)
	}
	return toCoreBudget(row)
}

func (r *SQLiteRepository) CreateBudget(ctx context.Context, b core.Budget) (string, error) {
	id, err := r.queries.CreateBudget(ctx, CreateBudgetParams{
		Category:    b.Category,
		AmountCents: b.Amount.Cents,
		Month:       b.Month.String(),
	})
	if err != nil {
		return "", fmt.Errorf("create budget: %w", err)
	}
	return formatID(id), nil
}

func (r *SQLiteRepository) UpdateBudget(ctx context.Context, id string, b core.Budget) error {
	n, ok := parseID(id)
	if !ok {
		return nil
	}
	err := r.queries.UpdateBudget(ctx, UpdateBudgetParams{
		ID:          n,
		Category:    b.Category,
		AmountCents: b.Amount.Cents,
		Month:       b.Month.String(),
	})
	if err != nil {
		return fmt.Errorf("update budget: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteBudget(ctx context.Context, id string) error {
	n, ok := parseID(id)
	if !ok {
		return nil
	}
	if err := r.queries.DeleteBudget(ctx, n); err != nil {
		return fmt.Errorf("delete budget: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) UpsertBudget(ctx context.Context, b core.Budget) (string, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin upsert budget: %w", err)
	}
	defer tx.Rollback()

	q := r.queries.WithTx(tx)
	id, err := q.FindBudgetID(ctx, FindBudgetIDParams{Category: b.Category, Month: b.Month.String()})
	switch {
	case errors.Is(err, sql.ErrNoRows):
		id, err = q.CreateBudget(ctx, CreateBudgetParams{
			Category:    b.Category,
			AmountCents: b.Amount.Cents,
			Month:       b.Month.String(),
		})
		if err != nil {
			return "", fmt.Errorf("upsert budget: %w", err)
		}
	case err != nil:
		return "", fmt.Errorf("upsert budget: %w", err)
	default:
		err = q.UpdateBudget(ctx, UpdateBudgetParams{
			ID:          id,
			Category:    b.Category,
			AmountCents: b.Amount.Cents,
			Month:       b.Month.String(),
		})
		if err != nil {
			return "", fmt.Errorf("upsert budget: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit upsert budget: %w", err)
	}
	return formatID(id), nil
}

func (r *SQLiteRepository) ListCategories(ctx context.Context) ([]core.Category, error) {
	rows, err := r.queries.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	out := make([]core.Category, 0, len(rows))
	for _, c := range rows {
		out = append(out, core.Category{ID: formatID(c.ID), Name: c.Name})
	}
	return out, nil
}

func (r *SQLiteRepository) CreateCategory(ctx context.Context, name string) (string, error) {
	id, err := r.queries.CreateCategory(ctx, name)
	if err != nil {
		return "", fmt.Errorf("create category: %w", err)
	}
	return formatID(id), nil
}

func (r *SQLiteRepository) RenameCategory(ctx context.Context, id, name string) error {
	n, ok := parseID(id)
	if !ok {
		return nil
	}
	if err := r.queries.RenameCategory(ctx, RenameCategoryParams{ID: n, Name: name}); err != nil {
		return fmt.Errorf("rename category: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteCategory(ctx context.Context, id string) error {
	n, ok := parseID(id)
	if !ok {
		return nil
	}
	if err := r.queries.DeleteCategory(ctx, n); err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	return nil
}
