package storage

import (
	"context"
	"database/sql"
	"strings"
)

type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

type Transaction struct {
	ID          int64
	AmountCents int64
	Date        string
	Description string
	Type        string
	Category    string
}

type Budget struct {
	ID          int64
	Category    string
	AmountCents int64
	Month       string
}

type Category struct {
	ID   int64
	Name string
}

type CategorySum struct {
	Category    string
	TotalAmount int64
}

type MonthSum struct {
	Month       string
	TotalAmount int64
}

const createTransaction = `
INSERT INTO transactions (amount_cents, date, description, type, category)
VALUES (?, ?, ?, ?, ?)
RETURNING id`

type CreateTransactionParams struct {
	AmountCents int64
	Date        string
	Description string
	Type        string
	Category    string
}

func (q *Queries) CreateTransaction(ctx context.Context, arg CreateTransactionParams) (int64, error) {
	row := q.db.QueryRowContext(ctx, createTransaction,
		arg.AmountCents,
		arg.Date,
		arg.Description,
		arg.Type,
		arg.Category,
	)
	var id int64
	err := row.Scan(&id)
	return id, err
}

const getTransaction = `
SELECT id, amount_cents, date, description, type, category
FROM transactions
WHERE id = ?`

func (q *Queries) GetTransaction(ctx context.Context, id int64) (Transaction, error) {
	row := q.db.QueryRowContext(ctx, getTransaction, id)
	var i Transaction
	err := row.Scan(
		&i.ID,
		&i.AmountCents,
		&i.Date,
		&i.Description,
		&i.Type,
		&i.Category,
	)
	return i, err
}

const updateTransaction = `
UPDATE transactions
SET amount_cents = ?, date = ?, description = ?, type = ?, category = ?, updated_at = CURRENT_TIMESTAMP
WHERE id = ?`

type UpdateTransactionParams struct {
	ID          int64
	AmountCents int64
	Date        string
	Description string
	Type        string
	Category    string
}

func (q *Queries) UpdateTransaction(ctx context.Context, arg UpdateTransactionParams) error {
	_, err := q.db.ExecContext(ctx, updateTransaction,
		arg.AmountCents,
		arg.Date,
		arg.Description,
		arg.Type,
		arg.Category,
		arg.ID,
	)
	return err
}

const deleteTransaction = `DELETE FROM transactions WHERE id = ?`

func (q *Queries) DeleteTransaction(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, deleteTransaction, id)
	return err
}

type ListTransactionsParams struct {
	Type        string
	Description string
	StartDate   string
	EndDate     string
	Category    string
	Limit       int64
	Offset      int64
}

type ListTransactionsResult struct {
	Total int64
	Items []Transaction
}

// ListTransactions counts the filtered set and reads one page of it in a
// single statement. The count row is always present, page columns are NULL
// when the page is past the end.
func (q *Queries) ListTransactions(ctx context.Context, arg ListTransactionsParams) (ListTransactionsResult, error) {
	var (
		where []string
		args  []interface{}
	)
	if arg.Type != "" {
		where = append(where, "type = ?")
		args = append(args, arg.Type)
	}
	if arg.Description != "" {
		where = append(where, "instr("+foldFunc+"(description), "+foldFunc+"(?)) > 0")
		args = append(args, arg.Description)
	}
	if arg.StartDate != "" {
		where = append(where, "date >= ?")
		args = append(args, arg.StartDate)
	}
	if arg.EndDate != "" {
		where = append(where, "date <= ?")
		args = append(args, arg.EndDate)
	}
	if arg.Category != "" {
		where = append(where, "category = ?")
		args = append(args, arg.Category)
	}
	cond := "1 = 1"
	if len(where) > 0 {
		cond = strings.Join(where, " AND ")
	}

	query := `
WITH filtered AS (
    SELECT id, amount_cents, date, description, type, category
    FROM transactions
    WHERE ` + cond + `
)
SELECT total.n, p.id, p.amount_cents, p.date, p.description, p.type, p.category
FROM (SELECT COUNT(*) AS n FROM filtered) AS total
LEFT JOIN (
    SELECT * FROM filtered ORDER BY date DESC, id DESC LIMIT ? OFFSET ?
) AS p ON 1 = 1
ORDER BY p.date DESC, p.id DESC`
	args = append(args, arg.Limit, arg.Offset)

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return ListTransactionsResult{}, err
	}
	defer rows.Close()

	var out ListTransactionsResult
	for rows.Next() {
		var (
			id, amount                sql.NullInt64
			date, desc, typ, category sql.NullString
		)
		if err := rows.Scan(&out.Total, &id, &amount, &date, &desc, &typ, &category); err != nil {
			return ListTransactionsResult{}, err
		}
		if !id.Valid {
			continue
		}
		out.Items = append(out.Items, Transaction{
			ID:          id.Int64,
			AmountCents: amount.Int64,
			Date:        date.String,
			Description: desc.String,
			Type:        typ.String,
			Category:    category.String,
		})
	}
	if err := rows.Close(); err != nil {
		return ListTransactionsResult{}, err
	}
	if err := rows.Err(); err != nil {
		return ListTransactionsResult{}, err
	}
	return out, nil
}

const sumByCategoryBetween = `
SELECT category, CAST(SUM(amount_cents) AS INTEGER) AS total_amount
FROM transactions
WHERE type = ? AND date >= ? AND date <= ?
GROUP BY category
ORDER BY category`

type SumByCategoryBetweenParams struct {
	Type      string
	StartDate string
	EndDate   string
}

func (q *Queries) SumByCategoryBetween(ctx context.Context, arg SumByCategoryBetweenParams) ([]CategorySum, error) {
	return q.categorySums(ctx, sumByCategoryBetween, arg.Type, arg.StartDate, arg.EndDate)
}

const sumByCategoryForMonth = `
SELECT category, CAST(SUM(amount_cents) AS INTEGER) AS total_amount
FROM transactions
WHERE type = ?
  AND CAST(strftime('%Y', date) AS INTEGER) = ?
  AND CAST(strftime('%m', date) AS INTEGER) = ?
GROUP BY category
ORDER BY category`

type SumByCategoryForMonthParams struct {
	Type  string
	Year  int64
	Month int64
}

func (q *Queries) SumByCategoryForMonth(ctx context.Context, arg SumByCategoryForMonthParams) ([]CategorySum, error) {
	return q.categorySums(ctx, sumByCategoryForMonth, arg.Type, arg.Year, arg.Month)
}

func (q *Queries) categorySums(ctx context.Context, query string, args ...interface{}) ([]CategorySum, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []CategorySum
	for rows.Next() {
		var i CategorySum
		if err := rows.Scan(&i.Category, &i.TotalAmount); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const sumByMonth = `
SELECT strftime('%Y-%m', date) AS month, CAST(SUM(amount_cents) AS INTEGER) AS total_amount
FROM transactions
WHERE type = ?
GROUP BY month
ORDER BY month`

func (q *Queries) SumByMonth(ctx context.Context, typ string) ([]MonthSum, error) {
	rows, err := q.db.QueryContext(ctx, sumByMonth, typ)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []MonthSum
	for rows.Next() {
		var i MonthSum
		if err := rows.Scan(&i.Month, &i.TotalAmount); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listBudgets = `
SELECT id, category, amount_cents, month
FROM budgets
ORDER BY month, category, id`

func (q *Queries) ListBudgets(ctx context.Context) ([]Budget, error) {
	return q.budgets(ctx, listBudgets)
}

const listBudgetsByMonth = `
SELECT id, category, amount_cents, month
FROM budgets
WHERE month = ?
ORDER BY category, id`

func (q *Queries) ListBudgetsByMonth(ctx context.Context, month string) ([]Budget, error) {
	return q.budgets(ctx, listBudgetsByMonth, month)
}

const getBudget = `
SELECT id, category, amount_cents, month
FROM budgets
WHERE id = ?`

func (q *Queries) GetBudget(ctx context.Context, id int64) (Budget, error) {
	row := q.db.QueryRowContext(ctx, getBudget, id)
	var i Budget
	err := row.Scan(&i.ID, &i.Category, &i.AmountCents, &i.Month)
	return i, err
}

func (q *Queries) budgets(ctx context.Context, query string, args ...interface{}) ([]Budget, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Budget
	for rows.Next() {
		var i Budget
		if err := rows.Scan(&i.ID, &i.Category, &i.AmountCents, &i.Month); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const createBudget = `
INSERT INTO budgets (category, amount_cents, month)
VALUES (?, ?, ?)
RETURNING id`

type CreateBudgetParams struct {
	Category    string
	AmountCents int64
	Month       string
}

func (q *Queries) CreateBudget(ctx context.Context, arg CreateBudgetParams) (int64, error) {
	row := q.db.QueryRowContext(ctx, createBudget, arg.Category, arg.AmountCents, arg.Month)
	var id int64
	err := row.Scan(&id)
	return id, err
}

const updateBudget = `
UPDATE budgets
SET category = ?, amount_cents = ?, month = ?, updated_at = CURRENT_TIMESTAMP
WHERE id = ?`

type UpdateBudgetParams struct {
	ID          int64
	Category    string
	AmountCents int64
	Month       string
}

func (q *Queries) UpdateBudget(ctx context.Context, arg UpdateBudgetParams) error {
	_, err := q.db.ExecContext(ctx, updateBudget, arg.Category, arg.AmountCents, arg.Month, arg.ID)
	return err
}

const deleteBudget = `DELETE FROM budgets WHERE id = ?`

func (q *Queries) DeleteBudget(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, deleteBudget, id)
	return err
}

const findBudgetID = `
SELECT id FROM budgets
WHERE category = ? AND month = ?
ORDER BY id
LIMIT 1`

type FindBudgetIDParams struct {
	Category string
	Month    string
}

func (q *Queries) FindBudgetID(ctx context.Context, arg FindBudgetIDParams) (int64, error) {
	row := q.db.QueryRowContext(ctx, findBudgetID, arg.Category, arg.Month)
	var id int64
	err := row.Scan(&id)
	return id, err
}

const listCategories = `SELECT id, name FROM categories ORDER BY name, id`

func (q *Queries) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := q.db.QueryContext(ctx, listCategories)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Category
	for rows.Next() {
		var i Category
		if err := rows.Scan(&i.ID, &i.Name); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const createCategory = `INSERT INTO categories (name) VALUES (?) RETURNING id`

func (q *Queries) CreateCategory(ctx context.Context, name string) (int64, error) {
	row := q.db.QueryRowContext(ctx, createCategory, name)
	var id int64
	err := row.Scan(&id)
	return id, err
}

const renameCategory = `UPDATE categories SET name = ? WHERE id = ?`

type RenameCategoryParams struct {
	ID   int64
	Name string
}

func (q *Queries) RenameCategory(ctx context.Context, arg RenameCategoryParams) error {
	_, err := q.db.ExecContext(ctx, renameCategory, arg.Name, arg.ID)
	return err
}

const deleteCategory = `DELETE FROM categories WHERE id = ?`

func (q *Queries) DeleteCategory(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, deleteCategory, id)
	return err
}
