// Package memory is an in-process ports.Store used for development and tests.
package memory

import (
	"bufio"
	"cmp"
	"context"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"

	"fintrack/internal/core"
	"fintrack/internal/ports"
)

var DefaultCategories = []string{"Food", "Housing", "Transport", "Utilities", "Entertainment", "Salary"}

type (
	txRecord struct {
		seq int64
		tx  core.Transaction
	}

	budgetRecord struct {
		seq    int64
		budget core.Budget
	}

	Store struct {
		mu      sync.Mutex
		seq     int64
		txs     map[string]txRecord
		budgets map[string]budgetRecord
		cats    map[string]core.Category
	}
)

var _ ports.Store = (*Store)(nil)

func New(categories []string) *Store {
	s := &Store{
		txs:     map[string]txRecord{},
		budgets: map[string]budgetRecord{},
		cats:    map[string]core.Category{},
	}
	for _, name := range dedupe(categories) {
		id := newID()
		s.cats[id] = core.Category{ID: id, Name: name}
	}
	return s
}

// NewFromFiles seeds categories from base/seed_categories.txt, falling back to
// DefaultCategories when the file is missing or empty.
func NewFromFiles(base string) *Store {
	return New(SeedCategories(base))
}

// SeedCategories reads one category per line, skipping blanks and # comments.
func SeedCategories(base string) []string {
	cats := readLines(filepath.Join(base, "seed_categories.txt"))
	if len(cats) == 0 {
		cats = DefaultCategories
	}
	return cats
}

func newID() string {
	return uuid.NewString()
}

func (s *Store) nextSeq() int64 {
	s.seq++
	return s.seq
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }

func matches(f ports.TransactionFilter, t core.Transaction) bool {
	if f.Type != "" && t.Type != f.Type {
		return false
	}
	if f.Category != "" && t.Category != f.Category {
		return false
	}
	if f.Description != "" && !strings.Contains(strings.ToLower(t.Description), strings.ToLower(f.Description)) {
		return false
	}
	if f.StartDate != nil && t.Date.Before(f.StartDate.Time) {
		return false
	}
	if f.EndDate != nil && t.Date.After(f.EndDate.Time) {
		return false
	}
	return true
}

func (s *Store) ListTransactions(_ context.Context, f ports.TransactionFilter, p ports.PageRequest) (ports.TransactionPage, error) {
	p = p.Normalize()
	s.mu.Lock()
	var hits []txRecord
	for _, r := range s.txs {
		if matches(f, r.tx) {
			hits = append(hits, r)
		}
	}
	s.mu.Unlock()

	slices.SortFunc(hits, func(a, b txRecord) int {
		if c := b.tx.Date.Compare(a.tx.Date.Time); c != 0 {
			return c
		}
		return cmp.Compare(b.seq, a.seq)
	})

	out := ports.TransactionPage{
		Items:      []core.Transaction{},
		Total:      len(hits),
		Page:       p.Page,
		TotalPages: ports.TotalPages(len(hits), p.PageSize),
	}
	if start := p.Offset(); start >= 0 && start < len(hits) {
		end := start + min(p.PageSize, len(hits)-start)
		for _, r := range hits[start:end] {
			out.Items = append(out.Items, r.tx)
		}
	}
	return out, nil
}

func (s *Store) GetTransaction(_ context.Context, id string) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.txs[id]
	if !ok {
		return core.Transaction{}, ports.ErrNotFound
	}
	return r.tx, nil
}

func (s *Store) CreateTransaction(_ context.Context, t core.Transaction) (string, error) {
	if err := t.Validate(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t.ID = newID()
	s.txs[t.ID] = txRecord{seq: s.nextSeq(), tx: t}
	return t.ID, nil
}

func (s *Store) UpdateTransaction(_ context.Context, id string, t core.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.txs[id]
	if !ok {
		return nil
	}
	t.ID = id
	r.tx = t
	s.txs[id] = r
	return nil
}

func (s *Store) DeleteTransaction(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.txs, id)
	return nil
}

func (s *Store) sumByCategory(keep func(core.Transaction) bool) []core.CategoryAmount {
	s.mu.Lock()
	sums := map[string]int64{}
	for _, r := range s.txs {
		if keep(r.tx) {
			sums[r.tx.Category] += r.tx.Amount.Cents
		}
	}
	s.mu.Unlock()

	out := make([]core.CategoryAmount, 0, len(sums))
	for name, cents := range sums {
		out = append(out, core.CategoryAmount{Name: name, Amount: core.Money{Cents: cents}})
	}
	slices.SortFunc(out, func(a, b core.CategoryAmount) int { return cmp.Compare(a.Name, b.Name) })
	return out
}

func (s *Store) SumByCategory(_ context.Context, r ports.DateRange, t core.TransactionType) ([]core.CategoryAmount, error) {
	return s.sumByCategory(func(tx core.Transaction) bool {
		return tx.Type == t && r.Contains(tx.Date)
	}), nil
}

func (s *Store) SumByCategoryForMonth(_ context.Context, m core.YearMonth, t core.TransactionType) ([]core.CategoryAmount, error) {
	return s.sumByCategory(func(tx core.Transaction) bool {
		return tx.Type == t && m.Contains(tx.Date)
	}), nil
}

func (s *Store) SumByMonth(_ context.Context, t core.TransactionType) ([]core.MonthAmount, error) {
	s.mu.Lock()
	sums := map[core.YearMonth]int64{}
	for _, r := range s.txs {
		if r.tx.Type == t {
			sums[r.tx.Date.YearMonth()] += r.tx.Amount.Cents
		}
	}
	s.mu.Unlock()

	out := make([]core.MonthAmount, 0, len(sums))
	for m, cents := range sums {
		out = append(out, core.MonthAmount{Month: m, Amount: core.Money{Cents: cents}})
	}
	slices.SortFunc(out, func(a, b core.MonthAmount) int {
		switch {
		case a.Month.Before(b.Month):
			return -1
		case b.Month.Before(a.Month):
			return 1
		}
		return 0
	})
	return out, nil
}

// sortedBudgets returns budgets ordered by month, category and insertion.
func (s *Store) sortedBudgets(keep func(core.Budget) bool) []core.Budget {
	s.mu.Lock()
	recs := make([]budgetRecord, 0, len(s.budgets))
	for _, r := range s.budgets {
		if keep(r.budget) {
			recs = append(recs, r)
		}
	}
	s.mu.Unlock()

	slices.SortFunc(recs, func(a, b budgetRecord) int {
		if a.budget.Month != b.budget.Month {
			if a.budget.Month.Before(b.budget.Month) {
				return -1
			}
			return 1
		}
		if c := cmp.Compare(a.budget.Category, b.budget.Category); c != 0 {
			return c
		}
		return cmp.Compare(a.seq, b.seq)
	})
	out := make([]core.Budget, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.budget)
	}
	return out
}

func (s *Store) ListBudgets(context.Context) ([]core.Budget, error) {
	return s.sortedBudgets(func(core.Budget) bool { return true }), nil
}

func (s *Store) ListBudgetsByMonth(_ context.Context, m core.YearMonth) ([]core.Budget, error) {
	return s.sortedBudgets(func(b core.Budget) bool { return b.Month == m }), nil
}

func (s *Store) GetBudget(_ context.Context, id string) (core.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.budgets[id]
	if !ok {
		return core.Budget{}, ports.ErrNotFound
	}
	return r.budget, nil
}

func (s *Store) CreateBudget(_ context.Context, b core.Budget) (string, error) {
	if err := b.Validate(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	b.ID = newID()
	s.budgets[b.ID] = budgetRecord{seq: s.nextSeq(), budget: b}
	return b.ID, nil
}

func (s *Store) UpdateBudget(_ context.Context, id string, b core.Budget) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.budgets[id]
	if !ok {
		return nil
	}
	b.ID = id
	r.budget = b
	s.budgets[id] = r
	return nil
}

func (s *Store) DeleteBudget(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.budgets, id)
	return nil
}

// UpsertBudget holds the store lock across lookup and write, so concurrent
// upserts for the same key never create two records.
func (s *Store) UpsertBudget(_ context.Context, b core.Budget) (string, error) {
	if err := b.Validate(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var (
		found  budgetRecord
		hasOne bool
	)
	for _, r := range s.budgets {
		if r.budget.Category == b.Category && r.budget.Month == b.Month {
			if !hasOne || r.seq < found.seq {
				found, hasOne = r, true
			}
		}
	}
	if !hasOne {
		b.ID = newID()
		s.budgets[b.ID] = budgetRecord{seq: s.nextSeq(), budget: b}
		return b.ID, nil
	}
	b.ID = found.budget.ID
	found.budget = b
	s.budgets[b.ID] = found
	return b.ID, nil
}

func (s *Store) ListCategories(context.Context) ([]core.Category, error) {
	s.mu.Lock()
	out := make([]core.Category, 0, len(s.cats))
	for _, c := range s.cats {
		out = append(out, c)
	}
	s.mu.Unlock()
	slices.SortFunc(out, func(a, b core.Category) int {
		if c := cmp.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out, nil
}

func (s *Store) CreateCategory(_ context.Context, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", core.ErrEmptyCategoryName
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	id := newID()
	s.cats[id] = core.Category{ID: id, Name: name}
	return id, nil
}

func (s *Store) RenameCategory(_ context.Context, id, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.cats[id]; !ok {
		return nil
	}
	s.cats[id] = core.Category{ID: id, Name: name}
	return nil
}

func (s *Store) DeleteCategory(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.cats, id)
	return nil
}

func readLines(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return dedupe(out)
}

func dedupe(in []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
