package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"fintrack/internal/core"
	"fintrack/internal/ports"
)

type BudgetService struct {
	store    ports.BudgetStore
	notifier ChangeNotifier
}

func NewBudgetService(store ports.BudgetStore, notifier ChangeNotifier) *BudgetService {
	return &BudgetService{store: store, notifier: notifier}
}

// List returns every budget, or only those of month when it is set.
func (s *BudgetService) List(ctx context.Context, month *core.YearMonth) ([]core.Budget, error) {
	if month != nil {
		return s.store.ListBudgetsByMonth(ctx, *month)
	}
	return s.store.ListBudgets(ctx)
}

func (s *BudgetService) Create(ctx context.Context, in core.BudgetInput) (string, error) {
	b, err := core.ParseBudgetInput(in)
	if err != nil {
		return "", err
	}
	id, err := s.store.CreateBudget(ctx, b)
	if err != nil {
		return "", fmt.Errorf("save budget: %w", err)
	}
	notify(ctx, s.notifier, core.Change{Entity: core.EntityBudget, Action: core.ActionCreated, ID: id, Month: monthPtr(b.Month)})
	return id, nil
}

// Upsert sets the budget of (category, month), creating it if needed.
func (s *BudgetService) Upsert(ctx context.Context, in core.BudgetInput) (string, error) {
	b, err := core.ParseBudgetInput(in)
	if err != nil {
		return "", err
	}
	id, err := s.store.UpsertBudget(ctx, b)
	if err != nil {
		return "", fmt.Errorf("upsert budget: %w", err)
	}
	notify(ctx, s.notifier, core.Change{Entity: core.EntityBudget, Action: core.ActionUpdated, ID: id, Month: monthPtr(b.Month)})
	return id, nil
}

// Update replaces every field of the budget. When the month changes both
// months are announced. A missing id is a no-op.
func (s *BudgetService) Update(ctx context.Context, id string, in core.BudgetInput) error {
	b, err := core.ParseBudgetInput(in)
	if err != nil {
		return err
	}
	prev, found := s.lookup(ctx, id)
	if err := s.store.UpdateBudget(ctx, id, b); err != nil {
		return fmt.Errorf("update budget: %w", err)
	}
	if !found {
		return nil
	}
	notify(ctx, s.notifier, core.Change{Entity: core.EntityBudget, Action: core.ActionUpdated, ID: id, Month: monthPtr(b.Month)})
	if prev.Month != b.Month {
		notify(ctx, s.notifier, core.Change{Entity: core.EntityBudget, Action: core.ActionUpdated, ID: id, Month: monthPtr(prev.Month)})
	}
	return nil
}

// Delete removes the budget and announces the month it belonged to.
// Deleting a missing id succeeds silently.
func (s *BudgetService) Delete(ctx context.Context, id string) error {
	prev, found := s.lookup(ctx, id)
	if err := s.store.DeleteBudget(ctx, id); err != nil {
		return fmt.Errorf("delete budget: %w", err)
	}
	if found {
		notify(ctx, s.notifier, core.Change{Entity: core.EntityBudget, Action: core.ActionDeleted, ID: id, Month: monthPtr(prev.Month)})
	}
	return nil
}

func (s *BudgetService) lookup(ctx context.Context, id string) (core.Budget, bool) {
	b, err := s.store.GetBudget(ctx, id)
	if err != nil {
		if !errors.Is(err, ports.ErrNotFound) {
			slog.WarnContext(ctx, "Failed to read budget before write", "id", id, "error", err)
		}
		return core.Budget{}, false
	}
	return b, true
}
