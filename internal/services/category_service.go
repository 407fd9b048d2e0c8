package services

import (
	"context"
	"fmt"
	"log/slog"

	"fintrack/internal/core"
	"fintrack/internal/ports"
)

type CategoryService struct {
	store    ports.CategoryStore
	notifier ChangeNotifier
}

func NewCategoryService(store ports.CategoryStore, notifier ChangeNotifier) *CategoryService {
	return &CategoryService{store: store, notifier: notifier}
}

func (s *CategoryService) List(ctx context.Context) ([]core.Category, error) {
	return s.store.ListCategories(ctx)
}

func (s *CategoryService) Create(ctx context.Context, name string) (string, error) {
	name, err := core.ParseCategoryName(name)
	if err != nil {
		return "", err
	}
	id, err := s.store.CreateCategory(ctx, name)
	if err != nil {
		return "", fmt.Errorf("save category: %w", err)
	}
	notify(ctx, s.notifier, core.Change{Entity: core.EntityCategory, Action: core.ActionCreated, ID: id})
	return id, nil
}

// Rename changes the display name only; transactions and budgets keep the
// name they were written with.
func (s *CategoryService) Rename(ctx context.Context, id, name string) error {
	name, err := core.ParseCategoryName(name)
	if err != nil {
		return err
	}
	if err := s.store.RenameCategory(ctx, id, name); err != nil {
		return fmt.Errorf("rename category: %w", err)
	}
	notify(ctx, s.notifier, core.Change{Entity: core.EntityCategory, Action: core.ActionUpdated, ID: id})
	return nil
}

func (s *CategoryService) Delete(ctx context.Context, id string) error {
	if err := s.store.DeleteCategory(ctx, id); err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	notify(ctx, s.notifier, core.Change{Entity: core.EntityCategory, Action: core.ActionDeleted, ID: id})
	return nil
}

// Seed creates every name in names that is not a category yet and returns
// how many were added.
func (s *CategoryService) Seed(ctx context.Context, names []string) (int, error) {
	existing, err := s.store.ListCategories(ctx)
	if err != nil {
		return 0, fmt.Errorf("list categories: %w", err)
	}
	seen := make(map[string]struct{}, len(existing))
	for _, c := range existing {
		seen[c.Name] = struct{}{}
	}

	added := 0
	for _, name := range names {
		name, err := core.ParseCategoryName(name)
		if err != nil {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		if _, err := s.Create(ctx, name); err != nil {
			return added, err
		}
		seen[name] = struct{}{}
		added++
	}
	slog.InfoContext(ctx, "Categories seeded", "added", added, "existing", len(existing))
	return added, nil
}
