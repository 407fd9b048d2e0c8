package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/ports"
)

// TransactionService validates transaction payloads, writes them to the
// store and announces the change.
type TransactionService struct {
	store       ports.TransactionStore
	notifier    ChangeNotifier
	maxPageSize int
}

func NewTransactionService(store ports.TransactionStore, notifier ChangeNotifier, maxPageSize int) *TransactionService {
	return &TransactionService{store: store, notifier: notifier, maxPageSize: maxPageSize}
}

// List returns one page of transactions. The page size is capped at the
// configured maximum.
func (s *TransactionService) List(ctx context.Context, f ports.TransactionFilter, p ports.PageRequest) (ports.TransactionPage, error) {
	p = p.Normalize()
	if s.maxPageSize > 0 && p.PageSize > s.maxPageSize {
		p.PageSize = s.maxPageSize
	}
	return s.store.ListTransactions(ctx, f, p)
}

func (s *TransactionService) Get(ctx context.Context, id string) (core.Transaction, error) {
	return s.store.GetTransaction(ctx, id)
}

// Create validates in and stores it. Validation failures never reach the store.
func (s *TransactionService) Create(ctx context.Context, in core.TransactionInput) (string, error) {
	tx, err := core.ParseTransactionInput(in)
	if err != nil {
		return "", err
	}
	id, err := s.store.CreateTransaction(ctx, tx)
	if err != nil {
		return "", fmt.Errorf("save transaction: %w", err)
	}

	fields := log.NewFields().
		WithTransaction(id, string(tx.Type), tx.Amount.Cents, tx.Category).
		WithOperation(log.OpCreate)
	slog.InfoContext(ctx, "Transaction created", fields.ToSlice()...)

	notify(ctx, s.notifier, core.Change{
		Entity: core.EntityTransaction,
		Action: core.ActionCreated,
		ID:     id,
		Month:  monthPtr(tx.Date.YearMonth()),
	})
	return id, nil
}

// Update replaces every field of the transaction. A missing id is a no-op.
func (s *TransactionService) Update(ctx context.Context, id string, in core.TransactionInput) error {
	tx, err := core.ParseTransactionInput(in)
	if err != nil {
		return err
	}
	prev, found := s.lookup(ctx, id)
	if err := s.store.UpdateTransaction(ctx, id, tx); err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	if !found {
		return nil
	}

	newMonth := tx.Date.YearMonth()
	notify(ctx, s.notifier, core.Change{Entity: core.EntityTransaction, Action: core.ActionUpdated, ID: id, Month: &newMonth})
	if oldMonth := prev.Date.YearMonth(); oldMonth != newMonth {
		notify(ctx, s.notifier, core.Change{Entity: core.EntityTransaction, Action: core.ActionUpdated, ID: id, Month: &oldMonth})
	}
	return nil
}

// Delete removes the transaction. Deleting a missing id succeeds.
func (s *TransactionService) Delete(ctx context.Context, id string) error {
	prev, found := s.lookup(ctx, id)
	if err := s.store.DeleteTransaction(ctx, id); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if found {
		notify(ctx, s.notifier, core.Change{
			Entity: core.EntityTransaction,
			Action: core.ActionDeleted,
			ID:     id,
			Month:  monthPtr(prev.Date.YearMonth()),
		})
	}
	return nil
}

// lookup reads the stored record to learn which month a write touches.
// Lookup failures only cost the notification, never the write.
func (s *TransactionService) lookup(ctx context.Context, id string) (core.Transaction, bool) {
	tx, err := s.store.GetTransaction(ctx, id)
	if err != nil {
		if !errors.Is(err, ports.ErrNotFound) {
			slog.WarnContext(ctx, "Failed to read transaction before write", "id", id, "error", err)
		}
		return core.Transaction{}, false
	}
	return tx, true
}
