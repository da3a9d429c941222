package worker

import (
	"context"
	"errors"
	"fmt"

	"saldo/internal/amqp"
	"saldo/internal/core"
	"saldo/internal/log"
	"saldo/internal/ports"
)

// Exporter mirrors transactions to an external sheet.
type Exporter interface {
	Upsert(ctx context.Context, t core.Transaction, label core.CategoryLabel) (string, error)
	Delete(ctx context.Context, id string) error
}

// SyncWorker applies ledger events to the exporter, reading the current state
// of each entity from the repository.
type SyncWorker struct {
	repo     ports.Repository
	exporter Exporter
	logger   *log.Logger
}

func NewSyncWorker(repo ports.Repository, exporter Exporter, logger *log.Logger) *SyncWorker {
	if logger == nil {
		logger = log.Discard()
	}
	return &SyncWorker{
		repo:     repo,
		exporter: exporter,
		logger:   logger.WithComponent(log.ComponentWorker),
	}
}

// HandleLedgerEvent is the AMQP consumer callback.
func (w *SyncWorker) HandleLedgerEvent(ctx context.Context, msg *amqp.LedgerEventMessage) error {
	return w.Apply(ctx, msg.LedgerEvent)
}

// Apply mirrors one event. A returned error means the event should be
// retried.
func (w *SyncWorker) Apply(ctx context.Context, e ports.LedgerEvent) error {
	w.logger.InfoContext(ctx, "Processing ledger event",
		log.FieldOwnerID, e.OwnerID,
		log.FieldEventType, string(e.Type),
		log.FieldEntity, string(e.Entity),
		"entity_id", e.EntityID)

	switch e.Entity {
	case ports.EntityTransaction:
		if e.Type == ports.EventDeleted {
			return w.deleteTransaction(ctx, e.EntityID)
		}
		return w.syncTransaction(ctx, e.OwnerID, e.EntityID)
	case ports.EntityCategory:
		if e.Type == ports.EventCreated {
			return nil
		}
		// Rows show the category name; rewrite the ones filed under it.
		return w.syncCategory(ctx, e.OwnerID, e.EntityID)
	default:
		w.logger.WarnContext(ctx, "Ignoring event for unknown entity", log.FieldEntity, string(e.Entity))
		return nil
	}
}

func (w *SyncWorker) syncTransaction(ctx context.Context, ownerID, id string) error {
	t, err := w.repo.GetTransaction(ctx, ownerID, id)
	if errors.Is(err, core.ErrNotFound) {
		// Deleted after the event was published; the delete event follows.
		return w.deleteTransaction(ctx, id)
	}
	if err != nil {
		return fmt.Errorf("get transaction %s: %w", id, err)
	}
	cats, err := w.repo.ListCategories(ctx, ownerID)
	if err != nil {
		return fmt.Errorf("list categories: %w", err)
	}
	return w.upsert(ctx, t, cats)
}

func (w *SyncWorker) syncCategory(ctx context.Context, ownerID, categoryID string) error {
	txs, err := w.repo.ListTransactions(ctx, ownerID)
	if err != nil {
		return fmt.Errorf("list transactions: %w", err)
	}
	cats, err := w.repo.ListCategories(ctx, ownerID)
	if err != nil {
		return fmt.Errorf("list categories: %w", err)
	}
	for _, t := range txs {
		if t.CategoryID != categoryID {
			continue
		}
		if err := w.upsert(ctx, t, cats); err != nil {
			return err
		}
	}
	return nil
}

// Resync writes every transaction of ownerID and returns how many were written.
func (w *SyncWorker) Resync(ctx context.Context, ownerID string) (int, error) {
	txs, err := w.repo.ListTransactions(ctx, ownerID)
	if err != nil {
		return 0, fmt.Errorf("list transactions: %w", err)
	}
	cats, err := w.repo.ListCategories(ctx, ownerID)
	if err != nil {
		return 0, fmt.Errorf("list categories: %w", err)
	}
	for i, t := range txs {
		if err := ctx.Err(); err != nil {
			return i, err
		}
		if err := w.upsert(ctx, t, cats); err != nil {
			return i, err
		}
	}
	w.logger.InfoContext(ctx, "Resync completed", log.FieldOwnerID, ownerID, "count", len(txs))
	return len(txs), nil
}

func (w *SyncWorker) upsert(ctx context.Context, t core.Transaction, cats []core.Category) error {
	ref, err := w.exporter.Upsert(ctx, t, core.ResolveCategory(cats, t.CategoryID))
	if err != nil {
		return fmt.Errorf("upsert transaction %s: %w", t.ID, err)
	}
	w.logger.InfoContext(ctx, "Transaction mirrored",
		log.FieldTransactionID, t.ID,
		log.FieldSheetsRef, ref,
		log.FieldAmountCents, t.Amount.Cents)
	return nil
}

func (w *SyncWorker) deleteTransaction(ctx context.Context, id string) error {
	if err := w.exporter.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete transaction %s: %w", id, err)
	}
	w.logger.InfoContext(ctx, "Transaction removed from sheet", log.FieldTransactionID, id)
	return nil
}
