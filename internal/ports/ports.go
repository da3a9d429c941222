package ports

import (
	"context"
	"time"

	"saldo/internal/core"
)

// Ports for outbound adapters.
type (
	// TransactionRepository persists transactions. Lists are ordered by
	// OccurredOn descending, then CreatedAt descending. Lookups of missing
	// rows return an error wrapping core.ErrNotFound.
	TransactionRepository interface {
		ListTransactions(ctx context.Context, ownerID string) ([]core.Transaction, error)
		GetTransaction(ctx context.Context, ownerID, id string) (core.Transaction, error)
		CreateTransaction(ctx context.Context, t core.Transaction) error
		UpdateTransaction(ctx context.Context, t core.Transaction) error
		DeleteTransaction(ctx context.Context, ownerID, id string) error
	}

	// CategoryRepository persists categories, ordered by creation time.
	CategoryRepository interface {
		ListCategories(ctx context.Context, ownerID string) ([]core.Category, error)
		GetCategory(ctx context.Context, ownerID, id string) (core.Category, error)
		CreateCategory(ctx context.Context, c core.Category) error
		UpdateCategory(ctx context.Context, c core.Category) error
		DeleteCategory(ctx context.Context, ownerID, id string) error
		// SeedCategories stores seeds as one atomic step, skipping any
		// default category the owner already has under the same name, and
		// returns all categories of the owner.
		SeedCategories(ctx context.Context, ownerID string, seeds []core.Category) ([]core.Category, error)
	}

	Repository interface {
		TransactionRepository
		CategoryRepository
	}

	// EventPublisher forwards ledger changes to other processes.
	EventPublisher interface {
		PublishLedgerEvent(ctx context.Context, e LedgerEvent) error
	}

	// Notifier pushes ledger changes to connected clients of an owner.
	Notifier interface {
		Notify(ownerID string, e LedgerEvent)
	}
)

type (
	EventType  string
	EntityType string
)

const (
	EventCreated EventType = "created"
	EventUpdated EventType = "updated"
	EventDeleted EventType = "deleted"

	EntityTransaction EntityType = "transaction"
	EntityCategory    EntityType = "category"
)

// LedgerEvent describes one accepted mutation.
type LedgerEvent struct {
	Type      EventType  `json:"type"`
	Entity    EntityType `json:"entity"`
	OwnerID   string     `json:"owner_id"`
	EntityID  string     `json:"entity_id"`
	Month     int        `json:"month"` // 0-11, transactions only
	Year      int        `json:"year"`
	Timestamp time.Time  `json:"timestamp"`
	// Origin identifies the process that made the change.
	Origin string `json:"origin,omitempty"`
}
