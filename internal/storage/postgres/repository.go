// Package postgres implements the ledger repositories on PostgreSQL through a
// pgx connection pool.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"saldo/internal/core"
)

type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository migrates the schema and opens a pool on url.
func NewRepository(ctx context.Context, url string) (*Repository, error) {
	if err := RunMigrations(url); err != nil {
		return nil, err
	}
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Repository{pool: pool}, nil
}

func (r *Repository) Close() error {
	r.pool.Close()
	return nil
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

const transactionColumns = `id, owner_id, amount_cents, kind, description, occurred_on,
	category_id, is_recurring, recurrence_frequency, created_at, updated_at`

func (r *Repository) ListTransactions(ctx context.Context, ownerID string) ([]core.Transaction, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+transactionColumns+` FROM transactions
		 WHERE owner_id = $1
		 ORDER BY occurred_on DESC, created_at DESC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	out := make([]core.Transaction, 0)
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return out, nil
}

func (r *Repository) GetTransaction(ctx context.Context, ownerID, id string) (core.Transaction, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE owner_id = $1 AND id = $2`, ownerID, id)
	t, err := scanTransaction(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return core.Transaction{}, fmt.Errorf("transaction %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction %s: %w", id, err)
	}
	return t, nil
}

func (r *Repository) CreateTransaction(ctx context.Context, t core.Transaction) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO transactions (`+transactionColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		t.ID, t.OwnerID, t.Amount.Cents, string(t.Kind), t.Description, t.OccurredOn.Time,
		t.CategoryID, t.IsRecurring, string(t.RecurrenceFrequency), t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create transaction: %w", err)
	}
	return nil
}

func (r *Repository) UpdateTransaction(ctx context.Context, t core.Transaction) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE transactions SET amount_cents = $3, kind = $4, description = $5, occurred_on = $6,
		 category_id = $7, is_recurring = $8, recurrence_frequency = $9, updated_at = $10
		 WHERE owner_id = $1 AND id = $2`,
		t.OwnerID, t.ID, t.Amount.Cents, string(t.Kind), t.Description, t.OccurredOn.Time,
		t.CategoryID, t.IsRecurring, string(t.RecurrenceFrequency), t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update transaction %s: %w", t.ID, err)
	}
	return expectOneRow(tag, "transaction", t.ID)
}

func (r *Repository) DeleteTransaction(ctx context.Context, ownerID, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM transactions WHERE owner_id = $1 AND id = $2`, ownerID, id)
	if err != nil {
		return fmt.Errorf("delete transaction %s: %w", id, err)
	}
	return expectOneRow(tag, "transaction", id)
}

const categoryColumns = `id, owner_id, name, color, icon, kind, is_default, created_at`

func (r *Repository) ListCategories(ctx context.Context, ownerID string) ([]core.Category, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE owner_id = $1 ORDER BY created_at, seq`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	out := make([]core.Category, 0)
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate categories: %w", err)
	}
	return out, nil
}

func (r *Repository) GetCategory(ctx context.Context, ownerID, id string) (core.Category, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE owner_id = $1 AND id = $2`, ownerID, id)
	c, err := scanCategory(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return core.Category{}, fmt.Errorf("category %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Category{}, fmt.Errorf("get category %s: %w", id, err)
	}
	return c, nil
}

func (r *Repository) CreateCategory(ctx context.Context, c core.Category) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO categories (`+categoryColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		c.ID, c.OwnerID, c.Name, c.Color, c.Icon, string(c.Kind), c.IsDefault, c.CreatedAt)
	if err != nil {
		return fmt.Errorf("create category: %w", err)
	}
	return nil
}

func (r *Repository) UpdateCategory(ctx context.Context, c core.Category) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE categories SET name = $3, color = $4, icon = $5, kind = $6 WHERE owner_id = $1 AND id = $2`,
		c.OwnerID, c.ID, c.Name, c.Color, c.Icon, string(c.Kind))
	if err != nil {
		return fmt.Errorf("update category %s: %w", c.ID, err)
	}
	return expectOneRow(tag, "category", c.ID)
}

func (r *Repository) DeleteCategory(ctx context.Context, ownerID, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM categories WHERE owner_id = $1 AND id = $2`, ownerID, id)
	if err != nil {
		return fmt.Errorf("delete category %s: %w", id, err)
	}
	return expectOneRow(tag, "category", id)
}

// SeedCategories inserts seeds in one transaction. Defaults the owner
// already has are left alone by the unique (owner_id, name) index.
func (r *Repository) SeedCategories(ctx context.Context, ownerID string, seeds []core.Category) ([]core.Category, error) {
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, c := range seeds {
			if c.OwnerID != ownerID {
				return fmt.Errorf("seed category %q belongs to %q, not %q", c.Name, c.OwnerID, ownerID)
			}
			batch.Queue(`INSERT INTO categories (`+categoryColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
				ON CONFLICT DO NOTHING`,
				c.ID, c.OwnerID, c.Name, c.Color, c.Icon, string(c.Kind), c.IsDefault, c.CreatedAt)
		}
		return tx.SendBatch(ctx, batch).Close()
	})
	if err != nil {
		return nil, fmt.Errorf("seed categories: %w", err)
	}
	return r.ListCategories(ctx, ownerID)
}

func scanTransaction(row pgx.Row) (core.Transaction, error) {
	var (
		t          core.Transaction
		kind, freq string
		occurred   time.Time
	)
	if err := row.Scan(&t.ID, &t.OwnerID, &t.Amount.Cents, &kind, &t.Description, &occurred,
		&t.CategoryID, &t.IsRecurring, &freq, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return core.Transaction{}, err
	}
	t.Kind = core.Kind(kind)
	t.OccurredOn = core.NewDate(occurred.Year(), int(occurred.Month()), occurred.Day())
	t.RecurrenceFrequency = core.Frequency(freq)
	t.CreatedAt = t.CreatedAt.UTC()
	t.UpdatedAt = t.UpdatedAt.UTC()
	return t, nil
}

func scanCategory(row pgx.Row) (core.Category, error) {
	var (
		c    core.Category
		kind string
	)
	if err := row.Scan(&c.ID, &c.OwnerID, &c.Name, &c.Color, &c.Icon, &kind, &c.IsDefault, &c.CreatedAt); err != nil {
		return core.Category{}, err
	}
	c.Kind = core.Kind(kind)
	c.CreatedAt = c.CreatedAt.UTC()
	return c, nil
}

func expectOneRow(tag pgconn.CommandTag, entity, id string) error {
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s %s: %w", entity, id, core.ErrNotFound)
	}
	return nil
}
