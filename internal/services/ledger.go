package services

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"saldo/internal/core"
	"saldo/internal/log"
	"saldo/internal/ports"
)

// Ledger is one owner's transactions and categories, held in memory and kept
// in step with the repository. Readers work on snapshots; mutations hold the
// write lock across the repository call so the in-memory order always
// matches what the repository accepted.
type Ledger struct {
	ownerID   string
	repo      ports.Repository
	publisher ports.EventPublisher
	notifier  ports.Notifier
	logger    *log.Logger
	now       func() time.Time
	newID     func() string
	origin    string

	// retired is set once the ledger is no longer the cached one for its
	// owner. Writes through a retired ledger call staleWrite so the cached
	// copy is reloaded.
	retired    atomic.Bool
	staleWrite func()

	mu     sync.RWMutex
	txs    []core.Transaction
	cats   []core.Category
	loaded bool
}

// LedgerOption configures a Ledger.
type LedgerOption func(*Ledger)

// WithPublisher forwards every accepted mutation to p.
func WithPublisher(p ports.EventPublisher) LedgerOption {
	return func(l *Ledger) { l.publisher = p }
}

// WithNotifier pushes every accepted mutation to n.
func WithNotifier(n ports.Notifier) LedgerOption {
	return func(l *Ledger) { l.notifier = n }
}

func WithLogger(logger *log.Logger) LedgerOption {
	return func(l *Ledger) { l.logger = logger.WithComponent(log.ComponentLedger) }
}

func WithClock(now func() time.Time) LedgerOption {
	return func(l *Ledger) { l.now = now }
}

// WithOrigin stamps every event with the id of this process.
func WithOrigin(origin string) LedgerOption {
	return func(l *Ledger) { l.origin = origin }
}

// WithIDGenerator replaces uuid.NewString for new entities.
func WithIDGenerator(newID func() string) LedgerOption {
	return func(l *Ledger) { l.newID = newID }
}

func NewLedger(ownerID string, repo ports.Repository, opts ...LedgerOption) (*Ledger, error) {
	if strings.TrimSpace(ownerID) == "" {
		return nil, core.ErrEmptyOwner
	}
	l := &Ledger{
		ownerID: ownerID,
		repo:    repo,
		logger:  log.Discard(),
		now:     time.Now,
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

func (l *Ledger) OwnerID() string { return l.ownerID }

// Load replaces the in-memory state with the repository contents. An owner
// missing any default category gets the default set completed.
func (l *Ledger) Load(ctx context.Context) error {
	var (
		txs  []core.Transaction
		cats []core.Category
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		txs, err = l.repo.ListTransactions(gctx, l.ownerID)
		if err != nil {
			return fmt.Errorf("list transactions: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		cats, err = l.repo.ListCategories(gctx, l.ownerID)
		if err != nil {
			return fmt.Errorf("list categories: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("load ledger of %s: %w", l.ownerID, err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if countDefaults(cats) < len(core.DefaultCategorySeeds()) {
		seeded, err := l.seedDefaults(ctx)
		if err != nil {
			return err
		}
		cats = seeded
	}
	l.txs = txs
	l.cats = cats
	l.loaded = true

	l.logger.InfoContext(ctx, "Ledger loaded",
		log.FieldOwnerID, l.ownerID,
		log.FieldOperation, log.OpLoad,
		"transactions", len(txs),
		"categories", len(cats))
	return nil
}

// seedDefaults stores the default categories the owner is missing and
// returns all of its categories. The repository skips seeds it already has,
// so concurrent loads of a new owner end with one set. Creation times are
// spaced by a nanosecond so repositories ordering by creation keep the seed
// order.
func (l *Ledger) seedDefaults(ctx context.Context) ([]core.Category, error) {
	base := l.now().UTC()
	seeds := core.DefaultCategories(l.ownerID)
	for i := range seeds {
		seeds[i].ID = l.newID()
		seeds[i].CreatedAt = base.Add(time.Duration(i))
	}
	cats, err := l.repo.SeedCategories(ctx, l.ownerID, seeds)
	if err != nil {
		return nil, fmt.Errorf("seed default categories of %s: %w", l.ownerID, err)
	}
	l.logger.InfoContext(ctx, "Default categories seeded",
		log.FieldOwnerID, l.ownerID,
		log.FieldOperation, log.OpSeed,
		"categories", len(cats))
	return cats, nil
}

func countDefaults(cats []core.Category) int {
	n := 0
	for _, c := range cats {
		if c.IsDefault {
			n++
		}
	}
	return n
}

// retire marks the ledger as replaced.
func (l *Ledger) retire() {
	l.retired.Store(true)
}

// Retired reports whether the ledger was dropped from its manager's cache.
func (l *Ledger) Retired() bool {
	return l.retired.Load()
}

// wrote runs after every write accepted by the repository.
func (l *Ledger) wrote() {
	if l.retired.Load() && l.staleWrite != nil {
		l.staleWrite()
	}
}

// Loaded reports whether Load has completed at least once.
func (l *Ledger) Loaded() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.loaded
}

// Transactions returns a snapshot, newest first.
func (l *Ledger) Transactions() []core.Transaction {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return slices.Clone(l.txs)
}

// Categories returns a snapshot in creation order.
func (l *Ledger) Categories() []core.Category {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return slices.Clone(l.cats)
}

// AddTransaction assigns id, owner and timestamps to t, persists it and puts
// it at the front of the ledger.
func (l *Ledger) AddTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	now := l.now().UTC()
	t.ID = l.newID()
	t.OwnerID = l.ownerID
	t.CreatedAt = now
	t.UpdatedAt = now
	if !t.IsRecurring {
		t.RecurrenceFrequency = ""
	}
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}

	l.mu.Lock()
	if err := l.checkCategoryKind(t); err != nil {
		l.mu.Unlock()
		return core.Transaction{}, err
	}
	if err := l.repo.CreateTransaction(ctx, t); err != nil {
		l.mu.Unlock()
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}
	l.txs = slices.Insert(l.txs, 0, t)
	l.mu.Unlock()
	l.wrote()

	l.transactionChanged(ctx, ports.EventCreated, t)
	return t, nil
}

// EditTransaction merges u into the transaction id and persists the result.
// The transaction keeps its position.
func (l *Ledger) EditTransaction(ctx context.Context, id string, u core.TransactionUpdate) (core.Transaction, error) {
	if err := u.Validate(); err != nil {
		return core.Transaction{}, err
	}

	l.mu.Lock()
	i := l.txIndex(id)
	if i < 0 {
		l.mu.Unlock()
		return core.Transaction{}, fmt.Errorf("transaction %s: %w", id, core.ErrNotFound)
	}
	merged := u.Apply(l.txs[i])
	merged.UpdatedAt = l.now().UTC()
	if err := merged.Validate(); err != nil {
		l.mu.Unlock()
		return core.Transaction{}, err
	}
	if err := l.checkCategoryKind(merged); err != nil {
		l.mu.Unlock()
		return core.Transaction{}, err
	}
	if err := l.repo.UpdateTransaction(ctx, merged); err != nil {
		l.mu.Unlock()
		return core.Transaction{}, fmt.Errorf("update transaction %s: %w", id, err)
	}
	l.txs[i] = merged
	l.mu.Unlock()
	l.wrote()

	l.transactionChanged(ctx, ports.EventUpdated, merged)
	return merged, nil
}

func (l *Ledger) DeleteTransaction(ctx context.Context, id string) error {
	l.mu.Lock()
	i := l.txIndex(id)
	if i < 0 {
		l.mu.Unlock()
		return fmt.Errorf("transaction %s: %w", id, core.ErrNotFound)
	}
	t := l.txs[i]
	if err := l.repo.DeleteTransaction(ctx, l.ownerID, id); err != nil {
		l.mu.Unlock()
		return fmt.Errorf("delete transaction %s: %w", id, err)
	}
	l.txs = slices.Delete(l.txs, i, i+1)
	l.mu.Unlock()
	l.wrote()

	l.transactionChanged(ctx, ports.EventDeleted, t)
	return nil
}

// AddCategory creates a user category. The default flag is never set here.
func (l *Ledger) AddCategory(ctx context.Context, c core.Category) (core.Category, error) {
	c.ID = l.newID()
	c.OwnerID = l.ownerID
	c.IsDefault = false
	c.CreatedAt = l.now().UTC()
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}

	l.mu.Lock()
	if err := l.repo.CreateCategory(ctx, c); err != nil {
		l.mu.Unlock()
		return core.Category{}, fmt.Errorf("create category: %w", err)
	}
	l.cats = append(l.cats, c)
	l.mu.Unlock()
	l.wrote()

	l.categoryChanged(ctx, ports.EventCreated, c)
	return c, nil
}

// EditCategory merges u into the category id. Default categories are
// rejected with core.ErrDefaultCategory. Changing the kind of a category
// that still holds transactions is rejected with core.ErrCategoryKindMismatch.
func (l *Ledger) EditCategory(ctx context.Context, id string, u core.CategoryUpdate) (core.Category, error) {
	if err := u.Validate(); err != nil {
		return core.Category{}, err
	}

	l.mu.Lock()
	i := l.catIndex(id)
	if i < 0 {
		l.mu.Unlock()
		return core.Category{}, fmt.Errorf("category %s: %w", id, core.ErrNotFound)
	}
	if l.cats[i].IsDefault {
		l.mu.Unlock()
		return core.Category{}, fmt.Errorf("category %s: %w", id, core.ErrDefaultCategory)
	}
	merged := u.Apply(l.cats[i])
	if err := merged.Validate(); err != nil {
		l.mu.Unlock()
		return core.Category{}, err
	}
	if merged.Kind != l.cats[i].Kind {
		if n := l.refusedBy(id, merged.Kind); n > 0 {
			l.mu.Unlock()
			return core.Category{}, fmt.Errorf("%w: %q still holds %d transactions that are not %s",
				core.ErrCategoryKindMismatch, l.cats[i].Name, n, merged.Kind)
		}
	}
	if err := l.repo.UpdateCategory(ctx, merged); err != nil {
		l.mu.Unlock()
		return core.Category{}, fmt.Errorf("update category %s: %w", id, err)
	}
	l.cats[i] = merged
	l.mu.Unlock()
	l.wrote()

	l.categoryChanged(ctx, ports.EventUpdated, merged)
	return merged, nil
}

// DeleteCategory removes a user category. Transactions filed under it keep
// the id and are shown as unknown from then on.
func (l *Ledger) DeleteCategory(ctx context.Context, id string) error {
	l.mu.Lock()
	i := l.catIndex(id)
	if i < 0 {
		l.mu.Unlock()
		return fmt.Errorf("category %s: %w", id, core.ErrNotFound)
	}
	c := l.cats[i]
	if c.IsDefault {
		l.mu.Unlock()
		return fmt.Errorf("category %s: %w", id, core.ErrDefaultCategory)
	}
	if err := l.repo.DeleteCategory(ctx, l.ownerID, id); err != nil {
		l.mu.Unlock()
		return fmt.Errorf("delete category %s: %w", id, err)
	}
	l.cats = slices.Delete(l.cats, i, i+1)
	l.mu.Unlock()
	l.wrote()

	l.categoryChanged(ctx, ports.EventDeleted, c)
	return nil
}

// TransactionsByMonth returns the transactions of the zero-based month.
func (l *Ledger) TransactionsByMonth(month, year int) []core.Transaction {
	return core.FilterByMonth(l.Transactions(), month, year)
}

func (l *Ledger) MonthlyBalance(month, year int) core.MonthlyBalance {
	return core.MonthlyBalanceOf(l.Transactions(), month, year)
}

func (l *Ledger) CategorySummary(month, year int, k core.Kind) []core.CategorySummaryEntry {
	return core.MonthlyCategorySummary(l.Transactions(), month, year, k)
}

// SummaryLine is a summary entry with its display label.
type SummaryLine struct {
	core.CategorySummaryEntry
	Name  string `json:"name"`
	Color string `json:"color"`
	Known bool   `json:"known"`
}

// LabeledCategorySummary is CategorySummary with names and colors resolved.
func (l *Ledger) LabeledCategorySummary(month, year int, k core.Kind) []SummaryLine {
	txs, cats := l.snapshot()
	entries := core.MonthlyCategorySummary(txs, month, year, k)
	lines := make([]SummaryLine, len(entries))
	for i, e := range entries {
		label := core.ResolveCategory(cats, e.CategoryID)
		lines[i] = SummaryLine{CategorySummaryEntry: e, Name: label.Name, Color: label.Color, Known: label.Known}
	}
	return lines
}

func (l *Ledger) RecurringTransactions() []core.Transaction {
	return core.Recurring(l.Transactions())
}

// UpcomingRecurring lists recurring transactions with their next occurrence
// on or after from.
func (l *Ledger) UpcomingRecurring(from core.Date) []UpcomingTransaction {
	return UpcomingRecurring(l.Transactions(), from)
}

func (l *Ledger) CategoriesForKind(k core.Kind) []core.Category {
	return core.CategoriesForKind(l.Categories(), k)
}

// ResolveCategory returns the display label of a category id.
func (l *Ledger) ResolveCategory(id string) core.CategoryLabel {
	return core.ResolveCategory(l.Categories(), id)
}

func (l *Ledger) snapshot() ([]core.Transaction, []core.Category) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return slices.Clone(l.txs), slices.Clone(l.cats)
}

// checkCategoryKind rejects t when its category exists with another kind.
// Caller holds l.mu.
func (l *Ledger) checkCategoryKind(t core.Transaction) error {
	i := l.catIndex(t.CategoryID)
	if i < 0 {
		return nil
	}
	if !l.cats[i].Accepts(t.Kind) {
		return fmt.Errorf("%w: %q is %s, transaction is %s",
			core.ErrCategoryKindMismatch, l.cats[i].Name, l.cats[i].Kind, t.Kind)
	}
	return nil
}

// refusedBy counts the transactions in category id whose kind is not k.
// Caller holds l.mu.
func (l *Ledger) refusedBy(id string, k core.Kind) int {
	n := 0
	for _, t := range l.txs {
		if t.CategoryID == id && t.Kind != k {
			n++
		}
	}
	return n
}

func (l *Ledger) txIndex(id string) int {
	return slices.IndexFunc(l.txs, func(t core.Transaction) bool { return t.ID == id })
}

func (l *Ledger) catIndex(id string) int {
	return slices.IndexFunc(l.cats, func(c core.Category) bool { return c.ID == id })
}

func (l *Ledger) transactionChanged(ctx context.Context, typ ports.EventType, t core.Transaction) {
	l.logger.InfoContext(ctx, "Transaction "+string(typ),
		log.NewFields().
			WithOwner(l.ownerID).
			WithTransaction(t.ID, t.Kind.String(), t.CategoryID, t.Amount.Cents).
			ToSlice()...)
	l.emit(ctx, ports.LedgerEvent{
		Type:      typ,
		Entity:    ports.EntityTransaction,
		OwnerID:   l.ownerID,
		EntityID:  t.ID,
		Month:     t.OccurredOn.MonthIndex(),
		Year:      t.OccurredOn.Year(),
		Timestamp: l.now().UTC(),
		Origin:    l.origin,
	})
}

func (l *Ledger) categoryChanged(ctx context.Context, typ ports.EventType, c core.Category) {
	l.logger.InfoContext(ctx, "Category "+string(typ),
		log.FieldOwnerID, l.ownerID,
		log.FieldCategoryID, c.ID,
		log.FieldKind, c.Kind.String())
	l.emit(ctx, ports.LedgerEvent{
		Type:      typ,
		Entity:    ports.EntityCategory,
		OwnerID:   l.ownerID,
		EntityID:  c.ID,
		Timestamp: l.now().UTC(),
		Origin:    l.origin,
	})
}

// emit forwards e to the publisher and the notifier. Failures are logged and
// never undo the mutation.
func (l *Ledger) emit(ctx context.Context, e ports.LedgerEvent) {
	if l.publisher != nil {
		if err := l.publisher.PublishLedgerEvent(ctx, e); err != nil {
			l.logger.ErrorContext(ctx, "Failed to publish ledger event",
				log.FieldOwnerID, e.OwnerID,
				log.FieldEventType, string(e.Type),
				log.FieldEntity, string(e.Entity),
				log.FieldError, err.Error())
		}
	}
	if l.notifier != nil {
		l.notifier.Notify(e.OwnerID, e)
	}
}
