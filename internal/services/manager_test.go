package services

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"saldo/internal/core"
	"saldo/internal/log"
	"saldo/internal/memory"
	"saldo/internal/ports"
)

// countingStore counts category listings, one per ledger load.
type countingStore struct {
	*memory.Store
	loads atomic.Int32
}

func (s *countingStore) ListCategories(ctx context.Context, ownerID string) ([]core.Category, error) {
	s.loads.Add(1)
	return s.Store.ListCategories(ctx, ownerID)
}

func TestLedgerManagerCachesPerOwner(t *testing.T) {
	store := &countingStore{Store: memory.New()}
	m := NewLedgerManager(store, 4, time.Minute, log.Discard())
	ctx := context.Background()

	a, err := m.Ledger(ctx, "alice")
	require.NoError(t, err)
	again, err := m.Ledger(ctx, "alice")
	require.NoError(t, err)
	assert.Same(t, a, again)

	b, err := m.Ledger(ctx, "bob")
	require.NoError(t, err)
	assert.NotSame(t, a, b)
	assert.Equal(t, int32(2), store.loads.Load())
	assert.Equal(t, 2, m.Cached())

	m.Invalidate("alice")
	reloaded, err := m.Ledger(ctx, "alice")
	require.NoError(t, err)
	assert.NotSame(t, a, reloaded)
	assert.Equal(t, categoryIDs(a.Categories()), categoryIDs(reloaded.Categories()))
}

func TestLedgerManagerSharesConcurrentLoads(t *testing.T) {
	store := &countingStore{Store: memory.New()}
	m := NewLedgerManager(store, 4, time.Minute, nil)

	var wg sync.WaitGroup
	ledgers := make([]*Ledger, 10)
	for i := range ledgers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			l, err := m.Ledger(context.Background(), "carol")
			if err == nil {
				ledgers[i] = l
			}
		}(i)
	}
	wg.Wait()

	for _, l := range ledgers {
		require.NotNil(t, l)
		assert.Same(t, ledgers[0], l)
	}
	// Only one set of defaults may exist whatever the interleaving.
	cats, err := store.Store.ListCategories(context.Background(), "carol")
	require.NoError(t, err)
	assert.Len(t, cats, len(core.DefaultCategorySeeds()))
}

func TestLedgerManagerRejectsEmptyOwner(t *testing.T) {
	m := NewLedgerManager(memory.New(), 0, 0, nil)
	_, err := m.Ledger(context.Background(), "")
	assert.ErrorIs(t, err, core.ErrEmptyOwner)
	assert.NotNil(t, m.Cleaner())
}

func groceries(categoryID string) core.Transaction {
	return core.Transaction{
		Amount:      core.Money{Cents: 1250},
		Kind:        core.KindExpense,
		Description: "Groceries",
		OccurredOn:  core.NewDate(2024, 3, 2),
		CategoryID:  categoryID,
	}
}

func TestLedgerManagerWriteThroughEvictedLedger(t *testing.T) {
	store := memory.New()
	m := NewLedgerManager(store, 4, 20*time.Millisecond, nil)
	ctx := context.Background()

	old, err := m.Ledger(ctx, "dave")
	require.NoError(t, err)
	time.Sleep(40 * time.Millisecond)

	fresh, err := m.Ledger(ctx, "dave")
	require.NoError(t, err)
	require.NotSame(t, old, fresh)
	assert.True(t, old.Retired())

	cat := old.CategoriesForKind(core.KindExpense)[0]
	_, err = old.AddTransaction(ctx, groceries(cat.ID))
	require.NoError(t, err)

	stored, err := store.ListTransactions(ctx, "dave")
	require.NoError(t, err)
	require.Len(t, stored, 1)

	served, err := m.Ledger(ctx, "dave")
	require.NoError(t, err)
	assert.Len(t, served.Transactions(), 1)
	assert.Equal(t, int64(1250), served.MonthlyBalance(2, 2024).TotalExpense.Cents)
}

// gatedStore holds the first transaction listing until release is closed.
type gatedStore struct {
	*memory.Store
	listings atomic.Int32
	entered  chan struct{}
	release  chan struct{}
}

func (s *gatedStore) ListTransactions(ctx context.Context, ownerID string) ([]core.Transaction, error) {
	if s.listings.Add(1) == 1 {
		close(s.entered)
		<-s.release
	}
	return s.Store.ListTransactions(ctx, ownerID)
}

func TestLedgerManagerReloadsWhenInvalidatedDuringLoad(t *testing.T) {
	store := &gatedStore{Store: memory.New(), entered: make(chan struct{}), release: make(chan struct{})}
	m := NewLedgerManager(store, 4, time.Minute, nil)
	ctx := context.Background()

	type result struct {
		l   *Ledger
		err error
	}
	done := make(chan result, 1)
	go func() {
		l, err := m.Ledger(ctx, "erin")
		done <- result{l, err}
	}()

	<-store.entered
	tx := groceries("elsewhere")
	tx.ID = "tx-1"
	tx.OwnerID = "erin"
	require.NoError(t, store.Store.CreateTransaction(ctx, tx))
	m.Invalidate("erin")
	close(store.release)

	res := <-done
	require.NoError(t, res.err)
	assert.Len(t, res.l.Transactions(), 1)
	assert.False(t, res.l.Retired())
	assert.Equal(t, int32(2), store.listings.Load())

	again, err := m.Ledger(ctx, "erin")
	require.NoError(t, err)
	assert.Same(t, res.l, again)
}

func TestLedgerManagerHandleLedgerEvent(t *testing.T) {
	m := NewLedgerManager(memory.New(), 4, time.Minute, nil)
	ctx := context.Background()

	l, err := m.Ledger(ctx, "frank")
	require.NoError(t, err)

	m.HandleLedgerEvent(ctx, ports.LedgerEvent{OwnerID: "frank", Origin: "api-1"}, "api-1")
	same, err := m.Ledger(ctx, "frank")
	require.NoError(t, err)
	assert.Same(t, l, same)

	m.HandleLedgerEvent(ctx, ports.LedgerEvent{OwnerID: "frank", Origin: "import-7"}, "api-1")
	assert.True(t, l.Retired())
	reloaded, err := m.Ledger(ctx, "frank")
	require.NoError(t, err)
	assert.NotSame(t, l, reloaded)
}

func TestLedgerStampsOrigin(t *testing.T) {
	pub := &recordingPublisher{}
	l, err := NewLedger("gina", memory.New(), WithPublisher(pub), WithOrigin("api-1"))
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, l.Load(ctx))

	_, err = l.AddTransaction(ctx, groceries(l.CategoriesForKind(core.KindExpense)[0].ID))
	require.NoError(t, err)
	require.Len(t, pub.events, 1)
	assert.Equal(t, "api-1", pub.events[0].Origin)
}
