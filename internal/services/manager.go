package services

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"saldo/internal/cache"
	"saldo/internal/core"
	"saldo/internal/log"
	"saldo/internal/ports"
)

const (
	DefaultLedgerCacheSize = 256
	DefaultLedgerCacheTTL  = 30 * time.Minute

	maxLoadAttempts = 3
)

// LedgerManager hands out loaded ledgers, one per owner, and keeps the
// recently used ones in memory.
//
// Every owner has a generation counter bumped whenever its cached ledger is
// dropped. A load only counts if the generation did not move while it ran,
// so a write that lands during a reload is never lost. Ledgers that leave
// the cache are retired: a later write through one of them invalidates the
// owner again.
type LedgerManager struct {
	repo    ports.Repository
	opts    []LedgerOption
	ledgers *cache.LRUCache[*Ledger]
	loads   singleflight.Group
	gens    sync.Map // owner -> *atomic.Uint64
	logger  *log.Logger
}

// NewLedgerManager builds a manager keeping up to size ledgers for ttl. opts
// are applied to every ledger it opens.
func NewLedgerManager(repo ports.Repository, size int, ttl time.Duration, logger *log.Logger, opts ...LedgerOption) *LedgerManager {
	if size <= 0 {
		size = DefaultLedgerCacheSize
	}
	if ttl <= 0 {
		ttl = DefaultLedgerCacheTTL
	}
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentLedger)
	m := &LedgerManager{
		repo:   repo,
		opts:   append([]LedgerOption{WithLogger(logger)}, opts...),
		logger: logger,
	}
	m.ledgers = cache.NewLRUCache[*Ledger](size, ttl, cache.WithEvictHook(func(owner string, l *Ledger) {
		l.retire()
		m.generation(owner).Add(1)
		logger.Debug("Ledger evicted", log.FieldOwnerID, owner)
	}))
	return m
}

// Ledger returns the loaded ledger of ownerID, loading it on first use.
// Concurrent first calls for the same owner share one load.
func (m *LedgerManager) Ledger(ctx context.Context, ownerID string) (*Ledger, error) {
	if ownerID == "" {
		return nil, core.ErrEmptyOwner
	}
	if l, ok := m.cached(ownerID); ok {
		return l, nil
	}
	v, err, _ := m.loads.Do(ownerID, func() (any, error) {
		if l, ok := m.cached(ownerID); ok {
			return l, nil
		}
		return m.load(ctx, ownerID)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Ledger), nil
}

func (m *LedgerManager) cached(ownerID string) (*Ledger, bool) {
	l, ok := m.ledgers.Get(ownerID)
	if !ok || l.Retired() {
		return nil, false
	}
	return l, true
}

// load opens a fresh ledger and caches it unless the owner was invalidated
// meanwhile, in which case it loads again. After maxLoadAttempts the last
// ledger is handed out retired, so writes through it still invalidate.
func (m *LedgerManager) load(ctx context.Context, ownerID string) (*Ledger, error) {
	gen := m.generation(ownerID)
	var l *Ledger
	for attempt := 0; attempt < maxLoadAttempts; attempt++ {
		seen := gen.Load()
		var err error
		l, err = NewLedger(ownerID, m.repo, m.opts...)
		if err != nil {
			return nil, err
		}
		l.staleWrite = func() { m.Invalidate(ownerID) }
		if err := l.Load(ctx); err != nil {
			return nil, err
		}
		m.ledgers.Set(ownerID, l)
		if gen.Load() == seen {
			return l, nil
		}
		l.retire()
		m.ledgers.Delete(ownerID)
	}
	m.logger.WarnContext(ctx, "Ledger changed during every load attempt, serving it uncached",
		log.FieldOwnerID, ownerID, "attempts", maxLoadAttempts)
	return l, nil
}

func (m *LedgerManager) generation(ownerID string) *atomic.Uint64 {
	v, _ := m.gens.LoadOrStore(ownerID, new(atomic.Uint64))
	return v.(*atomic.Uint64)
}

// Invalidate drops the cached ledger of ownerID; the next call reloads it.
// A load already in flight for the owner is redone.
func (m *LedgerManager) Invalidate(ownerID string) {
	m.generation(ownerID).Add(1)
	m.ledgers.Delete(ownerID)
}

// HandleLedgerEvent invalidates the owner of e unless e was emitted by
// origin, whose ledgers are already up to date.
func (m *LedgerManager) HandleLedgerEvent(ctx context.Context, e ports.LedgerEvent, origin string) {
	if origin != "" && e.Origin == origin {
		return
	}
	m.Invalidate(e.OwnerID)
	m.logger.DebugContext(ctx, "Ledger invalidated by external change",
		log.FieldOwnerID, e.OwnerID,
		log.FieldEventType, string(e.Type),
		log.FieldEntity, string(e.Entity))
}

// Cleaner exposes the ledger cache for periodic expiry sweeps.
func (m *LedgerManager) Cleaner() cache.Cleaner {
	return m.ledgers
}

// Cached reports how many ledgers are in memory.
func (m *LedgerManager) Cached() int {
	return m.ledgers.Size()
}
