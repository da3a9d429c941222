package memory

import (
	"cmp"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"saldo/internal/core"
)

// Store is an in-process repository. Rows keep insertion order; transaction
// lists are sorted on read.
type Store struct {
	mu   sync.Mutex
	txs  []core.Transaction
	cats []core.Category
}

func New() *Store {
	return &Store{}
}

// FixturesFile is the optional file NewFromDir seeds from.
const FixturesFile = "fixtures.yaml"

// NewFromDir returns a store seeded from base/fixtures.yaml when present.
func NewFromDir(base string) (*Store, error) {
	s := New()
	f, err := os.Open(filepath.Join(base, FixturesFile))
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open fixtures: %w", err)
	}
	defer f.Close()
	if err := s.LoadFixtures(f); err != nil {
		return nil, err
	}
	return s, nil
}

type fixtures struct {
	Owner      string `yaml:"owner"`
	Categories []struct {
		ID    string    `yaml:"id"`
		Name  string    `yaml:"name"`
		Color string    `yaml:"color"`
		Icon  string    `yaml:"icon"`
		Kind  core.Kind `yaml:"kind"`
	} `yaml:"categories"`
	Transactions []struct {
		ID          string         `yaml:"id"`
		Amount      string         `yaml:"amount"`
		Kind        core.Kind      `yaml:"kind"`
		Description string         `yaml:"description"`
		Date        string         `yaml:"date"`
		Category    string         `yaml:"category"`
		Frequency   core.Frequency `yaml:"frequency"`
	} `yaml:"transactions"`
}

// LoadFixtures adds the categories and transactions of a YAML fixture.
// Every row is validated before anything is stored.
func (s *Store) LoadFixtures(r io.Reader) error {
	var fx fixtures
	if err := yaml.NewDecoder(r).Decode(&fx); err != nil {
		return fmt.Errorf("decode fixtures: %w", err)
	}
	now := time.Now().UTC()
	cats := make([]core.Category, 0, len(fx.Categories))
	for _, c := range fx.Categories {
		cat := core.Category{ID: c.ID, Name: c.Name, Color: c.Color, Icon: c.Icon, Kind: c.Kind, OwnerID: fx.Owner, CreatedAt: now}
		if err := cat.Validate(); err != nil {
			return fmt.Errorf("fixture category %q: %w", c.ID, err)
		}
		cats = append(cats, cat)
	}
	txs := make([]core.Transaction, 0, len(fx.Transactions))
	for _, t := range fx.Transactions {
		cents, err := core.ParseDecimalToCents(t.Amount)
		if err != nil {
			return fmt.Errorf("fixture transaction %q: %w", t.ID, err)
		}
		date, err := core.ParseDate(t.Date)
		if err != nil {
			return fmt.Errorf("fixture transaction %q: %w", t.ID, err)
		}
		tx := core.Transaction{
			ID:                  t.ID,
			Amount:              core.Money{Cents: cents},
			Kind:                t.Kind,
			Description:         t.Description,
			OccurredOn:          date,
			CategoryID:          t.Category,
			IsRecurring:         t.Frequency != "",
			RecurrenceFrequency: t.Frequency,
			OwnerID:             fx.Owner,
			CreatedAt:           now,
			UpdatedAt:           now,
		}
		if err := tx.Validate(); err != nil {
			return fmt.Errorf("fixture transaction %q: %w", t.ID, err)
		}
		txs = append(txs, tx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.cats = append(s.cats, cats...)
	s.txs = append(s.txs, txs...)
	return nil
}

func (s *Store) ListTransactions(_ context.Context, ownerID string) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Transaction, 0)
	for _, t := range s.txs {
		if t.OwnerID == ownerID {
			out = append(out, t)
		}
	}
	slices.SortStableFunc(out, func(a, b core.Transaction) int {
		if c := b.OccurredOn.Compare(a.OccurredOn.Time); c != 0 {
			return c
		}
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return out, nil
}

func (s *Store) GetTransaction(_ context.Context, ownerID, id string) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.txIndex(ownerID, id)
	if i < 0 {
		return core.Transaction{}, fmt.Errorf("transaction %s: %w", id, core.ErrNotFound)
	}
	return s.txs[i], nil
}

func (s *Store) CreateTransaction(_ context.Context, t core.Transaction) error {
	if err := t.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if slices.ContainsFunc(s.txs, func(x core.Transaction) bool { return x.ID == t.ID }) {
		return fmt.Errorf("transaction %s already exists", t.ID)
	}
	s.txs = append(s.txs, t)
	return nil
}

func (s *Store) UpdateTransaction(_ context.Context, t core.Transaction) error {
	if err := t.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.txIndex(t.OwnerID, t.ID)
	if i < 0 {
		return fmt.Errorf("transaction %s: %w", t.ID, core.ErrNotFound)
	}
	s.txs[i] = t
	return nil
}

func (s *Store) DeleteTransaction(_ context.Context, ownerID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.txIndex(ownerID, id)
	if i < 0 {
		return fmt.Errorf("transaction %s: %w", id, core.ErrNotFound)
	}
	s.txs = slices.Delete(s.txs, i, i+1)
	return nil
}

func (s *Store) ListCategories(_ context.Context, ownerID string) ([]core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.categoriesOf(ownerID), nil
}

// SeedCategories adds the seeds the owner does not have yet as defaults.
// Every seed is validated before any is stored.
func (s *Store) SeedCategories(_ context.Context, ownerID string, seeds []core.Category) ([]core.Category, error) {
	for _, c := range seeds {
		if c.OwnerID != ownerID {
			return nil, fmt.Errorf("seed category %q belongs to %q, not %q", c.Name, c.OwnerID, ownerID)
		}
		if err := c.Validate(); err != nil {
			return nil, err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range seeds {
		exists := slices.ContainsFunc(s.cats, func(x core.Category) bool {
			return x.ID == c.ID || (c.IsDefault && x.IsDefault && x.OwnerID == ownerID && x.Name == c.Name)
		})
		if !exists {
			s.cats = append(s.cats, c)
		}
	}
	return s.categoriesOf(ownerID), nil
}

// categoriesOf lists the categories of ownerID by creation time. Caller
// holds s.mu.
func (s *Store) categoriesOf(ownerID string) []core.Category {
	out := make([]core.Category, 0)
	for _, c := range s.cats {
		if c.OwnerID == ownerID {
			out = append(out, c)
		}
	}
	slices.SortStableFunc(out, func(a, b core.Category) int {
		return cmp.Compare(a.CreatedAt.UnixNano(), b.CreatedAt.UnixNano())
	})
	return out
}

func (s *Store) GetCategory(_ context.Context, ownerID, id string) (core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.catIndex(ownerID, id)
	if i < 0 {
		return core.Category{}, fmt.Errorf("category %s: %w", id, core.ErrNotFound)
	}
	return s.cats[i], nil
}

func (s *Store) CreateCategory(_ context.Context, c core.Category) error {
	if err := c.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if slices.ContainsFunc(s.cats, func(x core.Category) bool { return x.ID == c.ID }) {
		return fmt.Errorf("category %s already exists", c.ID)
	}
	s.cats = append(s.cats, c)
	return nil
}

func (s *Store) UpdateCategory(_ context.Context, c core.Category) error {
	if err := c.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.catIndex(c.OwnerID, c.ID)
	if i < 0 {
		return fmt.Errorf("category %s: %w", c.ID, core.ErrNotFound)
	}
	s.cats[i] = c
	return nil
}

func (s *Store) DeleteCategory(_ context.Context, ownerID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.catIndex(ownerID, id)
	if i < 0 {
		return fmt.Errorf("category %s: %w", id, core.ErrNotFound)
	}
	s.cats = slices.Delete(s.cats, i, i+1)
	return nil
}

func (s *Store) txIndex(ownerID, id string) int {
	return slices.IndexFunc(s.txs, func(t core.Transaction) bool {
		return t.ID == id && t.OwnerID == ownerID
	})
}

func (s *Store) catIndex(ownerID, id string) int {
	return slices.IndexFunc(s.cats, func(c core.Category) bool {
		return c.ID == id && c.OwnerID == ownerID
	})
}
