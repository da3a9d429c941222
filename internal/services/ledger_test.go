package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"saldo/internal/core"
	"saldo/internal/memory"
	"saldo/internal/ports"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []ports.LedgerEvent
	err    error
}

func (p *recordingPublisher) PublishLedgerEvent(_ context.Context, e ports.LedgerEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

type recordingNotifier struct {
	mu     sync.Mutex
	owners []string
}

func (n *recordingNotifier) Notify(ownerID string, _ ports.LedgerEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.owners = append(n.owners, ownerID)
}

// failingRepo refuses transaction writes; reads go to the wrapped store.
type failingRepo struct {
	*memory.Store
}

var errWriteRefused = errors.New("write refused")

func (failingRepo) CreateTransaction(context.Context, core.Transaction) error { return errWriteRefused }
func (failingRepo) UpdateTransaction(context.Context, core.Transaction) error { return errWriteRefused }
func (failingRepo) DeleteTransaction(context.Context, string, string) error   { return errWriteRefused }

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%02d", n)
	}
}

func newTestLedger(t *testing.T, repo ports.Repository, opts ...LedgerOption) *Ledger {
	t.Helper()
	clock := time.Date(2024, 3, 20, 10, 0, 0, 0, time.UTC)
	base := []LedgerOption{
		WithIDGenerator(sequentialIDs()),
		WithClock(func() time.Time {
			clock = clock.Add(time.Second)
			return clock
		}),
	}
	l, err := NewLedger("owner-1", repo, append(base, opts...)...)
	require.NoError(t, err)
	require.NoError(t, l.Load(context.Background()))
	return l
}

func categoryNamed(t *testing.T, l *Ledger, name string) core.Category {
	t.Helper()
	for _, c := range l.Categories() {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("category %q not found", name)
	return core.Category{}
}

func draft(desc string, cents int64, k core.Kind, categoryID string, d core.Date) core.Transaction {
	return core.Transaction{Description: desc, Amount: core.Money{Cents: cents}, Kind: k, CategoryID: categoryID, OccurredOn: d}
}

func TestNewLedgerRequiresOwner(t *testing.T) {
	_, err := NewLedger(" ", memory.New())
	assert.ErrorIs(t, err, core.ErrEmptyOwner)
}

func TestLoadSeedsDefaultCategoriesOnce(t *testing.T) {
	store := memory.New()
	l := newTestLedger(t, store)

	cats := l.Categories()
	require.Len(t, cats, len(core.DefaultCategorySeeds()))
	for _, c := range cats {
		assert.True(t, c.IsDefault)
		assert.NotEmpty(t, c.ID)
		assert.Equal(t, "owner-1", c.OwnerID)
	}
	assert.Equal(t, "Alimentação", cats[0].Name)
	assert.True(t, l.Loaded())

	// A second ledger on the same store finds the seeded categories.
	again := newTestLedger(t, store)
	assert.Equal(t, categoryIDs(cats), categoryIDs(again.Categories()))
}

// flakySeeder refuses to seed while down is set.
type flakySeeder struct {
	*memory.Store
	down bool
}

func (s *flakySeeder) SeedCategories(ctx context.Context, ownerID string, seeds []core.Category) ([]core.Category, error) {
	if s.down {
		return nil, errWriteRefused
	}
	return s.Store.SeedCategories(ctx, ownerID, seeds)
}

func TestLoadSeedFailureStoresNothing(t *testing.T) {
	store := &flakySeeder{Store: memory.New(), down: true}
	l, err := NewLedger("owner-1", store)
	require.NoError(t, err)

	err = l.Load(context.Background())
	require.ErrorIs(t, err, errWriteRefused)
	assert.False(t, l.Loaded())
	cats, err := store.ListCategories(context.Background(), "owner-1")
	require.NoError(t, err)
	assert.Empty(t, cats)

	store.down = false
	require.NoError(t, l.Load(context.Background()))
	assert.Len(t, l.Categories(), len(core.DefaultCategorySeeds()))
}

func TestLoadCompletesPartialDefaults(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	defaults := core.DefaultCategories("owner-1")
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, c := range defaults[:2] {
		c.ID = fmt.Sprintf("legacy-%d", i)
		c.CreatedAt = created.Add(time.Duration(i))
		require.NoError(t, store.CreateCategory(ctx, c))
	}

	l := newTestLedger(t, store)
	cats := l.Categories()
	require.Len(t, cats, len(defaults))
	assert.Equal(t, "legacy-0", cats[0].ID)
	assert.Equal(t, "legacy-1", cats[1].ID)
	names := make(map[string]int)
	for _, c := range cats {
		names[c.Name]++
	}
	for name, n := range names {
		assert.Equal(t, 1, n, name)
	}
}

func TestConcurrentFirstLoadsSeedOnce(t *testing.T) {
	store := memory.New()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l, err := NewLedger("owner-1", store)
			if assert.NoError(t, err) {
				assert.NoError(t, l.Load(context.Background()))
			}
		}()
	}
	wg.Wait()

	cats, err := store.ListCategories(context.Background(), "owner-1")
	require.NoError(t, err)
	assert.Len(t, cats, len(core.DefaultCategorySeeds()))
}

func TestAddTransactionPrependsAndPersists(t *testing.T) {
	store := memory.New()
	pub := &recordingPublisher{}
	notif := &recordingNotifier{}
	l := newTestLedger(t, store, WithPublisher(pub), WithNotifier(notif))
	food := categoryNamed(t, l, "Alimentação")

	first, err := l.AddTransaction(context.Background(), draft("Groceries", 4000, core.KindExpense, food.ID, core.NewDate(2024, 3, 10)))
	require.NoError(t, err)
	second, err := l.AddTransaction(context.Background(), draft("Bakery", 500, core.KindExpense, food.ID, core.NewDate(2024, 3, 1)))
	require.NoError(t, err)

	txs := l.Transactions()
	require.Len(t, txs, 2)
	assert.Equal(t, second.ID, txs[0].ID)
	assert.Equal(t, first.ID, txs[1].ID)
	assert.Equal(t, "owner-1", first.OwnerID)
	assert.False(t, first.CreatedAt.IsZero())

	stored, err := store.GetTransaction(context.Background(), "owner-1", first.ID)
	require.NoError(t, err)
	assert.Equal(t, first, stored)

	require.Len(t, pub.events, 2)
	e := pub.events[0]
	assert.Equal(t, ports.EventCreated, e.Type)
	assert.Equal(t, ports.EntityTransaction, e.Entity)
	assert.Equal(t, first.ID, e.EntityID)
	assert.Equal(t, 2, e.Month)
	assert.Equal(t, 2024, e.Year)
	assert.Equal(t, []string{"owner-1", "owner-1"}, notif.owners)
}

func TestAddTransactionValidation(t *testing.T) {
	l := newTestLedger(t, memory.New())
	food := categoryNamed(t, l, "Alimentação")

	cases := []struct {
		name string
		tx   core.Transaction
		want error
	}{
		{"zero amount", draft("Groceries", 0, core.KindExpense, food.ID, core.NewDate(2024, 3, 1)), core.ErrInvalidAmount},
		{"short description", draft("ab", 100, core.KindExpense, food.ID, core.NewDate(2024, 3, 1)), core.ErrDescriptionTooShort},
		{"no category", draft("Groceries", 100, core.KindExpense, "", core.NewDate(2024, 3, 1)), core.ErrEmptyCategory},
		{"no date", draft("Groceries", 100, core.KindExpense, food.ID, core.Date{}), core.ErrInvalidDate},
		{"income under expense category", draft("Refund", 100, core.KindIncome, food.ID, core.NewDate(2024, 3, 1)), core.ErrCategoryKindMismatch},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := l.AddTransaction(context.Background(), tc.tx)
			assert.ErrorIs(t, err, tc.want)
		})
	}
	assert.Empty(t, l.Transactions())
}

func TestAddTransactionUnknownCategoryIsAccepted(t *testing.T) {
	l := newTestLedger(t, memory.New())
	tx, err := l.AddTransaction(context.Background(), draft("Mystery", 100, core.KindExpense, "gone", core.NewDate(2024, 3, 1)))
	require.NoError(t, err)
	assert.Equal(t, core.UnknownCategoryName, l.ResolveCategory(tx.CategoryID).Name)
}

func TestEditTransactionKeepsPosition(t *testing.T) {
	l := newTestLedger(t, memory.New())
	food := categoryNamed(t, l, "Alimentação")
	salary := categoryNamed(t, l, "Salário")
	ctx := context.Background()

	a, err := l.AddTransaction(ctx, draft("Groceries", 4000, core.KindExpense, food.ID, core.NewDate(2024, 3, 10)))
	require.NoError(t, err)
	b, err := l.AddTransaction(ctx, draft("Bakery", 500, core.KindExpense, food.ID, core.NewDate(2024, 3, 11)))
	require.NoError(t, err)

	amount := core.Money{Cents: 4500}
	recurring := true
	freq := core.Monthly
	edited, err := l.EditTransaction(ctx, a.ID, core.TransactionUpdate{Amount: &amount, IsRecurring: &recurring, RecurrenceFrequency: &freq})
	require.NoError(t, err)
	assert.Equal(t, int64(4500), edited.Amount.Cents)
	assert.True(t, edited.UpdatedAt.After(a.UpdatedAt))

	txs := l.Transactions()
	assert.Equal(t, []string{b.ID, a.ID}, []string{txs[0].ID, txs[1].ID})
	assert.Equal(t, core.Monthly, txs[1].RecurrenceFrequency)

	kind := core.KindIncome
	_, err = l.EditTransaction(ctx, a.ID, core.TransactionUpdate{Kind: &kind})
	assert.ErrorIs(t, err, core.ErrCategoryKindMismatch)

	_, err = l.EditTransaction(ctx, a.ID, core.TransactionUpdate{Kind: &kind, CategoryID: &salary.ID})
	assert.NoError(t, err)

	_, err = l.EditTransaction(ctx, "missing", core.TransactionUpdate{Amount: &amount})
	assert.ErrorIs(t, err, core.ErrNotFound)

	_, err = l.EditTransaction(ctx, a.ID, core.TransactionUpdate{})
	assert.ErrorIs(t, err, core.ErrEmptyUpdate)
}

func TestDeleteTransaction(t *testing.T) {
	pub := &recordingPublisher{}
	l := newTestLedger(t, memory.New(), WithPublisher(pub))
	food := categoryNamed(t, l, "Alimentação")
	ctx := context.Background()

	tx, err := l.AddTransaction(ctx, draft("Groceries", 4000, core.KindExpense, food.ID, core.NewDate(2024, 1, 10)))
	require.NoError(t, err)
	require.NoError(t, l.DeleteTransaction(ctx, tx.ID))
	assert.Empty(t, l.Transactions())
	assert.ErrorIs(t, l.DeleteTransaction(ctx, tx.ID), core.ErrNotFound)

	last := pub.events[len(pub.events)-1]
	assert.Equal(t, ports.EventDeleted, last.Type)
	assert.Equal(t, 0, last.Month)
}

func TestRepositoryFailureLeavesLedgerUnchanged(t *testing.T) {
	store := memory.New()
	seeded := newTestLedger(t, store)
	food := categoryNamed(t, seeded, "Alimentação")
	tx, err := seeded.AddTransaction(context.Background(), draft("Groceries", 4000, core.KindExpense, food.ID, core.NewDate(2024, 3, 10)))
	require.NoError(t, err)

	pub := &recordingPublisher{}
	l := newTestLedger(t, failingRepo{store}, WithPublisher(pub))
	before := l.Transactions()

	_, err = l.AddTransaction(context.Background(), draft("Bakery", 500, core.KindExpense, food.ID, core.NewDate(2024, 3, 11)))
	assert.ErrorIs(t, err, errWriteRefused)
	amount := core.Money{Cents: 1}
	_, err = l.EditTransaction(context.Background(), tx.ID, core.TransactionUpdate{Amount: &amount})
	assert.ErrorIs(t, err, errWriteRefused)
	assert.ErrorIs(t, l.DeleteTransaction(context.Background(), tx.ID), errWriteRefused)

	assert.Equal(t, before, l.Transactions())
	assert.Empty(t, pub.events)
}

func TestPublishFailureDoesNotFailMutation(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("broker down")}
	l := newTestLedger(t, memory.New(), WithPublisher(pub))
	food := categoryNamed(t, l, "Alimentação")

	_, err := l.AddTransaction(context.Background(), draft("Groceries", 4000, core.KindExpense, food.ID, core.NewDate(2024, 3, 10)))
	require.NoError(t, err)
	assert.Len(t, l.Transactions(), 1)
	assert.Len(t, pub.events, 1)
}

func TestCategoryLifecycle(t *testing.T) {
	pub := &recordingPublisher{}
	l := newTestLedger(t, memory.New(), WithPublisher(pub))
	ctx := context.Background()

	c, err := l.AddCategory(ctx, core.Category{Name: "Pets", Color: "#abc", Kind: core.KindExpense, IsDefault: true})
	require.NoError(t, err)
	assert.False(t, c.IsDefault)
	cats := l.Categories()
	assert.Equal(t, c.ID, cats[len(cats)-1].ID)

	name := "Pet care"
	edited, err := l.EditCategory(ctx, c.ID, core.CategoryUpdate{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Pet care", edited.Name)

	_, err = l.AddCategory(ctx, core.Category{Name: "X", Color: "#abc", Kind: core.KindExpense})
	assert.ErrorIs(t, err, core.ErrCategoryNameTooShort)

	require.NoError(t, l.DeleteCategory(ctx, c.ID))
	assert.ErrorIs(t, l.DeleteCategory(ctx, c.ID), core.ErrNotFound)

	types := make([]ports.EventType, 0, len(pub.events))
	for _, e := range pub.events {
		assert.Equal(t, ports.EntityCategory, e.Entity)
		types = append(types, e.Type)
	}
	assert.Equal(t, []ports.EventType{ports.EventCreated, ports.EventUpdated, ports.EventDeleted}, types)
}

func TestEditCategoryKindKeepsTransactionsConsistent(t *testing.T) {
	store := memory.New()
	l := newTestLedger(t, store)
	ctx := context.Background()
	pets, err := l.AddCategory(ctx, core.Category{Name: "Pets", Color: "#123456", Kind: core.KindExpense})
	require.NoError(t, err)
	vet, err := l.AddTransaction(ctx, draft("Vet visit", 9000, core.KindExpense, pets.ID, core.NewDate(2024, 3, 2)))
	require.NoError(t, err)

	income := core.KindIncome
	_, err = l.EditCategory(ctx, pets.ID, core.CategoryUpdate{Kind: &income})
	assert.ErrorIs(t, err, core.ErrCategoryKindMismatch)
	assert.Equal(t, core.KindExpense, categoryNamed(t, l, "Pets").Kind)
	stored, err := store.GetCategory(ctx, "owner-1", pets.ID)
	require.NoError(t, err)
	assert.Equal(t, core.KindExpense, stored.Kind)

	// Other fields can still change while the kind stays.
	color := "#654321"
	_, err = l.EditCategory(ctx, pets.ID, core.CategoryUpdate{Color: &color, Kind: &pets.Kind})
	require.NoError(t, err)

	require.NoError(t, l.DeleteTransaction(ctx, vet.ID))
	edited, err := l.EditCategory(ctx, pets.ID, core.CategoryUpdate{Kind: &income})
	require.NoError(t, err)
	assert.Equal(t, core.KindIncome, edited.Kind)
}

func TestDefaultCategoriesAreImmutable(t *testing.T) {
	l := newTestLedger(t, memory.New())
	food := categoryNamed(t, l, "Alimentação")
	color := "#000000"

	_, err := l.EditCategory(context.Background(), food.ID, core.CategoryUpdate{Color: &color})
	assert.ErrorIs(t, err, core.ErrDefaultCategory)
	assert.ErrorIs(t, l.DeleteCategory(context.Background(), food.ID), core.ErrDefaultCategory)
	assert.Equal(t, "#ef4444", categoryNamed(t, l, "Alimentação").Color)
}

func TestDeletedCategoryShowsAsUnknown(t *testing.T) {
	l := newTestLedger(t, memory.New())
	ctx := context.Background()
	pets, err := l.AddCategory(ctx, core.Category{Name: "Pets", Color: "#123456", Kind: core.KindExpense})
	require.NoError(t, err)
	_, err = l.AddTransaction(ctx, draft("Vet visit", 9000, core.KindExpense, pets.ID, core.NewDate(2024, 3, 2)))
	require.NoError(t, err)
	require.NoError(t, l.DeleteCategory(ctx, pets.ID))

	lines := l.LabeledCategorySummary(2, 2024, core.KindExpense)
	require.Len(t, lines, 1)
	assert.Equal(t, pets.ID, lines[0].CategoryID)
	assert.Equal(t, core.UnknownCategoryName, lines[0].Name)
	assert.Equal(t, core.UnknownCategoryColor, lines[0].Color)
	assert.False(t, lines[0].Known)
	assert.InDelta(t, 100.0, lines[0].Percentage, 1e-9)
}

func TestMonthlyQueries(t *testing.T) {
	l := newTestLedger(t, memory.New())
	food := categoryNamed(t, l, "Alimentação")
	transport := categoryNamed(t, l, "Transporte")
	salary := categoryNamed(t, l, "Salário")
	ctx := context.Background()

	for _, d := range []core.Transaction{
		draft("Salary March", 500000, core.KindIncome, salary.ID, core.NewDate(2024, 3, 1)),
		draft("Groceries", 4000, core.KindExpense, food.ID, core.NewDate(2024, 3, 5)),
		draft("Train pass", 6000, core.KindExpense, transport.ID, core.NewDate(2024, 3, 6)),
		draft("Groceries Feb", 3000, core.KindExpense, food.ID, core.NewDate(2024, 2, 20)),
	} {
		_, err := l.AddTransaction(ctx, d)
		require.NoError(t, err)
	}

	assert.Len(t, l.TransactionsByMonth(2, 2024), 3)
	assert.Len(t, l.TransactionsByMonth(1, 2024), 1)

	bal := l.MonthlyBalance(2, 2024)
	assert.Equal(t, int64(500000), bal.TotalIncome.Cents)
	assert.Equal(t, int64(10000), bal.TotalExpense.Cents)
	assert.Equal(t, int64(490000), bal.Net.Cents)

	summary := l.CategorySummary(2, 2024, core.KindExpense)
	require.Len(t, summary, 2)
	assert.Equal(t, transport.ID, summary[0].CategoryID)
	assert.InDelta(t, 60.0, summary[0].Percentage, 1e-9)
	assert.Equal(t, food.ID, summary[1].CategoryID)

	lines := l.LabeledCategorySummary(2, 2024, core.KindExpense)
	assert.Equal(t, "Transporte", lines[0].Name)
	assert.True(t, lines[0].Known)

	income := l.CategoriesForKind(core.KindIncome)
	assert.Equal(t, []string{"Salário", "Investimentos"}, categoryNames(income))
}

func TestRecurringQueries(t *testing.T) {
	l := newTestLedger(t, memory.New())
	home := categoryNamed(t, l, "Moradia")
	ctx := context.Background()

	rent := draft("Rent", 90000, core.KindExpense, home.ID, core.NewDate(2024, 1, 5))
	rent.IsRecurring = true
	rent.RecurrenceFrequency = core.Monthly
	_, err := l.AddTransaction(ctx, rent)
	require.NoError(t, err)
	_, err = l.AddTransaction(ctx, draft("Plumber", 12000, core.KindExpense, home.ID, core.NewDate(2024, 3, 2)))
	require.NoError(t, err)

	assert.Len(t, l.RecurringTransactions(), 1)
	upcoming := l.UpcomingRecurring(core.NewDate(2024, 3, 6))
	require.Len(t, upcoming, 1)
	assert.Equal(t, "2024-04-05", upcoming[0].NextOccurrence.String())
}

func TestConcurrentReadersAndWriters(t *testing.T) {
	l := newTestLedger(t, memory.New(), WithIDGenerator(uuid.NewString), WithClock(time.Now))
	food := categoryNamed(t, l, "Alimentação")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			_, _ = l.AddTransaction(context.Background(), draft(fmt.Sprintf("Item %d", i), int64(100+i), core.KindExpense, food.ID, core.NewDate(2024, 3, 1+i)))
		}(i)
		go func() {
			defer wg.Done()
			_ = l.MonthlyBalance(2, 2024)
			_ = l.CategorySummary(2, 2024, core.KindExpense)
		}()
	}
	wg.Wait()

	bal := l.MonthlyBalance(2, 2024)
	var want int64
	for _, tx := range l.Transactions() {
		want += tx.Amount.Cents
	}
	assert.Equal(t, want, bal.TotalExpense.Cents)
}

func categoryIDs(cats []core.Category) []string {
	out := make([]string, len(cats))
	for i, c := range cats {
		out[i] = c.ID
	}
	return out
}

func categoryNames(cats []core.Category) []string {
	out := make([]string, len(cats))
	for i, c := range cats {
		out[i] = c.Name
	}
	return out
}
