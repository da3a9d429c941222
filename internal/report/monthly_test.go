package report

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"saldo/internal/core"
	"saldo/internal/memory"
	"saldo/internal/services"
)

func loadedLedger(t *testing.T) *services.Ledger {
	t.Helper()
	ctx := context.Background()
	l, err := services.NewLedger("alice", memory.New())
	require.NoError(t, err)
	require.NoError(t, l.Load(ctx))

	expense := l.CategoriesForKind(core.KindExpense)[0]
	income := l.CategoriesForKind(core.KindIncome)[0]
	for _, tx := range []core.Transaction{
		{Amount: core.Money{Cents: 300000}, Kind: core.KindIncome, Description: "Salary", OccurredOn: core.NewDate(2024, 3, 5), CategoryID: income.ID},
		{Amount: core.Money{Cents: 7500}, Kind: core.KindExpense, Description: "Groceries", OccurredOn: core.NewDate(2024, 3, 9), CategoryID: expense.ID},
		{Amount: core.Money{Cents: 2500}, Kind: core.KindExpense, Description: "Lunch out", OccurredOn: core.NewDate(2024, 3, 12), CategoryID: "gone"},
		{Amount: core.Money{Cents: 9900}, Kind: core.KindExpense, Description: "Other month", OccurredOn: core.NewDate(2024, 4, 1), CategoryID: expense.ID},
	} {
		_, err := l.AddTransaction(ctx, tx)
		require.NoError(t, err)
	}
	return l
}

func TestNewMonthly(t *testing.T) {
	m := NewMonthly(loadedLedger(t), 2, 2024)

	assert.Equal(t, "alice", m.OwnerID)
	assert.Equal(t, "March 2024", m.Title())
	assert.Equal(t, int64(300000), m.Balance.TotalIncome.Cents)
	assert.Equal(t, int64(10000), m.Balance.TotalExpense.Cents)
	require.Len(t, m.Expenses, 2)
	assert.InDelta(t, 75.0, m.Expenses[0].Percentage, 0.001)
	assert.False(t, m.Expenses[1].Known)
	require.Len(t, m.Income, 1)
}

func TestRender(t *testing.T) {
	out := NewMonthly(loadedLedger(t), 2, 2024).Render()

	for _, want := range []string{"March 2024", "alice", "3000.00", "100.00", "2900.00", "75.0%", core.UnknownCategoryName} {
		assert.Contains(t, out, want)
	}
	assert.NotContains(t, out, "99.00")
}

func TestRenderEmptyMonth(t *testing.T) {
	out := NewMonthly(loadedLedger(t), 0, 2023).Render()
	assert.Equal(t, 2, strings.Count(out, "(nothing recorded)"))
	assert.Contains(t, out, "January 2023")
}

func TestBar(t *testing.T) {
	assert.Equal(t, barWidth, strings.Count(bar(100), "█"))
	assert.Equal(t, 0, strings.Count(bar(0), "█"))
	assert.Equal(t, 10, strings.Count(bar(50), "█"))
	assert.Equal(t, barWidth, strings.Count(bar(140), "█"))
}
