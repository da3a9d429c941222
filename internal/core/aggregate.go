package core

import (
	"cmp"
	"slices"
)

// FilterByMonth returns the transactions dated in the zero-based month of
// year, in their original order. The result is never nil.
func FilterByMonth(txs []Transaction, month, year int) []Transaction {
	out := make([]Transaction, 0)
	for _, t := range txs {
		if t.OccurredOn.In(month, year) {
			out = append(out, t)
		}
	}
	return out
}

// FilterByKind returns the transactions of kind k, in their original order.
func FilterByKind(txs []Transaction, k Kind) []Transaction {
	out := make([]Transaction, 0)
	for _, t := range txs {
		if t.Kind == k {
			out = append(out, t)
		}
	}
	return out
}

// Recurring returns the transactions flagged as recurring.
func Recurring(txs []Transaction) []Transaction {
	out := make([]Transaction, 0)
	for _, t := range txs {
		if t.IsRecurring {
			out = append(out, t)
		}
	}
	return out
}

// Balance sums income and expense separately. Amounts are not checked for
// sign.
func Balance(txs []Transaction) Totals {
	var tot Totals
	for _, t := range txs {
		switch t.Kind {
		case KindIncome:
			tot.TotalIncome = tot.TotalIncome.Add(t.Amount)
		case KindExpense:
			tot.TotalExpense = tot.TotalExpense.Add(t.Amount)
		}
	}
	tot.Net = tot.TotalIncome.Sub(tot.TotalExpense)
	return tot
}

// MonthlyBalanceOf filters txs to the month and balances them.
func MonthlyBalanceOf(txs []Transaction, month, year int) MonthlyBalance {
	return MonthlyBalance{
		Month:  month,
		Year:   year,
		Totals: Balance(FilterByMonth(txs, month, year)),
	}
}

// SummarizeByCategory groups txs by category id and orders the groups by
// total, largest first. Equal totals keep the order in which their category
// first appeared. When the grand total is not positive every percentage is 0.
func SummarizeByCategory(txs []Transaction) []CategorySummaryEntry {
	entries := make([]CategorySummaryEntry, 0)
	index := make(map[string]int)
	var grand int64
	for _, t := range txs {
		i, ok := index[t.CategoryID]
		if !ok {
			i = len(entries)
			index[t.CategoryID] = i
			entries = append(entries, CategorySummaryEntry{CategoryID: t.CategoryID})
		}
		entries[i].Total = entries[i].Total.Add(t.Amount)
		grand += t.Amount.Cents
	}
	if grand > 0 {
		for i := range entries {
			entries[i].Percentage = 100 * float64(entries[i].Total.Cents) / float64(grand)
		}
	}
	slices.SortStableFunc(entries, func(a, b CategorySummaryEntry) int {
		return cmp.Compare(b.Total.Cents, a.Total.Cents)
	})
	return entries
}

// MonthlyCategorySummary summarizes the transactions of kind k in the month.
func MonthlyCategorySummary(txs []Transaction, month, year int, k Kind) []CategorySummaryEntry {
	return SummarizeByCategory(FilterByKind(FilterByMonth(txs, month, year), k))
}

// CategoriesForKind returns the categories whose kind is k. Names play no
// part in the decision.
func CategoriesForKind(cats []Category, k Kind) []Category {
	out := make([]Category, 0)
	for _, c := range cats {
		if c.Accepts(k) {
			out = append(out, c)
		}
	}
	return out
}

// FindCategory looks a category up by id.
func FindCategory(cats []Category, id string) (Category, bool) {
	for _, c := range cats {
		if c.ID == id {
			return c, true
		}
	}
	return Category{}, false
}

// ResolveCategory returns the display label for id, falling back to
// UnknownCategoryName and UnknownCategoryColor when id does not resolve.
func ResolveCategory(cats []Category, id string) CategoryLabel {
	if c, ok := FindCategory(cats, id); ok {
		return CategoryLabel{ID: id, Name: c.Name, Color: c.Color, Known: true}
	}
	return CategoryLabel{ID: id, Name: UnknownCategoryName, Color: UnknownCategoryColor}
}
