package core

// Totals is the income/expense split of a set of transactions.
type Totals struct {
	TotalIncome  Money `json:"total_income"`
	TotalExpense Money `json:"total_expense"`
	Net          Money `json:"net"`
}

// MonthlyBalance is the Totals of one calendar month.
type MonthlyBalance struct {
	Month int `json:"month"` // 0-11
	Year  int `json:"year"`
	Totals
}

// CategorySummaryEntry is one category's share of a month's income or expense.
type CategorySummaryEntry struct {
	CategoryID string  `json:"category_id"`
	Total      Money   `json:"total"`
	Percentage float64 `json:"percentage"`
}

// CategoryLabel is how a category id is shown to users.
type CategoryLabel struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
	Known bool   `json:"known"`
}

const (
	UnknownCategoryName  = "Unknown"
	UnknownCategoryColor = "#6b7280"
)
