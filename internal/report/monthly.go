// Package report renders ledger summaries for the terminal.
package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"saldo/internal/core"
	"saldo/internal/services"
)

const barWidth = 20

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	headerStyle  = lipgloss.NewStyle().Bold(true).Underline(true)
	labelStyle   = lipgloss.NewStyle().Width(10)
	incomeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#22c55e"))
	expenseStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#ef4444"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	boxStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

// Monthly is everything shown in the month report of one owner.
type Monthly struct {
	OwnerID  string
	Balance  core.MonthlyBalance
	Expenses []services.SummaryLine
	Income   []services.SummaryLine
}

// NewMonthly collects the report data for month (0-11) of year from l.
func NewMonthly(l *services.Ledger, month, year int) Monthly {
	return Monthly{
		OwnerID:  l.OwnerID(),
		Balance:  l.MonthlyBalance(month, year),
		Expenses: l.LabeledCategorySummary(month, year, core.KindExpense),
		Income:   l.LabeledCategorySummary(month, year, core.KindIncome),
	}
}

// Title is "<Month> <Year>" with the zero-based month resolved.
func (m Monthly) Title() string {
	return fmt.Sprintf("%s %d", time.Month(m.Balance.Month+1), m.Balance.Year)
}

// Render lays the report out as a bordered block.
func (m Monthly) Render() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(m.Title()))
	if m.OwnerID != "" {
		b.WriteString(mutedStyle.Render("  " + m.OwnerID))
	}
	b.WriteString("\n\n")

	b.WriteString(labelStyle.Render("Income") + incomeStyle.Render(m.Balance.TotalIncome.String()) + "\n")
	b.WriteString(labelStyle.Render("Expenses") + expenseStyle.Render(m.Balance.TotalExpense.String()) + "\n")
	netStyle := incomeStyle
	if m.Balance.Net.Cents < 0 {
		netStyle = expenseStyle
	}
	b.WriteString(labelStyle.Render("Net") + netStyle.Bold(true).Render(m.Balance.Net.String()) + "\n")

	b.WriteString(section("Expenses by category", m.Expenses))
	b.WriteString(section("Income by category", m.Income))

	return boxStyle.Render(strings.TrimRight(b.String(), "\n"))
}

func section(title string, lines []services.SummaryLine) string {
	var b strings.Builder
	b.WriteString("\n" + headerStyle.Render(title) + "\n")
	if len(lines) == 0 {
		b.WriteString(mutedStyle.Render("(nothing recorded)") + "\n")
		return b.String()
	}

	nameWidth := 0
	for _, l := range lines {
		nameWidth = max(nameWidth, lipgloss.Width(l.Name))
	}
	nameStyle := lipgloss.NewStyle().Width(nameWidth + 2)
	for _, l := range lines {
		swatch := lipgloss.NewStyle().Foreground(lipgloss.Color(l.Color)).Render("■")
		name := l.Name
		if !l.Known {
			name = mutedStyle.Render(name)
		}
		fmt.Fprintf(&b, "%s %s%10s %6.1f%% %s\n",
			swatch, nameStyle.Render(name), l.Total.String(), l.Percentage, bar(l.Percentage))
	}
	return b.String()
}

// bar draws pct (0-100) as a block of barWidth cells.
func bar(pct float64) string {
	filled := int(pct/100*barWidth + 0.5)
	filled = min(max(filled, 0), barWidth)
	return strings.Repeat("█", filled) + mutedStyle.Render(strings.Repeat("░", barWidth-filled))
}
