package http

import (
	"net/http"

	"saldo/internal/core"
	"saldo/internal/services"
)

type summaryResponse struct {
	Month   int                    `json:"month"`
	Year    int                    `json:"year"`
	Kind    core.Kind              `json:"kind"`
	Total   core.Money             `json:"total"`
	Entries []services.SummaryLine `json:"entries"`
}

// handleBalance returns income, expense and net of one month. Month and
// year default to the current month.
func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	period, err := ParseMonthParams(r.URL.Query(), s.now())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	l, ok := s.ledger(w, r)
	if !ok {
		return
	}
	NewJSONResponse().Body(l.MonthlyBalance(period.Month, period.Year)).Write(w)
}

// handleSummary returns the per-category split of one month's expenses, or
// income with kind=income, largest first.
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	period, err := ParseMonthParams(query, s.now())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	kind, err := parseKindOr(query, core.KindExpense)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	l, ok := s.ledger(w, r)
	if !ok {
		return
	}

	lines := l.LabeledCategorySummary(period.Month, period.Year, kind)
	var total core.Money
	for _, line := range lines {
		total = total.Add(line.Total)
	}
	NewJSONResponse().Body(summaryResponse{
		Month:   period.Month,
		Year:    period.Year,
		Kind:    kind,
		Total:   total,
		Entries: nonNil(lines),
	}).Write(w)
}
