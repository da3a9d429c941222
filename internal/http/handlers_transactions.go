package http

import (
	"net/http"

	"saldo/internal/core"
	"saldo/internal/log"
	"saldo/internal/services"
)

type transactionsResponse struct {
	Month        *int               `json:"month,omitempty"`
	Year         *int               `json:"year,omitempty"`
	Transactions []core.Transaction `json:"transactions"`
}

type recurringResponse struct {
	From         core.Date                      `json:"from"`
	Transactions []services.UpcomingTransaction `json:"transactions"`
}

// handleListTransactions returns every transaction, or only those of one
// month when month and year are given.
func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	period, filtered, err := parseOptionalMonth(r.URL.Query())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	l, ok := s.ledger(w, r)
	if !ok {
		return
	}

	resp := transactionsResponse{}
	if filtered {
		resp.Month, resp.Year = &period.Month, &period.Year
		resp.Transactions = l.TransactionsByMonth(period.Month, period.Year)
	} else {
		resp.Transactions = l.Transactions()
	}
	resp.Transactions = nonNil(resp.Transactions)
	NewJSONResponse().Body(resp).Write(w)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	l, ok := s.ledger(w, r)
	if !ok {
		return
	}
	var req transactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	t, err := l.AddTransaction(r.Context(), req.toTransaction())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.mutations.LogMutation(r.Context(), log.OpCreate, "transaction", l.OwnerID(), t.ID)
	NewJSONResponse().
		Status(http.StatusCreated).
		Header("Location", "/api/transactions/"+t.ID).
		Body(t).
		Write(w)
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	l, ok := s.ledger(w, r)
	if !ok {
		return
	}
	var u core.TransactionUpdate
	if err := decodeJSON(w, r, &u); err != nil {
		s.writeError(w, r, err)
		return
	}
	normalizeTransactionUpdate(&u)

	t, err := l.EditTransaction(r.Context(), r.PathValue("id"), u)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.mutations.LogMutation(r.Context(), log.OpUpdate, "transaction", l.OwnerID(), t.ID)
	NewJSONResponse().Body(t).Write(w)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	l, ok := s.ledger(w, r)
	if !ok {
		return
	}
	id := r.PathValue("id")
	if err := l.DeleteTransaction(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.mutations.LogMutation(r.Context(), log.OpDelete, "transaction", l.OwnerID(), id)
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

// handleRecurringTransactions lists recurring transactions with the next
// date each is expected again, counted from today.
func (s *Server) handleRecurringTransactions(w http.ResponseWriter, r *http.Request) {
	l, ok := s.ledger(w, r)
	if !ok {
		return
	}
	from := core.DateOf(s.now())
	NewJSONResponse().Body(recurringResponse{
		From:         from,
		Transactions: nonNil(l.UpcomingRecurring(from)),
	}).Write(w)
}
