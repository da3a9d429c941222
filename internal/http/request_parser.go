// Package http provides the JSON API server and its handlers.
//
// This file implements utilities for parsing and validating HTTP request data:
// the owner header, month/year query parameters and JSON bodies.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"saldo/internal/core"
)

// OwnerHeader carries the authenticated user id, set by the auth proxy.
const OwnerHeader = "X-User-ID"

const maxBodyBytes = 1 << 20

var (
	errMissingOwner  = errors.New("missing " + OwnerHeader + " header")
	errInvalidMonth  = errors.New("month must be between 0 and 11")
	errInvalidYear   = errors.New("year must be between 1 and 9999")
	errPartialPeriod = errors.New("month and year must be given together")
)

// badRequestError marks malformed input that is not a domain validation error.
type badRequestError struct {
	err error
}

func (e *badRequestError) Error() string { return e.err.Error() }
func (e *badRequestError) Unwrap() error { return e.err }

func badRequest(err error) error {
	return &badRequestError{err: err}
}

// ownerID returns the owner of the request.
func ownerID(r *http.Request) (string, error) {
	owner := sanitizeInput(r.Header.Get(OwnerHeader))
	if owner == "" {
		return "", badRequest(errMissingOwner)
	}
	return owner, nil
}

// MonthParams holds a zero-based month and its year.
type MonthParams struct {
	Month int
	Year  int
}

// ParseMonthParams reads month (0-11) and year from query. Missing values
// default to the month containing now.
func ParseMonthParams(query url.Values, now time.Time) (MonthParams, error) {
	params, given, err := parseOptionalMonth(query)
	if err != nil {
		return MonthParams{}, err
	}
	if !given {
		d := core.DateOf(now)
		params = MonthParams{Month: d.MonthIndex(), Year: d.Year()}
	}
	return params, nil
}

// parseOptionalMonth reports given=false when neither month nor year is
// present; one without the other is an error.
func parseOptionalMonth(query url.Values) (params MonthParams, given bool, err error) {
	rawMonth := strings.TrimSpace(query.Get("month"))
	rawYear := strings.TrimSpace(query.Get("year"))
	if rawMonth == "" && rawYear == "" {
		return MonthParams{}, false, nil
	}
	if rawMonth == "" || rawYear == "" {
		return MonthParams{}, false, badRequest(errPartialPeriod)
	}

	month, err := strconv.Atoi(rawMonth)
	if err != nil || month < 0 || month > 11 {
		return MonthParams{}, false, badRequest(errInvalidMonth)
	}
	year, err := strconv.Atoi(rawYear)
	if err != nil || year < 1 || year > 9999 {
		return MonthParams{}, false, badRequest(errInvalidYear)
	}
	return MonthParams{Month: month, Year: year}, true, nil
}

// parseKind reads an optional kind parameter; empty means "any".
func parseKind(query url.Values) (core.Kind, error) {
	raw := strings.TrimSpace(query.Get("kind"))
	if raw == "" {
		return "", nil
	}
	return core.ParseKind(raw)
}

// parseKindOr reads the kind parameter, defaulting to def.
func parseKindOr(query url.Values, def core.Kind) (core.Kind, error) {
	k, err := parseKind(query)
	if err != nil || k != "" {
		return k, err
	}
	return def, nil
}

// decodeJSON reads a single JSON object into dst, rejecting unknown fields
// and trailing data.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	if ct := r.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(strings.ToLower(ct), "application/json") {
		return badRequest(fmt.Errorf("unsupported content type %q", ct))
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if isDomainError(err) {
			return err
		}
		if errors.Is(err, io.EOF) {
			return badRequest(errors.New("request body is empty"))
		}
		return badRequest(fmt.Errorf("malformed JSON body: %w", err))
	}
	if dec.More() {
		return badRequest(errors.New("request body must contain a single JSON object"))
	}
	return nil
}

// sanitizeInput removes control characters except tab, newline and carriage
// return, and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// sanitizePtr applies sanitizeInput to an optional field.
func sanitizePtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := sanitizeInput(*s)
	return &v
}

// transactionRequest is the body of POST /api/transactions.
type transactionRequest struct {
	Amount              core.Money     `json:"amount"`
	Kind                core.Kind      `json:"kind"`
	Description         string         `json:"description"`
	OccurredOn          core.Date      `json:"occurred_on"`
	CategoryID          string         `json:"category_id"`
	IsRecurring         bool           `json:"is_recurring"`
	RecurrenceFrequency core.Frequency `json:"recurrence_frequency,omitempty"`
}

func (req transactionRequest) toTransaction() core.Transaction {
	return core.Transaction{
		Amount:              req.Amount,
		Kind:                normalizeKind(req.Kind),
		Description:         sanitizeInput(req.Description),
		OccurredOn:          req.OccurredOn,
		CategoryID:          strings.TrimSpace(req.CategoryID),
		IsRecurring:         req.IsRecurring,
		RecurrenceFrequency: normalizeFrequency(req.RecurrenceFrequency),
	}
}

// normalizeTransactionUpdate cleans a PATCH body the way toTransaction
// cleans a POST body.
func normalizeTransactionUpdate(u *core.TransactionUpdate) {
	u.Description = sanitizePtr(u.Description)
	if u.Kind != nil {
		k := normalizeKind(*u.Kind)
		u.Kind = &k
	}
	if u.RecurrenceFrequency != nil {
		f := normalizeFrequency(*u.RecurrenceFrequency)
		u.RecurrenceFrequency = &f
	}
	if u.CategoryID != nil {
		id := strings.TrimSpace(*u.CategoryID)
		u.CategoryID = &id
	}
}

func normalizeCategoryUpdate(u *core.CategoryUpdate) {
	u.Name = sanitizePtr(u.Name)
	u.Icon = sanitizePtr(u.Icon)
	if u.Color != nil {
		c := strings.TrimSpace(*u.Color)
		u.Color = &c
	}
	if u.Kind != nil {
		k := normalizeKind(*u.Kind)
		u.Kind = &k
	}
}

func normalizeKind(k core.Kind) core.Kind {
	return core.Kind(strings.ToLower(strings.TrimSpace(string(k))))
}

func normalizeFrequency(f core.Frequency) core.Frequency {
	return core.Frequency(strings.ToLower(strings.TrimSpace(string(f))))
}

// categoryRequest is the body of POST /api/categories.
type categoryRequest struct {
	Name  string    `json:"name"`
	Color string    `json:"color"`
	Icon  string    `json:"icon,omitempty"`
	Kind  core.Kind `json:"kind"`
}

func (req categoryRequest) toCategory() core.Category {
	return core.Category{
		Name:  sanitizeInput(req.Name),
		Color: strings.TrimSpace(req.Color),
		Icon:  sanitizeInput(req.Icon),
		Kind:  normalizeKind(req.Kind),
	}
}
