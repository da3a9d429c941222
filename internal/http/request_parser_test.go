package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"saldo/internal/core"
)

func TestParseMonthParams(t *testing.T) {
	now := time.Date(2024, 7, 15, 23, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		query     url.Values
		wantMonth int
		wantYear  int
		wantErr   error
	}{
		{
			name:      "both values provided",
			query:     url.Values{"year": {"2023"}, "month": {"11"}},
			wantMonth: 11,
			wantYear:  2023,
		},
		{
			name:      "january is zero",
			query:     url.Values{"year": {"2024"}, "month": {"0"}},
			wantMonth: 0,
			wantYear:  2024,
		},
		{
			name:      "empty query uses current month",
			query:     url.Values{},
			wantMonth: 6,
			wantYear:  2024,
		},
		{
			name:      "whitespace is trimmed",
			query:     url.Values{"year": {" 2024 "}, "month": {" 3"}},
			wantMonth: 3,
			wantYear:  2024,
		},
		{name: "month twelve", query: url.Values{"year": {"2024"}, "month": {"12"}}, wantErr: errInvalidMonth},
		{name: "negative month", query: url.Values{"year": {"2024"}, "month": {"-1"}}, wantErr: errInvalidMonth},
		{name: "non numeric month", query: url.Values{"year": {"2024"}, "month": {"march"}}, wantErr: errInvalidMonth},
		{name: "year zero", query: url.Values{"year": {"0"}, "month": {"1"}}, wantErr: errInvalidYear},
		{name: "month without year", query: url.Values{"month": {"1"}}, wantErr: errPartialPeriod},
		{name: "year without month", query: url.Values{"year": {"2024"}}, wantErr: errPartialPeriod},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseMonthParams(tt.query, now)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("error = %v, want %v", err, tt.wantErr)
				}
				var bad *badRequestError
				if !errors.As(err, &bad) {
					t.Errorf("error %v is not a bad request", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Month != tt.wantMonth || got.Year != tt.wantYear {
				t.Errorf("got %d/%d, want %d/%d", got.Month, got.Year, tt.wantMonth, tt.wantYear)
			}
		})
	}
}

func TestParseKind(t *testing.T) {
	tests := []struct {
		raw     string
		want    core.Kind
		wantErr bool
	}{
		{"", "", false},
		{"income", core.KindIncome, false},
		{" EXPENSE ", core.KindExpense, false},
		{"transfer", "", true},
	}
	for _, tt := range tests {
		got, err := parseKind(url.Values{"kind": {tt.raw}})
		if (err != nil) != tt.wantErr {
			t.Errorf("parseKind(%q) error = %v, wantErr %v", tt.raw, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("parseKind(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}

	k, err := parseKindOr(url.Values{}, core.KindExpense)
	if err != nil || k != core.KindExpense {
		t.Errorf("parseKindOr default = %q, %v", k, err)
	}
}

func TestOwnerID(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	if _, err := ownerID(r); !errors.Is(err, errMissingOwner) {
		t.Errorf("expected missing owner, got %v", err)
	}

	r.Header.Set(OwnerHeader, "  alice\x00 ")
	got, err := ownerID(r)
	if err != nil || got != "alice" {
		t.Errorf("ownerID = %q, %v", got, err)
	}
}

func TestDecodeJSON(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		contentType string
		wantErr     bool
	}{
		{name: "valid object", body: `{"name":"Pets","color":"#fff","kind":"expense"}`, contentType: "application/json; charset=utf-8"},
		{name: "no content type", body: `{"name":"Pets"}`},
		{name: "unknown field", body: `{"nome":"Pets"}`, wantErr: true},
		{name: "two objects", body: `{"name":"a"} {"name":"b"}`, wantErr: true},
		{name: "form body", body: `name=Pets`, contentType: "application/x-www-form-urlencoded", wantErr: true},
		{name: "empty", body: ``, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			if tt.contentType != "" {
				r.Header.Set("Content-Type", tt.contentType)
			}
			var dst categoryRequest
			err := decodeJSON(httptest.NewRecorder(), r, &dst)
			if (err != nil) != tt.wantErr {
				t.Fatalf("decodeJSON() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestDecodeJSONKeepsDomainErrors(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"amount":"abc"}`))
	var dst transactionRequest
	err := decodeJSON(httptest.NewRecorder(), r, &dst)
	if !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
	var bad *badRequestError
	if errors.As(err, &bad) {
		t.Errorf("domain error should not be wrapped as bad request")
	}
}

func TestSanitizeInput(t *testing.T) {
	tests := []struct {
		input, want string
	}{
		{"  hello  ", "hello"},
		{"a\x00b\x1fc", "abc"},
		{"line\nbreak\ttab", "line\nbreak\ttab"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := sanitizeInput(tt.input); got != tt.want {
			t.Errorf("sanitizeInput(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}

	if sanitizePtr(nil) != nil {
		t.Error("sanitizePtr(nil) should stay nil")
	}
	s := " x\x01 "
	if got := sanitizePtr(&s); *got != "x" {
		t.Errorf("sanitizePtr = %q", *got)
	}
}

func TestTransactionRequestNormalizes(t *testing.T) {
	req := transactionRequest{
		Amount:              core.Money{Cents: 100},
		Kind:                " Income ",
		Description:         " Salary\x02",
		OccurredOn:          core.NewDate(2024, 1, 31),
		CategoryID:          " cat-1 ",
		IsRecurring:         true,
		RecurrenceFrequency: "Monthly",
	}
	got := req.toTransaction()
	if got.Kind != core.KindIncome || got.Description != "Salary" || got.CategoryID != "cat-1" || got.RecurrenceFrequency != core.Monthly {
		t.Errorf("unexpected normalization: %+v", got)
	}
}

func TestNormalizeTransactionUpdate(t *testing.T) {
	kind := core.Kind(" Income ")
	freq := core.Frequency("MONTHLY ")
	desc := " Salary\x02"
	cat := " cat-1 "
	u := core.TransactionUpdate{Kind: &kind, RecurrenceFrequency: &freq, Description: &desc, CategoryID: &cat}

	normalizeTransactionUpdate(&u)
	if *u.Kind != core.KindIncome || *u.RecurrenceFrequency != core.Monthly {
		t.Errorf("kind/frequency not normalized: %q %q", *u.Kind, *u.RecurrenceFrequency)
	}
	if *u.Description != "Salary" || *u.CategoryID != "cat-1" {
		t.Errorf("text not normalized: %q %q", *u.Description, *u.CategoryID)
	}
	if err := u.Validate(); err != nil {
		t.Errorf("normalized update should validate: %v", err)
	}

	empty := core.TransactionUpdate{}
	normalizeTransactionUpdate(&empty)
	if !empty.IsEmpty() {
		t.Errorf("empty update gained fields: %+v", empty)
	}
}

func TestNormalizeCategoryUpdate(t *testing.T) {
	kind := core.Kind("EXPENSE")
	color := " #abc "
	u := core.CategoryUpdate{Kind: &kind, Color: &color}

	normalizeCategoryUpdate(&u)
	if *u.Kind != core.KindExpense || *u.Color != "#abc" {
		t.Errorf("unexpected normalization: %q %q", *u.Kind, *u.Color)
	}
}
