package core

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseDecimalToCents(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"1", 100, true},
		{"1.0", 100, true},
		{"1.23", 123, true},
		{"1,23", 123, true},
		{"0.01", 1, true},
		{"1.005", 101, true}, // half-up rounding
		{"12.344", 1234, true},
		{" 2.50 ", 250, true},
		{".5", 50, true},
		{"-1", 0, false},
		{"+1", 0, false},
		{"0", 0, false},
		{"0.004", 0, false},
		{"abc", 0, false},
		{"1e3", 0, false},
		{"1.2.3", 0, false},
		{"", 0, false},
		{"99999999999999999999", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseDecimalToCents(tc.in)
		if tc.ok {
			if err != nil || got != tc.out {
				t.Fatalf("%q expected %d, got %d (err=%v)", tc.in, tc.out, got, err)
			}
		} else {
			if err == nil {
				t.Fatalf("%q expected error", tc.in)
			}
		}
	}
}

func TestMoneyString(t *testing.T) {
	cases := map[int64]string{
		0:     "0.00",
		5:     "0.05",
		1230:  "12.30",
		-1999: "-19.99",
	}
	for cents, want := range cases {
		if got := (Money{Cents: cents}).String(); got != want {
			t.Fatalf("Money{%d}.String() = %q, want %q", cents, got, want)
		}
	}
}

func TestMoneyJSON(t *testing.T) {
	var payload struct {
		A Money  `json:"a"`
		B Money  `json:"b"`
		C *Money `json:"c"`
	}
	if err := json.Unmarshal([]byte(`{"a": 12.345, "b": "7,5", "c": null}`), &payload); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if payload.A.Cents != 1235 || payload.B.Cents != 750 || payload.C != nil {
		t.Fatalf("unexpected decode: %+v", payload)
	}

	out, err := json.Marshal(struct {
		Amount Money `json:"amount"`
	}{Money{Cents: 4050}})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(out) != `{"amount":40.50}` {
		t.Fatalf("unexpected encode: %s", out)
	}

	var bad Money
	if err := json.Unmarshal([]byte(`"ten"`), &bad); err == nil {
		t.Fatalf("expected error for non numeric amount")
	}
}

func TestMoneyJSONRejectsOutOfRange(t *testing.T) {
	for _, raw := range []string{`1e19`, `"92233720368547758.08"`, `-1e19`, `10000000000000.01`} {
		var m Money
		if err := json.Unmarshal([]byte(raw), &m); err != ErrInvalidAmount {
			t.Fatalf("%s: expected ErrInvalidAmount, got %v (cents=%d)", raw, err, m.Cents)
		}
	}

	var payload struct {
		Amount Money `json:"amount"`
	}
	if err := json.Unmarshal([]byte(`{"amount":1e19}`), &payload); err == nil {
		t.Fatalf("expected error, decoded %d cents", payload.Amount.Cents)
	}

	var top Money
	if err := json.Unmarshal([]byte(`10000000000000`), &top); err != nil {
		t.Fatalf("ceiling should decode: %v", err)
	}
	if top.Cents != MaxAmountCents || top.Validate() != nil {
		t.Fatalf("ceiling decoded as %d, validate=%v", top.Cents, top.Validate())
	}
}

func TestMoneyValidateCeiling(t *testing.T) {
	if err := (Money{Cents: MaxAmountCents}).Validate(); err != nil {
		t.Fatalf("ceiling rejected: %v", err)
	}
	if err := (Money{Cents: MaxAmountCents + 1}).Validate(); err != ErrInvalidAmount {
		t.Fatalf("above ceiling accepted: %v", err)
	}
	if got := MoneyFromDecimal(decimal.RequireFromString("1e19")); got.Validate() == nil {
		t.Fatalf("MoneyFromDecimal(1e19) = %d passed Validate", got.Cents)
	}
	if got := MoneyFromDecimal(decimal.RequireFromString("-1e19")); got.Cents >= 0 {
		t.Fatalf("MoneyFromDecimal(-1e19) lost its sign: %d", got.Cents)
	}
	if _, err := ParseDecimalToCents("10000000000000.01"); err == nil {
		t.Fatal("expected ParseDecimalToCents to reject amounts above the ceiling")
	}
}
