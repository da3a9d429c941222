package services

import (
	"errors"
	"testing"

	"saldo/internal/core"
)

func TestWeeklyRecurrence_Next(t *testing.T) {
	start := core.NewDate(2024, 1, 1)

	tests := []struct {
		name string
		from core.Date
		want core.Date
	}{
		{"before start", core.NewDate(2023, 12, 20), start},
		{"on start", start, start},
		{"mid week", core.NewDate(2024, 1, 3), core.NewDate(2024, 1, 8)},
		{"exact week", core.NewDate(2024, 1, 15), core.NewDate(2024, 1, 15)},
		{"across month", core.NewDate(2024, 1, 30), core.NewDate(2024, 2, 5)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := WeeklyRecurrence{}.Next(start, tt.from)
			if !got.Equal(tt.want.Time) {
				t.Errorf("WeeklyRecurrence.Next() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestMonthlyRecurrence_Next(t *testing.T) {
	tests := []struct {
		name  string
		start core.Date
		from  core.Date
		want  core.Date
	}{
		{"same month not reached", core.NewDate(2024, 1, 10), core.NewDate(2024, 3, 5), core.NewDate(2024, 3, 10)},
		{"same month passed", core.NewDate(2024, 1, 10), core.NewDate(2024, 3, 11), core.NewDate(2024, 4, 10)},
		{"day 31 in february", core.NewDate(2024, 1, 31), core.NewDate(2024, 2, 2), core.NewDate(2024, 2, 29)},
		{"day 31 in april", core.NewDate(2024, 1, 31), core.NewDate(2024, 4, 1), core.NewDate(2024, 4, 30)},
		{"december rolls to january", core.NewDate(2024, 1, 15), core.NewDate(2024, 12, 20), core.NewDate(2025, 1, 15)},
		{"future start", core.NewDate(2025, 6, 1), core.NewDate(2024, 1, 1), core.NewDate(2025, 6, 1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MonthlyRecurrence{}.Next(tt.start, tt.from)
			if !got.Equal(tt.want.Time) {
				t.Errorf("MonthlyRecurrence.Next() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestYearlyRecurrence_Next(t *testing.T) {
	tests := []struct {
		name  string
		start core.Date
		from  core.Date
		want  core.Date
	}{
		{"later this year", core.NewDate(2020, 6, 15), core.NewDate(2024, 3, 1), core.NewDate(2024, 6, 15)},
		{"passed this year", core.NewDate(2020, 6, 15), core.NewDate(2024, 7, 1), core.NewDate(2025, 6, 15)},
		{"leap day in common year", core.NewDate(2020, 2, 29), core.NewDate(2023, 1, 1), core.NewDate(2023, 2, 28)},
		{"leap day in leap year", core.NewDate(2020, 2, 29), core.NewDate(2024, 1, 1), core.NewDate(2024, 2, 29)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := YearlyRecurrence{}.Next(tt.start, tt.from)
			if !got.Equal(tt.want.Time) {
				t.Errorf("YearlyRecurrence.Next() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestGetRecurrenceStrategy(t *testing.T) {
	for _, f := range []core.Frequency{core.Weekly, core.Monthly, core.Yearly} {
		if _, err := GetRecurrenceStrategy(f); err != nil {
			t.Errorf("GetRecurrenceStrategy(%s) error = %v", f, err)
		}
	}
	if _, err := GetRecurrenceStrategy("daily"); !errors.Is(err, core.ErrInvalidFrequency) {
		t.Errorf("expected ErrInvalidFrequency, got %v", err)
	}
}

func TestUpcomingRecurring(t *testing.T) {
	txs := []core.Transaction{
		{ID: "rent", IsRecurring: true, RecurrenceFrequency: core.Monthly, OccurredOn: core.NewDate(2024, 1, 5)},
		{ID: "once", OccurredOn: core.NewDate(2024, 3, 1)},
		{ID: "gym", IsRecurring: true, RecurrenceFrequency: core.Weekly, OccurredOn: core.NewDate(2024, 3, 4)},
		{ID: "bad", IsRecurring: true, RecurrenceFrequency: "daily", OccurredOn: core.NewDate(2024, 3, 4)},
	}

	got := UpcomingRecurring(txs, core.NewDate(2024, 3, 6))
	if len(got) != 2 {
		t.Fatalf("expected 2 upcoming, got %d", len(got))
	}
	if got[0].ID != "gym" || got[0].NextOccurrence.String() != "2024-03-11" {
		t.Errorf("first = %s %s", got[0].ID, got[0].NextOccurrence)
	}
	if got[1].ID != "rent" || got[1].NextOccurrence.String() != "2024-04-05" {
		t.Errorf("second = %s %s", got[1].ID, got[1].NextOccurrence)
	}
}
