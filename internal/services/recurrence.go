// Package services holds the ledger: the in-memory view of one owner's
// transactions and categories kept in step with the repository.
//
// This file implements one strategy per recurrence frequency. Each strategy
// computes the next expected occurrence of a recurring transaction so it can
// be shown to the user. No transaction is ever generated from it.
package services

import (
	"fmt"
	"slices"
	"time"

	"saldo/internal/core"
)

// RecurrenceStrategy computes occurrence dates for one frequency.
type RecurrenceStrategy interface {
	// Next returns the first occurrence of the series anchored at start that
	// falls on or after from. When start is after from, start is returned.
	Next(start, from core.Date) core.Date
}

// WeeklyRecurrence repeats every 7 days.
type WeeklyRecurrence struct{}

func (WeeklyRecurrence) Next(start, from core.Date) core.Date {
	if !start.Before(from.Time) {
		return start
	}
	days := int(from.Sub(start.Time).Hours() / 24)
	weeks := (days + 6) / 7
	return core.DateOf(start.AddDate(0, 0, weeks*7))
}

// MonthlyRecurrence repeats on the same day of every month, moved to the last
// day of shorter months.
type MonthlyRecurrence struct{}

func (MonthlyRecurrence) Next(start, from core.Date) core.Date {
	if !start.Before(from.Time) {
		return start
	}
	year, month := from.Year(), from.Month()
	candidate := clampedDate(year, month, start.Day())
	if candidate.Before(from.Time) {
		candidate = clampedDate(year, month+1, start.Day())
	}
	return candidate
}

// YearlyRecurrence repeats on the anniversary of start; 29 February falls on
// the 28th in common years.
type YearlyRecurrence struct{}

func (YearlyRecurrence) Next(start, from core.Date) core.Date {
	if !start.Before(from.Time) {
		return start
	}
	candidate := clampedDate(from.Year(), start.Month(), start.Day())
	if candidate.Before(from.Time) {
		candidate = clampedDate(from.Year()+1, start.Month(), start.Day())
	}
	return candidate
}

// clampedDate builds year-month-day, using the month's last day when day is
// past it. Months past December roll into the next year.
func clampedDate(year int, month time.Month, day int) core.Date {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1).Day()
	if day > last {
		day = last
	}
	return core.NewDate(first.Year(), int(first.Month()), day)
}

var recurrenceStrategies = map[core.Frequency]RecurrenceStrategy{
	core.Weekly:  WeeklyRecurrence{},
	core.Monthly: MonthlyRecurrence{},
	core.Yearly:  YearlyRecurrence{},
}

// GetRecurrenceStrategy returns the strategy for frequency.
func GetRecurrenceStrategy(frequency core.Frequency) (RecurrenceStrategy, error) {
	s, ok := recurrenceStrategies[frequency]
	if !ok {
		return nil, fmt.Errorf("%w: %q", core.ErrInvalidFrequency, frequency)
	}
	return s, nil
}

// UpcomingTransaction is a recurring transaction with its next expected date.
type UpcomingTransaction struct {
	core.Transaction
	NextOccurrence core.Date `json:"next_occurrence"`
}

// UpcomingRecurring returns the recurring transactions of txs with their next
// occurrence on or after from, soonest first. Transactions with an unknown
// frequency are skipped.
func UpcomingRecurring(txs []core.Transaction, from core.Date) []UpcomingTransaction {
	out := make([]UpcomingTransaction, 0)
	for _, t := range core.Recurring(txs) {
		s, err := GetRecurrenceStrategy(t.RecurrenceFrequency)
		if err != nil {
			continue
		}
		out = append(out, UpcomingTransaction{Transaction: t, NextOccurrence: s.Next(t.OccurredOn, from)})
	}
	slices.SortStableFunc(out, func(a, b UpcomingTransaction) int {
		return a.NextOccurrence.Compare(b.NextOccurrence.Time)
	})
	return out
}
