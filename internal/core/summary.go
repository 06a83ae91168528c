package core

import "math"

// Summary holds the highlight figures of a set of transactions.
type Summary struct {
	Entries  Money
	Expenses Money

	// Date of the most recent income and expense; zero when there is none.
	LastEntry   Date
	LastExpense Date

	// Covered date range; zero when the set is empty.
	From Date
	To   Date

	Count int
}

// Total is entries minus expenses.
func (s Summary) Total() Money {
	return Money{Cents: s.Entries.Cents - s.Expenses.Cents}
}

// Summarize accounts every transaction in one pass.
func Summarize(txs []Transaction) (Summary, error) {
	var s Summary
	for i, t := range txs {
		if err := s.Add(t); err != nil {
			return Summary{}, &RecordError{Index: i, ID: t.ID, Field: "amount", Err: err}
		}
	}
	return s, nil
}

// Add accounts a single transaction into the summary. It fails, leaving the
// summary untouched, when the amount is negative or the running total would
// no longer fit in int64 cents.
func (s *Summary) Add(t Transaction) error {
	if t.Amount.Cents < 0 {
		return ErrInvalidAmount
	}
	sum := &s.Expenses
	if t.Type == Positive {
		sum = &s.Entries
	}
	if sum.Cents > math.MaxInt64-t.Amount.Cents {
		return ErrTotalOverflow
	}
	sum.Cents += t.Amount.Cents

	if t.Type == Positive {
		if t.Date.After(s.LastEntry.Time) {
			s.LastEntry = t.Date
		}
	} else if t.Date.After(s.LastExpense.Time) {
		s.LastExpense = t.Date
	}
	if s.Count == 0 || t.Date.Before(s.From.Time) {
		s.From = t.Date
	}
	if s.Count == 0 || t.Date.After(s.To.Time) {
		s.To = t.Date
	}
	s.Count++
	return nil
}
