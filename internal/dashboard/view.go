// Package dashboard loads the stored transactions and turns them into the
// dashboard view: three highlight cards and the transaction list.
package dashboard

import (
	"gofinances/internal/core"
	"gofinances/internal/format"
)

// DisplayTransaction is a transaction with amount and date rendered as text.
type DisplayTransaction struct {
	ID       string               `json:"id"`
	Type     core.TransactionType `json:"type"`
	Title    string               `json:"title"`
	Amount   string               `json:"amount"`
	Category core.Category        `json:"category"`
	Date     string               `json:"date"`
}

// HighlightCard is one of the summary cards on top of the dashboard.
type HighlightCard struct {
	Amount          string `json:"amount"`
	LastTransaction string `json:"lastTransaction"`
}

// HighlightData holds the entries, expenses and total cards.
type HighlightData struct {
	Entries  HighlightCard `json:"entries"`
	Expenses HighlightCard `json:"expensives"`
	Total    HighlightCard `json:"total"`
}

// View is everything the dashboard renders. It is rebuilt on every load.
type View struct {
	Transactions []DisplayTransaction `json:"transactions"`
	Highlight    HighlightData        `json:"highlightData"`
	Summary      core.Summary         `json:"-"`
}

// Aggregate sums entries and expenses in a single pass. A collection whose
// totals overflow fails with a *core.RecordError naming the offending record;
// no partial summary is returned.
func Aggregate(txs []core.Transaction) (core.Summary, error) {
	return core.Summarize(txs)
}

// Present formats transactions and summary with f. The output keeps the
// input order, one display row per transaction.
func Present(txs []core.Transaction, s core.Summary, f format.Formatter) View {
	rows := make([]DisplayTransaction, len(txs))
	for i, t := range txs {
		rows[i] = DisplayTransaction{
			ID:       t.ID,
			Type:     t.Type,
			Title:    t.Title,
			Amount:   f.Currency(t.Amount),
			Category: t.Category,
			Date:     f.Date(t.Date.Time),
		}
	}

	return View{
		Transactions: rows,
		Highlight: HighlightData{
			Entries: HighlightCard{
				Amount:          f.Currency(s.Entries),
				LastTransaction: longDate(f, s.LastEntry),
			},
			Expenses: HighlightCard{
				Amount:          f.Currency(s.Expenses),
				LastTransaction: longDate(f, s.LastExpense),
			},
			Total: HighlightCard{
				Amount:          f.Currency(s.Total()),
				LastTransaction: period(f, s),
			},
		},
		Summary: s,
	}
}

func longDate(f format.Formatter, d core.Date) string {
	if d.IsZero() {
		return ""
	}
	return f.LongDate(d.Time)
}

func period(f format.Formatter, s core.Summary) string {
	if s.Count == 0 {
		return ""
	}
	if s.From.Equal(s.To.Time) {
		return f.Date(s.From.Time)
	}
	return f.Date(s.From.Time) + " - " + f.Date(s.To.Time)
}
