package http

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"gofinances/internal/core"
)

type errorBody struct {
	Error string `json:"error"`
}

// transactionJSON is the stored shape of a transaction, with the amount in
// major units.
type transactionJSON struct {
	ID       string               `json:"id"`
	Type     core.TransactionType `json:"type"`
	Title    string               `json:"title"`
	Amount   string               `json:"amount"`
	Category core.Category        `json:"category"`
	Date     string               `json:"date"`
}

func transactionBody(t core.Transaction) transactionJSON {
	return transactionJSON{
		ID:       t.ID,
		Type:     t.Type,
		Title:    t.Title,
		Amount:   t.Amount.String(),
		Category: t.Category,
		Date:     t.Date.Format(time.DateOnly),
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// sanitizeInput removes potentially dangerous characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
