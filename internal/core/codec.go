package core

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrMalformedCollection is returned when the stored payload is not a JSON
// array of transaction objects.
var ErrMalformedCollection = errors.New("malformed transaction collection")

// RecordError reports an invalid field in one stored record.
type RecordError struct {
	Index int
	ID    string
	Field string
	Err   error
}

func (e *RecordError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("record %d (id %q): field %s: %v", e.Index, e.ID, e.Field, e.Err)
	}
	return fmt.Sprintf("record %d: field %s: %v", e.Index, e.Field, e.Err)
}

func (e *RecordError) Unwrap() error {
	return e.Err
}

// record is the serialized shape written by the mobile app.
type record struct {
	ID       string          `json:"id"`
	Type     TransactionType `json:"type,omitempty"`
	Title    string          `json:"title"`
	Amount   json.RawMessage `json:"amount"`
	Category Category        `json:"category"`
	Date     string          `json:"date"`
}

var dateLayouts = []string{time.RFC3339Nano, "2006-01-02"}

// DecodeTransactions parses a stored collection. An empty or null payload is
// an empty collection. Any invalid record fails the whole decode with a
// *RecordError; no partial result is returned.
//
// Amounts are JSON numbers or numeric strings in major units. When a record
// has no type its direction is taken from the amount's sign; when it has one,
// the amount must not be negative.
func DecodeTransactions(data []byte) ([]Transaction, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return []Transaction{}, nil
	}

	var recs []record
	if err := json.Unmarshal(data, &recs); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedCollection, err)
	}

	out := make([]Transaction, 0, len(recs))
	for i, r := range recs {
		t, err := r.transaction()
		if err != nil {
			err.Index = i
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

func (r record) transaction() (Transaction, *RecordError) {
	fail := func(field string, err error) (Transaction, *RecordError) {
		return Transaction{}, &RecordError{ID: r.ID, Field: field, Err: err}
	}

	if strings.TrimSpace(r.ID) == "" {
		return fail("id", ErrEmptyID)
	}
	if strings.TrimSpace(r.Title) == "" {
		return fail("title", ErrEmptyTitle)
	}

	amount, err := parseRawAmount(r.Amount)
	if err != nil {
		return fail("amount", err)
	}

	typ := r.Type
	switch {
	case typ == "" && amount.Cents < 0:
		typ, amount = Negative, Money{Cents: -amount.Cents}
	case typ == "":
		typ = Positive
	case !typ.IsValid():
		return fail("type", fmt.Errorf("%w: %q", ErrInvalidType, string(typ)))
	case amount.Cents < 0:
		return fail("amount", fmt.Errorf("%w: negative amount with type %q", ErrInvalidAmount, string(typ)))
	}

	date, err := parseDate(r.Date)
	if err != nil {
		return fail("date", err)
	}

	return Transaction{
		ID:       r.ID,
		Type:     typ,
		Title:    r.Title,
		Amount:   amount,
		Category: r.Category,
		Date:     date,
	}, nil
}

func parseRawAmount(raw json.RawMessage) (Money, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return Money{}, fmt.Errorf("%w: missing", ErrInvalidAmount)
	}
	s := string(raw)
	if raw[0] == '"' {
		unq, err := strconv.Unquote(s)
		if err != nil {
			return Money{}, fmt.Errorf("%w: %s", ErrInvalidAmount, s)
		}
		s = strings.TrimSpace(unq)
	}
	m, err := moneyFromDecimalString(s)
	if err != nil {
		return Money{}, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	return m, nil
}

func parseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, fmt.Errorf("%w: missing", ErrInvalidDate)
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return DateOf(t), nil
		}
	}
	return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
}

// EncodeTransactions serializes transactions in the stored shape.
func EncodeTransactions(txs []Transaction) ([]byte, error) {
	recs := make([]record, len(txs))
	for i, t := range txs {
		recs[i] = record{
			ID:       t.ID,
			Type:     t.Type,
			Title:    t.Title,
			Amount:   json.RawMessage(t.Amount.String()),
			Category: t.Category,
			Date:     t.Date.UTC().Format(time.RFC3339),
		}
	}
	return json.Marshal(recs)
}
