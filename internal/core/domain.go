package core

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"
)

const maxTitleLength = 200

const (
	Positive TransactionType = "positive"
	Negative TransactionType = "negative"
)

type (
	// TransactionType marks the direction of a transaction: positive is
	// income, negative is an expense.
	TransactionType string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	Category struct {
		Name string `json:"name"`
		Icon string `json:"icon"`
	}

	Transaction struct {
		ID       string
		Type     TransactionType
		Title    string
		Amount   Money // always non-negative, Type carries the sign
		Category Category
		Date     Date
	}
)

var (
	ErrInvalidType   = errors.New("invalid transaction type")
	ErrInvalidAmount = errors.New("invalid amount")
	ErrInvalidDate   = errors.New("invalid date")
	ErrEmptyID       = errors.New("empty id")
	ErrEmptyTitle    = errors.New("empty title")
	ErrEmptyCategory = errors.New("empty category")
	ErrTitleTooLong  = errors.New("title too long (max 200 characters)")
	ErrTotalOverflow = errors.New("total exceeds the representable amount")
)

// IsValid reports whether t is one of the known transaction types.
func (t TransactionType) IsValid() bool {
	return t == Positive || t == Negative
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar date in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, int(m), d)
}

// Validate rejects zero and negative amounts. It is used for new
// transactions; stored records may carry a zero amount.
func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (t Transaction) Validate() error {
	if strings.TrimSpace(t.ID) == "" {
		return ErrEmptyID
	}
	if !t.Type.IsValid() {
		return ErrInvalidType
	}
	if len(strings.TrimSpace(t.Title)) == 0 {
		return ErrEmptyTitle
	}
	if utf8.RuneCountInString(t.Title) > maxTitleLength {
		return ErrTitleTooLong
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(t.Category.Name) == "" {
		return ErrEmptyCategory
	}
	return t.Date.Validate()
}
