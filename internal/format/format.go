// Package format renders money and dates for display.
//
// Aggregation works on integer cents and calendar dates; everything
// locale-specific lives here behind the Formatter interface.
package format

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/language"

	"gofinances/internal/core"
)

// Formatter turns domain values into display text.
type Formatter interface {
	// Currency formats an amount, e.g. "R$ 12.000,00".
	Currency(m core.Money) string
	// Date formats a short date, e.g. "13/04/2020".
	Date(t time.Time) string
	// LongDate formats day and month name, e.g. "13 de abril".
	LongDate(t time.Time) string
}

// Locale describes how one locale writes money and dates.
type Locale struct {
	Tag         language.Tag
	Symbol      string
	SymbolSpace bool // "R$ 1,00" vs "$1.00"
	Decimal     string
	Group       string
	DateLayout  string
	LongLayout  string // "%d" is the day, "%s" the month name
	Months      [12]string
}

var _ Formatter = Locale{}

func (l Locale) Currency(m core.Money) string {
	cents := m.Cents
	neg := cents < 0
	if neg {
		cents = -cents
	}
	units := group(strconv.FormatInt(cents/100, 10), l.Group)
	s := units + l.Decimal + fmt.Sprintf("%02d", cents%100)

	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	b.WriteString(l.Symbol)
	if l.SymbolSpace {
		b.WriteByte(' ')
	}
	b.WriteString(s)
	return b.String()
}

func (l Locale) Date(t time.Time) string {
	return t.Format(l.DateLayout)
}

func (l Locale) LongDate(t time.Time) string {
	return fmt.Sprintf(l.LongLayout, t.Day(), l.Months[t.Month()-1])
}

// group inserts sep every three digits from the right.
func group(digits, sep string) string {
	if len(digits) <= 3 || sep == "" {
		return digits
	}
	var b strings.Builder
	head := len(digits) % 3
	if head > 0 {
		b.WriteString(digits[:head])
	}
	for i := head; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteString(sep)
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
