package format

import (
	"fmt"

	"golang.org/x/text/language"
)

// DefaultLocale is used when no locale is configured.
const DefaultLocale = "pt-BR"

var (
	PortugueseBR = Locale{
		Tag:         language.BrazilianPortuguese,
		Symbol:      "R$",
		SymbolSpace: true,
		Decimal:     ",",
		Group:       ".",
		DateLayout:  "02/01/2006",
		LongLayout:  "%d de %s",
		Months: [12]string{"janeiro", "fevereiro", "março", "abril", "maio", "junho",
			"julho", "agosto", "setembro", "outubro", "novembro", "dezembro"},
	}

	EnglishUS = Locale{
		Tag:        language.AmericanEnglish,
		Symbol:     "$",
		Decimal:    ".",
		Group:      ",",
		DateLayout: "01/02/2006",
		LongLayout: "%[2]s %[1]d",
		Months: [12]string{"January", "February", "March", "April", "May", "June",
			"July", "August", "September", "October", "November", "December"},
	}

	ItalianIT = Locale{
		Tag:         language.Italian,
		Symbol:      "€",
		SymbolSpace: true,
		Decimal:     ",",
		Group:       ".",
		DateLayout:  "02/01/2006",
		LongLayout:  "%d %s",
		Months: [12]string{"gennaio", "febbraio", "marzo", "aprile", "maggio", "giugno",
			"luglio", "agosto", "settembre", "ottobre", "novembre", "dicembre"},
	}

	supported = []Locale{PortugueseBR, EnglishUS, ItalianIT}
	matcher   = language.NewMatcher([]language.Tag{PortugueseBR.Tag, EnglishUS.Tag, ItalianIT.Tag})
)

// ForTag returns the supported locale closest to tag, e.g. "pt" and "pt-PT"
// resolve to pt-BR and "en-GB" to en-US. Tags that cannot be parsed are an
// error; tags with no reasonable match fall back to the default locale.
func ForTag(tag string) (Locale, error) {
	if tag == "" {
		tag = DefaultLocale
	}
	t, err := language.Parse(tag)
	if err != nil {
		return Locale{}, fmt.Errorf("parse locale %q: %w", tag, err)
	}
	_, idx, conf := matcher.Match(t)
	if conf == language.No {
		return PortugueseBR, nil
	}
	return supported[idx], nil
}

// Supported lists the locale tags that have a dedicated format.
func Supported() []string {
	out := make([]string, len(supported))
	for i, l := range supported {
		out[i] = l.Tag.String()
	}
	return out
}
