// Package normalize turns raw transcripts into a canonical token stream so that
// engines with different punctuation, casing and numeral habits compare fairly.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Normalizer cleans transcript text for one target language
type Normalizer struct {
	tag   language.Tag
	spell func(digits string) string
}

// New returns a Normalizer for a BCP 47 language code such as "ru-RU".
// Numerals are spelled out for Russian; other languages keep their digits.
func New(lang string) *Normalizer {
	tag, err := language.Parse(lang)
	if err != nil {
		tag = language.Russian
	}
	n := &Normalizer{tag: tag}
	if base, _ := tag.Base(); base.String() == "ru" {
		n.spell = SpellRussian
	}
	return n
}

var russian = New("ru")

// Normalize cleans text with the Russian normalizer
func Normalize(raw string) string {
	return russian.Normalize(raw)
}

// Normalize replaces hyphens with spaces, strips everything except word characters
// and whitespace, spells standalone numerals, collapses whitespace, trims and lowercases.
// Empty input yields the empty string.
func (n *Normalizer) Normalize(raw string) string {
	s := strings.ReplaceAll(raw, "-", " ")
	s = strings.Map(func(r rune) rune {
		if isWordRune(r) || unicode.IsSpace(r) {
			return r
		}
		return -1
	}, s)

	fields := strings.Fields(s)
	if n.spell != nil {
		for i, f := range fields {
			if isNumeral(f) {
				fields[i] = n.spell(f)
			}
		}
	}

	// Caser is stateful, one per call
	return cases.Lower(n.tag).String(strings.Join(fields, " "))
}

// isWordRune matches letters, combining marks, numbers and underscore
func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsMark(r) || unicode.IsNumber(r)
}

func isNumeral(field string) bool {
	if field == "" {
		return false
	}
	for i := 0; i < len(field); i++ {
		if field[i] < '0' || field[i] > '9' {
			return false
		}
	}
	return true
}
