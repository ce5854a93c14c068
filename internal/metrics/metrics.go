// Package metrics scores a hypothesis transcript against a reference with
// word-level alignment measures: word error rate (WER), match error rate (MER)
// and word information lost (WIL).
package metrics

import (
	"strings"

	"github.com/texttheater/golang-levenshtein/levenshtein"

	"github.com/satriahrh/asreval/domain/entities"
)

// unitCost makes a substitution as expensive as a single insertion or deletion
var unitCost = levenshtein.Options{
	InsCost: 1,
	DelCost: 1,
	SubCost: 1,
	Matches: levenshtein.IdenticalRunes,
}

// Score aligns two normalized token strings and derives all three measures from one alignment
func Score(reference, hypothesis string) entities.ErrorMeasures {
	return ScoreTokens(strings.Fields(reference), strings.Fields(hypothesis))
}

// ScoreTokens is Score over pre-split tokens.
//
// Both sides empty scores 0 on every measure. Exactly one side empty scores 1
// on every measure: all reference words deleted, or all hypothesis words inserted.
func ScoreTokens(reference, hypothesis []string) entities.ErrorMeasures {
	switch {
	case len(reference) == 0 && len(hypothesis) == 0:
		return entities.ErrorMeasures{}
	case len(reference) == 0:
		return entities.ErrorMeasures{WER: 1, MER: 1, WIL: 1, Insertions: len(hypothesis)}
	case len(hypothesis) == 0:
		return entities.ErrorMeasures{WER: 1, MER: 1, WIL: 1, Deletions: len(reference)}
	}

	m := align(reference, hypothesis)
	h := float64(m.Hits)
	s := float64(m.Substitutions)
	d := float64(m.Deletions)
	i := float64(m.Insertions)

	errs := s + d + i
	m.WER = errs / (h + s + d)
	m.MER = errs / (h + s + d + i)
	m.WIL = 1 - (h/(h+s+d))*(h/(h+s+i))
	return m
}

// align counts hits, substitutions, deletions and insertions of the minimum edit
// script. Ties between equally cheap scripts are broken by the levenshtein
// backtrace, which walks from the end preferring deletion, insertion,
// substitution, then match.
func align(reference, hypothesis []string) entities.ErrorMeasures {
	src, tgt := intern(reference, hypothesis)

	var m entities.ErrorMeasures
	for _, op := range levenshtein.EditScriptForStrings(src, tgt, unitCost) {
		switch op {
		case levenshtein.Match:
			m.Hits++
		case levenshtein.Sub:
			m.Substitutions++
		case levenshtein.Del:
			m.Deletions++
		case levenshtein.Ins:
			m.Insertions++
		}
	}
	return m
}

// intern maps every distinct word to its own rune so the rune-based
// levenshtein routines operate on words instead of characters.
func intern(reference, hypothesis []string) ([]rune, []rune) {
	dict := make(map[string]rune, len(reference)+len(hypothesis))
	encode := func(words []string) []rune {
		out := make([]rune, len(words))
		for i, w := range words {
			r, ok := dict[w]
			if !ok {
				r = rune(len(dict))
				dict[w] = r
			}
			out[i] = r
		}
		return out
	}
	return encode(reference), encode(hypothesis)
}
