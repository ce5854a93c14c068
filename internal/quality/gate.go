// Package quality decides whether a raw transcript is usable for scoring.
package quality

import (
	"strings"
	"unicode/utf8"
)

// DefaultMinChars is the shortest transcript, in characters, worth scoring
const DefaultMinChars = 10

// Reason explains a rejection
type Reason string

const (
	ReasonNone             Reason = ""
	ReasonTooShort         Reason = "too short"
	ReasonContainsNumerals Reason = "contains numerals"
	ReasonEmpty            Reason = "empty after normalization"
)

// Verdict is the gate's decision for one transcript
type Verdict struct {
	Accepted bool
	Reason   Reason
}

// Gate applies the usability rules in order, first match wins
type Gate struct {
	MinChars int
}

// NewGate returns a gate with the given minimum length; non-positive values use DefaultMinChars
func NewGate(minChars int) Gate {
	if minChars <= 0 {
		minChars = DefaultMinChars
	}
	return Gate{MinChars: minChars}
}

// Check evaluates the raw transcript. Numeral disagreements between engines
// are not representative recognition errors, so any ASCII digit rejects.
func (g Gate) Check(text string) Verdict {
	if utf8.RuneCountInString(text) < g.MinChars {
		return Verdict{Reason: ReasonTooShort}
	}
	if strings.ContainsAny(text, "0123456789") {
		return Verdict{Reason: ReasonContainsNumerals}
	}
	return Verdict{Accepted: true}
}

// CheckNormalized rejects a transcript that normalized to nothing
func (g Gate) CheckNormalized(text string) Verdict {
	if strings.TrimSpace(text) == "" {
		return Verdict{Reason: ReasonEmpty}
	}
	return Verdict{Accepted: true}
}

// Accept reports whether the transcript passes the gate
func (g Gate) Accept(text string) bool {
	return g.Check(text).Accepted
}
