// Package evidence maps per-fragment sequence match results onto the
// full, wild and partial allele support used by the coverage engine.
package evidence

import (
	"fmt"
	"strings"
)

// MatchType is the outcome of matching a fragment against one allele's
// reference sequence at one level (amino acid or nucleotide).
type MatchType int

const (
	MatchNone     MatchType = iota // level not covered by the fragment
	MatchFull                      // identical at every covered position
	MatchWild                      // identical only when wildcard positions match anything
	MatchMismatch                  // differs at a covered position
)

var matchNames = [...]string{"NONE", "FULL", "WILD", "MISMATCH"}

func (m MatchType) String() string {
	if int(m) < len(matchNames) {
		return matchNames[m]
	}
	return "UNKNOWN"
}

// ParseMatchType parses a match name case-insensitively. An empty value is
// MatchNone.
func ParseMatchType(s string) (MatchType, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return MatchNone, nil
	}
	for i, name := range matchNames {
		if s == name {
			return MatchType(i), nil
		}
	}
	return MatchNone, fmt.Errorf("invalid match type %q", s)
}

// Support is the classification of one fragment-allele pair.
type Support int

const (
	Unsupported Support = iota
	SupportFull
	SupportWild
	SupportPartial // amino acids match but nucleotides do not
)

func (s Support) String() string {
	switch s {
	case SupportFull:
		return "FULL"
	case SupportWild:
		return "WILD"
	case SupportPartial:
		return "PARTIAL"
	default:
		return "UNSUPPORTED"
	}
}

// Classify resolves amino-acid and nucleotide match results into a single
// support level. An amino-acid mismatch always wins; a nucleotide mismatch
// under a full amino-acid match leaves protein-level support only.
func Classify(aminoAcid, nucleotide MatchType) Support {
	switch aminoAcid {
	case MatchMismatch:
		return Unsupported
	case MatchFull:
		switch nucleotide {
		case MatchMismatch:
			return SupportPartial
		case MatchWild:
			return SupportWild
		default:
			return SupportFull
		}
	case MatchWild:
		if nucleotide == MatchMismatch {
			return Unsupported
		}
		return SupportWild
	default:
		switch nucleotide {
		case MatchFull:
			return SupportFull
		case MatchWild:
			return SupportWild
		default:
			return Unsupported
		}
	}
}
