package hla

import "strings"

// WildcardChar marks an unsequenced position in a reference sequence.
const WildcardChar = '*'

// AlleleSequence is the reference amino-acid sequence of an allele.
type AlleleSequence struct {
	Allele   Allele
	Sequence string
}

// NewAlleleSequence creates a sequence, flagging the allele as wildcard-bearing
// when the sequence contains wildcard positions.
func NewAlleleSequence(a Allele, seq string) AlleleSequence {
	a.Wildcard = strings.IndexByte(seq, WildcardChar) >= 0
	return AlleleSequence{Allele: a, Sequence: seq}
}

// WildcardCount returns the number of wildcard positions.
func (s AlleleSequence) WildcardCount() int {
	return strings.Count(s.Sequence, string(WildcardChar))
}

// Segments splits the sequence at the given exon start positions (0-based,
// ascending, excluding 0). Positions past the end yield empty segments so
// every allele of a gene has the same number of segments.
func (s AlleleSequence) Segments(boundaries []int) []string {
	segments := make([]string, 0, len(boundaries)+1)
	start := 0
	for _, b := range boundaries {
		end := min(b, len(s.Sequence))
		if end < start {
			end = start
		}
		segments = append(segments, s.Sequence[start:end])
		start = end
	}
	return append(segments, s.Sequence[start:])
}

// SegmentsMatch reports whether two segments are identical when wildcard
// positions match anything.
func SegmentsMatch(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		if a[i] == b[i] || a[i] == WildcardChar || b[i] == WildcardChar {
			continue
		}
		return false
	}
	return true
}
