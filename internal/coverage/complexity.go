package coverage

import (
	"errors"
	"fmt"

	"github.com/inodb/vibe-hla/internal/hla"
)

// ErrMissingSequence is returned when an allele has no reference sequence.
var ErrMissingSequence = errors.New("missing reference sequence")

// SequenceSource supplies reference amino-acid sequences and exon boundaries.
type SequenceSource interface {
	Sequence(a hla.Allele) (hla.AlleleSequence, bool)
	ExonBoundaries(gene string) []int
}

// solutionComplexity counts the distinct exon segments needed to explain the
// complex: a segment adds one unless it matches, wildcards aside, an earlier
// segment of the same gene and exon.
func solutionComplexity(alleles []hla.Allele, sequences SequenceSource) (int, error) {
	type exonKey struct {
		gene string
		exon int
	}
	seen := make(map[exonKey][]string)
	complexity := 0

	for _, a := range alleles {
		seq, ok := sequences.Sequence(a)
		if !ok {
			return 0, fmt.Errorf("%w for %s", ErrMissingSequence, a)
		}
		for exon, segment := range seq.Segments(sequences.ExonBoundaries(a.Gene)) {
			key := exonKey{a.Gene, exon}
			matched := false
			for _, earlier := range seen[key] {
				if hla.SegmentsMatch(segment, earlier) {
					matched = true
					break
				}
			}
			if !matched {
				complexity++
				seen[key] = append(seen[key], segment)
			}
		}
	}
	return complexity, nil
}

// wildcardCount sums the wildcard positions of wildcard-bearing alleles.
func wildcardCount(alleles []hla.Allele, sequences SequenceSource) (int, error) {
	count := 0
	for _, a := range alleles {
		if !a.Wildcard {
			continue
		}
		seq, ok := sequences.Sequence(a)
		if !ok {
			return 0, fmt.Errorf("%w for %s", ErrMissingSequence, a)
		}
		count += seq.WildcardCount()
	}
	return count, nil
}
