package coverage

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/inodb/vibe-hla/internal/hla"
)

// AlleleCoverage is the fragment support for one allele within a run.
type AlleleCoverage struct {
	Allele         hla.Allele
	UniqueCoverage int     // fragments supporting only this allele
	SharedCoverage float64 // split credit from fragments fully supporting several alleles
	WildCoverage   float64 // split credit from wildcard support
}

// TotalCoverage returns unique + shared + wild coverage.
func (c AlleleCoverage) TotalCoverage() float64 {
	return float64(c.UniqueCoverage) + c.SharedCoverage + c.WildCoverage
}

func (c AlleleCoverage) String() string {
	return fmt.Sprintf("%s[%d,%.0f,%.0f]", c.Allele, c.UniqueCoverage, c.SharedCoverage, c.WildCoverage)
}

// compareCoverageDesc orders by unique then shared coverage, highest first,
// with the allele as the final key.
func compareCoverageDesc(a, b AlleleCoverage) int {
	if c := cmp.Compare(b.UniqueCoverage, a.UniqueCoverage); c != 0 {
		return c
	}
	if c := cmp.Compare(b.SharedCoverage, a.SharedCoverage); c != 0 {
		return c
	}
	return a.Allele.Compare(b.Allele)
}

// SortCoverageDesc sorts coverage highest first.
func SortCoverageDesc(coverage []AlleleCoverage) {
	slices.SortFunc(coverage, compareCoverageDesc)
}

// ProteinCoverage aggregates fragment support at protein resolution.
func ProteinCoverage(fragments []*hla.FragmentAlleles) []AlleleCoverage {
	return aggregate(fragments, func(a hla.Allele) hla.Allele { return a })
}

// GroupCoverage aggregates fragment support at group resolution.
func GroupCoverage(fragments []*hla.FragmentAlleles) []AlleleCoverage {
	return aggregate(fragments, hla.Allele.AsGroup)
}

// aggregate computes per-allele coverage after collapsing alleles with
// collapse. A fragment supporting exactly one allele fully and none through
// wildcards counts as unique; otherwise one unit of coverage is split evenly
// across every supported allele. Alleles with only wildcard support are not
// reported.
func aggregate(fragments []*hla.FragmentAlleles, collapse func(hla.Allele) hla.Allele) []AlleleCoverage {
	unique := make(map[hla.Allele]int)
	shared := make(map[hla.Allele]float64)
	wild := make(map[hla.Allele]float64)

	for _, f := range fragments {
		full := collapseDistinct(f.Full, collapse, nil)
		wildAlleles := collapseDistinct(f.Wild, collapse, hla.NewAlleleSet(full...))

		if len(full) == 1 && len(wildAlleles) == 0 {
			unique[full[0]]++
			continue
		}

		n := len(full) + len(wildAlleles)
		if n == 0 {
			continue
		}
		contribution := 1.0 / float64(n)
		for _, a := range full {
			shared[a] += contribution
		}
		for _, a := range wildAlleles {
			wild[a] += contribution
		}
	}

	keys := make(hla.AlleleSet, len(unique)+len(shared))
	for a := range unique {
		keys.Add(a)
	}
	for a := range shared {
		keys.Add(a)
	}

	coverage := make([]AlleleCoverage, 0, len(keys))
	for a := range keys {
		coverage = append(coverage, AlleleCoverage{
			Allele:         a,
			UniqueCoverage: unique[a],
			SharedCoverage: shared[a],
			WildCoverage:   wild[a],
		})
	}
	SortCoverageDesc(coverage)
	return coverage
}

// collapseDistinct maps alleles through collapse, dropping duplicates and
// anything in exclude.
func collapseDistinct(alleles []hla.Allele, collapse func(hla.Allele) hla.Allele, exclude hla.AlleleSet) []hla.Allele {
	seen := make(hla.AlleleSet, len(alleles))
	out := make([]hla.Allele, 0, len(alleles))
	for _, a := range alleles {
		c := collapse(a)
		if seen.Contains(c) || exclude.Contains(c) {
			continue
		}
		seen.Add(c)
		out = append(out, c)
	}
	return out
}

// coverageAlleles returns the alleles of a coverage list in order.
func coverageAlleles(coverage []AlleleCoverage) []hla.Allele {
	alleles := make([]hla.Allele, len(coverage))
	for i, c := range coverage {
		alleles[i] = c.Allele
	}
	return alleles
}
