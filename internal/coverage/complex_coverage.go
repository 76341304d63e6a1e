package coverage

import (
	"math"
	"slices"

	"github.com/inodb/vibe-hla/internal/hla"
)

// ComplexCoverage is the evaluated form of a complex. The coverage fields are
// fixed at construction; the remaining fields are filled in by Ranking.
type ComplexCoverage struct {
	Alleles        []hla.Allele     // complex alleles in gene order
	AlleleCoverage []AlleleCoverage // per-allele breakdown in allele order

	TotalCoverage  int
	UniqueCoverage int
	SharedCoverage int
	WildCoverage   int

	CohortFrequencyTotal float64
	RecoveredCount       int
	WildcardCount        int
	Complexity           int
	ComplexityPenalty    float64
	Score                float64
}

// NewComplexCoverage sums per-allele coverage for a complex. Shared and wild
// coverage are rounded from their fractional totals.
func NewComplexCoverage(alleles []hla.Allele, coverage []AlleleCoverage) *ComplexCoverage {
	cc := &ComplexCoverage{
		Alleles:        alleles,
		AlleleCoverage: slices.Clone(coverage),
	}
	sortByAllele(cc.AlleleCoverage)
	cc.recalculate()
	return cc
}

func (c *ComplexCoverage) recalculate() {
	var unique int
	var shared, wild float64
	for _, ac := range c.AlleleCoverage {
		unique += ac.UniqueCoverage
		shared += ac.SharedCoverage
		wild += ac.WildCoverage
	}
	c.UniqueCoverage = unique
	c.SharedCoverage = int(math.Round(shared))
	c.WildCoverage = int(math.Round(wild))
	c.TotalCoverage = c.UniqueCoverage + c.SharedCoverage + c.WildCoverage
}

// IsHomozygous reports whether the gene is represented by a single allele.
func (c *ComplexCoverage) IsHomozygous(gene string) bool {
	return len(hla.AllelesForGene(c.Alleles, gene)) == 1
}

// Expand gives every gene two coverage entries by splitting the coverage of
// homozygous alleles in half. Total coverage is unchanged.
func (c *ComplexCoverage) Expand(genes []string) {
	expanded := make([]AlleleCoverage, 0, 2*len(genes))
	for _, gene := range genes {
		var geneCoverage []AlleleCoverage
		for _, ac := range c.AlleleCoverage {
			if ac.Allele.Gene == gene {
				geneCoverage = append(geneCoverage, ac)
			}
		}
		if len(geneCoverage) != 1 {
			expanded = append(expanded, geneCoverage...)
			continue
		}
		ac := geneCoverage[0]
		half := ac.UniqueCoverage / 2
		expanded = append(expanded,
			AlleleCoverage{
				Allele:         ac.Allele,
				UniqueCoverage: ac.UniqueCoverage - half,
				SharedCoverage: ac.SharedCoverage / 2,
				WildCoverage:   ac.WildCoverage / 2,
			},
			AlleleCoverage{
				Allele:         ac.Allele,
				UniqueCoverage: half,
				SharedCoverage: ac.SharedCoverage / 2,
				WildCoverage:   ac.WildCoverage / 2,
			})
	}
	c.AlleleCoverage = expanded
}

// PopulateMissingCoverage adds zero-coverage entries for alleles that
// received no support. Total coverage is unchanged.
func (c *ComplexCoverage) PopulateMissingCoverage(alleles []hla.Allele) {
	present := hla.NewAlleleSet(coverageAlleles(c.AlleleCoverage)...)
	added := false
	for _, a := range alleles {
		if !present.Contains(a) {
			present.Add(a)
			c.AlleleCoverage = append(c.AlleleCoverage, AlleleCoverage{Allele: a})
			added = true
		}
	}
	if added {
		sortByAllele(c.AlleleCoverage)
	}
}

// RawTotal returns the unrounded sum of per-allele coverage.
func (c *ComplexCoverage) RawTotal() float64 {
	var total float64
	for _, ac := range c.AlleleCoverage {
		total += ac.TotalCoverage()
	}
	return total
}

func sortByAllele(coverage []AlleleCoverage) {
	slices.SortStableFunc(coverage, func(a, b AlleleCoverage) int {
		return a.Allele.Compare(b.Allele)
	})
}
