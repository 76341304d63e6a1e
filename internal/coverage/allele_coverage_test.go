package coverage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/vibe-hla/internal/hla"
)

func coverageByAllele(coverage []AlleleCoverage) map[string]AlleleCoverage {
	m := make(map[string]AlleleCoverage, len(coverage))
	for _, c := range coverage {
		m[c.Allele.String()] = c
	}
	return m
}

func TestProteinCoverage(t *testing.T) {
	frags := []*hla.FragmentAlleles{
		frag("f1", []string{"A*01:01"}, nil),
		frag("f2", []string{"A*01:01"}, nil),
		frag("f3", []string{"A*01:01", "A*02:01"}, nil),
		frag("f4", []string{"A*02:01"}, []string{"A*01:01"}),
	}

	coverage := ProteinCoverage(frags)
	require.Len(t, coverage, 2)

	// sorted by unique coverage descending
	assert.Equal(t, "A*01:01", coverage[0].Allele.String())

	byAllele := coverageByAllele(coverage)
	a1 := byAllele["A*01:01"]
	assert.Equal(t, 2, a1.UniqueCoverage)
	assert.InDelta(t, 0.5, a1.SharedCoverage, 1e-9)
	assert.InDelta(t, 0.5, a1.WildCoverage, 1e-9)

	a2 := byAllele["A*02:01"]
	assert.Equal(t, 0, a2.UniqueCoverage)
	assert.InDelta(t, 1.0, a2.SharedCoverage, 1e-9)
	assert.InDelta(t, 0.0, a2.WildCoverage, 1e-9)
}

func TestGroupCoverage_CollapsesToGroup(t *testing.T) {
	frags := []*hla.FragmentAlleles{
		frag("f1", []string{"A*01:01", "A*01:02"}, nil),
		frag("f2", []string{"A*01:01"}, []string{"A*01:03"}),
		frag("f3", []string{"A*01:01", "A*02:01"}, nil),
	}

	coverage := GroupCoverage(frags)
	byAllele := coverageByAllele(coverage)

	// f1 and f2 collapse to a single group with no separate wild support
	assert.Equal(t, 2, byAllele["A*01"].UniqueCoverage)
	assert.InDelta(t, 0.5, byAllele["A*01"].SharedCoverage, 1e-9)
	assert.InDelta(t, 0.5, byAllele["A*02"].SharedCoverage, 1e-9)
}

func TestProteinCoverage_WildOnlyNotReported(t *testing.T) {
	frags := []*hla.FragmentAlleles{
		frag("f1", []string{"A*01:01"}, []string{"A*03:01"}),
	}
	coverage := ProteinCoverage(frags)
	require.Len(t, coverage, 1)
	assert.Equal(t, "A*01:01", coverage[0].Allele.String())
	assert.InDelta(t, 0.5, coverage[0].SharedCoverage, 1e-9)
}

func TestProteinCoverage_Conservation(t *testing.T) {
	frags := []*hla.FragmentAlleles{
		frag("f1", []string{"A*01:01"}, nil),
		frag("f2", []string{"A*01:01", "A*02:01", "B*07:02"}, nil),
		frag("f3", []string{"A*02:01"}, []string{"A*01:01"}),
		frag("f4", []string{"B*07:02", "B*08:01"}, []string{"A*02:01"}),
		frag("f5", []string{"B*08:01"}, nil),
		frag("f6", nil, nil),
	}

	var total float64
	for _, c := range ProteinCoverage(frags) {
		total += c.TotalCoverage()
	}
	assert.InDelta(t, 5.0, total, 1e-9)
}

func TestSortCoverageDesc(t *testing.T) {
	coverage := []AlleleCoverage{
		{Allele: hla.MustParseAllele("A*01:01"), UniqueCoverage: 1, SharedCoverage: 5},
		{Allele: hla.MustParseAllele("A*02:01"), UniqueCoverage: 3},
		{Allele: hla.MustParseAllele("A*03:01"), UniqueCoverage: 1, SharedCoverage: 7},
	}
	SortCoverageDesc(coverage)
	assert.Equal(t, "A*02:01 A*03:01 A*01:01", hla.FormatAlleles(coverageAlleles(coverage), " "))
}
