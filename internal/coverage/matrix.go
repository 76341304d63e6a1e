package coverage

import (
	"github.com/bits-and-blooms/bitset"
	"github.com/exascience/pargo/parallel"

	"github.com/inodb/vibe-hla/internal/hla"
)

// SupportType is the kind of support a fragment gives an allele.
type SupportType uint8

const (
	SupportNone SupportType = iota
	SupportFull
	SupportWild
	SupportBoth
)

// FragmentAlleleMatrix is a dense fragment x allele support lookup, built once
// per set of alleles of interest so complexes can be evaluated without
// rescanning fragment evidence.
type FragmentAlleleMatrix struct {
	alleles     []hla.Allele
	alleleIndex map[hla.Allele]int
	full        []*bitset.BitSet // one row per fragment
	wild        []*bitset.BitSet
}

// NewFragmentAlleleMatrix builds the matrix for the given alleles. Rows are
// filled in parallel; each row is written by exactly one goroutine.
func NewFragmentAlleleMatrix(fragments []*hla.FragmentAlleles, alleles []hla.Allele) *FragmentAlleleMatrix {
	m := &FragmentAlleleMatrix{
		alleleIndex: make(map[hla.Allele]int, len(alleles)),
		full:        make([]*bitset.BitSet, len(fragments)),
		wild:        make([]*bitset.BitSet, len(fragments)),
	}
	for _, a := range alleles {
		if _, ok := m.alleleIndex[a]; ok {
			continue
		}
		m.alleleIndex[a] = len(m.alleles)
		m.alleles = append(m.alleles, a)
	}

	width := uint(len(m.alleles))
	parallel.Range(0, len(fragments), 0, func(low, high int) {
		for i := low; i < high; i++ {
			full := bitset.New(width)
			wild := bitset.New(width)
			for _, a := range fragments[i].Full {
				if idx, ok := m.alleleIndex[a]; ok {
					full.Set(uint(idx))
				}
			}
			for _, a := range fragments[i].Wild {
				if idx, ok := m.alleleIndex[a]; ok {
					wild.Set(uint(idx))
				}
			}
			m.full[i] = full
			m.wild[i] = wild
		}
	})
	return m
}

// FragmentCount returns the number of rows.
func (m *FragmentAlleleMatrix) FragmentCount() int {
	return len(m.full)
}

// Alleles returns the matrix columns in index order.
func (m *FragmentAlleleMatrix) Alleles() []hla.Allele {
	return m.alleles
}

// Index returns the column of an allele.
func (m *FragmentAlleleMatrix) Index(a hla.Allele) (int, bool) {
	idx, ok := m.alleleIndex[a]
	return idx, ok
}

// Support returns the support type of a fragment row for an allele column.
func (m *FragmentAlleleMatrix) Support(fragment, allele int) SupportType {
	full := m.full[fragment].Test(uint(allele))
	wild := m.wild[fragment].Test(uint(allele))
	switch {
	case full && wild:
		return SupportBoth
	case full:
		return SupportFull
	case wild:
		return SupportWild
	default:
		return SupportNone
	}
}

// Coverage computes per-allele coverage for the alleles of one complex using
// the same unique/split rule as the allele aggregator, restricted to those
// alleles. Returns nil if any allele is not a matrix column.
func (m *FragmentAlleleMatrix) Coverage(alleles []hla.Allele) []AlleleCoverage {
	indices := make([]uint, len(alleles))
	for i, a := range alleles {
		idx, ok := m.alleleIndex[a]
		if !ok {
			return nil
		}
		indices[i] = uint(idx)
	}

	unique := make([]int, len(alleles))
	shared := make([]float64, len(alleles))
	wild := make([]float64, len(alleles))
	support := make([]SupportType, len(alleles))

	for row := range m.full {
		fullRow, wildRow := m.full[row], m.wild[row]
		fullCount, wildCount, lastFull := 0, 0, -1
		for i, idx := range indices {
			switch {
			case fullRow.Test(idx):
				support[i] = SupportFull
				fullCount++
				lastFull = i
			case wildRow.Test(idx):
				support[i] = SupportWild
				wildCount++
			default:
				support[i] = SupportNone
			}
		}

		if fullCount == 1 && wildCount == 0 {
			unique[lastFull]++
			continue
		}
		if fullCount+wildCount == 0 {
			continue
		}

		contribution := 1.0 / float64(fullCount+wildCount)
		for i, s := range support {
			switch s {
			case SupportFull:
				shared[i] += contribution
			case SupportWild:
				wild[i] += contribution
			}
		}
	}

	coverage := make([]AlleleCoverage, len(alleles))
	for i, a := range alleles {
		coverage[i] = AlleleCoverage{
			Allele:         a,
			UniqueCoverage: unique[i],
			SharedCoverage: shared[i],
			WildCoverage:   wild[i],
		}
	}
	return coverage
}
