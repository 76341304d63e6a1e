package coverage

import (
	"fmt"

	"github.com/inodb/vibe-hla/internal/hla"
)

func frag(id string, full, wild []string) *hla.FragmentAlleles {
	f := &hla.FragmentAlleles{Fragment: &hla.Fragment{ID: id, Scope: hla.ScopeCandidate}}
	for _, n := range full {
		f.Full = append(f.Full, hla.MustParseAllele(n))
	}
	for _, n := range wild {
		f.Wild = append(f.Wild, hla.MustParseAllele(n))
	}
	return f
}

// repeatFrag returns n fragments with the same evidence.
func repeatFrag(prefix string, n int, full, wild []string) []*hla.FragmentAlleles {
	out := make([]*hla.FragmentAlleles, n)
	for i := range n {
		out[i] = frag(fmt.Sprintf("%s%d", prefix, i), full, wild)
	}
	return out
}

func alleles(names ...string) []hla.Allele {
	return hla.MustParseAlleles(names...)
}

func complexStrings(complexes []Complex) []string {
	out := make([]string, len(complexes))
	for i, c := range complexes {
		out[i] = c.String()
	}
	return out
}

// frequencyMap is a CohortFrequencies backed by a map keyed on allele name.
type frequencyMap map[string]float64

func (m frequencyMap) Frequency(a hla.Allele) float64 {
	return m[a.String()]
}

// constantFrequency gives every allele the same frequency.
type constantFrequency float64

func (c constantFrequency) Frequency(hla.Allele) float64 { return float64(c) }

// sequenceMap is a SequenceSource with a single exon boundary table.
type sequenceMap struct {
	seqs       map[hla.Allele]hla.AlleleSequence
	boundaries []int
}

func newSequenceMap(boundaries []int, entries map[string]string) *sequenceMap {
	m := &sequenceMap{seqs: make(map[hla.Allele]hla.AlleleSequence), boundaries: boundaries}
	for name, seq := range entries {
		s := hla.NewAlleleSequence(hla.MustParseAllele(name), seq)
		m.seqs[s.Allele.AsProtein()] = s
	}
	return m
}

func (m *sequenceMap) Sequence(a hla.Allele) (hla.AlleleSequence, bool) {
	s, ok := m.seqs[a.AsProtein()]
	return s, ok
}

func (m *sequenceMap) ExonBoundaries(string) []int { return m.boundaries }
