// Package refdata loads the reference tables used to type a sample: cohort
// allele frequencies, amino-acid sequences, exon boundaries and known
// stop-loss alleles.
package refdata

import (
	"cmp"
	"fmt"
	"slices"
	"strconv"

	"github.com/inodb/vibe-hla/internal/hla"
	"github.com/inodb/vibe-hla/internal/tsv"
)

// Frequency table columns.
const (
	ColAllele     = "allele"
	ColFrequency  = "frequency"
	ColSequence   = "sequence"
	ColGene       = "gene"
	ColBoundaries = "boundaries"
)

// Frequencies holds cohort allele frequencies at protein resolution.
type Frequencies struct {
	values map[hla.Allele]float64
}

// NewFrequencies creates an empty frequency table.
func NewFrequencies() *Frequencies {
	return &Frequencies{values: make(map[hla.Allele]float64)}
}

// Set records the frequency of an allele.
func (f *Frequencies) Set(a hla.Allele, freq float64) {
	f.values[a.AsProtein()] = freq
}

// Frequency returns the cohort frequency of a, or 0 when unknown.
func (f *Frequencies) Frequency(a hla.Allele) float64 {
	return f.values[a.AsProtein()]
}

// Len returns the number of alleles with a frequency.
func (f *Frequencies) Len() int {
	return len(f.values)
}

// Common returns the alleles with frequency at or above minFrequency, most
// frequent first, in their canonical registry form.
func (f *Frequencies) Common(minFrequency float64, registry *hla.Registry) []hla.Allele {
	var common []hla.Allele
	for a, freq := range f.values {
		if freq >= minFrequency {
			common = append(common, registry.Canonical(a))
		}
	}
	slices.SortFunc(common, func(a, b hla.Allele) int {
		if c := cmp.Compare(f.Frequency(b), f.Frequency(a)); c != 0 {
			return c
		}
		return a.Compare(b)
	})
	return common
}

// LoadFrequencies reads an allele/frequency table.
func LoadFrequencies(path string) (*Frequencies, error) {
	table, err := tsv.Open(path, ColAllele, ColFrequency)
	if err != nil {
		return nil, fmt.Errorf("open frequencies: %w", err)
	}
	defer table.Close()

	f := NewFrequencies()
	for {
		row, err := table.Next()
		if err != nil {
			return nil, fmt.Errorf("read frequencies: %w", err)
		}
		if row == nil {
			return f, nil
		}
		a, err := hla.ParseAllele(row.Get(ColAllele))
		if err != nil {
			return nil, row.Errorf("%v", err)
		}
		freq, err := strconv.ParseFloat(row.Get(ColFrequency), 64)
		if err != nil || freq < 0 {
			return nil, row.Errorf("invalid frequency: %s", row.Get(ColFrequency))
		}
		f.Set(a, freq)
	}
}
