package refdata

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/inodb/vibe-hla/internal/hla"
	"github.com/inodb/vibe-hla/internal/tsv"
)

// DefaultExonBoundaries are the amino-acid start positions of exons 2 onward
// for the class I genes.
var DefaultExonBoundaries = map[string][]int{
	"A": {24, 114, 206, 298, 337, 348, 364},
	"B": {24, 114, 206, 298, 337, 348},
	"C": {24, 114, 206, 298, 338, 349, 365},
}

// Sequences holds reference amino-acid sequences and exon boundaries.
type Sequences struct {
	seqs       map[hla.Allele]hla.AlleleSequence
	boundaries map[string][]int
}

// NewSequences creates an empty sequence store using DefaultExonBoundaries.
func NewSequences() *Sequences {
	s := &Sequences{
		seqs:       make(map[hla.Allele]hla.AlleleSequence),
		boundaries: make(map[string][]int, len(DefaultExonBoundaries)),
	}
	for gene, b := range DefaultExonBoundaries {
		s.boundaries[gene] = b
	}
	return s
}

// Add stores a sequence keyed at protein resolution.
func (s *Sequences) Add(seq hla.AlleleSequence) {
	s.seqs[seq.Allele.AsProtein()] = seq
}

// Sequence returns the reference sequence of a.
func (s *Sequences) Sequence(a hla.Allele) (hla.AlleleSequence, bool) {
	seq, ok := s.seqs[a.AsProtein()]
	return seq, ok
}

// ExonBoundaries returns the exon start positions for a gene.
func (s *Sequences) ExonBoundaries(gene string) []int {
	return s.boundaries[gene]
}

// SetExonBoundaries replaces the boundaries for a gene.
func (s *Sequences) SetExonBoundaries(gene string, boundaries []int) {
	s.boundaries[gene] = boundaries
}

// Len returns the number of sequences.
func (s *Sequences) Len() int {
	return len(s.seqs)
}

// LoadSequences reads an allele/sequence table into s and registers every
// allele, with its wildcard flag, in the registry.
func (s *Sequences) LoadSequences(path string, registry *hla.Registry) error {
	table, err := tsv.Open(path, ColAllele, ColSequence)
	if err != nil {
		return fmt.Errorf("open sequences: %w", err)
	}
	defer table.Close()

	for {
		row, err := table.Next()
		if err != nil {
			return fmt.Errorf("read sequences: %w", err)
		}
		if row == nil {
			return nil
		}
		a, err := hla.ParseAllele(row.Get(ColAllele))
		if err != nil {
			return row.Errorf("%v", err)
		}
		seq, err := row.Require(ColSequence)
		if err != nil {
			return err
		}
		as := hla.NewAlleleSequence(a, seq)
		registry.Register(as.Allele)
		s.Add(as)
	}
}

// LoadExonBoundaries reads a gene/boundaries table where boundaries is a
// comma-separated ascending list of amino-acid positions.
func (s *Sequences) LoadExonBoundaries(path string) error {
	table, err := tsv.Open(path, ColGene, ColBoundaries)
	if err != nil {
		return fmt.Errorf("open exon boundaries: %w", err)
	}
	defer table.Close()

	for {
		row, err := table.Next()
		if err != nil {
			return fmt.Errorf("read exon boundaries: %w", err)
		}
		if row == nil {
			return nil
		}
		gene := strings.TrimPrefix(row.Get(ColGene), "HLA-")
		var boundaries []int
		for _, f := range strings.Split(row.Get(ColBoundaries), ",") {
			pos, err := strconv.Atoi(strings.TrimSpace(f))
			if err != nil || pos <= 0 || (len(boundaries) > 0 && pos <= boundaries[len(boundaries)-1]) {
				return row.Errorf("invalid exon boundaries: %s", row.Get(ColBoundaries))
			}
			boundaries = append(boundaries, pos)
		}
		s.SetExonBoundaries(gene, boundaries)
	}
}
