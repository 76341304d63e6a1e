// Package hla provides the allele, fragment and sequence model used for HLA typing.
package hla

import (
	"fmt"
	"slices"
	"strings"
)

// Allele identifies an HLA allele at group (two-field prefix) or protein resolution.
// Allele is a comparable value type and can be used directly as a map key.
type Allele struct {
	Gene     string // Gene name without the HLA- prefix (e.g., A)
	Group    string // Allele group, first field (e.g., 01)
	Protein  string // Protein, second field (e.g., 02); empty at group resolution
	Wildcard bool   // Reference sequence carries wildcard (unsequenced) positions
}

// ParseAllele parses names such as "A*01:02", "HLA-A*01:02:01" or "A*01".
// Fields beyond the protein are dropped.
func ParseAllele(name string) (Allele, error) {
	s := strings.TrimPrefix(strings.TrimSpace(name), "HLA-")
	gene, rest, ok := strings.Cut(s, "*")
	if !ok || gene == "" || rest == "" {
		return Allele{}, fmt.Errorf("invalid allele name %q", name)
	}

	fields := strings.Split(rest, ":")
	a := Allele{Gene: gene, Group: fields[0]}
	if len(fields) > 1 {
		a.Protein = fields[1]
	}
	if a.Group == "" {
		return Allele{}, fmt.Errorf("invalid allele name %q: empty group", name)
	}
	return a, nil
}

// MustParseAllele is like ParseAllele but panics on malformed input.
// Intended for tests and package-level tables.
func MustParseAllele(name string) Allele {
	a, err := ParseAllele(name)
	if err != nil {
		panic(err)
	}
	return a
}

// MustParseAlleles parses a list of allele names.
func MustParseAlleles(names ...string) []Allele {
	alleles := make([]Allele, len(names))
	for i, n := range names {
		alleles[i] = MustParseAllele(n)
	}
	return alleles
}

// String returns the allele in standard nomenclature without the HLA- prefix.
func (a Allele) String() string {
	if a.Protein == "" {
		return a.Gene + "*" + a.Group
	}
	return a.Gene + "*" + a.Group + ":" + a.Protein
}

// AsGroup returns the allele collapsed to group resolution.
func (a Allele) AsGroup() Allele {
	return Allele{Gene: a.Gene, Group: a.Group}
}

// AsProtein returns the allele at protein resolution without the wildcard flag,
// the key used when comparing evidence from different sources.
func (a Allele) AsProtein() Allele {
	return Allele{Gene: a.Gene, Group: a.Group, Protein: a.Protein}
}

// IsGroup reports whether the allele is at group resolution.
func (a Allele) IsGroup() bool {
	return a.Protein == ""
}

// GroupEqual reports whether both alleles share gene and group.
func (a Allele) GroupEqual(b Allele) bool {
	return a.Gene == b.Gene && a.Group == b.Group
}

// Compare orders alleles by gene, group, protein and finally the wildcard flag.
func (a Allele) Compare(b Allele) int {
	if c := strings.Compare(a.Gene, b.Gene); c != 0 {
		return c
	}
	if c := strings.Compare(a.Group, b.Group); c != 0 {
		return c
	}
	if c := strings.Compare(a.Protein, b.Protein); c != 0 {
		return c
	}
	switch {
	case a.Wildcard == b.Wildcard:
		return 0
	case !a.Wildcard:
		return -1
	default:
		return 1
	}
}

// Less reports whether a sorts before b.
func (a Allele) Less(b Allele) bool {
	return a.Compare(b) < 0
}

// AlleleSet is a set of alleles keyed by value.
type AlleleSet map[Allele]struct{}

// NewAlleleSet creates a set containing the given alleles.
func NewAlleleSet(alleles ...Allele) AlleleSet {
	s := make(AlleleSet, len(alleles))
	for _, a := range alleles {
		s[a] = struct{}{}
	}
	return s
}

// Add inserts an allele.
func (s AlleleSet) Add(a Allele) {
	s[a] = struct{}{}
}

// Contains reports whether the allele is in the set.
func (s AlleleSet) Contains(a Allele) bool {
	_, ok := s[a]
	return ok
}

// Sorted returns the set members in natural allele order.
func (s AlleleSet) Sorted() []Allele {
	out := make([]Allele, 0, len(s))
	for a := range s {
		out = append(out, a)
	}
	SortAlleles(out)
	return out
}

// SortAlleles sorts alleles in place in natural order.
func SortAlleles(alleles []Allele) {
	slices.SortFunc(alleles, Allele.Compare)
}

// DistinctGroups collapses alleles to group resolution preserving first-seen order.
func DistinctGroups(alleles []Allele) []Allele {
	seen := make(AlleleSet)
	var groups []Allele
	for _, a := range alleles {
		g := a.AsGroup()
		if !seen.Contains(g) {
			seen.Add(g)
			groups = append(groups, g)
		}
	}
	return groups
}

// AllelesForGene returns the alleles of one gene preserving order.
func AllelesForGene(alleles []Allele, gene string) []Allele {
	var out []Allele
	for _, a := range alleles {
		if a.Gene == gene {
			out = append(out, a)
		}
	}
	return out
}

// FormatAlleles joins allele names with the given separator.
func FormatAlleles(alleles []Allele, sep string) string {
	names := make([]string, len(alleles))
	for i, a := range alleles {
		names[i] = a.String()
	}
	return strings.Join(names, sep)
}
