package hla

import "slices"

// Default genes resolved together as one complex.
var DefaultGenes = []string{"A", "B", "C"}

// GeneSelector holds the ordered list of genes under resolution. The order
// determines allele positions within a complex.
type GeneSelector struct {
	genes []string
}

// NewGeneSelector creates a selector for the given genes, falling back to
// DefaultGenes when none are given.
func NewGeneSelector(genes ...string) *GeneSelector {
	if len(genes) == 0 {
		genes = DefaultGenes
	}
	return &GeneSelector{genes: slices.Clone(genes)}
}

// Genes returns the genes in resolution order.
func (g *GeneSelector) Genes() []string {
	return g.genes
}

// Contains reports whether the gene is under resolution.
func (g *GeneSelector) Contains(gene string) bool {
	return slices.Contains(g.genes, gene)
}

// Index returns the position of a gene, or -1 if it is not selected.
func (g *GeneSelector) Index(gene string) int {
	return slices.Index(g.genes, gene)
}

// Filter keeps alleles belonging to selected genes.
func (g *GeneSelector) Filter(alleles []Allele) []Allele {
	var out []Allele
	for _, a := range alleles {
		if g.Contains(a.Gene) {
			out = append(out, a)
		}
	}
	return out
}
