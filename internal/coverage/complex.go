package coverage

import "github.com/inodb/vibe-hla/internal/hla"

// Complex is a candidate genotype: one or two alleles per gene, genes in
// resolution order.
type Complex struct {
	Alleles []hla.Allele
}

// NewComplex creates a complex from alleles.
func NewComplex(alleles ...hla.Allele) Complex {
	return Complex{Alleles: alleles}
}

func (c Complex) String() string {
	return hla.FormatAlleles(c.Alleles, ",")
}

// combineComplexes returns the cartesian product of two complex lists,
// concatenating the alleles of each pair.
func combineComplexes(first, second []Complex) []Complex {
	if len(first) == 0 || len(second) == 0 {
		return nil
	}
	out := make([]Complex, 0, len(first)*len(second))
	for _, f := range first {
		for _, s := range second {
			alleles := make([]hla.Allele, 0, len(f.Alleles)+len(s.Alleles))
			alleles = append(alleles, f.Alleles...)
			alleles = append(alleles, s.Alleles...)
			out = append(out, Complex{Alleles: alleles})
		}
	}
	return out
}

// combineAll folds combineComplexes across per-gene complex lists.
func combineAll(perGene [][]Complex) []Complex {
	if len(perGene) == 0 {
		return nil
	}
	result := perGene[0]
	for _, next := range perGene[1:] {
		result = combineComplexes(result, next)
	}
	return result
}

// complexAlleles returns the distinct alleles across complexes in first-seen order.
func complexAlleles(complexes []Complex) []hla.Allele {
	seen := make(hla.AlleleSet)
	var out []hla.Allele
	for _, c := range complexes {
		for _, a := range c.Alleles {
			if !seen.Contains(a) {
				seen.Add(a)
				out = append(out, a)
			}
		}
	}
	return out
}
