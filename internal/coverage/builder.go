package coverage

import (
	"context"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/inodb/vibe-hla/internal/hla"
)

// Reference holds the reference alleles the builder consults.
type Reference struct {
	CommonAlleles   []hla.Allele // population-common alleles in priority order
	StopLossAlleles []hla.Allele // alleles known to carry a stop-loss indel
	Frequencies     CohortFrequencies
}

// Candidates is the refined candidate pool of one run.
type Candidates struct {
	ConfirmedGroups   []AlleleCoverage
	ConfirmedProteins []AlleleCoverage
	Alleles           []hla.Allele // surviving candidates in allele order
	Recovered         []hla.Allele // recovered alleles still in the pool
}

// GroupsForGene returns the confirmed group alleles of one gene.
func (c *Candidates) GroupsForGene(gene string) []hla.Allele {
	var groups []hla.Allele
	for _, g := range c.ConfirmedGroups {
		if g.Allele.Gene == gene {
			groups = append(groups, g.Allele)
		}
	}
	return groups
}

// BuildResult is the output of BuildComplexes.
type BuildResult struct {
	Complexes    []Complex
	Permutations int64        // naive cross-product size, -1 on overflow
	Fallback     bool         // the top-allele heuristic was applied
	Discarded    []hla.Allele // candidates dropped by the heuristic
}

// Builder refines the candidate pool and generates candidate complexes.
type Builder struct {
	cfg    Config
	genes  *hla.GeneSelector
	ref    Reference
	common hla.AlleleSet
	logger *zap.Logger
}

// NewBuilder creates a builder.
func NewBuilder(cfg Config, ref Reference) *Builder {
	return &Builder{
		cfg:    cfg,
		genes:  hla.NewGeneSelector(cfg.Genes...),
		ref:    ref,
		common: hla.NewAlleleSet(ref.CommonAlleles...),
		logger: zap.NewNop(),
	}
}

// SetLogger sets the logger for filtering and build messages.
func (b *Builder) SetLogger(l *zap.Logger) {
	b.logger = l
}

// FilterCandidates refines candidates in a group pass then a protein pass.
// Genes with two confirmed groups keep only candidates of those groups;
// common alleles sharing a group with an insufficiently unique group, or with
// a rare or wildcard candidate, are re-admitted along with recovered
// stop-loss alleles.
func (b *Builder) FilterCandidates(fragments []*hla.FragmentAlleles, candidates, recovered []hla.Allele) *Candidates {
	total := float64(len(fragments))
	b.logger.Info("filtering candidates",
		zap.Int("fragments", len(fragments)),
		zap.Int("candidates", len(candidates)),
		zap.Int("recovered", len(recovered)))

	groupCoverage := GroupCoverage(fragments)
	confirmedGroups := findUnique(groupCoverage, b.cfg.GroupUniqueFraction*total, nil)
	confirmedGroupAlleles := coverageAlleles(confirmedGroups)
	confirmedSet := hla.NewAlleleSet(confirmedGroupAlleles...)

	var insufficient []AlleleCoverage
	lowThreshold := b.cfg.GroupUniqueFractionLow * total
	for _, c := range groupCoverage {
		if !confirmedSet.Contains(c.Allele) && c.UniqueCoverage > 0 && float64(c.UniqueCoverage) >= lowThreshold {
			insufficient = append(insufficient, c)
		}
	}

	if len(confirmedGroups) > 0 {
		b.logger.Info("confirmed unique groups",
			zap.Stringer("groups", alleleList(confirmedGroupAlleles)))
	}
	if len(insufficient) > 0 {
		b.logger.Info("insufficiently unique groups",
			zap.Stringer("groups", alleleList(coverageAlleles(insufficient))))
	}

	pool := b.filterWithGroups(candidates, confirmedGroupAlleles)
	pool = b.readmitCommon(pool, confirmedGroupAlleles, insufficient)
	pool = b.readmitStopLoss(pool, recovered, confirmedGroupAlleles)
	b.logger.Info("candidates after group filtering", zap.Int("candidates", len(pool)))

	// Recovered alleles never confirm a protein.
	recoveredSet := hla.NewAlleleSet(recovered...)
	var proteinCoverage []AlleleCoverage
	for _, c := range ProteinCoverage(hla.FilterFragments(fragments, pool)) {
		if !recoveredSet.Contains(c.Allele) {
			proteinCoverage = append(proteinCoverage, c)
		}
	}
	proteinThreshold := b.cfg.ProteinUniqueFraction
	if len(confirmedGroups) == 0 {
		proteinThreshold = b.cfg.ProteinUniqueFractionLow
	}
	confirmedProteins := findUnique(proteinCoverage, proteinThreshold*total, confirmedGroupAlleles)
	if len(confirmedProteins) > 0 {
		b.logger.Info("confirmed unique proteins",
			zap.Stringer("proteins", alleleList(coverageAlleles(confirmedProteins))))
	}

	if b.cfg.ApplyUniqueProteinFilter {
		pool = b.filterWithProteins(pool, coverageAlleles(confirmedProteins))
		b.logger.Info("candidates after protein filtering", zap.Int("candidates", len(pool)))
	}

	var keptRecovered []hla.Allele
	poolSet := hla.NewAlleleSet(pool...)
	for _, a := range recovered {
		if poolSet.Contains(a) && consistentWithGroups(a, confirmedGroupAlleles) {
			keptRecovered = append(keptRecovered, a)
		}
	}
	hla.SortAlleles(keptRecovered)

	return &Candidates{
		ConfirmedGroups:   confirmedGroups,
		ConfirmedProteins: confirmedProteins,
		Alleles:           pool,
		Recovered:         keptRecovered,
	}
}

// findUnique selects up to two alleles per gene whose unique coverage reaches
// minCoverage, in coverage order. When a gene already has two confirmed
// groups, a second allele from an already represented group is skipped.
func findUnique(coverage []AlleleCoverage, minCoverage float64, confirmedGroups []hla.Allele) []AlleleCoverage {
	groupsPerGene := make(map[string]int)
	for _, g := range confirmedGroups {
		groupsPerGene[g.Gene]++
	}

	sorted := make([]AlleleCoverage, len(coverage))
	copy(sorted, coverage)
	SortCoverageDesc(sorted)

	selected := make(map[string][]AlleleCoverage)
	var unique []AlleleCoverage
	for _, c := range sorted {
		if c.UniqueCoverage == 0 || float64(c.UniqueCoverage) < minCoverage {
			continue
		}
		gene := c.Allele.Gene
		geneSelected := selected[gene]
		if len(geneSelected) >= 2 {
			continue
		}
		if groupsPerGene[gene] >= 2 && anyGroupEqual(geneSelected, c.Allele) {
			continue
		}
		selected[gene] = append(geneSelected, c)
		unique = append(unique, c)
	}
	return unique
}

func anyGroupEqual(coverage []AlleleCoverage, a hla.Allele) bool {
	for _, c := range coverage {
		if c.Allele.GroupEqual(a) {
			return true
		}
	}
	return false
}

// consistentWithGroups reports whether an allele may remain a candidate: its
// gene has fewer than two confirmed groups or its group is one of them.
func consistentWithGroups(a hla.Allele, confirmedGroups []hla.Allele) bool {
	geneGroups := hla.AllelesForGene(confirmedGroups, a.Gene)
	if len(geneGroups) < 2 {
		return true
	}
	for _, g := range geneGroups {
		if g.GroupEqual(a) {
			return true
		}
	}
	return false
}

func (b *Builder) filterWithGroups(candidates, confirmedGroups []hla.Allele) []hla.Allele {
	var out []hla.Allele
	for _, a := range b.genes.Filter(candidates) {
		if consistentWithGroups(a, confirmedGroups) {
			out = append(out, a)
		}
	}
	return distinctSorted(out)
}

// readmitCommon adds common alleles sharing a group with an insufficiently
// unique group while the gene has room, then common alleles sharing a group
// with any rare or wildcard-bearing candidate.
func (b *Builder) readmitCommon(pool, confirmedGroups []hla.Allele, insufficient []AlleleCoverage) []hla.Allele {
	groupsPerGene := make(map[string]int)
	for _, g := range confirmedGroups {
		groupsPerGene[g.Gene]++
	}

	var added []hla.Allele
	for _, c := range insufficient {
		gene := c.Allele.Gene
		if !b.genes.Contains(gene) || groupsPerGene[gene] >= 2 {
			continue
		}
		groupsPerGene[gene]++
		for _, common := range b.ref.CommonAlleles {
			if common.GroupEqual(c.Allele) {
				added = append(added, common)
			}
		}
	}

	uncommonGroups := make(hla.AlleleSet)
	for _, a := range pool {
		if a.Wildcard || !b.common.Contains(a) {
			uncommonGroups.Add(a.AsGroup())
		}
	}
	for _, common := range b.ref.CommonAlleles {
		if uncommonGroups.Contains(common.AsGroup()) && b.genes.Contains(common.Gene) &&
			consistentWithGroups(common, confirmedGroups) {
			added = append(added, common)
		}
	}

	if len(added) > 0 {
		b.logger.Debug("re-admitted common alleles", zap.Stringer("alleles", alleleList(added)))
	}
	return distinctSorted(append(pool, added...))
}

// readmitStopLoss adds recovered alleles known to carry a stop-loss indel.
func (b *Builder) readmitStopLoss(pool, recovered, confirmedGroups []hla.Allele) []hla.Allele {
	stopLoss := hla.NewAlleleSet(b.ref.StopLossAlleles...)
	var added []hla.Allele
	for _, a := range recovered {
		if stopLoss.Contains(a) && b.genes.Contains(a.Gene) && consistentWithGroups(a, confirmedGroups) {
			added = append(added, a)
		}
	}
	return distinctSorted(append(pool, added...))
}

// filterWithProteins keeps, for genes with two confirmed proteins, only those
// proteins.
func (b *Builder) filterWithProteins(pool, confirmedProteins []hla.Allele) []hla.Allele {
	var out []hla.Allele
	for _, a := range pool {
		geneProteins := hla.AllelesForGene(confirmedProteins, a.Gene)
		if len(geneProteins) < 2 || hla.NewAlleleSet(geneProteins...).Contains(a) {
			out = append(out, a)
		}
	}
	return out
}

// BuildComplexes generates complexes spanning every gene. If the
// cross-product of per-gene complexes exceeds MaxPermutations, each gene's
// pool is cut to its best FallbackTopAlleles alleles, plus common alleles,
// and the product rebuilt.
func (b *Builder) BuildComplexes(ctx context.Context, fragments []*hla.FragmentAlleles, c *Candidates) (*BuildResult, error) {
	genes := b.genes.Genes()
	perGene := make([][]Complex, len(genes))
	for i, gene := range genes {
		perGene[i] = buildComplexesByGene(c.GroupsForGene(gene), hla.AllelesForGene(c.Alleles, gene))
		b.logger.Debug("gene complexes", zap.String("gene", gene), zap.Int("complexes", len(perGene[i])))
	}

	result := &BuildResult{Permutations: permutationCount(perGene)}
	if result.Permutations >= 0 && result.Permutations <= b.cfg.MaxPermutations {
		result.Complexes = combineAll(perGene)
		b.logger.Info("built complexes", zap.Int("complexes", len(result.Complexes)))
		return result, nil
	}

	b.logger.Info("excessive complex permutations, keeping top alleles per gene",
		zap.Int64("permutations", result.Permutations),
		zap.Int("topAlleles", b.cfg.FallbackTopAlleles))
	result.Fallback = true

	for i, gene := range genes {
		top, err := b.topAlleles(ctx, gene, fragments, perGene[i], c.Alleles, c.Recovered)
		if err != nil {
			return nil, fmt.Errorf("rank %s complexes: %w", gene, err)
		}
		keep := hla.NewAlleleSet(top...)
		for _, a := range hla.AllelesForGene(c.Alleles, gene) {
			if !keep.Contains(a) {
				result.Discarded = append(result.Discarded, a)
			}
		}
		perGene[i] = buildComplexesByGene(c.GroupsForGene(gene), top)
	}

	if len(result.Discarded) > 0 {
		b.logger.Info("discarded candidates",
			zap.Int("count", len(result.Discarded)),
			zap.Stringer("alleles", alleleList(result.Discarded)))
	}
	result.Complexes = combineAll(perGene)
	b.logger.Info("built complexes", zap.Int("complexes", len(result.Complexes)))
	return result, nil
}

// topAlleles ranks one gene's complexes by protein coverage and returns the
// first distinct alleles in rank order, together with the gene's common
// candidates.
func (b *Builder) topAlleles(ctx context.Context, gene string, fragments []*hla.FragmentAlleles, complexes []Complex, pool, recovered []hla.Allele) ([]hla.Allele, error) {
	// Every complex is ranked, so nothing is culled either.
	cfg := b.cfg
	cfg.TopScoreThreshold = 0

	calc := NewCalculator(cfg)
	calc.SetLogger(b.logger)
	coverages, err := calc.Calculate(ctx, fragments, complexes)
	if err != nil {
		return nil, err
	}

	ranked, err := NewRanking(cfg, b.ref.Frequencies, nil).Rank(coverages, recovered)
	if err != nil {
		return nil, err
	}

	top := make(hla.AlleleSet)
	var out []hla.Allele
	for _, cc := range ranked {
		for _, a := range cc.Alleles {
			if len(out) >= b.cfg.FallbackTopAlleles {
				break
			}
			if !top.Contains(a) {
				top.Add(a)
				out = append(out, a)
			}
		}
	}

	for _, a := range hla.AllelesForGene(pool, gene) {
		if b.common.Contains(a) && !top.Contains(a) {
			top.Add(a)
			out = append(out, a)
		}
	}
	hla.SortAlleles(out)
	return out, nil
}

// buildComplexesByGene pairs the candidates of one gene. With two confirmed
// groups every candidate of the first group is paired with every candidate of
// the second. With one, candidates of that group are paired with every other
// candidate and also kept alone. With none, all unordered pairs and all
// singletons are produced.
func buildComplexesByGene(confirmedGroups, candidates []hla.Allele) []Complex {
	switch {
	case len(confirmedGroups) >= 2:
		first := inGroup(candidates, confirmedGroups[0])
		second := inGroup(candidates, confirmedGroups[1])
		var out []Complex
		for _, f := range first {
			for _, s := range second {
				out = append(out, pair(f, s))
			}
		}
		return out

	case len(confirmedGroups) == 1:
		first := inGroup(candidates, confirmedGroups[0])
		seen := make(map[[2]hla.Allele]bool)
		var out []Complex
		for _, f := range first {
			out = append(out, NewComplex(f))
		}
		for _, f := range first {
			for _, s := range candidates {
				if f == s {
					continue
				}
				p := pair(f, s)
				key := [2]hla.Allele{p.Alleles[0], p.Alleles[1]}
				if !seen[key] {
					seen[key] = true
					out = append(out, p)
				}
			}
		}
		return out

	default:
		var out []Complex
		for _, a := range candidates {
			out = append(out, NewComplex(a))
		}
		for i := range candidates {
			for j := i + 1; j < len(candidates); j++ {
				if candidates[i] != candidates[j] {
					out = append(out, pair(candidates[i], candidates[j]))
				}
			}
		}
		return out
	}
}

func inGroup(candidates []hla.Allele, group hla.Allele) []hla.Allele {
	var out []hla.Allele
	for _, a := range candidates {
		if a.GroupEqual(group) {
			out = append(out, a)
		}
	}
	return out
}

// pair returns a two-allele complex with the alleles in natural order.
func pair(a, b hla.Allele) Complex {
	if b.Less(a) {
		a, b = b, a
	}
	return NewComplex(a, b)
}

// permutationCount multiplies the per-gene complex counts, returning -1 if
// the product overflows.
func permutationCount(perGene [][]Complex) int64 {
	product := int64(1)
	for _, complexes := range perGene {
		n := int64(len(complexes))
		if n == 0 {
			return 0
		}
		if product > math.MaxInt64/n {
			return -1
		}
		product *= n
	}
	return product
}

func distinctSorted(alleles []hla.Allele) []hla.Allele {
	return hla.NewAlleleSet(alleles...).Sorted()
}

// alleleList formats alleles lazily for log fields.
type alleleList []hla.Allele

func (l alleleList) String() string {
	return hla.FormatAlleles(l, ",")
}
