package coverage

import (
	"math"
	"slices"

	"go.uber.org/zap"

	"github.com/inodb/vibe-hla/internal/hla"
)

// CohortFrequencies supplies population frequencies for alleles.
type CohortFrequencies interface {
	Frequency(a hla.Allele) float64
}

// preFilterFraction of the top coverage bounds the scores worth sorting.
const preFilterFraction = 0.25

// Ranking scores complexes and selects the best supported ones.
type Ranking struct {
	cfg         Config
	frequencies CohortFrequencies
	sequences   SequenceSource
	logger      *zap.Logger
}

// NewRanking creates a ranking. sequences may be nil, in which case the
// complexity and wildcard terms are zero.
func NewRanking(cfg Config, frequencies CohortFrequencies, sequences SequenceSource) *Ranking {
	return &Ranking{
		cfg:         cfg,
		frequencies: frequencies,
		sequences:   sequences,
		logger:      zap.NewNop(),
	}
}

// SetLogger sets the logger for ranking messages.
func (r *Ranking) SetLogger(l *zap.Logger) {
	r.logger = l
}

// Rank scores every complex and returns the selection in score order. With a
// zero TopScoreThreshold every complex is returned. Otherwise complexes are
// kept while their score is within TopScoreThreshold x top coverage of the
// best score, and the best two are always kept.
func (r *Ranking) Rank(coverages []*ComplexCoverage, recovered []hla.Allele) ([]*ComplexCoverage, error) {
	if len(coverages) == 0 {
		return nil, nil
	}

	recoveredSet := hla.NewAlleleSet(recovered...)
	for _, cc := range coverages {
		if err := r.Score(cc, recoveredSet); err != nil {
			return nil, err
		}
	}

	if r.cfg.TopScoreThreshold == 0 {
		ranked := slices.Clone(coverages)
		r.sort(ranked)
		return ranked, nil
	}

	topScore, topCoverage := math.Inf(-1), 0
	for _, cc := range coverages {
		topScore = math.Max(topScore, cc.Score)
		topCoverage = max(topCoverage, cc.TotalCoverage)
	}

	floor := topScore - preFilterFraction*float64(topCoverage)
	candidates := make([]*ComplexCoverage, 0, len(coverages))
	for _, cc := range coverages {
		if cc.Score >= floor {
			candidates = append(candidates, cc)
		}
	}
	r.sort(candidates)

	margin := r.cfg.TopScoreThreshold * float64(topCoverage)
	var ranked []*ComplexCoverage
	for i, cc := range candidates {
		if i >= 2 && cc.Score < topScore-margin {
			break
		}
		ranked = append(ranked, cc)
	}

	r.logger.Info("ranked complexes",
		zap.Int("scored", len(coverages)),
		zap.Int("selected", len(ranked)),
		zap.Float64("topScore", topScore),
		zap.Int("topCoverage", topCoverage))
	return ranked, nil
}

// Score sets the computed fields of a complex coverage.
func (r *Ranking) Score(cc *ComplexCoverage, recovered hla.AlleleSet) error {
	cc.CohortFrequencyTotal = r.cohortFrequencyTotal(cc)

	cc.RecoveredCount = 0
	for _, a := range cc.Alleles {
		if recovered.Contains(a) {
			cc.RecoveredCount++
		}
	}

	cc.WildcardCount, cc.Complexity = 0, 0
	if r.sequences != nil {
		var err error
		if cc.WildcardCount, err = wildcardCount(cc.Alleles, r.sequences); err != nil {
			return err
		}
		if cc.Complexity, err = solutionComplexity(cc.Alleles, r.sequences); err != nil {
			return err
		}
	}

	total := float64(cc.TotalCoverage)
	cc.ComplexityPenalty = float64(cc.Complexity) * r.cfg.ComplexityWeight * total
	cc.Score = total +
		cc.CohortFrequencyTotal*r.cfg.FrequencyWeight*total -
		cc.ComplexityPenalty -
		float64(cc.RecoveredCount)*r.cfg.RecoveryWeight*total -
		float64(cc.WildcardCount)*r.cfg.WildcardWeight*total
	return nil
}

// cohortFrequencyTotal sums log10 frequencies, doubling homozygous alleles.
func (r *Ranking) cohortFrequencyTotal(cc *ComplexCoverage) float64 {
	var total float64
	for _, a := range cc.Alleles {
		freq := r.cfg.FrequencyFloor
		if r.frequencies != nil {
			freq = math.Max(r.frequencies.Frequency(a), r.cfg.FrequencyFloor)
		}
		term := math.Log10(freq)
		if cc.IsHomozygous(a.Gene) {
			term *= 2
		}
		total += term
	}
	return total
}

func (r *Ranking) sort(coverages []*ComplexCoverage) {
	slices.SortStableFunc(coverages, r.compare)
}

// compare orders by score, highest first. Scores closer than ScoreEpsilon
// fall back to comparing alleles position by position.
func (r *Ranking) compare(a, b *ComplexCoverage) int {
	diff := a.Score - b.Score
	if diff != 0 && math.Abs(diff) >= r.cfg.ScoreEpsilon {
		if diff > 0 {
			return -1
		}
		return 1
	}
	return compareAlleleLists(a.Alleles, b.Alleles)
}

func compareAlleleLists(a, b []hla.Allele) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if c := a[i].Compare(b[i]); c != 0 {
			return c
		}
	}
	return len(a) - len(b)
}
