package coverage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/vibe-hla/internal/hla"
)

// coverageWithTotal builds a complex whose whole coverage is unique to its
// first allele.
func coverageWithTotal(total int, names ...string) *ComplexCoverage {
	as := alleles(names...)
	cov := []AlleleCoverage{{Allele: as[0], UniqueCoverage: total}}
	for _, a := range as[1:] {
		cov = append(cov, AlleleCoverage{Allele: a})
	}
	return NewComplexCoverage(as, cov)
}

func rankedNames(ranked []*ComplexCoverage) []string {
	out := make([]string, len(ranked))
	for i, cc := range ranked {
		out[i] = hla.FormatAlleles(cc.Alleles, ",")
	}
	return out
}

func TestScore(t *testing.T) {
	r := NewRanking(DefaultConfig(), frequencyMap{
		"A*01:01": 0.1,
		"B*07:02": 0.01,
	}, nil)

	cc := coverageWithTotal(100, "A*01:01", "B*07:02", "B*08:01")
	require.NoError(t, r.Score(cc, hla.NewAlleleSet(hla.MustParseAllele("B*08:01"))))

	// A*01:01 is homozygous and counted twice; B*08:01 falls back to the floor.
	assert.InDelta(t, -8.0, cc.CohortFrequencyTotal, 1e-9)
	assert.Equal(t, 1, cc.RecoveredCount)
	assert.Zero(t, cc.Complexity)
	assert.Zero(t, cc.WildcardCount)
	assert.InDelta(t, 100-1.2-0.5, cc.Score, 1e-9)
}

func TestScore_NilFrequenciesUseFloor(t *testing.T) {
	r := NewRanking(DefaultConfig(), nil, nil)
	cc := coverageWithTotal(10, "A*01:01", "A*02:01")
	require.NoError(t, r.Score(cc, nil))
	assert.InDelta(t, -8.0, cc.CohortFrequencyTotal, 1e-9)
}

func TestScore_ComplexityPenalty(t *testing.T) {
	seqs := newSequenceMap([]int{3}, map[string]string{
		"A*01:01": "ABCDEF",
		"A*02:01": "ABCXYZ",
	})
	r := NewRanking(DefaultConfig(), constantFrequency(1), seqs)

	cc := coverageWithTotal(200, "A*01:01", "A*02:01")
	require.NoError(t, r.Score(cc, nil))
	assert.Equal(t, 3, cc.Complexity)
	assert.InDelta(t, 3*0.0025*200, cc.ComplexityPenalty, 1e-9)
	assert.InDelta(t, 200-1.5, cc.Score, 1e-9)
}

func TestRank_TieBreakOnAlleles(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TopScoreThreshold = 0
	r := NewRanking(cfg, constantFrequency(0.01), nil)

	ranked, err := r.Rank([]*ComplexCoverage{
		coverageWithTotal(50, "A*01:01", "B*07:02"),
		coverageWithTotal(50, "A*01:01", "B*07:01"),
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"A*01:01,B*07:01", "A*01:01,B*07:02"}, rankedNames(ranked))
}

func TestRank_Selection(t *testing.T) {
	input := func(totals ...int) []*ComplexCoverage {
		names := []string{"A*01:01", "A*02:01", "A*03:01", "A*11:01"}
		var out []*ComplexCoverage
		for i, total := range totals {
			out = append(out, coverageWithTotal(total, names[i], "B*07:02"))
		}
		return out
	}

	tests := []struct {
		name      string
		threshold float64
		totals    []int
		want      []string
	}{
		{
			name:      "third outside margin",
			threshold: 0.1,
			totals:    []int{100, 95, 80, 70},
			want:      []string{"A*01:01,B*07:02", "A*02:01,B*07:02"},
		},
		{
			name:      "third within margin",
			threshold: 0.1,
			totals:    []int{100, 95, 92},
			want:      []string{"A*01:01,B*07:02", "A*02:01,B*07:02", "A*03:01,B*07:02"},
		},
		{
			name:      "top two always kept",
			threshold: 0.01,
			totals:    []int{100, 80},
			want:      []string{"A*01:01,B*07:02", "A*02:01,B*07:02"},
		},
		{
			name:      "zero threshold keeps all",
			threshold: 0,
			totals:    []int{70, 100, 80, 95},
			want:      []string{"A*02:01,B*07:02", "A*11:01,B*07:02", "A*03:01,B*07:02", "A*01:01,B*07:02"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.TopScoreThreshold = tt.threshold
			r := NewRanking(cfg, constantFrequency(1), nil)

			ranked, err := r.Rank(input(tt.totals...), nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, rankedNames(ranked))
		})
	}
}

func TestRank_Empty(t *testing.T) {
	ranked, err := NewRanking(DefaultConfig(), nil, nil).Rank(nil, nil)
	require.NoError(t, err)
	assert.Empty(t, ranked)
}

func TestRank_MissingSequence(t *testing.T) {
	seqs := newSequenceMap([]int{3}, map[string]string{"A*01:01": "ABCDEF"})
	r := NewRanking(DefaultConfig(), constantFrequency(0.01), seqs)

	_, err := r.Rank([]*ComplexCoverage{coverageWithTotal(10, "A*01:01", "B*07:02")}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingSequence)
	assert.Contains(t, err.Error(), "B*07:02")
}
