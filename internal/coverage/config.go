// Package coverage builds candidate HLA complexes, computes their fragment
// coverage and ranks them.
package coverage

import "github.com/inodb/vibe-hla/internal/hla"

// Config holds the thresholds and weights of one resolution run.
type Config struct {
	Genes []string `mapstructure:"genes"`

	// Minimum unique coverage, as a fraction of all fragments, for an allele
	// to be confirmed.
	GroupUniqueFraction      float64 `mapstructure:"group_unique_fraction"`
	GroupUniqueFractionLow   float64 `mapstructure:"group_unique_fraction_low"`
	ProteinUniqueFraction    float64 `mapstructure:"protein_unique_fraction"`
	ProteinUniqueFractionLow float64 `mapstructure:"protein_unique_fraction_low"`

	// ApplyUniqueProteinFilter restricts candidates of genes with two
	// confirmed proteins to those proteins. Off by default.
	ApplyUniqueProteinFilter bool `mapstructure:"apply_unique_protein_filter"`

	MaxPermutations    int64 `mapstructure:"max_permutations"`
	FallbackTopAlleles int   `mapstructure:"fallback_top_alleles"`

	Threads              int     `mapstructure:"threads"`
	ParallelMinComplexes int     `mapstructure:"parallel_min_complexes"`
	CullBatchSize        int     `mapstructure:"cull_batch_size"`
	CullMinDiff          float64 `mapstructure:"cull_min_diff"`
	CullScoreFactor      float64 `mapstructure:"cull_score_factor"`
	MaxCullFraction      float64 `mapstructure:"max_cull_fraction"`

	TopScoreThreshold float64 `mapstructure:"top_score_threshold"`
	FrequencyWeight   float64 `mapstructure:"frequency_weight"`
	FrequencyFloor    float64 `mapstructure:"frequency_floor"`
	ComplexityWeight  float64 `mapstructure:"complexity_weight"`
	RecoveryWeight    float64 `mapstructure:"recovery_weight"`
	WildcardWeight    float64 `mapstructure:"wildcard_weight"`
	ScoreEpsilon      float64 `mapstructure:"score_epsilon"`

	// CommonFrequency is the cohort frequency at or above which an allele
	// counts as common.
	CommonFrequency float64 `mapstructure:"common_frequency"`
}

// DefaultConfig returns the standard settings.
func DefaultConfig() Config {
	return Config{
		Genes:                    hla.DefaultGenes,
		GroupUniqueFraction:      0.02,
		GroupUniqueFractionLow:   0.01,
		ProteinUniqueFraction:    0.01,
		ProteinUniqueFractionLow: 0.005,
		MaxPermutations:          100_000,
		FallbackTopAlleles:       10,
		Threads:                  1,
		ParallelMinComplexes:     10_000,
		CullBatchSize:            100_000,
		CullMinDiff:              50,
		CullScoreFactor:          40,
		MaxCullFraction:          0.25,
		TopScoreThreshold:        0.005,
		FrequencyWeight:          0.0015,
		FrequencyFloor:           0.0001,
		ComplexityWeight:         0.0025,
		RecoveryWeight:           0.005,
		ScoreEpsilon:             0.0001,
		CommonFrequency:          0.001,
	}
}

// cullFraction is the relative distance below the running maximum beyond
// which the parallel calculator drops a complex.
func (c Config) cullFraction() float64 {
	return min(c.TopScoreThreshold*c.CullScoreFactor, c.MaxCullFraction)
}
