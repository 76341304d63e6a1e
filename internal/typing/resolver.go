// Package typing runs one genotype resolution: evidence mapping, candidate
// filtering, complex building, coverage calculation and ranking.
package typing

import (
	"context"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/inodb/vibe-hla/internal/coverage"
	"github.com/inodb/vibe-hla/internal/evidence"
	"github.com/inodb/vibe-hla/internal/hla"
	"github.com/inodb/vibe-hla/internal/refdata"
)

// Input is the evidence of one sample.
type Input struct {
	Records  []evidence.Record
	StopLoss []evidence.StopLossAssociation
}

// Result is the outcome of one resolution run.
type Result struct {
	Candidates *coverage.Candidates
	Build      *coverage.BuildResult
	Ranked     []*coverage.ComplexCoverage

	// Winner is the top ranked complex with one coverage entry per gene
	// copy, or nil when no complex could be built.
	Winner *coverage.ComplexCoverage

	Fragments []*hla.FragmentAlleles // evidence restricted to the final candidates
	Unmatched []*hla.Fragment        // fragments supporting neither a candidate nor the winner
}

// Resolver wires the coverage engine for a reference data set.
type Resolver struct {
	cfg    coverage.Config
	ref    *refdata.Reference
	logger *zap.Logger
}

// NewResolver creates a resolver.
func NewResolver(cfg coverage.Config, ref *refdata.Reference) *Resolver {
	return &Resolver{cfg: cfg, ref: ref, logger: zap.NewNop()}
}

// SetLogger sets the logger passed to every stage.
func (r *Resolver) SetLogger(l *zap.Logger) {
	r.logger = l
}

// Run resolves the genotype supported by the input evidence. An input that
// supports no candidate yields an empty result, not an error.
func (r *Resolver) Run(ctx context.Context, in Input) (*Result, error) {
	genes := hla.NewGeneSelector(r.cfg.Genes...)

	mapper := evidence.NewMapper()
	mapper.SetLogger(r.logger)
	mapper.SetStopLoss(r.ref.StopLoss, in.StopLoss)
	mapping := mapper.Map(in.Records)

	candidates := genes.Filter(mapping.Candidates())
	fragments := hla.FilterFragments(mapping.Fragments, candidates)

	builder := coverage.NewBuilder(r.cfg, r.ref.CoverageReference(r.cfg.CommonFrequency))
	builder.SetLogger(r.logger)
	filtered := builder.FilterCandidates(fragments, candidates, mapping.Recovered)
	fragments = hla.FilterFragments(fragments, filtered.Alleles)

	build, err := builder.BuildComplexes(ctx, fragments, filtered)
	if err != nil {
		return nil, fmt.Errorf("build complexes: %w", err)
	}

	calc := coverage.NewCalculator(r.cfg)
	calc.SetLogger(r.logger)
	coverages, err := calc.Calculate(ctx, fragments, build.Complexes)
	if err != nil {
		return nil, err
	}

	ranking := coverage.NewRanking(r.cfg, r.ref.Frequencies, r.ref.SequenceSource())
	ranking.SetLogger(r.logger)
	ranked, err := ranking.Rank(coverages, filtered.Recovered)
	if err != nil {
		return nil, fmt.Errorf("rank complexes: %w", err)
	}

	result := &Result{
		Candidates: filtered,
		Build:      build,
		Ranked:     ranked,
		Fragments:  fragments,
	}

	if len(ranked) > 0 {
		winner := *ranked[0]
		winner.AlleleCoverage = slices.Clone(winner.AlleleCoverage)
		winner.PopulateMissingCoverage(winner.Alleles)
		winner.Expand(genes.Genes())
		result.Winner = &winner
		hla.AssignSolutionScopes(fragments, winner.Alleles)
		r.logger.Info("resolved genotype",
			zap.String("complex", hla.FormatAlleles(winner.Alleles, ",")),
			zap.Int("totalCoverage", winner.TotalCoverage),
			zap.Float64("score", winner.Score))
	} else {
		r.logger.Warn("no candidate complex supported by evidence")
	}

	result.Unmatched = append(result.Unmatched, mapping.Unmatched...)
	for _, fa := range mapping.Fragments {
		if fa.Fragment.Scope == hla.ScopeUnmatched {
			result.Unmatched = append(result.Unmatched, fa.Fragment)
		}
	}
	return result, nil
}
