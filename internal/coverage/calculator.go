package coverage

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/inodb/vibe-hla/internal/hla"
)

// Calculator computes ComplexCoverage for candidate complexes.
type Calculator struct {
	cfg    Config
	logger *zap.Logger
}

// NewCalculator creates a calculator with the given settings.
func NewCalculator(cfg Config) *Calculator {
	return &Calculator{cfg: cfg, logger: zap.NewNop()}
}

// SetLogger sets the logger for progress messages.
func (c *Calculator) SetLogger(l *zap.Logger) {
	c.logger = l
}

// workerStats are the per-worker counters merged after the join.
type workerStats struct {
	processed int
	culled    int
	maxTotal  int
}

// Calculate returns one ComplexCoverage per complex. Large inputs are split
// round-robin across Threads workers; in that case result order follows the
// partitioning, not the input. When culling applies, complexes far below the
// best coverage are dropped. A failure in any worker fails the whole
// calculation.
func (c *Calculator) Calculate(ctx context.Context, fragments []*hla.FragmentAlleles, complexes []Complex) ([]*ComplexCoverage, error) {
	if len(complexes) == 0 {
		return nil, nil
	}

	matrix := NewFragmentAlleleMatrix(fragments, complexAlleles(complexes))
	culling := c.culling(len(complexes))

	workers := 1
	if c.cfg.Threads > 1 && len(complexes) >= c.cfg.ParallelMinComplexes {
		workers = min(c.cfg.Threads, len(complexes))
	}
	partials := make([][]*ComplexCoverage, workers)
	stats := make([]workerStats, workers)

	g, gctx := errgroup.WithContext(ctx)
	for w := range workers {
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("coverage worker %d: %v", w, r)
				}
			}()
			partials[w], stats[w], err = c.runWorker(gctx, matrix, complexes, w, workers, culling)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("calculate complex coverage: %w", err)
	}

	var total, culled, maxTotal int
	for w, p := range partials {
		total += len(p)
		culled += stats[w].culled
		maxTotal = max(maxTotal, stats[w].maxTotal)
	}
	results := make([]*ComplexCoverage, 0, total)
	for w, p := range partials {
		results = append(results, p...)
		c.logger.Debug("coverage worker finished",
			zap.Int("worker", w),
			zap.Int("processed", stats[w].processed),
			zap.Int("culled", stats[w].culled),
			zap.Int("maxTotal", stats[w].maxTotal))
	}

	// A worker's running maximum never exceeds the global one, so a final pass
	// against the global maximum leaves the same set for any partitioning.
	if culling {
		var n int
		results, n = c.cull(results, maxTotal)
		culled += n
	}

	c.logger.Info("calculated complex coverage",
		zap.Int("complexes", len(complexes)),
		zap.Int("workers", workers),
		zap.Int("culled", culled))
	return results, nil
}

// culling reports whether complexes far below the best coverage are dropped.
// It depends on the input size and settings only, never on the thread count.
// A zero TopScoreThreshold ranks every complex, so nothing is culled.
func (c *Calculator) culling(n int) bool {
	return c.cfg.TopScoreThreshold > 0 && n >= c.cfg.ParallelMinComplexes
}

// runWorker evaluates every workers-th complex starting at offset. After each
// batch it checks for cancellation and, when culling, drops accumulated
// results far below the running maximum.
func (c *Calculator) runWorker(ctx context.Context, matrix *FragmentAlleleMatrix, complexes []Complex, offset, workers int, culling bool) ([]*ComplexCoverage, workerStats, error) {
	var stats workerStats
	var results []*ComplexCoverage
	batch := max(c.cfg.CullBatchSize, 1)

	for i := offset; i < len(complexes); i += workers {
		cc := complexCoverage(matrix, complexes[i])
		stats.maxTotal = max(stats.maxTotal, cc.TotalCoverage)
		results = append(results, cc)
		stats.processed++

		if stats.processed%batch == 0 {
			if err := ctx.Err(); err != nil {
				return nil, stats, err
			}
			if culling {
				var n int
				results, n = c.cull(results, stats.maxTotal)
				stats.culled += n
			}
		}
	}
	return results, stats, nil
}

// cull drops complexes whose coverage is both more than CullMinDiff below
// maxTotal and below the relative cull fraction of it.
func (c *Calculator) cull(results []*ComplexCoverage, maxTotal int) ([]*ComplexCoverage, int) {
	absFloor := float64(maxTotal) - c.cfg.CullMinDiff
	relFloor := float64(maxTotal) * (1 - c.cfg.cullFraction())

	kept := results[:0]
	for _, cc := range results {
		total := float64(cc.TotalCoverage)
		if total < absFloor && total < relFloor {
			continue
		}
		kept = append(kept, cc)
	}
	culled := len(results) - len(kept)
	clear(results[len(kept):])
	return kept, culled
}

// complexCoverage evaluates one complex. Alleles missing from the matrix
// yield a complex without coverage.
func complexCoverage(matrix *FragmentAlleleMatrix, cx Complex) *ComplexCoverage {
	return NewComplexCoverage(cx.Alleles, matrix.Coverage(cx.Alleles))
}
