package duckdb

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"time"

	goduckdb "github.com/marcboeker/go-duckdb"

	"github.com/inodb/vibe-hla/internal/coverage"
	"github.com/inodb/vibe-hla/internal/hla"
)

// ErrRunNotFound is returned when a run id has no stored results.
var ErrRunNotFound = errors.New("run not found")

// Run summarizes one resolution run.
type Run struct {
	ID           string
	CreatedAt    time.Time
	Sample       string
	Fragments    int64
	Unmatched    int64
	Candidates   int64
	Permutations int64
	Fallback     bool
	Winner       string
}

// ComplexResult is one stored ranked complex.
type ComplexResult struct {
	Rank              int64
	Alleles           string
	TotalCoverage     int64
	UniqueCoverage    int64
	SharedCoverage    int64
	WildCoverage      int64
	CohortFrequency   float64
	RecoveredCount    int64
	WildcardCount     int64
	Complexity        int64
	ComplexityPenalty float64
	Score             float64
}

// NewComplexResult flattens a ranked complex. rank is 1-based.
func NewComplexResult(rank int, cc *coverage.ComplexCoverage) ComplexResult {
	return ComplexResult{
		Rank:              int64(rank),
		Alleles:           hla.FormatAlleles(cc.Alleles, ","),
		TotalCoverage:     int64(cc.TotalCoverage),
		UniqueCoverage:    int64(cc.UniqueCoverage),
		SharedCoverage:    int64(cc.SharedCoverage),
		WildCoverage:      int64(cc.WildCoverage),
		CohortFrequency:   cc.CohortFrequencyTotal,
		RecoveredCount:    int64(cc.RecoveredCount),
		WildcardCount:     int64(cc.WildcardCount),
		Complexity:        int64(cc.Complexity),
		ComplexityPenalty: cc.ComplexityPenalty,
		Score:             cc.Score,
	}
}

// WriteRun stores a run summary and its ranked complexes. The complexes are
// batch-inserted with the Appender API.
func (s *Store) WriteRun(run Run, ranked []*coverage.ComplexCoverage) error {
	if _, err := s.db.Exec(`INSERT INTO runs VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.CreatedAt.UTC(), run.Sample, run.Fragments, run.Unmatched,
		run.Candidates, run.Permutations, run.Fallback, run.Winner); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	if len(ranked) == 0 {
		return nil
	}

	conn, err := s.db.Conn(context.Background())
	if err != nil {
		return fmt.Errorf("get connection: %w", err)
	}
	defer conn.Close()

	var appender *goduckdb.Appender
	if err := conn.Raw(func(driverConn any) error {
		var err error
		appender, err = goduckdb.NewAppenderFromConn(driverConn.(driver.Conn), "", "complex_results")
		return err
	}); err != nil {
		return fmt.Errorf("create appender: %w", err)
	}
	defer appender.Close()

	for i, cc := range ranked {
		r := NewComplexResult(i+1, cc)
		if err := appender.AppendRow(
			run.ID, r.Rank, r.Alleles,
			r.TotalCoverage, r.UniqueCoverage, r.SharedCoverage, r.WildCoverage,
			r.CohortFrequency, r.RecoveredCount, r.WildcardCount,
			r.Complexity, r.ComplexityPenalty, r.Score,
		); err != nil {
			return fmt.Errorf("append complex result: %w", err)
		}
	}

	return appender.Flush()
}

// LookupRun returns a stored run and its complexes in rank order.
func (s *Store) LookupRun(id string) (*Run, []ComplexResult, error) {
	var run Run
	err := s.db.QueryRow(`SELECT
		run_id, created_at, sample, fragments, unmatched,
		candidates, permutations, fallback, winner
		FROM runs WHERE run_id=?`, id).Scan(
		&run.ID, &run.CreatedAt, &run.Sample, &run.Fragments, &run.Unmatched,
		&run.Candidates, &run.Permutations, &run.Fallback, &run.Winner)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("query run: %w", err)
	}

	rows, err := s.db.Query(`SELECT
		rank, alleles,
		total_coverage, unique_coverage, shared_coverage, wild_coverage,
		cohort_frequency, recovered_count, wildcard_count,
		complexity, complexity_penalty, score
		FROM complex_results
		WHERE run_id=?
		ORDER BY rank`, id)
	if err != nil {
		return nil, nil, fmt.Errorf("query complex results: %w", err)
	}
	defer rows.Close()

	var results []ComplexResult
	for rows.Next() {
		var r ComplexResult
		if err := rows.Scan(
			&r.Rank, &r.Alleles,
			&r.TotalCoverage, &r.UniqueCoverage, &r.SharedCoverage, &r.WildCoverage,
			&r.CohortFrequency, &r.RecoveredCount, &r.WildcardCount,
			&r.Complexity, &r.ComplexityPenalty, &r.Score,
		); err != nil {
			return nil, nil, fmt.Errorf("scan complex result: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate complex results: %w", err)
	}
	return &run, results, nil
}

// ListRuns returns every stored run, newest first.
func (s *Store) ListRuns() ([]Run, error) {
	rows, err := s.db.Query(`SELECT
		run_id, created_at, sample, fragments, unmatched,
		candidates, permutations, fallback, winner
		FROM runs ORDER BY created_at DESC, run_id`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		if err := rows.Scan(
			&run.ID, &run.CreatedAt, &run.Sample, &run.Fragments, &run.Unmatched,
			&run.Candidates, &run.Permutations, &run.Fallback, &run.Winner,
		); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// DeleteRun removes a run and its complexes.
func (s *Store) DeleteRun(id string) error {
	if _, err := s.db.Exec(`DELETE FROM complex_results WHERE run_id=?`, id); err != nil {
		return fmt.Errorf("delete complex results: %w", err)
	}
	if _, err := s.db.Exec(`DELETE FROM runs WHERE run_id=?`, id); err != nil {
		return fmt.Errorf("delete run: %w", err)
	}
	return nil
}
