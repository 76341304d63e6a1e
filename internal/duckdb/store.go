// Package duckdb persists resolution runs and their ranked candidate
// complexes in DuckDB, and bulk-loads cohort frequency tables.
package duckdb

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/marcboeker/go-duckdb"
)

// Store manages a DuckDB connection holding run results.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens or creates a DuckDB database at the given path.
// Use an empty string for an in-memory database.
func Open(path string) (*Store, error) {
	if path != "" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}

	s := &Store{db: db, path: path}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for direct access.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Path returns the database path, empty for in-memory stores.
func (s *Store) Path() string {
	return s.path
}

// ensureSchema creates tables if they don't exist.
func (s *Store) ensureSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			run_id VARCHAR PRIMARY KEY,
			created_at TIMESTAMP,
			sample VARCHAR,
			fragments BIGINT,
			unmatched BIGINT,
			candidates BIGINT,
			permutations BIGINT,
			fallback BOOLEAN,
			winner VARCHAR
		)`,
		`CREATE TABLE IF NOT EXISTS complex_results (
			run_id VARCHAR,
			rank BIGINT,
			alleles VARCHAR,
			total_coverage BIGINT,
			unique_coverage BIGINT,
			shared_coverage BIGINT,
			wild_coverage BIGINT,
			cohort_frequency DOUBLE,
			recovered_count BIGINT,
			wildcard_count BIGINT,
			complexity BIGINT,
			complexity_penalty DOUBLE,
			score DOUBLE,
			PRIMARY KEY (run_id, rank)
		)`,
		`CREATE TABLE IF NOT EXISTS cohort_frequencies (
			allele VARCHAR,
			frequency DOUBLE
		)`,
		`CREATE TABLE IF NOT EXISTS sources (
			name VARCHAR PRIMARY KEY,
			path VARCHAR,
			size BIGINT,
			mod_time TIMESTAMP
		)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}
