package duckdb

import (
	"fmt"
	"strings"

	"github.com/inodb/vibe-hla/internal/hla"
	"github.com/inodb/vibe-hla/internal/refdata"
)

const frequencySource = "cohort_frequencies"

// LoadFrequencies bulk-loads an allele/frequency TSV with DuckDB's read_csv,
// replacing any previous table. The load is skipped when the file is
// unchanged since the last load; the returned bool reports whether a load
// happened.
func (s *Store) LoadFrequencies(tsvPath string) (bool, error) {
	fp, err := StatFile(tsvPath)
	if err != nil {
		return false, fmt.Errorf("stat frequencies: %w", err)
	}
	valid, err := s.sourceValid(frequencySource, fp)
	if err != nil {
		return false, err
	}
	if valid {
		return false, nil
	}

	if _, err := s.db.Exec(`DELETE FROM cohort_frequencies`); err != nil {
		return false, fmt.Errorf("clear frequencies: %w", err)
	}

	query := fmt.Sprintf(`INSERT INTO cohort_frequencies
		SELECT allele, frequency
		FROM read_csv('%s', delim='\t', header=true,
			columns={
				'allele': 'VARCHAR',
				'frequency': 'DOUBLE'
			})`, strings.ReplaceAll(tsvPath, "'", "''"))
	if _, err := s.db.Exec(query); err != nil {
		return false, fmt.Errorf("loading frequency data: %w", err)
	}

	if err := s.recordSource(frequencySource, fp); err != nil {
		return false, err
	}
	return true, nil
}

// FrequencyCount returns the number of loaded frequency rows.
func (s *Store) FrequencyCount() (int64, error) {
	var count int64
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM cohort_frequencies`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count frequencies: %w", err)
	}
	return count, nil
}

// Frequencies reads the loaded table into a frequency lookup. Rows with
// unparseable allele names are skipped.
func (s *Store) Frequencies() (*refdata.Frequencies, int, error) {
	rows, err := s.db.Query(`SELECT allele, frequency FROM cohort_frequencies WHERE frequency IS NOT NULL`)
	if err != nil {
		return nil, 0, fmt.Errorf("query frequencies: %w", err)
	}
	defer rows.Close()

	f := refdata.NewFrequencies()
	skipped := 0
	for rows.Next() {
		var name string
		var freq float64
		if err := rows.Scan(&name, &freq); err != nil {
			return nil, 0, fmt.Errorf("scan frequency: %w", err)
		}
		a, err := hla.ParseAllele(name)
		if err != nil || freq < 0 {
			skipped++
			continue
		}
		f.Set(a, freq)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate frequencies: %w", err)
	}
	return f, skipped, nil
}
