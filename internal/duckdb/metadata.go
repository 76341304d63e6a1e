package duckdb

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"time"
)

// FileFingerprint holds stat-based identity for a file.
type FileFingerprint struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// StatFile creates a FileFingerprint from an on-disk file.
func StatFile(path string) (FileFingerprint, error) {
	info, err := os.Stat(path)
	if err != nil {
		return FileFingerprint{}, err
	}
	return FileFingerprint{
		Path:    path,
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}, nil
}

// sourceValid reports whether the named source was last loaded from a file
// with the same fingerprint.
func (s *Store) sourceValid(name string, fp FileFingerprint) (bool, error) {
	var stored FileFingerprint
	err := s.db.QueryRow(`SELECT path, size, mod_time FROM sources WHERE name=?`, name).
		Scan(&stored.Path, &stored.Size, &stored.ModTime)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query source %s: %w", name, err)
	}
	return stored.Path == fp.Path && stored.Size == fp.Size && stored.ModTime.Equal(fp.ModTime.UTC().Truncate(time.Microsecond)), nil
}

// recordSource stores the fingerprint a source was loaded from.
func (s *Store) recordSource(name string, fp FileFingerprint) error {
	if _, err := s.db.Exec(`DELETE FROM sources WHERE name=?`, name); err != nil {
		return fmt.Errorf("clear source %s: %w", name, err)
	}
	_, err := s.db.Exec(`INSERT INTO sources VALUES (?, ?, ?, ?)`,
		name, fp.Path, fp.Size, fp.ModTime.UTC().Truncate(time.Microsecond))
	if err != nil {
		return fmt.Errorf("record source %s: %w", name, err)
	}
	return nil
}
