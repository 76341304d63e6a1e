package evidence

import (
	"fmt"
	"io"

	"github.com/inodb/vibe-hla/internal/hla"
	"github.com/inodb/vibe-hla/internal/tsv"
)

// Match result columns.
const (
	ColFragmentID = "fragment_id"
	ColAllele     = "allele"
	ColAminoAcid  = "aa_match"
	ColNucleotide = "nuc_match"
)

// Record is one fragment-allele match result.
type Record struct {
	FragmentID string
	Allele     hla.Allele
	AminoAcid  MatchType
	Nucleotide MatchType
}

// Reader reads match records. Allele names are interned through the
// registry so they carry the canonical wildcard flag.
type Reader struct {
	table    *tsv.Reader
	registry *hla.Registry
}

// NewReader opens a plain or gzipped match results file.
func NewReader(path string, registry *hla.Registry) (*Reader, error) {
	table, err := tsv.Open(path, ColFragmentID, ColAllele, ColAminoAcid)
	if err != nil {
		return nil, fmt.Errorf("open evidence: %w", err)
	}
	return &Reader{table: table, registry: registry}, nil
}

// NewReaderFromReader creates a reader from an uncompressed stream.
func NewReaderFromReader(r io.Reader, registry *hla.Registry) (*Reader, error) {
	table, err := tsv.NewReader(r, "evidence", ColFragmentID, ColAllele, ColAminoAcid)
	if err != nil {
		return nil, err
	}
	return &Reader{table: table, registry: registry}, nil
}

// Next returns the next record, or nil, nil at end of input. A missing
// nuc_match column reads as MatchNone.
func (r *Reader) Next() (*Record, error) {
	row, err := r.table.Next()
	if err != nil || row == nil {
		return nil, err
	}

	rec := &Record{}
	if rec.FragmentID, err = row.Require(ColFragmentID); err != nil {
		return nil, err
	}
	name, err := row.Require(ColAllele)
	if err != nil {
		return nil, err
	}
	if rec.Allele, err = r.registry.Intern(name); err != nil {
		return nil, row.Errorf("%v", err)
	}
	if rec.AminoAcid, err = ParseMatchType(row.Get(ColAminoAcid)); err != nil {
		return nil, row.Errorf("%v", err)
	}
	if rec.Nucleotide, err = ParseMatchType(row.Get(ColNucleotide)); err != nil {
		return nil, row.Errorf("%v", err)
	}
	return rec, nil
}

// Close closes the underlying file.
func (r *Reader) Close() error {
	return r.table.Close()
}

// ReadRecords reads every match record from path.
func ReadRecords(path string, registry *hla.Registry) ([]Record, error) {
	r, err := NewReader(path, registry)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	var records []Record
	for {
		rec, err := r.Next()
		if err != nil {
			return nil, fmt.Errorf("read evidence: %w", err)
		}
		if rec == nil {
			return records, nil
		}
		records = append(records, *rec)
	}
}

// StopLossAssociation links a fragment to an allele carrying a known
// stop-loss indel.
type StopLossAssociation struct {
	FragmentID string
	Allele     hla.Allele
}

// ReadStopLoss reads fragment_id/allele stop-loss associations.
func ReadStopLoss(path string, registry *hla.Registry) ([]StopLossAssociation, error) {
	table, err := tsv.Open(path, ColFragmentID, ColAllele)
	if err != nil {
		return nil, fmt.Errorf("open stop-loss associations: %w", err)
	}
	defer table.Close()

	var out []StopLossAssociation
	for {
		row, err := table.Next()
		if err != nil {
			return nil, fmt.Errorf("read stop-loss associations: %w", err)
		}
		if row == nil {
			return out, nil
		}
		id, err := row.Require(ColFragmentID)
		if err != nil {
			return nil, err
		}
		name, err := row.Require(ColAllele)
		if err != nil {
			return nil, err
		}
		a, err := registry.Intern(name)
		if err != nil {
			return nil, row.Errorf("%v", err)
		}
		out = append(out, StopLossAssociation{FragmentID: id, Allele: a})
	}
}
