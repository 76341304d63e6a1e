package refdata

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/inodb/vibe-hla/internal/coverage"
	"github.com/inodb/vibe-hla/internal/hla"
)

// Paths locates the reference tables. Empty paths fall back to built-in
// defaults where one exists.
type Paths struct {
	Frequencies    string `mapstructure:"frequencies"`
	Sequences      string `mapstructure:"sequences"`
	ExonBoundaries string `mapstructure:"exon_boundaries"`
	StopLoss       string `mapstructure:"stop_loss"`
}

// Reference is the loaded reference data of one run.
type Reference struct {
	Registry    *hla.Registry
	Frequencies *Frequencies
	Sequences   *Sequences
	StopLoss    []hla.Allele
}

// Load reads every configured table. Sequences are loaded first so alleles
// named by the other tables resolve to their canonical wildcard form.
func Load(paths Paths, logger *zap.Logger) (*Reference, error) {
	ref := &Reference{
		Registry:    hla.NewRegistry(),
		Frequencies: NewFrequencies(),
		Sequences:   NewSequences(),
	}

	if paths.Sequences != "" {
		if err := ref.Sequences.LoadSequences(paths.Sequences, ref.Registry); err != nil {
			return nil, err
		}
	}
	if paths.ExonBoundaries != "" {
		if err := ref.Sequences.LoadExonBoundaries(paths.ExonBoundaries); err != nil {
			return nil, err
		}
	}
	if paths.Frequencies != "" {
		f, err := LoadFrequencies(paths.Frequencies)
		if err != nil {
			return nil, err
		}
		ref.Frequencies = f
	}

	if paths.StopLoss != "" {
		alleles, err := LoadStopLossAlleles(paths.StopLoss, ref.Registry)
		if err != nil {
			return nil, err
		}
		ref.StopLoss = alleles
	} else {
		for _, name := range DefaultStopLossAlleles {
			a, err := ref.Registry.Intern(name)
			if err != nil {
				return nil, fmt.Errorf("parse default stop-loss allele: %w", err)
			}
			ref.StopLoss = append(ref.StopLoss, a)
		}
	}

	logger.Info("loaded reference data",
		zap.Int("sequences", ref.Sequences.Len()),
		zap.Int("frequencies", ref.Frequencies.Len()),
		zap.Int("stopLoss", len(ref.StopLoss)))
	return ref, nil
}

// SequenceSource returns the sequence store for complexity scoring, or nil
// when no sequences were loaded.
func (r *Reference) SequenceSource() coverage.SequenceSource {
	if r.Sequences == nil || r.Sequences.Len() == 0 {
		return nil
	}
	return r.Sequences
}

// CoverageReference returns the reference view used by the complex builder.
func (r *Reference) CoverageReference(commonFrequency float64) coverage.Reference {
	return coverage.Reference{
		CommonAlleles:   r.Frequencies.Common(commonFrequency, r.Registry),
		StopLossAlleles: r.StopLoss,
		Frequencies:     r.Frequencies,
	}
}
