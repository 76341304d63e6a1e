package refdata

import (
	"fmt"

	"github.com/inodb/vibe-hla/internal/hla"
	"github.com/inodb/vibe-hla/internal/tsv"
)

// DefaultStopLossAlleles are class I alleles known to carry a stop-loss indel.
var DefaultStopLossAlleles = []string{"C*04:09N"}

// LoadStopLossAlleles reads a single-column allele table.
func LoadStopLossAlleles(path string, registry *hla.Registry) ([]hla.Allele, error) {
	table, err := tsv.Open(path, ColAllele)
	if err != nil {
		return nil, fmt.Errorf("open stop-loss alleles: %w", err)
	}
	defer table.Close()

	var alleles []hla.Allele
	for {
		row, err := table.Next()
		if err != nil {
			return nil, fmt.Errorf("read stop-loss alleles: %w", err)
		}
		if row == nil {
			return alleles, nil
		}
		a, err := registry.Intern(row.Get(ColAllele))
		if err != nil {
			return nil, row.Errorf("%v", err)
		}
		alleles = append(alleles, a)
	}
}
