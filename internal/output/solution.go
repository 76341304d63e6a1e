package output

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/inodb/vibe-hla/internal/coverage"
)

// SolutionWriter writes the per-allele coverage of the winning complex, one
// row per gene copy.
type SolutionWriter struct {
	w *bufio.Writer
}

// NewSolutionWriter creates a solution report writer.
func NewSolutionWriter(w io.Writer) *SolutionWriter {
	return &SolutionWriter{w: bufio.NewWriter(w)}
}

// Write writes the header and one row per allele coverage entry.
func (sw *SolutionWriter) Write(winner *coverage.ComplexCoverage) error {
	header := []string{"#Allele", "TotalCoverage", "UniqueCoverage", "SharedCoverage", "WildCoverage"}
	if _, err := sw.w.WriteString(strings.Join(header, "\t") + "\n"); err != nil {
		return err
	}
	for _, ac := range winner.AlleleCoverage {
		values := []string{
			ac.Allele.String(),
			fmt.Sprintf("%.2f", ac.TotalCoverage()),
			strconv.Itoa(ac.UniqueCoverage),
			fmt.Sprintf("%.2f", ac.SharedCoverage),
			fmt.Sprintf("%.2f", ac.WildCoverage),
		}
		if _, err := sw.w.WriteString(strings.Join(values, "\t") + "\n"); err != nil {
			return err
		}
	}
	return sw.w.Flush()
}
