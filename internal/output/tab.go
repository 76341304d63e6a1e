// Package output provides tab-delimited report writers for resolved genotypes.
package output

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/inodb/vibe-hla/internal/coverage"
	"github.com/inodb/vibe-hla/internal/hla"
)

// CandidateWriter writes one row per ranked complex.
type CandidateWriter struct {
	w       *bufio.Writer
	genes   []string
	columns []string
}

// NewCandidateWriter creates a candidate report writer. Two allele columns
// are written per gene, in gene order.
func NewCandidateWriter(w io.Writer, genes []string) *CandidateWriter {
	columns := []string{
		"#Rank",
		"Alleles",
		"TotalCoverage",
		"UniqueCoverage",
		"SharedCoverage",
		"WildCoverage",
		"CohortFrequency",
		"RecoveredCount",
		"WildcardCount",
		"Complexity",
		"ComplexityPenalty",
		"Score",
	}
	for _, gene := range genes {
		columns = append(columns, gene+"1", gene+"2")
	}
	return &CandidateWriter{w: bufio.NewWriter(w), genes: genes, columns: columns}
}

// WriteHeader writes the header line.
func (cw *CandidateWriter) WriteHeader() error {
	_, err := cw.w.WriteString(strings.Join(cw.columns, "\t") + "\n")
	return err
}

// Write writes a ranked complex. rank is 1-based.
func (cw *CandidateWriter) Write(rank int, cc *coverage.ComplexCoverage) error {
	values := []string{
		strconv.Itoa(rank),
		hla.FormatAlleles(cc.Alleles, ","),
		strconv.Itoa(cc.TotalCoverage),
		strconv.Itoa(cc.UniqueCoverage),
		strconv.Itoa(cc.SharedCoverage),
		strconv.Itoa(cc.WildCoverage),
		formatFloat(cc.CohortFrequencyTotal),
		strconv.Itoa(cc.RecoveredCount),
		strconv.Itoa(cc.WildcardCount),
		strconv.Itoa(cc.Complexity),
		formatFloat(cc.ComplexityPenalty),
		formatFloat(cc.Score),
	}
	for _, gene := range cw.genes {
		first, second := geneAlleles(cc.Alleles, gene)
		values = append(values, first, second)
	}

	_, err := cw.w.WriteString(strings.Join(values, "\t") + "\n")
	return err
}

// WriteAll writes the header and every ranked complex.
func (cw *CandidateWriter) WriteAll(ranked []*coverage.ComplexCoverage) error {
	if err := cw.WriteHeader(); err != nil {
		return err
	}
	for i, cc := range ranked {
		if err := cw.Write(i+1, cc); err != nil {
			return err
		}
	}
	return cw.Flush()
}

// Flush flushes any buffered data to the underlying writer.
func (cw *CandidateWriter) Flush() error {
	return cw.w.Flush()
}

// geneAlleles returns the two allele copies of a gene. A homozygous gene
// repeats its allele; a missing gene gives "-".
func geneAlleles(alleles []hla.Allele, gene string) (string, string) {
	geneAlleles := hla.AllelesForGene(alleles, gene)
	switch len(geneAlleles) {
	case 0:
		return "-", "-"
	case 1:
		return geneAlleles[0].String(), geneAlleles[0].String()
	default:
		return geneAlleles[0].String(), geneAlleles[1].String()
	}
}

func formatFloat(v float64) string {
	return fmt.Sprintf("%.4f", v)
}
