package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/vibe-hla/internal/coverage"
	"github.com/inodb/vibe-hla/internal/hla"
)

func sampleCoverage() *coverage.ComplexCoverage {
	alleles := hla.MustParseAlleles("A*01:01", "A*02:01", "B*07:02")
	cc := coverage.NewComplexCoverage(alleles, []coverage.AlleleCoverage{
		{Allele: alleles[0], UniqueCoverage: 30, SharedCoverage: 2.5},
		{Allele: alleles[1], UniqueCoverage: 20, SharedCoverage: 2.5},
		{Allele: alleles[2], UniqueCoverage: 40, WildCoverage: 1},
	})
	cc.CohortFrequencyTotal = -4.5
	cc.Complexity = 7
	cc.ComplexityPenalty = 1.68
	cc.Score = 95.3
	return cc
}

func TestCandidateWriter_WriteHeader(t *testing.T) {
	var buf bytes.Buffer
	w := NewCandidateWriter(&buf, []string{"A", "B", "C"})

	require.NoError(t, w.WriteHeader())
	require.NoError(t, w.Flush())

	header := strings.TrimSuffix(buf.String(), "\n")
	cols := strings.Split(header, "\t")
	assert.Equal(t, "#Rank", cols[0])
	assert.Equal(t, []string{"A1", "A2", "B1", "B2", "C1", "C2"}, cols[len(cols)-6:])
	for _, col := range []string{"TotalCoverage", "CohortFrequency", "Complexity", "Score"} {
		assert.Contains(t, cols, col)
	}
}

func TestCandidateWriter_Write(t *testing.T) {
	var buf bytes.Buffer
	w := NewCandidateWriter(&buf, []string{"A", "B", "C"})
	require.NoError(t, w.WriteAll([]*coverage.ComplexCoverage{sampleCoverage()}))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	fields := strings.Split(lines[1], "\t")
	assert.Equal(t, []string{
		"1",
		"A*01:01,A*02:01,B*07:02",
		"96", "90", "5", "1",
		"-4.5000", "0", "0", "7", "1.6800", "95.3000",
		"A*01:01", "A*02:01", "B*07:02", "B*07:02", "-", "-",
	}, fields)
}

func TestSolutionWriter(t *testing.T) {
	cc := sampleCoverage()
	cc.Expand([]string{"A", "B"})

	var buf bytes.Buffer
	require.NoError(t, NewSolutionWriter(&buf).Write(cc))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, "A*01:01\t32.50\t30\t2.50\t0.00", lines[1])
	assert.Equal(t, "B*07:02\t20.50\t20\t0.00\t0.50", lines[3])
	assert.Equal(t, "B*07:02\t20.50\t20\t0.00\t0.50", lines[4])
}

func TestFragmentWriter(t *testing.T) {
	solution := hla.MustParseAlleles("A*01:01", "B*07:02")
	fa := &hla.FragmentAlleles{
		Fragment: &hla.Fragment{ID: "r1", Scope: hla.ScopeSolution},
		Full:     hla.MustParseAlleles("A*01:01", "A*01:03"),
		Wild:     hla.MustParseAlleles("B*07:02"),
	}
	wildOnly := &hla.FragmentAlleles{
		Fragment: &hla.Fragment{ID: "r2", Scope: hla.ScopeWildOnly},
		Wild:     hla.MustParseAlleles("A*01:01", "B*07:02"),
	}

	var buf bytes.Buffer
	w := NewFragmentWriter(&buf, solution)
	require.NoError(t, w.WriteHeader())
	require.NoError(t, w.Write(fa))
	require.NoError(t, w.Write(wildOnly))
	require.NoError(t, w.WriteUnmatched(&hla.Fragment{ID: "r3", Scope: hla.ScopeUnmatched}))
	require.NoError(t, w.Flush())

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "r1\tSOLUTION\tA*01:01\tB*07:02", lines[1])
	assert.Equal(t, "r2\tWILD_ONLY\t-\tA*01:01;B*07:02", lines[2])
	assert.Equal(t, "r3\tUNMATCHED\t-\t-", lines[3])
}
