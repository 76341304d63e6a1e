package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execute runs the command tree with a clean viper and an empty home.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	viper.Reset()
	t.Setenv("HOME", t.TempDir())

	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeEvidence(t *testing.T, dir string) string {
	t.Helper()
	var b strings.Builder
	b.WriteString("fragment_id\tallele\taa_match\tnuc_match\n")
	for _, allele := range []string{"A*01:01", "A*02:01", "B*07:02", "C*07:01"} {
		for i := range 10 {
			fmt.Fprintf(&b, "%s_%d\t%s\tFULL\tFULL\n", allele, i, allele)
		}
	}
	b.WriteString("junk\tA*11:01\tMISMATCH\tNONE\n")

	path := filepath.Join(dir, "evidence.tsv")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
	return path
}

func TestVersionCmd(t *testing.T) {
	out, _, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "vibe-hla version dev")
}

func TestResolveCmd(t *testing.T) {
	dir := t.TempDir()
	evidencePath := writeEvidence(t, dir)
	fragments := filepath.Join(dir, "fragments.tsv")
	solution := filepath.Join(dir, "solution.tsv")

	out, _, err := execute(t, "resolve", "--fragments", fragments, "--solution", solution, evidencePath)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "#Rank\t"))
	assert.True(t, strings.HasPrefix(lines[1], "1\tA*01:01,A*02:01,B*07:02,C*07:01\t40\t"))

	data, err := os.ReadFile(fragments)
	require.NoError(t, err)
	fragLines := strings.Split(strings.TrimSpace(string(data)), "\n")
	assert.Len(t, fragLines, 42)
	assert.Contains(t, string(data), "junk\tUNMATCHED\t-\t-")

	data, err = os.ReadFile(solution)
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(string(data)), "\n"), 7)
}

func TestResolveCmd_StoresRun(t *testing.T) {
	dir := t.TempDir()
	evidencePath := writeEvidence(t, dir)
	db := filepath.Join(dir, "runs.duckdb")
	freq := filepath.Join(dir, "freq.tsv")
	require.NoError(t, os.WriteFile(freq, []byte("allele\tfrequency\nA*01:01\t0.2\nB*07:02\t0.1\n"), 0o644))

	_, stderr, err := execute(t, "resolve", "--db", db, "--sample", "S1",
		"--frequencies", freq, "-o", filepath.Join(dir, "candidates.tsv"), evidencePath)
	require.NoError(t, err)

	var runID string
	for _, line := range strings.Split(stderr, "\n") {
		if id, ok := strings.CutPrefix(line, "Run ID: "); ok {
			runID = strings.TrimSpace(id)
		}
	}
	require.NotEmpty(t, runID)

	out, _, err := execute(t, "results", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, runID)
	assert.Contains(t, out, "S1")

	out, _, err = execute(t, "results", "--db", db, runID)
	require.NoError(t, err)
	assert.Contains(t, out, "# Sample: S1")
	assert.Contains(t, out, "1\tA*01:01,A*02:01,B*07:02,C*07:01\t40")

	_, _, err = execute(t, "results", "--db", db, "no-such-run")
	assert.ErrorContains(t, err, "run not found")

	out, _, err = execute(t, "results", "--db", db, "--delete", runID)
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted run "+runID)

	_, _, err = execute(t, "results", "--db", db, runID)
	assert.ErrorContains(t, err, "run not found")
}

func TestResultsCmd_RequiresDB(t *testing.T) {
	_, _, err := execute(t, "results")
	assert.ErrorContains(t, err, "--db is required")
}

func TestResolveCmd_MissingInput(t *testing.T) {
	_, _, err := execute(t, "resolve", filepath.Join(t.TempDir(), "missing.tsv"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

// cohortFrequencyColumn returns the CohortFrequency cell of the top candidate.
func cohortFrequencyColumn(t *testing.T, out string) string {
	t.Helper()
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.GreaterOrEqual(t, len(lines), 2)
	header := strings.Split(lines[0], "\t")
	row := strings.Split(lines[1], "\t")
	for i, col := range header {
		if col == "CohortFrequency" {
			return row[i]
		}
	}
	t.Fatalf("no CohortFrequency column in %q", lines[0])
	return ""
}

func TestResolveCmd_ReferenceFlags(t *testing.T) {
	dir := t.TempDir()
	evidencePath := writeEvidence(t, dir)
	freq := filepath.Join(dir, "freq.tsv")
	require.NoError(t, os.WriteFile(freq, []byte("allele\tfrequency\nA*01:01\t0.2\nB*07:02\t0.1\n"), 0o644))

	// Every allele at the 0.0001 floor; B and C are homozygous and count twice.
	out, _, err := execute(t, "resolve", evidencePath)
	require.NoError(t, err)
	assert.Equal(t, "-24.0000", cohortFrequencyColumn(t, out))

	out, _, err = execute(t, "resolve", "--frequencies", freq, "--threads", "4", evidencePath)
	require.NoError(t, err)
	assert.Equal(t, "-14.6990", cohortFrequencyColumn(t, out))
	assert.Equal(t, 4, viper.GetInt("coverage.threads"))
}

func TestLoadSettings_FlagsAndEnv(t *testing.T) {
	viper.Reset()
	t.Setenv("VIBE_HLA_COVERAGE_MAX_PERMUTATIONS", "500")
	t.Setenv("VIBE_HLA_REFERENCE_SEQUENCES", "/env/aa.tsv")

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("VIBE_HLA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{Use: "resolve"}
	flags := cmd.Flags()
	flags.Int("threads", 0, "")
	flags.Float64("top-score-threshold", 0, "")
	flags.String("frequencies", "", "")
	flags.StringSlice("genes", nil, "")
	require.NoError(t, flags.Parse([]string{
		"--threads", "8", "--top-score-threshold", "0.01", "--frequencies", "/x/freq.tsv", "--genes", "A,C",
	}))
	require.NoError(t, v.BindPFlag("coverage.threads", flags.Lookup("threads")))
	require.NoError(t, v.BindPFlag("coverage.top_score_threshold", flags.Lookup("top-score-threshold")))
	require.NoError(t, v.BindPFlag("reference.frequencies", flags.Lookup("frequencies")))
	require.NoError(t, v.BindPFlag("coverage.genes", flags.Lookup("genes")))

	cfg, paths, err := loadSettings(v)
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Threads)
	assert.InDelta(t, 0.01, cfg.TopScoreThreshold, 1e-12)
	assert.Equal(t, []string{"A", "C"}, cfg.Genes)
	assert.Equal(t, int64(500), cfg.MaxPermutations)
	assert.Equal(t, "/x/freq.tsv", paths.Frequencies)
	assert.Equal(t, "/env/aa.tsv", paths.Sequences)
	// Untouched keys keep their defaults.
	assert.Equal(t, 100000, cfg.CullBatchSize)
}

func TestLoadSettings_Overrides(t *testing.T) {
	viper.Reset()
	v := viper.New()
	setDefaults(v)
	v.Set("coverage.threads", 6)
	v.Set("coverage.genes", []string{"A", "B"})
	v.Set("reference.sequences", "/ref/aa.tsv")

	cfg, paths, err := loadSettings(v)
	require.NoError(t, err)
	assert.Equal(t, 6, cfg.Threads)
	assert.Equal(t, []string{"A", "B"}, cfg.Genes)
	assert.InDelta(t, 0.005, cfg.TopScoreThreshold, 1e-12)
	assert.Equal(t, "/ref/aa.tsv", paths.Sequences)
}
