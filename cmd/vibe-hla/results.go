package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/inodb/vibe-hla/internal/duckdb"
)

func newResultsCmd() *cobra.Command {
	var remove bool

	cmd := &cobra.Command{
		Use:   "results [run-id]",
		Short: "Show stored resolution runs",
		Long:  "List runs stored in the --db database, or show the ranked complexes of one run.",
		Example: `  vibe-hla results --db runs.duckdb
  vibe-hla results --db runs.duckdb 3f2b8c1e-5a7d-4c1f-9a8e-0b6d2c4e1f7a
  vibe-hla results --db runs.duckdb --delete 3f2b8c1e-5a7d-4c1f-9a8e-0b6d2c4e1f7a`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dbPath := viper.GetString("db")
			if dbPath == "" {
				return errors.New("--db is required")
			}
			store, err := duckdb.Open(dbPath)
			if err != nil {
				return err
			}
			defer store.Close()

			if len(args) == 0 {
				if remove {
					return errors.New("--delete requires a run id")
				}
				return listRuns(cmd.OutOrStdout(), store)
			}
			if remove {
				if err := store.DeleteRun(args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted run %s\n", args[0])
				return nil
			}
			return showRun(cmd.OutOrStdout(), store, args[0])
		},
	}

	cmd.Flags().BoolVar(&remove, "delete", false, "Delete the given run")
	return cmd
}

func listRuns(out io.Writer, store *duckdb.Store) error {
	runs, err := store.ListRuns()
	if err != nil {
		return err
	}

	w := bufio.NewWriter(out)
	w.WriteString("#RunId\tCreated\tSample\tFragments\tUnmatched\tWinner\n")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%s\n",
			r.ID, r.CreatedAt.Format(time.RFC3339), dash(r.Sample), r.Fragments, r.Unmatched, dash(r.Winner))
	}
	return w.Flush()
}

func showRun(out io.Writer, store *duckdb.Store, id string) error {
	run, results, err := store.LookupRun(id)
	if err != nil {
		return err
	}

	w := bufio.NewWriter(out)
	fmt.Fprintf(w, "# Run: %s\n", run.ID)
	fmt.Fprintf(w, "# Created: %s\n", run.CreatedAt.Format(time.RFC3339))
	fmt.Fprintf(w, "# Sample: %s\n", dash(run.Sample))
	fmt.Fprintf(w, "# Fragments: %d (unmatched %d)\n", run.Fragments, run.Unmatched)
	fmt.Fprintf(w, "# Candidates: %d, permutations %d, fallback %t\n", run.Candidates, run.Permutations, run.Fallback)

	columns := []string{
		"#Rank", "Alleles", "TotalCoverage", "UniqueCoverage", "SharedCoverage", "WildCoverage",
		"CohortFrequency", "RecoveredCount", "WildcardCount", "Complexity", "ComplexityPenalty", "Score",
	}
	w.WriteString(strings.Join(columns, "\t") + "\n")
	for _, r := range results {
		fmt.Fprintf(w, "%d\t%s\t%d\t%d\t%d\t%d\t%.4f\t%d\t%d\t%d\t%.4f\t%.4f\n",
			r.Rank, r.Alleles, r.TotalCoverage, r.UniqueCoverage, r.SharedCoverage, r.WildCoverage,
			r.CohortFrequency, r.RecoveredCount, r.WildcardCount, r.Complexity, r.ComplexityPenalty, r.Score)
	}
	return w.Flush()
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
