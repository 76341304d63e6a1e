package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/inodb/vibe-hla/internal/duckdb"
	"github.com/inodb/vibe-hla/internal/evidence"
	"github.com/inodb/vibe-hla/internal/hla"
	"github.com/inodb/vibe-hla/internal/output"
	"github.com/inodb/vibe-hla/internal/refdata"
	"github.com/inodb/vibe-hla/internal/typing"
)

type resolveOptions struct {
	output        string
	fragmentsFile string
	solutionFile  string
	stopLossFile  string
	sample        string
}

func newResolveCmd() *cobra.Command {
	var opts resolveOptions

	cmd := &cobra.Command{
		Use:   "resolve [flags] <evidence.tsv>",
		Short: "Resolve the genotype supported by fragment match evidence",
		Long: `Resolve the most likely HLA genotype from a fragment match table.

The evidence table has the columns fragment_id, allele, aa_match and
optionally nuc_match, with match values FULL, WILD, MISMATCH or NONE.
Plain and gzipped files are accepted; use '-' for stdin.`,
		Example: `  vibe-hla resolve sample.matches.tsv.gz
  vibe-hla resolve --frequencies cohort.tsv --sequences aa.tsv -o candidates.tsv sample.tsv
  vibe-hla resolve --threads 8 --db ~/.vibe-hla/runs.duckdb --sample S1 sample.tsv`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResolve(cmd, args[0], opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.output, "output", "o", "", "Candidate report file (default: stdout)")
	flags.StringVar(&opts.fragmentsFile, "fragments", "", "Write the fragment assignment report to this file")
	flags.StringVar(&opts.solutionFile, "solution", "", "Write the winning complex allele coverage to this file")
	flags.StringVar(&opts.stopLossFile, "stop-loss", "", "Fragment to stop-loss allele associations")
	flags.StringVar(&opts.sample, "sample", "", "Sample name stored with the run")

	flags.String("frequencies", "", "Cohort allele frequency table")
	flags.String("sequences", "", "Reference amino-acid sequence table")
	flags.String("exon-boundaries", "", "Exon boundary table (default: built-in class I boundaries)")
	flags.String("stop-loss-alleles", "", "Known stop-loss allele list (default: built-in)")
	flags.StringSlice("genes", nil, "Genes to resolve, in order (default: A,B,C)")
	flags.Int("threads", 0, "Coverage worker threads")
	flags.Int64("max-permutations", 0, "Complex cross-product ceiling")
	flags.Float64("top-score-threshold", 0, "Score window for reported candidates, as a fraction of top coverage")

	viper.BindPFlag("reference.frequencies", flags.Lookup("frequencies"))
	viper.BindPFlag("reference.sequences", flags.Lookup("sequences"))
	viper.BindPFlag("reference.exon_boundaries", flags.Lookup("exon-boundaries"))
	viper.BindPFlag("reference.stop_loss", flags.Lookup("stop-loss-alleles"))
	viper.BindPFlag("coverage.genes", flags.Lookup("genes"))
	viper.BindPFlag("coverage.threads", flags.Lookup("threads"))
	viper.BindPFlag("coverage.max_permutations", flags.Lookup("max-permutations"))
	viper.BindPFlag("coverage.top_score_threshold", flags.Lookup("top-score-threshold"))

	return cmd
}

func runResolve(cmd *cobra.Command, input string, opts resolveOptions) error {
	logger, err := newLogger(viper.GetBool("verbose"))
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer logger.Sync()

	cfg, paths, err := loadSettings(viper.GetViper())
	if err != nil {
		return err
	}

	var store *duckdb.Store
	if dbPath := viper.GetString("db"); dbPath != "" {
		store, err = duckdb.Open(dbPath)
		if err != nil {
			return err
		}
		defer store.Close()
	}

	// With a database the frequency table is bulk-loaded there instead.
	freqPath := paths.Frequencies
	if store != nil {
		paths.Frequencies = ""
	}
	ref, err := refdata.Load(paths, logger)
	if err != nil {
		return err
	}
	if store != nil && freqPath != "" {
		loaded, err := store.LoadFrequencies(freqPath)
		if err != nil {
			return err
		}
		freqs, skipped, err := store.Frequencies()
		if err != nil {
			return err
		}
		ref.Frequencies = freqs
		logger.Info("cohort frequencies from database",
			zap.Bool("reloaded", loaded),
			zap.Int("alleles", freqs.Len()),
			zap.Int("skipped", skipped))
	}

	records, err := evidence.ReadRecords(input, ref.Registry)
	if err != nil {
		return err
	}
	var stopLoss []evidence.StopLossAssociation
	if opts.stopLossFile != "" {
		if stopLoss, err = evidence.ReadStopLoss(opts.stopLossFile, ref.Registry); err != nil {
			return err
		}
	}

	resolver := typing.NewResolver(cfg, ref)
	resolver.SetLogger(logger)
	result, err := resolver.Run(cmd.Context(), typing.Input{Records: records, StopLoss: stopLoss})
	if err != nil {
		return err
	}

	if err := writeFile(opts.output, cmd.OutOrStdout(), func(w io.Writer) error {
		return output.NewCandidateWriter(w, hla.NewGeneSelector(cfg.Genes...).Genes()).WriteAll(result.Ranked)
	}); err != nil {
		return fmt.Errorf("write candidates: %w", err)
	}

	if result.Winner != nil && opts.solutionFile != "" {
		if err := writeFile(opts.solutionFile, nil, func(w io.Writer) error {
			return output.NewSolutionWriter(w).Write(result.Winner)
		}); err != nil {
			return fmt.Errorf("write solution: %w", err)
		}
	}

	if result.Winner != nil && opts.fragmentsFile != "" {
		if err := writeFile(opts.fragmentsFile, nil, func(w io.Writer) error {
			return writeFragments(w, result)
		}); err != nil {
			return fmt.Errorf("write fragments: %w", err)
		}
	}

	if store != nil {
		run := duckdb.Run{
			ID:           uuid.NewString(),
			CreatedAt:    time.Now(),
			Sample:       opts.sample,
			Fragments:    int64(len(result.Fragments)),
			Unmatched:    int64(len(result.Unmatched)),
			Candidates:   int64(len(result.Candidates.Alleles)),
			Permutations: result.Build.Permutations,
			Fallback:     result.Build.Fallback,
		}
		if result.Winner != nil {
			run.Winner = hla.FormatAlleles(result.Winner.Alleles, ",")
		}
		if err := store.WriteRun(run, result.Ranked); err != nil {
			return fmt.Errorf("store run: %w", err)
		}
		logger.Info("stored run", zap.String("runID", run.ID), zap.String("db", store.Path()))
		fmt.Fprintf(cmd.ErrOrStderr(), "Run ID: %s\n", run.ID)
	}
	return nil
}

func writeFragments(w io.Writer, result *typing.Result) error {
	fw := output.NewFragmentWriter(w, result.Winner.Alleles)
	if err := fw.WriteHeader(); err != nil {
		return err
	}
	for _, fa := range result.Fragments {
		if fa.Fragment.Scope == hla.ScopeUnmatched {
			continue
		}
		if err := fw.Write(fa); err != nil {
			return err
		}
	}
	for _, f := range result.Unmatched {
		if err := fw.WriteUnmatched(f); err != nil {
			return err
		}
	}
	return fw.Flush()
}

// writeFile runs write against path, or against fallback when path is empty.
func writeFile(path string, fallback io.Writer, write func(io.Writer) error) error {
	if path == "" {
		return write(fallback)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
