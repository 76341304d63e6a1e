// Package main provides the vibe-hla command-line tool.
package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/inodb/vibe-hla/internal/coverage"
	"github.com/inodb/vibe-hla/internal/hla"
	"github.com/inodb/vibe-hla/internal/refdata"
)

// Exit codes
const (
	ExitSuccess = 0
	ExitError   = 1
)

// Version information (set at build time)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(ExitError)
	}
	os.Exit(ExitSuccess)
}

func newRootCmd() *cobra.Command {
	var cfgFile string

	cmd := &cobra.Command{
		Use:           "vibe-hla",
		Short:         "HLA class I genotype resolver",
		Long:          "Resolve the most likely HLA genotype from per-fragment allele match evidence.",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig(cfgFile)
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default: ~/.vibe-hla.yaml)")
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Verbose (debug) logging")
	cmd.PersistentFlags().String("db", "", "DuckDB database for run results")
	viper.BindPFlag("verbose", cmd.PersistentFlags().Lookup("verbose"))
	viper.BindPFlag("db", cmd.PersistentFlags().Lookup("db"))

	cmd.AddCommand(newResolveCmd())
	cmd.AddCommand(newResultsCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "vibe-hla version %s (%s) built %s\n", version, commit, date)
		},
	}
}

// initConfig reads ~/.vibe-hla.yaml (or the --config file) and VIBE_HLA_*
// environment variables on top of the built-in defaults.
func initConfig(cfgFile string) error {
	setDefaults(viper.GetViper())

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if home, err := os.UserHomeDir(); err == nil {
		viper.SetConfigFile(filepath.Join(home, ".vibe-hla.yaml"))
	}

	viper.SetEnvPrefix("VIBE_HLA")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || (cfgFile == "" && errors.Is(err, os.ErrNotExist)) {
			return nil
		}
		return fmt.Errorf("reading config: %w", err)
	}
	return nil
}

// setDefaults registers every coverage setting so config, env and flags
// resolve against the same keys.
func setDefaults(v *viper.Viper) {
	d := coverage.DefaultConfig()
	v.SetDefault("coverage.genes", d.Genes)
	v.SetDefault("coverage.group_unique_fraction", d.GroupUniqueFraction)
	v.SetDefault("coverage.group_unique_fraction_low", d.GroupUniqueFractionLow)
	v.SetDefault("coverage.protein_unique_fraction", d.ProteinUniqueFraction)
	v.SetDefault("coverage.protein_unique_fraction_low", d.ProteinUniqueFractionLow)
	v.SetDefault("coverage.apply_unique_protein_filter", d.ApplyUniqueProteinFilter)
	v.SetDefault("coverage.max_permutations", d.MaxPermutations)
	v.SetDefault("coverage.fallback_top_alleles", d.FallbackTopAlleles)
	v.SetDefault("coverage.threads", d.Threads)
	v.SetDefault("coverage.parallel_min_complexes", d.ParallelMinComplexes)
	v.SetDefault("coverage.cull_batch_size", d.CullBatchSize)
	v.SetDefault("coverage.cull_min_diff", d.CullMinDiff)
	v.SetDefault("coverage.cull_score_factor", d.CullScoreFactor)
	v.SetDefault("coverage.max_cull_fraction", d.MaxCullFraction)
	v.SetDefault("coverage.top_score_threshold", d.TopScoreThreshold)
	v.SetDefault("coverage.frequency_weight", d.FrequencyWeight)
	v.SetDefault("coverage.frequency_floor", d.FrequencyFloor)
	v.SetDefault("coverage.complexity_weight", d.ComplexityWeight)
	v.SetDefault("coverage.recovery_weight", d.RecoveryWeight)
	v.SetDefault("coverage.wildcard_weight", d.WildcardWeight)
	v.SetDefault("coverage.score_epsilon", d.ScoreEpsilon)
	v.SetDefault("coverage.common_frequency", d.CommonFrequency)

	v.SetDefault("reference.frequencies", "")
	v.SetDefault("reference.sequences", "")
	v.SetDefault("reference.exon_boundaries", "")
	v.SetDefault("reference.stop_loss", "")
}

type settings struct {
	Coverage  coverage.Config `mapstructure:"coverage"`
	Reference refdata.Paths   `mapstructure:"reference"`
}

// loadSettings decodes the coverage and reference sections. Unmarshal
// resolves bound flags and env per leaf key.
func loadSettings(v *viper.Viper) (coverage.Config, refdata.Paths, error) {
	s := settings{Coverage: coverage.DefaultConfig()}
	// mapstructure reuses a non-nil slice in place; genes come from the defaults.
	s.Coverage.Genes = nil
	if err := v.Unmarshal(&s); err != nil {
		return s.Coverage, s.Reference, fmt.Errorf("decode settings: %w", err)
	}
	if len(s.Coverage.Genes) == 0 {
		s.Coverage.Genes = slices.Clone(hla.DefaultGenes)
	}
	return s.Coverage, s.Reference, nil
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	return cfg.Build()
}
