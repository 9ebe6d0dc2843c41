package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/Structured-Query-Engine/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Structured-Query-Engine/pkg/logger"
)

var VERSION = "0.0.0-dev.0"

var rootCmd = &cobra.Command{
	Use:               "qryeval",
	Version:           VERSION,
	SilenceUsage:      true,
	SilenceErrors:     true,
	DisableAutoGenTag: true,
	Short:             "Structured query evaluation over a field-aware inverted index",
	Long: `qryeval evaluates structured queries (#and, #or, #near/n, #window/n, #syn,
#sum, #wand, #wsum) with Boolean, BM25, Indri and learning-to-rank models,
writes TREC runs, and can serve queries over HTTP.`,
	PersistentPreRunE: loadConfig,
}

type rootFlags struct {
	configPath string
	algorithm  string
	indexDir   string
	logLevel   string
	logFormat  string
}

var (
	rootArgs rootFlags
	cfg      *config.Config
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&rootArgs.configPath, "config", "c", "",
		"Path to a YAML config file. Defaults apply when empty.")
	rootCmd.PersistentFlags().StringVar(&rootArgs.algorithm, "model", "",
		"Retrieval model: unrankedboolean, rankedboolean, bm25, indri or letor. Overrides retrieval.algorithm.")
	rootCmd.PersistentFlags().StringVar(&rootArgs.indexDir, "index", "",
		"Index data directory. Overrides index.dataDir.")
	rootCmd.PersistentFlags().StringVar(&rootArgs.logLevel, "log-level", "",
		"Log level: debug, info, warn or error.")
	rootCmd.PersistentFlags().StringVar(&rootArgs.logFormat, "log-format", "",
		"Log format: text or json.")
	rootCmd.SetOut(os.Stdout)
}

// loadConfig resolves the configuration once for every subcommand.
func loadConfig(cmd *cobra.Command, args []string) error {
	loaded, err := config.Load(rootArgs.configPath)
	if err != nil {
		return err
	}
	if rootArgs.algorithm != "" {
		loaded.Retrieval.Algorithm = strings.ToLower(rootArgs.algorithm)
	}
	if rootArgs.indexDir != "" {
		loaded.Index.DataDir = rootArgs.indexDir
	}
	if rootArgs.logLevel != "" {
		loaded.Logging.Level = rootArgs.logLevel
	}
	if rootArgs.logFormat != "" {
		loaded.Logging.Format = rootArgs.logFormat
	}
	if err := loaded.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	logger.Setup(loaded.Logging.Level, loaded.Logging.Format)
	cfg = loaded
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		rootCmd.PrintErrf("✗ %v\n", err)
		os.Exit(1)
	}
}
