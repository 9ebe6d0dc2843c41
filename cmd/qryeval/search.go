package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/Structured-Query-Engine/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/Structured-Query-Engine/internal/pipeline"
	"github.com/Adithya-Monish-Kumar-K/Structured-Query-Engine/internal/searcher/model"
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Evaluate a query file and write a TREC run",
	Example: `  # BM25 run over the configured query file
  qryeval search --model bm25 --queries queries.txt --output bm25.teIn

  # Indri with relevance feedback, as configured under feedback:
  qryeval search -c indri-fb.yaml --summary`,
	Args: cobra.NoArgs,
	RunE: searchCmdRun,
}

type searchFlags struct {
	queries string
	output  string
	runID   string
	summary bool
}

var searchArgs searchFlags

func init() {
	searchCmd.Flags().StringVar(&searchArgs.queries, "queries", "", "Query file, one 'qid:query' per line. Overrides queries.file.")
	searchCmd.Flags().StringVar(&searchArgs.output, "output", "", "TREC run file to write. Overrides output.trecEvalPath.")
	searchCmd.Flags().StringVar(&searchArgs.runID, "run-id", "", "Run id written in the last column. Overrides output.runId.")
	searchCmd.Flags().BoolVar(&searchArgs.summary, "summary", false, "Print a summary table of the run.")
	rootCmd.AddCommand(searchCmd)
}

func searchCmdRun(cmd *cobra.Command, args []string) error {
	applyOutputFlags(searchArgs.output, searchArgs.runID)
	queryFile := firstNonEmpty(searchArgs.queries, cfg.Queries.File)
	if queryFile == "" {
		return errors.New("no query file: set --queries or queries.file")
	}

	m, err := model.FromConfig(cfg.Retrieval)
	if err != nil {
		return err
	}
	if m.Kind() == model.KindLetor {
		return errors.New("the letor model runs through 'qryeval letor'")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	env, err := newEngineEnv()
	if err != nil {
		return err
	}
	defer env.Close()

	agg := analytics.NewAggregator()
	runner := pipeline.NewRunner(env.exec, env.engine, m, cfg, env.metrics).
		WithAnalytics(env.withAnalytics(ctx, agg))
	if store := env.runStore(ctx); store != nil {
		runner.WithResultStore(store)
	}

	if err := runner.RunFiles(ctx, queryFile); err != nil {
		return err
	}
	if searchArgs.summary {
		printSummary(cmd, m.Kind().String(), agg.Stats())
	}
	return nil
}

func printSummary(cmd *cobra.Command, modelName string, s analytics.AggregatedStats) {
	rows := [][]string{{
		modelName,
		strconv.FormatInt(s.TotalQueries, 10),
		strconv.FormatInt(s.FailedQueries, 10),
		strconv.FormatInt(s.ZeroResultCount, 10),
		strconv.FormatInt(s.ExpandedQueries, 10),
		fmt.Sprintf("%.1f", s.AvgLatencyMs),
		strconv.FormatInt(s.P95LatencyMs, 10),
	}}
	header := []string{"Model", "Queries", "Failed", "Zero results", "Expanded", "Avg ms", "P95 ms"}
	printTable(cmd.OutOrStdout(), header, rows)
	fmt.Fprintf(cmd.OutOrStdout(), "run written to %s\n", cfg.Output.TrecEvalPath)
}

func applyOutputFlags(output, runID string) {
	if output != "" {
		cfg.Output.TrecEvalPath = output
	}
	if runID != "" {
		cfg.Output.RunID = runID
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
