package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/Structured-Query-Engine/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/Structured-Query-Engine/internal/letor"
	"github.com/Adithya-Monish-Kumar-K/Structured-Query-Engine/internal/pipeline"
	"github.com/Adithya-Monish-Kumar-K/Structured-Query-Engine/internal/searcher/model"
)

var letorCmd = &cobra.Command{
	Use:   "letor",
	Short: "Train a learning-to-rank model and re-rank the BM25 results of a query file",
	Long: `letor extracts 18 features for every judged document of the training
queries, trains the external ranker on them, then re-ranks the top BM25
documents of each test query by the ranker's predictions.`,
	Example: `  qryeval letor -c letor.yaml --queries test-queries.txt --output letor.teIn`,
	Args:    cobra.NoArgs,
	RunE:    letorCmdRun,
}

type letorFlags struct {
	queries string
	output  string
	runID   string
}

var letorArgs letorFlags

func init() {
	letorCmd.Flags().StringVar(&letorArgs.queries, "queries", "", "Test query file. Overrides queries.file.")
	letorCmd.Flags().StringVar(&letorArgs.output, "output", "", "TREC run file to write. Overrides output.trecEvalPath.")
	letorCmd.Flags().StringVar(&letorArgs.runID, "run-id", "", "Run id written in the last column. Overrides output.runId.")
	rootCmd.AddCommand(letorCmd)
}

func letorCmdRun(cmd *cobra.Command, args []string) error {
	applyOutputFlags(letorArgs.output, letorArgs.runID)
	queryFile := firstNonEmpty(letorArgs.queries, cfg.Queries.File)
	if queryFile == "" {
		return errors.New("no query file: set --queries or queries.file")
	}

	cfg.Retrieval.Algorithm = "letor"
	m, err := model.FromConfig(cfg.Retrieval)
	if err != nil {
		return err
	}
	lm, ok := m.(*model.Letor)
	if !ok {
		return fmt.Errorf("expected the letor model, got %s", m.Kind())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	env, err := newEngineEnv()
	if err != nil {
		return err
	}
	defer env.Close()

	pageRank := letor.NewPageRank(nil)
	if cfg.Letor.PageRankFile != "" {
		pageRank = letor.LoadPageRankFile(cfg.Letor.PageRankFile)
	}
	runner, err := pipeline.NewLetorRunner(env.exec, env.engine, tokenizer.Analyzer{}, lm, pageRank, cfg, env.metrics)
	if err != nil {
		return err
	}
	if err := runner.RunFiles(ctx, queryFile); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "run written to %s\n", cfg.Output.TrecEvalPath)
	return nil
}
