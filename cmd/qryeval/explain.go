package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/Structured-Query-Engine/internal/searcher/model"
)

var explainCmd = &cobra.Command{
	Use:   "explain <query>",
	Short: "Print the optimized query tree and the top results of one query",
	Example: `  qryeval explain --model indri '#and(obama #near/1(family tree))'
  qryeval explain --model bm25 --limit 5 'apple pie recipe'`,
	Args: cobra.MinimumNArgs(1),
	RunE: explainCmdRun,
}

type explainFlags struct {
	limit int
}

var explainArgs = explainFlags{limit: 10}

func init() {
	explainCmd.Flags().IntVar(&explainArgs.limit, "limit", explainArgs.limit, "Number of results to print.")
	rootCmd.AddCommand(explainCmd)
}

func explainCmdRun(cmd *cobra.Command, args []string) error {
	query := strings.Join(args, " ")
	m, err := model.FromConfig(cfg.Retrieval)
	if err != nil {
		return err
	}

	env, err := newEngineEnv()
	if err != nil {
		return err
	}
	defer env.Close()

	res, err := env.exec.Execute(context.Background(), "explain", query, model.Scoring(m), explainArgs.limit)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "model:   %s\n", res.Model)
	fmt.Fprintf(out, "tree:    %s\n", res.Tree)
	fmt.Fprintf(out, "matches: %d\n\n", res.TotalHits)
	if len(res.Results) == 0 {
		return nil
	}
	rows := make([][]string, len(res.Results))
	for i, d := range res.Results {
		rows[i] = []string{
			strconv.Itoa(i + 1),
			d.ExternalID,
			strconv.Itoa(d.DocID),
			strconv.FormatFloat(d.Score, 'g', 6, 64),
		}
	}
	printTable(out, []string{"Rank", "Document", "Internal id", "Score"}, rows)
	return nil
}
