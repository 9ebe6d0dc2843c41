package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/Structured-Query-Engine/internal/indexer"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Add JSON-lines documents to the index as a new segment",
	Long: `index reads one document per line:

  {"id": "doc-1", "attributes": {"rawUrl": "http://example.com/a"}, "fields": {"body": "...", "title": "..."}}

Field text is tokenized with the same analyzer used for queries. Set "html": true
to strip markup from every field first.`,
	Example: `  qryeval index --index data/index --input docs.jsonl`,
	Args:    cobra.NoArgs,
	RunE:    indexCmdRun,
}

type indexFlags struct {
	input string
}

var indexArgs indexFlags

func init() {
	indexCmd.Flags().StringVar(&indexArgs.input, "input", "", "JSON-lines document file.")
	rootCmd.AddCommand(indexCmd)
}

func indexCmdRun(cmd *cobra.Command, args []string) error {
	if indexArgs.input == "" {
		return errors.New("--input is required")
	}
	f, err := os.Open(indexArgs.input)
	if err != nil {
		return fmt.Errorf("opening documents: %w", err)
	}
	defer f.Close()

	docs, err := indexer.ReadJSONL(f)
	if err != nil {
		return err
	}

	engine, err := indexer.Open(cfg.Index, processMetrics())
	if err != nil {
		return fmt.Errorf("opening index: %w", err)
	}
	for _, doc := range docs {
		if err := engine.IndexDocument(doc); err != nil {
			return fmt.Errorf("indexing %s: %w", doc.ID, err)
		}
	}
	segment, err := engine.Flush()
	if err != nil {
		return err
	}
	slog.Info("documents indexed", "docs", len(docs), "segment", segment)
	fmt.Fprintf(cmd.OutOrStdout(), "indexed %d documents (%d total) into %s\n", len(docs), engine.NumDocs(), cfg.Index.DataDir)
	return nil
}
