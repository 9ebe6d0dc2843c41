// Package executor runs one structured query end to end: parse, optimize,
// build the operator tree, evaluate and rank.
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Structured-Query-Engine/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Structured-Query-Engine/internal/searcher/model"
	"github.com/Adithya-Monish-Kumar-K/Structured-Query-Engine/internal/searcher/operator"
	"github.com/Adithya-Monish-Kumar-K/Structured-Query-Engine/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/Structured-Query-Engine/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/Structured-Query-Engine/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Structured-Query-Engine/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Structured-Query-Engine/pkg/tracing"
)

type Result struct {
	QueryID   string             `json:"query_id,omitempty"`
	Query     string             `json:"query"`
	Tree      string             `json:"tree"`
	Model     string             `json:"model"`
	TotalHits int                `json:"total_hits"`
	Results   []ranker.ScoredDoc `json:"results"`
}

type Executor struct {
	reader  index.Reader
	parser  *parser.Parser
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func New(reader index.Reader, analyzer parser.Analyzer, m *metrics.Metrics) *Executor {
	return &Executor{
		reader:  reader,
		parser:  parser.New(analyzer),
		metrics: m,
		logger:  slog.Default().With("component", "query-executor"),
	}
}

// Plan parses and optimizes query. A nil tree means nothing in the query
// survived lexical processing.
func (e *Executor) Plan(query string, m model.Model) (*parser.Node, error) {
	tree, err := e.parser.Parse(query, m)
	if err != nil {
		return nil, err
	}
	return parser.Optimize(tree), nil
}

// Evaluate returns every document matching query with its score, sorted by
// score descending then internal id, together with the optimized tree.
func (e *Executor) Evaluate(ctx context.Context, query string, m model.Model) (*ranker.ScoreList, *parser.Node, error) {
	ctx, span := tracing.StartChildSpan(ctx, "evaluate-query")
	defer span.End()

	_, parseSpan := tracing.StartChildSpan(ctx, "parse")
	tree, err := e.Plan(query, m)
	parseSpan.End()
	if err != nil {
		return nil, nil, err
	}
	if tree == nil {
		return ranker.NewScoreList(), nil, nil
	}
	parseSpan.SetAttr("nodes", tree.Size())

	_, buildSpan := tracing.StartChildSpan(ctx, "build")
	root, err := operator.Build(tree, m, e.reader)
	buildSpan.End()
	if err != nil {
		return nil, tree, err
	}

	_, evalSpan := tracing.StartChildSpan(ctx, "evaluate")
	results, err := operator.Evaluate(ctx, root)
	evalSpan.End()
	if err != nil {
		return nil, tree, fmt.Errorf("evaluating %q: %w", query, err)
	}
	evalSpan.SetAttr("matches", results.Len())
	results.Sort()
	return results, tree, nil
}

// Execute evaluates query and returns its top limit documents with external
// ids resolved.
func (e *Executor) Execute(ctx context.Context, queryID, query string, m model.Model, limit int) (*Result, error) {
	start := time.Now()
	ctx = logger.WithQueryID(ctx, queryID)
	log := logger.FromContext(ctx)
	name := m.Kind().String()

	results, tree, err := e.Evaluate(ctx, query, m)
	e.metrics.QueryLatency.WithLabelValues(name).Observe(time.Since(start).Seconds())
	if err != nil {
		e.metrics.QueriesTotal.WithLabelValues(name, "error").Inc()
		log.Warn("query failed", "model", name, "query", query, "error", err)
		return nil, err
	}

	top := results.Top(limit)
	if err := e.Resolve(top); err != nil {
		e.metrics.QueriesTotal.WithLabelValues(name, "error").Inc()
		return nil, err
	}
	e.metrics.QueriesTotal.WithLabelValues(name, "ok").Inc()
	e.metrics.ResultsCount.Observe(float64(results.Len()))

	log.Info("query executed",
		"model", name,
		"matches", results.Len(),
		"returned", len(top),
		"latency_ms", time.Since(start).Milliseconds(),
	)
	res := &Result{
		QueryID:   queryID,
		Query:     query,
		Model:     name,
		TotalHits: results.Len(),
		Results:   top,
	}
	if tree != nil {
		res.Tree = tree.String()
	}
	if res.Results == nil {
		res.Results = []ranker.ScoredDoc{}
	}
	return res, nil
}

// Resolve fills in the external ids of docs.
func (e *Executor) Resolve(docs []ranker.ScoredDoc) error {
	for i := range docs {
		ext, err := e.reader.ExternalID(docs[i].DocID)
		if err != nil {
			return fmt.Errorf("resolving doc %d: %w", docs[i].DocID, err)
		}
		docs[i].ExternalID = ext
	}
	return nil
}
