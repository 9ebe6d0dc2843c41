package pipeline

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Structured-Query-Engine/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/Structured-Query-Engine/internal/feedback"
	"github.com/Adithya-Monish-Kumar-K/Structured-Query-Engine/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Structured-Query-Engine/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/Structured-Query-Engine/internal/searcher/model"
	"github.com/Adithya-Monish-Kumar-K/Structured-Query-Engine/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/Structured-Query-Engine/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/Structured-Query-Engine/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Structured-Query-Engine/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Structured-Query-Engine/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Structured-Query-Engine/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Structured-Query-Engine/pkg/tracing"
)

// Searcher is satisfied by *executor.Executor.
type Searcher interface {
	Evaluate(ctx context.Context, query string, m model.Model) (*ranker.ScoreList, *parser.Node, error)
	Execute(ctx context.Context, queryID, query string, m model.Model, limit int) (*executor.Result, error)
}

// ResultStore is satisfied by *runstore.Store.
type ResultStore interface {
	SaveQuery(ctx context.Context, runID, queryID, model string, docs []ranker.ScoredDoc) error
}

// Runner evaluates a query file with one retrieval model.
type Runner struct {
	searcher  Searcher
	model     model.Model
	expander  *feedback.Expander
	reader    index.Reader
	output    config.OutputConfig
	feedback  config.FeedbackConfig
	initial   map[string][]feedback.WeightedDoc
	collector *analytics.Collector
	store     ResultStore
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

func NewRunner(s Searcher, reader index.Reader, m model.Model, cfg *config.Config, mt *metrics.Metrics) *Runner {
	return &Runner{
		searcher: s,
		model:    m,
		expander: feedback.NewExpander(reader),
		reader:   reader,
		output:   cfg.Output,
		feedback: cfg.Feedback,
		metrics:  mt,
		logger:   slog.Default().With("component", "batch-runner"),
	}
}

// WithAnalytics tracks every evaluated query on c.
func (r *Runner) WithAnalytics(c *analytics.Collector) *Runner {
	r.collector = c
	return r
}

// WithResultStore persists every query's written rows to s.
func (r *Runner) WithResultStore(s ResultStore) *Runner {
	r.store = s
	return r
}

// LoadInitialRanking makes feedback draw its top documents from a TREC
// ranking instead of an initial run of each query.
func (r *Runner) LoadInitialRanking(src io.Reader) error {
	ranking, err := feedback.ReadRankingFile(src, r.reader, r.feedback.Docs)
	if err != nil {
		return fmt.Errorf("loading initial ranking: %w", err)
	}
	r.initial = ranking
	return nil
}

// RunFiles evaluates queryFile and writes the TREC run to the configured
// output path, replacing it. Expansion clauses are appended to the
// configured expansion file.
func (r *Runner) RunFiles(ctx context.Context, queryFile string) error {
	queries, err := LoadQueries(queryFile)
	if err != nil {
		return err
	}

	if r.feedbackEnabled() && r.feedback.InitialRankingFile != "" {
		f, err := os.Open(r.feedback.InitialRankingFile)
		if err != nil {
			return fmt.Errorf("opening initial ranking: %w", err)
		}
		err = r.LoadInitialRanking(f)
		f.Close()
		if err != nil {
			return err
		}
	}

	var expansions io.Writer
	if r.feedbackEnabled() && r.feedback.ExpansionQueryFile != "" {
		f, err := os.OpenFile(r.feedback.ExpansionQueryFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("opening expansion query file: %w", err)
		}
		defer f.Close()
		expansions = f
	}

	out, err := os.Create(r.output.TrecEvalPath)
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}
	if err := r.Run(ctx, queries, out, expansions); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// Run evaluates queries in order and writes their results to out. A query
// that fails to parse is logged and gets a dummy row; any other failure
// stops the run. expansions may be nil.
func (r *Runner) Run(ctx context.Context, queries []Query, out, expansions io.Writer) error {
	if r.feedback.Enabled && !r.feedbackEnabled() {
		r.logger.Warn("relevance feedback needs the indri model, running without it", "model", r.model.Kind().String())
	}
	trec := ranker.NewTrecWriter(out, r.output.RunID, r.output.MaxResults)
	start := time.Now()
	for _, q := range queries {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := r.runQuery(ctx, trec, q, expansions); err != nil {
			return err
		}
	}
	if err := trec.Flush(); err != nil {
		return fmt.Errorf("writing results: %w", err)
	}
	r.logger.Info("batch run complete",
		"queries", len(queries),
		"model", r.model.Kind().String(),
		"run_id", r.output.RunID,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

func (r *Runner) feedbackEnabled() bool {
	return r.feedback.Enabled && r.model.Kind() == model.KindIndri
}

func (r *Runner) runQuery(ctx context.Context, trec *ranker.TrecWriter, q Query, expansions io.Writer) error {
	start := time.Now()
	ctx = logger.WithQueryID(ctx, q.ID)
	log := logger.FromContext(ctx)
	ctx, span := tracing.StartSpan(ctx, "query", q.ID)
	defer func() {
		span.End()
		span.Log(log)
	}()

	query, expanded := q.Text, false
	var res *executor.Result
	var err error
	if r.feedbackEnabled() {
		query, expanded, err = r.expand(ctx, q, expansions)
	}
	if err == nil {
		res, err = r.searcher.Execute(ctx, q.ID, query, r.model, r.output.MaxResults)
	}

	event := analytics.QueryEvent{
		Source:    "batch",
		QueryID:   q.ID,
		Query:     query,
		Model:     r.model.Kind().String(),
		Expanded:  expanded,
		LatencyMs: time.Since(start).Milliseconds(),
		Timestamp: time.Now(),
	}
	if res != nil {
		event.TotalHits = res.TotalHits
		event.Returned = len(res.Results)
	}
	event.Classify(err)
	if r.collector != nil {
		r.collector.Track(event)
	}

	var docs []ranker.ScoredDoc
	switch {
	case err == nil:
		docs = res.Results
	case stderrors.Is(err, errors.ErrSyntax):
		log.Error("query skipped", "query", query, "error", err)
	default:
		return fmt.Errorf("query %s: %w", q.ID, err)
	}

	if err := trec.WriteQuery(q.ID, docs); err != nil {
		return err
	}
	if r.store != nil {
		if err := r.store.SaveQuery(ctx, r.output.RunID, q.ID, event.Model, docs); err != nil {
			log.Error("failed to persist run results", "error", err)
		}
	}
	return nil
}

// expand returns the query rewritten with its feedback expansion, or the
// original query when no expansion terms were found.
func (r *Runner) expand(ctx context.Context, q Query, sink io.Writer) (string, bool, error) {
	log := logger.FromContext(ctx)
	ctx, span := tracing.StartChildSpan(ctx, "expand")
	defer span.End()

	var top []feedback.WeightedDoc
	if r.initial != nil {
		top = r.initial[q.ID]
	} else {
		list, _, err := r.searcher.Evaluate(ctx, q.Text, r.model)
		if err != nil {
			return q.Text, false, err
		}
		top = feedback.TopDocs(list, r.feedback.Docs)
	}

	terms := r.expander.Expand(top, r.feedback.Terms, r.feedback.Mu)
	if len(terms) == 0 {
		log.Warn("no expansion terms, using original query", "feedback_docs", len(top))
		return q.Text, false, nil
	}
	span.SetAttr("terms", len(terms))
	expansion := feedback.FormatExpansion(terms)
	if sink != nil {
		if err := feedback.WriteExpansion(sink, q.ID, expansion); err != nil {
			return q.Text, false, fmt.Errorf("writing expansion: %w", err)
		}
	}
	r.metrics.ExpansionsTotal.Inc()
	log.Debug("query expanded", "terms", len(terms), "feedback_docs", len(top))
	return feedback.Combine(q.Text, expansion, r.feedback.OrigWeight), true, nil
}
