package pipeline

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/Adithya-Monish-Kumar-K/Structured-Query-Engine/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Structured-Query-Engine/internal/letor"
	"github.com/Adithya-Monish-Kumar-K/Structured-Query-Engine/internal/searcher/model"
	"github.com/Adithya-Monish-Kumar-K/Structured-Query-Engine/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/Structured-Query-Engine/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/Structured-Query-Engine/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Structured-Query-Engine/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Structured-Query-Engine/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Structured-Query-Engine/pkg/metrics"
)

const (
	stageTrain = "train"
	stageTest  = "test"
)

// LetorRunner trains a ranker on judged training queries, then re-ranks the
// BM25 results of test queries by the ranker's predictions.
type LetorRunner struct {
	searcher  Searcher
	analyzer  parser.Analyzer
	model     *model.Letor
	extractor *letor.Extractor
	ranker    *letor.Ranker
	cfg       config.LetorConfig
	output    config.OutputConfig
	disabled  letor.DisableSet
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

func NewLetorRunner(s Searcher, reader index.Reader, analyzer parser.Analyzer, m *model.Letor, pageRank *letor.PageRank, cfg *config.Config, mt *metrics.Metrics) (*LetorRunner, error) {
	disabled, err := letor.NewDisableSet(cfg.Letor.FeatureDisable)
	if err != nil {
		return nil, err
	}
	return &LetorRunner{
		searcher:  s,
		analyzer:  analyzer,
		model:     m,
		extractor: letor.NewExtractor(reader, m, pageRank, mt),
		ranker:    letor.NewRanker(cfg.Letor.SVMRankLearnPath, cfg.Letor.SVMRankClassifyPath, cfg.Letor.SVMRankParamC, mt),
		cfg:       cfg.Letor,
		output:    cfg.Output,
		disabled:  disabled,
		metrics:   mt,
		logger:    slog.Default().With("component", "letor-runner"),
	}, nil
}

// RunFiles trains on the configured training files, then evaluates
// queryFile and writes the re-ranked run to the configured output path.
func (r *LetorRunner) RunFiles(ctx context.Context, queryFile string) error {
	training, err := LoadQueries(r.cfg.TrainingQueryFile)
	if err != nil {
		return fmt.Errorf("training queries: %w", err)
	}
	judgments := letor.LoadJudgmentsFile(r.cfg.TrainingQrelsFile)
	if err := r.Train(ctx, training, judgments); err != nil {
		return err
	}

	queries, err := LoadQueries(queryFile)
	if err != nil {
		return err
	}
	out, err := os.Create(r.output.TrecEvalPath)
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}
	if err := r.Test(ctx, queries, out); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// Train extracts features for every judged document of the training
// queries, writes the normalized training file and runs the learner.
// Queries without judgments are skipped.
func (r *LetorRunner) Train(ctx context.Context, queries []Query, judgments letor.Judgments) error {
	batch := &letor.Batch{}
	for _, q := range queries {
		if err := ctx.Err(); err != nil {
			return err
		}
		judged, ok := judgments[q.ID]
		if !ok || judged.Len() == 0 {
			r.logger.Warn("training query has no judgments", "query_id", q.ID)
			continue
		}
		candidates := make([]letor.Candidate, judged.Len())
		for i, ext := range judged.ExternalIDs {
			candidates[i] = letor.Candidate{ExternalID: ext, Relevance: judged.Relevance[i]}
		}
		r.extract(ctx, batch, stageTrain, q, candidates)
	}
	if err := r.writeBatch(batch, r.cfg.TrainingFeatureVectorsFile); err != nil {
		return err
	}
	return r.ranker.Learn(ctx, r.cfg.TrainingFeatureVectorsFile, r.cfg.SVMRankModelFile)
}

// Test retrieves the top documents of each query with BM25, scores them with
// the trained model and writes the re-ranked results to out. Queries without
// any feature row get a dummy row.
func (r *LetorRunner) Test(ctx context.Context, queries []Query, out io.Writer) error {
	batch := &letor.Batch{}
	for _, q := range queries {
		if err := ctx.Err(); err != nil {
			return err
		}
		res, err := r.searcher.Execute(ctx, q.ID, q.Text, r.model.BM25, r.cfg.RerankDepth)
		if err != nil {
			if stderrors.Is(err, errors.ErrSyntax) {
				r.logger.Error("query skipped", "query_id", q.ID, "error", err)
				continue
			}
			return fmt.Errorf("query %s: %w", q.ID, err)
		}
		candidates := make([]letor.Candidate, len(res.Results))
		for i, d := range res.Results {
			candidates[i] = letor.Candidate{ExternalID: d.ExternalID}
		}
		r.extract(ctx, batch, stageTest, q, candidates)
	}

	if batch.Len() > 0 {
		if err := r.writeBatch(batch, r.cfg.TestingFeatureVectorsFile); err != nil {
			return err
		}
		if err := r.ranker.Classify(ctx, r.cfg.TestingFeatureVectorsFile, r.cfg.SVMRankModelFile, r.cfg.TestingDocumentScores); err != nil {
			return err
		}
		scores, err := readScoresFile(r.cfg.TestingDocumentScores)
		if err != nil {
			return err
		}
		if err := batch.ApplyScores(scores); err != nil {
			return err
		}
	}
	return r.writeRankings(queries, batch.Rerank(), out)
}

func (r *LetorRunner) extract(ctx context.Context, batch *letor.Batch, stage string, q Query, candidates []letor.Candidate) {
	ctx = logger.WithQueryID(ctx, q.ID)
	stems := parser.BagOfWords(q.Text, r.analyzer)
	rows := r.extractor.Extract(ctx, q.ID, stems, candidates)
	batch.Add(rows...)
	r.metrics.FeatureRowsTotal.WithLabelValues(stage).Add(float64(len(rows)))
	logger.FromContext(ctx).Debug("features extracted", "stage", stage, "candidates", len(candidates), "rows", len(rows))
}

// writeBatch normalizes batch and writes it to path.
func (r *LetorRunner) writeBatch(batch *letor.Batch, path string) error {
	batch.Normalize()
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating feature file: %w", err)
	}
	if err := letor.WriteFeatures(f, batch.Rows, r.disabled); err != nil {
		f.Close()
		return fmt.Errorf("writing feature file %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("writing feature file %s: %w", path, err)
	}
	r.logger.Info("feature file written", "path", path, "rows", batch.Len())
	return nil
}

func (r *LetorRunner) writeRankings(queries []Query, rankings []letor.Ranking, out io.Writer) error {
	byQuery := make(map[string][]letor.DocFeature, len(rankings))
	for _, rk := range rankings {
		byQuery[rk.QueryID] = rk.Docs
	}
	trec := ranker.NewTrecWriter(out, r.output.RunID, r.output.MaxResults)
	for _, q := range queries {
		rows := byQuery[q.ID]
		docs := make([]ranker.ScoredDoc, len(rows))
		for i, row := range rows {
			docs[i] = ranker.ScoredDoc{DocID: index.Invalid, ExternalID: row.ExternalID, Score: row.Predicted}
		}
		if err := trec.WriteQuery(q.ID, docs); err != nil {
			return err
		}
	}
	if err := trec.Flush(); err != nil {
		return fmt.Errorf("writing results: %w", err)
	}
	return nil
}

func readScoresFile(path string) ([]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening predictions: %w", err)
	}
	defer f.Close()
	return letor.ReadScores(f)
}
