package pipeline

import (
	"bytes"
	"context"
	stderrors "errors"
	"strings"
	"sync"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/Structured-Query-Engine/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/Structured-Query-Engine/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Structured-Query-Engine/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/Structured-Query-Engine/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/Structured-Query-Engine/internal/searcher/model"
	"github.com/Adithya-Monish-Kumar-K/Structured-Query-Engine/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/Structured-Query-Engine/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Structured-Query-Engine/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Structured-Query-Engine/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixtureDoc struct {
	id, body string
	attrs    map[string]string
}

var corpus = []fixtureDoc{
	{"doc-a", "the quick brown fox jumps over the lazy dog", map[string]string{"score": "70", "rawUrl": "http://en.wikipedia.org/wiki/Dog"}},
	{"doc-b", "a lazy dog sleeps all day", map[string]string{"score": "12", "rawUrl": "http://dogs.example.com/lazy"}},
	{"doc-c", "foxes and dogs are rarely friends", nil},
	{"doc-d", "market prices fell sharply", nil},
	{"doc-e", "weather forecast predicts rain", nil},
	{"doc-f", "new library opens downtown", nil},
	{"doc-g", "election results announced today", nil},
}

func newFixture(t *testing.T) (*index.MemoryIndex, *executor.Executor, *metrics.Metrics) {
	t.Helper()
	idx := index.NewMemoryIndex()
	for _, d := range corpus {
		_, err := idx.AddDocument(index.Document{
			ExternalID: d.id,
			Attributes: d.attrs,
			Fields:     map[string][]string{"body": tokenizer.Terms(d.body)},
		})
		require.NoError(t, err)
	}
	mt := metrics.New(prometheus.NewRegistry())
	return idx, executor.New(idx, tokenizer.Analyzer{}, mt), mt
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Output.RunID = "test-run"
	return cfg
}

type trecRow struct {
	qid, doc, rank, score, run string
}

func parseTrec(t *testing.T, out string) []trecRow {
	t.Helper()
	var rows []trecRow
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		f := strings.Split(line, "\t")
		require.Len(t, f, 6, line)
		assert.Equal(t, "Q0", f[1])
		rows = append(rows, trecRow{qid: f[0], doc: f[2], rank: f[3], score: f[4], run: f[5]})
	}
	return rows
}

func docsOf(rows []trecRow, qid string) []string {
	var out []string
	for _, r := range rows {
		if r.qid == qid {
			out = append(out, r.doc)
		}
	}
	return out
}

type memStore struct {
	mu    sync.Mutex
	saved map[string][]ranker.ScoredDoc
}

func (m *memStore) SaveQuery(_ context.Context, runID, queryID, _ string, docs []ranker.ScoredDoc) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saved == nil {
		m.saved = make(map[string][]ranker.ScoredDoc)
	}
	m.saved[runID+"/"+queryID] = docs
	return nil
}

func TestReadQueries(t *testing.T) {
	qs, err := ReadQueries(strings.NewReader("151:obama family tree\n\n152: french lick resort \n153:#near/2(a b):c\n"))
	require.NoError(t, err)
	assert.Equal(t, []Query{
		{ID: "151", Text: "obama family tree"},
		{ID: "152", Text: "french lick resort"},
		{ID: "153", Text: "#near/2(a b):c"},
	}, qs)

	for _, bad := range []string{"151 no colon\n", ":orphan\n"} {
		_, err := ReadQueries(strings.NewReader(bad))
		assert.True(t, stderrors.Is(err, errors.ErrInvalidInput), bad)
	}
}

func TestRunWritesEveryQuery(t *testing.T) {
	idx, exec, mt := newFixture(t)
	bm25, err := model.NewBM25(1.2, 0.75, 0)
	require.NoError(t, err)

	agg := analytics.NewAggregator()
	store := &memStore{}
	r := NewRunner(exec, idx, bm25, testConfig(), mt).
		WithAnalytics(analytics.NewCollector(nil, agg, 10)).
		WithResultStore(store)

	var out bytes.Buffer
	err = r.Run(context.Background(), []Query{
		{ID: "1", Text: "lazy dog"},
		{ID: "2", Text: "#sum(dog"},
		{ID: "3", Text: "zebra"},
	}, &out, nil)
	require.NoError(t, err)

	rows := parseTrec(t, out.String())
	require.Len(t, rows, 5)
	assert.Equal(t, []string{"1", "1", "1", "2", "3"}, []string{rows[0].qid, rows[1].qid, rows[2].qid, rows[3].qid, rows[4].qid})
	assert.Equal(t, "doc-b", rows[0].doc)
	assert.Equal(t, []string{"1", "2", "3"}, []string{rows[0].rank, rows[1].rank, rows[2].rank})
	assert.Equal(t, trecRow{qid: "2", doc: "dummy", rank: "1", score: "0", run: "test-run"}, rows[3])
	assert.Equal(t, "dummy", rows[4].doc)

	stats := agg.Stats()
	assert.Equal(t, int64(3), stats.TotalQueries)
	assert.Equal(t, int64(1), stats.FailedQueries)
	assert.Equal(t, int64(1), stats.ZeroResultCount)

	assert.Len(t, store.saved["test-run/1"], 3)
	assert.Contains(t, store.saved, "test-run/2")
}

func TestRunStopsOnUnsupportedOperator(t *testing.T) {
	idx, exec, mt := newFixture(t)
	r := NewRunner(exec, idx, model.RankedBoolean{}, testConfig(), mt)

	var out bytes.Buffer
	err := r.Run(context.Background(), []Query{
		{ID: "1", Text: "dog"},
		{ID: "2", Text: "#sum(dog fox)"},
		{ID: "3", Text: "fox"},
	}, &out, nil)
	assert.True(t, stderrors.Is(err, errors.ErrUnsupported))
}

func TestRunHonoursCancellation(t *testing.T) {
	idx, exec, mt := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewRunner(exec, idx, model.UnrankedBoolean{}, testConfig(), mt).
		Run(ctx, []Query{{ID: "1", Text: "dog"}}, &bytes.Buffer{}, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func feedbackConfig() *config.Config {
	cfg := testConfig()
	cfg.Feedback.Enabled = true
	cfg.Feedback.Docs = 2
	cfg.Feedback.Terms = 3
	cfg.Feedback.Mu = 0
	cfg.Feedback.OrigWeight = 0.5
	return cfg
}

func TestRunExpandsWithInitialRun(t *testing.T) {
	idx, exec, mt := newFixture(t)
	indri, err := model.NewIndri(2500, 0.4)
	require.NoError(t, err)
	agg := analytics.NewAggregator()

	r := NewRunner(exec, idx, indri, feedbackConfig(), mt).WithAnalytics(analytics.NewCollector(nil, agg, 10))
	var out, expansions bytes.Buffer
	require.NoError(t, r.Run(context.Background(), []Query{{ID: "5", Text: "lazy dog"}}, &out, &expansions))

	line := strings.TrimSpace(expansions.String())
	assert.True(t, strings.HasPrefix(line, "5: #wand("), line)
	assert.Len(t, strings.Fields(strings.TrimSuffix(strings.TrimPrefix(line, "5: #wand("), ")")), 6)
	assert.Equal(t, 1.0, testutil.ToFloat64(mt.ExpansionsTotal))
	assert.Equal(t, int64(1), agg.Stats().ExpandedQueries)

	rows := parseTrec(t, out.String())
	assert.NotEqual(t, "dummy", rows[0].doc)
}

func TestRunExpandsFromInitialRanking(t *testing.T) {
	idx, exec, mt := newFixture(t)
	indri, err := model.NewIndri(2500, 0.4)
	require.NoError(t, err)

	r := NewRunner(exec, idx, indri, feedbackConfig(), mt)
	require.NoError(t, r.LoadInitialRanking(strings.NewReader(
		"5\tQ0\tdoc-c\t1\t0.5\trun\n5\tQ0\tnot-indexed\t2\t0.25\trun\n")))

	var out, expansions bytes.Buffer
	require.NoError(t, r.Run(context.Background(), []Query{{ID: "5", Text: "fox"}}, &out, &expansions))

	line := expansions.String()
	assert.True(t, strings.HasPrefix(line, "5: #wand("), line)
	assert.NotContains(t, line, "quick")
	assert.NotContains(t, line, "lazi")
}

func TestRunSkipsFeedbackForOtherModels(t *testing.T) {
	idx, exec, mt := newFixture(t)
	bm25, err := model.NewBM25(1.2, 0.75, 0)
	require.NoError(t, err)

	r := NewRunner(exec, idx, bm25, feedbackConfig(), mt)
	var out, expansions bytes.Buffer
	require.NoError(t, r.Run(context.Background(), []Query{{ID: "1", Text: "dog"}}, &out, &expansions))

	assert.Empty(t, expansions.String())
	assert.Zero(t, testutil.ToFloat64(mt.ExpansionsTotal))
}
