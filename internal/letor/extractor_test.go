package letor

import (
	"context"
	"math"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/Structured-Query-Engine/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Structured-Query-Engine/internal/searcher/model"
	"github.com/Adithya-Monish-Kumar-K/Structured-Query-Engine/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func extractorFixture(t *testing.T) (*index.MemoryIndex, *model.Letor) {
	t.Helper()
	idx := index.NewMemoryIndex()
	for _, d := range []index.Document{
		{
			ExternalID: "doc-a",
			Attributes: map[string]string{"score": "42", "rawUrl": "http://en.wikipedia.org/wiki/Apple_pie"},
			Fields: map[string][]string{
				"body":     {"apple", "pie", "apple"},
				"title":    {"apple"},
				"keywords": {"pie"},
			},
		},
		{
			ExternalID: "doc-b",
			Attributes: map[string]string{"score": "spam?"},
			Fields:     map[string][]string{"body": {"banana"}},
		},
		{
			ExternalID: "doc-c",
			Attributes: map[string]string{"rawUrl": "https://www.averyveryverylongdomain.com/a/b"},
			Fields:     map[string][]string{"body": {"cherry", "pie"}, "url": {"averyveryverylongdomain", "com"}},
		},
	} {
		_, err := idx.AddDocument(d)
		require.NoError(t, err)
	}
	bm25, err := model.NewBM25(1.2, 0.75, 0)
	require.NoError(t, err)
	indri, err := model.NewIndri(2500, 0.4)
	require.NoError(t, err)
	return idx, model.NewLetor(bm25, indri)
}

func TestExtractFeatures(t *testing.T) {
	idx, m := extractorFixture(t)
	mt := metrics.New(prometheus.NewRegistry())
	pr := NewPageRank(map[string]float64{"doc-a": 3.5})
	ex := NewExtractor(idx, m, pr, mt)

	rows := ex.Extract(context.Background(), "7", []string{"apple", "pie"}, []Candidate{
		{ExternalID: "doc-a", Relevance: 2},
		{ExternalID: "doc-missing", Relevance: 1},
		{ExternalID: "doc-b"},
		{ExternalID: "doc-c", Relevance: 1},
	})
	require.Len(t, rows, 3)
	assert.Equal(t, float64(1), testutil.ToFloat64(mt.DocsSkippedTotal))

	a := rows[0]
	assert.Equal(t, "7", a.QueryID)
	assert.Equal(t, "doc-a", a.ExternalID)
	assert.Equal(t, 2, a.Relevance)
	assert.Equal(t, Present(42), a.Features.Get(FeatureSpam))
	assert.Equal(t, Present(4), a.Features.Get(FeatureURLDepth))
	assert.Equal(t, Present(1), a.Features.Get(FeatureWikipedia))
	assert.Equal(t, Present(3.5), a.Features.Get(FeaturePageRank))
	assert.Equal(t, Present(3), a.Features.Get(FeatureURLComplexity))

	// body: lengths 3, 1, 2 over three documents.
	wantBM25 := m.BM25.TermScore(2, 1, 3, 3, 2) + m.BM25.TermScore(1, 2, 3, 3, 2)
	wantIndri := math.Sqrt(m.Indri.TermScore(2, 2, 6, 3)) * math.Sqrt(m.Indri.TermScore(1, 2, 6, 3))
	assert.InDelta(t, wantBM25, a.Features.Get(FeatureBodyBM25).Value, 1e-12)
	assert.InDelta(t, wantIndri, a.Features.Get(FeatureBodyIndri).Value, 1e-12)
	assert.Equal(t, Present(1), a.Features.Get(FeatureBodyOverlap))
	assert.Equal(t, Present(0.5), a.Features.Get(FeatureTitleOverlap))
	assert.True(t, a.Features.Get(FeatureTitleIndri).Set)
	assert.Equal(t, Present(0.5), a.Features.Get(FeatureKeywordOverlap))
	for _, slot := range []int{FeatureURLBM25, FeatureURLIndri, FeatureURLOverlap, FeatureInlinkBM25, FeatureInlinkIndri, FeatureInlinkOverlap} {
		assert.False(t, a.Features.Get(slot).Set, "slot %d", slot)
	}

	b := rows[1]
	for _, slot := range []int{FeatureSpam, FeatureURLDepth, FeatureWikipedia, FeaturePageRank, FeatureURLComplexity, FeatureKeywordOverlap} {
		assert.False(t, b.Features.Get(slot).Set, "slot %d", slot)
	}
	assert.Equal(t, Present(0), b.Features.Get(FeatureBodyBM25))
	assert.Equal(t, Present(0), b.Features.Get(FeatureBodyOverlap))
	assert.Greater(t, b.Features.Get(FeatureBodyIndri).Value, 0.0)

	c := rows[2]
	assert.Equal(t, Present(4), c.Features.Get(FeatureURLDepth))
	assert.Equal(t, Present(0), c.Features.Get(FeatureWikipedia))
	assert.Equal(t, Present(float64(len("averyveryverylongdomain.com")-10)), c.Features.Get(FeatureURLComplexity))
	assert.Equal(t, Present(0), c.Features.Get(FeatureURLOverlap))
	assert.Equal(t, Present(0.5), c.Features.Get(FeatureBodyOverlap))
}

func TestExtractNoStems(t *testing.T) {
	idx, m := extractorFixture(t)
	ex := NewExtractor(idx, m, nil, metrics.New(prometheus.NewRegistry()))

	rows := ex.Extract(context.Background(), "1", nil, []Candidate{{ExternalID: "doc-a"}})
	require.Len(t, rows, 1)
	assert.False(t, rows[0].Features.Get(FeatureBodyBM25).Set)
	assert.False(t, rows[0].Features.Get(FeaturePageRank).Set)
	assert.True(t, rows[0].Features.Get(FeatureSpam).Set)
}

func TestRootDomainLength(t *testing.T) {
	tests := []struct {
		raw  string
		want int
		ok   bool
	}{
		{"http://en.wikipedia.org/wiki/X", len("wikipedia.org"), true},
		{"example.com/a/b", len("example.com"), true},
		{"https://a.b.c.example.co:8443/", len("example.co"), true},
		{"http://localhost/", len("localhost"), true},
		{"http://", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, ok := rootDomainLength(tt.raw)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
