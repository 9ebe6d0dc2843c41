package executor

import (
	"context"
	"fmt"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/Structured-Query-Engine/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Structured-Query-Engine/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/Structured-Query-Engine/internal/searcher/model"
	"github.com/Adithya-Monish-Kumar-K/Structured-Query-Engine/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

var benchTerms = []string{"structured", "search", "proximity", "ranking", "indexing", "query", "engine", "smoothing"}

func benchExecutor(b *testing.B, numDocs int) *Executor {
	b.Helper()
	idx := index.NewMemoryIndex()
	for i := 0; i < numDocs; i++ {
		body := fmt.Sprintf("this document covers %s %s %s in production systems",
			benchTerms[i%len(benchTerms)], benchTerms[(i+2)%len(benchTerms)], benchTerms[(i+3)%len(benchTerms)])
		title := fmt.Sprintf("notes on %s and %s", benchTerms[i%len(benchTerms)], benchTerms[(i+1)%len(benchTerms)])
		_, err := idx.AddDocument(index.Document{
			ExternalID: fmt.Sprintf("doc-%d", i),
			Fields: map[string][]string{
				"body":  tokenizer.Terms(body),
				"title": tokenizer.Terms(title),
			},
		})
		if err != nil {
			b.Fatal(err)
		}
	}
	return New(idx, tokenizer.Analyzer{}, metrics.New(prometheus.NewRegistry()))
}

func BenchmarkEvaluate(b *testing.B) {
	bm25, _ := model.NewBM25(1.2, 0.75, 0)
	indri, _ := model.NewIndri(2500, 0.4)
	queries := []struct {
		name  string
		model model.Model
		query string
	}{
		{"unranked_and", model.UnrankedBoolean{}, "search ranking"},
		{"ranked_or", model.RankedBoolean{}, "#or(search smoothing engine)"},
		{"bm25_sum", bm25, "structured search proximity"},
		{"indri_and", indri, "structured search proximity"},
		{"indri_near", indri, "#and(#near/2(search ranking) query.title)"},
		{"indri_window", indri, "#wand(0.7 #window/6(search engine) 0.3 smoothing)"},
	}
	for _, size := range []int{1000, 10000} {
		e := benchExecutor(b, size)
		for _, q := range queries {
			b.Run(fmt.Sprintf("%s/docs_%d", q.name, size), func(b *testing.B) {
				b.ReportAllocs()
				for i := 0; i < b.N; i++ {
					if _, _, err := e.Evaluate(context.Background(), q.query, q.model); err != nil {
						b.Fatal(err)
					}
				}
			})
		}
	}
}

func BenchmarkExecuteTop100(b *testing.B) {
	e := benchExecutor(b, 10000)
	bm25, _ := model.NewBM25(1.2, 0.75, 0)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := e.Execute(context.Background(), "bench", benchTerms[i%len(benchTerms)], bm25, 100); err != nil {
			b.Fatal(err)
		}
	}
}
