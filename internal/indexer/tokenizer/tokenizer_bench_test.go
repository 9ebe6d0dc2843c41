package tokenizer

import (
	"fmt"
	"strings"
	"testing"
)

var sampleTexts = map[string]string{
	"short": "The quick brown fox jumps over the lazy dog",
	"medium": `Structured queries combine proximity operators with weighted
        evidence. A #near/3 operator matches ordered terms within a small gap,
        while #window/8 accepts any order inside a bounded span. Each field of
        a document keeps its own inverted list with term positions, so the same
        word can score differently in a title than in a body.`,
	"long": strings.Repeat(`Information retrieval systems combine tokenization,
        stemming and stopword removal to normalize text into index terms. The
        inverted index maps each term to the documents containing it, with the
        positions needed by proximity operators. BM25 weighs term frequency
        against document length, and the Indri language model smooths every
        estimate with collection statistics. `, 20),
}

func BenchmarkTerms(b *testing.B) {
	for name, text := range sampleTexts {
		b.Run(name, func(b *testing.B) {
			b.ReportAllocs()
			b.SetBytes(int64(len(text)))
			for i := 0; i < b.N; i++ {
				_ = Terms(text)
			}
		})
	}
}

func BenchmarkTermsParallel(b *testing.B) {
	text := sampleTexts["medium"]
	b.ReportAllocs()
	b.SetBytes(int64(len(text)))
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_ = Terms(text)
		}
	})
}

func BenchmarkAnalyzeQueryTerms(b *testing.B) {
	words := []string{
		"running", "retrieval", "searching", "indexing",
		"tokenization", "normalization", "efficiently",
		"proximity", "smoothing", "relevance",
	}
	var a Analyzer
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		for _, w := range words {
			_ = a.Analyze(w)
		}
	}
}

func BenchmarkTermsVaryingSize(b *testing.B) {
	sizes := []int{10, 100, 500, 1000, 5000}
	baseWord := "structured query evaluation proximity ranking "
	for _, size := range sizes {
		text := strings.Repeat(baseWord, size/len(baseWord)+1)[:size]
		b.Run(fmt.Sprintf("bytes_%d", size), func(b *testing.B) {
			b.ReportAllocs()
			b.SetBytes(int64(len(text)))
			for i := 0; i < b.N; i++ {
				_ = Terms(text)
			}
		})
	}
}

func BenchmarkExtractText(b *testing.B) {
	page := "<html><head><title>Apple pie</title><script>var x = 1;</script></head><body>" +
		strings.Repeat("<p>Bake the <b>apple pie</b> for forty minutes.</p>", 50) +
		"</body></html>"
	b.ReportAllocs()
	b.SetBytes(int64(len(page)))
	for i := 0; i < b.N; i++ {
		if _, err := ExtractText(strings.NewReader(page)); err != nil {
			b.Fatal(err)
		}
	}
}
