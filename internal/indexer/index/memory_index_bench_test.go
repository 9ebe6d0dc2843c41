package index

import (
	"fmt"
	"strings"
	"testing"
)

var benchBody = strings.Fields("this is a benchmark document with several terms for testing the indexing performance of the memory index")

func benchIndex(b *testing.B, n int) *MemoryIndex {
	b.Helper()
	m := NewMemoryIndex()
	for i := 0; i < n; i++ {
		_, err := m.AddDocument(Document{
			ExternalID: fmt.Sprintf("doc-%d", i),
			Fields: map[string][]string{
				FieldTitle: {"structured", "search"},
				FieldBody:  benchBody,
			},
		})
		if err != nil {
			b.Fatal(err)
		}
	}
	return m
}

func BenchmarkAddDocument(b *testing.B) {
	m := NewMemoryIndex()
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, err := m.AddDocument(Document{
			ExternalID: fmt.Sprintf("doc-%d", i),
			Fields:     map[string][]string{FieldTitle: {"benchmark", "title"}, FieldBody: benchBody},
		})
		if err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkPostings(b *testing.B) {
	m := benchIndex(b, 10000)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if m.Postings("benchmark", FieldBody).Df() == 0 {
			b.Fatal("empty postings")
		}
	}
}

func BenchmarkPostingsParallel(b *testing.B) {
	m := benchIndex(b, 10000)
	b.ReportAllocs()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_ = m.Postings("search", FieldTitle)
		}
	})
}

func BenchmarkTermVector(b *testing.B) {
	m := benchIndex(b, 5000)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = m.TermVector(i%5000, FieldBody)
	}
}
