package ranker

import (
	"container/heap"
)

// TopK selects the best k docs (score descending, id ascending) with a
// bounded min-heap. A non-positive k selects everything.
func TopK(docs []ScoredDoc, k int) []ScoredDoc {
	if k <= 0 || k > len(docs) {
		k = len(docs)
	}
	if k == 0 {
		return nil
	}
	h := make(worstFirst, 0, k+1)
	for _, doc := range docs {
		if h.Len() < k {
			heap.Push(&h, doc)
			continue
		}
		if before(doc, h[0]) {
			h[0] = doc
			heap.Fix(&h, 0)
		}
	}
	result := make([]ScoredDoc, h.Len())
	for i := len(result) - 1; i >= 0; i-- {
		result[i] = heap.Pop(&h).(ScoredDoc)
	}
	return result
}

// worstFirst keeps the lowest-ranked doc at the root.
type worstFirst []ScoredDoc

func (h worstFirst) Len() int           { return len(h) }
func (h worstFirst) Less(i, j int) bool { return before(h[j], h[i]) }
func (h worstFirst) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *worstFirst) Push(x any) {
	*h = append(*h, x.(ScoredDoc))
}

func (h *worstFirst) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
