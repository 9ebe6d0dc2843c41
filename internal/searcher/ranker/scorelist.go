// Package ranker holds evaluation results: the ScoreList, its deterministic
// ordering and top-K selection, and the TREC result writer.
package ranker

import (
	"sort"
)

// ScoredDoc is one result. ExternalID is filled in when results leave the
// engine.
type ScoredDoc struct {
	DocID      int     `json:"doc_id"`
	ExternalID string  `json:"external_id,omitempty"`
	Score      float64 `json:"score"`
}

// before orders by score descending, then internal id ascending.
func before(a, b ScoredDoc) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	return a.DocID < b.DocID
}

// ScoreList accumulates (document, score) pairs in evaluation order.
type ScoreList struct {
	Docs []ScoredDoc `json:"docs"`
}

func NewScoreList() *ScoreList {
	return &ScoreList{}
}

func (l *ScoreList) Add(docID int, score float64) {
	l.Docs = append(l.Docs, ScoredDoc{DocID: docID, Score: score})
}

func (l *ScoreList) Len() int {
	return len(l.Docs)
}

// Sort orders the list by score descending with ties broken by ascending
// document id.
func (l *ScoreList) Sort() {
	sort.SliceStable(l.Docs, func(i, j int) bool {
		return before(l.Docs[i], l.Docs[j])
	})
}

// Truncate keeps at most the first k entries.
func (l *ScoreList) Truncate(k int) {
	if k >= 0 && len(l.Docs) > k {
		l.Docs = l.Docs[:k]
	}
}

// Top returns the best k entries in sorted order without sorting the list.
func (l *ScoreList) Top(k int) []ScoredDoc {
	return TopK(l.Docs, k)
}
