// Package letor computes learning-to-rank feature vectors, normalizes them
// per batch, exchanges them with an external ranker and re-orders results by
// the ranker's predictions.
package letor

import (
	"fmt"
	"net/http"
	"sort"

	"github.com/Adithya-Monish-Kumar-K/Structured-Query-Engine/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Structured-Query-Engine/pkg/errors"
)

const NumFeatures = config.NumFeatures

// Feature slots, 1-based as written to the exchange format.
const (
	FeatureSpam = iota + 1
	FeatureURLDepth
	FeatureWikipedia
	FeaturePageRank
	FeatureBodyBM25
	FeatureBodyIndri
	FeatureBodyOverlap
	FeatureTitleBM25
	FeatureTitleIndri
	FeatureTitleOverlap
	FeatureURLBM25
	FeatureURLIndri
	FeatureURLOverlap
	FeatureInlinkBM25
	FeatureInlinkIndri
	FeatureInlinkOverlap
	FeatureKeywordOverlap
	FeatureURLComplexity
)

// Feature is one slot of a vector. An unset feature is absent, which is
// distinct from a present zero: it is skipped by normalization and never
// serialized.
type Feature struct {
	Value float64
	Set   bool
}

func Present(v float64) Feature {
	return Feature{Value: v, Set: true}
}

// Vector is indexed by slot-1.
type Vector [NumFeatures]Feature

// Get returns the feature in 1-based slot.
func (v *Vector) Get(slot int) Feature {
	return v[slot-1]
}

func (v *Vector) Put(slot int, value float64) {
	v[slot-1] = Present(value)
}

// DocFeature is one (query, document) row.
type DocFeature struct {
	Relevance  int
	QueryID    string
	ExternalID string
	Features   Vector
	Predicted  float64
}

// DisableSet holds 1-based slots left out of serialized rows.
type DisableSet map[int]struct{}

// NewDisableSet validates slots against 1..NumFeatures.
func NewDisableSet(slots []int) (DisableSet, error) {
	set := make(DisableSet, len(slots))
	for _, s := range slots {
		if s < 1 || s > NumFeatures {
			return nil, errors.Newf(errors.ErrInvalidParameter, http.StatusBadRequest,
				"feature slot %d outside 1..%d", s, NumFeatures)
		}
		set[s] = struct{}{}
	}
	return set, nil
}

func (d DisableSet) Disabled(slot int) bool {
	_, ok := d[slot]
	return ok
}

// Batch accumulates rows across every query of a run, in extraction order.
type Batch struct {
	Rows []DocFeature
}

func (b *Batch) Add(rows ...DocFeature) {
	b.Rows = append(b.Rows, rows...)
}

func (b *Batch) Len() int {
	return len(b.Rows)
}

// Normalize min-max scales every slot over the present values of the batch.
// A slot whose present values are all equal becomes 0. Absent values stay
// absent.
func (b *Batch) Normalize() {
	for s := 0; s < NumFeatures; s++ {
		var lo, hi float64
		seen := false
		for i := range b.Rows {
			f := b.Rows[i].Features[s]
			if !f.Set {
				continue
			}
			if !seen {
				lo, hi, seen = f.Value, f.Value, true
				continue
			}
			if f.Value < lo {
				lo = f.Value
			}
			if f.Value > hi {
				hi = f.Value
			}
		}
		if !seen {
			continue
		}
		span := hi - lo
		for i := range b.Rows {
			f := &b.Rows[i].Features[s]
			if !f.Set {
				continue
			}
			if span == 0 {
				f.Value = 0
			} else {
				f.Value = (f.Value - lo) / span
			}
		}
	}
}

// ApplyScores assigns predictions to rows positionally. The ranker emits one
// score per input row, so any other count is an error.
func (b *Batch) ApplyScores(scores []float64) error {
	if len(scores) != len(b.Rows) {
		return fmt.Errorf("%w: %d predictions for %d feature rows", errors.ErrInvalidInput, len(scores), len(b.Rows))
	}
	for i, s := range scores {
		b.Rows[i].Predicted = s
	}
	return nil
}

// Ranking is one query's documents in predicted order.
type Ranking struct {
	QueryID string
	Docs    []DocFeature
}

// Rerank groups rows by query in order of first appearance and sorts each
// group by predicted score, highest first. Equal predictions keep extraction
// order.
func (b *Batch) Rerank() []Ranking {
	var order []string
	groups := make(map[string][]DocFeature)
	for _, row := range b.Rows {
		if _, ok := groups[row.QueryID]; !ok {
			order = append(order, row.QueryID)
		}
		groups[row.QueryID] = append(groups[row.QueryID], row)
	}
	out := make([]Ranking, 0, len(order))
	for _, qid := range order {
		docs := groups[qid]
		sort.SliceStable(docs, func(i, j int) bool {
			return docs[i].Predicted > docs[j].Predicted
		})
		out = append(out, Ranking{QueryID: qid, Docs: docs})
	}
	return out
}
