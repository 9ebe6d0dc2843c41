// Package operator evaluates query trees document-at-a-time.
//
// Iterators (terms, #syn, #near, #window) materialize their inverted list
// when built and expose document and position cursors over it. Scorers
// combine their arguments' matches and scores under one retrieval model.
// A tree is consumed by a single evaluation.
package operator

import (
	"context"

	"github.com/Adithya-Monish-Kumar-K/Structured-Query-Engine/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Structured-Query-Engine/internal/searcher/ranker"
)

// Operator is the document cursor protocol shared by every node. Match
// reports index.Invalid once the operator is exhausted.
type Operator interface {
	HasMatch() bool
	Match() int
	AdvancePast(docID int)
	AdvanceTo(docID int)
}

// Scorer is an operator that scores its current match. DefaultScore is the
// score the operator contributes to a document it does not match; it is zero
// except under models with smoothing.
type Scorer interface {
	Operator
	Score() float64
	DefaultScore(docID int) float64
}

const cancelCheckInterval = 1024

// Evaluate drains root in increasing document order and returns every match
// with its score, unsorted.
func Evaluate(ctx context.Context, root Scorer) (*ranker.ScoreList, error) {
	results := ranker.NewScoreList()
	for n := 0; root.HasMatch(); n++ {
		if n%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		doc := root.Match()
		results.Add(doc, root.Score())
		root.AdvancePast(doc)
	}
	return results, nil
}

// scoreOrDefault is a's score when it matches doc and its default otherwise.
func scoreOrDefault(a Scorer, doc int) float64 {
	if a.HasMatch() && a.Match() == doc {
		return a.Score()
	}
	return a.DefaultScore(doc)
}

// matchAll positions every argument on the first document they all match.
func matchAll(args []Scorer) (int, bool) {
	if len(args) == 0 {
		return index.Invalid, false
	}
	for {
		if !args[0].HasMatch() {
			return index.Invalid, false
		}
		doc := args[0].Match()
		aligned := true
		for _, a := range args[1:] {
			a.AdvanceTo(doc)
			if !a.HasMatch() {
				return index.Invalid, false
			}
			if d := a.Match(); d != doc {
				args[0].AdvanceTo(d)
				aligned = false
				break
			}
		}
		if aligned {
			return doc, true
		}
	}
}

// matchMin returns the smallest document matched by any argument.
func matchMin(args []Scorer) (int, bool) {
	best := index.Invalid
	for _, a := range args {
		if !a.HasMatch() {
			continue
		}
		if d := a.Match(); best == index.Invalid || d < best {
			best = d
		}
	}
	return best, best != index.Invalid
}

// combiner is the cursor state shared by all combining scorers.
type combiner struct {
	args []Scorer
	all  bool
	doc  int
}

func (s *combiner) HasMatch() bool {
	var ok bool
	if s.all {
		s.doc, ok = matchAll(s.args)
	} else {
		s.doc, ok = matchMin(s.args)
	}
	return ok
}

func (s *combiner) Match() int {
	return s.doc
}

func (s *combiner) AdvancePast(docID int) {
	for _, a := range s.args {
		a.AdvancePast(docID)
	}
}

func (s *combiner) AdvanceTo(docID int) {
	for _, a := range s.args {
		a.AdvanceTo(docID)
	}
}
