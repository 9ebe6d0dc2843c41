package operator

import (
	"math"

	"github.com/Adithya-Monish-Kumar-K/Structured-Query-Engine/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Structured-Query-Engine/internal/searcher/model"
	"github.com/Adithya-Monish-Kumar-K/Structured-Query-Engine/internal/searcher/parser"
)

// termScoring is one model's scoring of a single iterator.
type termScoring interface {
	score(it *Iterator, doc int) float64
	defaultScore(it *Iterator, doc int) float64
}

type unrankedTerm struct{}

func (unrankedTerm) score(*Iterator, int) float64        { return 1 }
func (unrankedTerm) defaultScore(*Iterator, int) float64 { return 0 }

type rankedTerm struct{}

func (rankedTerm) score(it *Iterator, _ int) float64   { return float64(it.Posting().TF()) }
func (rankedTerm) defaultScore(*Iterator, int) float64 { return 0 }

type bm25Term struct {
	model   *model.BM25
	reader  index.Reader
	numDocs float64
	avgLen  float64
}

func newBM25Term(m *model.BM25, r index.Reader, field string) bm25Term {
	avg := 0.0
	if n := r.DocCount(field); n > 0 {
		avg = float64(r.SumFieldLength(field)) / float64(n)
	}
	return bm25Term{model: m, reader: r, numDocs: float64(r.NumDocs()), avgLen: avg}
}

func (t bm25Term) score(it *Iterator, doc int) float64 {
	return t.model.TermScore(
		float64(it.Posting().TF()),
		float64(it.Df()),
		t.numDocs,
		float64(t.reader.FieldLength(it.Field(), doc)),
		t.avgLen,
	)
}

func (bm25Term) defaultScore(*Iterator, int) float64 { return 0 }

type indriTerm struct {
	model      *model.Indri
	reader     index.Reader
	fieldTotal float64
}

func newIndriTerm(m *model.Indri, r index.Reader, field string) indriTerm {
	return indriTerm{model: m, reader: r, fieldTotal: float64(r.SumFieldLength(field))}
}

func (t indriTerm) score(it *Iterator, doc int) float64 {
	return t.scoreTF(it, doc, float64(it.Posting().TF()))
}

func (t indriTerm) defaultScore(it *Iterator, doc int) float64 {
	return t.scoreTF(it, doc, 0)
}

func (t indriTerm) scoreTF(it *Iterator, doc int, tf float64) float64 {
	docLen := float64(t.reader.FieldLength(it.Field(), doc))
	return t.model.TermScore(tf, float64(it.Ctf()), t.fieldTotal, docLen)
}

// ScoreOp adapts an iterator to a scoring parent.
type ScoreOp struct {
	arg     *Iterator
	scoring termScoring
}

func (s *ScoreOp) HasMatch() bool        { return s.arg.HasMatch() }
func (s *ScoreOp) Match() int            { return s.arg.Match() }
func (s *ScoreOp) AdvancePast(docID int) { s.arg.AdvancePast(docID) }
func (s *ScoreOp) AdvanceTo(docID int)   { s.arg.AdvanceTo(docID) }
func (s *ScoreOp) Score() float64        { return s.scoring.score(s.arg, s.arg.Match()) }
func (s *ScoreOp) Iterator() *Iterator   { return s.arg }
func (s *ScoreOp) DefaultScore(doc int) float64 {
	return s.scoring.defaultScore(s.arg, doc)
}

// booleanOp is #and / #or under the boolean models.
type booleanOp struct {
	combiner
	kind   parser.Kind
	ranked bool
}

func (s *booleanOp) Score() float64 {
	if !s.ranked {
		return 1
	}
	doc := s.doc
	var best float64
	first := true
	for _, a := range s.args {
		if !a.HasMatch() || a.Match() != doc {
			continue
		}
		v := a.Score()
		switch {
		case first:
			best = v
		case s.kind == parser.KindAnd:
			best = math.Min(best, v)
		default:
			best = math.Max(best, v)
		}
		first = false
	}
	return best
}

func (*booleanOp) DefaultScore(int) float64 { return 0 }

// sumOp is BM25 #sum: the sum of the arguments that match.
type sumOp struct {
	combiner
}

func (s *sumOp) Score() float64 {
	var total float64
	for _, a := range s.args {
		if a.HasMatch() && a.Match() == s.doc {
			total += a.Score()
		}
	}
	return total
}

func (*sumOp) DefaultScore(int) float64 { return 0 }

// indriOp is #and, #or, #wand or #wsum under Indri. weights are already
// normalized to sum to 1.
type indriOp struct {
	combiner
	kind    parser.Kind
	weights []float64
}

func (s *indriOp) Score() float64 {
	doc := s.doc
	return s.combine(func(a Scorer) float64 { return scoreOrDefault(a, doc) })
}

func (s *indriOp) DefaultScore(doc int) float64 {
	return s.combine(func(a Scorer) float64 { return a.DefaultScore(doc) })
}

func (s *indriOp) combine(value func(Scorer) float64) float64 {
	switch s.kind {
	case parser.KindOr:
		miss := 1.0
		for _, a := range s.args {
			miss *= 1 - value(a)
		}
		return 1 - miss
	case parser.KindWSum:
		var total float64
		for i, a := range s.args {
			total += s.weights[i] * value(a)
		}
		return total
	default:
		product := 1.0
		for i, a := range s.args {
			product *= math.Pow(value(a), s.weights[i])
		}
		return product
	}
}
