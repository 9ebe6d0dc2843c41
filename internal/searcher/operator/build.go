package operator

import (
	"net/http"

	"github.com/Adithya-Monish-Kumar-K/Structured-Query-Engine/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Structured-Query-Engine/internal/searcher/model"
	"github.com/Adithya-Monish-Kumar-K/Structured-Query-Engine/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/Structured-Query-Engine/pkg/errors"
)

// supported lists the scoring operators each model evaluates. Score is
// implied for every model.
var supported = map[model.Kind][]parser.Kind{
	model.KindUnrankedBoolean: {parser.KindOr, parser.KindAnd},
	model.KindRankedBoolean:   {parser.KindOr, parser.KindAnd},
	model.KindBM25:            {parser.KindSum},
	model.KindIndri:           {parser.KindOr, parser.KindAnd, parser.KindWSum, parser.KindWAnd},
}

// Supports reports whether m can evaluate scoring operator k.
func Supports(m model.Model, k parser.Kind) bool {
	m = model.Scoring(m)
	if k == parser.KindScore {
		_, ok := supported[m.Kind()]
		return ok
	}
	for _, s := range supported[m.Kind()] {
		if s == k {
			return true
		}
	}
	return false
}

type builder struct {
	model  model.Model
	reader index.Reader
}

// Build turns a parsed (and usually optimized) tree into an evaluable
// operator tree for m, materializing every iterator against r. An iterator
// root or an iterator under a scoring operator is wrapped in a ScoreOp.
func Build(n *parser.Node, m model.Model, r index.Reader) (Scorer, error) {
	if n == nil {
		return nil, errors.Syntaxf("query has nothing to evaluate")
	}
	b := &builder{model: model.Scoring(m), reader: r}
	if _, ok := supported[b.model.Kind()]; !ok {
		return nil, errors.Newf(errors.ErrUnsupported, http.StatusBadRequest,
			"%s cannot evaluate queries", m.Kind())
	}
	return b.scorer(n)
}

func (b *builder) scorer(n *parser.Node) (Scorer, error) {
	if n.Kind.IsIterator() {
		it, err := b.iterator(n)
		if err != nil {
			return nil, err
		}
		return b.score(it), nil
	}
	if n.Kind == parser.KindScore {
		if len(n.Children) != 1 || !n.Children[0].Kind.IsIterator() {
			return nil, errors.Syntaxf("#score takes exactly one iterator argument")
		}
		return b.scorer(n.Children[0])
	}
	if !Supports(b.model, n.Kind) {
		return nil, errors.Newf(errors.ErrUnsupported, http.StatusBadRequest,
			"%s does not support the %s operator", b.model.Kind(), n.Kind)
	}

	children := make([]Scorer, 0, len(n.Children))
	for _, c := range n.Children {
		s, err := b.scorer(c)
		if err != nil {
			return nil, err
		}
		children = append(children, s)
	}

	switch b.model.Kind() {
	case model.KindUnrankedBoolean, model.KindRankedBoolean:
		return &booleanOp{
			combiner: combiner{args: children, all: n.Kind == parser.KindAnd},
			kind:     n.Kind,
			ranked:   b.model.Kind() == model.KindRankedBoolean,
		}, nil
	case model.KindBM25:
		return &sumOp{combiner: combiner{args: children}}, nil
	default:
		weights, err := normalizedWeights(n)
		if err != nil {
			return nil, err
		}
		return &indriOp{
			combiner: combiner{args: children},
			kind:     n.Kind,
			weights:  weights,
		}, nil
	}
}

// normalizedWeights returns per-child exponents or coefficients that sum to 1.
// Unweighted operators weigh every child equally.
func normalizedWeights(n *parser.Node) ([]float64, error) {
	weights := make([]float64, len(n.Children))
	if !n.Kind.Weighted() {
		for i := range weights {
			weights[i] = 1 / float64(len(weights))
		}
		return weights, nil
	}
	if len(n.Weights) != len(n.Children) {
		return nil, errors.Syntaxf("%s has %d weights for %d arguments",
			n.Kind, len(n.Weights), len(n.Children))
	}
	var total float64
	for _, w := range n.Weights {
		total += w
	}
	if total <= 0 {
		return nil, errors.Syntaxf("%s weights must sum to a positive value", n.Kind)
	}
	for i, w := range n.Weights {
		weights[i] = w / total
	}
	return weights, nil
}

func (b *builder) iterator(n *parser.Node) (*Iterator, error) {
	if n.Kind == parser.KindTerm {
		return NewTermIterator(b.reader.Postings(n.Term, n.Field)), nil
	}
	args := make([]*Iterator, 0, len(n.Children))
	for _, c := range n.Children {
		if !c.Kind.IsIterator() {
			return nil, errors.Syntaxf("%s arguments must be terms or proximity operators, got %s", n.Kind, c.Kind)
		}
		it, err := b.iterator(c)
		if err != nil {
			return nil, err
		}
		args = append(args, it)
	}
	switch n.Kind {
	case parser.KindSyn:
		return NewSynIterator(n.Field, args)
	case parser.KindNear:
		return NewNearIterator(n.Field, n.Distance, args)
	case parser.KindWindow:
		return NewWindowIterator(n.Field, n.Distance, args)
	}
	return nil, errors.Syntaxf("%s is not an iterator", n.Kind)
}

func (b *builder) score(it *Iterator) *ScoreOp {
	var scoring termScoring
	switch m := b.model.(type) {
	case *model.BM25:
		scoring = newBM25Term(m, b.reader, it.Field())
	case *model.Indri:
		scoring = newIndriTerm(m, b.reader, it.Field())
	case model.RankedBoolean:
		scoring = rankedTerm{}
	default:
		scoring = unrankedTerm{}
	}
	return &ScoreOp{arg: it, scoring: scoring}
}
