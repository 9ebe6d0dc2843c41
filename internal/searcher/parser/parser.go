// Package parser turns structured query text into a Node tree and
// simplifies it.
//
// Operators: #or #and #sum #wsum #wand #syn #near/N #window/N, matched
// case-insensitively. Terms are written term or term.field with field one of
// body, title, url, inlink, keywords.
package parser

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/Structured-Query-Engine/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Structured-Query-Engine/internal/searcher/model"
	"github.com/Adithya-Monish-Kumar-K/Structured-Query-Engine/pkg/errors"
)

// Analyzer applies the index's lexical processing to a raw query term. It may
// return zero tokens (stopwords) or several (compounds).
type Analyzer interface {
	Analyze(text string) []string
}

type Parser struct {
	analyzer Analyzer
}

func New(analyzer Analyzer) *Parser {
	return &Parser{analyzer: analyzer}
}

var weightPattern = regexp.MustCompile(`^\d*\.?\d+$`)

// Parse wraps query in the model's default operator and builds its tree.
func (p *Parser) Parse(query string, m model.Model) (*Node, error) {
	tokens := lex(m.DefaultOperator() + "(" + query + ")")

	var (
		stack          []*Node
		root           *Node
		weightExpected bool
		openExpected   string
	)
	for _, tok := range tokens {
		if root != nil {
			return nil, errors.Syntaxf("unexpected %q after the top-level operator closed", tok)
		}
		if openExpected != "" && tok != "(" {
			return nil, errors.Syntaxf("%s must be followed by (", openExpected)
		}
		switch {
		case tok == "(":
			if openExpected == "" {
				return nil, errors.Syntaxf("( must follow an operator")
			}
			openExpected = ""

		case tok == ")":
			if len(stack) == 0 {
				return nil, errors.Syntaxf("unbalanced parentheses")
			}
			n := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if err := closeNode(n); err != nil {
				return nil, err
			}
			if len(stack) == 0 {
				root = n
				continue
			}
			if err := appendChild(stack[len(stack)-1], n); err != nil {
				return nil, err
			}
			weightExpected = true

		case strings.HasPrefix(tok, "#"):
			n, err := newOperator(tok)
			if err != nil {
				return nil, err
			}
			stack = append(stack, n)
			weightExpected = n.Kind.Weighted()
			openExpected = tok

		default:
			if len(stack) == 0 {
				return nil, errors.Syntaxf("term %q outside the query", tok)
			}
			top := stack[len(stack)-1]
			if top.Kind.Weighted() && weightExpected {
				if !weightPattern.MatchString(tok) {
					return nil, errors.Syntaxf("%s expects a weight before %q", top.Kind, tok)
				}
				w, err := strconv.ParseFloat(tok, 64)
				if err != nil {
					return nil, errors.Syntaxf("bad weight %q", tok)
				}
				top.Weights = append(top.Weights, w)
				weightExpected = false
				continue
			}
			if err := p.appendTerms(top, tok); err != nil {
				return nil, err
			}
			weightExpected = true
		}
	}
	if openExpected != "" {
		return nil, errors.Syntaxf("%s must be followed by (", openExpected)
	}
	if root == nil {
		return nil, errors.Syntaxf("unbalanced parentheses")
	}
	return root, nil
}

// appendTerms analyzes tok and adds one leaf per resulting token. The field
// suffix starts at the first dot and is matched case-insensitively, so a
// dotted term such as 2.0 is read as term "2" in field "0" and rejected. In a
// weighted operator the pending weight is dropped when nothing survives
// analysis and repeated when a compound yields several leaves.
func (p *Parser) appendTerms(parent *Node, tok string) error {
	raw, field := tok, index.FieldBody
	if dot := strings.Index(tok, "."); dot >= 0 {
		f, ok := index.ValidField(tok[dot+1:])
		if !ok {
			return errors.Syntaxf("unknown field %q in %q", tok[dot+1:], tok)
		}
		raw, field = tok[:dot], f
	}

	terms := p.analyzer.Analyze(raw)
	weighted := parent.Kind.Weighted()
	if len(terms) == 0 {
		if weighted && len(parent.Weights) > len(parent.Children) {
			parent.Weights = parent.Weights[:len(parent.Weights)-1]
		}
		return nil
	}
	for i, term := range terms {
		if weighted && i > 0 && len(parent.Weights) > 0 {
			parent.Weights = append(parent.Weights, parent.Weights[len(parent.Weights)-1])
		}
		parent.Children = append(parent.Children, NewTerm(term, field))
	}
	return nil
}

func newOperator(tok string) (*Node, error) {
	lower := strings.ToLower(tok)
	switch lower {
	case "#or":
		return NewOp(KindOr), nil
	case "#and":
		return NewOp(KindAnd), nil
	case "#sum":
		return NewOp(KindSum), nil
	case "#wsum":
		return NewOp(KindWSum), nil
	case "#wand":
		return NewOp(KindWAnd), nil
	case "#syn":
		return NewOp(KindSyn), nil
	}

	name, arg, ok := strings.Cut(lower, "/")
	if !ok {
		return nil, errors.Syntaxf("unknown operator %q", tok)
	}
	var kind Kind
	switch name {
	case "#near":
		kind = KindNear
	case "#window":
		kind = KindWindow
	default:
		return nil, errors.Syntaxf("unknown operator %q", tok)
	}
	n, err := strconv.Atoi(arg)
	if err != nil || n < 1 {
		return nil, errors.Syntaxf("%s needs a positive distance, got %q", name, arg)
	}
	return &Node{Kind: kind, Distance: n}, nil
}

func appendChild(parent, child *Node) error {
	if parent.Kind.IsIterator() && !child.Kind.IsIterator() {
		return errors.Syntaxf("%s cannot take the scoring argument %s", parent.Kind, child.Kind)
	}
	parent.Children = append(parent.Children, child)
	return nil
}

// closeNode checks a finished operator: weights must pair with arguments and
// iterator arguments must share one field, which the operator inherits.
func closeNode(n *Node) error {
	if n.Kind.Weighted() && len(n.Weights) != len(n.Children) {
		return errors.Syntaxf("%s has %d weights for %d arguments", n.Kind, len(n.Weights), len(n.Children))
	}
	if n.Kind.IsIterator() && len(n.Children) > 0 {
		n.Field = n.Children[0].Field
		for _, c := range n.Children[1:] {
			if c.Field != n.Field {
				return errors.Syntaxf("%s arguments must share a field (%s vs %s)", n.Kind, n.Field, c.Field)
			}
		}
	}
	return nil
}

// lex splits on whitespace and commas, keeping parentheses as tokens.
func lex(s string) []string {
	var tokens []string
	start := -1
	flush := func(end int) {
		if start >= 0 {
			tokens = append(tokens, s[start:end])
			start = -1
		}
	}
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case ' ', '\t', '\n', '\r', ',':
			flush(i)
		case '(', ')':
			flush(i)
			tokens = append(tokens, s[i:i+1])
		default:
			if start < 0 {
				start = i
			}
		}
	}
	flush(len(s))
	return tokens
}

// BagOfWords reduces query to its analyzed terms in order. Operators,
// weights, parentheses and field suffixes are dropped, so a structured query
// and its plain-text equivalent yield the same terms.
func BagOfWords(query string, analyzer Analyzer) []string {
	var terms []string
	for _, tok := range lex(query) {
		if tok == "(" || tok == ")" || strings.HasPrefix(tok, "#") || weightPattern.MatchString(tok) {
			continue
		}
		if dot := strings.Index(tok, "."); dot >= 0 {
			if _, ok := index.ValidField(tok[dot+1:]); ok {
				tok = tok[:dot]
			}
		}
		terms = append(terms, analyzer.Analyze(tok)...)
	}
	return terms
}
