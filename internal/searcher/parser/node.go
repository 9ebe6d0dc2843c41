package parser

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind tags the closed set of query node variants.
type Kind int

const (
	KindTerm Kind = iota
	KindOr
	KindAnd
	KindSum
	KindWSum
	KindWAnd
	KindSyn
	KindNear
	KindWindow
	// KindScore adapts an iterator child to a scoring parent. The parser
	// never emits it; operator.Build inserts it.
	KindScore
)

func (k Kind) String() string {
	switch k {
	case KindTerm:
		return "term"
	case KindOr:
		return "#or"
	case KindAnd:
		return "#and"
	case KindSum:
		return "#sum"
	case KindWSum:
		return "#wsum"
	case KindWAnd:
		return "#wand"
	case KindSyn:
		return "#syn"
	case KindNear:
		return "#near"
	case KindWindow:
		return "#window"
	case KindScore:
		return "#score"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// IsIterator reports whether nodes of this kind produce postings with
// positions rather than scores.
func (k Kind) IsIterator() bool {
	switch k {
	case KindTerm, KindSyn, KindNear, KindWindow:
		return true
	}
	return false
}

// Weighted reports whether children carry a parallel weight list.
func (k Kind) Weighted() bool {
	return k == KindWSum || k == KindWAnd
}

// Node is one query tree node. Field is set on terms and on iterator
// operators (inherited from their arguments). Weights is parallel to
// Children for weighted kinds.
type Node struct {
	Kind     Kind
	Term     string
	Field    string
	Distance int
	Children []*Node
	Weights  []float64
}

func NewTerm(term, field string) *Node {
	return &Node{Kind: KindTerm, Term: term, Field: field}
}

func NewOp(kind Kind, children ...*Node) *Node {
	return &Node{Kind: kind, Children: children}
}

// Size counts the nodes of the tree rooted at n.
func (n *Node) Size() int {
	if n == nil {
		return 0
	}
	size := 1
	for _, c := range n.Children {
		size += c.Size()
	}
	return size
}

// String renders n in query syntax with explicit fields and weights. The
// output parses back to an equivalent tree.
func (n *Node) String() string {
	if n == nil {
		return ""
	}
	if n.Kind == KindTerm {
		return n.Term + "." + n.Field
	}
	var b strings.Builder
	b.WriteString(n.Kind.String())
	if n.Kind == KindNear || n.Kind == KindWindow {
		b.WriteString("/")
		b.WriteString(strconv.Itoa(n.Distance))
	}
	b.WriteByte('(')
	for i, c := range n.Children {
		if i > 0 {
			b.WriteByte(' ')
		}
		if n.Kind.Weighted() && i < len(n.Weights) {
			b.WriteString(strconv.FormatFloat(n.Weights[i], 'g', -1, 64))
			b.WriteByte(' ')
		}
		b.WriteString(c.String())
	}
	b.WriteByte(')')
	return b.String()
}
