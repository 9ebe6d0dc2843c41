package parser

// Optimize returns a simplified copy of n, or nil when nothing evaluable is
// left. Children are rebuilt bottom-up: a child that optimizes to nil is
// dropped with its weight, an operator left without children disappears, and
// any operator other than Score left with one child is replaced by it. n is
// not modified.
func Optimize(n *Node) *Node {
	if n == nil {
		return nil
	}
	if n.Kind == KindTerm {
		return n
	}

	out := &Node{Kind: n.Kind, Field: n.Field, Distance: n.Distance}
	for i, c := range n.Children {
		oc := Optimize(c)
		if oc == nil {
			continue
		}
		out.Children = append(out.Children, oc)
		if n.Kind.Weighted() && i < len(n.Weights) {
			out.Weights = append(out.Weights, n.Weights[i])
		}
	}

	switch {
	case len(out.Children) == 0:
		return nil
	case len(out.Children) == 1 && out.Kind != KindScore:
		return out.Children[0]
	}
	return out
}
