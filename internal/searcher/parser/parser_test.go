package parser

import (
	"strings"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/Structured-Query-Engine/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/Structured-Query-Engine/internal/searcher/model"
	"github.com/Adithya-Monish-Kumar-K/Structured-Query-Engine/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// plain keeps every token as written, so tests control the leaves exactly.
type plain struct{}

func (plain) Analyze(text string) []string {
	if text == "" {
		return nil
	}
	return strings.Split(strings.ToLower(text), "-")
}

var (
	indri, _ = model.NewIndri(2500, 0.4)
	bm25, _  = model.NewBM25(1.2, 0.75, 0)
)

func TestParseFieldedAnd(t *testing.T) {
	root, err := New(tokenizer.Analyzer{}).Parse("#and(dog.title cat)", indri)
	require.NoError(t, err)

	// default #and wrapper around the user's #and
	require.Equal(t, KindAnd, root.Kind)
	require.Len(t, root.Children, 1)

	and := Optimize(root)
	require.Equal(t, KindAnd, and.Kind)
	require.Len(t, and.Children, 2)
	assert.Equal(t, NewTerm("dog", "title"), and.Children[0])
	assert.Equal(t, NewTerm("cat", "body"), and.Children[1])
}

func TestOptimizeCollapsesSingletons(t *testing.T) {
	root, err := New(plain{}).Parse("#and(#and(a))", indri)
	require.NoError(t, err)
	assert.Equal(t, NewTerm("a", "body"), Optimize(root))
}

func TestDefaultOperatorPerModel(t *testing.T) {
	p := New(plain{})

	root, err := p.Parse("a b", bm25)
	require.NoError(t, err)
	assert.Equal(t, KindSum, root.Kind)

	root, err = p.Parse("a b", indri)
	require.NoError(t, err)
	assert.Equal(t, KindAnd, root.Kind)

	root, err = p.Parse("a b", model.RankedBoolean{})
	require.NoError(t, err)
	assert.Equal(t, KindAnd, root.Kind)
}

func TestParseOperators(t *testing.T) {
	tests := []struct {
		query string
		want  string
	}{
		{"#OR(a b)", "#or(a.body b.body)"},
		{"#near/3(a.title b.title)", "#near/3(a.title b.title)"},
		{"#Window/8(a, b)", "#window/8(a.body b.body)"},
		{"#syn(a b.body)", "#syn(a.body b.body)"},
		{"#wand(0.7 a 0.3 #and(b c))", "#wand(0.7 a.body 0.3 #and(b.body c.body))"},
		{"#wsum(.5 a 2 b.url)", "#wsum(0.5 a.body 2 b.url)"},
		{"#sum(#near/1(x-y z))", "#near/1(x.body y.body z.body)"},
		{"a.KEYWORDS b.inlink", "#and(a.keywords b.inlink)"},
	}
	p := New(plain{})
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			root, err := p.Parse(tt.query, indri)
			require.NoError(t, err)
			assert.Equal(t, tt.want, Optimize(root).String())
		})
	}
}

func TestWeightedStopwordDropsWeight(t *testing.T) {
	root, err := New(tokenizer.Analyzer{}).Parse("#wand(0.2 the 0.8 dogs)", indri)
	require.NoError(t, err)
	wand := Optimize(root)
	assert.Equal(t, "dog.body", wand.String())

	root, err = New(tokenizer.Analyzer{}).Parse("#wsum(0.2 the 0.5 cats 0.3 dogs)", indri)
	require.NoError(t, err)
	wsum := Optimize(root)
	require.Equal(t, KindWSum, wsum.Kind)
	assert.Equal(t, []float64{0.5, 0.3}, wsum.Weights)
	assert.Len(t, wsum.Children, 2)
}

func TestWeightedCompoundRepeatsWeight(t *testing.T) {
	root, err := New(plain{}).Parse("#wand(0.4 near-death 0.6 cat)", indri)
	require.NoError(t, err)
	wand := Optimize(root)
	assert.Equal(t, []float64{0.4, 0.4, 0.6}, wand.Weights)
	assert.Len(t, wand.Children, 3)
}

func TestParseSyntaxErrors(t *testing.T) {
	queries := []string{
		"#and(a b",
		"#and(a b))",
		"#and(a)) c",
		"a.anchor",
		"#near/x(a b)",
		"#near(a b)",
		"#window/0(a b)",
		"#foo(a)",
		"#wand(a b)",
		"#wand(0.5 a 0.5)",
		"#near/2(a.title b.body)",
		"#near/2(#and(a b) c)",
		"a (b",
		"(a b)",
		"#and((a b))",
		"#or a b",
		"a b #or",
		"a.title.body",
		"2.0",
	}
	p := New(plain{})
	for _, q := range queries {
		t.Run(q, func(t *testing.T) {
			_, err := p.Parse(q, indri)
			assert.ErrorIs(t, err, errors.ErrSyntax)
		})
	}
}

func TestParsePlainAndNestedQueries(t *testing.T) {
	p := New(plain{})
	for q, want := range map[string]string{
		"dog":                   "#and(dog.body)",
		"#and(dog.title cat)":   "#and(#and(dog.title cat.body))",
		"#or(a #near/2(b c))":   "#and(#or(a.body #near/2(b.body c.body)))",
		"dog.TITLE  cat.Inlink": "#and(dog.title cat.inlink)",
	} {
		t.Run(q, func(t *testing.T) {
			root, err := p.Parse(q, indri)
			require.NoError(t, err)
			assert.Equal(t, want, root.String())
		})
	}
}

func TestOptimizeIsPure(t *testing.T) {
	tree := NewOp(KindAnd, NewOp(KindOr), NewOp(KindSum, NewTerm("a", "body")))
	before := tree.String()

	got := Optimize(tree)
	assert.Equal(t, NewTerm("a", "body"), got)
	assert.Equal(t, before, tree.String())
}

func TestOptimizeKeepsSingleChildScore(t *testing.T) {
	score := NewOp(KindScore, NewTerm("a", "body"))
	assert.Equal(t, score, Optimize(NewOp(KindAnd, score)))
	assert.Nil(t, Optimize(NewOp(KindScore, NewOp(KindOr))))
}

func TestOptimizeDropsWeightsWithChildren(t *testing.T) {
	n := &Node{
		Kind:     KindWSum,
		Children: []*Node{NewTerm("a", "body"), NewOp(KindAnd), NewTerm("c", "body")},
		Weights:  []float64{1, 2, 3},
	}
	got := Optimize(n)
	assert.Equal(t, []float64{1, 3}, got.Weights)
	assert.Equal(t, 5, NewOp(KindAnd, NewTerm("a", "body"), NewOp(KindOr, NewTerm("b", "body"), NewTerm("c", "body"))).Size())
}

func TestLex(t *testing.T) {
	assert.Equal(t, []string{"#and", "(", "a", "b.title", ")"}, lex("#and( a,\tb.title)\n"))
}

func BenchmarkParse(b *testing.B) {
	p := New(tokenizer.Analyzer{})
	q := "#wand(0.6 #and(obama family tree) 0.4 #near/3(family.title tree.title)) #window/8(genealogy records)"
	for i := 0; i < b.N; i++ {
		if _, err := p.Parse(q, indri); err != nil {
			b.Fatal(err)
		}
	}
}

func TestBagOfWords(t *testing.T) {
	a := tokenizer.Analyzer{}
	plainText := BagOfWords("obama family tree", a)
	require.NotEmpty(t, plainText)
	assert.Equal(t, plainText, BagOfWords("#and(obama.title #near/2(family tree))", a))
	assert.Equal(t, plainText, BagOfWords("#wand(0.7 obama.TITLE 0.3 family.body, tree)", a))

	assert.Equal(t, []string{"near", "death", "x.y.title"}, BagOfWords("#or(near-death x.y.title)", plain{}))
	assert.Empty(t, BagOfWords("#and()", plain{}))
}
