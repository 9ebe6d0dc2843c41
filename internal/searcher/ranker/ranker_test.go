package ranker

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSortTieBreakDeterministic(t *testing.T) {
	build := func(order []int) *ScoreList {
		l := NewScoreList()
		scores := map[int]float64{1: 0.5, 2: 0.9, 3: 0.5, 4: 0.5, 5: 0.9}
		for _, id := range order {
			l.Add(id, scores[id])
		}
		l.Sort()
		return l
	}

	a := build([]int{1, 2, 3, 4, 5})
	b := build([]int{5, 4, 3, 2, 1})
	assert.Equal(t, a.Docs, b.Docs)

	ids := make([]int, 0, a.Len())
	for _, d := range a.Docs {
		ids = append(ids, d.DocID)
	}
	assert.Equal(t, []int{2, 5, 1, 3, 4}, ids)
}

func TestTruncate(t *testing.T) {
	l := NewScoreList()
	for i := 0; i < 5; i++ {
		l.Add(i, float64(i))
	}
	l.Sort()
	l.Truncate(2)
	require.Equal(t, 2, l.Len())
	assert.Equal(t, 4, l.Docs[0].DocID)
	l.Truncate(10)
	assert.Equal(t, 2, l.Len())
}

func TestTopKMatchesSort(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	l := NewScoreList()
	for i := 0; i < 500; i++ {
		l.Add(i, float64(r.Intn(50)))
	}
	top := l.Top(25)

	sorted := &ScoreList{Docs: append([]ScoredDoc(nil), l.Docs...)}
	sorted.Sort()
	assert.Equal(t, sorted.Docs[:25], top)
	assert.Len(t, l.Top(0), 500)
	assert.Nil(t, NewScoreList().Top(3))
}

func TestTrecWriter(t *testing.T) {
	var buf bytes.Buffer
	w := NewTrecWriter(&buf, "run-1", 2)
	require.NoError(t, w.WriteQuery("10", []ScoredDoc{
		{ExternalID: "GX-1", Score: 2.5},
		{ExternalID: "GX-2", Score: 1.25},
		{ExternalID: "GX-3", Score: 1},
	}))
	require.NoError(t, w.WriteQuery("11", nil))
	require.NoError(t, w.Flush())

	assert.Equal(t,
		"10\tQ0\tGX-1\t1\t2.5\trun-1\n"+
			"10\tQ0\tGX-2\t2\t1.25\trun-1\n"+
			"11\tQ0\tdummy\t1\t0\trun-1\n",
		buf.String())
}
