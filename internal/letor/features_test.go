package letor

import (
	stderrors "errors"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/Structured-Query-Engine/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rowWith(qid, ext string, slot int, values ...float64) DocFeature {
	r := DocFeature{QueryID: qid, ExternalID: ext}
	for i, v := range values {
		r.Features.Put(slot+i, v)
	}
	return r
}

func slotValues(b *Batch, slot int) []float64 {
	out := make([]float64, 0, b.Len())
	for _, r := range b.Rows {
		out = append(out, r.Features.Get(slot).Value)
	}
	return out
}

func TestNormalizeMinMax(t *testing.T) {
	b := &Batch{}
	b.Add(rowWith("1", "a", 1, 2, 5), rowWith("1", "b", 1, 4, 5), rowWith("2", "c", 1, 6, 5))
	b.Normalize()

	assert.Equal(t, []float64{0, 0.5, 1}, slotValues(b, 1))
	assert.Equal(t, []float64{0, 0, 0}, slotValues(b, 2))
}

func TestNormalizeKeepsAbsent(t *testing.T) {
	b := &Batch{}
	b.Add(rowWith("1", "a", 5, 10), DocFeature{QueryID: "1", ExternalID: "b"}, rowWith("1", "c", 5, 20))
	b.Normalize()

	assert.False(t, b.Rows[1].Features.Get(5).Set)
	assert.Equal(t, Present(0), b.Rows[0].Features.Get(5))
	assert.Equal(t, Present(1), b.Rows[2].Features.Get(5))
	for slot := 1; slot <= NumFeatures; slot++ {
		if slot == 5 {
			continue
		}
		assert.False(t, b.Rows[0].Features.Get(slot).Set, "slot %d", slot)
	}
}

func TestNormalizeNegativeValues(t *testing.T) {
	b := &Batch{}
	b.Add(rowWith("1", "a", 3, -4), rowWith("1", "b", 3, -2), rowWith("1", "c", 3, 0))
	b.Normalize()
	assert.Equal(t, []float64{0, 0.5, 1}, slotValues(b, 3))
}

func TestNewDisableSet(t *testing.T) {
	d, err := NewDisableSet([]int{1, 18})
	require.NoError(t, err)
	assert.True(t, d.Disabled(1))
	assert.True(t, d.Disabled(18))
	assert.False(t, d.Disabled(2))

	for _, bad := range []int{0, 19, -1} {
		_, err := NewDisableSet([]int{bad})
		assert.True(t, stderrors.Is(err, errors.ErrInvalidParameter), "slot %d", bad)
	}

	var none DisableSet
	assert.False(t, none.Disabled(3))
}

func TestApplyScoresAndRerank(t *testing.T) {
	b := &Batch{}
	b.Add(
		DocFeature{QueryID: "20", ExternalID: "x"},
		DocFeature{QueryID: "20", ExternalID: "y"},
		DocFeature{QueryID: "7", ExternalID: "z"},
		DocFeature{QueryID: "20", ExternalID: "w"},
	)
	require.NoError(t, b.ApplyScores([]float64{0.1, 0.9, -1, 0.1}))

	rankings := b.Rerank()
	require.Len(t, rankings, 2)
	assert.Equal(t, "20", rankings[0].QueryID)
	assert.Equal(t, "7", rankings[1].QueryID)

	var ids []string
	for _, d := range rankings[0].Docs {
		ids = append(ids, d.ExternalID)
	}
	assert.Equal(t, []string{"y", "x", "w"}, ids)
}

func TestApplyScoresCountMismatch(t *testing.T) {
	b := &Batch{}
	b.Add(DocFeature{QueryID: "1", ExternalID: "a"})

	err := b.ApplyScores([]float64{1, 2})
	assert.True(t, stderrors.Is(err, errors.ErrInvalidInput))
	err = b.ApplyScores(nil)
	assert.True(t, stderrors.Is(err, errors.ErrInvalidInput))
}
