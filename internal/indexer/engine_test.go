package indexer

import (
	"context"
	"strings"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/Structured-Query-Engine/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Structured-Query-Engine/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Structured-Query-Engine/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Structured-Query-Engine/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const corpus = `
{"id":"GX000-00","attributes":{"rawUrl":"http://en.wikipedia.org/wiki/Dog"},"fields":{"body":"Dogs chase cats","title":"Dog"}}
{"id":"GX000-01","html":true,"fields":{"body":"<p>A <b>cat</b> sleeps</p><script>x()</script>"}}
`

func TestIndexFlushReopen(t *testing.T) {
	dir := t.TempDir()
	m := metrics.New(prometheus.NewRegistry())

	e, err := Open(config.IndexConfig{DataDir: dir}, m)
	require.NoError(t, err)
	assert.ErrorIs(t, e.Ping(context.Background()), errors.ErrNotFound)

	docs, err := ReadJSONL(strings.NewReader(corpus))
	require.NoError(t, err)
	require.Len(t, docs, 2)
	for _, d := range docs {
		require.NoError(t, e.IndexDocument(d))
	}
	assert.Equal(t, 2.0, testutil.ToFloat64(m.DocsIndexedTotal))

	name, err := e.Flush()
	require.NoError(t, err)
	assert.NotEmpty(t, name)

	name, err = e.Flush()
	require.NoError(t, err)
	assert.Empty(t, name)

	reopened, err := Open(config.IndexConfig{DataDir: dir}, nil)
	require.NoError(t, err)
	require.NoError(t, reopened.Ping(context.Background()))
	assert.Equal(t, 2, reopened.NumDocs())

	tv := reopened.TermVector(1, index.FieldBody)
	assert.Equal(t, []string{"cat", "sleep"}, tv.Stems)
	assert.Equal(t, 1, reopened.Postings("dog", index.FieldTitle).Df())

	var _ index.Reader = reopened
}

func TestReadJSONLRejectsGarbage(t *testing.T) {
	_, err := ReadJSONL(strings.NewReader("{\"id\":\"a\"}\nnot json\n"))
	assert.ErrorIs(t, err, errors.ErrInvalidInput)
}
