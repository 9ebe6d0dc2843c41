package letor

import (
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/Structured-Query-Engine/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Structured-Query-Engine/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func script(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755))
	return path
}

func TestRankerLearnAndClassify(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("needs /bin/sh")
	}
	dir := t.TempDir()
	learn := script(t, dir, "learn", `echo "$@" > "$4"; echo "training done"`)
	classify := script(t, dir, "classify", `echo "reading $1" >&2; printf '0.5\n-1\n' > "$3"`)
	mt := metrics.New(prometheus.NewRegistry())
	r := NewRanker(learn, classify, 0.001, mt)

	feat := filepath.Join(dir, "train.feat")
	modelFile := filepath.Join(dir, "model")
	require.NoError(t, r.Learn(context.Background(), feat, modelFile))
	got, err := os.ReadFile(modelFile)
	require.NoError(t, err)
	assert.Equal(t, "-c 0.001 "+feat+" "+modelFile, strings.TrimSpace(string(got)))

	preds := filepath.Join(dir, "preds")
	require.NoError(t, r.Classify(context.Background(), feat, modelFile, preds))
	f, err := os.Open(preds)
	require.NoError(t, err)
	defer f.Close()
	scores, err := ReadScores(f)
	require.NoError(t, err)
	assert.Equal(t, []float64{0.5, -1}, scores)

	assert.Equal(t, float64(1), testutil.ToFloat64(mt.RankerRunsTotal.WithLabelValues("learn", "ok")))
	assert.Equal(t, float64(1), testutil.ToFloat64(mt.RankerRunsTotal.WithLabelValues("classify", "ok")))
}

func TestRankerFailure(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("needs /bin/sh")
	}
	dir := t.TempDir()
	fail := script(t, dir, "fail", `echo "bad input" >&2; exit 3`)
	mt := metrics.New(prometheus.NewRegistry())
	r := NewRanker(fail, filepath.Join(dir, "does-not-exist"), 1, mt)

	err := r.Learn(context.Background(), "a", "b")
	assert.True(t, stderrors.Is(err, errors.ErrSubprocess))

	err = r.Classify(context.Background(), "a", "b", "c")
	assert.True(t, stderrors.Is(err, errors.ErrSubprocess))

	assert.Equal(t, float64(1), testutil.ToFloat64(mt.RankerRunsTotal.WithLabelValues("learn", "error")))
	assert.Equal(t, float64(1), testutil.ToFloat64(mt.RankerRunsTotal.WithLabelValues("classify", "error")))
}
