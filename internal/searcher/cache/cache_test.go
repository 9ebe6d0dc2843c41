package cache

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Structured-Query-Engine/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/Structured-Query-Engine/internal/searcher/model"
	"github.com/Adithya-Monish-Kumar-K/Structured-Query-Engine/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/Structured-Query-Engine/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	mu   sync.Mutex
	data map[string][]byte
	err  error
}

func newMemStore() *memStore {
	return &memStore{data: make(map[string][]byte)}
}

func (s *memStore) GetBytes(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	v, ok := s.data[key]
	if !ok {
		return nil, goredis.Nil
	}
	return v, nil
}

func (s *memStore) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.data[key] = value
	return nil
}

func (s *memStore) FlushByPattern(_ context.Context, pattern string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prefix := strings.TrimSuffix(pattern, "*")
	var n int64
	for k := range s.data {
		if strings.HasPrefix(k, prefix) {
			delete(s.data, k)
			n++
		}
	}
	return n, nil
}

func result(query string) *executor.Result {
	return &executor.Result{
		Query:     query,
		Model:     "indri",
		TotalHits: 1,
		Results:   []ranker.ScoredDoc{{DocID: 4, ExternalID: "doc-4", Score: 0.25}},
	}
}

func TestBuildKey(t *testing.T) {
	indri, err := model.NewIndri(2500, 0.4)
	require.NoError(t, err)
	other, err := model.NewIndri(1000, 0.4)
	require.NoError(t, err)

	k := BuildKey(indri, "#AND(dog  cat)", 10)
	assert.True(t, strings.HasPrefix(k, keyPrefix))
	assert.Equal(t, k, BuildKey(indri, " #and(dog cat) ", 10))
	assert.NotEqual(t, k, BuildKey(other, "#and(dog cat)", 10))
	assert.NotEqual(t, k, BuildKey(indri, "#and(dog cat)", 20))
	assert.NotEqual(t, k, BuildKey(indri, "#and(cat dog)", 10))
}

func TestGetOrCompute(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	c := New(newMemStore(), time.Minute, m)
	ctx := context.Background()

	var calls atomic.Int32
	compute := func() (*executor.Result, error) {
		calls.Add(1)
		return result("dog"), nil
	}

	res, hit, err := c.GetOrCompute(ctx, model.UnrankedBoolean{}, "dog", 10, compute)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, "doc-4", res.Results[0].ExternalID)

	res, hit, err = c.GetOrCompute(ctx, model.UnrankedBoolean{}, "dog", 10, compute)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, result("dog"), res)
	assert.Equal(t, int32(1), calls.Load())

	hits, misses := c.Stats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(1), misses)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheHitsTotal))
}

func TestComputeErrorIsNotCached(t *testing.T) {
	c := New(newMemStore(), time.Minute, metrics.New(prometheus.NewRegistry()))
	boom := errors.New("boom")

	_, _, err := c.GetOrCompute(context.Background(), model.RankedBoolean{}, "dog", 10,
		func() (*executor.Result, error) { return nil, boom })
	assert.ErrorIs(t, err, boom)

	_, ok := c.Get(context.Background(), model.RankedBoolean{}, "dog", 10)
	assert.False(t, ok)
}

func TestStoreFailureFallsThrough(t *testing.T) {
	store := newMemStore()
	store.err = errors.New("connection refused")
	c := New(store, time.Minute, metrics.New(prometheus.NewRegistry()))

	for i := 0; i < 8; i++ {
		res, hit, err := c.GetOrCompute(context.Background(), model.UnrankedBoolean{}, "dog", 10,
			func() (*executor.Result, error) { return result("dog"), nil })
		require.NoError(t, err)
		assert.False(t, hit)
		assert.Equal(t, "dog", res.Query)
	}
}

func TestInvalidate(t *testing.T) {
	store := newMemStore()
	c := New(store, time.Minute, metrics.New(prometheus.NewRegistry()))
	ctx := context.Background()

	c.Set(ctx, model.UnrankedBoolean{}, "dog", 10, result("dog"))
	c.Set(ctx, model.UnrankedBoolean{}, "cat", 10, result("cat"))
	store.data["unrelated"] = []byte("x")

	require.NoError(t, c.Invalidate(ctx))
	_, ok := c.Get(ctx, model.UnrankedBoolean{}, "dog", 10)
	assert.False(t, ok)
	assert.Contains(t, store.data, "unrelated")
}
