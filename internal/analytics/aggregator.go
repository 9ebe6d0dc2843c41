package analytics

import (
	"maps"
	"sort"
	"sync"
	"time"
)

type AggregatedStats struct {
	TotalQueries      int64                 `json:"total_queries"`
	FailedQueries     int64                 `json:"failed_queries"`
	CacheHits         int64                 `json:"cache_hits"`
	ZeroResultCount   int64                 `json:"zero_result_count"`
	ExpandedQueries   int64                 `json:"expanded_queries"`
	QueriesByModel    map[string]int64      `json:"queries_by_model"`
	QueriesBySource   map[string]int64      `json:"queries_by_source"`
	Models            map[string]ModelStats `json:"models"`
	AvgLatencyMs      float64               `json:"avg_latency_ms"`
	P50LatencyMs      int64                 `json:"p50_latency_ms"`
	P95LatencyMs      int64                 `json:"p95_latency_ms"`
	P99LatencyMs      int64                 `json:"p99_latency_ms"`
	TopQueries        []QueryCount          `json:"top_queries"`
	ZeroResultQueries []QueryCount          `json:"zero_result_queries"`
	QueriesPerMinute  float64               `json:"queries_per_minute"`
}

// ModelStats breaks the counters down for one retrieval model.
type ModelStats struct {
	Queries     int64 `json:"queries"`
	Failed      int64 `json:"failed"`
	ZeroResults int64 `json:"zero_results"`
	Expanded    int64 `json:"expanded"`
	CacheHits   int64 `json:"cache_hits"`
}

type QueryCount struct {
	Query string `json:"query"`
	Count int64  `json:"count"`
}

// maxLatencySamples bounds memory; older samples are discarded first.
const maxLatencySamples = 10000

type Aggregator struct {
	mu                sync.Mutex
	stats             AggregatedStats
	latencies         []int64
	queryCounts       map[string]int64
	zeroResultQueries map[string]int64
	startTime         time.Time
	now               func() time.Time
}

func NewAggregator() *Aggregator {
	return &Aggregator{
		stats: AggregatedStats{
			QueriesByModel:  make(map[string]int64),
			QueriesBySource: make(map[string]int64),
			Models:          make(map[string]ModelStats),
		},
		latencies:         make([]int64, 0, 1024),
		queryCounts:       make(map[string]int64),
		zeroResultQueries: make(map[string]int64),
		startTime:         time.Now(),
		now:               time.Now,
	}
}

func (a *Aggregator) Record(event QueryEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()

	ms := a.stats.Models[event.Model]
	defer func() { a.stats.Models[event.Model] = ms }()

	a.stats.TotalQueries++
	a.stats.QueriesByModel[event.Model]++
	if event.Source != "" {
		a.stats.QueriesBySource[event.Source]++
	}
	ms.Queries++
	a.queryCounts[event.Query]++
	if event.Expanded {
		a.stats.ExpandedQueries++
		ms.Expanded++
	}
	switch event.Type {
	case EventFailed:
		a.stats.FailedQueries++
		ms.Failed++
		return
	case EventCacheHit:
		a.stats.CacheHits++
		ms.CacheHits++
	}
	if event.TotalHits == 0 {
		a.stats.ZeroResultCount++
		ms.ZeroResults++
		a.zeroResultQueries[event.Query]++
	}
	if len(a.latencies) == maxLatencySamples {
		a.latencies = a.latencies[1:]
	}
	a.latencies = append(a.latencies, event.LatencyMs)
}

func (a *Aggregator) Stats() AggregatedStats {
	a.mu.Lock()
	defer a.mu.Unlock()

	stats := a.stats
	stats.QueriesByModel = maps.Clone(a.stats.QueriesByModel)
	stats.QueriesBySource = maps.Clone(a.stats.QueriesBySource)
	stats.Models = maps.Clone(a.stats.Models)
	if len(a.latencies) > 0 {
		sorted := make([]int64, len(a.latencies))
		copy(sorted, a.latencies)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

		var sum int64
		for _, l := range sorted {
			sum += l
		}
		stats.AvgLatencyMs = float64(sum) / float64(len(sorted))
		stats.P50LatencyMs = percentile(sorted, 50)
		stats.P95LatencyMs = percentile(sorted, 95)
		stats.P99LatencyMs = percentile(sorted, 99)
	}
	stats.TopQueries = topN(a.queryCounts, 10)
	stats.ZeroResultQueries = topN(a.zeroResultQueries, 10)
	if elapsed := a.now().Sub(a.startTime).Minutes(); elapsed > 0 {
		stats.QueriesPerMinute = float64(stats.TotalQueries) / elapsed
	}
	return stats
}

func percentile(sorted []int64, pct int) int64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := (pct * len(sorted)) / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func topN(counts map[string]int64, n int) []QueryCount {
	result := make([]QueryCount, 0, len(counts))
	for query, count := range counts {
		result = append(result, QueryCount{Query: query, Count: count})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Query < result[j].Query
	})
	if len(result) > n {
		result = result[:n]
	}
	return result
}
