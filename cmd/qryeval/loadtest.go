package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/Structured-Query-Engine/internal/pipeline"
)

var loadtestCmd = &cobra.Command{
	Use:   "loadtest",
	Short: "Replay a query file against a running 'qryeval serve'",
	Example: `  # 20 workers for one minute against a local server
  qryeval loadtest --url http://localhost:8080 --queries queries.txt --concurrency 20 --duration 1m`,
	Args: cobra.NoArgs,
	RunE: loadtestCmdRun,
}

type loadtestFlags struct {
	baseURL     string
	queries     string
	concurrency int
	duration    time.Duration
	limit       int
}

var loadtestArgs loadtestFlags

func init() {
	loadtestCmd.Flags().StringVar(&loadtestArgs.baseURL, "url", "http://localhost:8080", "Base URL of the search server.")
	loadtestCmd.Flags().StringVar(&loadtestArgs.queries, "queries", "", "Query file, one 'qid:query' per line. Overrides queries.file.")
	loadtestCmd.Flags().IntVar(&loadtestArgs.concurrency, "concurrency", 10, "Number of concurrent workers.")
	loadtestCmd.Flags().DurationVar(&loadtestArgs.duration, "duration", 30*time.Second, "Test duration.")
	loadtestCmd.Flags().IntVar(&loadtestArgs.limit, "limit", 10, "Results requested per query.")
	rootCmd.AddCommand(loadtestCmd)
}

// loadStats collects per-request outcomes from concurrent workers.
type loadStats struct {
	total     atomic.Int64
	succeeded atomic.Int64
	failed    atomic.Int64

	mu        sync.Mutex
	latencies []time.Duration
	codes     map[int]int64
}

func newLoadStats() *loadStats {
	return &loadStats{codes: make(map[int]int64)}
}

func (s *loadStats) record(latency time.Duration, code int, err error) {
	s.total.Add(1)
	if err != nil {
		s.failed.Add(1)
		return
	}
	if code >= 200 && code < 300 {
		s.succeeded.Add(1)
	} else {
		s.failed.Add(1)
	}

	s.mu.Lock()
	s.latencies = append(s.latencies, latency)
	s.codes[code]++
	s.mu.Unlock()
}

func loadtestCmdRun(cmd *cobra.Command, args []string) error {
	queryFile := firstNonEmpty(loadtestArgs.queries, cfg.Queries.File)
	if queryFile == "" {
		return errors.New("no query file: set --queries or queries.file")
	}
	queries, err := pipeline.LoadQueries(queryFile)
	if err != nil {
		return err
	}
	if len(queries) == 0 {
		return fmt.Errorf("query file %s is empty", queryFile)
	}
	if loadtestArgs.concurrency < 1 {
		return fmt.Errorf("concurrency must be positive, got %d", loadtestArgs.concurrency)
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), loadtestArgs.duration)
	defer cancel()

	stats, err := replay(ctx, loadtestArgs.baseURL, queries, cfg.Retrieval.Algorithm, loadtestArgs.concurrency, loadtestArgs.limit)
	if err != nil {
		return err
	}
	printLoadReport(cmd.OutOrStdout(), stats, loadtestArgs.duration)
	if stats.total.Load() == 0 {
		return errors.New("no requests completed; is the server running?")
	}
	return nil
}

func replay(ctx context.Context, baseURL string, queries []pipeline.Query, modelName string, concurrency, limit int) (*loadStats, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing url %q: %w", baseURL, err)
	}
	base = base.JoinPath("/api/v1/search")

	client := &http.Client{
		Timeout: 10 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        concurrency * 2,
			MaxIdleConnsPerHost: concurrency * 2,
			IdleConnTimeout:     90 * time.Second,
		},
	}
	defer client.CloseIdleConnections()

	stats := newLoadStats()
	g, ctx := errgroup.WithContext(ctx)
	for w := 0; w < concurrency; w++ {
		w := w
		g.Go(func() error {
			for i := w; ctx.Err() == nil; i++ {
				q := queries[i%len(queries)]
				u := *base
				u.RawQuery = url.Values{
					"q":     {q.Text},
					"model": {modelName},
					"limit": {strconv.Itoa(limit)},
				}.Encode()

				req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
				if err != nil {
					return err
				}
				start := time.Now()
				resp, err := client.Do(req)
				latency := time.Since(start)
				if err != nil {
					if ctx.Err() != nil {
						return nil
					}
					stats.record(latency, 0, err)
					continue
				}
				_, _ = io.Copy(io.Discard, resp.Body)
				resp.Body.Close()
				stats.record(latency, resp.StatusCode, nil)
			}
			return nil
		})
	}
	return stats, g.Wait()
}

func printLoadReport(w io.Writer, stats *loadStats, duration time.Duration) {
	total := stats.total.Load()
	rows := [][]string{
		{"requests", strconv.FormatInt(total, 10)},
		{"succeeded", strconv.FormatInt(stats.succeeded.Load(), 10)},
		{"failed", strconv.FormatInt(stats.failed.Load(), 10)},
	}
	if total > 0 {
		rows = append(rows,
			[]string{"error rate", fmt.Sprintf("%.2f%%", float64(stats.failed.Load())/float64(total)*100)},
			[]string{"requests/sec", fmt.Sprintf("%.2f", float64(total)/duration.Seconds())},
		)
	}

	stats.mu.Lock()
	latencies := slices.Clone(stats.latencies)
	codes := make([]int, 0, len(stats.codes))
	for code := range stats.codes {
		codes = append(codes, code)
	}
	slices.Sort(codes)
	for _, code := range codes {
		rows = append(rows, []string{"status " + strconv.Itoa(code), strconv.FormatInt(stats.codes[code], 10)})
	}
	stats.mu.Unlock()

	if len(latencies) > 0 {
		slices.Sort(latencies)
		var sum time.Duration
		for _, l := range latencies {
			sum += l
		}
		rows = append(rows,
			[]string{"latency min", latencies[0].String()},
			[]string{"latency avg", (sum / time.Duration(len(latencies))).String()},
			[]string{"latency p50", percentile(latencies, 50).String()},
			[]string{"latency p95", percentile(latencies, 95).String()},
			[]string{"latency p99", percentile(latencies, 99).String()},
			[]string{"latency max", latencies[len(latencies)-1].String()},
		)
	}
	printTable(w, []string{"Metric", "Value"}, rows)
}

// percentile expects sorted input.
func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Ceil(p/100*float64(len(sorted)))) - 1
	return sorted[max(0, min(idx, len(sorted)-1))]
}
