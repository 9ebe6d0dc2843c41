package main

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Structured-Query-Engine/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/Structured-Query-Engine/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/Structured-Query-Engine/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/Structured-Query-Engine/internal/runstore"
	"github.com/Adithya-Monish-Kumar-K/Structured-Query-Engine/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/Structured-Query-Engine/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Structured-Query-Engine/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Structured-Query-Engine/pkg/postgres"
)

// processMetrics registers the collectors with the default registry once per
// process.
var processMetrics = sync.OnceValue(func() *metrics.Metrics {
	return metrics.New(nil)
})

// engineEnv is the index, executor and metrics shared by every subcommand
// that evaluates queries.
type engineEnv struct {
	engine   *indexer.Engine
	exec     *executor.Executor
	metrics  *metrics.Metrics
	closers  []func()
	shutdown func(context.Context) error
}

func newEngineEnv() (*engineEnv, error) {
	m := processMetrics()
	engine, err := indexer.Open(cfg.Index, m)
	if err != nil {
		return nil, fmt.Errorf("opening index: %w", err)
	}
	env := &engineEnv{
		engine:  engine,
		exec:    executor.New(engine, tokenizer.Analyzer{}, m),
		metrics: m,
	}
	if cfg.Metrics.Enabled {
		env.shutdown = m.StartServer(cfg.Metrics.Port)
	}
	return env, nil
}

// withAnalytics starts a collector that aggregates in process and, when
// Kafka is enabled, publishes every event.
func (e *engineEnv) withAnalytics(ctx context.Context, agg *analytics.Aggregator) *analytics.Collector {
	var publisher analytics.Publisher
	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.QueryTopic)
		publisher = producer
		e.closers = append(e.closers, func() {
			if err := producer.Close(); err != nil {
				slog.Error("closing kafka producer", "error", err)
			}
		})
		slog.Info("publishing query events", "topic", cfg.Kafka.QueryTopic, "brokers", cfg.Kafka.Brokers)
	}
	collector := analytics.NewCollector(publisher, agg, 0)
	collector.Start(ctx)
	// Closers run in reverse, so the collector flushes before the producer closes.
	e.closers = append(e.closers, collector.Close)
	return collector
}

// runStore connects the PostgreSQL run store when enabled. A connection
// failure disables persistence rather than the run.
func (e *engineEnv) runStore(ctx context.Context) *runstore.Store {
	if !cfg.Postgres.Enabled {
		return nil
	}
	client, err := postgres.New(cfg.Postgres)
	if err != nil {
		slog.Warn("postgres unavailable, run results will not be persisted", "error", err)
		return nil
	}
	e.closers = append(e.closers, func() { client.Close() })
	store := runstore.New(client)
	if err := store.EnsureSchema(ctx); err != nil {
		slog.Warn("run_results schema unavailable, run results will not be persisted", "error", err)
		return nil
	}
	slog.Info("persisting run results", "host", cfg.Postgres.Host, "database", cfg.Postgres.Database)
	return store
}

func (e *engineEnv) Close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		e.closers[i]()
	}
	if e.shutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := e.shutdown(ctx); err != nil {
			slog.Error("metrics server shutdown", "error", err)
		}
	}
}
