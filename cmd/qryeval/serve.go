package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/Structured-Query-Engine/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/Structured-Query-Engine/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/Structured-Query-Engine/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/Structured-Query-Engine/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/Structured-Query-Engine/pkg/middleware"
	pkgredis "github.com/Adithya-Monish-Kumar-K/Structured-Query-Engine/pkg/redis"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve structured queries over HTTP",
	Long: `serve exposes:

  GET  /api/v1/search?q=<query>&model=<model>&limit=<n>
  GET  /api/v1/stats
  POST /api/v1/cache/invalidate
  GET  /health/live, /health/ready
  GET  /metrics

Evaluation is serialized: one query runs against the index at a time.`,
	Args: cobra.NoArgs,
	RunE: serveCmdRun,
}

type serveFlags struct {
	port int
}

var serveArgs serveFlags

func init() {
	serveCmd.Flags().IntVar(&serveArgs.port, "port", 0, "Listen port. Overrides server.port.")
	rootCmd.AddCommand(serveCmd)
}

func serveCmdRun(cmd *cobra.Command, args []string) error {
	if serveArgs.port > 0 {
		cfg.Server.Port = serveArgs.port
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	env, err := newEngineEnv()
	if err != nil {
		return err
	}
	defer env.Close()
	slog.Info("starting query service", "port", cfg.Server.Port, "docs", env.engine.NumDocs(), "model", cfg.Retrieval.Algorithm)

	var queryCache *cache.QueryCache
	var redisClient *pkgredis.Client
	if cfg.Redis.Enabled {
		redisClient, err = pkgredis.NewClient(cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, result caching disabled", "error", err)
		} else {
			defer redisClient.Close()
			queryCache = cache.New(redisClient, cfg.Redis.CacheTTL, env.metrics)
			slog.Info("result cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
		}
	}

	agg := analytics.NewAggregator()
	collector := env.withAnalytics(ctx, agg)

	checker := health.NewChecker()
	checker.Register("index", health.PingCheck(env.engine.Ping, true))
	checker.Register("redis", func(ctx context.Context) health.ComponentHealth {
		if redisClient == nil {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: "not configured"}
		}
		return health.PingCheck(redisClient.Ping, false)(ctx)
	})

	h := handler.New(env.exec, queryCache, collector, cfg.Retrieval, cfg.Output.MaxResults)
	stats := analytics.NewHandler(agg)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/search", h.Search)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
	mux.HandleFunc("GET /api/v1/stats", stats.Stats)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())
	mux.Handle("GET /metrics", env.metrics.Handler())

	var chain http.Handler = mux
	chain = middleware.Timeout(cfg.Server.RequestTimeout)(chain)
	chain = middleware.RateLimit(cfg.Server.RateLimit, cfg.Server.Burst)(chain)
	chain = middleware.Metrics(env.metrics)(chain)
	chain = middleware.RequestID(chain)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("query service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("serving: %w", err)
	}
	// Shutdown returns once in-flight handlers finish; the deferred closers
	// must not run before that.
	<-shutdownDone
	slog.Info("query service stopped")
	return nil
}
