// Package handler serves structured queries over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Structured-Query-Engine/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/Structured-Query-Engine/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/Structured-Query-Engine/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/Structured-Query-Engine/internal/searcher/model"
	"github.com/Adithya-Monish-Kumar-K/Structured-Query-Engine/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Structured-Query-Engine/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Structured-Query-Engine/pkg/logger"
)

type SearchExecutor interface {
	Execute(ctx context.Context, queryID, query string, m model.Model, limit int) (*executor.Result, error)
}

type Handler struct {
	executor   SearchExecutor
	cache      *cache.QueryCache
	collector  *analytics.Collector
	retrieval  config.RetrievalConfig
	maxResults int
	// evalMu serializes evaluation; the index provider is not safe for
	// concurrent readers.
	evalMu sync.Mutex
	logger *slog.Logger
}

// New builds a handler. queryCache and collector may be nil.
func New(exec SearchExecutor, queryCache *cache.QueryCache, collector *analytics.Collector, retrieval config.RetrievalConfig, maxResults int) *Handler {
	return &Handler{
		executor:   exec,
		cache:      queryCache,
		collector:  collector,
		retrieval:  retrieval,
		maxResults: maxResults,
		logger:     slog.Default().With("component", "search-handler"),
	}
}

// Search handles GET /api/v1/search?q=&model=&limit=.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)

	query := r.URL.Query().Get("q")
	if query == "" {
		h.writeError(w, http.StatusBadRequest, "query parameter 'q' is required")
		return
	}

	name := r.URL.Query().Get("model")
	if name == "" {
		name = h.retrieval.Algorithm
	}
	m, err := model.ByName(strings.ToLower(name), h.retrieval)
	if err != nil {
		h.writeError(w, errors.HTTPStatusCode(err), err.Error())
		return
	}

	limit := h.maxResults
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 1 {
			h.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		if parsed < h.maxResults {
			limit = parsed
		}
	}

	queryID := logger.RequestID(ctx)
	compute := func() (*executor.Result, error) {
		h.evalMu.Lock()
		defer h.evalMu.Unlock()
		return h.executor.Execute(ctx, queryID, query, m, limit)
	}

	var (
		result   *executor.Result
		cacheHit bool
	)
	if h.cache != nil {
		result, cacheHit, err = h.cache.GetOrCompute(ctx, m, query, limit, compute)
	} else {
		result, err = compute()
	}
	latency := time.Since(start)
	h.track(ctx, query, m, result, cacheHit, latency, err)

	if err != nil {
		status := errors.HTTPStatusCode(err)
		if status >= http.StatusInternalServerError {
			log.Error("search failed", "query", query, "error", err)
			h.writeError(w, status, "search failed")
			return
		}
		h.writeError(w, status, err.Error())
		return
	}

	log.Info("search completed",
		"query", query,
		"model", name,
		"total_hits", result.TotalHits,
		"returned", len(result.Results),
		"cache_hit", cacheHit,
		"latency_ms", latency.Milliseconds(),
	)
	h.writeJSON(w, http.StatusOK, result)
}

func (h *Handler) track(ctx context.Context, query string, m model.Model, result *executor.Result, cacheHit bool, latency time.Duration, err error) {
	if h.collector == nil {
		return
	}
	event := analytics.QueryEvent{
		Source:    "serve",
		QueryID:   logger.RequestID(ctx),
		Query:     query,
		Model:     m.Kind().String(),
		LatencyMs: latency.Milliseconds(),
		CacheHit:  cacheHit,
		Timestamp: time.Now().UTC(),
		RequestID: logger.RequestID(ctx),
	}
	if result != nil {
		event.TotalHits = result.TotalHits
		event.Returned = len(result.Results)
	}
	event.Classify(err)
	h.collector.Track(event)
}

// CacheInvalidate handles POST /api/v1/cache/invalidate.
func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeError(w, http.StatusServiceUnavailable, "caching is disabled")
		return
	}
	if err := h.cache.Invalidate(r.Context()); err != nil {
		h.logger.Error("cache invalidation failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "cache invalidation failed")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "invalidated"})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
