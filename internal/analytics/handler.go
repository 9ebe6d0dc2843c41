package analytics

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Handler serves the in-process aggregate on /api/v1/stats.
type Handler struct {
	aggregator *Aggregator
	logger     *slog.Logger
}

func NewHandler(aggregator *Aggregator) *Handler {
	return &Handler{
		aggregator: aggregator,
		logger:     slog.Default().With("component", "analytics-handler"),
	}
}

type modelStatsResponse struct {
	Model       string     `json:"model"`
	Stats       ModelStats `json:"stats"`
	GeneratedAt time.Time  `json:"generated_at"`
}

// Stats writes the full aggregate, or a single model's counters when the
// model query parameter is set. An unknown model is a 404.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	stats := h.aggregator.Stats()

	name := strings.ToLower(r.URL.Query().Get("model"))
	if name == "" {
		h.writeJSON(w, http.StatusOK, stats)
		return
	}
	ms, ok := stats.Models[name]
	if !ok {
		h.writeJSON(w, http.StatusNotFound, map[string]string{"error": "no queries recorded for model " + name})
		return
	}
	h.writeJSON(w, http.StatusOK, modelStatsResponse{Model: name, Stats: ms, GeneratedAt: time.Now().UTC()})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write analytics response", "error", err)
	}
}
