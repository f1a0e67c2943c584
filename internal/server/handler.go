// Package server exposes answer type prediction over HTTP. Single questions
// are ranked against a live index and cached in Redis when it is available.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/Adithya-Monish-Kumar-K/answer-type-search/internal/retrieval"
	apperrors "github.com/Adithya-Monish-Kumar-K/answer-type-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/answer-type-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/answer-type-search/pkg/middleware"
)

const maxQueriesPerRequest = 1000

// Predictor ranks answer types for ad hoc queries.
type Predictor interface {
	Mode() retrieval.Mode
	K() int
	Predict(ctx context.Context, queries []retrieval.Query, k int) (retrieval.Outcome, error)
}

var _ Predictor = (*retrieval.Scorer)(nil)

type PredictRequest struct {
	Queries []retrieval.Query `json:"queries"`
	K       int               `json:"k,omitempty"`
}

// PredictResponse lists in Failed the queries the engine could not answer
// this time. Unlike queries missing from Results, they may succeed when
// asked again.
type PredictResponse struct {
	Results   retrieval.Results `json:"results"`
	Failed    []string          `json:"failed,omitempty"`
	Mode      string            `json:"mode"`
	K         int               `json:"k"`
	Cached    int               `json:"cached"`
	RequestID string            `json:"request_id,omitempty"`
}

type Handler struct {
	predictor Predictor
	cache     *PredictionCache
	maxK      int
	logger    *slog.Logger
}

// NewHandler returns a Handler. cache may be nil, which disables caching.
func NewHandler(p Predictor, cache *PredictionCache, maxK int) *Handler {
	if maxK <= 0 {
		maxK = 1000
	}
	return &Handler{
		predictor: p,
		cache:     cache,
		maxK:      maxK,
		logger:    slog.Default().With("component", "predict-handler"),
	}
}

func (h *Handler) Predict(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)

	queries, k, err := h.decode(w, r)
	if err != nil {
		h.writeError(w, apperrors.HTTPStatusCode(err), apperrors.PublicMessage(err, "invalid request"))
		return
	}

	compute := func(qs []retrieval.Query) (retrieval.Outcome, error) {
		return h.predictor.Predict(ctx, qs, k)
	}
	var (
		out    retrieval.Outcome
		cached int
	)
	if h.cache != nil {
		out, cached, err = h.cache.Resolve(ctx, h.predictor.Mode(), k, queries, compute)
	} else {
		out, err = compute(queries)
	}
	if err != nil {
		log.Error("prediction failed", "queries", len(queries), "error", err)
		h.writeError(w, apperrors.HTTPStatusCode(err), apperrors.PublicMessage(err, "prediction failed"))
		return
	}

	log.Info("prediction completed",
		"queries", len(queries),
		"answered", len(out.Results),
		"failed", len(out.Failed),
		"cached", cached,
		"latency_ms", time.Since(start).Milliseconds(),
	)
	h.writeJSON(w, http.StatusOK, PredictResponse{
		Results:   out.Results,
		Failed:    out.Failed,
		Mode:      h.predictor.Mode().String(),
		K:         k,
		Cached:    cached,
		RequestID: middleware.GetRequestID(ctx),
	})
}

// decode validates a predict request. Queries without an ID are numbered by
// position; queries without a question are dropped.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request) ([]retrieval.Query, int, error) {
	var req PredictRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4<<20)).Decode(&req); err != nil {
		return nil, 0, apperrors.New(apperrors.ErrInvalidInput, 0, "invalid JSON body")
	}
	if len(req.Queries) == 0 {
		return nil, 0, apperrors.New(apperrors.ErrInvalidInput, 0, "at least one query is required")
	}
	if len(req.Queries) > maxQueriesPerRequest {
		return nil, 0, apperrors.Newf(apperrors.ErrInvalidInput, http.StatusRequestEntityTooLarge, "at most %d queries per request", maxQueriesPerRequest)
	}
	k := req.K
	if k < 0 || k > h.maxK {
		return nil, 0, apperrors.Newf(apperrors.ErrInvalidInput, 0, "k must be between 1 and %d", h.maxK)
	}
	if k == 0 {
		k = h.predictor.K()
	}

	queries := retrieval.Clean(req.Queries)
	seen := make(map[string]bool, len(queries))
	for i := range queries {
		if queries[i].ID == "" {
			queries[i].ID = "query" + strconv.Itoa(i)
		}
		if seen[queries[i].ID] {
			return nil, 0, apperrors.Newf(apperrors.ErrInvalidInput, 0, "duplicate query id %q", queries[i].ID)
		}
		seen[queries[i].ID] = true
	}
	return queries, k, nil
}

func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}

	hits, misses := h.cache.Stats()
	total := hits + misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"hits":     hits,
		"misses":   misses,
		"total":    total,
		"hit_rate": fmt.Sprintf("%.1f%%", hitRate),
		"breaker":  h.cache.State().String(),
	})
}

func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeError(w, http.StatusServiceUnavailable, "caching is disabled")
		return
	}

	deleted, err := h.cache.Invalidate(r.Context(), "")
	if err != nil {
		h.logger.Error("cache invalidation failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "cache invalidation failed")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{"status": "invalidated", "deleted": deleted})
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
