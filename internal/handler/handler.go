// Package handler implements the HTTP interface of the query modelling
// service: single-query reformulation, explicit session modelling, and
// server-tracked session modelling.
package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/qmodel/query-modelling-service/internal/analytics"
	"github.com/qmodel/query-modelling-service/internal/cache"
	"github.com/qmodel/query-modelling-service/internal/formatter"
	"github.com/qmodel/query-modelling-service/internal/modeller"
	"github.com/qmodel/query-modelling-service/internal/scorer"
	"github.com/qmodel/query-modelling-service/internal/session"
	apperrors "github.com/qmodel/query-modelling-service/pkg/errors"
	"github.com/qmodel/query-modelling-service/pkg/logger"
	"github.com/qmodel/query-modelling-service/pkg/metrics"
	"github.com/qmodel/query-modelling-service/pkg/middleware"
	"github.com/qmodel/query-modelling-service/pkg/tracing"
)

// timestampLayouts are the accepted session datetime formats: ISO 8601 with
// a timezone designator, with or without a colon in the offset. Naive
// timestamps are rejected.
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05-0700",
	"2006-01-02T15:04:05.999999999-0700",
}

// Handler serves the modelling endpoints.
type Handler struct {
	modeller  *modeller.Modeller
	weights   scorer.Weights
	sessions  *session.Store
	cache     *cache.ResultCache
	collector *analytics.Collector
	metrics   *metrics.Metrics
	now       func() time.Time
	logger    *slog.Logger
}

// New creates a Handler. cache, collector, and m may be nil; the
// corresponding features are then disabled.
func New(
	qm *modeller.Modeller,
	weights scorer.Weights,
	sessions *session.Store,
	resultCache *cache.ResultCache,
	collector *analytics.Collector,
	m *metrics.Metrics,
) *Handler {
	return &Handler{
		modeller:  qm,
		weights:   weights,
		sessions:  sessions,
		cache:     resultCache,
		collector: collector,
		metrics:   m,
		now:       func() time.Time { return time.Now().UTC() },
		logger:    logger.WithComponent("handler"),
	}
}

type reformulationRequest struct {
	Query string `json:"query"`
}

type sessionEntryPayload struct {
	Query    string `json:"query"`
	Datetime string `json:"datetime"`
}

type modellingRequest struct {
	Session []sessionEntryPayload `json:"session"`
}

type weightedQueryResponse struct {
	WeightedQuery string `json:"weighted_query"`
}

// About answers the root route with a short usage hint.
func (h *Handler) About(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintln(w, "try POST'ing to /query_modelling or /query_reformulation")
}

// Reformulate handles POST /query_reformulation.
func (h *Handler) Reformulate(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)

	var req reformulationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "request body must be JSON with a 'query' field")
		return
	}

	span := tracing.StartSpan("reformulate", middleware.GetRequestID(ctx))
	span.SetAttr("query_len", len(req.Query))

	compute := func() (string, error) {
		ranked := h.modeller.Reformulate(req.Query)
		h.observeTerms(len(ranked))
		return formatter.Format(ranked, h.weights), nil
	}

	var weighted string
	var cacheHit bool
	var err error
	if h.cache != nil {
		weighted, cacheHit, err = h.cache.GetOrCompute(ctx, req.Query, compute)
	} else {
		weighted, err = compute()
	}
	span.End()
	if err != nil {
		log.Error("reformulation failed", "error", err)
		h.writeError(w, apperrors.HTTPStatusCode(err), "reformulation failed")
		return
	}

	h.recordOperation("reformulation", "ok", start)
	h.recordCache(cacheHit)
	h.track(analytics.QueryEvent{
		Type:      analytics.EventReformulation,
		Query:     req.Query,
		TermsOut:  countTerms(weighted),
		LatencyMs: time.Since(start).Milliseconds(),
		CacheHit:  cacheHit,
		Timestamp: h.now(),
		RequestID: middleware.GetRequestID(ctx),
	})

	log.Info("query reformulated",
		"cache_hit", cacheHit,
		"latency_ms", time.Since(start).Milliseconds(),
	)
	h.writeJSON(w, http.StatusOK, weightedQueryResponse{WeightedQuery: weighted})
}

// Model handles POST /query_modelling with an explicit session payload.
func (h *Handler) Model(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)

	var req modellingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "request body must be JSON with a 'session' array")
		return
	}

	entries, err := parseSession(req.Session)
	if err != nil {
		h.recordOperation("modelling", "invalid", start)
		h.writeError(w, apperrors.HTTPStatusCode(err), err.Error())
		return
	}

	weighted, err := h.model(ctx, "model", entries)
	if err != nil {
		h.recordOperation("modelling", "invalid", start)
		log.Warn("session modelling rejected", "error", err)
		h.writeError(w, apperrors.HTTPStatusCode(err), err.Error())
		return
	}

	h.recordOperation("modelling", "ok", start)
	h.observeSessionSize(len(entries))
	h.track(analytics.QueryEvent{
		Type:        analytics.EventModelling,
		SessionSize: len(entries),
		TermsOut:    countTerms(weighted),
		LatencyMs:   time.Since(start).Milliseconds(),
		Timestamp:   h.now(),
		RequestID:   middleware.GetRequestID(ctx),
	})

	log.Info("session modelled",
		"entries", len(entries),
		"latency_ms", time.Since(start).Milliseconds(),
	)
	h.writeJSON(w, http.StatusOK, weightedQueryResponse{WeightedQuery: weighted})
}

// ModelSession handles POST /query_modelling/{sessionID}: the query is
// appended to the named session's stored history with the server clock, then
// the full accumulated history is modelled.
func (h *Handler) ModelSession(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)

	sessionID := r.PathValue("sessionID")
	if sessionID == "" {
		h.writeError(w, http.StatusBadRequest, "session id is required")
		return
	}

	var req reformulationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "request body must be JSON with a 'query' field")
		return
	}

	stored := h.sessions.Append(sessionID, session.Entry{
		Query:     req.Query,
		Timestamp: h.now(),
	})
	if h.metrics != nil {
		h.metrics.ActiveSessions.Set(float64(h.sessions.Count()))
	}

	entries := make([]modeller.SessionEntry, len(stored))
	for i, e := range stored {
		entries[i] = modeller.SessionEntry{Query: e.Query, Timestamp: e.Timestamp}
	}

	weighted, err := h.model(ctx, "model_session", entries)
	if err != nil {
		h.recordOperation("session_modelling", "error", start)
		log.Error("stored session modelling failed", "session_id", sessionID, "error", err)
		h.writeError(w, apperrors.HTTPStatusCode(err), err.Error())
		return
	}

	h.recordOperation("session_modelling", "ok", start)
	h.observeSessionSize(len(entries))
	h.track(analytics.QueryEvent{
		Type:        analytics.EventSessionModelling,
		Query:       req.Query,
		SessionID:   sessionID,
		SessionSize: len(entries),
		TermsOut:    countTerms(weighted),
		LatencyMs:   time.Since(start).Milliseconds(),
		Timestamp:   h.now(),
		RequestID:   middleware.GetRequestID(ctx),
	})

	log.Info("stored session modelled",
		"session_id", sessionID,
		"entries", len(entries),
		"latency_ms", time.Since(start).Milliseconds(),
	)
	h.writeJSON(w, http.StatusOK, weightedQueryResponse{WeightedQuery: weighted})
}

// CacheStats reports result cache hit/miss counters.
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
	})
}

// CacheInvalidate flushes the result cache.
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

// model runs the session aggregation under a trace span and formats the
// ranked result.
func (h *Handler) model(ctx context.Context, spanName string, entries []modeller.SessionEntry) (string, error) {
	span := tracing.StartSpan(spanName, middleware.GetRequestID(ctx))
	span.SetAttr("entries", len(entries))
	defer span.End()

	ranked, err := h.modeller.Model(entries)
	if err != nil {
		return "", err
	}
	h.observeTerms(len(ranked))
	return formatter.Format(ranked, h.weights), nil
}

// parseSession converts the wire payload to modeller entries, rejecting
// missing or unparseable timestamps.
func parseSession(payload []sessionEntryPayload) ([]modeller.SessionEntry, error) {
	entries := make([]modeller.SessionEntry, 0, len(payload))
	for i, p := range payload {
		ts, err := parseTimestamp(p.Datetime)
		if err != nil {
			return nil, apperrors.Newf(apperrors.ErrBadTimestamp, http.StatusBadRequest,
				"session entry %d: %v", i, err)
		}
		entries = append(entries, modeller.SessionEntry{Query: p.Query, Timestamp: ts})
	}
	return entries, nil
}

func parseTimestamp(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, fmt.Errorf("datetime is required")
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("datetime %q is not ISO 8601 with a timezone designator", raw)
}

func countTerms(weighted string) int {
	if weighted == "" {
		return 0
	}
	n := 1
	for _, r := range weighted {
		if r == ' ' {
			n++
		}
	}
	return n
}

func (h *Handler) recordOperation(operation, outcome string, start time.Time) {
	if h.metrics == nil {
		return
	}
	h.metrics.QueriesModelledTotal.WithLabelValues(operation, outcome).Inc()
	h.metrics.ModellingLatency.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

func (h *Handler) recordCache(hit bool) {
	if h.metrics == nil || h.cache == nil {
		return
	}
	if hit {
		h.metrics.CacheHitsTotal.Inc()
	} else {
		h.metrics.CacheMissesTotal.Inc()
	}
}

func (h *Handler) observeTerms(n int) {
	if h.metrics != nil {
		h.metrics.TermsPerQuery.Observe(float64(n))
	}
}

func (h *Handler) observeSessionSize(n int) {
	if h.metrics != nil {
		h.metrics.SessionEntriesTotal.Observe(float64(n))
	}
}

func (h *Handler) track(event analytics.QueryEvent) {
	if h.collector != nil {
		h.collector.Track(event)
	}
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
