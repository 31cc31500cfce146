package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gyaneshwarpardhi/eventbridge/internal/config"
	"github.com/gyaneshwarpardhi/eventbridge/internal/engine"
	"github.com/gyaneshwarpardhi/eventbridge/internal/event"
	"github.com/gyaneshwarpardhi/eventbridge/internal/metrics"
	"github.com/gyaneshwarpardhi/eventbridge/internal/routing"
	"github.com/gyaneshwarpardhi/eventbridge/internal/rules"
	"github.com/gyaneshwarpardhi/eventbridge/internal/transform"
)

const maxBatchSize = 100

// Handler holds all HTTP handler dependencies.
type Handler struct {
	eng      *engine.Engine
	table    *routing.Table
	store    *rules.Store
	loader   *config.Loader
	registry *transform.Registry
	mux      *http.ServeMux
}

// New creates an HTTP handler and registers all routes.
func New(eng *engine.Engine, table *routing.Table, store *rules.Store, loader *config.Loader, registry *transform.Registry) http.Handler {
	h := &Handler{eng: eng, table: table, store: store, loader: loader, registry: registry, mux: http.NewServeMux()}

	h.mux.HandleFunc("POST /v1/events", h.ingestEvent)
	h.mux.HandleFunc("POST /v1/events/batch", h.ingestBatch)
	h.mux.HandleFunc("GET /v1/routes", h.listRoutes)
	h.mux.HandleFunc("POST /v1/routes/reload", h.reloadRoutes)
	h.mux.HandleFunc("POST /v1/rules/reload", h.reloadRules)
	h.mux.HandleFunc("GET /v1/rules/cache", h.cacheStats)
	h.mux.HandleFunc("DELETE /v1/rules/cache", h.clearCache)
	h.mux.HandleFunc("GET /v1/transforms", h.listTransforms)
	h.mux.HandleFunc("GET /healthz", h.healthz)
	h.mux.HandleFunc("GET /readyz", h.readyz)
	h.mux.Handle("GET /metrics", promhttp.Handler())

	return loggingMiddleware(h.mux)
}

// POST /v1/events — synchronous single-event ingestion.
func (h *Handler) ingestEvent(w http.ResponseWriter, r *http.Request) {
	var ev event.Event
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %s", err))
		return
	}
	if ev.ID == "" {
		ev.ID = uuid.New().String()
	}
	if err := ev.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if _, err := h.table.Settings(); errors.Is(err, routing.ErrNotLoaded) {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	ev.ReceivedAt = time.Now()

	res, err := h.eng.ProcessSync(r.Context(), &ev)
	if err != nil {
		// Queue full or processing timeout; the event was not handled.
		writeError(w, http.StatusTooManyRequests, err.Error())
		return
	}
	metrics.EventProcessingDuration.Observe(float64(res.DurationMs))
	writeJSON(w, http.StatusOK, res)
}

// POST /v1/events/batch — async batch ingestion (up to 100 events).
func (h *Handler) ingestBatch(w http.ResponseWriter, r *http.Request) {
	var events []*event.Event
	if err := json.NewDecoder(r.Body).Decode(&events); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %s", err))
		return
	}
	if len(events) == 0 {
		writeError(w, http.StatusBadRequest, "batch must contain at least one event")
		return
	}
	if len(events) > maxBatchSize {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("batch size %d exceeds max %d", len(events), maxBatchSize))
		return
	}

	now := time.Now()
	jobID := uuid.New().String()
	queued, invalid := 0, 0
	for _, ev := range events {
		if ev.ID == "" {
			ev.ID = uuid.New().String()
		}
		if err := ev.Validate(); err != nil {
			invalid++
			continue
		}
		ev.ReceivedAt = now
		if h.eng.ProcessAsync(ev) {
			queued++
		}
	}

	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"job_id":   jobID,
		"total":    len(events),
		"queued":   queued,
		"invalid":  invalid,
		"rejected": len(events) - queued - invalid,
	})
}

// GET /v1/routes — report the loaded routing table.
func (h *Handler) listRoutes(w http.ResponseWriter, r *http.Request) {
	onlyEnabled := r.URL.Query().Get("enabled") == "true"
	routes, err := h.table.Routes(onlyEnabled)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	meta, _ := h.table.Metadata()
	settings, _ := h.table.Settings()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"metadata": meta,
		"settings": settings,
		"routes":   routes,
	})
}

// POST /v1/routes/reload — hot-reload the routing config from disk. The
// loader's change callbacks apply the new config to the table; the handler
// only reports the outcome, so an API-triggered reload counts once.
func (h *Handler) reloadRoutes(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.loader.Reload()
	if err != nil {
		metrics.ConfigReloads.WithLabelValues("failure").Inc()
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"reloaded":     true,
		"routes_count": len(cfg.Routes),
	})
}

// POST /v1/rules/reload — re-scan the rule directory and rebuild the cache.
func (h *Handler) reloadRules(w http.ResponseWriter, r *http.Request) {
	result := h.store.LoadRules()
	if !result.Success {
		writeErrorDetails(w, http.StatusUnprocessableEntity, "rule reload failed", result.Errors)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"reloaded":    true,
		"rules_count": len(result.Rules),
	})
}

// GET /v1/rules/cache — rule cache observability counters.
func (h *Handler) cacheStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.store.Stats())
}

// DELETE /v1/rules/cache — drop all cached rules; the next lookup reloads
// from disk.
func (h *Handler) clearCache(w http.ResponseWriter, r *http.Request) {
	h.store.ClearCache()
	writeJSON(w, http.StatusOK, map[string]interface{}{"cleared": true})
}

// GET /v1/transforms — list the registered transform names.
func (h *Handler) listTransforms(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"transforms": h.registry.Names()})
}

// GET /healthz — always 200 (liveness probe).
func (h *Handler) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GET /readyz — 503 if event queue >80% full.
func (h *Handler) readyz(w http.ResponseWriter, r *http.Request) {
	util := h.eng.QueueUtilization()
	metrics.QueueUtilization.Set(util)
	if util > 0.8 {
		writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status":            "overloaded",
			"queue_utilization": util,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":            "ready",
		"queue_utilization": util,
	})
}
