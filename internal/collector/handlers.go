package collector

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/agbruneau/learning-events/internal/config"
	"github.com/agbruneau/learning-events/pkg/models"
)

// Handler returns the collector's HTTP routes.
func (c *Collector) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST "+config.BatchPath, c.handleBatch)
	mux.HandleFunc("GET "+config.SessionPath+"{sessionId}", c.requireToken(c.handleSession))
	mux.HandleFunc("GET "+config.AllEventsPath, c.requireToken(c.handleAll))
	mux.HandleFunc("GET "+config.HealthPath, c.handleHealth)
	return mux
}

func (c *Collector) handleBatch(w http.ResponseWriter, r *http.Request) {
	maxBytes := c.config.MaxBodyBytes
	if maxBytes <= 0 {
		maxBytes = config.CollectorMaxBodyBytes
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.reject(r.RemoteAddr, body, nil, &badRequestError{err})
			writeError(w, http.StatusRequestEntityTooLarge, "batch too large")
			return
		}
		writeError(w, http.StatusBadRequest, "unable to read body")
		return
	}

	out, err := c.Accept(r.Context(), r.RemoteAddr, body)
	if err != nil {
		if isBadRequest(err) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusServiceUnavailable, "storage unavailable")
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

func (c *Collector) handleSession(w http.ResponseWriter, r *http.Request) {
	sessionID := strings.TrimSpace(r.PathValue("sessionId"))
	if sessionID == "" {
		writeError(w, http.StatusBadRequest, "missing session id")
		return
	}
	events, err := c.store.SessionEvents(r.Context(), sessionID)
	if err != nil {
		slog.Error("session query failed", "session_id", sessionID, "error", err)
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}
	writeJSON(w, http.StatusOK, models.Batch{Events: events})
}

func (c *Collector) handleAll(w http.ResponseWriter, r *http.Request) {
	events, err := c.store.RecentEvents(r.Context(), parseLimit(r.URL.Query().Get("limit")))
	if err != nil {
		slog.Error("recent query failed", "error", err)
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}
	writeJSON(w, http.StatusOK, models.Batch{Events: events})
}

func (c *Collector) handleHealth(w http.ResponseWriter, r *http.Request) {
	count, err := c.store.Count(r.Context())
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "degraded", "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": config.CollectorServiceName,
		"events":  count,
		"metrics": c.metrics.Snapshot(),
	})
}

// requireToken enforces the bearer token when one is configured.
func (c *Collector) requireToken(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if c.config.Token != "" {
			got, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || subtle.ConstantTimeCompare([]byte(got), []byte(c.config.Token)) != 1 {
				w.Header().Set("WWW-Authenticate", `Bearer realm="learning-events"`)
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
		}
		next(w, r)
	}
}

// parseLimit applies the default and the cap; junk falls back to the default.
func parseLimit(raw string) int {
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return config.DefaultLimit
	}
	return min(limit, config.MaxLimit)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("response encoding failed", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
