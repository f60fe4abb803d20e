package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/serbench/trackoor/pkg/history"
	"github.com/serbench/trackoor/pkg/ingest"
	"github.com/serbench/trackoor/pkg/trend"
)

// maxRecordBodyBytes bounds the size of an uploaded results document.
const maxRecordBodyBytes = 16 << 20

// errorResponse is a standard error payload.
type errorResponse struct {
	Error string `json:"error"`
}

// writeJSON encodes v as JSON and writes it to w.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "encoding response", http.StatusInternalServerError)
	}
}

// queryInt parses an integer query parameter with a default.
func queryInt(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}

	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return def
	}

	return v
}

// handleHealth returns server health status.
func (s *server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleRecordRun ingests a results document posted as the request body.
func (s *server) handleRecordRun(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(
		http.MaxBytesReader(w, r.Body, maxRecordBodyBytes),
	)
	if err != nil {
		writeJSON(w, http.StatusRequestEntityTooLarge,
			errorResponse{"request body too large"})

		return
	}

	summary, err := s.tracker.Record(r.Context(), body)
	if err != nil {
		if errors.Is(err, ingest.ErrMalformedInput) {
			writeJSON(w, http.StatusBadRequest,
				errorResponse{err.Error()})

			return
		}

		s.log.WithError(err).Error("Failed to record run")
		writeJSON(w, http.StatusInternalServerError,
			errorResponse{"recording run failed"})

		return
	}

	writeJSON(w, http.StatusCreated, summary)
}

// handleListRuns returns recent runs, optionally filtered by framework.
func (s *server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	framework := r.URL.Query().Get("framework")
	limit := queryInt(r, "limit", 10)

	runs, err := s.tracker.Runs(r.Context(), framework, limit)
	if err != nil {
		s.log.WithError(err).Error("Failed to list runs")
		writeJSON(w, http.StatusInternalServerError,
			errorResponse{"listing runs failed"})

		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

// handleGetRun returns one run with its framework results.
func (s *server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 32)
	if err != nil {
		writeJSON(w, http.StatusBadRequest,
			errorResponse{"invalid run id"})

		return
	}

	runID := uint(id)

	run, err := s.tracker.Store().GetRun(r.Context(), runID)
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorResponse{err.Error()})

		return
	}

	results, err := s.tracker.Results(r.Context(), runID)
	if err != nil {
		s.log.WithError(err).Error("Failed to load run results")
		writeJSON(w, http.StatusInternalServerError,
			errorResponse{"loading run results failed"})

		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"run":     run,
		"results": results,
	})
}

// handleFrameworkHistory returns a framework's results inside a
// trailing day window.
func (s *server) handleFrameworkHistory(
	w http.ResponseWriter, r *http.Request,
) {
	framework := chi.URLParam(r, "framework")
	days := queryInt(r, "days", 30)

	since := time.Now().UTC().
		AddDate(0, 0, -days).
		Format(time.RFC3339)

	points, err := s.tracker.History(r.Context(), framework, since)
	if err != nil {
		s.log.WithError(err).Error("Failed to load framework history")
		writeJSON(w, http.StatusInternalServerError,
			errorResponse{"loading history failed"})

		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"framework":   framework,
		"window_days": days,
		"points":      points,
	})
}

// handleFrameworkTrend returns the trend report for one framework
// metric.
func (s *server) handleFrameworkTrend(
	w http.ResponseWriter, r *http.Request,
) {
	framework := chi.URLParam(r, "framework")
	days := queryInt(r, "days", 30)

	metric := r.URL.Query().Get("metric")
	if metric == "" {
		metric = history.MetricLatencyMs
	}

	report, err := s.tracker.Trend(r.Context(), framework, metric, days)
	if err != nil {
		if errors.Is(err, trend.ErrNoData) {
			writeJSON(w, http.StatusNotFound,
				errorResponse{err.Error()})

			return
		}

		writeJSON(w, http.StatusBadRequest, errorResponse{err.Error()})

		return
	}

	writeJSON(w, http.StatusOK, report)
}

// handleListAlerts returns recent alerts, optionally filtered by
// severity.
func (s *server) handleListAlerts(w http.ResponseWriter, r *http.Request) {
	severity := r.URL.Query().Get("severity")
	limit := queryInt(r, "limit", 20)

	alerts, err := s.tracker.Alerts(r.Context(), severity, limit)
	if err != nil {
		s.log.WithError(err).Error("Failed to list alerts")
		writeJSON(w, http.StatusInternalServerError,
			errorResponse{"listing alerts failed"})

		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"alerts": alerts})
}

// handleStats returns history database statistics.
func (s *server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.tracker.Stats(r.Context())
	if err != nil {
		s.log.WithError(err).Error("Failed to gather stats")
		writeJSON(w, http.StatusInternalServerError,
			errorResponse{"gathering stats failed"})

		return
	}

	writeJSON(w, http.StatusOK, stats)
}
