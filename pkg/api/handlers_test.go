package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/serbench/trackoor/pkg/config"
	"github.com/serbench/trackoor/pkg/tracker"
)

func setupRouter(t *testing.T) http.Handler {
	t.Helper()

	cfg := &config.Config{
		Database: config.DatabaseConfig{
			Driver: "sqlite",
			SQLite: config.SQLiteConfig{Path: ":memory:"},
		},
		Server: config.ServerConfig{Listen: ":0"},
	}

	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)

	tr, err := tracker.New(log, cfg)
	require.NoError(t, err)
	require.NoError(t, tr.Start(context.Background()))

	t.Cleanup(func() { _ = tr.Stop() })

	srv := &server{
		log:     log,
		cfg:     &cfg.Server,
		tracker: tr,
	}

	return srv.buildRouter()
}

func postRun(t *testing.T, router http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(
		http.MethodPost, "/api/v1/runs", strings.NewReader(body),
	)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	return rec
}

const resultsDoc = `{
	"metadata": {"timestamp": "2026-08-30T12:00:00Z"},
	"results": {
		"jackson": {
			"summary": {"overall_success_rate": 100.0, "successful_tests": 5},
			"scenarios": {
				"MEDIUM": {"summary": {"avg_response_time_ms": 50.0}}
			}
		}
	}
}`

func TestHandleHealth(t *testing.T) {
	router := setupRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestHandleRecordRun(t *testing.T) {
	router := setupRouter(t)

	rec := postRun(t, router, resultsDoc)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"run_id":1`)
	assert.Contains(t, rec.Body.String(), `"run_kind":"integration"`)
}

func TestHandleRecordRun_MalformedBody(t *testing.T) {
	router := setupRouter(t)

	rec := postRun(t, router, "{not json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "error")
}

func TestHandleListRuns(t *testing.T) {
	router := setupRouter(t)

	require.Equal(t, http.StatusCreated, postRun(t, router, resultsDoc).Code)
	require.Equal(t, http.StatusCreated, postRun(t, router, resultsDoc).Code)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/runs?limit=1", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	// Newest first, limited to one entry.
	assert.Contains(t, rec.Body.String(), `"id":2`)
	assert.NotContains(t, rec.Body.String(), `"id":1`)
}

func TestHandleGetRun(t *testing.T) {
	router := setupRouter(t)

	require.Equal(t, http.StatusCreated, postRun(t, router, resultsDoc).Code)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/runs/1", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"framework":"jackson"`)
}

func TestHandleGetRun_NotFound(t *testing.T) {
	router := setupRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/runs/999", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleFrameworkTrend_NoData(t *testing.T) {
	router := setupRouter(t)

	req := httptest.NewRequest(
		http.MethodGet, "/api/v1/frameworks/nobody/trend", nil,
	)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleFrameworkTrend_UnknownMetric(t *testing.T) {
	router := setupRouter(t)

	req := httptest.NewRequest(
		http.MethodGet,
		"/api/v1/frameworks/jackson/trend?metric=bogus", nil,
	)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleListAlerts(t *testing.T) {
	router := setupRouter(t)

	require.Equal(t, http.StatusCreated, postRun(t, router, resultsDoc).Code)

	// Second run with doubled latency triggers a critical alert.
	regressed := strings.ReplaceAll(resultsDoc, "50.0", "100.0")
	require.Equal(t, http.StatusCreated, postRun(t, router, regressed).Code)

	req := httptest.NewRequest(
		http.MethodGet, "/api/v1/alerts?severity=critical", nil,
	)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"alert_type":"regression"`)
}

func TestHandleStats(t *testing.T) {
	router := setupRouter(t)

	require.Equal(t, http.StatusCreated, postRun(t, router, resultsDoc).Code)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"run_count":1`)
}

func TestRateLimit(t *testing.T) {
	cfg := &config.Config{
		Database: config.DatabaseConfig{
			Driver: "sqlite",
			SQLite: config.SQLiteConfig{Path: ":memory:"},
		},
		Server: config.ServerConfig{
			Listen: ":0",
			RateLimit: config.RateLimitConfig{
				Enabled:           true,
				RequestsPerMinute: 2,
			},
		},
	}

	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)

	tr, err := tracker.New(log, cfg)
	require.NoError(t, err)
	require.NoError(t, tr.Start(context.Background()))

	t.Cleanup(func() { _ = tr.Stop() })

	router := (&server{
		log:     log,
		cfg:     &cfg.Server,
		tracker: tr,
	}).buildRouter()

	var last int

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
		req.RemoteAddr = "203.0.113.7:1234"
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		last = rec.Code
	}

	assert.Equal(t, http.StatusTooManyRequests, last)
}
