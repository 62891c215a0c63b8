package admin_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/regwatch/docharvest/internal/admin"
	"github.com/regwatch/docharvest/internal/metrics"
)

func TestHealthzReportsSchedulerState(t *testing.T) {
	srv := admin.NewServer(func() string { return "sleeping" }, nil)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "sleeping", body["scheduler"])
	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))
}

func TestHealthzWithoutScheduler(t *testing.T) {
	srv := admin.NewServer(nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	_, present := body["scheduler"]
	assert.False(t, present)
}

func TestReadyz(t *testing.T) {
	srv := admin.NewServer(nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	metrics.Init()
	metrics.ObserveHarvester("boe", 3, false, 0)

	srv := admin.NewServer(nil, nil)
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "harvest_records_total")
}
