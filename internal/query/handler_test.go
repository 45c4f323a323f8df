package query

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	v1 "github.com/gridwatch-lab/gridwatch/internal/api/v1"
	"github.com/gridwatch-lab/gridwatch/internal/pipeline"
	"github.com/stretchr/testify/require"
)

type mockRollupRunner struct {
	report pipeline.Report
	err    error
	forced []bool
}

func (m *mockRollupRunner) Run(ctx context.Context, force bool) (pipeline.Report, error) {
	m.forced = append(m.forced, force)
	return m.report, m.err
}

func newTestRouter(store *mockAggregateStore, runner RollupRunner) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	handler := NewHandler(NewService(store, nil), runner)
	handler.RegisterRoutes(router)
	return router
}

func TestHandleQueryHourly(t *testing.T) {
	store := &mockAggregateStore{aggregates: []v1.HourlyAggregate{
		hourlyRow("a", "pzem-1", time.Date(2026, 3, 14, 1, 0, 0, 0, time.UTC), 220, 100),
	}}
	router := newTestRouter(store, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/readings/hourly", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var result HourlyResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	require.Equal(t, 1, result.Count)
	require.Len(t, result.Rows, 1)
}

func TestHandleQueryHourly_DayPeriod(t *testing.T) {
	store := &mockAggregateStore{aggregates: []v1.HourlyAggregate{
		hourlyRow("a", "pzem-1", time.Date(2026, 3, 14, 1, 0, 0, 0, time.UTC), 220, 100),
		hourlyRow("b", "pzem-1", time.Date(2026, 3, 14, 2, 0, 0, 0, time.UTC), 224, 110),
	}}
	router := newTestRouter(store, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/readings/hourly?period=day&device=pzem-1", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var result HourlyResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	require.Equal(t, "day", result.Period)
	require.Len(t, result.Buckets, 1)
}

func TestHandleQueryHourly_InvalidPeriodIs400(t *testing.T) {
	router := newTestRouter(&mockAggregateStore{}, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/readings/hourly?period=week", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Contains(t, w.Body.String(), "invalid_query")
}

func TestHandleQueryHourly_BadDateIs400(t *testing.T) {
	router := newTestRouter(&mockAggregateStore{}, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/readings/hourly?date=14-03-2026", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleQueryHourly_StoreErrorIs500(t *testing.T) {
	store := &mockAggregateStore{listErr: errors.New("connection refused")}
	router := newTestRouter(store, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/readings/hourly", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusInternalServerError, w.Code)

	// The cause stays in the logs, not the response.
	require.NotContains(t, w.Body.String(), "connection refused")
}

func TestHandleListDevices(t *testing.T) {
	store := &mockAggregateStore{devices: []string{"pzem-1", "pzem-2"}}
	router := newTestRouter(store, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/devices", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Devices []string `json:"devices"`
		Count   int      `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, []string{"pzem-1", "pzem-2"}, body.Devices)
	require.Equal(t, 2, body.Count)
}

func TestHandleSummary(t *testing.T) {
	store := &mockAggregateStore{devices: []string{"pzem-1"}}
	router := newTestRouter(store, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/summary", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var summary Summary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &summary))
	require.Equal(t, 1, summary.DeviceCount)
	require.Len(t, summary.Daily, 31)
	require.Len(t, summary.Monthly, 12)
}

func TestHandleDeleteHourly(t *testing.T) {
	store := &mockAggregateStore{}
	router := newTestRouter(store, nil)

	body := `[{"ids":["a","b"],"device_name":"pzem-1"}]`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/v1/readings/hourly", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"deleted":2`)
}

func TestHandleDeleteHourly_MissingDeviceIs400(t *testing.T) {
	store := &mockAggregateStore{}
	router := newTestRouter(store, nil)

	body := `[{"ids":["a"]}]`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/v1/readings/hourly", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Empty(t, store.deletedIDs)
}

func TestHandleDeleteHourly_MalformedBodyIs400(t *testing.T) {
	router := newTestRouter(&mockAggregateStore{}, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/v1/readings/hourly", strings.NewReader(`{"not":"an array"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleRunRollup(t *testing.T) {
	runner := &mockRollupRunner{report: pipeline.Report{AggregatesWritten: 4}}
	router := newTestRouter(&mockAggregateStore{}, runner)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/rollup/run?force=true", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, []bool{true}, runner.forced)
	require.Contains(t, w.Body.String(), `"aggregates_written":4`)
}

func TestHandleRunRollup_DisabledIs404(t *testing.T) {
	router := newTestRouter(&mockAggregateStore{}, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/rollup/run", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusNotFound, w.Code)
}
