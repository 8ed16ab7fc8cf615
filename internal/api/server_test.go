package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sanspareilsmyn/fishlens/internal/config"
	"github.com/sanspareilsmyn/fishlens/internal/notify"
	"github.com/sanspareilsmyn/fishlens/internal/pipeline"
	"github.com/sanspareilsmyn/fishlens/internal/record"
	"github.com/sanspareilsmyn/fishlens/internal/store/sqlstore"
)

func setupTestServer(t *testing.T) (*Server, *sqlstore.Store) {
	t.Helper()
	ctx := context.Background()

	db, err := sqlstore.Open(config.DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Migrate(ctx))

	require.NoError(t, db.InsertFrames(ctx, []record.Frame{
		{ID: "f1", Timestamp: time.Date(2024, 1, 2, 8, 0, 0, 0, time.UTC)},
		{ID: "f2", Timestamp: time.Date(2024, 3, 2, 8, 0, 0, 0, time.UTC)},
	}))
	require.NoError(t, db.InsertDetections(ctx, []record.Detection{
		{ID: "d1", FrameID: "f1"},
		{ID: "d2", FrameID: "f2"},
	}))
	require.NoError(t, db.InsertMeasurements(ctx, []string{"m1", "m2"}, []record.Measurement{
		{DetectionID: "d1", WeightG: 80, LengthCM: 20, HeightCM: 10},
		{DetectionID: "d2", WeightG: 120, LengthCM: 22, HeightCM: 12},
	}))

	svc := pipeline.NewService(db, config.Default(), nil, zap.NewNop())
	s := NewServer(svc, zap.NewNop())
	s.now = func() time.Time { return time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC) }
	return s, db
}

type testResponse struct {
	Data          json.RawMessage       `json:"data"`
	Notifications []notify.Notification `json:"notifications"`
}

func get(t *testing.T, s *Server, target string) (int, testResponse) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, http.NoBody)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	var resp testResponse
	if rec.Code == http.StatusOK {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	}
	return rec.Code, resp
}

func TestCurrentMetrics_Endpoint(t *testing.T) {
	s, _ := setupTestServer(t)

	code, resp := get(t, s, "/api/metrics/current?startDate=2024-01-01&endDate=2024-01-31&location=all-locations")
	require.Equal(t, http.StatusOK, code)
	assert.Empty(t, resp.Notifications)

	var metrics pipeline.TankMetrics
	require.NoError(t, json.Unmarshal(resp.Data, &metrics))
	assert.Equal(t, 10, metrics.FishCount)
	assert.Equal(t, pipeline.Available(0.8), metrics.TotalBiomass)
	assert.Equal(t, pipeline.Available(1), metrics.KFactor)
	assert.False(t, metrics.HealthScore.Valid)
	assert.Contains(t, string(resp.Data), `"healthScore":"#N/A"`)
}

func TestSeriesEndpoints(t *testing.T) {
	s, _ := setupTestServer(t)
	query := "?startDate=2024-01-01&endDate=2024-01-31"

	code, resp := get(t, s, "/api/biomass"+query)
	require.Equal(t, http.StatusOK, code)
	var biomass []pipeline.SeriesPoint
	require.NoError(t, json.Unmarshal(resp.Data, &biomass))
	assert.Equal(t, []pipeline.SeriesPoint{{Date: "2024-01-02", Value: 0.8, Label: "2024-01-02"}}, biomass)

	code, resp = get(t, s, "/api/fish-count"+query)
	require.Equal(t, http.StatusOK, code)
	var fishCount []pipeline.SeriesPoint
	require.NoError(t, json.Unmarshal(resp.Data, &fishCount))
	assert.Equal(t, []pipeline.SeriesPoint{{Date: "2023-12-31", Value: 10, Label: "Dec 31"}}, fishCount)

	code, resp = get(t, s, "/api/kfactor"+query)
	require.Equal(t, http.StatusOK, code)
	var kfactor []pipeline.KFactorPoint
	require.NoError(t, json.Unmarshal(resp.Data, &kfactor))
	assert.Equal(t, []pipeline.KFactorPoint{{Date: "Jan 2024", Mean: 1}}, kfactor)
}

func TestSampleEndpoints(t *testing.T) {
	s, _ := setupTestServer(t)
	query := "?startDate=2024-01-01&endDate=2024-01-31"

	code, resp := get(t, s, "/api/weights"+query)
	require.Equal(t, http.StatusOK, code)
	var weights []float64
	require.NoError(t, json.Unmarshal(resp.Data, &weights))
	assert.Len(t, weights, 1000)

	code, resp = get(t, s, "/api/distribution/weight"+query)
	require.Equal(t, http.StatusOK, code)
	var weightDist pipeline.Distribution
	require.NoError(t, json.Unmarshal(resp.Data, &weightDist))
	require.Len(t, weightDist.Bins, 6)
	assert.Equal(t, "50-60g", weightDist.Bins[0].Range)
	assert.Len(t, weightDist.Density, 60)

	code, resp = get(t, s, "/api/distribution/length"+query)
	require.Equal(t, http.StatusOK, code)
	var lengthDist pipeline.Distribution
	require.NoError(t, json.Unmarshal(resp.Data, &lengthDist))
	assert.Len(t, lengthDist.Bins, 14)
}

func TestDefaultFiltersApplyWithoutQuery(t *testing.T) {
	s, _ := setupTestServer(t)

	// The default window ends on 2024-01-10 and covers frame f1.
	code, resp := get(t, s, "/api/biomass")
	require.Equal(t, http.StatusOK, code)
	var biomass []pipeline.SeriesPoint
	require.NoError(t, json.Unmarshal(resp.Data, &biomass))
	assert.Equal(t, "2024-01-02", biomass[0].Date)
}

func TestInvalidFilters(t *testing.T) {
	s, _ := setupTestServer(t)

	for _, target := range []string{
		"/api/biomass?startDate=01/01/2024&endDate=2024-01-31",
		"/api/biomass?startDate=2024-02-01&endDate=2024-01-31",
		"/api/kfactor?endDate=2024-13-01",
	} {
		code, _ := get(t, s, target)
		assert.Equal(t, http.StatusBadRequest, code, target)
	}
}

func TestFailureIsReportedInResponse(t *testing.T) {
	s, db := setupTestServer(t)
	require.NoError(t, db.Close())

	code, resp := get(t, s, "/api/metrics/current?startDate=2024-01-01&endDate=2024-01-31")
	require.Equal(t, http.StatusOK, code)
	require.Len(t, resp.Notifications, 1)
	assert.Equal(t, "Data fetch failed (Current Metrics)", resp.Notifications[0].Title)
	assert.Contains(t, string(resp.Data), `"totalBiomass":"#N/A"`)

	// Notifications are per request.
	code, resp = get(t, s, "/api/fish-count?startDate=2024-01-01&endDate=2024-01-31")
	require.Equal(t, http.StatusOK, code)
	require.Len(t, resp.Notifications, 1)
	assert.Equal(t, "Data fetch failed (Fish Count)", resp.Notifications[0].Title)
}

func TestMetricsEndpoint(t *testing.T) {
	s, _ := setupTestServer(t)
	get(t, s, "/api/metrics/current?startDate=2024-01-01&endDate=2024-01-31")

	req := httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "fishlens_store_queries_total")
	assert.Contains(t, rec.Body.String(), "fishlens_tank_biomass_kg")
}
