package api_test

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"service-call-analytics/pkg/api"
	"service-call-analytics/pkg/database"
	"service-call-analytics/pkg/models"
	"service-call-analytics/pkg/repository"
	"service-call-analytics/pkg/service"
)

func newTestServer(t *testing.T) (*httptest.Server, *sql.DB) {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	require.NoError(t, database.Migrate(db))

	repo := repository.NewSQLiteCallRepository(db)
	handler := api.NewHandler(service.NewCallService(repo), service.NewMetadataService(repo))

	router := mux.NewRouter()
	handler.Register(router)

	srv := httptest.NewServer(router)
	t.Cleanup(func() {
		srv.Close()
		db.Close()
	})
	return srv, db
}

func seedCalls(t *testing.T, db *sql.DB) {
	t.Helper()
	_, err := db.Exec(`
		INSERT INTO service_calls (call_id, state, status, call_entry_datetime, call_solved_datetime)
		VALUES (1, 'TX', 'Solved', '2024-01-01 08:00:00', '2024-01-02 08:00:00'),
		       (2, 'CA', 'Pending', '2024-02-01 08:00:00', NULL)
	`)
	require.NoError(t, err)
}

func getJSON(t *testing.T, url string, out interface{}) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestGetAllCalls(t *testing.T) {
	srv, db := newTestServer(t)
	seedCalls(t, db)

	var records []models.ServiceCallRecord
	status := getJSON(t, srv.URL+"/calls/all", &records)

	assert.Equal(t, http.StatusOK, status)
	require.Len(t, records, 2)
	assert.Equal(t, int64(2), records[0].CallID)
}

func TestGetAllCallsEmptyStoreIsEmptyArray(t *testing.T) {
	srv, _ := newTestServer(t)

	var records []models.ServiceCallRecord
	status := getJSON(t, srv.URL+"/calls/all", &records)

	assert.Equal(t, http.StatusOK, status)
	assert.NotNil(t, records)
	assert.Len(t, records, 0)
}

func TestGetCallByID(t *testing.T) {
	srv, db := newTestServer(t)
	seedCalls(t, db)

	var rec models.ServiceCallRecord
	status := getJSON(t, srv.URL+"/calls/by_id/1", &rec)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "TX", *rec.State)

	var errBody map[string]string
	status = getJSON(t, srv.URL+"/calls/by_id/999", &errBody)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Contains(t, errBody["detail"], "call 999")

	status = getJSON(t, srv.URL+"/calls/by_id/abc", &errBody)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestFilterCalls(t *testing.T) {
	srv, db := newTestServer(t)
	seedCalls(t, db)

	var records []models.ServiceCallRecord
	status := getJSON(t, srv.URL+"/calls/filter?state=TX", &records)
	assert.Equal(t, http.StatusOK, status)
	require.Len(t, records, 1)
	assert.Equal(t, int64(1), records[0].CallID)

	status = getJSON(t, srv.URL+"/calls/filter?start_date=2024-02-01", &records)
	assert.Equal(t, http.StatusOK, status)
	require.Len(t, records, 1)
	assert.Equal(t, int64(2), records[0].CallID)
}

func TestFilterCallsBadInput(t *testing.T) {
	srv, _ := newTestServer(t)

	status := getJSON(t, srv.URL+"/calls/filter?limit=abc", nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status = getJSON(t, srv.URL+"/calls/filter?limit=99999", nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status = getJSON(t, srv.URL+"/calls/filter?start_date=01-01-2024", nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestGetStats(t *testing.T) {
	srv, db := newTestServer(t)
	seedCalls(t, db)

	var stats models.KPIStats
	status := getJSON(t, srv.URL+"/calls/stats", &stats)

	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, 2, stats.TotalCalls)
	assert.Equal(t, 1, stats.ClosedCalls)
	assert.Equal(t, 1, stats.PendingCalls)
	require.NotNil(t, stats.AverageResolutionHours)
	assert.Equal(t, 24.0, *stats.AverageResolutionHours)
}

func TestGetFilterMetadata(t *testing.T) {
	srv, db := newTestServer(t)
	seedCalls(t, db)

	var metadata models.FilterMetadata
	status := getJSON(t, srv.URL+"/calls/filter_metadata", &metadata)

	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "2024-01-01", *metadata.DateMin)
	assert.Equal(t, "2024-02-01", *metadata.DateMax)
	assert.Equal(t, []string{"CA", "TX"}, metadata.StateOptions)
	assert.Equal(t, []string{"Pending", "Solved"}, metadata.StatusOptions)
}

func TestGetLatestUpdate(t *testing.T) {
	srv, db := newTestServer(t)

	status := getJSON(t, srv.URL+"/calls/latest_update", nil)
	assert.Equal(t, http.StatusNotFound, status)

	seedCalls(t, db)

	var update models.LatestUpdate
	status = getJSON(t, srv.URL+"/calls/latest_update", &update)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "service_calls", update.Source)
	assert.True(t, update.Fallback)
}

func TestGetDashboard(t *testing.T) {
	srv, db := newTestServer(t)
	seedCalls(t, db)

	var data models.DashboardData
	status := getJSON(t, srv.URL+"/calls/dashboard?state=TX&state=CA", &data)

	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, 2, data.KPIs.TotalCalls)
	assert.Equal(t, 1, data.KPIs.ClosedCalls)
	assert.Len(t, data.CallsLoggedPerDay, 2)
	assert.Equal(t, []models.DistributionItem{
		{Label: "CA", Value: 1},
		{Label: "TX", Value: 1},
	}, data.StateDistribution)
}
