package health

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seekkrr/landingpage/domain/email"
	"github.com/seekkrr/landingpage/internal/metrics"
	"github.com/seekkrr/landingpage/internal/testutil"
)

func newTestEcho(t *testing.T) (*echo.Echo, *Handler) {
	t.Helper()
	db := testutil.NewTestDB(t)
	jobs := email.NewJobsService(db, testutil.DiscardLogger(), &email.Config{})
	h := NewHandler(db, jobs, metrics.NewRegistry())
	e := echo.New()
	RegisterRoutes(e, h)
	return e, h
}

func get(e *echo.Echo, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestAPIHealth(t *testing.T) {
	e, _ := newTestEcho(t)

	rec := get(e, "/api/health")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.OK)
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, "healthy", resp.Checks["database"].Status)
	assert.Equal(t, "healthy", resp.Checks["email"].Status)
}

func TestProbes(t *testing.T) {
	e, _ := newTestEcho(t)

	rec := get(e, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())

	rec = get(e, "/ready")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ready"}`, rec.Body.String())
}

func TestHealthUnavailableWhenDatabaseClosed(t *testing.T) {
	db := testutil.NewTestDB(t)
	h := NewHandler(db, nil, metrics.NewRegistry())
	e := echo.New()
	RegisterRoutes(e, h)
	require.NoError(t, db.Close())

	rec := get(e, "/health")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	rec = get(e, "/ready")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	e, _ := newTestEcho(t)

	rec := get(e, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
