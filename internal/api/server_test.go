package api

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomking/trading-framework/internal/models"
	"github.com/tomking/trading-framework/internal/storage"
)

func quietLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func seededStore(t *testing.T) *storage.MockStorage {
	t.Helper()
	store := storage.NewMockStorage()

	pos := models.NewPosition("pos-1", "SPY", "zero_dte_condor", "EQUITY_INDEX", time.Now().AddDate(0, 0, 45))
	require.NoError(t, pos.TransitionState(models.StateStaged, "order_staged"))
	require.NoError(t, pos.TransitionState(models.StateOpen, "paper_fill"))
	pos.Quantity = 2
	pos.Allocation = 12000
	pos.EntryVIX = 22.0
	pos.Regime = "elevated"
	pos.CreditReceived = 3.10
	store.SeedPosition(*pos)

	require.NoError(t, store.AddRecommendation(models.Recommendation{
		ID:         "rec-1",
		StrategyID: "zero_dte_condor",
		Symbol:     "SPY",
		Accepted:   true,
		Reason:     "accepted",
	}))
	return store
}

func doRequest(t *testing.T, s *Server, method, path string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	s := NewServer(Config{Port: 0}, storage.NewMockStorage(), quietLogger())

	rec := doRequest(t, s, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestGetPositions(t *testing.T) {
	s := NewServer(Config{Port: 0}, seededStore(t), quietLogger())

	rec := doRequest(t, s, http.MethodGet, "/api/positions", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var views []PositionView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &views))
	require.Len(t, views, 1)
	assert.Equal(t, "pos-1", views[0].ID)
	assert.Equal(t, "open", views[0].State)
	assert.Equal(t, "elevated", views[0].Regime)
	assert.Equal(t, 3.10, views[0].CreditReceived)
}

func TestGetPositionByID(t *testing.T) {
	s := NewServer(Config{Port: 0}, seededStore(t), quietLogger())

	rec := doRequest(t, s, http.MethodGet, "/api/positions/pos-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var view PositionView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Equal(t, "zero_dte_condor", view.StrategyID)

	rec = doRequest(t, s, http.MethodGet, "/api/positions/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetRecommendations(t *testing.T) {
	s := NewServer(Config{Port: 0}, seededStore(t), quietLogger())

	rec := doRequest(t, s, http.MethodGet, "/api/recommendations", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var recs []models.Recommendation
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &recs))
	require.Len(t, recs, 1)
	assert.Equal(t, "rec-1", recs[0].ID)

	rec = doRequest(t, s, http.MethodGet, "/api/recommendations?limit=oops", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetStats(t *testing.T) {
	s := NewServer(Config{Port: 0}, seededStore(t), quietLogger())

	rec := doRequest(t, s, http.MethodGet, "/api/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var stats storage.Statistics
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Zero(t, stats.TotalTrades)
}

func TestBearerTokenAuth(t *testing.T) {
	s := NewServer(Config{Port: 0, AuthToken: "sekrit"}, seededStore(t), quietLogger())

	// Health stays open.
	rec := doRequest(t, s, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, s, http.MethodGet, "/api/positions", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doRequest(t, s, http.MethodGet, "/api/positions", map[string]string{
		"Authorization": "Bearer wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doRequest(t, s, http.MethodGet, "/api/positions", map[string]string{
		"Authorization": "Bearer sekrit",
	})
	assert.Equal(t, http.StatusOK, rec.Code)
}
