package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mwhitton/chattersignal/internal/analytics"
	"github.com/mwhitton/chattersignal/internal/config"
	"github.com/mwhitton/chattersignal/internal/models"
	"github.com/mwhitton/chattersignal/internal/store"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(t *testing.T, authToken string) (*Server, *store.MockStore) {
	t.Helper()
	st := store.NewMockStore()
	engine := analytics.NewEngine(st, config.AnalyticsConfig{
		VelocityWindowHours: 24,
		MinSamples:          2,
		AlertThresholdPct:   30,
	}, quietLogger())
	return NewServer(st, engine, quietLogger(), authToken), st
}

func doRequest(t *testing.T, srv *Server, method, path, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealthz_NoAuthRequired(t *testing.T) {
	srv, _ := newTestServer(t, "secret")

	rec := doRequest(t, srv, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuth_RejectsMissingAndWrongToken(t *testing.T) {
	srv, _ := newTestServer(t, "secret")

	rec := doRequest(t, srv, http.MethodGet, "/api/v1/stats", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doRequest(t, srv, http.MethodGet, "/api/v1/stats", "wrong")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doRequest(t, srv, http.MethodGet, "/api/v1/stats", "secret")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuth_DisabledWhenNoTokenConfigured(t *testing.T) {
	srv, _ := newTestServer(t, "")

	rec := doRequest(t, srv, http.MethodGet, "/api/v1/stats", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestTopEntities_ReturnsRankedEntities(t *testing.T) {
	srv, st := newTestServer(t, "")
	now := time.Now().UTC()
	v := 0.5
	require.NoError(t, st.UpsertSignal(context.Background(), models.ExtractedSignal{
		ID: "s1", CommentID: "c1", EntityID: "blake",
		Kind: models.SignalKindSentiment, Source: "lexicon",
		NumericValue: &v, Weight: 1, Confidence: 0.9, CreatedAt: now,
	}))

	rec := doRequest(t, srv, http.MethodGet, "/api/v1/top-entities?days=1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Entities []analytics.EntityReport `json:"entities"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Entities, 1)
	assert.Equal(t, "blake", body.Entities[0].EntityID)
}

func TestVelocity_ReturnsResultForUnknownEntity(t *testing.T) {
	// No signals at all: a valid insufficient-data result, not an error.
	srv, _ := newTestServer(t, "")

	rec := doRequest(t, srv, http.MethodGet, "/api/v1/velocity/ghost", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var v analytics.VelocityResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	assert.Equal(t, "ghost", v.EntityID)
	assert.False(t, v.Sufficient)
}

func TestSignals_NotFoundForUnknownComment(t *testing.T) {
	srv, _ := newTestServer(t, "")

	rec := doRequest(t, srv, http.MethodGet, "/api/v1/signals/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDiscoveries_FiltersByMentionFloor(t *testing.T) {
	srv, st := newTestServer(t, "")
	require.NoError(t, st.UpsertDiscovery(context.Background(), models.DiscoveredEntity{
		ID: "d1", Name: "Taylor Swift", NormalizedName: "taylor swift", MentionCount: 5,
	}))
	require.NoError(t, st.UpsertDiscovery(context.Background(), models.DiscoveredEntity{
		ID: "d2", Name: "One Off", NormalizedName: "one off", MentionCount: 1,
	}))

	rec := doRequest(t, srv, http.MethodGet, "/api/v1/discoveries?min_mentions=3", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Discoveries []models.DiscoveredEntity `json:"discoveries"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Discoveries, 1)
	assert.Equal(t, "Taylor Swift", body.Discoveries[0].Name)
}

func TestDistribution_BreaksDownByKind(t *testing.T) {
	srv, st := newTestServer(t, "")
	now := time.Now().UTC()
	require.NoError(t, st.UpsertSignal(context.Background(), models.ExtractedSignal{
		ID: "s10", CommentID: "c10", EntityID: "blake",
		Kind: models.SignalKindEmotion, Source: "lexicon", Value: "anger",
		Weight: 1, Confidence: 0.9, CreatedAt: now.Add(-time.Hour),
	}))
	require.NoError(t, st.UpsertSignal(context.Background(), models.ExtractedSignal{
		ID: "s11", CommentID: "c11", EntityID: "blake",
		Kind: models.SignalKindEmotion, Source: "lexicon", Value: "anger",
		Weight: 1, Confidence: 0.9, CreatedAt: now.Add(-time.Hour),
	}))

	rec := doRequest(t, srv, http.MethodGet, "/api/v1/distribution/blake", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var report analytics.DistributionReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, 2, report.SignalCount)
	assert.EqualValues(t, 2, report.Kinds[models.SignalKindEmotion]["anger"])
}
