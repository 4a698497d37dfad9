package mcp

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	mcpgo "github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mwhitton/chattersignal/internal/analytics"
	"github.com/mwhitton/chattersignal/internal/config"
	"github.com/mwhitton/chattersignal/internal/models"
	"github.com/mwhitton/chattersignal/internal/store"
)

// newMCPServer returns a Server backed by a MockStore.
func newMCPServer(t *testing.T) (*Server, *store.MockStore) {
	t.Helper()
	ms := store.NewMockStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	engine := analytics.NewEngine(ms, config.AnalyticsConfig{
		VelocityWindowHours: 24,
		MinSamples:          2,
		AlertThresholdPct:   30,
	}, logger)
	return NewServer(ms, engine, logger), ms
}

// makeReq builds a CallToolRequest with the given arguments.
func makeReq(toolName string, args map[string]any) mcpgo.CallToolRequest {
	req := mcpgo.CallToolRequest{}
	req.Params.Name = toolName
	req.Params.Arguments = args
	return req
}

// textContent extracts the first TextContent string from a CallToolResult.
func textContent(t *testing.T, result *mcpgo.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, result.Content, "expected at least one content item")
	tc, ok := result.Content[0].(mcpgo.TextContent)
	require.True(t, ok, "expected TextContent, got %T", result.Content[0])
	return tc.Text
}

func seedSentimentSignal(t *testing.T, ms *store.MockStore, id, entityID string, value float64, at time.Time) {
	t.Helper()
	v := value
	require.NoError(t, ms.UpsertSignal(context.Background(), models.ExtractedSignal{
		ID: id, CommentID: "c-" + id, EntityID: entityID,
		Kind: models.SignalKindSentiment, Source: "lexicon",
		NumericValue: &v, Weight: 1, Confidence: 0.9, CreatedAt: at,
	}))
}

func TestMCPTopEntities_ReturnsRankedEntities(t *testing.T) {
	srv, ms := newMCPServer(t)
	now := time.Now().UTC()
	seedSentimentSignal(t, ms, "s1", "blake", 0.5, now.Add(-time.Hour))
	seedSentimentSignal(t, ms, "s2", "blake", 0.7, now.Add(-time.Hour))

	result, err := srv.HandleTopEntities(context.Background(), makeReq("top_entities", map[string]any{
		"days": 7,
	}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	var out struct {
		Entities []analytics.EntityReport `json:"entities"`
	}
	require.NoError(t, json.Unmarshal([]byte(textContent(t, result)), &out))
	require.Len(t, out.Entities, 1)
	assert.Equal(t, "blake", out.Entities[0].EntityID)
	assert.EqualValues(t, 2, out.Entities[0].SignalCount)
}

func TestMCPEntityVelocity_RequiresEntityID(t *testing.T) {
	srv, _ := newMCPServer(t)

	result, err := srv.HandleEntityVelocity(context.Background(), makeReq("entity_velocity", map[string]any{}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestMCPEntityVelocity_InsufficientDataIsNormalResult(t *testing.T) {
	srv, _ := newMCPServer(t)

	result, err := srv.HandleEntityVelocity(context.Background(), makeReq("entity_velocity", map[string]any{
		"entity_id": "ghost",
	}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	var v analytics.VelocityResult
	require.NoError(t, json.Unmarshal([]byte(textContent(t, result)), &v))
	assert.False(t, v.Sufficient)
}

func TestMCPDiscoveries_ListsUnreviewed(t *testing.T) {
	srv, ms := newMCPServer(t)
	require.NoError(t, ms.UpsertDiscovery(context.Background(), models.DiscoveredEntity{
		ID: "d1", Name: "Taylor Swift", NormalizedName: "taylor swift", MentionCount: 4,
	}))
	require.NoError(t, ms.UpsertDiscovery(context.Background(), models.DiscoveredEntity{
		ID: "d2", Name: "Old News", NormalizedName: "old news", MentionCount: 9, Reviewed: true,
	}))

	result, err := srv.HandleDiscoveries(context.Background(), makeReq("discoveries", map[string]any{}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	var out struct {
		Discoveries []models.DiscoveredEntity `json:"discoveries"`
	}
	require.NoError(t, json.Unmarshal([]byte(textContent(t, result)), &out))
	require.Len(t, out.Discoveries, 1)
	assert.Equal(t, "Taylor Swift", out.Discoveries[0].Name)
}

func TestMCPStats_ReturnsLedgerCounts(t *testing.T) {
	srv, ms := newMCPServer(t)
	require.NoError(t, ms.UpsertComments(context.Background(), []models.Comment{{ID: "c1", Text: "x"}}))

	result, err := srv.HandleStats(context.Background(), makeReq("stats", nil))
	require.NoError(t, err)
	require.False(t, result.IsError)

	var stats store.Stats
	require.NoError(t, json.Unmarshal([]byte(textContent(t, result)), &stats))
	assert.EqualValues(t, 1, stats.TotalComments)
}

func TestMCPStats_NilStoreReturnsToolError(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := NewServer(nil, nil, logger)

	result, err := srv.HandleStats(context.Background(), makeReq("stats", nil))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}
