// Package mcp implements the Model Context Protocol server for chattersignal.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	mcpgo "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/mwhitton/chattersignal/internal/analytics"
	"github.com/mwhitton/chattersignal/internal/store"
)

const (
	// defaultTopLimit is the default number of entities for top_entities.
	defaultTopLimit = 10

	// defaultDiscoveryLimit is the default number of rows for discoveries.
	defaultDiscoveryLimit = 20

	// defaultLookbackDays is the default reporting window for top_entities.
	defaultLookbackDays = 7
)

// Server wraps an MCPServer with chattersignal dependencies.
type Server struct {
	mcp    *mcpserver.MCPServer
	st     store.Store
	engine *analytics.Engine
	logger *slog.Logger
}

// NewServer creates a new MCP server. If st or engine are nil, the
// corresponding tool calls will return an error response instead of panicking.
func NewServer(st store.Store, engine *analytics.Engine, logger *slog.Logger) *Server {
	s := &Server{
		st:     st,
		engine: engine,
		logger: logger,
	}

	mcpSrv := mcpserver.NewMCPServer(
		"chattersignal",
		"1.0.0",
		mcpserver.WithToolCapabilities(true),
	)

	mcpSrv.AddTool(buildTopEntitiesTool(), s.handleTopEntities)
	mcpSrv.AddTool(buildEntityVelocityTool(), s.handleEntityVelocity)
	mcpSrv.AddTool(buildDiscoveriesTool(), s.handleDiscoveries)
	mcpSrv.AddTool(buildStatsTool(), s.handleStats)

	s.mcp = mcpSrv
	return s
}

// MCPServer returns the underlying mcp-go MCPServer for use with ServeStdio.
func (s *Server) MCPServer() *mcpserver.MCPServer {
	return s.mcp
}

// HandleTopEntities is the exported handler for the "top_entities" tool.
// It is exposed for direct testing without the mcp-go transport layer.
func (s *Server) HandleTopEntities(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	return s.handleTopEntities(ctx, req)
}

// HandleEntityVelocity is the exported handler for the "entity_velocity" tool.
func (s *Server) HandleEntityVelocity(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	return s.handleEntityVelocity(ctx, req)
}

// HandleDiscoveries is the exported handler for the "discoveries" tool.
func (s *Server) HandleDiscoveries(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	return s.handleDiscoveries(ctx, req)
}

// HandleStats is the exported handler for the "stats" tool.
func (s *Server) HandleStats(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	return s.handleStats(ctx, req)
}

// --- helpers ---

// toolResultJSON marshals v to JSON and returns it as a tool text result.
func toolResultJSON(v any) (*mcpgo.CallToolResult, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("mcp: marshaling result: %w", err)
	}
	return mcpgo.NewToolResultText(string(b)), nil
}

// --- tool definitions ---

func buildTopEntitiesTool() mcpgo.Tool {
	return mcpgo.NewTool("top_entities",
		mcpgo.WithDescription("Rank monitored entities by sentiment signal volume over a lookback window, with mean and engagement-weighted sentiment and a trajectory label per entity."),
		mcpgo.WithNumber("days",
			mcpgo.Description("Lookback window in days (default: 7)"),
		),
		mcpgo.WithNumber("limit",
			mcpgo.Description("Maximum number of entities (default: 10)"),
		),
	)
}

func buildEntityVelocityTool() mcpgo.Tool {
	return mcpgo.NewTool("entity_velocity",
		mcpgo.WithDescription("Compute sentiment velocity for one entity: recent-half mean versus previous-half mean, percent change, and whether the shift crosses the alert threshold."),
		mcpgo.WithString("entity_id",
			mcpgo.Required(),
			mcpgo.Description("The ID of the monitored entity"),
		),
	)
}

func buildDiscoveriesTool() mcpgo.Tool {
	return mcpgo.NewTool("discoveries",
		mcpgo.WithDescription("List unreviewed discovered names that cleared the mention floor, sorted by mention count. This is the triage queue for expanding the monitored catalog."),
		mcpgo.WithNumber("min_mentions",
			mcpgo.Description("Minimum mention count (default: configured floor)"),
		),
		mcpgo.WithNumber("limit",
			mcpgo.Description("Maximum number of results (default: 20)"),
		),
	)
}

func buildStatsTool() mcpgo.Tool {
	return mcpgo.NewTool("stats",
		mcpgo.WithDescription("Get ledger statistics: comment and signal totals, breakdown by kind and source, pending reviews, and discovery count."),
	)
}

// --- tool handlers ---

// handleTopEntities aggregates sentiment signals per entity over the window.
func (s *Server) handleTopEntities(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	if s.engine == nil {
		return mcpgo.NewToolResultError("analytics engine is unavailable"), nil
	}

	days := req.GetInt("days", defaultLookbackDays)
	if days <= 0 {
		days = defaultLookbackDays
	}
	limit := req.GetInt("limit", defaultTopLimit)
	if limit <= 0 {
		limit = defaultTopLimit
	}

	to := time.Now().UTC()
	from := to.AddDate(0, 0, -days)

	reports, err := s.engine.TopEntities(ctx, from, to, limit)
	if err != nil {
		return mcpgo.NewToolResultErrorf("top entities failed: %s", err.Error()), nil
	}

	result := map[string]any{
		"from":     from,
		"to":       to,
		"entities": reports,
	}
	return toolResultJSON(result)
}

// handleEntityVelocity computes the live two-window velocity for one entity.
func (s *Server) handleEntityVelocity(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	if s.engine == nil {
		return mcpgo.NewToolResultError("analytics engine is unavailable"), nil
	}

	entityID := req.GetString("entity_id", "")
	if strings.TrimSpace(entityID) == "" {
		return mcpgo.NewToolResultError("entity_id is required and must not be empty"), nil
	}

	v, err := s.engine.ComputeLiveVelocity(ctx, entityID)
	if err != nil {
		return mcpgo.NewToolResultErrorf("velocity failed: %s", err.Error()), nil
	}
	return toolResultJSON(v)
}

// handleDiscoveries lists the unreviewed discovery triage queue.
func (s *Server) handleDiscoveries(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	if s.st == nil {
		return mcpgo.NewToolResultError("store is unavailable"), nil
	}

	minMentions := req.GetInt("min_mentions", 0)
	limit := req.GetInt("limit", defaultDiscoveryLimit)
	if limit <= 0 {
		limit = defaultDiscoveryLimit
	}

	discoveries, err := s.st.ListDiscoveries(ctx, int64(minMentions), true, limit)
	if err != nil {
		return mcpgo.NewToolResultErrorf("discoveries failed: %s", err.Error()), nil
	}

	result := map[string]any{
		"discoveries": discoveries,
	}
	return toolResultJSON(result)
}

// handleStats returns ledger statistics.
func (s *Server) handleStats(ctx context.Context, _ mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	if s.st == nil {
		return mcpgo.NewToolResultError("store is unavailable"), nil
	}

	stats, err := s.st.Stats(ctx)
	if err != nil {
		return mcpgo.NewToolResultErrorf("stats failed: %s", err.Error()), nil
	}
	return toolResultJSON(stats)
}
