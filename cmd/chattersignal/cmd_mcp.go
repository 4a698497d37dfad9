package main

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/mwhitton/chattersignal/internal/analytics"
	chattermcp "github.com/mwhitton/chattersignal/internal/mcp"
)

func mcpCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start the MCP (Model Context Protocol) server over stdio",
		Long: `Starts an MCP JSON-RPC 2.0 server that reads from stdin and writes to stdout.
All diagnostic logs go to stderr so that stdout remains exclusively MCP protocol traffic.

Tools exposed:
  top_entities     - rank entities by sentiment signal volume
  entity_velocity  - sentiment velocity for one entity
  discoveries      - unreviewed discovered names awaiting triage
  stats            - signal ledger statistics`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := newLogger()

			st, err := newStore(cmd.Context(), logger)
			if err != nil {
				return fmt.Errorf("mcp: opening store: %w", err)
			}
			defer func() { _ = st.Close() }()

			engine := analytics.NewEngine(st, cfg.Analytics, logger)
			srv := chattermcp.NewServer(st, engine, logger)

			// Use a standard log.Logger pointing at stderr for the mcp-go error logger.
			errLogger := log.New(os.Stderr, "mcp: ", log.LstdFlags)

			logger.Info("mcp: chattersignal MCP server starting", "transport", "stdio")

			return mcpserver.ServeStdio(
				srv.MCPServer(),
				mcpserver.WithErrorLogger(errLogger),
			)
		},
	}

	return cmd
}
