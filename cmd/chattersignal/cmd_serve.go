package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mwhitton/chattersignal/internal/analytics"
	"github.com/mwhitton/chattersignal/internal/api"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the read-only HTTP/JSON analytics API",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()

			st, err := newStore(ctx, logger)
			if err != nil {
				return fmt.Errorf("serve: opening store: %w", err)
			}
			defer func() { _ = st.Close() }()

			engine := analytics.NewEngine(st, cfg.Analytics, logger)
			srv := api.NewServer(st, engine, logger, cfg.API.AuthToken)

			if cfg.API.AuthToken == "" {
				logger.Warn("HTTP API: auth is DISABLED; set CHATTERSIGNAL_API_AUTH_TOKEN or cfg.api.auth_token for production use")
			}

			if err := srv.Run(ctx, cfg.API.ListenAddr); err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			return nil
		},
	}
	return cmd
}
