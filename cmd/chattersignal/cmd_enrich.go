package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mwhitton/chattersignal/internal/catalog"
	"github.com/mwhitton/chattersignal/internal/discovery"
	"github.com/mwhitton/chattersignal/internal/enrich"
	"github.com/mwhitton/chattersignal/internal/resolver"
)

func enrichCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "enrich",
		Short: "Enrich unprocessed comments into per-entity signals",
		Long: `Runs the enrichment pipeline over every comment with no terminal state:
resolve entity mentions against the monitored catalog, score sentiment and
emotion, commit confident signals, queue uncertain ones for review, and
track unknown names as discoveries. Interrupted runs resume from where
they stopped.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()

			st, err := newStore(ctx, logger)
			if err != nil {
				return fmt.Errorf("enrich: opening store: %w", err)
			}
			defer func() { _ = st.Close() }()

			entities, err := st.ListEntities(ctx, true)
			if err != nil {
				return fmt.Errorf("enrich: loading entities: %w", err)
			}
			cat, err := catalog.Build(entities, logger)
			if err != nil {
				return fmt.Errorf("enrich: building catalog: %w", err)
			}
			if cat.Len() == 0 {
				logger.Warn("monitored catalog is empty; only comment-level signals and discoveries will be produced")
			}

			scorer, err := newScorer(logger)
			if err != nil {
				return fmt.Errorf("enrich: %w", err)
			}

			engine := enrich.NewEngine(
				cat,
				resolver.New(cat, logger),
				scorer,
				discovery.NewTracker(st, cfg.Discovery.SampleCap, logger),
				st,
				enrich.NewNameFilter(nil),
				cfg.Enrich,
				logger,
			)

			report, err := engine.Run(ctx)
			if err != nil {
				return fmt.Errorf("enrich: %w", err)
			}

			fmt.Printf("Processed:          %d\n", report.Processed)
			fmt.Printf("Signals committed:  %d\n", report.SignalsCommitted)
			fmt.Printf("Queued for review:  %d\n", report.ReviewQueued)
			fmt.Printf("Names discovered:   %d\n", report.Discovered)
			if report.Failed > 0 {
				fmt.Printf("Failed:             %d (will retry next run)\n", report.Failed)
			}
			return nil
		},
	}
	return cmd
}
