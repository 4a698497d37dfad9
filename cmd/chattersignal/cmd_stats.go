package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show signal ledger statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()

			st, err := newStore(ctx, logger)
			if err != nil {
				return fmt.Errorf("stats: opening store: %w", err)
			}
			defer func() { _ = st.Close() }()

			stats, err := st.Stats(ctx)
			if err != nil {
				return fmt.Errorf("stats: fetching statistics: %w", err)
			}

			fmt.Printf("Comments:  %d total, %d enriched\n", stats.TotalComments, stats.EnrichedComments)
			fmt.Printf("Signals:   %d\n\n", stats.TotalSignals)

			fmt.Println("By kind:")
			for k, c := range stats.ByKind {
				fmt.Printf("  %-12s %d\n", k, c)
			}

			fmt.Println("\nBy source:")
			for s, c := range stats.BySource {
				fmt.Printf("  %-12s %d\n", s, c)
			}

			fmt.Printf("\nPending reviews: %d\n", stats.PendingReviews)
			fmt.Printf("Discoveries:     %d\n", stats.Discoveries)
			return nil
		},
	}
}
