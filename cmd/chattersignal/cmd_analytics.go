package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mwhitton/chattersignal/internal/analytics"
	"github.com/mwhitton/chattersignal/internal/store"
)

func analyticsCmd() *cobra.Command {
	var (
		days  int
		limit int
	)

	cmd := &cobra.Command{
		Use:   "top",
		Short: "Rank entities by sentiment signal volume",
		Long: `Aggregates sentiment signals per monitored entity over the lookback
window: signal count, mean sentiment, engagement-weighted sentiment, and a
trajectory label from the velocity of the same window.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()

			st, err := newStore(ctx, logger)
			if err != nil {
				return fmt.Errorf("top: opening store: %w", err)
			}
			defer func() { _ = st.Close() }()

			engine := analytics.NewEngine(st, cfg.Analytics, logger)

			to := time.Now().UTC()
			from := to.AddDate(0, 0, -days)

			reports, err := engine.TopEntities(ctx, from, to, limit)
			if err != nil {
				return fmt.Errorf("top: %w", err)
			}

			if len(reports) == 0 {
				fmt.Println("No sentiment signals in window.")
				return nil
			}

			names, err := entityNames(ctx, st)
			if err != nil {
				return fmt.Errorf("top: loading entity names: %w", err)
			}

			fmt.Printf("%-38s %8s %8s %10s %s\n", "ENTITY", "SIGNALS", "MEAN", "WEIGHTED", "TRAJECTORY")
			for _, r := range reports {
				name := r.EntityID
				if n, ok := names[r.EntityID]; ok {
					name = n
				}
				fmt.Printf("%-38s %8d %8.2f %10.2f %s\n",
					truncate(name, 38), r.SignalCount, r.MeanSentiment, r.WeightedSentiment, r.Trajectory)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&days, "days", 7, "lookback window in days")
	cmd.Flags().IntVar(&limit, "limit", 10, "max entities")
	return cmd
}

func distributionCmd() *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "distribution <entity-id>",
		Short: "Break down one entity's signals by kind and value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()

			st, err := newStore(ctx, logger)
			if err != nil {
				return fmt.Errorf("distribution: opening store: %w", err)
			}
			defer func() { _ = st.Close() }()

			engine := analytics.NewEngine(st, cfg.Analytics, logger)

			to := time.Now().UTC()
			from := to.AddDate(0, 0, -days)

			report, err := engine.Distribution(ctx, args[0], from, to)
			if err != nil {
				return fmt.Errorf("distribution: %w", err)
			}
			if report.SignalCount == 0 {
				fmt.Println("No signals for entity in window.")
				return nil
			}

			fmt.Printf("Entity:  %s\n", report.EntityID)
			fmt.Printf("Window:  %s .. %s\n", report.From.Format(time.RFC3339), report.To.Format(time.RFC3339))
			fmt.Printf("Signals: %d\n\n", report.SignalCount)
			for kind, byValue := range report.Kinds {
				fmt.Printf("%s:\n", kind)
				for value, count := range byValue {
					fmt.Printf("    %-24s %d\n", value, count)
				}
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&days, "days", 7, "lookback window in days")
	return cmd
}

// entityNames maps entity IDs to canonical names for display.
func entityNames(ctx context.Context, st store.Store) (map[string]string, error) {
	entities, err := st.ListEntities(ctx, false)
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(entities))
	for i := range entities {
		names[entities[i].ID] = entities[i].CanonicalName
	}
	return names, nil
}
