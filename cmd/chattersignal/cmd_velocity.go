package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mwhitton/chattersignal/internal/analytics"
)

func velocityCmd() *cobra.Command {
	var (
		from string
		to   string
	)

	cmd := &cobra.Command{
		Use:   "velocity <entity-id>",
		Short: "Compute sentiment velocity for one entity",
		Long: `Compares the mean sentiment of the recent half of a window against the
previous half. Without --from/--to the window is the configured live window
anchored at now; with both, the explicit period is split at its midpoint.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()
			entityID := args[0]

			st, err := newStore(ctx, logger)
			if err != nil {
				return fmt.Errorf("velocity: opening store: %w", err)
			}
			defer func() { _ = st.Close() }()

			engine := analytics.NewEngine(st, cfg.Analytics, logger)

			var v *analytics.VelocityResult
			switch {
			case from == "" && to == "":
				v, err = engine.ComputeLiveVelocity(ctx, entityID)
			case from != "" && to != "":
				fromT, parseErr := time.Parse(time.RFC3339, from)
				if parseErr != nil {
					return fmt.Errorf("velocity: parsing --from: %w", parseErr)
				}
				toT, parseErr := time.Parse(time.RFC3339, to)
				if parseErr != nil {
					return fmt.Errorf("velocity: parsing --to: %w", parseErr)
				}
				if !toT.After(fromT) {
					return fmt.Errorf("velocity: --to must be after --from")
				}
				v, err = engine.ComputeWindowVelocity(ctx, entityID, fromT, toT)
			default:
				return fmt.Errorf("velocity: --from and --to must be given together")
			}
			if err != nil {
				return fmt.Errorf("velocity: %w", err)
			}

			if !v.Sufficient {
				fmt.Printf("Insufficient data for %s: %d recent + %d previous samples (need %d each)\n",
					entityID, v.RecentCount, v.PreviousCount, cfg.Analytics.MinSamples)
				return nil
			}

			fmt.Printf("Entity:          %s\n", entityID)
			fmt.Printf("Window:          %s .. %s\n", v.From.Format(time.RFC3339), v.To.Format(time.RFC3339))
			fmt.Printf("Previous mean:   %+.3f (%d samples)\n", v.PreviousMean, v.PreviousCount)
			fmt.Printf("Recent mean:     %+.3f (%d samples)\n", v.RecentMean, v.RecentCount)
			fmt.Printf("Change:          %+.1f%%\n", v.PercentChange)
			if v.Alert {
				fmt.Println("ALERT: change crosses the configured threshold")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "window start (RFC 3339)")
	cmd.Flags().StringVar(&to, "to", "", "window end (RFC 3339)")
	return cmd
}
