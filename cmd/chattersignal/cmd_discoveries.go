package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mwhitton/chattersignal/internal/discovery"
	"github.com/mwhitton/chattersignal/internal/models"
)

func discoveriesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "discoveries",
		Short: "Triage entity names found outside the monitored catalog",
	}
	cmd.AddCommand(discoveriesListCmd(), discoveriesPromoteCmd(), discoveriesIgnoreCmd())
	return cmd
}

func discoveriesListCmd() *cobra.Command {
	var (
		minMentions int64
		limit       int
		all         bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List discovered names awaiting triage",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()

			st, err := newStore(ctx, logger)
			if err != nil {
				return fmt.Errorf("discoveries list: opening store: %w", err)
			}
			defer func() { _ = st.Close() }()

			if minMentions == 0 {
				minMentions = int64(cfg.Discovery.MinMentions)
			}

			discoveries, err := st.ListDiscoveries(ctx, minMentions, !all, limit)
			if err != nil {
				return fmt.Errorf("discoveries list: %w", err)
			}

			for _, d := range discoveries {
				fmt.Printf("[%4d mentions] %s (%s)\n", d.MentionCount, d.Name, d.InferredKind)
				fmt.Printf("    ID: %s | First seen: %s | Last seen: %s\n",
					d.ID, d.FirstSeen.Format("2006-01-02"), d.LastSeen.Format("2006-01-02"))
				for _, sample := range d.Samples() {
					fmt.Printf("    > %s\n", truncate(sample, 100))
				}
			}

			if len(discoveries) == 0 {
				fmt.Println("No discoveries found.")
			}
			return nil
		},
	}

	cmd.Flags().Int64Var(&minMentions, "min-mentions", 0, "minimum mention count (default: configured floor)")
	cmd.Flags().IntVar(&limit, "limit", 20, "max results")
	cmd.Flags().BoolVar(&all, "all", false, "include already-reviewed discoveries")
	return cmd
}

func discoveriesPromoteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "promote <discovery-id>",
		Short: "Promote a discovery into the monitored catalog",
		Long: `Creates an inactive monitored entity from the discovery and marks it
promoted. Activate the entity and add aliases with "catalog add" before the
next enrichment run picks it up.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()

			st, err := newStore(ctx, logger)
			if err != nil {
				return fmt.Errorf("discoveries promote: opening store: %w", err)
			}
			defer func() { _ = st.Close() }()

			tracker := discovery.NewTracker(st, cfg.Discovery.SampleCap, logger)
			entity, err := tracker.Promote(ctx, args[0])
			if err != nil {
				return fmt.Errorf("discoveries promote: %w", err)
			}

			fmt.Printf("Promoted %q as inactive entity %s\n", entity.CanonicalName, entity.ID)
			return nil
		},
	}
}

func discoveriesIgnoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ignore <discovery-id>",
		Short: "Mark a discovery reviewed without promoting it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()

			st, err := newStore(ctx, logger)
			if err != nil {
				return fmt.Errorf("discoveries ignore: opening store: %w", err)
			}
			defer func() { _ = st.Close() }()

			if err := st.ResolveDiscovery(ctx, args[0], models.DispositionIgnored); err != nil {
				return fmt.Errorf("discoveries ignore: %w", err)
			}

			fmt.Println("Discovery ignored.")
			return nil
		},
	}
}
