package main

import (
	"fmt"
	"os"
	"os/user"

	"github.com/spf13/cobra"

	"github.com/mwhitton/chattersignal/internal/enrich"
	"github.com/mwhitton/chattersignal/internal/models"
)

func reviewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "review",
		Short: "Work the low-confidence attribution review queue",
	}
	cmd.AddCommand(reviewListCmd(), reviewAcceptCmd(), reviewRejectCmd())
	return cmd
}

func reviewListCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List pending review items",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()

			st, err := newStore(ctx, logger)
			if err != nil {
				return fmt.Errorf("review list: opening store: %w", err)
			}
			defer func() { _ = st.Close() }()

			items, err := st.ListReviewItems(ctx, models.ReviewStatePending, limit)
			if err != nil {
				return fmt.Errorf("review list: %w", err)
			}

			for _, item := range items {
				target := item.EntityID
				if target == "" {
					target = fmt.Sprintf("unresolved %q", item.RawName)
				}
				fmt.Printf("[conf %.2f] %s -> %s (sentiment %+.2f)\n",
					item.Confidence, item.CommentID, target, item.ProposedSentiment)
				fmt.Printf("    ID: %s | Source: %s\n", item.ID, item.Source)

				if c, getErr := st.GetComment(ctx, item.CommentID); getErr == nil {
					fmt.Printf("    > %s\n", truncate(c.Text, 100))
				}
			}

			if len(items) == 0 {
				fmt.Println("Review queue is empty.")
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "max results")
	return cmd
}

func reviewAcceptCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "accept <item-id>",
		Short: "Accept a review item, committing its proposed signals",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()

			st, err := newStore(ctx, logger)
			if err != nil {
				return fmt.Errorf("review accept: opening store: %w", err)
			}
			defer func() { _ = st.Close() }()

			if err := enrich.AcceptReview(ctx, st, args[0], reviewer()); err != nil {
				return fmt.Errorf("review accept: %w", err)
			}

			fmt.Println("Accepted; proposed signals committed.")
			return nil
		},
	}
}

func reviewRejectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reject <item-id>",
		Short: "Reject a review item, discarding its proposed signals",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()

			st, err := newStore(ctx, logger)
			if err != nil {
				return fmt.Errorf("review reject: opening store: %w", err)
			}
			defer func() { _ = st.Close() }()

			if err := st.ResolveReviewItem(ctx, args[0], models.ReviewStateRejected, reviewer()); err != nil {
				return fmt.Errorf("review reject: %w", err)
			}

			fmt.Println("Rejected.")
			return nil
		},
	}
}

// reviewer identifies who resolved an item, for the audit trail.
func reviewer() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	if host, err := os.Hostname(); err == nil {
		return host
	}
	return "unknown"
}
