package enrich

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/mwhitton/chattersignal/internal/models"
	"github.com/mwhitton/chattersignal/internal/store"
)

// AcceptReview commits the signals a pending review item proposed and marks
// the item accepted. Signals go through the same idempotent upsert the
// enrichment pipeline uses, so accepting twice converges on one row each.
// The engagement weight is recomputed from the comment's current like count.
func AcceptReview(ctx context.Context, st store.Store, itemID, resolvedBy string) error {
	item, err := st.GetReviewItem(ctx, itemID)
	if err != nil {
		return fmt.Errorf("loading review item: %w", err)
	}
	if item.State != models.ReviewStatePending {
		return fmt.Errorf("review item %s is already %s", itemID, item.State)
	}

	weight := 1.0
	if c, getErr := st.GetComment(ctx, item.CommentID); getErr == nil {
		weight = 1.0 + float64(c.LikeCount)/100.0
	}

	v := sanitize(item.ProposedSentiment)
	signals := []models.ExtractedSignal{{
		ID:           uuid.New().String(),
		CommentID:    item.CommentID,
		EntityID:     item.EntityID,
		Kind:         models.SignalKindSentiment,
		Source:       item.Source,
		Value:        sentimentLabel(v),
		NumericValue: &v,
		Weight:       weight,
		Confidence:   item.Confidence,
	}}

	if item.ProposedEmotion != "" {
		signals = append(signals, models.ExtractedSignal{
			ID:         uuid.New().String(),
			CommentID:  item.CommentID,
			EntityID:   item.EntityID,
			Kind:       models.SignalKindEmotion,
			Source:     item.Source,
			Value:      item.ProposedEmotion,
			Weight:     weight,
			Confidence: item.Confidence,
		})
	}

	if item.ProposedStance != "" {
		signals = append(signals, models.ExtractedSignal{
			ID:         uuid.New().String(),
			CommentID:  item.CommentID,
			EntityID:   item.EntityID,
			Kind:       models.SignalKindStance,
			Source:     item.Source,
			Value:      item.ProposedStance,
			Weight:     weight,
			Confidence: item.Confidence,
		})
	}

	for i := range signals {
		if err := st.UpsertSignal(ctx, signals[i]); err != nil {
			return fmt.Errorf("committing accepted signal: %w", err)
		}
	}

	if err := st.ResolveReviewItem(ctx, itemID, models.ReviewStateAccepted, resolvedBy); err != nil {
		return fmt.Errorf("resolving review item: %w", err)
	}
	return nil
}
