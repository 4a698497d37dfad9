package enrich

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mwhitton/chattersignal/internal/models"
	"github.com/mwhitton/chattersignal/internal/store"
)

func seedReviewItem(t *testing.T, st *store.MockStore) models.ReviewQueueItem {
	t.Helper()
	seedComment(t, st, "c1", "justin is so manipulative", 200)
	item := models.ReviewQueueItem{
		ID:                "r1",
		CommentID:         "c1",
		EntityID:          "baldoni",
		ProposedSentiment: -0.7,
		ProposedEmotion:   "anger",
		Source:            "lexicon",
		Confidence:        0.6,
		State:             models.ReviewStatePending,
	}
	require.NoError(t, st.CommitBatch(context.Background(), store.Batch{
		ReviewItems: []models.ReviewQueueItem{item},
	}))
	return item
}

func TestAcceptReview_CommitsProposedSignals(t *testing.T) {
	st := store.NewMockStore()
	seedReviewItem(t, st)

	require.NoError(t, AcceptReview(context.Background(), st, "r1", "moderator"))

	signals, err := st.SignalsForComment(context.Background(), "c1")
	require.NoError(t, err)

	sentiment := signalsOfKind(signals, "baldoni", models.SignalKindSentiment)
	require.Len(t, sentiment, 1)
	require.NotNil(t, sentiment[0].NumericValue)
	assert.InDelta(t, -0.7, *sentiment[0].NumericValue, 1e-9)
	assert.Equal(t, "negative", sentiment[0].Value)
	// 200 likes: weight recomputed from current engagement.
	assert.Equal(t, 3.0, sentiment[0].Weight)

	emotion := signalsOfKind(signals, "baldoni", models.SignalKindEmotion)
	require.Len(t, emotion, 1)
	assert.Equal(t, "anger", emotion[0].Value)

	item, err := st.GetReviewItem(context.Background(), "r1")
	require.NoError(t, err)
	assert.Equal(t, models.ReviewStateAccepted, item.State)
	assert.Equal(t, "moderator", item.ResolvedBy)
	require.NotNil(t, item.ResolvedAt)
}

func TestAcceptReview_Idempotent(t *testing.T) {
	st := store.NewMockStore()
	seedReviewItem(t, st)

	require.NoError(t, AcceptReview(context.Background(), st, "r1", "moderator"))

	// A second accept of the now-resolved item is rejected, and the signal
	// rows stay converged.
	err := AcceptReview(context.Background(), st, "r1", "moderator")
	require.Error(t, err)

	signals, err := st.SignalsForComment(context.Background(), "c1")
	require.NoError(t, err)
	assert.Len(t, signalsOfKind(signals, "baldoni", models.SignalKindSentiment), 1)
}

func TestAcceptReview_MissingItem(t *testing.T) {
	st := store.NewMockStore()
	err := AcceptReview(context.Background(), st, "nope", "moderator")
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrNotFound)
}
