package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mwhitton/chattersignal/internal/models"
)

func ptr(v float64) *float64 { return &v }

func sentimentSignal(id, commentID, entityID, source string, value float64) models.ExtractedSignal {
	return models.ExtractedSignal{
		ID:           id,
		CommentID:    commentID,
		EntityID:     entityID,
		Kind:         models.SignalKindSentiment,
		Source:       source,
		Value:        "scored",
		NumericValue: ptr(value),
		Weight:       1.0,
		Confidence:   0.9,
	}
}

func TestMockStore_CommitBatchIsIdempotent(t *testing.T) {
	st := NewMockStore()
	ctx := context.Background()

	require.NoError(t, st.UpsertComments(ctx, []models.Comment{{ID: "c1", Text: "x"}}))

	batch := Batch{
		Signals:            []models.ExtractedSignal{sentimentSignal("s1", "c1", "e1", "lexicon", 0.5)},
		EnrichedCommentIDs: []string{"c1"},
	}
	require.NoError(t, st.CommitBatch(ctx, batch))

	// Replaying the same batch with a different row ID must converge on the
	// identity tuple, not add a second row.
	batch.Signals[0].ID = "s2"
	batch.Signals[0].NumericValue = ptr(0.8)
	require.NoError(t, st.CommitBatch(ctx, batch))

	signals, err := st.SignalsForComment(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, signals, 1)
	assert.InDelta(t, 0.8, *signals[0].NumericValue, 1e-9)
}

func TestMockStore_SignalIdentityTuple(t *testing.T) {
	st := NewMockStore()
	ctx := context.Background()

	// Same comment and kind, but distinct entity or source: distinct rows.
	require.NoError(t, st.UpsertSignal(ctx, sentimentSignal("s1", "c1", "e1", "lexicon", 0.5)))
	require.NoError(t, st.UpsertSignal(ctx, sentimentSignal("s2", "c1", "e2", "lexicon", 0.5)))
	require.NoError(t, st.UpsertSignal(ctx, sentimentSignal("s3", "c1", "e1", "claude", 0.5)))
	// Comment-level row: empty entity is its own slot, not a wildcard.
	require.NoError(t, st.UpsertSignal(ctx, sentimentSignal("s4", "c1", "", "lexicon", 0.1)))

	signals, err := st.SignalsForComment(ctx, "c1")
	require.NoError(t, err)
	assert.Len(t, signals, 4)
}

func TestMockStore_UpsertCommentsRefreshesEngagementOnly(t *testing.T) {
	st := NewMockStore()
	ctx := context.Background()

	require.NoError(t, st.UpsertComments(ctx, []models.Comment{{
		ID: "c1", Text: "original", LikeCount: 10,
	}}))
	require.NoError(t, st.UpsertComments(ctx, []models.Comment{{
		ID: "c1", Text: "rewritten", LikeCount: 99, ReplyCount: 3,
	}}))

	c, err := st.GetComment(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "original", c.Text)
	assert.EqualValues(t, 99, c.LikeCount)
	assert.EqualValues(t, 3, c.ReplyCount)
}

func TestMockStore_ListUnenrichedExcludesTerminal(t *testing.T) {
	st := NewMockStore()
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, st.UpsertComments(ctx, []models.Comment{
		{ID: "old", Text: "x", PublishedAt: now.Add(-2 * time.Hour)},
		{ID: "new", Text: "y", PublishedAt: now.Add(-time.Hour)},
	}))
	require.NoError(t, st.CommitBatch(ctx, Batch{EnrichedCommentIDs: []string{"new"}}))

	comments, err := st.ListUnenriched(ctx, 10)
	require.NoError(t, err)
	require.Len(t, comments, 1)
	assert.Equal(t, "old", comments[0].ID)
}

func TestMockStore_ReviewItemIdentity(t *testing.T) {
	st := NewMockStore()
	ctx := context.Background()

	item := models.ReviewQueueItem{
		ID: "r1", CommentID: "c1", EntityID: "e1",
		ProposedSentiment: -0.5, State: models.ReviewStatePending,
	}
	require.NoError(t, st.CommitBatch(ctx, Batch{ReviewItems: []models.ReviewQueueItem{item}}))

	// Re-queueing the same attribution updates the pending item in place.
	item.ID = "r2"
	item.ProposedSentiment = -0.9
	require.NoError(t, st.CommitBatch(ctx, Batch{ReviewItems: []models.ReviewQueueItem{item}}))

	items, err := st.ListReviewItems(ctx, models.ReviewStatePending, 10)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.InDelta(t, -0.9, items[0].ProposedSentiment, 1e-9)
}

func TestMockStore_ResolveReviewItemRequiresPending(t *testing.T) {
	st := NewMockStore()
	ctx := context.Background()

	item := models.ReviewQueueItem{
		ID: "r1", CommentID: "c1", EntityID: "e1", State: models.ReviewStatePending,
	}
	require.NoError(t, st.CommitBatch(ctx, Batch{ReviewItems: []models.ReviewQueueItem{item}}))

	require.NoError(t, st.ResolveReviewItem(ctx, "r1", models.ReviewStateAccepted, "mod"))
	err := st.ResolveReviewItem(ctx, "r1", models.ReviewStateRejected, "mod")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMockStore_TopEntitiesWeightedMean(t *testing.T) {
	st := NewMockStore()
	ctx := context.Background()
	now := time.Now().UTC()

	heavy := sentimentSignal("s1", "c1", "e1", "lexicon", 1.0)
	heavy.Weight = 9.0
	heavy.CreatedAt = now
	light := sentimentSignal("s2", "c2", "e1", "lexicon", 0.0)
	light.Weight = 1.0
	light.CreatedAt = now
	require.NoError(t, st.UpsertSignal(ctx, heavy))
	require.NoError(t, st.UpsertSignal(ctx, light))

	rows, err := st.TopEntities(ctx, now.Add(-time.Hour), now.Add(time.Hour), 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.InDelta(t, 0.5, rows[0].MeanSentiment, 1e-9)
	assert.InDelta(t, 0.9, rows[0].WeightedSentiment, 1e-9)
}

func TestMockStore_Stats(t *testing.T) {
	st := NewMockStore()
	ctx := context.Background()

	require.NoError(t, st.UpsertComments(ctx, []models.Comment{{ID: "c1", Text: "x"}, {ID: "c2", Text: "y"}}))
	require.NoError(t, st.CommitBatch(ctx, Batch{
		Signals:            []models.ExtractedSignal{sentimentSignal("s1", "c1", "e1", "lexicon", 0.5)},
		EnrichedCommentIDs: []string{"c1"},
	}))

	stats, err := st.Stats(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, stats.TotalComments)
	assert.EqualValues(t, 1, stats.EnrichedComments)
	assert.EqualValues(t, 1, stats.TotalSignals)
	assert.EqualValues(t, 1, stats.ByKind["sentiment"])
	assert.EqualValues(t, 1, stats.BySource["lexicon"])
}
