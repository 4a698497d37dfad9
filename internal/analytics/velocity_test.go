package analytics

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mwhitton/chattersignal/internal/config"
	"github.com/mwhitton/chattersignal/internal/models"
	"github.com/mwhitton/chattersignal/internal/store"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testAnalyticsConfig() config.AnalyticsConfig {
	return config.AnalyticsConfig{
		VelocityWindowHours: 24,
		MinSamples:          2,
		AlertThresholdPct:   30,
	}
}

var seedSeq int

// seedSentiment inserts one numeric sentiment signal at a controlled time.
func seedSentiment(t *testing.T, st *store.MockStore, entityID string, value float64, at time.Time) {
	t.Helper()
	seedSeq++
	v := value
	err := st.UpsertSignal(context.Background(), models.ExtractedSignal{
		ID:           fmt.Sprintf("s%d", seedSeq),
		CommentID:    fmt.Sprintf("c%d", seedSeq),
		EntityID:     entityID,
		Kind:         models.SignalKindSentiment,
		Source:       "lexicon",
		Value:        "scored",
		NumericValue: &v,
		Weight:       1.0,
		Confidence:   0.9,
		CreatedAt:    at,
	})
	require.NoError(t, err)
}

func TestComputeWindowVelocity_SplitsAtMidpoint(t *testing.T) {
	st := store.NewMockStore()
	e := NewEngine(st, testAnalyticsConfig(), quietLogger())

	from := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	to := from.Add(48 * time.Hour)
	mid := from.Add(24 * time.Hour)

	// First half: mean -0.5. Second half: mean -0.2. Sentiment is negative
	// but improving.
	seedSentiment(t, st, "blake", -0.4, from.Add(time.Hour))
	seedSentiment(t, st, "blake", -0.6, from.Add(2*time.Hour))
	seedSentiment(t, st, "blake", -0.1, mid.Add(time.Hour))
	seedSentiment(t, st, "blake", -0.3, mid.Add(2*time.Hour))

	v, err := e.ComputeWindowVelocity(context.Background(), "blake", from, to)
	require.NoError(t, err)
	require.True(t, v.Sufficient)
	assert.InDelta(t, -0.5, v.PreviousMean, 1e-9)
	assert.InDelta(t, -0.2, v.RecentMean, 1e-9)
	assert.InDelta(t, 60.0, v.PercentChange, 1e-9)
	assert.True(t, v.Alert)
}

func TestComputeWindowVelocity_InsufficientSamples(t *testing.T) {
	st := store.NewMockStore()
	e := NewEngine(st, testAnalyticsConfig(), quietLogger())

	from := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	to := from.Add(48 * time.Hour)
	seedSentiment(t, st, "blake", -0.4, from.Add(time.Hour))

	v, err := e.ComputeWindowVelocity(context.Background(), "blake", from, to)
	require.NoError(t, err)
	assert.False(t, v.Sufficient)
	assert.False(t, v.Alert)
	assert.Equal(t, 0.0, v.PercentChange)
}

func TestComputeWindowVelocity_ZeroPreviousMeanReadsAsZeroChange(t *testing.T) {
	st := store.NewMockStore()
	e := NewEngine(st, testAnalyticsConfig(), quietLogger())

	from := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	to := from.Add(48 * time.Hour)
	mid := from.Add(24 * time.Hour)

	seedSentiment(t, st, "blake", 0.5, from.Add(time.Hour))
	seedSentiment(t, st, "blake", -0.5, from.Add(2*time.Hour))
	seedSentiment(t, st, "blake", 0.8, mid.Add(time.Hour))
	seedSentiment(t, st, "blake", 0.8, mid.Add(2*time.Hour))

	v, err := e.ComputeWindowVelocity(context.Background(), "blake", from, to)
	require.NoError(t, err)
	require.True(t, v.Sufficient)
	assert.Equal(t, 0.0, v.PercentChange)
	assert.False(t, v.Alert)
}

func TestComputeLiveVelocity_AnchorsAtNow(t *testing.T) {
	st := store.NewMockStore()
	e := NewEngine(st, testAnalyticsConfig(), quietLogger())

	now := time.Now().UTC()
	// Previous window [now-48h, now-24h); recent window [now-24h, now).
	seedSentiment(t, st, "blake", 0.8, now.Add(-40*time.Hour))
	seedSentiment(t, st, "blake", 0.8, now.Add(-30*time.Hour))
	seedSentiment(t, st, "blake", 0.2, now.Add(-10*time.Hour))
	seedSentiment(t, st, "blake", 0.2, now.Add(-2*time.Hour))

	v, err := e.ComputeLiveVelocity(context.Background(), "blake")
	require.NoError(t, err)
	require.True(t, v.Sufficient)
	assert.InDelta(t, 0.8, v.PreviousMean, 1e-9)
	assert.InDelta(t, 0.2, v.RecentMean, 1e-9)
	assert.InDelta(t, -75.0, v.PercentChange, 1e-9)
	assert.True(t, v.Alert)
}

func TestClassify(t *testing.T) {
	sufficient := func(pc float64) *VelocityResult {
		return &VelocityResult{Sufficient: true, PercentChange: pc}
	}

	tests := []struct {
		name       string
		windowMean float64
		v          *VelocityResult
		want       Trajectory
	}{
		{"nil result", 0, nil, TrajectoryInsufficient},
		{"insufficient", -0.5, &VelocityResult{}, TrajectoryInsufficient},
		{"small change is stable", -0.5, sufficient(10), TrajectoryStable},
		{"negative but rising is recovering", -0.5, sufficient(60), TrajectoryRecovering},
		{"negative and falling is newly negative", -0.5, sufficient(-60), TrajectoryNewlyNegative},
		{"positive and rising is improving", 0.5, sufficient(60), TrajectoryImproving},
		{"positive but falling is declining", 0.5, sufficient(-60), TrajectoryDeclining},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.windowMean, tt.v, 30))
		})
	}
}

func TestTopEntities_RanksAndLabels(t *testing.T) {
	st := store.NewMockStore()
	e := NewEngine(st, testAnalyticsConfig(), quietLogger())

	from := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	to := from.Add(48 * time.Hour)
	mid := from.Add(24 * time.Hour)

	// blake: 4 signals, negative but improving.
	seedSentiment(t, st, "blake", -0.6, from.Add(time.Hour))
	seedSentiment(t, st, "blake", -0.4, from.Add(2*time.Hour))
	seedSentiment(t, st, "blake", -0.2, mid.Add(time.Hour))
	seedSentiment(t, st, "blake", -0.2, mid.Add(2*time.Hour))
	// baldoni: 2 signals, not enough per half for velocity.
	seedSentiment(t, st, "baldoni", 0.5, from.Add(time.Hour))
	seedSentiment(t, st, "baldoni", 0.5, mid.Add(time.Hour))

	reports, err := e.TopEntities(context.Background(), from, to, 10)
	require.NoError(t, err)
	require.Len(t, reports, 2)

	assert.Equal(t, "blake", reports[0].EntityID)
	assert.EqualValues(t, 4, reports[0].SignalCount)
	assert.Less(t, reports[0].MeanSentiment, 0.0)
	assert.Equal(t, TrajectoryRecovering, reports[0].Trajectory)

	assert.Equal(t, "baldoni", reports[1].EntityID)
	assert.Equal(t, TrajectoryInsufficient, reports[1].Trajectory)
}
