package analytics

import (
	"context"
	"math"
	"time"
)

// VelocityResult reports the rate of change of mean sentiment between two
// time halves. When either half has fewer than the minimum sample count,
// Sufficient is false and the numeric fields are meaningless; an
// insufficient-data result is a normal value, not an error.
type VelocityResult struct {
	EntityID      string    `json:"entity_id"`
	PreviousMean  float64   `json:"previous_mean"`
	RecentMean    float64   `json:"recent_mean"`
	PercentChange float64   `json:"percent_change"`
	PreviousCount int       `json:"previous_count"`
	RecentCount   int       `json:"recent_count"`
	Sufficient    bool      `json:"sufficient"`
	Alert         bool      `json:"alert"`
	From          time.Time `json:"from"`
	To            time.Time `json:"to"`
}

// Trajectory labels how an entity's sentiment is moving.
type Trajectory string

const (
	// TrajectoryInsufficient: not enough samples to say anything.
	TrajectoryInsufficient Trajectory = "insufficient_data"
	// TrajectoryStable: change below the alert threshold.
	TrajectoryStable Trajectory = "stable"
	// TrajectoryRecovering: window mean negative but velocity positive.
	TrajectoryRecovering Trajectory = "recovering"
	// TrajectoryNewlyNegative: window mean negative and still worsening.
	TrajectoryNewlyNegative Trajectory = "newly_negative"
	// TrajectoryImproving: window mean non-negative and rising.
	TrajectoryImproving Trajectory = "improving"
	// TrajectoryDeclining: window mean non-negative but falling.
	TrajectoryDeclining Trajectory = "declining"
)

// ComputeLiveVelocity answers "is sentiment changing fast enough to alert on
// right now": it splits [now - 2·window, now] at now - window into a
// previous and a recent half and compares their means.
func (e *Engine) ComputeLiveVelocity(ctx context.Context, entityID string) (*VelocityResult, error) {
	now := time.Now().UTC()
	window := time.Duration(e.cfg.VelocityWindowHours) * time.Hour
	return e.velocityBetween(ctx, entityID, now.Add(-2*window), now.Add(-window), now)
}

// ComputeWindowVelocity answers the different question "did sentiment change
// across this specific reporting period": the explicit window [from, to) is
// split at its midpoint into first and second halves. It must never be
// conflated with the live variant.
func (e *Engine) ComputeWindowVelocity(ctx context.Context, entityID string, from, to time.Time) (*VelocityResult, error) {
	mid := from.Add(to.Sub(from) / 2)
	return e.velocityBetween(ctx, entityID, from, mid, to)
}

// velocityBetween compares mean sentiment in [start, mid) against [mid, end).
func (e *Engine) velocityBetween(ctx context.Context, entityID string, start, mid, end time.Time) (*VelocityResult, error) {
	prevCount, prevMean, err := e.meanSentiment(ctx, entityID, start, mid)
	if err != nil {
		return nil, err
	}
	recentCount, recentMean, err := e.meanSentiment(ctx, entityID, mid, end)
	if err != nil {
		return nil, err
	}

	result := &VelocityResult{
		EntityID:      entityID,
		PreviousMean:  prevMean,
		RecentMean:    recentMean,
		PreviousCount: prevCount,
		RecentCount:   recentCount,
		From:          start,
		To:            end,
	}

	if prevCount < e.cfg.MinSamples || recentCount < e.cfg.MinSamples {
		e.logger.Debug("velocity: insufficient samples",
			"entity", entityID, "previous", prevCount, "recent", recentCount)
		return result, nil
	}

	result.Sufficient = true
	result.PercentChange = percentChange(prevMean, recentMean)
	result.Alert = math.Abs(result.PercentChange) > e.cfg.AlertThresholdPct
	return result, nil
}

// percentChange is (recent − previous) / |previous| × 100. A zero previous
// mean reads as 0% change, not a division error.
func percentChange(previous, recent float64) float64 {
	if previous == 0 {
		return 0
	}
	return (recent - previous) / math.Abs(previous) * 100
}

// Classify labels an entity's trajectory from its window-mean sentiment and
// velocity. The sign of the window aggregate and the sign of the velocity
// are independent axes: a negative entity that is improving is recovering,
// never newly negative.
func Classify(windowMean float64, v *VelocityResult, alertThresholdPct float64) Trajectory {
	if v == nil || !v.Sufficient {
		return TrajectoryInsufficient
	}
	if math.Abs(v.PercentChange) < alertThresholdPct {
		return TrajectoryStable
	}
	if windowMean < 0 {
		if v.PercentChange > 0 {
			return TrajectoryRecovering
		}
		return TrajectoryNewlyNegative
	}
	if v.PercentChange > 0 {
		return TrajectoryImproving
	}
	return TrajectoryDeclining
}
