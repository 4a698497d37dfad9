// Package analytics computes aggregate and time-windowed metrics over the
// signal ledger. It is strictly read-only: it never creates signals, and it
// tolerates reading a window that is still being enriched.
package analytics

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mwhitton/chattersignal/internal/config"
	"github.com/mwhitton/chattersignal/internal/models"
	"github.com/mwhitton/chattersignal/internal/store"
)

// Engine answers reporting queries from the signal store.
type Engine struct {
	store  store.Store
	cfg    config.AnalyticsConfig
	logger *slog.Logger
}

// NewEngine creates an analytics engine.
func NewEngine(st store.Store, cfg config.AnalyticsConfig, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{store: st, cfg: cfg, logger: logger}
}

// EntityReport is one ranked row of the top-entities report, the aggregate
// plus its trajectory over the same window.
type EntityReport struct {
	store.EntityAggregate
	Trajectory Trajectory `json:"trajectory"`
}

// TopEntities ranks entities by signal count within [from, to), attaching
// the window-velocity trajectory of each. Only numeric sentiment signals
// contribute to the aggregates.
func (e *Engine) TopEntities(ctx context.Context, from, to time.Time, limit int) ([]EntityReport, error) {
	rows, err := e.store.TopEntities(ctx, from, to, limit)
	if err != nil {
		return nil, fmt.Errorf("aggregating top entities: %w", err)
	}
	reports := make([]EntityReport, 0, len(rows))
	for _, row := range rows {
		v, err := e.ComputeWindowVelocity(ctx, row.EntityID, from, to)
		if err != nil {
			return nil, err
		}
		reports = append(reports, EntityReport{
			EntityAggregate: row,
			Trajectory:      Classify(row.MeanSentiment, v, e.cfg.AlertThresholdPct),
		})
	}
	return reports, nil
}

// DistributionReport breaks down an entity's signals by kind and value
// label within a window.
type DistributionReport struct {
	EntityID    string                                 `json:"entity_id"`
	From        time.Time                              `json:"from"`
	To          time.Time                              `json:"to"`
	SignalCount int                                    `json:"signal_count"`
	Kinds       map[models.SignalKind]map[string]int64 `json:"kinds"`
}

// Distribution counts an entity's signals per kind and value label within
// [from, to). All kinds contribute, not just numeric ones, so the report
// covers emotion and stance breakdowns alongside sentiment labels.
func (e *Engine) Distribution(ctx context.Context, entityID string, from, to time.Time) (*DistributionReport, error) {
	signals, err := e.store.SignalsForEntity(ctx, entityID, from, to)
	if err != nil {
		return nil, fmt.Errorf("loading signals for %s: %w", entityID, err)
	}

	report := &DistributionReport{
		EntityID: entityID,
		From:     from,
		To:       to,
		Kinds:    make(map[models.SignalKind]map[string]int64),
	}
	for _, s := range signals {
		byValue, ok := report.Kinds[s.Kind]
		if !ok {
			byValue = make(map[string]int64)
			report.Kinds[s.Kind] = byValue
		}
		byValue[s.Value]++
		report.SignalCount++
	}
	return report, nil
}

// meanSentiment returns the count and mean of numeric sentiment signals for
// an entity within [from, to).
func (e *Engine) meanSentiment(ctx context.Context, entityID string, from, to time.Time) (int, float64, error) {
	signals, err := e.store.NumericSignals(ctx, entityID, models.SignalKindSentiment, from, to)
	if err != nil {
		return 0, 0, fmt.Errorf("loading sentiment signals: %w", err)
	}
	if len(signals) == 0 {
		return 0, 0, nil
	}
	sum := 0.0
	for _, s := range signals {
		sum += *s.NumericValue
	}
	return len(signals), sum / float64(len(signals)), nil
}
