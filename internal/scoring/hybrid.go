package scoring

import (
	"context"
	"log/slog"
	"math"
)

// HybridSource identifies signals produced by the escalating strategy.
const HybridSource = "hybrid"

// HybridScorer runs the cheap deterministic scorer first and escalates to
// the remote model only when the cheap result is low-confidence or its
// sentiment magnitude is near zero. This is a cost/latency optimization:
// escalation failure degrades to the lexicon result rather than erroring.
type HybridScorer struct {
	cheap              Scorer
	expensive          Scorer
	escalateConfidence float64
	escalateMagnitude  float64
	logger             *slog.Logger
}

// NewHybridScorer composes the cheap and expensive strategies.
func NewHybridScorer(cheap, expensive Scorer, escalateConfidence, escalateMagnitude float64, logger *slog.Logger) *HybridScorer {
	if logger == nil {
		logger = slog.Default()
	}
	return &HybridScorer{
		cheap:              cheap,
		expensive:          expensive,
		escalateConfidence: escalateConfidence,
		escalateMagnitude:  escalateMagnitude,
		logger:             logger,
	}
}

// Source identifies the strategy for signal provenance.
func (s *HybridScorer) Source() string { return HybridSource }

// Score scores with the cheap strategy, escalating when warranted.
func (s *HybridScorer) Score(ctx context.Context, req ScoreRequest) (*ScoreResult, error) {
	cheap, err := s.cheap.Score(ctx, req)
	if err != nil {
		return nil, err
	}

	if !s.shouldEscalate(cheap) {
		return cheap, nil
	}

	expensive, err := s.expensive.Score(ctx, req)
	if err != nil {
		s.logger.Warn("hybrid: escalation failed, keeping cheap result", "error", err)
		return cheap, nil
	}
	s.logger.Debug("hybrid: escalated to remote model",
		"cheap_confidence", cheap.Confidence, "remote_confidence", expensive.Confidence)
	return expensive, nil
}

// shouldEscalate reports whether the cheap result is too weak to trust:
// low confidence, or every reading so close to zero that the lexicon
// probably just missed the vocabulary.
func (s *HybridScorer) shouldEscalate(r *ScoreResult) bool {
	if r.Confidence < s.escalateConfidence {
		return true
	}
	maxMagnitude := math.Abs(r.OverallSentiment)
	for _, v := range r.EntitySentiment {
		if math.Abs(v) > maxMagnitude {
			maxMagnitude = math.Abs(v)
		}
	}
	return maxMagnitude <= s.escalateMagnitude
}
