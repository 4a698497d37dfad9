// Package scoring defines the signal scoring port and its concrete
// strategies. The enrichment engine depends only on the Scorer interface;
// which strategy backs it is resolved once from configuration at startup.
package scoring

import (
	"context"

	"github.com/mwhitton/chattersignal/internal/models"
)

// Stance values a scorer may attribute per entity.
const (
	StanceSupport = "support"
	StanceOppose  = "oppose"
	StanceNeutral = "neutral"
)

// Candidate is an entity the resolver believes the comment targets.
type Candidate struct {
	EntityID   string
	Name       string
	Confidence float64
	Ambiguous  bool
}

// ScoreRequest bundles everything a scorer may consult. PostContext is the
// post caption and is context only; it must never cause an entity absent
// from Text to receive a non-zero sentiment.
type ScoreRequest struct {
	Text        string
	PostContext string
	Candidates  []Candidate
	LikeCount   int64
}

// DiscoveredName is an entity the scorer noticed that was not a candidate.
type DiscoveredName struct {
	Name string
	Kind models.EntityKind
}

// ScoreResult is the structured output of one scoring pass.
//
// Policy semantics every strategy must honor:
//   - candidates not actually mentioned in the comment text score 0.0,
//     never inheriting the overall sentiment;
//   - interrogatives default to 0.0 unless unambiguously rhetorical;
//   - sarcasm markers flip a superficially positive reading negative;
//   - empathy toward a person ("I feel bad for X") is positive toward X.
type ScoreResult struct {
	// EntitySentiment maps candidate entity ID to sentiment in [-1, 1].
	EntitySentiment map[string]float64
	// OverallSentiment is the comment-level reading in [-1, 1].
	OverallSentiment float64
	// Emotion is an optional dominant-emotion label ("", "joy", "anger", …).
	Emotion string
	// EntityStance maps candidate entity ID to support/oppose/neutral.
	// Stance is per entity: one comment can support Ryan and oppose Blake.
	EntityStance map[string]string
	// Topics are storyline/topic tags found in the comment.
	Topics []string
	// Toxicity is in [0, 1].
	Toxicity float64
	// Sarcasm marks a detected ironic reading.
	Sarcasm bool
	// Discoveries are entity names the scorer noticed outside the
	// candidate list; they feed the discovered-entity tracker.
	Discoveries []DiscoveredName
	// Confidence is the scorer's own confidence in this result, in [0, 1].
	Confidence float64
}

// Scorer is the scoring port. Implementations must be safe for concurrent
// use: the engine issues scoring calls from a worker pool.
type Scorer interface {
	Score(ctx context.Context, req ScoreRequest) (*ScoreResult, error)

	// Source identifies the strategy for signal provenance; it is part of
	// the signal uniqueness key.
	Source() string
}

// clamp bounds v to [lo, hi].
func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
