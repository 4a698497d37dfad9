package models

import "time"

// SignalKind classifies an extracted signal.
type SignalKind string

const (
	SignalKindSentiment SignalKind = "sentiment"
	SignalKindEmotion   SignalKind = "emotion"
	SignalKindStance    SignalKind = "stance"
	SignalKindTopic     SignalKind = "topic"
	SignalKindToxicity  SignalKind = "toxicity"
	SignalKindSarcasm   SignalKind = "sarcasm"
)

// ValidSignalKinds is the set of all valid signal kinds. The column is an
// open string so new kinds can be added without a migration.
var ValidSignalKinds = []SignalKind{
	SignalKindSentiment,
	SignalKindEmotion,
	SignalKindStance,
	SignalKindTopic,
	SignalKindToxicity,
	SignalKindSarcasm,
}

// IsValid returns true if the signal kind is recognized.
func (sk SignalKind) IsValid() bool {
	for i := range ValidSignalKinds {
		if sk == ValidSignalKinds[i] {
			return true
		}
	}
	return false
}

// Numeric reports whether signals of this kind carry a numeric value.
func (sk SignalKind) Numeric() bool {
	return sk == SignalKindSentiment || sk == SignalKindToxicity
}

// ExtractedSignal is one scored fact about a comment, optionally targeted
// at a specific monitored entity. EntityID is empty for comment-level
// signals; an empty string rather than NULL keeps the composite uniqueness
// index effective on sqlite, where NULLs are pairwise distinct.
//
// At most one live row exists per (comment, entity, kind, source);
// re-scoring with the same source updates the row in place.
type ExtractedSignal struct {
	ID        string     `json:"id" gorm:"primaryKey"`
	CommentID string     `json:"comment_id" gorm:"uniqueIndex:idx_signal_identity,priority:1;not null"`
	EntityID  string     `json:"entity_id" gorm:"uniqueIndex:idx_signal_identity,priority:2"`
	Kind      SignalKind `json:"kind" gorm:"uniqueIndex:idx_signal_identity,priority:3;index"`
	Source    string     `json:"source" gorm:"uniqueIndex:idx_signal_identity,priority:4"`
	// Value is the human-readable reading ("positive", "anger", "support").
	Value string `json:"value"`
	// NumericValue is populated only for ordinal kinds (sentiment, toxicity).
	NumericValue *float64  `json:"numeric_value,omitempty"`
	Weight       float64   `json:"weight"`
	Confidence   float64   `json:"confidence"`
	CreatedAt    time.Time `json:"created_at" gorm:"index"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TableName returns the table name for GORM.
func (ExtractedSignal) TableName() string {
	return "extracted_signals"
}
