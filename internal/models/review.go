package models

import "time"

// ReviewState tracks the resolution of a review queue item.
type ReviewState string

const (
	ReviewStatePending  ReviewState = "pending"
	ReviewStateAccepted ReviewState = "accepted"
	ReviewStateRejected ReviewState = "rejected"
)

// ValidReviewStates is the set of all valid review states.
var ValidReviewStates = []ReviewState{
	ReviewStatePending,
	ReviewStateAccepted,
	ReviewStateRejected,
}

// IsValid returns true if the review state is recognized.
func (rs ReviewState) IsValid() bool {
	for i := range ValidReviewStates {
		if rs == ValidReviewStates[i] {
			return true
		}
	}
	return false
}

// ReviewQueueItem holds a low-confidence entity attribution awaiting human
// judgment. EntityID may be empty when the mention never resolved to a
// catalog entity, in which case RawName carries what was matched.
// One pending item exists per (comment, entity-or-raw-name).
type ReviewQueueItem struct {
	ID        string `json:"id" gorm:"primaryKey"`
	CommentID string `json:"comment_id" gorm:"uniqueIndex:idx_review_identity,priority:1;not null"`
	EntityID  string `json:"entity_id,omitempty" gorm:"uniqueIndex:idx_review_identity,priority:2"`
	RawName   string `json:"raw_name,omitempty" gorm:"uniqueIndex:idx_review_identity,priority:3"`
	// Proposed signal values, held until a human accepts or rejects them.
	ProposedSentiment float64     `json:"proposed_sentiment"`
	ProposedEmotion   string      `json:"proposed_emotion,omitempty"`
	ProposedStance    string      `json:"proposed_stance,omitempty"`
	Source            string      `json:"source"`
	Confidence        float64     `json:"confidence"`
	State             ReviewState `json:"state" gorm:"index"`
	ResolvedBy        string      `json:"resolved_by,omitempty"`
	ResolvedAt        *time.Time  `json:"resolved_at,omitempty"`
	CreatedAt         time.Time   `json:"created_at"`
	UpdatedAt         time.Time   `json:"updated_at"`
}

// TableName returns the table name for GORM.
func (ReviewQueueItem) TableName() string {
	return "review_queue_items"
}
