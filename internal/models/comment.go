package models

import "time"

// Comment is a normalized social-media comment as produced by the ingestion
// boundary. It is immutable once enriched except for engagement metrics,
// which re-ingestion may bump.
type Comment struct {
	ID             string    `json:"id" gorm:"primaryKey"`
	Platform       string    `json:"platform" gorm:"index"`
	PostExternalID string    `json:"post_external_id" gorm:"index"`
	PostCaption    string    `json:"post_caption"`
	Author         string    `json:"author"`
	Text           string    `json:"text"`
	LikeCount      int64     `json:"like_count"`
	ReplyCount     int64     `json:"reply_count"`
	ThreadDepth    int       `json:"thread_depth,omitempty"`
	PublishedAt    time.Time `json:"published_at" gorm:"index"`
	// RawPayload carries the original ingestion record verbatim. The
	// enrichment core never parses it; it exists for future migrations.
	RawPayload string     `json:"raw_payload,omitempty"`
	EnrichedAt *time.Time `json:"enriched_at,omitempty" gorm:"index"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// TableName returns the table name for GORM.
func (Comment) TableName() string {
	return "comments"
}
