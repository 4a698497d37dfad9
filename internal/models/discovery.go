package models

import (
	"encoding/json"
	"time"
)

// DiscoveryDisposition records the outcome of human triage on a discovery.
type DiscoveryDisposition string

const (
	DispositionPromoted DiscoveryDisposition = "promoted"
	DispositionIgnored  DiscoveryDisposition = "ignored"
)

// DiscoveredEntity is an entity mention found by a scorer that is not yet in
// the monitored catalog. Rows are unique on the normalized name; repeat
// sightings bump the mention count and timestamps.
type DiscoveredEntity struct {
	ID             string     `json:"id" gorm:"primaryKey"`
	Name           string     `json:"name"`
	NormalizedName string     `json:"normalized_name" gorm:"uniqueIndex"`
	InferredKind   EntityKind `json:"inferred_kind"`
	MentionCount   int64      `json:"mention_count" gorm:"index"`
	// SamplesJSON holds up to the sample cap of context snippets as a JSON
	// array. The cap is a hard stop: once full, later snippets are dropped.
	SamplesJSON string               `json:"samples_json"`
	FirstSeen   time.Time            `json:"first_seen"`
	LastSeen    time.Time            `json:"last_seen"`
	Reviewed    bool                 `json:"reviewed" gorm:"index"`
	Disposition DiscoveryDisposition `json:"disposition,omitempty"`
	CreatedAt   time.Time            `json:"created_at"`
	UpdatedAt   time.Time            `json:"updated_at"`
}

// TableName returns the table name for GORM.
func (DiscoveredEntity) TableName() string {
	return "discovered_entities"
}

// Samples decodes SamplesJSON, returning nil on a malformed payload.
func (d *DiscoveredEntity) Samples() []string {
	if d.SamplesJSON == "" {
		return nil
	}
	var samples []string
	if err := json.Unmarshal([]byte(d.SamplesJSON), &samples); err != nil {
		return nil
	}
	return samples
}

// SetSamples encodes the given snippets into SamplesJSON.
func (d *DiscoveredEntity) SetSamples(samples []string) {
	b, err := json.Marshal(samples)
	if err != nil {
		return
	}
	d.SamplesJSON = string(b)
}
