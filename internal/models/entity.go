package models

import (
	"encoding/json"
	"time"
)

// EntityKind classifies the kind of monitored entity.
type EntityKind string

const (
	EntityKindPerson    EntityKind = "person"
	EntityKindShow      EntityKind = "show"
	EntityKindCouple    EntityKind = "couple"
	EntityKindBrand     EntityKind = "brand"
	EntityKindStoryline EntityKind = "storyline"
)

// ValidEntityKinds is the set of all valid entity kinds.
var ValidEntityKinds = []EntityKind{
	EntityKindPerson,
	EntityKindShow,
	EntityKindCouple,
	EntityKindBrand,
	EntityKindStoryline,
}

// IsValid returns true if the entity kind is recognized.
func (ek EntityKind) IsValid() bool {
	for i := range ValidEntityKinds {
		if ek == ValidEntityKinds[i] {
			return true
		}
	}
	return false
}

// MonitoredEntity is a tracked person/show/couple/brand of interest.
// Rows are created and edited by configuration tooling; the enrichment core
// only ever reads an immutable snapshot of the active set.
type MonitoredEntity struct {
	ID            string     `json:"id" gorm:"primaryKey"`
	CanonicalName string     `json:"canonical_name" gorm:"uniqueIndex"`
	DisplayName   string     `json:"display_name"`
	Kind          EntityKind `json:"kind" gorm:"index"`
	// AliasesJSON holds the case-insensitive alias strings as a JSON array.
	AliasesJSON string    `json:"aliases_json"`
	Active      bool      `json:"active" gorm:"index"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName returns the table name for GORM.
func (MonitoredEntity) TableName() string {
	return "monitored_entities"
}

// Aliases decodes AliasesJSON. A malformed payload returns an error so the
// catalog loader can skip the entity with a warning instead of guessing.
func (e *MonitoredEntity) Aliases() ([]string, error) {
	if e.AliasesJSON == "" {
		return nil, nil
	}
	var aliases []string
	if err := json.Unmarshal([]byte(e.AliasesJSON), &aliases); err != nil {
		return nil, err
	}
	return aliases, nil
}

// SetAliases encodes the given aliases into AliasesJSON.
func (e *MonitoredEntity) SetAliases(aliases []string) error {
	b, err := json.Marshal(aliases)
	if err != nil {
		return err
	}
	e.AliasesJSON = string(b)
	return nil
}
