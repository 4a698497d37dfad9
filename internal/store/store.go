// Package store defines the persistence contract for the signal ledger and
// its supporting tables.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/mwhitton/chattersignal/internal/models"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// Batch is one enrichment flush. CommitBatch applies it atomically: a
// worker crash mid-batch leaves either everything or nothing, and re-running
// the same batch is a no-op thanks to the signal uniqueness key.
type Batch struct {
	Signals            []models.ExtractedSignal
	ReviewItems        []models.ReviewQueueItem
	EnrichedCommentIDs []string
}

// EntityAggregate is one row of the top-entities report.
type EntityAggregate struct {
	EntityID          string  `json:"entity_id"`
	SignalCount       int64   `json:"signal_count"`
	MeanSentiment     float64 `json:"mean_sentiment"`
	WeightedSentiment float64 `json:"weighted_sentiment"`
}

// Stats summarizes the ledger.
type Stats struct {
	TotalComments    int64            `json:"total_comments"`
	EnrichedComments int64            `json:"enriched_comments"`
	TotalSignals     int64            `json:"total_signals"`
	ByKind           map[string]int64 `json:"by_kind"`
	BySource         map[string]int64 `json:"by_source"`
	PendingReviews   int64            `json:"pending_reviews"`
	Discoveries      int64            `json:"discoveries"`
}

// Store is the persistence interface for comments, entities, signals,
// discoveries, and the review queue.
type Store interface {
	// Migrate creates or updates the schema.
	Migrate(ctx context.Context) error

	// UpsertComments inserts normalized comment records, updating engagement
	// metrics on re-ingestion. The opaque raw payload is stored verbatim.
	UpsertComments(ctx context.Context, comments []models.Comment) error

	// ListUnenriched returns comments with no terminal enrichment state,
	// oldest first. Enrichment is resumable from exactly this set.
	ListUnenriched(ctx context.Context, limit int) ([]models.Comment, error)

	// GetComment retrieves a single comment by ID.
	GetComment(ctx context.Context, id string) (*models.Comment, error)

	// UpsertEntity inserts or updates a monitored entity.
	UpsertEntity(ctx context.Context, entity models.MonitoredEntity) error

	// GetEntity retrieves a monitored entity by ID.
	GetEntity(ctx context.Context, id string) (*models.MonitoredEntity, error)

	// ListEntities returns monitored entities, optionally only active ones.
	ListEntities(ctx context.Context, activeOnly bool) ([]models.MonitoredEntity, error)

	// CommitBatch persists one enrichment flush all-or-nothing. Signal rows
	// converge per (comment, entity, kind, source) via upsert; a uniqueness
	// violation surfacing to the caller is a bug, not an expected error.
	CommitBatch(ctx context.Context, batch Batch) error

	// UpsertSignal inserts or updates a single signal via the same
	// idempotent rule CommitBatch uses. Review acceptance goes through here.
	UpsertSignal(ctx context.Context, signal models.ExtractedSignal) error

	// SignalsForComment returns all signals extracted from one comment.
	SignalsForComment(ctx context.Context, commentID string) ([]models.ExtractedSignal, error)

	// NumericSignals returns numeric-kind signals for an entity within
	// [from, to), ordered by creation time.
	NumericSignals(ctx context.Context, entityID string, kind models.SignalKind, from, to time.Time) ([]models.ExtractedSignal, error)

	// SignalsForEntity returns all signals targeting an entity within
	// [from, to), ordered by creation time.
	SignalsForEntity(ctx context.Context, entityID string, from, to time.Time) ([]models.ExtractedSignal, error)

	// TopEntities aggregates numeric sentiment signals per entity within
	// [from, to), ranked by signal count descending.
	TopEntities(ctx context.Context, from, to time.Time, limit int) ([]EntityAggregate, error)

	// GetDiscoveryByName retrieves a discovered entity by normalized name.
	GetDiscoveryByName(ctx context.Context, normalizedName string) (*models.DiscoveredEntity, error)

	// UpsertDiscovery inserts or updates a discovered entity, unique on
	// normalized name.
	UpsertDiscovery(ctx context.Context, d models.DiscoveredEntity) error

	// ListDiscoveries returns discovered entities with at least minMentions
	// mentions, sorted by mention count descending. This is the human
	// triage queue.
	ListDiscoveries(ctx context.Context, minMentions int64, unreviewedOnly bool, limit int) ([]models.DiscoveredEntity, error)

	// ResolveDiscovery marks a discovery reviewed with its disposition.
	ResolveDiscovery(ctx context.Context, id string, disposition models.DiscoveryDisposition) error

	// ListReviewItems returns review queue items in the given state.
	ListReviewItems(ctx context.Context, state models.ReviewState, limit int) ([]models.ReviewQueueItem, error)

	// GetReviewItem retrieves a single review queue item by ID.
	GetReviewItem(ctx context.Context, id string) (*models.ReviewQueueItem, error)

	// ResolveReviewItem transitions a pending item to accepted or rejected.
	ResolveReviewItem(ctx context.Context, id string, state models.ReviewState, resolvedBy string) error

	// Stats returns ledger-wide statistics.
	Stats(ctx context.Context) (*Stats, error)

	// Close cleans up resources.
	Close() error
}
