package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/mwhitton/chattersignal/internal/models"
)

// GormStore is the sqlite-backed Store implementation.
type GormStore struct {
	db     *gorm.DB
	logger *slog.Logger
}

// NewGormStore opens (or creates) the sqlite database at path.
func NewGormStore(path string, logger *slog.Logger) (*GormStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("opening sqlite store at %s: %w", path, err)
	}
	return &GormStore{db: db, logger: logger}, nil
}

// Migrate creates or updates the schema.
func (s *GormStore) Migrate(ctx context.Context) error {
	err := s.db.WithContext(ctx).AutoMigrate(
		&models.Comment{},
		&models.MonitoredEntity{},
		&models.ExtractedSignal{},
		&models.DiscoveredEntity{},
		&models.ReviewQueueItem{},
	)
	if err != nil {
		return fmt.Errorf("migrating schema: %w", err)
	}
	return nil
}

// UpsertComments inserts normalized comment records. Re-ingestion only
// refreshes engagement metrics; text and payload stay as first seen.
func (s *GormStore) UpsertComments(ctx context.Context, comments []models.Comment) error {
	if len(comments) == 0 {
		return nil
	}
	now := time.Now().UTC()
	for i := range comments {
		if comments[i].CreatedAt.IsZero() {
			comments[i].CreatedAt = now
		}
		comments[i].UpdatedAt = now
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"like_count",
				"reply_count",
				"updated_at",
			}),
		}).
		Create(&comments).Error
}

// ListUnenriched returns comments with no terminal enrichment state.
func (s *GormStore) ListUnenriched(ctx context.Context, limit int) ([]models.Comment, error) {
	var comments []models.Comment
	err := s.db.WithContext(ctx).
		Where("enriched_at IS NULL").
		Order("published_at ASC").
		Limit(limit).
		Find(&comments).Error
	return comments, err
}

// GetComment retrieves a single comment by ID.
func (s *GormStore) GetComment(ctx context.Context, id string) (*models.Comment, error) {
	var c models.Comment
	err := s.db.WithContext(ctx).First(&c, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: comment %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// UpsertEntity inserts or updates a monitored entity.
func (s *GormStore) UpsertEntity(ctx context.Context, entity models.MonitoredEntity) error {
	now := time.Now().UTC()
	if entity.CreatedAt.IsZero() {
		entity.CreatedAt = now
	}
	entity.UpdatedAt = now
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"canonical_name",
				"display_name",
				"kind",
				"aliases_json",
				"active",
				"updated_at",
			}),
		}).
		Create(&entity).Error
}

// GetEntity retrieves a monitored entity by ID.
func (s *GormStore) GetEntity(ctx context.Context, id string) (*models.MonitoredEntity, error) {
	var e models.MonitoredEntity
	err := s.db.WithContext(ctx).First(&e, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: entity %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// ListEntities returns monitored entities.
func (s *GormStore) ListEntities(ctx context.Context, activeOnly bool) ([]models.MonitoredEntity, error) {
	q := s.db.WithContext(ctx).Order("canonical_name ASC")
	if activeOnly {
		q = q.Where("active = ?", true)
	}
	var entities []models.MonitoredEntity
	err := q.Find(&entities).Error
	return entities, err
}

// signalUpsertClause is the idempotence rule: one live row per
// (comment, entity, kind, source); conflicts update the reading in place.
var signalUpsertClause = clause.OnConflict{
	Columns: []clause.Column{
		{Name: "comment_id"},
		{Name: "entity_id"},
		{Name: "kind"},
		{Name: "source"},
	},
	DoUpdates: clause.AssignmentColumns([]string{
		"value",
		"numeric_value",
		"weight",
		"confidence",
		"updated_at",
	}),
}

// reviewUpsertClause keeps one item per (comment, entity, raw name),
// refreshing proposed values while leaving the resolution state alone.
var reviewUpsertClause = clause.OnConflict{
	Columns: []clause.Column{
		{Name: "comment_id"},
		{Name: "entity_id"},
		{Name: "raw_name"},
	},
	DoUpdates: clause.AssignmentColumns([]string{
		"proposed_sentiment",
		"proposed_emotion",
		"proposed_stance",
		"source",
		"confidence",
		"updated_at",
	}),
}

// CommitBatch persists one enrichment flush inside a single transaction.
func (s *GormStore) CommitBatch(ctx context.Context, batch Batch) error {
	now := time.Now().UTC()
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(batch.Signals) > 0 {
			signals := batch.Signals
			for i := range signals {
				if signals[i].CreatedAt.IsZero() {
					signals[i].CreatedAt = now
				}
				signals[i].UpdatedAt = now
			}
			if err := tx.Clauses(signalUpsertClause).Create(&signals).Error; err != nil {
				return fmt.Errorf("upserting signals: %w", err)
			}
		}

		if len(batch.ReviewItems) > 0 {
			items := batch.ReviewItems
			for i := range items {
				if items[i].CreatedAt.IsZero() {
					items[i].CreatedAt = now
				}
				items[i].UpdatedAt = now
			}
			if err := tx.Clauses(reviewUpsertClause).Create(&items).Error; err != nil {
				return fmt.Errorf("upserting review items: %w", err)
			}
		}

		if len(batch.EnrichedCommentIDs) > 0 {
			if err := tx.Model(&models.Comment{}).
				Where("id IN ?", batch.EnrichedCommentIDs).
				Update("enriched_at", now).Error; err != nil {
				return fmt.Errorf("marking comments enriched: %w", err)
			}
		}
		return nil
	})
}

// UpsertSignal inserts or updates a single signal.
func (s *GormStore) UpsertSignal(ctx context.Context, signal models.ExtractedSignal) error {
	now := time.Now().UTC()
	if signal.CreatedAt.IsZero() {
		signal.CreatedAt = now
	}
	signal.UpdatedAt = now
	return s.db.WithContext(ctx).Clauses(signalUpsertClause).Create(&signal).Error
}

// SignalsForComment returns all signals extracted from one comment.
func (s *GormStore) SignalsForComment(ctx context.Context, commentID string) ([]models.ExtractedSignal, error) {
	var signals []models.ExtractedSignal
	err := s.db.WithContext(ctx).
		Where("comment_id = ?", commentID).
		Order("entity_id ASC, kind ASC").
		Find(&signals).Error
	return signals, err
}

// NumericSignals returns numeric-kind signals for an entity within [from, to).
func (s *GormStore) NumericSignals(ctx context.Context, entityID string, kind models.SignalKind, from, to time.Time) ([]models.ExtractedSignal, error) {
	var signals []models.ExtractedSignal
	err := s.db.WithContext(ctx).
		Where("entity_id = ? AND kind = ? AND numeric_value IS NOT NULL", entityID, kind).
		Where("created_at >= ? AND created_at < ?", from, to).
		Order("created_at ASC").
		Find(&signals).Error
	return signals, err
}

// SignalsForEntity returns all signals targeting an entity within [from, to).
func (s *GormStore) SignalsForEntity(ctx context.Context, entityID string, from, to time.Time) ([]models.ExtractedSignal, error) {
	var signals []models.ExtractedSignal
	err := s.db.WithContext(ctx).
		Where("entity_id = ?", entityID).
		Where("created_at >= ? AND created_at < ?", from, to).
		Order("created_at ASC").
		Find(&signals).Error
	return signals, err
}

// TopEntities aggregates numeric sentiment signals per entity.
func (s *GormStore) TopEntities(ctx context.Context, from, to time.Time, limit int) ([]EntityAggregate, error) {
	var rows []EntityAggregate
	err := s.db.WithContext(ctx).
		Model(&models.ExtractedSignal{}).
		Select(`entity_id,
			COUNT(*) AS signal_count,
			AVG(numeric_value) AS mean_sentiment,
			SUM(numeric_value * weight) / SUM(weight) AS weighted_sentiment`).
		Where("kind = ? AND entity_id <> '' AND numeric_value IS NOT NULL", models.SignalKindSentiment).
		Where("created_at >= ? AND created_at < ?", from, to).
		Group("entity_id").
		Order("signal_count DESC").
		Limit(limit).
		Scan(&rows).Error
	return rows, err
}

// GetDiscoveryByName retrieves a discovered entity by normalized name.
func (s *GormStore) GetDiscoveryByName(ctx context.Context, normalizedName string) (*models.DiscoveredEntity, error) {
	var d models.DiscoveredEntity
	err := s.db.WithContext(ctx).First(&d, "normalized_name = ?", normalizedName).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: discovery %s", ErrNotFound, normalizedName)
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// UpsertDiscovery inserts or updates a discovered entity.
func (s *GormStore) UpsertDiscovery(ctx context.Context, d models.DiscoveredEntity) error {
	now := time.Now().UTC()
	if d.CreatedAt.IsZero() {
		d.CreatedAt = now
	}
	d.UpdatedAt = now
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "normalized_name"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"mention_count",
				"samples_json",
				"last_seen",
				"inferred_kind",
				"updated_at",
			}),
		}).
		Create(&d).Error
}

// ListDiscoveries returns the human triage queue.
func (s *GormStore) ListDiscoveries(ctx context.Context, minMentions int64, unreviewedOnly bool, limit int) ([]models.DiscoveredEntity, error) {
	q := s.db.WithContext(ctx).
		Where("mention_count >= ?", minMentions).
		Order("mention_count DESC").
		Limit(limit)
	if unreviewedOnly {
		q = q.Where("reviewed = ?", false)
	}
	var out []models.DiscoveredEntity
	err := q.Find(&out).Error
	return out, err
}

// ResolveDiscovery marks a discovery reviewed with its disposition.
func (s *GormStore) ResolveDiscovery(ctx context.Context, id string, disposition models.DiscoveryDisposition) error {
	res := s.db.WithContext(ctx).
		Model(&models.DiscoveredEntity{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"reviewed":    true,
			"disposition": disposition,
			"updated_at":  time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: discovery %s", ErrNotFound, id)
	}
	return nil
}

// ListReviewItems returns review queue items in the given state.
func (s *GormStore) ListReviewItems(ctx context.Context, state models.ReviewState, limit int) ([]models.ReviewQueueItem, error) {
	var items []models.ReviewQueueItem
	err := s.db.WithContext(ctx).
		Where("state = ?", state).
		Order("created_at ASC").
		Limit(limit).
		Find(&items).Error
	return items, err
}

// GetReviewItem retrieves a single review queue item by ID.
func (s *GormStore) GetReviewItem(ctx context.Context, id string) (*models.ReviewQueueItem, error) {
	var item models.ReviewQueueItem
	err := s.db.WithContext(ctx).First(&item, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: review item %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// ResolveReviewItem transitions a pending item to accepted or rejected.
func (s *GormStore) ResolveReviewItem(ctx context.Context, id string, state models.ReviewState, resolvedBy string) error {
	now := time.Now().UTC()
	res := s.db.WithContext(ctx).
		Model(&models.ReviewQueueItem{}).
		Where("id = ? AND state = ?", id, models.ReviewStatePending).
		Updates(map[string]any{
			"state":       state,
			"resolved_by": resolvedBy,
			"resolved_at": now,
			"updated_at":  now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: pending review item %s", ErrNotFound, id)
	}
	return nil
}

// Stats returns ledger-wide statistics.
func (s *GormStore) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{
		ByKind:   make(map[string]int64),
		BySource: make(map[string]int64),
	}
	db := s.db.WithContext(ctx)

	if err := db.Model(&models.Comment{}).Count(&stats.TotalComments).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.Comment{}).Where("enriched_at IS NOT NULL").Count(&stats.EnrichedComments).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.ExtractedSignal{}).Count(&stats.TotalSignals).Error; err != nil {
		return nil, err
	}

	type bucket struct {
		Key   string
		Count int64
	}
	var byKind []bucket
	if err := db.Model(&models.ExtractedSignal{}).
		Select("kind AS key, COUNT(*) AS count").Group("kind").Scan(&byKind).Error; err != nil {
		return nil, err
	}
	for _, b := range byKind {
		stats.ByKind[b.Key] = b.Count
	}
	var bySource []bucket
	if err := db.Model(&models.ExtractedSignal{}).
		Select("source AS key, COUNT(*) AS count").Group("source").Scan(&bySource).Error; err != nil {
		return nil, err
	}
	for _, b := range bySource {
		stats.BySource[b.Key] = b.Count
	}

	if err := db.Model(&models.ReviewQueueItem{}).
		Where("state = ?", models.ReviewStatePending).Count(&stats.PendingReviews).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.DiscoveredEntity{}).Count(&stats.Discoveries).Error; err != nil {
		return nil, err
	}
	return stats, nil
}

// Close closes the underlying database handle.
func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
