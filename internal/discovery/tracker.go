// Package discovery accumulates entity names found by scorers that are not
// yet in the monitored catalog.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/mwhitton/chattersignal/internal/models"
	"github.com/mwhitton/chattersignal/internal/store"
	"github.com/mwhitton/chattersignal/pkg/textnorm"
)

// Tracker deduplicates discovered names and accumulates mention evidence.
// Names must already have passed validity filtering before reaching it.
type Tracker struct {
	store     store.Store
	sampleCap int
	logger    *slog.Logger
}

// NewTracker creates a tracker flushing into the given store.
func NewTracker(st store.Store, sampleCap int, logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{store: st, sampleCap: sampleCap, logger: logger}
}

// Track registers one sighting of a name. First sighting creates the row;
// repeats bump the mention count and last-seen time. The sample list is a
// hard cap, not a sliding window: once full, later snippets are dropped.
func (t *Tracker) Track(ctx context.Context, name string, inferredKind models.EntityKind, contextSnippet string) error {
	norm := textnorm.Normalize(name)
	if norm == "" {
		return nil
	}
	if !inferredKind.IsValid() {
		inferredKind = models.EntityKindPerson
	}
	now := time.Now().UTC()
	snippet := textnorm.Truncate(contextSnippet, 200)

	existing, err := t.store.GetDiscoveryByName(ctx, norm)
	switch {
	case err == nil:
		existing.MentionCount++
		existing.LastSeen = now
		samples := existing.Samples()
		if len(samples) < t.sampleCap && snippet != "" {
			existing.SetSamples(append(samples, snippet))
		}
		if err := t.store.UpsertDiscovery(ctx, *existing); err != nil {
			return fmt.Errorf("updating discovery %q: %w", name, err)
		}
		t.logger.Debug("discovery seen again", "name", name, "mentions", existing.MentionCount)
		return nil

	case errors.Is(err, store.ErrNotFound):
		d := models.DiscoveredEntity{
			ID:             uuid.New().String(),
			Name:           name,
			NormalizedName: norm,
			InferredKind:   inferredKind,
			MentionCount:   1,
			FirstSeen:      now,
			LastSeen:       now,
		}
		if snippet != "" {
			d.SetSamples([]string{snippet})
		}
		if err := t.store.UpsertDiscovery(ctx, d); err != nil {
			return fmt.Errorf("creating discovery %q: %w", name, err)
		}
		t.logger.Info("new entity discovered", "name", name, "kind", inferredKind)
		return nil

	default:
		return fmt.Errorf("looking up discovery %q: %w", name, err)
	}
}

// Promote creates a MonitoredEntity from a discovery and marks it promoted.
// The new entity starts inactive so a human can finish configuring aliases
// before it enters the resolver's catalog.
func (t *Tracker) Promote(ctx context.Context, discoveryID string) (*models.MonitoredEntity, error) {
	rows, err := t.store.ListDiscoveries(ctx, 1, false, 1000)
	if err != nil {
		return nil, fmt.Errorf("listing discoveries: %w", err)
	}
	var found *models.DiscoveredEntity
	for i := range rows {
		if rows[i].ID == discoveryID {
			found = &rows[i]
			break
		}
	}
	if found == nil {
		return nil, fmt.Errorf("%w: discovery %s", store.ErrNotFound, discoveryID)
	}

	entity := models.MonitoredEntity{
		ID:            uuid.New().String(),
		CanonicalName: found.Name,
		DisplayName:   found.Name,
		Kind:          found.InferredKind,
		Active:        false,
	}
	if err := entity.SetAliases(nil); err != nil {
		return nil, err
	}
	if err := t.store.UpsertEntity(ctx, entity); err != nil {
		return nil, fmt.Errorf("creating entity from discovery: %w", err)
	}
	if err := t.store.ResolveDiscovery(ctx, discoveryID, models.DispositionPromoted); err != nil {
		return nil, err
	}
	t.logger.Info("discovery promoted", "name", found.Name, "entity_id", entity.ID)
	return &entity, nil
}
