package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/mwhitton/chattersignal/internal/models"
)

// MockStore is an in-memory implementation of Store for testing. It applies
// the same uniqueness rules as the sqlite store so idempotence properties
// can be exercised without a database.
type MockStore struct {
	mu          sync.RWMutex
	comments    map[string]models.Comment
	entities    map[string]models.MonitoredEntity
	signals     map[string]models.ExtractedSignal // keyed by identity tuple
	discoveries map[string]models.DiscoveredEntity
	reviews     map[string]models.ReviewQueueItem // keyed by identity tuple

	// FailCommits makes CommitBatch fail, for error-path tests.
	FailCommits bool
}

// NewMockStore creates a new mock store.
func NewMockStore() *MockStore {
	return &MockStore{
		comments:    make(map[string]models.Comment),
		entities:    make(map[string]models.MonitoredEntity),
		signals:     make(map[string]models.ExtractedSignal),
		discoveries: make(map[string]models.DiscoveredEntity),
		reviews:     make(map[string]models.ReviewQueueItem),
	}
}

func signalKey(s models.ExtractedSignal) string {
	return s.CommentID + "|" + s.EntityID + "|" + string(s.Kind) + "|" + s.Source
}

func reviewKey(r models.ReviewQueueItem) string {
	return r.CommentID + "|" + r.EntityID + "|" + r.RawName
}

// Migrate is a no-op for the mock store.
func (m *MockStore) Migrate(_ context.Context) error { return nil }

// UpsertComments inserts comment records, refreshing engagement on repeats.
func (m *MockStore) UpsertComments(_ context.Context, comments []models.Comment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range comments {
		if existing, ok := m.comments[c.ID]; ok {
			existing.LikeCount = c.LikeCount
			existing.ReplyCount = c.ReplyCount
			m.comments[c.ID] = existing
			continue
		}
		m.comments[c.ID] = c
	}
	return nil
}

// ReplaceComment overwrites a comment row wholesale, bypassing the upsert's
// engagement-only update rule. Test helper for forcing re-enrichment.
func (m *MockStore) ReplaceComment(_ context.Context, c models.Comment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.comments[c.ID] = c
	return nil
}

// ListUnenriched returns comments with no terminal enrichment state.
func (m *MockStore) ListUnenriched(_ context.Context, limit int) ([]models.Comment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.Comment
	for _, c := range m.comments {
		if c.EnrichedAt == nil {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PublishedAt.Before(out[j].PublishedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// GetComment retrieves a single comment by ID.
func (m *MockStore) GetComment(_ context.Context, id string) (*models.Comment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.comments[id]
	if !ok {
		return nil, fmt.Errorf("%w: comment %s", ErrNotFound, id)
	}
	return &c, nil
}

// UpsertEntity inserts or updates a monitored entity.
func (m *MockStore) UpsertEntity(_ context.Context, entity models.MonitoredEntity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entities[entity.ID] = entity
	return nil
}

// GetEntity retrieves a monitored entity by ID.
func (m *MockStore) GetEntity(_ context.Context, id string) (*models.MonitoredEntity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entities[id]
	if !ok {
		return nil, fmt.Errorf("%w: entity %s", ErrNotFound, id)
	}
	return &e, nil
}

// ListEntities returns monitored entities.
func (m *MockStore) ListEntities(_ context.Context, activeOnly bool) ([]models.MonitoredEntity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.MonitoredEntity
	for _, e := range m.entities {
		if activeOnly && !e.Active {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CanonicalName < out[j].CanonicalName })
	return out, nil
}

// CommitBatch applies one enrichment flush atomically.
func (m *MockStore) CommitBatch(_ context.Context, batch Batch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailCommits {
		return fmt.Errorf("mock store: commit failed")
	}
	now := time.Now().UTC()
	for _, s := range batch.Signals {
		m.upsertSignalLocked(s, now)
	}
	for _, r := range batch.ReviewItems {
		key := reviewKey(r)
		if existing, ok := m.reviews[key]; ok {
			existing.ProposedSentiment = r.ProposedSentiment
			existing.ProposedEmotion = r.ProposedEmotion
			existing.ProposedStance = r.ProposedStance
			existing.Source = r.Source
			existing.Confidence = r.Confidence
			existing.UpdatedAt = now
			m.reviews[key] = existing
			continue
		}
		if r.CreatedAt.IsZero() {
			r.CreatedAt = now
		}
		r.UpdatedAt = now
		m.reviews[key] = r
	}
	for _, id := range batch.EnrichedCommentIDs {
		if c, ok := m.comments[id]; ok {
			t := now
			c.EnrichedAt = &t
			m.comments[id] = c
		}
	}
	return nil
}

func (m *MockStore) upsertSignalLocked(s models.ExtractedSignal, now time.Time) {
	key := signalKey(s)
	if existing, ok := m.signals[key]; ok {
		existing.Value = s.Value
		existing.NumericValue = s.NumericValue
		existing.Weight = s.Weight
		existing.Confidence = s.Confidence
		existing.UpdatedAt = now
		m.signals[key] = existing
		return
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	s.UpdatedAt = now
	m.signals[key] = s
}

// UpsertSignal inserts or updates a single signal.
func (m *MockStore) UpsertSignal(_ context.Context, signal models.ExtractedSignal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upsertSignalLocked(signal, time.Now().UTC())
	return nil
}

// SignalsForComment returns all signals extracted from one comment.
func (m *MockStore) SignalsForComment(_ context.Context, commentID string) ([]models.ExtractedSignal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.ExtractedSignal
	for _, s := range m.signals {
		if s.CommentID == commentID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].EntityID != out[j].EntityID {
			return out[i].EntityID < out[j].EntityID
		}
		return out[i].Kind < out[j].Kind
	})
	return out, nil
}

// NumericSignals returns numeric-kind signals for an entity within [from, to).
func (m *MockStore) NumericSignals(_ context.Context, entityID string, kind models.SignalKind, from, to time.Time) ([]models.ExtractedSignal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.ExtractedSignal
	for _, s := range m.signals {
		if s.EntityID != entityID || s.Kind != kind || s.NumericValue == nil {
			continue
		}
		if s.CreatedAt.Before(from) || !s.CreatedAt.Before(to) {
			continue
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// SignalsForEntity returns all signals targeting an entity within [from, to).
func (m *MockStore) SignalsForEntity(_ context.Context, entityID string, from, to time.Time) ([]models.ExtractedSignal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.ExtractedSignal
	for _, s := range m.signals {
		if s.EntityID != entityID {
			continue
		}
		if s.CreatedAt.Before(from) || !s.CreatedAt.Before(to) {
			continue
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// TopEntities aggregates numeric sentiment signals per entity.
func (m *MockStore) TopEntities(_ context.Context, from, to time.Time, limit int) ([]EntityAggregate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	type agg struct {
		count       int64
		sum         float64
		weightedSum float64
		weightTotal float64
	}
	byEntity := make(map[string]*agg)
	for _, s := range m.signals {
		if s.Kind != models.SignalKindSentiment || s.EntityID == "" || s.NumericValue == nil {
			continue
		}
		if s.CreatedAt.Before(from) || !s.CreatedAt.Before(to) {
			continue
		}
		a, ok := byEntity[s.EntityID]
		if !ok {
			a = &agg{}
			byEntity[s.EntityID] = a
		}
		a.count++
		a.sum += *s.NumericValue
		a.weightedSum += *s.NumericValue * s.Weight
		a.weightTotal += s.Weight
	}
	var out []EntityAggregate
	for id, a := range byEntity {
		row := EntityAggregate{
			EntityID:      id,
			SignalCount:   a.count,
			MeanSentiment: a.sum / float64(a.count),
		}
		if a.weightTotal > 0 {
			row.WeightedSentiment = a.weightedSum / a.weightTotal
		}
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SignalCount != out[j].SignalCount {
			return out[i].SignalCount > out[j].SignalCount
		}
		return out[i].EntityID < out[j].EntityID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// GetDiscoveryByName retrieves a discovered entity by normalized name.
func (m *MockStore) GetDiscoveryByName(_ context.Context, normalizedName string) (*models.DiscoveredEntity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.discoveries[normalizedName]
	if !ok {
		return nil, fmt.Errorf("%w: discovery %s", ErrNotFound, normalizedName)
	}
	return &d, nil
}

// UpsertDiscovery inserts or updates a discovered entity.
func (m *MockStore) UpsertDiscovery(_ context.Context, d models.DiscoveredEntity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.discoveries[d.NormalizedName] = d
	return nil
}

// ListDiscoveries returns the human triage queue.
func (m *MockStore) ListDiscoveries(_ context.Context, minMentions int64, unreviewedOnly bool, limit int) ([]models.DiscoveredEntity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.DiscoveredEntity
	for _, d := range m.discoveries {
		if d.MentionCount < minMentions {
			continue
		}
		if unreviewedOnly && d.Reviewed {
			continue
		}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].MentionCount != out[j].MentionCount {
			return out[i].MentionCount > out[j].MentionCount
		}
		return out[i].NormalizedName < out[j].NormalizedName
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ResolveDiscovery marks a discovery reviewed with its disposition.
func (m *MockStore) ResolveDiscovery(_ context.Context, id string, disposition models.DiscoveryDisposition) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key, d := range m.discoveries {
		if d.ID == id {
			d.Reviewed = true
			d.Disposition = disposition
			m.discoveries[key] = d
			return nil
		}
	}
	return fmt.Errorf("%w: discovery %s", ErrNotFound, id)
}

// ListReviewItems returns review queue items in the given state.
func (m *MockStore) ListReviewItems(_ context.Context, state models.ReviewState, limit int) ([]models.ReviewQueueItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.ReviewQueueItem
	for _, r := range m.reviews {
		if r.State == state {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// GetReviewItem retrieves a single review queue item by ID.
func (m *MockStore) GetReviewItem(_ context.Context, id string) (*models.ReviewQueueItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, r := range m.reviews {
		if r.ID == id {
			return &r, nil
		}
	}
	return nil, fmt.Errorf("%w: review item %s", ErrNotFound, id)
}

// ResolveReviewItem transitions a pending item to accepted or rejected.
func (m *MockStore) ResolveReviewItem(_ context.Context, id string, state models.ReviewState, resolvedBy string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	for key, r := range m.reviews {
		if r.ID == id && r.State == models.ReviewStatePending {
			r.State = state
			r.ResolvedBy = resolvedBy
			r.ResolvedAt = &now
			m.reviews[key] = r
			return nil
		}
	}
	return fmt.Errorf("%w: pending review item %s", ErrNotFound, id)
}

// Stats returns ledger-wide statistics.
func (m *MockStore) Stats(_ context.Context) (*Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	stats := &Stats{
		ByKind:   make(map[string]int64),
		BySource: make(map[string]int64),
	}
	stats.TotalComments = int64(len(m.comments))
	for _, c := range m.comments {
		if c.EnrichedAt != nil {
			stats.EnrichedComments++
		}
	}
	stats.TotalSignals = int64(len(m.signals))
	for _, s := range m.signals {
		stats.ByKind[string(s.Kind)]++
		stats.BySource[s.Source]++
	}
	for _, r := range m.reviews {
		if r.State == models.ReviewStatePending {
			stats.PendingReviews++
		}
	}
	stats.Discoveries = int64(len(m.discoveries))
	return stats, nil
}

// Close is a no-op for the mock store.
func (m *MockStore) Close() error { return nil }
