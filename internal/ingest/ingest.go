// Package ingest is the receiving edge of the ingestion boundary. Records
// arrive already normalized and deduplicated; this only persists them,
// keeping the original payload opaque for future migrations.
package ingest

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/mwhitton/chattersignal/internal/models"
	"github.com/mwhitton/chattersignal/internal/store"
)

// Record is one normalized comment as produced by an external adapter.
type Record struct {
	ID             string    `json:"id"`
	Platform       string    `json:"platform"`
	PostExternalID string    `json:"post_external_id"`
	PostCaption    string    `json:"post_caption"`
	Author         string    `json:"author"`
	Text           string    `json:"text"`
	Timestamp      time.Time `json:"timestamp"`
	LikeCount      int64     `json:"like_count"`
	ReplyCount     int64     `json:"reply_count"`
	ThreadDepth    int       `json:"thread_depth,omitempty"`
}

// Loader persists normalized comment records.
type Loader struct {
	store  store.Store
	logger *slog.Logger
}

// NewLoader creates a loader over the given store.
func NewLoader(st store.Store, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{store: st, logger: logger}
}

// LoadJSONL reads one JSON record per line and upserts them in batches.
// A malformed line is skipped with a warning; re-ingesting the same records
// only refreshes engagement metrics.
func (l *Loader) LoadJSONL(ctx context.Context, r io.Reader, batchSize int) (int, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var batch []models.Comment
	loaded := 0
	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var rec Record
		if err := json.Unmarshal(raw, &rec); err != nil {
			l.logger.Warn("ingest: skipping malformed record", "line", line, "error", err)
			continue
		}
		if rec.ID == "" || rec.Text == "" {
			l.logger.Warn("ingest: skipping record missing id or text", "line", line)
			continue
		}
		batch = append(batch, models.Comment{
			ID:             rec.ID,
			Platform:       rec.Platform,
			PostExternalID: rec.PostExternalID,
			PostCaption:    rec.PostCaption,
			Author:         rec.Author,
			Text:           rec.Text,
			LikeCount:      rec.LikeCount,
			ReplyCount:     rec.ReplyCount,
			ThreadDepth:    rec.ThreadDepth,
			PublishedAt:    rec.Timestamp,
			RawPayload:     string(raw),
		})
		if len(batch) >= batchSize {
			if err := l.store.UpsertComments(ctx, batch); err != nil {
				return loaded, fmt.Errorf("upserting comment batch: %w", err)
			}
			loaded += len(batch)
			batch = batch[:0]
		}
	}
	if err := scanner.Err(); err != nil {
		return loaded, fmt.Errorf("reading input: %w", err)
	}
	if len(batch) > 0 {
		if err := l.store.UpsertComments(ctx, batch); err != nil {
			return loaded, fmt.Errorf("upserting comment batch: %w", err)
		}
		loaded += len(batch)
	}
	l.logger.Info("ingest complete", "records", loaded)
	return loaded, nil
}
