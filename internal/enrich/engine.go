// Package enrich orchestrates the per-comment pipeline: resolve candidates,
// score, validate names, commit signals idempotently, route low-confidence
// attributions to review, and feed discoveries to the tracker.
package enrich

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/mwhitton/chattersignal/internal/catalog"
	"github.com/mwhitton/chattersignal/internal/config"
	"github.com/mwhitton/chattersignal/internal/discovery"
	"github.com/mwhitton/chattersignal/internal/metrics"
	"github.com/mwhitton/chattersignal/internal/models"
	"github.com/mwhitton/chattersignal/internal/resolver"
	"github.com/mwhitton/chattersignal/internal/scoring"
	"github.com/mwhitton/chattersignal/internal/store"
	"github.com/mwhitton/chattersignal/pkg/textnorm"
)

// State is the per-comment processing state.
type State string

const (
	StateUnprocessed     State = "UNPROCESSED"
	StateResolving       State = "RESOLVING"
	StateScoring         State = "SCORING"
	StateValidating      State = "VALIDATING"
	StateCommitted       State = "COMMITTED"
	StateQueuedForReview State = "QUEUED_FOR_REVIEW"
	StateDone            State = "DONE"
)

// Report summarizes one enrichment run.
type Report struct {
	Processed        int      `json:"processed"`
	SignalsCommitted int      `json:"signals_committed"`
	ReviewQueued     int      `json:"review_queued"`
	Discovered       int      `json:"discovered"`
	Failed           int      `json:"failed"`
	FailedCommentIDs []string `json:"failed_comment_ids,omitempty"`
}

// Engine drives enrichment. Scoring calls run concurrently across comments
// in a bounded pool; persistence stays batched and ordered per batch, so a
// crash mid-batch leaves no half-written signals.
type Engine struct {
	cat     *catalog.Catalog
	res     *resolver.Resolver
	scorer  scoring.Scorer
	tracker *discovery.Tracker
	store   store.Store
	filter  *NameFilter
	cfg     config.EnrichConfig
	logger  *slog.Logger
}

// NewEngine wires the pipeline. The catalog snapshot is immutable for the
// lifetime of the engine; build a new engine per run to pick up changes.
func NewEngine(cat *catalog.Catalog, res *resolver.Resolver, scorer scoring.Scorer,
	tracker *discovery.Tracker, st store.Store, filter *NameFilter,
	cfg config.EnrichConfig, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		cat:     cat,
		res:     res,
		scorer:  scorer,
		tracker: tracker,
		store:   st,
		filter:  filter,
		cfg:     cfg,
		logger:  logger,
	}
}

// commentResult is what one comment contributes to the batch flush.
type commentResult struct {
	commentID   string
	state       State
	signals     []models.ExtractedSignal
	reviewItems []models.ReviewQueueItem
	discoveries []scoring.DiscoveredName
	snippet     string
}

// Run enriches every unenriched comment, flushing in fixed-size batches.
// A scoring failure defers the comment to the next run; a failed batch
// commit logs the affected comment ids and moves on to the next batch.
// Comments that failed are not retried within the same run: each one is
// counted once and stays unenriched for a later run.
func (e *Engine) Run(ctx context.Context) (*Report, error) {
	report := &Report{}
	failed := make(map[string]bool)
	for {
		select {
		case <-ctx.Done():
			return report, ctx.Err()
		default:
		}

		// Failed comments stay unenriched and would come back from every
		// listing; over-fetch by the failure count so they cannot starve
		// the comments behind them.
		comments, err := e.store.ListUnenriched(ctx, e.cfg.BatchSize+len(failed))
		if err != nil {
			return report, fmt.Errorf("listing unenriched comments: %w", err)
		}
		if len(comments) == 0 {
			return report, nil
		}
		drained := len(comments) < e.cfg.BatchSize+len(failed)

		fresh := make([]models.Comment, 0, e.cfg.BatchSize)
		for _, c := range comments {
			if failed[c.ID] {
				continue
			}
			fresh = append(fresh, c)
			if len(fresh) == e.cfg.BatchSize {
				break
			}
		}
		if len(fresh) == 0 {
			return report, nil
		}

		e.runBatch(ctx, fresh, report, failed)

		if drained && len(fresh) < e.cfg.BatchSize {
			return report, nil
		}
	}
}

// runBatch scores a batch concurrently, then commits it atomically. Failed
// comment ids are recorded in failed so the run never revisits them.
func (e *Engine) runBatch(ctx context.Context, comments []models.Comment, report *Report, failed map[string]bool) {
	var mu sync.Mutex
	var results []commentResult

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Workers)
	for i := range comments {
		c := comments[i]
		g.Go(func() error {
			res, err := e.processComment(gctx, c)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				metrics.Inc(metrics.ScoringFailures)
				failed[c.ID] = true
				report.Failed++
				report.FailedCommentIDs = append(report.FailedCommentIDs, c.ID)
				e.logger.Error("comment failed, deferring to next run", "comment", c.ID, "error", err)
				return nil
			}
			results = append(results, *res)
			return nil
		})
	}
	_ = g.Wait()

	batch := store.Batch{}
	for _, r := range results {
		batch.Signals = append(batch.Signals, r.signals...)
		batch.ReviewItems = append(batch.ReviewItems, r.reviewItems...)
		batch.EnrichedCommentIDs = append(batch.EnrichedCommentIDs, r.commentID)
	}

	if err := e.store.CommitBatch(ctx, batch); err != nil {
		ids := make([]string, 0, len(results))
		for _, r := range results {
			ids = append(ids, r.commentID)
			failed[r.commentID] = true
		}
		e.logger.Error("batch commit failed, comments remain unprocessed",
			"comments", strings.Join(ids, ","), "error", err)
		report.Failed += len(results)
		report.FailedCommentIDs = append(report.FailedCommentIDs, ids...)
		return
	}

	for _, r := range results {
		report.Processed++
		report.SignalsCommitted += len(r.signals)
		report.ReviewQueued += len(r.reviewItems)
		metrics.Inc(metrics.CommentsEnriched)
		for range r.signals {
			metrics.Inc(metrics.SignalsCommitted)
		}
		for range r.reviewItems {
			metrics.Inc(metrics.ReviewQueued)
		}

		// Discovery tracking happens after the batch lands: discoveries are
		// evidence accumulation, not part of the signal idempotence contract.
		for _, d := range r.discoveries {
			if err := e.tracker.Track(ctx, d.Name, d.Kind, r.snippet); err != nil {
				e.logger.Warn("tracking discovery", "name", d.Name, "error", err)
				continue
			}
			report.Discovered++
			metrics.Inc(metrics.DiscoveriesTracked)
		}
	}
}

// processComment walks one comment through the state machine up to the
// point where its rows are ready to flush.
func (e *Engine) processComment(ctx context.Context, c models.Comment) (*commentResult, error) {
	e.logger.Debug("comment state", "comment", c.ID, "state", StateResolving)
	candidates := e.res.Resolve(c.Text, c.PostCaption)

	e.logger.Debug("comment state", "comment", c.ID, "state", StateScoring)
	req := scoring.ScoreRequest{
		Text:        c.Text,
		PostContext: c.PostCaption,
		Candidates:  toScoringCandidates(candidates, e.cat),
		LikeCount:   c.LikeCount,
	}
	result, err := e.scoreWithRetry(ctx, req)
	if err != nil {
		return nil, err
	}

	e.logger.Debug("comment state", "comment", c.ID, "state", StateValidating)
	weight := 1.0 + float64(c.LikeCount)/100.0

	res := &commentResult{
		commentID: c.ID,
		snippet:   textnorm.Truncate(c.Text, 200),
	}

	// Per-comment guard: an entity signaled from the candidate list must not
	// be counted again when the scorer also lists it as a discovery.
	signaled := make(map[string]bool)

	entityCommitted := false
	for _, cand := range req.Candidates {
		if !e.filter.Valid(cand.Name) {
			metrics.Inc(metrics.NamesFiltered)
			e.logger.Debug("candidate name filtered", "name", cand.Name)
			continue
		}
		signaled[textnorm.Normalize(cand.Name)] = true
		if ent, ok := e.cat.ByID(cand.EntityID); ok {
			signaled[textnorm.Normalize(ent.CanonicalName)] = true
		}

		sentiment := result.EntitySentiment[cand.EntityID]
		if cand.Confidence >= e.cfg.ConfidenceThreshold {
			res.signals = append(res.signals, e.entitySignals(c, cand, result, sentiment, weight)...)
			entityCommitted = true
			continue
		}
		// Below threshold: never silently auto-assign.
		res.reviewItems = append(res.reviewItems, models.ReviewQueueItem{
			ID:                uuid.New().String(),
			CommentID:         c.ID,
			EntityID:          cand.EntityID,
			ProposedSentiment: sentiment,
			ProposedEmotion:   result.Emotion,
			ProposedStance:    result.EntityStance[cand.EntityID],
			Source:            e.scorer.Source(),
			Confidence:        cand.Confidence,
			State:             models.ReviewStatePending,
		})
	}

	res.signals = append(res.signals, e.commentSignals(c, result, weight, entityCommitted)...)

	for _, d := range result.Discoveries {
		norm := textnorm.Normalize(d.Name)
		if signaled[norm] {
			continue
		}
		if _, known := e.cat.Lookup(norm); known {
			continue
		}
		if !e.filter.Valid(d.Name) {
			metrics.Inc(metrics.NamesFiltered)
			e.logger.Debug("discovered name filtered", "name", d.Name)
			continue
		}
		signaled[norm] = true
		res.discoveries = append(res.discoveries, d)
	}

	state := StateCommitted
	if len(res.reviewItems) > 0 {
		state = StateQueuedForReview
	}
	res.state = state
	e.logger.Debug("comment processed",
		"comment", c.ID,
		"state", state,
		"signals", len(res.signals),
		"queued", len(res.reviewItems),
		"discoveries", len(res.discoveries))
	return res, nil
}

// entitySignals builds the signal rows for one auto-committed candidate.
func (e *Engine) entitySignals(c models.Comment, cand scoring.Candidate, result *scoring.ScoreResult, sentiment, weight float64) []models.ExtractedSignal {
	v := sanitize(sentiment)
	signals := []models.ExtractedSignal{{
		ID:           uuid.New().String(),
		CommentID:    c.ID,
		EntityID:     cand.EntityID,
		Kind:         models.SignalKindSentiment,
		Source:       e.scorer.Source(),
		Value:        sentimentLabel(v),
		NumericValue: &v,
		Weight:       weight,
		Confidence:   cand.Confidence,
	}}

	// Per-entity stance ships disabled by default: omitting the kind beats
	// persisting attributions the scorer cannot yet make reliably.
	if e.cfg.StanceEnabled {
		if stance, ok := result.EntityStance[cand.EntityID]; ok && stance != "" {
			signals = append(signals, models.ExtractedSignal{
				ID:         uuid.New().String(),
				CommentID:  c.ID,
				EntityID:   cand.EntityID,
				Kind:       models.SignalKindStance,
				Source:     e.scorer.Source(),
				Value:      stance,
				Weight:     weight,
				Confidence: cand.Confidence,
			})
		}
	}
	return signals
}

// commentSignals builds the comment-level rows: emotion, toxicity, sarcasm,
// topics, and, only when no entity signal was committed, the overall
// sentiment reading.
func (e *Engine) commentSignals(c models.Comment, result *scoring.ScoreResult, weight float64, entityCommitted bool) []models.ExtractedSignal {
	var signals []models.ExtractedSignal
	src := e.scorer.Source()

	if !entityCommitted {
		v := sanitize(result.OverallSentiment)
		signals = append(signals, models.ExtractedSignal{
			ID:           uuid.New().String(),
			CommentID:    c.ID,
			Kind:         models.SignalKindSentiment,
			Source:       src,
			Value:        sentimentLabel(v),
			NumericValue: &v,
			Weight:       weight,
			Confidence:   result.Confidence,
		})
	}

	if result.Emotion != "" {
		signals = append(signals, models.ExtractedSignal{
			ID:         uuid.New().String(),
			CommentID:  c.ID,
			Kind:       models.SignalKindEmotion,
			Source:     src,
			Value:      result.Emotion,
			Weight:     weight,
			Confidence: result.Confidence,
		})
	}

	if result.Toxicity > 0 {
		tox := sanitize(result.Toxicity)
		signals = append(signals, models.ExtractedSignal{
			ID:           uuid.New().String(),
			CommentID:    c.ID,
			Kind:         models.SignalKindToxicity,
			Source:       src,
			Value:        toxicityLabel(tox),
			NumericValue: &tox,
			Weight:       weight,
			Confidence:   result.Confidence,
		})
	}

	if result.Sarcasm {
		signals = append(signals, models.ExtractedSignal{
			ID:         uuid.New().String(),
			CommentID:  c.ID,
			Kind:       models.SignalKindSarcasm,
			Source:     src,
			Value:      "sarcastic",
			Weight:     weight,
			Confidence: result.Confidence,
		})
	}

	if len(result.Topics) > 0 {
		signals = append(signals, models.ExtractedSignal{
			ID:         uuid.New().String(),
			CommentID:  c.ID,
			Kind:       models.SignalKindTopic,
			Source:     src,
			Value:      strings.Join(result.Topics, ","),
			Weight:     weight,
			Confidence: result.Confidence,
		})
	}
	return signals
}

// scoreWithRetry retries transient scoring-backend failures with exponential
// backoff before giving up on the comment for this run.
func (e *Engine) scoreWithRetry(ctx context.Context, req scoring.ScoreRequest) (*scoring.ScoreResult, error) {
	var result *scoring.ScoreResult
	attempt := 0
	op := func() error {
		var err error
		result, err = e.scorer.Score(ctx, req)
		if err != nil {
			attempt++
			if attempt > 1 {
				metrics.Inc(metrics.ScoringRetries)
			}
			e.logger.Warn("scoring attempt failed", "attempt", attempt, "error", err)
		}
		return err
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 200 * time.Millisecond
	bo.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(bo, uint64(e.cfg.MaxRetries)), ctx)
	if err := backoff.Retry(op, policy); err != nil {
		return nil, fmt.Errorf("scoring comment after %d attempts: %w", attempt, err)
	}
	return result, nil
}

func toScoringCandidates(matches []resolver.CandidateMatch, cat *catalog.Catalog) []scoring.Candidate {
	out := make([]scoring.Candidate, 0, len(matches))
	for _, m := range matches {
		name := m.MatchedString
		if ent, ok := cat.ByID(m.EntityID); ok {
			name = ent.CanonicalName
		}
		out = append(out, scoring.Candidate{
			EntityID:   m.EntityID,
			Name:       name,
			Confidence: m.Confidence,
			Ambiguous:  m.Ambiguous,
		})
	}
	return out
}

func sentimentLabel(v float64) string {
	switch {
	case v > 0.1:
		return "positive"
	case v < -0.1:
		return "negative"
	default:
		return "neutral"
	}
}

func toxicityLabel(v float64) string {
	switch {
	case v >= 0.7:
		return "severe"
	case v >= 0.35:
		return "moderate"
	default:
		return "mild"
	}
}

// sanitize guards against NaN/Inf propagation from scorers.
func sanitize(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
