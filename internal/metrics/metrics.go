// Package metrics provides application-level counters using stdlib expvar.
// The HTTP API serves them on /debug/vars.
package metrics

import "expvar"

// Operation counters.
var (
	CommentsEnriched   = expvar.NewInt("chattersignal_comments_enriched_total")
	SignalsCommitted   = expvar.NewInt("chattersignal_signals_committed_total")
	ReviewQueued       = expvar.NewInt("chattersignal_review_queued_total")
	DiscoveriesTracked = expvar.NewInt("chattersignal_discoveries_tracked_total")
	NamesFiltered      = expvar.NewInt("chattersignal_names_filtered_total")
	ScoringRetries     = expvar.NewInt("chattersignal_scoring_retries_total")
	ScoringFailures    = expvar.NewInt("chattersignal_scoring_failures_total")
)

// Inc increments the given counter by 1.
func Inc(counter *expvar.Int) { counter.Add(1) }
