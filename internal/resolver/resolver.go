// Package resolver matches comment text against the monitored entity
// catalog to produce candidate target entities.
package resolver

import (
	"log/slog"
	"sort"
	"strings"

	"github.com/mwhitton/chattersignal/internal/catalog"
	"github.com/mwhitton/chattersignal/pkg/textnorm"
)

// Confidence levels assigned per match quality.
const (
	// ConfidenceCanonical: the canonical name appears verbatim.
	ConfidenceCanonical = 1.0
	// ConfidenceAlias: an alias appears verbatim.
	ConfidenceAlias = 0.9
	// ConfidenceFragment: only a name fragment appears in the comment, with
	// the full name present in the post caption as a supporting cue.
	ConfidenceFragment = 0.6
)

// CandidateMatch is one entity the comment appears to be talking about.
type CandidateMatch struct {
	EntityID      string
	MatchedString string
	Confidence    float64
	// Ambiguous marks fragment matches that relied on post-context hints.
	Ambiguous bool
}

// Resolver scans comment text for catalog names. The post caption is
// context only: it can support a fragment match or break a tie, but an
// entity mentioned solely in the caption is never a candidate; caption
// attribution produced false signals and is excluded by contract.
type Resolver struct {
	cat    *catalog.Catalog
	logger *slog.Logger
}

// New creates a resolver over the given catalog snapshot.
func New(cat *catalog.Catalog, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{cat: cat, logger: logger}
}

// span is one located name occurrence in the comment text.
type span struct {
	start, end int
	entry      catalog.Entry
	name       string
}

// Resolve returns candidate entity matches for the comment text. An empty
// catalog yields no candidates, not an error.
func (r *Resolver) Resolve(commentText, postContext string) []CandidateMatch {
	if r.cat.Len() == 0 || strings.TrimSpace(commentText) == "" {
		return nil
	}

	text := strings.ToLower(commentText)
	caption := strings.ToLower(postContext)

	var spans []span
	for name, entry := range r.cat.Names() {
		for _, pos := range wordMatches(text, name) {
			spans = append(spans, span{start: pos, end: pos + len(name), entry: entry, name: name})
		}
	}

	// Longest name wins where spans overlap: "justin" inside a located
	// "justin baldoni" must not also fire for an entity aliased "justin".
	sort.Slice(spans, func(i, j int) bool {
		return (spans[i].end - spans[i].start) > (spans[j].end - spans[j].start)
	})
	var kept []span
	for _, s := range spans {
		shadowed := false
		for _, k := range kept {
			if k.entry.Entity.ID != s.entry.Entity.ID && s.start >= k.start && s.end <= k.end {
				shadowed = true
				break
			}
		}
		if !shadowed {
			kept = append(kept, s)
		}
	}

	// Best match per entity.
	best := make(map[string]CandidateMatch)
	for _, s := range kept {
		conf := ConfidenceAlias
		if s.entry.Canonical {
			conf = ConfidenceCanonical
		}
		if prev, ok := best[s.entry.Entity.ID]; ok && prev.Confidence >= conf {
			continue
		}
		best[s.entry.Entity.ID] = CandidateMatch{
			EntityID:      s.entry.Entity.ID,
			MatchedString: s.name,
			Confidence:    conf,
		}
	}

	// Fragment matches: the comment carries only part of a multi-word name
	// while the caption carries the full name. Context supports the match
	// but can never introduce an entity absent from the comment.
	for _, e := range r.cat.Entities() {
		if _, ok := best[e.ID]; ok {
			continue
		}
		frag := nameFragment(e.CanonicalName)
		if frag == "" {
			continue
		}
		fragPositions := wordMatches(text, frag)
		if len(fragPositions) == 0 {
			continue
		}
		if len(wordMatches(caption, textnorm.Normalize(e.CanonicalName))) == 0 {
			continue
		}
		// Skip when another entity's full match already covers the fragment.
		covered := false
		for _, k := range kept {
			if fragPositions[0] >= k.start && fragPositions[0]+len(frag) <= k.end {
				covered = true
				break
			}
		}
		if covered {
			continue
		}
		best[e.ID] = CandidateMatch{
			EntityID:      e.ID,
			MatchedString: frag,
			Confidence:    ConfidenceFragment,
			Ambiguous:     true,
		}
	}

	candidates := make([]CandidateMatch, 0, len(best))
	for _, m := range best {
		candidates = append(candidates, m)
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Confidence != candidates[j].Confidence {
			return candidates[i].Confidence > candidates[j].Confidence
		}
		return candidates[i].EntityID < candidates[j].EntityID
	})

	r.logger.Debug("resolved candidates",
		"count", len(candidates), "text", textnorm.Truncate(commentText, 60))
	return candidates
}

// wordMatches returns the start offsets of every occurrence of name in text
// that sits on word boundaries. Both arguments must already be lowercase.
func wordMatches(text, name string) []int {
	if name == "" {
		return nil
	}
	var positions []int
	off := 0
	for {
		idx := strings.Index(text[off:], name)
		if idx < 0 {
			return positions
		}
		start := off + idx
		end := start + len(name)
		if boundaryBefore(text, start) && boundaryAfter(text, end) {
			positions = append(positions, start)
		}
		off = start + 1
	}
}

func boundaryBefore(text string, start int) bool {
	if start == 0 {
		return true
	}
	runes := []rune(text[:start])
	return textnorm.IsWordBoundary(runes[len(runes)-1])
}

func boundaryAfter(text string, end int) bool {
	if end >= len(text) {
		return true
	}
	runes := []rune(text[end:])
	return textnorm.IsWordBoundary(runes[0])
}

// nameFragment returns the leading token of a multi-word name when it is
// long enough to be a plausible standalone mention, else "".
func nameFragment(canonical string) string {
	fields := strings.Fields(strings.ToLower(canonical))
	if len(fields) < 2 {
		return ""
	}
	if len([]rune(fields[0])) < 3 {
		return ""
	}
	return fields[0]
}
