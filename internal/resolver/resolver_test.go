package resolver

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mwhitton/chattersignal/internal/catalog"
	"github.com/mwhitton/chattersignal/internal/models"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	blake := models.MonitoredEntity{
		ID: "blake", CanonicalName: "Blake Lively", Kind: models.EntityKindPerson, Active: true,
	}
	require.NoError(t, blake.SetAliases([]string{"blake"}))
	baldoni := models.MonitoredEntity{
		ID: "baldoni", CanonicalName: "Justin Baldoni", Kind: models.EntityKindPerson, Active: true,
	}
	require.NoError(t, baldoni.SetAliases(nil))
	movie := models.MonitoredEntity{
		ID: "iewu", CanonicalName: "It Ends With Us", Kind: models.EntityKindShow, Active: true,
	}
	require.NoError(t, movie.SetAliases([]string{"iewu"}))

	cat, err := catalog.Build([]models.MonitoredEntity{blake, baldoni, movie}, quietLogger())
	require.NoError(t, err)
	return cat
}

func candidateFor(matches []CandidateMatch, entityID string) (CandidateMatch, bool) {
	for _, m := range matches {
		if m.EntityID == entityID {
			return m, true
		}
	}
	return CandidateMatch{}, false
}

func TestResolve_CanonicalNameFullConfidence(t *testing.T) {
	r := New(newTestCatalog(t), quietLogger())

	matches := r.Resolve("Blake Lively was amazing in this", "")
	m, ok := candidateFor(matches, "blake")
	require.True(t, ok)
	assert.Equal(t, ConfidenceCanonical, m.Confidence)
	assert.False(t, m.Ambiguous)
}

func TestResolve_AliasConfidence(t *testing.T) {
	r := New(newTestCatalog(t), quietLogger())

	matches := r.Resolve("blake looked stunning", "")
	m, ok := candidateFor(matches, "blake")
	require.True(t, ok)
	assert.Equal(t, ConfidenceAlias, m.Confidence)
}

func TestResolve_WordBoundaries(t *testing.T) {
	r := New(newTestCatalog(t), quietLogger())

	// "blakely" must not fire the "blake" alias.
	matches := r.Resolve("blakely is my favorite author", "")
	_, ok := candidateFor(matches, "blake")
	assert.False(t, ok)
}

func TestResolve_CaptionNeverIntroducesCandidates(t *testing.T) {
	r := New(newTestCatalog(t), quietLogger())

	// The caption mentions Baldoni; the comment does not mention any part of
	// his name. He must not become a candidate.
	matches := r.Resolve("this whole situation is a mess", "Justin Baldoni responds to the lawsuit")
	_, ok := candidateFor(matches, "baldoni")
	assert.False(t, ok)
	assert.Empty(t, matches)
}

func TestResolve_FragmentWithCaptionSupport(t *testing.T) {
	r := New(newTestCatalog(t), quietLogger())

	// "justin" alone in the comment, full name in the caption: ambiguous
	// fragment match at reduced confidence.
	matches := r.Resolve("justin knew exactly what he was doing", "Justin Baldoni speaks out")
	m, ok := candidateFor(matches, "baldoni")
	require.True(t, ok)
	assert.Equal(t, ConfidenceFragment, m.Confidence)
	assert.True(t, m.Ambiguous)
}

func TestResolve_FragmentWithoutCaptionSupport(t *testing.T) {
	r := New(newTestCatalog(t), quietLogger())

	matches := r.Resolve("justin knew exactly what he was doing", "")
	_, ok := candidateFor(matches, "baldoni")
	assert.False(t, ok)
}

func TestResolve_LongestNameShadowsShorter(t *testing.T) {
	// "blake" alias inside "blake lively" must produce one candidate, not two
	// conflicting ones, and the canonical match wins.
	r := New(newTestCatalog(t), quietLogger())

	matches := r.Resolve("blake lively deserves better", "")
	m, ok := candidateFor(matches, "blake")
	require.True(t, ok)
	assert.Equal(t, ConfidenceCanonical, m.Confidence)
}

func TestResolve_MultipleEntities(t *testing.T) {
	r := New(newTestCatalog(t), quietLogger())

	matches := r.Resolve("I love Blake Lively but Justin Baldoni is shady", "")
	require.Len(t, matches, 2)
	_, ok := candidateFor(matches, "blake")
	assert.True(t, ok)
	_, ok = candidateFor(matches, "baldoni")
	assert.True(t, ok)
}

func TestResolve_EmptyCatalogAndEmptyText(t *testing.T) {
	empty, err := catalog.Build(nil, quietLogger())
	require.NoError(t, err)
	r := New(empty, quietLogger())
	assert.Nil(t, r.Resolve("blake lively is great", ""))

	r = New(newTestCatalog(t), quietLogger())
	assert.Nil(t, r.Resolve("   ", "caption"))
}
