package discovery

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mwhitton/chattersignal/internal/models"
	"github.com/mwhitton/chattersignal/internal/store"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestTracker_FirstSightingCreatesRow(t *testing.T) {
	st := store.NewMockStore()
	tr := NewTracker(st, 10, quietLogger())

	require.NoError(t, tr.Track(context.Background(), "Taylor Swift", models.EntityKindPerson, "she handled it better"))

	d, err := st.GetDiscoveryByName(context.Background(), "taylor swift")
	require.NoError(t, err)
	assert.Equal(t, "Taylor Swift", d.Name)
	assert.EqualValues(t, 1, d.MentionCount)
	assert.False(t, d.Reviewed)
	require.Len(t, d.Samples(), 1)
}

func TestTracker_RepeatSightingsBumpCount(t *testing.T) {
	st := store.NewMockStore()
	tr := NewTracker(st, 10, quietLogger())

	require.NoError(t, tr.Track(context.Background(), "Taylor Swift", models.EntityKindPerson, "snippet one"))
	require.NoError(t, tr.Track(context.Background(), "taylor swift", models.EntityKindPerson, "snippet two"))
	require.NoError(t, tr.Track(context.Background(), "Taylor  Swift!", models.EntityKindPerson, "snippet three"))

	d, err := st.GetDiscoveryByName(context.Background(), "taylor swift")
	require.NoError(t, err)
	assert.EqualValues(t, 3, d.MentionCount)
	assert.Len(t, d.Samples(), 3)
}

func TestTracker_SampleCapIsHardStop(t *testing.T) {
	st := store.NewMockStore()
	tr := NewTracker(st, 2, quietLogger())

	for i := 0; i < 5; i++ {
		require.NoError(t, tr.Track(context.Background(), "Taylor Swift", models.EntityKindPerson, fmt.Sprintf("snippet %d", i)))
	}

	d, err := st.GetDiscoveryByName(context.Background(), "taylor swift")
	require.NoError(t, err)
	assert.EqualValues(t, 5, d.MentionCount)
	samples := d.Samples()
	require.Len(t, samples, 2)
	// The first snippets stay; later ones are dropped, not rotated in.
	assert.Equal(t, "snippet 0", samples[0])
	assert.Equal(t, "snippet 1", samples[1])
}

func TestTracker_EmptyNameIgnored(t *testing.T) {
	st := store.NewMockStore()
	tr := NewTracker(st, 10, quietLogger())

	require.NoError(t, tr.Track(context.Background(), "  !! ", models.EntityKindPerson, "snippet"))

	rows, err := st.ListDiscoveries(context.Background(), 0, false, 10)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestTracker_InvalidKindDefaultsToPerson(t *testing.T) {
	st := store.NewMockStore()
	tr := NewTracker(st, 10, quietLogger())

	require.NoError(t, tr.Track(context.Background(), "Mystery Name", "alien", "snippet"))

	d, err := st.GetDiscoveryByName(context.Background(), "mystery name")
	require.NoError(t, err)
	assert.Equal(t, models.EntityKindPerson, d.InferredKind)
}

func TestTracker_PromoteCreatesInactiveEntity(t *testing.T) {
	st := store.NewMockStore()
	tr := NewTracker(st, 10, quietLogger())
	require.NoError(t, tr.Track(context.Background(), "Taylor Swift", models.EntityKindPerson, "snippet"))

	d, err := st.GetDiscoveryByName(context.Background(), "taylor swift")
	require.NoError(t, err)

	entity, err := tr.Promote(context.Background(), d.ID)
	require.NoError(t, err)
	assert.Equal(t, "Taylor Swift", entity.CanonicalName)
	assert.False(t, entity.Active)

	// The discovery leaves the unreviewed triage queue.
	rows, err := st.ListDiscoveries(context.Background(), 1, true, 10)
	require.NoError(t, err)
	assert.Empty(t, rows)

	d, err = st.GetDiscoveryByName(context.Background(), "taylor swift")
	require.NoError(t, err)
	assert.True(t, d.Reviewed)
	assert.Equal(t, models.DispositionPromoted, d.Disposition)
}

func TestTracker_PromoteUnknownID(t *testing.T) {
	st := store.NewMockStore()
	tr := NewTracker(st, 10, quietLogger())

	_, err := tr.Promote(context.Background(), "missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrNotFound)
}
