package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/relight14/micropaymentcrawler-sub002/domain/research"
)

func newTestSourceStore(t *testing.T) *SourceStore {
	t.Helper()
	return NewSourceStore(zap.NewNop())
}

func TestSourceStore_Merge(t *testing.T) {
	t.Run("merging the same record twice keeps the pool at one", func(t *testing.T) {
		s := newTestSourceStore(t)
		record := research.SourceRecord{URL: "https://x.com/a", Title: "A", Excerpt: "abc..."}

		added := s.Merge([]research.SourceRecord{record})
		require.Len(t, added, 1)
		assert.Equal(t, 1, s.Len())

		added = s.Merge([]research.SourceRecord{record})
		assert.Empty(t, added)
		assert.Equal(t, 1, s.Len())
	})

	t.Run("records with differing ids but the same content are duplicates", func(t *testing.T) {
		s := newTestSourceStore(t)
		s.Merge([]research.SourceRecord{
			{ID: "srv-1", URL: "https://x.com/a", Title: "A", Excerpt: "abc"},
		})
		added := s.Merge([]research.SourceRecord{
			{ID: "srv-2", URL: "https://x.com/a", Title: "A", Excerpt: "abc"},
		})

		assert.Empty(t, added)
		assert.Equal(t, 1, s.Len())
	})

	t.Run("existing record wins over incoming duplicate", func(t *testing.T) {
		s := newTestSourceStore(t)
		s.Merge([]research.SourceRecord{
			{ID: "1", URL: "https://x.com/a", Title: "A", Excerpt: "abc"},
		})
		s.SetSelected("1", true)

		s.Merge([]research.SourceRecord{
			{ID: "1b", URL: "https://x.com/a", Title: "A", Excerpt: "abc", Selected: false},
		})

		got, ok := s.Get("1")
		require.True(t, ok)
		assert.True(t, got.Selected, "re-fetch must not clobber selection state")
	})

	t.Run("returns only the genuinely new records", func(t *testing.T) {
		s := newTestSourceStore(t)
		s.Merge([]research.SourceRecord{{URL: "https://x.com/a", Title: "A"}})

		added := s.Merge([]research.SourceRecord{
			{URL: "https://x.com/a", Title: "A"},
			{URL: "https://x.com/b", Title: "B"},
		})

		require.Len(t, added, 1)
		assert.Equal(t, "B", added[0].Title)
		assert.Equal(t, 2, s.Len())
	})

	t.Run("drops records without usable identity instead of failing", func(t *testing.T) {
		s := newTestSourceStore(t)
		added := s.Merge([]research.SourceRecord{
			{ID: "keyless"},
			{URL: "https://x.com/a", Title: "A"},
		})

		require.Len(t, added, 1)
		assert.Equal(t, 1, s.Len())
	})

	t.Run("assigns ids to records that arrive without one", func(t *testing.T) {
		s := newTestSourceStore(t)
		added := s.Merge([]research.SourceRecord{{URL: "https://x.com/a", Title: "A"}})

		require.Len(t, added, 1)
		assert.NotEmpty(t, added[0].ID)
	})
}

func TestSourceStore_Remove(t *testing.T) {
	t.Run("removes by id and frees the composite key", func(t *testing.T) {
		s := newTestSourceStore(t)
		s.Merge([]research.SourceRecord{{ID: "1", URL: "https://x.com/a", Title: "A"}})

		assert.True(t, s.Remove("1"))
		assert.Equal(t, 0, s.Len())

		// The key is free again, so the same content can re-enter the pool.
		added := s.Merge([]research.SourceRecord{{URL: "https://x.com/a", Title: "A"}})
		assert.Len(t, added, 1)
	})

	t.Run("removing an unknown id reports false", func(t *testing.T) {
		s := newTestSourceStore(t)
		assert.False(t, s.Remove("missing"))
	})
}

func TestSourceStore_ReplaceAll(t *testing.T) {
	t.Run("replaces the pool and dedupes the input", func(t *testing.T) {
		s := newTestSourceStore(t)
		s.Merge([]research.SourceRecord{{URL: "https://x.com/old", Title: "Old"}})

		s.ReplaceAll([]research.SourceRecord{
			{ID: "1", URL: "https://x.com/a", Title: "A"},
			{ID: "2", URL: "https://x.com/a", Title: "A"},
			{ID: "3", URL: "https://x.com/b", Title: "B"},
		})

		assert.Equal(t, 2, s.Len())
		_, ok := s.Get("1")
		assert.True(t, ok)
	})

	t.Run("nil input empties the pool", func(t *testing.T) {
		s := newTestSourceStore(t)
		s.Merge([]research.SourceRecord{{URL: "https://x.com/a", Title: "A"}})

		s.ReplaceAll(nil)
		assert.Equal(t, 0, s.Len())
	})
}

func TestSourceStore_Snapshot(t *testing.T) {
	s := newTestSourceStore(t)
	s.Merge([]research.SourceRecord{{ID: "1", URL: "https://x.com/a", Title: "A"}})

	snapshot := s.Snapshot()
	require.Len(t, snapshot, 1)

	snapshot[0].Title = "mutated"
	got, ok := s.Get("1")
	require.True(t, ok)
	assert.Equal(t, "A", got.Title, "snapshot must not alias live state")
}

func TestSourceStore_Flags(t *testing.T) {
	s := newTestSourceStore(t)
	s.Merge([]research.SourceRecord{{ID: "1", URL: "https://x.com/a", Title: "A"}})

	t.Run("selection toggles", func(t *testing.T) {
		assert.True(t, s.SetSelected("1", true))
		got, _ := s.Get("1")
		assert.True(t, got.Selected)

		assert.False(t, s.SetSelected("missing", true))
	})

	t.Run("unlock sticks", func(t *testing.T) {
		assert.True(t, s.MarkUnlocked("1"))
		got, _ := s.Get("1")
		assert.True(t, got.Unlocked)

		assert.False(t, s.MarkUnlocked("missing"))
	})
}
