package archive

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/desertthunder/tunex/internal/models"
	"github.com/desertthunder/tunex/internal/query"
	tu "github.com/desertthunder/tunex/internal/testing"
)

type memoryPersister struct {
	saved   []models.ArchiveEntry
	failing bool
	cleared bool
}

func (m *memoryPersister) Save(e models.ArchiveEntry) error {
	if m.failing {
		return errors.New("disk full")
	}
	m.saved = append(m.saved, e)
	return nil
}

func (m *memoryPersister) LoadSince(cutoff time.Time) ([]models.ArchiveEntry, error) {
	var out []models.ArchiveEntry
	for _, e := range m.saved {
		if e.InsertedAt.After(cutoff) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memoryPersister) Prune(cutoff time.Time) (int, error) {
	if m.failing {
		return 0, errors.New("disk full")
	}
	before := len(m.saved)
	m.saved = slices.DeleteFunc(m.saved, func(e models.ArchiveEntry) bool { return !e.InsertedAt.After(cutoff) })
	return before - len(m.saved), nil
}

func (m *memoryPersister) Remove(entries []models.ArchiveEntry) error {
	if m.failing {
		return errors.New("disk full")
	}
	m.saved = slices.DeleteFunc(m.saved, func(e models.ArchiveEntry) bool {
		return slices.ContainsFunc(entries, func(r models.ArchiveEntry) bool {
			return r.PerformerKey == e.PerformerKey && r.TitleKey == e.TitleKey
		})
	})
	return nil
}

func (m *memoryPersister) refs() []string {
	out := make([]string, 0, len(m.saved))
	for _, e := range m.saved {
		out = append(out, e.Candidate.PayloadRef)
	}
	return out
}

func (m *memoryPersister) Clear() error {
	m.cleared = true
	m.saved = nil
	return nil
}

func delivered(title, performer, ref string) models.CandidateResult {
	return models.CandidateResult{
		SourceID:   "a",
		Title:      title,
		Performer:  performer,
		SizeBytes:  4_000_000,
		MIMEType:   "audio/mpeg",
		PayloadRef: ref,
		Score:      120,
	}
}

func TestStore(t *testing.T) {
	t.Run("Lookup hit", func(t *testing.T) {
		s := New()
		s.Put(delivered("Believer", "Imagine Dragons", "believer"))
		s.Put(delivered("Shape of You", "Ed Sheeran", "shape"))

		got, ok := s.Lookup(query.Normalize("Imagine Dragons - Believer"))
		require.True(t, ok)
		assert.Equal(t, "believer", got.PayloadRef)
		assert.GreaterOrEqual(t, got.Score, DefaultMinScore)
	})

	t.Run("Lookup miss without overlap", func(t *testing.T) {
		s := New()
		s.Put(delivered("Believer", "Imagine Dragons", "believer"))

		_, ok := s.Lookup(query.Normalize("queen bohemian rhapsody"))
		assert.False(t, ok)
	})

	t.Run("Lookup respects minimum score", func(t *testing.T) {
		s := New(WithMinScore(1000))
		s.Put(delivered("Believer", "Imagine Dragons", "believer"))

		_, ok := s.Lookup(query.Normalize("imagine dragons believer"))
		assert.False(t, ok)
	})

	t.Run("Lookup ignores queries without significant words", func(t *testing.T) {
		s := New()
		s.Put(delivered("One", "U2", "one"))
		_, ok := s.Lookup(query.Normalize("u2"))
		assert.False(t, ok)
	})

	t.Run("best of several hits", func(t *testing.T) {
		s := New()
		s.Put(delivered("Believer (Live)", "Imagine Dragons", "live"))
		s.Put(delivered("Believer", "Imagine Dragons", "studio"))

		got, ok := s.Lookup(query.Normalize("imagine dragons believer"))
		require.True(t, ok)
		assert.Equal(t, "studio", got.PayloadRef)
	})

	t.Run("TTL", func(t *testing.T) {
		clock := tu.NewManualClock()
		s := New(WithClock(clock.Now))
		s.Put(delivered("Believer", "Imagine Dragons", "believer"))

		clock.Advance(DefaultTTL - time.Second)
		_, ok := s.Lookup(query.Normalize("imagine dragons believer"))
		assert.True(t, ok)

		clock.Advance(2 * time.Second)
		_, ok = s.Lookup(query.Normalize("imagine dragons believer"))
		assert.False(t, ok)
		assert.Equal(t, 0, s.Len())
	})

	t.Run("ignores candidates without metadata or payload", func(t *testing.T) {
		s := New()
		s.Put(models.CandidateResult{PayloadRef: "x"})
		s.Put(delivered("Believer", "Imagine Dragons", ""))
		assert.Equal(t, 0, s.Len())
	})

	t.Run("same track replaces", func(t *testing.T) {
		s := New()
		s.Put(delivered("Believer", "Imagine Dragons", "old"))
		s.Put(delivered("BELIEVER", "imagine dragons", "new"))

		assert.Equal(t, 1, s.Len())
		got, ok := s.Lookup(query.Normalize("imagine dragons believer"))
		require.True(t, ok)
		assert.Equal(t, "new", got.PayloadRef)
	})

	t.Run("evicts oldest tenth when full", func(t *testing.T) {
		clock := tu.NewManualClock()
		s := New(WithCapacity(10), WithClock(clock.Now))
		for i := range 10 {
			s.Put(delivered(fmt.Sprintf("Track %d", i), "Band", fmt.Sprint(i)))
			clock.Advance(time.Minute)
		}

		s.Put(delivered("Track 10", "Band", "10"))

		assert.Equal(t, 10, s.Len())
		refs := make(map[string]bool)
		for _, e := range s.Entries() {
			refs[e.Candidate.PayloadRef] = true
		}
		assert.False(t, refs["0"])
		assert.True(t, refs["10"])
	})

	t.Run("Compact and Clear", func(t *testing.T) {
		clock := tu.NewManualClock()
		p := &memoryPersister{}
		s := New(WithClock(clock.Now), WithTTL(time.Hour), WithPersister(p))
		s.Put(delivered("Old", "Band", "old"))
		clock.Advance(2 * time.Hour)
		s.Put(delivered("New", "Band", "new"))

		assert.Equal(t, 1, s.Compact())
		assert.Equal(t, []string{"new"}, p.refs(), "compaction prunes the persister too")

		require.NoError(t, s.Clear())
		assert.Equal(t, 0, s.Len())
		assert.True(t, p.cleared)
	})
}

func TestStorePersistence(t *testing.T) {
	t.Run("Put mirrors and Load warms", func(t *testing.T) {
		clock := tu.NewManualClock()
		p := &memoryPersister{}

		first := New(WithClock(clock.Now), WithPersister(p))
		first.Put(delivered("Believer", "Imagine Dragons", "believer"))
		require.Len(t, p.saved, 1)

		clock.Advance(time.Hour)
		second := New(WithClock(clock.Now), WithPersister(p))
		require.NoError(t, second.Load(context.Background()))

		got, ok := second.Lookup(query.Normalize("imagine dragons believer"))
		require.True(t, ok)
		assert.Equal(t, "believer", got.PayloadRef)

		second.Put(delivered("Thunder", "Imagine Dragons", "thunder"))
		assert.Greater(t, p.saved[1].Seq, p.saved[0].Seq)
	})

	t.Run("Load skips expired rows", func(t *testing.T) {
		clock := tu.NewManualClock()
		p := &memoryPersister{}
		New(WithClock(clock.Now), WithPersister(p)).Put(delivered("Believer", "Imagine Dragons", "believer"))

		clock.Advance(25 * time.Hour)
		s := New(WithClock(clock.Now), WithPersister(p))
		require.NoError(t, s.Load(context.Background()))
		assert.Equal(t, 0, s.Len())
	})

	t.Run("eviction removes persisted rows", func(t *testing.T) {
		clock := tu.NewManualClock()
		p := &memoryPersister{}
		s := New(WithCapacity(2), WithClock(clock.Now), WithPersister(p))
		for _, title := range []string{"One", "Two", "Three"} {
			s.Put(delivered(title, "Band", title))
			clock.Advance(time.Minute)
		}

		assert.Equal(t, []string{"Two", "Three"}, p.refs())
	})

	t.Run("Load prunes expired rows", func(t *testing.T) {
		clock := tu.NewManualClock()
		p := &memoryPersister{}
		New(WithClock(clock.Now), WithPersister(p)).Put(delivered("Believer", "Imagine Dragons", "believer"))
		clock.Advance(23 * time.Hour)
		New(WithClock(clock.Now), WithPersister(p)).Put(delivered("Thunder", "Imagine Dragons", "thunder"))

		clock.Advance(2 * time.Hour)
		s := New(WithClock(clock.Now), WithPersister(p))
		require.NoError(t, s.Load(context.Background()))
		assert.Equal(t, 1, s.Len())
		assert.Equal(t, []string{"thunder"}, p.refs())

		n, err := s.Prune()
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("persist failure is not fatal", func(t *testing.T) {
		s := New(WithPersister(&memoryPersister{failing: true}))
		s.Put(delivered("Believer", "Imagine Dragons", "believer"))
		assert.Equal(t, 1, s.Len())
		assert.Equal(t, 0, s.Compact())

		_, err := s.Prune()
		assert.Error(t, err)
	})

	t.Run("Load without persister", func(t *testing.T) {
		assert.NoError(t, New().Load(context.Background()))
	})

	t.Run("Load honours cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		assert.ErrorIs(t, New(WithPersister(&memoryPersister{})).Load(ctx), context.Canceled)
	})
}
