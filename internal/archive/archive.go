// package archive keeps previously delivered candidates so repeat queries skip the providers
package archive

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/samber/lo"

	"github.com/desertthunder/tunex/internal/models"
	"github.com/desertthunder/tunex/internal/query"
	"github.com/desertthunder/tunex/internal/scoring"
	"github.com/desertthunder/tunex/internal/shared"
)

const (
	DefaultTTL      = 24 * time.Hour
	DefaultCapacity = 1000
	DefaultMinScore = 40
)

// Ranker scores archived candidates against a query. [*scoring.Scorer] satisfies it.
type Ranker interface {
	Score(c models.CandidateResult, q models.SearchQuery) int
	IsGoodMatch(c models.CandidateResult, q models.SearchQuery) bool
}

// Persister mirrors the archive to durable storage.
type Persister interface {
	Save(entry models.ArchiveEntry) error
	LoadSince(cutoff time.Time) ([]models.ArchiveEntry, error)
	// Prune deletes entries inserted at or before cutoff and reports how many went.
	Prune(cutoff time.Time) (int, error)
	// Remove deletes the given entries, matched on performer and title keys.
	Remove(entries []models.ArchiveEntry) error
	Clear() error
}

type entryKey struct {
	performer string
	title     string
}

// Store is a bounded, TTL-limited archive of delivered candidates keyed by their own
// performer and title. Safe for concurrent use.
type Store struct {
	mu       sync.Mutex
	entries  map[entryKey]models.ArchiveEntry
	seq      int
	ttl      time.Duration
	capacity int
	minScore int

	ranker    Ranker
	persister Persister
	logger    *log.Logger
	now       func() time.Time
}

// Option configures a Store.
type Option func(*Store)

func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

func WithCapacity(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.capacity = n
		}
	}
}

// WithMinScore sets the relevance floor a lookup hit must clear.
func WithMinScore(n int) Option {
	return func(s *Store) { s.minScore = n }
}

func WithRanker(r Ranker) Option {
	return func(s *Store) { s.ranker = r }
}

// WithPersister mirrors every Put to p and lets [Store.Load] warm the store from it.
func WithPersister(p Persister) Option {
	return func(s *Store) { s.persister = p }
}

func WithLogger(l *log.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithClock replaces [time.Now], for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New creates an in-memory Store with default limits and the default scorer.
func New(opts ...Option) *Store {
	s := &Store{
		entries:  make(map[entryKey]models.ArchiveEntry),
		ttl:      DefaultTTL,
		capacity: DefaultCapacity,
		minScore: DefaultMinScore,
		ranker:   scoring.New(scoring.DefaultWeights()),
		logger:   shared.DiscardLogger(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Put archives a delivered candidate. Candidates without metadata or payload are ignored.
// A later Put for the same performer and title replaces the earlier one.
func (s *Store) Put(c models.CandidateResult) {
	if !c.HasMetadata() || c.PayloadRef == "" {
		return
	}

	pk, tk := query.Key(c.Performer, c.Title)
	key := entryKey{performer: pk, title: tk}

	var evicted []models.ArchiveEntry
	s.mu.Lock()
	if _, exists := s.entries[key]; !exists && len(s.entries) >= s.capacity {
		evicted = s.evictLocked()
	}
	s.seq++
	entry := models.ArchiveEntry{
		PerformerKey: pk,
		TitleKey:     tk,
		Candidate:    c,
		InsertedAt:   s.now(),
		TTL:          s.ttl,
		Seq:          s.seq,
	}
	s.entries[key] = entry
	s.mu.Unlock()

	if s.persister == nil {
		return
	}
	if len(evicted) > 0 {
		if err := s.persister.Remove(evicted); err != nil {
			s.logger.Warn("archive eviction not persisted", "entries", len(evicted), "err", err)
		}
	}
	if err := s.persister.Save(entry); err != nil {
		s.logger.Warn("archive persist failed", "performer", pk, "title", tk, "err", err)
	}
}

// Lookup returns the best archived candidate for q.
//
// Only entries whose keys share at least half (and at least one) of the query's
// significant words are scored. A hit must pass the relevance gate and reach the
// minimum score; ties follow [scoring.Less] with insertion order as arrival.
func (s *Store) Lookup(q models.SearchQuery) (models.CandidateResult, bool) {
	important := query.SignificantWords(q.Normalized)
	if len(important) == 0 {
		return models.CandidateResult{}, false
	}
	need := max((len(important)+1)/2, 1)

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var hits []models.CandidateResult
	for key, entry := range s.entries {
		if entry.Expired(now) {
			delete(s.entries, key)
			continue
		}

		words := query.Words(key.performer + " " + key.title)
		if lo.CountBy(important, func(w string) bool { return lo.Contains(words, w) }) < need {
			continue
		}

		c := entry.Candidate
		if !s.ranker.IsGoodMatch(c, q) {
			continue
		}
		score := s.ranker.Score(c, q)
		if score < s.minScore {
			continue
		}
		hits = append(hits, c.WithScore(score).WithArrival(entry.Seq))
	}

	return scoring.Best(hits)
}

// Load prunes expired rows from the persister, then warms the store with the rest.
// Without a persister it does nothing.
func (s *Store) Load(ctx context.Context) error {
	if s.persister == nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	cutoff := s.now().Add(-s.ttl)
	if n, err := s.persister.Prune(cutoff); err != nil {
		s.logger.Warn("archive prune failed", "err", err)
	} else if n > 0 {
		s.logger.Debug("archive pruned", "rows", n)
	}

	rows, err := s.persister.LoadSince(cutoff)
	if err != nil {
		return err
	}

	slices.SortFunc(rows, func(a, b models.ArchiveEntry) int { return a.InsertedAt.Compare(b.InsertedAt) })
	if len(rows) > s.capacity {
		rows = rows[len(rows)-s.capacity:]
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, row := range rows {
		row.TTL = s.ttl
		s.entries[entryKey{performer: row.PerformerKey, title: row.TitleKey}] = row
		s.seq = max(s.seq, row.Seq)
	}
	s.logger.Debug("archive loaded", "entries", len(rows))
	return nil
}

// Clear empties the store and its persister.
func (s *Store) Clear() error {
	s.mu.Lock()
	clear(s.entries)
	s.mu.Unlock()

	if s.persister != nil {
		return s.persister.Clear()
	}
	return nil
}

// Len reports the number of stored entries, expired ones included until they are read or compacted.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Compact drops expired entries, prunes them from the persister and returns how many
// in-memory entries were dropped. A failed prune is logged and retried on the next call.
func (s *Store) Compact() int {
	s.mu.Lock()
	now := s.now()
	n := 0
	for key, entry := range s.entries {
		if entry.Expired(now) {
			delete(s.entries, key)
			n++
		}
	}
	s.mu.Unlock()

	if _, err := s.Prune(); err != nil {
		s.logger.Warn("archive prune failed", "err", err)
	}
	return n
}

// Prune deletes persisted entries older than the TTL and returns how many went.
func (s *Store) Prune() (int, error) {
	if s.persister == nil {
		return 0, nil
	}
	return s.persister.Prune(s.now().Add(-s.ttl))
}

// Entries returns the live entries, most recent first.
func (s *Store) Entries() []models.ArchiveEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	out := lo.Filter(lo.Values(s.entries), func(e models.ArchiveEntry, _ int) bool { return !e.Expired(now) })
	slices.SortFunc(out, func(a, b models.ArchiveEntry) int { return b.Seq - a.Seq })
	return out
}

// evictLocked drops the oldest tenth of the entries, at least one, and returns them.
func (s *Store) evictLocked() []models.ArchiveEntry {
	entries := lo.Values(s.entries)
	slices.SortFunc(entries, func(a, b models.ArchiveEntry) int {
		if n := a.InsertedAt.Compare(b.InsertedAt); n != 0 {
			return n
		}
		return a.Seq - b.Seq
	})
	evicted := entries[:max(len(entries)/10, 1)]
	for _, e := range evicted {
		delete(s.entries, entryKey{performer: e.PerformerKey, title: e.TitleKey})
	}
	return evicted
}
