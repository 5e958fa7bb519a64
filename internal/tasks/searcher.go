package tasks

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/singleflight"

	"github.com/desertthunder/tunex/internal/archive"
	"github.com/desertthunder/tunex/internal/cache"
	"github.com/desertthunder/tunex/internal/models"
	"github.com/desertthunder/tunex/internal/query"
	"github.com/desertthunder/tunex/internal/scoring"
	"github.com/desertthunder/tunex/internal/services"
	"github.com/desertthunder/tunex/internal/shared"
)

// progressRelaySize buffers a shared search's updates on their way to its watchers.
const progressRelaySize = 32

// Origin names the tier that answered a search.
type Origin string

const (
	OriginNone    Origin = "none"
	OriginArchive Origin = "archive"
	OriginCache   Origin = "cache"
	OriginSources Origin = "sources"
)

// Result is the detailed outcome of one search.
type Result struct {
	Query     models.SearchQuery     `json:"-"`
	Candidate models.CandidateResult `json:"candidate"`
	Found     bool                   `json:"found"`
	Origin    Origin                 `json:"origin"`
	Elapsed   time.Duration          `json:"elapsed"`
}

// Searcher is the public search entry point: archive, then cache, then fan-out,
// with write-back of whatever the sources deliver.
type Searcher struct {
	normalizer  *query.Normalizer
	coordinator *Coordinator
	cache       *cache.Cache
	archive     *archive.Store
	lockMode    string
	sem         chan struct{}
	flight      singleflight.Group
	logger      *log.Logger

	mu       sync.Mutex
	watchers map[string][]chan<- ProgressUpdate
}

// SearcherOption configures a Searcher.
type SearcherOption func(*Searcher)

// WithCache sets the query cache. Without one a disabled cache is used.
func WithCache(c *cache.Cache) SearcherOption {
	return func(s *Searcher) {
		if c != nil {
			s.cache = c
		}
	}
}

// WithArchive sets the archive consulted before the cache. A nil store skips the archive.
func WithArchive(a *archive.Store) SearcherOption {
	return func(s *Searcher) { s.archive = a }
}

// WithLockMode selects [shared.LockModeGlobal] or [shared.LockModePerQuery].
func WithLockMode(mode string) SearcherOption {
	return func(s *Searcher) { s.lockMode = mode }
}

// WithNormalizer replaces the default memoising normalizer.
func WithNormalizer(n *query.Normalizer) SearcherOption {
	return func(s *Searcher) {
		if n != nil {
			s.normalizer = n
		}
	}
}

// WithSearcherLogger sets the logger.
func WithSearcherLogger(l *log.Logger) SearcherOption {
	return func(s *Searcher) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewSearcher creates a Searcher around coordinator.
func NewSearcher(coordinator *Coordinator, opts ...SearcherOption) *Searcher {
	s := &Searcher{
		normalizer:  query.NewNormalizer(query.DefaultMemoSize),
		coordinator: coordinator,
		cache:       cache.New(cache.WithEnabled(false)),
		lockMode:    shared.LockModeGlobal,
		sem:         make(chan struct{}, 1),
		logger:      shared.DiscardLogger(),
		watchers:    make(map[string][]chan<- ProgressUpdate),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewSearcherFromConfig wires a Searcher from configuration.
//
// Query results and per-source answers live in two caches with the same settings, so
// [Searcher.CacheStats] counts queries only. store may be nil.
func NewSearcherFromConfig(cfg *shared.Config, client services.SourceClient, handles []models.SourceHandle, store *archive.Store, logger *log.Logger) *Searcher {
	newCache := func() *cache.Cache {
		return cache.New(
			cache.WithEnabled(cfg.Cache.Enabled),
			cache.WithTTL(cfg.Cache.TTL.Duration),
			cache.WithCapacity(cfg.Cache.Capacity),
		)
	}
	rc := newCache()

	coordinator := NewCoordinator(client, handles,
		WithConfig(CoordinatorConfigFrom(cfg.Search)),
		WithScorer(scoring.New(scoring.WeightsFromConfig(cfg.Scoring))),
		WithSourceCache(newCache()),
		WithCoordinatorLogger(logger),
	)

	return NewSearcher(coordinator,
		WithCache(rc),
		WithArchive(store),
		WithLockMode(cfg.Search.LockMode),
		WithSearcherLogger(logger),
	)
}

// Search returns the payload ref of the best match for raw.
// Every failure, including an empty query, reads as not found.
func (s *Searcher) Search(ctx context.Context, raw string) (string, bool) {
	res, err := s.SearchDetailed(ctx, raw, nil)
	if err != nil || !res.Found {
		return "", false
	}
	return res.Candidate.PayloadRef, true
}

// SearchDetailed runs a search and reports where the answer came from.
//
// Errors are limited to blank input and ctx ending while waiting for the search lock.
// Source failures never surface here; they only make Found false.
//
// In per-query mode identical queries share one search. The shared search does not
// inherit any caller's cancellation; the coordinator's slow-path budget bounds it.
// Each caller still returns early when its own ctx ends, and every waiting caller
// receives the shared search's progress.
func (s *Searcher) SearchDetailed(ctx context.Context, raw string, progress chan<- ProgressUpdate) (Result, error) {
	if strings.TrimSpace(raw) == "" {
		return Result{}, fmt.Errorf("%w: empty query", shared.ErrInvalidInput)
	}
	q := s.normalizer.Normalize(raw)

	if s.lockMode == shared.LockModePerQuery {
		key := q.Normalized
		if progress != nil {
			defer s.watch(key, progress)()
		}

		ch := s.flight.DoChan(key, func() (any, error) {
			return s.sharedSearch(context.WithoutCancel(ctx), q), nil
		})
		select {
		case r := <-ch:
			res := r.Val.(Result)
			res.Query = q
			return res, nil
		case <-ctx.Done():
			return Result{Query: q}, ctx.Err()
		}
	}

	select {
	case s.sem <- struct{}{}:
	case <-ctx.Done():
		return Result{Query: q}, ctx.Err()
	}
	defer func() { <-s.sem }()

	return s.search(ctx, q, progress), nil
}

// sharedSearch runs one per-query search and relays its progress to every caller
// watching the query at the time of each update.
func (s *Searcher) sharedSearch(ctx context.Context, q models.SearchQuery) Result {
	relay := make(chan ProgressUpdate, progressRelaySize)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range relay {
			s.broadcast(q.Normalized, update)
		}
	}()

	res := s.search(ctx, q, relay)
	// search has returned, so nothing sends on relay any more.
	close(relay)
	<-done
	return res
}

// watch registers progress for updates on key and returns the func that unregisters it.
func (s *Searcher) watch(key string, progress chan<- ProgressUpdate) func() {
	s.mu.Lock()
	s.watchers[key] = append(s.watchers[key], progress)
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		rest := slices.DeleteFunc(s.watchers[key], func(w chan<- ProgressUpdate) bool { return w == progress })
		if len(rest) == 0 {
			delete(s.watchers, key)
			return
		}
		s.watchers[key] = rest
	}
}

func (s *Searcher) broadcast(key string, update ProgressUpdate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, w := range s.watchers[key] {
		sendProgress(w, update)
	}
}

func (s *Searcher) search(ctx context.Context, q models.SearchQuery, progress chan<- ProgressUpdate) (res Result) {
	start := time.Now()
	logger := s.logger.With("request_id", shared.GenerateID(), "query", q.Normalized)
	res = Result{Query: q, Origin: OriginNone}

	defer func() {
		res.Elapsed = time.Since(start)
		logger.Info("search settled", "found", res.Found, "origin", res.Origin, "elapsed", res.Elapsed)
	}()

	if s.archive != nil {
		if c, ok := s.archive.Lookup(q); ok {
			s.cache.Set(q.Normalized, c)
			res.Candidate, res.Found, res.Origin = c, true, OriginArchive
			sendProgress(progress, settledUpdate(0, 0, c, true))
			return res
		}
	}

	if c, ok := s.cache.Get(q.Normalized); ok {
		res.Candidate, res.Found, res.Origin = c, true, OriginCache
		sendProgress(progress, settledUpdate(0, 0, c, true))
		return res
	}

	c, ok := s.coordinator.Run(ctx, q, progress)
	if !ok {
		logger.Debug("no candidate", "err", shared.ErrNoMatch)
		return res
	}

	s.cache.Set(q.Normalized, c)
	if s.archive != nil {
		s.archive.Put(c)
	}
	res.Candidate, res.Found, res.Origin = c, true, OriginSources
	return res
}

// Sources returns the handles searches are dispatched to.
func (s *Searcher) Sources() []models.SourceHandle {
	return s.coordinator.Sources()
}

// ClearCache drops every cached query result and per-source answer.
func (s *Searcher) ClearCache() {
	s.cache.Clear()
	s.coordinator.clearCache()
	s.logger.Info("cache cleared")
}

// ClearArchive drops every archived result, including persisted rows.
func (s *Searcher) ClearArchive() error {
	if s.archive == nil {
		return nil
	}
	if err := s.archive.Clear(); err != nil {
		return fmt.Errorf("failed to clear archive: %w", err)
	}
	s.logger.Info("archive cleared")
	return nil
}

// CacheStats reports the query cache size and settings.
func (s *Searcher) CacheStats() cache.Stats {
	return s.cache.Stats()
}

// Compact removes expired entries from the caches and the archive, persisted rows
// included, and reports how many in-memory entries went.
func (s *Searcher) Compact() (cached, archived int) {
	cached = s.cache.Compact() + s.coordinator.compactCache()
	if s.archive != nil {
		archived = s.archive.Compact()
	}
	return cached, archived
}

// CompactEvery calls [Searcher.Compact] every interval until ctx is done.
func (s *Searcher) CompactEvery(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cached, archived := s.Compact()
			s.logger.Debug("compacted", "cache", cached, "archive", archived)
		}
	}
}

// Archive exposes the archive store, or nil.
func (s *Searcher) Archive() *archive.Store {
	return s.archive
}
