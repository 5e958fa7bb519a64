package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/tunex/internal/cache"
	"github.com/desertthunder/tunex/internal/models"
	"github.com/desertthunder/tunex/internal/scoring"
	"github.com/desertthunder/tunex/internal/services"
	"github.com/desertthunder/tunex/internal/shared"
)

// Default coordinator budgets.
const (
	DefaultMaxParallel    = 6
	DefaultFastPath       = 3 * time.Second
	DefaultSlowPath       = 5 * time.Second
	DefaultPerSource      = 2 * time.Second
	DefaultStrongMatch    = 60
	defaultMaxParallelCap = 32
)

// Scorer ranks candidates against a query. [*scoring.Scorer] satisfies it.
type Scorer interface {
	Score(c models.CandidateResult, q models.SearchQuery) int
	IsGoodMatch(c models.CandidateResult, q models.SearchQuery) bool
}

// CoordinatorConfig holds the fan-out budgets.
type CoordinatorConfig struct {
	MaxParallel int           // sources dispatched per search
	FastPath    time.Duration // window for an early strong match
	SlowPath    time.Duration // total budget from dispatch
	PerSource   time.Duration // budget for one source across all variants
	StrongMatch int           // score that settles the search immediately
}

// DefaultCoordinatorConfig returns the stock budgets.
func DefaultCoordinatorConfig() CoordinatorConfig {
	return CoordinatorConfig{
		MaxParallel: DefaultMaxParallel,
		FastPath:    DefaultFastPath,
		SlowPath:    DefaultSlowPath,
		PerSource:   DefaultPerSource,
		StrongMatch: DefaultStrongMatch,
	}
}

// CoordinatorConfigFrom maps [shared.SearchConfig]; zero values keep the defaults.
func CoordinatorConfigFrom(c shared.SearchConfig) CoordinatorConfig {
	cfg := DefaultCoordinatorConfig()
	if c.MaxParallelSources > 0 {
		cfg.MaxParallel = min(c.MaxParallelSources, defaultMaxParallelCap)
	}
	if c.FastPathTimeout.Duration > 0 {
		cfg.FastPath = c.FastPathTimeout.Duration
	}
	if c.SlowPathTimeout.Duration > 0 {
		cfg.SlowPath = c.SlowPathTimeout.Duration
	}
	if c.PerSourceTimeout.Duration > 0 {
		cfg.PerSource = c.PerSourceTimeout.Duration
	}
	if c.StrongMatchThreshold > 0 {
		cfg.StrongMatch = c.StrongMatchThreshold
	}
	return cfg
}

// Coordinator fans one query out to every selected source and settles on the best candidate.
//
// A Coordinator holds no per-search state and is safe for concurrent use.
type Coordinator struct {
	client  services.SourceClient
	sources []models.SourceHandle
	scorer  Scorer
	cache   *cache.Cache
	cfg     CoordinatorConfig
	logger  *log.Logger
}

// CoordinatorOption configures a Coordinator.
type CoordinatorOption func(*Coordinator)

// WithScorer replaces the default scorer.
func WithScorer(s Scorer) CoordinatorOption {
	return func(c *Coordinator) {
		if s != nil {
			c.scorer = s
		}
	}
}

// WithSourceCache enables per-source memoisation under [cache.ScopedKey].
func WithSourceCache(rc *cache.Cache) CoordinatorOption {
	return func(c *Coordinator) { c.cache = rc }
}

// WithConfig sets the fan-out budgets.
func WithConfig(cfg CoordinatorConfig) CoordinatorOption {
	return func(c *Coordinator) { c.cfg = cfg }
}

// WithCoordinatorLogger sets the logger.
func WithCoordinatorLogger(l *log.Logger) CoordinatorOption {
	return func(c *Coordinator) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewCoordinator creates a coordinator over sources served by client.
func NewCoordinator(client services.SourceClient, sources []models.SourceHandle, opts ...CoordinatorOption) *Coordinator {
	c := &Coordinator{
		client:  client,
		sources: append([]models.SourceHandle(nil), sources...),
		scorer:  scoring.New(scoring.DefaultWeights()),
		cfg:     DefaultCoordinatorConfig(),
		logger:  shared.DiscardLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Sources returns the handles this coordinator would dispatch to, in dispatch order.
func (c *Coordinator) Sources() []models.SourceHandle {
	return services.SelectSources(c.sources, c.cfg.MaxParallel)
}

// Config returns the fan-out budgets.
func (c *Coordinator) Config() CoordinatorConfig {
	return c.cfg
}

func (c *Coordinator) clearCache() {
	if c.cache != nil {
		c.cache.Clear()
	}
}

func (c *Coordinator) compactCache() int {
	if c.cache == nil {
		return 0
	}
	return c.cache.Compact()
}

// Run dispatches q to every selected source and returns the winner.
//
// The first candidate at or above the strong-match threshold settles the search and cancels
// the remaining tasks. Otherwise Run collects outcomes until every task has reported or the
// slow-path budget, measured from dispatch, runs out. Tasks still running at that point are
// abandoned; their outcomes land in a buffered channel nobody reads.
func (c *Coordinator) Run(ctx context.Context, q models.SearchQuery, progress chan<- ProgressUpdate) (models.CandidateResult, bool) {
	selected := c.Sources()
	if len(selected) == 0 || len(q.Variants) == 0 {
		sendProgress(progress, settledUpdate(0, len(selected), models.CandidateResult{}, false))
		return models.CandidateResult{}, false
	}

	runCtx, cancel := context.WithTimeout(ctx, c.cfg.SlowPath)
	defer cancel()

	outcomes := make(chan models.SourceOutcome, len(selected))

	// selected is already capped at MaxParallel; every task starts at once.
	for _, src := range selected {
		go func() { outcomes <- c.query(runCtx, src, q) }()
	}
	sendProgress(progress, dispatchedUpdate(selected))
	sendProgress(progress, racingUpdate(len(selected)))

	fast := time.NewTimer(c.cfg.FastPath)
	defer fast.Stop()
	fastC := fast.C

	var collected []models.CandidateResult
	received := 0

racing:
	for received < len(selected) {
		select {
		case out := <-outcomes:
			received++
			c.logOutcome(out)
			sendProgress(progress, sourceDoneUpdate(received, len(selected), out))
			if !out.Found {
				continue
			}

			cand := out.Candidate.WithArrival(received)
			if cand.Score >= c.cfg.StrongMatch {
				cancel()
				c.logger.Debug("strong match", "source", cand.SourceID, "score", cand.Score)
				sendProgress(progress, settledUpdate(received, len(selected), cand, true))
				return cand, true
			}
			collected = append(collected, cand)
		case <-fastC:
			fastC = nil
			c.logger.Debug("fast path elapsed", "received", received, "total", len(selected))
			sendProgress(progress, fastPathUpdate(received, len(selected), c.cfg.FastPath))
		case <-runCtx.Done():
			c.logger.Debug("slow path elapsed", "received", received, "total", len(selected))
			break racing
		}
	}

	best, found := scoring.Best(collected)
	sendProgress(progress, settledUpdate(received, len(selected), best, found))
	return best, found
}

// query runs one source task: scoped cache, then each variant in order until one yields results.
func (c *Coordinator) query(ctx context.Context, src models.SourceHandle, q models.SearchQuery) (out models.SourceOutcome) {
	start := time.Now()
	out.Source = src
	defer func() { out.Elapsed = time.Since(start) }()

	scoped := cache.ScopedKey(src.ID, q.Normalized)
	if c.cache != nil {
		if hit, ok := c.cache.Get(scoped); ok {
			out.Candidate, out.Found = hit, true
			return out
		}
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.PerSource)
	defer cancel()

	out.Err = shared.ErrNoMatch
	for _, variant := range q.Variants {
		if err := ctx.Err(); err != nil {
			out.Err = shared.ClassifySourceError(err)
			return out
		}

		timeout := c.cfg.PerSource
		if deadline, ok := ctx.Deadline(); ok {
			timeout = time.Until(deadline)
		}

		raws, err := c.client.Query(ctx, src.ID, variant, timeout)
		if err != nil {
			out.Err = shared.ClassifySourceError(err)
			if errors.Is(out.Err, shared.ErrSourceTimeout) {
				return out
			}
			continue
		}
		if len(raws) == 0 {
			continue
		}

		best, err := c.rank(src, raws, q)
		if err != nil {
			out.Err = err
			return out
		}

		out.Candidate, out.Found, out.Err = best, true, nil
		if c.cache != nil {
			c.cache.Set(scoped, best)
		}
		return out
	}
	return out
}

// rank scores the well-formed raws that clear the relevance gate and returns the best.
func (c *Coordinator) rank(src models.SourceHandle, raws []models.RawResult, q models.SearchQuery) (models.CandidateResult, error) {
	var (
		ranked    []models.CandidateResult
		malformed int
	)
	for i, raw := range raws {
		cand := models.NewCandidate(src, raw)
		if cand.PayloadRef == "" || !scoring.IsAudio(cand.MIMEType) {
			malformed++
			continue
		}
		if !c.scorer.IsGoodMatch(cand, q) {
			continue
		}
		ranked = append(ranked, cand.WithScore(c.scorer.Score(cand, q)).WithArrival(i))
	}

	if best, ok := scoring.Best(ranked); ok {
		return best, nil
	}
	if malformed == len(raws) {
		return models.CandidateResult{}, fmt.Errorf("%w: %d results from %s", shared.ErrMalformedCandidate, malformed, src.ID)
	}
	return models.CandidateResult{}, shared.ErrNoMatch
}

func (c *Coordinator) logOutcome(out models.SourceOutcome) {
	if out.Found {
		c.logger.Debug("source answered",
			"source", out.Source.ID, "score", out.Candidate.Score, "elapsed", out.Elapsed)
		return
	}
	c.logger.Debug("source failed",
		"source", out.Source.ID, "kind", shared.ErrorKind(out.Err), "elapsed", out.Elapsed, "err", out.Err)
}
