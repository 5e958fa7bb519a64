// package limiter enforces a per-user cool-down between searches
package limiter

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	DefaultCooldown = 5 * time.Second
	// idle keys older than this many cool-downs are pruned
	pruneAfter = 10
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Cooldown allows one request per key per cool-down period.
//
// Each key gets its own [rate.Limiter] with a burst of one. Keys idle for a while are
// pruned on access, so the map stays bounded by the number of active users.
type Cooldown struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	period   time.Duration
	now      func() time.Time
	lastGC   time.Time
}

// Option configures a Cooldown.
type Option func(*Cooldown)

// WithClock replaces [time.Now], for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cooldown) { c.now = now }
}

// New creates a Cooldown. A non-positive period disables limiting.
func New(period time.Duration, opts ...Option) *Cooldown {
	c := &Cooldown{
		visitors: make(map[string]*visitor),
		period:   period,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.lastGC = c.now()
	return c
}

// Allow reports whether key may proceed now, and if not, how long it must wait.
func (c *Cooldown) Allow(key string) (bool, time.Duration) {
	if c.period <= 0 {
		return true, 0
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.pruneLocked(now)

	v, ok := c.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rate.Every(c.period), 1)}
		c.visitors[key] = v
	}
	v.lastSeen = now

	if v.limiter.AllowN(now, 1) {
		return true, 0
	}
	missing := 1 - v.limiter.TokensAt(now)
	return false, time.Duration(missing * float64(c.period))
}

// Len reports how many keys are tracked.
func (c *Cooldown) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.visitors)
}

// Reset forgets every key.
func (c *Cooldown) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.visitors)
}

func (c *Cooldown) pruneLocked(now time.Time) {
	idle := c.period * pruneAfter
	if now.Sub(c.lastGC) < idle {
		return
	}
	for key, v := range c.visitors {
		if now.Sub(v.lastSeen) >= idle {
			delete(c.visitors, key)
		}
	}
	c.lastGC = now
}
