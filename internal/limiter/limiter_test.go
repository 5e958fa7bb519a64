package limiter

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	tu "github.com/desertthunder/tunex/internal/testing"
)

func TestCooldown(t *testing.T) {
	t.Run("second request inside the period is refused", func(t *testing.T) {
		clock := tu.NewManualClock()
		c := New(5*time.Second, WithClock(clock.Now))

		ok, _ := c.Allow("alice")
		assert.True(t, ok)

		clock.Advance(2 * time.Second)
		ok, wait := c.Allow("alice")
		assert.False(t, ok)
		assert.InDelta(t, float64(3*time.Second), float64(wait), float64(10*time.Millisecond))

		clock.Advance(3*time.Second + 10*time.Millisecond)
		ok, _ = c.Allow("alice")
		assert.True(t, ok, "allowed once the cool-down has passed")
	})

	t.Run("refused requests do not extend the cool-down", func(t *testing.T) {
		clock := tu.NewManualClock()
		c := New(5*time.Second, WithClock(clock.Now))

		c.Allow("alice")
		for range 3 {
			clock.Advance(time.Second)
			ok, _ := c.Allow("alice")
			assert.False(t, ok)
		}
		clock.Advance(2*time.Second + 10*time.Millisecond)
		ok, _ := c.Allow("alice")
		assert.True(t, ok)
	})

	t.Run("keys are independent", func(t *testing.T) {
		c := New(time.Minute)

		ok, _ := c.Allow("alice")
		assert.True(t, ok)
		ok, _ = c.Allow("bob")
		assert.True(t, ok)
		ok, _ = c.Allow("alice")
		assert.False(t, ok)
	})

	t.Run("zero period disables limiting", func(t *testing.T) {
		c := New(0)
		for range 5 {
			ok, wait := c.Allow("alice")
			assert.True(t, ok)
			assert.Zero(t, wait)
		}
		assert.Zero(t, c.Len())
	})

	t.Run("idle keys are pruned", func(t *testing.T) {
		clock := tu.NewManualClock()
		c := New(time.Second, WithClock(clock.Now))

		c.Allow("alice")
		c.Allow("bob")
		assert.Equal(t, 2, c.Len())

		clock.Advance(pruneAfter * time.Second)
		c.Allow("carol")
		assert.Equal(t, 1, c.Len())

		c.Reset()
		assert.Zero(t, c.Len())
	})

	t.Run("concurrent callers get one slot", func(t *testing.T) {
		c := New(time.Minute)

		var (
			wg      sync.WaitGroup
			mu      sync.Mutex
			allowed int
		)
		for range 20 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if ok, _ := c.Allow("alice"); ok {
					mu.Lock()
					allowed++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, 1, allowed)
	})
}
