package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"fintrack/internal/log"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) now() time.Time          { return f.t }
func (f *fakeClock) advance(d time.Duration) { f.t = f.t.Add(d) }

func TestLRUCapacityEvictsOldest(t *testing.T) {
	var evicted []string
	c := NewLRUCache[int](2, time.Hour, WithOnEvict[int](func(key string, _ int) {
		evicted = append(evicted, key)
	}))

	c.Set("a", 1)
	c.Set("b", 2)
	_, _ = c.Get("a") // a is now most recent
	c.Set("c", 3)

	_, ok := c.Get("b")
	assert.False(t, ok)
	assert.Equal(t, []string{"b"}, evicted)
	assert.Equal(t, 2, c.Size())
}

func TestLRUExpiryAndSlidingTTL(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	var evicted []string
	c := NewLRUCache[string](10, time.Minute,
		WithClock[string](clock.now),
		WithSlidingTTL[string](),
		WithOnEvict[string](func(key string, _ string) { evicted = append(evicted, key) }))

	c.Set("s1", "x")
	c.Set("s2", "y")

	clock.advance(45 * time.Second)
	_, ok := c.Get("s1") // extends s1 to 1m45s
	assert.True(t, ok)

	clock.advance(30 * time.Second)
	assert.Equal(t, 1, c.CleanExpired())
	assert.Equal(t, []string{"s2"}, evicted)

	_, ok = c.Get("s1")
	assert.True(t, ok)
}

func TestLRUDeleteCallsEvict(t *testing.T) {
	var got string
	c := NewLRUCache[int](10, time.Hour, WithOnEvict[int](func(key string, _ int) { got = key }))
	c.Set("k", 1)
	c.Delete("k")
	c.Delete("missing")
	assert.Equal(t, "k", got)
	assert.Zero(t, c.Size())
}

func TestLRUClearEvictsEverything(t *testing.T) {
	var evicted []string
	c := NewLRUCache[int](10, time.Hour, WithOnEvict[int](func(key string, _ int) {
		evicted = append(evicted, key)
	}))
	c.Set("a", 1)
	c.Set("b", 2)

	assert.Equal(t, 2, c.Clear())
	assert.ElementsMatch(t, []string{"a", "b"}, evicted)
	assert.Zero(t, c.Size())

	c.Set("c", 3)
	v, ok := c.Get("c")
	assert.True(t, ok)
	assert.Equal(t, 3, v)
}

func TestManagerSweep(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	c := NewLRUCache[int](10, time.Second, WithClock[int](clock.now))
	c.Set("a", 1)

	m := NewManager(log.Discard())
	m.Register(c)
	clock.advance(2 * time.Second)
	assert.Equal(t, 1, m.Sweep())

	m.StartCleanup(time.Hour)
	m.Stop()
	m.Stop()
}
