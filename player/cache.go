package player

import (
	"container/list"
	"errors"
	"fmt"
)

// ErrExhausted is returned when a track does not fit in the cache even after
// evicting everything else.
var ErrExhausted = errors.New("track cache exhausted")

type (
	// CacheKey identifies a rendered track: the voice, a hash of everything
	// the rendering depends on, and the tempo and rate it was rendered at.
	CacheKey struct {
		Voice      string
		Hash       uint64
		BPM        float64
		SampleRate float64
	}

	// Cache keeps rendered tracks, bounded by their total length in samples.
	// The least recently used tracks are evicted first. Evicting drops the
	// cache's reference only; a grid still playing the track keeps it alive.
	Cache struct {
		capacity int
		used     int
		order    *list.List // front is most recently used
		items    map[CacheKey]*list.Element
	}

	// CachedTrack is a rendered voice and the pan its run program set.
	CachedTrack struct {
		Floats []float32
		Pan    float32
	}

	cacheEntry struct {
		key CacheKey
		CachedTrack
	}
)

func NewCache(capacity int) *Cache {
	return &Cache{capacity: capacity, order: list.New(), items: map[CacheKey]*list.Element{}}
}

// Get returns a cached track and marks it used.
func (c *Cache) Get(k CacheKey) (*CachedTrack, bool) {
	e, ok := c.items[k]
	if !ok {
		return nil, false
	}
	c.order.MoveToFront(e)
	return &e.Value.(*cacheEntry).CachedTrack, true
}

// Alloc reserves a track with a zeroed buffer of n samples for a key,
// evicting the least recently used tracks until it fits.
func (c *Cache) Alloc(k CacheKey, n int) (*CachedTrack, error) {
	if e, ok := c.items[k]; ok {
		c.remove(e)
	}
	if n > c.capacity {
		return nil, fmt.Errorf("%d samples for %q, capacity %d: %w", n, k.Voice, c.capacity, ErrExhausted)
	}
	for c.used+n > c.capacity {
		c.remove(c.order.Back())
	}
	entry := &cacheEntry{key: k, CachedTrack: CachedTrack{Floats: make([]float32, n)}}
	c.items[k] = c.order.PushFront(entry)
	c.used += n
	return &entry.CachedTrack, nil
}

// Evict drops every track of a voice.
func (c *Cache) Evict(voice string) {
	for k, e := range c.items {
		if k.Voice == voice {
			c.remove(e)
		}
	}
}

// Used returns the number of cached samples.
func (c *Cache) Used() int { return c.used }

// Len returns the number of cached tracks.
func (c *Cache) Len() int { return len(c.items) }

func (c *Cache) remove(e *list.Element) {
	entry := c.order.Remove(e).(*cacheEntry)
	delete(c.items, entry.key)
	c.used -= len(entry.Floats)
}
