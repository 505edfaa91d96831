package player_test

import (
	"errors"
	"testing"

	"github.com/loopvm/loopvm/player"
)

func TestCacheEvictsLeastRecentlyUsed(t *testing.T) {
	c := player.NewCache(10)
	a, b, d := player.CacheKey{Voice: "a"}, player.CacheKey{Voice: "b"}, player.CacheKey{Voice: "d"}
	if _, err := c.Alloc(a, 4); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Alloc(b, 4); err != nil {
		t.Fatal(err)
	}
	if _, ok := c.Get(a); !ok {
		t.Fatalf("a missing")
	}
	track, err := c.Alloc(d, 4)
	if err != nil {
		t.Fatal(err)
	}
	if len(track.Floats) != 4 {
		t.Fatalf("got a buffer of %d samples", len(track.Floats))
	}
	if _, ok := c.Get(b); ok {
		t.Fatalf("b should have been evicted")
	}
	if _, ok := c.Get(a); !ok {
		t.Fatalf("a should have survived")
	}
	if c.Used() != 8 || c.Len() != 2 {
		t.Fatalf("used %d in %d tracks", c.Used(), c.Len())
	}
}

func TestCacheExhausted(t *testing.T) {
	c := player.NewCache(10)
	c.Alloc(player.CacheKey{Voice: "a"}, 6)
	if _, err := c.Alloc(player.CacheKey{Voice: "b"}, 11); !errors.Is(err, player.ErrExhausted) {
		t.Fatalf("expected ErrExhausted, got %v", err)
	}
	if _, ok := c.Get(player.CacheKey{Voice: "a"}); !ok {
		t.Fatalf("failed allocation evicted a track")
	}
}

func TestCacheReplaceAndEvict(t *testing.T) {
	c := player.NewCache(10)
	k := player.CacheKey{Voice: "a", Hash: 1}
	c.Alloc(k, 6)
	c.Alloc(k, 8)
	if c.Used() != 8 || c.Len() != 1 {
		t.Fatalf("replacing a key: used %d in %d tracks", c.Used(), c.Len())
	}
	c.Alloc(player.CacheKey{Voice: "a", Hash: 2}, 1)
	c.Alloc(player.CacheKey{Voice: "b"}, 1)
	c.Evict("a")
	if c.Len() != 1 || c.Used() != 1 {
		t.Fatalf("after Evict: used %d in %d tracks", c.Used(), c.Len())
	}
}

func TestCacheKeepsPan(t *testing.T) {
	c := player.NewCache(10)
	k := player.CacheKey{Voice: "a"}
	track, err := c.Alloc(k, 4)
	if err != nil {
		t.Fatal(err)
	}
	track.Pan = -0.5
	got, ok := c.Get(k)
	if !ok || got.Pan != -0.5 || len(got.Floats) != 4 {
		t.Fatalf("cached track %+v", got)
	}
}
