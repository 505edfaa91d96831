package player

import (
	"sync/atomic"

	"github.com/loopvm/loopvm"
)

const (
	MaxBars   = loopvm.MaxBars
	MaxTracks = 16
)

// Grid maps every bar to the tracks sounding in it.
type Grid struct {
	Generation uint64
	slots      [MaxBars][MaxTracks]*Track
	lens       [MaxBars]uint8
}

// Clear removes all tracks.
func (g *Grid) Clear() {
	clear(g.slots[:])
	clear(g.lens[:])
}

// Add puts a track on a bar. It returns false if the bar is outside the grid
// or already has MaxTracks tracks.
func (g *Grid) Add(bar int, t *Track) bool {
	if bar < 0 || bar >= MaxBars || g.lens[bar] >= MaxTracks {
		return false
	}
	g.slots[bar][g.lens[bar]] = t
	g.lens[bar]++
	return true
}

// Tracks returns the tracks on a bar. Bars outside the grid have none.
func (g *Grid) Tracks(bar int) []*Track {
	if bar < 0 || bar >= MaxBars {
		return nil
	}
	return g.slots[bar][:g.lens[bar]]
}

// Bars is a double-buffered grid shared by one writer (the control thread)
// and one reader (the audio thread). The writer fills the grid returned by
// Next and publishes it with Swap; the reader calls Load once per block and
// only ever sees complete grids.
//
// The reader acknowledges the generation it loaded. The writer reuses the
// grid it retired only after the reader has acknowledged the grid that
// replaced it; until then Next allocates a fresh one.
type Bars struct {
	current atomic.Pointer[Grid]
	acked   atomic.Uint64

	next    *Grid
	retired *Grid
	gen     uint64
}

func NewBars() *Bars {
	b := &Bars{}
	b.current.Store(&Grid{})
	return b
}

// Next returns the grid to fill, cleared. Repeated calls before Swap return
// the same grid.
func (b *Bars) Next() *Grid {
	if b.next != nil {
		return b.next
	}
	if b.retired != nil && b.acked.Load() >= b.gen {
		b.next, b.retired = b.retired, nil
		b.next.Clear()
	} else {
		b.next = &Grid{}
	}
	return b.next
}

// Swap publishes the grid returned by Next.
func (b *Bars) Swap() {
	g := b.Next()
	b.gen++
	g.Generation = b.gen
	b.retired = b.current.Swap(g)
	b.next = nil
}

// Load returns the published grid and acknowledges it. The audio thread
// must not keep the grid beyond the block it loaded it for.
func (b *Bars) Load() *Grid {
	g := b.current.Load()
	b.acked.Store(g.Generation)
	return g
}

// Acked returns the last generation loaded by the reader.
func (b *Bars) Acked() uint64 {
	return b.acked.Load()
}
