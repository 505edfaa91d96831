package player

import (
	"math"
	"sync/atomic"

	"github.com/loopvm/loopvm"
)

// Transport holds the clock controls written by the control thread. The
// audio thread applies them to its clock at the start of every block.
type Transport struct {
	bpm  atomic.Uint64
	loop atomic.Pointer[[2]float64]
	seek atomic.Uint64
}

var noSeek = math.Float64bits(math.NaN())

func newTransport() *Transport {
	t := &Transport{}
	t.seek.Store(noSeek)
	return t
}

// SetBPM changes the tempo. Values <= 0 are ignored.
func (t *Transport) SetBPM(bpm float64) {
	if bpm > 0 {
		t.bpm.Store(math.Float64bits(bpm))
	}
}

// SetLoop changes the loop window, in bars.
func (t *Transport) SetLoop(start, end float64) {
	t.loop.Store(&[2]float64{start, end})
}

// Seek moves the playhead to a bar position.
func (t *Transport) Seek(bar float64) {
	t.seek.Store(math.Float64bits(bar))
}

func (t *Transport) apply(c *loopvm.Clock) {
	if b := t.bpm.Load(); b != 0 {
		c.BPM = math.Float64frombits(b)
	}
	if l := t.loop.Load(); l != nil && (l[0] != c.LoopStart || l[1] != c.LoopEnd) {
		c.SetLoop(l[0], l[1])
	}
	if s := t.seek.Swap(noSeek); s != noSeek {
		c.InternalTime = math.Float64frombits(s)
		c.BarTime = c.InternalTime
		c.PrevTime = -1
	}
}
