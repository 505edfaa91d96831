package player

import (
	"math"

	"github.com/chewxy/math32"
	"github.com/loopvm/loopvm"
)

const (
	BlockSize  = 128
	RingBlocks = 8
)

type (
	// Player mixes the tracks of the bar grid into stereo audio, on the audio
	// thread. It never blocks or allocates: the grid comes in through Bars,
	// the clock controls through Transport, the playback mode through
	// SetMode, and the only thing going out is a Status per block, sent
	// without blocking.
	Player struct {
		clock     loopvm.Clock
		bars      *Bars
		transport *Transport
		mode      modeFlag
		fade      float32 // gain at the end of the last block
		ring      [RingBlocks][BlockSize][2]float32
		read      int // frames of the current ring block already handed out
		status    chan<- Status
	}

	// Status is sent by the player after every block.
	Status struct {
		Mode       Mode
		BarTime    float64
		Time       float64
		Generation uint64 // of the grid the block was mixed from
		Peak       [2]float32
	}
)

// NewPlayer returns an idle player. status may be nil if nobody listens.
func NewPlayer(settings loopvm.Settings, status chan<- Status) *Player {
	p := &Player{
		clock:     *settings.Clock(),
		bars:      NewBars(),
		transport: newTransport(),
		read:      BlockSize,
		status:    status,
	}
	return p
}

func (p *Player) Bars() *Bars           { return p.bars }
func (p *Player) Transport() *Transport { return p.transport }

// SetMode requests a playback mode; it takes effect at the next block.
func (p *Player) SetMode(m Mode) { p.mode.Store(m) }
func (p *Player) Mode() Mode     { return p.mode.Load() }

// Process fills the buffer. Blocks are rendered into the ring as needed, so
// the buffer can have any length.
func (p *Player) Process(buffer loopvm.AudioBuffer) {
	for len(buffer) > 0 {
		if p.read == BlockSize {
			p.renderBlock()
		}
		n := copy(buffer, p.ring[p.clock.RingPos][p.read:])
		p.read += n
		buffer = buffer[n:]
	}
}

// Render is Process with the signature of an AudioContext render function.
func (p *Player) Render(buffer loopvm.AudioBuffer) error {
	p.Process(buffer)
	return nil
}

func (p *Player) renderBlock() {
	c := &p.clock
	p.transport.apply(c)
	grid := p.bars.Load()
	block := &p.ring[c.NextRingPos]
	mode := p.mode.Load()
	switch mode {
	case Reset:
		c.Reset()
		p.fade = 0
		p.mode.advance(Reset, Play)
		mode = Play
	case Pause:
		p.fade = 0
		p.mode.advance(Pause, Idle)
		mode = Idle
	}
	var peak [2]float32
	if mode == Idle || mode >= numModes {
		clear(block[:])
	} else {
		target := float32(1)
		if mode == Stop {
			target = 0
		}
		step := (target - p.fade) / BlockSize
		for i := range block {
			var l, r float32
			for _, t := range grid.Tracks(int(math.Floor(c.BarTime))) {
				s := t.At(c.BarTime, c.SampleRate)
				gl, gr := t.Gains()
				l += s * gl
				r += s * gr
			}
			p.fade += step
			block[i] = [2]float32{l * p.fade, r * p.fade}
			peak[0] = max(peak[0], math32.Abs(block[i][0]))
			peak[1] = max(peak[1], math32.Abs(block[i][1]))
			c.Time += c.TimeStep
			c.Update()
		}
		p.fade = target
		if mode == Stop {
			p.mode.advance(Stop, Idle)
		}
	}
	c.RingPos = c.NextRingPos
	c.NextRingPos = (c.NextRingPos + 1) % RingBlocks
	p.read = 0
	TrySend(p.status, Status{Mode: mode, BarTime: c.BarTime, Time: c.Time, Generation: grid.Generation, Peak: peak})
}

// TrySend sends a value to a channel if it is not full. It never blocks and
// returns true if the value was sent.
func TrySend[T any](c chan<- T, v T) bool {
	select {
	case c <- v:
	default:
		return false
	}
	return true
}
