package loopvm

import "math"

// LookaheadSamples is how far ahead of the published bar time NextBarTime
// looks, in samples. The scheduler uses it to have a bar's tracks in place
// before the playhead reaches the bar.
const LookaheadSamples = 135

// Clock converts the advance of wall-clock time (in seconds) into a looped
// musical position measured in bars. The owner of the clock increments Time
// and calls Update; Update never touches Time itself.
//
// All fields are plain values. Control surface code may change BPM, LoopStart
// and LoopEnd between updates; no validation is done and BPM <= 0 yields
// meaningless positions.
type Clock struct {
	Time         float64 // seconds, owned by the caller
	TimeStep     float64 // seconds per sample
	PrevTime     float64 // Time at the previous Update, -1 after Reset
	EndTime      float64 // bar where the loop wraps
	InternalTime float64 // running bar position
	BPM          float64
	Coeff        float64 // bars per second, 4 beats per bar
	BarTime      float64 // published bar position, in [0, EndTime)
	BarTimeStep  float64 // bars per sample
	NextBarTime  float64 // bar position LookaheadSamples ahead
	LoopStart    float64
	LoopEnd      float64
	SampleRate   float64
	RingPos      int
	NextRingPos  int
}

// NewClock returns a reset clock running at the given sample rate and tempo,
// looping over [0, endTime) bars.
func NewClock(sampleRate, bpm, endTime float64) *Clock {
	c := &Clock{SampleRate: sampleRate, BPM: bpm, EndTime: endTime, LoopEnd: endTime}
	c.Reset()
	c.derive()
	return c
}

// Reset zeroes the running state. The first Update after Reset does not
// advance the bar position.
func (c *Clock) Reset() {
	c.RingPos = 0
	c.NextRingPos = 0
	c.PrevTime = -1
	c.Time = 0
	c.BarTime = 0
	c.InternalTime = 0
}

// SetLoop sets the loop window in bars. The clock wraps back to start when it
// reaches end.
func (c *Clock) SetLoop(start, end float64) {
	c.LoopStart = start
	c.LoopEnd = end
	c.EndTime = end
}

// Update derives the musical position from Time.
func (c *Clock) Update() {
	c.derive()
	if c.PrevTime >= 0 {
		c.InternalTime += (c.Time - c.PrevTime) * c.Coeff
	}
	c.PrevTime = c.Time
	c.InternalTime = c.wrap(c.InternalTime)
	c.NextBarTime = c.wrap(c.InternalTime + LookaheadSamples*c.BarTimeStep)
	c.BarTime = c.InternalTime
}

// Advance moves the clock forward by n samples without deriving the position
// sample by sample. Renderers use it to step a whole chunk at a time.
func (c *Clock) Advance(n int) {
	c.Time += float64(n) * c.TimeStep
	c.BarTime += float64(n) * c.BarTimeStep
}

// SecondsToBars converts a duration at the current tempo into bars.
func (c *Clock) SecondsToBars(seconds float64) float64 {
	return seconds * c.BPM / 60 / 4
}

// BarsToSamples converts a duration in bars at the current tempo into a
// whole number of samples, rounding up.
func (c *Clock) BarsToSamples(bars float64) int {
	if c.BPM <= 0 {
		return 0
	}
	return int(math.Ceil(bars / (c.BPM / 60 / 4) * c.SampleRate))
}

func (c *Clock) derive() {
	c.Coeff = c.BPM / 60 / 4
	c.TimeStep = 1 / c.SampleRate
	c.BarTimeStep = c.TimeStep * c.Coeff
}

// wrap folds x back into [LoopStart, EndTime). Subtracting the loop length
// once handles the usual small overshoot; the modulo is only reached after a
// jump.
func (c *Clock) wrap(x float64) float64 {
	length := c.EndTime - c.LoopStart
	if length <= 0 {
		return x
	}
	if x >= c.EndTime {
		x -= length
		if x >= c.EndTime || x < c.LoopStart {
			x = c.LoopStart + math.Mod(x-c.LoopStart, length)
			if x < c.LoopStart {
				x += length
			}
		}
	}
	return x
}
