package vm

import (
	"github.com/loopvm/loopvm"
)

// Render runs the voice over the sample range [begin, end) and writes its
// output into dst, dst[0] being sample begin. The run program is executed
// once per ChunkSize samples; before each run the global registers are
// refreshed from the clock and the voice registers from the notes whose
// onsets fall within the chunk. At most MaxVoices onsets are taken per
// chunk, in the order of notes, the rest are dropped. The clock is advanced
// by whole chunks.
func (v *Voice) Render(clock *loopvm.Clock, notes loopvm.Notes, dst []float32, begin, end int) {
	v.render(clock, notes, begin, end, func(c *Context, offset, n int) {
		c.copyOut(dst[offset:offset+n], v.program.Out, n)
	})
}

// RenderStereo is like Render, but writes both output channels. A mono voice
// writes the same signal to both.
func (v *Voice) RenderStereo(clock *loopvm.Clock, notes loopvm.Notes, left, right []float32, begin, end int) {
	v.render(clock, notes, begin, end, func(c *Context, offset, n int) {
		c.copyOut(left[offset:offset+n], v.program.Out, n)
		if v.program.OutRight == Null {
			copy(right[offset:offset+n], left[offset:offset+n])
			return
		}
		c.copyOut(right[offset:offset+n], v.program.OutRight, n)
	})
}

// Pan returns the pan position last set by the run program, in [-1, 1].
func (v *Voice) Pan() float32 {
	return v.Context.Pan
}

func (v *Voice) render(clock *loopvm.Clock, notes loopvm.Notes, begin, end int, flush func(c *Context, offset, n int)) {
	c := v.Context
	for span := begin; span < end; span += BufferSize {
		spanEnd := min(span+BufferSize, end)
		for chunk := span; chunk < spanEnd; chunk += ChunkSize {
			n := min(ChunkSize, spanEnd-chunk)
			c.SetGlobals(float32(clock.SampleRate), float32(clock.BarTime), float32(clock.Time), float32(clock.Coeff))
			v.onsets(notes, clock.BarTime, clock.BarTime+clock.BarTimeStep*ChunkSize)
			c.Begin, c.End = chunk-span, chunk-span+n
			Exec(c, v.Bank, v.program.Run, 0, len(v.program.Run))
			clock.Advance(n)
		}
		flush(c, span-begin, spanEnd-span)
	}
}

// onsets fills the voice registers with the notes starting in [from, to).
// Slots without a new onset keep their previous note.
func (v *Voice) onsets(notes loopvm.Notes, from, to float64) {
	slot := 0
	for i := range notes {
		n := &notes[i]
		if n.Time < from || n.Time >= to {
			continue
		}
		if slot == MaxVoices {
			return
		}
		v.Context.SetVoice(slot, float32(n.Pitch), float32(n.Frequency()), float32(n.Time), float32(n.Velocity))
		slot++
	}
}

// copyOut copies the first n samples of an output value's buffer, or
// broadcasts it if it is scalar.
func (c *Context) copyOut(dst []float32, v Value, n int) {
	if buf := c.Buffer(v); buf != nil {
		copy(dst, buf[:n])
		return
	}
	s := c.Scalar(v)
	for i := range dst {
		dst[i] = s
	}
}
