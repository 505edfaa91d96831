package vm

import (
	"github.com/chewxy/math32"
)

// Bank is an arena of generators stored as parallel arrays, one entry per
// generator handle. Generators are never destroyed one by one; Reset
// reclaims them all when a voice is recompiled from scratch.
type Bank struct {
	kinds   []GenKind
	props   [][MaxProps]Value
	states  [][8]float32
	lines   [][]float32 // delay memory, nil for kinds that need none
	seed    uint32
	scratch [2][BufferSize]float32
}

const (
	delayLineBits   = 17
	delayLineLength = 1 << delayLineBits
	delayLineMask   = delayLineLength - 1
)

type processFunc func(b *Bank, g int, c *Context, out0, out1 []float32)

// processors is the jump table of the bank, indexed by GenKind.
var processors = [NumGenKinds]processFunc{
	GenSine:     processOscillator,
	GenSaw:      processOscillator,
	GenSquare:   processOscillator,
	GenTriangle: processOscillator,
	GenNoise:    processNoise,
	GenSampler:  processSampler,
	GenEnvelope: processEnvelope,
	GenFilter:   processFilter,
	GenDelay:    processDelay,
	GenUnison:   processUnison,
	GenLFO:      processLFO,
	GenLag:      processLag,
}

var waveforms = [NumGenKinds]func(phase, width float32) float32{
	GenSine: func(phase, _ float32) float32 { return math32.Sin(2 * math32.Pi * phase) },
	GenSaw:  func(phase, _ float32) float32 { return 2*phase - 1 },
	GenSquare: func(phase, width float32) float32 {
		if phase < width {
			return 1
		}
		return -1
	},
	GenTriangle: func(phase, _ float32) float32 {
		if phase < 0.5 {
			return 4*phase - 1
		}
		return 3 - 4*phase
	},
}

// NewBank returns an empty bank.
func NewBank() *Bank {
	return &Bank{seed: 1}
}

// Len returns the number of generators in use.
func (b *Bank) Len() int {
	return len(b.kinds)
}

// Kind returns the kind of a generator.
func (b *Bank) Kind(g int) GenKind {
	return b.kinds[g]
}

// Property returns the value bound to a property slot.
func (b *Bank) Property(g, slot int) Value {
	return b.props[g][slot]
}

// Reset reclaims every generator. Delay memory stays allocated for the next
// generators that need it.
func (b *Bank) Reset() {
	b.kinds = b.kinds[:0]
	b.props = b.props[:0]
	b.states = b.states[:0]
	b.seed = 1
}

// create instantiates a generator at the given handle, reusing pooled memory
// when the handle was used before.
func (b *Bank) create(handle int, kind GenKind) {
	for len(b.kinds) <= handle {
		b.kinds = append(b.kinds, 0)
		b.props = append(b.props, [MaxProps]Value{})
		b.states = append(b.states, [8]float32{})
	}
	for len(b.lines) <= handle {
		b.lines = append(b.lines, nil)
	}
	b.kinds[handle] = kind
	b.props[handle] = [MaxProps]Value{}
	b.states[handle] = [8]float32{}
	if kind == GenEnvelope {
		b.states[handle][envLastSync] = -1
	}
	if kind == GenDelay {
		if b.lines[handle] == nil {
			b.lines[handle] = make([]float32, delayLineLength)
		} else {
			clear(b.lines[handle])
		}
	}
}

func (b *Bank) setProperty(g, slot int, v Value) {
	b.props[g][slot] = v
}

// process runs one block of the generator into out0 (and out1 for stereo
// kinds). Mono kinds asked for two outputs write the same signal to both.
func (b *Bank) process(g int, c *Context, out0, out1 []float32) {
	kind := b.kinds[g]
	processors[kind](b, g, c, out0, out1)
	if out1 != nil && !GenKinds[kind].HasStereoOut {
		copy(out1, out0)
	}
}

// update advances a generator by one block, discarding any audio it makes.
func (b *Bank) update(g int, c *Context) {
	kind := b.kinds[g]
	if !GenKinds[kind].HasAudioOut {
		processors[kind](b, g, c, nil, nil)
		return
	}
	n := c.End - c.Begin
	var out1 []float32
	if GenKinds[kind].HasStereoOut {
		out1 = b.scratch[1][:n]
	}
	processors[kind](b, g, c, b.scratch[0][:n], out1)
}

type param struct {
	audio []float32
	value float32
}

func (p param) at(i int) float32 {
	if p.audio != nil {
		return p.audio[i]
	}
	return p.value
}

// param resolves a property for per-sample reads; unbound properties take
// the default.
func (c *Context) param(v Value, def float32) param {
	if v.Kind == KindNull {
		return param{value: def}
	}
	if a := c.Audio(v); a != nil {
		return param{audio: a}
	}
	return param{value: c.Scalar(v)}
}

func (c *Context) scalarOr(v Value, def float32) float32 {
	if v.Kind == KindNull {
		return def
	}
	return c.Scalar(v)
}

// store writes a block-rate result into a scalar register or dynamic value.
func (c *Context) store(v Value, x float32) {
	switch v.Kind {
	case KindScalar:
		c.scalars[v.Index] = x
	case KindDynamic:
		c.setScalarResult(v.Index, x)
	}
}

func (c *Context) sampleRate() float32 {
	return c.scalars[ScalarSampleRate]
}

func processOscillator(b *Bank, g int, c *Context, out0, _ []float32) {
	p, st := &b.props[g], &b.states[g]
	sr := c.sampleRate()
	if sr <= 0 || out0 == nil {
		clear(out0)
		return
	}
	if sync := c.Scalar(p[propOscSync]); sync != st[1] {
		st[0], st[1] = 0, sync
	}
	freq := c.param(p[propOscFreq], 0)
	gain := c.param(p[propOscGain], 1)
	offset := c.Scalar(p[propOscPhase])
	width := c.scalarOr(p[propOscWidth], 0.5)
	wave := waveforms[b.kinds[g]]
	phase := st[0]
	for i := range out0 {
		ph := phase + offset
		ph -= math32.Floor(ph)
		out0[i] = wave(ph, width) * gain.at(i)
		phase += freq.at(i) / sr
		phase -= math32.Floor(phase)
	}
	st[0] = phase
}

func processNoise(b *Bank, g int, c *Context, out0, _ []float32) {
	p := &b.props[g]
	gain := c.param(p[0], 1)
	shape := c.scalarOr(p[1], 0.5)
	for i := range out0 {
		b.seed *= 16007
		v := float32(int32(b.seed)) / -2147483648.0
		out0[i] = waveshape(v, shape) * gain.at(i)
	}
}

const (
	samplerPos = iota
	samplerLastSync
)

func processSampler(b *Bank, g int, c *Context, out0, _ []float32) {
	p, st := &b.props[g], &b.states[g]
	data := c.Floats(p[0])
	if len(data) == 0 {
		clear(out0)
		return
	}
	if sync := c.Scalar(p[3]); sync != st[samplerLastSync] {
		st[samplerPos], st[samplerLastSync] = 0, sync
	}
	rate := c.param(p[1], 1)
	gain := c.param(p[2], 1)
	loop := c.Scalar(p[4]) > 0.5
	n := float32(len(data))
	pos := st[samplerPos]
	for i := range out0 {
		if pos >= n {
			if !loop {
				clear(out0[i:])
				break
			}
			pos -= n * math32.Floor(pos/n)
		}
		j := int(pos)
		frac := pos - float32(j)
		next := float32(0)
		if j+1 < len(data) {
			next = data[j+1]
		} else if loop {
			next = data[0]
		}
		out0[i] = (data[j] + (next-data[j])*frac) * gain.at(i)
		pos += rate.at(i)
		if pos < 0 {
			pos = 0
		}
	}
	st[samplerPos] = pos
}

const (
	envElapsed = iota
	envLastSync
	envActive
)

func processEnvelope(b *Bank, g int, c *Context, out0, _ []float32) {
	p, st := &b.props[g], &b.states[g]
	sr := c.sampleRate()
	if sr <= 0 {
		clear(out0)
		return
	}
	if sync := c.Scalar(p[0]); sync != st[envLastSync] {
		st[envLastSync] = sync
		if sync >= 0 {
			st[envElapsed], st[envActive] = 0, 1
		}
	}
	if st[envActive] == 0 {
		clear(out0)
		return
	}
	a, d, s := c.Scalar(p[1]), c.Scalar(p[2]), c.scalarOr(p[3], 1)
	h, r := c.Scalar(p[4]), c.Scalar(p[5])
	gain := c.param(p[6], 1)
	t, dt := st[envElapsed], 1/sr
	for i := range out0 {
		out0[i] = envelopeLevel(t, a, d, s, h, r) * gain.at(i)
		t += dt
	}
	st[envElapsed] = t
	if t > a+d+h+r && r >= 0 {
		st[envActive] = 0
	}
}

// envelopeLevel is an attack-decay-hold-release curve over time since the
// trigger. Stages with non-positive length are skipped.
func envelopeLevel(t, attack, decay, sustain, hold, release float32) float32 {
	if attack > 0 {
		if t < attack {
			return t / attack
		}
		t -= attack
	}
	if decay > 0 {
		if t < decay {
			return 1 - (1-sustain)*t/decay
		}
		t -= decay
	}
	if hold > 0 {
		if t < hold {
			return sustain
		}
		t -= hold
	}
	if release > 0 && t < release {
		return sustain * (1 - t/release)
	}
	return 0
}

func processFilter(b *Bank, g int, c *Context, out0, _ []float32) {
	p, st := &b.props[g], &b.states[g]
	sr := c.sampleRate()
	if sr <= 0 {
		clear(out0)
		return
	}
	in := c.param(p[0], 0)
	cutoff := c.param(p[1], 1000)
	res := c.scalarOr(p[2], 1)
	mode := int(c.Scalar(p[3]))
	low, band := st[0], st[1]
	for i := range out0 {
		f := 2 * math32.Sin(math32.Pi*min(cutoff.at(i)/sr, 0.25))
		low += f * band
		high := in.at(i) - low - res*band
		band += f * high
		switch mode {
		case 1:
			out0[i] = band
		case 2:
			out0[i] = high
		case 3:
			out0[i] = low + high
		default:
			out0[i] = low
		}
	}
	if math32.IsNaN(low) || math32.IsInf(low, 0) || math32.IsNaN(band) || math32.IsInf(band, 0) {
		low, band = 0, 0
	}
	st[0], st[1] = low, band
}

const (
	delayPos = iota
	delayDamp
	delayDCIn
	delayDCState
)

func processDelay(b *Bank, g int, c *Context, out0, _ []float32) {
	p, st := &b.props[g], &b.states[g]
	line := b.lines[g]
	sr := c.sampleRate()
	if sr <= 0 {
		clear(out0)
		return
	}
	in := c.param(p[0], 0)
	samples := int(c.scalarOr(p[1], 0.25)*sr + 0.5)
	samples = min(max(samples, 1), delayLineMask)
	feedback := c.Scalar(p[2])
	damp := c.Scalar(p[3])
	dry := c.param(p[4], 1)
	wet := c.param(p[5], 1)
	pos := int(st[delayPos])
	dampState, dcIn, dcState := st[delayDamp], st[delayDCIn], st[delayDCState]
	for i := range out0 {
		x := in.at(i)
		delayed := line[(pos-samples)&delayLineMask]
		dampState = damp*dampState + (1-damp)*delayed
		line[pos] = feedback*dampState + x
		output := dry.at(i)*x + wet.at(i)*delayed
		dcState = output + (0.99609375*dcState - dcIn)
		dcIn = output
		out0[i] = dcState
		pos = (pos + 1) & delayLineMask
	}
	st[delayPos] = float32(pos)
	st[delayDamp], st[delayDCIn], st[delayDCState] = dampState, dcIn, dcState
}

func processUnison(b *Bank, g int, c *Context, out0, out1 []float32) {
	p, st := &b.props[g], &b.states[g]
	sr := c.sampleRate()
	if sr <= 0 {
		clear(out0)
		clear(out1)
		return
	}
	if sync := c.Scalar(p[3]); sync != st[3] {
		st[0], st[1], st[2], st[3] = 0, 1.0/3, 2.0/3, sync
	}
	freq := c.param(p[0], 0)
	gain := c.param(p[1], 1)
	detune := c.scalarOr(p[2], 0.01)
	phases := [3]float32{st[0], st[1], st[2]}
	ratios := [3]float32{1, 1 - detune, 1 + detune}
	for i := range out0 {
		var saws [3]float32
		for j := range phases {
			saws[j] = 2*phases[j] - 1
			phases[j] += freq.at(i) * ratios[j] / sr
			phases[j] -= math32.Floor(phases[j])
		}
		gi := gain.at(i) * 0.5
		out0[i] = (saws[0] + saws[1]) * gi
		if out1 != nil {
			out1[i] = (saws[0] + saws[2]) * gi
		}
	}
	st[0], st[1], st[2] = phases[0], phases[1], phases[2]
}

func processLFO(b *Bank, g int, c *Context, _, _ []float32) {
	p, st := &b.props[g], &b.states[g]
	sr := c.sampleRate()
	if sr <= 0 {
		return
	}
	c.store(p[3], c.Scalar(p[2])+c.scalarOr(p[1], 1)*math32.Sin(2*math32.Pi*st[0]))
	st[0] += c.Scalar(p[0]) * float32(c.End-c.Begin) / sr
	st[0] -= math32.Floor(st[0])
}

func processLag(b *Bank, g int, c *Context, _, _ []float32) {
	p, st := &b.props[g], &b.states[g]
	in := c.Scalar(p[0])
	t := c.Scalar(p[1]) * c.sampleRate()
	if t <= 0 {
		st[0] = in
	} else {
		st[0] += (in - st[0]) * (1 - math32.Exp(-float32(c.End-c.Begin)/t))
	}
	c.store(p[2], st[0])
}

func waveshape(value, amount float32) float32 {
	return value * amount / (1 - amount + (2*amount-1)*math32.Abs(value))
}
