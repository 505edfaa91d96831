package vm

import (
	"errors"
	"fmt"

	"github.com/viterin/vek/vek32"
)

const (
	ChunkSize     = 64   // samples between refreshes of the clock globals and voices
	BufferSize    = 128  // length of every audio buffer, one host block
	MaxVoices     = 6    // simultaneous notes a voice can track
	MaxOps        = 4096 // maximum length of a program, in words
	MaxLiterals   = 1024
	MaxScalars    = 1024
	MaxValues     = 1024
	MaxFloats     = 64
	MaxLists      = 128
	MaxListLength = 16
	MaxGens       = 256
)

// Layout of the reserved scalar registers. The compiler refers to the
// globals and the voice fields with these offsets.
const (
	ScalarSampleRate = iota // sr
	ScalarBarTime           // t
	ScalarRealTime          // rt
	ScalarCoeff             // co
	ScalarVoices            // first voice quadruple

	NumReservedScalars = ScalarVoices + MaxVoices*VoiceStride
)

// Fields of a voice quadruple.
const (
	VoiceNote     = iota // n
	VoiceFreq            // f
	VoiceTime            // t, onset in bars
	VoiceVelocity        // v
	VoiceStride
)

// VoiceScalar returns the scalar register of one field of a voice.
func VoiceScalar(voice, field int) Value {
	return Scalar(ScalarVoices + voice*VoiceStride + field)
}

// ErrCapacity is returned when a fixed-size store of the Context is full.
var ErrCapacity = errors.New("capacity exhausted")

type (
	// Context holds all the intermediate values of one voice's synthesis
	// graph. Slots are handed out by increasing index and only reclaimed in
	// bulk by Prepare.
	//
	// Begin and End delimit the part of the audio buffers the current run
	// writes to; audio-rate operations only touch [Begin, End).
	Context struct {
		literals [MaxLiterals]float32
		scalars  [MaxScalars]float32
		floats   [MaxFloats][]float32
		lists    [MaxLists][MaxListLength]Value
		listLens [MaxLists]int
		values   [MaxValues]dynamicValue
		audios   [][]float32

		numLiterals, numScalars, numFloats, numLists, numValues, numAudios, numGens int

		Begin, End int
		Pan        float32
	}

	dynamicValue struct {
		isAudio bool
		scalar  float32
		audio   []float32 // allocated once, kept across Prepare
	}

	// Counts reports how many slots of each store are in use.
	Counts struct {
		Literals, Scalars, Floats, Lists, Values, Audios, Gens int
	}
)

// NewContext returns an empty context with the run range covering a whole
// buffer.
func NewContext() *Context {
	return &Context{End: BufferSize}
}

// Prepare forgets every allocation. Buffers already allocated are kept for
// reuse but their slots count as free.
func (c *Context) Prepare() {
	c.numLiterals, c.numScalars, c.numFloats, c.numLists = 0, 0, 0, 0
	c.numValues, c.numAudios, c.numGens = 0, 0, 0
	c.Pan = 0
}

// Counts returns the number of allocated slots per store.
func (c *Context) Counts() Counts {
	return Counts{
		Literals: c.numLiterals,
		Scalars:  c.numScalars,
		Floats:   c.numFloats,
		Lists:    c.numLists,
		Values:   c.numValues,
		Audios:   c.numAudios,
		Gens:     c.numGens,
	}
}

// CreateLiteral adds a constant to the literal pool.
func (c *Context) CreateLiteral(v float32) (Value, error) {
	if c.numLiterals >= MaxLiterals {
		return Null, fmt.Errorf("literal pool (%d entries): %w", MaxLiterals, ErrCapacity)
	}
	c.literals[c.numLiterals] = v
	c.numLiterals++
	return Literal(c.numLiterals - 1), nil
}

// CreateScalar reserves a scalar register after the reserved globals and
// voices.
func (c *Context) CreateScalar() (Value, error) {
	if NumReservedScalars+c.numScalars >= MaxScalars {
		return Null, fmt.Errorf("scalar registers (%d): %w", MaxScalars, ErrCapacity)
	}
	i := NumReservedScalars + c.numScalars
	c.scalars[i] = 0
	c.numScalars++
	return Scalar(i), nil
}

// CreateAudio reserves an audio buffer. The audio store grows as needed.
func (c *Context) CreateAudio() Value {
	if c.numAudios < len(c.audios) {
		clear(c.audios[c.numAudios])
	} else {
		c.audios = append(c.audios, make([]float32, BufferSize))
	}
	c.numAudios++
	return Audio(c.numAudios - 1)
}

// CreateDynamic reserves a slot that can hold a scalar or an audio buffer.
func (c *Context) CreateDynamic() (Value, error) {
	if c.numValues >= MaxValues {
		return Null, fmt.Errorf("dynamic values (%d): %w", MaxValues, ErrCapacity)
	}
	return c.newDynamic(), nil
}

// newDynamic is CreateDynamic for validated programs: the capacity was
// checked by Validate.
func (c *Context) newDynamic() Value {
	d := &c.values[c.numValues]
	if d.audio == nil {
		d.audio = make([]float32, BufferSize)
	} else {
		clear(d.audio)
	}
	d.isAudio, d.scalar = false, 0
	c.numValues++
	return Dynamic(c.numValues - 1)
}

// CreateFloats binds external sample data. The data is not copied and must
// not be modified while the context uses it.
func (c *Context) CreateFloats(data []float32) (Value, error) {
	if c.numFloats >= MaxFloats {
		return Null, fmt.Errorf("sample tables (%d): %w", MaxFloats, ErrCapacity)
	}
	c.floats[c.numFloats] = data
	c.numFloats++
	return Value{KindFloats, int32(c.numFloats - 1)}, nil
}

// CreateList stores a fixed list of values for Pick.
func (c *Context) CreateList(values []Value) (Value, error) {
	if c.numLists >= MaxLists {
		return Null, fmt.Errorf("lists (%d): %w", MaxLists, ErrCapacity)
	}
	if len(values) > MaxListLength {
		return Null, fmt.Errorf("list of %d values, at most %d allowed: %w", len(values), MaxListLength, ErrCapacity)
	}
	i := c.numLists
	copy(c.lists[i][:], values)
	c.listLens[i] = len(values)
	c.numLists++
	return I32(i), nil
}

// SetGlobals writes the global registers.
func (c *Context) SetGlobals(sampleRate, barTime, realTime, coeff float32) {
	c.scalars[ScalarSampleRate] = sampleRate
	c.scalars[ScalarBarTime] = barTime
	c.scalars[ScalarRealTime] = realTime
	c.scalars[ScalarCoeff] = coeff
}

// SetVoice writes one voice quadruple.
func (c *Context) SetVoice(voice int, note, freq, time, velocity float32) {
	s := c.scalars[ScalarVoices+voice*VoiceStride:]
	s[VoiceNote], s[VoiceFreq], s[VoiceTime], s[VoiceVelocity] = note, freq, time, velocity
}

// Voice reads one voice quadruple.
func (c *Context) Voice(voice int) (note, freq, time, velocity float32) {
	s := c.scalars[ScalarVoices+voice*VoiceStride:]
	return s[VoiceNote], s[VoiceFreq], s[VoiceTime], s[VoiceVelocity]
}

// SetLiteral overwrites an existing literal.
func (c *Context) SetLiteral(v Value, x float32) {
	c.literals[v.Index] = x
}

// Scalar resolves a value to a single number. Audio values yield their
// sample at Begin.
func (c *Context) Scalar(v Value) float32 {
	switch v.Kind {
	case KindI32:
		return float32(v.Index)
	case KindLiteral:
		return c.literals[v.Index]
	case KindScalar:
		return c.scalars[v.Index]
	case KindAudio:
		return c.audios[v.Index][c.Begin]
	case KindDynamic:
		d := &c.values[v.Index]
		if d.isAudio {
			return d.audio[c.Begin]
		}
		return d.scalar
	}
	return 0
}

// Audio returns the [Begin, End) range of an audio value, or nil if the
// value is scalar.
func (c *Context) Audio(v Value) []float32 {
	switch v.Kind {
	case KindAudio:
		return c.audios[v.Index][c.Begin:c.End]
	case KindDynamic:
		if d := &c.values[v.Index]; d.isAudio {
			return d.audio[c.Begin:c.End]
		}
	}
	return nil
}

// Buffer returns the whole buffer of an audio value, or nil if the value is
// scalar.
func (c *Context) Buffer(v Value) []float32 {
	switch v.Kind {
	case KindAudio:
		return c.audios[v.Index]
	case KindDynamic:
		if d := &c.values[v.Index]; d.isAudio {
			return d.audio
		}
	}
	return nil
}

// Floats returns the sample data bound to a floats value.
func (c *Context) Floats(v Value) []float32 {
	if v.Kind != KindFloats {
		return nil
	}
	return c.floats[v.Index]
}

// Fill writes the value into dst, broadcasting scalars. dst has the length of
// the current run range.
func (c *Context) Fill(dst []float32, v Value) {
	if a := c.Audio(v); a != nil {
		copy(dst, a)
		return
	}
	s := c.Scalar(v)
	for i := range dst {
		dst[i] = s
	}
}

// setScalarResult stores a scalar into a dynamic value.
func (c *Context) setScalarResult(out int32, x float32) {
	d := &c.values[out]
	d.isAudio, d.scalar = false, x
}

// audioResult switches a dynamic value to audio and returns its run range.
func (c *Context) audioResult(out int32) []float32 {
	d := &c.values[out]
	d.isAudio = true
	return d.audio[c.Begin:c.End]
}

// copyInto copies v into the dynamic value out, keeping its kind.
func (c *Context) copyInto(out int32, v Value) {
	if a := c.Audio(v); a != nil {
		copy(c.audioResult(out), a)
		return
	}
	c.setScalarResult(out, c.Scalar(v))
}

// mean reduces the run range of an audio value to its average.
func (c *Context) mean(v Value) float32 {
	a := c.Audio(v)
	if len(a) == 0 {
		return c.Scalar(v)
	}
	return vek32.Mean(a)
}
