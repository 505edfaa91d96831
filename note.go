package loopvm

import (
	"math"
	"sort"
)

type (
	// Note is one entry of the read-only note list handed to a voice. Time and
	// Length are in bars, Pitch is a (possibly fractional) MIDI note number
	// and Velocity is in [0, 1].
	Note struct {
		Pitch    float64 `yaml:"pitch" cbor:"pitch"`
		Time     float64 `yaml:"time" cbor:"time"`
		Length   float64 `yaml:"length" cbor:"length"`
		Velocity float64 `yaml:"velocity" cbor:"velocity"`
	}

	// Notes is a list of notes, usually sorted by Time.
	Notes []Note
)

// Frequency returns the frequency of the note in Hz, A4 (69) being 440 Hz.
func (n Note) Frequency() float64 {
	return PitchToFrequency(n.Pitch)
}

// End returns the bar where the note stops sounding.
func (n Note) End() float64 {
	return n.Time + n.Length
}

// PitchToFrequency converts a MIDI note number into Hz.
func PitchToFrequency(pitch float64) float64 {
	return 440 * math.Exp2((pitch-69)/12)
}

// Sort orders the notes by onset, keeping the original order of notes that
// start at the same time.
func (n Notes) Sort() {
	sort.SliceStable(n, func(i, j int) bool { return n[i].Time < n[j].Time })
}

// Length returns the bar where the last note ends.
func (n Notes) Length() float64 {
	ret := 0.0
	for _, note := range n {
		if e := note.End(); e > ret {
			ret = e
		}
	}
	return ret
}
