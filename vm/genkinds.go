package vm

import "fmt"

// GenKind is the discriminant of a generator. The bank dispatches on it with
// a jump table instead of interface calls.
type GenKind int32

const (
	GenSine GenKind = iota
	GenSaw
	GenSquare
	GenTriangle
	GenNoise
	GenSampler
	GenEnvelope
	GenFilter
	GenDelay
	GenUnison
	GenLFO
	GenLag
	NumGenKinds
)

// MaxProps is the size of the property table of every generator.
const MaxProps = 8

// GenKindInfo describes the property slots and the outputs of a kind.
type GenKindInfo struct {
	Name         string
	Props        []string // property names in slot order
	HasAudioOut  bool
	HasStereoOut bool
}

// GenKinds is indexed by GenKind. Compilers look up property slots by name
// from this table.
var GenKinds = [NumGenKinds]GenKindInfo{
	GenSine:     {Name: "sine", Props: []string{"freq", "gain", "sync", "phase"}, HasAudioOut: true},
	GenSaw:      {Name: "saw", Props: []string{"freq", "gain", "sync", "phase"}, HasAudioOut: true},
	GenSquare:   {Name: "square", Props: []string{"freq", "gain", "sync", "phase", "width"}, HasAudioOut: true},
	GenTriangle: {Name: "triangle", Props: []string{"freq", "gain", "sync", "phase"}, HasAudioOut: true},
	GenNoise:    {Name: "noise", Props: []string{"gain", "shape"}, HasAudioOut: true},
	GenSampler:  {Name: "sampler", Props: []string{"sample", "rate", "gain", "sync", "loop"}, HasAudioOut: true},
	GenEnvelope: {Name: "envelope", Props: []string{"sync", "attack", "decay", "sustain", "hold", "release", "gain"}, HasAudioOut: true},
	GenFilter:   {Name: "filter", Props: []string{"input", "cutoff", "resonance", "mode"}, HasAudioOut: true},
	GenDelay:    {Name: "delay", Props: []string{"input", "time", "feedback", "damp", "dry", "wet"}, HasAudioOut: true},
	GenUnison:   {Name: "unison", Props: []string{"freq", "gain", "detune", "sync"}, HasAudioOut: true, HasStereoOut: true},
	GenLFO:      {Name: "lfo", Props: []string{"freq", "depth", "offset", "out"}},
	GenLag:      {Name: "lag", Props: []string{"input", "time", "out"}},
}

// Property slots shared by several kinds.
const (
	propOscFreq  = 0
	propOscGain  = 1
	propOscSync  = 2
	propOscPhase = 3
	propOscWidth = 4
)

func (k GenKind) String() string {
	if k >= 0 && k < NumGenKinds {
		return GenKinds[k].Name
	}
	return fmt.Sprintf("gen(%d)", int32(k))
}

// Info returns the table entry of the kind.
func (k GenKind) Info() GenKindInfo {
	return GenKinds[k]
}

// Prop returns the slot of the named property.
func (k GenKind) Prop(name string) (int, bool) {
	for i, p := range GenKinds[k].Props {
		if p == name {
			return i, true
		}
	}
	return 0, false
}

// GenKindByName finds a kind by its name.
func GenKindByName(name string) (GenKind, bool) {
	for i := range GenKinds {
		if GenKinds[i].Name == name {
			return GenKind(i), true
		}
	}
	return 0, false
}
