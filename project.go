package loopvm

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/fxamacker/cbor/v2"
	"gopkg.in/yaml.v3"
)

type (
	// Project is a bundle of compiled voices and where they play. It is what
	// an external compiler hands to the engine.
	Project struct {
		BPM       float64       `yaml:"bpm,omitempty" cbor:"bpm,omitempty"`
		LoopStart float64       `yaml:"loopstart,omitempty" cbor:"loopstart,omitempty"`
		LoopEnd   float64       `yaml:"loopend,omitempty" cbor:"loopend,omitempty"`
		Voices    []VoiceSource `yaml:"voices" cbor:"voices"`
		Tracks    []Placement   `yaml:"tracks,omitempty" cbor:"tracks,omitempty"`
	}

	// VoiceSource is the compiled form of one voice. Programs are given
	// either as assembly text (Setup, Run) or as raw words (SetupWords,
	// RunWords); the words win when both are present. Values (list entries,
	// outputs) use the kind:index text form.
	VoiceSource struct {
		Name       string     `yaml:"name" cbor:"name"`
		Literals   []float32  `yaml:"literals,flow,omitempty" cbor:"literals,omitempty"`
		Lists      [][]string `yaml:"lists,omitempty" cbor:"lists,omitempty"`
		Samples    []string   `yaml:"samples,omitempty" cbor:"samples,omitempty"` // raw float32 files, relative to the project
		Setup      string     `yaml:"setup,omitempty" cbor:"setup,omitempty"`
		Run        string     `yaml:"run,omitempty" cbor:"run,omitempty"`
		SetupWords []int32    `yaml:"setupwords,flow,omitempty" cbor:"setupwords,omitempty"`
		RunWords   []int32    `yaml:"runwords,flow,omitempty" cbor:"runwords,omitempty"`
		Out        string     `yaml:"out" cbor:"out"`
		OutRight   string     `yaml:"outright,omitempty" cbor:"outright,omitempty"`
		Notes      Notes      `yaml:"notes,omitempty" cbor:"notes,omitempty"`
		NotesFile  string     `yaml:"notesfile,omitempty" cbor:"notesfile,omitempty"` // standard MIDI file, relative to the project
		Length     float64    `yaml:"length" cbor:"length"`                           // bars rendered into the voice's track
	}

	// Placement puts a voice's track on the bar grid, starting at each of
	// Bars. A missing Vol means unity gain.
	Placement struct {
		Voice string   `yaml:"voice" cbor:"voice"`
		Bars  []int    `yaml:"bars,flow" cbor:"bars"`
		Pan   float64  `yaml:"pan,omitempty" cbor:"pan,omitempty"`
		Vol   *float64 `yaml:"vol,omitempty" cbor:"vol,omitempty"`
	}
)

var ErrUnknownFormat = errors.New("unknown project format")

// LoadProject reads a project from a .yml/.yaml or .cbor file.
func LoadProject(path string) (*Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}
	var p Project
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yml", ".yaml":
		err = yaml.Unmarshal(data, &p)
	case ".cbor":
		err = cbor.Unmarshal(data, &p)
	default:
		return nil, fmt.Errorf("%s: %w", path, ErrUnknownFormat)
	}
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid project %s: %w", path, err)
	}
	return &p, nil
}

// SaveProject writes the project in the format chosen by the extension.
func SaveProject(path string, p *Project) error {
	var data []byte
	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yml", ".yaml":
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err = enc.Encode(p); err == nil {
			err = enc.Close()
		}
		data = buf.Bytes()
	case ".cbor":
		data, err = cbor.Marshal(p)
	default:
		return fmt.Errorf("%s: %w", path, ErrUnknownFormat)
	}
	if err != nil {
		return fmt.Errorf("could not encode project: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks the structure of the project: unique voice names,
// placements referring to existing voices, bars inside the grid.
func (p *Project) Validate() error {
	names := map[string]bool{}
	for i, v := range p.Voices {
		if v.Name == "" {
			return fmt.Errorf("voice %d has no name", i)
		}
		if names[v.Name] {
			return fmt.Errorf("voice name %q used twice", v.Name)
		}
		names[v.Name] = true
		if v.Length <= 0 {
			return fmt.Errorf("voice %q: length must be positive", v.Name)
		}
	}
	for _, t := range p.Tracks {
		if !names[t.Voice] {
			return fmt.Errorf("track refers to unknown voice %q", t.Voice)
		}
		for _, b := range t.Bars {
			if b < 0 || b >= MaxBars {
				return fmt.Errorf("track %q: bar %d outside [0, %d)", t.Voice, b, MaxBars)
			}
		}
		if t.Pan < -1 || t.Pan > 1 {
			return fmt.Errorf("track %q: pan %v outside [-1, 1]", t.Voice, t.Pan)
		}
	}
	return nil
}

// Voice returns the voice with the given name.
func (p *Project) Voice(name string) (*VoiceSource, bool) {
	for i := range p.Voices {
		if p.Voices[i].Name == name {
			return &p.Voices[i], true
		}
	}
	return nil, false
}

// Gain returns the volume of the placement.
func (t Placement) Gain() float64 {
	if t.Vol == nil {
		return 1
	}
	return *t.Vol
}

// Apply overrides the tempo and loop window of the settings with the ones
// of the project, where given.
func (p *Project) Apply(s Settings) Settings {
	if p.BPM > 0 {
		s.BPM = p.BPM
	}
	if p.LoopEnd > p.LoopStart {
		s.LoopStart, s.LoopEnd = p.LoopStart, p.LoopEnd
	}
	return s
}

// MaxBars is the number of slots on the player's bar grid.
const MaxBars = 256

// LoadSamples reads a file of raw little-endian float32 mono samples.
func LoadSamples(path string) ([]float32, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("%s: size %d is not a multiple of 4", path, len(data))
	}
	ret := make([]float32, len(data)/4)
	for i := range ret {
		ret[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[4*i:]))
	}
	return ret, nil
}
