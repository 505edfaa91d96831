package loopvm_test

import (
	"encoding/binary"
	"errors"
	"math"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/loopvm/loopvm"
)

const projectYAML = `bpm: 140
loopstart: 0
loopend: 4
voices:
  - name: bass
    literals: [0.5, 110]
    setup: |
      CreateGen saw
      CreateAudios 1
    run: |
      SetProperty 0 freq lit:1
      SetProperty 0 gain lit:0
      ProcessAudio 0 audio:0
    out: audio:0
    length: 2
    notes:
      - {pitch: 45, time: 0, length: 0.5, velocity: 1}
tracks:
  - voice: bass
    bars: [0, 2]
    pan: -0.5
`

func TestLoadProjectYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "song.yml")
	if err := os.WriteFile(path, []byte(projectYAML), 0644); err != nil {
		t.Fatal(err)
	}
	p, err := loopvm.LoadProject(path)
	if err != nil {
		t.Fatalf("LoadProject failed: %v", err)
	}
	if p.BPM != 140 || len(p.Voices) != 1 || len(p.Tracks) != 1 {
		t.Fatalf("unexpected project %+v", p)
	}
	v, ok := p.Voice("bass")
	if !ok {
		t.Fatalf("voice bass not found")
	}
	if v.Length != 2 || len(v.Notes) != 1 || v.Notes[0].Pitch != 45 {
		t.Fatalf("unexpected voice %+v", v)
	}
	if g := p.Tracks[0].Gain(); g != 1 {
		t.Fatalf("missing vol should mean unity gain, got %v", g)
	}
	s := p.Apply(loopvm.DefaultSettings())
	if s.BPM != 140 || s.LoopEnd != 4 {
		t.Fatalf("project did not override the settings: %+v", s)
	}
}

func TestProjectCBORKeepsContents(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "song.yml")
	if err := os.WriteFile(src, []byte(projectYAML), 0644); err != nil {
		t.Fatal(err)
	}
	p, err := loopvm.LoadProject(src)
	if err != nil {
		t.Fatal(err)
	}
	dst := filepath.Join(dir, "song.cbor")
	if err := loopvm.SaveProject(dst, p); err != nil {
		t.Fatalf("SaveProject failed: %v", err)
	}
	q, err := loopvm.LoadProject(dst)
	if err != nil {
		t.Fatalf("LoadProject(cbor) failed: %v", err)
	}
	if !reflect.DeepEqual(p, q) {
		t.Fatalf("cbor copy differs:\n%+v\n%+v", p, q)
	}
}

func TestProjectValidation(t *testing.T) {
	vol := 0.5
	cases := map[string]loopvm.Project{
		"unnamed":     {Voices: []loopvm.VoiceSource{{Length: 1}}},
		"duplicate":   {Voices: []loopvm.VoiceSource{{Name: "a", Length: 1}, {Name: "a", Length: 1}}},
		"zero length": {Voices: []loopvm.VoiceSource{{Name: "a"}}},
		"unknown":     {Voices: []loopvm.VoiceSource{{Name: "a", Length: 1}}, Tracks: []loopvm.Placement{{Voice: "b"}}},
		"bar":         {Voices: []loopvm.VoiceSource{{Name: "a", Length: 1}}, Tracks: []loopvm.Placement{{Voice: "a", Bars: []int{loopvm.MaxBars}, Vol: &vol}}},
		"pan":         {Voices: []loopvm.VoiceSource{{Name: "a", Length: 1}}, Tracks: []loopvm.Placement{{Voice: "a", Pan: 2}}},
	}
	for name, p := range cases {
		t.Run(name, func(t *testing.T) {
			if err := p.Validate(); err == nil {
				t.Fatalf("expected an error")
			}
		})
	}
}

func TestUnknownProjectFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "song.json")
	if err := os.WriteFile(path, []byte("{}"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := loopvm.LoadProject(path); !errors.Is(err, loopvm.ErrUnknownFormat) {
		t.Fatalf("expected ErrUnknownFormat, got %v", err)
	}
}

func TestLoadSamples(t *testing.T) {
	want := []float32{0, 0.5, -1, 0.25}
	data := make([]byte, 0, 16)
	for _, x := range want {
		data = binary.LittleEndian.AppendUint32(data, math.Float32bits(x))
	}
	path := filepath.Join(t.TempDir(), "kick.raw")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
	got, err := loopvm.LoadSamples(path)
	if err != nil {
		t.Fatalf("LoadSamples failed: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, expected %v", got, want)
	}
	if err := os.WriteFile(path, data[:5], 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := loopvm.LoadSamples(path); err == nil {
		t.Fatalf("expected an error for a truncated file")
	}
}
