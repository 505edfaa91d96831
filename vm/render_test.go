package vm_test

import (
	"errors"
	"math"
	"testing"

	"github.com/loopvm/loopvm"
	"github.com/loopvm/loopvm/vm"
)

func compile(t *testing.T, v *vm.Voice, literals []float32, setup, run, out string) bool {
	t.Helper()
	s, r, err := vm.AssemblePair(setup, run)
	if err != nil {
		t.Fatalf("AssemblePair failed: %v", err)
	}
	o, err := vm.ParseValue(out)
	if err != nil {
		t.Fatal(err)
	}
	rebuilt, err := v.Compile(vm.VoiceProgram{Literals: literals, Setup: s, Run: r, Out: o})
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	return rebuilt
}

const counterSetup = "CreateValues 1"
const counterRun = "BinaryOp add dyn:0 i32:1 dyn:0"

func TestRenderRunsOncePerChunk(t *testing.T) {
	v := vm.NewVoice()
	compile(t, v, nil, counterSetup, counterRun, "dyn:0")
	clock := loopvm.NewClock(48000, 120, 16)
	dst := make([]float32, 256)
	v.Render(clock, nil, dst, 0, 256)
	if got := v.Context.Scalar(vm.Dynamic(0)); got != 4 {
		t.Fatalf("256 samples ran the program %v times, expected 4", got)
	}
	// the output is copied after each 128 sample span
	if dst[0] != 2 || dst[255] != 4 {
		t.Fatalf("output %v ... %v, expected 2 ... 4", dst[0], dst[255])
	}
	if math.Abs(clock.Time-256.0/48000) > 1e-12 {
		t.Fatalf("clock advanced to %v", clock.Time)
	}
}

func TestRenderShortLastChunk(t *testing.T) {
	v := vm.NewVoice()
	compile(t, v, nil, counterSetup, counterRun, "dyn:0")
	clock := loopvm.NewClock(48000, 120, 16)
	dst := make([]float32, 100)
	v.Render(clock, nil, dst, 0, 100)
	if got := v.Context.Scalar(vm.Dynamic(0)); got != 2 {
		t.Fatalf("100 samples ran the program %v times, expected 2", got)
	}
	if math.Abs(clock.Time-100.0/48000) > 1e-12 {
		t.Fatalf("clock advanced to %v", clock.Time)
	}
}

func TestRenderCopiesAudio(t *testing.T) {
	v := vm.NewVoice()
	compile(t, v, []float32{0.25}, "CreateAudios 1", "LiteralToAudio lit:0 audio:0", "audio:0")
	clock := loopvm.NewClock(48000, 120, 16)
	dst := make([]float32, 200)
	v.Render(clock, nil, dst, 1000, 1200)
	for i, x := range dst {
		if x != 0.25 {
			t.Fatalf("sample %d: %v", i, x)
		}
	}
}

func TestSevenOnsetsFillSixVoices(t *testing.T) {
	v := vm.NewVoice()
	compile(t, v, nil, "", "", "null")
	var notes loopvm.Notes
	for i := 0; i < 7; i++ {
		notes = append(notes, loopvm.Note{Pitch: float64(60 + i), Velocity: 1})
	}
	clock := loopvm.NewClock(48000, 120, 16)
	v.Render(clock, notes, make([]float32, vm.ChunkSize), 0, vm.ChunkSize)
	for i := 0; i < vm.MaxVoices; i++ {
		n, f, tm, vel := v.Context.Voice(i)
		if n != float32(60+i) || tm != 0 || vel != 1 {
			t.Fatalf("voice %d: note %v time %v velocity %v", i, n, tm, vel)
		}
		if want := float32(loopvm.PitchToFrequency(float64(60 + i))); f != want {
			t.Fatalf("voice %d: frequency %v, expected %v", i, f, want)
		}
	}
}

func TestOnsetsAreRefreshedPerChunk(t *testing.T) {
	v := vm.NewVoice()
	compile(t, v, nil, "", "", "null")
	clock := loopvm.NewClock(48000, 120, 16)
	onset := 130 * clock.BarTimeStep
	notes := loopvm.Notes{{Pitch: 69, Time: onset, Length: 1, Velocity: 0.5}}
	v.Render(clock, notes, make([]float32, 128), 0, 128)
	if _, _, tm, _ := v.Context.Voice(0); tm != -1 {
		t.Fatalf("note appeared before its chunk, time %v", tm)
	}
	v.Render(clock, notes, make([]float32, 128), 128, 256)
	if n, _, tm, _ := v.Context.Voice(0); n != 69 || tm != float32(onset) {
		t.Fatalf("note missing after its chunk: %v %v", n, tm)
	}
}

func TestHotSwapKeepsState(t *testing.T) {
	v := vm.NewVoice()
	if !compile(t, v, nil, counterSetup, counterRun, "dyn:0") {
		t.Fatalf("first compile should build the voice")
	}
	clock := loopvm.NewClock(48000, 120, 16)
	dst := make([]float32, 128)
	v.Render(clock, nil, dst, 0, 128)
	if compile(t, v, nil, counterSetup, "BinaryOp add dyn:0 i32:10 dyn:0", "dyn:0") {
		t.Fatalf("same setup should not rebuild")
	}
	v.Render(clock, nil, dst, 0, 64)
	if got := v.Context.Scalar(vm.Dynamic(0)); got != 12 {
		t.Fatalf("state lost over hot swap: %v", got)
	}

	bad, _ := vm.Assemble("BinaryOp add dyn:5 i32:1 dyn:5")
	setup, _ := vm.Assemble(counterSetup)
	if _, err := v.Compile(vm.VoiceProgram{Setup: setup, Run: bad, Out: vm.Dynamic(0)}); err == nil {
		t.Fatalf("expected a validation error")
	}
	v.Render(clock, nil, dst, 0, 64)
	if got := v.Context.Scalar(vm.Dynamic(0)); got != 22 {
		t.Fatalf("failed compile should keep the old run program, got %v", got)
	}

	if !compile(t, v, nil, "CreateValues 2", counterRun, "dyn:0") {
		t.Fatalf("changed setup should rebuild")
	}
	if got := v.Context.Scalar(vm.Dynamic(0)); got != 0 {
		t.Fatalf("rebuild should start from fresh state, got %v", got)
	}
}

func TestHotSwapLiterals(t *testing.T) {
	v := vm.NewVoice()
	compile(t, v, []float32{0.25}, "CreateAudios 1", "LiteralToAudio lit:0 audio:0", "audio:0")
	if compile(t, v, []float32{0.5}, "CreateAudios 1", "LiteralToAudio lit:0 audio:0", "audio:0") {
		t.Fatalf("same pool sizes should not rebuild")
	}
	dst := make([]float32, 64)
	v.Render(loopvm.NewClock(48000, 120, 16), nil, dst, 0, 64)
	if dst[0] != 0.5 {
		t.Fatalf("new literal not used: %v", dst[0])
	}
}

func TestHotSwapLists(t *testing.T) {
	v := vm.NewVoice()
	compileLists := func(lists [][]vm.Value, run string) error {
		s, r, err := vm.AssemblePair("CreateValues 1", run)
		if err != nil {
			t.Fatalf("AssemblePair failed: %v", err)
		}
		_, err = v.Compile(vm.VoiceProgram{Lists: lists, Setup: s, Run: r, Out: vm.Dynamic(0)})
		return err
	}
	pick := func() float32 {
		v.Render(loopvm.NewClock(48000, 120, 16), nil, make([]float32, 64), 0, 64)
		return v.Context.Scalar(vm.Dynamic(0))
	}
	if err := compileLists([][]vm.Value{{vm.I32(5), vm.I32(7)}}, "Pick list:0 2 i32:1 dyn:0"); err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	if got := pick(); got != 7 {
		t.Fatalf("picked %v, expected 7", got)
	}
	longer := [][]vm.Value{{vm.I32(1), vm.I32(2), vm.I32(3), vm.I32(4)}}
	if err := compileLists(longer, "Pick list:0 4 i32:3 dyn:0"); err != nil {
		t.Fatalf("a longer list should be accepted on hot swap: %v", err)
	}
	if got := pick(); got != 4 {
		t.Fatalf("picked %v, expected 4", got)
	}
	tooLong := [][]vm.Value{make([]vm.Value, vm.MaxListLength+4)}
	if err := compileLists(tooLong, "Pick list:0 4 i32:3 dyn:0"); !errors.Is(err, vm.ErrCapacity) {
		t.Fatalf("expected ErrCapacity for a list of %d values, got %v", vm.MaxListLength+4, err)
	}
	if err := compileLists(longer, "Pick list:0 5 i32:3 dyn:0"); !errors.Is(err, vm.ErrMalformed) {
		t.Fatalf("expected ErrMalformed for a Pick past the list, got %v", err)
	}
	if got := pick(); got != 4 {
		t.Fatalf("rejected swaps should keep the previous lists, picked %v", got)
	}
}

func TestFailedRebuildKeepsVoice(t *testing.T) {
	v := vm.NewVoice()
	compile(t, v, nil, counterSetup, counterRun, "dyn:0")
	bad, _ := vm.Assemble("CreateGen 99")
	if _, err := v.Compile(vm.VoiceProgram{Setup: bad, Run: vm.Program{0}}); err == nil {
		t.Fatalf("expected an error")
	}
	v.Render(loopvm.NewClock(48000, 120, 16), nil, make([]float32, 64), 0, 64)
	if got := v.Context.Scalar(vm.Dynamic(0)); got != 1 {
		t.Fatalf("old voice not kept: %v", got)
	}
}

func TestRestart(t *testing.T) {
	v := vm.NewVoice()
	compile(t, v, nil, counterSetup, counterRun, "dyn:0")
	v.Render(loopvm.NewClock(48000, 120, 16), nil, make([]float32, 256), 0, 256)
	if err := v.Restart(); err != nil {
		t.Fatal(err)
	}
	if got := v.Context.Scalar(vm.Dynamic(0)); got != 0 {
		t.Fatalf("restart kept state: %v", got)
	}
}

func TestRenderStereo(t *testing.T) {
	v := vm.NewVoice()
	setup, run, err := vm.AssemblePair("CreateGen unison\nCreateAudios 2", "SetProperty 0 freq lit:0\nProcessAudioStereo 0 audio:0 audio:1")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := v.Compile(vm.VoiceProgram{Literals: []float32{110}, Setup: setup, Run: run, Out: vm.Audio(0), OutRight: vm.Audio(1)}); err != nil {
		t.Fatal(err)
	}
	l, r := make([]float32, 512), make([]float32, 512)
	v.RenderStereo(loopvm.NewClock(48000, 120, 16), nil, l, r, 0, 512)
	var differ, nonzero bool
	for i := range l {
		differ = differ || l[i] != r[i]
		nonzero = nonzero || l[i] != 0
	}
	if !nonzero || !differ {
		t.Fatalf("expected a non-silent stereo signal (nonzero %v, differ %v)", nonzero, differ)
	}
}
