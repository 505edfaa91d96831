package vm_test

import (
	"reflect"
	"strings"
	"testing"

	"github.com/loopvm/loopvm/vm"
)

const setupText = `
CreateGen sine        # oscillator
CreateGen envelope
CreateAudios 2
CreateValues 1
`

const runText = `
SetProperty 0 freq f0
SetProperty 1 sync t0
SetProperty 1 attack lit:0
ProcessAudio 0 audio:0
ProcessAudio 1 audio:1
BinaryOp mul, audio:0, audio:1, dyn:0
Pan lit:1
`

func TestAssembleMatchesBuilder(t *testing.T) {
	setup, run, err := vm.AssemblePair(setupText, runText)
	if err != nil {
		t.Fatalf("AssemblePair failed: %v", err)
	}
	bld := vm.NewBuilder()
	osc := bld.CreateGen(vm.GenSine)
	env := bld.CreateGen(vm.GenEnvelope)
	a := bld.CreateAudios(2)
	out := bld.CreateValues(1)
	wantSetup, _ := bld.Program()
	bld = bld.Continue()
	bld.Set(osc, "freq", vm.VoiceScalar(0, vm.VoiceFreq))
	bld.Set(env, "sync", vm.VoiceScalar(0, vm.VoiceTime))
	bld.Set(env, "attack", vm.Literal(0))
	bld.ProcessAudio(osc, a)
	bld.ProcessAudio(env, vm.Audio(int(a.Index)+1))
	bld.BinaryOp(vm.Mul, a, vm.Audio(int(a.Index)+1), out)
	bld.Pan(vm.Literal(1))
	wantRun, err := bld.Program()
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(setup, wantSetup) {
		t.Fatalf("setup:\n%v\n%v", setup, wantSetup)
	}
	if !reflect.DeepEqual(run, wantRun) {
		t.Fatalf("run:\n%v\n%v", run, wantRun)
	}
}

func TestDisassembleAssemble(t *testing.T) {
	_, run, err := vm.AssemblePair(setupText, runText)
	if err != nil {
		t.Fatal(err)
	}
	text := vm.Disassemble(run)
	again, err := vm.Assemble(text)
	if err != nil {
		t.Fatalf("could not assemble the disassembly:\n%s\n%v", text, err)
	}
	if !reflect.DeepEqual(run, again) {
		t.Fatalf("round trip changed the program:\n%s", text)
	}
	if !strings.Contains(text, "f0") || !strings.Contains(text, "dyn:0") {
		t.Fatalf("registers not named in the disassembly:\n%s", text)
	}
}

func TestAssembleErrors(t *testing.T) {
	for name, text := range map[string]string{
		"unknown opcode":   "Frobnicate 1",
		"explicit end":     "End",
		"operand count":    "CreateAudios 1 2",
		"bad value":        "Pan lit",
		"bad kind":         "Pan foo:1",
		"unnamed property": "SetProperty 0 freq lit:0",
		"unknown property": "CreateGen lfo\nSetProperty 0 cutoff lit:0",
	} {
		t.Run(name, func(t *testing.T) {
			if _, err := vm.Assemble(text); err == nil {
				t.Fatalf("expected an error")
			}
		})
	}
}
