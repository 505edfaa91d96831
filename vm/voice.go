package vm

import (
	"encoding/binary"
	"fmt"

	"github.com/zeebo/xxh3"
)

type (
	// VoiceProgram is everything the compiler produces for one voice: the
	// constant pool, lists for Pick, sample tables, the setup and run
	// programs and the values that carry the voice's output.
	VoiceProgram struct {
		Literals []float32
		Lists    [][]Value
		Samples  [][]float32
		Setup    Program
		Run      Program
		Out      Value
		OutRight Value // Null for a mono voice
	}

	// Voice is a compiled VoiceProgram together with the context and
	// generators it runs on.
	Voice struct {
		Context *Context
		Bank    *Bank

		program   VoiceProgram
		setupHash uint64
		compiled  bool

		spareContext *Context
		spareBank    *Bank
	}
)

// NewVoice returns a voice with nothing compiled; it renders silence.
func NewVoice() *Voice {
	return &Voice{Context: NewContext(), Bank: NewBank()}
}

// Compile replaces the programs of the voice. If the setup program and the
// sizes of the pools are unchanged, only the pool contents and the run
// program are replaced and the generators keep their state. Otherwise the
// voice is rebuilt on a fresh context and the setup program is run.
//
// Compile validates everything before touching the voice: on error, the
// previously compiled programs stay in place. The returned bool tells
// whether the voice was rebuilt.
func (v *Voice) Compile(p VoiceProgram) (rebuilt bool, err error) {
	hash := structureHash(p)
	if v.compiled && hash == v.setupHash {
		return false, v.swapRun(p)
	}
	if err := v.rebuild(p); err != nil {
		return false, err
	}
	v.setupHash = hash
	return true, nil
}

// Restart rebuilds the voice from its current program, dropping all
// generator state.
func (v *Voice) Restart() error {
	if !v.compiled {
		return nil
	}
	return v.rebuild(v.program)
}

// Program returns the currently compiled program.
func (v *Voice) Program() VoiceProgram {
	return v.program
}

func (v *Voice) swapRun(p VoiceProgram) error {
	c := v.Context
	var listLens [MaxLists]int
	for i, l := range p.Lists {
		if len(l) > MaxListLength {
			return fmt.Errorf("list %d has %d values, at most %d allowed: %w", i, len(l), MaxListLength, ErrCapacity)
		}
		listLens[i] = len(l)
	}
	val := validator{counts: c.Counts(), listLens: &listLens}
	if err := val.program(p.Run); err != nil {
		return fmt.Errorf("run program: %w", err)
	}
	if err := val.outputs(p); err != nil {
		return err
	}
	for i, x := range p.Literals {
		c.literals[i] = x
	}
	for i, l := range p.Lists {
		copy(c.lists[i][:], l)
		c.listLens[i] = len(l)
	}
	for i, s := range p.Samples {
		c.floats[i] = s
	}
	v.program = p
	return nil
}

func (v *Voice) rebuild(p VoiceProgram) error {
	c, b := v.spareContext, v.spareBank
	if c == nil {
		c, b = NewContext(), NewBank()
	}
	c.Prepare()
	b.Reset()
	c.Begin, c.End = 0, BufferSize
	for i := 0; i < MaxVoices; i++ {
		c.SetVoice(i, 0, 0, -1, 0)
	}
	for _, x := range p.Literals {
		if _, err := c.CreateLiteral(x); err != nil {
			return err
		}
	}
	for _, l := range p.Lists {
		if _, err := c.CreateList(l); err != nil {
			return err
		}
	}
	for _, s := range p.Samples {
		if _, err := c.CreateFloats(s); err != nil {
			return err
		}
	}
	if _, err := ExecChecked(c, b, p.Setup, 0, len(p.Setup)); err != nil {
		return fmt.Errorf("setup program: %w", err)
	}
	if err := Validate(c, p.Run); err != nil {
		return fmt.Errorf("run program: %w", err)
	}
	val := validator{counts: c.Counts(), listLens: &c.listLens}
	if err := val.outputs(p); err != nil {
		return err
	}
	v.spareContext, v.spareBank = v.Context, v.Bank
	v.Context, v.Bank = c, b
	v.program = p
	v.compiled = true
	return nil
}

func (v *validator) outputs(p VoiceProgram) error {
	if err := v.value(p.Out); err != nil {
		return fmt.Errorf("output: %w", err)
	}
	if err := v.value(p.OutRight); err != nil {
		return fmt.Errorf("right output: %w", err)
	}
	return nil
}

// structureHash covers what forces a rebuild: the setup program and the
// number of entries in each pool.
func structureHash(p VoiceProgram) uint64 {
	buf := make([]byte, 0, 4*(len(p.Setup)+3))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(p.Literals)))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(p.Lists)))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(p.Samples)))
	for _, w := range p.Setup {
		buf = binary.LittleEndian.AppendUint32(buf, uint32(w))
	}
	return xxh3.Hash(buf)
}
