package vm

import "fmt"

// Builder appends instructions to a program and keeps track of the slots
// its Create* instructions will allocate, so that callers get handles to
// refer to them. A builder for a run program can be seeded with the handles
// of the matching setup program with Continue.
type Builder struct {
	words  Program
	kinds  []GenKind
	audios int
	values int
	err    error
}

// NewBuilder returns a builder for a program that starts on a freshly
// prepared context.
func NewBuilder() *Builder {
	return &Builder{}
}

// Continue returns a builder whose handles continue from where b left off;
// used to build the run program after the setup program.
func (b *Builder) Continue() *Builder {
	return &Builder{kinds: append([]GenKind(nil), b.kinds...), audios: b.audios, values: b.values}
}

// op appends an opcode and its operands.
func (b *Builder) op(op Opcode, operands ...int32) {
	if len(operands) != arity[op] {
		b.fail(fmt.Errorf("%v takes %d operands, got %d", op, arity[op], len(operands)))
	}
	b.words = append(b.words, int32(op))
	b.words = append(b.words, operands...)
}

func (b *Builder) fail(err error) {
	if b.err == nil {
		b.err = err
	}
}

// CreateGen appends a CreateGen and returns the handle of the new generator.
func (b *Builder) CreateGen(kind GenKind) int {
	b.op(OpCreateGen, int32(kind))
	b.kinds = append(b.kinds, kind)
	return len(b.kinds) - 1
}

// CreateAudios reserves n audio buffers and returns the first one; the rest
// follow with consecutive indices.
func (b *Builder) CreateAudios(n int) Value {
	b.op(OpCreateAudios, int32(n))
	b.audios += n
	return Audio(b.audios - n)
}

// CreateValues reserves n dynamic values and returns the first one.
func (b *Builder) CreateValues(n int) Value {
	b.op(OpCreateValues, int32(n))
	b.values += n
	return Dynamic(b.values - n)
}

func (b *Builder) AudioToScalar(audio, out Value) {
	b.op(OpAudioToScalar, audio.Index, out.Index)
}

func (b *Builder) LiteralToAudio(literal, out Value) {
	b.op(OpLiteralToAudio, literal.Index, out.Index)
}

func (b *Builder) Pick(list Value, length int, index, out Value) {
	b.op(OpPick, list.Index, int32(length), index.Word(), out.Index)
}

func (b *Builder) Pan(v Value) {
	b.op(OpPan, v.Word())
}

func (b *Builder) SetValue(out, v Value) {
	b.op(OpSetValue, out.Index, v.Word())
}

func (b *Builder) SetValueDynamic(out, v Value) {
	b.op(OpSetValueDynamic, out.Index, v.Word())
}

func (b *Builder) SetProperty(gen, slot int, v Value) {
	b.op(OpSetProperty, int32(gen), int32(slot), int32(v.Kind), v.Index)
}

// Set binds a property by name, looking the slot up from the generator's
// kind.
func (b *Builder) Set(gen int, name string, v Value) {
	if gen < 0 || gen >= len(b.kinds) {
		b.fail(fmt.Errorf("no generator %d", gen))
		return
	}
	slot, ok := b.kinds[gen].Prop(name)
	if !ok {
		b.fail(fmt.Errorf("%v has no property %q", b.kinds[gen], name))
		return
	}
	b.SetProperty(gen, slot, v)
}

func (b *Builder) UpdateGen(gen int) {
	b.op(OpUpdateGen, int32(gen))
}

func (b *Builder) ProcessAudio(gen int, out Value) {
	b.op(OpProcessAudio, int32(gen), out.Index)
}

func (b *Builder) ProcessAudioStereo(gen int, out0, out1 Value) {
	b.op(OpProcessAudioStereo, int32(gen), out0.Index, out1.Index)
}

func (b *Builder) BinaryOp(op BinOp, lhs, rhs, out Value) {
	b.op(OpBinaryOp, int32(op), lhs.Word(), rhs.Word(), out.Index)
}

// Program returns the instructions followed by the End terminator.
func (b *Builder) Program() (Program, error) {
	if b.err != nil {
		return nil, b.err
	}
	ret := make(Program, len(b.words)+1)
	copy(ret, b.words)
	return ret, nil
}
