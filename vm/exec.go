package vm

import (
	"github.com/chewxy/math32"
)

// Exec runs the program from word begin until it reaches OpEnd or the next
// instruction would not fit before word end. It returns the position where
// it stopped.
//
// Exec trusts the program completely: unknown opcodes, missing operands and
// references to unallocated slots panic or corrupt the context. Programs
// from outside should go through Validate once, or be run with ExecChecked.
func Exec(c *Context, b *Bank, prog Program, begin, end int) int {
	pc := begin
	for pc < end {
		op := Opcode(prog[pc])
		if op == OpEnd {
			return pc
		}
		next := pc + 1 + arity[op]
		if next > end {
			return pc
		}
		execOp(c, b, op, prog[pc+1:next])
		pc = next
	}
	return pc
}

// ExecChecked validates the program against the context before running it.
func ExecChecked(c *Context, b *Bank, prog Program, begin, end int) (int, error) {
	if err := Validate(c, prog); err != nil {
		return begin, err
	}
	return Exec(c, b, prog, begin, end), nil
}

func execOp(c *Context, b *Bank, op Opcode, a []int32) {
	switch op {
	case OpCreateGen:
		b.create(c.numGens, GenKind(a[0]))
		c.numGens++
	case OpCreateAudios:
		for i := int32(0); i < a[0]; i++ {
			c.CreateAudio()
		}
	case OpCreateValues:
		for i := int32(0); i < a[0]; i++ {
			c.newDynamic()
		}
	case OpAudioToScalar:
		c.scalars[a[1]] = c.mean(Audio(int(a[0])))
	case OpLiteralToAudio:
		x := c.literals[a[0]]
		dst := c.audios[a[1]][c.Begin:c.End]
		for i := range dst {
			dst[i] = x
		}
	case OpPick:
		pick(c, a[0], a[1], ValueOf(a[2]), a[3])
	case OpPan:
		c.Pan = c.Scalar(ValueOf(a[0]))
	case OpSetValue:
		c.scalars[a[0]] = c.Scalar(ValueOf(a[1]))
	case OpSetValueDynamic:
		c.copyInto(a[0], ValueOf(a[1]))
	case OpSetProperty:
		b.setProperty(int(a[0]), int(a[1]), Value{Kind: Kind(a[2]), Index: a[3]})
	case OpUpdateGen:
		b.update(int(a[0]), c)
	case OpProcessAudio:
		b.process(int(a[0]), c, c.audios[a[1]][c.Begin:c.End], nil)
	case OpProcessAudioStereo:
		b.process(int(a[0]), c, c.audios[a[1]][c.Begin:c.End], c.audios[a[2]][c.Begin:c.End])
	case OpBinaryOp:
		binaryOp(c, BinOp(a[0]), ValueOf(a[1]), ValueOf(a[2]), a[3])
	}
}

// pick copies one entry of a list into out. Indices outside [0, length) are
// clamped to the nearest end; an empty list yields zero.
func pick(c *Context, list, length int32, index Value, out int32) {
	if length <= 0 {
		c.setScalarResult(out, 0)
		return
	}
	x := math32.Floor(c.Scalar(index))
	i := int32(0)
	switch {
	case x != x: // NaN
	case x >= float32(length):
		i = length - 1
	case x > 0:
		i = int32(x)
	}
	c.copyInto(out, c.lists[list][i])
}
