package vm

import (
	"errors"
	"fmt"
)

// ErrMalformed is returned for programs the dispatcher must not run.
var ErrMalformed = errors.New("malformed program")

// Validate checks a program against the current allocations of the context
// without running it. Allocations made by the program's own Create* opcodes
// are tracked, so a setup program can be validated on a freshly prepared
// context. The checks are the ones Exec leaves out: opcode range, operand
// count, terminator within MaxOps words, and every index referring to an
// allocated slot.
func Validate(c *Context, prog Program) error {
	v := validator{counts: c.Counts(), listLens: &c.listLens}
	return v.program(prog)
}

func (v *validator) program(prog Program) error {
	for pc := 0; ; {
		if pc >= len(prog) || pc >= MaxOps {
			return fmt.Errorf("no End opcode within %d words: %w", min(len(prog), MaxOps), ErrMalformed)
		}
		op := Opcode(prog[pc])
		if op == OpEnd {
			return nil
		}
		if op < 0 || op >= NumOpcodes {
			return fmt.Errorf("word %d: unknown opcode %d: %w", pc, int32(op), ErrMalformed)
		}
		info := &opTable[op]
		next := pc + 1 + len(info.operands)
		if next > len(prog) {
			return fmt.Errorf("word %d: %v needs %d operands, program has %d words left: %w", pc, op, len(info.operands), len(prog)-pc-1, ErrMalformed)
		}
		args := prog[pc+1 : next]
		for i, kind := range info.operands {
			if err := v.operand(kind, args, i); err != nil {
				return fmt.Errorf("word %d: %v operand %d: %w", pc, op, i, err)
			}
		}
		if err := v.allocate(op, args); err != nil {
			return fmt.Errorf("word %d: %v: %w", pc, op, err)
		}
		pc = next
	}
}

type validator struct {
	counts   Counts
	listLens *[MaxLists]int
}

func (v *validator) operand(kind operandKind, args []int32, i int) error {
	x := args[i]
	switch kind {
	case operandGenKind:
		return inRange("generator kind", x, int(NumGenKinds))
	case operandCount:
		return inRange("count", x, MaxOps)
	case operandGen:
		return inRange("generator", x, v.counts.Gens)
	case operandAudio:
		return inRange("audio", x, v.counts.Audios)
	case operandScalar:
		return inRange("scalar", x, NumReservedScalars+v.counts.Scalars)
	case operandLiteral:
		return inRange("literal", x, v.counts.Literals)
	case operandList:
		return inRange("list", x, v.counts.Lists)
	case operandLength:
		return inRange("list length", x, v.listLens[args[i-1]]+1)
	case operandValue:
		return v.value(ValueOf(x))
	case operandDynamic:
		return inRange("dynamic value", x, v.counts.Values)
	case operandProp:
		return inRange("property slot", x, MaxProps)
	case operandKindTag:
		return inRange("value kind", x, int(NumKinds))
	case operandPropIndex:
		return v.value(Value{Kind: Kind(args[i-1]), Index: x})
	case operandBinOp:
		return inRange("binary operation", x, int(NumBinOps))
	}
	return nil
}

func (v *validator) value(val Value) error {
	switch val.Kind {
	case KindNull, KindI32:
		return nil
	case KindFloats:
		return inRange("floats", val.Index, v.counts.Floats)
	case KindLiteral:
		return inRange("literal", val.Index, v.counts.Literals)
	case KindScalar:
		return inRange("scalar", val.Index, NumReservedScalars+v.counts.Scalars)
	case KindAudio:
		return inRange("audio", val.Index, v.counts.Audios)
	case KindDynamic:
		return inRange("dynamic value", val.Index, v.counts.Values)
	}
	return fmt.Errorf("unknown value kind %d: %w", val.Kind, ErrMalformed)
}

func (v *validator) allocate(op Opcode, args []int32) error {
	switch op {
	case OpCreateGen:
		if v.counts.Gens >= MaxGens {
			return fmt.Errorf("generators (%d): %w", MaxGens, ErrCapacity)
		}
		v.counts.Gens++
	case OpCreateAudios:
		v.counts.Audios += int(args[0])
	case OpCreateValues:
		if v.counts.Values+int(args[0]) > MaxValues {
			return fmt.Errorf("dynamic values (%d): %w", MaxValues, ErrCapacity)
		}
		v.counts.Values += int(args[0])
	}
	return nil
}

func inRange(what string, x int32, n int) error {
	if x < 0 || int(x) >= n {
		return fmt.Errorf("%s %d out of range [0, %d): %w", what, x, n, ErrMalformed)
	}
	return nil
}
