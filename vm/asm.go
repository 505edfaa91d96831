package vm

import (
	"fmt"
	"strconv"
	"strings"
)

// Assemble parses the text form of a program: one instruction per line, the
// opcode name followed by its operands, separated by spaces or commas. '#'
// starts a comment. The End terminator is appended automatically.
//
// Values are written kind:index, e.g. lit:0, scalar:30, audio:2, dyn:1,
// i32:3, floats:0 or null. The reserved registers have names: sr, t, rt, co
// for the globals and n0, f0, t0, v0 ... n5, f5, t5, v5 for the voices.
// SetProperty takes the generator, the property (slot number or name) and a
// value.
func Assemble(text string) (Program, error) {
	var a assembler
	return a.assemble(text)
}

// AssemblePair assembles a setup and a run program. Properties in the run
// program can be named after generators created by the setup program.
func AssemblePair(setup, run string) (Program, Program, error) {
	var a assembler
	s, err := a.assemble(setup)
	if err != nil {
		return nil, nil, fmt.Errorf("setup: %w", err)
	}
	a.words = nil
	r, err := a.assemble(run)
	if err != nil {
		return nil, nil, fmt.Errorf("run: %w", err)
	}
	return s, r, nil
}

func (a *assembler) assemble(text string) (Program, error) {
	for lineNo, line := range strings.Split(text, "\n") {
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		fields := strings.FieldsFunc(line, func(r rune) bool { return r == ' ' || r == '\t' || r == ',' || r == '\r' })
		if len(fields) == 0 {
			continue
		}
		if err := a.instruction(fields); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo+1, err)
		}
	}
	return append(a.words, int32(OpEnd)), nil
}

type assembler struct {
	words Program
	kinds []GenKind
}

func (a *assembler) instruction(fields []string) error {
	op, ok := OpcodeByName(fields[0])
	if !ok {
		return fmt.Errorf("unknown opcode %q", fields[0])
	}
	if op == OpEnd {
		return fmt.Errorf("End is implicit")
	}
	args := fields[1:]
	want := arity[op]
	if op == OpSetProperty {
		want = 3
	}
	if len(args) != want {
		return fmt.Errorf("%v takes %d operands, got %d", op, want, len(args))
	}
	a.words = append(a.words, int32(op))
	if op == OpSetProperty {
		return a.setProperty(args)
	}
	for i, kind := range opTable[op].operands {
		w, err := a.operand(kind, args[i])
		if err != nil {
			return fmt.Errorf("%v operand %d: %w", op, i, err)
		}
		a.words = append(a.words, w)
	}
	if op == OpCreateGen {
		a.kinds = append(a.kinds, GenKind(a.words[len(a.words)-1]))
	}
	return nil
}

func (a *assembler) setProperty(args []string) error {
	gen, err := parseIndex(args[0], "gen")
	if err != nil {
		return err
	}
	slot, err := strconv.Atoi(args[1])
	if err != nil {
		if gen < 0 || int(gen) >= len(a.kinds) {
			return fmt.Errorf("property %q: generator %d was not created in this program, use a slot number", args[1], gen)
		}
		var ok bool
		if slot, ok = a.kinds[gen].Prop(args[1]); !ok {
			return fmt.Errorf("%v has no property %q", a.kinds[gen], args[1])
		}
	}
	v, err := ParseValue(args[2])
	if err != nil {
		return err
	}
	a.words = append(a.words, gen, int32(slot), int32(v.Kind), v.Index)
	return nil
}

func (a *assembler) operand(kind operandKind, s string) (int32, error) {
	switch kind {
	case operandGenKind:
		if k, ok := GenKindByName(s); ok {
			return int32(k), nil
		}
		return parseIndex(s, "")
	case operandBinOp:
		for i, n := range binOpNames {
			if strings.EqualFold(n, s) {
				return int32(i), nil
			}
		}
		return parseIndex(s, "")
	case operandValue:
		v, err := ParseValue(s)
		return v.Word(), err
	case operandScalar:
		if i, ok := registerNames[s]; ok {
			return int32(i), nil
		}
		return parseIndex(s, "scalar")
	case operandAudio:
		return parseIndex(s, "audio")
	case operandDynamic:
		return parseIndex(s, "dyn")
	case operandLiteral:
		return parseIndex(s, "lit")
	case operandList:
		return parseIndex(s, "list")
	case operandGen:
		return parseIndex(s, "gen")
	}
	return parseIndex(s, "")
}

var valuePrefixes = map[string]Kind{
	"i32": KindI32, "floats": KindFloats, "lit": KindLiteral, "literal": KindLiteral,
	"scalar": KindScalar, "audio": KindAudio, "dyn": KindDynamic, "dynamic": KindDynamic,
}

var registerNames = func() map[string]int {
	ret := map[string]int{"sr": ScalarSampleRate, "t": ScalarBarTime, "rt": ScalarRealTime, "co": ScalarCoeff}
	for v := 0; v < MaxVoices; v++ {
		for f, name := range []string{"n", "f", "t", "v"} {
			ret[name+strconv.Itoa(v)] = ScalarVoices + v*VoiceStride + f
		}
	}
	return ret
}()

var registerByIndex = func() (ret [NumReservedScalars]string) {
	for name, i := range registerNames {
		ret[i] = name
	}
	return
}()

// ParseValue parses the kind:index text form of a Value.
func ParseValue(s string) (Value, error) {
	if s == "null" {
		return Null, nil
	}
	if i, ok := registerNames[s]; ok {
		return Scalar(i), nil
	}
	prefix, index, ok := strings.Cut(s, ":")
	if !ok {
		return Null, fmt.Errorf("value %q is not of the form kind:index", s)
	}
	kind, ok := valuePrefixes[prefix]
	if !ok {
		return Null, fmt.Errorf("value %q has unknown kind %q", s, prefix)
	}
	i, err := strconv.ParseInt(index, 10, 32)
	if err != nil || i < 0 || i > indexMask {
		return Null, fmt.Errorf("value %q has invalid index", s)
	}
	return Value{Kind: kind, Index: int32(i)}, nil
}

// parseIndex accepts either a plain number or prefix:number.
func parseIndex(s, prefix string) (int32, error) {
	if prefix != "" {
		s = strings.TrimPrefix(s, prefix+":")
	}
	i, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", s)
	}
	return int32(i), nil
}

// Disassemble returns the text form of a program, up to its terminator.
// Words that do not form a complete instruction are printed as raw numbers.
func Disassemble(prog Program) string {
	var sb strings.Builder
	for pc := 0; pc < len(prog); {
		op := Opcode(prog[pc])
		if op == OpEnd {
			break
		}
		if op < 0 || op >= NumOpcodes || pc+1+arity[op] > len(prog) {
			fmt.Fprintf(&sb, "# %d\n", prog[pc])
			pc++
			continue
		}
		args := prog[pc+1 : pc+1+arity[op]]
		sb.WriteString(op.String())
		if op == OpSetProperty {
			fmt.Fprintf(&sb, " %d %d %v", args[0], args[1], formatValue(Value{Kind: Kind(args[2]), Index: args[3]}))
		} else {
			for i, kind := range opTable[op].operands {
				sb.WriteByte(' ')
				sb.WriteString(formatOperand(kind, args[i]))
			}
		}
		sb.WriteByte('\n')
		pc += 1 + arity[op]
	}
	return sb.String()
}

func formatOperand(kind operandKind, w int32) string {
	switch kind {
	case operandGenKind:
		return GenKind(w).String()
	case operandBinOp:
		return BinOp(w).String()
	case operandValue:
		return formatValue(ValueOf(w))
	case operandScalar:
		return formatValue(Scalar(int(w)))
	case operandAudio:
		return fmt.Sprintf("audio:%d", w)
	case operandDynamic:
		return fmt.Sprintf("dyn:%d", w)
	case operandLiteral:
		return fmt.Sprintf("lit:%d", w)
	case operandList:
		return fmt.Sprintf("list:%d", w)
	}
	return strconv.Itoa(int(w))
}

func formatValue(v Value) string {
	switch v.Kind {
	case KindNull:
		return "null"
	case KindScalar:
		if v.Index >= 0 && v.Index < NumReservedScalars {
			return registerByIndex[v.Index]
		}
		return fmt.Sprintf("scalar:%d", v.Index)
	case KindLiteral:
		return fmt.Sprintf("lit:%d", v.Index)
	case KindDynamic:
		return fmt.Sprintf("dyn:%d", v.Index)
	}
	return fmt.Sprintf("%v:%d", v.Kind, v.Index)
}
