package vm

import "fmt"

type (
	// Opcode is the first word of every instruction.
	Opcode int32

	// Program is a flat instruction stream: each opcode is followed by a
	// fixed number of operand words, and the stream ends with OpEnd.
	Program []int32

	// BinOp selects the operation of OpBinaryOp.
	BinOp int32

	// operandKind tells the validator what an operand refers to.
	operandKind int

	opInfo struct {
		name     string
		operands []operandKind
	}
)

const (
	OpEnd Opcode = iota
	OpCreateGen
	OpCreateAudios
	OpCreateValues
	OpAudioToScalar
	OpLiteralToAudio
	OpPick
	OpPan
	OpSetValue
	OpSetValueDynamic
	OpSetProperty
	OpUpdateGen
	OpProcessAudio
	OpProcessAudioStereo
	OpBinaryOp
	NumOpcodes
)

const (
	Add BinOp = iota
	Mul
	Sub
	Div
	Pow
	NumBinOps
)

const (
	operandGenKind operandKind = iota
	operandCount
	operandGen
	operandAudio
	operandScalar
	operandLiteral
	operandList
	operandLength
	operandValue // a packed Value word
	operandDynamic
	operandProp
	operandKindTag
	operandPropIndex // index whose store is given by the preceding kind tag
	operandBinOp
)

// opTable is the single description of the instruction set. Both the
// dispatcher and the validator derive operand counts from it.
var opTable = [NumOpcodes]opInfo{
	OpEnd:                {"End", nil},
	OpCreateGen:          {"CreateGen", []operandKind{operandGenKind}},
	OpCreateAudios:       {"CreateAudios", []operandKind{operandCount}},
	OpCreateValues:       {"CreateValues", []operandKind{operandCount}},
	OpAudioToScalar:      {"AudioToScalar", []operandKind{operandAudio, operandScalar}},
	OpLiteralToAudio:     {"LiteralToAudio", []operandKind{operandLiteral, operandAudio}},
	OpPick:               {"Pick", []operandKind{operandList, operandLength, operandValue, operandDynamic}},
	OpPan:                {"Pan", []operandKind{operandValue}},
	OpSetValue:           {"SetValue", []operandKind{operandScalar, operandValue}},
	OpSetValueDynamic:    {"SetValueDynamic", []operandKind{operandDynamic, operandValue}},
	OpSetProperty:        {"SetProperty", []operandKind{operandGen, operandProp, operandKindTag, operandPropIndex}},
	OpUpdateGen:          {"UpdateGen", []operandKind{operandGen}},
	OpProcessAudio:       {"ProcessAudio", []operandKind{operandGen, operandAudio}},
	OpProcessAudioStereo: {"ProcessAudioStereo", []operandKind{operandGen, operandAudio, operandAudio}},
	OpBinaryOp:           {"BinaryOp", []operandKind{operandBinOp, operandValue, operandValue, operandDynamic}},
}

// arity is the operand count of every opcode, precomputed from opTable for
// the dispatcher.
var arity = func() (ret [NumOpcodes]int) {
	for i, info := range opTable {
		ret[i] = len(info.operands)
	}
	return
}()

func (o Opcode) String() string {
	if o >= 0 && o < NumOpcodes {
		return opTable[o].name
	}
	return fmt.Sprintf("op(%d)", int32(o))
}

// Arity returns the number of operand words that follow the opcode.
func (o Opcode) Arity() int {
	return arity[o]
}

// OpcodeByName finds an opcode by its name.
func OpcodeByName(name string) (Opcode, bool) {
	for i, info := range opTable {
		if info.name == name {
			return Opcode(i), true
		}
	}
	return 0, false
}

var binOpNames = [NumBinOps]string{"Add", "Mul", "Sub", "Div", "Pow"}

func (o BinOp) String() string {
	if o >= 0 && o < NumBinOps {
		return binOpNames[o]
	}
	return fmt.Sprintf("binop(%d)", int32(o))
}
