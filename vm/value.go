package vm

import "fmt"

type (
	// Kind tells which store of the Context a Value points to.
	Kind uint8

	// Value is a handle to synthesis data living in a Context. Code outside
	// the Context never holds pointers to the data, only Values.
	Value struct {
		Kind  Kind
		Index int32
	}
)

const (
	KindNull    Kind = iota // no value, resolves to zero
	KindI32                 // immediate integer, Index is the value itself
	KindFloats              // external sample data
	KindLiteral             // constant pool entry
	KindScalar              // scalar register
	KindAudio               // audio buffer
	KindDynamic             // result slot that holds either a scalar or audio
	NumKinds
)

const (
	indexBits = 24
	indexMask = 1<<indexBits - 1
)

var kindNames = [NumKinds]string{"null", "i32", "floats", "literal", "scalar", "audio", "dynamic"}

// Null is the zero Value.
var Null = Value{}

func (k Kind) String() string {
	if k < NumKinds {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// KindByName returns the kind with the given name.
func KindByName(name string) (Kind, bool) {
	for i, n := range kindNames {
		if n == name {
			return Kind(i), true
		}
	}
	return KindNull, false
}

func (v Value) String() string {
	return fmt.Sprintf("%v[%d]", v.Kind, v.Index)
}

// Word packs the value into one program word: the kind goes in the top byte
// and the index in the low 24 bits.
func (v Value) Word() int32 {
	return int32(uint32(v.Kind)<<indexBits | uint32(v.Index)&indexMask)
}

// ValueOf unpacks a program word made by Value.Word.
func ValueOf(word int32) Value {
	return Value{Kind: Kind(uint32(word) >> indexBits), Index: word & indexMask}
}

// Literal, Scalar, Audio and Dynamic are shorthands for building Values.
func Literal(i int) Value { return Value{KindLiteral, int32(i)} }
func Scalar(i int) Value  { return Value{KindScalar, int32(i)} }
func Audio(i int) Value   { return Value{KindAudio, int32(i)} }
func Dynamic(i int) Value { return Value{KindDynamic, int32(i)} }
func I32(i int) Value     { return Value{KindI32, int32(i)} }

// IsScalarLike reports whether the value resolves to a single number without
// looking at the Context.
func (v Value) IsScalarLike() bool {
	switch v.Kind {
	case KindNull, KindI32, KindLiteral, KindScalar:
		return true
	}
	return false
}
