// Package tv implements the symbolic encoder at the core of a translation
// validator for a tensor/linear-algebra IR: given a function, it produces a
// symbolic value per result, a well-definedness predicate, and a symbolic
// memory state. See SPEC_FULL.md for the full component breakdown.
package tv

import "fmt"

// Standard bit-vector widths used throughout the encoder.
const (
	WidthBool = 1
	Width8    = 8
	Width16   = 16
	Width32   = 32
	Width64   = 64

	// IndexBits is the bit-width chosen for the Index sort (spec.md §3).
	IndexBits = 32
)

// Precision tags for the abstract Float value.
type Precision int

const (
	F32 Precision = iota
	F64
)

func (p Precision) String() string {
	switch p {
	case F32:
		return "f32"
	case F64:
		return "f64"
	default:
		return fmt.Sprintf("Precision<%d>", int(p))
	}
}

// Width returns the nominal bit width backing the precision. This is used
// only for byte sizing (e.g. Memory element layout); the float itself is an
// uninterpreted term and this width is never used for bit-level semantics.
func (p Precision) Width() uint {
	if p == F64 {
		return Width64
	}
	return Width32
}

// ConvLayout enumerates the supported convolution operand layouts.
type ConvLayout int

const (
	NCHW_FCHW ConvLayout = iota
	NHWC_HWCF
)

// assert panics if condition is false. Reserved for contract violations
// (double-bind, tag mismatch, missing operand) per spec.md §7 — never used
// for ordinary control flow.
func assert(condition bool, format string, args ...interface{}) {
	if !condition {
		panic(fmt.Sprintf("assert: "+format, args...))
	}
}
