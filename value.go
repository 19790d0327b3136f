package tv

import "fmt"

// Binding is anything a register can hold: a scalar Expr, a Tensor, a
// MemRef, or a Tuple of bindings (multi-result ops bind a Tuple, then the
// driver unpacks it positionally). This mirrors the teacher's
// register-file Binding sum, generalized from {Expr, Array, Tuple} to the
// five-case Value taxonomy spec.md §3 describes.
type Binding interface {
	String() string
	binding()
}

func (*IndexValue) binding()   {}
func (*IntValue) binding()     {}
func (*FloatValue) binding()   {}
func (*TensorValue) binding()  {}
func (*MemRefValue) binding()  {}

// Expr, Tuple already implement binding() in expr.go.

// Value is the closed tagged sum of spec.md §3's DESIGN NOTES "polymorphic
// symbolic values": Index, Integer, Float, Tensor, MemRef.
type Value interface {
	Binding
	value()
}

func (*IndexValue) value()  {}
func (*IntValue) value()    {}
func (*FloatValue) value()  {}
func (*TensorValue) value() {}
func (*MemRefValue) value() {}

// IndexValue is spec.md §3's Index: an IndexBits-wide unsigned quantity.
type IndexValue struct {
	E Expr
}

func NewIndexValue(e Expr) *IndexValue {
	assert(ExprWidth(e) == IndexBits, "index value must be %d bits wide, got %d", IndexBits, ExprWidth(e))
	return &IndexValue{E: e}
}

func (v *IndexValue) String() string { return fmt.Sprintf("index(%s)", v.E) }

// IntValue is spec.md §3's Integer: a bit-vector of a specified width.
// Booleans are width-1 IntValues.
type IntValue struct {
	E Expr
}

func NewIntValue(e Expr) *IntValue { return &IntValue{E: e} }

func (v *IntValue) String() string { return fmt.Sprintf("int(%s)", v.E) }

func (v *IntValue) Width() uint { return ExprWidth(v.E) }

// FloatValue is spec.md §3's Float: a pair (abstract term, precision tag).
// The term is always an Expr the core treats as opaque — typically an
// UninterpretedExpr application, never inspected for bit content.
type FloatValue struct {
	E         Expr
	Precision Precision
}

func NewFloatValue(e Expr, p Precision) *FloatValue { return &FloatValue{E: e, Precision: p} }

func (v *FloatValue) String() string { return fmt.Sprintf("float(%s, %s)", v.E, v.Precision) }

// getValue is the typed register accessor of spec.md §4.2's `get<T>`: it
// performs a tag check and panics (a programmer error, not a graceful
// failure, per spec.md §9) on mismatch.
func getValue[T Value](b Binding) T {
	v, ok := b.(T)
	assert(ok, "register tag mismatch: want %T, got %T", v, b)
	return v
}

// ExprOf is the exported form of getExprOf, for callers outside package tv
// (package vc) that need a scalar Binding's underlying Expr to build a
// cross-encoding equality obligation.
func ExprOf(b Binding) Expr { return getExprOf(b) }

// getExprOf returns the underlying Expr of any scalar Value, regardless of
// tag (spec.md §4.2's `getExpr`, "any scalar sort is acceptable").
func getExprOf(b Binding) Expr {
	switch v := b.(type) {
	case *IndexValue:
		return v.E
	case *IntValue:
		return v.E
	case *FloatValue:
		return v.E
	case Expr:
		return v
	default:
		panic(fmt.Sprintf("getExprOf: %T is not a scalar value", b))
	}
}
