package tv

import (
	"github.com/MerHS/mlir-tv/ir"
)

// resultPrecision extracts the float precision governing an op's result,
// whether the result is a bare float or a float tensor.
func resultPrecision(t ir.Type) Precision {
	switch t := t.(type) {
	case ir.FloatType:
		if t.Precision == ir.F64 {
			return F64
		}
		return F32
	case ir.TensorType:
		return resultPrecision(t.Elem)
	default:
		panic("resultPrecision: not a float-bearing type")
	}
}

// floatWrap builds the scalar-result wrapper for a float op at the given
// precision.
func floatWrap(p Precision) func(Expr) Value {
	return func(e Expr) Value { return NewFloatValue(e, p) }
}

// floatBinOp is spec.md §3's abstract float algebra: every binary float op
// becomes an UninterpretedExpr application named after the op, since
// "floats are abstract uninterpreted values with algebraic axioms
// introduced outside the core" (spec.md §1 Non-goals).
func floatBinOp(name string, p Precision) func(x, y Expr) Expr {
	return func(x, y Expr) Expr { return NewUninterpretedExpr(name, p.Width(), x, y) }
}

func floatUnOp(name string, p Precision) func(x Expr) Expr {
	return func(x Expr) Expr { return NewUninterpretedExpr(name, p.Width(), x) }
}

func resultType(res *ir.Value) ir.Type {
	if res == nil {
		return nil
	}
	return res.Type
}

func encodeAddFOp(state *State, op *ir.AddFOp) error {
	res := firstOrNil(op.Results())
	p := resultPrecision(resultType(res))
	return encodeElementwiseBinary(state, op, op.X, op.Y, res, floatBinOp("fadd", p), floatWrap(p))
}

func encodeSubFOp(state *State, op *ir.SubFOp) error {
	res := firstOrNil(op.Results())
	p := resultPrecision(resultType(res))
	return encodeElementwiseBinary(state, op, op.X, op.Y, res, floatBinOp("fsub", p), floatWrap(p))
}

func encodeMulFOp(state *State, op *ir.MulFOp) error {
	res := firstOrNil(op.Results())
	p := resultPrecision(resultType(res))
	return encodeElementwiseBinary(state, op, op.X, op.Y, res, floatBinOp("fmul", p), floatWrap(p))
}

func encodeNegFOp(state *State, op *ir.NegFOp) error {
	res := firstOrNil(op.Results())
	p := resultPrecision(resultType(res))
	return encodeElementwiseUnary(state, op, op.X, res, floatUnOp("fneg", p), floatWrap(p))
}

// encodeCmpFOp implements spec.md §4.3: "cmpf OLT is fult; other
// predicates are unsupported in the core spec."
func encodeCmpFOp(state *State, op *ir.CmpFOp) error {
	if op.Pred != ir.CmpFOLT {
		return unsupported(op, "cmpf predicate %d is not supported (only OLT)", op.Pred)
	}
	res := firstOrNil(op.Results())
	fult := func(x, y Expr) Expr {
		lt := NewUninterpretedExpr("fult", WidthBool, x, y)
		return lt
	}
	return encodeElementwiseBinary(state, op, op.X, op.Y, res, fult, func(e Expr) Value { return NewIntValue(e) })
}

// encodeExtFOp/encodeTruncFOp: identity when precisions coincide; a real
// grow (f32 -> f64 for extf, f64 -> f32 for truncf) is left abstract (a
// fresh uninterpreted cast). A mislabeled direction — extf shrinking or
// truncf growing — is not a UB condition to encode but a malformed op, so
// it fails typed rather than falling through to an abstract cast.
func encodeExtFOp(state *State, op *ir.ExtFOp) error {
	res := firstOrNil(op.Results())
	xb := state.Regs.get(op.X)
	srcP := floatValuePrecision(xb)
	dstP := floatPrecisionOf(op.To)
	if srcP == dstP {
		return bindResult(state, res, xb.(Value))
	}
	if srcP > dstP {
		return unsupported(op, "extf: source precision %v wider than target precision %v", srcP, dstP)
	}
	return encodeElementwiseUnary(state, op, op.X, res, floatUnOp("fext", dstP), floatWrap(dstP))
}

func encodeTruncFOp(state *State, op *ir.TruncFOp) error {
	res := firstOrNil(op.Results())
	xb := state.Regs.get(op.X)
	srcP := floatValuePrecision(xb)
	dstP := floatPrecisionOf(op.To)
	if srcP == dstP {
		return bindResult(state, res, xb.(Value))
	}
	if srcP < dstP {
		return unsupported(op, "truncf: source precision %v narrower than target precision %v", srcP, dstP)
	}
	return encodeElementwiseUnary(state, op, op.X, res, floatUnOp("ftrunc", dstP), floatWrap(dstP))
}

func floatPrecisionOf(p ir.FloatPrecision) Precision {
	if p == ir.F64 {
		return F64
	}
	return F32
}

func floatValuePrecision(b Binding) Precision {
	switch v := b.(type) {
	case *FloatValue:
		return v.Precision
	case *TensorValue:
		return v.Elem.Precision
	default:
		panic("floatValuePrecision: not a float-bearing value")
	}
}

// encodeAddIOp/SubIOp/MulIOp dispatch to bit-vector arithmetic; index- vs
// integer-typed results are tagged accordingly (spec.md §4.3).
func encodeAddIOp(state *State, op *ir.AddIOp) error {
	res := firstOrNil(op.Results())
	return encodeElementwiseBinary(state, op, op.X, op.Y, res, func(x, y Expr) Expr { return NewBinaryExpr(ADD, x, y) }, intOrIndexWrap(resultType(res)))
}

func encodeSubIOp(state *State, op *ir.SubIOp) error {
	res := firstOrNil(op.Results())
	return encodeElementwiseBinary(state, op, op.X, op.Y, res, func(x, y Expr) Expr { return NewBinaryExpr(SUB, x, y) }, intOrIndexWrap(resultType(res)))
}

func encodeMulIOp(state *State, op *ir.MulIOp) error {
	res := firstOrNil(op.Results())
	return encodeElementwiseBinary(state, op, op.X, op.Y, res, func(x, y Expr) Expr { return NewBinaryExpr(MUL, x, y) }, intOrIndexWrap(resultType(res)))
}

// intOrIndexWrap picks IndexValue vs IntValue for a scalar bit-vector
// result based on the op's declared result type (or its tensor element
// type).
func intOrIndexWrap(t ir.Type) func(Expr) Value {
	if tt, ok := t.(ir.TensorType); ok {
		t = tt.Elem
	}
	if _, ok := t.(ir.IndexType); ok {
		return func(e Expr) Value { return NewIndexValue(e) }
	}
	return func(e Expr) Value { return NewIntValue(e) }
}

func firstOrNil(vs []*ir.Value) *ir.Value {
	if len(vs) == 0 {
		return nil
	}
	return vs[0]
}
