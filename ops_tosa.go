package tv

import (
	"github.com/MerHS/mlir-tv/ir"
)

// tosaElemType extracts an operand's scalar element type, whether it is a
// bare scalar or tensor operand.
func tosaElemType(state *State, v *ir.Value) ElemType {
	switch b := state.Regs.get(v).(type) {
	case *TensorValue:
		return b.Elem
	default:
		return elemTypeOfValue(b)
	}
}

// intAbs implements two's-complement absolute value: `x < 0 ? -x : x`.
func intAbs(x Expr) Expr {
	neg := NewBinaryExpr(SUB, NewConstantExpr(0, ExprWidth(x)), x)
	return NewIteExpr(NewBinaryExpr(SLT, x, NewConstantExpr(0, ExprWidth(x))), neg, x)
}

// encodeTosaAbsOp implements spec.md §4.3's tosa family: elementwise abs
// over an integer or float tensor.
func encodeTosaAbsOp(state *State, op *ir.TosaAbsOp) error {
	res := firstOrNil(op.Results())
	elem := tosaElemType(state, op.X)
	if elem.Kind == ElemFloat {
		return encodeElementwiseUnary(state, op, op.X, res, floatUnOp("fabs", elem.Precision), floatWrap(elem.Precision))
	}
	return encodeElementwiseUnary(state, op, op.X, res, intAbs, intOrIndexWrap(resultType(res)))
}

func encodeTosaAddOp(state *State, op *ir.TosaAddOp) error {
	res := firstOrNil(op.Results())
	elem := tosaElemType(state, op.X)
	if elem.Kind == ElemFloat {
		return encodeElementwiseBinary(state, op, op.X, op.Y, res, floatBinOp("fadd", elem.Precision), floatWrap(elem.Precision))
	}
	return encodeElementwiseBinary(state, op, op.X, op.Y, res, func(x, y Expr) Expr { return NewBinaryExpr(ADD, x, y) }, intOrIndexWrap(resultType(res)))
}

func encodeTosaSubOp(state *State, op *ir.TosaSubOp) error {
	res := firstOrNil(op.Results())
	elem := tosaElemType(state, op.X)
	if elem.Kind == ElemFloat {
		return encodeElementwiseBinary(state, op, op.X, op.Y, res, floatBinOp("fsub", elem.Precision), floatWrap(elem.Precision))
	}
	return encodeElementwiseBinary(state, op, op.X, op.Y, res, func(x, y Expr) Expr { return NewBinaryExpr(SUB, x, y) }, intOrIndexWrap(resultType(res)))
}

// encodeTosaMulOp implements spec.md §4.3: "shift≠0 unsupported" — tosa.mul
// applies an integer right-shift to the product when quantized, which this
// core's abstract integer model has no representation for.
func encodeTosaMulOp(state *State, op *ir.TosaMulOp) error {
	if op.Shift != 0 {
		return unsupported(op, "tosa.mul: quantized shift != 0 is not supported")
	}
	res := firstOrNil(op.Results())
	elem := tosaElemType(state, op.X)
	if elem.Kind == ElemFloat {
		return encodeElementwiseBinary(state, op, op.X, op.Y, res, floatBinOp("fmul", elem.Precision), floatWrap(elem.Precision))
	}
	return encodeElementwiseBinary(state, op, op.X, op.Y, res, func(x, y Expr) Expr { return NewBinaryExpr(MUL, x, y) }, intOrIndexWrap(resultType(res)))
}

// encodeTosaNegateOp implements spec.md §4.3: "quantized negate is
// unsupported" — this core carries no zero-point metadata to correct for.
func encodeTosaNegateOp(state *State, op *ir.TosaNegateOp) error {
	res := firstOrNil(op.Results())
	elem := tosaElemType(state, op.X)
	if elem.Kind == ElemFloat {
		return encodeElementwiseUnary(state, op, op.X, res, floatUnOp("fneg", elem.Precision), floatWrap(elem.Precision))
	}
	neg := func(x Expr) Expr { return NewBinaryExpr(SUB, NewConstantExpr(0, ExprWidth(x)), x) }
	return encodeElementwiseUnary(state, op, op.X, res, neg, intOrIndexWrap(resultType(res)))
}

// encodeTosaReshapeOp implements spec.md §4.3: reshape to a statically
// declared shape, UB if the element count changes (Tensor.reshape already
// carries this obligation).
func encodeTosaReshapeOp(state *State, op *ir.TosaReshapeOp) error {
	x := getTyped[*TensorValue](state.Regs, op.X)
	newDims := make([]Expr, len(op.Shape))
	for i, d := range op.Shape {
		newDims[i] = NewIndexConst(uint64(d))
	}
	result, sizeEq := x.reshape(newDims)
	state.wellDefined(op, sizeEq)
	return bindResult(state, firstOrNil(op.Results()), result)
}

// encodeTosaBitwiseOp implements spec.md §4.3: and/or/xor/not over integer
// tensors.
func encodeTosaBitwiseOp(state *State, op *ir.TosaBitwiseOp) error {
	res := firstOrNil(op.Results())
	elem := tosaElemType(state, op.X)
	if elem.Kind == ElemFloat {
		return unsupported(op, "tosa.bitwise: float operands are not supported")
	}
	wrap := intOrIndexWrap(resultType(res))

	if op.Kind == ir.BitwiseNot {
		not := func(x Expr) Expr { return NewBinaryExpr(XOR, x, NewConstantExpr(allOnes(ExprWidth(x)), ExprWidth(x))) }
		return encodeElementwiseUnary(state, op, op.X, res, not, wrap)
	}

	var bop BinaryOp
	switch op.Kind {
	case ir.BitwiseAnd:
		bop = AND
	case ir.BitwiseOr:
		bop = OR
	case ir.BitwiseXor:
		bop = XOR
	default:
		return unsupported(op, "tosa.bitwise: unknown kind %d", op.Kind)
	}
	return encodeElementwiseBinary(state, op, op.X, op.Y, res, func(x, y Expr) Expr { return NewBinaryExpr(bop, x, y) }, wrap)
}

func allOnes(width uint) uint64 {
	if width >= 64 {
		return ^uint64(0)
	}
	return (uint64(1) << width) - 1
}
