package tv

import (
	"fmt"
	"math"

	"github.com/MerHS/mlir-tv/ir"
)

// floatConstExpr encodes a float literal as a nullary uninterpreted term
// named after its bit pattern: spec.md §3's abstract float model gives
// floats no arithmetic, so two literals must still compare equal exactly
// when their bit patterns coincide and are otherwise free to differ.
func floatConstExpr(v float64, p Precision) Expr {
	return NewUninterpretedExpr(fmt.Sprintf("fconst!%x", math.Float64bits(v)), p.Width())
}

// constScalarExpr builds the Expr for one constant tensor element, given
// its declared type and the IR's float64-encoded literal value.
func constScalarExpr(elem ElemType, v float64) Expr {
	if elem.Kind == ElemFloat {
		return floatConstExpr(v, elem.Precision)
	}
	return NewConstantExpr(uint64(int64(v)), elem.Width())
}

func staticDimsExpr(dims []int64) []Expr {
	out := make([]Expr, len(dims))
	for i, d := range dims {
		assert(d != ir.DynamicDim, "constant: dense/sparse tensor dims must be static")
		out[i] = NewIndexConst(uint64(d))
	}
	return out
}

// encodeConstantOp implements spec.md §4.3 "Constants": every ConstAttrKind
// produces either a scalar Value or a Tensor whose body is built from the
// literal payload.
func encodeConstantOp(state *State, op *ir.ConstantOp) error {
	res := firstOrNil(op.Results())
	switch op.Kind {
	case ir.ConstInt, ir.ConstIndex:
		width := uint(IndexBits)
		if it, ok := resultType(res).(ir.IntegerType); ok {
			width = it.Width
		}
		e := NewConstantExpr(op.IntValue, width)
		if op.Kind == ir.ConstIndex {
			return bindResult(state, res, NewIndexValue(e))
		}
		return bindResult(state, res, NewIntValue(e))

	case ir.ConstFloat:
		p := resultPrecision(resultType(res))
		return bindResult(state, res, NewFloatValue(floatConstExpr(op.FloatValue, p), p))

	case ir.ConstDenseSplat:
		tt := resultType(res).(ir.TensorType)
		elem := elemTypeOf(tt.Elem)
		dims := staticDimsExpr(tt.Dims)
		scalar := constScalarExpr(elem, op.FloatValue)
		result := mkLambda(elem, dims, freshIndexVars("splat", len(dims)), scalar)
		return bindResult(state, res, result)

	case ir.ConstDenseElements:
		tt := resultType(res).(ir.TensorType)
		elem := elemTypeOf(tt.Elem)
		dims := staticDimsExpr(tt.Dims)
		elems := make([]Expr, len(op.DenseValues))
		for i, v := range op.DenseValues {
			elems[i] = constScalarExpr(elem, v)
		}
		return bindResult(state, res, mkConcrete(elem, dims, elems))

	case ir.ConstSparseElements:
		tt := resultType(res).(ir.TensorType)
		elem := elemTypeOf(tt.Elem)
		dims := staticDimsExpr(tt.Dims)
		result := mkLambda(elem, dims, freshIndexVars("sparse", len(dims)), constScalarExpr(elem, op.SparseDefault))
		for i, idx := range op.SparseIndices {
			idxExprs := make([]Expr, len(idx))
			for j, d := range idx {
				idxExprs[j] = NewIndexConst(uint64(d))
			}
			result = result.insert(constScalarExpr(elem, op.SparseValues[i]), idxExprs)
		}
		return bindResult(state, res, result)

	default:
		return unsupported(op, "constant: unknown kind %d", op.Kind)
	}
}
