package tv

import (
	"github.com/MerHS/mlir-tv/ir"
)

// elementwiseBroadcastUB builds the runtime "shapes actually agree" UB
// predicate spec.md §4.3 requires be "always emitted" alongside a
// broadcast: at any axis where both operands are statically unknown-sized,
// broadcastDims cannot tell at encode time whether the two symbolic sizes
// truly agree (or one of them is a runtime-1 broadcast), so the obligation
// is deferred into wellDefinedPred instead of failing to encode.
func elementwiseBroadcastUB(aStatic, bStatic []int64, aDims, bDims []Expr) Expr {
	rank := len(aDims)
	pred := Expr(NewBoolConstantExpr(true))
	for i := 0; i < rank; i++ {
		ai := len(aStatic) - rank + i
		bi := len(bStatic) - rank + i
		if ai < 0 || bi < 0 {
			continue // one side padded with an implicit size-1 axis: always compatible
		}
		if aStatic[ai] != ir.DynamicDim || bStatic[bi] != ir.DynamicDim {
			continue // at least one side is statically known; broadcastDims already validated it
		}
		agree := NewBinaryExpr(OR,
			NewBinaryExpr(EQ, aDims[ai], bDims[bi]),
			NewBinaryExpr(OR,
				NewBinaryExpr(EQ, aDims[ai], NewIndexConst(1)),
				NewBinaryExpr(EQ, bDims[bi], NewIndexConst(1))))
		pred = NewBinaryExpr(AND, pred, agree)
	}
	return pred
}

// broadcastAt returns the index to use into an operand of static/symbolic
// dims (dimsStatic/dims, right-aligned to rank outDims) at broadcast
// position i, given the shared iteration index vidx[i]: axes narrower than
// the output rank or of static size 1 always read index 0; axes of
// unknown static size fall back to a runtime ite on the symbolic size.
func broadcastAt(dimsStatic []int64, dims []Expr, outRank int, i int, vidx Expr) Expr {
	pos := len(dimsStatic) - outRank + i
	if pos < 0 {
		return NewIndexConst(0)
	}
	if dimsStatic[pos] == 1 {
		return NewIndexConst(0)
	}
	if dimsStatic[pos] != ir.DynamicDim {
		return vidx
	}
	return NewIteExpr(NewBinaryExpr(EQ, dims[pos], NewIndexConst(1)), NewIndexConst(0), vidx)
}

// tensorStaticDims extracts the IR-declared static dims of v's type, or
// nil if v is not tensor-typed.
func tensorStaticDims(v *ir.Value) ([]int64, bool) {
	t, ok := v.Type.(ir.TensorType)
	if !ok {
		return nil, false
	}
	return t.Dims, true
}

// encodeElementwiseBinary implements spec.md §4.3 "Element-wise over
// tensors": lifts a scalar binary function over scalar or tensor operands
// via NumPy broadcasting, and is shared by every scalar arithmetic op
// whose operands may be tensor-typed.
func encodeElementwiseBinary(state *State, op ir.Op, xv, yv, resv *ir.Value, f func(x, y Expr) Expr, wrap func(Expr) Value) error {
	xb, yb := state.Regs.get(xv), state.Regs.get(yv)
	xt, xIsTensor := xb.(*TensorValue)
	yt, yIsTensor := yb.(*TensorValue)

	if !xIsTensor && !yIsTensor {
		return bindResult(state, resv, wrap(f(getExprOf(xb), getExprOf(yb))))
	}

	var xElem, yElem ElemType
	var xDims, yDims []Expr
	if xIsTensor {
		xElem, xDims = xt.Elem, xt.Dims
	}
	if yIsTensor {
		yElem, yDims = yt.Elem, yt.Dims
	}
	elem := xElem
	if !xIsTensor {
		elem = yElem
	}

	xStatic, _ := tensorStaticDims(xv)
	yStatic, _ := tensorStaticDims(yv)
	if !xIsTensor {
		xStatic = nil
	}
	if !yIsTensor {
		yStatic = nil
	}

	outStatic, outXDims, outYDims, ok := broadcastDims(xStatic, yStatic, xDims, yDims)
	if !ok {
		return unsupported(op, "operand shapes are not broadcast-compatible")
	}

	rank := len(outStatic)
	vars := freshIndexVars("ew", rank)
	vidx := varExprs(vars)

	var xElemExpr, yElemExpr Expr
	if xIsTensor {
		xOff := rank - len(xDims)
		xIdx := make([]Expr, len(xDims))
		for j := range xDims {
			outPos := xOff + j
			xIdx[j] = broadcastAt(xStatic, xDims, rank, outPos, vidx[outPos])
		}
		xElemExpr, _ = xt.get(xIdx)
	} else {
		xElemExpr = getExprOf(xb)
	}
	if yIsTensor {
		yOff := rank - len(yDims)
		yIdx := make([]Expr, len(yDims))
		for j := range yDims {
			outPos := yOff + j
			yIdx[j] = broadcastAt(yStatic, yDims, rank, outPos, vidx[outPos])
		}
		yElemExpr, _ = yt.get(yIdx)
	} else {
		yElemExpr = getExprOf(yb)
	}

	body := f(xElemExpr, yElemExpr)
	outDims := make([]Expr, rank)
	for i := 0; i < rank; i++ {
		// Whichever side is the runtime-1 broadcast axis contributes its
		// partner's size; ite resolves this even when both sides are
		// dynamic (the UB predicate below asserts they agree when neither
		// is provably 1).
		outDims[i] = NewIteExpr(NewBinaryExpr(EQ, outXDims[i], NewIndexConst(1)), outYDims[i], outXDims[i])
	}
	result := mkLambda(elem, outDims, vars, body)

	pred := elementwiseBroadcastUB(xStatic, yStatic, xDims, yDims)
	state.wellDefined(op, pred)
	return bindResult(state, resv, result)
}

// encodeElementwiseUnary lifts a scalar unary function over a scalar or
// tensor operand.
func encodeElementwiseUnary(state *State, op ir.Op, xv, resv *ir.Value, f func(x Expr) Expr, wrap func(Expr) Value) error {
	xb := state.Regs.get(xv)
	if xt, ok := xb.(*TensorValue); ok {
		return bindResult(state, resv, xt.mapUnary(f))
	}
	return bindResult(state, resv, wrap(f(getExprOf(xb))))
}
