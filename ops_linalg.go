package tv

import (
	"github.com/MerHS/mlir-tv/ir"
)

// encodeInitTensorOp implements spec.md §4.3: "a fresh Tensor with a
// unique symbolic body and the declared shape." The body is backed by a
// fresh array-theory variable indexed by row-major linear offset, giving
// every element an unconstrained but deterministic symbolic value.
func encodeInitTensorOp(state *State, op *ir.InitTensorOp) error {
	dims := getFromMixedOps(state.Regs, op.Dims)
	res := firstOrNil(op.Results())
	elem := elemTypeOf(elemTypeOfBody(res))

	id := state.freshArrayID()
	array := NewArrayVarExpr(id, "init_tensor", IndexBits, elem.Width())
	state.noteConstArray()

	vars := freshIndexVars("it", len(dims))
	vidx := varExprs(vars)
	body := NewArraySelectExpr(array, rowMajorLinearIndex(dims, vidx))
	return bindResult(state, res, mkLambda(elem, dims, vars, body))
}

// encodeFillOp implements spec.md §4.3: "a Tensor (or stored Memref) whose
// body is the scalar at every index."
func encodeFillOp(state *State, op *ir.FillOp) error {
	scalar := getExprOf(state.Regs.get(op.Scalar))
	destB := state.Regs.get(op.Dest)

	switch dest := destB.(type) {
	case *TensorValue:
		filled := mkLambda(dest.Elem, dest.Dims, freshIndexVars("fill", len(dest.Dims)), scalar)
		return bindResult(state, firstOrNil(op.Results()), filled)
	case *MemRefValue:
		filled := mkLambda(dest.Elem, dest.Dims, freshIndexVars("fill", len(dest.Dims)), scalar)
		pred := dest.storeArray(filled)
		state.wellDefined(op, pred)
		return bindResult(state, firstOrNil(op.Results()), dest)
	default:
		return unsupported(op, "fill destination must be a tensor or memref")
	}
}

// encodeMatmulOp implements spec.md §4.3: "tensor algebra; requires equal
// element types and 2-input/1-output form." The contraction dimension must
// be statically known (asConcreteInt) to unroll into a finite sum.
func encodeMatmulOp(state *State, op *ir.MatmulOp) error {
	a := getTyped[*TensorValue](state.Regs, op.A)
	b := getTyped[*TensorValue](state.Regs, op.B)
	if a.Elem != b.Elem {
		return unsupported(op, "matmul: element type mismatch")
	}
	k, ok := asConcreteInt(a.Dims[1])
	if !ok {
		return unsupported(op, "matmul: contraction dimension must be statically known")
	}

	vars := freshIndexVars("mm", 2)
	iVar, jVar := varToExpr(vars[0]), varToExpr(vars[1])
	acc := zeroOf(a.Elem)
	addF, mulF := addMulFor(a.Elem)
	for kk := int64(0); kk < k; kk++ {
		aElem, _ := a.get([]Expr{iVar, NewIndexConst(uint64(kk))})
		bElem, _ := b.get([]Expr{NewIndexConst(uint64(kk)), jVar})
		acc = addF(acc, mulF(aElem, bElem))
	}
	dims := []Expr{a.Dims[0], b.Dims[1]}
	result := mkLambda(a.Elem, dims, vars, acc)
	return bindResult(state, firstOrNil(op.Results()), result)
}

// encodeDotOp implements spec.md §4.3: "1-D x 1-D; UB if lengths differ."
func encodeDotOp(state *State, op *ir.DotOp) error {
	a := getTyped[*TensorValue](state.Regs, op.A)
	b := getTyped[*TensorValue](state.Regs, op.B)
	pred := NewBinaryExpr(EQ, a.Dims[0], b.Dims[0])
	state.wellDefined(op, pred)

	n, ok := asConcreteInt(a.Dims[0])
	if !ok {
		return unsupported(op, "dot: length must be statically known")
	}
	addF, mulF := addMulFor(a.Elem)
	acc := zeroOf(a.Elem)
	for i := int64(0); i < n; i++ {
		ai, _ := a.get([]Expr{NewIndexConst(uint64(i))})
		bi, _ := b.get([]Expr{NewIndexConst(uint64(i))})
		acc = addF(acc, mulF(ai, bi))
	}
	return bindResult(state, firstOrNil(op.Results()), scalarToValue(a.Elem, acc))
}

func varToExpr(v BoundVar) Expr { return NewVarExpr(v.Name, v.Width) }

func zeroOf(elem ElemType) Expr {
	if elem.Kind == ElemFloat {
		return NewUninterpretedExpr("fzero", elem.Width())
	}
	return NewConstantExpr(0, elem.Width())
}

func addMulFor(elem ElemType) (func(x, y Expr) Expr, func(x, y Expr) Expr) {
	if elem.Kind == ElemFloat {
		return floatBinOp("fadd", elem.Precision), floatBinOp("fmul", elem.Precision)
	}
	return func(x, y Expr) Expr { return NewBinaryExpr(ADD, x, y) },
		func(x, y Expr) Expr { return NewBinaryExpr(MUL, x, y) }
}

// encodeConv2DNchwFchwOp/encodeConv2DNhwcHwcfOp implement spec.md §4.3:
// "dispatch to Tensor::conv or MemRef::conv with the given layout,
// strides, and dilations."
func encodeConv2DNchwFchwOp(state *State, op *ir.Conv2DNchwFchwOp) error {
	return encodeConv(state, op, op.Input, op.Filter, op.Strides, op.Dilations, NCHW_FCHW, firstOrNil(op.Results()))
}

func encodeConv2DNhwcHwcfOp(state *State, op *ir.Conv2DNhwcHwcfOp) error {
	return encodeConv(state, op, op.Input, op.Filter, op.Strides, op.Dilations, NHWC_HWCF, firstOrNil(op.Results()))
}

// encodeConv is the shared convolution algorithm: for each output
// position, sum the elementwise product of the filter and the
// corresponding strided/dilated input window. The filter extents must be
// statically known, for the same reason matmul's contraction dimension
// must be; the input's spatial extents may be symbolic.
func encodeConv(state *State, op ir.Op, inputV, filterV *ir.Value, strides, dilations [2]int64, layout ConvLayout, res *ir.Value) error {
	input := getTyped[*TensorValue](state.Regs, inputV)
	filter := getTyped[*TensorValue](state.Regs, filterV)

	// Axis order per layout: NCHW_FCHW input=(N,C,H,W) filter=(F,C,KH,KW);
	// NHWC_HWCF input=(N,H,W,C) filter=(KH,KW,C,F).
	var nAx, cAx, hAx, wAx int
	var fOutAx, fCAx, fHAx, fWAx int
	if layout == NCHW_FCHW {
		nAx, cAx, hAx, wAx = 0, 1, 2, 3
		fOutAx, fCAx, fHAx, fWAx = 0, 1, 2, 3
	} else {
		nAx, cAx, hAx, wAx = 0, 3, 1, 2
		fHAx, fWAx, fCAx, fOutAx = 0, 1, 2, 3
	}

	kh, ok1 := asConcreteInt(filter.Dims[fHAx])
	kw, ok2 := asConcreteInt(filter.Dims[fWAx])
	c, ok3 := asConcreteInt(filter.Dims[fCAx])
	if !ok1 || !ok2 || !ok3 {
		return unsupported(op, "conv: filter dims must be statically known")
	}

	outH := NewBinaryExpr(ADD, NewBinaryExpr(UDIV,
		NewBinaryExpr(SUB, input.Dims[hAx], NewIndexConst(uint64((kh-1)*dilations[0]+1))),
		NewIndexConst(uint64(strides[0]))), NewIndexConst(1))
	outW := NewBinaryExpr(ADD, NewBinaryExpr(UDIV,
		NewBinaryExpr(SUB, input.Dims[wAx], NewIndexConst(uint64((kw-1)*dilations[1]+1))),
		NewIndexConst(uint64(strides[1]))), NewIndexConst(1))

	outDims := make([]Expr, 4)
	outDims[nAx] = input.Dims[nAx]
	outDims[hAx] = outH
	outDims[wAx] = outW
	outDims[cAx] = filter.Dims[fOutAx]

	vars := freshIndexVars("conv", 4)
	vidx := varExprs(vars)
	addF, mulF := addMulFor(input.Elem)
	acc := zeroOf(input.Elem)
	for ci := int64(0); ci < c; ci++ {
		for ki := int64(0); ki < kh; ki++ {
			for kj := int64(0); kj < kw; kj++ {
				inH := NewBinaryExpr(ADD, NewBinaryExpr(MUL, vidx[hAx], NewIndexConst(uint64(strides[0]))), NewIndexConst(uint64(ki*dilations[0])))
				inW := NewBinaryExpr(ADD, NewBinaryExpr(MUL, vidx[wAx], NewIndexConst(uint64(strides[1]))), NewIndexConst(uint64(kj*dilations[1])))
				inIdx := make([]Expr, 4)
				inIdx[nAx] = vidx[nAx]
				inIdx[cAx] = NewIndexConst(uint64(ci))
				inIdx[hAx] = inH
				inIdx[wAx] = inW
				inElem, _ := input.get(inIdx)

				fIdx := make([]Expr, 4)
				fIdx[fOutAx] = vidx[cAx]
				fIdx[fCAx] = NewIndexConst(uint64(ci))
				fIdx[fHAx] = NewIndexConst(uint64(ki))
				fIdx[fWAx] = NewIndexConst(uint64(kj))
				fElem, _ := filter.get(fIdx)

				acc = addF(acc, mulF(inElem, fElem))
			}
		}
	}
	result := mkLambda(input.Elem, outDims, vars, acc)
	return bindResult(state, res, result)
}

// encodeCopyOp implements spec.md §4.3: "memref to memref; UB if shapes
// differ or the two regions alias."
func encodeCopyOp(state *State, op *ir.CopyOp) error {
	src := getTyped[*MemRefValue](state.Regs, op.Source)
	dst := getTyped[*MemRefValue](state.Regs, op.Dest)

	pred := Expr(NewBoolConstantExpr(true))
	for i := range src.Dims {
		pred = NewBinaryExpr(AND, pred, NewBinaryExpr(EQ, src.Dims[i], dst.Dims[i]))
	}
	pred = NewBinaryExpr(AND, pred, src.noalias(dst))

	vars := freshIndexVars("cpy", len(src.Dims))
	vidx := varExprs(vars)
	elem, srcInBounds := src.get(vidx)
	copied := mkLambda(src.Elem, dst.Dims, vars, elem)
	storePred := dst.storeArray(copied)

	state.wellDefined(op, andAll(pred, storePred, NewForallExpr(vars, srcInBounds)))
	state.noteQuantifier()
	return nil
}
