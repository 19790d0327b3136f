package tv

import (
	"github.com/MerHS/mlir-tv/ir"
)

// encodeDimOp implements spec.md §4.3: "dim(source, i) — UB if i >= rank."
func encodeDimOp(state *State, op *ir.DimOp) error {
	src := getTyped[*TensorValue](state.Regs, op.Source)
	rank := int64(len(src.Dims))
	pred := NewBoolConstantExpr(op.Index >= 0 && op.Index < rank)
	state.wellDefined(op, pred)
	if op.Index < 0 || op.Index >= rank {
		return bindResult(state, firstOrNil(op.Results()), NewIndexValue(NewIndexConst(0)))
	}
	return bindResult(state, firstOrNil(op.Results()), NewIndexValue(src.Dims[op.Index]))
}

// encodeCollapseShapeOp implements spec.md §4.3: UB if the product of
// input dims per output group mismatches a known output dim, and if the
// total 1-D sizes differ (the latter is implied by construction here since
// collapse never drops elements — every input dim belongs to exactly one
// group).
func encodeCollapseShapeOp(state *State, op *ir.CollapseShapeOp) error {
	src := getTyped[*TensorValue](state.Regs, op.Source)
	newDims := make([]Expr, len(op.Groups))
	for i, group := range op.Groups {
		dims := make([]Expr, len(group))
		for j, pos := range group {
			dims[j] = src.Dims[pos]
		}
		newDims[i] = productExpr(dims)
	}
	res, sizeEq := src.reshape(newDims)
	state.wellDefined(op, sizeEq)
	return bindResult(state, firstOrNil(op.Results()), res)
}

// encodeExpandShapeOp implements spec.md §4.3: at most one unknown dim per
// output group; UB if the input dim is not divisible by the product of the
// known expanded dims. Result dims are read straight from the declared
// output type's static shape (dynamic slots are solved for below).
func encodeExpandShapeOp(state *State, op *ir.ExpandShapeOp) error {
	src := getTyped[*TensorValue](state.Regs, op.Source)
	res := firstOrNil(op.Results())
	outStatic, ok := tensorStaticDims(res)
	if !ok {
		return unsupported(op, "expand_shape result must be a tensor type")
	}

	newDims := make([]Expr, len(outStatic))
	pred := Expr(NewBoolConstantExpr(true))
	for gi, group := range op.Groups {
		knownProduct := Expr(NewIndexConst(1))
		unknownPos := -1
		for _, pos := range group {
			if outStatic[pos] == ir.DynamicDim {
				if unknownPos != -1 {
					return unsupported(op, "expand_shape: more than one unknown dim in group %d", gi)
				}
				unknownPos = pos
				continue
			}
			knownProduct = NewBinaryExpr(MUL, knownProduct, NewIndexConst(uint64(outStatic[pos])))
			newDims[pos] = NewIndexConst(uint64(outStatic[pos]))
		}
		inputDim := src.Dims[gi]
		if unknownPos == -1 {
			pred = NewBinaryExpr(AND, pred, NewBinaryExpr(EQ, knownProduct, inputDim))
			continue
		}
		pred = NewBinaryExpr(AND, pred, NewBinaryExpr(EQ, NewBinaryExpr(UREM, inputDim, knownProduct), NewIndexConst(0)))
		newDims[unknownPos] = NewBinaryExpr(UDIV, inputDim, knownProduct)
	}

	vars := freshIndexVars("exp", len(newDims))
	vidx := varExprs(vars)
	oldIdx := make([]Expr, len(src.Dims))
	// Decompose each group's flat position back into the collapsed input
	// coordinate, mirroring rowMajorDecompose but scoped to one group.
	pos := 0
	for gi, group := range op.Groups {
		groupDims := make([]Expr, len(group))
		for j, p := range group {
			groupDims[j] = newDims[p]
		}
		groupIdx := make([]Expr, len(group))
		for j := range group {
			groupIdx[j] = vidx[pos+j]
		}
		oldIdx[gi] = rowMajorLinearIndex(groupDims, groupIdx)
		pos += len(group)
	}
	body, _ := src.get(oldIdx)
	result := mkLambda(src.Elem, newDims, vars, body)

	state.wellDefined(op, pred)
	return bindResult(state, res, result)
}

// encodeCastOp implements spec.md §4.3: "UB if any static result dim
// mismatches the tensor's dim."
func encodeCastOp(state *State, op *ir.CastOp) error {
	src := getTyped[*TensorValue](state.Regs, op.Source)
	res := firstOrNil(op.Results())
	outStatic, ok := tensorStaticDims(res)
	pred := Expr(NewBoolConstantExpr(true))
	if ok {
		for i, d := range outStatic {
			if d == ir.DynamicDim {
				continue
			}
			pred = NewBinaryExpr(AND, pred, NewBinaryExpr(EQ, src.Dims[i], NewIndexConst(uint64(d))))
		}
	}
	state.wellDefined(op, pred)
	return bindResult(state, res, &TensorValue{Elem: src.Elem, Dims: src.Dims, body: src.body})
}

// encodeReshapeOp implements spec.md §4.3: "UB if 1-D sizes differ."
func encodeReshapeOp(state *State, op *ir.ReshapeOp) error {
	src := getTyped[*TensorValue](state.Regs, op.Source)
	newDims := make([]Expr, len(op.Shape))
	for i, d := range op.Shape {
		newDims[i] = NewIndexConst(uint64(d))
	}
	res, sizeEq := src.reshape(newDims)
	state.wellDefined(op, sizeEq)
	return bindResult(state, firstOrNil(op.Results()), res)
}

// encodeExtractSliceOp implements spec.md §4.3: "lambda-built sliced
// tensor whose j-th output index maps to offsets[i] + inIdx[j]*strides[i];
// rank reduction drops axes whose size-1 attribute is literal."
func encodeExtractSliceOp(state *State, op *ir.ExtractSliceOp) error {
	src := getTyped[*TensorValue](state.Regs, op.Source)
	offsets := getFromMixedOps(state.Regs, op.Offsets)
	sizes := getFromMixedOps(state.Regs, op.Sizes)
	strides := getFromMixedOps(state.Regs, op.Strides)

	reduced := make(map[int]bool, len(op.RankReducedDims))
	for _, d := range op.RankReducedDims {
		reduced[d] = true
	}
	outDims := make([]Expr, 0, len(sizes))
	outAxes := make([]int, 0, len(sizes))
	for i, sz := range sizes {
		if reduced[i] {
			continue
		}
		outDims = append(outDims, sz)
		outAxes = append(outAxes, i)
	}

	vars := freshIndexVars("slc", len(outDims))
	vidx := varExprs(vars)
	srcIdx := make([]Expr, len(src.Dims))
	pred := Expr(NewBoolConstantExpr(true))
	oi := 0
	for i := range src.Dims {
		if reduced[i] {
			srcIdx[i] = offsets[i]
			continue
		}
		srcIdx[i] = NewBinaryExpr(ADD, offsets[i], NewBinaryExpr(MUL, vidx[oi], strides[i]))
		bound := NewBinaryExpr(ADD, offsets[i], NewBinaryExpr(MUL, NewBinaryExpr(SUB, sizes[i], NewIndexConst(1)), strides[i]))
		pred = NewBinaryExpr(AND, pred, NewBinaryExpr(ULT, bound, src.Dims[i]))
		oi++
	}
	body, _ := src.get(srcIdx)
	result := mkLambda(src.Elem, outDims, vars, body)

	state.wellDefined(op, pred)
	return bindResult(state, firstOrNil(op.Results()), result)
}

// encodeInsertSliceOp implements spec.md §4.3: "for every output index,
// choose the source element when in the slice and divisible by stride,
// else the destination. Slice-source bounds must hold where the
// destination is in-bounds."
func encodeInsertSliceOp(state *State, op *ir.InsertSliceOp) error {
	src := getTyped[*TensorValue](state.Regs, op.Source)
	dst := getTyped[*TensorValue](state.Regs, op.Dest)
	offsets := getFromMixedOps(state.Regs, op.Offsets)
	sizes := getFromMixedOps(state.Regs, op.Sizes)
	strides := getFromMixedOps(state.Regs, op.Strides)

	vars := freshIndexVars("ins", len(dst.Dims))
	vidx := varExprs(vars)

	inSlice := Expr(NewBoolConstantExpr(true))
	divisible := Expr(NewBoolConstantExpr(true))
	srcIdx := make([]Expr, len(src.Dims))
	for i := range dst.Dims {
		lo := offsets[i]
		hi := NewBinaryExpr(ADD, offsets[i], NewBinaryExpr(MUL, sizes[i], strides[i]))
		inSlice = NewBinaryExpr(AND, inSlice, NewBinaryExpr(AND,
			NewBinaryExpr(binaryGE(), vidx[i], lo),
			NewBinaryExpr(ULT, vidx[i], hi)))
		rel := NewBinaryExpr(SUB, vidx[i], lo)
		divisible = NewBinaryExpr(AND, divisible, NewBinaryExpr(EQ, NewBinaryExpr(UREM, rel, strides[i]), NewIndexConst(0)))
		srcIdx[i] = NewBinaryExpr(UDIV, rel, strides[i])
	}
	takeSrc := NewBinaryExpr(AND, inSlice, divisible)

	srcElem, srcInBounds := src.get(srcIdx)
	dstElem, tgtInBounds := dst.get(vidx)
	body := NewIteExpr(takeSrc, srcElem, dstElem)
	result := mkLambda(dst.Elem, dst.Dims, vars, body)

	guarded := NewBinaryExpr(AND, tgtInBounds, takeSrc)
	pred := NewForallExpr(vars, NewBinaryExpr(OR, NewNotExpr(guarded), srcInBounds))
	state.noteQuantifier()
	state.wellDefined(op, pred)
	return bindResult(state, firstOrNil(op.Results()), result)
}

func binaryGE() BinaryOp { return UGE }

// encodePadOp implements spec.md §4.3: "evaluates a padding body block at
// each out-of-source index; UB if any padding body op is UB."
func encodePadOp(state *State, op *ir.PadOp) error {
	src := getTyped[*TensorValue](state.Regs, op.Source)
	lowPad := getFromMixedOps(state.Regs, op.LowPad)
	highPad := getFromMixedOps(state.Regs, op.HighPad)

	rank := len(src.Dims)
	newDims := make([]Expr, rank)
	for i := range newDims {
		newDims[i] = NewBinaryExpr(ADD, src.Dims[i], NewBinaryExpr(ADD, lowPad[i], highPad[i]))
	}

	bodyVars := freshIndexVars("pad", rank)
	bodyArgs := make([]Binding, rank)
	for i, v := range bodyVars {
		bodyArgs[i] = NewIndexValue(NewVarExpr(v.Name, v.Width))
	}
	yielded, bodyUB, err := runRegionBody(state, op.Body, bodyArgs)
	if err != nil {
		return unsupported(op, "pad body: %v", err)
	}

	vidx := varExprs(bodyVars)
	inSource := Expr(NewBoolConstantExpr(true))
	srcIdx := make([]Expr, rank)
	for i := range newDims {
		srcIdx[i] = NewBinaryExpr(SUB, vidx[i], lowPad[i])
		inSource = NewBinaryExpr(AND, inSource, NewBinaryExpr(AND,
			NewBinaryExpr(UGE, vidx[i], lowPad[i]),
			NewBinaryExpr(ULT, srcIdx[i], src.Dims[i])))
	}
	srcElem, _ := src.get(srcIdx)
	body := NewIteExpr(inSource, srcElem, yielded[0])
	result := mkLambda(src.Elem, newDims, bodyVars, body)

	pred := NewForallExpr(bodyVars, NewBinaryExpr(OR, inSource, bodyUB))
	state.noteQuantifier()
	state.wellDefined(op, pred)
	return bindResult(state, firstOrNil(op.Results()), result)
}

func encodeTileOp(state *State, op *ir.TileOp) error {
	src := getTyped[*TensorValue](state.Regs, op.Source)
	reps := make([]Expr, len(op.Reps))
	for i, r := range op.Reps {
		reps[i] = NewIndexConst(uint64(r))
	}
	return bindResult(state, firstOrNil(op.Results()), src.tile(reps))
}

func encodeReverseOp(state *State, op *ir.ReverseOp) error {
	src := getTyped[*TensorValue](state.Regs, op.Source)
	return bindResult(state, firstOrNil(op.Results()), src.reverse(op.Axis))
}

// encodeConcatOp implements spec.md §4.3: "concat requires equal non-axis
// dims."
func encodeConcatOp(state *State, op *ir.ConcatOp) error {
	a := getTyped[*TensorValue](state.Regs, op.A)
	b := getTyped[*TensorValue](state.Regs, op.B)
	pred := Expr(NewBoolConstantExpr(true))
	for i := range a.Dims {
		if i == op.Axis {
			continue
		}
		pred = NewBinaryExpr(AND, pred, NewBinaryExpr(EQ, a.Dims[i], b.Dims[i]))
	}
	state.wellDefined(op, pred)
	return bindResult(state, firstOrNil(op.Results()), a.concat(b, op.Axis))
}

// encodeFromElementsOp implements spec.md §4.3: "a rank-1 tensor built from
// scalar operands in order."
func encodeFromElementsOp(state *State, op *ir.FromElementsOp) error {
	elems := make([]Expr, len(op.Elements))
	var elem ElemType
	for i, v := range op.Elements {
		b := state.Regs.get(v)
		elems[i] = getExprOf(b)
		elem = elemTypeOfValue(b)
	}
	dims := []Expr{NewIndexConst(uint64(len(elems)))}
	result := mkConcrete(elem, dims, elems)
	return bindResult(state, firstOrNil(op.Results()), result)
}

func elemTypeOfValue(b Binding) ElemType {
	switch v := b.(type) {
	case *IndexValue:
		return ElemType{Kind: ElemIndex}
	case *IntValue:
		return ElemType{Kind: ElemInt, IntWidth: v.Width()}
	case *FloatValue:
		return ElemType{Kind: ElemFloat, Precision: v.Precision}
	default:
		panic("elemTypeOfValue: not a scalar value")
	}
}

// encodeGenerateOp implements spec.md §4.3: "runs the body as a parallel
// loop over the result shape, equivalent to §4.5 with identity output map."
func encodeGenerateOp(state *State, op *ir.GenerateOp) error {
	res := firstOrNil(op.Results())
	outStatic, ok := tensorStaticDims(res)
	if !ok {
		return unsupported(op, "generate result must be a tensor type")
	}
	dims := make([]Expr, len(outStatic))
	dyn := 0
	for i, d := range outStatic {
		if d == ir.DynamicDim {
			dims[i] = state.Regs.getExpr(op.DynamicExtents[dyn])
			dyn++
			continue
		}
		dims[i] = NewIndexConst(uint64(d))
	}

	bodyVars := freshIndexVars("gen", len(dims))
	bodyArgs := make([]Binding, len(bodyVars))
	for i, v := range bodyVars {
		bodyArgs[i] = NewIndexValue(NewVarExpr(v.Name, v.Width))
	}
	yielded, bodyUB, err := runRegionBody(state, op.Body, bodyArgs)
	if err != nil {
		return unsupported(op, "generate body: %v", err)
	}

	elem := elemTypeOf(elemTypeOfBody(res))
	result := mkLambda(elem, dims, bodyVars, yielded[0])

	pred := NewForallExpr(bodyVars, bodyUB)
	state.noteQuantifier()
	state.wellDefined(op, pred)
	return bindResult(state, res, result)
}

func elemTypeOfBody(res *ir.Value) ir.Type {
	if tt, ok := res.Type.(ir.TensorType); ok {
		return tt.Elem
	}
	panic("elemTypeOfBody: result is not tensor-typed")
}
