package tv

import (
	"github.com/MerHS/mlir-tv/ir"
)

// memrefResultType returns the declared MemRefType of an op's single
// result — every memref-family op below produces exactly one memref value.
func memrefResultType(res *ir.Value) ir.MemRefType {
	mt, ok := res.Type.(ir.MemRefType)
	assert(ok, "memref op result is not memref-typed")
	return mt
}

// encodeAllocOp implements spec.md §4.3: "a fresh, writable local block
// sized to the declared shape."
func encodeAllocOp(state *State, op *ir.AllocOp) error {
	res := firstOrNil(op.Results())
	mt := memrefResultType(res)
	elem := elemTypeOf(mt.Elem)

	dims := getFromMixedOps(state.Regs, op.Dims)
	size := productExpr(dims)
	bid := state.Mem.addLocalBlockWithElem(size, NewBoolConstantExpr(true), elem.Width())

	result := &MemRefValue{Mem: state.Mem, Elem: elem, Bid: bid, Offset: NewIndexConst(0), Dims: dims}
	return bindResult(state, res, result)
}

// encodeLoadOp implements spec.md §4.3: "UB if any index is out of bounds."
func encodeLoadOp(state *State, op *ir.LoadOp) error {
	src := getTyped[*MemRefValue](state.Regs, op.Source)
	idx := indicesOf(state, op.Indices)
	elem, inBounds := src.get(idx)
	state.wellDefined(op, inBounds)
	return bindResult(state, firstOrNil(op.Results()), scalarToValue(src.Elem, elem))
}

// encodeStoreOp implements spec.md §4.3: "UB if out of bounds or the block
// is not writable."
func encodeStoreOp(state *State, op *ir.StoreOp) error {
	dest := getTyped[*MemRefValue](state.Regs, op.Dest)
	idx := indicesOf(state, op.Indices)
	value := getExprOf(state.Regs.get(op.Value_))
	pred := dest.store(idx, value)
	state.wellDefined(op, pred)
	return nil
}

func indicesOf(state *State, vs []*ir.Value) []Expr {
	idx := make([]Expr, len(vs))
	for i, v := range vs {
		idx[i] = getExprOf(state.Regs.get(v))
	}
	return idx
}

// encodeSubviewOp implements spec.md §4.3: "a derived MemRef aliasing a
// rectangular sub-region, with rank-reduction masks from static shapes." A
// non-unit stride would need a strided affine Layout built from a possibly
// dynamic per-dimension multiplier, which the affine-map encoding (built
// from statically-known AffineExpr trees) cannot represent in general, so
// only contiguous (all-unit-stride) subviews are supported.
func encodeSubviewOp(state *State, op *ir.SubviewOp) error {
	src := getTyped[*MemRefValue](state.Regs, op.Source)
	offsets := getFromMixedOps(state.Regs, op.Offsets)
	sizes := getFromMixedOps(state.Regs, op.Sizes)
	strides := getFromMixedOps(state.Regs, op.Strides)

	for i, s := range strides {
		if c, ok := asConcreteInt(s); !ok || c != 1 {
			return unsupported(op, "subview: non-unit stride on dim %d is not supported", i)
		}
	}

	pred := Expr(NewBoolConstantExpr(true))
	for i := range offsets {
		end := NewBinaryExpr(ADD, offsets[i], NewBinaryExpr(MUL, NewBinaryExpr(SUB, sizes[i], NewIndexConst(1)), strides[i]))
		pred = NewBinaryExpr(AND, pred, NewBinaryExpr(ULT, end, src.Dims[i]))
	}
	state.wellDefined(op, pred)

	result := src.subview(offsets, sizes, op.RankReducedDims)
	return bindResult(state, firstOrNil(op.Results()), result)
}

// encodeBufferCastOp implements spec.md §4.3: "a fresh read-only block
// holding the source tensor's contents." Read-only reflects that a Tensor
// is a value, not aliasable storage: the cast may not be used to observe
// writes made through some other alias.
func encodeBufferCastOp(state *State, op *ir.BufferCastOp) error {
	src := getTyped[*TensorValue](state.Regs, op.Source)
	bid := state.Mem.addLocalBlockWithElem(productExpr(src.Dims), NewBoolConstantExpr(false), src.Elem.Width())
	dest := &MemRefValue{Mem: state.Mem, Elem: src.Elem, Bid: bid, Offset: NewIndexConst(0), Dims: src.Dims}
	state.Mem.setWritable(bid, false)
	pred := dest.storeArray(src)
	state.wellDefined(op, pred)
	return bindResult(state, firstOrNil(op.Results()), dest)
}

// encodeCloneOp implements spec.md §4.3: "a fresh read-only block copying
// the source memref's contents; the source becomes non-writable" — cloning
// severs the two memrefs' write-visibility so an optimizer cannot fuse a
// clone away.
func encodeCloneOp(state *State, op *ir.CloneOp) error {
	src := getTyped[*MemRefValue](state.Regs, op.Source)
	bid := state.Mem.addLocalBlockWithElem(productExpr(src.Dims), NewBoolConstantExpr(false), src.Elem.Width())
	dest := &MemRefValue{Mem: state.Mem, Elem: src.Elem, Bid: bid, Offset: NewIndexConst(0), Dims: src.Dims}

	vars := freshIndexVars("cl", len(src.Dims))
	vidx := varExprs(vars)
	elem, inBounds := src.get(vidx)
	copied := mkLambda(src.Elem, src.Dims, vars, elem)
	pred := andAll(dest.storeArray(copied), NewForallExpr(vars, inBounds))
	state.noteQuantifier()

	state.Mem.setWritable(bid, false)
	state.Mem.setWritable(src.Bid, false)
	state.wellDefined(op, pred)
	return bindResult(state, firstOrNil(op.Results()), dest)
}

// encodeTensorLoadOp implements spec.md §4.3: "lift a memref to a Tensor
// value via a lambda over the block's symbolic array; the source becomes
// non-writable, since the lifted Tensor must remain a stable snapshot."
func encodeTensorLoadOp(state *State, op *ir.TensorLoadOp) error {
	src := getTyped[*MemRefValue](state.Regs, op.Source)
	state.Mem.setWritable(src.Bid, false)

	vars := freshIndexVars("tl", len(src.Dims))
	vidx := varExprs(vars)
	elem, _ := src.get(vidx)
	result := mkLambda(src.Elem, src.Dims, vars, elem)
	return bindResult(state, firstOrNil(op.Results()), result)
}

// encodeTensorStoreOp implements spec.md §4.3: "write a Tensor's contents
// into a memref; UB if the shapes differ."
func encodeTensorStoreOp(state *State, op *ir.TensorStoreOp) error {
	src := getTyped[*TensorValue](state.Regs, op.Source)
	dest := getTyped[*MemRefValue](state.Regs, op.Dest)

	pred := Expr(NewBoolConstantExpr(true))
	for i := range src.Dims {
		pred = NewBinaryExpr(AND, pred, NewBinaryExpr(EQ, src.Dims[i], dest.Dims[i]))
	}
	storePred := dest.storeArray(src)
	state.wellDefined(op, andAll(pred, storePred))
	return nil
}
