package tv

import (
	"fmt"

	"github.com/MerHS/mlir-tv/ir"
)

// MemRefValue is spec.md §3's MemRef: a reference into Memory (block id,
// byte/element offset) plus static shape/layout metadata. Unlike Tensor,
// MemRef aliases mutable storage: two MemRefValues can name overlapping
// regions of the same block.
type MemRefValue struct {
	Mem    *Memory
	Elem   ElemType
	Bid    uint64 // memory block id
	Offset Expr   // IndexBits-wide element offset into the block's array
	Dims   []Expr
	Layout *ir.AffineMap // nil for the identity (row-major) layout
}

func (v *MemRefValue) String() string {
	return fmt.Sprintf("memref<%s x %s>@%d+%s", v.Dims, v.Elem, v.Bid, v.Offset)
}

func (v *MemRefValue) Rank() int { return len(v.Dims) }

// linearOffset resolves indices to the element offset within the block's
// array, honoring a non-identity Layout when present (spec.md §4.3
// memref.subview / non-identity layout maps).
func (v *MemRefValue) linearOffset(indices []Expr) (Expr, bool) {
	if v.Layout == nil {
		return NewBinaryExpr(ADD, v.Offset, rowMajorLinearIndex(v.Dims, indices)), true
	}
	dimVals := indices
	results, ok := encodeAffineMap(v.Layout, dimVals, nil)
	if !ok || len(results) != 1 {
		return nil, false
	}
	return NewBinaryExpr(ADD, v.Offset, results[0]), true
}

// isInBounds is the shared bounds predicate get/store rely on.
func (v *MemRefValue) isInBounds(indices []Expr) Expr {
	inBounds := Expr(NewBoolConstantExpr(true))
	for i, idx := range indices {
		inBounds = NewBinaryExpr(AND, inBounds, NewBinaryExpr(ULT, idx, v.Dims[i]))
	}
	return inBounds
}

// Read is the exported form of get, for callers outside package tv that
// build cross-encoding equivalence obligations (package vc) over a MemRef's
// observable contents.
func (v *MemRefValue) Read(indices []Expr) (Expr, Expr) { return v.get(indices) }

// get reads the element at indices, returning the read Expr and the
// combined "in bounds" predicate (spec.md §3 MemRef `get`).
func (v *MemRefValue) get(indices []Expr) (Expr, Expr) {
	off, ok := v.linearOffset(indices)
	inBounds := v.isInBounds(indices)
	if !ok {
		return nil, NewBoolConstantExpr(false)
	}
	return v.Mem.load(v.Bid, off), inBounds
}

// store writes value at indices and returns the well-definedness predicate
// (in-bounds AND writable) the caller must fold in (spec.md §4.3
// memref.store: "UB if out of bounds or the block is not writable").
func (v *MemRefValue) store(indices []Expr, value Expr) Expr {
	off, ok := v.linearOffset(indices)
	pred := NewBinaryExpr(AND, v.isInBounds(indices), v.Mem.isWritable(v.Bid))
	if !ok {
		return NewBoolConstantExpr(false)
	}
	v.Mem.store(v.Bid, off, value)
	return pred
}

// storeArray bulk-writes an already-flattened array of values (used by
// tensor_store, where the whole tensor is committed at once), returning the
// same well-definedness obligation as a single store, plus the sequence of
// (offset, value) equations the driver must assert.
func (v *MemRefValue) storeArray(t *TensorValue) Expr {
	assert(len(t.Dims) == len(v.Dims), "storeArray: rank mismatch")
	vars := freshIndexVars("sa", len(v.Dims))
	vidx := varExprs(vars)
	elem, tInBounds := t.get(vidx)
	off, ok := v.linearOffset(vidx)
	assert(ok, "storeArray: non-identity layout unsupported for bulk store")
	v.Mem.store(v.Bid, off, elem)
	return andAll(tInBounds)
}

// subview returns a MemRef aliasing a rectangular sub-region of v given its
// offsets and sizes, plus which dims to rank-reduce (spec.md §4.3
// memref.subview); it takes no strides. Callers must have already rejected non-unit strides (encodeSubviewOp
// does this before calling in), so the parent's row-major Layout stays
// valid for the result.
func (v *MemRefValue) subview(offsets, sizes []Expr, rankReduced []int) *MemRefValue {
	newOffset := v.Offset
	prevStrides := stridesOf(v.Dims)
	for i, off := range offsets {
		newOffset = NewBinaryExpr(ADD, newOffset, NewBinaryExpr(MUL, off, prevStrides[i]))
	}

	reduced := make(map[int]bool, len(rankReduced))
	for _, d := range rankReduced {
		reduced[d] = true
	}
	newDims := make([]Expr, 0, len(sizes))
	for i, sz := range sizes {
		if reduced[i] {
			continue
		}
		newDims = append(newDims, sz)
	}

	return &MemRefValue{Mem: v.Mem, Elem: v.Elem, Bid: v.Bid, Offset: newOffset, Dims: newDims, Layout: v.Layout}
}

// stridesOf computes row-major strides for dims (outermost dim has the
// largest stride), used by subview's offset arithmetic.
func stridesOf(dims []Expr) []Expr {
	n := len(dims)
	strides := make([]Expr, n)
	if n == 0 {
		return strides
	}
	strides[n-1] = NewIndexConst(1)
	for i := n - 2; i >= 0; i-- {
		strides[i] = NewBinaryExpr(MUL, strides[i+1], dims[i+1])
	}
	return strides
}

// noalias reports whether v and other can never overlap: distinct backing
// blocks are always disjoint under this heap model (spec.md §3's MemRef
// `noalias`); same-block aliasing is conservatively "may alias" (false).
func (v *MemRefValue) noalias(other *MemRefValue) Expr {
	if v.Bid == other.Bid {
		return NewBoolConstantExpr(false)
	}
	return v.Mem.noalias(v.Bid, other.Bid)
}

// isIdentityMap reports whether v uses the default row-major layout.
func (v *MemRefValue) isIdentityMap() bool { return v.Layout == nil }

// mkIte selects between two same-shaped MemRefs by aliasing the same block
// under a symbolic condition — used when a select op chooses between two
// memref-typed operands (spec.md §3 MemRef `mkIte`). Since MemRef identity
// is (block, offset), the "ite" is over those scalar fields, not a
// pointwise element-ite.
func memrefIte(cond Expr, t, f *MemRefValue) *MemRefValue {
	assert(t.Mem == f.Mem, "mkIte: memrefs from different heaps")
	assert(t.Bid == f.Bid, "mkIte: memref block ids must already agree; divergent blocks need offset-level ite over a shared block")
	offset := NewIteExpr(cond, t.Offset, f.Offset)
	dims := make([]Expr, len(t.Dims))
	for i := range t.Dims {
		dims[i] = NewIteExpr(cond, t.Dims[i], f.Dims[i])
	}
	return &MemRefValue{Mem: t.Mem, Elem: t.Elem, Bid: t.Bid, Offset: offset, Dims: dims, Layout: t.Layout}
}
