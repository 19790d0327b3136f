package tv

import "github.com/MerHS/mlir-tv/ir"

// rowMajorLinearIndex folds a multi-dimensional index tuple into a single
// Index-sorted linear offset, outermost dimension first — the layout
// Tensor.asArray and reshape/collapse_shape/expand_shape all share.
func rowMajorLinearIndex(dims []Expr, indices []Expr) Expr {
	if len(dims) == 0 {
		return NewIndexConst(0)
	}
	lin := indices[0]
	for i := 1; i < len(dims); i++ {
		lin = NewBinaryExpr(ADD, NewBinaryExpr(MUL, lin, dims[i]), indices[i])
	}
	return lin
}

// rowMajorDecompose is the inverse of rowMajorLinearIndex: it recovers an
// index tuple from a linear offset given the same dimension list.
func rowMajorDecompose(dims []Expr, linear Expr) []Expr {
	n := len(dims)
	idx := make([]Expr, n)
	rem := linear
	for i := n - 1; i >= 1; i-- {
		idx[i] = NewBinaryExpr(UREM, rem, dims[i])
		rem = NewBinaryExpr(UDIV, rem, dims[i])
	}
	if n > 0 {
		idx[0] = rem
	}
	return idx
}

// productExpr returns the Index-sorted product of dims (1 for rank 0).
func productExpr(dims []Expr) Expr {
	p := Expr(NewIndexConst(1))
	for _, d := range dims {
		p = NewBinaryExpr(MUL, p, d)
	}
	return p
}

// andAll conjoins preds into a single boolean Expr; an empty list is
// vacuously true. The driver and several op encoders (ops_linalg.go,
// ops_memref.go, value_memref.go) use it when gathering UB conditions
// before a single wellDefined call.
func andAll(preds ...Expr) Expr {
	seen := make(map[uint64][]Expr)
	result := Expr(NewBoolConstantExpr(true))
	for _, p := range preds {
		if p == nil || isDuplicate(seen, p) {
			continue
		}
		result = NewBinaryExpr(AND, result, p)
	}
	return result
}

// isDuplicate reports whether p is structurally identical to some Expr
// already folded into result, recording p under its fingerprint bucket
// either way. Sibling ops routinely emit the same bounds check (spec.md
// §4's per-op well-definedness predicates), and dropping exact repeats
// keeps the obligation handed to the solver from growing with the IR's
// size for no semantic gain.
func isDuplicate(seen map[uint64][]Expr, p Expr) bool {
	fp := Fingerprint(p)
	for _, q := range seen[fp] {
		if CompareExpr(p, q) == 0 {
			return true
		}
	}
	seen[fp] = append(seen[fp], p)
	return false
}

// encodeAffineExpr evaluates one affine expression tree over dimension and
// symbol operand values (spec.md §4.6). ok is false for any kind outside
// the supported set (add, mul, dim, symbol, non-negative constant) — a
// total function per spec.md's contract, never a panic.
func encodeAffineExpr(e *ir.AffineExpr, dimVals, symVals []Expr) (Expr, bool) {
	switch e.Kind {
	case ir.AffineConstant:
		if e.Value < 0 {
			return nil, false
		}
		return NewIndexConst(uint64(e.Value)), true
	case ir.AffineDim:
		if e.Pos < 0 || e.Pos >= len(dimVals) {
			return nil, false
		}
		return dimVals[e.Pos], true
	case ir.AffineSymbol:
		if e.Pos < 0 || e.Pos >= len(symVals) {
			return nil, false
		}
		return symVals[e.Pos], true
	case ir.AffineAdd:
		lhs, ok := encodeAffineExpr(e.LHS, dimVals, symVals)
		if !ok {
			return nil, false
		}
		rhs, ok := encodeAffineExpr(e.RHS, dimVals, symVals)
		if !ok {
			return nil, false
		}
		return NewBinaryExpr(ADD, lhs, rhs), true
	case ir.AffineMul:
		lhs, ok := encodeAffineExpr(e.LHS, dimVals, symVals)
		if !ok {
			return nil, false
		}
		rhs, ok := encodeAffineExpr(e.RHS, dimVals, symVals)
		if !ok {
			return nil, false
		}
		return NewBinaryExpr(MUL, lhs, rhs), true
	default:
		return nil, false
	}
}

// encodeAffineMap evaluates every result of m, returning false as a whole
// if any result uses an unsupported AffineExprKind.
func encodeAffineMap(m *ir.AffineMap, dimVals, symVals []Expr) ([]Expr, bool) {
	out := make([]Expr, len(m.Results))
	for i, r := range m.Results {
		v, ok := encodeAffineExpr(r, dimVals, symVals)
		if !ok {
			return nil, false
		}
		out[i] = v
	}
	return out, true
}

// broadcastDims implements the NumPy-style shape unification of spec.md
// §4.3 "Element-wise over tensors" / §4.6 broadcastTensors: right-align,
// matching dims must be equal or one must be 1, dynamic/static may not mix
// in one axis (both dynamic is preserved, one dynamic one static is
// unsupported — the op encoder turns that into an Unsupported error).
//
// aStatic/bStatic carry the IR-declared static dims (ir.DynamicDim for `?`)
// so the unsupported dynamic/static-mix case can be detected before any
// Expr is built; aDims/bDims are the corresponding symbolic Index values.
// It returns the broadcast rank's static shape (ir.DynamicDim marks a dynamic axis)
// and the per-operand symbolic dims each side should be padded/broadcast
// to, or ok=false if the shapes cannot broadcast at all.
func broadcastDims(aStatic, bStatic []int64, aDims, bDims []Expr) (outStatic []int64, outA, outB []Expr, ok bool) {
	rank := len(aStatic)
	if len(bStatic) > rank {
		rank = len(bStatic)
	}
	outStatic = make([]int64, rank)
	outA = make([]Expr, rank)
	outB = make([]Expr, rank)

	one := Expr(NewIndexConst(1))
	for i := 0; i < rank; i++ {
		ai := len(aStatic) - rank + i
		bi := len(bStatic) - rank + i

		var as, bs int64 = 1, 1
		var ad, bd Expr = one, one
		if ai >= 0 {
			as, ad = aStatic[ai], aDims[ai]
		}
		if bi >= 0 {
			bs, bd = bStatic[bi], bDims[bi]
		}

		switch {
		case as == ir.DynamicDim && bs == ir.DynamicDim:
			outStatic[i] = ir.DynamicDim
		case as == ir.DynamicDim || bs == ir.DynamicDim:
			// one side dynamic, the other static: unsupported mix.
			return nil, nil, nil, false
		case as == 1:
			outStatic[i] = bs
		case bs == 1:
			outStatic[i] = as
		case as == bs:
			outStatic[i] = as
		default:
			return nil, nil, nil, false
		}
		outA[i] = ad
		outB[i] = bd
	}
	return outStatic, outA, outB, true
}

// evalIndexCast implements spec.md §4.6's `evalIndexCast`: bit-vector
// extract/sign-extend between integer/index widths. `index` uses IndexBits.
func evalIndexCast(src Expr, srcSigned bool, dstWidth uint) Expr {
	srcWidth := ExprWidth(src)
	if dstWidth == srcWidth {
		return src
	}
	if dstWidth < srcWidth {
		return NewExtractExpr(src, 0, dstWidth)
	}
	return NewCastExpr(src, dstWidth, srcSigned)
}

// asConcreteInt unwraps e as a compile-time constant, used by op encoders
// (matmul, dot, conv, linalg.generic's reduction) that must unroll a loop
// of statically-known extent into a finite Expr tree — the same
// restriction the original tool's C++ encoder has, since a bit-vector/array
// theory query cannot express a fold over a symbolically-unbounded range.
func asConcreteInt(e Expr) (int64, bool) {
	c, ok := e.(*ConstantExpr)
	if !ok {
		return 0, false
	}
	return int64(c.Value), true
}

// getFromMixedOps normalizes a list of "either IR value or integer
// attribute" operands (spec.md §4.6's `getFromMixedOps<T>`) into concrete
// Index expressions, reading dynamic operands from the register file.
func getFromMixedOps(regs *RegisterFile, ops []ir.OrValue) []Expr {
	out := make([]Expr, len(ops))
	for i, o := range ops {
		if o.IsStatic() {
			out[i] = NewIndexConst(uint64(o.Static))
		} else {
			out[i] = getExprOf(regs.get(o.Value))
		}
	}
	return out
}
