package tv

import (
	"github.com/MerHS/mlir-tv/ir"
)

// encodeAffineApplyOp implements spec.md §4.6: evaluate a one-result affine
// map over its dimension/symbol operands. An unsupported AffineExprKind is
// an Unsupported error, not UB — the map itself is malformed for this core,
// not merely producing an out-of-range value at runtime.
func encodeAffineApplyOp(state *State, op *ir.AffineApplyOp) error {
	dimVals := indicesOf(state, op.DimOperands)
	symVals := indicesOf(state, op.SymbolOperands)

	results, ok := encodeAffineMap(op.Map, dimVals, symVals)
	if !ok || len(results) != 1 {
		return unsupported(op, "affine.apply: unsupported affine map")
	}
	return bindResult(state, firstOrNil(op.Results()), NewIndexValue(results[0]))
}
