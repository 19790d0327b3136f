package tv

import (
	"github.com/MerHS/mlir-tv/ir"
)

// encodeSelectOp implements spec.md §4.3 "Select.": dispatches on the
// operand kind. A tensor-typed true/false value builds an elementwise ite,
// with the condition either a scalar (broadcast to every index) or itself a
// same-shaped tensor; a memref-typed true/false value only allows a scalar
// condition and delegates to MemRef.mkIte; anything else is a plain scalar
// ite.
func encodeSelectOp(state *State, op *ir.SelectOp) error {
	trueB := state.Regs.get(op.TrueVal)
	falseB := state.Regs.get(op.FalseVal)

	switch t := trueB.(type) {
	case *TensorValue:
		f, ok := falseB.(*TensorValue)
		if !ok {
			return unsupported(op, "select: true/false operands must have matching kinds")
		}
		pred := Expr(NewBoolConstantExpr(true))
		for i := range t.Dims {
			pred = NewBinaryExpr(AND, pred, NewBinaryExpr(EQ, t.Dims[i], f.Dims[i]))
		}

		condB := state.Regs.get(op.Cond)
		var condAt func(idx []Expr) Expr
		if condT, ok := condB.(*TensorValue); ok {
			for i := range t.Dims {
				pred = NewBinaryExpr(AND, pred, NewBinaryExpr(EQ, condT.Dims[i], t.Dims[i]))
			}
			condAt = func(idx []Expr) Expr {
				e, _ := condT.get(idx)
				return e
			}
		} else {
			condExpr := getExprOf(condB)
			condAt = func(idx []Expr) Expr { return condExpr }
		}

		state.wellDefined(op, pred)
		result := mkIte(t.Dims, t.Elem, condAt, t, f)
		return bindResult(state, firstOrNil(op.Results()), result)

	case *MemRefValue:
		f, ok := falseB.(*MemRefValue)
		if !ok {
			return unsupported(op, "select: true/false operands must have matching kinds")
		}
		if _, isTensor := state.Regs.get(op.Cond).(*TensorValue); isTensor {
			return unsupported(op, "select: memref operands require a scalar condition")
		}
		pred := Expr(NewBoolConstantExpr(true))
		for i := range t.Dims {
			pred = NewBinaryExpr(AND, pred, NewBinaryExpr(EQ, t.Dims[i], f.Dims[i]))
		}
		state.wellDefined(op, pred)
		cond := getExprOf(state.Regs.get(op.Cond))
		result := memrefIte(cond, t, f)
		return bindResult(state, firstOrNil(op.Results()), result)

	default:
		cond := getExprOf(state.Regs.get(op.Cond))
		result := NewIteExpr(cond, getExprOf(trueB), getExprOf(falseB))
		return bindResult(state, firstOrNil(op.Results()), scalarToValue(elemTypeOfValue(trueB), result))
	}
}
