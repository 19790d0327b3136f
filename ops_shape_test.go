package tv

import (
	"testing"

	"github.com/MerHS/mlir-tv/ir"
)

func TestEncodeDimOp_InBounds(t *testing.T) {
	state := NewState(NewMemory())
	elem := ElemType{Kind: ElemInt, IntWidth: 32}
	tensor := mkConcrete(elem, []Expr{NewIndexConst(2), NewIndexConst(3)}, []Expr{
		NewConstantExpr(0, 32), NewConstantExpr(1, 32), NewConstantExpr(2, 32),
		NewConstantExpr(3, 32), NewConstantExpr(4, 32), NewConstantExpr(5, 32),
	})
	src := &ir.Value{Name: "t", Type: ir.TensorType{Elem: ir.IntegerType{Width: 32}, Dims: []int64{2, 3}}}
	state.Regs.add(src, tensor)

	res := &ir.Value{Name: "d", Type: ir.IndexType{}}
	op := &ir.DimOp{OpBase: ir.OpBase{Res: []*ir.Value{res}}, Source: src, Index: 1}

	if err := encodeDimOp(state, op); err != nil {
		t.Fatal(err)
	}
	if !IsConstantTrue(state.WellDefinedPred()) {
		t.Fatal("expected an in-bounds dim query to be well-defined")
	}
	bound := state.Regs.get(res).(*IndexValue)
	if CompareExpr(bound.E, NewIndexConst(3)) != 0 {
		t.Fatalf("dim(1) = %v, want 3", bound.E)
	}
}

func TestEncodeDimOp_OutOfBoundsIsUB(t *testing.T) {
	state := NewState(NewMemory())
	elem := ElemType{Kind: ElemInt, IntWidth: 32}
	tensor := mkConcrete(elem, []Expr{NewIndexConst(2)}, []Expr{NewConstantExpr(0, 32), NewConstantExpr(1, 32)})
	src := &ir.Value{Name: "t", Type: ir.TensorType{Elem: ir.IntegerType{Width: 32}, Dims: []int64{2}}}
	state.Regs.add(src, tensor)

	res := &ir.Value{Name: "d", Type: ir.IndexType{}}
	op := &ir.DimOp{OpBase: ir.OpBase{Res: []*ir.Value{res}}, Source: src, Index: 5}

	if err := encodeDimOp(state, op); err != nil {
		t.Fatal(err)
	}
	if IsConstantTrue(state.WellDefinedPred()) {
		t.Fatal("expected an out-of-bounds dim index to be UB")
	}
}

func TestEncodeInsertSliceOp_ObligationGuardedByDestInBounds(t *testing.T) {
	state := NewState(NewMemory())
	elem := ElemType{Kind: ElemInt, IntWidth: 32}
	src := mkConcrete(elem, []Expr{NewIndexConst(2)}, []Expr{NewConstantExpr(0, 32), NewConstantExpr(1, 32)})
	dst := mkConcrete(elem, []Expr{NewIndexConst(4)}, []Expr{
		NewConstantExpr(0, 32), NewConstantExpr(1, 32), NewConstantExpr(2, 32), NewConstantExpr(3, 32),
	})
	srcVal := &ir.Value{Name: "s", Type: ir.TensorType{Elem: ir.IntegerType{Width: 32}, Dims: []int64{2}}}
	dstVal := &ir.Value{Name: "d", Type: ir.TensorType{Elem: ir.IntegerType{Width: 32}, Dims: []int64{4}}}
	state.Regs.add(srcVal, src)
	state.Regs.add(dstVal, dst)

	res := &ir.Value{Name: "r", Type: ir.TensorType{Elem: ir.IntegerType{Width: 32}, Dims: []int64{4}}}
	op := &ir.InsertSliceOp{
		OpBase:  ir.OpBase{Res: []*ir.Value{res}},
		Source:  srcVal,
		Dest:    dstVal,
		Offsets: []ir.OrValue{ir.StaticAttr(1)},
		Sizes:   []ir.OrValue{ir.StaticAttr(2)},
		Strides: []ir.OrValue{ir.StaticAttr(1)},
	}

	if err := encodeInsertSliceOp(state, op); err != nil {
		t.Fatal(err)
	}

	vars := freshIndexVars("ins", 1)
	vidx := varExprs(vars)
	_, tgtInBounds := dst.get(vidx)

	forall, ok := state.WellDefinedPred().(*ForallExpr)
	if !ok {
		t.Fatalf("well-defined pred = %T, want *ForallExpr", state.WellDefinedPred())
	}
	orExpr, ok := forall.Body.(*BinaryExpr)
	if !ok || orExpr.Op != OR {
		t.Fatalf("forall body = %v, want a top-level OR", forall.Body)
	}
	notExpr, ok := orExpr.LHS.(*NotExpr)
	if !ok {
		t.Fatalf("forall body LHS = %T, want *NotExpr", orExpr.LHS)
	}
	guarded, ok := notExpr.Expr.(*BinaryExpr)
	if !ok || guarded.Op != AND {
		t.Fatalf("negated obligation = %v, want an AND of dest-in-bounds and takeSrc", notExpr.Expr)
	}
	if CompareExpr(guarded.LHS, tgtInBounds) != 0 {
		t.Fatalf("negated obligation's guard = %v, want the destination in-bounds predicate %v", guarded.LHS, tgtInBounds)
	}
}
