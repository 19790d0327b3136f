package tv

import (
	"testing"

	"github.com/MerHS/mlir-tv/ir"
)

// TestDeterminism exercises spec.md §8's first invariant: encoding the same
// function twice, from two independent States, produces syntactically-equal
// Exprs. This must hold for a function whose body touches a linalg.generic
// reduction, since that is the one op family whose scratch accumulator name
// used to leak from a process-global counter instead of a per-State one.
func TestDeterminism(t *testing.T) {
	fn := reductionFunction()

	mem1 := NewMemory()
	args1, err := DeclareArgs(fn, mem1)
	if err != nil {
		t.Fatal(err)
	}
	res1, err := EncodeFunctionWithArgs(fn, mem1, args1)
	if err != nil {
		t.Fatal(err)
	}

	mem2 := NewMemory()
	args2, err := DeclareArgs(fn, mem2)
	if err != nil {
		t.Fatal(err)
	}
	res2, err := EncodeFunctionWithArgs(fn, mem2, args2)
	if err != nil {
		t.Fatal(err)
	}

	if diff := CompareExpr(res1.WellDefined, res2.WellDefined); diff != 0 {
		t.Fatalf("two encodings of the same function disagree on WellDefined:\n%v\nvs\n%v", res1.WellDefined, res2.WellDefined)
	}
	if len(res1.Results) != len(res2.Results) {
		t.Fatalf("result count differs: %d vs %d", len(res1.Results), len(res2.Results))
	}
	e1 := scalarResultExpr(res1.Results[0])
	e2 := scalarResultExpr(res2.Results[0])
	if diff := CompareExpr(e1, e2); diff != 0 {
		t.Fatalf("two encodings of the same function disagree on their result:\n%v\nvs\n%v", e1, e2)
	}
}

// scalarResultExpr reads out a comparable Expr from any single-value result
// binding, including a rank-0 TensorValue (linalg.generic's fully-reduced
// case never produces a bare scalar Binding, only a 0-dim tensor).
func scalarResultExpr(b Binding) Expr {
	if t, ok := b.(*TensorValue); ok {
		e, _ := t.get(nil)
		return e
	}
	return getExprOf(b)
}

// reductionFunction builds a one-argument function summing a 1-D tensor via
// linalg.generic's reduction case: %0 = generic(%arg0) { iterator = [reduction] }.
func reductionFunction() *ir.Function {
	elem := ir.IntegerType{Width: 32}
	tensorTy := ir.TensorType{Elem: elem, Dims: []int64{4}}
	arg := &ir.Value{Name: "arg0", Type: tensorTy}
	res := &ir.Value{Name: "sum", Type: elem}

	bodyIn := &ir.Value{Name: "bin", Type: elem}
	bodyAcc := &ir.Value{Name: "bacc", Type: elem}
	sum := &ir.Value{Name: "bsum", Type: elem}
	addOp := &ir.AddIOp{OpBase: ir.OpBase{Res: []*ir.Value{sum}}, X: bodyIn, Y: bodyAcc}
	yieldOp := &ir.YieldOp{Values: []*ir.Value{sum}}

	identityMap := &ir.AffineMap{NumDims: 1, Results: []*ir.AffineExpr{{Kind: ir.AffineDim, Pos: 0}}}
	scalarMap := &ir.AffineMap{NumDims: 1, Results: nil}

	genOp := &ir.GenericOp{
		OpBase:        ir.OpBase{Res: []*ir.Value{res}},
		Inputs:        []ir.GenericOperand{{Value: arg, IndexingMap: identityMap}},
		Outputs:       []ir.GenericOperand{{Value: arg, IndexingMap: scalarMap}},
		IteratorTypes: []ir.IteratorType{ir.IterReduction},
		Body: &ir.Region{Block: &ir.Block{
			Args: []*ir.Value{bodyIn, bodyAcc},
			Ops:  []ir.Op{addOp, yieldOp},
		}},
	}

	returnOp := &ir.ReturnOp{Values: []*ir.Value{res}}

	return &ir.Function{
		Name:    "sum1d",
		Args:    []*ir.Value{arg},
		Results: []ir.Type{elem},
		Blocks:  []*ir.Block{{Args: []*ir.Value{arg}, Ops: []ir.Op{genOp, returnOp}}},
	}
}

// TestUBMonotonicity exercises spec.md §8's UB-monotonicity invariant: once
// an op's well-definedness obligation conjoins a non-trivial (or false)
// predicate into the running total, no later op can loosen it back toward
// true. State.wellDefined only ever ANDs, never replaces, so a false
// obligation is absorbing and a true one is a no-op.
func TestUBMonotonicity(t *testing.T) {
	s := NewState(NewMemory())
	if !IsConstantTrue(s.WellDefinedPred()) {
		t.Fatal("expected a fresh State to start well-defined")
	}

	x := NewVarExpr("x", 32)
	cond := NewBinaryExpr(ULT, x, NewConstantExpr(10, 32))
	s.wellDefined(nil, cond)
	if IsConstantTrue(s.WellDefinedPred()) {
		t.Fatal("expected a non-trivial predicate to survive conjunction")
	}
	if diff := CompareExpr(s.WellDefinedPred(), cond); diff != 0 {
		t.Fatalf("AND(true, cond) should fold to cond, got %v", s.WellDefinedPred())
	}

	s.wellDefined(nil, NewBoolConstantExpr(false))
	if !IsConstantFalse(s.WellDefinedPred()) {
		t.Fatalf("expected AND(cond, false) to collapse to false, got %v", s.WellDefinedPred())
	}

	// Once false, a later op's obligation (even one that is trivially true)
	// must never resurrect well-definedness.
	s.wellDefined(nil, NewBoolConstantExpr(true))
	if !IsConstantFalse(s.WellDefinedPred()) {
		t.Fatalf("expected false to be absorbing, got %v", s.WellDefinedPred())
	}
}

// TestBroadcastSoundness exercises spec.md §8's broadcast invariant: lifting
// two operand shapes to a common output shape must never shrink either
// side's declared extent, and must report failure (ok == false, which the
// elementwise encoder turns into an Unsupported error) exactly when the two
// shapes are not broadcast-compatible under numpy-style rules.
func TestBroadcastSoundness(t *testing.T) {
	// (2,3) broadcast with (3): trailing-aligned, size-1 axes may stretch,
	// so the result is (2,3) and both sides map their axes without dropping
	// any known extent.
	aStatic := []int64{2, 3}
	bStatic := []int64{3}
	aDims := []Expr{NewIndexConst(2), NewIndexConst(3)}
	bDims := []Expr{NewIndexConst(3)}

	outStatic, outA, outB, ok := broadcastDims(aStatic, bStatic, aDims, bDims)
	if !ok {
		t.Fatal("expected (2,3) and (3,) to be broadcast-compatible")
	}
	if len(outStatic) != 2 || outStatic[0] != 2 || outStatic[1] != 3 {
		t.Fatalf("broadcast output shape = %v, want [2 3]", outStatic)
	}
	if CompareExpr(outA[0], NewIndexConst(2)) != 0 || CompareExpr(outA[1], NewIndexConst(3)) != 0 {
		t.Fatalf("a's per-axis dims = %v, want [2 3]", outA)
	}
	if CompareExpr(outB[0], NewIndexConst(1)) != 0 || CompareExpr(outB[1], NewIndexConst(3)) != 0 {
		t.Fatalf("b's per-axis dims = %v, want [1 3] (b has no axis 0, so it is padded with an implicit 1)", outB)
	}

	// (2,3) and (4,) never broadcast: neither extent is 1 nor equal.
	if _, _, _, ok := broadcastDims([]int64{2, 3}, []int64{4}, aDims, []Expr{NewIndexConst(4)}); ok {
		t.Fatal("expected (2,3) and (4,) to be broadcast-incompatible")
	}
}

// TestReshapeRoundTrip exercises spec.md §8's reshape invariant: reshaping a
// concrete tensor to a same-size shape and back must read back the original
// elements at every index, and reshaping to a different-size shape must
// report the size mismatch as UB (a false sizeEq), not silently succeed.
func TestReshapeRoundTrip(t *testing.T) {
	elem := ElemType{Kind: ElemInt, IntWidth: 32}
	elems := make([]Expr, 6)
	for i := range elems {
		elems[i] = NewConstantExpr(uint64(i), 32)
	}
	src := mkConcrete(elem, []Expr{NewIndexConst(2), NewIndexConst(3)}, elems)

	reshaped, sizeEq := src.reshape([]Expr{NewIndexConst(3), NewIndexConst(2)})
	if !IsConstantTrue(sizeEq) {
		t.Fatalf("expected (2,3) -> (3,2) to preserve the flattened size, got %v", sizeEq)
	}

	roundTripped, sizeEq2 := reshaped.reshape([]Expr{NewIndexConst(2), NewIndexConst(3)})
	if !IsConstantTrue(sizeEq2) {
		t.Fatalf("expected (3,2) -> (2,3) to preserve the flattened size, got %v", sizeEq2)
	}

	for i := int64(0); i < 2; i++ {
		for j := int64(0); j < 3; j++ {
			want, _ := src.get([]Expr{NewIndexConst(uint64(i)), NewIndexConst(uint64(j))})
			got, _ := roundTripped.get([]Expr{NewIndexConst(uint64(i)), NewIndexConst(uint64(j))})
			if CompareExpr(want, got) != 0 {
				t.Fatalf("round-tripped element (%d,%d) = %v, want %v", i, j, got, want)
			}
		}
	}

	_, badSizeEq := src.reshape([]Expr{NewIndexConst(4)})
	if IsConstantTrue(badSizeEq) {
		t.Fatal("expected a size-changing reshape to be reported as UB")
	}
}

// TestPad exercises spec.md §8's pad invariant: every in-source index reads
// through to the source tensor unchanged, and every out-of-source index
// reads the padding body's yielded value.
func TestPad(t *testing.T) {
	elem := ElemType{Kind: ElemInt, IntWidth: 32}
	src := mkConcrete(elem, []Expr{NewIndexConst(2)}, []Expr{NewConstantExpr(11, 32), NewConstantExpr(22, 32)})

	state := NewState(NewMemory())
	srcVal := &ir.Value{Name: "s", Type: ir.TensorType{Elem: ir.IntegerType{Width: 32}, Dims: []int64{2}}}
	state.Regs.add(srcVal, src)

	padConst := &ir.Value{Name: "pv", Type: ir.IntegerType{Width: 32}}
	constOp := &ir.ConstantOp{OpBase: ir.OpBase{Res: []*ir.Value{padConst}}, Kind: ir.ConstInt, IntValue: 99}
	yieldOp := &ir.YieldOp{Values: []*ir.Value{padConst}}

	padIdx := &ir.Value{Name: "pidx", Type: ir.IndexType{}}
	res := &ir.Value{Name: "r", Type: ir.TensorType{Elem: ir.IntegerType{Width: 32}, Dims: []int64{4}}}
	op := &ir.PadOp{
		OpBase:  ir.OpBase{Res: []*ir.Value{res}},
		Source:  srcVal,
		LowPad:  []ir.OrValue{ir.StaticAttr(1)},
		HighPad: []ir.OrValue{ir.StaticAttr(1)},
		Body:    &ir.Region{Block: &ir.Block{Args: []*ir.Value{padIdx}, Ops: []ir.Op{constOp, yieldOp}}},
	}

	if err := encodePadOp(state, op); err != nil {
		t.Fatal(err)
	}

	padded := state.Regs.get(res).(*TensorValue)
	pad, _ := padded.get([]Expr{NewIndexConst(0)})
	if CompareExpr(pad, NewConstantExpr(99, 32)) != 0 {
		t.Fatalf("out-of-source index 0 = %v, want the padding constant 99", pad)
	}
	mid0, _ := padded.get([]Expr{NewIndexConst(1)})
	if CompareExpr(mid0, NewConstantExpr(11, 32)) != 0 {
		t.Fatalf("in-source index 1 = %v, want source element 11", mid0)
	}
	mid1, _ := padded.get([]Expr{NewIndexConst(2)})
	if CompareExpr(mid1, NewConstantExpr(22, 32)) != 0 {
		t.Fatalf("in-source index 2 = %v, want source element 22", mid1)
	}
	tail, _ := padded.get([]Expr{NewIndexConst(3)})
	if CompareExpr(tail, NewConstantExpr(99, 32)) != 0 {
		t.Fatalf("out-of-source index 3 = %v, want the padding constant 99", tail)
	}
}

// TestGenericReductionCorrectness exercises spec.md §8's reduction
// invariant: linalg.generic's reduction case's static unroll produces the
// same scalar a literal sum-of-elements would.
func TestGenericReductionCorrectness(t *testing.T) {
	state := NewState(NewMemory())
	fn := reductionFunction()

	// Bind arg0 to a concrete tensor so the reduction unrolls over literal
	// elements instead of a symbolic array.
	elem := ElemType{Kind: ElemInt, IntWidth: 32}
	concrete := mkConcrete(elem, []Expr{NewIndexConst(4)}, []Expr{
		NewConstantExpr(1, 32), NewConstantExpr(2, 32), NewConstantExpr(3, 32), NewConstantExpr(4, 32),
	})
	state.Regs.add(fn.Args[0], concrete)
	genOp := fn.Blocks[0].Ops[0].(*ir.GenericOp)
	if err := encodeGenericOp(state, genOp); err != nil {
		t.Fatal(err)
	}

	// A fully-reduced generic (no output-map results) binds a rank-0
	// TensorValue holding the summed scalar, per encodeGenericReduction's
	// "allZero" case.
	result := state.Regs.get(genOp.Results()[0]).(*TensorValue)
	sum, _ := result.get(nil)
	if CompareExpr(sum, NewConstantExpr(10, 32)) != 0 {
		t.Fatalf("reduction sum = %v, want the literal 10", sum)
	}
}
