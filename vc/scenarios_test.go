package vc_test

import (
	"testing"

	tv "github.com/MerHS/mlir-tv"
	"github.com/MerHS/mlir-tv/ir"
	"github.com/MerHS/mlir-tv/vc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Scenario tests exercise the full ir.Function -> tv.EncodeFunction ->
// vc.Compose pipeline end to end, in contrast to the op-level unit tests
// elsewhere in this module. Each pair is a hand-written (src, tgt) rewrite
// that a real optimization pass would perform; the test checks that
// vc.Compose agrees with the rewrite's actual soundness.

func i32Tensor(dims ...int64) ir.Type {
	return ir.TensorType{Elem: ir.IntegerType{Width: 32}, Dims: dims}
}

func denseConst(name string, dims []int64, values []float64) (*ir.Value, ir.Op) {
	v := &ir.Value{Name: name, Type: i32Tensor(dims...)}
	op := &ir.ConstantOp{OpBase: ir.OpBase{Res: []*ir.Value{v}}, Kind: ir.ConstDenseElements, DenseValues: values}
	return v, op
}

func dotFunction(name string, a, b []float64) *ir.Function {
	av, aOp := denseConst("a", []int64{3}, a)
	bv, bOp := denseConst("b", []int64{3}, b)
	r := &ir.Value{Name: "r", Type: ir.IntegerType{Width: 32}}
	dotOp := &ir.DotOp{OpBase: ir.OpBase{Res: []*ir.Value{r}}, A: av, B: bv}
	retOp := &ir.ReturnOp{Values: []*ir.Value{r}}
	return &ir.Function{
		Name:    name,
		Results: []ir.Type{ir.IntegerType{Width: 32}},
		Blocks:  []*ir.Block{{Ops: []ir.Op{aOp, bOp, dotOp, retOp}}},
	}
}

// dotCommuteFunctions builds `dot(a, b)` and `dot(b, a)` over the same two
// concrete vectors: a scheduler is free to swap a dot product's operands.
func dotCommuteFunctions() (src, tgt *ir.Function) {
	a := []float64{1, 2, 3}
	b := []float64{4, 5, 6}
	src = dotFunction("dot_ab", a, b)

	av, aOp := denseConst("a", []int64{3}, a)
	bv, bOp := denseConst("b", []int64{3}, b)
	r := &ir.Value{Name: "r", Type: ir.IntegerType{Width: 32}}
	dotOp := &ir.DotOp{OpBase: ir.OpBase{Res: []*ir.Value{r}}, A: bv, B: av}
	retOp := &ir.ReturnOp{Values: []*ir.Value{r}}
	tgt = &ir.Function{
		Name:    "dot_ba",
		Results: []ir.Type{ir.IntegerType{Width: 32}},
		Blocks:  []*ir.Block{{Ops: []ir.Op{aOp, bOp, dotOp, retOp}}},
	}
	return src, tgt
}

func TestScenarioS1_DotIsCommutative(t *testing.T) {
	src, tgt := dotCommuteFunctions()

	srcResult, err := tv.EncodeFunction(src, tv.NewMemory())
	require.NoError(t, err)
	tgtResult, err := tv.EncodeFunction(tgt, tv.NewMemory())
	require.NoError(t, err)

	obligation, err := vc.Compose(srcResult, tgtResult, nil)
	require.NoError(t, err)
	assert.True(t, tv.IsConstantTrue(obligation), "dot(a,b) and dot(b,a) over concrete vectors should fold to the same literal sum")
}

// subThenAddFunctions models `sub(a,a)` being recognized as always-zero dead
// code: `add(sub(a,a), b)` should be equivalent to `b`.
func subThenAddFunctions() (src, tgt *ir.Function) {
	i32 := ir.IntegerType{Width: 32}
	aArg := &ir.Value{Name: "a", Type: i32}
	bArg := &ir.Value{Name: "b", Type: i32}

	d := &ir.Value{Name: "d", Type: i32}
	s := &ir.Value{Name: "s", Type: i32}
	subOp := &ir.SubIOp{OpBase: ir.OpBase{Res: []*ir.Value{d}}, X: aArg, Y: aArg}
	addOp := &ir.AddIOp{OpBase: ir.OpBase{Res: []*ir.Value{s}}, X: d, Y: bArg}
	retOp := &ir.ReturnOp{Values: []*ir.Value{s}}
	src = &ir.Function{
		Name:    "sub_then_add",
		Args:    []*ir.Value{aArg, bArg},
		Results: []ir.Type{i32},
		Blocks:  []*ir.Block{{Args: []*ir.Value{aArg, bArg}, Ops: []ir.Op{subOp, addOp, retOp}}},
	}

	retOpTgt := &ir.ReturnOp{Values: []*ir.Value{bArg}}
	tgt = &ir.Function{
		Name:    "just_b",
		Args:    []*ir.Value{aArg, bArg},
		Results: []ir.Type{i32},
		Blocks:  []*ir.Block{{Args: []*ir.Value{aArg, bArg}, Ops: []ir.Op{retOpTgt}}},
	}
	return src, tgt
}

func TestScenarioS2_SubSelfIsDeadCode(t *testing.T) {
	src, tgt := subThenAddFunctions()

	// Both encodings must see the same argument values for the comparison
	// to mean anything: declare once against src and reuse against tgt,
	// matching EncodeFunctionWithArgs's documented sharing contract.
	mem := tv.NewMemory()
	args, err := tv.DeclareArgs(src, mem)
	require.NoError(t, err)

	srcResult, err := tv.EncodeFunctionWithArgs(src, mem, args)
	require.NoError(t, err)
	tgtResult, err := tv.EncodeFunctionWithArgs(tgt, mem, args)
	require.NoError(t, err)

	obligation, err := vc.Compose(srcResult, tgtResult, nil)
	require.NoError(t, err)
	assert.True(t, tv.IsConstantTrue(obligation), "add(sub(a,a), b) should fold to exactly b's expression")
}

// collapseExpandRoundTripFunctions builds a collapse_shape immediately
// followed by an inverse expand_shape, which a canonicalizer would elide
// entirely.
func collapseExpandRoundTripFunctions() (src, tgt *ir.Function) {
	vals := []float64{1, 2, 3, 4, 5, 6}

	av, aOp := denseConst("a", []int64{2, 3}, vals)
	collapsed := &ir.Value{Name: "collapsed", Type: i32Tensor(6)}
	collapseOp := &ir.CollapseShapeOp{OpBase: ir.OpBase{Res: []*ir.Value{collapsed}}, Source: av, Groups: [][]int{{0, 1}}}
	expanded := &ir.Value{Name: "expanded", Type: i32Tensor(2, 3)}
	expandOp := &ir.ExpandShapeOp{OpBase: ir.OpBase{Res: []*ir.Value{expanded}}, Source: collapsed, Groups: [][]int{{0, 1}}}
	retOp := &ir.ReturnOp{Values: []*ir.Value{expanded}}
	src = &ir.Function{
		Name:    "roundtrip",
		Results: []ir.Type{i32Tensor(2, 3)},
		Blocks:  []*ir.Block{{Ops: []ir.Op{aOp, collapseOp, expandOp, retOp}}},
	}

	av2, aOp2 := denseConst("a", []int64{2, 3}, vals)
	retOp2 := &ir.ReturnOp{Values: []*ir.Value{av2}}
	tgt = &ir.Function{
		Name:    "direct",
		Results: []ir.Type{i32Tensor(2, 3)},
		Blocks:  []*ir.Block{{Ops: []ir.Op{aOp2, retOp2}}},
	}
	return src, tgt
}

// TestScenarioS3_CollapseExpandRoundTrip checks elementwise agreement
// directly: the shapes agree by construction, and the source body is a
// lambda over bound index variables while the target is a concrete element
// list (a dense constant), so a rank-2 vc.Compose forall isn't
// needed to see they compute the same thing at every concrete position.
func TestScenarioS3_CollapseExpandRoundTrip(t *testing.T) {
	src, tgt := collapseExpandRoundTripFunctions()

	srcResult, err := tv.EncodeFunction(src, tv.NewMemory())
	require.NoError(t, err)
	tgtResult, err := tv.EncodeFunction(tgt, tv.NewMemory())
	require.NoError(t, err)

	require.True(t, tv.IsConstantTrue(srcResult.WellDefined))
	require.True(t, tv.IsConstantTrue(tgtResult.WellDefined))

	srcTensor := srcResult.Results[0].(*tv.TensorValue)
	tgtTensor := tgtResult.Results[0].(*tv.TensorValue)
	for i := int64(0); i < 2; i++ {
		for j := int64(0); j < 3; j++ {
			idx := []tv.Expr{tv.NewIndexConst(uint64(i)), tv.NewIndexConst(uint64(j))}
			sv, sInBounds := srcTensor.Read(idx)
			tv2, tInBounds := tgtTensor.Read(idx)
			assert.True(t, tv.IsConstantTrue(sInBounds))
			assert.True(t, tv.IsConstantTrue(tInBounds))
			assert.Equal(t, 0, tv.CompareExpr(sv, tv2), "element (%d,%d) should round-trip unchanged", i, j)
		}
	}
}

// storeLoadForwardingFunctions models a store immediately followed by a
// load from the same memref being forwarded to the stored value, without
// ever touching the memref again. Each function allocates its own local
// memref rather than taking one as a shared argument, since two encodings
// sharing one *tv.Memory would observe each other's array generations.
func storeLoadForwardingFunctions() (src, tgt *ir.Function) {
	vals := []float64{7, 8, 9}

	av, aOp := denseConst("a", []int64{3}, vals)
	memT := ir.MemRefType{Elem: ir.IntegerType{Width: 32}, Dims: []int64{3}}
	m := &ir.Value{Name: "m", Type: memT}
	allocOp := &ir.AllocOp{OpBase: ir.OpBase{Res: []*ir.Value{m}}, Dims: []ir.OrValue{ir.StaticAttr(3)}}
	storeOp := &ir.TensorStoreOp{Source: av, Dest: m}
	loaded := &ir.Value{Name: "loaded", Type: i32Tensor(3)}
	loadOp := &ir.TensorLoadOp{OpBase: ir.OpBase{Res: []*ir.Value{loaded}}, Source: m}
	retOp := &ir.ReturnOp{Values: []*ir.Value{loaded}}
	src = &ir.Function{
		Name:    "store_then_load",
		Results: []ir.Type{i32Tensor(3)},
		Blocks:  []*ir.Block{{Ops: []ir.Op{aOp, allocOp, storeOp, loadOp, retOp}}},
	}

	av2, aOp2 := denseConst("a", []int64{3}, vals)
	m2 := &ir.Value{Name: "m", Type: memT}
	allocOp2 := &ir.AllocOp{OpBase: ir.OpBase{Res: []*ir.Value{m2}}, Dims: []ir.OrValue{ir.StaticAttr(3)}}
	storeOp2 := &ir.TensorStoreOp{Source: av2, Dest: m2}
	retOp2 := &ir.ReturnOp{Values: []*ir.Value{av2}}
	tgt = &ir.Function{
		Name:    "forwarded",
		Results: []ir.Type{i32Tensor(3)},
		Blocks:  []*ir.Block{{Ops: []ir.Op{aOp2, allocOp2, storeOp2, retOp2}}},
	}
	return src, tgt
}

// TestScenarioS4_StoreLoadForwarding only checks well-formedness: the
// memref's post-store contents live behind an opaque array-theory select,
// so proving the load actually returns what was stored needs the store's
// array axiom discharged by a real solver, not Go-side construction-time
// folding. vc.Compose still has to build a well-formed obligation for both
// sides, which is what this test guards.
func TestScenarioS4_StoreLoadForwarding(t *testing.T) {
	src, tgt := storeLoadForwardingFunctions()

	srcResult, err := tv.EncodeFunction(src, tv.NewMemory())
	require.NoError(t, err)
	tgtResult, err := tv.EncodeFunction(tgt, tv.NewMemory())
	require.NoError(t, err)

	assert.False(t, tv.IsConstantFalse(srcResult.WellDefined))
	assert.False(t, tv.IsConstantFalse(tgtResult.WellDefined))

	obligation, err := vc.Compose(srcResult, tgtResult, nil)
	require.NoError(t, err)
	require.NotNil(t, obligation)
}

func identityMap1D() *ir.AffineMap {
	return &ir.AffineMap{NumDims: 1, Results: []*ir.AffineExpr{{Kind: ir.AffineDim, Pos: 0}}}
}

// fusedVsSeparateGenericFunctions builds `out[i] = a[i]*b[i] + c[i]` as one
// fused linalg.generic against the same computation split into two
// sequential generics, mirroring a producer-consumer fusion pass.
func fusedVsSeparateGenericFunctions() (fused, separate *ir.Function) {
	dims := []int64{3}
	a, b, c := []float64{1, 2, 3}, []float64{4, 5, 6}, []float64{10, 20, 30}

	av, aOp := denseConst("a", dims, a)
	bv, bOp := denseConst("b", dims, b)
	cv, cOp := denseConst("c", dims, c)

	ba := &ir.Value{Name: "ba", Type: ir.IntegerType{Width: 32}}
	bb := &ir.Value{Name: "bb", Type: ir.IntegerType{Width: 32}}
	bc := &ir.Value{Name: "bc", Type: ir.IntegerType{Width: 32}}
	mulR := &ir.Value{Name: "mulr", Type: ir.IntegerType{Width: 32}}
	addR := &ir.Value{Name: "addr", Type: ir.IntegerType{Width: 32}}
	mulOp := &ir.MulIOp{OpBase: ir.OpBase{Res: []*ir.Value{mulR}}, X: ba, Y: bb}
	addOp := &ir.AddIOp{OpBase: ir.OpBase{Res: []*ir.Value{addR}}, X: mulR, Y: bc}
	yieldOp := &ir.YieldOp{Values: []*ir.Value{addR}}
	body := &ir.Region{Block: &ir.Block{Args: []*ir.Value{ba, bb, bc}, Ops: []ir.Op{mulOp, addOp, yieldOp}}}

	out := &ir.Value{Name: "out", Type: i32Tensor(3)}
	fusedOp := &ir.GenericOp{
		OpBase:        ir.OpBase{Res: []*ir.Value{out}},
		Inputs:        []ir.GenericOperand{{Value: av, IndexingMap: identityMap1D()}, {Value: bv, IndexingMap: identityMap1D()}},
		Outputs:       []ir.GenericOperand{{Value: cv, IndexingMap: identityMap1D()}},
		IteratorTypes: []ir.IteratorType{ir.IterParallel},
		Body:          body,
	}
	retOp := &ir.ReturnOp{Values: []*ir.Value{out}}
	fused = &ir.Function{
		Name:    "fused",
		Results: []ir.Type{i32Tensor(3)},
		Blocks:  []*ir.Block{{Ops: []ir.Op{aOp, bOp, cOp, fusedOp, retOp}}},
	}

	av2, aOp2 := denseConst("a", dims, a)
	bv2, bOp2 := denseConst("b", dims, b)
	cv2, cOp2 := denseConst("c", dims, c)

	ba2 := &ir.Value{Name: "ba2", Type: ir.IntegerType{Width: 32}}
	bb2 := &ir.Value{Name: "bb2", Type: ir.IntegerType{Width: 32}}
	mulR2 := &ir.Value{Name: "mulr2", Type: ir.IntegerType{Width: 32}}
	mulYield := &ir.YieldOp{Values: []*ir.Value{mulR2}}
	mulBody := &ir.Region{Block: &ir.Block{Args: []*ir.Value{ba2, bb2}, Ops: []ir.Op{&ir.MulIOp{OpBase: ir.OpBase{Res: []*ir.Value{mulR2}}, X: ba2, Y: bb2}, mulYield}}}
	tmp := &ir.Value{Name: "tmp", Type: i32Tensor(3)}
	mulGeneric := &ir.GenericOp{
		OpBase:        ir.OpBase{Res: []*ir.Value{tmp}},
		Inputs:        []ir.GenericOperand{{Value: av2, IndexingMap: identityMap1D()}},
		Outputs:       []ir.GenericOperand{{Value: bv2, IndexingMap: identityMap1D()}},
		IteratorTypes: []ir.IteratorType{ir.IterParallel},
		Body:          mulBody,
	}

	bt := &ir.Value{Name: "bt", Type: ir.IntegerType{Width: 32}}
	bc2 := &ir.Value{Name: "bc2", Type: ir.IntegerType{Width: 32}}
	addR2 := &ir.Value{Name: "addr2", Type: ir.IntegerType{Width: 32}}
	addYield := &ir.YieldOp{Values: []*ir.Value{addR2}}
	addBody := &ir.Region{Block: &ir.Block{Args: []*ir.Value{bt, bc2}, Ops: []ir.Op{&ir.AddIOp{OpBase: ir.OpBase{Res: []*ir.Value{addR2}}, X: bt, Y: bc2}, addYield}}}
	out2 := &ir.Value{Name: "out2", Type: i32Tensor(3)}
	addGeneric := &ir.GenericOp{
		OpBase:        ir.OpBase{Res: []*ir.Value{out2}},
		Inputs:        []ir.GenericOperand{{Value: tmp, IndexingMap: identityMap1D()}},
		Outputs:       []ir.GenericOperand{{Value: cv2, IndexingMap: identityMap1D()}},
		IteratorTypes: []ir.IteratorType{ir.IterParallel},
		Body:          addBody,
	}
	retOp2 := &ir.ReturnOp{Values: []*ir.Value{out2}}
	separate = &ir.Function{
		Name:    "separate",
		Results: []ir.Type{i32Tensor(3)},
		Blocks:  []*ir.Block{{Ops: []ir.Op{aOp2, bOp2, cOp2, mulGeneric, addGeneric, retOp2}}},
	}
	return fused, separate
}

// TestScenarioS5_FusedMatchesSeparateGenerics checks elementwise agreement:
// linalg.generic's parallel-case well-definedness is a genuine ForallExpr
// over the induction variables, guarded by the inferred iteration bounds
// (encodeGenericParallel), so it
// does not fold to a literal true/false and vc.Compose's own forall
// wrapping would not resolve here either; sampling every concrete position
// is the reliable check for this shape.
func TestScenarioS5_FusedMatchesSeparateGenerics(t *testing.T) {
	fused, separate := fusedVsSeparateGenericFunctions()

	fusedResult, err := tv.EncodeFunction(fused, tv.NewMemory())
	require.NoError(t, err)
	separateResult, err := tv.EncodeFunction(separate, tv.NewMemory())
	require.NoError(t, err)

	fusedTensor := fusedResult.Results[0].(*tv.TensorValue)
	separateTensor := separateResult.Results[0].(*tv.TensorValue)
	for i := int64(0); i < 3; i++ {
		idx := []tv.Expr{tv.NewIndexConst(uint64(i))}
		fv, fInBounds := fusedTensor.Read(idx)
		sv, sInBounds := separateTensor.Read(idx)
		assert.True(t, tv.IsConstantTrue(fInBounds))
		assert.True(t, tv.IsConstantTrue(sInBounds))
		assert.Equal(t, 0, tv.CompareExpr(fv, sv), "element %d of the fused and split computations should match", i)
	}
}

// extractInsertRoundTripFunctions builds extract_slice immediately followed
// by inserting the extracted slice back at the same offset, which a
// canonicalizer would recognize as a no-op on the whole tensor.
func extractInsertRoundTripFunctions() (src, tgt *ir.Function) {
	vals := []float64{1, 2, 3, 4, 5, 6}

	av, aOp := denseConst("a", []int64{6}, vals)
	off := []ir.OrValue{ir.StaticAttr(2)}
	sizes := []ir.OrValue{ir.StaticAttr(3)}
	strides := []ir.OrValue{ir.StaticAttr(1)}
	slice := &ir.Value{Name: "slice", Type: i32Tensor(3)}
	extractOp := &ir.ExtractSliceOp{OpBase: ir.OpBase{Res: []*ir.Value{slice}}, Source: av, Offsets: off, Sizes: sizes, Strides: strides}
	result := &ir.Value{Name: "result", Type: i32Tensor(6)}
	insertOp := &ir.InsertSliceOp{OpBase: ir.OpBase{Res: []*ir.Value{result}}, Source: slice, Dest: av, Offsets: off, Sizes: sizes, Strides: strides}
	retOp := &ir.ReturnOp{Values: []*ir.Value{result}}
	src = &ir.Function{
		Name:    "extract_insert_roundtrip",
		Results: []ir.Type{i32Tensor(6)},
		Blocks:  []*ir.Block{{Ops: []ir.Op{aOp, extractOp, insertOp, retOp}}},
	}

	av2, aOp2 := denseConst("a", []int64{6}, vals)
	retOp2 := &ir.ReturnOp{Values: []*ir.Value{av2}}
	tgt = &ir.Function{
		Name:    "direct",
		Results: []ir.Type{i32Tensor(6)},
		Blocks:  []*ir.Block{{Ops: []ir.Op{aOp2, retOp2}}},
	}
	return src, tgt
}

func TestScenarioS6_ExtractThenInsertSliceIsIdentity(t *testing.T) {
	src, tgt := extractInsertRoundTripFunctions()

	srcResult, err := tv.EncodeFunction(src, tv.NewMemory())
	require.NoError(t, err)
	tgtResult, err := tv.EncodeFunction(tgt, tv.NewMemory())
	require.NoError(t, err)

	// insert_slice's obligation is a ForallExpr over the destination's
	// induction variable (encodeInsertSliceOp), so it does not fold to a
	// literal true even though every offset/size/stride here is static;
	// only that it isn't unconditionally false is checked here.
	assert.False(t, tv.IsConstantFalse(srcResult.WellDefined))
	require.True(t, tv.IsConstantTrue(tgtResult.WellDefined))

	srcTensor := srcResult.Results[0].(*tv.TensorValue)
	tgtTensor := tgtResult.Results[0].(*tv.TensorValue)
	for i := int64(0); i < 6; i++ {
		idx := []tv.Expr{tv.NewIndexConst(uint64(i))}
		sv, _ := srcTensor.Read(idx)
		tv2, _ := tgtTensor.Read(idx)
		assert.Equal(t, 0, tv.CompareExpr(sv, tv2), "element %d should be unchanged by the extract/insert round trip", i)
	}
}
