package tv

import (
	"fmt"

	"github.com/MerHS/mlir-tv/ir"
)

// PreHook runs before an op is encoded; returning true skips the op
// entirely (spec.md §4.4: "used to intercept yield inside loop bodies").
type PreHook func(op ir.Op, idx int) bool

// PostHook runs after an op is successfully encoded (spec.md §4.4: "used
// to accumulate the body-UB predicate for loop bodies").
type PostHook func(op ir.Op, idx int)

// EncodeResult is the core's produced surface (spec.md §6): a symbolic
// value per result already lives in state.Regs, this just packages the
// three artifacts the SMT backend consumes.
type EncodeResult struct {
	Results       []Binding
	WellDefined   Expr
	Memory        *Memory
	HasConstArray bool
	HasQuantifier bool
}

// EncodeFunction is the top-level entry point: encode a single-block
// function end to end (spec.md §4.4's block driver, called with no hooks),
// giving each argument its own fresh, unconstrained symbolic value.
func EncodeFunction(fn *ir.Function, mem *Memory) (*EncodeResult, error) {
	args, err := DeclareArgs(fn, mem)
	if err != nil {
		return nil, err
	}
	return EncodeFunctionWithArgs(fn, mem, args)
}

// EncodeFunctionWithArgs is EncodeFunction with the argument bank supplied
// by the caller rather than freshly manufactured. Translation validation
// (package vc) compares a source and a target encoding of the same
// function signature under the *same* input values (spec.md §6's
// equivalence query is only meaningful when both sides are fed identical
// arguments); calling this twice, once per program, with one DeclareArgs
// result shared between both calls, is how that identity is established —
// by construction, not by an extra SMT-level equality premise.
func EncodeFunctionWithArgs(fn *ir.Function, mem *Memory, args []Binding) (*EncodeResult, error) {
	if len(fn.Blocks) != 1 {
		return nil, errMultiBlock(fn)
	}
	if len(args) != len(fn.Args) {
		return nil, fmt.Errorf("mlir-tv: %s: got %d argument bindings, function declares %d", fn.Name, len(args), len(fn.Args))
	}
	state := NewState(mem)
	for i, a := range fn.Args {
		state.Regs.add(a, args[i])
	}
	if err := RunBlock(state, fn.Blocks[0], nil, nil); err != nil {
		return nil, err
	}
	// Every memref.store queued a defining equation tying its post-store
	// array to its pre-store array; those are unconditional truths about
	// the encoding, so folding them into WellDefined (rather than exposing
	// a separate field) is sound and keeps EncodeResult's surface small.
	wellDefined := andAll(append([]Expr{state.WellDefinedPred()}, state.Mem.PendingDefs()...)...)
	// Snapshot rather than hand back the live *Memory: when two encodings
	// share one Memory (package vc's setup), the live pointer would keep
	// mutating after this call returns and this program's "final" contents
	// would silently become whatever the other program left behind.
	return &EncodeResult{
		Results:       state.ReturnValues(),
		WellDefined:   wellDefined,
		Memory:        state.Mem.Snapshot(),
		HasConstArray: state.HasConstArray(),
		HasQuantifier: state.HasQuantifier(),
	}, nil
}

// DeclareArgs manufactures one fresh, fully unconstrained symbolic Binding
// per entry in fn.Args, named positionally ("arg0", "arg1", ...) rather
// than from fn.Args[i].Name — two functions sharing a signature (the usual
// translation-validation setup) then get structurally identical argument
// shapes regardless of what the two IRs happened to name their parameters.
// Memref arguments additionally allocate a fresh, writable block in mem.
func DeclareArgs(fn *ir.Function, mem *Memory) ([]Binding, error) {
	args := make([]Binding, len(fn.Args))
	for i, a := range fn.Args {
		v, err := declareArg(mem, fmt.Sprintf("arg%d", i), a.Type)
		if err != nil {
			return nil, fmt.Errorf("mlir-tv: %s: argument %d (%s): %w", fn.Name, i, a.Name, err)
		}
		args[i] = v
	}
	return args, nil
}

func declareArg(mem *Memory, name string, t ir.Type) (Binding, error) {
	switch t := t.(type) {
	case ir.IndexType:
		return NewIndexValue(NewVarExpr(name, IndexBits)), nil
	case ir.IntegerType:
		return NewIntValue(NewVarExpr(name, t.Width)), nil
	case ir.FloatType:
		p := F32
		if t.Precision == ir.F64 {
			p = F64
		}
		return NewFloatValue(NewUninterpretedExpr(name+"!f", p.Width()), p), nil
	case ir.TensorType:
		elem := elemTypeOf(t.Elem)
		dims := declareDims(name, t.Dims)
		arr := NewArrayVarExpr(mem.freshArrayID(), name+"!arr", IndexBits, elem.Width())
		vars := freshIndexVars(name+"!i", len(dims))
		lin := rowMajorLinearIndex(dims, varExprs(vars))
		return mkLambda(elem, dims, vars, NewArraySelectExpr(arr, lin)), nil
	case ir.MemRefType:
		elem := elemTypeOf(t.Elem)
		dims := declareDims(name, t.Dims)
		bid := mem.addLocalBlockWithElem(productExpr(dims), NewBoolConstantExpr(true), elem.Width())
		return &MemRefValue{Mem: mem, Elem: elem, Bid: bid, Offset: NewIndexConst(0), Dims: dims, Layout: t.Layout}, nil
	default:
		return nil, fmt.Errorf("no symbolic argument form for type %s", t)
	}
}

// declareDims builds one Index-sorted dim per entry in staticDims: a
// concrete constant for a statically-known extent, a fresh free variable
// for ir.DynamicDim.
func declareDims(prefix string, staticDims []int64) []Expr {
	dims := make([]Expr, len(staticDims))
	for i, d := range staticDims {
		if d == ir.DynamicDim {
			dims[i] = NewVarExpr(fmt.Sprintf("%s!dim%d", prefix, i), IndexBits)
		} else {
			dims[i] = NewIndexConst(uint64(d))
		}
	}
	return dims
}

// RunBlock iterates block.Ops in order, dispatching each to its encoder
// (spec.md §4.4). No op ever reorders; the driver is purely sequential.
func RunBlock(state *State, block *ir.Block, pre PreHook, post PostHook) error {
	for idx, op := range block.Ops {
		if pre != nil && pre(op, idx) {
			continue
		}
		if err := encodeOp(state, op); err != nil {
			return fmt.Errorf("op %d: %w", idx, err)
		}
		if post != nil {
			post(op, idx)
		}
	}
	return nil
}

// encodeOp dispatches on the concrete op type, the way the teacher's
// executor dispatches on concrete ssa.Instruction types (executor.go).
// Each case both computes the op's symbolic result(s) and folds its UB
// obligation into state via state.wellDefined, then binds every declared
// result via state.Regs.add.
func encodeOp(state *State, op ir.Op) error {
	switch op := op.(type) {

	// --- scalar arithmetic ---------------------------------------------
	case *ir.AddFOp:
		return encodeAddFOp(state, op)
	case *ir.SubFOp:
		return encodeSubFOp(state, op)
	case *ir.MulFOp:
		return encodeMulFOp(state, op)
	case *ir.NegFOp:
		return encodeNegFOp(state, op)
	case *ir.CmpFOp:
		return encodeCmpFOp(state, op)
	case *ir.ExtFOp:
		return encodeExtFOp(state, op)
	case *ir.TruncFOp:
		return encodeTruncFOp(state, op)
	case *ir.AddIOp:
		return encodeAddIOp(state, op)
	case *ir.SubIOp:
		return encodeSubIOp(state, op)
	case *ir.MulIOp:
		return encodeMulIOp(state, op)

	// --- constants -------------------------------------------------------
	case *ir.ConstantOp:
		return encodeConstantOp(state, op)

	// --- shape manipulation ----------------------------------------------
	case *ir.DimOp:
		return encodeDimOp(state, op)
	case *ir.CollapseShapeOp:
		return encodeCollapseShapeOp(state, op)
	case *ir.ExpandShapeOp:
		return encodeExpandShapeOp(state, op)
	case *ir.CastOp:
		return encodeCastOp(state, op)
	case *ir.ReshapeOp:
		return encodeReshapeOp(state, op)
	case *ir.ExtractSliceOp:
		return encodeExtractSliceOp(state, op)
	case *ir.InsertSliceOp:
		return encodeInsertSliceOp(state, op)
	case *ir.PadOp:
		return encodePadOp(state, op)
	case *ir.TileOp:
		return encodeTileOp(state, op)
	case *ir.ReverseOp:
		return encodeReverseOp(state, op)
	case *ir.ConcatOp:
		return encodeConcatOp(state, op)
	case *ir.FromElementsOp:
		return encodeFromElementsOp(state, op)
	case *ir.GenerateOp:
		return encodeGenerateOp(state, op)

	// --- linalg ------------------------------------------------------------
	case *ir.InitTensorOp:
		return encodeInitTensorOp(state, op)
	case *ir.FillOp:
		return encodeFillOp(state, op)
	case *ir.MatmulOp:
		return encodeMatmulOp(state, op)
	case *ir.DotOp:
		return encodeDotOp(state, op)
	case *ir.Conv2DNchwFchwOp:
		return encodeConv2DNchwFchwOp(state, op)
	case *ir.Conv2DNhwcHwcfOp:
		return encodeConv2DNhwcHwcfOp(state, op)
	case *ir.CopyOp:
		return encodeCopyOp(state, op)
	case *ir.GenericOp:
		return encodeGenericOp(state, op)

	// --- memref --------------------------------------------------------
	case *ir.AllocOp:
		return encodeAllocOp(state, op)
	case *ir.LoadOp:
		return encodeLoadOp(state, op)
	case *ir.StoreOp:
		return encodeStoreOp(state, op)
	case *ir.SubviewOp:
		return encodeSubviewOp(state, op)
	case *ir.BufferCastOp:
		return encodeBufferCastOp(state, op)
	case *ir.CloneOp:
		return encodeCloneOp(state, op)
	case *ir.TensorLoadOp:
		return encodeTensorLoadOp(state, op)
	case *ir.TensorStoreOp:
		return encodeTensorStoreOp(state, op)

	// --- tosa ------------------------------------------------------------
	case *ir.TosaAbsOp:
		return encodeTosaAbsOp(state, op)
	case *ir.TosaAddOp:
		return encodeTosaAddOp(state, op)
	case *ir.TosaSubOp:
		return encodeTosaSubOp(state, op)
	case *ir.TosaMulOp:
		return encodeTosaMulOp(state, op)
	case *ir.TosaNegateOp:
		return encodeTosaNegateOp(state, op)
	case *ir.TosaReshapeOp:
		return encodeTosaReshapeOp(state, op)
	case *ir.TosaBitwiseOp:
		return encodeTosaBitwiseOp(state, op)

	// --- affine ------------------------------------------------------------
	case *ir.AffineApplyOp:
		return encodeAffineApplyOp(state, op)

	// --- select ------------------------------------------------------------
	case *ir.SelectOp:
		return encodeSelectOp(state, op)

	// --- terminators -------------------------------------------------------
	case *ir.ReturnOp:
		return encodeReturnOp(state, op)
	case *ir.YieldOp:
		return encodeYieldOp(state, op)

	default:
		return unsupported(op, "no encoder registered for %T", op)
	}
}

// bindResult is the common "compute one value, register it" tail every
// single-result encoder shares.
func bindResult(state *State, res *ir.Value, v Binding) error {
	if res == nil {
		return nil
	}
	state.Regs.add(res, v)
	return nil
}

func encodeReturnOp(state *State, op *ir.ReturnOp) error {
	values := make([]Binding, len(op.Values))
	for i, v := range op.Values {
		values[i] = state.Regs.get(v)
	}
	state.setReturn(values)
	return nil
}

// encodeYieldOp binds nothing on its own: linalg.generic's driver loop
// intercepts Yield via a pre-hook (spec.md §4.4) and reads its operands
// directly rather than routing through the register file, since Yield's
// "result" is not an SSA value but the loop body's per-iteration output.
func encodeYieldOp(state *State, op *ir.YieldOp) error {
	return nil
}
