package tv

import (
	"github.com/MerHS/mlir-tv/ir"
)

// encodeGenericOp implements spec.md §4.5, the central algorithm of the
// tensor-algebra dialect: a single op parameterized by per-operand indexing
// maps and an iterator-type list, whose body is either a pure elementwise
// (parallel) computation or a single accumulating reduction.
func encodeGenericOp(state *State, op *ir.GenericOp) error {
	numIters := len(op.IteratorTypes)

	bounds, err := inferLoopBounds(state, op, numIters)
	if err != nil {
		return err
	}
	upperBounds := make([]Expr, numIters)
	for k, d := range bounds {
		upperBounds[k] = NewBinaryExpr(SUB, d, NewIndexConst(1))
	}
	state.wellDefined(op, shapeMatchUB(state, op, upperBounds))

	indVars := freshIndexVars("gi", numIters)
	indExprs := varExprs(indVars)
	state.pushGenericScope(indVars, upperBounds)
	defer state.popGenericScope()

	reducedPos := -1
	nReduced := 0
	for k, it := range op.IteratorTypes {
		if it == ir.IterReduction {
			nReduced++
			reducedPos = k
		} else if it != ir.IterParallel {
			return unsupported(op, "generic: unsupported iterator type")
		}
	}

	if nReduced == 0 {
		return encodeGenericParallel(state, op, indVars, indExprs, bounds)
	}
	if nReduced > 1 || len(op.Outputs) != 1 {
		return unsupported(op, "generic: reduction case supports exactly one reduction axis and one output")
	}
	return encodeGenericReduction(state, op, indVars, indExprs, bounds, reducedPos)
}

// inferLoopBounds implements spec.md §4.5's "loop-bound inference": for
// every output dimension position that appears as a bare AffineDimExpr in
// some operand's indexing map, bind that iterator's extent to the first
// operand dimension that mentions it. An iterator no operand ever mentions
// has no defined extent and the op is rejected.
func inferLoopBounds(state *State, op *ir.GenericOp, numIters int) ([]Expr, error) {
	bounds := make([]Expr, numIters)
	found := make([]bool, numIters)

	bind := func(operand ir.GenericOperand) error {
		dims, err := operandDims(state, operand.Value)
		if err != nil {
			return err
		}
		for idx, r := range operand.IndexingMap.Results {
			if r.Kind != ir.AffineDim {
				continue
			}
			if r.Pos < 0 || r.Pos >= numIters {
				continue
			}
			if !found[r.Pos] {
				bounds[r.Pos] = dims[idx]
				found[r.Pos] = true
			}
		}
		return nil
	}

	for _, in := range op.Inputs {
		if err := bind(in); err != nil {
			return nil, err
		}
	}
	for _, out := range op.Outputs {
		if err := bind(out); err != nil {
			return nil, err
		}
	}

	for k := range bounds {
		if !found[k] {
			return nil, unsupported(op, "generic: iterator %d's extent is not bound by any operand", k)
		}
	}
	return bounds, nil
}

// genericElemType extracts the scalar element type of a generic operand's
// declared IR type, whether it is tensor-, memref-, or scalar-typed —
// elemTypeOfBody only handles the tensor case, which linalg.generic's
// memref outputs and scalar operands don't satisfy.
func genericElemType(v *ir.Value) ElemType {
	switch t := v.Type.(type) {
	case ir.TensorType:
		return elemTypeOf(t.Elem)
	case ir.MemRefType:
		return elemTypeOf(t.Elem)
	default:
		return elemTypeOf(t)
	}
}

// operandDims returns an operand's per-axis symbolic Dims, whether it is a
// tensor or a memref operand; a rank-0 (scalar) operand has none.
func operandDims(state *State, v *ir.Value) ([]Expr, error) {
	switch b := state.Regs.get(v).(type) {
	case *TensorValue:
		return b.Dims, nil
	case *MemRefValue:
		return b.Dims, nil
	default:
		return nil, nil
	}
}

// shapeMatchUB implements spec.md §4.5's static shape-match obligation: for
// every operand indexing-map result f(iter), applying f to the inferred
// upper bounds must stay within that operand's declared dimension whenever
// the dimension is not statically zero.
func shapeMatchUB(state *State, op *ir.GenericOp, upperBounds []Expr) Expr {
	pred := Expr(NewBoolConstantExpr(true))
	check := func(operand ir.GenericOperand) {
		dims, err := operandDims(state, operand.Value)
		if err != nil || dims == nil {
			return
		}
		for idx, r := range operand.IndexingMap.Results {
			f, ok := encodeAffineExpr(r, upperBounds, nil)
			if !ok {
				continue
			}
			dim := dims[idx]
			cond := NewBinaryExpr(OR, NewBinaryExpr(EQ, dim, NewIndexConst(0)), NewBinaryExpr(ULT, f, dim))
			pred = NewBinaryExpr(AND, pred, cond)
		}
	}
	for _, in := range op.Inputs {
		check(in)
	}
	for _, out := range op.Outputs {
		check(out)
	}
	return pred
}

// bindBodyArgs implements spec.md §4.5's per-iteration body-argument
// binding: scalar operands pass their outer value through unchanged (it does
// not vary with the loop), tensor/memref operands are read at
// indexingMap(indVars). accVar, if non-nil, overrides the binding for the
// final (accumulator) body argument with a fresh free variable instead of an
// actual read, since the reduction case pattern-matches the body symbolically
// rather than threading a real accumulator value through iterations.
func bindBodyArgs(state *State, op ir.Op, operands []ir.GenericOperand, indExprs []Expr, accVar *BoundVar) ([]Binding, Expr, error) {
	bindings := make([]Binding, len(operands))
	pred := Expr(NewBoolConstantExpr(true))
	for i, operand := range operands {
		if accVar != nil && i == len(operands)-1 {
			elem := genericElemType(operand.Value)
			bindings[i] = scalarToValue(elem, NewVarExpr(accVar.Name, accVar.Width))
			continue
		}
		idx, ok := encodeAffineMap(operand.IndexingMap, indExprs, nil)
		if !ok {
			return nil, nil, unsupported(op, "generic: unsupported indexing map")
		}
		switch b := state.Regs.get(operand.Value).(type) {
		case *TensorValue:
			elem, inBounds := b.get(idx)
			bindings[i] = scalarToValue(b.Elem, elem)
			pred = NewBinaryExpr(AND, pred, inBounds)
		case *MemRefValue:
			elem, inBounds := b.get(idx)
			bindings[i] = scalarToValue(b.Elem, elem)
			pred = NewBinaryExpr(AND, pred, inBounds)
		default:
			bindings[i] = b
		}
	}
	return bindings, pred, nil
}

// guardIterUB quantifies ub over indVars so that it must hold only at
// iteration points within the innermost generic scope's upper bounds.
func guardIterUB(state *State, indVars []BoundVar, indExprs []Expr, ub Expr) Expr {
	inIter := Expr(NewBoolConstantExpr(true))
	for k, bnd := range state.currentGenericScope().indVarUpperBnds {
		inIter = NewBinaryExpr(AND, inIter, NewBinaryExpr(ULE, indExprs[k], bnd))
	}
	return NewForallExpr(indVars, NewBinaryExpr(OR, NewNotExpr(inIter), ub))
}

// encodeGenericParallel implements spec.md §4.5's parallel case: every
// output's indexing map must be a permutation, and each result is a lambda
// built directly from the body's yielded expression over the full iteration
// space, well-definedness quantified over every iteration point within the
// inferred loop bounds.
func encodeGenericParallel(state *State, op *ir.GenericOp, indVars []BoundVar, indExprs []Expr, bounds []Expr) error {
	allOperands := append(append([]ir.GenericOperand{}, op.Inputs...), op.Outputs...)
	argBindings, argPred, err := bindBodyArgs(state, op, allOperands, indExprs, nil)
	if err != nil {
		return err
	}
	yielded, bodyUB, err := runRegionBody(state, op.Body, argBindings)
	if err != nil {
		return err
	}
	fullUB := NewBinaryExpr(AND, argPred, bodyUB)
	state.wellDefined(op, guardIterUB(state, indVars, indExprs, fullUB))
	state.noteQuantifier()

	resultIdx := 0
	for i, out := range op.Outputs {
		if !out.IndexingMap.IsPermutation() {
			return unsupported(op, "generic: parallel case requires a permutation output map")
		}
		// out.IndexingMap is a permutation of the iterators, so its results
		// name, in output-axis order, which iterator (and therefore which
		// already-inferred bound) backs that axis.
		outVars := make([]BoundVar, len(out.IndexingMap.Results))
		outDims := make([]Expr, len(out.IndexingMap.Results))
		for j, r := range out.IndexingMap.Results {
			outVars[j] = indVars[r.Pos]
			outDims[j] = bounds[r.Pos]
		}

		destB := state.Regs.get(out.Value)
		if dest, ok := destB.(*MemRefValue); ok {
			if !op.EncodeMemWriteOps {
				return unsupported(op, "generic: memref outputs require EncodeMemWriteOps")
			}
			result := mkLambda(dest.Elem, outDims, outVars, yielded[i])
			pred := dest.storeArray(result)
			state.wellDefined(op, pred)
			continue
		}
		elem := genericElemType(out.Value)
		result := mkLambda(elem, outDims, outVars, yielded[i])
		if err := bindResult(state, firstOrNilAt(op.Results(), resultIdx), result); err != nil {
			return err
		}
		resultIdx++
	}
	return nil
}

// encodeGenericReduction implements spec.md §4.5's reduction case: the body
// is run once with the accumulator argument bound to a fresh free variable,
// the yielded expression is matched against one of the four
// `add(acc, v)`/`add(v, acc)` shapes, and v — a function of the full
// iteration cube — is summed along the reduction axis by concrete unrolling.
func encodeGenericReduction(state *State, op *ir.GenericOp, indVars []BoundVar, indExprs []Expr, bounds []Expr, reducedPos int) error {
	out := op.Outputs[0]
	elem := genericElemType(out.Value)
	accVar := BoundVar{Name: state.freshScratchName("acc"), Width: elem.Width()}

	allOperands := append(append([]ir.GenericOperand{}, op.Inputs...), op.Outputs...)
	argBindings, argPred, err := bindBodyArgs(state, op, allOperands, indExprs, &accVar)
	if err != nil {
		return err
	}
	yielded, bodyUB, err := runRegionBody(state, op.Body, argBindings)
	if err != nil {
		return err
	}
	if len(yielded) != 1 {
		return unsupported(op, "generic: reduction case requires exactly one yielded value")
	}
	v, ok := matchAccumulation(yielded[0], accVar.Name, elem)
	if !ok {
		return unsupported(op, "generic: unsupported reduction body shape")
	}

	extent, ok := asConcreteInt(bounds[reducedPos])
	if !ok {
		return unsupported(op, "generic: reduction extent must be statically known")
	}

	// Which iterators the output map actually threads through determine the
	// result's shape; every other iterator (there is exactly one here,
	// reducedPos) is summed away.
	allZero := true
	usedVars := make([]BoundVar, 0, len(out.IndexingMap.Results))
	usedDims := make([]Expr, 0, len(out.IndexingMap.Results))
	for _, r := range out.IndexingMap.Results {
		if r.Kind == ir.AffineDim {
			allZero = false
			usedVars = append(usedVars, indVars[r.Pos])
			usedDims = append(usedDims, bounds[r.Pos])
		}
	}

	addF, _ := addMulFor(elem)
	zero := zeroOf(elem)

	sumOver := func(subst map[string]Expr) Expr {
		acc := zero
		for i := int64(0); i < extent; i++ {
			s := make(map[string]Expr, len(subst)+1)
			for k, e := range subst {
				s[k] = e
			}
			s[indVars[reducedPos].Name] = NewIndexConst(uint64(i))
			acc = addF(acc, substituteVars(v, s))
		}
		return acc
	}

	fullUB := NewBinaryExpr(AND, argPred, bodyUB)
	state.wellDefined(op, guardIterUB(state, indVars, indExprs, fullUB))
	if len(usedVars) > 0 {
		state.noteQuantifier()
	}

	var result *TensorValue
	if allZero {
		splat := sumOver(nil)
		dims := make([]Expr, len(out.IndexingMap.Results))
		for i := range dims {
			dims[i] = NewIndexConst(1)
		}
		result = mkLambda(elem, dims, freshIndexVars("gz", len(dims)), splat)
	} else {
		body := sumOver(nil)
		result = mkLambda(elem, usedDims, usedVars, body)
	}

	if dest, ok := state.Regs.get(out.Value).(*MemRefValue); ok {
		if !op.EncodeMemWriteOps {
			return unsupported(op, "generic: memref outputs require EncodeMemWriteOps")
		}
		storePred := dest.storeArray(result)
		state.wellDefined(op, storePred)
		return nil
	}
	return bindResult(state, firstOrNil(op.Results()), result)
}

// matchAccumulation pattern-matches yield against the four syntactic shapes
// spec.md §4.5 names: `add(acc, v)` or `add(v, acc)`, for either the abstract
// float `fadd` uninterpreted function or the bit-vector ADD operator. Any
// other shape is unsupported by design, not by omission: symbolically
// summing an arbitrary recurrence is not expressible as a closed-form Expr.
func matchAccumulation(yield Expr, accName string, elem ElemType) (Expr, bool) {
	isAcc := func(e Expr) bool {
		v, ok := e.(*VarExpr)
		return ok && v.Name == accName
	}
	if elem.Kind == ElemFloat {
		u, ok := yield.(*UninterpretedExpr)
		if !ok || u.Name != "fadd" || len(u.Args) != 2 {
			return nil, false
		}
		if isAcc(u.Args[0]) {
			return u.Args[1], true
		}
		if isAcc(u.Args[1]) {
			return u.Args[0], true
		}
		return nil, false
	}
	b, ok := yield.(*BinaryExpr)
	if !ok || b.Op != ADD {
		return nil, false
	}
	if isAcc(b.LHS) {
		return b.RHS, true
	}
	if isAcc(b.RHS) {
		return b.LHS, true
	}
	return nil, false
}

// firstOrNilAt returns vs[i] if it exists, else nil — op.Results() may be
// shorter than op.Outputs when some outputs are memrefs (destination-passing,
// producing no SSA result).
func firstOrNilAt(vs []*ir.Value, i int) *ir.Value {
	if i < 0 || i >= len(vs) {
		return nil
	}
	return vs[i]
}

