package tv

import (
	"fmt"

	"github.com/MerHS/mlir-tv/ir"
)

// runRegionBody symbolically encodes a region's block exactly once, with
// its block arguments bound to fresh free variables (boundVars/argBindings)
// rather than to any single concrete value. The resulting yielded
// expressions and body well-definedness predicate are therefore themselves
// parameterized by those free variables — callers (pad, generate,
// linalg.generic) wrap the predicate in a forall and/or drop the
// expressions into a LambdaExpr body, instantiating them per index via
// substituteVars, without ever re-running the block.
//
// The child state shares the parent's register file and memory (region
// block arguments and intermediate results carry ir.Value identities
// distinct from anything else in the function, so there is no binding
// collision) but accumulates its own well-definedness predicate, since the
// body's UB must be wrapped in a quantifier before joining the parent's,
// not conjoined directly.
func runRegionBody(state *State, region *ir.Region, argBindings []Binding) (yielded []Expr, bodyUB Expr, err error) {
	if region == nil || region.Block == nil {
		return nil, NewBoolConstantExpr(true), fmt.Errorf("region body is missing")
	}
	block := region.Block
	if len(block.Args) != len(argBindings) {
		return nil, nil, fmt.Errorf("region body: arity mismatch: %d args, %d bindings", len(block.Args), len(argBindings))
	}
	for i, arg := range block.Args {
		state.Regs.add(arg, argBindings[i])
	}

	child := &State{Regs: state.Regs, Mem: state.Mem, wellDefinedPred: NewBoolConstantExpr(true)}

	var yieldOp *ir.YieldOp
	pre := func(op ir.Op, idx int) bool {
		if y, ok := op.(*ir.YieldOp); ok {
			yieldOp = y
			return true
		}
		return false
	}
	if err := RunBlock(child, block, pre, nil); err != nil {
		return nil, nil, err
	}
	if yieldOp == nil {
		return nil, nil, fmt.Errorf("region body does not terminate with yield")
	}

	state.hasConstArray = state.hasConstArray || child.hasConstArray
	state.hasQuantifier = state.hasQuantifier || child.hasQuantifier

	yielded = make([]Expr, len(yieldOp.Values))
	for i, v := range yieldOp.Values {
		yielded[i] = state.Regs.getExpr(v)
	}
	return yielded, child.wellDefinedPred, nil
}
