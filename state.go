package tv

import (
	"fmt"

	"github.com/MerHS/mlir-tv/ir"
)

// RegisterFile binds each IR SSA value to the Binding produced when its
// defining op was encoded, mirroring the teacher's StackFrame.bindings map
// generalized from ssa.Value to *ir.Value and from the {Expr, Array, Tuple}
// sum to the full Value taxonomy. A single function is single-block per
// spec.md §6, so unlike the teacher there is no per-frame stack: one flat
// map suffices for the whole encoding.
type RegisterFile struct {
	bindings map[*ir.Value]Binding
}

func NewRegisterFile() *RegisterFile {
	return &RegisterFile{bindings: make(map[*ir.Value]Binding)}
}

// add binds v for the first time. spec.md §4.2: SSA values are bound
// exactly once; rebinding is a programmer error.
func (r *RegisterFile) add(v *ir.Value, b Binding) {
	_, exists := r.bindings[v]
	assert(!exists, "register file: %s already bound", v.Name)
	r.bindings[v] = b
}

// get returns the raw Binding for v, regardless of tag.
func (r *RegisterFile) get(v *ir.Value) Binding {
	b, ok := r.bindings[v]
	assert(ok, "register file: %s not bound", v.Name)
	return b
}

// getExpr is spec.md §4.2's `getExpr`: the underlying Expr of any scalar
// binding for v.
func (r *RegisterFile) getExpr(v *ir.Value) Expr {
	return getExprOf(r.get(v))
}

// getTyped is spec.md §4.2's `get<T>`: a tag-checked accessor that panics
// (a contract violation, not UB) on a tag mismatch.
func getTyped[T Value](r *RegisterFile, v *ir.Value) T {
	return getValue[T](r.get(v))
}

// genericScope is the loop-nest context linalg.generic pushes while
// encoding its body (spec.md §4.5): the bound induction variables and
// their static upper bounds, used by nested reduction/broadcast helpers
// and by UB conditions that need "for all iteration points" quantification.
type genericScope struct {
	indVars         []BoundVar
	indVarUpperBnds []Expr
}

// State is the per-program (source or target) encoding context: spec.md
// §3's State record. Two States, one per program, share nothing but the
// op-encoder call surface; vc.Compose is what relates them.
type State struct {
	Regs *RegisterFile
	Mem  *Memory

	wellDefinedPred Expr
	retValues       []Binding

	linalgGenericScopes []genericScope

	// hasConstArray/hasQuantifier record whether the encoding introduced an
	// SMT array constant or a quantifier, per spec.md §9's note that the
	// z3 backend must be told which theories are in play so it can pick a
	// compatible tactic/logic.
	hasConstArray bool
	hasQuantifier bool

	nextArrayID   uint64
	nextScratchID uint64
}

func NewState(mem *Memory) *State {
	return &State{
		Regs:            NewRegisterFile(),
		Mem:             mem,
		wellDefinedPred: NewBoolConstantExpr(true),
	}
}

// wellDefined conjoins pred (an op's well-definedness obligation) into the
// running predicate; spec.md §4.4's block driver calls this once per op
// after encoding it, folding in whatever UB conditions the op's encoder
// returned.
func (s *State) wellDefined(op ir.Op, pred Expr) {
	if pred == nil {
		return
	}
	s.wellDefinedPred = NewBinaryExpr(AND, s.wellDefinedPred, pred)
	_ = op // op is accepted for future error-attribution use (spec.md §7's Unsupported carries the op)
}

// WellDefinedPred returns the conjunction of every well-definedness
// obligation accumulated so far.
func (s *State) WellDefinedPred() Expr { return s.wellDefinedPred }

// setReturn records the function's return values (spec.md §4.4: exactly
// one Return per single-block function, terminating the driver loop).
func (s *State) setReturn(values []Binding) {
	assert(s.retValues == nil, "state: return already set")
	s.retValues = values
}

// ReturnValues returns the bindings the function's Return op produced.
func (s *State) ReturnValues() []Binding { return s.retValues }

// pushGenericScope enters a linalg.generic loop nest.
func (s *State) pushGenericScope(vars []BoundVar, upperBounds []Expr) {
	s.linalgGenericScopes = append(s.linalgGenericScopes, genericScope{indVars: vars, indVarUpperBnds: upperBounds})
}

// popGenericScope exits the innermost linalg.generic loop nest.
func (s *State) popGenericScope() {
	s.linalgGenericScopes = s.linalgGenericScopes[:len(s.linalgGenericScopes)-1]
}

// currentGenericScope returns the innermost active linalg.generic scope, or
// the zero value if none is active.
func (s *State) currentGenericScope() genericScope {
	if len(s.linalgGenericScopes) == 0 {
		return genericScope{}
	}
	return s.linalgGenericScopes[len(s.linalgGenericScopes)-1]
}

// noteConstArray/noteQuantifier flip the corresponding solver-hint flags;
// idempotent, so op encoders can call them unconditionally.
func (s *State) noteConstArray()  { s.hasConstArray = true }
func (s *State) noteQuantifier()  { s.hasQuantifier = true }
func (s *State) HasConstArray() bool { return s.hasConstArray }
func (s *State) HasQuantifier() bool { return s.hasQuantifier }

// freshArrayID hands out a locally-unique id for scratch ArrayVarExprs an
// op encoder builds outside of Memory (e.g. the backing array of an
// init_tensor result, which never touches the heap).
func (s *State) freshArrayID() uint64 {
	s.nextArrayID++
	return s.nextArrayID
}

// freshScratchName hands out a locally-unique free-variable name scoped to
// this State (e.g. linalg.generic's reduction accumulator placeholder), so
// that encoding the same function twice from two fresh States names its
// scratch variables identically (spec.md §8's determinism invariant).
func (s *State) freshScratchName(prefix string) string {
	s.nextScratchID++
	return fmt.Sprintf("%s%d", prefix, s.nextScratchID)
}

func (s *State) String() string {
	return fmt.Sprintf("state{regs=%d, wellDefined=%s}", len(s.Regs.bindings), s.wellDefinedPred)
}
