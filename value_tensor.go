package tv

import (
	"fmt"

	"github.com/MerHS/mlir-tv/ir"
)

// ElemKind is the scalar element kind a Tensor/MemRef carries.
type ElemKind int

const (
	ElemIndex ElemKind = iota
	ElemInt
	ElemFloat
)

// ElemType is a Tensor/MemRef's static element type: spec.md §3 requires
// "a Tensor's dimension count and element type are static".
type ElemType struct {
	Kind      ElemKind
	IntWidth  uint      // valid when Kind == ElemInt
	Precision Precision // valid when Kind == ElemFloat
}

// Width returns the bit width used for array-sort bookkeeping: the real
// integer width for ElemInt/ElemIndex, and the nominal float width
// (Precision.Width()) for ElemFloat even though floats are never given
// bit-level semantics.
func (t ElemType) Width() uint {
	switch t.Kind {
	case ElemIndex:
		return IndexBits
	case ElemInt:
		return t.IntWidth
	case ElemFloat:
		return t.Precision.Width()
	default:
		panic("unreachable")
	}
}

func (t ElemType) String() string {
	switch t.Kind {
	case ElemIndex:
		return "index"
	case ElemInt:
		return fmt.Sprintf("i%d", t.IntWidth)
	case ElemFloat:
		return t.Precision.String()
	default:
		return "?"
	}
}

// elemTypeOf converts a scalar ir.Type into an ElemType. Panics on a
// non-scalar type; callers are expected to have already rejected
// tensor-of-tensor / memref-of-memref shapes (not part of the IR's type
// system).
func elemTypeOf(t ir.Type) ElemType {
	switch t := t.(type) {
	case ir.IndexType:
		return ElemType{Kind: ElemIndex}
	case ir.IntegerType:
		return ElemType{Kind: ElemInt, IntWidth: t.Width}
	case ir.FloatType:
		p := F32
		if t.Precision == ir.F64 {
			p = F64
		}
		return ElemType{Kind: ElemFloat, Precision: p}
	default:
		panic(fmt.Sprintf("elemTypeOf: not a scalar type: %T", t))
	}
}

// scalarToValue wraps a raw Expr as the Value matching elem's kind — the
// inverse of getExprOf for a freshly-produced scalar.
func scalarToValue(elem ElemType, e Expr) Value {
	switch elem.Kind {
	case ElemIndex:
		return NewIndexValue(e)
	case ElemInt:
		return NewIntValue(e)
	case ElemFloat:
		return NewFloatValue(e, elem.Precision)
	default:
		panic("unreachable")
	}
}

// tensorBody is the total function `index-tuple -> Expr` spec.md §3 and §9
// ("Lambda-backed tensors") describe. Implementations exist for the lambda
// closure form and the concrete element-list form; both are driven
// uniformly through Tensor.get.
type tensorBody interface {
	at(dims []Expr, indices []Expr) Expr
}

type lambdaTensorBody struct {
	lambda *LambdaExpr
}

func (b *lambdaTensorBody) at(_ []Expr, indices []Expr) Expr {
	assert(len(indices) == len(b.lambda.Vars), "lambda arity mismatch: %d != %d", len(indices), len(b.lambda.Vars))
	subst := make(map[string]Expr, len(indices))
	for i, v := range b.lambda.Vars {
		subst[v.Name] = indices[i]
	}
	return substituteVars(b.lambda.Body, subst)
}

// concreteTensorBody is a literal row-major element list, used for
// small/literal constants (spec.md §9: "the concrete form exists as an
// optimization for literal constants"). It still answers to symbolic
// indices by building an ite-chain keyed on the linear offset, since the
// body must remain total.
type concreteTensorBody struct {
	elems   []Expr
	zero    Expr // default answer outside the literal range (irrelevant once inBounds gates use)
}

func (b *concreteTensorBody) at(dims []Expr, indices []Expr) Expr {
	lin := rowMajorLinearIndex(dims, indices)
	result := b.zero
	for i := len(b.elems) - 1; i >= 0; i-- {
		result = NewIteExpr(NewBinaryExpr(EQ, lin, NewIndexConst(uint64(i))), b.elems[i], result)
	}
	return result
}

// TensorValue is spec.md §3's Tensor(T).
type TensorValue struct {
	Elem ElemType
	Dims []Expr // IndexBits-wide, one per rank position
	body tensorBody
}

func (v *TensorValue) String() string {
	return fmt.Sprintf("tensor<%s x %v>", v.Elem, v.Dims)
}

func (v *TensorValue) Rank() int { return len(v.Dims) }

// Read is the exported form of get, for callers outside package tv that
// build cross-encoding equivalence obligations (package vc) over a Tensor's
// observable contents.
func (v *TensorValue) Read(indices []Expr) (Expr, Expr) { return v.get(indices) }

// get returns the element at indices and the predicate witnessing that
// indices lies within Dims (spec.md §3's `get(indices) -> (Expr, inBoundsPred)`).
func (v *TensorValue) get(indices []Expr) (Expr, Expr) {
	assert(len(indices) == len(v.Dims), "tensor get: rank mismatch: %d != %d", len(indices), len(v.Dims))
	inBounds := Expr(NewBoolConstantExpr(true))
	for i, idx := range indices {
		inBounds = NewBinaryExpr(AND, inBounds, NewBinaryExpr(ULT, idx, v.Dims[i]))
	}
	return v.body.at(v.Dims, indices), inBounds
}

// mkLambda builds a Tensor whose body is the given lambda closure (spec.md
// §3's `mkLambda`).
func mkLambda(elem ElemType, dims []Expr, boundVars []BoundVar, body Expr) *TensorValue {
	assert(len(boundVars) == len(dims), "mkLambda: bound var count %d != rank %d", len(boundVars), len(dims))
	return &TensorValue{Elem: elem, Dims: dims, body: &lambdaTensorBody{lambda: NewLambdaExpr(boundVars, body)}}
}

// mkConcrete builds a Tensor whose body is a literal row-major element list.
func mkConcrete(elem ElemType, dims []Expr, elems []Expr) *TensorValue {
	zero := Expr(NewConstantExpr(0, elem.Width()))
	if elem.Kind == ElemFloat {
		zero = NewUninterpretedExpr("float.zero", elem.Width())
	}
	return &TensorValue{Elem: elem, Dims: dims, body: &concreteTensorBody{elems: elems, zero: zero}}
}

// freshIndexVars returns n bound index variables named prefix0..prefix(n-1)
// — used by every helper below that needs to build a lambda over a tensor's
// full index space. Names are deterministic: two calls with the same prefix
// return the same variables.
func freshIndexVars(prefix string, n int) []BoundVar {
	vars := make([]BoundVar, n)
	for i := 0; i < n; i++ {
		vars[i] = BoundVar{Name: fmt.Sprintf("%s%d", prefix, i), Width: IndexBits}
	}
	return vars
}

func varExprs(vars []BoundVar) []Expr {
	out := make([]Expr, len(vars))
	for i, v := range vars {
		out[i] = NewVarExpr(v.Name, v.Width)
	}
	return out
}

// reshape preserves the 1-D size; it also returns the size-equality
// predicate (the UB condition of spec.md §4.3), which folds to false when
// the flattened sizes provably differ.
func (v *TensorValue) reshape(newDims []Expr) (*TensorValue, Expr) {
	sizeEq := NewBinaryExpr(EQ, productExpr(v.Dims), productExpr(newDims))
	vars := freshIndexVars("ridx", len(newDims))
	vidx := varExprs(vars)
	lin := rowMajorLinearIndex(newDims, vidx)
	oldIdx := rowMajorDecompose(v.Dims, lin)
	body, _ := v.get(oldIdx)
	return mkLambda(v.Elem, newDims, vars, body), sizeEq
}

// reverse flips the tensor along axis.
func (v *TensorValue) reverse(axis int) *TensorValue {
	vars := freshIndexVars("rev", len(v.Dims))
	vidx := varExprs(vars)
	srcIdx := make([]Expr, len(vidx))
	copy(srcIdx, vidx)
	srcIdx[axis] = NewBinaryExpr(SUB, NewBinaryExpr(SUB, v.Dims[axis], NewIndexConst(1)), vidx[axis])
	body, _ := v.get(srcIdx)
	return mkLambda(v.Elem, v.Dims, vars, body)
}

// tile repeats v reps[i] times along each axis i.
func (v *TensorValue) tile(reps []Expr) *TensorValue {
	newDims := make([]Expr, len(v.Dims))
	for i := range v.Dims {
		newDims[i] = NewBinaryExpr(MUL, v.Dims[i], reps[i])
	}
	vars := freshIndexVars("tile", len(newDims))
	vidx := varExprs(vars)
	srcIdx := make([]Expr, len(vidx))
	for i := range vidx {
		srcIdx[i] = NewBinaryExpr(UREM, vidx[i], v.Dims[i])
	}
	body, _ := v.get(srcIdx)
	return mkLambda(v.Elem, newDims, vars, body)
}

// concat joins v and other along axis; callers must have already checked
// the non-axis dims are equal (spec.md §4.3: "concat requires equal
// non-axis dims").
func (v *TensorValue) concat(other *TensorValue, axis int) *TensorValue {
	newDims := make([]Expr, len(v.Dims))
	copy(newDims, v.Dims)
	newDims[axis] = NewBinaryExpr(ADD, v.Dims[axis], other.Dims[axis])

	vars := freshIndexVars("cat", len(newDims))
	vidx := varExprs(vars)
	fromV, _ := v.get(vidx)

	otherIdx := make([]Expr, len(vidx))
	copy(otherIdx, vidx)
	otherIdx[axis] = NewBinaryExpr(SUB, vidx[axis], v.Dims[axis])
	fromOther, _ := other.get(otherIdx)

	body := NewIteExpr(NewBinaryExpr(ULT, vidx[axis], v.Dims[axis]), fromV, fromOther)
	return mkLambda(v.Elem, newDims, vars, body)
}

// mapUnary lifts a scalar unary function over every element.
func (v *TensorValue) mapUnary(f func(Expr) Expr) *TensorValue {
	vars := freshIndexVars("u", len(v.Dims))
	vidx := varExprs(vars)
	elem, _ := v.get(vidx)
	return mkLambda(v.Elem, v.Dims, vars, f(elem))
}

// mapBinary lifts a scalar binary function elementwise over two
// *already-broadcast-shaped* tensors (the caller is expected to have run
// broadcastDims first).
func mapBinary(a, b *TensorValue, outDims []Expr, outElem ElemType, f func(x, y Expr) Expr) *TensorValue {
	vars := freshIndexVars("b", len(outDims))
	vidx := varExprs(vars)
	x, _ := a.get(vidx)
	y, _ := b.get(vidx)
	return mkLambda(outElem, outDims, vars, f(x, y))
}

// sum reduces v to a scalar by folding f over the extent elements that
// idx(0)..idx(extent-1) address, in that order.
func (v *TensorValue) sum(extent int64, f func(acc, next Expr) Expr, zero Expr, idx func(i int64) []Expr) Expr {
	acc := zero
	for i := int64(0); i < extent; i++ {
		e, _ := v.get(idx(i))
		acc = f(acc, e)
	}
	return acc
}

// insert returns a Tensor equal to v except at indices, where it holds
// value (spec.md §3's `insert`).
func (v *TensorValue) insert(value Expr, indices []Expr) *TensorValue {
	vars := freshIndexVars("ins", len(v.Dims))
	vidx := varExprs(vars)
	eq := Expr(NewBoolConstantExpr(true))
	for i := range vidx {
		eq = NewBinaryExpr(AND, eq, NewBinaryExpr(EQ, vidx[i], indices[i]))
	}
	orig, _ := v.get(vidx)
	return mkLambda(v.Elem, v.Dims, vars, NewIteExpr(eq, value, orig))
}

// mkIte builds a Tensor whose element at every index is chosen between t
// and f by a per-index (or scalar) condition function (spec.md §3's
// `mkIte(condFn, t, f)`).
func mkIte(dims []Expr, elem ElemType, condAt func(idx []Expr) Expr, t, f *TensorValue) *TensorValue {
	vars := freshIndexVars("ite", len(dims))
	vidx := varExprs(vars)
	tv, _ := t.get(vidx)
	fv, _ := f.get(vidx)
	return mkLambda(elem, dims, vars, NewIteExpr(condAt(vidx), tv, fv))
}

// asArray flattens v into a 1-D symbolic array in row-major order (spec.md
// §3's `asArray()`), re-deriving the tensor as an array-theory term.
func (v *TensorValue) asArray(id uint64, name string) (*ArrayVarExpr, Expr) {
	av := NewArrayVarExpr(id, name, IndexBits, v.Elem.Width())
	// The caller asserts the forall equating av's contents to v's body;
	// asArray itself only allocates the array-sorted term.
	vars := freshIndexVars("aa", len(v.Dims))
	vidx := varExprs(vars)
	lin := rowMajorLinearIndex(v.Dims, vidx)
	elem, _ := v.get(vidx)
	eqBody := NewBinaryExpr(EQ, NewArraySelectExpr(av, lin), elem)
	return av, NewForallExpr(vars, eqBody)
}
