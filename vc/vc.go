// Package vc builds the correctness obligation spec.md §6 describes: the
// SMT query a backend checks to decide whether a source and a target
// encoding of the same function are translation-equivalent.
package vc

import (
	"fmt"

	tv "github.com/MerHS/mlir-tv"
)

// MemRefPair names one memref argument shared by both encodings — the same
// declared function parameter, encoded once against the source program and
// once against the target — whose final observable contents must agree
// (spec.md §6: "equal observable memory writes to shared blocks").
type MemRefPair struct {
	Src *tv.MemRefValue
	Tgt *tv.MemRefValue
}

// Compose builds the single validity obligation for one function pair: a
// backend proves the pair equivalent by checking this Expr's negation is
// unsatisfiable (smt/z3.CheckValid does exactly that).
//
// The obligation is spec.md §6's three points conjoined:
//  1. either side's UB implies the other's,
//  2. when both sides are well-defined, their return values agree,
//  3. when both sides are well-defined, every shared memref argument's
//     final contents agree.
func Compose(src, tgt *tv.EncodeResult, shared []MemRefPair) (tv.Expr, error) {
	if len(src.Results) != len(tgt.Results) {
		return nil, fmt.Errorf("vc: result count mismatch: %d vs %d", len(src.Results), len(tgt.Results))
	}

	ubAgree := andAll(
		tv.NewBinaryExpr(tv.OR, tv.NewNotExpr(src.WellDefined), tgt.WellDefined),
		tv.NewBinaryExpr(tv.OR, tv.NewNotExpr(tgt.WellDefined), src.WellDefined),
	)

	resultsEq, err := compareBindings(src.Results, tgt.Results)
	if err != nil {
		return nil, err
	}

	memEq := Expr(tv.NewBoolConstantExpr(true))
	for _, p := range shared {
		eq, err := compareMemRef(p.Src, p.Tgt)
		if err != nil {
			return nil, err
		}
		memEq = tv.NewBinaryExpr(tv.AND, memEq, eq)
	}

	bothDefined := tv.NewBinaryExpr(tv.AND, src.WellDefined, tgt.WellDefined)
	dataAgree := tv.NewBinaryExpr(tv.OR, tv.NewNotExpr(bothDefined), andAll(resultsEq, memEq))

	return andAll(ubAgree, dataAgree), nil
}

// Expr is a local alias so this file reads as the composing obligation's own
// vocabulary rather than a re-export of tv.Expr at every call site.
type Expr = tv.Expr

func andAll(preds ...Expr) Expr {
	out := Expr(tv.NewBoolConstantExpr(true))
	for _, p := range preds {
		out = tv.NewBinaryExpr(tv.AND, out, p)
	}
	return out
}

// compareBindings compares each positional return value pairwise, dispatched
// on the concrete Value kind both sides must share (a shape/type mismatch
// between source and target return values is itself a translation bug the
// obligation should surface as an error, not silently paper over).
func compareBindings(src, tgt []tv.Binding) (Expr, error) {
	eq := Expr(tv.NewBoolConstantExpr(true))
	for i := range src {
		one, err := compareBinding(src[i], tgt[i])
		if err != nil {
			return nil, fmt.Errorf("vc: result %d: %w", i, err)
		}
		eq = tv.NewBinaryExpr(tv.AND, eq, one)
	}
	return eq, nil
}

func compareBinding(src, tgt tv.Binding) (Expr, error) {
	switch s := src.(type) {
	case *tv.TensorValue:
		t, ok := tgt.(*tv.TensorValue)
		if !ok {
			return nil, fmt.Errorf("kind mismatch: %T vs %T", src, tgt)
		}
		return compareTensor(s, t)
	case *tv.MemRefValue:
		t, ok := tgt.(*tv.MemRefValue)
		if !ok {
			return nil, fmt.Errorf("kind mismatch: %T vs %T", src, tgt)
		}
		return compareMemRef(s, t)
	default:
		// Index/Integer/Float all reduce to one scalar Expr; abstract floats
		// compare equal exactly when their uninterpreted terms are
		// syntactically identical, which is what EQ over an opaque term
		// already gives us.
		return tv.NewBinaryExpr(tv.EQ, tv.ExprOf(src), tv.ExprOf(tgt)), nil
	}
}

// compareTensor requires equal rank/dims and, for every in-bounds index,
// equal elements — spec.md §8's testable property 4/5 style: shape first,
// then a single forall over the shared iteration space.
func compareTensor(a, b *tv.TensorValue) (Expr, error) {
	if a.Rank() != b.Rank() {
		return nil, fmt.Errorf("tensor rank mismatch: %d vs %d", a.Rank(), b.Rank())
	}
	dimsEq := Expr(tv.NewBoolConstantExpr(true))
	for i := range a.Dims {
		dimsEq = tv.NewBinaryExpr(tv.AND, dimsEq, tv.NewBinaryExpr(tv.EQ, a.Dims[i], b.Dims[i]))
	}

	vars := freshIndexVars("vceq", a.Rank())
	idx := varExprs(vars)
	av, ainb := a.Read(idx)
	bv, _ := b.Read(idx)
	elemEq := tv.NewBinaryExpr(tv.OR, tv.NewNotExpr(ainb), tv.NewBinaryExpr(tv.EQ, av, bv))

	return tv.NewBinaryExpr(tv.AND, dimsEq, tv.NewForallExpr(vars, elemEq)), nil
}

// compareMemRef requires equal dims and, for every in-bounds index, equal
// elements — the same shape used for a Tensor comparison, since MemRef's
// Read already resolves any non-identity Layout to a linear offset.
func compareMemRef(a, b *tv.MemRefValue) (Expr, error) {
	if a.Rank() != b.Rank() {
		return nil, fmt.Errorf("memref rank mismatch: %d vs %d", a.Rank(), b.Rank())
	}
	dimsEq := Expr(tv.NewBoolConstantExpr(true))
	for i := range a.Dims {
		dimsEq = tv.NewBinaryExpr(tv.AND, dimsEq, tv.NewBinaryExpr(tv.EQ, a.Dims[i], b.Dims[i]))
	}

	vars := freshIndexVars("vcmeq", a.Rank())
	idx := varExprs(vars)
	av, ainb := a.Read(idx)
	bv, _ := b.Read(idx)
	elemEq := tv.NewBinaryExpr(tv.OR, tv.NewNotExpr(ainb), tv.NewBinaryExpr(tv.EQ, av, bv))

	return tv.NewBinaryExpr(tv.AND, dimsEq, tv.NewForallExpr(vars, elemEq)), nil
}

func freshIndexVars(prefix string, n int) []tv.BoundVar {
	vars := make([]tv.BoundVar, n)
	for i := range vars {
		vars[i] = tv.BoundVar{Name: fmt.Sprintf("%s%d", prefix, i), Width: tv.IndexBits}
	}
	return vars
}

func varExprs(vars []tv.BoundVar) []Expr {
	out := make([]Expr, len(vars))
	for i, v := range vars {
		out[i] = tv.NewVarExpr(v.Name, v.Width)
	}
	return out
}
