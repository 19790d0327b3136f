package z3_test

import (
	"testing"

	tv "github.com/MerHS/mlir-tv"
	"github.com/MerHS/mlir-tv/smt/z3"
)

func mustSolver(t *testing.T) *z3.Solver {
	t.Helper()
	s := z3.NewSolver()
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Fatal(err)
		}
	})
	return s
}

func TestSolver_CheckValid_Constant(t *testing.T) {
	t.Run("True", func(t *testing.T) {
		s := mustSolver(t)
		result, model, err := s.CheckValid(tv.NewBoolConstantExpr(true))
		if err != nil {
			t.Fatal(err)
		}
		if result != z3.Valid {
			t.Fatalf("got %v, want Valid", result)
		}
		if model != nil {
			t.Fatalf("got model %v, want nil", model)
		}
	})
	t.Run("False", func(t *testing.T) {
		s := mustSolver(t)
		result, _, err := s.CheckValid(tv.NewBoolConstantExpr(false))
		if err != nil {
			t.Fatal(err)
		}
		if result != z3.Invalid {
			t.Fatalf("got %v, want Invalid", result)
		}
	})
}

// x + 1 never equals x under fixed-width wraparound arithmetic, so this
// obligation is valid for every assignment of x.
func TestSolver_CheckValid_WrapAroundNeverEqual(t *testing.T) {
	s := mustSolver(t)
	x := tv.NewVarExpr("x", tv.Width32)
	one := tv.NewConstantExpr(1, tv.Width32)
	obligation := tv.NewBinaryExpr(tv.NE, tv.NewBinaryExpr(tv.ADD, x, one), x)

	result, _, err := s.CheckValid(obligation)
	if err != nil {
		t.Fatal(err)
	}
	if result != z3.Valid {
		t.Fatalf("got %v, want Valid", result)
	}
}

// x == 5 does not hold for every x, so CheckValid must report a
// counterexample assignment.
func TestSolver_CheckValid_Counterexample(t *testing.T) {
	s := mustSolver(t)
	x := tv.NewVarExpr("x", tv.Width32)
	obligation := tv.NewBinaryExpr(tv.EQ, x, tv.NewConstantExpr(5, tv.Width32))

	result, model, err := s.CheckValid(obligation)
	if err != nil {
		t.Fatal(err)
	}
	if result != z3.Invalid {
		t.Fatalf("got %v, want Invalid", result)
	}
	if _, ok := model["x"]; !ok {
		t.Fatalf("model %v missing entry for x", model)
	}
}

// Reading the just-stored offset back must yield the stored value,
// regardless of the array's prior contents (memory.go's store defining
// equation, exercised here at the algebra level rather than through Memory).
func TestSolver_CheckValid_ArrayStoreThenSelect(t *testing.T) {
	s := mustSolver(t)
	arr := tv.NewArrayVarExpr(1, "arr", tv.IndexBits, tv.Width32)
	idx := tv.NewVarExpr("idx", tv.IndexBits)
	val := tv.NewVarExpr("val", tv.Width32)

	stored := tv.NewArrayStoreExpr(arr, idx, val)
	obligation := tv.NewBinaryExpr(tv.EQ, tv.NewArraySelectExpr(stored, idx), val)

	result, _, err := s.CheckValid(obligation)
	if err != nil {
		t.Fatal(err)
	}
	if result != z3.Valid {
		t.Fatalf("got %v, want Valid", result)
	}
}

// forall i. arr[i] == arr[i] holds unconditionally.
func TestSolver_CheckValid_ForallReflexive(t *testing.T) {
	s := mustSolver(t)
	arr := tv.NewArrayVarExpr(1, "arr", tv.IndexBits, tv.Width32)
	i := tv.BoundVar{Name: "i", Width: tv.IndexBits}
	iv := tv.NewVarExpr("i", tv.IndexBits)
	body := tv.NewBinaryExpr(tv.EQ, tv.NewArraySelectExpr(arr, iv), tv.NewArraySelectExpr(arr, iv))
	obligation := tv.NewForallExpr([]tv.BoundVar{i}, body)

	result, _, err := s.CheckValid(obligation)
	if err != nil {
		t.Fatal(err)
	}
	if result != z3.Valid {
		t.Fatalf("got %v, want Valid", result)
	}
}

// An uninterpreted function always agrees with itself on identical
// arguments (spec.md §3's abstract float ops rely on this).
func TestSolver_CheckValid_UninterpretedSelfEqual(t *testing.T) {
	s := mustSolver(t)
	x := tv.NewVarExpr("x", tv.Width32)
	f1 := tv.NewUninterpretedExpr("addf", tv.Width32, x, x)
	f2 := tv.NewUninterpretedExpr("addf", tv.Width32, x, x)
	obligation := tv.NewBinaryExpr(tv.EQ, f1, f2)

	result, _, err := s.CheckValid(obligation)
	if err != nil {
		t.Fatal(err)
	}
	if result != z3.Valid {
		t.Fatalf("got %v, want Valid", result)
	}
}

func TestSolver_Stats(t *testing.T) {
	s := mustSolver(t)
	if _, _, err := s.CheckValid(tv.NewBoolConstantExpr(true)); err != nil {
		t.Fatal(err)
	}
	if _, _, err := s.CheckValid(tv.NewBoolConstantExpr(false)); err != nil {
		t.Fatal(err)
	}
	stats := s.Stats()
	if stats.CheckN != 2 {
		t.Fatalf("got CheckN=%d, want 2", stats.CheckN)
	}
}
