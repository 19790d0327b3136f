package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	tv "github.com/MerHS/mlir-tv"
	"github.com/MerHS/mlir-tv/ir"
	z3backend "github.com/MerHS/mlir-tv/smt/z3"
	"github.com/MerHS/mlir-tv/vc"
)

var checkCmd = &cobra.Command{
	Use:   "check <source.json> <target.json>",
	Short: "Check that target.json is a valid translation of source.json",
	Args:  cobra.ExactArgs(2),
	RunE:  runCheck,
}

func runCheck(cmd *cobra.Command, args []string) error {
	srcPath, tgtPath := args[0], args[1]

	srcFn, err := loadFunction(srcPath)
	if err != nil {
		return err
	}
	tgtFn, err := loadFunction(tgtPath)
	if err != nil {
		return err
	}
	logger.Info("loaded functions", zap.String("source", srcFn.Name), zap.String("target", tgtFn.Name))

	if len(srcFn.Args) != len(tgtFn.Args) {
		return fmt.Errorf("mlirtv: source has %d arguments, target has %d", len(srcFn.Args), len(tgtFn.Args))
	}

	// One Memory, one argument bank, shared by both encodings: the two
	// programs are proved equivalent under the same inputs by construction
	// (driver.go's EncodeFunctionWithArgs doc comment), not by an extra
	// SMT-level "arguments are equal" premise.
	mem := tv.NewMemory()
	sharedArgs, err := tv.DeclareArgs(srcFn, mem)
	if err != nil {
		return err
	}

	logger.Info("encoding source")
	src, err := tv.EncodeFunctionWithArgs(srcFn, mem, sharedArgs)
	if err != nil {
		return fmt.Errorf("mlirtv: encoding source: %w", err)
	}
	logger.Info("encoding target")
	tgt, err := tv.EncodeFunctionWithArgs(tgtFn, mem, sharedArgs)
	if err != nil {
		return fmt.Errorf("mlirtv: encoding target: %w", err)
	}

	shared := sharedMemRefPairs(srcFn, sharedArgs, src.Memory, tgt.Memory)

	logger.Info("composing equivalence obligation")
	obligation, err := vc.Compose(src, tgt, shared)
	if err != nil {
		return fmt.Errorf("mlirtv: composing obligation: %w", err)
	}

	solver := z3backend.NewSolver()
	defer solver.Close()

	logger.Info("discharging obligation to z3")
	result, model, err := solver.CheckValid(obligation)
	if err != nil {
		return fmt.Errorf("mlirtv: solver: %w", err)
	}

	printVerdict(result, model)
	if result != z3backend.Valid {
		os.Exit(1)
	}
	return nil
}

// sharedMemRefPairs finds every function argument bound to a MemRefValue —
// those are the "shared blocks" spec.md §6's equivalence query compares
// (spec.md: "equal observable memory writes to shared blocks"); scalar and
// tensor arguments are pure values already covered by comparing return
// results, since a memref is the only argument kind either program can
// mutate in place.
//
// args holds one MemRefValue per memref argument built against the live,
// now-stale Memory; srcMem/tgtMem are the frozen per-program snapshots
// EncodeFunctionWithArgs returned, so each side of the pair is rebased onto
// the Memory that actually reflects that program's own final writes.
func sharedMemRefPairs(fn *ir.Function, args []tv.Binding, srcMem, tgtMem *tv.Memory) []vc.MemRefPair {
	var pairs []vc.MemRefPair
	for i, a := range fn.Args {
		if _, ok := a.Type.(ir.MemRefType); !ok {
			continue
		}
		m, ok := args[i].(*tv.MemRefValue)
		if !ok {
			continue
		}
		pairs = append(pairs, vc.MemRefPair{
			Src: rebaseMemRef(m, srcMem),
			Tgt: rebaseMemRef(m, tgtMem),
		})
	}
	return pairs
}

func rebaseMemRef(m *tv.MemRefValue, mem *tv.Memory) *tv.MemRefValue {
	return &tv.MemRefValue{Mem: mem, Elem: m.Elem, Bid: m.Bid, Offset: m.Offset, Dims: m.Dims, Layout: m.Layout}
}
