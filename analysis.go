package tv

import (
	"math"

	"github.com/MerHS/mlir-tv/ir"
)

// FPRecord is spec.md §6's per-precision static-analysis record: the set
// of distinct FP literal constants seen, plus argument/intermediate-result
// counts, used by the caller to size the abstract float theory before
// encoding.
type FPRecord struct {
	ConstSet map[uint64]bool // bit pattern of each distinct literal seen
	ArgCount int
	VarCount int
}

func newFPRecord() *FPRecord { return &FPRecord{ConstSet: make(map[uint64]bool)} }

// MemRefRecord counts memref arguments/local variables (spec.md §6's
// `{memref}` shape). Globals is always empty: Analyze records no global
// references, and the ir package has no op that names a memref global.
type MemRefRecord struct {
	ArgCount int
	VarCount int
	Globals  map[string]bool
}

func newMemRefRecord() *MemRefRecord { return &MemRefRecord{Globals: make(map[string]bool)} }

// AnalysisRecord is the aggregate spec.md §4.1/§6 static-analysis result.
type AnalysisRecord struct {
	F32    *FPRecord
	F64    *FPRecord
	MemRef *MemRefRecord
}

// Analyze walks fn once, read-only, and produces its AnalysisRecord
// (spec.md §4.1). isFullyAbstract is accepted for API parity with the
// original design's flag but does not change what is counted — it only
// tells the caller (the theory-sizing step outside this core) whether to
// treat floats as fully uninterpreted or to add extra algebraic axioms.
func Analyze(fn *ir.Function, isFullyAbstract bool) *AnalysisRecord {
	rec := &AnalysisRecord{F32: newFPRecord(), F64: newFPRecord(), MemRef: newMemRefRecord()}
	_ = isFullyAbstract

	for _, arg := range fn.Args {
		countArgType(rec, arg.Type)
	}

	for _, block := range fn.Blocks {
		for _, op := range block.Ops {
			for _, res := range op.Results() {
				countResultType(rec, res.Type)
			}
			if c, ok := op.(*ir.ConstantOp); ok {
				recordConstant(rec, c)
			}
		}
	}
	return rec
}

func countArgType(rec *AnalysisRecord, t ir.Type) {
	switch t := t.(type) {
	case ir.FloatType:
		fpRecord(rec, t.Precision).ArgCount++
	case ir.MemRefType:
		rec.MemRef.ArgCount++
	}
}

func countResultType(rec *AnalysisRecord, t ir.Type) {
	switch t := t.(type) {
	case ir.FloatType:
		fpRecord(rec, t.Precision).VarCount++
	case ir.MemRefType:
		rec.MemRef.VarCount++
	}
}

func fpRecord(rec *AnalysisRecord, p ir.FloatPrecision) *FPRecord {
	if p == ir.F64 {
		return rec.F64
	}
	return rec.F32
}

// recordConstant adds a float constant's raw bit pattern to the
// appropriate precision's ConstSet. Non-float constants (and constants
// whose result type is not a bare float, e.g. dense tensor constants) are
// not part of spec.md §4.1's "distinct FP literal constants" tally — only
// scalar float literals are counted, matching the analysis's stated scope.
func recordConstant(rec *AnalysisRecord, c *ir.ConstantOp) {
	if c.Kind != ir.ConstFloat || len(c.Results()) == 0 {
		return
	}
	ft, ok := c.Results()[0].Type.(ir.FloatType)
	if !ok {
		return
	}
	pattern := math.Float64bits(c.FloatValue)
	fpRecord(rec, ft.Precision).ConstSet[pattern] = true
}
