package tv

import (
	"fmt"

	"github.com/MerHS/mlir-tv/ir"
)

// Unsupported is the single exposed failure kind (spec.md §6, §7): the
// input IR contains an op, attribute, type, or shape configuration the
// encoder does not cover. It always aborts encoding for the whole
// function — unlike UB, which never aborts and is folded into
// State.wellDefinedPred instead.
type Unsupported struct {
	Op      ir.Op
	Message string
}

func (e *Unsupported) Error() string {
	if e.Op == nil {
		return fmt.Sprintf("unsupported: %s", e.Message)
	}
	return fmt.Sprintf("unsupported op %T: %s", e.Op, e.Message)
}

func unsupported(op ir.Op, format string, args ...interface{}) error {
	return &Unsupported{Op: op, Message: fmt.Sprintf(format, args...)}
}

// ErrMultiBlock is the specific Unsupported raised when a function has more
// than one block (spec.md §6: "only single-block functions are supported").
func errMultiBlock(fn *ir.Function) error {
	return &Unsupported{Message: fmt.Sprintf("function %q: multi-block functions are not supported", fn.Name)}
}
