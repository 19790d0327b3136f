package tv

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/cespare/xxhash/v2"
)

// Expr is an opaque symbolic term with a sort: boolean, bit-vector of some
// width, or array from one sort to another. Binding is the superset
// (Expr plus Tuple) a register can hold; every Expr is also a Binding.
type Expr interface {
	Binding
	expr()
}

func (*BinaryExpr) expr()        {}
func (*CastExpr) expr()          {}
func (*ConcatExpr) expr()        {}
func (*ConstantExpr) expr()      {}
func (*ExtractExpr) expr()       {}
func (*NotExpr) expr()           {}
func (*NotOptimizedExpr) expr()  {}
func (*IteExpr) expr()           {}
func (*ArrayVarExpr) expr()      {}
func (*ArraySelectExpr) expr()   {}
func (*ArrayStoreExpr) expr()    {}
func (*ForallExpr) expr()        {}
func (*LambdaExpr) expr()        {}
func (*UninterpretedExpr) expr() {}
func (*VarExpr) expr()           {}

func (*BinaryExpr) binding()        {}
func (*CastExpr) binding()          {}
func (*ConcatExpr) binding()        {}
func (*ConstantExpr) binding()      {}
func (*ExtractExpr) binding()       {}
func (*NotExpr) binding()           {}
func (*NotOptimizedExpr) binding()  {}
func (*IteExpr) binding()           {}
func (*ArrayVarExpr) binding()      {}
func (*ArraySelectExpr) binding()   {}
func (*ArrayStoreExpr) binding()    {}
func (*ForallExpr) binding()        {}
func (*LambdaExpr) binding()        {}
func (*UninterpretedExpr) binding() {}
func (*VarExpr) binding()           {}

// ExprWidth returns the bit width of a boolean or bit-vector expression.
// Array, quantifier, lambda, and uninterpreted nodes have no scalar width
// and panic if asked for one — callers must switch on those kinds
// separately (see value.go's Tensor/MemRef wrappers).
func ExprWidth(expr Expr) uint {
	switch expr := expr.(type) {
	case *ConstantExpr:
		return expr.Width
	case *NotOptimizedExpr:
		return ExprWidth(expr.Src)
	case *ConcatExpr:
		return ExprWidth(expr.MSB) + ExprWidth(expr.LSB)
	case *ExtractExpr:
		return expr.Width
	case *NotExpr:
		return ExprWidth(expr.Expr)
	case *CastExpr:
		return expr.Width
	case *BinaryExpr:
		if expr.Op.IsCompare() {
			return WidthBool
		}
		return ExprWidth(expr.LHS)
	case *IteExpr:
		return ExprWidth(expr.Then)
	case *ArraySelectExpr:
		return expr.Array.RangeWidth
	case *UninterpretedExpr:
		return expr.Width
	case *VarExpr:
		return expr.Width
	default:
		panic(fmt.Sprintf("ExprWidth: no scalar width for %T", expr))
	}
}

// VarExpr is a reference to a named variable: either one bound by an
// enclosing ForallExpr or LambdaExpr, or a free one (function arguments,
// symbolic dims, the reduction accumulator). Applying a LambdaExpr
// substitutes every VarExpr matching its Vars with concrete index
// expressions (see substituteVars below in this file).
type VarExpr struct {
	Name  string
	Width uint
}

func NewVarExpr(name string, width uint) *VarExpr { return &VarExpr{Name: name, Width: width} }

func (e *VarExpr) String() string { return e.Name }

// BinaryOp represents a binary expression operations.
type BinaryOp int

// BinaryExpr operations.
const (
	arithmetic_op_begin = BinaryOp(iota)
	ADD
	SUB
	MUL
	UDIV
	SDIV
	UREM
	SREM
	AND
	OR
	XOR
	SHL
	LSHR
	ASHR
	arithmetic_op_end

	compare_op_begin
	EQ
	NE
	ULT
	ULE
	UGT
	UGE
	SLT
	SLE
	SGT
	SGE
	compare_op_end
)

var binaryOps = [...]string{
	ADD:  "add",
	SUB:  "sub",
	MUL:  "mul",
	UDIV: "udiv",
	SDIV: "sdiv",
	UREM: "urem",
	SREM: "srem",
	AND:  "and",
	OR:   "or",
	XOR:  "xor",
	SHL:  "shl",
	LSHR: "lshr",
	ASHR: "ashr",
	EQ:   "eq",
	NE:   "ne",
	ULT:  "ult",
	ULE:  "ule",
	UGT:  "ugt",
	UGE:  "uge",
	SLT:  "slt",
	SLE:  "sle",
	SGT:  "sgt",
	SGE:  "sge",
}

// String returns the string representation of the operation.
func (op BinaryOp) String() string {
	if op >= 0 && op < BinaryOp(len(binaryOps)) && binaryOps[op] != "" {
		return binaryOps[op]
	}
	return fmt.Sprintf("BinaryOp<%d>", op)
}

// IsArithmetic returns true if op is an arithmetic operator.
func (op BinaryOp) IsArithmetic() bool {
	return op > arithmetic_op_begin && op < arithmetic_op_end
}

// IsCompare returns true if op is a comparison operator.
func (op BinaryOp) IsCompare() bool {
	return op > compare_op_begin && op < compare_op_end
}

// BinaryExpr represents an operation on two expressions.
type BinaryExpr struct {
	Op  BinaryOp
	LHS Expr
	RHS Expr
}

// NewBinaryExpr returns a new instance of BinaryExpr, simplified where possible.
func NewBinaryExpr(op BinaryOp, lhs, rhs Expr) Expr {
	switch op {
	// Arithmetic operators
	case ADD:
		return newAddExpr(lhs, rhs)
	case SUB:
		return newSubExpr(lhs, rhs)
	case MUL:
		return newMulExpr(lhs, rhs)
	case UDIV, SDIV:
		return newDivExpr(op, lhs, rhs)
	case UREM, SREM:
		return newRemExpr(op, lhs, rhs)
	case AND:
		return newAndExpr(lhs, rhs)
	case OR:
		return newOrExpr(lhs, rhs)
	case XOR:
		return newXorExpr(lhs, rhs)
	case SHL:
		return newShlExpr(lhs, rhs)
	case LSHR:
		return newLShrExpr(lhs, rhs)
	case ASHR:
		return newAShrExpr(lhs, rhs)

	// Comparison operators
	case EQ:
		return newEqExpr(lhs, rhs)
	case NE:
		return NewBinaryExpr(EQ, NewConstantExpr(0, WidthBool), NewBinaryExpr(EQ, lhs, rhs))
	case ULT:
		return newUltExpr(lhs, rhs)
	case UGT:
		return newUltExpr(rhs, lhs) // reverse
	case ULE:
		return newUleExpr(lhs, rhs)
	case UGE:
		return newUleExpr(rhs, lhs) // reverse
	case SLT:
		return newSltExpr(lhs, rhs)
	case SGT:
		return newSltExpr(rhs, lhs) // reverse
	case SLE:
		return newSleExpr(lhs, rhs)
	case SGE:
		return newSleExpr(rhs, lhs) // reverse

	default:
		panic("unreachable")
	}
}

// String returns the string representation of the expression.
func (e *BinaryExpr) String() string {
	return fmt.Sprintf("(%s %s %s)", e.Op, e.LHS, e.RHS)
}

// newAddExpr returns the expression representing the sum of lhs & rhs.
func newAddExpr(lhs, rhs Expr) Expr {
	if !IsConstantExpr(lhs) && IsConstantExpr(rhs) {
		lhs, rhs = rhs, lhs
	}
	if ExprWidth(lhs) == WidthBool {
		return NewBinaryExpr(XOR, lhs, rhs)
	}
	if lhs, ok := lhs.(*ConstantExpr); ok {
		if lhs.Value == 0 {
			return rhs
		} else if rhs, ok := rhs.(*ConstantExpr); ok {
			return lhs.Add(rhs)
		}
	}
	if lhs, ok := lhs.(*ConstantExpr); ok {
		if rhs, ok := rhs.(*BinaryExpr); ok {
			if rhs.Op == ADD && IsConstantExpr(rhs.LHS) {
				return NewBinaryExpr(ADD, NewBinaryExpr(ADD, lhs, rhs.LHS), rhs.RHS)
			} else if rhs.Op == SUB && IsConstantExpr(rhs.LHS) {
				return NewBinaryExpr(SUB, NewBinaryExpr(ADD, lhs, rhs.LHS), rhs.RHS)
			}
		}
	}
	if lhs, ok := lhs.(*BinaryExpr); ok && IsConstantExpr(lhs.LHS) {
		if lhs.Op == ADD {
			return NewBinaryExpr(ADD, lhs.LHS, NewBinaryExpr(ADD, lhs.RHS, rhs))
		} else if lhs.Op == SUB {
			return NewBinaryExpr(ADD, lhs.LHS, NewBinaryExpr(SUB, rhs, lhs.RHS))
		}
	}
	if rhs, ok := rhs.(*BinaryExpr); ok && IsConstantExpr(rhs.LHS) {
		if rhs.Op == ADD {
			return NewBinaryExpr(ADD, rhs.LHS, NewBinaryExpr(ADD, lhs, rhs.RHS))
		} else if rhs.Op == SUB {
			return NewBinaryExpr(ADD, rhs.LHS, NewBinaryExpr(SUB, lhs, rhs.RHS))
		}
	}
	return &BinaryExpr{Op: ADD, LHS: lhs, RHS: rhs}
}

// newSubExpr returns an expression representing the difference of lhs & rhs.
func newSubExpr(lhs, rhs Expr) Expr {
	if CompareExpr(lhs, rhs) == 0 {
		return NewConstantExpr(0, ExprWidth(lhs))
	}
	if lhs, ok := lhs.(*ConstantExpr); ok {
		if rhs, ok := rhs.(*ConstantExpr); ok {
			return lhs.Sub(rhs)
		}
	}
	if ExprWidth(lhs) == WidthBool {
		return NewBinaryExpr(XOR, lhs, rhs)
	}
	if rhs, ok := rhs.(*ConstantExpr); ok && !IsConstantExpr(lhs) {
		return NewBinaryExpr(ADD, NewConstantExpr(0, ExprWidth(rhs)).Sub(rhs), lhs)
	}
	if lhs, ok := lhs.(*ConstantExpr); ok {
		if rhs, ok := rhs.(*BinaryExpr); ok {
			if rhs.Op == ADD && IsConstantExpr(rhs.LHS) {
				return NewBinaryExpr(SUB, NewBinaryExpr(SUB, lhs, rhs.LHS), rhs.RHS)
			} else if rhs.Op == SUB && IsConstantExpr(rhs.LHS) {
				return NewBinaryExpr(ADD, NewBinaryExpr(SUB, lhs, rhs.LHS), rhs.RHS)
			}
		}
	}
	if lhs, ok := lhs.(*BinaryExpr); ok && IsConstantExpr(lhs.LHS) {
		if lhs.Op == ADD {
			return NewBinaryExpr(ADD, lhs.LHS, NewBinaryExpr(SUB, lhs.RHS, rhs))
		} else if lhs.Op == SUB {
			return NewBinaryExpr(SUB, lhs.LHS, NewBinaryExpr(ADD, lhs.RHS, rhs))
		}
	}
	if rhs, ok := rhs.(*BinaryExpr); ok && IsConstantExpr(rhs.LHS) {
		if rhs.Op == ADD {
			return NewBinaryExpr(SUB, NewBinaryExpr(SUB, lhs, rhs.RHS), rhs.LHS)
		} else if rhs.Op == SUB {
			return NewBinaryExpr(SUB, NewBinaryExpr(ADD, lhs, rhs.RHS), rhs.LHS)
		}
	}
	return &BinaryExpr{Op: SUB, LHS: lhs, RHS: rhs}
}

// newMulExpr returns an expression that represents the product of lhs & rhs.
func newMulExpr(lhs, rhs Expr) Expr {
	if IsConstantExpr(rhs) && !IsConstantExpr(lhs) {
		lhs, rhs = rhs, lhs
	}
	if lhs, ok := lhs.(*ConstantExpr); ok {
		if rhs, ok := rhs.(*ConstantExpr); ok {
			return lhs.Mul(rhs)
		}
	}
	if ExprWidth(lhs) == WidthBool {
		return NewBinaryExpr(AND, lhs, rhs)
	}
	if lhs, ok := lhs.(*ConstantExpr); ok {
		if lhs.Value == 1 {
			return rhs
		} else if lhs.Value == 0 {
			return lhs
		}
	}
	return &BinaryExpr{Op: MUL, LHS: lhs, RHS: rhs}
}

// newDivExpr returns an expression that represents the division of lhs & rhs.
func newDivExpr(op BinaryOp, lhs, rhs Expr) Expr {
	assert(op == UDIV || op == SDIV, "invalid div op: %s", op)
	if lhs, ok := lhs.(*ConstantExpr); ok {
		if rhs, ok := rhs.(*ConstantExpr); ok {
			if op == UDIV {
				return lhs.UDiv(rhs)
			}
			return lhs.SDiv(rhs)
		}
	}
	if ExprWidth(lhs) == WidthBool {
		return lhs
	}
	return &BinaryExpr{Op: op, LHS: lhs, RHS: rhs}
}

// newRemExpr returns an expression that represents the remainder of lhs divided by rhs.
func newRemExpr(op BinaryOp, lhs, rhs Expr) Expr {
	assert(op == UREM || op == SREM, "invalid rem op: %s", op)
	if lhs, ok := lhs.(*ConstantExpr); ok {
		if rhs, ok := rhs.(*ConstantExpr); ok {
			if op == UREM {
				return lhs.URem(rhs)
			}
			return lhs.SRem(rhs)
		}
	}
	if ExprWidth(lhs) == WidthBool {
		return NewConstantExpr(0, WidthBool)
	}
	return &BinaryExpr{Op: op, LHS: lhs, RHS: rhs}
}

// newAndExpr returns an expression that represents the bitwise AND of lhs & rhs.
func newAndExpr(lhs, rhs Expr) Expr {
	if lhs, ok := lhs.(*ConstantExpr); ok {
		if rhs, ok := rhs.(*ConstantExpr); ok {
			return lhs.And(rhs)
		}
	}
	if IsConstantExpr(lhs) && !IsConstantExpr(rhs) {
		lhs, rhs = rhs, lhs
	}
	if rhs, ok := rhs.(*ConstantExpr); ok {
		if rhs.IsAllOnes() {
			return lhs
		} else if rhs.Value == 0 {
			return rhs
		}
	}
	return &BinaryExpr{Op: AND, LHS: lhs, RHS: rhs}
}

// newOrExpr returns an expression that represents the bitwise OR of lhs & rhs.
func newOrExpr(lhs, rhs Expr) Expr {
	if lhs, ok := lhs.(*ConstantExpr); ok {
		if rhs, ok := rhs.(*ConstantExpr); ok {
			return lhs.Or(rhs)
		}
	}
	if IsConstantExpr(lhs) && !IsConstantExpr(rhs) {
		lhs, rhs = rhs, lhs
	}
	if rhs, ok := rhs.(*ConstantExpr); ok {
		if rhs.IsAllOnes() {
			return rhs
		} else if rhs.Value == 0 {
			return lhs
		}
	}
	return &BinaryExpr{Op: OR, LHS: lhs, RHS: rhs}
}

// newXorExpr returns an expression that represents the bitwise XOR of lhs & rhs.
func newXorExpr(lhs, rhs Expr) Expr {
	if !IsConstantExpr(lhs) && IsConstantExpr(rhs) {
		lhs, rhs = rhs, lhs
	}
	if lhs, ok := lhs.(*ConstantExpr); ok {
		if lhs.Value == 0 {
			return rhs
		} else if rhs, ok := rhs.(*ConstantExpr); ok {
			return lhs.Xor(rhs)
		}
	}
	return &BinaryExpr{Op: XOR, LHS: lhs, RHS: rhs}
}

// newShlExpr returns an expression that represents the shift-left of lhs by rhs bits.
func newShlExpr(lhs, rhs Expr) Expr {
	if lhs, ok := lhs.(*ConstantExpr); ok {
		if rhs, ok := rhs.(*ConstantExpr); ok {
			return lhs.Shl(rhs)
		}
	}
	if ExprWidth(lhs) == WidthBool {
		return NewBinaryExpr(AND, lhs, NewIsZeroExpr(rhs))
	}
	return &BinaryExpr{Op: SHL, LHS: lhs, RHS: rhs}
}

// newLShrExpr returns an expression that represents the logical shift-right of lhs by rhs bits.
func newLShrExpr(lhs, rhs Expr) Expr {
	if lhs, ok := lhs.(*ConstantExpr); ok {
		if rhs, ok := rhs.(*ConstantExpr); ok {
			return lhs.LShr(rhs)
		}
	}
	if ExprWidth(lhs) == WidthBool {
		return NewBinaryExpr(AND, lhs, NewIsZeroExpr(rhs))
	}
	return &BinaryExpr{Op: LSHR, LHS: lhs, RHS: rhs}
}

// newAShrExpr returns an expression that represents the arithmetic shift-right of lhs by rhs bits.
func newAShrExpr(lhs, rhs Expr) Expr {
	if lhs, ok := lhs.(*ConstantExpr); ok {
		if rhs, ok := rhs.(*ConstantExpr); ok {
			return lhs.AShr(rhs)
		}
	}
	if ExprWidth(lhs) == WidthBool {
		return lhs
	}
	return &BinaryExpr{Op: ASHR, LHS: lhs, RHS: rhs}
}

// newEqExpr returns an expression that represents the equality of lhs and rhs.
func newEqExpr(lhs, rhs Expr) Expr {
	if !IsConstantExpr(lhs) && IsConstantExpr(rhs) {
		lhs, rhs = rhs, lhs
	}
	if lhs, ok := lhs.(*ConstantExpr); ok {
		if rhs, ok := rhs.(*ConstantExpr); ok {
			return lhs.Eq(rhs)
		}

		width := ExprWidth(lhs)
		switch rhs := rhs.(type) {
		case *BinaryExpr:
			switch rhs.Op {
			case EQ:
				if width == WidthBool {
					if lhs.IsTrue() {
						return rhs
					} else if IsConstantFalse(lhs) && IsConstantFalse(rhs.LHS) {
						return rhs.RHS
					}
				}
			case OR:
				if width == WidthBool {
					if lhs.IsTrue() {
						return rhs
					} else if ExprWidth(rhs.LHS) == WidthBool {
						return NewBinaryExpr(AND, NewIsZeroExpr(rhs.LHS), NewIsZeroExpr(rhs.RHS))
					}
				}
			case ADD:
				if IsConstantExpr(rhs.LHS) {
					return NewBinaryExpr(EQ, NewBinaryExpr(SUB, lhs, rhs.LHS), rhs.RHS)
				}
			case SUB:
				if IsConstantExpr(rhs.LHS) {
					return NewBinaryExpr(EQ, NewBinaryExpr(SUB, rhs.LHS, lhs), rhs.RHS)
				}
			}

		case *CastExpr:
			trunc := lhs.ZExt(ExprWidth(rhs.Src))
			if rhs.Signed {
				if CompareExpr(lhs, trunc.SExt(width)) == 0 {
					return NewBinaryExpr(EQ, rhs.Src, trunc)
				}
				return NewConstantExpr(0, WidthBool)
			}
			if CompareExpr(lhs, trunc.ZExt(width)) == 0 {
				return NewBinaryExpr(EQ, rhs.Src, trunc)
			}
			return NewConstantExpr(0, WidthBool)
		}
	}

	if CompareExpr(lhs, rhs) == 0 {
		return NewConstantExpr(1, WidthBool)
	}
	return &BinaryExpr{Op: EQ, LHS: lhs, RHS: rhs}
}

// newUltExpr returns an expression that represents whether lhs < rhs (unsigned).
func newUltExpr(lhs, rhs Expr) Expr {
	if lhs, ok := lhs.(*ConstantExpr); ok {
		if rhs, ok := rhs.(*ConstantExpr); ok {
			return lhs.Ult(rhs)
		}
	}
	if ExprWidth(lhs) == WidthBool {
		return NewBinaryExpr(AND, NewIsZeroExpr(lhs), rhs)
	}
	return &BinaryExpr{Op: ULT, LHS: lhs, RHS: rhs}
}

// newUleExpr returns an expression that represents whether lhs <= rhs (unsigned).
func newUleExpr(lhs, rhs Expr) Expr {
	if lhs, ok := lhs.(*ConstantExpr); ok {
		if rhs, ok := rhs.(*ConstantExpr); ok {
			return lhs.Ule(rhs)
		}
	}
	if ExprWidth(lhs) == WidthBool {
		return NewBinaryExpr(OR, NewIsZeroExpr(lhs), rhs)
	}
	return &BinaryExpr{Op: ULE, LHS: lhs, RHS: rhs}
}

// newSltExpr returns an expression that represents whether lhs < rhs (signed).
func newSltExpr(lhs, rhs Expr) Expr {
	if lhs, ok := lhs.(*ConstantExpr); ok {
		if rhs, ok := rhs.(*ConstantExpr); ok {
			return lhs.Slt(rhs)
		}
	}
	if ExprWidth(lhs) == WidthBool {
		return NewBinaryExpr(AND, lhs, NewIsZeroExpr(rhs))
	}
	return &BinaryExpr{Op: SLT, LHS: lhs, RHS: rhs}
}

// newSleExpr returns an expression that represents whether lhs <= rhs (signed).
func newSleExpr(lhs, rhs Expr) Expr {
	if lhs, ok := lhs.(*ConstantExpr); ok {
		if rhs, ok := rhs.(*ConstantExpr); ok {
			return lhs.Sle(rhs)
		}
	}
	if ExprWidth(lhs) == WidthBool {
		return NewBinaryExpr(OR, lhs, NewIsZeroExpr(rhs))
	}
	return &BinaryExpr{Op: SLE, LHS: lhs, RHS: rhs}
}

// ConcatExpr represents a concatenation of two expressions.
type ConcatExpr struct {
	MSB Expr
	LSB Expr
}

// NewConcatExpr returns a new instance of ConcatExpr.
func NewConcatExpr(msb, lsb Expr) Expr {
	if msb, ok := msb.(*ConstantExpr); ok {
		if lsb, ok := lsb.(*ConstantExpr); ok {
			return msb.Concat(lsb)
		}
	}
	if msb, ok := msb.(*ExtractExpr); ok {
		if lsb, ok := lsb.(*ExtractExpr); ok {
			if msb.Expr == lsb.Expr && lsb.Offset+lsb.Width == msb.Offset {
				return NewExtractExpr(msb.Expr, lsb.Offset, msb.Width+lsb.Width)
			}
		}
	}
	return &ConcatExpr{MSB: msb, LSB: lsb}
}

func (e *ConcatExpr) String() string { return fmt.Sprintf("(concat %s %s)", e.MSB, e.LSB) }

// ExtractExpr represents the extraction of a set of bits at a given offset/width.
type ExtractExpr struct {
	Expr   Expr
	Offset uint
	Width  uint
}

// NewExtractExpr returns a new instance of ExtractExpr.
func NewExtractExpr(expr Expr, offset uint, width uint) Expr {
	kw := ExprWidth(expr)
	assert(width > 0, "extract width cannot be zero")
	assert(offset+width <= kw, "extract out of bounds: %d+%d > %d", width, offset, kw)

	if width == kw {
		return expr
	} else if expr, ok := expr.(*ConstantExpr); ok {
		return expr.Extract(offset, width)
	}

	if expr, ok := expr.(*ConcatExpr); ok {
		if offset >= ExprWidth(expr.LSB) {
			return NewExtractExpr(expr.MSB, offset-ExprWidth(expr.LSB), width)
		}
		if offset+width <= ExprWidth(expr.LSB) {
			return NewExtractExpr(expr.LSB, offset, width)
		}
		return NewConcatExpr(
			NewExtractExpr(expr.MSB, 0, width-ExprWidth(expr.LSB)+offset),
			NewExtractExpr(expr.LSB, offset, ExprWidth(expr.MSB)-offset),
		)
	}

	return &ExtractExpr{Expr: expr, Offset: offset, Width: width}
}

func (e *ExtractExpr) String() string {
	return fmt.Sprintf("(extract %s %d %d)", e.Expr, e.Offset, e.Width)
}

// NotExpr represents a bitwise not of an expression.
type NotExpr struct {
	Expr Expr
}

// NewNotExpr returns a new instance of NotExpr.
func NewNotExpr(expr Expr) Expr {
	if expr, ok := expr.(*ConstantExpr); ok {
		return expr.Not()
	}
	return &NotExpr{Expr: expr}
}

func (e *NotExpr) String() string { return fmt.Sprintf("(not %s)", e.Expr) }

// CastExpr represents an expression that casts an expression to a new width.
type CastExpr struct {
	Src    Expr
	Width  uint
	Signed bool
}

// NewCastExpr returns a new instance of CastExpr.
func NewCastExpr(src Expr, width uint, signed bool) Expr {
	if signed {
		return newSExtExpr(src, width)
	}
	return newZExtExpr(src, width)
}

func newZExtExpr(src Expr, w uint) Expr {
	sw := ExprWidth(src)
	if w == sw {
		return src
	} else if w < sw {
		return NewExtractExpr(src, 0, w)
	} else if src, ok := src.(*ConstantExpr); ok {
		return src.ZExt(w)
	}
	return &CastExpr{Src: src, Width: w, Signed: false}
}

func newSExtExpr(src Expr, w uint) Expr {
	sw := ExprWidth(src)
	if w == sw {
		return src
	} else if w < sw {
		return NewExtractExpr(src, 0, w)
	} else if src, ok := src.(*ConstantExpr); ok {
		return src.SExt(w)
	}
	return &CastExpr{Src: src, Width: w, Signed: true}
}

func (e *CastExpr) String() string {
	if e.Signed {
		return fmt.Sprintf("(sext %s %d)", e.Src, e.Width)
	}
	return fmt.Sprintf("(zext %s %d)", e.Src, e.Width)
}

// ConstantExpr represents a fixed-width bit-vector (or boolean, width 1) constant.
type ConstantExpr struct {
	Value uint64
	Width uint
}

// NewConstantExpr returns a new instance of ConstantExpr.
func NewConstantExpr(value uint64, width uint) *ConstantExpr {
	return &ConstantExpr{Value: value & bitmask(width), Width: width}
}

func NewConstantExpr8(value uint64) *ConstantExpr  { return NewConstantExpr(value, 8) }
func NewConstantExpr16(value uint64) *ConstantExpr { return NewConstantExpr(value, 16) }
func NewConstantExpr32(value uint64) *ConstantExpr { return NewConstantExpr(value, 32) }
func NewConstantExpr64(value uint64) *ConstantExpr { return NewConstantExpr(value, 64) }

// NewIndexConst returns a constant of the Index sort (IndexBits wide).
func NewIndexConst(value uint64) *ConstantExpr { return NewConstantExpr(value, IndexBits) }

// NewBoolConstantExpr is an ease-of-use function for creating constant boolean expressions.
func NewBoolConstantExpr(value bool) *ConstantExpr {
	if value {
		return &ConstantExpr{Value: 1, Width: WidthBool}
	}
	return &ConstantExpr{Value: 0, Width: WidthBool}
}

func (e *ConstantExpr) String() string { return fmt.Sprintf("(const %d %d)", e.Value, e.Width) }

func (e *ConstantExpr) IsTrue() bool    { return e.Width == WidthBool && e.Value != 0 }
func (e *ConstantExpr) IsFalse() bool   { return e.Width == WidthBool && e.Value == 0 }
func (e *ConstantExpr) IsAllOnes() bool { return e.Value == bitmask(e.Width) }

func (e *ConstantExpr) Add(other *ConstantExpr) *ConstantExpr {
	assert(e.Width == other.Width, "add: width mismatch: %d != %d", e.Width, other.Width)
	return NewConstantExpr(e.Value+other.Value, e.Width)
}

func (e *ConstantExpr) Sub(other *ConstantExpr) *ConstantExpr {
	assert(e.Width == other.Width, "sub: width mismatch: %d != %d", e.Width, other.Width)
	return NewConstantExpr(e.Value-other.Value, e.Width)
}

func (e *ConstantExpr) Mul(other *ConstantExpr) *ConstantExpr {
	assert(e.Width == other.Width, "mul: width mismatch: %d != %d", e.Width, other.Width)
	return NewConstantExpr((e.Value*other.Value)&bitmask(e.Width), e.Width)
}

func (e *ConstantExpr) UDiv(other *ConstantExpr) *ConstantExpr {
	assert(e.Width == other.Width, "udiv: width mismatch: %d != %d", e.Width, other.Width)
	switch e.Width {
	case Width8:
		return NewConstantExpr(uint64(uint8(e.Value)/uint8(other.Value)), e.Width)
	case Width16:
		return NewConstantExpr(uint64(uint16(e.Value)/uint16(other.Value)), e.Width)
	case Width32:
		return NewConstantExpr(uint64(uint32(e.Value)/uint32(other.Value)), e.Width)
	case Width64:
		return NewConstantExpr(e.Value/other.Value, e.Width)
	default:
		panic(fmt.Sprintf("udiv: non-standard width: %d", e.Width))
	}
}

func (e *ConstantExpr) SDiv(other *ConstantExpr) *ConstantExpr {
	assert(e.Width == other.Width, "sdiv: width mismatch: %d != %d", e.Width, other.Width)
	switch e.Width {
	case Width8:
		return NewConstantExpr(uint64(int8(e.Value)/int8(other.Value)), e.Width)
	case Width16:
		return NewConstantExpr(uint64(int16(e.Value)/int16(other.Value)), e.Width)
	case Width32:
		return NewConstantExpr(uint64(int32(e.Value)/int32(other.Value)), e.Width)
	case Width64:
		return NewConstantExpr(uint64(int64(e.Value)/int64(other.Value)), e.Width)
	default:
		panic(fmt.Sprintf("sdiv: non-standard width: %d", e.Width))
	}
}

func (e *ConstantExpr) URem(other *ConstantExpr) *ConstantExpr {
	assert(e.Width == other.Width, "urem: width mismatch: %d != %d", e.Width, other.Width)
	switch e.Width {
	case Width8:
		return NewConstantExpr(uint64(uint8(e.Value)%uint8(other.Value)), e.Width)
	case Width16:
		return NewConstantExpr(uint64(uint16(e.Value)%uint16(other.Value)), e.Width)
	case Width32:
		return NewConstantExpr(uint64(uint32(e.Value)%uint32(other.Value)), e.Width)
	case Width64:
		return NewConstantExpr(e.Value%other.Value, e.Width)
	default:
		panic(fmt.Sprintf("urem: non-standard width: %d", e.Width))
	}
}

func (e *ConstantExpr) SRem(other *ConstantExpr) *ConstantExpr {
	assert(e.Width == other.Width, "srem: width mismatch: %d != %d", e.Width, other.Width)
	switch e.Width {
	case Width8:
		return NewConstantExpr(uint64(int8(e.Value)%int8(other.Value)), e.Width)
	case Width16:
		return NewConstantExpr(uint64(int16(e.Value)%int16(other.Value)), e.Width)
	case Width32:
		return NewConstantExpr(uint64(int32(e.Value)%int32(other.Value)), e.Width)
	case Width64:
		return NewConstantExpr(uint64(int64(e.Value)%int64(other.Value)), e.Width)
	default:
		panic(fmt.Sprintf("srem: non-standard width: %d", e.Width))
	}
}

func (e *ConstantExpr) And(other *ConstantExpr) *ConstantExpr {
	assert(e.Width == other.Width, "and: width mismatch: %d != %d", e.Width, other.Width)
	return NewConstantExpr(e.Value&other.Value, e.Width)
}

func (e *ConstantExpr) Or(other *ConstantExpr) *ConstantExpr {
	assert(e.Width == other.Width, "or: width mismatch: %d != %d", e.Width, other.Width)
	return NewConstantExpr(e.Value|other.Value, e.Width)
}

func (e *ConstantExpr) Xor(other *ConstantExpr) *ConstantExpr {
	assert(e.Width == other.Width, "xor: width mismatch: %d != %d", e.Width, other.Width)
	return NewConstantExpr(e.Value^other.Value, e.Width)
}

func (e *ConstantExpr) Shl(other *ConstantExpr) *ConstantExpr {
	switch e.Width {
	case Width8:
		return NewConstantExpr(uint64(uint8(e.Value)<<other.Value), e.Width)
	case Width16:
		return NewConstantExpr(uint64(uint16(e.Value)<<other.Value), e.Width)
	case Width32:
		return NewConstantExpr(uint64(uint32(e.Value)<<other.Value), e.Width)
	case Width64:
		return NewConstantExpr(e.Value<<other.Value, e.Width)
	default:
		panic("shl: non-standard width")
	}
}

func (e *ConstantExpr) LShr(other *ConstantExpr) *ConstantExpr {
	switch e.Width {
	case Width8:
		return NewConstantExpr(uint64(uint8(e.Value)>>other.Value), e.Width)
	case Width16:
		return NewConstantExpr(uint64(uint16(e.Value)>>other.Value), e.Width)
	case Width32:
		return NewConstantExpr(uint64(uint32(e.Value)>>other.Value), e.Width)
	case Width64:
		return NewConstantExpr(e.Value>>other.Value, e.Width)
	default:
		panic("lshr: non-standard width")
	}
}

func (e *ConstantExpr) AShr(other *ConstantExpr) *ConstantExpr {
	switch e.Width {
	case Width8:
		return NewConstantExpr(uint64(uint8(int8(e.Value)>>other.Value)), e.Width)
	case Width16:
		return NewConstantExpr(uint64(uint16(int16(e.Value)>>other.Value)), e.Width)
	case Width32:
		return NewConstantExpr(uint64(uint32(int32(e.Value)>>other.Value)), e.Width)
	case Width64:
		return NewConstantExpr(uint64(int64(e.Value)>>other.Value), e.Width)
	default:
		panic("ashr: non-standard width")
	}
}

func (e *ConstantExpr) Eq(other *ConstantExpr) *ConstantExpr {
	assert(e.Width == other.Width, "eq: width mismatch: %d != %d", e.Width, other.Width)
	return NewBoolConstantExpr(e.Value == other.Value)
}

func (e *ConstantExpr) Ult(other *ConstantExpr) *ConstantExpr {
	switch e.Width {
	case Width8:
		return NewBoolConstantExpr(uint8(e.Value) < uint8(other.Value))
	case Width16:
		return NewBoolConstantExpr(uint16(e.Value) < uint16(other.Value))
	case Width32:
		return NewBoolConstantExpr(uint32(e.Value) < uint32(other.Value))
	case Width64:
		return NewBoolConstantExpr(e.Value < other.Value)
	default:
		panic("ult: non-standard width")
	}
}

func (e *ConstantExpr) Ugt(other *ConstantExpr) *ConstantExpr { return other.Ult(e) }

func (e *ConstantExpr) Ule(other *ConstantExpr) *ConstantExpr {
	switch e.Width {
	case Width8:
		return NewBoolConstantExpr(uint8(e.Value) <= uint8(other.Value))
	case Width16:
		return NewBoolConstantExpr(uint16(e.Value) <= uint16(other.Value))
	case Width32:
		return NewBoolConstantExpr(uint32(e.Value) <= uint32(other.Value))
	case Width64:
		return NewBoolConstantExpr(e.Value <= other.Value)
	default:
		panic("ule: non-standard width")
	}
}

func (e *ConstantExpr) Uge(other *ConstantExpr) *ConstantExpr { return other.Ule(e) }

func (e *ConstantExpr) Slt(other *ConstantExpr) *ConstantExpr {
	switch e.Width {
	case Width8:
		return NewBoolConstantExpr(int8(e.Value) < int8(other.Value))
	case Width16:
		return NewBoolConstantExpr(int16(e.Value) < int16(other.Value))
	case Width32:
		return NewBoolConstantExpr(int32(e.Value) < int32(other.Value))
	case Width64:
		return NewBoolConstantExpr(int64(e.Value) < int64(other.Value))
	default:
		panic("slt: non-standard width")
	}
}

func (e *ConstantExpr) Sgt(other *ConstantExpr) *ConstantExpr { return other.Slt(e) }

func (e *ConstantExpr) Sle(other *ConstantExpr) *ConstantExpr {
	switch e.Width {
	case Width8:
		return NewBoolConstantExpr(int8(e.Value) <= int8(other.Value))
	case Width16:
		return NewBoolConstantExpr(int16(e.Value) <= int16(other.Value))
	case Width32:
		return NewBoolConstantExpr(int32(e.Value) <= int32(other.Value))
	case Width64:
		return NewBoolConstantExpr(int64(e.Value) <= int64(other.Value))
	default:
		panic("sle: non-standard width")
	}
}

func (e *ConstantExpr) Sge(other *ConstantExpr) *ConstantExpr { return other.Sle(e) }

func (e *ConstantExpr) ZExt(width uint) *ConstantExpr {
	if e.Width == width {
		return e
	} else if width == WidthBool {
		return NewBoolConstantExpr(e.Value != 0)
	}
	return NewConstantExpr(e.Value, width)
}

func (e *ConstantExpr) SExt(width uint) *ConstantExpr {
	if e.Width == width {
		return e
	}
	switch width {
	case Width8:
		switch e.Width {
		case Width16:
			return NewConstantExpr(uint64(int16(int8(e.Value))), width)
		case Width32:
			return NewConstantExpr(uint64(int32(int8(e.Value))), width)
		case Width64:
			return NewConstantExpr(uint64(int64(int8(e.Value))), width)
		}
	case Width16:
		switch e.Width {
		case Width8:
			return NewConstantExpr(uint64(int8(int16(e.Value))), width)
		case Width32:
			return NewConstantExpr(uint64(int32(int16(e.Value))), width)
		case Width64:
			return NewConstantExpr(uint64(int64(int16(e.Value))), width)
		}
	case Width32:
		switch e.Width {
		case Width8:
			return NewConstantExpr(uint64(int8(int32(e.Value))), width)
		case Width16:
			return NewConstantExpr(uint64(int16(int32(e.Value))), width)
		case Width64:
			return NewConstantExpr(uint64(int64(int32(e.Value))), width)
		}
	case Width64:
		switch e.Width {
		case Width8:
			return NewConstantExpr(uint64(int8(int64(e.Value))), width)
		case Width16:
			return NewConstantExpr(uint64(int16(int64(e.Value))), width)
		case Width32:
			return NewConstantExpr(uint64(int32(int64(e.Value))), width)
		}
	}
	panic(fmt.Sprintf("sext: non-standard width: %d -> %d", e.Width, width))
}

func (e *ConstantExpr) Not() *ConstantExpr {
	return NewConstantExpr((^e.Value)&bitmask(e.Width), e.Width)
}

func (e *ConstantExpr) Extract(offset, width uint) *ConstantExpr {
	return NewConstantExpr(e.Value>>offset, width)
}

func (e *ConstantExpr) Concat(lsb *ConstantExpr) *ConstantExpr {
	return NewConstantExpr((e.Value<<lsb.Width)|lsb.Value, e.Width+lsb.Width)
}

func bitmask(width uint) uint64 {
	if width >= 64 {
		return ^uint64(0)
	}
	return (uint64(1) << width) - 1
}

func IsConstantExpr(expr Expr) bool { _, ok := expr.(*ConstantExpr); return ok }

func IsConstantTrue(expr Expr) bool {
	tmp, ok := expr.(*ConstantExpr)
	return ok && tmp.IsTrue()
}

func IsConstantFalse(expr Expr) bool {
	tmp, ok := expr.(*ConstantExpr)
	return ok && tmp.IsFalse()
}

// NewIsZeroExpr returns an expression that checks the equality of other to zero.
func NewIsZeroExpr(other Expr) Expr {
	return NewBinaryExpr(EQ, other, NewConstantExpr(0, ExprWidth(other)))
}

// NotOptimizedExpr wraps an expression to opt it out of constructor-time
// simplification (used by tests that assert on un-simplified shapes).
type NotOptimizedExpr struct {
	Src Expr
}

func NewNotOptimizedExpr(src Expr) Expr { return &NotOptimizedExpr{Src: src} }
func (e *NotOptimizedExpr) String() string { return fmt.Sprintf("(no-opt %s)", e.Src) }

// IteExpr is `ite(cond, then, else)` (spec.md §3's `ite`), used for scalar
// select and as the leaf of Tensor/MemRef `mkIte`.
type IteExpr struct {
	Cond Expr
	Then Expr
	Else Expr
}

// NewIteExpr returns a new ite expression, folding when the condition is a
// known constant or both branches are syntactically identical.
func NewIteExpr(cond, then, els Expr) Expr {
	if cond, ok := cond.(*ConstantExpr); ok {
		if cond.IsTrue() {
			return then
		}
		return els
	}
	if CompareExpr(then, els) == 0 {
		return then
	}
	return &IteExpr{Cond: cond, Then: then, Else: els}
}

func (e *IteExpr) String() string { return fmt.Sprintf("(ite %s %s %s)", e.Cond, e.Then, e.Else) }

// ArraySort describes the domain/range widths of an array-sorted expression.
// Both Memory blocks and Tensor.asArray use this sort.
type ArraySort struct {
	DomainWidth uint
	RangeWidth  uint
}

// ArrayVarExpr is a named, fully symbolic array-sorted term: a fresh
// uninterpreted array constant, the array-theory analog of a register
// variable. Memory blocks and tensor constants with symbolic bodies are
// each backed by one of these.
type ArrayVarExpr struct {
	ID   uint64
	Name string
	ArraySort
}

func NewArrayVarExpr(id uint64, name string, domainWidth, rangeWidth uint) *ArrayVarExpr {
	return &ArrayVarExpr{ID: id, Name: name, ArraySort: ArraySort{DomainWidth: domainWidth, RangeWidth: rangeWidth}}
}

func (e *ArrayVarExpr) String() string { return fmt.Sprintf("(array-var %s %d)", e.Name, e.ID) }

// ArraySelectExpr is SMT array-theory `select(array, index)`.
type ArraySelectExpr struct {
	Array *ArrayVarExpr
	Index Expr
}

func NewArraySelectExpr(array *ArrayVarExpr, index Expr) Expr {
	return &ArraySelectExpr{Array: array, Index: index}
}

func (e *ArraySelectExpr) String() string { return fmt.Sprintf("(select %s %s)", e.Array, e.Index) }

// ArrayStoreExpr is SMT array-theory `store(array, index, value)`: it
// denotes a new array value, used functionally (Memory never mutates an
// ArrayVarExpr in place — storing rebinds the block's current array).
type ArrayStoreExpr struct {
	Array *ArrayVarExpr
	Index Expr
	Value Expr
}

func NewArrayStoreExpr(array *ArrayVarExpr, index, value Expr) *ArrayStoreExpr {
	return &ArrayStoreExpr{Array: array, Index: index, Value: value}
}

func (e *ArrayStoreExpr) String() string {
	return fmt.Sprintf("(store %s %s %s)", e.Array, e.Index, e.Value)
}

// BoundVar is one variable bound by a ForallExpr or LambdaExpr.
type BoundVar struct {
	Name  string
	Width uint
}

// ForallExpr is the universal quantifier used for loop well-definedness
// obligations (spec.md §4.5, §9 "UB as a first-class predicate").
type ForallExpr struct {
	Vars []BoundVar
	Body Expr // boolean-sorted
}

func NewForallExpr(vars []BoundVar, body Expr) Expr {
	if len(vars) == 0 {
		return body
	}
	if IsConstantTrue(body) {
		return body
	}
	return &ForallExpr{Vars: vars, Body: body}
}

func (e *ForallExpr) String() string { return fmt.Sprintf("(forall %v %s)", e.Vars, e.Body) }

// LambdaExpr is bound-variable abstraction used to represent a lambda-backed
// Tensor body: a total function from a bound index tuple to a scalar Expr.
type LambdaExpr struct {
	Vars []BoundVar
	Body Expr
}

func NewLambdaExpr(vars []BoundVar, body Expr) *LambdaExpr {
	return &LambdaExpr{Vars: vars, Body: body}
}

func (e *LambdaExpr) String() string { return fmt.Sprintf("(lambda %v %s)", e.Vars, e.Body) }

// UninterpretedExpr is an opaque application of a named uninterpreted
// function to scalar arguments: the core's realization of "floats are
// abstract uninterpreted values with algebraic axioms introduced outside
// the core" (spec.md §3). The core builds these and never inspects their
// contents; axioms (commutativity of `addf`, etc.) are asserted by the
// solver backend, not here.
type UninterpretedExpr struct {
	Name  string
	Args  []Expr
	Width uint // result width; float results use Precision.Width() bookkeeping only
}

func NewUninterpretedExpr(name string, width uint, args ...Expr) *UninterpretedExpr {
	return &UninterpretedExpr{Name: name, Args: args, Width: width}
}

func (e *UninterpretedExpr) String() string { return fmt.Sprintf("(%s %v)", e.Name, e.Args) }

// Tuple represents a slice of bindings.
type Tuple []Binding

func (a Tuple) String() string {
	var buf bytes.Buffer
	buf.WriteRune('[')
	for i := range a {
		buf.WriteString(a[i].String())
		if i < len(a)-1 {
			buf.WriteRune(' ')
		}
	}
	buf.WriteRune(']')
	return buf.String()
}

// CompareExpr returns an integer comparing two expressions: 0 if equal, -1
// if a<b, +1 if a>b, in a total (if arbitrary) structural order. Used to
// dedupe structurally-identical subexpressions and to drive deterministic
// output ordering (invariant 1, determinism).
func CompareExpr(a, b Expr) int {
	if a == nil && b != nil {
		return -1
	} else if a != nil && b == nil {
		return 1
	} else if a == nil && b == nil {
		return 0
	}

	if ak, bk := exprKind(a), exprKind(b); ak < bk {
		return -1
	} else if ak > bk {
		return 1
	}

	switch a := a.(type) {
	case *ConstantExpr:
		return compareConstantExpr(a, b.(*ConstantExpr))
	case *NotOptimizedExpr:
		return compareNotOptimizedExpr(a, b.(*NotOptimizedExpr))
	case *ConcatExpr:
		return compareConcatExpr(a, b.(*ConcatExpr))
	case *ExtractExpr:
		return compareExtractExpr(a, b.(*ExtractExpr))
	case *NotExpr:
		return compareNotExpr(a, b.(*NotExpr))
	case *CastExpr:
		return compareCastExpr(a, b.(*CastExpr))
	case *BinaryExpr:
		return compareBinaryExpr(a, b.(*BinaryExpr))
	case *IteExpr:
		return compareIteExpr(a, b.(*IteExpr))
	case *ArrayVarExpr:
		return compareArrayVarExpr(a, b.(*ArrayVarExpr))
	case *ArraySelectExpr:
		return compareArraySelectExpr(a, b.(*ArraySelectExpr))
	case *ArrayStoreExpr:
		return compareArrayStoreExpr(a, b.(*ArrayStoreExpr))
	case *ForallExpr:
		return compareForallExpr(a, b.(*ForallExpr))
	case *LambdaExpr:
		return compareLambdaExpr(a, b.(*LambdaExpr))
	case *UninterpretedExpr:
		return compareUninterpretedExpr(a, b.(*UninterpretedExpr))
	case *VarExpr:
		return compareVarExpr(a, b.(*VarExpr))
	default:
		panic("unreachable")
	}
}

func compareVarExpr(a, b *VarExpr) int {
	if a.Name != b.Name {
		if a.Name < b.Name {
			return -1
		}
		return 1
	}
	return 0
}

func compareConstantExpr(a, b *ConstantExpr) int {
	if a.Width != b.Width {
		return cmpUint(uint64(a.Width), uint64(b.Width))
	}
	return cmpUint(a.Value, b.Value)
}

func compareNotOptimizedExpr(a, b *NotOptimizedExpr) int { return CompareExpr(a.Src, b.Src) }

func compareConcatExpr(a, b *ConcatExpr) int {
	if cmp := CompareExpr(a.MSB, b.MSB); cmp != 0 {
		return cmp
	}
	return CompareExpr(a.LSB, b.LSB)
}

func compareExtractExpr(a, b *ExtractExpr) int {
	if a.Offset != b.Offset {
		return cmpUint(uint64(a.Offset), uint64(b.Offset))
	}
	if a.Width != b.Width {
		return cmpUint(uint64(a.Width), uint64(b.Width))
	}
	return CompareExpr(a.Expr, b.Expr)
}

func compareNotExpr(a, b *NotExpr) int { return CompareExpr(a.Expr, b.Expr) }

func compareCastExpr(a, b *CastExpr) int {
	if a.Signed != b.Signed {
		if !a.Signed {
			return -1
		}
		return 1
	}
	if a.Width != b.Width {
		return cmpUint(uint64(a.Width), uint64(b.Width))
	}
	return CompareExpr(a.Src, b.Src)
}

func compareBinaryExpr(a, b *BinaryExpr) int {
	if a.Op != b.Op {
		return cmpUint(uint64(a.Op), uint64(b.Op))
	}
	if cmp := CompareExpr(a.LHS, b.LHS); cmp != 0 {
		return cmp
	}
	return CompareExpr(a.RHS, b.RHS)
}

func compareIteExpr(a, b *IteExpr) int {
	if cmp := CompareExpr(a.Cond, b.Cond); cmp != 0 {
		return cmp
	}
	if cmp := CompareExpr(a.Then, b.Then); cmp != 0 {
		return cmp
	}
	return CompareExpr(a.Else, b.Else)
}

func compareArrayVarExpr(a, b *ArrayVarExpr) int { return cmpUint(a.ID, b.ID) }

func compareArraySelectExpr(a, b *ArraySelectExpr) int {
	if cmp := compareArrayVarExpr(a.Array, b.Array); cmp != 0 {
		return cmp
	}
	return CompareExpr(a.Index, b.Index)
}

func compareArrayStoreExpr(a, b *ArrayStoreExpr) int {
	if cmp := compareArrayVarExpr(a.Array, b.Array); cmp != 0 {
		return cmp
	}
	if cmp := CompareExpr(a.Index, b.Index); cmp != 0 {
		return cmp
	}
	return CompareExpr(a.Value, b.Value)
}

func compareForallExpr(a, b *ForallExpr) int {
	if len(a.Vars) != len(b.Vars) {
		return cmpUint(uint64(len(a.Vars)), uint64(len(b.Vars)))
	}
	return CompareExpr(a.Body, b.Body)
}

func compareLambdaExpr(a, b *LambdaExpr) int {
	if len(a.Vars) != len(b.Vars) {
		return cmpUint(uint64(len(a.Vars)), uint64(len(b.Vars)))
	}
	return CompareExpr(a.Body, b.Body)
}

func compareUninterpretedExpr(a, b *UninterpretedExpr) int {
	if a.Name != b.Name {
		if a.Name < b.Name {
			return -1
		}
		return 1
	}
	if len(a.Args) != len(b.Args) {
		return cmpUint(uint64(len(a.Args)), uint64(len(b.Args)))
	}
	for i := range a.Args {
		if cmp := CompareExpr(a.Args[i], b.Args[i]); cmp != 0 {
			return cmp
		}
	}
	return 0
}

func cmpUint(a, b uint64) int {
	if a < b {
		return -1
	} else if a > b {
		return 1
	}
	return 0
}

// exprKind returns a numeric value for the type of expression.
// Only used internally for equality checks and sorting.
func exprKind(expr Expr) int {
	switch expr.(type) {
	case *ConstantExpr:
		return 1
	case *NotOptimizedExpr:
		return 2
	case *ConcatExpr:
		return 3
	case *ExtractExpr:
		return 4
	case *NotExpr:
		return 5
	case *CastExpr:
		return 6
	case *BinaryExpr:
		return 7
	case *IteExpr:
		return 8
	case *ArrayVarExpr:
		return 9
	case *ArraySelectExpr:
		return 10
	case *ArrayStoreExpr:
		return 11
	case *ForallExpr:
		return 12
	case *LambdaExpr:
		return 13
	case *UninterpretedExpr:
		return 14
	case *VarExpr:
		return 15
	default:
		panic("unreachable")
	}
}

// Fingerprint returns a structural hash of e: two structurally identical
// but pointer-distinct expressions (the tensor-lambda encoders in
// value_tensor.go rebuild the same index arithmetic once per axis) always
// collide. It is a candidate filter, not an equality test — callers must
// still confirm a bucket match with CompareExpr before treating two
// expressions as the same term.
func Fingerprint(e Expr) uint64 {
	h := xxhash.New()
	writeFingerprint(h, e)
	return h.Sum64()
}

func writeFingerprint(h *xxhash.Digest, e Expr) {
	fmt.Fprintf(h, "%d:", exprKind(e))
	switch e := e.(type) {
	case *ConstantExpr:
		fmt.Fprintf(h, "%d,%d", e.Width, e.Value)
	case *NotOptimizedExpr:
		writeFingerprint(h, e.Src)
	case *ConcatExpr:
		writeFingerprint(h, e.MSB)
		h.WriteString(",")
		writeFingerprint(h, e.LSB)
	case *ExtractExpr:
		fmt.Fprintf(h, "%d,%d,", e.Offset, e.Width)
		writeFingerprint(h, e.Expr)
	case *NotExpr:
		writeFingerprint(h, e.Expr)
	case *CastExpr:
		fmt.Fprintf(h, "%d,%v,", e.Width, e.Signed)
		writeFingerprint(h, e.Src)
	case *BinaryExpr:
		fmt.Fprintf(h, "%d,", e.Op)
		writeFingerprint(h, e.LHS)
		h.WriteString(",")
		writeFingerprint(h, e.RHS)
	case *IteExpr:
		writeFingerprint(h, e.Cond)
		h.WriteString(",")
		writeFingerprint(h, e.Then)
		h.WriteString(",")
		writeFingerprint(h, e.Else)
	case *ArrayVarExpr:
		fmt.Fprintf(h, "%d", e.ID)
	case *ArraySelectExpr:
		writeFingerprint(h, e.Array)
		h.WriteString(",")
		writeFingerprint(h, e.Index)
	case *ArrayStoreExpr:
		writeFingerprint(h, e.Array)
		h.WriteString(",")
		writeFingerprint(h, e.Index)
		h.WriteString(",")
		writeFingerprint(h, e.Value)
	case *ForallExpr:
		fmt.Fprintf(h, "%d,", len(e.Vars))
		writeFingerprint(h, e.Body)
	case *LambdaExpr:
		fmt.Fprintf(h, "%d,", len(e.Vars))
		writeFingerprint(h, e.Body)
	case *UninterpretedExpr:
		fmt.Fprintf(h, "%s,%d,", e.Name, e.Width)
		for _, a := range e.Args {
			writeFingerprint(h, a)
			h.WriteString(",")
		}
	case *VarExpr:
		fmt.Fprintf(h, "%s,%d", e.Name, e.Width)
	default:
		panic("unreachable")
	}
}

// ExprVisitor represents a visitor that can be passed to WalkExpr().
type ExprVisitor interface {
	// Visit is executed for every visited node. Return a different
	// expression to replace it, and a (possibly different) visitor to
	// continue with for that subtree; nil stops the walk there.
	Visit(expr Expr) (Expr, ExprVisitor)
}

func WalkExpr(v ExprVisitor, expr Expr) Expr {
	other, v := v.Visit(expr)
	if v == nil {
		return other
	}

	switch expr := expr.(type) {
	case *BinaryExpr:
		if o := WalkExpr(v, expr.LHS); o != expr.LHS {
			expr.LHS = o
		}
		if o := WalkExpr(v, expr.RHS); o != expr.RHS {
			expr.RHS = o
		}
	case *CastExpr:
		if o := WalkExpr(v, expr.Src); o != expr.Src {
			expr.Src = o
		}
	case *ConcatExpr:
		if o := WalkExpr(v, expr.MSB); o != expr.MSB {
			expr.MSB = o
		}
		if o := WalkExpr(v, expr.LSB); o != expr.LSB {
			expr.LSB = o
		}
	case *ConstantExpr:
		// leaf
	case *ExtractExpr:
		if o := WalkExpr(v, expr.Expr); o != expr.Expr {
			expr.Expr = o
		}
	case *NotExpr:
		if o := WalkExpr(v, expr.Expr); o != expr.Expr {
			expr.Expr = o
		}
	case *NotOptimizedExpr:
		if o := WalkExpr(v, expr.Src); o != expr.Src {
			expr.Src = o
		}
	case *IteExpr:
		if o := WalkExpr(v, expr.Cond); o != expr.Cond {
			expr.Cond = o
		}
		if o := WalkExpr(v, expr.Then); o != expr.Then {
			expr.Then = o
		}
		if o := WalkExpr(v, expr.Else); o != expr.Else {
			expr.Else = o
		}
	case *ArrayVarExpr:
		// leaf
	case *ArraySelectExpr:
		if o := WalkExpr(v, expr.Index); o != expr.Index {
			expr.Index = o
		}
	case *ArrayStoreExpr:
		if o := WalkExpr(v, expr.Index); o != expr.Index {
			expr.Index = o
		}
		if o := WalkExpr(v, expr.Value); o != expr.Value {
			expr.Value = o
		}
	case *ForallExpr:
		if o := WalkExpr(v, expr.Body); o != expr.Body {
			expr.Body = o
		}
	case *LambdaExpr:
		if o := WalkExpr(v, expr.Body); o != expr.Body {
			expr.Body = o
		}
	case *UninterpretedExpr:
		for i, arg := range expr.Args {
			if o := WalkExpr(v, arg); o != arg {
				expr.Args[i] = o
			}
		}
	case *VarExpr:
		// leaf
	default:
		panic("unreachable")
	}

	return other
}

// FindArrayVars returns every distinct symbolic array variable reachable
// from exprs, sorted by ID, used by the SMT backend to declare array
// constants before asserting a query.
func FindArrayVars(exprs ...Expr) []*ArrayVarExpr {
	v := newArrayVarVisitor()
	for _, expr := range exprs {
		WalkExpr(v, expr)
	}
	a := make([]*ArrayVarExpr, 0, len(v.m))
	for _, av := range v.m {
		a = append(a, av)
	}
	sort.Slice(a, func(i, j int) bool { return a[i].ID < a[j].ID })
	return a
}

type arrayVarVisitor struct {
	m map[uint64]*ArrayVarExpr
}

func newArrayVarVisitor() *arrayVarVisitor { return &arrayVarVisitor{m: make(map[uint64]*ArrayVarExpr)} }

func (v *arrayVarVisitor) Visit(expr Expr) (Expr, ExprVisitor) {
	switch expr := expr.(type) {
	case *ArrayVarExpr:
		if _, ok := v.m[expr.ID]; !ok {
			v.m[expr.ID] = expr
		}
	case *ArraySelectExpr:
		if _, ok := v.m[expr.Array.ID]; !ok {
			v.m[expr.Array.ID] = expr.Array
		}
	case *ArrayStoreExpr:
		if _, ok := v.m[expr.Array.ID]; !ok {
			v.m[expr.Array.ID] = expr.Array
		}
	}
	return expr, v
}

// substituteVars returns a fresh expression with every VarExpr named in
// subst replaced by its bound value, rebuilding (rather than mutating)
// every ancestor node so that applying the same LambdaExpr/ForallExpr body
// to many different arguments never aliases one application's tree into
// another's — the central operation behind Tensor.get on a lambda-backed
// body (value_tensor.go) and loop-body binding (generic.go). Rebuilding
// through the ordinary smart constructors also re-triggers constant
// folding once concrete indices are substituted in.
func substituteVars(expr Expr, subst map[string]Expr) Expr {
	switch e := expr.(type) {
	case *VarExpr:
		if repl, ok := subst[e.Name]; ok {
			return repl
		}
		return e
	case *ConstantExpr:
		return e
	case *BinaryExpr:
		return NewBinaryExpr(e.Op, substituteVars(e.LHS, subst), substituteVars(e.RHS, subst))
	case *CastExpr:
		return NewCastExpr(substituteVars(e.Src, subst), e.Width, e.Signed)
	case *ConcatExpr:
		return NewConcatExpr(substituteVars(e.MSB, subst), substituteVars(e.LSB, subst))
	case *ExtractExpr:
		return NewExtractExpr(substituteVars(e.Expr, subst), e.Offset, e.Width)
	case *NotExpr:
		return NewNotExpr(substituteVars(e.Expr, subst))
	case *NotOptimizedExpr:
		return NewNotOptimizedExpr(substituteVars(e.Src, subst))
	case *IteExpr:
		return NewIteExpr(substituteVars(e.Cond, subst), substituteVars(e.Then, subst), substituteVars(e.Else, subst))
	case *ArrayVarExpr:
		return e
	case *ArraySelectExpr:
		return NewArraySelectExpr(e.Array, substituteVars(e.Index, subst))
	case *ArrayStoreExpr:
		return NewArrayStoreExpr(e.Array, substituteVars(e.Index, subst), substituteVars(e.Value, subst))
	case *ForallExpr:
		return NewForallExpr(e.Vars, substituteVars(e.Body, subst))
	case *LambdaExpr:
		return NewLambdaExpr(e.Vars, substituteVars(e.Body, subst))
	case *UninterpretedExpr:
		args := make([]Expr, len(e.Args))
		for i, a := range e.Args {
			args[i] = substituteVars(a, subst)
		}
		return NewUninterpretedExpr(e.Name, e.Width, args...)
	default:
		panic(fmt.Sprintf("substituteVars: unhandled %T", expr))
	}
}

// minBytes returns the smallest number of bytes in which w bits fit.
func minBytes(bits uint) uint {
	return (bits + 7) / 8
}
