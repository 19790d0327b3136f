package ir

// Attribute values usable as either an IR value or a static attribute
// operand ("mixed" operands, spec.md §4.6 getFromMixedOps): offsets, sizes
// and strides on slice ops may be given as a compile-time constant or as a
// dynamic SSA value.
type OrValue struct {
	Value  *Value // non-nil if dynamic
	Static int64  // meaningful only if Value == nil
}

func StaticAttr(v int64) OrValue  { return OrValue{Static: v} }
func DynamicAttr(v *Value) OrValue { return OrValue{Value: v} }

func (o OrValue) IsStatic() bool { return o.Value == nil }

// --- scalar arithmetic -----------------------------------------------------

type CmpFPredicate int

const CmpFOLT CmpFPredicate = 0 // the only predicate the core spec supports

type AddFOp struct {
	OpBase
	X, Y *Value
}

func (o *AddFOp) Operands() []*Value { return []*Value{o.X, o.Y} }

type SubFOp struct {
	OpBase
	X, Y *Value
}

func (o *SubFOp) Operands() []*Value { return []*Value{o.X, o.Y} }

type MulFOp struct {
	OpBase
	X, Y *Value
}

func (o *MulFOp) Operands() []*Value { return []*Value{o.X, o.Y} }

type NegFOp struct {
	OpBase
	X *Value
}

func (o *NegFOp) Operands() []*Value { return []*Value{o.X} }

type CmpFOp struct {
	OpBase
	Pred CmpFPredicate
	X, Y *Value
}

func (o *CmpFOp) Operands() []*Value { return []*Value{o.X, o.Y} }

type ExtFOp struct {
	OpBase
	X  *Value
	To FloatPrecision
}

func (o *ExtFOp) Operands() []*Value { return []*Value{o.X} }

type TruncFOp struct {
	OpBase
	X  *Value
	To FloatPrecision
}

func (o *TruncFOp) Operands() []*Value { return []*Value{o.X} }

type AddIOp struct {
	OpBase
	X, Y *Value
}

func (o *AddIOp) Operands() []*Value { return []*Value{o.X, o.Y} }

type SubIOp struct {
	OpBase
	X, Y *Value
}

func (o *SubIOp) Operands() []*Value { return []*Value{o.X, o.Y} }

type MulIOp struct {
	OpBase
	X, Y *Value
}

func (o *MulIOp) Operands() []*Value { return []*Value{o.X, o.Y} }

// --- constants --------------------------------------------------------------

type ConstAttrKind int

const (
	ConstInt ConstAttrKind = iota
	ConstIndex
	ConstFloat
	ConstDenseSplat
	ConstDenseElements
	ConstSparseElements
)

// ConstantOp covers every constant form of spec.md §4.3 "Constants".
type ConstantOp struct {
	OpBase
	Kind ConstAttrKind

	IntValue   uint64 // ConstInt / ConstIndex
	FloatValue float64 // ConstFloat / ConstDenseSplat when element type is float; abstracted downstream

	// ConstDenseElements: row-major values, len == product(dims).
	DenseValues []float64
	// ConstSparseElements: explicit (index-tuple, value) pairs plus a default.
	SparseIndices [][]int64
	SparseValues  []float64
	SparseDefault float64
}

func (o *ConstantOp) Operands() []*Value { return nil }

// --- element-wise lift is not a distinct op: AddFOp/SubIOp/etc. lift to
// tensor operands automatically (spec.md §4.3 "Element-wise over tensors").

// --- shape manipulation ------------------------------------------------------

type DimOp struct {
	OpBase
	Source *Value
	Index  int64
}

func (o *DimOp) Operands() []*Value { return []*Value{o.Source} }

type CollapseShapeOp struct {
	OpBase
	Source *Value
	Groups [][]int // each group: input dim positions collapsed into one output dim
}

func (o *CollapseShapeOp) Operands() []*Value { return []*Value{o.Source} }

type ExpandShapeOp struct {
	OpBase
	Source *Value
	Groups [][]int // each group: output dim positions expanded from one input dim
}

func (o *ExpandShapeOp) Operands() []*Value { return []*Value{o.Source} }

type CastOp struct {
	OpBase
	Source *Value
}

func (o *CastOp) Operands() []*Value { return []*Value{o.Source} }

type ReshapeOp struct {
	OpBase
	Source *Value
	Shape  []int64
}

func (o *ReshapeOp) Operands() []*Value { return []*Value{o.Source} }

type ExtractSliceOp struct {
	OpBase
	Source          *Value
	Offsets, Sizes, Strides []OrValue
	// RankReducedDims: statically size-1 axes dropped from the result.
	RankReducedDims []int
}

func (o *ExtractSliceOp) Operands() []*Value { return []*Value{o.Source} }

type InsertSliceOp struct {
	OpBase
	Source, Dest    *Value
	Offsets, Sizes, Strides []OrValue
}

func (o *InsertSliceOp) Operands() []*Value { return []*Value{o.Source, o.Dest} }

// PadOp evaluates Body at every out-of-source index (spec.md §4.3 "pad").
type PadOp struct {
	OpBase
	Source      *Value
	LowPad, HighPad []OrValue
	Body        *Region // block args: index-tuple; terminator: Yield(scalar)
}

func (o *PadOp) Operands() []*Value { return []*Value{o.Source} }

type TileOp struct {
	OpBase
	Source *Value
	Reps   []int64
}

func (o *TileOp) Operands() []*Value { return []*Value{o.Source} }

type ReverseOp struct {
	OpBase
	Source *Value
	Axis   int
}

func (o *ReverseOp) Operands() []*Value { return []*Value{o.Source} }

type ConcatOp struct {
	OpBase
	A, B *Value
	Axis int
}

func (o *ConcatOp) Operands() []*Value { return []*Value{o.A, o.B} }

type FromElementsOp struct {
	OpBase
	Elements []*Value
}

func (o *FromElementsOp) Operands() []*Value { return o.Elements }

// GenerateOp runs Body as a parallel loop over the result shape (spec.md
// §4.3 "generate").
type GenerateOp struct {
	OpBase
	DynamicExtents []*Value
	StaticDims     []int64
	Body           *Region // block args: index-tuple; terminator: Yield(scalar)
}

func (o *GenerateOp) Operands() []*Value { return o.DynamicExtents }

// --- linalg structured ops ---------------------------------------------------

type InitTensorOp struct {
	OpBase
	Dims []OrValue
}

func (o *InitTensorOp) Operands() []*Value {
	var vs []*Value
	for _, d := range o.Dims {
		if !d.IsStatic() {
			vs = append(vs, d.Value)
		}
	}
	return vs
}

type FillOp struct {
	OpBase
	Scalar *Value
	Dest   *Value // tensor init or memref destination
}

func (o *FillOp) Operands() []*Value { return []*Value{o.Scalar, o.Dest} }

type MatmulOp struct {
	OpBase
	A, B *Value
}

func (o *MatmulOp) Operands() []*Value { return []*Value{o.A, o.B} }

type DotOp struct {
	OpBase
	A, B *Value
}

func (o *DotOp) Operands() []*Value { return []*Value{o.A, o.B} }

type Conv2DNchwFchwOp struct {
	OpBase
	Input, Filter      *Value
	Strides, Dilations [2]int64
}

func (o *Conv2DNchwFchwOp) Operands() []*Value { return []*Value{o.Input, o.Filter} }

type Conv2DNhwcHwcfOp struct {
	OpBase
	Input, Filter      *Value
	Strides, Dilations [2]int64
}

func (o *Conv2DNhwcHwcfOp) Operands() []*Value { return []*Value{o.Input, o.Filter} }

type CopyOp struct {
	OpBase
	Source, Dest *Value // memref to memref
}

func (o *CopyOp) Operands() []*Value { return []*Value{o.Source, o.Dest} }

type IteratorType int

const (
	IterParallel IteratorType = iota
	IterReduction
	IterWindow
)

// GenericOperand is one input/output operand of linalg.generic together
// with its indexing map.
type GenericOperand struct {
	Value       *Value
	IndexingMap *AffineMap
}

// GenericOp is the central algorithm of spec.md §4.5.
type GenericOp struct {
	OpBase
	Inputs, Outputs []GenericOperand
	IteratorTypes   []IteratorType
	Body            *Region // block args: one scalar per operand; terminator: Yield
	// EncodeMemWriteOps gates whether the encoder is permitted to commit
	// writes to memref outputs (spec.md §4.5 "Buffer semantics").
	EncodeMemWriteOps bool
}

func (o *GenericOp) Operands() []*Value {
	var vs []*Value
	for _, in := range o.Inputs {
		vs = append(vs, in.Value)
	}
	for _, out := range o.Outputs {
		vs = append(vs, out.Value)
	}
	return vs
}

// --- memref -------------------------------------------------------------

type AllocOp struct {
	OpBase
	Dims []OrValue
}

func (o *AllocOp) Operands() []*Value {
	var vs []*Value
	for _, d := range o.Dims {
		if !d.IsStatic() {
			vs = append(vs, d.Value)
		}
	}
	return vs
}

type LoadOp struct {
	OpBase
	Source  *Value
	Indices []*Value
}

func (o *LoadOp) Operands() []*Value { return append([]*Value{o.Source}, o.Indices...) }

type StoreOp struct {
	OpBase
	Value_  *Value
	Dest    *Value
	Indices []*Value
}

func (o *StoreOp) Operands() []*Value { return append([]*Value{o.Value_, o.Dest}, o.Indices...) }

type SubviewOp struct {
	OpBase
	Source                  *Value
	Offsets, Sizes, Strides []OrValue
	RankReducedDims         []int
}

func (o *SubviewOp) Operands() []*Value { return []*Value{o.Source} }

type BufferCastOp struct {
	OpBase
	Source *Value // tensor
}

func (o *BufferCastOp) Operands() []*Value { return []*Value{o.Source} }

type CloneOp struct {
	OpBase
	Source *Value // memref
}

func (o *CloneOp) Operands() []*Value { return []*Value{o.Source} }

// TensorLoadOp is MLIR's `memref.tensor_load` / `bufferization.to_tensor`.
type TensorLoadOp struct {
	OpBase
	Source *Value // memref
}

func (o *TensorLoadOp) Operands() []*Value { return []*Value{o.Source} }

type TensorStoreOp struct {
	OpBase
	Source *Value // tensor
	Dest   *Value // memref
}

func (o *TensorStoreOp) Operands() []*Value { return []*Value{o.Source, o.Dest} }

// --- tosa -----------------------------------------------------------------

type TosaAbsOp struct {
	OpBase
	X *Value
}

func (o *TosaAbsOp) Operands() []*Value { return []*Value{o.X} }

type TosaAddOp struct {
	OpBase
	X, Y *Value
}

func (o *TosaAddOp) Operands() []*Value { return []*Value{o.X, o.Y} }

type TosaSubOp struct {
	OpBase
	X, Y *Value
}

func (o *TosaSubOp) Operands() []*Value { return []*Value{o.X, o.Y} }

// TosaMulOp's Shift must be zero (spec.md §4.3 "tosa ... shift≠0 unsupported").
type TosaMulOp struct {
	OpBase
	X, Y  *Value
	Shift int64
}

func (o *TosaMulOp) Operands() []*Value { return []*Value{o.X, o.Y} }

// TosaNegateOp: quantized negate is unsupported (no quantization info modeled).
type TosaNegateOp struct {
	OpBase
	X *Value
}

func (o *TosaNegateOp) Operands() []*Value { return []*Value{o.X} }

type TosaReshapeOp struct {
	OpBase
	X     *Value
	Shape []int64
}

func (o *TosaReshapeOp) Operands() []*Value { return []*Value{o.X} }

type BitwiseKind int

const (
	BitwiseAnd BitwiseKind = iota
	BitwiseOr
	BitwiseXor
	BitwiseNot
)

type TosaBitwiseOp struct {
	OpBase
	Kind BitwiseKind
	X, Y *Value // Y is nil for BitwiseNot
}

func (o *TosaBitwiseOp) Operands() []*Value {
	if o.Y == nil {
		return []*Value{o.X}
	}
	return []*Value{o.X, o.Y}
}

// --- affine -----------------------------------------------------------------

type AffineApplyOp struct {
	OpBase
	Map        *AffineMap
	DimOperands, SymbolOperands []*Value
}

func (o *AffineApplyOp) Operands() []*Value {
	return append(append([]*Value{}, o.DimOperands...), o.SymbolOperands...)
}

// --- select -----------------------------------------------------------------

type SelectOp struct {
	OpBase
	Cond, TrueVal, FalseVal *Value
}

func (o *SelectOp) Operands() []*Value { return []*Value{o.Cond, o.TrueVal, o.FalseVal} }

// --- terminators --------------------------------------------------------

type ReturnOp struct {
	OpBase
	Values []*Value
}

func (o *ReturnOp) Operands() []*Value { return o.Values }

// YieldOp terminates a region body (linalg.generic / pad / generate).
type YieldOp struct {
	OpBase
	Values []*Value
}

func (o *YieldOp) Operands() []*Value { return o.Values }
