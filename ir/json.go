package ir

import (
	"encoding/json"
	"fmt"
)

// Function.UnmarshalJSON is the front end cmd/mlirtv drives (spec.md §6:
// "loads two JSON-encoded ir.Function values"). Parsing MLIR's textual form
// is out of scope; this wire format is a direct, line-for-line encoding of
// the ir package's own types, with one twist: every *Value the wire format
// mentions is given by name, and each name must resolve to the same *Value
// pointer everywhere it is used within the function, matching the def-before-
// use property real SSA already has. decodeCtx.resolve/define is the table
// that makes that identity hold across the whole decode.

type wireType struct {
	Kind      string    `json:"kind"`
	Width     uint      `json:"width,omitempty"`
	Precision string    `json:"precision,omitempty"`
	Elem      *wireType `json:"elem,omitempty"`
	Dims      []int64   `json:"dims,omitempty"`
	Layout    *AffineMap `json:"layout,omitempty"`
}

func decodeType(w *wireType) (Type, error) {
	if w == nil {
		return nil, fmt.Errorf("ir: missing type")
	}
	switch w.Kind {
	case "index":
		return IndexType{}, nil
	case "integer":
		return IntegerType{Width: w.Width}, nil
	case "float":
		p, err := decodePrecision(w.Precision)
		if err != nil {
			return nil, err
		}
		return FloatType{Precision: p}, nil
	case "tensor":
		elem, err := decodeType(w.Elem)
		if err != nil {
			return nil, err
		}
		return TensorType{Elem: elem, Dims: w.Dims}, nil
	case "memref":
		elem, err := decodeType(w.Elem)
		if err != nil {
			return nil, err
		}
		return MemRefType{Elem: elem, Dims: w.Dims, Layout: w.Layout}, nil
	default:
		return nil, fmt.Errorf("ir: unknown type kind %q", w.Kind)
	}
}

func decodePrecision(s string) (FloatPrecision, error) {
	switch s {
	case "f32", "":
		return F32, nil
	case "f64":
		return F64, nil
	default:
		return 0, fmt.Errorf("ir: unknown float precision %q", s)
	}
}

func decodePredicate(s string) (CmpFPredicate, error) {
	switch s {
	case "OLT", "":
		return CmpFOLT, nil
	default:
		return 0, fmt.Errorf("ir: unknown cmpf predicate %q", s)
	}
}

func decodeConstKind(s string) (ConstAttrKind, error) {
	switch s {
	case "int":
		return ConstInt, nil
	case "index":
		return ConstIndex, nil
	case "float":
		return ConstFloat, nil
	case "dense_splat":
		return ConstDenseSplat, nil
	case "dense_elements":
		return ConstDenseElements, nil
	case "sparse_elements":
		return ConstSparseElements, nil
	default:
		return 0, fmt.Errorf("ir: unknown constant kind %q", s)
	}
}

func decodeBitwiseKind(s string) (BitwiseKind, error) {
	switch s {
	case "and":
		return BitwiseAnd, nil
	case "or":
		return BitwiseOr, nil
	case "xor":
		return BitwiseXor, nil
	case "not":
		return BitwiseNot, nil
	default:
		return 0, fmt.Errorf("ir: unknown bitwise kind %q", s)
	}
}

func decodeIteratorType(s string) (IteratorType, error) {
	switch s {
	case "parallel":
		return IterParallel, nil
	case "reduction":
		return IterReduction, nil
	case "window":
		return IterWindow, nil
	default:
		return 0, fmt.Errorf("ir: unknown iterator type %q", s)
	}
}

// wireValue defines a new SSA value (used in a function/block argument list
// or an op's "results"): the only place a Name is bound rather than
// referenced.
type wireValue struct {
	Name string   `json:"name"`
	Type wireType `json:"type"`
}

// wireOrValue is the wire form of OrValue (spec.md §4.6 "mixed operands"):
// exactly one of Value or Static is set.
type wireOrValue struct {
	Value  string `json:"value,omitempty"`
	Static *int64 `json:"static,omitempty"`
}

func (c *decodeCtx) decodeOrValue(w wireOrValue) (OrValue, error) {
	if w.Static != nil {
		return StaticAttr(*w.Static), nil
	}
	v, err := c.resolve(w.Value)
	if err != nil {
		return OrValue{}, err
	}
	return DynamicAttr(v), nil
}

func (c *decodeCtx) decodeOrValues(ws []wireOrValue) ([]OrValue, error) {
	out := make([]OrValue, len(ws))
	for i, w := range ws {
		v, err := c.decodeOrValue(w)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

type wireGenericOperand struct {
	Value       string     `json:"value"`
	IndexingMap *AffineMap `json:"indexing_map"`
}

type wireRegion struct {
	Args []wireValue `json:"args"`
	Ops  []wireOp    `json:"ops"`
}

// wireOp is a single discriminated-union envelope covering every concrete
// ir.Op. Only the fields a given Kind actually uses are populated; the rest
// stay at their zero value and are ignored by decodeOp's switch.
type wireOp struct {
	Kind string `json:"kind"`

	Results []wireValue `json:"results,omitempty"`

	// scalar / generic binary and unary operand names
	X string `json:"x,omitempty"`
	Y string `json:"y,omitempty"`
	A string `json:"a,omitempty"`
	B string `json:"b,omitempty"`

	Source string `json:"source,omitempty"`
	Dest   string `json:"dest,omitempty"`
	Cond   string `json:"cond,omitempty"`

	TrueVal  string `json:"true_val,omitempty"`
	FalseVal string `json:"false_val,omitempty"`

	Scalar string `json:"scalar,omitempty"`
	Filter string `json:"filter,omitempty"`
	Input  string `json:"input,omitempty"`

	Value string `json:"value,omitempty"` // memref.store's stored value

	Indices        []string `json:"indices,omitempty"`
	Elements       []string `json:"elements,omitempty"`
	DynamicExtents []string `json:"dynamic_extents,omitempty"`
	Values         []string `json:"values,omitempty"` // return / yield
	DimOperands    []string `json:"dim_operands,omitempty"`
	SymbolOperands []string `json:"symbol_operands,omitempty"`

	Offsets []wireOrValue `json:"offsets,omitempty"`
	Sizes   []wireOrValue `json:"sizes,omitempty"`
	Strides []wireOrValue `json:"strides,omitempty"`

	LowPad  []wireOrValue `json:"low_pad,omitempty"`
	HighPad []wireOrValue `json:"high_pad,omitempty"`

	Dims []wireOrValue `json:"dims,omitempty"`

	RankReducedDims []int   `json:"rank_reduced_dims,omitempty"`
	Groups          [][]int `json:"groups,omitempty"`
	Shape           []int64 `json:"shape,omitempty"`
	Reps            []int64 `json:"reps,omitempty"`
	StaticDims      []int64 `json:"static_dims,omitempty"`
	Axis            int     `json:"axis,omitempty"`
	Index           int64   `json:"index,omitempty"`

	ConvStrides   [2]int64 `json:"conv_strides,omitempty"`
	ConvDilations [2]int64 `json:"conv_dilations,omitempty"`

	Pred string `json:"pred,omitempty"`
	To   string `json:"to,omitempty"`

	ConstKind     string    `json:"const_kind,omitempty"`
	IntValue      uint64    `json:"int_value,omitempty"`
	FloatValue    float64   `json:"float_value,omitempty"`
	DenseValues   []float64 `json:"dense_values,omitempty"`
	SparseIndices [][]int64 `json:"sparse_indices,omitempty"`
	SparseValues  []float64 `json:"sparse_values,omitempty"`
	SparseDefault float64   `json:"sparse_default,omitempty"`

	Map *AffineMap `json:"map,omitempty"`

	Inputs            []wireGenericOperand `json:"inputs,omitempty"`
	Outputs           []wireGenericOperand `json:"outputs,omitempty"`
	IteratorTypes     []string             `json:"iterator_types,omitempty"`
	Body              *wireRegion          `json:"body,omitempty"`
	EncodeMemWriteOps bool                 `json:"encode_mem_write_ops,omitempty"`

	BitwiseKind string `json:"bitwise_kind,omitempty"`
	Shift       int64  `json:"shift,omitempty"`
}

// decodeCtx resolves an SSA value's wire name to the single *Value pointer
// that must represent it everywhere in the function, and rejects a name used
// twice as a definition (spec.md §3: SSA values are write-once).
type decodeCtx struct {
	values map[string]*Value
}

func newDecodeCtx() *decodeCtx { return &decodeCtx{values: map[string]*Value{}} }

func (c *decodeCtx) define(w wireValue) (*Value, error) {
	if _, exists := c.values[w.Name]; exists {
		return nil, fmt.Errorf("ir: value %q defined more than once", w.Name)
	}
	t, err := decodeType(&w.Type)
	if err != nil {
		return nil, fmt.Errorf("ir: value %q: %w", w.Name, err)
	}
	v := &Value{Name: w.Name, Type: t}
	c.values[w.Name] = v
	return v, nil
}

func (c *decodeCtx) defineAll(ws []wireValue) ([]*Value, error) {
	out := make([]*Value, len(ws))
	for i, w := range ws {
		v, err := c.define(w)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (c *decodeCtx) resolve(name string) (*Value, error) {
	v, ok := c.values[name]
	if !ok {
		return nil, fmt.Errorf("ir: reference to undefined value %q", name)
	}
	return v, nil
}

func (c *decodeCtx) resolveAll(names []string) ([]*Value, error) {
	out := make([]*Value, len(names))
	for i, n := range names {
		v, err := c.resolve(n)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (c *decodeCtx) decodeGenericOperands(ws []wireGenericOperand) ([]GenericOperand, error) {
	out := make([]GenericOperand, len(ws))
	for i, w := range ws {
		v, err := c.resolve(w.Value)
		if err != nil {
			return nil, err
		}
		out[i] = GenericOperand{Value: v, IndexingMap: w.IndexingMap}
	}
	return out, nil
}

func (c *decodeCtx) decodeRegion(w *wireRegion) (*Region, error) {
	if w == nil {
		return nil, nil
	}
	args, err := c.defineAll(w.Args)
	if err != nil {
		return nil, err
	}
	ops := make([]Op, len(w.Ops))
	for i, wo := range w.Ops {
		op, err := c.decodeOp(&wo)
		if err != nil {
			return nil, fmt.Errorf("ir: region op %d: %w", i, err)
		}
		ops[i] = op
	}
	return &Region{Block: &Block{Args: args, Ops: ops}}, nil
}

// decodeOp builds the concrete op struct named by w.Kind, resolving every
// operand-name field through c and defining every result. This is the
// decode-side mirror of driver.go's encodeOp type switch: one case per
// concrete ir.Op.
func (c *decodeCtx) decodeOp(w *wireOp) (Op, error) {
	res, err := c.defineAll(w.Results)
	if err != nil {
		return nil, err
	}
	base := OpBase{Res: res}

	switch w.Kind {
	case "AddFOp":
		x, y, err := c.xy(w)
		return &AddFOp{OpBase: base, X: x, Y: y}, err
	case "SubFOp":
		x, y, err := c.xy(w)
		return &SubFOp{OpBase: base, X: x, Y: y}, err
	case "MulFOp":
		x, y, err := c.xy(w)
		return &MulFOp{OpBase: base, X: x, Y: y}, err
	case "NegFOp":
		x, err := c.resolve(w.X)
		return &NegFOp{OpBase: base, X: x}, err
	case "CmpFOp":
		x, y, err := c.xy(w)
		if err != nil {
			return nil, err
		}
		pred, err := decodePredicate(w.Pred)
		return &CmpFOp{OpBase: base, Pred: pred, X: x, Y: y}, err
	case "ExtFOp":
		x, err := c.resolve(w.X)
		if err != nil {
			return nil, err
		}
		to, err := decodePrecision(w.To)
		return &ExtFOp{OpBase: base, X: x, To: to}, err
	case "TruncFOp":
		x, err := c.resolve(w.X)
		if err != nil {
			return nil, err
		}
		to, err := decodePrecision(w.To)
		return &TruncFOp{OpBase: base, X: x, To: to}, err
	case "AddIOp":
		x, y, err := c.xy(w)
		return &AddIOp{OpBase: base, X: x, Y: y}, err
	case "SubIOp":
		x, y, err := c.xy(w)
		return &SubIOp{OpBase: base, X: x, Y: y}, err
	case "MulIOp":
		x, y, err := c.xy(w)
		return &MulIOp{OpBase: base, X: x, Y: y}, err

	case "ConstantOp":
		kind, err := decodeConstKind(w.ConstKind)
		if err != nil {
			return nil, err
		}
		return &ConstantOp{
			OpBase: base, Kind: kind,
			IntValue: w.IntValue, FloatValue: w.FloatValue,
			DenseValues:   w.DenseValues,
			SparseIndices: w.SparseIndices, SparseValues: w.SparseValues, SparseDefault: w.SparseDefault,
		}, nil

	case "DimOp":
		src, err := c.resolve(w.Source)
		return &DimOp{OpBase: base, Source: src, Index: w.Index}, err
	case "CollapseShapeOp":
		src, err := c.resolve(w.Source)
		return &CollapseShapeOp{OpBase: base, Source: src, Groups: w.Groups}, err
	case "ExpandShapeOp":
		src, err := c.resolve(w.Source)
		return &ExpandShapeOp{OpBase: base, Source: src, Groups: w.Groups}, err
	case "CastOp":
		src, err := c.resolve(w.Source)
		return &CastOp{OpBase: base, Source: src}, err
	case "ReshapeOp":
		src, err := c.resolve(w.Source)
		return &ReshapeOp{OpBase: base, Source: src, Shape: w.Shape}, err
	case "ExtractSliceOp":
		src, err := c.resolve(w.Source)
		if err != nil {
			return nil, err
		}
		offsets, sizes, strides, err := c.oss(w)
		if err != nil {
			return nil, err
		}
		return &ExtractSliceOp{OpBase: base, Source: src, Offsets: offsets, Sizes: sizes, Strides: strides, RankReducedDims: w.RankReducedDims}, nil
	case "InsertSliceOp":
		src, err := c.resolve(w.Source)
		if err != nil {
			return nil, err
		}
		dst, err := c.resolve(w.Dest)
		if err != nil {
			return nil, err
		}
		offsets, sizes, strides, err := c.oss(w)
		if err != nil {
			return nil, err
		}
		return &InsertSliceOp{OpBase: base, Source: src, Dest: dst, Offsets: offsets, Sizes: sizes, Strides: strides}, nil
	case "PadOp":
		src, err := c.resolve(w.Source)
		if err != nil {
			return nil, err
		}
		low, err := c.decodeOrValues(w.LowPad)
		if err != nil {
			return nil, err
		}
		high, err := c.decodeOrValues(w.HighPad)
		if err != nil {
			return nil, err
		}
		body, err := c.decodeRegion(w.Body)
		return &PadOp{OpBase: base, Source: src, LowPad: low, HighPad: high, Body: body}, err
	case "TileOp":
		src, err := c.resolve(w.Source)
		return &TileOp{OpBase: base, Source: src, Reps: w.Reps}, err
	case "ReverseOp":
		src, err := c.resolve(w.Source)
		return &ReverseOp{OpBase: base, Source: src, Axis: w.Axis}, err
	case "ConcatOp":
		a, err := c.resolve(w.A)
		if err != nil {
			return nil, err
		}
		b, err := c.resolve(w.B)
		return &ConcatOp{OpBase: base, A: a, B: b, Axis: w.Axis}, err
	case "FromElementsOp":
		els, err := c.resolveAll(w.Elements)
		return &FromElementsOp{OpBase: base, Elements: els}, err
	case "GenerateOp":
		extents, err := c.resolveAll(w.DynamicExtents)
		if err != nil {
			return nil, err
		}
		body, err := c.decodeRegion(w.Body)
		return &GenerateOp{OpBase: base, DynamicExtents: extents, StaticDims: w.StaticDims, Body: body}, err

	case "InitTensorOp":
		dims, err := c.decodeOrValues(w.Dims)
		return &InitTensorOp{OpBase: base, Dims: dims}, err
	case "FillOp":
		scalar, err := c.resolve(w.Scalar)
		if err != nil {
			return nil, err
		}
		dst, err := c.resolve(w.Dest)
		return &FillOp{OpBase: base, Scalar: scalar, Dest: dst}, err
	case "MatmulOp":
		a, b, err := c.ab(w)
		return &MatmulOp{OpBase: base, A: a, B: b}, err
	case "DotOp":
		a, b, err := c.ab(w)
		return &DotOp{OpBase: base, A: a, B: b}, err
	case "Conv2DNchwFchwOp":
		in, filt, err := c.inputFilter(w)
		return &Conv2DNchwFchwOp{OpBase: base, Input: in, Filter: filt, Strides: w.ConvStrides, Dilations: w.ConvDilations}, err
	case "Conv2DNhwcHwcfOp":
		in, filt, err := c.inputFilter(w)
		return &Conv2DNhwcHwcfOp{OpBase: base, Input: in, Filter: filt, Strides: w.ConvStrides, Dilations: w.ConvDilations}, err
	case "CopyOp":
		src, err := c.resolve(w.Source)
		if err != nil {
			return nil, err
		}
		dst, err := c.resolve(w.Dest)
		return &CopyOp{OpBase: base, Source: src, Dest: dst}, err
	case "GenericOp":
		inputs, err := c.decodeGenericOperands(w.Inputs)
		if err != nil {
			return nil, err
		}
		outputs, err := c.decodeGenericOperands(w.Outputs)
		if err != nil {
			return nil, err
		}
		iters := make([]IteratorType, len(w.IteratorTypes))
		for i, s := range w.IteratorTypes {
			it, err := decodeIteratorType(s)
			if err != nil {
				return nil, err
			}
			iters[i] = it
		}
		body, err := c.decodeRegion(w.Body)
		if err != nil {
			return nil, err
		}
		return &GenericOp{OpBase: base, Inputs: inputs, Outputs: outputs, IteratorTypes: iters, Body: body, EncodeMemWriteOps: w.EncodeMemWriteOps}, nil

	case "AllocOp":
		dims, err := c.decodeOrValues(w.Dims)
		return &AllocOp{OpBase: base, Dims: dims}, err
	case "LoadOp":
		src, err := c.resolve(w.Source)
		if err != nil {
			return nil, err
		}
		idx, err := c.resolveAll(w.Indices)
		return &LoadOp{OpBase: base, Source: src, Indices: idx}, err
	case "StoreOp":
		val, err := c.resolve(w.Value)
		if err != nil {
			return nil, err
		}
		dst, err := c.resolve(w.Dest)
		if err != nil {
			return nil, err
		}
		idx, err := c.resolveAll(w.Indices)
		return &StoreOp{OpBase: base, Value_: val, Dest: dst, Indices: idx}, err
	case "SubviewOp":
		src, err := c.resolve(w.Source)
		if err != nil {
			return nil, err
		}
		offsets, sizes, strides, err := c.oss(w)
		if err != nil {
			return nil, err
		}
		return &SubviewOp{OpBase: base, Source: src, Offsets: offsets, Sizes: sizes, Strides: strides, RankReducedDims: w.RankReducedDims}, nil
	case "BufferCastOp":
		src, err := c.resolve(w.Source)
		return &BufferCastOp{OpBase: base, Source: src}, err
	case "CloneOp":
		src, err := c.resolve(w.Source)
		return &CloneOp{OpBase: base, Source: src}, err
	case "TensorLoadOp":
		src, err := c.resolve(w.Source)
		return &TensorLoadOp{OpBase: base, Source: src}, err
	case "TensorStoreOp":
		src, err := c.resolve(w.Source)
		if err != nil {
			return nil, err
		}
		dst, err := c.resolve(w.Dest)
		return &TensorStoreOp{OpBase: base, Source: src, Dest: dst}, err

	case "TosaAbsOp":
		x, err := c.resolve(w.X)
		return &TosaAbsOp{OpBase: base, X: x}, err
	case "TosaAddOp":
		x, y, err := c.xy(w)
		return &TosaAddOp{OpBase: base, X: x, Y: y}, err
	case "TosaSubOp":
		x, y, err := c.xy(w)
		return &TosaSubOp{OpBase: base, X: x, Y: y}, err
	case "TosaMulOp":
		x, y, err := c.xy(w)
		return &TosaMulOp{OpBase: base, X: x, Y: y, Shift: w.Shift}, err
	case "TosaNegateOp":
		x, err := c.resolve(w.X)
		return &TosaNegateOp{OpBase: base, X: x}, err
	case "TosaReshapeOp":
		x, err := c.resolve(w.X)
		return &TosaReshapeOp{OpBase: base, X: x, Shape: w.Shape}, err
	case "TosaBitwiseOp":
		kind, err := decodeBitwiseKind(w.BitwiseKind)
		if err != nil {
			return nil, err
		}
		x, err := c.resolve(w.X)
		if err != nil {
			return nil, err
		}
		var y *Value
		if kind != BitwiseNot {
			if y, err = c.resolve(w.Y); err != nil {
				return nil, err
			}
		}
		return &TosaBitwiseOp{OpBase: base, Kind: kind, X: x, Y: y}, nil

	case "AffineApplyOp":
		dimOps, err := c.resolveAll(w.DimOperands)
		if err != nil {
			return nil, err
		}
		symOps, err := c.resolveAll(w.SymbolOperands)
		return &AffineApplyOp{OpBase: base, Map: w.Map, DimOperands: dimOps, SymbolOperands: symOps}, err

	case "SelectOp":
		cond, err := c.resolve(w.Cond)
		if err != nil {
			return nil, err
		}
		t, err := c.resolve(w.TrueVal)
		if err != nil {
			return nil, err
		}
		f, err := c.resolve(w.FalseVal)
		return &SelectOp{OpBase: base, Cond: cond, TrueVal: t, FalseVal: f}, err

	case "ReturnOp":
		vals, err := c.resolveAll(w.Values)
		return &ReturnOp{OpBase: base, Values: vals}, err
	case "YieldOp":
		vals, err := c.resolveAll(w.Values)
		return &YieldOp{OpBase: base, Values: vals}, err

	default:
		return nil, fmt.Errorf("ir: unknown op kind %q", w.Kind)
	}
}

func (c *decodeCtx) xy(w *wireOp) (*Value, *Value, error) {
	x, err := c.resolve(w.X)
	if err != nil {
		return nil, nil, err
	}
	y, err := c.resolve(w.Y)
	return x, y, err
}

func (c *decodeCtx) ab(w *wireOp) (*Value, *Value, error) {
	a, err := c.resolve(w.A)
	if err != nil {
		return nil, nil, err
	}
	b, err := c.resolve(w.B)
	return a, b, err
}

func (c *decodeCtx) inputFilter(w *wireOp) (*Value, *Value, error) {
	in, err := c.resolve(w.Input)
	if err != nil {
		return nil, nil, err
	}
	filt, err := c.resolve(w.Filter)
	return in, filt, err
}

func (c *decodeCtx) oss(w *wireOp) (offsets, sizes, strides []OrValue, err error) {
	if offsets, err = c.decodeOrValues(w.Offsets); err != nil {
		return
	}
	if sizes, err = c.decodeOrValues(w.Sizes); err != nil {
		return
	}
	strides, err = c.decodeOrValues(w.Strides)
	return
}

type wireBlock struct {
	Args []wireValue `json:"args"`
	Ops  []wireOp    `json:"ops"`
}

type wireFunction struct {
	Name    string      `json:"name"`
	Args    []wireValue `json:"args"`
	Results []wireType  `json:"results"`
	Blocks  []wireBlock `json:"blocks"`
}

// UnmarshalJSON decodes one function, resolving every operand reference to
// the single *Value pointer its defining occurrence produced. Blocks and,
// within a block, ops must appear in def-before-use order — the same
// constraint valid SSA already satisfies.
func (f *Function) UnmarshalJSON(data []byte) error {
	var w wireFunction
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	c := newDecodeCtx()
	args, err := c.defineAll(w.Args)
	if err != nil {
		return fmt.Errorf("ir: function %q: %w", w.Name, err)
	}

	results := make([]Type, len(w.Results))
	for i := range w.Results {
		t, err := decodeType(&w.Results[i])
		if err != nil {
			return fmt.Errorf("ir: function %q: result %d: %w", w.Name, i, err)
		}
		results[i] = t
	}

	blocks := make([]*Block, len(w.Blocks))
	for bi, wb := range w.Blocks {
		bargs, err := c.defineAll(wb.Args)
		if err != nil {
			return fmt.Errorf("ir: function %q: block %d: %w", w.Name, bi, err)
		}
		ops := make([]Op, len(wb.Ops))
		for oi := range wb.Ops {
			op, err := c.decodeOp(&wb.Ops[oi])
			if err != nil {
				return fmt.Errorf("ir: function %q: block %d: op %d: %w", w.Name, bi, oi, err)
			}
			ops[oi] = op
		}
		blocks[bi] = &Block{Args: bargs, Ops: ops}
	}

	f.Name = w.Name
	f.Args = args
	f.Results = results
	f.Blocks = blocks
	return nil
}
