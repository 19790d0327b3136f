package tv

import (
	"testing"

	"github.com/MerHS/mlir-tv/ir"
)

func memrefResult(name string, elem ir.Type, dims []int64) *ir.Value {
	return &ir.Value{Name: name, Type: ir.MemRefType{Elem: elem, Dims: dims}}
}

func TestEncodeAllocOp_FreshWritableBlock(t *testing.T) {
	state := NewState(NewMemory())
	res := memrefResult("m", ir.IntegerType{Width: 32}, []int64{4})
	op := &ir.AllocOp{
		OpBase: ir.OpBase{Res: []*ir.Value{res}},
		Dims:   []ir.OrValue{ir.StaticAttr(4)},
	}

	if err := encodeAllocOp(state, op); err != nil {
		t.Fatal(err)
	}
	bound := state.Regs.get(res)
	mv, ok := bound.(*MemRefValue)
	if !ok {
		t.Fatalf("bound result = %T, want *MemRefValue", bound)
	}
	if !IsConstantTrue(state.Mem.isWritable(mv.Bid)) {
		t.Fatal("expected a freshly allocated block to be writable")
	}
	if mv.Rank() != 1 {
		t.Fatalf("Rank() = %d, want 1", mv.Rank())
	}
}

func TestEncodeStoreThenLoad_RoundTrips(t *testing.T) {
	state := NewState(NewMemory())
	res := memrefResult("m", ir.IntegerType{Width: 32}, []int64{4})
	allocOp := &ir.AllocOp{OpBase: ir.OpBase{Res: []*ir.Value{res}}, Dims: []ir.OrValue{ir.StaticAttr(4)}}
	if err := encodeAllocOp(state, allocOp); err != nil {
		t.Fatal(err)
	}

	idx := &ir.Value{Name: "i", Type: ir.IndexType{}}
	state.Regs.add(idx, NewIndexValue(NewIndexConst(1)))
	val := &ir.Value{Name: "v", Type: ir.IntegerType{Width: 32}}
	state.Regs.add(val, NewIntValue(NewConstantExpr(9, 32)))

	storeOp := &ir.StoreOp{Value_: val, Dest: res, Indices: []*ir.Value{idx}}
	if err := encodeStoreOp(state, storeOp); err != nil {
		t.Fatal(err)
	}
	if !IsConstantTrue(state.WellDefinedPred()) {
		t.Fatal("expected an in-bounds store into a writable block to be well-defined")
	}

	loadRes := &ir.Value{Name: "r", Type: ir.IntegerType{Width: 32}}
	loadOp := &ir.LoadOp{OpBase: ir.OpBase{Res: []*ir.Value{loadRes}}, Source: res, Indices: []*ir.Value{idx}}
	if err := encodeLoadOp(state, loadOp); err != nil {
		t.Fatal(err)
	}
	loaded, ok := state.Regs.get(loadRes).(*IntValue)
	if !ok {
		t.Fatalf("load result = %T, want *IntValue", state.Regs.get(loadRes))
	}
	if _, ok := loaded.E.(*ArraySelectExpr); !ok {
		t.Fatalf("expected the load to read back through an ArraySelectExpr, got %T", loaded.E)
	}
}

func TestEncodeStoreOp_NonWritableBlockIsUB(t *testing.T) {
	state := NewState(NewMemory())
	res := memrefResult("m", ir.IntegerType{Width: 32}, []int64{4})
	allocOp := &ir.AllocOp{OpBase: ir.OpBase{Res: []*ir.Value{res}}, Dims: []ir.OrValue{ir.StaticAttr(4)}}
	if err := encodeAllocOp(state, allocOp); err != nil {
		t.Fatal(err)
	}
	mv := state.Regs.get(res).(*MemRefValue)
	state.Mem.setWritable(mv.Bid, false)

	idx := &ir.Value{Name: "i", Type: ir.IndexType{}}
	state.Regs.add(idx, NewIndexValue(NewIndexConst(0)))
	val := &ir.Value{Name: "v", Type: ir.IntegerType{Width: 32}}
	state.Regs.add(val, NewIntValue(NewConstantExpr(1, 32)))

	storeOp := &ir.StoreOp{Value_: val, Dest: res, Indices: []*ir.Value{idx}}
	if err := encodeStoreOp(state, storeOp); err != nil {
		t.Fatal(err)
	}
	if IsConstantTrue(state.WellDefinedPred()) {
		t.Fatal("expected storing into a non-writable block to add a non-trivial UB obligation")
	}
}

func TestEncodeSubviewOp_NonUnitStrideIsUnsupported(t *testing.T) {
	state := NewState(NewMemory())
	src := memrefResult("m", ir.IntegerType{Width: 32}, []int64{4})
	allocOp := &ir.AllocOp{OpBase: ir.OpBase{Res: []*ir.Value{src}}, Dims: []ir.OrValue{ir.StaticAttr(4)}}
	if err := encodeAllocOp(state, allocOp); err != nil {
		t.Fatal(err)
	}

	res := memrefResult("s", ir.IntegerType{Width: 32}, []int64{2})
	op := &ir.SubviewOp{
		OpBase:  ir.OpBase{Res: []*ir.Value{res}},
		Source:  src,
		Offsets: []ir.OrValue{ir.StaticAttr(0)},
		Sizes:   []ir.OrValue{ir.StaticAttr(2)},
		Strides: []ir.OrValue{ir.StaticAttr(2)},
	}

	if err := encodeSubviewOp(state, op); err == nil {
		t.Fatal("expected a non-unit stride subview to fail typed")
	}
}

func TestEncodeSubviewOp_UnitStrideNarrowsDims(t *testing.T) {
	state := NewState(NewMemory())
	src := memrefResult("m", ir.IntegerType{Width: 32}, []int64{4})
	allocOp := &ir.AllocOp{OpBase: ir.OpBase{Res: []*ir.Value{src}}, Dims: []ir.OrValue{ir.StaticAttr(4)}}
	if err := encodeAllocOp(state, allocOp); err != nil {
		t.Fatal(err)
	}

	res := memrefResult("s", ir.IntegerType{Width: 32}, []int64{2})
	op := &ir.SubviewOp{
		OpBase:  ir.OpBase{Res: []*ir.Value{res}},
		Source:  src,
		Offsets: []ir.OrValue{ir.StaticAttr(1)},
		Sizes:   []ir.OrValue{ir.StaticAttr(2)},
		Strides: []ir.OrValue{ir.StaticAttr(1)},
	}

	if err := encodeSubviewOp(state, op); err != nil {
		t.Fatal(err)
	}
	mv, ok := state.Regs.get(res).(*MemRefValue)
	if !ok {
		t.Fatalf("bound result = %T, want *MemRefValue", state.Regs.get(res))
	}
	if CompareExpr(mv.Dims[0], NewIndexConst(2)) != 0 {
		t.Fatalf("subview dim = %v, want 2", mv.Dims[0])
	}
}
