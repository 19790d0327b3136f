package tv

import "testing"

func TestMemory_AddLocalBlock_LoadStore(t *testing.T) {
	m := NewMemory()
	size := NewIndexConst(16)
	writable := NewBoolConstantExpr(true)
	id := m.addLocalBlockWithElem(size, writable, 32)

	if diff := CompareExpr(m.size(id), size); diff != 0 {
		t.Fatalf("size() = %v, want %v", m.size(id), size)
	}
	if !IsConstantTrue(m.isWritable(id)) {
		t.Fatal("expected freshly allocated block to be writable")
	}

	offset := NewIndexConst(2)
	val := NewConstantExpr(7, 32)
	m.store(id, offset, val)

	defs := m.PendingDefs()
	if len(defs) != 2 {
		t.Fatalf("PendingDefs() returned %d defs, want 2", len(defs))
	}
	if remaining := m.PendingDefs(); len(remaining) != 0 {
		t.Fatal("PendingDefs() must clear the queue after being read")
	}

	loaded := m.load(id, offset)
	if _, ok := loaded.(*ArraySelectExpr); !ok {
		t.Fatalf("load() = %T, want *ArraySelectExpr", loaded)
	}
}

func TestMemory_SetWritable_RevokeOnly(t *testing.T) {
	m := NewMemory()
	id := m.addLocalBlock(NewIndexConst(4), NewBoolConstantExpr(true))

	m.setWritable(id, false)
	if IsConstantTrue(m.isWritable(id)) {
		t.Fatal("expected writable flag to be cleared")
	}

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic re-granting writability")
		}
	}()
	m.setWritable(id, true)
}

func TestMemory_Snapshot_IsolatesLaterStores(t *testing.T) {
	m := NewMemory()
	id := m.addLocalBlockWithElem(NewIndexConst(4), NewBoolConstantExpr(true), 32)
	before := m.Snapshot()

	m.store(id, NewIndexConst(0), NewConstantExpr(9, 32))
	m.PendingDefs()

	if diff := CompareExpr(before.array(id), before.array(id)); diff != 0 {
		t.Fatal("snapshot array must compare equal to itself")
	}
	if CompareExpr(before.array(id), m.array(id)) == 0 {
		t.Fatal("expected the live Memory's array term to change after a store, leaving the snapshot's untouched")
	}
}

func TestMemory_Noalias(t *testing.T) {
	m := NewMemory()
	id1 := m.addLocalBlock(NewIndexConst(4), NewBoolConstantExpr(true))
	id2 := m.addLocalBlock(NewIndexConst(4), NewBoolConstantExpr(true))

	if !IsConstantTrue(m.noalias(id1, id2)) {
		t.Fatal("expected distinct blocks to be noalias")
	}
	if got := m.noalias(id1, id1); IsConstantTrue(got) {
		t.Fatal("expected a block to alias itself")
	}
}

func TestMemory_FreshArrayID_Monotone(t *testing.T) {
	m := NewMemory()
	a := m.freshArrayID()
	b := m.freshArrayID()
	if b <= a {
		t.Fatalf("expected freshArrayID to be monotone increasing, got %d then %d", a, b)
	}
}
