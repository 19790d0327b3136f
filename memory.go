package tv

import (
	"fmt"

	"github.com/benbjohnson/immutable"
)

// memBlock is one allocation unit inside a Memory: a symbolic size, a
// monotone writable flag, and the backing array-theory term (spec.md §3
// Memory: "block-addressed heap; each block has size, a writable flag that
// may only go from true to false, and content modeled as an SMT array").
type memBlock struct {
	size     Expr // IndexBits-wide
	writable Expr // width-1
	array    *ArrayVarExpr
}

// Memory is the block-addressed heap shared by source and target programs.
// It is immutable-functional the way the teacher's ExecutionState.heap is:
// every mutation returns (or, here, produces in place on a fresh Memory) a
// new SortedMap generation, so earlier snapshots stay valid for whichever
// branch of the verification condition still needs them.
type Memory struct {
	blocks      *immutable.SortedMap
	nextID      uint64
	arrayID     uint64
	pendingDefs []Expr
}

func NewMemory() *Memory {
	return &Memory{blocks: immutable.NewSortedMap(&blockIDComparer{})}
}

// addLocalBlock allocates a new block of the given symbolic size and
// writability and returns its block id.
func (m *Memory) addLocalBlock(size Expr, writable Expr) uint64 {
	id := m.nextID
	m.nextID++
	m.arrayID++
	array := NewArrayVarExpr(m.arrayID, fmt.Sprintf("blk!%d", id), IndexBits, WidthBool)
	m.blocks = m.blocks.Set(id, &memBlock{size: size, writable: writable, array: array})
	return id
}

// addLocalBlockWithElem is addLocalBlock specialized to a known element
// width, used by memref.alloc where the block backs a typed buffer rather
// than raw bytes.
func (m *Memory) addLocalBlockWithElem(size Expr, writable Expr, elemWidth uint) uint64 {
	id := m.nextID
	m.nextID++
	m.arrayID++
	array := NewArrayVarExpr(m.arrayID, fmt.Sprintf("blk!%d", id), IndexBits, elemWidth)
	m.blocks = m.blocks.Set(id, &memBlock{size: size, writable: writable, array: array})
	return id
}

// freshArrayID hands out a locally-unique array-theory term id from the
// same counter addLocalBlock uses, so a pure (non-memref) array-backed
// value declared against this Memory can never collide with a block's
// array — both live in one id space per spec.md §9's array-identity note.
func (m *Memory) freshArrayID() uint64 {
	m.arrayID++
	return m.arrayID
}

// Snapshot returns a frozen view of Memory's current block state. blocks is
// a persistent map: a later store against the live Memory replaces
// m.blocks with a new map value and never mutates the one a snapshot
// captured, so two snapshots taken before and after a store still see
// their own generation (spec.md §3: "every store produces a new symbolic
// array"). Callers that encode two programs against one shared Memory
// (package vc's translation-validation setup) snapshot after each encoding
// to compare each program's own final contents, not whatever the other
// program left behind.
func (m *Memory) Snapshot() *Memory {
	return &Memory{blocks: m.blocks, nextID: m.nextID, arrayID: m.arrayID}
}

func (m *Memory) block(id uint64) *memBlock {
	v, ok := m.blocks.Get(id)
	assert(ok, "memory: no such block: %d", id)
	return v.(*memBlock)
}

func (m *Memory) size(id uint64) Expr { return m.block(id).size }

func (m *Memory) array(id uint64) *ArrayVarExpr { return m.block(id).array }

func (m *Memory) isWritable(id uint64) Expr { return m.block(id).writable }

// setWritable clears a block's writable flag; spec.md §3 requires this only
// ever go true -> false, never the reverse.
func (m *Memory) setWritable(id uint64, writable bool) {
	b := m.block(id)
	assert(writable == false || IsConstantTrue(b.writable), "setWritable: writability may only be revoked, not granted")
	m.blocks = m.blocks.Set(id, &memBlock{size: b.size, writable: NewBoolConstantExpr(writable), array: b.array})
}

// load reads the element at (id, offset) from the block's array.
func (m *Memory) load(id uint64, offset Expr) Expr {
	return NewArraySelectExpr(m.array(id), offset)
}

// store writes value at (id, offset), producing a new array-theory term for
// the block (array-store returns a new symbolic array, per spec.md §3).
func (m *Memory) store(id uint64, offset Expr, value Expr) {
	b := m.block(id)
	m.arrayID++
	newArray := NewArrayVarExpr(m.arrayID, fmt.Sprintf("blk!%d!upd", id), b.array.DomainWidth, b.array.RangeWidth)
	// The driver asserts newArray == stored as a defining equation; Memory
	// itself only needs to track which array-var now names the block's
	// contents so later loads read the updated value.
	m.blocks = m.blocks.Set(id, &memBlock{size: b.size, writable: b.writable, array: newArray})
	m.pendingDefs = append(m.pendingDefs, NewBinaryExpr(EQ, NewArraySelectExpr(newArray, offset), value))
	m.pendingDefs = append(m.pendingDefs, NewForallExprExcept(newArray, b.array, offset))
}

// PendingDefs returns and clears the defining equations queued by store,
// which the driver folds into the well-definedness predicate the same way
// it folds any other UB or equality obligation.
func (m *Memory) PendingDefs() []Expr {
	defs := m.pendingDefs
	m.pendingDefs = nil
	return defs
}

// NewForallExprExcept builds `forall i. i != except -> newArr[i] == oldArr[i]`,
// the frame condition tying an updated array to its predecessor everywhere
// but the written offset.
func NewForallExprExcept(newArr, oldArr *ArrayVarExpr, except Expr) Expr {
	i := BoundVar{Name: fmt.Sprintf("fa!%p", newArr), Width: newArr.DomainWidth}
	iv := NewVarExpr(i.Name, i.Width)
	body := NewBinaryExpr(OR,
		NewBinaryExpr(EQ, iv, except),
		NewBinaryExpr(EQ, NewArraySelectExpr(newArr, iv), NewArraySelectExpr(oldArr, iv)))
	return NewForallExpr([]BoundVar{i}, body)
}

// noalias asserts two blocks never overlap: distinct ids are always
// disjoint under this heap model (spec.md §3: "noalias(b1, b2): distinct
// block ids never alias").
func (m *Memory) noalias(id1, id2 uint64) Expr {
	if id1 == id2 {
		return NewBoolConstantExpr(false)
	}
	return NewBoolConstantExpr(true)
}

type blockIDComparer struct{}

func (blockIDComparer) Compare(a, b interface{}) int {
	x, y := a.(uint64), b.(uint64)
	switch {
	case x < y:
		return -1
	case x > y:
		return 1
	default:
		return 0
	}
}
