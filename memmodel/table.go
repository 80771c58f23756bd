package memmodel

import "fmt"

// RefNull is the sentinel stored in a nullable table/global slot that holds
// no reference. Non-null references are represented by their Store address
// plus one (so zero is always "no reference") by the caller; the table
// itself just stores raw 64-bit slots.
const RefNull uint64 = 0

// Table is a vector of reference slots (funcref, externref, or a typed GC
// reference), nullable by element type, with an optional max.
type Table struct {
	elems   []uint64
	max     *uint32
	elemVal byte // wasm.ValType of the table's elements, for diagnostics only
}

// NewTable allocates a table with min initial elements, all null.
func NewTable(elemVal byte, min uint32, max *uint32) *Table {
	return &Table{elems: make([]uint64, min), max: max, elemVal: elemVal}
}

// Size returns the current number of elements.
func (t *Table) Size() uint32 { return uint32(len(t.elems)) }

// Get returns the slot at i.
func (t *Table) Get(i uint32) (uint64, error) {
	if i >= uint32(len(t.elems)) {
		return 0, fmt.Errorf("memmodel: table index %d out of bounds (size %d)", i, len(t.elems))
	}
	return t.elems[i], nil
}

// Set stores ref at i.
func (t *Table) Set(i uint32, ref uint64) error {
	if i >= uint32(len(t.elems)) {
		return fmt.Errorf("memmodel: table index %d out of bounds (size %d)", i, len(t.elems))
	}
	t.elems[i] = ref
	return nil
}

// Grow appends delta null elements, or fills them with init if given.
// Returns the previous size, or ^uint32(0) on failure.
func (t *Table) Grow(delta uint32, init uint64) uint32 {
	newSize := uint64(len(t.elems)) + uint64(delta)
	if t.max != nil && newSize > uint64(*t.max) {
		return ^uint32(0)
	}
	if newSize > 1<<32-1 {
		return ^uint32(0)
	}
	prev := uint32(len(t.elems))
	grown := make([]uint64, newSize)
	copy(grown, t.elems)
	for i := prev; i < uint32(newSize); i++ {
		grown[i] = init
	}
	t.elems = grown
	return prev
}

// Fill sets n elements starting at i to ref.
func (t *Table) Fill(i uint32, ref uint64, n uint32) error {
	if uint64(i)+uint64(n) > uint64(len(t.elems)) {
		return fmt.Errorf("memmodel: table fill out of bounds")
	}
	for k := uint32(0); k < n; k++ {
		t.elems[i+k] = ref
	}
	return nil
}

// Copy copies n elements from src to dst, possibly overlapping.
func (t *Table) Copy(dst, src *Table, dstIdx, srcIdx, n uint32) error {
	if uint64(dstIdx)+uint64(n) > uint64(len(dst.elems)) || uint64(srcIdx)+uint64(n) > uint64(len(src.elems)) {
		return fmt.Errorf("memmodel: table copy out of bounds")
	}
	copy(dst.elems[dstIdx:dstIdx+n], src.elems[srcIdx:srcIdx+n])
	return nil
}

// Init copies n elements from an element segment into the table.
func (t *Table) Init(dst uint32, seg []uint64, segOffset, n uint32) error {
	if uint64(segOffset)+uint64(n) > uint64(len(seg)) {
		return fmt.Errorf("memmodel: table.init source out of bounds")
	}
	return t.Fill2(dst, seg[segOffset:segOffset+n])
}

// Fill2 copies an explicit slice into the table starting at dst.
func (t *Table) Fill2(dst uint32, vals []uint64) error {
	if uint64(dst)+uint64(len(vals)) > uint64(len(t.elems)) {
		return fmt.Errorf("memmodel: table write out of bounds")
	}
	copy(t.elems[dst:], vals)
	return nil
}

// Global is a single mutable or immutable typed value slot.
type Global struct {
	Value   uint64
	ValType byte
	Mutable bool
}
