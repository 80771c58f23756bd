package vm

import (
	"github.com/arwen-wasm/arwen/memmodel"
	"github.com/arwen-wasm/arwen/resource"
)

// Addr is an opaque Store-relative reference, never an owning pointer — the
// data-model re-architecture note (spec §9) that cross-module copies and
// import aliasing are expressed as index edges in an arena, not shared
// pointers.
type Addr = resource.Handle

const (
	resTypeMemory uint32 = iota + 1
	resTypeTable
)

// Store is the arena every Instance's memories and tables are allocated
// from. Funcs and Globals are not handle-indirected here: this spec's
// embedding API (§6) never hands the embedder a first-class function or
// global handle (only export names and memory_read/memory_write), so a
// plain module-local-index array already satisfies "every runtime reference
// resolves through the Store" for them without the generic handle table's
// bookkeeping overhead. Memories and tables get the full resource.UnifiedTable
// treatment because imports can alias one instance's memory/table into
// another's Store.
type Store struct {
	memories *resource.UnifiedTable
	tables   *resource.UnifiedTable
}

// NewStore allocates an empty arena.
func NewStore() *Store {
	return &Store{
		memories: resource.NewTable(),
		tables:   resource.NewTable(),
	}
}

// AddMemory inserts m and returns its Store address.
func (s *Store) AddMemory(m *memmodel.Memory) Addr {
	return s.memories.Insert(resTypeMemory, m)
}

// Memory resolves addr to its backing Memory, or nil if addr is stale/invalid.
func (s *Store) Memory(addr Addr) *memmodel.Memory {
	v, ok := s.memories.GetTyped(addr, resTypeMemory)
	if !ok {
		return nil
	}
	return v.(*memmodel.Memory)
}

// AddTable inserts t and returns its Store address.
func (s *Store) AddTable(t *memmodel.Table) Addr {
	return s.tables.Insert(resTypeTable, t)
}

// Table resolves addr to its backing Table, or nil if addr is stale/invalid.
func (s *Store) Table(addr Addr) *memmodel.Table {
	v, ok := s.tables.GetTyped(addr, resTypeTable)
	if !ok {
		return nil
	}
	return v.(*memmodel.Table)
}

// Close releases every memory's guard-page mapping and empties the arena.
// Called from Instance.Close (spec §3 "Teardown
// releases all Store arenas and unmaps guard pages").
func (s *Store) Close() error {
	var firstErr error
	s.memories.Clear() // Memory implements Dropper; Clear calls Drop on each
	if err := s.memories.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := s.tables.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
