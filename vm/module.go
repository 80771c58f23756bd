package vm

import (
	"github.com/arwen-wasm/arwen/wasm"
)

// Module is the immutable decoded-and-validated program: everything past
// this point (Instance, Function, Store) is a runtime projection of it.
// A Module may back many Instances.
type Module struct {
	raw *wasm.Module

	// funcs are the lazily-populated per-function tier caches (spec §3
	// "PIR/RIR/JIT caches populated lazily on first call"). Indexed by the
	// flat function index (imports first, same convention as wasm.Module).
	funcs []*Function
}

// newModule wraps a decoded module and pre-allocates (but does not populate)
// every function's tier-cache slot.
func newModule(raw *wasm.Module) *Module {
	n := raw.NumImportedFuncs() + len(raw.Code)
	m := &Module{raw: raw, funcs: make([]*Function, n)}
	for i := range m.funcs {
		m.funcs[i] = &Function{module: m, idx: uint32(i)}
	}
	return m
}

// Raw exposes the decoded wasm.Module for inspection (InspectImports, export
// lookup) without copying it.
func (m *Module) Raw() *wasm.Module { return m.raw }

// FuncArity implements rir.SigResolver.
func (m *Module) FuncArity(funcIdx uint32) (nParams, nResults int) {
	ft := m.raw.GetFuncType(funcIdx)
	if ft == nil {
		return 0, 0
	}
	return len(ft.Params), len(ft.Results)
}

// TypeArity implements rir.SigResolver.
func (m *Module) TypeArity(typeIdx uint32) (nParams, nResults int) {
	ft := m.typeByIdx(typeIdx)
	if ft == nil {
		return 0, 0
	}
	return len(ft.Params), len(ft.Results)
}

func (m *Module) typeByIdx(typeIdx uint32) *wasm.FuncType {
	if int(typeIdx) >= len(m.raw.Types) {
		return nil
	}
	return &m.raw.Types[typeIdx]
}

// function returns the cache slot for funcIdx, or nil if out of range.
func (m *Module) function(funcIdx uint32) *Function {
	if int(funcIdx) >= len(m.funcs) {
		return nil
	}
	return m.funcs[funcIdx]
}

// exportedFunc resolves an export name to a function index, or ok=false.
func (m *Module) exportedFunc(name string) (uint32, bool) {
	for _, e := range m.raw.Exports {
		if e.Kind == wasm.KindFunc && e.Name == name {
			return e.Idx, true
		}
	}
	return 0, false
}

func (m *Module) exportedMemory(name string) (uint32, bool) {
	for _, e := range m.raw.Exports {
		if e.Kind == wasm.KindMemory && e.Name == name {
			return e.Idx, true
		}
	}
	return 0, false
}
