// Package vm wires the decoder (wasm), predecoder (pir), register-IR builder
// (rir), register allocator (regalloc), interpreter (interp), memory
// subsystem (memmodel), JIT backend (jit) and tier controller (tier) into the
// six-operation embedding API: LoadModule, Instantiate, Invoke, MemoryRead,
// MemoryWrite, InspectImports.
//
// Module is the immutable decoded-and-validated program; Instance is its
// mutable runtime projection (memories, tables, globals, resolved imports);
// Store is the arena every Instance's memories and tables live in, addressed
// by opaque Addr values rather than owning pointers, so cross-module function
// copies and import aliasing never retain a stale pointer into another
// instance's state.
package vm
