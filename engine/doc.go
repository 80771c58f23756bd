// Package engine holds the package-level no-op zap logger that package vm
// falls back to when no logger is supplied.
//
// The package used to wrap tetratelabs/wazero to run WebAssembly Component Model
// binaries (canonical ABI lifting/lowering, asyncify, WASI preview1 adaptation).
// That wrapper, and the component-model machinery it served, has been removed:
// this spec builds the tiered decode/PIR/RIR/JIT execution engine directly (see
// package vm), so delegating execution to an external engine would defeat the
// point. See DESIGN.md for the deletion rationale.
package engine
