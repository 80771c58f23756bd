// Package arwen is a standalone WebAssembly runtime: a binary decoder and
// validator, a tiered execution engine (a predecoded stack interpreter, a
// register-allocated interpreter, and a native JIT backend for arm64 and
// amd64), and the embedding surface tying them together.
//
// # Architecture
//
//	wasm/        binary decode, encode, and per-instruction validation
//	pir/         predecoded stack-machine IR, the engine's first execution tier
//	rir/         register IR built from pir by simulating its operand stack with virtual registers
//	regalloc/    the register allocator and per-arch physical register maps
//	jit/         native code generation from rir (amd64 via golang-asm, arm64
//	             hand-encoded), and the W^X executable-memory allocator
//	tier/        the call/back-edge promotion policy driving pir -> rir -> jit
//	interp/      the pir and rir interpreters, sharing one Host contract and
//	             fuel-metering type
//	memmodel/    guarded linear memory and table storage
//	fault/       guard-page fault routing (hardware fault -> OutOfBoundsMemoryAccess)
//	vm/          the Engine/Module/Instance/Store runtime, tying every tier
//	             together behind one Call path
//	runtime/     a friendlier embedding façade over vm
//	errors/      structured, phase-and-kind-tagged errors shared by every package
//	wasi/        WASI-shaped host function sets (wasi:clocks today)
//	cmd/run/     a CLI and bubbletea TUI front end
//
// # Quick start
//
//	rt := runtime.New(nil)
//	mod, err := rt.LoadModule(wasmBytes)
//	inst, err := mod.Instantiate()
//	defer inst.Close()
//	result, err := inst.Call("add", 2, 3)
//
// # Tiered execution
//
// A function's first call runs on the pir interpreter; later calls build and
// run its rir form on the register interpreter. Once its call count or loop
// back-edge count crosses a configurable threshold (vm.WithTierThresholds),
// the tier controller compiles that rir form to native code if every
// instruction in it is within the JIT backend's scope; a function whose rir or native path
// hits something outside that scope falls back permanently to pir rather
// than retrying. A trap anywhere unwinds cleanly back to Instance.Call
// without corrupting the instance's memories, tables, or globals — a fresh
// invocation afterward behaves exactly as if the trap had not occurred.
package arwen
