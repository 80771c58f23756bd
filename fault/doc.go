// Package fault turns a hardware memory fault inside a guard-page region
// (see memmodel's GuardSize/GuardedRegion) into an OutOfBoundsMemoryAccess
// trap instead of a process crash.
//
// Scope note: a true PC-rewriting recovery from a SIGSEGV raised while the
// CPU is executing JIT-compiled machine code (the wasmtime/wazero approach)
// needs a custom sigaction installed ahead of the Go runtime's own handler,
// which in turn needs a non-Go (assembly or cgo) trampoline; nothing in
// this pack grounds that without cgo, and the teacher carries none. This
// package instead leans on runtime/debug.SetPanicOnFault, which converts a
// fault raised by Go code's own memory access (a bounds-checked Go slice
// read never the guard page, but a raw pointer dereference through
// GuardedBase/GuardedRegion would) into a recoverable panic satisfying
// interface{ Addr() uintptr }. The registry below is what Guarded consults
// to decide whether a recovered fault address belongs to a live guard
// region (and should become a trap) or a genuine bug (and should keep
// propagating as a panic). The JIT backend's current scope (jit/doc.go)
// never emits a direct memory dereference in the first place, so nothing
// in today's tree drives a real hardware fault through this path yet — it
// exists so memmodel's guard pages, and any future JIT memory-access
// lowering, have a router ready to route faults through.
package fault
