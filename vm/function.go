package vm

import (
	"sync"

	"github.com/arwen-wasm/arwen/pir"
	"github.com/arwen-wasm/arwen/rir"
)

// TierState is a Function's position in the compile state machine (spec
// §4.8): Interpreter -> Compiling -> Native or InterpreterPinned (terminal,
// never retried). Native can fall back to Interpreter on deopt.
type TierState byte

const (
	TierInterpreter TierState = iota
	TierCompiling
	TierNative
	TierInterpreterPinned
)

// nativeEntry is the JIT's compiled form for one function. Kept as an
// interface boundary (rather than importing package jit directly) so vm
// never has a hard dependency cycle with jit; jit.Compiled implements it.
type nativeEntry interface {
	// Call invokes the compiled function with args already loaded into
	// argument registers per the ABI jit.Compile established, returning
	// result slots or an error (including the sentinel deopt request).
	Call(args []uint64) ([]uint64, error)
}

// Function is one module-local function's lazily-built tier caches and
// promotion counters. Created eagerly (empty) alongside its Module so
// indices are stable; populated the first time Invoke reaches it.
type Function struct {
	module *Module
	idx    uint32

	mu    sync.Mutex
	pir   *pir.Program
	rir   *rir.Program
	alloc any // *regalloc.Allocation once tier.Controller compiles it
	jit   nativeEntry

	callCount     uint64
	backedgeCount uint64
	state         TierState

	// callThreshold/backedgeThreshold override tier.Controller's thresholds
	// when nonzero; zero means "use the controller's configured default".
	// Nothing sets them (the branch-hint custom section is not read), so
	// every function uses the controller's thresholds.
	callThreshold     uint64
	backedgeThreshold uint64
}

// Index returns this function's flat module-local index.
func (f *Function) Index() uint32 { return f.idx }

// State returns the function's current tier, synchronized against
// concurrent compilation.
func (f *Function) State() TierState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// ensurePIR lazily predecodes this function's body, building it at most
// once even if called concurrently (the invariant that "at most one JIT
// compilation may be active at a time" extends naturally to predecode: two
// racing callers must not double-append to shared tier caches).
func (f *Function) ensurePIR() (*pir.Program, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pir != nil {
		return f.pir, nil
	}
	raw := f.module.raw
	numImported := raw.NumImportedFuncs()
	if int(f.idx) < numImported {
		return nil, nil // imported function: no body to predecode
	}
	body := raw.Code[int(f.idx)-numImported]
	ft := raw.GetFuncType(f.idx)
	p, err := pir.Predecode(*ft, body)
	if err != nil {
		return nil, err
	}
	f.pir = p
	return p, nil
}

// ensureRIR lazily builds register-IR from this function's PIR, caching a
// permanent build failure (exception-bearing functions, see rir/step.go) so
// every subsequent call skips straight to the PIR interpreter without
// re-attempting a doomed build.
func (f *Function) ensureRIR(sig rirSigResolver) (*rir.Program, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.rir != nil {
		return f.rir, true
	}
	if f.state == TierInterpreterPinned {
		return nil, false
	}
	if f.pir == nil {
		return nil, false
	}
	r, err := rir.Build(f.pir, sig)
	if err != nil {
		f.state = TierInterpreterPinned
		return nil, false
	}
	f.rir = r
	return r, true
}

// rirSigResolver is rir.SigResolver, aliased locally so function.go doesn't
// need to import rir just to name the parameter type of ensureRIR's caller.
type rirSigResolver = rir.SigResolver

// effectiveCallThreshold returns this function's call-count compile
// threshold, falling back to the controller's default when no per-function
// override is set.
func (f *Function) effectiveCallThreshold(def uint64) uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.callThreshold != 0 {
		return f.callThreshold
	}
	return def
}

// effectiveBackedgeThreshold mirrors effectiveCallThreshold for loop
// back-edges.
func (f *Function) effectiveBackedgeThreshold(def uint64) uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.backedgeThreshold != 0 {
		return f.backedgeThreshold
	}
	return def
}

// recordCall increments the call counter and reports whether the function
// has just crossed its compile threshold, per spec §4.10. threshold is
// supplied by tier.Controller (f.callThreshold if nonzero, else the
// controller's configured default).
func (f *Function) recordCall(threshold uint64) (crossed bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.callCount++
	return f.state == TierInterpreter && f.callCount == threshold
}

// recordBackedge mirrors recordCall for loop back-edges.
func (f *Function) recordBackedge(threshold uint64) (crossed bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.backedgeCount++
	return f.state == TierInterpreter && f.backedgeCount == threshold
}

// beginCompile transitions Interpreter->Compiling, returning false if another
// goroutine already claimed the compile (the "at most one JIT compilation
// active at a time" invariant).
func (f *Function) beginCompile() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != TierInterpreter {
		return false
	}
	f.state = TierCompiling
	return true
}

// finishCompile installs a successful compile, or pins the function to the
// interpreter forever on failure.
func (f *Function) finishCompile(entry nativeEntry, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err != nil {
		f.state = TierInterpreterPinned
		return
	}
	f.jit = entry
	f.state = TierNative
}

// markPinned forces this function onto the PIR interpreter permanently,
// used when its RIR form built successfully but hit an opcode the
// register-IR executor cannot run (a gap between rir.Build's acceptance and
// interp.ExecRIR's coverage, rather than a Build-time rejection).
func (f *Function) markPinned() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state = TierInterpreterPinned
}

// deopt transitions Native back to Interpreter, used when a JIT call returns
// the deopt sentinel (spec §4.8 "Native -> deopt/unsupported -> Interpreter").
func (f *Function) deopt() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jit = nil
	f.state = TierInterpreter
}

// resetForCopy clears every counter and cache, used when this Function's
// record is logically aliased into another Module (spec §9 "Cross-module
// function copying" — cached JIT output embeds the original module's base
// pointers and cannot be reused as-is).
func (f *Function) resetForCopy() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pir = nil
	f.rir = nil
	f.alloc = nil
	f.jit = nil
	f.callCount = 0
	f.backedgeCount = 0
	f.state = TierInterpreter
}
