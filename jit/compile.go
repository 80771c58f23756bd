package jit

import (
	"runtime"

	"github.com/arwen-wasm/arwen/errors"
	"github.com/arwen-wasm/arwen/regalloc"
	"github.com/arwen-wasm/arwen/rir"
)

// ErrUnsupported is returned by Compile when prog contains an instruction
// this backend does not lower to native code.
var ErrUnsupported = errors.New(errors.PhaseJIT, errors.KindUnsupported).
	Detail("opcode not supported by native backend").Build()

// errDeopt is the sentinel Compiled.Call returns to ask its caller to fall
// back to the interpreter and clear the function's native entry. Package vm
// holds a distinct value with the same Phase and Kind (vm/call.go's
// errDeopt) and recognizes this one through errors.Error.Is, not by identity.
var errDeopt = errors.New(errors.PhaseJIT, errors.KindUnsupported).
	Detail("native execution requested deopt").Build()

// Compiled is one function's installed native entry point. It satisfies
// vm's nativeEntry interface.
type Compiled struct {
	code   []byte // RX-mapped machine code, kept alive so the GC never frees it out from under a live return address
	arch   regalloc.Arch
	nArgs  int
	nLocal int
	nSlots int
}

// Call runs the compiled function. args are the already-evaluated
// parameter values; frame holds locals 0..nLocal-1 seeded from args and
// spill slots nLocal..nLocal+nSlots-1 as scratch, matching the layout
// Compile built the code against.
func (c *Compiled) Call(args []uint64) ([]uint64, error) {
	frame := make([]uint64, c.nLocal+c.nSlots+callFrameReserve)
	copy(frame, args)
	ret := callNative(codePtr(c.code), &frame[0])
	if ret == statusDeopt {
		return nil, errDeopt
	}
	if ret == statusTrap {
		return nil, trapFromFrame(frame)
	}
	return frame[:c.nResults()], nil
}

func (c *Compiled) nResults() int {
	// The calling convention this backend uses writes a return's first
	// result into frame slot 0, overwriting the now-dead parameter/local
	// value there. The function's result count is not recorded, so Call
	// always hands back exactly that one slot: a function without results
	// still yields frame[0], and results past the first are not returned.
	return 1
}

// callFrameReserve is extra scratch room past locals+spill slots for the
// handful of temporaries codegen needs that linear-scan chose not to keep
// live in a physical register across a spill point.
const callFrameReserve = 8

// Compile lowers prog (already register-allocated via alloc) to native code
// for the host's GOARCH, or returns ErrUnsupported.
func Compile(prog *rir.Program, alloc *regalloc.Allocation) (*Compiled, error) {
	switch runtime.GOARCH {
	case "amd64":
		return compileAMD64(prog, alloc)
	case "arm64":
		return compileARM64(prog, alloc)
	default:
		return nil, errors.New(errors.PhaseJIT, errors.KindUnsupported).
			Detail("no native backend for GOARCH %s", runtime.GOARCH).Build()
	}
}
