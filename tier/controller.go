package tier

import (
	"runtime"

	"github.com/arwen-wasm/arwen/jit"
	"github.com/arwen-wasm/arwen/regalloc"
	"github.com/arwen-wasm/arwen/rir"
)

// Default call/back-edge counts a function must cross, at the interpreter
// tier, before a compile is attempted (spec §4.10).
const (
	DefaultCallThreshold     = 8
	DefaultBackedgeThreshold = 1000
)

// Controller is the tiering policy: how many calls/back-edges it takes to
// earn a compile, and how to run that compile once earned. It is stateless
// across functions; per-function counters and the Interpreter/Compiling/
// Native/InterpreterPinned state machine live on vm.Function, which calls
// into Controller only at the moment it decides a threshold was crossed.
type Controller struct {
	CallThreshold     uint64
	BackedgeThreshold uint64
}

// NewController builds a Controller, substituting the defaults for any
// zero threshold (an embedder that passes zero to WithTierThresholds gets
// these; branch-hint custom sections are not read).
func NewController(callThreshold, backedgeThreshold uint64) *Controller {
	if callThreshold == 0 {
		callThreshold = DefaultCallThreshold
	}
	if backedgeThreshold == 0 {
		backedgeThreshold = DefaultBackedgeThreshold
	}
	return &Controller{CallThreshold: callThreshold, BackedgeThreshold: backedgeThreshold}
}

// Compile register-allocates prog for the host's architecture and hands the
// result to the native backend. Returning an error here (ErrUnsupported or
// an allocation failure) is the normal, expected outcome for most
// functions — the caller pins the function to the interpreter permanently
// rather than retrying.
func (c *Controller) Compile(prog *rir.Program, kindOf func(rir.VReg) regalloc.RegKind) (*jit.Compiled, error) {
	alloc := regalloc.Allocate(prog, hostArch(), kindOf)
	return jit.Compile(prog, alloc)
}

func hostArch() regalloc.Arch {
	if runtime.GOARCH == "arm64" {
		return regalloc.ArchARM64
	}
	return regalloc.ArchAMD64
}
