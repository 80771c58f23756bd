package jit

import (
	"unsafe"

	"github.com/arwen-wasm/arwen/errors"
)

// callNative invokes the machine code at fn (a page mapped PROT_READ|EXEC)
// with a pointer to the frame's backing array as its sole argument, using
// the host's plain C calling convention (arg0 in DI/RDI for amd64, X0 for
// arm64; return value in AX/X0) — see call_amd64.s / call_arm64.s. This is
// independent of Go's own internal calling convention, so it keeps working
// across Go versions that change how Go-to-Go calls pass arguments.
func callNative(fn uintptr, frame *uint64) uint64

// codePtr is the one place this package reaches for unsafe.Pointer, to hand
// a []byte's backing array to callNative as a bare function-pointer value.
func codePtr(code []byte) uintptr {
	return uintptr(unsafe.Pointer(&code[0]))
}

// Status codes a compiled function's epilogue writes into AX/X0 before
// returning to callNative.
const (
	statusOK uint64 = iota
	statusDeopt
	statusTrap
)

// trapFromFrame reconstructs a trap error from the frame a compiled
// function left behind when it returned statusTrap: frame[0] holds a
// trapCode (below), frame[1] the deopt-map source index (package vm's
// caller attaches the function index).
func trapFromFrame(frame []uint64) error {
	kind := trapCode(frame[0]).kind()
	return errors.New(errors.PhaseExecute, kind).
		Detail("native execution trapped").Build()
}

// trapCode mirrors the integer division/overflow subset of vm.TrapKind that
// trapFromFrame decodes. Neither backend lowers division or writes
// statusTrap, so compiled code does not currently raise either one.
type trapCode uint64

const (
	trapDivByZero trapCode = iota
	trapIntOverflow
)

func (c trapCode) kind() errors.Kind {
	switch c {
	case trapDivByZero:
		return errors.KindDivideByZero
	case trapIntOverflow:
		return errors.KindOverflow
	default:
		return errors.KindUnsupported
	}
}
