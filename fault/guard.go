package fault

import (
	"runtime/debug"

	"github.com/arwen-wasm/arwen/errors"
)

// addrError is the interface runtime.Error satisfies when
// debug.SetPanicOnFault converted a hardware fault into a panic.
type addrError interface {
	Addr() uintptr
}

// Guarded runs fn with this goroutine's fault-on-access behavior enabled: a
// recovered fault whose address falls inside a registered guard region
// becomes an OutOfBoundsMemoryAccess error; anything else (a nil-pointer
// panic from a real bug, an explicit panic from elsewhere) re-panics
// unchanged, since Guarded must never mask a defect as a wasm trap.
func Guarded(fn func() ([]uint64, error)) (res []uint64, err error) {
	prev := debug.SetPanicOnFault(true)
	defer func() {
		debug.SetPanicOnFault(prev)
		r := recover()
		if r == nil {
			return
		}
		if ae, ok := r.(addrError); ok && contains(ae.Addr()) {
			err = errors.New(errors.PhaseExecute, errors.KindOutOfBounds).
				Detail("guard page fault at 0x%x", ae.Addr()).Build()
			return
		}
		panic(r)
	}()
	return fn()
}
