package clocks

import (
	"time"

	"github.com/arwen-wasm/arwen/vm"
	"github.com/arwen-wasm/arwen/wasm"
)

// MonotonicClockHost implements wasi:clocks/monotonic-clock's now/
// resolution. Subscription (wait-until-deadline) is out of scope: it needs
// a pollable resource table tied to an async host loop, which this engine
// does not have — invoke is synchronous end to end (see DESIGN.md).
type MonotonicClockHost struct {
	startTime time.Time
}

func NewMonotonicClockHost() *MonotonicClockHost {
	return &MonotonicClockHost{startTime: time.Now()}
}

func (h *MonotonicClockHost) now(args []uint64) ([]uint64, error) {
	return []uint64{uint64(time.Since(h.startTime).Nanoseconds())}, nil
}

func (h *MonotonicClockHost) resolution(args []uint64) ([]uint64, error) {
	return []uint64{1}, nil
}

func (h *MonotonicClockHost) HostFuncs() []vm.HostImport {
	ft := vm.HostFuncType{Results: []byte{byte(wasm.ValI64)}}
	return []vm.HostImport{
		{Module: "wasi:clocks/monotonic-clock", Name: "now", Func: h.now, Type: ft},
		{Module: "wasi:clocks/monotonic-clock", Name: "resolution", Func: h.resolution, Type: ft},
	}
}
