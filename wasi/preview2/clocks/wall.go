package clocks

import (
	"time"

	"github.com/arwen-wasm/arwen/vm"
	"github.com/arwen-wasm/arwen/wasm"
)

// WallClockHost implements wasi:clocks/wall-clock's now/resolution as
// HostFuncs an embedder wires in via vm.Options.HostFuncs.
type WallClockHost struct{}

func NewWallClockHost() *WallClockHost {
	return &WallClockHost{}
}

// Datetime is wall-clock's result record. A HostFunc can only return flat
// result slots, so now/resolution return it as (seconds, nanoseconds)
// rather than a single struct value.
type Datetime struct {
	Seconds     uint64
	Nanoseconds uint32
}

func (h *WallClockHost) now(args []uint64) ([]uint64, error) {
	t := time.Now()
	return []uint64{uint64(t.Unix()), uint64(uint32(t.Nanosecond()))}, nil
}

func (h *WallClockHost) resolution(args []uint64) ([]uint64, error) {
	return []uint64{1, 0}, nil
}

// HostFuncs returns this clock's imports, ready to splice into
// vm.Options.HostFuncs or register individually via vm.WithHostFunc.
func (h *WallClockHost) HostFuncs() []vm.HostImport {
	ft := vm.HostFuncType{Results: []byte{byte(wasm.ValI64), byte(wasm.ValI32)}}
	return []vm.HostImport{
		{Module: "wasi:clocks/wall-clock", Name: "now", Func: h.now, Type: ft},
		{Module: "wasi:clocks/wall-clock", Name: "resolution", Func: h.resolution, Type: ft},
	}
}
