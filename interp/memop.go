package interp

import (
	"github.com/arwen-wasm/arwen/memmodel"
	"github.com/arwen-wasm/arwen/wasm"
)

// loadSpec describes one load opcode's memory width and how to widen the
// loaded bytes back to a 32/64-bit register value.
type loadSpec struct {
	width    uint64
	signed   bool
	resultIs64 bool
}

func loadSpecFor(op byte) loadSpec {
	switch op {
	case wasm.OpI32Load:
		return loadSpec{width: 4}
	case wasm.OpI64Load:
		return loadSpec{width: 8, resultIs64: true}
	case wasm.OpF32Load:
		return loadSpec{width: 4}
	case wasm.OpF64Load:
		return loadSpec{width: 8, resultIs64: true}
	case wasm.OpI32Load8S:
		return loadSpec{width: 1, signed: true}
	case wasm.OpI32Load8U:
		return loadSpec{width: 1}
	case wasm.OpI32Load16S:
		return loadSpec{width: 2, signed: true}
	case wasm.OpI32Load16U:
		return loadSpec{width: 2}
	case wasm.OpI64Load8S:
		return loadSpec{width: 1, signed: true, resultIs64: true}
	case wasm.OpI64Load8U:
		return loadSpec{width: 1, resultIs64: true}
	case wasm.OpI64Load16S:
		return loadSpec{width: 2, signed: true, resultIs64: true}
	case wasm.OpI64Load16U:
		return loadSpec{width: 2, resultIs64: true}
	case wasm.OpI64Load32S:
		return loadSpec{width: 4, signed: true, resultIs64: true}
	case wasm.OpI64Load32U:
		return loadSpec{width: 4, resultIs64: true}
	}
	return loadSpec{}
}

func storeWidthFor(op byte) int {
	switch op {
	case wasm.OpI32Store, wasm.OpF32Store, wasm.OpI64Store32:
		return 4
	case wasm.OpI64Store, wasm.OpF64Store:
		return 8
	case wasm.OpI32Store8, wasm.OpI64Store8:
		return 1
	case wasm.OpI32Store16, wasm.OpI64Store16:
		return 2
	}
	return 0
}

// doLoad reads and widens memory for a load opcode, returning the resulting
// register value (already sign/zero-extended to 64 bits as the op demands —
// PIR and RIR both store i32 results zero-extended in the low 32 bits).
func doLoad(op byte, addr, offset uint64, mem *memmodel.Memory) (uint64, error) {
	spec := loadSpecFor(op)
	raw, err := loadWidth(addr, offset, spec.width, mem)
	if err != nil {
		return 0, err
	}
	if !spec.signed || spec.width == 8 {
		return raw, nil
	}
	v := signExtend(raw, uint(spec.width)*8)
	if !spec.resultIs64 {
		v = uint64(uint32(v))
	}
	return v, nil
}
