package interp

import (
	"github.com/arwen-wasm/arwen/memmodel"
	"github.com/arwen-wasm/arwen/wasm"
)

// Host is everything an interpreted function needs from its owning instance
// beyond its own locals/registers: linear memory, tables, globals, and the
// ability to call other functions (direct or through a table). vm.Instance
// implements this; interp never imports vm to avoid a cycle.
type Host interface {
	Memory(idx uint32) *memmodel.Memory
	Table(idx uint32) *memmodel.Table
	GlobalGet(idx uint32) uint64
	GlobalSet(idx uint32, v uint64)

	// Call invokes function funcIdx with args (already in register-bit
	// form) and returns its results, or a trap/host error.
	Call(funcIdx uint32, args []uint64) ([]uint64, error)

	// CallIndirect resolves elemIdx in table tableIdx, checks its signature
	// against typeIdx, and calls it.
	CallIndirect(tableIdx, typeIdx, elemIdx uint32, args []uint64) ([]uint64, error)

	// ResolveIndirect resolves elemIdx in table tableIdx, checks its
	// signature against typeIdx, and returns the target function index
	// without calling it. return_call_indirect uses this to build a
	// TailCall request instead of nesting a call through CallIndirect.
	ResolveIndirect(tableIdx, typeIdx, elemIdx uint32) (uint32, error)

	// FuncType returns the signature of funcIdx, used to know how many
	// result registers a call produces.
	FuncType(funcIdx uint32) *wasm.FuncType
	// TypeByIndex returns the module's typeIdx'th function type, used by
	// call_indirect to size its result list before a table lookup can fail.
	TypeByIndex(typeIdx uint32) *wasm.FuncType

	// TagType returns tagIdx's signature, used by throw to know how many
	// payload values to pop.
	TagType(tagIdx uint32) *wasm.FuncType
}

func loadWidth(addr uint64, offset uint64, width uint64, mem *memmodel.Memory) (uint64, error) {
	b, err := mem.Read(addr, offset, width)
	if err != nil {
		return 0, err
	}
	var v uint64
	for i := len(b) - 1; i >= 0; i-- {
		v = v<<8 | uint64(b[i])
	}
	return v, nil
}

func storeWidth(addr, offset uint64, v uint64, width int, mem *memmodel.Memory) error {
	b := make([]byte, width)
	for i := 0; i < width; i++ {
		b[i] = byte(v)
		v >>= 8
	}
	return mem.Write(addr, offset, b)
}

// signExtend sign-extends the low fromBits bits of v to a full 64-bit value.
func signExtend(v uint64, fromBits uint) uint64 {
	shift := 64 - fromBits
	return uint64(int64(v<<shift) >> shift)
}
