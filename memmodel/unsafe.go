package memmodel

import "unsafe"

// unsafePointer returns the address of b's backing array. Used only to hand
// the JIT backend a stable base pointer to bind into its memory_base
// register (§4.8 step 2); the returned value must not outlive a Grow call
// on a non-guarded memory, since growth there reallocates.
func unsafePointer(b []byte) unsafe.Pointer {
	if len(b) == 0 {
		return nil
	}
	return unsafe.Pointer(&b[0])
}
