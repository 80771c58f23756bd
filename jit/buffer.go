package jit

import (
	"github.com/arwen-wasm/arwen/errors"
	"golang.org/x/sys/unix"
)

// allocateExecutable copies code into a fresh page-aligned anonymous
// mapping, starts it RW so the bytes can be written, then transitions it to
// RX (W^X) before returning — mirroring memmodel's guard-page mmap/mprotect
// sequence, just for code instead of data.
func allocateExecutable(code []byte) ([]byte, error) {
	n := pageAlign(len(code))
	buf, err := unix.Mmap(-1, 0, n, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return nil, errors.New(errors.PhaseJIT, errors.KindAllocation).
			Detail("mmap code buffer: %v", err).Cause(err).Build()
	}
	copy(buf, code)
	if err := unix.Mprotect(buf, unix.PROT_READ|unix.PROT_EXEC); err != nil {
		_ = unix.Munmap(buf)
		return nil, errors.New(errors.PhaseJIT, errors.KindAllocation).
			Detail("mprotect code buffer RX: %v", err).Cause(err).Build()
	}
	return buf[:len(code):len(code)], nil
}

func pageAlign(n int) int {
	const pageSize = 4096
	if n%pageSize == 0 {
		return n
	}
	return (n/pageSize + 1) * pageSize
}
