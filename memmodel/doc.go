// Package memmodel implements the linear memory subsystem: byte-addressed
// memories with optional PROT_NONE guard regions, u33-safe bounds checking,
// and growth.
//
// Grounded on spec §4.7 directly — the teacher delegated memory handling to
// wazero, so there is no teacher file to adapt here. Guard-page allocation
// uses golang.org/x/sys/unix (mmap/mprotect/munmap), the same dependency the
// JIT code buffer (package jit) uses; the fault router (package fault) does
// not use it and relies on runtime/debug.SetPanicOnFault instead.
package memmodel
