package memmodel

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// PageSize is the WebAssembly page size in bytes (64 KiB), used unless a
// module declares the custom-page-size proposal's page-size attribute.
const PageSize = 65536

// GuardSize is the size of the PROT_NONE region placed immediately after a
// guard-mode memory's data, sized so that any 32-bit address plus the widest
// access (16 bytes, v128) plus a 64-bit offset immediate cannot skip past it
// without first crossing at least one unmapped page.
const GuardSize = 4*1024*1024*1024 + PageSize

// ErrOutOfBounds is returned by accessors when effective address plus width
// exceeds the memory's current size.
type ErrOutOfBounds struct {
	Addr  uint64
	Width uint64
	Size  uint64
}

func (e *ErrOutOfBounds) Error() string {
	return fmt.Sprintf("out of bounds memory access: addr=%d width=%d size=%d", e.Addr, e.Width, e.Size)
}

// Memory is a single linear memory instance.
type Memory struct {
	data     []byte
	guard    []byte // mmap'd PROT_NONE region directly following data's backing array, when useGuard
	maxPages uint64
	pages    uint64
	memory64 bool
	shared   bool
	useGuard bool
}

// Config controls how a Memory is allocated.
type Config struct {
	MinPages uint64
	MaxPages *uint64 // nil = no declared max (bounded by Memory64/32 address space)
	Memory64 bool
	Shared   bool
	// UseGuard requests a PROT_NONE guard region be reserved past the data so
	// that JIT code can omit per-access bounds branches (§4.7, §4.8 step 3).
	// Only meaningful for 32-bit memories: 64-bit address spaces are too large
	// to usefully guard this way.
	UseGuard bool
}

// New allocates a Memory per cfg. When UseGuard is set and the memory is
// 32-bit, the allocation reserves an additional GuardSize bytes mapped
// PROT_NONE; a fault in that region is routed by package fault to an
// OutOfBoundsMemoryAccess trap instead of a process crash.
func New(cfg Config) (*Memory, error) {
	m := &Memory{
		pages:    cfg.MinPages,
		memory64: cfg.Memory64,
		shared:   cfg.Shared,
		useGuard: cfg.UseGuard && !cfg.Memory64,
	}
	if cfg.MaxPages != nil {
		m.maxPages = *cfg.MaxPages
	} else if cfg.Memory64 {
		m.maxPages = 1 << 48 / PageSize
	} else {
		m.maxPages = 1 << 32 / PageSize
	}

	if m.useGuard {
		total := m.maxPages*PageSize + GuardSize
		region, err := unix.Mmap(-1, 0, int(total), unix.PROT_NONE, unix.MAP_PRIVATE|unix.MAP_ANON)
		if err != nil {
			return nil, fmt.Errorf("memmodel: reserve guarded region: %w", err)
		}
		dataLen := cfg.MinPages * PageSize
		if dataLen > 0 {
			if err := unix.Mprotect(region[:dataLen], unix.PROT_READ|unix.PROT_WRITE); err != nil {
				_ = unix.Munmap(region)
				return nil, fmt.Errorf("memmodel: mprotect data region: %w", err)
			}
		}
		m.data = region[:dataLen:dataLen]
		m.guard = region
	} else {
		m.data = make([]byte, cfg.MinPages*PageSize)
	}
	return m, nil
}

// Close releases the guard mapping, if any. No-op for non-guarded memories
// (their backing array is left to the Go GC).
func (m *Memory) Close() error {
	if m.guard != nil {
		err := unix.Munmap(m.guard)
		m.guard = nil
		m.data = nil
		return err
	}
	return nil
}

// Drop implements resource.Dropper so a Store arena can release guard
// mappings when its owning Instance is torn down.
func (m *Memory) Drop() { _ = m.Close() }

// Size returns the memory's current size in pages.
func (m *Memory) Size() uint64 { return m.pages }

// ByteLen returns the memory's current size in bytes.
func (m *Memory) ByteLen() uint64 { return m.pages * PageSize }

// GuardedBase returns the address of the first byte of the data region, for
// binding into the memory_base register a JIT function reserves (§4.8 step
// 2), and whether the region is guard-page backed.
func (m *Memory) GuardedBase() (base uintptr, guarded bool) {
	if len(m.data) == 0 {
		return 0, m.useGuard
	}
	return uintptr(unsafePointer(m.data)), m.useGuard
}

// GuardedRegion returns the full reserved mapping (data capacity to
// maxPages plus the trailing PROT_NONE guard), for registering with
// package fault's fault-address registry. Unlike GuardedBase, this address
// range is fixed at allocation time and does not move as Grow extends how
// much of it is mprotected RW.
func (m *Memory) GuardedRegion() (base uintptr, size uintptr, ok bool) {
	if !m.useGuard || len(m.guard) == 0 {
		return 0, 0, false
	}
	return uintptr(unsafePointer(m.guard)), uintptr(len(m.guard)), true
}

// Grow attempts to grow the memory by delta pages. Returns the previous size
// in pages on success, or ^uint64(0) on failure (the caller narrows this to
// i32 -1 / i64 2^64-1 per the calling convention in use).
func (m *Memory) Grow(delta uint64) uint64 {
	if delta == 0 {
		return m.pages
	}
	newPages := m.pages + delta
	if newPages < m.pages || newPages > m.maxPages {
		return ^uint64(0)
	}

	prev := m.pages
	if m.useGuard {
		newLen := newPages * PageSize
		if err := unix.Mprotect(m.guard[:newLen], unix.PROT_READ|unix.PROT_WRITE); err != nil {
			return ^uint64(0)
		}
		m.data = m.guard[:newLen:newLen]
	} else {
		grown := make([]byte, newPages*PageSize)
		copy(grown, m.data)
		m.data = grown
	}
	m.pages = newPages
	return prev
}

// effective computes addr+offset in u33 (32-bit memories) or u64 (64-bit
// memories) and checks effective+width against the current size, per §4.7's
// access contract and §8's bounds-access law. Returns the effective address
// or an *ErrOutOfBounds.
func (m *Memory) effective(addr, offset uint64, width uint64) (uint64, error) {
	var eff uint64
	var overflow bool
	if m.memory64 {
		eff = addr + offset
		overflow = eff < addr // u64 wraparound
	} else {
		// u33 arithmetic: addr and offset both fit in 32 bits at the source
		// level, but their sum is carried in 33 bits before any truncation.
		eff = (addr & 0xFFFFFFFF) + (offset & 0xFFFFFFFF)
		overflow = eff > 0x1FFFFFFFF
	}
	size := m.ByteLen()
	if overflow || eff+width < eff || eff+width > size {
		return 0, &ErrOutOfBounds{Addr: addr, Width: width, Size: size}
	}
	return eff, nil
}

// Read reads width bytes at addr+offset.
func (m *Memory) Read(addr, offset uint64, width uint64) ([]byte, error) {
	eff, err := m.effective(addr, offset, width)
	if err != nil {
		return nil, err
	}
	out := make([]byte, width)
	copy(out, m.data[eff:eff+width])
	return out, nil
}

// Write writes data at addr+offset.
func (m *Memory) Write(addr, offset uint64, data []byte) error {
	eff, err := m.effective(addr, offset, uint64(len(data)))
	if err != nil {
		return err
	}
	copy(m.data[eff:eff+uint64(len(data))], data)
	return nil
}

// Fill sets n bytes starting at addr to value, per memory.fill.
func (m *Memory) Fill(addr uint64, value byte, n uint64) error {
	eff, err := m.effective(addr, 0, n)
	if err != nil {
		return err
	}
	region := m.data[eff : eff+n]
	for i := range region {
		region[i] = value
	}
	return nil
}

// Copy copies n bytes from src to dst within the same memory, per
// memory.copy, checking both ranges before moving any byte (§4.7).
func (m *Memory) Copy(dst, src, n uint64) error {
	effDst, err := m.effective(dst, 0, n)
	if err != nil {
		return err
	}
	effSrc, err := m.effective(src, 0, n)
	if err != nil {
		return err
	}
	copy(m.data[effDst:effDst+n], m.data[effSrc:effSrc+n])
	return nil
}

// CopyFrom copies n bytes from src (another memory, multi-memory proposal)
// into this memory at dst.
func (m *Memory) CopyFrom(src *Memory, dst, srcAddr, n uint64) error {
	effDst, err := m.effective(dst, 0, n)
	if err != nil {
		return err
	}
	effSrc, err := src.effective(srcAddr, 0, n)
	if err != nil {
		return err
	}
	copy(m.data[effDst:effDst+n], src.data[effSrc:effSrc+n])
	return nil
}

// Init copies data from a data segment into this memory, per memory.init.
func (m *Memory) Init(dst uint64, seg []byte, segOffset, n uint64) error {
	if segOffset+n > uint64(len(seg)) {
		return &ErrOutOfBounds{Addr: segOffset, Width: n, Size: uint64(len(seg))}
	}
	return m.Write(dst, 0, seg[segOffset:segOffset+n])
}
