package fault

import "sync/atomic"

// Region is one guard-backed address range, registered for the lifetime of
// the memmodel.Memory that owns it.
type Region struct {
	Base uintptr
	Size uintptr
}

var regions atomic.Pointer[[]Region]

// Register adds a guard region. Safe for concurrent use; a signal/fault
// path only ever reads the current snapshot via contains, never blocking on
// a writer.
func Register(base, size uintptr) {
	for {
		old := regions.Load()
		var next []Region
		if old != nil {
			next = append(next, (*old)...)
		}
		next = append(next, Region{Base: base, Size: size})
		if regions.CompareAndSwap(old, &next) {
			return
		}
	}
}

// Unregister removes the region starting at base, called when its owning
// Memory is dropped.
func Unregister(base uintptr) {
	for {
		old := regions.Load()
		if old == nil {
			return
		}
		next := make([]Region, 0, len(*old))
		for _, r := range *old {
			if r.Base != base {
				next = append(next, r)
			}
		}
		if regions.CompareAndSwap(old, &next) {
			return
		}
	}
}

func contains(addr uintptr) bool {
	cur := regions.Load()
	if cur == nil {
		return false
	}
	for _, r := range *cur {
		if addr >= r.Base && addr < r.Base+r.Size {
			return true
		}
	}
	return false
}
