package runtime

import "github.com/arwen-wasm/arwen/vm"

// Instance is a Module's live runtime projection: its own memories, tables,
// globals, and resolved imports.
type Instance struct {
	runtime    *Runtime
	vmInstance *vm.Instance
}

// Call invokes the exported function name with args, returning its result
// slots or a *vm.Trap describing why it failed.
func (i *Instance) Call(name string, args ...uint64) ([]uint64, error) {
	return i.runtime.engine.Invoke(i.vmInstance, name, args)
}

// MemoryRead copies n bytes at addr out of the named exported memory ("" for
// the default/sole memory).
func (i *Instance) MemoryRead(name string, addr, n uint64) ([]byte, error) {
	return i.runtime.engine.MemoryRead(i.vmInstance, name, addr, n)
}

// MemoryWrite writes data into the named exported memory at addr.
func (i *Instance) MemoryWrite(name string, addr uint64, data []byte) error {
	return i.runtime.engine.MemoryWrite(i.vmInstance, name, addr, data)
}

// Close tears down the instance's memories and tables, unmapping their
// guard pages.
func (i *Instance) Close() error {
	return i.vmInstance.Close()
}

// Raw exposes the underlying vm.Instance for callers that need direct
// access (e.g. to implement interp.Host themselves).
func (i *Instance) Raw() *vm.Instance { return i.vmInstance }
