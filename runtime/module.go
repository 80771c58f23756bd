package runtime

import "github.com/arwen-wasm/arwen/vm"

// Module is a decoded-and-validated program, loaded once and instantiated
// as many times as the embedder wants.
type Module struct {
	runtime  *Runtime
	vmModule *vm.Module
}

// Instantiate allocates a fresh Instance from m: its own memories, tables,
// globals, and resolved imports.
func (m *Module) Instantiate(opts ...vm.Option) (*Instance, error) {
	inst, err := m.runtime.engine.Instantiate(m.vmModule, opts...)
	if err != nil {
		return nil, err
	}
	return &Instance{runtime: m.runtime, vmInstance: inst}, nil
}

// Imports lists m's imports, same data InspectImports(data) gives before
// decoding, but read back off the already-decoded module.
func (m *Module) Imports() []vm.ImportDescriptor {
	raw := m.vmModule.Raw()
	out := make([]vm.ImportDescriptor, 0, len(raw.Imports))
	for _, imp := range raw.Imports {
		out = append(out, vm.ImportDescriptor{
			Module: imp.Module,
			Name:   imp.Name,
			Kind:   vm.ImportKind(imp.Desc.Kind),
		})
	}
	return out
}

// Raw exposes the underlying vm.Module for callers that need it.
func (m *Module) Raw() *vm.Module { return m.vmModule }
