package runtime

import (
	"go.uber.org/zap"

	"github.com/arwen-wasm/arwen/vm"
)

// Runtime is the embedding entrypoint: one Runtime can load many Modules
// and instantiate many Instances from each, matching the teacher's
// runtime.New(ctx)/*Runtime shape with vm.Engine underneath instead of a
// wazero runtime.
type Runtime struct {
	engine *vm.Engine
}

// New constructs a Runtime. A nil logger gets vm's own no-op default.
func New(log *zap.Logger) *Runtime {
	return &Runtime{engine: vm.NewEngine(log)}
}

// LoadModule decodes and validates a binary module, returning a Module
// ready to Instantiate.
func (r *Runtime) LoadModule(data []byte) (*Module, error) {
	m, err := r.engine.LoadModule(data)
	if err != nil {
		return nil, err
	}
	return &Module{runtime: r, vmModule: m}, nil
}

// InspectImports lists a module's imports without instantiating it, for
// tooling that wants to decide how to satisfy them ahead of time.
func (r *Runtime) InspectImports(data []byte) ([]vm.ImportDescriptor, error) {
	return r.engine.InspectImports(data)
}

// Engine exposes the underlying vm.Engine for callers that need the
// lower-level surface (WithHostFunc, WithTierThresholds, and the rest of
// vm.Option) directly.
func (r *Runtime) Engine() *vm.Engine { return r.engine }
