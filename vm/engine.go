package vm

import (
	"go.uber.org/zap"

	"github.com/arwen-wasm/arwen/engine"
	"github.com/arwen-wasm/arwen/errors"
	"github.com/arwen-wasm/arwen/memmodel"
	"github.com/arwen-wasm/arwen/wasm"
)

// Engine is the embedding entrypoint: one Engine can load many Modules and
// instantiate many Instances from each. It carries no state of its own
// today beyond a logger, but exists as a value embedders construct once and
// share, matching the teacher's wazero.Runtime/NewWazeroEngine shape.
type Engine struct {
	log *zap.Logger
}

// NewEngine constructs an Engine. A nil logger is replaced with package
// engine's shared no-op default so call sites never need a nil check.
func NewEngine(log *zap.Logger) *Engine {
	if log == nil {
		log = engine.Logger()
	}
	return &Engine{log: log}
}

// LoadModule decodes and fully validates a binary module (structural
// validation plus the per-instruction type checker), producing an immutable
// Module ready to Instantiate.
func (e *Engine) LoadModule(data []byte) (*Module, error) {
	raw, err := wasm.ParseModuleValidate(data)
	if err != nil {
		return nil, err
	}
	return newModule(raw), nil
}

// Invoke looks up name among m's function exports and calls it with args.
func (e *Engine) Invoke(inst *Instance, name string, args []uint64) ([]uint64, error) {
	funcIdx, ok := inst.module.exportedFunc(name)
	if !ok {
		return nil, errors.New(errors.PhaseExecute, errors.KindNotFound).
			Detail("no exported function %q", name).Build()
	}
	res, err := inst.Call(funcIdx, args)
	if err != nil {
		return nil, wrapTrap(err, funcIdx, -1)
	}
	return res, nil
}

// MemoryRead copies n bytes at addr out of inst's exported memory named
// name (the zero value "" selects the sole/default memory, per the
// single-memory-instance convention most modules use).
func (e *Engine) MemoryRead(inst *Instance, name string, addr, n uint64) ([]byte, error) {
	mem, err := inst.resolveMemory(name)
	if err != nil {
		return nil, err
	}
	b, err := mem.Read(addr, 0, n)
	if err != nil {
		return nil, wrapTrap(err, 0, -1)
	}
	return b, nil
}

// MemoryWrite writes data into inst's exported memory named name at addr.
func (e *Engine) MemoryWrite(inst *Instance, name string, addr uint64, data []byte) error {
	mem, err := inst.resolveMemory(name)
	if err != nil {
		return err
	}
	if err := mem.Write(addr, 0, data); err != nil {
		return wrapTrap(err, 0, -1)
	}
	return nil
}

func (inst *Instance) resolveMemory(name string) (*memmodel.Memory, error) {
	var idx uint32
	if name == "" {
		idx = 0
	} else {
		var ok bool
		idx, ok = inst.module.exportedMemory(name)
		if !ok {
			return nil, errors.New(errors.PhaseExecute, errors.KindNotFound).
				Detail("no exported memory %q", name).Build()
		}
	}
	m := inst.Memory(idx)
	if m == nil {
		return nil, errors.New(errors.PhaseExecute, errors.KindNotFound).
			Detail("memory %d not found", idx).Build()
	}
	return m, nil
}
