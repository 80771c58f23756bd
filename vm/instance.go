package vm

import (
	"go.uber.org/zap"

	"github.com/arwen-wasm/arwen/errors"
	"github.com/arwen-wasm/arwen/fault"
	"github.com/arwen-wasm/arwen/interp"
	"github.com/arwen-wasm/arwen/memmodel"
	"github.com/arwen-wasm/arwen/tier"
	"github.com/arwen-wasm/arwen/wasm"
)

// resolvedImport is one function import slot, satisfied by a host function
// the embedder supplied; imports are not resolved against another
// Instance's exports.
type resolvedImport struct {
	host HostFunc
	ft   *wasm.FuncType
}

// Instance is a Module's mutable runtime projection: its memories and
// tables (held in a Store arena), its globals and table/memory index spaces
// (module-local slices, since the embedding API never hands out first-class
// handles to them), and its resolved imports. It implements interp.Host so
// the PIR/RIR interpreters can run against it without depending on vm.
type Instance struct {
	module *Module
	store  *Store

	memAddrs []Addr // module-local memory index -> Store address
	tblAddrs []Addr // module-local table index -> Store address
	globals  []uint64

	importedFuncs []resolvedImport // module-local func index < len() are imports

	depth    int
	depthMax int
	fuel     *fuelBox

	controller *tier.Controller
	log        *zap.Logger
}

// fuelBox lets Instance share one Fuel allocation with interp.ExecPIR/ExecRIR
// for its whole lifetime: the start function, every top-level Invoke and
// every nested call spend from the same budget, which is set once at
// Instantiate and never refilled. A nil *fuel field (ceiling == 0) means
// unmetered.
type fuelBox struct {
	fuel *interp.Fuel
}

func newFuelBox(ceiling uint64) *fuelBox {
	if ceiling == 0 {
		return &fuelBox{}
	}
	return &fuelBox{fuel: &interp.Fuel{Remaining: ceiling}}
}

// Instantiate allocates memories/tables, evaluates global and segment init
// expressions, resolves imports, and (if present) runs the start function.
func (e *Engine) Instantiate(m *Module, opts ...Option) (*Instance, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	raw := m.raw

	log := o.Logger
	if log == nil {
		log = e.log
	}
	inst := &Instance{
		module:     m,
		store:      NewStore(),
		depthMax:   o.CallDepthLimit,
		fuel:       newFuelBox(o.FuelCeiling),
		controller: tier.NewController(o.CallThreshold, o.BackedgeThreshold),
		log:        log,
	}

	if err := inst.resolveImports(raw, o.HostFuncs); err != nil {
		return nil, err
	}
	if err := inst.allocateMemories(raw, o.MemoryCeiling); err != nil {
		return nil, err
	}
	if err := inst.allocateTables(raw); err != nil {
		return nil, err
	}
	if err := inst.initGlobals(raw); err != nil {
		return nil, err
	}
	if err := inst.applyElements(raw); err != nil {
		return nil, err
	}
	if err := inst.applyData(raw); err != nil {
		return nil, err
	}

	if raw.Start != nil {
		if _, err := inst.Call(*raw.Start, nil); err != nil {
			return nil, err
		}
	}
	return inst, nil
}

// Close tears down the instance's Store arena, unmapping every guarded
// memory's reserved region and deregistering it from package fault's
// registry first (spec §3 "Teardown releases all Store arenas and unmaps
// guard pages").
func (inst *Instance) Close() error {
	for _, addr := range inst.memAddrs {
		mem := inst.store.Memory(addr)
		if mem == nil {
			continue
		}
		if base, _, ok := mem.GuardedRegion(); ok {
			fault.Unregister(base)
		}
	}
	return inst.store.Close()
}

func (inst *Instance) resolveImports(raw *wasm.Module, imports []HostImport) error {
	byKey := make(map[string]HostImport, len(imports))
	for _, hi := range imports {
		byKey[hi.Module+"\x00"+hi.Name] = hi
	}
	for _, imp := range raw.Imports {
		if imp.Desc.Kind != wasm.KindFunc {
			continue
		}
		hi, ok := byKey[imp.Module+"\x00"+imp.Name]
		if !ok {
			return errors.New(errors.PhaseLoad, errors.KindNotFound).
				Detail("unresolved import %s.%s", imp.Module, imp.Name).Build()
		}
		ft := raw.GetFuncType(uint32(len(inst.importedFuncs)))
		inst.importedFuncs = append(inst.importedFuncs, resolvedImport{host: hi.Func, ft: ft})
	}
	return nil
}

func (inst *Instance) allocateMemories(raw *wasm.Module, ceilingBytes uint64) error {
	inst.memAddrs = make([]Addr, len(raw.Memories))
	for i, mt := range raw.Memories {
		maxPages := mt.Limits.Max
		if ceilingBytes != 0 {
			ceilPages := ceilingBytes / memmodel.PageSize
			if maxPages == nil || *maxPages > ceilPages {
				maxPages = &ceilPages
			}
		}
		mem, err := memmodel.New(memmodel.Config{
			MinPages: mt.Limits.Min,
			MaxPages: maxPages,
			Memory64: mt.Limits.Memory64,
			Shared:   mt.Limits.Shared,
			UseGuard: !mt.Limits.Memory64,
		})
		if err != nil {
			return errors.New(errors.PhaseLoad, errors.KindResourceExhausted).
				Detail("allocate memory %d: %v", i, err).Cause(err).Build()
		}
		if base, size, ok := mem.GuardedRegion(); ok {
			fault.Register(base, size)
		}
		inst.memAddrs[i] = inst.store.AddMemory(mem)
	}
	return nil
}

func (inst *Instance) allocateTables(raw *wasm.Module) error {
	inst.tblAddrs = make([]Addr, len(raw.Tables))
	for i, tt := range raw.Tables {
		t := memmodel.NewTable(tt.ElemType, uint32(tt.Limits.Min), limitMax32(tt.Limits.Max))
		inst.tblAddrs[i] = inst.store.AddTable(t)
	}
	return nil
}

func limitMax32(max *uint64) *uint32 {
	if max == nil {
		return nil
	}
	v := uint32(*max)
	return &v
}

func (inst *Instance) initGlobals(raw *wasm.Module) error {
	inst.globals = make([]uint64, len(raw.Globals))
	for i, g := range raw.Globals {
		v, err := evalConstExpr(g.Init, func(idx uint32) uint64 { return inst.globals[idx] })
		if err != nil {
			return errors.New(errors.PhaseLoad, errors.KindInvalidData).
				Detail("global %d init: %v", i, err).Cause(err).Build()
		}
		inst.globals[i] = v
	}
	return nil
}

func (inst *Instance) applyElements(raw *wasm.Module) error {
	for i, el := range raw.Elements {
		active := el.Flags&0x01 == 0
		declarative := el.Flags&0x03 == 3
		if !active || declarative {
			continue
		}
		offset, err := evalConstExpr(el.Offset, inst.globalGetForInit)
		if err != nil {
			return errors.New(errors.PhaseLoad, errors.KindInvalidData).
				Detail("element %d offset: %v", i, err).Cause(err).Build()
		}
		tbl := inst.store.Table(inst.tblAddrs[el.TableIdx])
		refs, err := inst.elementRefs(el)
		if err != nil {
			return err
		}
		for j, r := range refs {
			if err := tbl.Set(uint32(offset)+uint32(j), r); err != nil {
				return errors.New(errors.PhaseLoad, errors.KindOutOfBounds).
					Detail("element %d: %v", i, err).Cause(err).Build()
			}
		}
	}
	return nil
}

func (inst *Instance) elementRefs(el wasm.Element) ([]uint64, error) {
	if len(el.Exprs) > 0 {
		refs := make([]uint64, len(el.Exprs))
		for i, expr := range el.Exprs {
			v, err := evalConstExpr(expr, inst.globalGetForInit)
			if err != nil {
				return nil, err
			}
			refs[i] = v
		}
		return refs, nil
	}
	refs := make([]uint64, len(el.FuncIdxs))
	for i, fi := range el.FuncIdxs {
		refs[i] = uint64(fi) | refFuncTag
	}
	return refs, nil
}

func (inst *Instance) applyData(raw *wasm.Module) error {
	for i, d := range raw.Data {
		if d.Flags == 1 { // passive
			continue
		}
		offset, err := evalConstExpr(d.Offset, inst.globalGetForInit)
		if err != nil {
			return errors.New(errors.PhaseLoad, errors.KindInvalidData).
				Detail("data %d offset: %v", i, err).Cause(err).Build()
		}
		mem := inst.store.Memory(inst.memAddrs[d.MemIdx])
		if err := mem.Write(offset, 0, d.Init); err != nil {
			return errors.New(errors.PhaseLoad, errors.KindOutOfBounds).
				Detail("data %d: %v", i, err).Cause(err).Build()
		}
	}
	return nil
}

func (inst *Instance) globalGetForInit(idx uint32) uint64 { return inst.globals[idx] }

// --- interp.Host ---

func (inst *Instance) Memory(idx uint32) *memmodel.Memory {
	if int(idx) >= len(inst.memAddrs) {
		return nil
	}
	return inst.store.Memory(inst.memAddrs[idx])
}

func (inst *Instance) Table(idx uint32) *memmodel.Table {
	if int(idx) >= len(inst.tblAddrs) {
		return nil
	}
	return inst.store.Table(inst.tblAddrs[idx])
}

func (inst *Instance) GlobalGet(idx uint32) uint64 {
	return inst.globals[idx]
}

func (inst *Instance) GlobalSet(idx uint32, v uint64) {
	inst.globals[idx] = v
}

func (inst *Instance) FuncType(funcIdx uint32) *wasm.FuncType {
	return inst.module.raw.GetFuncType(funcIdx)
}

func (inst *Instance) TypeByIndex(typeIdx uint32) *wasm.FuncType {
	return inst.module.typeByIdx(typeIdx)
}

func (inst *Instance) TagType(tagIdx uint32) *wasm.FuncType {
	tags := inst.module.raw.Tags
	if int(tagIdx) >= len(tags) {
		return nil
	}
	return inst.module.typeByIdx(tags[tagIdx].TypeIdx)
}
