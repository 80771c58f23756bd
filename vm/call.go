package vm

import (
	"go.uber.org/zap"

	"github.com/arwen-wasm/arwen/errors"
	"github.com/arwen-wasm/arwen/fault"
	"github.com/arwen-wasm/arwen/interp"
	"github.com/arwen-wasm/arwen/regalloc"
	"github.com/arwen-wasm/arwen/rir"
	"github.com/arwen-wasm/arwen/wasm"
)

// Call implements interp.Host and is also the module-local entrypoint the
// embedder's Invoke funnels through: it enforces the call-depth limit, picks
// a function's current tier, runs it, and on a JIT deopt sentinel retries
// once at the interpreter tier.
//
// return_call/return_call_indirect surface here as an *interp.TailCall
// instead of a normal result: the loop below re-dispatches to the tail
// target in place rather than nesting another Call, so a tail-call chain of
// any length holds inst.depth (and the Go call stack) at exactly one frame.
func (inst *Instance) Call(funcIdx uint32, args []uint64) ([]uint64, error) {
	if int(funcIdx) < len(inst.importedFuncs) {
		return inst.callImported(funcIdx, args)
	}

	inst.depth++
	defer func() { inst.depth-- }()
	if inst.depthMax > 0 && inst.depth > inst.depthMax {
		return nil, errors.New(errors.PhaseExecute, errors.KindStackOverflow).
			Detail("call depth exceeds %d", inst.depthMax).Build()
	}

	for {
		if int(funcIdx) < len(inst.importedFuncs) {
			return inst.callImported(funcIdx, args)
		}
		fn := inst.module.function(funcIdx)
		if fn == nil {
			return nil, errors.New(errors.PhaseExecute, errors.KindNotFound).
				Detail("function %d not found", funcIdx).Build()
		}
		res, err := inst.callTiered(fn, args)
		tc, ok := err.(*interp.TailCall)
		if !ok {
			return res, err
		}
		funcIdx, args = tc.FuncIdx, tc.Args
	}
}

func (inst *Instance) callImported(funcIdx uint32, args []uint64) ([]uint64, error) {
	imp := inst.importedFuncs[funcIdx]
	res, err := imp.host(args)
	if err != nil {
		return nil, errors.New(errors.PhaseExecute, errors.KindNotInitialized).
			Detail("host function %d: %v", funcIdx, err).Cause(err).Build()
	}
	return res, nil
}

// callTiered runs fn at its current tier. A function pinned to the
// interpreter (exception-bearing body, or a prior failed RIR/JIT build)
// always takes the PIR path; otherwise RIR is preferred once built, and
// native code once compiled (native compilation itself is driven by the
// tier controller from recordCall/recordBackedge, not from here).
func (inst *Instance) callTiered(fn *Function, args []uint64) ([]uint64, error) {
	fuel := inst.fuelHandle()

	if fn.State() == TierInterpreter {
		threshold := fn.effectiveCallThreshold(inst.controller.CallThreshold)
		if fn.recordCall(threshold) {
			inst.tryCompile(fn)
		}
	}

	if fn.State() == TierNative {
		res, err := fault.Guarded(func() ([]uint64, error) { return fn.jit.Call(args) })
		if errDeopt.Is(err) {
			inst.log.Debug("native tier deopt", zap.Uint32("func", fn.Index()))
			fn.deopt()
		} else {
			return res, err
		}
	}

	// onBackedge mirrors the recordCall promotion check above, but counts
	// loop iterations instead of invocations: a loop-heavy, call-light
	// function reaches its compile threshold from inside a single call.
	onBackedge := func() {
		if fn.State() != TierInterpreter {
			return
		}
		threshold := fn.effectiveBackedgeThreshold(inst.controller.BackedgeThreshold)
		if fn.recordBackedge(threshold) {
			inst.tryCompile(fn)
		}
	}

	if fn.State() != TierInterpreterPinned {
		if r, ok := fn.ensureRIR(inst.module); ok {
			res, err := interp.ExecRIR(r, args, inst, fuel, onBackedge)
			if err == nil || !isRIRUnsupported(err) {
				return res, err
			}
			fn.markPinned()
		}
	}

	p, err := fn.ensurePIR()
	if err != nil {
		return nil, err
	}
	return interp.ExecPIR(p, args, inst, fuel, onBackedge)
}

// tryCompile attempts to promote fn to the native tier once its call count
// has crossed the configured threshold. Failure (an RIR-less function, or
// jit.Compile rejecting an opcode outside its scope) pins fn to the
// interpreter permanently via finishCompile — this is the expected outcome
// for most functions, not an error condition callers need to react to.
func (inst *Instance) tryCompile(fn *Function) {
	if !fn.beginCompile() {
		return
	}
	prog, ok := fn.ensureRIR(inst.module)
	if !ok {
		fn.finishCompile(nil, errNoRIRForCompile)
		return
	}
	compiled, err := inst.controller.Compile(prog, jitKindOf)
	if err != nil {
		inst.log.Debug("pinning to interpreter: native compile rejected",
			zap.Uint32("func", fn.Index()), zap.Error(err))
	} else {
		inst.log.Debug("promoted to native tier", zap.Uint32("func", fn.Index()))
	}
	fn.finishCompile(compiled, err)
}

var errNoRIRForCompile = errors.New(errors.PhaseJIT, errors.KindUnsupported).
	Detail("function has no register-IR form to compile").Build()

// jitKindOf always reports KindInt: the native backends the tier
// controller drives operate purely on frame-memory operands (see
// jit/amd64.go's and jit/arm64.go's Open Question resolution in
// DESIGN.md), never placing a value in a float-class physical register, so
// the int/float distinction regalloc.Allocate computes here goes unread by
// codegen and any answer is harmless.
func jitKindOf(rir.VReg) regalloc.RegKind { return regalloc.KindInt }

// errDeopt carries the Phase and Kind of the sentinel jit.Compiled.Call
// returns to request falling back to the interpreter for the remainder (and
// all future invocations) of a function whose compiled body hit something it
// cannot execute. The two packages hold distinct values, so callTiered
// matches through errors.Error.Is (Phase and Kind), not by identity.
var errDeopt = errors.New(errors.PhaseJIT, errors.KindUnsupported).
	Detail("native tier requested deopt").Build()

// isRIRUnsupported reports whether err reflects a structural limitation of
// the register-IR tier (as opposed to a genuine trap/exception produced
// while executing otherwise-valid RIR), in which case the function should
// fall back permanently to the PIR interpreter rather than retry RIR.
func isRIRUnsupported(err error) bool {
	e, ok := err.(*errors.Error)
	return ok && e.Kind == errors.KindUnsupported
}

func (inst *Instance) fuelHandle() *interp.Fuel {
	if inst.fuel == nil {
		return nil
	}
	return inst.fuel.fuel
}

// CallIndirect implements interp.Host: resolves elemIdx in tableIdx, checks
// its signature against typeIdx, and calls it.
func (inst *Instance) CallIndirect(tableIdx, typeIdx, elemIdx uint32, args []uint64) ([]uint64, error) {
	funcIdx, err := inst.ResolveIndirect(tableIdx, typeIdx, elemIdx)
	if err != nil {
		return nil, err
	}
	return inst.Call(funcIdx, args)
}

// ResolveIndirect implements interp.Host: resolves elemIdx in tableIdx and
// checks its signature against typeIdx, without calling it.
// return_call_indirect uses this directly so it can build an *interp.TailCall
// instead of nesting a call through CallIndirect.
func (inst *Instance) ResolveIndirect(tableIdx, typeIdx, elemIdx uint32) (uint32, error) {
	tbl := inst.Table(tableIdx)
	if tbl == nil {
		return 0, errors.New(errors.PhaseExecute, errors.KindNotFound).
			Detail("table %d not found", tableIdx).Build()
	}
	ref, err := tbl.Get(elemIdx)
	if err != nil {
		return 0, errors.New(errors.PhaseExecute, errors.KindOutOfBounds).
			Detail("table %d: %v", tableIdx, err).Cause(err).Build()
	}
	if ref == 0 {
		return 0, errors.New(errors.PhaseExecute, errors.KindNotFound).
			Detail("call_indirect: null element at %d", elemIdx).Build()
	}
	funcIdx := uint32(ref &^ (uint64(1) << 63))

	want := inst.TypeByIndex(typeIdx)
	got := inst.FuncType(funcIdx)
	if want == nil || got == nil || !sameFuncType(want, got) {
		return 0, errors.New(errors.PhaseExecute, errors.KindTypeMismatch).
			Detail("call_indirect: signature mismatch at table %d index %d", tableIdx, elemIdx).Build()
	}
	return funcIdx, nil
}

func sameFuncType(a, b *wasm.FuncType) bool {
	if len(a.Params) != len(b.Params) || len(a.Results) != len(b.Results) {
		return false
	}
	for i := range a.Params {
		if a.Params[i] != b.Params[i] {
			return false
		}
	}
	for i := range a.Results {
		if a.Results[i] != b.Results[i] {
			return false
		}
	}
	return true
}
