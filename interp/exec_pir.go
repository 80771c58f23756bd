package interp

import (
	"github.com/arwen-wasm/arwen/errors"
	"github.com/arwen-wasm/arwen/pir"
	"github.com/arwen-wasm/arwen/wasm"
)

// Exception is a thrown wasm exception in flight: either propagating up the
// call stack looking for a try_table to catch it, or sitting in an
// activation's exception table waiting for catch_ref/throw_ref to name it
// again. It satisfies error so Host.Call/CallIndirect can return it exactly
// like a trap.
type Exception struct {
	TagIdx  uint32
	Payload []uint64
}

func (e *Exception) Error() string {
	return errors.New(errors.PhaseExecute, errors.KindUnreachable).
		Detail("uncaught exception (tag %d)", e.TagIdx).Build().Error()
}

// Fuel is the cooperative cancellation/metering budget ExecPIR and ExecRIR
// spend from: every executed instruction decrements it, and it traps
// ResourceExhausted at zero rather than letting a runaway or malicious
// module spin forever. A nil Fuel means unmetered.
type Fuel struct {
	Remaining uint64
}

func (f *Fuel) tick() error {
	if f == nil {
		return nil
	}
	if f.Remaining == 0 {
		return errors.New(errors.PhaseExecute, errors.KindResourceExhausted).
			Detail("fuel exhausted").Build()
	}
	f.Remaining--
	return nil
}

// pirFrame is one activation's operand stack, locals, and exception table,
// local to one ExecPIR call; it never crosses a host.Call boundary.
type pirFrame struct {
	locals []uint64
	stack  []uint64
	excs   []*Exception // catch_ref/throw_ref addressability, index == exnref value
}

func (f *pirFrame) push(v uint64)  { f.stack = append(f.stack, v) }
func (f *pirFrame) pop() uint64    { v := f.stack[len(f.stack)-1]; f.stack = f.stack[:len(f.stack)-1]; return v }
func (f *pirFrame) popN(n int) []uint64 {
	if n == 0 {
		return nil
	}
	out := make([]uint64, n)
	copy(out, f.stack[len(f.stack)-n:])
	f.stack = f.stack[:len(f.stack)-n]
	return out
}

// ExecPIR runs a predecoded function (tier 0) to completion, returning its
// results or a trap/propagating exception. args are already evaluated
// (locals[0:len(args)] seeds the parameters); host supplies memory, tables,
// globals, and calls to other functions. onBackedge, if non-nil, is called
// once for every branch taken whose target does not advance pc (a loop
// iteration), letting the caller drive native-tier promotion for loop-heavy
// functions the same way it already does for call-heavy ones.
func ExecPIR(p *pir.Program, args []uint64, host Host, fuel *Fuel, onBackedge func()) ([]uint64, error) {
	fr := &pirFrame{
		locals: make([]uint64, p.NumLocals),
		stack:  make([]uint64, 0, maxInt(p.MaxStack, 8)),
	}
	copy(fr.locals, args)

	pc := 0
	for pc < len(p.Code) {
		if err := fuel.tick(); err != nil {
			return nil, err
		}
		in := p.Code[pc]

		switch in.Op {
		case pir.OpTryTableMark:
			pc++
			continue

		case pir.OpBrIfFalse:
			if fr.pop() == 0 {
				pc = branchTo(onBackedge, pc, int(in.A))
				continue
			}
			pc++
			continue

		case pir.Op(wasm.OpBr):
			pc = branchTo(onBackedge, pc, int(in.A))
			continue

		case pir.Op(wasm.OpBrIf):
			if fr.pop() != 0 {
				pc = branchTo(onBackedge, pc, int(in.A))
				continue
			}
			pc++
			continue

		case pir.Op(wasm.OpBrTable):
			idx := uint32(fr.pop())
			bt := p.BrTables[in.A]
			if idx >= in.B {
				idx = in.B
			}
			pc = branchTo(onBackedge, pc, int(bt.Targets[idx]))
			continue

		case pir.Op(wasm.OpReturn):
			return fr.popN(p.NumResults), nil

		case pir.Op(wasm.OpUnreachable):
			return nil, errors.New(errors.PhaseExecute, errors.KindUnreachable).
				Detail("unreachable executed").Build()

		case pir.Op(wasm.OpNop):
			pc++
			continue

		case pir.Op(wasm.OpDrop):
			fr.pop()
			pc++
			continue

		case pir.Op(wasm.OpSelect), pir.Op(wasm.OpSelectType):
			cond := fr.pop()
			v2 := fr.pop()
			v1 := fr.pop()
			if cond != 0 {
				fr.push(v1)
			} else {
				fr.push(v2)
			}
			pc++
			continue

		case pir.Op(wasm.OpThrow):
			ft := host.TagType(in.A)
			n := 0
			if ft != nil {
				n = len(ft.Results)
			}
			exc := &Exception{TagIdx: in.A, Payload: fr.popN(n)}
			if handled, npc, err := handleException(p, fr, pc, exc); err != nil {
				return nil, err
			} else if handled {
				pc = npc
				continue
			}
			return nil, exc

		case pir.Op(wasm.OpThrowRef):
			ref := fr.pop()
			if int(ref) >= len(fr.excs) {
				return nil, errors.New(errors.PhaseExecute, errors.KindInvalidInput).
					Detail("throw_ref of an unknown exnref").Build()
			}
			exc := fr.excs[ref]
			if handled, npc, err := handleException(p, fr, pc, exc); err != nil {
				return nil, err
			} else if handled {
				pc = npc
				continue
			}
			return nil, exc

		case pir.Op(wasm.OpCall):
			ft := host.FuncType(in.A)
			argv := fr.popN(len(ft.Params))
			res, err := host.Call(in.A, argv)
			if npc, handled := catchCallError(p, fr, pc, err); handled {
				pc = npc
				continue
			} else if err != nil {
				return nil, err
			}
			for _, v := range res {
				fr.push(v)
			}
			pc++
			continue

		case pir.Op(wasm.OpReturnCall):
			ft := host.FuncType(in.A)
			argv := fr.popN(len(ft.Params))
			return nil, &TailCall{FuncIdx: in.A, Args: argv}

		case pir.Op(wasm.OpCallIndirect):
			tableIdx := in.B
			typeIdx := in.A
			elemIdx := uint32(fr.pop())
			ft := host.TypeByIndex(typeIdx)
			argv := fr.popN(len(ft.Params))
			res, err := host.CallIndirect(tableIdx, typeIdx, elemIdx, argv)
			if npc, handled := catchCallError(p, fr, pc, err); handled {
				pc = npc
				continue
			} else if err != nil {
				return nil, err
			}
			for _, v := range res {
				fr.push(v)
			}
			pc++
			continue

		case pir.Op(wasm.OpReturnCallIndirect):
			tableIdx := in.B
			typeIdx := in.A
			elemIdx := uint32(fr.pop())
			ft := host.TypeByIndex(typeIdx)
			argv := fr.popN(len(ft.Params))
			funcIdx, err := host.ResolveIndirect(tableIdx, typeIdx, elemIdx)
			if err != nil {
				return nil, err
			}
			return nil, &TailCall{FuncIdx: funcIdx, Args: argv}

		case pir.Op(wasm.OpLocalGet):
			fr.push(fr.locals[in.A])
			pc++
			continue

		case pir.Op(wasm.OpLocalSet):
			fr.locals[in.A] = fr.pop()
			pc++
			continue

		case pir.Op(wasm.OpLocalTee):
			fr.locals[in.A] = fr.stack[len(fr.stack)-1]
			pc++
			continue

		case pir.Op(wasm.OpGlobalGet):
			fr.push(host.GlobalGet(in.A))
			pc++
			continue

		case pir.Op(wasm.OpGlobalSet):
			host.GlobalSet(in.A, fr.pop())
			pc++
			continue

		case pir.Op(wasm.OpTableGet):
			idx := uint32(fr.pop())
			v, err := host.Table(in.A).Get(idx)
			if err != nil {
				return nil, err
			}
			fr.push(v)
			pc++
			continue

		case pir.Op(wasm.OpTableSet):
			v := fr.pop()
			idx := uint32(fr.pop())
			if err := host.Table(in.A).Set(idx, v); err != nil {
				return nil, err
			}
			pc++
			continue

		case pir.Op(wasm.OpMemorySize):
			fr.push(host.Memory(in.A).Size())
			pc++
			continue

		case pir.Op(wasm.OpMemoryGrow):
			delta := fr.pop()
			fr.push(host.Memory(in.A).Grow(delta))
			pc++
			continue

		case pir.Op(wasm.OpI32Const), pir.Op(wasm.OpI64Const), pir.Op(wasm.OpF32Const), pir.Op(wasm.OpF64Const):
			fr.push(in.Const)
			pc++
			continue

		case pir.Op(wasm.OpRefNull):
			fr.push(in.Const)
			pc++
			continue

		case pir.Op(wasm.OpRefFunc):
			fr.push(uint64(in.A) | refFuncTag)
			pc++
			continue

		case pir.Op(wasm.OpRefIsNull):
			fr.push(b2u(fr.pop() == 0))
			pc++
			continue

		case pir.Op(wasm.OpRefAsNonNull):
			if fr.stack[len(fr.stack)-1] == 0 {
				return nil, errors.New(errors.PhaseExecute, errors.KindNilPointer).
					Detail("ref.as_non_null of a null reference").Build()
			}
			pc++
			continue

		case pir.Op(wasm.OpRefEq):
			rhs := fr.pop()
			lhs := fr.pop()
			fr.push(b2u(lhs == rhs))
			pc++
			continue
		}

		if isLoadStoreOp(byte(in.Op)) {
			if err := stepMemOp(in, fr, host); err != nil {
				return nil, err
			}
			pc++
			continue
		}

		if err := stepNumeric(in, fr); err != nil {
			return nil, err
		}
		pc++
	}

	return fr.popN(p.NumResults), nil
}

const refFuncTag = uint64(1) << 63

func isLoadStoreOp(op byte) bool {
	return (op >= wasm.OpI32Load && op <= wasm.OpI64Load32U) || (op >= wasm.OpI32Store && op <= wasm.OpI64Store32)
}

func stepMemOp(in pir.Instruction, fr *pirFrame, host Host) error {
	op := byte(in.Op)
	if op >= wasm.OpI32Store && op <= wasm.OpI64Store32 {
		val := fr.pop()
		addr := fr.pop()
		width := storeWidthFor(op)
		return storeWidth(addr, in.MemOffset, val, width, host.Memory(in.B))
	}
	addr := fr.pop()
	v, err := doLoad(op, addr, in.MemOffset, host.Memory(in.B))
	if err != nil {
		return err
	}
	fr.push(v)
	return nil
}

// stepNumeric dispatches every remaining unary/binary/comparison opcode.
func stepNumeric(in pir.Instruction, fr *pirFrame) error {
	op := byte(in.Op)
	if isUnaryOp(op) {
		v := fr.pop()
		r, err := applyUnary(op, v)
		if err != nil {
			return err
		}
		fr.push(r)
		return nil
	}
	rhs := fr.pop()
	lhs := fr.pop()
	r, err := applyBinary(op, lhs, rhs)
	if err != nil {
		return err
	}
	fr.push(r)
	return nil
}

func isUnaryOp(op byte) bool {
	switch op {
	case wasm.OpI32Eqz, wasm.OpI64Eqz,
		wasm.OpI32Clz, wasm.OpI32Ctz, wasm.OpI32Popcnt,
		wasm.OpI64Clz, wasm.OpI64Ctz, wasm.OpI64Popcnt,
		wasm.OpF32Abs, wasm.OpF32Neg, wasm.OpF32Ceil, wasm.OpF32Floor, wasm.OpF32Trunc, wasm.OpF32Nearest, wasm.OpF32Sqrt,
		wasm.OpF64Abs, wasm.OpF64Neg, wasm.OpF64Ceil, wasm.OpF64Floor, wasm.OpF64Trunc, wasm.OpF64Nearest, wasm.OpF64Sqrt:
		return true
	}
	return op >= wasm.OpI32WrapI64
}

// handleException walks p.TryRanges from last to first (innermost-first,
// since Predecode appends a range when its try_table opens, so enclosing
// ranges come earlier) looking for a range covering pc whose catch clauses match
// exc, jumping into it and seeding the matched values onto fr.stack.
func handleException(p *pir.Program, fr *pirFrame, pc int, exc *Exception) (handled bool, newPC int, err error) {
	for i := len(p.TryRanges) - 1; i >= 0; i-- {
		r := p.TryRanges[i]
		if pc < r.Start || pc >= r.End {
			continue
		}
		for _, c := range r.Catches {
			switch c.Kind {
			case wasm.CatchKindCatchAll:
				return true, int(c.Label), nil
			case wasm.CatchKindCatchAllRef:
				fr.excs = append(fr.excs, exc)
				fr.push(uint64(len(fr.excs) - 1))
				return true, int(c.Label), nil
			case wasm.CatchKindCatch:
				if c.TagIdx == exc.TagIdx {
					for _, v := range exc.Payload {
						fr.push(v)
					}
					return true, int(c.Label), nil
				}
			case wasm.CatchKindCatchRef:
				if c.TagIdx == exc.TagIdx {
					for _, v := range exc.Payload {
						fr.push(v)
					}
					fr.excs = append(fr.excs, exc)
					fr.push(uint64(len(fr.excs) - 1))
					return true, int(c.Label), nil
				}
			}
		}
	}
	return false, 0, nil
}

// catchCallError is handleException specialized for the error a host.Call
// returned: only an *Exception is a candidate for a local catch, anything
// else (a trap, a host error) always propagates.
func catchCallError(p *pir.Program, fr *pirFrame, pc int, err error) (newPC int, handled bool) {
	if err == nil {
		return 0, false
	}
	exc, ok := err.(*Exception)
	if !ok {
		return 0, false
	}
	ok2, npc, herr := handleException(p, fr, pc, exc)
	if herr != nil || !ok2 {
		return 0, false
	}
	return npc, true
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// branchTo reports a backward branch (to, a loop header, at or before from)
// to onBackedge and returns to unchanged, so every branch site can route
// through it without duplicating the comparison.
func branchTo(onBackedge func(), from, to int) int {
	if to <= from && onBackedge != nil {
		onBackedge()
	}
	return to
}
