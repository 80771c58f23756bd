package interp

import (
	"github.com/arwen-wasm/arwen/errors"
	"github.com/arwen-wasm/arwen/rir"
	"github.com/arwen-wasm/arwen/wasm"
)

// ExecRIR runs a register-IR function (tier 1) to completion. regs[0:NumLocals]
// are bound to the function's locals for the whole call; everything at or
// above NumLocals is a temporary the builder introduced. Unlike ExecPIR, a
// register program never contains try_table/throw (rir.Build rejects those
// functions so they stay pinned to the PIR tier); ExecRIR still forwards an
// *Exception a callee raises, since the caller may have a PIR-tier handler.
func ExecRIR(p *rir.Program, args []uint64, host Host, fuel *Fuel, onBackedge func()) ([]uint64, error) {
	regs := make([]uint64, p.NumRegs)
	copy(regs, args)

	pc := 0
	for pc < len(p.Code) {
		if err := fuel.tick(); err != nil {
			return nil, err
		}
		in := p.Code[pc]

		switch in.Op {
		case rir.OpMove:
			regs[in.Dst] = regs[in.Src1]
			pc++
			continue

		case rir.OpBrIfFalse:
			if regs[in.Src1] == 0 {
				pc = branchTo(onBackedge, pc, int(in.A))
				continue
			}
			pc++
			continue

		case rir.OpBrCmp:
			rhs := in.Imm
			if !in.RHSIsImm {
				rhs = regs[in.Src2]
			}
			ok, err := evalCmp(in.Cmp, regs[in.Src1], rhs)
			if err != nil {
				return nil, err
			}
			if ok {
				pc = branchTo(onBackedge, pc, int(in.A))
				continue
			}
			pc++
			continue

		case rir.OpReturn:
			return gatherRegs(regs, in.Results), nil

		case rir.OpReturnIf:
			if regs[in.Src1] != 0 {
				return gatherRegs(regs, in.Results), nil
			}
			pc++
			continue

		case rir.Op(wasm.OpBr):
			pc = branchTo(onBackedge, pc, int(in.A))
			continue

		case rir.Op(wasm.OpBrIf):
			if regs[in.Src1] != 0 {
				pc = branchTo(onBackedge, pc, int(in.A))
				continue
			}
			pc++
			continue

		case rir.Op(wasm.OpBrTable):
			idx := uint32(regs[in.Src1])
			bt := p.BrTables[in.A]
			if idx >= in.B {
				idx = in.B
			}
			pc = branchTo(onBackedge, pc, int(bt.Targets[idx]))
			continue

		case rir.Op(wasm.OpUnreachable):
			return nil, errors.New(errors.PhaseExecute, errors.KindUnreachable).
				Detail("unreachable executed").Build()

		case rir.Op(wasm.OpNop):
			pc++
			continue

		case rir.Op(wasm.OpSelect), rir.Op(wasm.OpSelectType):
			if regs[rir.VReg(in.A)] != 0 {
				regs[in.Dst] = regs[in.Src1]
			} else {
				regs[in.Dst] = regs[in.Src2]
			}
			pc++
			continue

		case rir.Op(wasm.OpCall), rir.Op(wasm.OpReturnCall):
			if in.Op == rir.Op(wasm.OpReturnCall) {
				return nil, &TailCall{FuncIdx: in.A, Args: gatherRegs(regs, in.Args)}
			}
			res, err := host.Call(in.A, gatherRegs(regs, in.Args))
			if err != nil {
				return nil, err
			}
			scatterRegs(regs, in.Results, res)
			pc++
			continue

		case rir.Op(wasm.OpCallIndirect), rir.Op(wasm.OpReturnCallIndirect):
			if in.Op == rir.Op(wasm.OpReturnCallIndirect) {
				funcIdx, err := host.ResolveIndirect(in.B, in.A, uint32(regs[in.TableReg]))
				if err != nil {
					return nil, err
				}
				return nil, &TailCall{FuncIdx: funcIdx, Args: gatherRegs(regs, in.Args)}
			}
			res, err := host.CallIndirect(in.B, in.A, uint32(regs[in.TableReg]), gatherRegs(regs, in.Args))
			if err != nil {
				return nil, err
			}
			scatterRegs(regs, in.Results, res)
			pc++
			continue

		case rir.Op(wasm.OpGlobalGet):
			regs[in.Dst] = host.GlobalGet(in.A)
			pc++
			continue

		case rir.Op(wasm.OpGlobalSet):
			host.GlobalSet(in.A, regs[in.Src1])
			pc++
			continue

		case rir.Op(wasm.OpTableGet):
			v, err := host.Table(in.A).Get(uint32(regs[in.Src1]))
			if err != nil {
				return nil, err
			}
			regs[in.Dst] = v
			pc++
			continue

		case rir.Op(wasm.OpTableSet):
			if err := host.Table(in.A).Set(uint32(regs[in.Src1]), regs[in.Src2]); err != nil {
				return nil, err
			}
			pc++
			continue

		case rir.Op(wasm.OpMemorySize):
			regs[in.Dst] = host.Memory(in.A).Size()
			pc++
			continue

		case rir.Op(wasm.OpMemoryGrow):
			regs[in.Dst] = host.Memory(in.A).Grow(regs[in.Src1])
			pc++
			continue

		case rir.Op(wasm.OpI32Const), rir.Op(wasm.OpI64Const), rir.Op(wasm.OpF32Const), rir.Op(wasm.OpF64Const), rir.Op(wasm.OpRefNull):
			regs[in.Dst] = in.Imm
			pc++
			continue

		case rir.Op(wasm.OpRefFunc):
			regs[in.Dst] = uint64(in.A) | refFuncTag
			pc++
			continue

		case rir.Op(wasm.OpRefIsNull):
			regs[in.Dst] = b2u(regs[in.Src1] == 0)
			pc++
			continue

		case rir.Op(wasm.OpRefAsNonNull):
			if regs[in.Src1] == 0 {
				return nil, errors.New(errors.PhaseExecute, errors.KindNilPointer).
					Detail("ref.as_non_null of a null reference").Build()
			}
			regs[in.Dst] = regs[in.Src1]
			pc++
			continue

		case rir.Op(wasm.OpRefEq):
			regs[in.Dst] = b2u(regs[in.Src1] == regs[in.Src2])
			pc++
			continue
		}

		if isLoadStoreOp(byte(in.Op)) {
			if err := stepMemOpRIR(in, regs, host); err != nil {
				return nil, err
			}
			pc++
			continue
		}

		if err := stepNumericRIR(in, regs); err != nil {
			return nil, err
		}
		pc++
	}

	return nil, nil
}

func gatherRegs(regs []uint64, vs []rir.VReg) []uint64 {
	if len(vs) == 0 {
		return nil
	}
	out := make([]uint64, len(vs))
	for i, v := range vs {
		out[i] = regs[v]
	}
	return out
}

func scatterRegs(regs []uint64, dsts []rir.VReg, vals []uint64) {
	for i, d := range dsts {
		regs[d] = vals[i]
	}
}

func evalCmp(c rir.Cmp, lhs, rhs uint64) (bool, error) {
	var op byte
	switch c {
	case rir.CmpI32Eq:
		op = wasm.OpI32Eq
	case rir.CmpI32Ne:
		op = wasm.OpI32Ne
	case rir.CmpI32LtS:
		op = wasm.OpI32LtS
	case rir.CmpI32LtU:
		op = wasm.OpI32LtU
	case rir.CmpI32GtS:
		op = wasm.OpI32GtS
	case rir.CmpI32GtU:
		op = wasm.OpI32GtU
	case rir.CmpI32LeS:
		op = wasm.OpI32LeS
	case rir.CmpI32LeU:
		op = wasm.OpI32LeU
	case rir.CmpI32GeS:
		op = wasm.OpI32GeS
	case rir.CmpI32GeU:
		op = wasm.OpI32GeU
	case rir.CmpI64Eq:
		op = wasm.OpI64Eq
	case rir.CmpI64Ne:
		op = wasm.OpI64Ne
	case rir.CmpI64LtS:
		op = wasm.OpI64LtS
	case rir.CmpI64LtU:
		op = wasm.OpI64LtU
	case rir.CmpI64GtS:
		op = wasm.OpI64GtS
	case rir.CmpI64GtU:
		op = wasm.OpI64GtU
	case rir.CmpI64LeS:
		op = wasm.OpI64LeS
	case rir.CmpI64LeU:
		op = wasm.OpI64LeU
	case rir.CmpI64GeS:
		op = wasm.OpI64GeS
	case rir.CmpI64GeU:
		op = wasm.OpI64GeU
	}
	v, err := applyCompareBits(op, lhs, rhs)
	return v != 0, err
}

func stepMemOpRIR(in rir.Instruction, regs []uint64, host Host) error {
	op := byte(in.Op)
	if op >= wasm.OpI32Store && op <= wasm.OpI64Store32 {
		width := storeWidthFor(op)
		return storeWidth(regs[in.Src1], in.MemOffset, regs[in.Src2], width, host.Memory(in.B))
	}
	v, err := doLoad(op, regs[in.Src1], in.MemOffset, host.Memory(in.B))
	if err != nil {
		return err
	}
	regs[in.Dst] = v
	return nil
}

func stepNumericRIR(in rir.Instruction, regs []uint64) error {
	op := byte(in.Op)
	if isUnaryOp(op) {
		r, err := applyUnary(op, regs[in.Src1])
		if err != nil {
			return err
		}
		regs[in.Dst] = r
		return nil
	}
	rhs := in.Imm
	if !in.RHSIsImm {
		rhs = regs[in.Src2]
	}
	r, err := applyBinary(op, regs[in.Src1], rhs)
	if err != nil {
		return err
	}
	regs[in.Dst] = r
	return nil
}
