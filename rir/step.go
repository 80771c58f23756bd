package rir

import (
	"github.com/arwen-wasm/arwen/errors"
	"github.com/arwen-wasm/arwen/pir"
	"github.com/arwen-wasm/arwen/wasm"
)

// resultRegs returns (a copy of) the top n registers of the simulated
// stack, in result order, without popping them — used when a control
// instruction exits the function and the remaining stack depth no longer
// matters.
func (b *builder) resultRegs(n int) []VReg {
	if n == 0 {
		return nil
	}
	out := make([]VReg, n)
	copy(out, b.stack[len(b.stack)-n:])
	return out
}

func (b *builder) step(in pir.Instruction, pirIdx int) error {
	isOuterTarget := int(in.A) == len(b.src.Code)

	switch in.Op {
	case pir.OpTryTableMark:
		return errors.New(errors.PhasePredecode, errors.KindUnsupported).
			Detail("try_table has no register-IR lowering; exception-bearing functions stay on the PIR interpreter tier").
			Build()

	case pir.Op(wasm.OpThrow), pir.Op(wasm.OpThrowRef):
		return errors.New(errors.PhasePredecode, errors.KindUnsupported).
			Detail("throw/throw_ref have no register-IR lowering; exception-bearing functions stay on the PIR interpreter tier").
			Build()

	case pir.OpBrIfFalse:
		cond := b.pop()
		b.emit(Instruction{Op: OpBrIfFalse, Src1: cond, A: in.A}, pirIdx)
		return nil

	case pir.Op(wasm.OpBr):
		if isOuterTarget {
			b.emit(Instruction{Op: OpReturn, Results: b.resultRegs(b.src.NumResults)}, pirIdx)
			return nil
		}
		b.emit(Instruction{Op: Op(wasm.OpBr), A: in.A}, pirIdx)
		return nil

	case pir.Op(wasm.OpBrIf):
		cond := b.pop()
		if isOuterTarget {
			b.emit(Instruction{Op: OpReturnIf, Src1: cond, Results: b.resultRegs(b.src.NumResults)}, pirIdx)
			return nil
		}
		if idx, ok := b.foldableProducer(cond, pirIdx); ok {
			if cmp, isCmp := cmpForOp(pir.Op(b.out[idx].Op)); isCmp {
				prod := b.out[idx]
				b.out = b.out[:idx]
				b.srcI = b.srcI[:idx]
				b.emit(Instruction{Op: OpBrCmp, Src1: prod.Src1, Src2: prod.Src2, RHSIsImm: prod.RHSIsImm, Imm: prod.Imm, Cmp: cmp, A: in.A}, pirIdx)
				return nil
			}
		}
		b.emit(Instruction{Op: Op(wasm.OpBrIf), Src1: cond, A: in.A}, pirIdx)
		return nil

	case pir.Op(wasm.OpBrTable):
		idx := b.pop()
		b.emit(Instruction{Op: Op(wasm.OpBrTable), Src1: idx, A: in.A, B: in.B}, pirIdx)
		return nil

	case pir.Op(wasm.OpReturn):
		b.emit(Instruction{Op: OpReturn, Results: b.resultRegs(b.src.NumResults)}, pirIdx)
		return nil

	case pir.Op(wasm.OpUnreachable), pir.Op(wasm.OpNop):
		b.emit(Instruction{Op: Op(in.Op)}, pirIdx)
		return nil

	case pir.Op(wasm.OpDrop):
		b.pop()
		return nil

	case pir.Op(wasm.OpSelect), pir.Op(wasm.OpSelectType):
		cond := b.pop()
		v2 := b.pop()
		v1 := b.pop()
		dst := b.newReg()
		b.emit(Instruction{Op: Op(in.Op), Dst: dst, Src1: v1, Src2: v2, A: uint32(cond)}, pirIdx)
		b.producer[dst] = len(b.out) - 1
		b.push(dst)
		return nil

	case pir.Op(wasm.OpCall):
		nParams, nResults := b.sig.FuncArity(in.A)
		b.callLike(Op(wasm.OpCall), in.A, 0, 0, false, callSig{nParams, nResults}, pirIdx)
		return nil

	case pir.Op(wasm.OpReturnCall):
		nParams, _ := b.sig.FuncArity(in.A)
		args := b.popArgs(nParams)
		b.emit(Instruction{Op: Op(wasm.OpReturnCall), A: in.A, Args: args}, pirIdx)
		return nil

	case pir.Op(wasm.OpCallIndirect):
		tableReg := b.pop()
		nParams, nResults := b.sig.TypeArity(in.A)
		b.callLike(Op(wasm.OpCallIndirect), in.A, in.B, tableReg, true, callSig{nParams, nResults}, pirIdx)
		return nil

	case pir.Op(wasm.OpReturnCallIndirect):
		tableReg := b.pop()
		nParams, _ := b.sig.TypeArity(in.A)
		args := b.popArgs(nParams)
		b.emit(Instruction{Op: Op(wasm.OpReturnCallIndirect), A: in.A, B: in.B, Args: args, TableReg: tableReg}, pirIdx)
		return nil

	case pir.Op(wasm.OpLocalGet):
		b.push(VReg(in.A))
		return nil

	case pir.Op(wasm.OpLocalSet), pir.Op(wasm.OpLocalTee):
		v := b.pop()
		local := VReg(in.A)
		if idx, ok := b.foldableProducer(v, pirIdx); ok && v != local {
			b.out[idx].Dst = local
			delete(b.producer, v)
			b.producer[local] = idx
		} else {
			b.emit(Instruction{Op: OpMove, Dst: local, Src1: v}, pirIdx)
		}
		if in.Op == pir.Op(wasm.OpLocalTee) {
			b.push(local)
		}
		return nil

	case pir.Op(wasm.OpGlobalGet):
		dst := b.newReg()
		b.emit(Instruction{Op: Op(in.Op), Dst: dst, A: in.A}, pirIdx)
		b.producer[dst] = len(b.out) - 1
		b.push(dst)
		return nil

	case pir.Op(wasm.OpGlobalSet):
		v := b.pop()
		b.emit(Instruction{Op: Op(in.Op), Src1: v, A: in.A}, pirIdx)
		return nil

	case pir.Op(wasm.OpTableGet):
		idx := b.pop()
		dst := b.newReg()
		b.emit(Instruction{Op: Op(in.Op), Dst: dst, Src1: idx, A: in.A}, pirIdx)
		b.producer[dst] = len(b.out) - 1
		b.push(dst)
		return nil

	case pir.Op(wasm.OpTableSet):
		v := b.pop()
		idx := b.pop()
		b.emit(Instruction{Op: Op(in.Op), Src1: idx, Src2: v, A: in.A}, pirIdx)
		return nil

	case pir.Op(wasm.OpMemorySize):
		dst := b.newReg()
		b.emit(Instruction{Op: Op(in.Op), Dst: dst, A: in.A}, pirIdx)
		b.producer[dst] = len(b.out) - 1
		b.push(dst)
		return nil

	case pir.Op(wasm.OpMemoryGrow):
		v := b.pop()
		dst := b.newReg()
		b.emit(Instruction{Op: Op(in.Op), Dst: dst, Src1: v, A: in.A}, pirIdx)
		b.producer[dst] = len(b.out) - 1
		b.push(dst)
		return nil

	case pir.Op(wasm.OpI32Const), pir.Op(wasm.OpI64Const), pir.Op(wasm.OpF32Const), pir.Op(wasm.OpF64Const):
		dst := b.newReg()
		b.emit(Instruction{Op: Op(in.Op), Dst: dst, RHSIsImm: true, Imm: in.Const}, pirIdx)
		b.producer[dst] = len(b.out) - 1
		b.push(dst)
		return nil

	case pir.Op(wasm.OpRefNull):
		dst := b.newReg()
		b.emit(Instruction{Op: Op(in.Op), Dst: dst, RHSIsImm: true, Imm: in.Const}, pirIdx)
		b.producer[dst] = len(b.out) - 1
		b.push(dst)
		return nil

	case pir.Op(wasm.OpRefFunc):
		dst := b.newReg()
		b.emit(Instruction{Op: Op(in.Op), Dst: dst, A: in.A}, pirIdx)
		b.producer[dst] = len(b.out) - 1
		b.push(dst)
		return nil

	case pir.Op(wasm.OpRefIsNull), pir.Op(wasm.OpRefAsNonNull):
		v := b.pop()
		dst := b.newReg()
		b.emit(Instruction{Op: Op(in.Op), Dst: dst, Src1: v}, pirIdx)
		b.producer[dst] = len(b.out) - 1
		b.push(dst)
		return nil

	case pir.Op(wasm.OpRefEq):
		rhs := b.pop()
		lhs := b.pop()
		dst := b.newReg()
		b.emit(Instruction{Op: Op(in.Op), Dst: dst, Src1: lhs, Src2: rhs}, pirIdx)
		b.producer[dst] = len(b.out) - 1
		b.push(dst)
		return nil
	}

	if op := byte(in.Op); isLoadOp(op) {
		addr := b.pop()
		dst := b.newReg()
		b.emit(Instruction{Op: Op(in.Op), Dst: dst, Src1: addr, MemOffset: in.MemOffset, MemAlign: in.MemAlign, B: in.B}, pirIdx)
		b.producer[dst] = len(b.out) - 1
		b.push(dst)
		return nil
	}
	if op := byte(in.Op); isStoreOp(op) {
		val := b.pop()
		addr := b.pop()
		b.emit(Instruction{Op: Op(in.Op), Src1: addr, Src2: val, MemOffset: in.MemOffset, MemAlign: in.MemAlign, B: in.B}, pirIdx)
		return nil
	}

	b.unaryOrBinary(in, pirIdx)
	return nil
}

// unaryOrBinary handles every remaining numeric/comparison/conversion
// opcode, applying the constant-folding peephole for binary ops whose
// right-hand operand is an immediately preceding, single-use constant.
func (b *builder) unaryOrBinary(in pir.Instruction, pirIdx int) {
	if isBinaryOp(in.Op) {
		rhs := b.pop()
		lhs := b.pop()
		dst := b.newReg()
		ins := Instruction{Op: Op(in.Op), Dst: dst, Src1: lhs}
		if idx, ok := b.foldableProducer(rhs, pirIdx); ok && isConstOp(pir.Op(b.out[idx].Op)) {
			ins.RHSIsImm = true
			ins.Imm = b.out[idx].Imm
			b.out = b.out[:idx]
			b.srcI = b.srcI[:idx]
		} else {
			ins.Src2 = rhs
		}
		b.emit(ins, pirIdx)
		b.producer[dst] = len(b.out) - 1
		b.push(dst)
		return
	}

	// unary: clz/ctz/popcnt, float unary ops, conversions, sign extension.
	v := b.pop()
	dst := b.newReg()
	b.emit(Instruction{Op: Op(in.Op), Dst: dst, Src1: v}, pirIdx)
	b.producer[dst] = len(b.out) - 1
	b.push(dst)
}

func isLoadOp(op byte) bool {
	return op >= wasm.OpI32Load && op <= wasm.OpI64Load32U
}

func isStoreOp(op byte) bool {
	return op >= wasm.OpI32Store && op <= wasm.OpI64Store32
}

// popArgs pops n argument registers off the simulated stack, returning them
// in call order (left to right).
func (b *builder) popArgs(n int) []VReg {
	if n == 0 {
		return nil
	}
	args := make([]VReg, n)
	for i := n - 1; i >= 0; i-- {
		args[i] = b.pop()
	}
	return args
}

// callLike emits a call or call_indirect. isIndirect selects whether
// tableReg (the table-index value popped ahead of the arguments) is
// meaningful.
func (b *builder) callLike(op Op, a, c uint32, tableReg VReg, isIndirect bool, sig callSig, pirIdx int) {
	args := b.popArgs(sig.nParams)
	dsts := make([]VReg, sig.nResults)
	for i := range dsts {
		dsts[i] = b.newReg()
	}
	ins := Instruction{Op: op, A: a, B: c, Args: args, Results: dsts}
	if isIndirect {
		ins.TableReg = tableReg
	}
	b.emit(ins, pirIdx)
	idx := len(b.out) - 1
	for _, d := range dsts {
		b.producer[d] = idx
		b.push(d)
	}
}

// callSig is the minimal call-shape information the builder needs: how many
// values to pop as arguments and how many fresh registers to push as
// results, as reported by the SigResolver passed to Build.
type callSig struct {
	nParams  int
	nResults int
}
