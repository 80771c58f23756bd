package rir

import (
	"github.com/arwen-wasm/arwen/pir"
	"github.com/arwen-wasm/arwen/wasm"
)

// cmpForOp maps a comparison opcode to its Cmp constant, or ok=false for
// anything else.
func cmpForOp(op pir.Op) (Cmp, bool) {
	switch byte(op) {
	case wasm.OpI32Eq:
		return CmpI32Eq, true
	case wasm.OpI32Ne:
		return CmpI32Ne, true
	case wasm.OpI32LtS:
		return CmpI32LtS, true
	case wasm.OpI32LtU:
		return CmpI32LtU, true
	case wasm.OpI32GtS:
		return CmpI32GtS, true
	case wasm.OpI32GtU:
		return CmpI32GtU, true
	case wasm.OpI32LeS:
		return CmpI32LeS, true
	case wasm.OpI32LeU:
		return CmpI32LeU, true
	case wasm.OpI32GeS:
		return CmpI32GeS, true
	case wasm.OpI32GeU:
		return CmpI32GeU, true
	case wasm.OpI64Eq:
		return CmpI64Eq, true
	case wasm.OpI64Ne:
		return CmpI64Ne, true
	case wasm.OpI64LtS:
		return CmpI64LtS, true
	case wasm.OpI64LtU:
		return CmpI64LtU, true
	case wasm.OpI64GtS:
		return CmpI64GtS, true
	case wasm.OpI64GtU:
		return CmpI64GtU, true
	case wasm.OpI64LeS:
		return CmpI64LeS, true
	case wasm.OpI64LeU:
		return CmpI64LeU, true
	case wasm.OpI64GeS:
		return CmpI64GeS, true
	case wasm.OpI64GeU:
		return CmpI64GeU, true
	}
	return 0, false
}

func isConstOp(op pir.Op) bool {
	return byte(op) == wasm.OpI32Const || byte(op) == wasm.OpI64Const
}

func isBinaryOp(op pir.Op) bool {
	b := byte(op)
	// Arithmetic/bitwise binary ops and comparisons both pop two operands;
	// everything from i32.eq (0x46) through i64.rotr (0x8A) is binary except
	// the unary ops interleaved in that range (clz/ctz/popcnt, and the
	// float unary ops below f32.add). The builder only needs "binary" to
	// decide how many operands to pop, so list the unary exceptions.
	switch b {
	case wasm.OpI32Eqz, wasm.OpI64Eqz,
		wasm.OpI32Clz, wasm.OpI32Ctz, wasm.OpI32Popcnt,
		wasm.OpI64Clz, wasm.OpI64Ctz, wasm.OpI64Popcnt,
		wasm.OpF32Abs, wasm.OpF32Neg, wasm.OpF32Ceil, wasm.OpF32Floor, wasm.OpF32Trunc, wasm.OpF32Nearest, wasm.OpF32Sqrt,
		wasm.OpF64Abs, wasm.OpF64Neg, wasm.OpF64Ceil, wasm.OpF64Floor, wasm.OpF64Trunc, wasm.OpF64Nearest, wasm.OpF64Sqrt:
		return false
	}
	return b >= wasm.OpI32Eq && b <= 0xA6 // through f64.copysign; conversions (0xA7+) are unary
}

// SigResolver answers the arity questions the builder needs for call sites;
// pir.Program only knows its own function's signature, so arities for
// call/call_indirect targets come from the owning module (see
// vm.Module.FuncArity/TypeArity).
type SigResolver interface {
	FuncArity(funcIdx uint32) (nParams, nResults int)
	TypeArity(typeIdx uint32) (nParams, nResults int)
}

// builder holds the state threaded through one function's translation.
type builder struct {
	src  *pir.Program
	sig  SigResolver
	out  []Instruction
	srcI []int

	stack    []VReg
	nextReg  int
	producer map[VReg]int // temp vreg -> index in out of its defining instruction
	jumpTgt  map[int]bool // pir indices reachable by a branch, not just fallthrough

	pirToRir []int // pir index -> rir index at the start of its translation
}

func (b *builder) push(v VReg) { b.stack = append(b.stack, v) }

func (b *builder) pop() VReg {
	v := b.stack[len(b.stack)-1]
	b.stack = b.stack[:len(b.stack)-1]
	return v
}

func (b *builder) newReg() VReg {
	r := VReg(b.nextReg)
	b.nextReg++
	return r
}

func (b *builder) emit(ins Instruction, pirIdx int) int {
	idx := len(b.out)
	b.out = append(b.out, ins)
	b.srcI = append(b.srcI, pirIdx)
	return idx
}

// foldableProducer returns the index in b.out of v's defining instruction
// and true, if v is a temp register produced by the single most recently
// emitted instruction, is not a branch target, and therefore safe to fold
// into (or remove in favor of) whatever instruction consumes it next.
func (b *builder) foldableProducer(v VReg, pirIdx int) (int, bool) {
	idx, ok := b.producer[v]
	if !ok || idx != len(b.out)-1 {
		return 0, false
	}
	if b.jumpTgt[b.srcI[idx]] {
		return 0, false
	}
	return idx, true
}

// Build lowers a predecoded function into register form. sig resolves the
// arity of any function or type index a call/call_indirect in p references.
func Build(p *pir.Program, sig SigResolver) (*Program, error) {
	b := &builder{
		src:      p,
		sig:      sig,
		stack:    make([]VReg, 0, 16),
		nextReg:  p.NumLocals,
		producer: make(map[VReg]int),
		jumpTgt:  collectJumpTargets(p),
		pirToRir: make([]int, len(p.Code)+1),
	}

	for i, in := range p.Code {
		b.pirToRir[i] = len(b.out)
		if err := b.step(in, i); err != nil {
			return nil, err
		}
	}
	b.pirToRir[len(p.Code)] = len(b.out)

	// Control falling off the end of a function with results returns the
	// values on top of the simulated stack, exactly like an explicit return.
	if n := len(b.out); p.NumResults > 0 && len(b.stack) >= p.NumResults && (n == 0 || b.out[n-1].Op != OpReturn) {
		b.emit(Instruction{Op: OpReturn, Results: b.resultRegs(p.NumResults)}, len(p.Code)-1)
	}

	// Pass 2: remap every branch target from a pir index to the rir index
	// recorded for it above.
	brTables := make([]BrTable, len(p.BrTables))
	for i, bt := range p.BrTables {
		targets := make([]uint32, len(bt.Targets))
		for j, t := range bt.Targets {
			targets[j] = uint32(b.pirToRir[t])
		}
		brTables[i] = BrTable{Targets: targets}
	}
	for i := range b.out {
		switch b.out[i].Op {
		case Op(wasm.OpBr), Op(wasm.OpBrIf), OpBrIfFalse, OpBrCmp:
			b.out[i].A = uint32(b.pirToRir[b.out[i].A])
		case Op(wasm.OpBrTable):
			// A already indexes brTables, which were remapped above.
		}
	}

	return &Program{
		Code:        b.out,
		SourceIndex: b.srcI,
		NumLocals:   p.NumLocals,
		NumParams:   p.NumParams,
		NumRegs:     b.nextReg,
		BrTables:    brTables,
	}, nil
}

// collectJumpTargets gathers every pir index any branch in p can land on.
func collectJumpTargets(p *pir.Program) map[int]bool {
	targets := map[int]bool{}
	for _, in := range p.Code {
		switch in.Op {
		case pir.OpBrIfFalse, pir.Op(wasm.OpBr), pir.Op(wasm.OpBrIf):
			targets[int(in.A)] = true
		case pir.Op(wasm.OpBrTable):
			for _, t := range p.BrTables[in.A].Targets {
				targets[int(t)] = true
			}
		}
	}
	return targets
}
