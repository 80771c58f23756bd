package jit

import (
	"encoding/binary"

	"github.com/arwen-wasm/arwen/regalloc"
	"github.com/arwen-wasm/arwen/rir"
	"github.com/arwen-wasm/arwen/wasm"
)

// AArch64 has no pack-grounded assembler library behind it (golang-asm's
// arm64 backend is untested in this corpus), so this backend hand-encodes
// the handful of instruction forms it needs directly as 32-bit words,
// following the standard AArch64 encoding tables rather than any example
// source. Scope and the frame-memory-operand convention mirror amd64.go.
const (
	regScratchA = 0  // X0
	regScratchB = 1  // X1
	regFrame    = 28 // X28, reserved as "frame" in regalloc's register map
	regZero     = 31 // XZR / WZR depending on instruction width
)

// arm64Asm accumulates machine words and resolves forward/backward branches
// in a second pass, mirroring branchTo/markStart in amd64.go but working in
// word indices instead of *obj.Prog pointers.
type arm64Asm struct {
	words  []uint32
	starts []int // prog.Code index -> word index, -1 until emitted
	// fixups records word indices that need their branch-offset field
	// patched once the target's word index is known.
	fixups []arm64Fixup
}

type arm64Fixup struct {
	word   int // index into a.words holding the branch instruction
	target int // prog.Code index being branched to
	kind   arm64BranchKind
}

type arm64BranchKind byte

const (
	branchUncond arm64BranchKind = iota // B, imm26
	branchCond                          // B.cond, imm19, low 4 bits already hold cond
	branchCBZ                           // CBZ, imm19
	branchCBNZ                          // CBNZ, imm19
)

func (a *arm64Asm) emit(w uint32) int {
	a.words = append(a.words, w)
	return len(a.words) - 1
}

func (a *arm64Asm) markStart(i int) {
	a.starts[i] = len(a.words)
}

func (a *arm64Asm) branch(kind arm64BranchKind, target int, condOrZero uint32) {
	idx := a.emit(condOrZero) // placeholder; patched in resolve()
	a.fixups = append(a.fixups, arm64Fixup{word: idx, target: target, kind: kind})
}

func (a *arm64Asm) resolve() error {
	// rir.Build remaps every branch target to a valid index into
	// prog.Code before returning it, so f.target is always in range here.
	for _, f := range a.fixups {
		targetWord := a.starts[f.target]
		delta := int32(targetWord - f.word)
		switch f.kind {
		case branchUncond:
			a.words[f.word] = 0x14000000 | (uint32(delta) & 0x03FFFFFF)
		case branchCond:
			cond := a.words[f.word] & 0xF
			a.words[f.word] = 0x54000000 | ((uint32(delta) & 0x7FFFF) << 5) | cond
		case branchCBZ:
			rt := a.words[f.word] & 0x1F
			a.words[f.word] = 0xB4000000 | ((uint32(delta) & 0x7FFFF) << 5) | rt
		case branchCBNZ:
			rt := a.words[f.word] & 0x1F
			a.words[f.word] = 0xB5000000 | ((uint32(delta) & 0x7FFFF) << 5) | rt
		}
	}
	return nil
}

func (a *arm64Asm) bytes() []byte {
	buf := make([]byte, len(a.words)*4)
	for i, w := range a.words {
		binary.LittleEndian.PutUint32(buf[i*4:], w)
	}
	return buf
}

func ldrX(rt, rn byte, vregOffset uint32) uint32 {
	return 0xF9400000 | (vregOffset&0xFFF)<<10 | uint32(rn)<<5 | uint32(rt)
}

func strX(rt, rn byte, vregOffset uint32) uint32 {
	return 0xF9000000 | (vregOffset&0xFFF)<<10 | uint32(rn)<<5 | uint32(rt)
}

func movz(rd byte, imm16 uint16) uint32 {
	return 0xD2800000 | uint32(imm16)<<5 | uint32(rd)
}

func movk(rd byte, imm16 uint16, shift uint) uint32 {
	hw := uint32(shift / 16)
	return 0xF2800000 | hw<<21 | uint32(imm16)<<5 | uint32(rd)
}

func addReg(rd, rn, rm byte) uint32 { return 0x8B000000 | uint32(rm)<<16 | uint32(rn)<<5 | uint32(rd) }
func subReg(rd, rn, rm byte) uint32 { return 0xCB000000 | uint32(rm)<<16 | uint32(rn)<<5 | uint32(rd) }
func mulReg(rd, rn, rm byte) uint32 {
	return 0x9B000000 | uint32(rm)<<16 | uint32(regZero)<<10 | uint32(rn)<<5 | uint32(rd)
}
func cmpReg(rn, rm byte) uint32 {
	return 0xEB000000 | uint32(rm)<<16 | uint32(rn)<<5 | uint32(regZero)
}

const retInstr = 0xD65F03C0

// arm64Cond maps a comparison to its AArch64 condition-code nibble.
func arm64Cond(c rir.Cmp) uint32 {
	switch c {
	case rir.CmpI32Eq, rir.CmpI64Eq:
		return 0x0 // EQ
	case rir.CmpI32Ne, rir.CmpI64Ne:
		return 0x1 // NE
	case rir.CmpI32LtS, rir.CmpI64LtS:
		return 0xB // LT
	case rir.CmpI32LtU, rir.CmpI64LtU:
		return 0x3 // LO/CC
	case rir.CmpI32GtS, rir.CmpI64GtS:
		return 0xC // GT
	case rir.CmpI32GtU, rir.CmpI64GtU:
		return 0x8 // HI
	case rir.CmpI32LeS, rir.CmpI64LeS:
		return 0xD // LE
	case rir.CmpI32LeU, rir.CmpI64LeU:
		return 0x9 // LS
	case rir.CmpI32GeS, rir.CmpI64GeS:
		return 0xA // GE
	default: // CmpI32GeU, CmpI64GeU
		return 0x2 // HS/CS
	}
}

// loadImm64 materializes an arbitrary 64-bit immediate into rd via a
// MOVZ/MOVK sequence, emitting only the chunks actually needed.
func (a *arm64Asm) loadImm64(rd byte, imm uint64) {
	a.emit(movz(rd, uint16(imm)))
	for shift := uint(16); shift < 64; shift += 16 {
		chunk := uint16(imm >> shift)
		if chunk != 0 {
			a.emit(movk(rd, chunk, shift))
		}
	}
}

func arm64ArithOp(op byte) (func(rd, rn, rm byte) uint32, bool) {
	switch op {
	case wasm.OpI32Add, wasm.OpI64Add:
		return addReg, true
	case wasm.OpI32Sub, wasm.OpI64Sub:
		return subReg, true
	case wasm.OpI32Mul, wasm.OpI64Mul:
		return mulReg, true
	default:
		return nil, false
	}
}

func compileARM64(prog *rir.Program, alloc *regalloc.Allocation) (*Compiled, error) {
	a := &arm64Asm{starts: make([]int, len(prog.Code))}

	emitReturn := func(in rir.Instruction) {
		if len(in.Results) > 0 {
			// frame slot 0 doubles as the result-output slot by convention,
			// same as amd64.go's emitReturn.
			a.emit(ldrX(regScratchA, regFrame, uint32(in.Results[0])))
			a.emit(strX(regScratchA, regFrame, 0))
		}
		a.loadImm64(regScratchA, statusOK)
		a.emit(retInstr)
	}

	for i, in := range prog.Code {
		a.markStart(i)

		switch {
		case in.Op == rir.OpMove:
			a.emit(ldrX(regScratchA, regFrame, uint32(in.Src1)))
			a.emit(strX(regScratchA, regFrame, uint32(in.Dst)))

		case in.Op == rir.OpBrCmp:
			a.emit(ldrX(regScratchA, regFrame, uint32(in.Src1)))
			if in.RHSIsImm {
				a.loadImm64(regScratchB, in.Imm)
			} else {
				a.emit(ldrX(regScratchB, regFrame, uint32(in.Src2)))
			}
			a.emit(cmpReg(regScratchA, regScratchB))
			a.branch(branchCond, int(in.A), arm64Cond(in.Cmp))

		case in.Op == rir.OpBrIfFalse:
			a.emit(ldrX(regScratchA, regFrame, uint32(in.Src1)))
			a.branch(branchCBZ, int(in.A), uint32(regScratchA))

		case byte(in.Op) == wasm.OpBrIf:
			a.emit(ldrX(regScratchA, regFrame, uint32(in.Src1)))
			a.branch(branchCBNZ, int(in.A), uint32(regScratchA))

		case byte(in.Op) == wasm.OpBr:
			a.branch(branchUncond, int(in.A), 0)

		case in.Op == rir.OpReturn:
			emitReturn(in)

		case in.Op == rir.OpReturnIf:
			// Skip-then-return: resolved immediately rather than through the
			// fixups table since both ends of this branch are known the
			// instant emitReturn finishes, with no other prog.Code target in
			// between.
			a.emit(ldrX(regScratchA, regFrame, uint32(in.Src1)))
			skipIdx := a.emit(0)
			emitReturn(in)
			delta := int32(len(a.words) - skipIdx)
			a.words[skipIdx] = 0xB4000000 | ((uint32(delta) & 0x7FFFF) << 5) | uint32(regScratchA)

		default:
			if mk, ok := arm64ArithOp(byte(in.Op)); ok {
				a.emit(ldrX(regScratchA, regFrame, uint32(in.Src1)))
				if in.RHSIsImm {
					a.loadImm64(regScratchB, in.Imm)
				} else {
					a.emit(ldrX(regScratchB, regFrame, uint32(in.Src2)))
				}
				a.emit(mk(regScratchA, regScratchA, regScratchB))
				a.emit(strX(regScratchA, regFrame, uint32(in.Dst)))
				break
			}
			return nil, ErrUnsupported
		}
	}
	// Epilogue for a function without results, which can run past its last
	// instruction (rir.Build appends a closing OpReturn only when there are
	// results to return).
	emitReturn(rir.Instruction{})

	if err := a.resolve(); err != nil {
		return nil, err
	}

	code, err := allocateExecutable(a.bytes())
	if err != nil {
		return nil, err
	}
	return &Compiled{
		code:   code,
		arch:   regalloc.ArchARM64,
		nLocal: prog.NumLocals,
		nSlots: prog.NumRegs - prog.NumLocals,
	}, nil
}
