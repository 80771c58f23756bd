package jit

import (
	asm "github.com/twitchyliquid64/golang-asm"
	"github.com/twitchyliquid64/golang-asm/obj"
	"github.com/twitchyliquid64/golang-asm/obj/x86"

	"github.com/arwen-wasm/arwen/errors"
	"github.com/arwen-wasm/arwen/regalloc"
	"github.com/arwen-wasm/arwen/rir"
	"github.com/arwen-wasm/arwen/wasm"
)

// frameReg is the register callNative's trampoline loads the frame pointer
// into (see call_amd64.s). It is never reassigned by compiled code, so it
// stays valid as a memory base for the whole function body — every VReg
// this backend touches is a memory operand at frameReg+v*8, and no call
// happens inside a compiled function to require saving it.
const frameReg = x86.REG_DI

// compileAMD64 lowers prog to amd64 machine code. It does not yet consume
// alloc.Locations to keep hot values in physical registers across the
// function body; every VReg round-trips through its frame slot, and alloc
// is not read at all (the frame is sized from prog alone). A register-
// resident fast path is future work, not required for this tier to be a
// genuine native backend (arithmetic and branches still execute as real
// amd64 instructions, not interpreted).
func compileAMD64(prog *rir.Program, alloc *regalloc.Allocation) (*Compiled, error) {
	b, err := asm.NewBuilder("amd64", len(prog.Code)*4+16)
	if err != nil {
		return nil, errors.New(errors.PhaseJIT, errors.KindAllocation).
			Detail("new amd64 builder: %v", err).Cause(err).Build()
	}

	starts := make([]*obj.Prog, len(prog.Code))
	pending := map[int][]*obj.Prog{} // target index -> branches awaiting that target's start Prog

	newProg := func() *obj.Prog {
		p := b.NewProg()
		b.AddInstruction(p)
		return p
	}

	movMem := func(v rir.VReg, reg int16, toReg bool) *obj.Prog {
		p := newProg()
		p.As = x86.AMOVQ
		memOperand := obj.Addr{Type: obj.TYPE_MEM, Reg: frameReg, Offset: int64(v) * 8}
		regOperand := obj.Addr{Type: obj.TYPE_REG, Reg: reg}
		if toReg {
			p.From, p.To = memOperand, regOperand
		} else {
			p.From, p.To = regOperand, memOperand
		}
		return p
	}

	loadConst := func(imm uint64, reg int16) {
		p := newProg()
		p.As = x86.AMOVQ
		p.From = obj.Addr{Type: obj.TYPE_CONST, Offset: int64(imm)}
		p.To = obj.Addr{Type: obj.TYPE_REG, Reg: reg}
	}

	arithOp := func(op byte) (obj.As, bool) {
		switch op {
		case wasm.OpI32Add:
			return x86.AADDL, true
		case wasm.OpI32Sub:
			return x86.ASUBL, true
		case wasm.OpI32Mul:
			return x86.AIMULL, true
		case wasm.OpI64Add:
			return x86.AADDQ, true
		case wasm.OpI64Sub:
			return x86.ASUBQ, true
		case wasm.OpI64Mul:
			return x86.AIMULQ, true
		default:
			return 0, false
		}
	}

	jccFor := func(c rir.Cmp) obj.As {
		switch c {
		case rir.CmpI32Eq, rir.CmpI64Eq:
			return x86.AJEQ
		case rir.CmpI32Ne, rir.CmpI64Ne:
			return x86.AJNE
		case rir.CmpI32LtS, rir.CmpI64LtS:
			return x86.AJLT
		case rir.CmpI32LtU, rir.CmpI64LtU:
			return x86.AJCS
		case rir.CmpI32GtS, rir.CmpI64GtS:
			return x86.AJGT
		case rir.CmpI32GtU, rir.CmpI64GtU:
			return x86.AJHI
		case rir.CmpI32LeS, rir.CmpI64LeS:
			return x86.AJLE
		case rir.CmpI32LeU, rir.CmpI64LeU:
			return x86.AJLS
		case rir.CmpI32GeS, rir.CmpI64GeS:
			return x86.AJGE
		default: // CmpI32GeU, CmpI64GeU
			return x86.AJCC
		}
	}

	cmpWidth := func(c rir.Cmp) obj.As {
		if byte(c) <= byte(rir.CmpI32GeU) {
			return x86.ACMPL
		}
		return x86.ACMPQ
	}

	branchTo := func(jmp *obj.Prog, target int) {
		if starts[target] != nil {
			jmp.To.SetTarget(starts[target])
			return
		}
		pending[target] = append(pending[target], jmp)
	}

	markStart := func(i int, p *obj.Prog) {
		starts[i] = p
		for _, jmp := range pending[i] {
			jmp.To.SetTarget(p)
		}
		delete(pending, i)
	}

	emitReturn := func(in rir.Instruction) {
		if len(in.Results) > 0 {
			// frame slot 0 doubles as the result-output slot by convention;
			// OpReturn is always a function's last instruction, so nothing
			// else reads VReg 0 afterward.
			movMem(in.Results[0], x86.REG_AX, true)
			p := newProg()
			p.As = x86.AMOVQ
			p.From = obj.Addr{Type: obj.TYPE_REG, Reg: x86.REG_AX}
			p.To = obj.Addr{Type: obj.TYPE_MEM, Reg: frameReg, Offset: 0}
		}
		loadConst(statusOK, x86.REG_AX)
		p := newProg()
		p.As = obj.ARET
	}

	for i, in := range prog.Code {
		marker := newProg()
		marker.As = obj.ANOP
		markStart(i, marker)

		switch {
		case in.Op == rir.OpMove:
			movMem(in.Src1, x86.REG_AX, true)
			movMem(in.Dst, x86.REG_AX, false)

		case in.Op == rir.OpBrCmp:
			movMem(in.Src1, x86.REG_AX, true)
			if in.RHSIsImm {
				p := newProg()
				p.As = cmpWidth(in.Cmp)
				p.From = obj.Addr{Type: obj.TYPE_REG, Reg: x86.REG_AX}
				p.To = obj.Addr{Type: obj.TYPE_CONST, Offset: int64(in.Imm)}
			} else {
				movMem(in.Src2, x86.REG_CX, true)
				p := newProg()
				p.As = cmpWidth(in.Cmp)
				p.From = obj.Addr{Type: obj.TYPE_REG, Reg: x86.REG_AX}
				p.To = obj.Addr{Type: obj.TYPE_REG, Reg: x86.REG_CX}
			}
			jmp := newProg()
			jmp.As = jccFor(in.Cmp)
			jmp.To.Type = obj.TYPE_BRANCH
			branchTo(jmp, int(in.A))

		case in.Op == rir.OpBrIfFalse || byte(in.Op) == wasm.OpBrIf:
			movMem(in.Src1, x86.REG_AX, true)
			p := newProg()
			p.As = x86.ACMPL
			p.From = obj.Addr{Type: obj.TYPE_REG, Reg: x86.REG_AX}
			p.To = obj.Addr{Type: obj.TYPE_CONST, Offset: 0}
			jmp := newProg()
			if in.Op == rir.OpBrIfFalse {
				jmp.As = x86.AJEQ
			} else {
				jmp.As = x86.AJNE
			}
			jmp.To.Type = obj.TYPE_BRANCH
			branchTo(jmp, int(in.A))

		case byte(in.Op) == wasm.OpBr:
			jmp := newProg()
			jmp.As = obj.AJMP
			jmp.To.Type = obj.TYPE_BRANCH
			branchTo(jmp, int(in.A))

		case in.Op == rir.OpReturn:
			emitReturn(in)

		case in.Op == rir.OpReturnIf:
			movMem(in.Src1, x86.REG_AX, true)
			p := newProg()
			p.As = x86.ACMPL
			p.From = obj.Addr{Type: obj.TYPE_REG, Reg: x86.REG_AX}
			p.To = obj.Addr{Type: obj.TYPE_CONST, Offset: 0}
			skip := newProg()
			skip.As = x86.AJEQ
			skip.To.Type = obj.TYPE_BRANCH
			emitReturn(in)
			after := newProg()
			after.As = obj.ANOP
			skip.To.SetTarget(after)

		default:
			if aop, ok := arithOp(byte(in.Op)); ok {
				movMem(in.Src1, x86.REG_AX, true)
				if in.RHSIsImm {
					p := newProg()
					p.As = aop
					p.From = obj.Addr{Type: obj.TYPE_CONST, Offset: int64(in.Imm)}
					p.To = obj.Addr{Type: obj.TYPE_REG, Reg: x86.REG_AX}
				} else {
					movMem(in.Src2, x86.REG_CX, true)
					p := newProg()
					p.As = aop
					p.From = obj.Addr{Type: obj.TYPE_REG, Reg: x86.REG_CX}
					p.To = obj.Addr{Type: obj.TYPE_REG, Reg: x86.REG_AX}
				}
				movMem(in.Dst, x86.REG_AX, false)
				break
			}
			return nil, ErrUnsupported
		}
	}

	// A function whose last instruction isn't already a return (e.g. control
	// falls through the final block) still needs an epilogue: rir.Build
	// appends a closing OpReturn only to functions with results (see
	// build.go), so a function without results can reach this point.
	emitReturn(rir.Instruction{})

	code, err := allocateExecutable(b.Assemble())
	if err != nil {
		return nil, err
	}
	return &Compiled{
		code:   code,
		arch:   regalloc.ArchAMD64,
		nLocal: prog.NumLocals,
		nSlots: prog.NumRegs - prog.NumLocals,
	}, nil
}
