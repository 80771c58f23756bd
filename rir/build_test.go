package rir_test

import (
	"testing"

	"github.com/arwen-wasm/arwen/pir"
	"github.com/arwen-wasm/arwen/rir"
	"github.com/arwen-wasm/arwen/wasm"
)

type fixedSig struct{ nParams, nResults int }

func (f fixedSig) FuncArity(uint32) (int, int) { return f.nParams, f.nResults }
func (f fixedSig) TypeArity(uint32) (int, int) { return f.nParams, f.nResults }

func encode(t *testing.T, instrs []wasm.Instruction) wasm.FuncBody {
	t.Helper()
	code := wasm.EncodeInstructions(instrs)
	code = append(code, wasm.OpEnd)
	return wasm.FuncBody{Code: code}
}

// TestBuildConstFolding checks that `local.get 0; i32.const 2; i32.add`
// (const adjacent to, and consumed once by, the following op) folds the
// constant into the add instead of materializing it in a register.
func TestBuildConstFolding(t *testing.T) {
	sig := wasm.FuncType{Params: []wasm.ValType{wasm.ValI32}, Results: []wasm.ValType{wasm.ValI32}}
	body := encode(t, []wasm.Instruction{
		{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: 0}},
		{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: 2}},
		{Opcode: wasm.OpI32Add},
		{Opcode: wasm.OpReturn},
	})
	p, err := pir.Predecode(sig, body)
	if err != nil {
		t.Fatalf("predecode: %v", err)
	}
	r, err := rir.Build(p, fixedSig{})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	// local.get produces no instruction (pushes the local register
	// directly); the const is folded into the add; then an explicit return.
	if len(r.Code) != 2 {
		t.Fatalf("expected 2 RIR instructions (add, return), got %d", len(r.Code))
	}
	add := r.Code[0]
	if !add.RHSIsImm || add.Imm != 2 {
		t.Errorf("expected add's RHS folded to immediate 2, got RHSIsImm=%v Imm=%d", add.RHSIsImm, add.Imm)
	}
	if add.Src1 != rir.VReg(0) {
		t.Errorf("expected add's LHS to be local 0 directly, got %d", add.Src1)
	}
}

// TestBuildLocalSetFold checks that `i32.const 5; local.set 0` rewrites the
// const's Dst to local 0 directly rather than emitting a separate move.
func TestBuildLocalSetFold(t *testing.T) {
	sig := wasm.FuncType{}
	body := encode(t, []wasm.Instruction{
		{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: 5}},
		{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: 0}},
	})
	p, err := pir.Predecode(sig, body)
	if err != nil {
		t.Fatalf("predecode: %v", err)
	}
	p.NumLocals = 1 // pretend local 0 was declared
	r, err := rir.Build(p, fixedSig{})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(r.Code) != 1 {
		t.Fatalf("expected 1 RIR instruction (const rewritten in place), got %d", len(r.Code))
	}
	if r.Code[0].Dst != rir.VReg(0) {
		t.Errorf("expected const's Dst rewritten to local 0, got %d", r.Code[0].Dst)
	}
}

// TestBuildBrCmpFusion checks that a comparison immediately consumed by
// br_if fuses into a single OpBrCmp.
func TestBuildBrCmpFusion(t *testing.T) {
	sig := wasm.FuncType{Params: []wasm.ValType{wasm.ValI32, wasm.ValI32}}
	body := encode(t, []wasm.Instruction{
		{Opcode: wasm.OpLoop, Imm: wasm.BlockImm{Type: wasm.BlockTypeVoid}},
		{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: 0}},
		{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: 1}},
		{Opcode: wasm.OpI32LtS},
		{Opcode: wasm.OpBrIf, Imm: wasm.BranchImm{LabelIdx: 0}},
		{Opcode: wasm.OpEnd},
	})
	p, err := pir.Predecode(sig, body)
	if err != nil {
		t.Fatalf("predecode: %v", err)
	}
	r, err := rir.Build(p, fixedSig{})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(r.Code) != 1 {
		t.Fatalf("expected the compare+br_if to fuse into 1 instruction, got %d", len(r.Code))
	}
	if r.Code[0].Op != rir.OpBrCmp || r.Code[0].Cmp != rir.CmpI32LtS {
		t.Errorf("expected a fused OpBrCmp/CmpI32LtS, got Op=%v Cmp=%v", r.Code[0].Op, r.Code[0].Cmp)
	}
	if r.Code[0].A != 0 {
		t.Errorf("loop backedge target = %d, want 0", r.Code[0].A)
	}
}
