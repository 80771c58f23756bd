package regalloc_test

import (
	"testing"

	"github.com/arwen-wasm/arwen/regalloc"
	"github.com/arwen-wasm/arwen/rir"
	"github.com/arwen-wasm/arwen/wasm"
)

func allInt(rir.VReg) regalloc.RegKind { return regalloc.KindInt }

// TestAllocateSimpleChain checks that a straight-line def/use chain gets
// registers and that a local (live for the whole function) never gets
// expired early.
func TestAllocateSimpleChain(t *testing.T) {
	p := &rir.Program{
		Code: []rir.Instruction{
			{Op: rir.Op(wasm.OpI32Add), Dst: 1, Src1: 0, Src2: 0},
			{Op: rir.OpReturn, Results: []rir.VReg{1}},
		},
		NumLocals: 1,
		NumParams: 1,
		NumRegs:   2,
	}
	alloc := regalloc.Allocate(p, regalloc.ArchAMD64, allInt)
	if !alloc.Locations[0].InReg {
		t.Fatalf("expected local 0 to be allocated a register")
	}
	if !alloc.Locations[1].InReg {
		t.Fatalf("expected temp 1 to be allocated a register")
	}
	if alloc.Locations[0].Reg.Num == alloc.Locations[1].Reg.Num {
		t.Fatalf("local 0 and temp 1 are live simultaneously, must not share a register")
	}
}

// TestAllocateSpillsOnExhaustion forces more live int registers than AMD64's
// free list holds and checks the excess spills rather than panicking or
// silently aliasing two live values onto one register.
func TestAllocateSpillsOnExhaustion(t *testing.T) {
	const n = 32
	code := make([]rir.Instruction, 0, n+1)
	results := make([]rir.VReg, n)
	for i := 0; i < n; i++ {
		code = append(code, rir.Instruction{Op: rir.Op(wasm.OpI32Const), Dst: rir.VReg(i), RHSIsImm: true, Imm: uint64(i)})
		results[i] = rir.VReg(i)
	}
	code = append(code, rir.Instruction{Op: rir.OpReturn, Results: results})

	p := &rir.Program{Code: code, NumRegs: n}
	alloc := regalloc.Allocate(p, regalloc.ArchAMD64, allInt)

	spilled := 0
	for _, loc := range alloc.Locations {
		if !loc.InReg {
			spilled++
		}
	}
	if spilled == 0 {
		t.Fatalf("expected at least one spill with %d simultaneously live values", n)
	}
	if alloc.NumSlots != spilled {
		t.Errorf("NumSlots = %d, want %d", alloc.NumSlots, spilled)
	}
}

// TestAllocateCallResultsAreDefs checks that a call's Results registers are
// treated as definitions starting at the call instruction, not as uses.
func TestAllocateCallResultsAreDefs(t *testing.T) {
	p := &rir.Program{
		Code: []rir.Instruction{
			{Op: rir.Op(wasm.OpCall), A: 0, Results: []rir.VReg{0}},
			{Op: rir.OpReturn, Results: []rir.VReg{0}},
		},
		NumRegs: 1,
	}
	alloc := regalloc.Allocate(p, regalloc.ArchAMD64, allInt)
	if !alloc.Locations[0].InReg {
		t.Fatalf("expected the call result register to be allocated")
	}
}
