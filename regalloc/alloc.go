package regalloc

import (
	"sort"

	"github.com/arwen-wasm/arwen/rir"
)

// PReg is a physical register, one of ARM64's X0-X28/V0-V30 or x86_64's
// System V volatile integer/SSE sets. Kind determines which bank it names.
type PReg struct {
	Kind RegKind
	Num  byte
}

// RegKind distinguishes the integer and floating-point register banks;
// every wasm value type maps to exactly one.
type RegKind byte

const (
	KindInt RegKind = iota
	KindFloat
)

// Arch selects which physical register set a Program is compiled against.
type Arch byte

const (
	ArchARM64 Arch = iota
	ArchAMD64
)

// intRegs/floatRegs list the physical registers available to the allocator
// per architecture, already excluding registers the JIT backend reserves
// for its own bookkeeping (frame pointer, memory base, link register,
// stack pointer) — see jit/amd64.go and jit/arm64.go for the reservation.
var intRegs = map[Arch][]byte{
	ArchARM64: {0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 19, 20, 21, 22, 23, 24, 25, 26}, // X0-X15,X19-X26; X16/17 (IP), X18 (platform), X27 (memory base), X28 (frame), X29 (FP), X30 (LR) reserved
	ArchAMD64: {0, 1, 2, 3, 6, 8, 9, 10}, // AX,CX,DX,BX,SI,R8-R10; SP/BP and DI (frameReg in jit/amd64.go) reserved
}

var floatRegs = map[Arch][]byte{
	ArchARM64: {0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15},
	ArchAMD64: {0, 1, 2, 3, 4, 5, 6, 7},
}

// Slot identifies a stack spill slot, indexed from the frame's spill area.
type Slot uint32

// Location is where a VReg lives after allocation: exactly one of Reg or
// (In-Spill, Slot) is meaningful, selected by InReg.
type Location struct {
	InReg bool
	Reg   PReg
	Slot  Slot
}

// Allocation is the result of allocating one rir.Program.
type Allocation struct {
	Locations []Location // indexed by rir.VReg
	NumSlots  int

	// SpillMap records, for every program point (rir instruction index)
	// where at least one live register lives in a spill slot, the VReg ->
	// Slot bindings in effect — the JIT backend's deoptimization path reads
	// this to reconstruct interpreter-visible state (§4.8, §4.10).
	SpillMap map[int]map[rir.VReg]Slot
}

type liveRange struct {
	reg        rir.VReg
	start, end int // instruction indices, inclusive
	kind       RegKind
}

// Allocate performs linear-scan register allocation over p for arch.
// kindOf reports whether a given VReg holds an integer or floating-point
// value (the allocator has no type information of its own; the caller
// derives it from the function's locals/signature and from each producing
// instruction's result type).
func Allocate(p *rir.Program, arch Arch, kindOf func(rir.VReg) RegKind) *Allocation {
	ranges := computeLiveRanges(p, kindOf)
	sort.Slice(ranges, func(i, j int) bool { return ranges[i].start < ranges[j].start })

	alloc := &Allocation{
		Locations: make([]Location, p.NumRegs),
		SpillMap:  make(map[int]map[rir.VReg]Slot),
	}

	var active []liveRange
	freeInt := append([]byte{}, intRegs[arch]...)
	freeFloat := append([]byte{}, floatRegs[arch]...)
	nextSlot := Slot(0)

	freeListFor := func(k RegKind) *[]byte {
		if k == KindFloat {
			return &freeFloat
		}
		return &freeInt
	}

	expireOld := func(point int) {
		kept := active[:0]
		for _, r := range active {
			if r.end < point {
				list := freeListFor(r.kind)
				*list = append(*list, alloc.Locations[r.reg].Reg.Num)
				continue
			}
			kept = append(kept, r)
		}
		active = kept
	}

	for _, r := range ranges {
		expireOld(r.start)

		list := freeListFor(r.kind)
		if len(*list) > 0 {
			n := len(*list) - 1
			num := (*list)[n]
			*list = (*list)[:n]
			alloc.Locations[r.reg] = Location{InReg: true, Reg: PReg{Kind: r.kind, Num: num}}
			active = append(active, r)
			continue
		}

		// No free register of the right bank: spill the new range itself
		// (simpler and, for a first JIT tier, as effective as spilling the
		// furthest-future active range — everything here is a leaf-ish
		// hot function by construction, since only call_count/back-edge
		// hot functions reach the allocator at all).
		slot := nextSlot
		nextSlot++
		alloc.Locations[r.reg] = Location{InReg: false, Slot: slot}
		for pc := r.start; pc <= r.end; pc++ {
			if alloc.SpillMap[pc] == nil {
				alloc.SpillMap[pc] = make(map[rir.VReg]Slot)
			}
			alloc.SpillMap[pc][r.reg] = slot
		}
	}

	alloc.NumSlots = int(nextSlot)
	return alloc
}

// computeLiveRanges derives one [start,end] range per VReg from its first
// definition/parameter binding to its last use, in a single forward scan of
// Code that records each VReg's first and last appearance.
// Locals (registers 0..NumLocals-1) are live for the whole function, since
// a later block may still reference them after a loop back-edge.
func computeLiveRanges(p *rir.Program, kindOf func(rir.VReg) RegKind) []liveRange {
	starts := make([]int, p.NumRegs)
	ends := make([]int, p.NumRegs)
	seen := make([]bool, p.NumRegs)

	for i := 0; i < p.NumLocals; i++ {
		starts[i] = 0
		ends[i] = len(p.Code) - 1
		seen[i] = true
	}

	touch := func(v rir.VReg, i int) {
		if !seen[v] {
			starts[v] = i
			seen[v] = true
		}
		if i > ends[v] {
			ends[v] = i
		}
	}

	for i, in := range p.Code {
		shape := operandShape(in.Op)
		if shape.hasDst {
			touch(in.Dst, i)
		}
		if shape.hasSrc1 {
			touch(in.Src1, i)
		}
		if shape.hasSrc2 && !in.RHSIsImm {
			touch(in.Src2, i)
		}
		for _, v := range in.Args {
			touch(v, i)
		}
		if shape.hasTableReg {
			touch(in.TableReg, i)
		}
		// Results means different things by Op: for calls it is a set of
		// defs (new values becoming live here); for return/return_if it is
		// a set of uses (the values flowing out of the function).
		for _, v := range in.Results {
			touch(v, i)
		}
	}

	out := make([]liveRange, 0, p.NumRegs)
	for v := 0; v < p.NumRegs; v++ {
		if !seen[v] {
			continue
		}
		out = append(out, liveRange{reg: rir.VReg(v), start: starts[v], end: ends[v], kind: kindOf(rir.VReg(v))})
	}
	return out
}

// shape describes which generic operand fields an Instruction's Op
// actually uses; VReg's zero value is indistinguishable from "absent", so
// computeLiveRanges needs this rather than checking fields directly.
type shape struct {
	hasDst, hasSrc1, hasSrc2, hasTableReg bool
}

func operandShape(op rir.Op) shape {
	switch op {
	case rir.OpMove:
		return shape{hasDst: true, hasSrc1: true}
	case rir.OpBrCmp:
		return shape{hasSrc1: true, hasSrc2: true}
	case rir.OpBrIfFalse, rir.OpReturnIf:
		return shape{hasSrc1: true}
	case rir.OpReturn:
		return shape{}
	case rir.Op(0x11), rir.Op(0x13): // wasm.OpCallIndirect, OpReturnCallIndirect
		return shape{hasTableReg: true}
	}
	b := byte(op)
	switch {
	case b == 0x0C || b == 0x0E: // wasm.OpBr, wasm.OpBrTable (Src1 holds the table index register for br_table)
		return shape{hasSrc1: b == 0x0E}
	case b == 0x0D: // wasm.OpBrIf
		return shape{hasSrc1: true}
	case b == 0x10, b == 0x12: // wasm.OpCall, wasm.OpReturnCall: no Dst/Src — args/results carry everything
		return shape{}
	case b == 0x1A: // wasm.OpDrop: consumed before reaching RIR
		return shape{}
	case b == 0x1B, b == 0x1C: // wasm.OpSelect, wasm.OpSelectType: cond lives in A, not Src1/Src2
		return shape{hasDst: true, hasSrc1: true, hasSrc2: true}
	case b == 0x21, b == 0x24, b == 0x26: // local.set (folded or moved, handled via OpMove), global.set, table.set
		return shape{hasSrc1: true, hasSrc2: b == 0x26}
	case b >= 0x28 && b <= 0x35: // wasm.OpI32Load through wasm.OpI64Load32U
		return shape{hasDst: true, hasSrc1: true}
	case b >= 0x36 && b <= 0x3E: // wasm.OpI32Store through wasm.OpI64Store32
		return shape{hasSrc1: true, hasSrc2: true}
	default:
		// Everything else the builder emits (consts, global.get, table.get,
		// memory.size, memory.grow, ref ops, unary/binary numeric ops, comparisons) has a
		// Dst; whether Src1/Src2 matter depends on arity, which RHSIsImm and
		// the zero-valued-but-unused Src2 already make safe to over-touch.
		return shape{hasDst: true, hasSrc1: true, hasSrc2: true}
	}
}
