package pir

import (
	"math"

	"github.com/arwen-wasm/arwen/errors"
	"github.com/arwen-wasm/arwen/wasm"
)

// patchSite names a field that must be overwritten once a forward branch's
// target becomes known, since the predecoder emits branches before it has
// seen the matching else/end.
type patchSite struct {
	instrIdx int
	table    int // -1: Code[instrIdx].A; -2: TryRanges[tryIdx].Catches[slot].Label; >=0: BrTables[table].Targets[slot]
	tryIdx   int
	slot     int // index within BrTables[table].Targets, or TryRanges[tryIdx].Catches, when applicable
}

// frame tracks one open block/loop/if/try_table while walking the source
// instructions.
type frame struct {
	isLoop  bool
	loopPC  uint32 // PIR index branches to this depth resolve to, when isLoop
	ifSite  int    // instrIdx of this frame's OpBrIfFalse, or -1 if not an unresolved `if`
	pending []patchSite

	tryIdx  int // index into p.TryRanges this frame will complete on `end`, or -1
	tryMark int // PIR index of this frame's OpTryTableMark, when tryIdx >= 0
}

// Predecode lowers a validated function body into a Program: wasm's
// structured block/loop/if/end nesting becomes flat conditional and
// unconditional jumps between PIR indices, and every other instruction is
// repacked from wasm.Instruction's Imm-by-opcode shape into Instruction's
// fixed fields. fn's ordinal type determines how many of its leading locals
// are parameters.
func Predecode(sig wasm.FuncType, body wasm.FuncBody) (*Program, error) {
	src, err := wasm.DecodeInstructions(body.Code)
	if err != nil {
		return nil, errors.New(errors.PhasePredecode, errors.KindInvalidData).
			Detail("decode function body: %v", err).Cause(err).Build()
	}

	numLocals := len(sig.Params)
	for _, l := range body.Locals {
		numLocals += int(l.Count)
	}

	p := &Program{NumParams: len(sig.Params), NumLocals: numLocals, NumResults: len(sig.Results)}
	stack := []frame{{isLoop: false, ifSite: -1, tryIdx: -1}} // implicit outer block == the function body

	patch := func(target uint32, sites []patchSite) {
		for _, s := range sites {
			switch {
			case s.table == -2:
				p.TryRanges[s.tryIdx].Catches[s.slot].Label = target
			case s.table < 0:
				p.Code[s.instrIdx].A = target
			default:
				p.BrTables[s.table].Targets[s.slot] = target
			}
		}
	}

	// resolveBranch returns the target PIR index for a branch of the given
	// depth if it can be known immediately (the target is a loop header,
	// already emitted), and otherwise records a pending patch site against
	// the right frame for later.
	resolveBranch := func(depth uint32, site patchSite) (uint32, bool) {
		f := &stack[len(stack)-1-int(depth)]
		if f.isLoop {
			return f.loopPC, true
		}
		f.pending = append(f.pending, site)
		return 0, false
	}

	emit := func(ins Instruction, srcIdx int) int {
		idx := len(p.Code)
		p.Code = append(p.Code, ins)
		p.SourceIndex = append(p.SourceIndex, srcIdx)
		return idx
	}

	for i, in := range src {
		switch in.Opcode {
		case wasm.OpBlock:
			stack = append(stack, frame{isLoop: false, ifSite: -1, tryIdx: -1})
			continue
		case wasm.OpLoop:
			stack = append(stack, frame{isLoop: true, loopPC: uint32(len(p.Code)), ifSite: -1, tryIdx: -1})
			continue
		case wasm.OpIf:
			idx := emit(Instruction{Op: OpBrIfFalse}, i)
			stack = append(stack, frame{isLoop: false, ifSite: idx, tryIdx: -1})
			continue
		case wasm.OpElse:
			top := &stack[len(stack)-1]
			jumpIdx := emit(Instruction{Op: Op(wasm.OpBr)}, i)
			if top.ifSite >= 0 {
				p.Code[top.ifSite].A = uint32(len(p.Code))
				top.ifSite = -1
			}
			top.pending = append(top.pending, patchSite{instrIdx: jumpIdx, table: -1})
			continue
		case wasm.OpTryTable:
			imm := in.Imm.(wasm.TryTableImm)
			tryIdx := len(p.TryRanges)
			p.TryRanges = append(p.TryRanges, TryRange{Start: len(p.Code), Catches: make([]CatchTarget, len(imm.Catches))})
			mark := emit(Instruction{Op: OpTryTableMark, A: uint32(tryIdx)}, i)
			fr := frame{isLoop: false, ifSite: -1, tryIdx: tryIdx, tryMark: mark}
			stack = append(stack, fr)
			for ci, c := range imm.Catches {
				p.TryRanges[tryIdx].Catches[ci] = CatchTarget{TagIdx: c.TagIdx, Kind: c.Kind}
				site := patchSite{table: -2, tryIdx: tryIdx, slot: ci}
				if t, ok := resolveBranch(c.LabelIdx, site); ok {
					p.TryRanges[tryIdx].Catches[ci].Label = t
				}
			}
			continue
		case wasm.OpEnd:
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			target := uint32(len(p.Code))
			if top.ifSite >= 0 {
				p.Code[top.ifSite].A = target
			}
			if top.tryIdx >= 0 {
				p.TryRanges[top.tryIdx].End = int(target)
			}
			patch(target, top.pending)
			if len(stack) == 0 {
				// matches the function body's implicit outer block
				stack = append(stack, frame{isLoop: false, ifSite: -1, tryIdx: -1})
			}
			continue
		}

		ins, err := lowerPlain(in, i, resolveBranch, p)
		if err != nil {
			return nil, err
		}
		if ins != nil {
			emit(*ins, i)
		}
	}

	return p, nil
}

// lowerPlain repacks every non-structural instruction. Branch-bearing ones
// (br, br_if, br_table) call resolveBranch per target and may leave A
// pointing at zero until frame's End is reached.
func lowerPlain(in wasm.Instruction, srcIdx int, resolveBranch func(uint32, patchSite) (uint32, bool), p *Program) (*Instruction, error) {
	switch in.Opcode {
	case wasm.OpUnreachable, wasm.OpNop, wasm.OpReturn, wasm.OpDrop, wasm.OpSelect, wasm.OpSelectType:
		return &Instruction{Op: Op(in.Opcode)}, nil

	case wasm.OpBr:
		imm := in.Imm.(wasm.BranchImm)
		ins := Instruction{Op: Op(in.Opcode)}
		site := patchSite{instrIdx: len(p.Code), table: -1}
		if t, ok := resolveBranch(imm.LabelIdx, site); ok {
			ins.A = t
		}
		return &ins, nil

	case wasm.OpBrIf:
		imm := in.Imm.(wasm.BranchImm)
		ins := Instruction{Op: Op(in.Opcode)}
		site := patchSite{instrIdx: len(p.Code), table: -1}
		if t, ok := resolveBranch(imm.LabelIdx, site); ok {
			ins.A = t
		}
		return &ins, nil

	case wasm.OpBrTable:
		imm := in.Imm.(wasm.BrTableImm)
		tableIdx := len(p.BrTables)
		bt := BrTable{Targets: make([]uint32, len(imm.Labels)+1)}
		p.BrTables = append(p.BrTables, bt)
		for slot, label := range append(append([]uint32{}, imm.Labels...), imm.Default) {
			site := patchSite{instrIdx: len(p.Code), table: tableIdx, slot: slot}
			if t, ok := resolveBranch(label, site); ok {
				p.BrTables[tableIdx].Targets[slot] = t
			}
		}
		return &Instruction{Op: Op(in.Opcode), A: uint32(tableIdx), B: uint32(len(imm.Labels))}, nil

	case wasm.OpCall:
		imm := in.Imm.(wasm.CallImm)
		return &Instruction{Op: Op(in.Opcode), A: imm.FuncIdx}, nil

	case wasm.OpReturnCall:
		imm := in.Imm.(wasm.CallImm)
		return &Instruction{Op: Op(in.Opcode), A: imm.FuncIdx}, nil

	case wasm.OpCallIndirect:
		imm := in.Imm.(wasm.CallIndirectImm)
		return &Instruction{Op: Op(in.Opcode), A: imm.TypeIdx, B: imm.TableIdx}, nil

	case wasm.OpReturnCallIndirect:
		imm := in.Imm.(wasm.CallIndirectImm)
		return &Instruction{Op: Op(in.Opcode), A: imm.TypeIdx, B: imm.TableIdx}, nil

	case wasm.OpLocalGet, wasm.OpLocalSet, wasm.OpLocalTee:
		imm := in.Imm.(wasm.LocalImm)
		return &Instruction{Op: Op(in.Opcode), A: imm.LocalIdx}, nil

	case wasm.OpGlobalGet, wasm.OpGlobalSet:
		imm := in.Imm.(wasm.GlobalImm)
		return &Instruction{Op: Op(in.Opcode), A: imm.GlobalIdx}, nil

	case wasm.OpTableGet, wasm.OpTableSet:
		imm := in.Imm.(wasm.TableImm)
		return &Instruction{Op: Op(in.Opcode), A: imm.TableIdx}, nil

	case wasm.OpMemorySize, wasm.OpMemoryGrow:
		imm := in.Imm.(wasm.MemoryIdxImm)
		return &Instruction{Op: Op(in.Opcode), A: imm.MemIdx}, nil

	case wasm.OpI32Const:
		imm := in.Imm.(wasm.I32Imm)
		return &Instruction{Op: Op(in.Opcode), Const: uint64(uint32(imm.Value))}, nil

	case wasm.OpI64Const:
		imm := in.Imm.(wasm.I64Imm)
		return &Instruction{Op: Op(in.Opcode), Const: uint64(imm.Value)}, nil

	case wasm.OpF32Const:
		imm := in.Imm.(wasm.F32Imm)
		return &Instruction{Op: Op(in.Opcode), Const: uint64(math.Float32bits(imm.Value))}, nil

	case wasm.OpF64Const:
		imm := in.Imm.(wasm.F64Imm)
		return &Instruction{Op: Op(in.Opcode), Const: math.Float64bits(imm.Value)}, nil

	case wasm.OpRefNull:
		imm := in.Imm.(wasm.RefNullImm)
		return &Instruction{Op: Op(in.Opcode), Const: uint64(imm.HeapType)}, nil

	case wasm.OpRefFunc:
		imm := in.Imm.(wasm.RefFuncImm)
		return &Instruction{Op: Op(in.Opcode), A: imm.FuncIdx}, nil

	case wasm.OpRefIsNull, wasm.OpRefAsNonNull, wasm.OpRefEq:
		return &Instruction{Op: Op(in.Opcode)}, nil

	case wasm.OpThrow:
		imm := in.Imm.(wasm.ThrowImm)
		return &Instruction{Op: Op(in.Opcode), A: imm.TagIdx}, nil

	case wasm.OpThrowRef:
		return &Instruction{Op: Op(in.Opcode)}, nil
	}

	if op := in.Opcode; isLoadStore(op) {
		imm := in.Imm.(wasm.MemoryImm)
		return &Instruction{Op: Op(op), MemOffset: imm.Offset, MemAlign: imm.Align, B: imm.MemIdx}, nil
	}
	if isNumeric(in.Opcode) {
		return &Instruction{Op: Op(in.Opcode)}, nil
	}

	return nil, errors.New(errors.PhasePredecode, errors.KindUnsupported).
		Detail("opcode 0x%02x has no PIR lowering (SIMD/GC/atomics require the legacy stack interpreter)", in.Opcode).
		Build()
}

func isLoadStore(op byte) bool {
	return (op >= wasm.OpI32Load && op <= wasm.OpI64Load32U) || (op >= wasm.OpI32Store && op <= wasm.OpI64Store32)
}

func isNumeric(op byte) bool {
	return op >= wasm.OpI32Eqz && op <= 0xBF // comparisons through conversions; see wasm/constants.go
}
