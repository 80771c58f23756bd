package wasm

import (
	"github.com/arwen-wasm/arwen/errors"
)

// ValidateTypes runs the per-instruction operand-stack type checker over
// every function body: Validate (validate.go) only checks structural
// invariants (index bounds, duplicate exports); this catches the category
// of error that reaches into an instruction's actual operand types —
// pushing an f64 where an i32 is expected, branching to a label whose
// result arity doesn't match what's on the stack, a try_table catching a
// tag whose payload doesn't match its clause, and so on.
//
// The checker covers exactly the instruction set pir.Predecode can lower
// (numerics, control flow, memory, locals/globals/tables, the try_table
// exception-handling proposal); SIMD, the GC proposal, and atomics are
// rejected here with the same Unsupported error PIR would otherwise
// produce later, so a module using them fails at validate time with one
// consistent message instead of two different ones at two different
// phases.
func (m *Module) ValidateTypes() error {
	for i, body := range m.Code {
		fnIdx := m.NumImportedFuncs() + i
		ft := m.GetFuncType(uint32(fnIdx))
		if ft == nil {
			return errors.New(errors.PhaseValidate, errors.KindInvalidData).
				Detail("function %d: no type", fnIdx).Build()
		}
		if err := m.validateFuncBody(*ft, body, fnIdx); err != nil {
			return err
		}
	}
	return nil
}

// opType is one entry of the simulated value-type stack. unknown marks a
// value produced after `unreachable`: wasm's validation algorithm treats
// the rest of that block's stack as polymorphic, matching any type the
// consumer expects, until the next structured boundary.
type opType struct {
	unknown bool
	vt      ValType
}

func known(vt ValType) opType { return opType{vt: vt} }

var unknownType = opType{unknown: true}

// ctrlFrame is one open block/loop/if/try_table during type checking.
type ctrlFrame struct {
	opcode      byte
	start       []ValType // operand types expected on entry (block params)
	end         []ValType // operand types produced on normal exit (block results)
	height      int       // value-stack height at frame entry (below the frame's own operands)
	unreachable bool
}

type typeChecker struct {
	mod    *Module
	fn     FuncType
	locals []ValType

	values []opType
	frames []ctrlFrame
}

func (m *Module) validateFuncBody(fn FuncType, body FuncBody, fnIdx int) error {
	locals := append([]ValType{}, fn.Params...)
	for _, l := range body.Locals {
		for i := uint32(0); i < l.Count; i++ {
			locals = append(locals, l.ValType)
		}
	}

	tc := &typeChecker{mod: m, fn: fn, locals: locals}
	tc.pushFrame(0, nil, fn.Results)

	src, err := DecodeInstructions(body.Code)
	if err != nil {
		return errors.New(errors.PhaseValidate, errors.KindInvalidData).
			Detail("function %d: %v", fnIdx, err).Cause(err).Build()
	}

	for _, in := range src {
		if err := tc.step(in); err != nil {
			return errors.New(errors.PhaseValidate, errors.KindTypeMismatch).
				Detail("function %d: %v", fnIdx, err).Cause(err).Build()
		}
	}
	return nil
}

func (tc *typeChecker) pushFrame(opcode byte, start, end []ValType) {
	tc.frames = append(tc.frames, ctrlFrame{opcode: opcode, start: start, end: end, height: len(tc.values)})
	for _, t := range start {
		tc.push(known(t))
	}
}

func (tc *typeChecker) push(t opType) { tc.values = append(tc.values, t) }

func (tc *typeChecker) pop() (opType, error) {
	f := &tc.frames[len(tc.frames)-1]
	if len(tc.values) == f.height {
		if f.unreachable {
			return unknownType, nil
		}
		return opType{}, errors.New(errors.PhaseValidate, errors.KindTypeMismatch).
			Detail("operand stack underflow").Build()
	}
	t := tc.values[len(tc.values)-1]
	tc.values = tc.values[:len(tc.values)-1]
	return t, nil
}

func (tc *typeChecker) popExpect(want ValType) error {
	got, err := tc.pop()
	if err != nil {
		return err
	}
	if got.unknown || got.vt == want {
		return nil
	}
	return errors.New(errors.PhaseValidate, errors.KindTypeMismatch).
		Detail("expected %s, got %s", want, got.vt).Build()
}

func (tc *typeChecker) popAny() error {
	_, err := tc.pop()
	return err
}

// setUnreachable discards every value above the current frame's entry
// height and marks it polymorphic, per the spec's stack-polymorphism rule
// for code after `unreachable`/`br`/`return`/`throw`.
func (tc *typeChecker) setUnreachable() {
	f := &tc.frames[len(tc.frames)-1]
	tc.values = tc.values[:f.height]
	f.unreachable = true
}

func (tc *typeChecker) popFrame() (ctrlFrame, error) {
	f := tc.frames[len(tc.frames)-1]
	for _, t := range f.end {
		if err := tc.popExpect(t); err != nil {
			return f, err
		}
	}
	if len(tc.values) != f.height {
		return f, errors.New(errors.PhaseValidate, errors.KindTypeMismatch).
			Detail("block leaves extra operands on the stack").Build()
	}
	tc.frames = tc.frames[:len(tc.frames)-1]
	return f, nil
}

// labelTypes returns the operand types a branch to the frame `depth` levels
// up the control stack must supply: a loop's own parameters (branching to a
// loop re-enters it), everything else's results.
func (tc *typeChecker) labelTypes(depth uint32) ([]ValType, error) {
	if int(depth) >= len(tc.frames) {
		return nil, errors.New(errors.PhaseValidate, errors.KindInvalidData).
			Detail("branch depth %d exceeds block nesting", depth).Build()
	}
	f := tc.frames[len(tc.frames)-1-int(depth)]
	if f.opcode == OpLoop {
		return f.start, nil
	}
	return f.end, nil
}

func (tc *typeChecker) blockTypes(imm BlockImm) (params, results []ValType, err error) {
	switch imm.Type {
	case BlockTypeVoid:
		return nil, nil, nil
	case BlockTypeI32:
		return nil, []ValType{ValI32}, nil
	case BlockTypeI64:
		return nil, []ValType{ValI64}, nil
	case BlockTypeF32:
		return nil, []ValType{ValF32}, nil
	case BlockTypeF64:
		return nil, []ValType{ValF64}, nil
	case BlockTypeV128:
		return nil, []ValType{ValV128}, nil
	}
	if imm.Type < 0 {
		return nil, nil, errors.New(errors.PhaseValidate, errors.KindInvalidData).
			Detail("unknown block reftype sentinel %d", imm.Type).Build()
	}
	ft := tc.mod.getFuncTypeByIdx(uint32(imm.Type))
	if ft == nil {
		return nil, nil, errors.New(errors.PhaseValidate, errors.KindInvalidData).
			Detail("block type index %d out of range", imm.Type).Build()
	}
	return ft.Params, ft.Results, nil
}

// step type-checks one instruction against the simulated stack.
func (tc *typeChecker) step(in Instruction) error {
	switch in.Opcode {
	case OpBlock, OpLoop, OpIf:
		imm := in.Imm.(BlockImm)
		params, results, err := tc.blockTypes(imm)
		if err != nil {
			return err
		}
		for i := len(params) - 1; i >= 0; i-- {
			if err := tc.popExpect(params[i]); err != nil {
				return err
			}
		}
		if in.Opcode == OpIf {
			if err := tc.popExpect(ValI32); err != nil {
				return err
			}
		}
		tc.pushFrame(in.Opcode, params, results)
		return nil

	case OpElse:
		f, err := tc.popFrame()
		if err != nil {
			return err
		}
		tc.pushFrame(OpElse, f.start, f.end)
		return nil

	case OpEnd:
		_, err := tc.popFrame()
		return err

	case OpTryTable:
		imm := in.Imm.(TryTableImm)
		params, results, err := tc.blockTypes(BlockImm{Type: imm.BlockType})
		if err != nil {
			return err
		}
		for i := len(params) - 1; i >= 0; i-- {
			if err := tc.popExpect(params[i]); err != nil {
				return err
			}
		}
		for _, c := range imm.Catches {
			if _, err := tc.labelTypes(c.LabelIdx); err != nil {
				return err
			}
			if c.Kind == CatchKindCatch || c.Kind == CatchKindCatchRef {
				if int(c.TagIdx) >= len(tc.mod.allTags()) {
					return errors.New(errors.PhaseValidate, errors.KindInvalidData).
						Detail("catch references unknown tag %d", c.TagIdx).Build()
				}
			}
		}
		tc.pushFrame(OpTryTable, params, results)
		return nil

	case OpUnreachable:
		tc.setUnreachable()
		return nil

	case OpNop:
		return nil

	case OpBr:
		imm := in.Imm.(BranchImm)
		want, err := tc.labelTypes(imm.LabelIdx)
		if err != nil {
			return err
		}
		for i := len(want) - 1; i >= 0; i-- {
			if err := tc.popExpect(want[i]); err != nil {
				return err
			}
		}
		tc.setUnreachable()
		return nil

	case OpBrIf:
		imm := in.Imm.(BranchImm)
		if err := tc.popExpect(ValI32); err != nil {
			return err
		}
		want, err := tc.labelTypes(imm.LabelIdx)
		if err != nil {
			return err
		}
		for i := len(want) - 1; i >= 0; i-- {
			if err := tc.popExpect(want[i]); err != nil {
				return err
			}
		}
		for _, t := range want {
			tc.push(known(t))
		}
		return nil

	case OpBrTable:
		imm := in.Imm.(BrTableImm)
		if err := tc.popExpect(ValI32); err != nil {
			return err
		}
		want, err := tc.labelTypes(imm.Default)
		if err != nil {
			return err
		}
		for _, l := range imm.Labels {
			if _, err := tc.labelTypes(l); err != nil {
				return err
			}
		}
		for i := len(want) - 1; i >= 0; i-- {
			if err := tc.popExpect(want[i]); err != nil {
				return err
			}
		}
		tc.setUnreachable()
		return nil

	case OpReturn:
		for i := len(tc.fn.Results) - 1; i >= 0; i-- {
			if err := tc.popExpect(tc.fn.Results[i]); err != nil {
				return err
			}
		}
		tc.setUnreachable()
		return nil

	case OpThrow:
		imm := in.Imm.(ThrowImm)
		ft := tc.mod.tagFuncType(imm.TagIdx)
		if ft == nil {
			return errors.New(errors.PhaseValidate, errors.KindInvalidData).
				Detail("throw references unknown tag %d", imm.TagIdx).Build()
		}
		for i := len(ft.Params) - 1; i >= 0; i-- {
			if err := tc.popExpect(ft.Params[i]); err != nil {
				return err
			}
		}
		tc.setUnreachable()
		return nil

	case OpThrowRef:
		if err := tc.popAny(); err != nil { // exnref, left untyped
			return err
		}
		tc.setUnreachable()
		return nil

	case OpDrop:
		return tc.popAny()

	case OpSelect:
		if err := tc.popExpect(ValI32); err != nil {
			return err
		}
		b, err := tc.pop()
		if err != nil {
			return err
		}
		a, err := tc.pop()
		if err != nil {
			return err
		}
		if !a.unknown && !b.unknown && a.vt != b.vt {
			return errors.New(errors.PhaseValidate, errors.KindTypeMismatch).
				Detail("select operands of different types").Build()
		}
		if a.unknown {
			tc.push(b)
		} else {
			tc.push(a)
		}
		return nil

	case OpSelectType:
		imm := in.Imm.(SelectTypeImm)
		if err := tc.popExpect(ValI32); err != nil {
			return err
		}
		if len(imm.Types) != 1 {
			return errors.New(errors.PhaseValidate, errors.KindUnsupported).
				Detail("select with extended/multi reftype annotation").Build()
		}
		if err := tc.popExpect(imm.Types[0]); err != nil {
			return err
		}
		if err := tc.popExpect(imm.Types[0]); err != nil {
			return err
		}
		tc.push(known(imm.Types[0]))
		return nil

	case OpCall:
		imm := in.Imm.(CallImm)
		ft := tc.mod.GetFuncType(imm.FuncIdx)
		if ft == nil {
			return errors.New(errors.PhaseValidate, errors.KindInvalidData).
				Detail("call references unknown function %d", imm.FuncIdx).Build()
		}
		return tc.applyCall(ft.Params, ft.Results)

	case OpReturnCall:
		imm := in.Imm.(CallImm)
		ft := tc.mod.GetFuncType(imm.FuncIdx)
		if ft == nil {
			return errors.New(errors.PhaseValidate, errors.KindInvalidData).
				Detail("return_call references unknown function %d", imm.FuncIdx).Build()
		}
		if err := tc.applyTailArity(ft); err != nil {
			return err
		}
		for i := len(ft.Params) - 1; i >= 0; i-- {
			if err := tc.popExpect(ft.Params[i]); err != nil {
				return err
			}
		}
		tc.setUnreachable()
		return nil

	case OpCallIndirect:
		imm := in.Imm.(CallIndirectImm)
		if err := tc.popExpect(ValI32); err != nil { // table element index
			return err
		}
		ft := tc.mod.getFuncTypeByIdx(imm.TypeIdx)
		if ft == nil {
			return errors.New(errors.PhaseValidate, errors.KindInvalidData).
				Detail("call_indirect references unknown type %d", imm.TypeIdx).Build()
		}
		return tc.applyCall(ft.Params, ft.Results)

	case OpReturnCallIndirect:
		imm := in.Imm.(CallIndirectImm)
		if err := tc.popExpect(ValI32); err != nil {
			return err
		}
		ft := tc.mod.getFuncTypeByIdx(imm.TypeIdx)
		if ft == nil {
			return errors.New(errors.PhaseValidate, errors.KindInvalidData).
				Detail("return_call_indirect references unknown type %d", imm.TypeIdx).Build()
		}
		if err := tc.applyTailArity(ft); err != nil {
			return err
		}
		for i := len(ft.Params) - 1; i >= 0; i-- {
			if err := tc.popExpect(ft.Params[i]); err != nil {
				return err
			}
		}
		tc.setUnreachable()
		return nil

	case OpLocalGet:
		imm := in.Imm.(LocalImm)
		if int(imm.LocalIdx) >= len(tc.locals) {
			return errors.New(errors.PhaseValidate, errors.KindInvalidData).
				Detail("local.get of unknown local %d", imm.LocalIdx).Build()
		}
		tc.push(known(tc.locals[imm.LocalIdx]))
		return nil

	case OpLocalSet:
		imm := in.Imm.(LocalImm)
		if int(imm.LocalIdx) >= len(tc.locals) {
			return errors.New(errors.PhaseValidate, errors.KindInvalidData).
				Detail("local.set of unknown local %d", imm.LocalIdx).Build()
		}
		return tc.popExpect(tc.locals[imm.LocalIdx])

	case OpLocalTee:
		imm := in.Imm.(LocalImm)
		if int(imm.LocalIdx) >= len(tc.locals) {
			return errors.New(errors.PhaseValidate, errors.KindInvalidData).
				Detail("local.tee of unknown local %d", imm.LocalIdx).Build()
		}
		vt := tc.locals[imm.LocalIdx]
		if err := tc.popExpect(vt); err != nil {
			return err
		}
		tc.push(known(vt))
		return nil

	case OpGlobalGet:
		imm := in.Imm.(GlobalImm)
		gt := tc.mod.globalType(imm.GlobalIdx)
		if gt == nil {
			return errors.New(errors.PhaseValidate, errors.KindInvalidData).
				Detail("global.get of unknown global %d", imm.GlobalIdx).Build()
		}
		tc.push(known(gt.ValType))
		return nil

	case OpGlobalSet:
		imm := in.Imm.(GlobalImm)
		gt := tc.mod.globalType(imm.GlobalIdx)
		if gt == nil {
			return errors.New(errors.PhaseValidate, errors.KindInvalidData).
				Detail("global.set of unknown global %d", imm.GlobalIdx).Build()
		}
		return tc.popExpect(gt.ValType)

	case OpTableGet:
		imm := in.Imm.(TableImm)
		if err := tc.popExpect(ValI32); err != nil {
			return err
		}
		tc.push(known(ValFuncRef)) // element type beyond funcref/externref not tracked
		_ = imm
		return nil

	case OpTableSet:
		if err := tc.popAny(); err != nil {
			return err
		}
		return tc.popExpect(ValI32)

	case OpMemorySize:
		tc.push(known(ValI32))
		return nil

	case OpMemoryGrow:
		if err := tc.popExpect(ValI32); err != nil {
			return err
		}
		tc.push(known(ValI32))
		return nil

	case OpI32Const:
		tc.push(known(ValI32))
		return nil
	case OpI64Const:
		tc.push(known(ValI64))
		return nil
	case OpF32Const:
		tc.push(known(ValF32))
		return nil
	case OpF64Const:
		tc.push(known(ValF64))
		return nil

	case OpRefNull:
		tc.push(known(ValFuncRef))
		return nil
	case OpRefFunc:
		tc.push(known(ValFuncRef))
		return nil
	case OpRefIsNull:
		if err := tc.popAny(); err != nil {
			return err
		}
		tc.push(known(ValI32))
		return nil
	case OpRefAsNonNull:
		return nil // passes its operand through unchanged
	case OpRefEq:
		if err := tc.popAny(); err != nil {
			return err
		}
		if err := tc.popAny(); err != nil {
			return err
		}
		tc.push(known(ValI32))
		return nil
	}

	if isLoadOpcode(in.Opcode) {
		if err := tc.popExpect(ValI32); err != nil {
			return err
		}
		tc.push(known(loadResultType(in.Opcode)))
		return nil
	}
	if isStoreOpcode(in.Opcode) {
		if err := tc.popExpect(storeOperandType(in.Opcode)); err != nil {
			return err
		}
		return tc.popExpect(ValI32)
	}
	if isUnaryNumeric(in.Opcode) {
		t := unaryOperandType(in.Opcode)
		if err := tc.popExpect(t); err != nil {
			return err
		}
		tc.push(known(unaryResultType(in.Opcode)))
		return nil
	}
	if isBinaryOrCompareNumeric(in.Opcode) {
		t := binaryOperandType(in.Opcode)
		if err := tc.popExpect(t); err != nil {
			return err
		}
		if err := tc.popExpect(t); err != nil {
			return err
		}
		tc.push(known(binaryResultType(in.Opcode)))
		return nil
	}

	return errors.New(errors.PhaseValidate, errors.KindUnsupported).
		Detail("opcode 0x%02x has no type rule (SIMD/GC/atomics not supported)", in.Opcode).Build()
}

// applyCall pops params in reverse and pushes results, used by both direct
// and indirect calls.
func (tc *typeChecker) applyCall(params, results []ValType) error {
	for i := len(params) - 1; i >= 0; i-- {
		if err := tc.popExpect(params[i]); err != nil {
			return err
		}
	}
	for _, t := range results {
		tc.push(known(t))
	}
	return nil
}

// applyTailArity checks that a tail call's result arity matches the
// enclosing function's, required for return_call/return_call_indirect.
func (tc *typeChecker) applyTailArity(ft *FuncType) error {
	if len(ft.Results) != len(tc.fn.Results) {
		return errors.New(errors.PhaseValidate, errors.KindTypeMismatch).
			Detail("tail call result arity does not match the caller's").Build()
	}
	for i := range ft.Results {
		if ft.Results[i] != tc.fn.Results[i] {
			return errors.New(errors.PhaseValidate, errors.KindTypeMismatch).
				Detail("tail call result types do not match the caller's").Build()
		}
	}
	return nil
}

func (m *Module) globalType(idx uint32) *GlobalType {
	numImported := uint32(0)
	for i := range m.Imports {
		if m.Imports[i].Desc.Kind == KindGlobal {
			if idx == numImported {
				return m.Imports[i].Desc.Global
			}
			numImported++
		}
	}
	local := idx - numImported
	if int(local) >= len(m.Globals) {
		return nil
	}
	return &m.Globals[local].Type
}

// allTags returns the module's flat tag index space (imported first, same
// convention as NumImportedTags/NumImportedFuncs).
func (m *Module) allTags() []TagType {
	var out []TagType
	for _, imp := range m.Imports {
		if imp.Desc.Kind == KindTag {
			out = append(out, *imp.Desc.Tag)
		}
	}
	out = append(out, m.Tags...)
	return out
}

func (m *Module) tagFuncType(idx uint32) *FuncType {
	tags := m.allTags()
	if int(idx) >= len(tags) {
		return nil
	}
	return m.getFuncTypeByIdx(tags[idx].TypeIdx)
}

func isLoadOpcode(op byte) bool {
	return op >= OpI32Load && op <= OpI64Load32U
}

func isStoreOpcode(op byte) bool {
	return op >= OpI32Store && op <= OpI64Store32
}

func loadResultType(op byte) ValType {
	switch op {
	case OpI64Load, OpI64Load8S, OpI64Load8U, OpI64Load16S, OpI64Load16U, OpI64Load32S, OpI64Load32U:
		return ValI64
	case OpF32Load:
		return ValF32
	case OpF64Load:
		return ValF64
	}
	return ValI32
}

func storeOperandType(op byte) ValType {
	switch op {
	case OpI64Store, OpI64Store8, OpI64Store16, OpI64Store32:
		return ValI64
	case OpF32Store:
		return ValF32
	case OpF64Store:
		return ValF64
	}
	return ValI32
}

func isUnaryNumeric(op byte) bool {
	switch op {
	case OpI32Eqz, OpI64Eqz,
		OpI32Clz, OpI32Ctz, OpI32Popcnt,
		OpI64Clz, OpI64Ctz, OpI64Popcnt,
		OpF32Abs, OpF32Neg, OpF32Ceil, OpF32Floor, OpF32Trunc, OpF32Nearest, OpF32Sqrt,
		OpF64Abs, OpF64Neg, OpF64Ceil, OpF64Floor, OpF64Trunc, OpF64Nearest, OpF64Sqrt,
		OpI32WrapI64, OpI64ExtendI32S, OpI64ExtendI32U,
		OpI32Extend8S, OpI32Extend16S, OpI64Extend8S, OpI64Extend16S, OpI64Extend32S,
		OpI32TruncF32S, OpI32TruncF32U, OpI32TruncF64S, OpI32TruncF64U,
		OpI64TruncF32S, OpI64TruncF32U, OpI64TruncF64S, OpI64TruncF64U,
		OpF32ConvertI32S, OpF32ConvertI32U, OpF32ConvertI64S, OpF32ConvertI64U,
		OpF64ConvertI32S, OpF64ConvertI32U, OpF64ConvertI64S, OpF64ConvertI64U,
		OpF32DemoteF64, OpF64PromoteF32,
		OpI32ReinterpretF32, OpI64ReinterpretF64, OpF32ReinterpretI32, OpF64ReinterpretI64:
		return true
	}
	return false
}

func unaryOperandType(op byte) ValType {
	switch op {
	case OpI64Eqz, OpI64Clz, OpI64Ctz, OpI64Popcnt, OpI64ExtendI32S, OpI64ExtendI32U:
		return ValI64
	case OpF32Abs, OpF32Neg, OpF32Ceil, OpF32Floor, OpF32Trunc, OpF32Nearest, OpF32Sqrt,
		OpI32TruncF32S, OpI32TruncF32U, OpI64TruncF32S, OpI64TruncF32U,
		OpF64PromoteF32, OpI32ReinterpretF32:
		return ValF32
	case OpF64Abs, OpF64Neg, OpF64Ceil, OpF64Floor, OpF64Trunc, OpF64Nearest, OpF64Sqrt,
		OpI32TruncF64S, OpI32TruncF64U, OpI64TruncF64S, OpI64TruncF64U,
		OpF32DemoteF64, OpI64ReinterpretF64:
		return ValF64
	case OpI64Extend8S, OpI64Extend16S, OpI64Extend32S, OpF32ConvertI64S, OpF32ConvertI64U, OpF64ConvertI64S, OpF64ConvertI64U:
		return ValI64
	case OpF32ReinterpretI32, OpF64ConvertI32S, OpF64ConvertI32U, OpF32ConvertI32S, OpF32ConvertI32U:
		return ValI32
	}
	return ValI32
}

func unaryResultType(op byte) ValType {
	switch op {
	case OpI64Clz, OpI64Ctz, OpI64Popcnt, OpI64ExtendI32S, OpI64ExtendI32U,
		OpI64TruncF32S, OpI64TruncF32U, OpI64TruncF64S, OpI64TruncF64U,
		OpI64Extend8S, OpI64Extend16S, OpI64Extend32S, OpI64ReinterpretF64:
		return ValI64
	case OpF32Abs, OpF32Neg, OpF32Ceil, OpF32Floor, OpF32Trunc, OpF32Nearest, OpF32Sqrt,
		OpF32ConvertI32S, OpF32ConvertI32U, OpF32ConvertI64S, OpF32ConvertI64U,
		OpF32DemoteF64, OpF32ReinterpretI32:
		return ValF32
	case OpF64Abs, OpF64Neg, OpF64Ceil, OpF64Floor, OpF64Trunc, OpF64Nearest, OpF64Sqrt,
		OpF64ConvertI32S, OpF64ConvertI32U, OpF64ConvertI64S, OpF64ConvertI64U,
		OpF64PromoteF32, OpF64ReinterpretI64:
		return ValF64
	}
	return ValI32
}

func isBinaryOrCompareNumeric(op byte) bool {
	return op >= OpI32Eq && op <= OpF64Copysign
}

func binaryOperandType(op byte) ValType {
	switch {
	case op >= OpI32Eq && op <= OpI32Rotr:
		return ValI32
	case op >= OpI64Eq && op <= OpI64Rotr:
		return ValI64
	case op >= OpF32Eq && op <= OpF32Copysign:
		return ValF32
	case op >= OpF64Eq && op <= OpF64Copysign:
		return ValF64
	}
	return ValI32
}

func binaryResultType(op byte) ValType {
	switch {
	case op >= OpI32Add && op <= OpI32Rotr:
		return ValI32
	case op >= OpI64Add && op <= OpI64Rotr:
		return ValI64
	case op >= OpF32Add && op <= OpF32Copysign:
		return ValF32
	case op >= OpF64Add && op <= OpF64Copysign:
		return ValF64
	}
	return ValI32 // every comparison, regardless of operand type, yields i32
}
