package vm

import (
	"math"

	"github.com/arwen-wasm/arwen/errors"
	"github.com/arwen-wasm/arwen/wasm"
)

// refFuncTag marks a ref.func value's high bit, mirroring interp's internal
// function-reference representation (interp/exec_pir.go) so a const-evaluated
// global or table entry round-trips through ref.is_null/ref.func host calls
// identically to one produced at runtime by the interpreter.
const refFuncTag = uint64(1) << 63

// evalConstExpr runs a constant expression (a global's init value, a table's
// init value, or an element/data segment's offset) to a single 64-bit slot.
// The extended-constants proposal allows i32/i64 add/sub/mul inside these
// expressions in addition to a lone const/global.get/ref.null/ref.func, so
// this is a tiny stack machine rather than a single-instruction read.
func evalConstExpr(code []byte, globalGet func(idx uint32) uint64) (uint64, error) {
	ins, err := wasm.DecodeInstructions(code)
	if err != nil {
		return 0, errors.New(errors.PhaseValidate, errors.KindInvalidData).
			Detail("decode constant expression: %v", err).Cause(err).Build()
	}

	var stack []uint64
	push := func(v uint64) { stack = append(stack, v) }
	pop := func() uint64 {
		v := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		return v
	}

	for _, in := range ins {
		switch in.Opcode {
		case wasm.OpI32Const:
			push(uint64(uint32(in.Imm.(wasm.I32Imm).Value)))
		case wasm.OpI64Const:
			push(uint64(in.Imm.(wasm.I64Imm).Value))
		case wasm.OpF32Const:
			push(uint64(math.Float32bits(in.Imm.(wasm.F32Imm).Value)))
		case wasm.OpF64Const:
			push(math.Float64bits(in.Imm.(wasm.F64Imm).Value))
		case wasm.OpGlobalGet:
			push(globalGet(in.Imm.(wasm.GlobalImm).GlobalIdx))
		case wasm.OpRefNull:
			push(0)
		case wasm.OpRefFunc:
			push(uint64(in.Imm.(wasm.RefFuncImm).FuncIdx) | refFuncTag)
		case wasm.OpI32Add:
			b, a := pop(), pop()
			push(uint64(uint32(a) + uint32(b)))
		case wasm.OpI32Sub:
			b, a := pop(), pop()
			push(uint64(uint32(a) - uint32(b)))
		case wasm.OpI32Mul:
			b, a := pop(), pop()
			push(uint64(uint32(a) * uint32(b)))
		case wasm.OpI64Add:
			b, a := pop(), pop()
			push(a + b)
		case wasm.OpI64Sub:
			b, a := pop(), pop()
			push(a - b)
		case wasm.OpI64Mul:
			b, a := pop(), pop()
			push(a * b)
		case wasm.OpEnd:
			// terminator; nothing to do
		default:
			return 0, errors.New(errors.PhaseValidate, errors.KindUnsupported).
				Detail("opcode 0x%02x not valid in a constant expression", in.Opcode).Build()
		}
	}

	if len(stack) == 0 {
		return 0, nil
	}
	return stack[len(stack)-1], nil
}
