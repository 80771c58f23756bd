package interp

import (
	"math"
	"math/bits"

	"github.com/arwen-wasm/arwen/errors"
	"github.com/arwen-wasm/arwen/wasm"
)

// Values are carried as raw 64-bit patterns throughout both interpreters:
// i32/i64 sign-extended where the op cares, f32/f64 in their IEEE bit
// pattern truncated/zero-extended to 64 bits. Each evaluator below knows
// which interpretation its opcode wants.

func trapDivByZero(srcIdx int) error {
	return errors.New(errors.PhaseExecute, errors.KindDivideByZero).Detail("integer divide by zero").Build()
}

func trapOverflow(srcIdx int) error {
	return errors.New(errors.PhaseExecute, errors.KindOverflow).Detail("integer overflow").Build()
}

func trapUnreachable(srcIdx int) error {
	return errors.New(errors.PhaseExecute, errors.KindUnreachable).Detail("unreachable executed").Build()
}

// applyUnary evaluates a unary numeric/conversion/sign-extension opcode.
func applyUnary(op byte, v uint64) (uint64, error) {
	switch op {
	case wasm.OpI32Clz:
		return uint64(bits.LeadingZeros32(uint32(v))), nil
	case wasm.OpI32Ctz:
		return uint64(bits.TrailingZeros32(uint32(v))), nil
	case wasm.OpI32Popcnt:
		return uint64(bits.OnesCount32(uint32(v))), nil
	case wasm.OpI64Clz:
		return uint64(bits.LeadingZeros64(v)), nil
	case wasm.OpI64Ctz:
		return uint64(bits.TrailingZeros64(v)), nil
	case wasm.OpI64Popcnt:
		return uint64(bits.OnesCount64(v)), nil

	case wasm.OpI32Eqz:
		return b2u(uint32(v) == 0), nil
	case wasm.OpI64Eqz:
		return b2u(v == 0), nil

	case wasm.OpF32Abs:
		return uint64(math.Float32bits(float32(math.Abs(float64(math.Float32frombits(uint32(v))))))), nil
	case wasm.OpF32Neg:
		return uint64(math.Float32bits(-math.Float32frombits(uint32(v)))), nil
	case wasm.OpF32Ceil:
		return uint64(math.Float32bits(float32(math.Ceil(float64(math.Float32frombits(uint32(v))))))), nil
	case wasm.OpF32Floor:
		return uint64(math.Float32bits(float32(math.Floor(float64(math.Float32frombits(uint32(v))))))), nil
	case wasm.OpF32Trunc:
		return uint64(math.Float32bits(float32(math.Trunc(float64(math.Float32frombits(uint32(v))))))), nil
	case wasm.OpF32Nearest:
		return uint64(math.Float32bits(float32(math.RoundToEven(float64(math.Float32frombits(uint32(v))))))), nil
	case wasm.OpF32Sqrt:
		return uint64(math.Float32bits(float32(math.Sqrt(float64(math.Float32frombits(uint32(v))))))), nil

	case wasm.OpF64Abs:
		return math.Float64bits(math.Abs(math.Float64frombits(v))), nil
	case wasm.OpF64Neg:
		return math.Float64bits(-math.Float64frombits(v)), nil
	case wasm.OpF64Ceil:
		return math.Float64bits(math.Ceil(math.Float64frombits(v))), nil
	case wasm.OpF64Floor:
		return math.Float64bits(math.Floor(math.Float64frombits(v))), nil
	case wasm.OpF64Trunc:
		return math.Float64bits(math.Trunc(math.Float64frombits(v))), nil
	case wasm.OpF64Nearest:
		return math.Float64bits(math.RoundToEven(math.Float64frombits(v))), nil
	case wasm.OpF64Sqrt:
		return math.Float64bits(math.Sqrt(math.Float64frombits(v))), nil

	case wasm.OpI32WrapI64:
		return uint64(uint32(v)), nil
	case wasm.OpI64ExtendI32S:
		return uint64(int64(int32(v))), nil
	case wasm.OpI64ExtendI32U:
		return uint64(uint32(v)), nil
	case wasm.OpI32Extend8S:
		return uint64(uint32(int32(int8(v)))), nil
	case wasm.OpI32Extend16S:
		return uint64(uint32(int32(int16(v)))), nil
	case wasm.OpI64Extend8S:
		return uint64(int64(int8(v))), nil
	case wasm.OpI64Extend16S:
		return uint64(int64(int16(v))), nil
	case wasm.OpI64Extend32S:
		return uint64(int64(int32(v))), nil

	case wasm.OpI32TruncF32S:
		return truncF32ToI(float64(math.Float32frombits(uint32(v))), 32, true)
	case wasm.OpI32TruncF32U:
		return truncF32ToI(float64(math.Float32frombits(uint32(v))), 32, false)
	case wasm.OpI32TruncF64S:
		return truncF32ToI(math.Float64frombits(v), 32, true)
	case wasm.OpI32TruncF64U:
		return truncF32ToI(math.Float64frombits(v), 32, false)
	case wasm.OpI64TruncF32S:
		return truncF32ToI(float64(math.Float32frombits(uint32(v))), 64, true)
	case wasm.OpI64TruncF32U:
		return truncF32ToI(float64(math.Float32frombits(uint32(v))), 64, false)
	case wasm.OpI64TruncF64S:
		return truncF32ToI(math.Float64frombits(v), 64, true)
	case wasm.OpI64TruncF64U:
		return truncF32ToI(math.Float64frombits(v), 64, false)

	case wasm.OpF32ConvertI32S:
		return uint64(math.Float32bits(float32(int32(v)))), nil
	case wasm.OpF32ConvertI32U:
		return uint64(math.Float32bits(float32(uint32(v)))), nil
	case wasm.OpF32ConvertI64S:
		return uint64(math.Float32bits(float32(int64(v)))), nil
	case wasm.OpF32ConvertI64U:
		return uint64(math.Float32bits(float32(v))), nil
	case wasm.OpF64ConvertI32S:
		return math.Float64bits(float64(int32(v))), nil
	case wasm.OpF64ConvertI32U:
		return math.Float64bits(float64(uint32(v))), nil
	case wasm.OpF64ConvertI64S:
		return math.Float64bits(float64(int64(v))), nil
	case wasm.OpF64ConvertI64U:
		return math.Float64bits(float64(v)), nil
	case wasm.OpF32DemoteF64:
		return uint64(math.Float32bits(float32(math.Float64frombits(v)))), nil
	case wasm.OpF64PromoteF32:
		return math.Float64bits(float64(math.Float32frombits(uint32(v)))), nil

	case wasm.OpI32ReinterpretF32, wasm.OpI64ReinterpretF64, wasm.OpF32ReinterpretI32, wasm.OpF64ReinterpretI64:
		return v, nil // same bit pattern, different interpretation downstream
	}
	return 0, errors.New(errors.PhaseExecute, errors.KindUnsupported).Detail("unsupported unary opcode 0x%02x", op).Build()
}

// truncF32ToI implements trunc_sat-free (trapping) float-to-int truncation:
// NaN and out-of-range values trap per the core spec, rather than saturating
// (that behavior lives under the 0xFC misc-opcode trunc_sat family instead).
func truncF32ToI(f float64, bitsz int, signed bool) (uint64, error) {
	if math.IsNaN(f) {
		return 0, errors.New(errors.PhaseExecute, errors.KindInvalidInput).Detail("invalid conversion to integer").Build()
	}
	t := math.Trunc(f)
	var lo, hi float64
	if signed {
		if bitsz == 32 {
			lo, hi = -2147483649, 2147483648
		} else {
			lo, hi = -9223372036854775809, 9223372036854775808
		}
	} else {
		lo = -1
		if bitsz == 32 {
			hi = 4294967296
		} else {
			hi = 18446744073709551616
		}
	}
	if t <= lo || t >= hi {
		return 0, errors.New(errors.PhaseExecute, errors.KindOverflow).Detail("integer overflow converting float to integer").Build()
	}
	if signed {
		if bitsz == 32 {
			return uint64(uint32(int32(t))), nil
		}
		return uint64(int64(t)), nil
	}
	if bitsz == 32 {
		return uint64(uint32(t)), nil
	}
	return uint64(t), nil
}

func b2u(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}

// applyBinary evaluates a binary numeric/comparison opcode. rhs may trigger
// a trap (division, remainder).
func applyBinary(op byte, lhs, rhs uint64) (uint64, error) {
	switch op {
	case wasm.OpI32Add:
		return uint64(uint32(lhs) + uint32(rhs)), nil
	case wasm.OpI32Sub:
		return uint64(uint32(lhs) - uint32(rhs)), nil
	case wasm.OpI32Mul:
		return uint64(uint32(lhs) * uint32(rhs)), nil
	case wasm.OpI32DivS:
		a, b := int32(lhs), int32(rhs)
		if b == 0 {
			return 0, trapDivByZero(0)
		}
		if a == math.MinInt32 && b == -1 {
			return 0, trapOverflow(0)
		}
		return uint64(uint32(a / b)), nil
	case wasm.OpI32DivU:
		if uint32(rhs) == 0 {
			return 0, trapDivByZero(0)
		}
		return uint64(uint32(lhs) / uint32(rhs)), nil
	case wasm.OpI32RemS:
		a, b := int32(lhs), int32(rhs)
		if b == 0 {
			return 0, trapDivByZero(0)
		}
		if a == math.MinInt32 && b == -1 {
			return 0, nil
		}
		return uint64(uint32(a % b)), nil
	case wasm.OpI32RemU:
		if uint32(rhs) == 0 {
			return 0, trapDivByZero(0)
		}
		return uint64(uint32(lhs) % uint32(rhs)), nil
	case wasm.OpI32And:
		return uint64(uint32(lhs) & uint32(rhs)), nil
	case wasm.OpI32Or:
		return uint64(uint32(lhs) | uint32(rhs)), nil
	case wasm.OpI32Xor:
		return uint64(uint32(lhs) ^ uint32(rhs)), nil
	case wasm.OpI32Shl:
		return uint64(uint32(lhs) << (uint32(rhs) & 31)), nil
	case wasm.OpI32ShrS:
		return uint64(uint32(int32(lhs) >> (uint32(rhs) & 31))), nil
	case wasm.OpI32ShrU:
		return uint64(uint32(lhs) >> (uint32(rhs) & 31)), nil
	case wasm.OpI32Rotl:
		return uint64(bits.RotateLeft32(uint32(lhs), int(rhs&31))), nil
	case wasm.OpI32Rotr:
		return uint64(bits.RotateLeft32(uint32(lhs), -int(rhs&31))), nil

	case wasm.OpI64Add:
		return lhs + rhs, nil
	case wasm.OpI64Sub:
		return lhs - rhs, nil
	case wasm.OpI64Mul:
		return lhs * rhs, nil
	case wasm.OpI64DivS:
		a, b := int64(lhs), int64(rhs)
		if b == 0 {
			return 0, trapDivByZero(0)
		}
		if a == math.MinInt64 && b == -1 {
			return 0, trapOverflow(0)
		}
		return uint64(a / b), nil
	case wasm.OpI64DivU:
		if rhs == 0 {
			return 0, trapDivByZero(0)
		}
		return lhs / rhs, nil
	case wasm.OpI64RemS:
		a, b := int64(lhs), int64(rhs)
		if b == 0 {
			return 0, trapDivByZero(0)
		}
		if a == math.MinInt64 && b == -1 {
			return 0, nil
		}
		return uint64(a % b), nil
	case wasm.OpI64RemU:
		if rhs == 0 {
			return 0, trapDivByZero(0)
		}
		return lhs % rhs, nil
	case wasm.OpI64And:
		return lhs & rhs, nil
	case wasm.OpI64Or:
		return lhs | rhs, nil
	case wasm.OpI64Xor:
		return lhs ^ rhs, nil
	case wasm.OpI64Shl:
		return lhs << (rhs & 63), nil
	case wasm.OpI64ShrS:
		return uint64(int64(lhs) >> (rhs & 63)), nil
	case wasm.OpI64ShrU:
		return lhs >> (rhs & 63), nil
	case wasm.OpI64Rotl:
		return bits.RotateLeft64(lhs, int(rhs&63)), nil
	case wasm.OpI64Rotr:
		return bits.RotateLeft64(lhs, -int(rhs&63)), nil

	case wasm.OpF32Add:
		return f32r(math.Float32frombits(uint32(lhs)) + math.Float32frombits(uint32(rhs))), nil
	case wasm.OpF32Sub:
		return f32r(math.Float32frombits(uint32(lhs)) - math.Float32frombits(uint32(rhs))), nil
	case wasm.OpF32Mul:
		return f32r(math.Float32frombits(uint32(lhs)) * math.Float32frombits(uint32(rhs))), nil
	case wasm.OpF32Div:
		return f32r(math.Float32frombits(uint32(lhs)) / math.Float32frombits(uint32(rhs))), nil
	case wasm.OpF32Min:
		return f32r(float32(math.Min(float64(math.Float32frombits(uint32(lhs))), float64(math.Float32frombits(uint32(rhs)))))), nil
	case wasm.OpF32Max:
		return f32r(float32(math.Max(float64(math.Float32frombits(uint32(lhs))), float64(math.Float32frombits(uint32(rhs)))))), nil
	case wasm.OpF32Copysign:
		return f32r(float32(math.Copysign(float64(math.Float32frombits(uint32(lhs))), float64(math.Float32frombits(uint32(rhs)))))), nil

	case wasm.OpF64Add:
		return math.Float64bits(math.Float64frombits(lhs) + math.Float64frombits(rhs)), nil
	case wasm.OpF64Sub:
		return math.Float64bits(math.Float64frombits(lhs) - math.Float64frombits(rhs)), nil
	case wasm.OpF64Mul:
		return math.Float64bits(math.Float64frombits(lhs) * math.Float64frombits(rhs)), nil
	case wasm.OpF64Div:
		return math.Float64bits(math.Float64frombits(lhs) / math.Float64frombits(rhs)), nil
	case wasm.OpF64Min:
		return math.Float64bits(math.Min(math.Float64frombits(lhs), math.Float64frombits(rhs))), nil
	case wasm.OpF64Max:
		return math.Float64bits(math.Max(math.Float64frombits(lhs), math.Float64frombits(rhs))), nil
	case wasm.OpF64Copysign:
		return math.Float64bits(math.Copysign(math.Float64frombits(lhs), math.Float64frombits(rhs))), nil
	}

	return applyCompareBits(op, lhs, rhs)
}

func f32r(f float32) uint64 { return uint64(math.Float32bits(f)) }

// applyCompareBits evaluates a comparison opcode, returning an i32 0/1.
func applyCompareBits(op byte, lhs, rhs uint64) (uint64, error) {
	switch op {
	case wasm.OpI32Eq:
		return b2u(uint32(lhs) == uint32(rhs)), nil
	case wasm.OpI32Ne:
		return b2u(uint32(lhs) != uint32(rhs)), nil
	case wasm.OpI32LtS:
		return b2u(int32(lhs) < int32(rhs)), nil
	case wasm.OpI32LtU:
		return b2u(uint32(lhs) < uint32(rhs)), nil
	case wasm.OpI32GtS:
		return b2u(int32(lhs) > int32(rhs)), nil
	case wasm.OpI32GtU:
		return b2u(uint32(lhs) > uint32(rhs)), nil
	case wasm.OpI32LeS:
		return b2u(int32(lhs) <= int32(rhs)), nil
	case wasm.OpI32LeU:
		return b2u(uint32(lhs) <= uint32(rhs)), nil
	case wasm.OpI32GeS:
		return b2u(int32(lhs) >= int32(rhs)), nil
	case wasm.OpI32GeU:
		return b2u(uint32(lhs) >= uint32(rhs)), nil

	case wasm.OpI64Eq:
		return b2u(lhs == rhs), nil
	case wasm.OpI64Ne:
		return b2u(lhs != rhs), nil
	case wasm.OpI64LtS:
		return b2u(int64(lhs) < int64(rhs)), nil
	case wasm.OpI64LtU:
		return b2u(lhs < rhs), nil
	case wasm.OpI64GtS:
		return b2u(int64(lhs) > int64(rhs)), nil
	case wasm.OpI64GtU:
		return b2u(lhs > rhs), nil
	case wasm.OpI64LeS:
		return b2u(int64(lhs) <= int64(rhs)), nil
	case wasm.OpI64LeU:
		return b2u(lhs <= rhs), nil
	case wasm.OpI64GeS:
		return b2u(int64(lhs) >= int64(rhs)), nil
	case wasm.OpI64GeU:
		return b2u(lhs >= rhs), nil

	case wasm.OpF32Eq:
		return b2u(math.Float32frombits(uint32(lhs)) == math.Float32frombits(uint32(rhs))), nil
	case wasm.OpF32Ne:
		return b2u(math.Float32frombits(uint32(lhs)) != math.Float32frombits(uint32(rhs))), nil
	case wasm.OpF32Lt:
		return b2u(math.Float32frombits(uint32(lhs)) < math.Float32frombits(uint32(rhs))), nil
	case wasm.OpF32Gt:
		return b2u(math.Float32frombits(uint32(lhs)) > math.Float32frombits(uint32(rhs))), nil
	case wasm.OpF32Le:
		return b2u(math.Float32frombits(uint32(lhs)) <= math.Float32frombits(uint32(rhs))), nil
	case wasm.OpF32Ge:
		return b2u(math.Float32frombits(uint32(lhs)) >= math.Float32frombits(uint32(rhs))), nil

	case wasm.OpF64Eq:
		return b2u(math.Float64frombits(lhs) == math.Float64frombits(rhs)), nil
	case wasm.OpF64Ne:
		return b2u(math.Float64frombits(lhs) != math.Float64frombits(rhs)), nil
	case wasm.OpF64Lt:
		return b2u(math.Float64frombits(lhs) < math.Float64frombits(rhs)), nil
	case wasm.OpF64Gt:
		return b2u(math.Float64frombits(lhs) > math.Float64frombits(rhs)), nil
	case wasm.OpF64Le:
		return b2u(math.Float64frombits(lhs) <= math.Float64frombits(rhs)), nil
	case wasm.OpF64Ge:
		return b2u(math.Float64frombits(lhs) >= math.Float64frombits(rhs)), nil
	}
	return 0, errors.New(errors.PhaseExecute, errors.KindUnsupported).Detail("unsupported binary opcode 0x%02x", op).Build()
}
