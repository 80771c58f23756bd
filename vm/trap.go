package vm

import (
	"fmt"

	"github.com/arwen-wasm/arwen/errors"
	"github.com/arwen-wasm/arwen/interp"
	"github.com/arwen-wasm/arwen/memmodel"
)

// TrapKind is the tier-invariant trap taxonomy every interpreter and JIT path
// agrees on: the same Wasm operation traps with the same kind regardless of
// which tier executed it.
type TrapKind string

const (
	TrapUnreachable        TrapKind = "unreachable"
	TrapDivisionByZero     TrapKind = "division_by_zero"
	TrapIntegerOverflow    TrapKind = "integer_overflow"
	TrapInvalidConversion  TrapKind = "invalid_conversion"
	TrapOutOfBoundsMemory  TrapKind = "out_of_bounds_memory_access"
	TrapUndefinedElement   TrapKind = "undefined_element"
	TrapMismatchedSig      TrapKind = "mismatched_signatures"
	TrapStackOverflow      TrapKind = "stack_overflow"
	TrapMemoryLimit        TrapKind = "memory_limit_exceeded"
	TrapTableLimit         TrapKind = "table_limit_exceeded"
	TrapFuelExhausted      TrapKind = "fuel_exhausted"
	TrapWasmException      TrapKind = "wasm_exception"
	TrapHostError          TrapKind = "host_error"
)

// Trap is the runtime-error shape returned from Invoke: a classified kind
// plus, where meaningful, the function index and byte offset the fault
// occurred at (spec §7, "the embedder receives a typed error kind plus...the
// function index and byte offset").
type Trap struct {
	Cause     error
	Kind      TrapKind
	FuncIdx   uint32
	Offset    int
	Catchable bool // true only for WasmException (throw/throw_ref)
}

func (t *Trap) Error() string {
	if t.Catchable {
		return fmt.Sprintf("uncaught wasm exception at func %d offset %d: %v", t.FuncIdx, t.Offset, t.Cause)
	}
	return fmt.Sprintf("trap %s at func %d offset %d: %v", t.Kind, t.FuncIdx, t.Offset, t.Cause)
}

func (t *Trap) Unwrap() error { return t.Cause }

// classifyTrap maps an error surfacing from interp.ExecPIR/ExecRIR (or a jit
// call) to the tier-invariant taxonomy. funcIdx/offset are filled in by the
// caller, which alone knows which function/PC the error came from.
func classifyTrap(err error) TrapKind {
	if _, ok := err.(*interp.Exception); ok {
		return TrapWasmException
	}
	if _, ok := err.(*memmodel.ErrOutOfBounds); ok {
		return TrapOutOfBoundsMemory
	}
	e, ok := err.(*errors.Error)
	if !ok {
		return TrapHostError
	}
	switch e.Kind {
	case errors.KindUnreachable:
		return TrapUnreachable
	case errors.KindDivideByZero:
		return TrapDivisionByZero
	case errors.KindOverflow:
		return TrapIntegerOverflow
	case errors.KindInvalidInput:
		return TrapInvalidConversion
	case errors.KindOutOfBounds:
		return TrapOutOfBoundsMemory
	case errors.KindNotFound:
		return TrapUndefinedElement
	case errors.KindTypeMismatch:
		return TrapMismatchedSig
	case errors.KindStackOverflow:
		return TrapStackOverflow
	case errors.KindResourceExhausted:
		return TrapFuelExhausted
	case errors.KindNilPointer:
		return TrapUndefinedElement
	default:
		return TrapHostError
	}
}

// wrapTrap builds a Trap from an error returned by a call into funcIdx,
// storing offset as given. No source-map lookup happens here: every caller
// in this package passes -1, so a Trap carries no byte offset, and FuncIdx
// is the function that was called, not necessarily the one that faulted.
func wrapTrap(err error, funcIdx uint32, offset int) error {
	if err == nil {
		return nil
	}
	if t, ok := err.(*Trap); ok {
		return t
	}
	kind := classifyTrap(err)
	return &Trap{
		Cause:     err,
		Kind:      kind,
		FuncIdx:   funcIdx,
		Offset:    offset,
		Catchable: kind == TrapWasmException,
	}
}
