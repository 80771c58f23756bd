package vm

import "github.com/arwen-wasm/arwen/interp"

// Exception is what Invoke returns (wrapped in a *Trap with Kind
// TrapWasmException) when a module throws past every try_table it runs
// through: unmatched exceptions propagate out of Invoke to the embedder
// rather than being swallowed, distinct from engine-detected traps, which
// are never catchable by wasm code.
type Exception struct {
	TagIdx  uint32
	Payload []uint64
}

// AsException extracts the tag and payload from a trap produced by an
// uncaught wasm exception, or ok=false for any other error (including
// traps whose Kind happens to be TrapWasmException by construction but
// whose Cause isn't an *interp.Exception, which should not occur but is
// handled defensively).
func AsException(err error) (*Exception, bool) {
	t, ok := err.(*Trap)
	if !ok || t.Kind != TrapWasmException {
		return nil, false
	}
	exc, ok := t.Cause.(*interp.Exception)
	if !ok {
		return nil, false
	}
	return &Exception{TagIdx: exc.TagIdx, Payload: exc.Payload}, true
}
