// Package rir builds the register IR (§4.4): it walks a pir.Program once,
// simulating the (now jump-resolved) operand stack with virtual registers
// instead of values, and applies a small set of peephole rewrites as it
// goes — the same "rewrite while you simulate" structure the corpus's
// stack-machine interpreters use for their own optimizing passes, adapted
// here to target register form rather than direct execution.
//
// Local variables are pre-assigned virtual registers 0..NumLocals-1, so
// local.get never needs to emit a move: it just pushes the local's own
// register onto the simulated stack. The peepholes that remain are:
//
//   - local.set/local.tee folded into the producing instruction's Dst when
//     the value being stored was produced by the immediately preceding
//     instruction and has no other use (elides a register-to-register move).
//   - constant folding: a const immediately consumed by a single binary op
//     is inlined into that op's Imm field rather than materialized in a
//     register.
//   - comparison+branch fusion: an i32/i64 comparison immediately consumed
//     by br_if, with no other use, fuses into a single BrCmp.
//
// There is no teacher equivalent (wippyai-wasm-runtime never builds an
// internal IR), so this package is grounded directly on spec §4.4.
package rir
