// Package jit compiles register-IR (package rir) functions scheduled by the
// tier controller into native ARM64/x86_64 code, installed as the
// function's entry pointer once compilation succeeds.
//
// Scope: a function compiles only if every instruction in its register-IR
// form is a plain integer move, i32/i64 add/sub/mul (a constant operand only
// when rir.Build folded it into the instruction's immediate; a standalone
// const is rejected), a comparison fused into a branch (rir.OpBrCmp), an
// unconditional/conditional branch, or a return. Anything else (calls,
// memory/table/global access, floating point, SIMD) aborts the compile with
// ErrUnsupported; exception-bearing functions never get this far, since
// rir.Build rejects them and pins them to the interpreter. On rejection the tier
// controller leaves the function on the interpreter permanently
// (InterpreterPinned). This mirrors the teacher's own JIT, which rejects
// everything past integer arithmetic and control flow with "unsupported
// operation in JIT compiler" rather than attempting a partial lowering.
package jit
