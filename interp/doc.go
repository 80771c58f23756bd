// Package interp executes PIR (tier 0) and RIR (tier 1) programs directly,
// without generating native code (§4.6). It is the baseline every function
// starts in and the fallback a JIT frame deoptimizes to.
//
// There is no teacher file to adapt — wippyai-wasm-runtime hands execution
// to wazero — so the dispatch-loop shape (a switch over a flat instruction
// array, indirect-threaded by incrementing an integer program counter) is
// grounded on other_examples' dependency-free interpreters:
// justinclift-wagon's exec/vm.go and vertexdlt-vertexvm's wasm/module.go.
// Both PIR and RIR execution share the same numeric-opcode evaluator
// (numeric.go) since their instruction sets reuse the wasm opcode space
// directly; they differ only in operand addressing (an explicit stack vs.
// virtual registers) and in how control flow reaches the next instruction.
package interp
