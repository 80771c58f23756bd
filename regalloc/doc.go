// Package regalloc assigns each rir.VReg a physical register or a spill
// slot (§4.5) via linear scan over per-register live ranges computed from
// a rir.Program's instruction order (RIR's register numbering already
// gives a natural program order, so computing live ranges is a single
// forward/backward scan rather than full dataflow).
//
// There is no teacher equivalent — wippyai-wasm-runtime never reaches
// codegen — so the physical register sets below are grounded on the
// instruction-struct shape retrieved from wazero's own allocator
// (other_examples' wazevo backend files: isa/arm64/instr.go's kind/prev/
// next-linked instruction and isa/amd64/machine.go's regAlloc/spillSlots
// fields), adapted into a simpler single-pass linear scan appropriate for
// a first JIT tier rather than wazero's full SSA allocator.
package regalloc
