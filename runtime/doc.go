// Package runtime is the friendly embedding façade over vm: it wraps
// vm.Engine/vm.Module/vm.Instance in names an embedder reaches for first
// (Runtime, Module, Instance) without giving up direct access to vm for
// callers that want the lower-level Options/Trap/ImportDescriptor types.
//
// This mirrors the teacher's split between its runtime package (the public
// face embedders import) and its engine package (the wazero-backed
// machinery underneath) — here engine has been replaced by vm end to end,
// but the two-layer shape survives because it is a genuinely useful seam:
// vm stays importable on its own for tests and tooling that don't want the
// extra wrapper.
package runtime
