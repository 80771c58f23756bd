// Package preview2 is the namespace for WASI-shaped host function sets: each
// sub-package implements one wasi:* interface directly against
// vm.HostFunc's contract (args []uint64, results []uint64) rather than a
// component-model canonical-ABI binding, since the tiered core-module
// engine this spec builds never decodes the component model (see
// DESIGN.md). Only wasi:clocks survives that way today — it is the one
// interface simple enough (one or two scalar results, no string/list arguments) to
// expose without canonical-ABI lifting. The rest of the original preview2
// surface (filesystem, sockets, http, io streams, cli environment/stdio)
// needs memory-resident argument passing (pointers and lengths into a
// guest's linear memory for strings/lists/records) that a thin HostFunc
// shim could still express, but nothing in this tree builds that layer yet
// (see DESIGN.md for the scope decision on the rest of the original
// preview2 tree).
package preview2
