// Package tier decides when a function has been called, or looped, often
// enough to justify a native compile, and performs that compile when asked.
//
// It holds no per-function state itself (the call/backedge counters and the
// compile state machine live on vm's Function, which already needs a mutex
// for the same values the interpreter tiers read) — Controller is the
// policy object: the thresholds, and the register-allocate-then-codegen
// pipeline invoked once a caller decides a function crossed one.
package tier
