package vm

import "go.uber.org/zap"

// HostFunc is the host function contract (spec §6): it receives the
// already-popped argument slots and returns result slots, or an error
// surfaced to the Wasm caller as a trap.
type HostFunc func(args []uint64) ([]uint64, error)

// HostImport is one entry the embedder supplies to satisfy a module import.
type HostImport struct {
	Module string
	Name   string
	Func   HostFunc
	Type   HostFuncType
}

// HostFuncType mirrors wasm.FuncType for the host import table so vm/option.go
// does not need to import wasm just to name the field.
type HostFuncType struct {
	Params  []byte // wasm.ValType bytes
	Results []byte
}

// Capabilities gates the out-of-scope WASI collaborator's effects, per spec
// §6 "capability flags (read/write filesystem, env, etc.)"; the engine
// itself never interprets these, it only threads them through to host
// functions that choose to consult them.
type Capabilities struct {
	ReadFS  bool
	WriteFS bool
	Env     bool
}

// Options configures one Instantiate call.
type Options struct {
	FuelCeiling   uint64 // 0 = unlimited
	MemoryCeiling uint64 // bytes, 0 = use each memory's declared max
	CallDepthLimit int
	HostFuncs     []HostImport
	Capabilities  Capabilities
	PreopenedDirs map[string]string
	Env           map[string]string

	CallThreshold     uint64
	BackedgeThreshold uint64

	Logger *zap.Logger
}

// Option is a functional option over Options, matching the teacher's
// runtime.New(ctx, ...)/engine.NewWazeroEngine(ctx, ...) pattern.
type Option func(*Options)

// WithFuelCeiling bounds the number of interpreted-instruction decrements
// an instance may spend, across all of its invocations, before trapping
// FuelExhausted. The budget is not refilled between invocations, and code
// running on the native tier does not decrement it.
func WithFuelCeiling(n uint64) Option {
	return func(o *Options) { o.FuelCeiling = n }
}

// WithMemoryCeiling caps every memory's growth regardless of its declared
// max, in bytes.
func WithMemoryCeiling(bytes uint64) Option {
	return func(o *Options) { o.MemoryCeiling = bytes }
}

// WithCallDepthLimit overrides the default 1024 call-depth bound.
func WithCallDepthLimit(n int) Option {
	return func(o *Options) { o.CallDepthLimit = n }
}

// WithHostFunc registers one host import.
func WithHostFunc(module, name string, ft HostFuncType, fn HostFunc) Option {
	return func(o *Options) {
		o.HostFuncs = append(o.HostFuncs, HostImport{Module: module, Name: name, Func: fn, Type: ft})
	}
}

// WithCapabilities sets the WASI-style capability flags threaded to host
// functions.
func WithCapabilities(c Capabilities) Option {
	return func(o *Options) { o.Capabilities = c }
}

// WithPreopenedDir records a preopened directory mapping for host functions
// that implement filesystem access.
func WithPreopenedDir(guestPath, hostPath string) Option {
	return func(o *Options) {
		if o.PreopenedDirs == nil {
			o.PreopenedDirs = map[string]string{}
		}
		o.PreopenedDirs[guestPath] = hostPath
	}
}

// WithEnv sets one environment variable visible to host functions.
func WithEnv(key, value string) Option {
	return func(o *Options) {
		if o.Env == nil {
			o.Env = map[string]string{}
		}
		o.Env[key] = value
	}
}

// WithTierThresholds overrides the tier controller's default call/back-edge
// compile thresholds (8 calls / 1000 back-edges, per spec §4.10).
func WithTierThresholds(callThreshold, backedgeThreshold uint64) Option {
	return func(o *Options) {
		o.CallThreshold = callThreshold
		o.BackedgeThreshold = backedgeThreshold
	}
}

// WithLogger injects a structured logger; defaults to a no-op logger via
// engine.Logger() when unset.
func WithLogger(l *zap.Logger) Option {
	return func(o *Options) { o.Logger = l }
}

func defaultOptions() Options {
	return Options{
		CallDepthLimit:    1024,
		CallThreshold:     8,
		BackedgeThreshold: 1000,
	}
}
