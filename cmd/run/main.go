// Command run loads a core WebAssembly module, instantiates it, and invokes
// an exported function, printing its result slots. It maps runtime outcomes
// to exit codes: 0 ok, 1 runtime trap or OS error, 2 invalid module or
// failed validation, 126 file not found.
package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/arwen-wasm/arwen/runtime"
	"github.com/arwen-wasm/arwen/vm"
	"github.com/arwen-wasm/arwen/wasi/preview2/clocks"
)

const (
	exitOK             = 0
	exitTrapOrOSError  = 1
	exitInvalidModule  = 2
	exitFileNotFound   = 126
)

func main() {
	var (
		wasmFile = flag.String("wasm", "", "path to a wasm module")
		funcName = flag.String("func", "", "exported function to call")
		argsStr  = flag.String("args", "", "comma-separated uint64 arguments")
		fuel     = flag.Uint64("fuel", 0, "fuel ceiling (0 = unlimited)")
		memCap   = flag.Uint64("mem-ceiling", 0, "memory ceiling in bytes (0 = module declared max)")
		list     = flag.Bool("list", false, "list imports and exit")
		interact = flag.Bool("i", false, "interactive mode: browse and call exports in a TUI")
	)
	flag.Parse()

	if *wasmFile == "" {
		fmt.Fprintln(os.Stderr, "usage: run -wasm <file.wasm> [-func name] [-args v1,v2,...]")
		fmt.Fprintln(os.Stderr, "       run -wasm <file.wasm> -list")
		fmt.Fprintln(os.Stderr, "       run -wasm <file.wasm> -i")
		os.Exit(exitInvalidModule)
	}

	if *interact {
		if err := runInteractive(*wasmFile); err != nil {
			fmt.Fprintf(os.Stderr, "interactive: %v\n", err)
			os.Exit(exitTrapOrOSError)
		}
		os.Exit(exitOK)
	}

	os.Exit(run(*wasmFile, *funcName, *argsStr, *fuel, *memCap, *list))
}

func run(wasmFile, funcName, argsStr string, fuel, memCeiling uint64, listOnly bool) int {
	data, err := os.ReadFile(wasmFile)
	if err != nil {
		if os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "%s: not found\n", wasmFile)
			return exitFileNotFound
		}
		fmt.Fprintf(os.Stderr, "read %s: %v\n", wasmFile, err)
		return exitTrapOrOSError
	}

	rt := runtime.New(nil)

	if listOnly {
		imports, err := rt.InspectImports(data)
		if err != nil {
			fmt.Fprintf(os.Stderr, "inspect: %v\n", err)
			return exitInvalidModule
		}
		for _, imp := range imports {
			fmt.Printf("%s.%s (%s)\n", imp.Module, imp.Name, imp.Kind)
		}
		return exitOK
	}

	mod, err := rt.LoadModule(data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load %s: %v\n", wasmFile, err)
		return exitInvalidModule
	}

	opts := []vm.Option{}
	if fuel != 0 {
		opts = append(opts, vm.WithFuelCeiling(fuel))
	}
	if memCeiling != 0 {
		opts = append(opts, vm.WithMemoryCeiling(memCeiling))
	}
	for _, hf := range clocks.NewWallClockHost().HostFuncs() {
		opts = append(opts, vm.WithHostFunc(hf.Module, hf.Name, hf.Type, hf.Func))
	}
	for _, hf := range clocks.NewMonotonicClockHost().HostFuncs() {
		opts = append(opts, vm.WithHostFunc(hf.Module, hf.Name, hf.Type, hf.Func))
	}

	inst, err := mod.Instantiate(opts...)
	if err != nil {
		return reportRuntimeError("instantiate", err)
	}
	defer inst.Close()

	if funcName == "" {
		fmt.Println("instantiated ok; use -func to invoke an export")
		return exitOK
	}

	args, err := parseArgs(argsStr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "parse args: %v\n", err)
		return exitInvalidModule
	}

	res, err := inst.Call(funcName, args...)
	if err != nil {
		return reportRuntimeError("call "+funcName, err)
	}

	fmt.Printf("result: %v\n", res)
	return exitOK
}

func parseArgs(s string) ([]uint64, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]uint64, len(parts))
	for i, p := range parts {
		v, err := strconv.ParseUint(strings.TrimSpace(p), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("argument %d (%q): %w", i, p, err)
		}
		out[i] = v
	}
	return out, nil
}

// reportRuntimeError prints err and returns its exit code. By this point
// the module already passed LoadModule's validation, so every remaining
// failure (trap, instantiate-time resource exhaustion, host error) is a
// runtime failure rather than an invalid-module one.
func reportRuntimeError(action string, err error) int {
	fmt.Fprintf(os.Stderr, "%s: %v\n", action, err)
	return exitTrapOrOSError
}
