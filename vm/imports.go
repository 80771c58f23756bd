package vm

import "github.com/arwen-wasm/arwen/wasm"

// ImportDescriptor describes one module import without requiring the
// module to be instantiated, for tooling that wants to list a module's
// dependencies before deciding how (or whether) to satisfy them.
type ImportDescriptor struct {
	Module string
	Name   string
	Kind   ImportKind
}

// ImportKind mirrors wasm's KindFunc/KindTable/KindMemory/KindGlobal/KindTag
// as a named type so callers outside package wasm get a readable enum.
type ImportKind byte

const (
	ImportFunc ImportKind = ImportKind(wasm.KindFunc)
	ImportTable ImportKind = ImportKind(wasm.KindTable)
	ImportMemory ImportKind = ImportKind(wasm.KindMemory)
	ImportGlobal ImportKind = ImportKind(wasm.KindGlobal)
	ImportTag ImportKind = ImportKind(wasm.KindTag)
)

func (k ImportKind) String() string {
	switch k {
	case ImportFunc:
		return "func"
	case ImportTable:
		return "table"
	case ImportMemory:
		return "memory"
	case ImportGlobal:
		return "global"
	case ImportTag:
		return "tag"
	default:
		return "unknown"
	}
}

// InspectImports decodes data enough to list its imports without running
// the full validator or instantiating it, so tooling can discover a
// module's dependencies ahead of deciding how to satisfy them.
func (e *Engine) InspectImports(data []byte) ([]ImportDescriptor, error) {
	raw, err := wasm.ParseModule(data)
	if err != nil {
		return nil, err
	}
	out := make([]ImportDescriptor, 0, len(raw.Imports))
	for _, imp := range raw.Imports {
		out = append(out, ImportDescriptor{
			Module: imp.Module,
			Name:   imp.Name,
			Kind:   ImportKind(imp.Desc.Kind),
		})
	}
	return out, nil
}
