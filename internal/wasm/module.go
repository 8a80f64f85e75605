package wasm

import (
	"hash/crc32"

	"github.com/pulseengine/wrtgo/api"
	"github.com/pulseengine/wrtgo/internal/wasmruntime"
)

// ModuleID uniquely identifies a decoded Module for the engine's compiled-
// code cache, per spec §4.5 ("engine ... codes map[wasm.ModuleID][]*code").
// Ground: tetratelabs/wazero's wasm.ModuleID is a wyhash over the module's
// bytes; wrtgo substitutes CRC-32 (already required by internal/safememory)
// over the type+function section contents, avoiding a second hashing
// dependency (SPEC_FULL.md Open Question 2).
type ModuleID uint32

// Module is the decoder's bounded output (spec §3 "Module"). Every slice
// field here is populated once by internal/wasm/binary.Decode and never
// mutated afterward; Module is safe to share (reference-counted by its
// embedders) across multiple Engine.Load calls, since it is immutable.
type Module struct {
	ID ModuleID

	Types     []*FuncType
	Functions []*Function // code-section bodies, index space starts after imported funcs
	Tables    []TableDef
	Memories  []MemoryDef
	Globals   []Global

	Imports []Import
	Exports []Export

	Elements []ElementSegment
	Data     []DataSegment

	Start   Index
	HasStart bool

	Names          NameSection
	CustomSections []CustomSection

	// ImportedFunctionCount/TableCount/MemoryCount/GlobalCount record how
	// many of each index space's entries are satisfied by imports, so the
	// instantiator knows where locally-defined indices begin.
	ImportedFunctionCount uint32
	ImportedTableCount    uint32
	ImportedMemoryCount   uint32
	ImportedGlobalCount   uint32
}

// ComputeID derives the Module's cache identity from its type and
// function section bytes. Called once by the decoder after a successful
// parse.
func ComputeID(typeSectionBytes, functionSectionBytes []byte) ModuleID {
	h := crc32.NewIEEE()
	h.Write(typeSectionBytes)
	h.Write(functionSectionBytes)
	return ModuleID(h.Sum32())
}

// FunctionTypeIndex resolves the declared FuncType of the function at the
// given index in the combined (imported + local) function index space.
func (m *Module) FunctionTypeIndex(funcIdx Index) (*FuncType, error) {
	if funcIdx < m.ImportedFunctionCount {
		imp := 0
		for _, i := range m.Imports {
			if i.Kind != api.ExternTypeFunc {
				continue
			}
			if Index(imp) == funcIdx {
				if int(i.TypeIdx) >= len(m.Types) {
					return nil, wasmruntime.NewDecodeError(wasmruntime.DecodeInvalid, "import", 0, "type index out of range")
				}
				return m.Types[i.TypeIdx], nil
			}
			imp++
		}
		return nil, wasmruntime.NewDecodeError(wasmruntime.DecodeInvalid, "import", 0, "function index out of range")
	}
	localIdx := int(funcIdx - m.ImportedFunctionCount)
	if localIdx < 0 || localIdx >= len(m.Functions) {
		return nil, wasmruntime.NewDecodeError(wasmruntime.DecodeInvalid, "function", 0, "function index out of range")
	}
	f := m.Functions[localIdx]
	if int(f.TypeIdx) >= len(m.Types) {
		return nil, wasmruntime.NewDecodeError(wasmruntime.DecodeInvalid, "function", 0, "type index out of range")
	}
	return m.Types[f.TypeIdx], nil
}

// ExportedFunction resolves a function export by name, as used by
// Engine.Invoke (spec §4.5 "invoke(export_name, args) resolves the
// export").
func (m *Module) ExportedFunction(name string) (Index, bool) {
	for _, e := range m.Exports {
		if e.Kind == api.ExternTypeFunc && e.Name == name {
			return e.Index, true
		}
	}
	return 0, false
}
