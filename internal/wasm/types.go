// Package wasm holds the decoder's output type (Module) and the
// engine-owned runtime types (ModuleInstance, Memory, Table, Global,
// FunctionInstance) it's instantiated into. Grounded on tetratelabs/wazero's
// internal/wasm package — see DESIGN.md for the exact files consulted,
// since the pack's copy of that package's non-test sources did not
// survive retrieval.
package wasm

import "github.com/pulseengine/wrtgo/api"

// ValueType, RefType, FuncType, Limits, MemoryType, TableType, GlobalType
// are the same shapes as api's, re-exported here so decoder/runtime code
// doesn't need to import api directly for its own bookkeeping fields.
type (
	ValueType  = api.ValueType
	RefType    = api.RefType
	FuncType   = api.FuncType
	Limits     = api.Limits
	MemoryType = api.MemoryType
	TableType  = api.TableType
	GlobalType = api.GlobalType
)

// Index is a Wasm index-space reference (function, type, table, memory,
// global, local, label, element, data).
type Index = uint32

// Function is one decoded function body: its declared type, locals
// (run-length encoded as the binary format stores them), and pre-decoded
// instruction stream.
type Function struct {
	TypeIdx   Index
	Locals    []LocalGroup
	Body      []Instruction
	// NumLocals is len(params) + the expanded local count, used to size a
	// call frame's locals slab without re-walking Locals on every call.
	NumLocals int
}

// LocalGroup is one run of locals of the same type, as declared by the
// binary format's (count, type) pairs.
type LocalGroup struct {
	Count uint32
	Type  ValueType
}

// ExternKind classifies an import or export (spec §3 Module.exports /
// Module.imports).
type ExternKind = api.ExternType

// Import is one declared import.
type Import struct {
	Module, Name string
	Kind         ExternKind
	TypeIdx      Index // Kind == func
	MemType      MemoryType
	TableType    TableType
	GlobalType   GlobalType
}

// Export is one declared export.
type Export struct {
	Name  string
	Kind  ExternKind
	Index Index
}

// ElementMode distinguishes active/passive/declarative element segments.
type ElementMode uint8

const (
	ElementModeActive ElementMode = iota
	ElementModePassive
	ElementModeDeclarative
)

// ElementSegment is one decoded element segment.
type ElementSegment struct {
	Mode     ElementMode
	TableIdx Index // Mode == Active
	Offset   []Instruction // constant expression, Mode == Active
	Type     RefType
	Init     []Instruction // per-element constant expressions (func indices or ref.null/ref.func)
}

// DataMode distinguishes active/passive data segments.
type DataMode uint8

const (
	DataModeActive DataMode = iota
	DataModePassive
)

// DataSegment is one decoded data segment.
type DataSegment struct {
	Mode   DataMode
	MemIdx Index
	Offset []Instruction
	Init   []byte
}

// Global is one decoded global, its declared type and constant
// initializer expression.
type Global struct {
	Type GlobalType
	Init []Instruction
}

// TableDef is one decoded table declaration (no initializer beyond its
// type; elements come from ElementSegment).
type TableDef struct {
	Type TableType
}

// MemoryDef is one decoded memory declaration.
type MemoryDef struct {
	Type MemoryType
}

// NameSection holds the parsed custom "name" section (spec §6 "Module
// name section"): function, local, and label names for diagnostics.
type NameSection struct {
	ModuleName string
	Functions  map[Index]string
	Locals     map[Index]map[Index]string // funcIdx -> localIdx -> name
	Labels     map[Index]map[Index]string // funcIdx -> labelIdx -> name
}

// CustomSection preserves a non-"name" custom section uninterpreted
// (spec §6: "Custom sections other than name are preserved but
// uninterpreted").
type CustomSection struct {
	Name string
	Data []byte
}
