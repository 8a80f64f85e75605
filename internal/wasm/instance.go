package wasm

import (
	"github.com/pulseengine/wrtgo/internal/capability"
	"github.com/pulseengine/wrtgo/internal/safememory"
)

// PageSize is the fixed Wasm linear-memory allocation unit (spec GLOSSARY).
const PageSize = capability.BytesPerPage

// Memory is a runtime linear memory: a capability-gated safe-memory
// region sized in whole pages. Invariant (spec §3): region length is
// always an exact multiple of PageSize, bounded by Type.Limits.
type Memory struct {
	Type       MemoryType
	Region     safememory.Region
	Provider   safememory.Provider
	Capability *capability.Capability
	Tag        capability.Tag
}

// Pages reports the memory's current size in pages.
func (m *Memory) Pages() uint32 { return m.Region.Len() / PageSize }

// Grow attempts to grow the memory by delta pages. Returns the previous
// size in pages, or -1 if the capability's quota or the declared Limits.Max
// would be exceeded (spec §4.5 "memory.grow ... returns -1 on any
// failure; otherwise returns the previous size" — never traps).
func (m *Memory) Grow(delta uint32) int64 {
	prev := m.Pages()
	newPages := prev + delta
	if m.Type.Limits.HasMax && newPages > m.Type.Limits.Max {
		return -1
	}
	grown, err := m.Provider.Grow(m.Region, delta*PageSize)
	if err != nil {
		return -1
	}
	m.Region = grown
	return int64(prev)
}

// Table is a runtime table: a bounded sequence of references.
type Table struct {
	Type  TableType
	Elems []TableElem
}

// TableElem is one table slot: either null or a non-null reference. For
// funcref tables, FuncIdx addresses the owning instance's function index
// space; for externref tables, ExternVal carries an opaque host value.
type TableElem struct {
	IsNull    bool
	FuncIdx   Index
	ExternVal uint64
}

// Grow grows the table by delta elements, filling new slots with init.
// Returns the previous size, or -1 if the declared Limits.Max would be
// exceeded (symmetric with Memory.Grow; spec §4.5 applies the same "never
// traps" rule to table.grow). Table growth charges no capability budget.
func (t *Table) Grow(delta uint32, init TableElem) int64 {
	prev := uint32(len(t.Elems))
	newSize := prev + delta
	if t.Type.Limits.HasMax && newSize > t.Type.Limits.Max {
		return -1
	}
	for i := uint32(0); i < delta; i++ {
		t.Elems = append(t.Elems, init)
	}
	return int64(prev)
}

// Global is a runtime global: its declared type (mutability included)
// and its current value.
type Global struct {
	Type  GlobalType
	Value GlobalValue
}

// GlobalValue is the 128-bit-capable storage for a runtime global (reuses
// api.Value's Lo/Hi shape without importing api into the hot-path field
// name, since wasm package already aliases api.ValueType above).
type GlobalValue struct {
	Lo, Hi uint64
	IsNull bool
}

// FunctionInstance is a runtime function: either a Wasm-defined function
// (Kind == FunctionKindWasm, referencing its decoded Function body) or a
// host function bridged in at instantiation (Kind == FunctionKindHost).
type FunctionInstance struct {
	Kind     FunctionKind
	Type     *FuncType
	DebugName string

	// Wasm function fields.
	Module   *ModuleInstance
	FuncIdx  Index

	// Host function field.
	HostFunc HostFunction
}

// FunctionKind distinguishes a Wasm-defined function from a host-bridged
// one.
type FunctionKind uint8

const (
	FunctionKindWasm FunctionKind = iota
	FunctionKindHost
)

// HostFunction is the bridge signature a host provides at Instantiate
// time for each imported function (spec §6 "Import resolution interface").
// Stack carries encoded parameters on entry and encoded results on return,
// mirroring the teacher's api.GoFunction calling convention.
type HostFunction func(stack []uint64)

// ModuleInstance is a runtime instantiation of a Module (spec §3
// "Instance"). One instance per Engine.Instantiate call; its runtime
// Memory/Table/Global/Function slices are exclusively engine-owned.
type ModuleInstance struct {
	Module *Module

	Functions []*FunctionInstance
	Memories  []*Memory
	Tables    []*Table
	Globals   []*Global

	DataInstances    [][]byte
	ElementInstances [][]TableElem

	Exports map[string]ExportInstance
}

// ExportInstance resolves an export name to its concrete runtime object.
type ExportInstance struct {
	Kind    ExternKind
	FuncIdx Index
	MemIdx  Index
	TableIdx Index
	GlobalIdx Index
}
