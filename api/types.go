package api

import "fmt"

// ExternType classifies imports and exports. Ground: tetratelabs/wazero's
// api.ExternType.
type ExternType = byte

const (
	ExternTypeFunc   ExternType = 0x00
	ExternTypeTable  ExternType = 0x01
	ExternTypeMemory ExternType = 0x02
	ExternTypeGlobal ExternType = 0x03
)

// ExternTypeName returns the Wasm text-format field name for et.
func ExternTypeName(et ExternType) string {
	switch et {
	case ExternTypeFunc:
		return "func"
	case ExternTypeTable:
		return "table"
	case ExternTypeMemory:
		return "memory"
	case ExternTypeGlobal:
		return "global"
	default:
		return fmt.Sprintf("%#x", et)
	}
}

// RefType distinguishes the two reference types (spec §3).
type RefType = ValueType

const (
	RefTypeFuncref   RefType = ValueTypeFuncref
	RefTypeExternref RefType = ValueTypeExternref
)

// Limits bounds a memory or table's size, in units of pages (memory) or
// elements (table). Invariant: Max >= Min when HasMax is set (spec §3).
type Limits struct {
	Min    uint32
	Max    uint32
	HasMax bool
	Shared bool
}

// Valid reports whether the limits satisfy the spec §3 invariant.
func (l Limits) Valid() bool {
	return !l.HasMax || l.Max >= l.Min
}

// FuncType is a function signature, immutable after decode.
type FuncType struct {
	Params  []ValueType
	Results []ValueType
}

func (t *FuncType) String() string {
	s := "("
	for i, p := range t.Params {
		if i > 0 {
			s += ","
		}
		s += ValueTypeName(p)
	}
	s += ")->("
	for i, r := range t.Results {
		if i > 0 {
			s += ","
		}
		s += ValueTypeName(r)
	}
	return s + ")"
}

// Matches reports whether two function types have identical param/result
// shapes — used for call_indirect type checks and import linkage.
func (t *FuncType) Matches(o *FuncType) bool {
	if len(t.Params) != len(o.Params) || len(t.Results) != len(o.Results) {
		return false
	}
	for i := range t.Params {
		if t.Params[i] != o.Params[i] {
			return false
		}
	}
	for i := range t.Results {
		if t.Results[i] != o.Results[i] {
			return false
		}
	}
	return true
}

// MemoryType wraps the Limits of a linear memory, in pages.
type MemoryType struct {
	Limits Limits
}

// TableType wraps the Limits and element type of a table.
type TableType struct {
	ElemType RefType
	Limits   Limits
}

// GlobalType wraps a global's value type and mutability.
type GlobalType struct {
	ValType ValueType
	Mutable bool
}
