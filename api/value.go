// Package api includes the types and constants shared between wrtgo's
// embedder-facing surface and its internal packages, grounded on
// tetratelabs/wazero's api package (see DESIGN.md).
package api

import "math"

// ValueType describes a numeric or reference type used by Wasm. Function
// parameters, results, locals, and globals are all typed with one of
// these. See spec §3.
type ValueType = byte

const (
	ValueTypeI32       ValueType = 0x7f
	ValueTypeI64       ValueType = 0x7e
	ValueTypeF32       ValueType = 0x7d
	ValueTypeF64       ValueType = 0x7c
	ValueTypeV128      ValueType = 0x7b
	ValueTypeFuncref   ValueType = 0x70
	ValueTypeExternref ValueType = 0x6f
)

// ValueTypeName returns the Wasm text-format name of t, or "unknown".
func ValueTypeName(t ValueType) string {
	switch t {
	case ValueTypeI32:
		return "i32"
	case ValueTypeI64:
		return "i64"
	case ValueTypeF32:
		return "f32"
	case ValueTypeF64:
		return "f64"
	case ValueTypeV128:
		return "v128"
	case ValueTypeFuncref:
		return "funcref"
	case ValueTypeExternref:
		return "externref"
	default:
		return "unknown"
	}
}

// ValueTypeSize returns the storage size in bytes of a value of type t.
func ValueTypeSize(t ValueType) int {
	switch t {
	case ValueTypeI32, ValueTypeF32:
		return 4
	case ValueTypeI64, ValueTypeF64, ValueTypeFuncref, ValueTypeExternref:
		return 8
	case ValueTypeV128:
		return 16
	default:
		return 0
	}
}

// Value is the tagged union spec §3 defines: every Wasm runtime value the
// engine pushes onto its value stack or passes across the embedder
// boundary. I32/I64/F32/F64 are stored in their low-order bits of Lo,
// reinterpreted bitwise (float NaN payloads round-trip exactly, per
// spec §3). V128 uses both Lo and Hi for its 16 bytes. FuncRef/ExternRef
// use Lo as an index/opaque pointer-sized value; IsNull distinguishes the
// null reference from index/value zero.
type Value struct {
	Type   ValueType
	Lo, Hi uint64
	IsNull bool
}

// I32 constructs an i32 Value.
func I32(v uint32) Value { return Value{Type: ValueTypeI32, Lo: uint64(v)} }

// I64 constructs an i64 Value.
func I64(v uint64) Value { return Value{Type: ValueTypeI64, Lo: v} }

// F32Bits constructs an f32 Value from its bit pattern (NaN-preserving).
func F32Bits(bits uint32) Value { return Value{Type: ValueTypeF32, Lo: uint64(bits)} }

// F32 constructs an f32 Value from a float32, preserving its exact bit
// pattern (including NaN payload) on round-trip.
func F32(v float32) Value { return F32Bits(math.Float32bits(v)) }

// F64Bits constructs an f64 Value from its bit pattern.
func F64Bits(bits uint64) Value { return Value{Type: ValueTypeF64, Lo: bits} }

// F64 constructs an f64 Value from a float64.
func F64(v float64) Value { return F64Bits(math.Float64bits(v)) }

// V128 constructs a v128 Value from its two 64-bit lanes.
func V128(lo, hi uint64) Value { return Value{Type: ValueTypeV128, Lo: lo, Hi: hi} }

// FuncRef constructs a non-null funcref Value addressing function index i.
func FuncRef(i uint32) Value { return Value{Type: ValueTypeFuncref, Lo: uint64(i)} }

// NullFuncRef constructs the null funcref Value.
func NullFuncRef() Value { return Value{Type: ValueTypeFuncref, IsNull: true} }

// ExternRef constructs a non-null externref Value wrapping an opaque
// pointer-sized handle.
func ExternRef(v uint64) Value { return Value{Type: ValueTypeExternref, Lo: v} }

// NullExternRef constructs the null externref Value.
func NullExternRef() Value { return Value{Type: ValueTypeExternref, IsNull: true} }

// AsI32 reinterprets the value's low bits as a uint32, regardless of Type.
func (v Value) AsI32() uint32 { return uint32(v.Lo) }

// AsI64 reinterprets the value's low bits as a uint64.
func (v Value) AsI64() uint64 { return v.Lo }

// AsF32 reinterprets the value's low bits as a float32, preserving NaN bits.
func (v Value) AsF32() float32 { return math.Float32frombits(uint32(v.Lo)) }

// AsF64 reinterprets the value's low bits as a float64, preserving NaN bits.
func (v Value) AsF64() float64 { return math.Float64frombits(v.Lo) }

// Equal reports bitwise equality: integers and V128 compare by bit
// pattern, floats compare by bit pattern too (so two differently-payloaded
// NaNs of the same type are unequal, matching spec §3's "NaN bits
// preserved on round-trip").
func (v Value) Equal(o Value) bool {
	if v.Type != o.Type {
		return false
	}
	if v.Type == ValueTypeFuncref || v.Type == ValueTypeExternref {
		if v.IsNull || o.IsNull {
			return v.IsNull == o.IsNull
		}
	}
	return v.Lo == o.Lo && v.Hi == o.Hi
}
