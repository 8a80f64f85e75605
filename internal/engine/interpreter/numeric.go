package interpreter

import (
	"math"
	"math/bits"

	"github.com/pulseengine/wrtgo/internal/wasm"
	"github.com/pulseengine/wrtgo/internal/wasmruntime"
)

// execNumeric executes every numeric opcode (spec §4.4 "Numeric
// instructions"): constants, comparisons, and arithmetic/conversion ops,
// including the traps Wasm's numeric semantics require (integer
// divide-by-zero, signed overflow on INT_MIN/-1, and out-of-range/NaN
// float-to-int conversion). This mirrors tetratelabs/wazero's
// interpreter.go numeric op cases, rewritten without its bytecode
// compilation step since wrtgo's decoder already inlines operands.
func (ce *callEngine) execNumeric(f *frame, in wasm.Instruction) bool {
	switch in.Op {
	case wasm.OpI32Const:
		ce.pushValue(uint64(uint32(in.I1)))
	case wasm.OpI64Const:
		ce.pushValue(uint64(in.I1))
	case wasm.OpF32Const:
		ce.pushValue(in.U1)
	case wasm.OpF64Const:
		ce.pushValue(in.U1)

	case wasm.OpI32Eqz:
		ce.pushValue(b2u(uint32(ce.popValue()) == 0))
	case wasm.OpI32Eq:
		a, b := ce.pop2u32()
		ce.pushValue(b2u(a == b))
	case wasm.OpI32Ne:
		a, b := ce.pop2u32()
		ce.pushValue(b2u(a != b))
	case wasm.OpI32LtS:
		a, b := ce.pop2i32()
		ce.pushValue(b2u(a < b))
	case wasm.OpI32LtU:
		a, b := ce.pop2u32()
		ce.pushValue(b2u(a < b))
	case wasm.OpI32GtS:
		a, b := ce.pop2i32()
		ce.pushValue(b2u(a > b))
	case wasm.OpI32GtU:
		a, b := ce.pop2u32()
		ce.pushValue(b2u(a > b))
	case wasm.OpI32LeS:
		a, b := ce.pop2i32()
		ce.pushValue(b2u(a <= b))
	case wasm.OpI32LeU:
		a, b := ce.pop2u32()
		ce.pushValue(b2u(a <= b))
	case wasm.OpI32GeS:
		a, b := ce.pop2i32()
		ce.pushValue(b2u(a >= b))
	case wasm.OpI32GeU:
		a, b := ce.pop2u32()
		ce.pushValue(b2u(a >= b))

	case wasm.OpI64Eqz:
		ce.pushValue(b2u(ce.popValue() == 0))
	case wasm.OpI64Eq:
		a, b := ce.pop2u64()
		ce.pushValue(b2u(a == b))
	case wasm.OpI64Ne:
		a, b := ce.pop2u64()
		ce.pushValue(b2u(a != b))
	case wasm.OpI64LtS:
		a, b := ce.pop2i64()
		ce.pushValue(b2u(a < b))
	case wasm.OpI64LtU:
		a, b := ce.pop2u64()
		ce.pushValue(b2u(a < b))
	case wasm.OpI64GtS:
		a, b := ce.pop2i64()
		ce.pushValue(b2u(a > b))
	case wasm.OpI64GtU:
		a, b := ce.pop2u64()
		ce.pushValue(b2u(a > b))
	case wasm.OpI64LeS:
		a, b := ce.pop2i64()
		ce.pushValue(b2u(a <= b))
	case wasm.OpI64LeU:
		a, b := ce.pop2u64()
		ce.pushValue(b2u(a <= b))
	case wasm.OpI64GeS:
		a, b := ce.pop2i64()
		ce.pushValue(b2u(a >= b))
	case wasm.OpI64GeU:
		a, b := ce.pop2u64()
		ce.pushValue(b2u(a >= b))

	case wasm.OpF32Eq:
		a, b := ce.pop2f32()
		ce.pushValue(b2u(a == b))
	case wasm.OpF32Ne:
		a, b := ce.pop2f32()
		ce.pushValue(b2u(a != b))
	case wasm.OpF32Lt:
		a, b := ce.pop2f32()
		ce.pushValue(b2u(a < b))
	case wasm.OpF32Gt:
		a, b := ce.pop2f32()
		ce.pushValue(b2u(a > b))
	case wasm.OpF32Le:
		a, b := ce.pop2f32()
		ce.pushValue(b2u(a <= b))
	case wasm.OpF32Ge:
		a, b := ce.pop2f32()
		ce.pushValue(b2u(a >= b))

	case wasm.OpF64Eq:
		a, b := ce.pop2f64()
		ce.pushValue(b2u(a == b))
	case wasm.OpF64Ne:
		a, b := ce.pop2f64()
		ce.pushValue(b2u(a != b))
	case wasm.OpF64Lt:
		a, b := ce.pop2f64()
		ce.pushValue(b2u(a < b))
	case wasm.OpF64Gt:
		a, b := ce.pop2f64()
		ce.pushValue(b2u(a > b))
	case wasm.OpF64Le:
		a, b := ce.pop2f64()
		ce.pushValue(b2u(a <= b))
	case wasm.OpF64Ge:
		a, b := ce.pop2f64()
		ce.pushValue(b2u(a >= b))

	case wasm.OpI32Clz:
		ce.pushValue(uint64(bits.LeadingZeros32(uint32(ce.popValue()))))
	case wasm.OpI32Ctz:
		ce.pushValue(uint64(bits.TrailingZeros32(uint32(ce.popValue()))))
	case wasm.OpI32Popcnt:
		ce.pushValue(uint64(bits.OnesCount32(uint32(ce.popValue()))))
	case wasm.OpI32Add:
		a, b := ce.pop2u32()
		ce.pushValue(uint64(a + b))
	case wasm.OpI32Sub:
		a, b := ce.pop2u32()
		ce.pushValue(uint64(a - b))
	case wasm.OpI32Mul:
		a, b := ce.pop2u32()
		ce.pushValue(uint64(a * b))
	case wasm.OpI32DivS:
		a, b := ce.pop2i32()
		ce.trapDivZero32(b, f)
		if a == math.MinInt32 && b == -1 {
			panic(wasmruntime.NewTrap(wasmruntime.TrapIntegerOverflow, f.fn.FuncIdx, uint32(f.pc), "i32.div_s overflow"))
		}
		ce.pushValue(uint64(uint32(a / b)))
	case wasm.OpI32DivU:
		a, b := ce.pop2u32()
		ce.trapDivZero32u(b, f)
		ce.pushValue(uint64(a / b))
	case wasm.OpI32RemS:
		a, b := ce.pop2i32()
		ce.trapDivZero32(b, f)
		ce.pushValue(uint64(uint32(a % b)))
	case wasm.OpI32RemU:
		a, b := ce.pop2u32()
		ce.trapDivZero32u(b, f)
		ce.pushValue(uint64(a % b))
	case wasm.OpI32And:
		a, b := ce.pop2u32()
		ce.pushValue(uint64(a & b))
	case wasm.OpI32Or:
		a, b := ce.pop2u32()
		ce.pushValue(uint64(a | b))
	case wasm.OpI32Xor:
		a, b := ce.pop2u32()
		ce.pushValue(uint64(a ^ b))
	case wasm.OpI32Shl:
		a, b := ce.pop2u32()
		ce.pushValue(uint64(a << (b & 31)))
	case wasm.OpI32ShrS:
		a, b := ce.pop2i32()
		ce.pushValue(uint64(uint32(a >> (uint32(b) & 31))))
	case wasm.OpI32ShrU:
		a, b := ce.pop2u32()
		ce.pushValue(uint64(a >> (b & 31)))
	case wasm.OpI32Rotl:
		a, b := ce.pop2u32()
		ce.pushValue(uint64(bits.RotateLeft32(a, int(b))))
	case wasm.OpI32Rotr:
		a, b := ce.pop2u32()
		ce.pushValue(uint64(bits.RotateLeft32(a, -int(b))))

	case wasm.OpI64Clz:
		ce.pushValue(uint64(bits.LeadingZeros64(ce.popValue())))
	case wasm.OpI64Ctz:
		ce.pushValue(uint64(bits.TrailingZeros64(ce.popValue())))
	case wasm.OpI64Popcnt:
		ce.pushValue(uint64(bits.OnesCount64(ce.popValue())))
	case wasm.OpI64Add:
		a, b := ce.pop2u64()
		ce.pushValue(a + b)
	case wasm.OpI64Sub:
		a, b := ce.pop2u64()
		ce.pushValue(a - b)
	case wasm.OpI64Mul:
		a, b := ce.pop2u64()
		ce.pushValue(a * b)
	case wasm.OpI64DivS:
		a, b := ce.pop2i64()
		ce.trapDivZero64(b, f)
		if a == math.MinInt64 && b == -1 {
			panic(wasmruntime.NewTrap(wasmruntime.TrapIntegerOverflow, f.fn.FuncIdx, uint32(f.pc), "i64.div_s overflow"))
		}
		ce.pushValue(uint64(a / b))
	case wasm.OpI64DivU:
		a, b := ce.pop2u64()
		ce.trapDivZero64u(b, f)
		ce.pushValue(a / b)
	case wasm.OpI64RemS:
		a, b := ce.pop2i64()
		ce.trapDivZero64(b, f)
		ce.pushValue(uint64(a % b))
	case wasm.OpI64RemU:
		a, b := ce.pop2u64()
		ce.trapDivZero64u(b, f)
		ce.pushValue(a % b)
	case wasm.OpI64And:
		a, b := ce.pop2u64()
		ce.pushValue(a & b)
	case wasm.OpI64Or:
		a, b := ce.pop2u64()
		ce.pushValue(a | b)
	case wasm.OpI64Xor:
		a, b := ce.pop2u64()
		ce.pushValue(a ^ b)
	case wasm.OpI64Shl:
		a, b := ce.pop2u64()
		ce.pushValue(a << (b & 63))
	case wasm.OpI64ShrS:
		a, b := ce.pop2i64()
		ce.pushValue(uint64(a >> (uint64(b) & 63)))
	case wasm.OpI64ShrU:
		a, b := ce.pop2u64()
		ce.pushValue(a >> (b & 63))
	case wasm.OpI64Rotl:
		a, b := ce.pop2u64()
		ce.pushValue(bits.RotateLeft64(a, int(b)))
	case wasm.OpI64Rotr:
		a, b := ce.pop2u64()
		ce.pushValue(bits.RotateLeft64(a, -int(b)))

	case wasm.OpF32Abs:
		ce.pushF32(float32(math.Abs(float64(ce.popF32()))))
	case wasm.OpF32Neg:
		ce.pushF32(-ce.popF32())
	case wasm.OpF32Ceil:
		ce.pushF32(float32(math.Ceil(float64(ce.popF32()))))
	case wasm.OpF32Floor:
		ce.pushF32(float32(math.Floor(float64(ce.popF32()))))
	case wasm.OpF32Trunc:
		ce.pushF32(float32(math.Trunc(float64(ce.popF32()))))
	case wasm.OpF32Nearest:
		ce.pushF32(float32(math.RoundToEven(float64(ce.popF32()))))
	case wasm.OpF32Sqrt:
		ce.pushF32(float32(math.Sqrt(float64(ce.popF32()))))
	case wasm.OpF32Add:
		a, b := ce.pop2f32()
		ce.pushF32(a + b)
	case wasm.OpF32Sub:
		a, b := ce.pop2f32()
		ce.pushF32(a - b)
	case wasm.OpF32Mul:
		a, b := ce.pop2f32()
		ce.pushF32(a * b)
	case wasm.OpF32Div:
		a, b := ce.pop2f32()
		ce.pushF32(a / b)
	case wasm.OpF32Min:
		a, b := ce.pop2f32()
		ce.pushF32(f32Min(a, b))
	case wasm.OpF32Max:
		a, b := ce.pop2f32()
		ce.pushF32(f32Max(a, b))
	case wasm.OpF32Copysign:
		a, b := ce.pop2f32()
		ce.pushF32(float32(math.Copysign(float64(a), float64(b))))

	case wasm.OpF64Abs:
		ce.pushF64(math.Abs(ce.popF64()))
	case wasm.OpF64Neg:
		ce.pushF64(-ce.popF64())
	case wasm.OpF64Ceil:
		ce.pushF64(math.Ceil(ce.popF64()))
	case wasm.OpF64Floor:
		ce.pushF64(math.Floor(ce.popF64()))
	case wasm.OpF64Trunc:
		ce.pushF64(math.Trunc(ce.popF64()))
	case wasm.OpF64Nearest:
		ce.pushF64(math.RoundToEven(ce.popF64()))
	case wasm.OpF64Sqrt:
		ce.pushF64(math.Sqrt(ce.popF64()))
	case wasm.OpF64Add:
		a, b := ce.pop2f64()
		ce.pushF64(a + b)
	case wasm.OpF64Sub:
		a, b := ce.pop2f64()
		ce.pushF64(a - b)
	case wasm.OpF64Mul:
		a, b := ce.pop2f64()
		ce.pushF64(a * b)
	case wasm.OpF64Div:
		a, b := ce.pop2f64()
		ce.pushF64(a / b)
	case wasm.OpF64Min:
		a, b := ce.pop2f64()
		ce.pushF64(f64Min(a, b))
	case wasm.OpF64Max:
		a, b := ce.pop2f64()
		ce.pushF64(f64Max(a, b))
	case wasm.OpF64Copysign:
		a, b := ce.pop2f64()
		ce.pushF64(math.Copysign(a, b))

	case wasm.OpI32WrapI64:
		ce.pushValue(uint64(uint32(ce.popValue())))
	case wasm.OpI64ExtendI32S:
		ce.pushValue(uint64(int64(int32(uint32(ce.popValue())))))
	case wasm.OpI64ExtendI32U:
		ce.pushValue(uint64(uint32(ce.popValue())))
	case wasm.OpI32TruncF32S:
		ce.pushValue(uint64(uint32(ce.truncToI64(float64(ce.popF32()), math.MinInt32, math.MaxInt32, f, "i32.trunc_f32_s"))))
	case wasm.OpI32TruncF32U:
		ce.pushValue(uint64(uint32(ce.truncToU64(float64(ce.popF32()), math.MaxUint32, f, "i32.trunc_f32_u"))))
	case wasm.OpI32TruncF64S:
		ce.pushValue(uint64(uint32(ce.truncToI64(ce.popF64(), math.MinInt32, math.MaxInt32, f, "i32.trunc_f64_s"))))
	case wasm.OpI32TruncF64U:
		ce.pushValue(uint64(uint32(ce.truncToU64(ce.popF64(), math.MaxUint32, f, "i32.trunc_f64_u"))))
	case wasm.OpI64TruncF32S:
		ce.pushValue(uint64(ce.truncToI64(float64(ce.popF32()), math.MinInt64, math.MaxInt64, f, "i64.trunc_f32_s")))
	case wasm.OpI64TruncF32U:
		ce.pushValue(ce.truncToU64(float64(ce.popF32()), math.MaxUint64, f, "i64.trunc_f32_u"))
	case wasm.OpI64TruncF64S:
		ce.pushValue(uint64(ce.truncToI64(ce.popF64(), math.MinInt64, math.MaxInt64, f, "i64.trunc_f64_s")))
	case wasm.OpI64TruncF64U:
		ce.pushValue(ce.truncToU64(ce.popF64(), math.MaxUint64, f, "i64.trunc_f64_u"))
	case wasm.OpF32ConvertI32S:
		ce.pushF32(float32(int32(uint32(ce.popValue()))))
	case wasm.OpF32ConvertI32U:
		ce.pushF32(float32(uint32(ce.popValue())))
	case wasm.OpF32ConvertI64S:
		ce.pushF32(float32(int64(ce.popValue())))
	case wasm.OpF32ConvertI64U:
		ce.pushF32(float32(ce.popValue()))
	case wasm.OpF32DemoteF64:
		ce.pushF32(float32(ce.popF64()))
	case wasm.OpF64ConvertI32S:
		ce.pushF64(float64(int32(uint32(ce.popValue()))))
	case wasm.OpF64ConvertI32U:
		ce.pushF64(float64(uint32(ce.popValue())))
	case wasm.OpF64ConvertI64S:
		ce.pushF64(float64(int64(ce.popValue())))
	case wasm.OpF64ConvertI64U:
		ce.pushF64(float64(ce.popValue()))
	case wasm.OpF64PromoteF32:
		ce.pushF64(float64(ce.popF32()))
	case wasm.OpI32ReinterpretF32, wasm.OpI64ReinterpretF64, wasm.OpF32ReinterpretI32, wasm.OpF64ReinterpretI64:
		// Same bit pattern, different declared type: no-op on the raw stack slot.

	case wasm.OpI32Extend8S:
		ce.pushValue(uint64(uint32(int32(int8(uint8(ce.popValue()))))))
	case wasm.OpI32Extend16S:
		ce.pushValue(uint64(uint32(int32(int16(uint16(ce.popValue()))))))
	case wasm.OpI64Extend8S:
		ce.pushValue(uint64(int64(int8(uint8(ce.popValue())))))
	case wasm.OpI64Extend16S:
		ce.pushValue(uint64(int64(int16(uint16(ce.popValue())))))
	case wasm.OpI64Extend32S:
		ce.pushValue(uint64(int64(int32(uint32(ce.popValue())))))

	case wasm.OpI32TruncSatF32S:
		ce.pushValue(uint64(uint32(satI32(float64(ce.popF32())))))
	case wasm.OpI32TruncSatF32U:
		ce.pushValue(uint64(uint32(satU32(float64(ce.popF32())))))
	case wasm.OpI32TruncSatF64S:
		ce.pushValue(uint64(uint32(satI32(ce.popF64()))))
	case wasm.OpI32TruncSatF64U:
		ce.pushValue(uint64(uint32(satU32(ce.popF64()))))
	case wasm.OpI64TruncSatF32S:
		ce.pushValue(uint64(satI64(float64(ce.popF32()))))
	case wasm.OpI64TruncSatF32U:
		ce.pushValue(satU64(float64(ce.popF32())))
	case wasm.OpI64TruncSatF64S:
		ce.pushValue(uint64(satI64(ce.popF64())))
	case wasm.OpI64TruncSatF64U:
		ce.pushValue(satU64(ce.popF64()))

	case wasm.OpRefNull:
		ce.pushValue(0)
	case wasm.OpRefIsNull:
		ce.pushValue(b2u(ce.popValue() == 0))
	case wasm.OpRefFunc:
		ce.pushValue(in.U1 | 1<<63)

	default:
		return false
	}
	return true
}

func b2u(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}

func (ce *callEngine) pop2u32() (uint32, uint32) {
	b := uint32(ce.popValue())
	a := uint32(ce.popValue())
	return a, b
}

func (ce *callEngine) pop2i32() (int32, int32) {
	a, b := ce.pop2u32()
	return int32(a), int32(b)
}

func (ce *callEngine) pop2u64() (uint64, uint64) {
	b := ce.popValue()
	a := ce.popValue()
	return a, b
}

func (ce *callEngine) pop2i64() (int64, int64) {
	a, b := ce.pop2u64()
	return int64(a), int64(b)
}

func (ce *callEngine) popF32() float32 { return math.Float32frombits(uint32(ce.popValue())) }
func (ce *callEngine) popF64() float64 { return math.Float64frombits(ce.popValue()) }
func (ce *callEngine) pushF32(v float32) { ce.pushValue(uint64(math.Float32bits(v))) }
func (ce *callEngine) pushF64(v float64) { ce.pushValue(math.Float64bits(v)) }

func (ce *callEngine) pop2f32() (float32, float32) {
	b := ce.popF32()
	a := ce.popF32()
	return a, b
}

func (ce *callEngine) pop2f64() (float64, float64) {
	b := ce.popF64()
	a := ce.popF64()
	return a, b
}

func f32Min(a, b float32) float32 {
	if math.IsNaN(float64(a)) || math.IsNaN(float64(b)) {
		return float32(math.NaN())
	}
	if a == 0 && b == 0 {
		return float32(math.Copysign(0, math.Min(float64(math.Copysign(1, float64(a))), float64(math.Copysign(1, float64(b))))))
	}
	if a < b {
		return a
	}
	return b
}

func f32Max(a, b float32) float32 {
	if math.IsNaN(float64(a)) || math.IsNaN(float64(b)) {
		return float32(math.NaN())
	}
	if a == 0 && b == 0 {
		return float32(math.Copysign(0, math.Max(float64(math.Copysign(1, float64(a))), float64(math.Copysign(1, float64(b))))))
	}
	if a > b {
		return a
	}
	return b
}

func f64Min(a, b float64) float64 {
	if math.IsNaN(a) || math.IsNaN(b) {
		return math.NaN()
	}
	if a == 0 && b == 0 {
		return math.Copysign(0, math.Min(math.Copysign(1, a), math.Copysign(1, b)))
	}
	return math.Min(a, b)
}

func f64Max(a, b float64) float64 {
	if math.IsNaN(a) || math.IsNaN(b) {
		return math.NaN()
	}
	if a == 0 && b == 0 {
		return math.Copysign(0, math.Max(math.Copysign(1, a), math.Copysign(1, b)))
	}
	return math.Max(a, b)
}

func (ce *callEngine) trapDivZero32(b int32, f *frame) {
	if b == 0 {
		panic(wasmruntime.NewTrap(wasmruntime.TrapIntegerDivideByZero, f.fn.FuncIdx, uint32(f.pc), "integer divide by zero"))
	}
}

func (ce *callEngine) trapDivZero32u(b uint32, f *frame) {
	if b == 0 {
		panic(wasmruntime.NewTrap(wasmruntime.TrapIntegerDivideByZero, f.fn.FuncIdx, uint32(f.pc), "integer divide by zero"))
	}
}

func (ce *callEngine) trapDivZero64(b int64, f *frame) {
	if b == 0 {
		panic(wasmruntime.NewTrap(wasmruntime.TrapIntegerDivideByZero, f.fn.FuncIdx, uint32(f.pc), "integer divide by zero"))
	}
}

func (ce *callEngine) trapDivZero64u(b uint64, f *frame) {
	if b == 0 {
		panic(wasmruntime.NewTrap(wasmruntime.TrapIntegerDivideByZero, f.fn.FuncIdx, uint32(f.pc), "integer divide by zero"))
	}
}

// truncToI64 implements the non-saturating trunc family: NaN or
// out-of-range values trap rather than producing an implementation-defined
// bit pattern (spec §4.4 "InvalidConversionToInteger").
func (ce *callEngine) truncToI64(v float64, lo, hi int64, f *frame, name string) int64 {
	if math.IsNaN(v) {
		panic(wasmruntime.NewTrap(wasmruntime.TrapInvalidConversionToInteger, f.fn.FuncIdx, uint32(f.pc), name+": NaN"))
	}
	t := math.Trunc(v)
	if t < float64(lo) || t >= float64(hi)+1 {
		panic(wasmruntime.NewTrap(wasmruntime.TrapInvalidConversionToInteger, f.fn.FuncIdx, uint32(f.pc), name+": out of range"))
	}
	return int64(t)
}

func (ce *callEngine) truncToU64(v float64, hi uint64, f *frame, name string) uint64 {
	if math.IsNaN(v) {
		panic(wasmruntime.NewTrap(wasmruntime.TrapInvalidConversionToInteger, f.fn.FuncIdx, uint32(f.pc), name+": NaN"))
	}
	t := math.Trunc(v)
	if t < 0 || t > float64(hi) {
		panic(wasmruntime.NewTrap(wasmruntime.TrapInvalidConversionToInteger, f.fn.FuncIdx, uint32(f.pc), name+": out of range"))
	}
	return uint64(t)
}

func satI32(v float64) int32 {
	if math.IsNaN(v) {
		return 0
	}
	t := math.Trunc(v)
	switch {
	case t <= math.MinInt32:
		return math.MinInt32
	case t >= math.MaxInt32:
		return math.MaxInt32
	default:
		return int32(t)
	}
}

func satU32(v float64) uint32 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	t := math.Trunc(v)
	if t >= math.MaxUint32 {
		return math.MaxUint32
	}
	return uint32(t)
}

func satI64(v float64) int64 {
	if math.IsNaN(v) {
		return 0
	}
	t := math.Trunc(v)
	switch {
	case t <= math.MinInt64:
		return math.MinInt64
	case t >= math.MaxInt64:
		return math.MaxInt64
	default:
		return int64(t)
	}
}

func satU64(v float64) uint64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	t := math.Trunc(v)
	if t >= math.MaxUint64 {
		return math.MaxUint64
	}
	return uint64(t)
}
