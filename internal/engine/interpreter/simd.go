package interpreter

import (
	"encoding/binary"
	"math"

	"github.com/pulseengine/wrtgo/internal/wasm"
)

// v128 values occupy two value-stack slots: Lo pushed first, Hi on top
// (the same order Engine.invokeFunctionIndex uses for a V128 argument).

func (ce *callEngine) popV128() [16]byte {
	hi := ce.popValue()
	lo := ce.popValue()
	var b [16]byte
	binary.LittleEndian.PutUint64(b[0:8], lo)
	binary.LittleEndian.PutUint64(b[8:16], hi)
	return b
}

func (ce *callEngine) pushV128(b [16]byte) {
	ce.pushValue(binary.LittleEndian.Uint64(b[0:8]))
	ce.pushValue(binary.LittleEndian.Uint64(b[8:16]))
}

// execSIMD executes the v128 opcodes wrtgo gives semantics to: v128.const,
// splat/extract_lane/replace_lane on every lane width, add on
// i32x4/i64x2/f32x4/f64x2, plus shuffle and swizzle (SPEC_FULL.md Open
// Question 1 scope decision). It returns false for any other opcode,
// which execOther then reports as an unimplemented-opcode panic.
func (ce *callEngine) execSIMD(f *frame, in wasm.Instruction) bool {
	switch in.Op {
	case wasm.OpV128Const:
		ce.pushV128(in.V128)

	case wasm.OpI8x16Splat:
		v := uint8(ce.popValue())
		var b [16]byte
		for i := range b {
			b[i] = v
		}
		ce.pushV128(b)
	case wasm.OpI16x8Splat:
		v := uint16(ce.popValue())
		var b [16]byte
		for i := 0; i < 8; i++ {
			binary.LittleEndian.PutUint16(b[i*2:], v)
		}
		ce.pushV128(b)
	case wasm.OpI32x4Splat:
		v := uint32(ce.popValue())
		var b [16]byte
		for i := 0; i < 4; i++ {
			binary.LittleEndian.PutUint32(b[i*4:], v)
		}
		ce.pushV128(b)
	case wasm.OpI64x2Splat:
		v := ce.popValue()
		var b [16]byte
		binary.LittleEndian.PutUint64(b[0:8], v)
		binary.LittleEndian.PutUint64(b[8:16], v)
		ce.pushV128(b)
	case wasm.OpF32x4Splat:
		v := uint32(ce.popValue())
		var b [16]byte
		for i := 0; i < 4; i++ {
			binary.LittleEndian.PutUint32(b[i*4:], v)
		}
		ce.pushV128(b)
	case wasm.OpF64x2Splat:
		v := ce.popValue()
		var b [16]byte
		binary.LittleEndian.PutUint64(b[0:8], v)
		binary.LittleEndian.PutUint64(b[8:16], v)
		ce.pushV128(b)

	case wasm.OpI8x16ExtractLaneS:
		b := ce.popV128()
		ce.pushValue(uint64(uint32(int32(int8(b[in.U1])))))
	case wasm.OpI8x16ExtractLaneU:
		b := ce.popV128()
		ce.pushValue(uint64(b[in.U1]))
	case wasm.OpI16x8ExtractLaneS:
		b := ce.popV128()
		ce.pushValue(uint64(uint32(int32(int16(binary.LittleEndian.Uint16(b[in.U1*2:]))))))
	case wasm.OpI16x8ExtractLaneU:
		b := ce.popV128()
		ce.pushValue(uint64(binary.LittleEndian.Uint16(b[in.U1*2:])))
	case wasm.OpI32x4ExtractLane:
		b := ce.popV128()
		ce.pushValue(uint64(binary.LittleEndian.Uint32(b[in.U1*4:])))
	case wasm.OpI64x2ExtractLane:
		b := ce.popV128()
		ce.pushValue(binary.LittleEndian.Uint64(b[in.U1*8:]))
	case wasm.OpF32x4ExtractLane:
		b := ce.popV128()
		ce.pushValue(uint64(binary.LittleEndian.Uint32(b[in.U1*4:])))
	case wasm.OpF64x2ExtractLane:
		b := ce.popV128()
		ce.pushValue(binary.LittleEndian.Uint64(b[in.U1*8:]))

	case wasm.OpI8x16ReplaceLane:
		v := uint8(ce.popValue())
		b := ce.popV128()
		b[in.U1] = v
		ce.pushV128(b)
	case wasm.OpI16x8ReplaceLane:
		v := uint16(ce.popValue())
		b := ce.popV128()
		binary.LittleEndian.PutUint16(b[in.U1*2:], v)
		ce.pushV128(b)
	case wasm.OpI32x4ReplaceLane:
		v := uint32(ce.popValue())
		b := ce.popV128()
		binary.LittleEndian.PutUint32(b[in.U1*4:], v)
		ce.pushV128(b)
	case wasm.OpI64x2ReplaceLane:
		v := ce.popValue()
		b := ce.popV128()
		binary.LittleEndian.PutUint64(b[in.U1*8:], v)
		ce.pushV128(b)
	case wasm.OpF32x4ReplaceLane:
		v := uint32(ce.popValue())
		b := ce.popV128()
		binary.LittleEndian.PutUint32(b[in.U1*4:], v)
		ce.pushV128(b)
	case wasm.OpF64x2ReplaceLane:
		v := ce.popValue()
		b := ce.popV128()
		binary.LittleEndian.PutUint64(b[in.U1*8:], v)
		ce.pushV128(b)

	case wasm.OpI32x4Add:
		b, a := ce.popV128(), ce.popV128()
		var out [16]byte
		for i := 0; i < 4; i++ {
			binary.LittleEndian.PutUint32(out[i*4:], binary.LittleEndian.Uint32(a[i*4:])+binary.LittleEndian.Uint32(b[i*4:]))
		}
		ce.pushV128(out)
	case wasm.OpI64x2Add:
		b, a := ce.popV128(), ce.popV128()
		var out [16]byte
		binary.LittleEndian.PutUint64(out[0:8], binary.LittleEndian.Uint64(a[0:8])+binary.LittleEndian.Uint64(b[0:8]))
		binary.LittleEndian.PutUint64(out[8:16], binary.LittleEndian.Uint64(a[8:16])+binary.LittleEndian.Uint64(b[8:16]))
		ce.pushV128(out)
	case wasm.OpF32x4Add:
		b, a := ce.popV128(), ce.popV128()
		var out [16]byte
		for i := 0; i < 4; i++ {
			sum := f32bits(a, i*4) + f32bits(b, i*4)
			binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(sum))
		}
		ce.pushV128(out)
	case wasm.OpF64x2Add:
		b, a := ce.popV128(), ce.popV128()
		var out [16]byte
		for i := 0; i < 2; i++ {
			sum := f64bits(a, i*8) + f64bits(b, i*8)
			binary.LittleEndian.PutUint64(out[i*8:], math.Float64bits(sum))
		}
		ce.pushV128(out)

	case wasm.OpI8x16Shuffle:
		b, a := ce.popV128(), ce.popV128()
		var out [16]byte
		for i := 0; i < 16; i++ {
			sel := in.V128[i]
			if sel < 16 {
				out[i] = a[sel]
			} else {
				out[i] = b[sel-16]
			}
		}
		ce.pushV128(out)
	case wasm.OpI8x16Swizzle:
		idx, a := ce.popV128(), ce.popV128()
		var out [16]byte
		for i := 0; i < 16; i++ {
			if idx[i] < 16 {
				out[i] = a[idx[i]]
			}
		}
		ce.pushV128(out)

	default:
		return false
	}
	return true
}

func f32bits(b [16]byte, off int) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(b[off:]))
}

func f64bits(b [16]byte, off int) float64 {
	return math.Float64frombits(binary.LittleEndian.Uint64(b[off:]))
}
