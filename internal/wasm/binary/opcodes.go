package binary

import (
	"math"

	"github.com/pulseengine/wrtgo/internal/wasm"
	"github.com/pulseengine/wrtgo/internal/wasmruntime"
)

func uint32FromFloat32(v float32) uint32 { return math.Float32bits(v) }
func uint64FromFloat64(v float64) uint64 { return math.Float64bits(v) }

// memoryOpcodes maps a load/store opcode byte to its decoded Instruction
// template (Mem is filled in by the caller after reading the memarg).
var memoryOpcodes = map[byte]wasm.Instruction{
	0x28: {Op: wasm.OpI32Load},
	0x29: {Op: wasm.OpI64Load},
	0x2A: {Op: wasm.OpF32Load},
	0x2B: {Op: wasm.OpF64Load},
	0x2C: {Op: wasm.OpI32Load8S},
	0x2D: {Op: wasm.OpI32Load8U},
	0x2E: {Op: wasm.OpI32Load16S},
	0x2F: {Op: wasm.OpI32Load16U},
	0x30: {Op: wasm.OpI64Load8S},
	0x31: {Op: wasm.OpI64Load8U},
	0x32: {Op: wasm.OpI64Load16S},
	0x33: {Op: wasm.OpI64Load16U},
	0x34: {Op: wasm.OpI64Load32S},
	0x35: {Op: wasm.OpI64Load32U},
	0x36: {Op: wasm.OpI32Store},
	0x37: {Op: wasm.OpI64Store},
	0x38: {Op: wasm.OpF32Store},
	0x39: {Op: wasm.OpF64Store},
	0x3A: {Op: wasm.OpI32Store8},
	0x3B: {Op: wasm.OpI32Store16},
	0x3C: {Op: wasm.OpI64Store8},
	0x3D: {Op: wasm.OpI64Store16},
	0x3E: {Op: wasm.OpI64Store32},
}

// plainOpcodes maps every MVP comparison/arithmetic/conversion/
// sign-extension opcode with no immediate operand to its Instruction.
var plainOpcodes = map[byte]wasm.Instruction{
	0x45: {Op: wasm.OpI32Eqz}, 0x46: {Op: wasm.OpI32Eq}, 0x47: {Op: wasm.OpI32Ne},
	0x48: {Op: wasm.OpI32LtS}, 0x49: {Op: wasm.OpI32LtU}, 0x4A: {Op: wasm.OpI32GtS}, 0x4B: {Op: wasm.OpI32GtU},
	0x4C: {Op: wasm.OpI32LeS}, 0x4D: {Op: wasm.OpI32LeU}, 0x4E: {Op: wasm.OpI32GeS}, 0x4F: {Op: wasm.OpI32GeU},

	0x50: {Op: wasm.OpI64Eqz}, 0x51: {Op: wasm.OpI64Eq}, 0x52: {Op: wasm.OpI64Ne},
	0x53: {Op: wasm.OpI64LtS}, 0x54: {Op: wasm.OpI64LtU}, 0x55: {Op: wasm.OpI64GtS}, 0x56: {Op: wasm.OpI64GtU},
	0x57: {Op: wasm.OpI64LeS}, 0x58: {Op: wasm.OpI64LeU}, 0x59: {Op: wasm.OpI64GeS}, 0x5A: {Op: wasm.OpI64GeU},

	0x5B: {Op: wasm.OpF32Eq}, 0x5C: {Op: wasm.OpF32Ne}, 0x5D: {Op: wasm.OpF32Lt},
	0x5E: {Op: wasm.OpF32Gt}, 0x5F: {Op: wasm.OpF32Le}, 0x60: {Op: wasm.OpF32Ge},

	0x61: {Op: wasm.OpF64Eq}, 0x62: {Op: wasm.OpF64Ne}, 0x63: {Op: wasm.OpF64Lt},
	0x64: {Op: wasm.OpF64Gt}, 0x65: {Op: wasm.OpF64Le}, 0x66: {Op: wasm.OpF64Ge},

	0x67: {Op: wasm.OpI32Clz}, 0x68: {Op: wasm.OpI32Ctz}, 0x69: {Op: wasm.OpI32Popcnt},
	0x6A: {Op: wasm.OpI32Add}, 0x6B: {Op: wasm.OpI32Sub}, 0x6C: {Op: wasm.OpI32Mul},
	0x6D: {Op: wasm.OpI32DivS}, 0x6E: {Op: wasm.OpI32DivU}, 0x6F: {Op: wasm.OpI32RemS}, 0x70: {Op: wasm.OpI32RemU},
	0x71: {Op: wasm.OpI32And}, 0x72: {Op: wasm.OpI32Or}, 0x73: {Op: wasm.OpI32Xor},
	0x74: {Op: wasm.OpI32Shl}, 0x75: {Op: wasm.OpI32ShrS}, 0x76: {Op: wasm.OpI32ShrU},
	0x77: {Op: wasm.OpI32Rotl}, 0x78: {Op: wasm.OpI32Rotr},

	0x79: {Op: wasm.OpI64Clz}, 0x7A: {Op: wasm.OpI64Ctz}, 0x7B: {Op: wasm.OpI64Popcnt},
	0x7C: {Op: wasm.OpI64Add}, 0x7D: {Op: wasm.OpI64Sub}, 0x7E: {Op: wasm.OpI64Mul},
	0x7F: {Op: wasm.OpI64DivS}, 0x80: {Op: wasm.OpI64DivU}, 0x81: {Op: wasm.OpI64RemS}, 0x82: {Op: wasm.OpI64RemU},
	0x83: {Op: wasm.OpI64And}, 0x84: {Op: wasm.OpI64Or}, 0x85: {Op: wasm.OpI64Xor},
	0x86: {Op: wasm.OpI64Shl}, 0x87: {Op: wasm.OpI64ShrS}, 0x88: {Op: wasm.OpI64ShrU},
	0x89: {Op: wasm.OpI64Rotl}, 0x8A: {Op: wasm.OpI64Rotr},

	0x8B: {Op: wasm.OpF32Abs}, 0x8C: {Op: wasm.OpF32Neg}, 0x8D: {Op: wasm.OpF32Ceil}, 0x8E: {Op: wasm.OpF32Floor},
	0x8F: {Op: wasm.OpF32Trunc}, 0x90: {Op: wasm.OpF32Nearest}, 0x91: {Op: wasm.OpF32Sqrt},
	0x92: {Op: wasm.OpF32Add}, 0x93: {Op: wasm.OpF32Sub}, 0x94: {Op: wasm.OpF32Mul}, 0x95: {Op: wasm.OpF32Div},
	0x96: {Op: wasm.OpF32Min}, 0x97: {Op: wasm.OpF32Max}, 0x98: {Op: wasm.OpF32Copysign},

	0x99: {Op: wasm.OpF64Abs}, 0x9A: {Op: wasm.OpF64Neg}, 0x9B: {Op: wasm.OpF64Ceil}, 0x9C: {Op: wasm.OpF64Floor},
	0x9D: {Op: wasm.OpF64Trunc}, 0x9E: {Op: wasm.OpF64Nearest}, 0x9F: {Op: wasm.OpF64Sqrt},
	0xA0: {Op: wasm.OpF64Add}, 0xA1: {Op: wasm.OpF64Sub}, 0xA2: {Op: wasm.OpF64Mul}, 0xA3: {Op: wasm.OpF64Div},
	0xA4: {Op: wasm.OpF64Min}, 0xA5: {Op: wasm.OpF64Max}, 0xA6: {Op: wasm.OpF64Copysign},

	0xA7: {Op: wasm.OpI32WrapI64},
	0xA8: {Op: wasm.OpI32TruncF32S}, 0xA9: {Op: wasm.OpI32TruncF32U},
	0xAA: {Op: wasm.OpI32TruncF64S}, 0xAB: {Op: wasm.OpI32TruncF64U},
	0xAC: {Op: wasm.OpI64ExtendI32S}, 0xAD: {Op: wasm.OpI64ExtendI32U},
	0xAE: {Op: wasm.OpI64TruncF32S}, 0xAF: {Op: wasm.OpI64TruncF32U},
	0xB0: {Op: wasm.OpI64TruncF64S}, 0xB1: {Op: wasm.OpI64TruncF64U},
	0xB2: {Op: wasm.OpF32ConvertI32S}, 0xB3: {Op: wasm.OpF32ConvertI32U},
	0xB4: {Op: wasm.OpF32ConvertI64S}, 0xB5: {Op: wasm.OpF32ConvertI64U},
	0xB6: {Op: wasm.OpF32DemoteF64},
	0xB7: {Op: wasm.OpF64ConvertI32S}, 0xB8: {Op: wasm.OpF64ConvertI32U},
	0xB9: {Op: wasm.OpF64ConvertI64S}, 0xBA: {Op: wasm.OpF64ConvertI64U},
	0xBB: {Op: wasm.OpF64PromoteF32},
	0xBC: {Op: wasm.OpI32ReinterpretF32}, 0xBD: {Op: wasm.OpI64ReinterpretF64},
	0xBE: {Op: wasm.OpF32ReinterpretI32}, 0xBF: {Op: wasm.OpF64ReinterpretI64},

	0xC0: {Op: wasm.OpI32Extend8S}, 0xC1: {Op: wasm.OpI32Extend16S},
	0xC2: {Op: wasm.OpI64Extend8S}, 0xC3: {Op: wasm.OpI64Extend16S}, 0xC4: {Op: wasm.OpI64Extend32S},
}

// decodeMultiByteFC decodes the 0xFC-prefixed opcode space: saturating
// truncation (sub-opcodes 0-7) and bulk-memory/table operations
// (sub-opcodes 8-17).
func decodeMultiByteFC(c *cursor) (wasm.Instruction, bool, error) {
	sub, err := c.readU32()
	if err != nil {
		return wasm.Instruction{}, false, err
	}
	switch sub {
	case 0:
		return wasm.Instruction{Op: wasm.OpI32TruncSatF32S}, false, nil
	case 1:
		return wasm.Instruction{Op: wasm.OpI32TruncSatF32U}, false, nil
	case 2:
		return wasm.Instruction{Op: wasm.OpI32TruncSatF64S}, false, nil
	case 3:
		return wasm.Instruction{Op: wasm.OpI32TruncSatF64U}, false, nil
	case 4:
		return wasm.Instruction{Op: wasm.OpI64TruncSatF32S}, false, nil
	case 5:
		return wasm.Instruction{Op: wasm.OpI64TruncSatF32U}, false, nil
	case 6:
		return wasm.Instruction{Op: wasm.OpI64TruncSatF64S}, false, nil
	case 7:
		return wasm.Instruction{Op: wasm.OpI64TruncSatF64U}, false, nil
	case 8: // memory.init
		dataIdx, err := c.readU32()
		if err != nil {
			return wasm.Instruction{}, false, err
		}
		if _, err := c.readByte(); err != nil { // reserved memidx
			return wasm.Instruction{}, false, err
		}
		return wasm.Instruction{Op: wasm.OpMemoryInit, U1: uint64(dataIdx)}, false, nil
	case 9: // data.drop
		dataIdx, err := c.readU32()
		if err != nil {
			return wasm.Instruction{}, false, err
		}
		return wasm.Instruction{Op: wasm.OpDataDrop, U1: uint64(dataIdx)}, false, nil
	case 10: // memory.copy
		if _, err := c.readByte(); err != nil {
			return wasm.Instruction{}, false, err
		}
		if _, err := c.readByte(); err != nil {
			return wasm.Instruction{}, false, err
		}
		return wasm.Instruction{Op: wasm.OpMemoryCopy}, false, nil
	case 11: // memory.fill
		if _, err := c.readByte(); err != nil {
			return wasm.Instruction{}, false, err
		}
		return wasm.Instruction{Op: wasm.OpMemoryFill}, false, nil
	case 12: // table.init
		elemIdx, err := c.readU32()
		if err != nil {
			return wasm.Instruction{}, false, err
		}
		tableIdx, err := c.readU32()
		if err != nil {
			return wasm.Instruction{}, false, err
		}
		return wasm.Instruction{Op: wasm.OpTableInit, U1: uint64(elemIdx), U2: uint64(tableIdx)}, false, nil
	case 13: // elem.drop
		elemIdx, err := c.readU32()
		if err != nil {
			return wasm.Instruction{}, false, err
		}
		return wasm.Instruction{Op: wasm.OpElemDrop, U1: uint64(elemIdx)}, false, nil
	case 14: // table.copy
		dst, err := c.readU32()
		if err != nil {
			return wasm.Instruction{}, false, err
		}
		src, err := c.readU32()
		if err != nil {
			return wasm.Instruction{}, false, err
		}
		return wasm.Instruction{Op: wasm.OpTableCopy, U1: uint64(dst), U2: uint64(src)}, false, nil
	case 15: // table.grow
		tableIdx, err := c.readU32()
		if err != nil {
			return wasm.Instruction{}, false, err
		}
		return wasm.Instruction{Op: wasm.OpTableGrow, U1: uint64(tableIdx)}, false, nil
	case 16: // table.size
		tableIdx, err := c.readU32()
		if err != nil {
			return wasm.Instruction{}, false, err
		}
		return wasm.Instruction{Op: wasm.OpTableSize, U1: uint64(tableIdx)}, false, nil
	case 17: // table.fill
		tableIdx, err := c.readU32()
		if err != nil {
			return wasm.Instruction{}, false, err
		}
		return wasm.Instruction{Op: wasm.OpTableFill, U1: uint64(tableIdx)}, false, nil
	}
	return wasm.Instruction{}, false, c.fail("unknown 0xFC sub-opcode")
}

// decodeMultiByteFD decodes the subset of the SIMD (0xFD) opcode space
// wrtgo gives interpreter semantics to (SPEC_FULL.md Open Question 1):
// v128.const, splat/extract_lane/replace_lane for every lane width, .add
// for i32x4/i64x2/f32x4/f64x2, plus shuffle and swizzle. Any other 0xFD
// sub-opcode fails with an UnknownOpcode DecodeError rather than having
// its operands misparsed.
func decodeMultiByteFD(c *cursor) (wasm.Instruction, bool, error) {
	sub, err := c.readU32()
	if err != nil {
		return wasm.Instruction{}, false, err
	}
	switch sub {
	case 12: // v128.const
		b, err := c.readBytes(16)
		if err != nil {
			return wasm.Instruction{}, false, err
		}
		var instr wasm.Instruction
		instr.Op = wasm.OpV128Const
		copy(instr.V128[:], b)
		return instr, false, nil
	case 15:
		return wasm.Instruction{Op: wasm.OpI8x16Splat}, false, nil
	case 16:
		return wasm.Instruction{Op: wasm.OpI16x8Splat}, false, nil
	case 17:
		return wasm.Instruction{Op: wasm.OpI32x4Splat}, false, nil
	case 18:
		return wasm.Instruction{Op: wasm.OpI64x2Splat}, false, nil
	case 19:
		return wasm.Instruction{Op: wasm.OpF32x4Splat}, false, nil
	case 20:
		return wasm.Instruction{Op: wasm.OpF64x2Splat}, false, nil
	case 21:
		return laneInstr(c, wasm.OpI8x16ExtractLaneS)
	case 22:
		return laneInstr(c, wasm.OpI8x16ExtractLaneU)
	case 23:
		return laneInstr(c, wasm.OpI8x16ReplaceLane)
	case 24:
		return laneInstr(c, wasm.OpI16x8ExtractLaneS)
	case 25:
		return laneInstr(c, wasm.OpI16x8ExtractLaneU)
	case 26:
		return laneInstr(c, wasm.OpI16x8ReplaceLane)
	case 27:
		return laneInstr(c, wasm.OpI32x4ExtractLane)
	case 28:
		return laneInstr(c, wasm.OpI32x4ReplaceLane)
	case 29:
		return laneInstr(c, wasm.OpI64x2ExtractLane)
	case 30:
		return laneInstr(c, wasm.OpI64x2ReplaceLane)
	case 31:
		return laneInstr(c, wasm.OpF32x4ExtractLane)
	case 32:
		return laneInstr(c, wasm.OpF32x4ReplaceLane)
	case 33:
		return laneInstr(c, wasm.OpF64x2ExtractLane)
	case 34:
		return laneInstr(c, wasm.OpF64x2ReplaceLane)
	case 13: // i8x16.shuffle: 16 lane-select bytes
		b, err := c.readBytes(16)
		if err != nil {
			return wasm.Instruction{}, false, err
		}
		var instr wasm.Instruction
		instr.Op = wasm.OpI8x16Shuffle
		copy(instr.V128[:], b)
		return instr, false, nil
	case 14:
		return wasm.Instruction{Op: wasm.OpI8x16Swizzle}, false, nil
	case 174:
		return wasm.Instruction{Op: wasm.OpI32x4Add}, false, nil
	case 238:
		return wasm.Instruction{Op: wasm.OpI64x2Add}, false, nil
	case 228:
		return wasm.Instruction{Op: wasm.OpF32x4Add}, false, nil
	case 240:
		return wasm.Instruction{Op: wasm.OpF64x2Add}, false, nil
	}
	return wasm.Instruction{}, false, wasmruntime.NewDecodeError(wasmruntime.DecodeUnknownOpcode, c.section, c.offset(), "unrecognized SIMD sub-opcode")
}

func laneInstr(c *cursor, op wasm.Op) (wasm.Instruction, bool, error) {
	lane, err := c.readByte()
	if err != nil {
		return wasm.Instruction{}, false, err
	}
	return wasm.Instruction{Op: op, U1: uint64(lane)}, false, nil
}

// decodeMultiByteFE decodes the subset of the threads/atomics (0xFE)
// opcode space wrtgo recognizes (SPEC_FULL.md Open Question 1): fence,
// i32/i64 non-RMW load/store, one representative RMW op (add), and
// memory.atomic.wait32/64 and .notify (routed to an external collaborator
// at execution time, not decoded differently here).
func decodeMultiByteFE(c *cursor) (wasm.Instruction, bool, error) {
	sub, err := c.readByte()
	if err != nil {
		return wasm.Instruction{}, false, err
	}
	switch sub {
	case 0x03:
		if _, err := c.readByte(); err != nil { // reserved flag byte
			return wasm.Instruction{}, false, err
		}
		return wasm.Instruction{Op: wasm.OpAtomicFence}, false, nil
	case 0x00:
		mem, err := readMemArg(c)
		if err != nil {
			return wasm.Instruction{}, false, err
		}
		return wasm.Instruction{Op: wasm.OpMemoryAtomicNotify, Mem: mem}, false, nil
	case 0x01:
		mem, err := readMemArg(c)
		if err != nil {
			return wasm.Instruction{}, false, err
		}
		return wasm.Instruction{Op: wasm.OpMemoryAtomicWait32, Mem: mem}, false, nil
	case 0x02:
		mem, err := readMemArg(c)
		if err != nil {
			return wasm.Instruction{}, false, err
		}
		return wasm.Instruction{Op: wasm.OpMemoryAtomicWait64, Mem: mem}, false, nil
	case 0x10:
		mem, err := readMemArg(c)
		if err != nil {
			return wasm.Instruction{}, false, err
		}
		return wasm.Instruction{Op: wasm.OpI32AtomicLoad, Mem: mem}, false, nil
	case 0x11:
		mem, err := readMemArg(c)
		if err != nil {
			return wasm.Instruction{}, false, err
		}
		return wasm.Instruction{Op: wasm.OpI64AtomicLoad, Mem: mem}, false, nil
	case 0x17:
		mem, err := readMemArg(c)
		if err != nil {
			return wasm.Instruction{}, false, err
		}
		return wasm.Instruction{Op: wasm.OpI32AtomicStore, Mem: mem}, false, nil
	case 0x1E:
		mem, err := readMemArg(c)
		if err != nil {
			return wasm.Instruction{}, false, err
		}
		return wasm.Instruction{Op: wasm.OpI64AtomicStore, Mem: mem}, false, nil
	case 0x1F:
		mem, err := readMemArg(c)
		if err != nil {
			return wasm.Instruction{}, false, err
		}
		return wasm.Instruction{Op: wasm.OpI32AtomicRmwAdd, Mem: mem}, false, nil
	case 0x46:
		mem, err := readMemArg(c)
		if err != nil {
			return wasm.Instruction{}, false, err
		}
		return wasm.Instruction{Op: wasm.OpI64AtomicRmwAdd, Mem: mem}, false, nil
	}
	return wasm.Instruction{}, false, c.fail("unrecognized atomic sub-opcode")
}
