package binary

import (
	"github.com/pulseengine/wrtgo/internal/wasm"
)

// controlFrame tracks one open Block/Loop/If while decoding a function
// body, so its End (and, for If, Else) fields can be backpatched once the
// matching terminator is found.
type controlFrame struct {
	kind      byte // 0x02 block, 0x03 loop, 0x04 if
	instrIdx  int  // index of the opening instruction in the output stream
	sawElse   bool
}

// decodeFunctionBody decodes one code-section entry: its local-variable
// declarations followed by its instruction stream, terminated by the
// function-level End (spec §4.4's "instruction normalization" phase).
func decodeFunctionBody(body []byte, numParams int) ([]wasm.Instruction, int, error) {
	c := newCursor("code", body)
	groupCount, err := c.readU32()
	if err != nil {
		return nil, 0, err
	}
	var locals []wasm.LocalGroup
	numLocals := numParams
	for i := uint32(0); i < groupCount; i++ {
		count, err := c.readU32()
		if err != nil {
			return nil, 0, err
		}
		typ, err := c.readByte()
		if err != nil {
			return nil, 0, err
		}
		locals = append(locals, wasm.LocalGroup{Count: count, Type: typ})
		numLocals += int(count)
	}

	instrs, err := decodeExpr(c)
	if err != nil {
		return nil, 0, err
	}
	return instrs, numLocals, nil
}

// decodeExpr decodes an instruction stream up to and including the End
// that closes the implicit outer block, backpatching every nested
// Block/Loop/If's End (and If's Else) fields as their terminators are
// found.
func decodeExpr(c *cursor) ([]wasm.Instruction, error) {
	var instrs []wasm.Instruction
	frames := []controlFrame{{kind: 0x02, instrIdx: -1}} // implicit outer block

	for len(frames) > 0 {
		op, err := c.readByte()
		if err != nil {
			return nil, err
		}
		switch op {
		case 0x0B: // end
			instrs = append(instrs, wasm.Instruction{Op: wasm.OpEnd})
			target := uint32(len(instrs))
			top := frames[len(frames)-1]
			frames = frames[:len(frames)-1]
			if top.instrIdx >= 0 {
				instrs[top.instrIdx].End = target
				if instrs[top.instrIdx].Op == wasm.OpIf && !top.sawElse {
					instrs[top.instrIdx].Else = target
				}
			}
			if len(frames) == 0 {
				return instrs, nil
			}
		case 0x05: // else
			instrs = append(instrs, wasm.Instruction{Op: wasm.OpElse})
			top := &frames[len(frames)-1]
			top.sawElse = true
			instrs[top.instrIdx].Else = uint32(len(instrs))
		default:
			instr, pushFrame, err := decodeOneInstruction(c, op)
			if err != nil {
				return nil, err
			}
			instrs = append(instrs, instr)
			if pushFrame {
				frames = append(frames, controlFrame{kind: op, instrIdx: len(instrs) - 1})
			}
		}
	}
	return instrs, nil
}

// decodeConstExpr decodes a restricted constant expression (global
// initializer / offset expression): a single const/global.get/ref
// instruction followed by End. Returns the instruction (wrapped in a
// one-element slice, matching evalConstExpr's expectation) and the number
// of bytes consumed including the terminating End.
func decodeConstExpr(data []byte, section string, baseOffset uint32) ([]wasm.Instruction, int, error) {
	c := newCursor(section, data)
	op, err := c.readByte()
	if err != nil {
		return nil, 0, err
	}
	instr, _, err := decodeOneInstruction(c, op)
	if err != nil {
		return nil, 0, err
	}
	end, err := c.readByte()
	if err != nil {
		return nil, 0, err
	}
	if end != 0x0B {
		return nil, 0, c.fail("constant expression must end with End")
	}
	return []wasm.Instruction{instr}, c.pos, nil
}

// decodeOneInstruction decodes a single opcode (already consumed from c
// by the caller into op) and its immediates, excluding the structural
// opcodes End (0x0B) and Else (0x05) which decodeExpr handles directly.
// Returns true in its second result if op opens a new control frame
// (Block/Loop/If).
func decodeOneInstruction(c *cursor, op byte) (wasm.Instruction, bool, error) {
	switch op {
	case 0x00:
		return wasm.Instruction{Op: wasm.OpUnreachable}, false, nil
	case 0x01:
		return wasm.Instruction{Op: wasm.OpNop}, false, nil
	case 0x02, 0x03, 0x04:
		bt, err := c.readBlockType()
		if err != nil {
			return wasm.Instruction{}, false, err
		}
		block := decodeBlockType(bt)
		var kind wasm.Op
		switch op {
		case 0x02:
			kind = wasm.OpBlock
		case 0x03:
			kind = wasm.OpLoop
		case 0x04:
			kind = wasm.OpIf
		}
		return wasm.Instruction{Op: kind, Block: block}, true, nil
	case 0x0C, 0x0D:
		depth, err := c.readU32()
		if err != nil {
			return wasm.Instruction{}, false, err
		}
		kind := wasm.OpBr
		if op == 0x0D {
			kind = wasm.OpBrIf
		}
		return wasm.Instruction{Op: kind, U1: uint64(depth)}, false, nil
	case 0x0E:
		n, err := c.readU32()
		if err != nil {
			return wasm.Instruction{}, false, err
		}
		labels := make([]uint32, 0, n+1)
		for i := uint32(0); i < n; i++ {
			l, err := c.readU32()
			if err != nil {
				return wasm.Instruction{}, false, err
			}
			labels = append(labels, l)
		}
		def, err := c.readU32()
		if err != nil {
			return wasm.Instruction{}, false, err
		}
		labels = append(labels, def)
		return wasm.Instruction{Op: wasm.OpBrTable, Labels: labels}, false, nil
	case 0x0F:
		return wasm.Instruction{Op: wasm.OpReturn}, false, nil
	case 0x10, 0x12:
		idx, err := c.readU32()
		if err != nil {
			return wasm.Instruction{}, false, err
		}
		kind := wasm.OpCall
		if op == 0x12 {
			kind = wasm.OpReturnCall
		}
		return wasm.Instruction{Op: kind, U1: uint64(idx)}, false, nil
	case 0x11, 0x13:
		typeIdx, err := c.readU32()
		if err != nil {
			return wasm.Instruction{}, false, err
		}
		tableIdx, err := c.readU32()
		if err != nil {
			return wasm.Instruction{}, false, err
		}
		kind := wasm.OpCallIndirect
		if op == 0x13 {
			kind = wasm.OpReturnCallIndirect
		}
		return wasm.Instruction{Op: kind, U1: uint64(typeIdx), U2: uint64(tableIdx)}, false, nil
	case 0x1A:
		return wasm.Instruction{Op: wasm.OpDrop}, false, nil
	case 0x1B:
		return wasm.Instruction{Op: wasm.OpSelect}, false, nil
	case 0x1C:
		types, err := readValueTypeVec(c)
		if err != nil {
			return wasm.Instruction{}, false, err
		}
		var v byte
		if len(types) > 0 {
			v = types[0]
		}
		return wasm.Instruction{Op: wasm.OpSelectT, U1: uint64(v)}, false, nil
	case 0x20, 0x21, 0x22:
		idx, err := c.readU32()
		if err != nil {
			return wasm.Instruction{}, false, err
		}
		kind := map[byte]wasm.Op{0x20: wasm.OpLocalGet, 0x21: wasm.OpLocalSet, 0x22: wasm.OpLocalTee}[op]
		return wasm.Instruction{Op: kind, U1: uint64(idx)}, false, nil
	case 0x23, 0x24:
		idx, err := c.readU32()
		if err != nil {
			return wasm.Instruction{}, false, err
		}
		kind := wasm.OpGlobalGet
		if op == 0x24 {
			kind = wasm.OpGlobalSet
		}
		return wasm.Instruction{Op: kind, U1: uint64(idx)}, false, nil
	case 0x25, 0x26:
		idx, err := c.readU32()
		if err != nil {
			return wasm.Instruction{}, false, err
		}
		kind := wasm.OpTableGet
		if op == 0x26 {
			kind = wasm.OpTableSet
		}
		return wasm.Instruction{Op: kind, U1: uint64(idx)}, false, nil
	case 0xD0:
		rt, err := c.readByte()
		if err != nil {
			return wasm.Instruction{}, false, err
		}
		return wasm.Instruction{Op: wasm.OpRefNull, U1: uint64(rt)}, false, nil
	case 0xD1:
		return wasm.Instruction{Op: wasm.OpRefIsNull}, false, nil
	case 0xD2:
		idx, err := c.readU32()
		if err != nil {
			return wasm.Instruction{}, false, err
		}
		return wasm.Instruction{Op: wasm.OpRefFunc, U1: uint64(idx)}, false, nil
	case 0xFC:
		return decodeMultiByteFC(c)
	case 0xFD:
		return decodeMultiByteFD(c)
	case 0xFE:
		return decodeMultiByteFE(c)
	}

	if instr, ok := memoryOpcodes[op]; ok {
		mem, err := readMemArg(c)
		if err != nil {
			return wasm.Instruction{}, false, err
		}
		instr.Mem = mem
		return instr, false, nil
	}
	if op == 0x3F || op == 0x40 {
		if _, err := c.readByte(); err != nil { // reserved memidx byte
			return wasm.Instruction{}, false, err
		}
		kind := wasm.OpMemorySize
		if op == 0x40 {
			kind = wasm.OpMemoryGrow
		}
		return wasm.Instruction{Op: kind}, false, nil
	}
	switch op {
	case 0x41:
		v, err := c.readI32()
		if err != nil {
			return wasm.Instruction{}, false, err
		}
		return wasm.Instruction{Op: wasm.OpI32Const, I1: int64(v)}, false, nil
	case 0x42:
		v, err := c.readI64()
		if err != nil {
			return wasm.Instruction{}, false, err
		}
		return wasm.Instruction{Op: wasm.OpI64Const, I1: v}, false, nil
	case 0x43:
		v, err := c.readF32()
		if err != nil {
			return wasm.Instruction{}, false, err
		}
		return wasm.Instruction{Op: wasm.OpF32Const, U1: uint64(uint32FromFloat32(v))}, false, nil
	case 0x44:
		v, err := c.readF64()
		if err != nil {
			return wasm.Instruction{}, false, err
		}
		return wasm.Instruction{Op: wasm.OpF64Const, U1: uint64FromFloat64(v)}, false, nil
	}
	if instr, ok := plainOpcodes[op]; ok {
		return instr, false, nil
	}
	return wasm.Instruction{}, false, c.fail("unknown opcode")
}

func readMemArg(c *cursor) (wasm.MemArg, error) {
	align, err := c.readU32()
	if err != nil {
		return wasm.MemArg{}, err
	}
	offset, err := c.readU32()
	if err != nil {
		return wasm.MemArg{}, err
	}
	return wasm.MemArg{Align: align, Offset: offset}, nil
}

func decodeBlockType(v int64) wasm.BlockType {
	if v == -0x40 {
		return wasm.EmptyBlockType
	}
	if v >= 0 {
		return wasm.BlockType{TypeIdx: uint32(v)}
	}
	return wasm.BlockType{ValType: byte(v & 0x7f), HasValType: true}
}
