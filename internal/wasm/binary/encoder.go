package binary

import (
	"github.com/pulseengine/wrtgo/api"
	"github.com/pulseengine/wrtgo/internal/leb128"
	"github.com/pulseengine/wrtgo/internal/wasm"
)

// Encode re-serializes a decoded Module back into Wasm binary bytes. It
// exists to support the decoder's structural idempotence law (spec §8:
// decode(encode(decode(m))) == decode(m)), not to reproduce a module's
// original bytes exactly — custom sections (including "name") and the
// precise choice of LEB128 padding are not preserved.
func Encode(m *wasm.Module) []byte {
	out := append([]byte{}, []byte(magic)...)
	out = append(out, 1, 0, 0, 0)

	if len(m.Types) > 0 {
		out = appendSection(out, sectionType, encodeTypeSection(m))
	}
	if len(m.Imports) > 0 {
		out = appendSection(out, sectionImport, encodeImportSection(m))
	}
	if len(m.Functions) > 0 {
		out = appendSection(out, sectionFunction, encodeFunctionSection(m))
	}
	if len(m.Tables) > 0 {
		out = appendSection(out, sectionTable, encodeTableSection(m))
	}
	if len(m.Memories) > 0 {
		out = appendSection(out, sectionMemory, encodeMemorySection(m))
	}
	if len(m.Globals) > 0 {
		out = appendSection(out, sectionGlobal, encodeGlobalSection(m))
	}
	if len(m.Exports) > 0 {
		out = appendSection(out, sectionExport, encodeExportSection(m))
	}
	if m.HasStart {
		out = appendSection(out, sectionStart, leb128.EncodeUint32(m.Start))
	}
	if len(m.Elements) > 0 {
		out = appendSection(out, sectionElement, encodeElementSection(m))
	}
	if len(m.Data) > 0 {
		out = appendSection(out, sectionDataCount, leb128.EncodeUint32(uint32(len(m.Data))))
	}
	if len(m.Functions) > 0 {
		out = appendSection(out, sectionCode, encodeCodeSection(m))
	}
	if len(m.Data) > 0 {
		out = appendSection(out, sectionData, encodeDataSection(m))
	}
	return out
}

func appendSection(out []byte, id sectionID, body []byte) []byte {
	out = append(out, byte(id))
	out = append(out, leb128.EncodeUint32(uint32(len(body)))...)
	return append(out, body...)
}

func encodeVec(n int, each func(i int) []byte) []byte {
	out := leb128.EncodeUint32(uint32(n))
	for i := 0; i < n; i++ {
		out = append(out, each(i)...)
	}
	return out
}

func encodeName(s string) []byte {
	out := leb128.EncodeUint32(uint32(len(s)))
	return append(out, []byte(s)...)
}

func encodeLimits(l api.Limits) []byte {
	flags := byte(0)
	if l.HasMax {
		flags |= 0x01
	}
	if l.Shared {
		flags |= 0x02
	}
	out := []byte{flags}
	out = append(out, leb128.EncodeUint32(l.Min)...)
	if l.HasMax {
		out = append(out, leb128.EncodeUint32(l.Max)...)
	}
	return out
}

func encodeTypeSection(m *wasm.Module) []byte {
	return encodeVec(len(m.Types), func(i int) []byte {
		t := m.Types[i]
		out := []byte{funcTypeTag}
		out = append(out, encodeVec(len(t.Params), func(j int) []byte { return []byte{t.Params[j]} })...)
		out = append(out, encodeVec(len(t.Results), func(j int) []byte { return []byte{t.Results[j]} })...)
		return out
	})
}

func encodeImportSection(m *wasm.Module) []byte {
	return encodeVec(len(m.Imports), func(i int) []byte {
		imp := m.Imports[i]
		out := encodeName(imp.Module)
		out = append(out, encodeName(imp.Name)...)
		out = append(out, imp.Kind)
		switch imp.Kind {
		case api.ExternTypeFunc:
			out = append(out, leb128.EncodeUint32(imp.TypeIdx)...)
		case api.ExternTypeTable:
			out = append(out, imp.TableType.ElemType)
			out = append(out, encodeLimits(imp.TableType.Limits)...)
		case api.ExternTypeMemory:
			out = append(out, encodeLimits(imp.MemType.Limits)...)
		case api.ExternTypeGlobal:
			out = append(out, imp.GlobalType.ValType)
			if imp.GlobalType.Mutable {
				out = append(out, 1)
			} else {
				out = append(out, 0)
			}
		}
		return out
	})
}

func encodeFunctionSection(m *wasm.Module) []byte {
	return encodeVec(len(m.Functions), func(i int) []byte {
		return leb128.EncodeUint32(m.Functions[i].TypeIdx)
	})
}

func encodeTableSection(m *wasm.Module) []byte {
	return encodeVec(len(m.Tables), func(i int) []byte {
		t := m.Tables[i].Type
		return append([]byte{t.ElemType}, encodeLimits(t.Limits)...)
	})
}

func encodeMemorySection(m *wasm.Module) []byte {
	return encodeVec(len(m.Memories), func(i int) []byte {
		return encodeLimits(m.Memories[i].Type.Limits)
	})
}

func encodeGlobalSection(m *wasm.Module) []byte {
	return encodeVec(len(m.Globals), func(i int) []byte {
		g := m.Globals[i]
		out := []byte{g.Type.ValType}
		if g.Type.Mutable {
			out = append(out, 1)
		} else {
			out = append(out, 0)
		}
		return append(out, encodeConstExpr(g.Init)...)
	})
}

func encodeExportSection(m *wasm.Module) []byte {
	return encodeVec(len(m.Exports), func(i int) []byte {
		e := m.Exports[i]
		out := encodeName(e.Name)
		out = append(out, e.Kind)
		return append(out, leb128.EncodeUint32(e.Index)...)
	})
}

func encodeElementSection(m *wasm.Module) []byte {
	return encodeVec(len(m.Elements), func(i int) []byte {
		e := m.Elements[i]
		var out []byte
		switch e.Mode {
		case wasm.ElementModeActive:
			out = leb128.EncodeUint32(0)
			if e.TableIdx != 0 {
				out = leb128.EncodeUint32(2)
				out = append(out, leb128.EncodeUint32(e.TableIdx)...)
			}
			out = append(out, encodeConstExpr(e.Offset)...)
			if e.TableIdx != 0 {
				out = append(out, 0x00)
			}
		case wasm.ElementModePassive:
			out = leb128.EncodeUint32(1)
			out = append(out, 0x00)
		case wasm.ElementModeDeclarative:
			out = leb128.EncodeUint32(3)
			out = append(out, 0x00)
		}
		out = append(out, encodeVec(len(e.Init), func(j int) []byte {
			return leb128.EncodeUint32(uint32(e.Init[j].U1))
		})...)
		return out
	})
}

func encodeDataSection(m *wasm.Module) []byte {
	return encodeVec(len(m.Data), func(i int) []byte {
		d := m.Data[i]
		var out []byte
		switch d.Mode {
		case wasm.DataModeActive:
			if d.MemIdx != 0 {
				out = leb128.EncodeUint32(2)
				out = append(out, leb128.EncodeUint32(d.MemIdx)...)
			} else {
				out = leb128.EncodeUint32(0)
			}
			out = append(out, encodeConstExpr(d.Offset)...)
		case wasm.DataModePassive:
			out = leb128.EncodeUint32(1)
		}
		out = append(out, leb128.EncodeUint32(uint32(len(d.Init)))...)
		return append(out, d.Init...)
	})
}

// encodeConstExpr reverses decodeConstExpr for the narrow instruction set
// it accepts.
func encodeConstExpr(expr []wasm.Instruction) []byte {
	if len(expr) != 1 {
		return []byte{0x41, 0x00, 0x0B} // i32.const 0; end — should not occur for well-formed input
	}
	out := encodeInstruction(expr[0])
	return append(out, 0x0B)
}

func encodeCodeSection(m *wasm.Module) []byte {
	return encodeVec(len(m.Functions), func(i int) []byte {
		body := encodeFunctionBody(m.Functions[i])
		out := leb128.EncodeUint32(uint32(len(body)))
		return append(out, body...)
	})
}

func encodeFunctionBody(fn *wasm.Function) []byte {
	out := encodeVec(len(fn.Locals), func(i int) []byte {
		g := fn.Locals[i]
		return append(leb128.EncodeUint32(g.Count), g.Type)
	})
	for _, instr := range fn.Body {
		out = append(out, encodeInstruction(instr)...)
	}
	return out
}

// encodeInstruction encodes a single pre-decoded Instruction back to its
// binary opcode and immediates. Structural opcodes (Block/Loop/If/Else/
// End) round-trip directly; their backpatched End/Else/Labels fields are
// ignored on the way out since the binary format recomputes them from the
// instruction stream's own nesting on the next decode.
func encodeInstruction(in wasm.Instruction) []byte {
	switch in.Op {
	case wasm.OpUnreachable:
		return []byte{0x00}
	case wasm.OpNop:
		return []byte{0x01}
	case wasm.OpBlock, wasm.OpLoop, wasm.OpIf:
		op := byte(0x02)
		if in.Op == wasm.OpLoop {
			op = 0x03
		} else if in.Op == wasm.OpIf {
			op = 0x04
		}
		return append([]byte{op}, encodeBlockType(in.Block)...)
	case wasm.OpElse:
		return []byte{0x05}
	case wasm.OpEnd:
		return []byte{0x0B}
	case wasm.OpBr:
		return append([]byte{0x0C}, leb128.EncodeUint32(uint32(in.U1))...)
	case wasm.OpBrIf:
		return append([]byte{0x0D}, leb128.EncodeUint32(uint32(in.U1))...)
	case wasm.OpBrTable:
		out := []byte{0x0E}
		out = append(out, leb128.EncodeUint32(uint32(len(in.Labels)-1))...)
		for _, l := range in.Labels[:len(in.Labels)-1] {
			out = append(out, leb128.EncodeUint32(l)...)
		}
		return append(out, leb128.EncodeUint32(in.Labels[len(in.Labels)-1])...)
	case wasm.OpReturn:
		return []byte{0x0F}
	case wasm.OpCall:
		return append([]byte{0x10}, leb128.EncodeUint32(uint32(in.U1))...)
	case wasm.OpReturnCall:
		return append([]byte{0x12}, leb128.EncodeUint32(uint32(in.U1))...)
	case wasm.OpCallIndirect:
		out := append([]byte{0x11}, leb128.EncodeUint32(uint32(in.U1))...)
		return append(out, leb128.EncodeUint32(uint32(in.U2))...)
	case wasm.OpReturnCallIndirect:
		out := append([]byte{0x13}, leb128.EncodeUint32(uint32(in.U1))...)
		return append(out, leb128.EncodeUint32(uint32(in.U2))...)
	case wasm.OpDrop:
		return []byte{0x1A}
	case wasm.OpSelect:
		return []byte{0x1B}
	case wasm.OpSelectT:
		return append([]byte{0x1C}, encodeVec(1, func(int) []byte { return []byte{byte(in.U1)} })...)
	case wasm.OpLocalGet:
		return append([]byte{0x20}, leb128.EncodeUint32(uint32(in.U1))...)
	case wasm.OpLocalSet:
		return append([]byte{0x21}, leb128.EncodeUint32(uint32(in.U1))...)
	case wasm.OpLocalTee:
		return append([]byte{0x22}, leb128.EncodeUint32(uint32(in.U1))...)
	case wasm.OpGlobalGet:
		return append([]byte{0x23}, leb128.EncodeUint32(uint32(in.U1))...)
	case wasm.OpGlobalSet:
		return append([]byte{0x24}, leb128.EncodeUint32(uint32(in.U1))...)
	case wasm.OpTableGet:
		return append([]byte{0x25}, leb128.EncodeUint32(uint32(in.U1))...)
	case wasm.OpTableSet:
		return append([]byte{0x26}, leb128.EncodeUint32(uint32(in.U1))...)
	case wasm.OpRefNull:
		return []byte{0xD0, byte(in.U1)}
	case wasm.OpRefIsNull:
		return []byte{0xD1}
	case wasm.OpRefFunc:
		return append([]byte{0xD2}, leb128.EncodeUint32(uint32(in.U1))...)
	case wasm.OpI32Const:
		return append([]byte{0x41}, leb128.EncodeInt32(int32(in.I1))...)
	case wasm.OpI64Const:
		return append([]byte{0x42}, leb128.EncodeInt64(in.I1)...)
	case wasm.OpF32Const:
		return append([]byte{0x43}, encodeF32Bits(uint32(in.U1))...)
	case wasm.OpF64Const:
		return append([]byte{0x44}, encodeF64Bits(in.U1)...)
	case wasm.OpMemorySize:
		return []byte{0x3F, 0x00}
	case wasm.OpMemoryGrow:
		return []byte{0x40, 0x00}
	}
	if b, ok := reverseMemoryOpcodes[in.Op]; ok {
		out := []byte{b}
		out = append(out, leb128.EncodeUint32(in.Mem.Align)...)
		return append(out, leb128.EncodeUint32(in.Mem.Offset)...)
	}
	if b, ok := reversePlainOpcodes[in.Op]; ok {
		return []byte{b}
	}
	// Opcodes outside the set above (SIMD, atomics, and bulk-memory ops
	// like memory.fill/table.init) are not round-tripped by this minimal
	// encoder; table.get/table.set are handled explicitly above.
	return nil
}

func encodeBlockType(b wasm.BlockType) []byte {
	if b.Empty {
		return []byte{0x40}
	}
	if b.HasValType {
		return []byte{b.ValType}
	}
	return leb128.EncodeInt64(int64(b.TypeIdx))
}

func encodeF32Bits(bits uint32) []byte {
	return []byte{byte(bits), byte(bits >> 8), byte(bits >> 16), byte(bits >> 24)}
}

func encodeF64Bits(bits uint64) []byte {
	out := make([]byte, 8)
	for i := 0; i < 8; i++ {
		out[i] = byte(bits >> (8 * i))
	}
	return out
}

var (
	reverseMemoryOpcodes = invertOpMap(memoryOpcodes)
	reversePlainOpcodes  = invertOpMap(plainOpcodes)
)

func invertOpMap(m map[byte]wasm.Instruction) map[wasm.Op]byte {
	out := make(map[wasm.Op]byte, len(m))
	for b, instr := range m {
		out[instr.Op] = b
	}
	return out
}
