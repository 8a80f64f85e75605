package interpreter

import (
	"errors"
	"fmt"

	"github.com/pulseengine/wrtgo/internal/safememory"
	"github.com/pulseengine/wrtgo/internal/wasm"
	"github.com/pulseengine/wrtgo/internal/wasmruntime"
)

// alignFromLog2 converts a MemArg's log2 alignment hint into the
// safememory.Align enum. Misalignment is never a trap (spec §4.5); this
// only steers the provider toward a faster path when it can prove one.
func alignFromLog2(log2 uint32) safememory.Align {
	switch log2 {
	case 1:
		return safememory.Align2
	case 2:
		return safememory.Align4
	case 3:
		return safememory.Align8
	default:
		return safememory.AlignNone
	}
}

// execMemory executes every memory-instruction opcode (spec §4.5
// "Memory instructions"), translating safememory.ErrOutOfBounds into the
// Wasm MemoryOutOfBounds trap at the instruction boundary.
func (ce *callEngine) execMemory(f *frame, in wasm.Instruction) bool {
	switch in.Op {
	case wasm.OpI32Load:
		v, err := f.instance.Memories[0].Provider.LoadU32(f.instance.Memories[0].Region, ce.effAddr(f, in, 4), alignFromLog2(in.Mem.Align))
		ce.trapBounds(err, f, "i32.load")
		ce.pushValue(uint64(v))
	case wasm.OpI64Load:
		v, err := f.instance.Memories[0].Provider.LoadU64(f.instance.Memories[0].Region, ce.effAddr(f, in, 8), alignFromLog2(in.Mem.Align))
		ce.trapBounds(err, f, "i64.load")
		ce.pushValue(v)
	case wasm.OpF32Load:
		v, err := f.instance.Memories[0].Provider.LoadU32(f.instance.Memories[0].Region, ce.effAddr(f, in, 4), alignFromLog2(in.Mem.Align))
		ce.trapBounds(err, f, "f32.load")
		ce.pushValue(uint64(v))
	case wasm.OpF64Load:
		v, err := f.instance.Memories[0].Provider.LoadU64(f.instance.Memories[0].Region, ce.effAddr(f, in, 8), alignFromLog2(in.Mem.Align))
		ce.trapBounds(err, f, "f64.load")
		ce.pushValue(v)
	case wasm.OpI32Load8S:
		v, err := f.instance.Memories[0].Provider.LoadU8(f.instance.Memories[0].Region, ce.effAddr(f, in, 1))
		ce.trapBounds(err, f, "i32.load8_s")
		ce.pushValue(uint64(uint32(int32(int8(v)))))
	case wasm.OpI32Load8U:
		v, err := f.instance.Memories[0].Provider.LoadU8(f.instance.Memories[0].Region, ce.effAddr(f, in, 1))
		ce.trapBounds(err, f, "i32.load8_u")
		ce.pushValue(uint64(v))
	case wasm.OpI32Load16S:
		v, err := f.instance.Memories[0].Provider.LoadU16(f.instance.Memories[0].Region, ce.effAddr(f, in, 2), alignFromLog2(in.Mem.Align))
		ce.trapBounds(err, f, "i32.load16_s")
		ce.pushValue(uint64(uint32(int32(int16(v)))))
	case wasm.OpI32Load16U:
		v, err := f.instance.Memories[0].Provider.LoadU16(f.instance.Memories[0].Region, ce.effAddr(f, in, 2), alignFromLog2(in.Mem.Align))
		ce.trapBounds(err, f, "i32.load16_u")
		ce.pushValue(uint64(v))
	case wasm.OpI64Load8S:
		v, err := f.instance.Memories[0].Provider.LoadU8(f.instance.Memories[0].Region, ce.effAddr(f, in, 1))
		ce.trapBounds(err, f, "i64.load8_s")
		ce.pushValue(uint64(int64(int8(v))))
	case wasm.OpI64Load8U:
		v, err := f.instance.Memories[0].Provider.LoadU8(f.instance.Memories[0].Region, ce.effAddr(f, in, 1))
		ce.trapBounds(err, f, "i64.load8_u")
		ce.pushValue(uint64(v))
	case wasm.OpI64Load16S:
		v, err := f.instance.Memories[0].Provider.LoadU16(f.instance.Memories[0].Region, ce.effAddr(f, in, 2), alignFromLog2(in.Mem.Align))
		ce.trapBounds(err, f, "i64.load16_s")
		ce.pushValue(uint64(int64(int16(v))))
	case wasm.OpI64Load16U:
		v, err := f.instance.Memories[0].Provider.LoadU16(f.instance.Memories[0].Region, ce.effAddr(f, in, 2), alignFromLog2(in.Mem.Align))
		ce.trapBounds(err, f, "i64.load16_u")
		ce.pushValue(uint64(v))
	case wasm.OpI64Load32S:
		v, err := f.instance.Memories[0].Provider.LoadU32(f.instance.Memories[0].Region, ce.effAddr(f, in, 4), alignFromLog2(in.Mem.Align))
		ce.trapBounds(err, f, "i64.load32_s")
		ce.pushValue(uint64(int64(int32(v))))
	case wasm.OpI64Load32U:
		v, err := f.instance.Memories[0].Provider.LoadU32(f.instance.Memories[0].Region, ce.effAddr(f, in, 4), alignFromLog2(in.Mem.Align))
		ce.trapBounds(err, f, "i64.load32_u")
		ce.pushValue(uint64(v))

	case wasm.OpI32Store:
		v := uint32(ce.popValue())
		addr := ce.effAddr(f, in, 4)
		ce.trapBounds(f.instance.Memories[0].Provider.StoreU32(f.instance.Memories[0].Region, addr, alignFromLog2(in.Mem.Align), v), f, "i32.store")
	case wasm.OpI64Store:
		v := ce.popValue()
		addr := ce.effAddr(f, in, 8)
		ce.trapBounds(f.instance.Memories[0].Provider.StoreU64(f.instance.Memories[0].Region, addr, alignFromLog2(in.Mem.Align), v), f, "i64.store")
	case wasm.OpF32Store:
		v := uint32(ce.popValue())
		addr := ce.effAddr(f, in, 4)
		ce.trapBounds(f.instance.Memories[0].Provider.StoreU32(f.instance.Memories[0].Region, addr, alignFromLog2(in.Mem.Align), v), f, "f32.store")
	case wasm.OpF64Store:
		v := ce.popValue()
		addr := ce.effAddr(f, in, 8)
		ce.trapBounds(f.instance.Memories[0].Provider.StoreU64(f.instance.Memories[0].Region, addr, alignFromLog2(in.Mem.Align), v), f, "f64.store")
	case wasm.OpI32Store8:
		v := uint8(ce.popValue())
		addr := ce.effAddr(f, in, 1)
		ce.trapBounds(f.instance.Memories[0].Provider.StoreU8(f.instance.Memories[0].Region, addr, v), f, "i32.store8")
	case wasm.OpI32Store16:
		v := uint16(ce.popValue())
		addr := ce.effAddr(f, in, 2)
		ce.trapBounds(f.instance.Memories[0].Provider.StoreU16(f.instance.Memories[0].Region, addr, alignFromLog2(in.Mem.Align), v), f, "i32.store16")
	case wasm.OpI64Store8:
		v := uint8(ce.popValue())
		addr := ce.effAddr(f, in, 1)
		ce.trapBounds(f.instance.Memories[0].Provider.StoreU8(f.instance.Memories[0].Region, addr, v), f, "i64.store8")
	case wasm.OpI64Store16:
		v := uint16(ce.popValue())
		addr := ce.effAddr(f, in, 2)
		ce.trapBounds(f.instance.Memories[0].Provider.StoreU16(f.instance.Memories[0].Region, addr, alignFromLog2(in.Mem.Align), v), f, "i64.store16")
	case wasm.OpI64Store32:
		v := uint32(ce.popValue())
		addr := ce.effAddr(f, in, 4)
		ce.trapBounds(f.instance.Memories[0].Provider.StoreU32(f.instance.Memories[0].Region, addr, alignFromLog2(in.Mem.Align), v), f, "i64.store32")

	case wasm.OpMemorySize:
		ce.pushValue(uint64(f.instance.Memories[0].Pages()))
	case wasm.OpMemoryGrow:
		delta := uint32(ce.popValue())
		ce.pushValue(uint64(uint32(f.instance.Memories[0].Grow(delta))))
	case wasm.OpMemoryFill:
		ce.execMemoryFill(f)
	case wasm.OpMemoryCopy:
		ce.execMemoryCopy(f)
	case wasm.OpMemoryInit:
		ce.execMemoryInit(f, in)
	case wasm.OpDataDrop:
		f.instance.DataInstances[in.U1] = nil

	default:
		return false
	}
	return true
}

// effAddr computes the Wasm effective address for a memory access: the
// dynamic i32 base popped off the stack plus the instruction's static
// offset, computed in 64-bit so an address that would wrap past 2^32
// traps as out-of-bounds instead of silently aliasing (spec §4.5).
func (ce *callEngine) effAddr(f *frame, in wasm.Instruction, accessSize uint32) uint32 {
	base := uint64(uint32(ce.popValue()))
	eff := base + uint64(in.Mem.Offset)
	if eff+uint64(accessSize) > uint64(^uint32(0)) {
		panic(wasmruntime.NewTrap(wasmruntime.TrapMemoryOutOfBounds, f.fn.FuncIdx, uint32(f.pc), "effective address overflow"))
	}
	return uint32(eff)
}

// trapBounds converts a Provider error at the instruction boundary: a
// checksum mismatch is an Integrity error (spec §7), fatal rather than a
// recoverable MemoryOutOfBounds trap, so it is kept distinct here and
// surfaced as wasmruntime.ErrChecksumMismatch instead of being folded into
// the bounds-trap path below.
func (ce *callEngine) trapBounds(err error, f *frame, name string) {
	if err == nil {
		return
	}
	if errors.Is(err, safememory.ErrIntegrityMismatch) {
		panic(fmt.Errorf("%s: %w", name, wasmruntime.ErrChecksumMismatch))
	}
	panic(wasmruntime.NewTrap(wasmruntime.TrapMemoryOutOfBounds, f.fn.FuncIdx, uint32(f.pc), name+": "+err.Error()))
}

func (ce *callEngine) execMemoryFill(f *frame) {
	n := uint32(ce.popValue())
	val := uint8(ce.popValue())
	dst := uint32(ce.popValue())
	mem := f.instance.Memories[0]
	s, err := mem.Provider.Slice(mem.Region, dst, n)
	ce.trapBounds(err, f, "memory.fill")
	buf := s.Bytes()
	for i := range buf {
		buf[i] = val
	}
}

func (ce *callEngine) execMemoryCopy(f *frame) {
	n := uint32(ce.popValue())
	src := uint32(ce.popValue())
	dst := uint32(ce.popValue())
	mem := f.instance.Memories[0]
	srcSlice, err := mem.Provider.Slice(mem.Region, src, n)
	ce.trapBounds(err, f, "memory.copy")
	dstSlice, err := mem.Provider.Slice(mem.Region, dst, n)
	ce.trapBounds(err, f, "memory.copy")
	copy(dstSlice.Bytes(), srcSlice.Bytes())
}

func (ce *callEngine) execMemoryInit(f *frame, in wasm.Instruction) {
	n := uint32(ce.popValue())
	src := uint32(ce.popValue())
	dst := uint32(ce.popValue())
	data := f.instance.DataInstances[in.U1]
	if uint64(src)+uint64(n) > uint64(len(data)) {
		panic(wasmruntime.NewTrap(wasmruntime.TrapMemoryOutOfBounds, f.fn.FuncIdx, uint32(f.pc), "memory.init: source out of bounds"))
	}
	mem := f.instance.Memories[0]
	s, err := mem.Provider.Slice(mem.Region, dst, n)
	ce.trapBounds(err, f, "memory.init")
	copy(s.Bytes(), data[src:src+n])
}
