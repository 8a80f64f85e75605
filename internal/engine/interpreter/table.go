package interpreter

import (
	"github.com/pulseengine/wrtgo/internal/wasm"
	"github.com/pulseengine/wrtgo/internal/wasmruntime"
)

// execTable executes every table-instruction opcode (spec §4.5 "Table
// instructions": reference-types and bulk-memory table ops).
func (ce *callEngine) execTable(f *frame, in wasm.Instruction) bool {
	switch in.Op {
	case wasm.OpTableGet:
		table := f.instance.Tables[in.U1]
		idx := uint32(ce.popValue())
		ce.trapTableBounds(idx, uint32(len(table.Elems)), f, "table.get")
		ce.pushValue(elemToStack(table.Elems[idx]))
	case wasm.OpTableSet:
		table := f.instance.Tables[in.U1]
		v := ce.popValue()
		idx := uint32(ce.popValue())
		ce.trapTableBounds(idx, uint32(len(table.Elems)), f, "table.set")
		table.Elems[idx] = stackToElem(v)
	case wasm.OpTableSize:
		ce.pushValue(uint64(len(f.instance.Tables[in.U1].Elems)))
	case wasm.OpTableGrow:
		table := f.instance.Tables[in.U1]
		n := uint32(ce.popValue())
		init := stackToElem(ce.popValue())
		ce.pushValue(uint64(uint32(table.Grow(n, init))))
	case wasm.OpTableFill:
		ce.execTableFill(f, in)
	case wasm.OpTableCopy:
		ce.execTableCopy(f, in)
	case wasm.OpTableInit:
		ce.execTableInit(f, in)
	case wasm.OpElemDrop:
		f.instance.ElementInstances[in.U1] = nil

	default:
		return false
	}
	return true
}

func elemToStack(e wasm.TableElem) uint64 {
	if e.IsNull {
		return 0
	}
	return uint64(e.FuncIdx) | 1<<63
}

func stackToElem(v uint64) wasm.TableElem {
	if v == 0 {
		return wasm.TableElem{IsNull: true}
	}
	return wasm.TableElem{FuncIdx: wasm.Index(v &^ (1 << 63))}
}

func (ce *callEngine) trapTableBounds(idx, length uint32, f *frame, name string) {
	if idx >= length {
		panic(wasmruntime.NewTrap(wasmruntime.TrapUndefinedElement, f.fn.FuncIdx, uint32(f.pc), name+": index out of range"))
	}
}

func (ce *callEngine) execTableFill(f *frame, in wasm.Instruction) {
	table := f.instance.Tables[in.U1]
	n := uint32(ce.popValue())
	val := stackToElem(ce.popValue())
	dst := uint32(ce.popValue())
	if uint64(dst)+uint64(n) > uint64(len(table.Elems)) {
		panic(wasmruntime.NewTrap(wasmruntime.TrapUndefinedElement, f.fn.FuncIdx, uint32(f.pc), "table.fill: out of range"))
	}
	for i := uint32(0); i < n; i++ {
		table.Elems[dst+i] = val
	}
}

func (ce *callEngine) execTableCopy(f *frame, in wasm.Instruction) {
	dstTable := f.instance.Tables[in.U1]
	srcTable := f.instance.Tables[in.U2]
	n := uint32(ce.popValue())
	src := uint32(ce.popValue())
	dst := uint32(ce.popValue())
	if uint64(src)+uint64(n) > uint64(len(srcTable.Elems)) || uint64(dst)+uint64(n) > uint64(len(dstTable.Elems)) {
		panic(wasmruntime.NewTrap(wasmruntime.TrapUndefinedElement, f.fn.FuncIdx, uint32(f.pc), "table.copy: out of range"))
	}
	tmp := make([]wasm.TableElem, n)
	copy(tmp, srcTable.Elems[src:src+n])
	copy(dstTable.Elems[dst:dst+n], tmp)
}

func (ce *callEngine) execTableInit(f *frame, in wasm.Instruction) {
	elem := f.instance.ElementInstances[in.U1]
	table := f.instance.Tables[in.U2]
	n := uint32(ce.popValue())
	src := uint32(ce.popValue())
	dst := uint32(ce.popValue())
	if uint64(src)+uint64(n) > uint64(len(elem)) || uint64(dst)+uint64(n) > uint64(len(table.Elems)) {
		panic(wasmruntime.NewTrap(wasmruntime.TrapUndefinedElement, f.fn.FuncIdx, uint32(f.pc), "table.init: out of range"))
	}
	copy(table.Elems[dst:dst+n], elem[src:src+n])
}
