package interpreter

import (
	"context"

	"github.com/pulseengine/wrtgo/internal/wasm"
)

// execAtomics executes the atomics subset wrtgo gives sequential
// semantics to (SPEC_FULL.md Open Question 1): plain loads/stores/add
// behave exactly like their non-atomic counterparts since wrtgo never
// runs two call engines against one instance concurrently, and
// wait/notify are routed to the engine's SuspendHook instead of doing
// real OS-level blocking (spec §5).
func (ce *callEngine) execAtomics(ctx context.Context, f *frame, in wasm.Instruction) bool {
	mem := f.instance.Memories[0]
	switch in.Op {
	case wasm.OpAtomicFence:
		// Sequential engine: nothing to order.
	case wasm.OpI32AtomicLoad:
		v, err := mem.Provider.LoadU32(mem.Region, ce.effAddr(f, in, 4), alignFromLog2(in.Mem.Align))
		ce.trapBounds(err, f, "i32.atomic.load")
		ce.pushValue(uint64(v))
	case wasm.OpI64AtomicLoad:
		v, err := mem.Provider.LoadU64(mem.Region, ce.effAddr(f, in, 8), alignFromLog2(in.Mem.Align))
		ce.trapBounds(err, f, "i64.atomic.load")
		ce.pushValue(v)
	case wasm.OpI32AtomicStore:
		v := uint32(ce.popValue())
		addr := ce.effAddr(f, in, 4)
		ce.trapBounds(mem.Provider.StoreU32(mem.Region, addr, alignFromLog2(in.Mem.Align), v), f, "i32.atomic.store")
	case wasm.OpI64AtomicStore:
		v := ce.popValue()
		addr := ce.effAddr(f, in, 8)
		ce.trapBounds(mem.Provider.StoreU64(mem.Region, addr, alignFromLog2(in.Mem.Align), v), f, "i64.atomic.store")
	case wasm.OpI32AtomicRmwAdd:
		operand := uint32(ce.popValue())
		addr := ce.effAddr(f, in, 4)
		old, err := mem.Provider.LoadU32(mem.Region, addr, alignFromLog2(in.Mem.Align))
		ce.trapBounds(err, f, "i32.atomic.rmw.add")
		ce.trapBounds(mem.Provider.StoreU32(mem.Region, addr, alignFromLog2(in.Mem.Align), old+operand), f, "i32.atomic.rmw.add")
		ce.pushValue(uint64(old))
	case wasm.OpI64AtomicRmwAdd:
		operand := ce.popValue()
		addr := ce.effAddr(f, in, 8)
		old, err := mem.Provider.LoadU64(mem.Region, addr, alignFromLog2(in.Mem.Align))
		ce.trapBounds(err, f, "i64.atomic.rmw.add")
		ce.trapBounds(mem.Provider.StoreU64(mem.Region, addr, alignFromLog2(in.Mem.Align), old+operand), f, "i64.atomic.rmw.add")
		ce.pushValue(old)
	case wasm.OpMemoryAtomicWait32, wasm.OpMemoryAtomicWait64:
		ce.popValue() // timeout
		ce.popValue() // expected
		addr := ce.effAddr(f, in, 4)
		ce.suspendWait(ctx, f, addr)
		if ce.engine.suspend == nil {
			ce.pushValue(2) // "timed-out": with no hook every wait times out at once
		} else {
			ce.pushValue(0) // "ok": the hook has returned control to the waiter
		}
	case wasm.OpMemoryAtomicNotify:
		ce.popValue() // count
		addr := ce.effAddr(f, in, 4)
		ce.pushValue(uint64(ce.suspendNotify(ctx, f, addr)))

	default:
		return false
	}
	return true
}

func (ce *callEngine) suspendWait(ctx context.Context, f *frame, addr uint32) {
	if ce.engine.suspend == nil {
		return
	}
	_, _ = ce.engine.suspend(ctx, SuspendReasonAtomicWait, 0, addr)
}

func (ce *callEngine) suspendNotify(ctx context.Context, f *frame, addr uint32) uint32 {
	if ce.engine.suspend == nil {
		return 0
	}
	woken, _ := ce.engine.suspend(ctx, SuspendReasonAtomicNotify, 0, addr)
	return woken
}
