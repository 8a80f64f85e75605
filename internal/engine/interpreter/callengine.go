package interpreter

import (
	"context"

	"github.com/pulseengine/wrtgo/api"
	"github.com/pulseengine/wrtgo/internal/bounded"
	"github.com/pulseengine/wrtgo/internal/wasm"
	"github.com/pulseengine/wrtgo/internal/wasmruntime"
)

// label is one open structured-control-flow scope within a running
// function: the value-stack height to restore on exit, how many result
// values the scope produces, where to jump on branch, and whether it is
// a loop (branching to a loop re-enters it rather than exiting it).
type label struct {
	stackHeight int
	arity       int
	target      int
	isLoop      bool
}

// frame is one activation record on the frame stack (spec §3 "Frame").
// wrtgo's frame stack never grows across a Wasm-to-Wasm call that the
// tail-call opcodes (return_call / return_call_indirect) perform: those
// replace the current frame in place instead of pushing a new one (spec
// §4.5 "Tail calls replace the current frame").
type frame struct {
	instance *wasm.ModuleInstance
	fn       *wasm.FunctionInstance
	locals   []uint64
	labels   []label
	pc       int
}

// callEngine holds the bounded stacks shared by every nested call
// originating from one top-level Engine.Invoke (spec §4.5 "Value stack",
// "Frame stack"; ground: tetratelabs/wazero's callEngine).
type callEngine struct {
	engine *Engine
	values *bounded.Stack[uint64]
	frames *bounded.Stack[*frame]
}

func newCallEngine(e *Engine) *callEngine {
	return &callEngine{
		engine: e,
		values: bounded.NewStack[uint64](e.preset.MaxValueStack),
		frames: bounded.NewStack[*frame](e.preset.MaxFrames),
	}
}

func (ce *callEngine) pushValue(v uint64) {
	if err := ce.values.Push(v); err != nil {
		panic(wasmruntime.NewTrap(wasmruntime.TrapStackOverflow, 0, 0, "value stack exhausted"))
	}
}

func (ce *callEngine) popValue() uint64 {
	v, err := ce.values.Pop()
	if err != nil {
		panic(wasmruntime.NewTrap(wasmruntime.TrapStackOverflow, 0, 0, "value stack underflow"))
	}
	return v
}

func (ce *callEngine) popN(n int) []uint64 {
	out := make([]uint64, n)
	for i := n - 1; i >= 0; i-- {
		out[i] = ce.popValue()
	}
	return out
}

func (ce *callEngine) pushFrame(f *frame) {
	if err := ce.frames.Push(f); err != nil {
		panic(wasmruntime.NewTrap(wasmruntime.TrapStackOverflow, f.fn.FuncIdx, 0, "frame stack exhausted"))
	}
}

func (ce *callEngine) popFrame() *frame {
	f, err := ce.frames.Pop()
	if err != nil {
		panic(wasmruntime.NewTrap(wasmruntime.TrapStackOverflow, 0, 0, "frame stack underflow"))
	}
	return f
}

// call invokes fn, pushing params already sitting on the value stack into
// its locals slab, running the step loop to completion, and returning its
// declared results as api.Value (spec §4.5 "invoke").
func (ce *callEngine) call(ctx context.Context, fn *wasm.FunctionInstance) ([]api.Value, error) {
	if fn.Kind == wasm.FunctionKindHost {
		stack := ce.popN(len(fn.Type.Params))
		fn.HostFunc(stack)
		for _, v := range stack[:len(fn.Type.Results)] {
			ce.pushValue(v)
		}
		return ce.popResults(fn.Type.Results), nil
	}

	params := ce.popN(len(fn.Type.Params))
	locals := make([]uint64, fn.Module.Module.Functions[fn.FuncIdx-fn.Module.Module.ImportedFunctionCount].NumLocals)
	copy(locals, params)

	f := &frame{instance: fn.Module, fn: fn, locals: locals}
	ce.pushFrame(f)
	ce.run(ctx, f)
	ce.popFrame()

	return ce.popResults(fn.Type.Results), nil
}

func (ce *callEngine) popResults(results []api.ValueType) []api.Value {
	out := make([]api.Value, len(results))
	for i := len(results) - 1; i >= 0; i-- {
		t := results[i]
		if t == api.ValueTypeV128 {
			hi := ce.popValue()
			lo := ce.popValue()
			out[i] = api.V128(lo, hi)
			continue
		}
		v := ce.popValue()
		switch t {
		case api.ValueTypeI32:
			out[i] = api.I32(uint32(v))
		case api.ValueTypeI64:
			out[i] = api.I64(v)
		case api.ValueTypeF32:
			out[i] = api.F32Bits(uint32(v))
		case api.ValueTypeF64:
			out[i] = api.F64Bits(v)
		default:
			out[i] = api.Value{Type: t, Lo: v}
		}
	}
	return out
}

// functionBody returns the instruction stream of f's function, resolving
// imported-vs-local function indices the same way Module.FunctionTypeIndex
// does.
func functionBody(f *frame) []wasm.Instruction {
	localIdx := f.fn.FuncIdx - f.instance.Module.ImportedFunctionCount
	return f.instance.Module.Functions[localIdx].Body
}
