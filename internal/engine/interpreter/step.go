package interpreter

import (
	"context"

	"github.com/pulseengine/wrtgo/api"
	"github.com/pulseengine/wrtgo/internal/wasm"
	"github.com/pulseengine/wrtgo/internal/wasmruntime"
)

// run executes f's instruction stream to completion (normal fallthrough
// past the function-level End, an explicit Return, or a tail call that
// replaces f in place). Control-flow opcodes only move f.pc; only Call/
// CallIndirect recurse into ce.call, mirroring the teacher's
// callNativeFunc step loop (spec §4.5).
func (ce *callEngine) run(ctx context.Context, f *frame) {
	body := functionBody(f)
	for f.pc < len(body) {
		in := body[f.pc]
		switch in.Op {
		case wasm.OpUnreachable:
			panic(wasmruntime.NewTrap(wasmruntime.TrapUnreachable, f.fn.FuncIdx, uint32(f.pc), ""))
		case wasm.OpNop:
			f.pc++
		case wasm.OpBlock, wasm.OpLoop:
			arity := blockArity(f, in.Block, true)
			target := int(in.End)
			if in.Op == wasm.OpLoop {
				target = f.pc + 1
			}
			f.labels = append(f.labels, label{stackHeight: ce.values.Len(), arity: arity, target: target, isLoop: in.Op == wasm.OpLoop})
			f.pc++
		case wasm.OpIf:
			cond := ce.popValue()
			arity := blockArity(f, in.Block, true)
			f.labels = append(f.labels, label{stackHeight: ce.values.Len(), arity: arity, target: int(in.End)})
			if cond != 0 {
				f.pc++
			} else if in.Else != in.End {
				f.pc = int(in.Else)
			} else {
				f.labels = f.labels[:len(f.labels)-1]
				f.pc = int(in.End)
			}
		case wasm.OpElse:
			// Reached only by falling through the true branch: skip the
			// else body by jumping to the label's recorded end.
			lbl := f.labels[len(f.labels)-1]
			f.labels = f.labels[:len(f.labels)-1]
			ce.exitLabel(lbl)
			f.pc = lbl.target
		case wasm.OpEnd:
			if len(f.labels) > 0 {
				f.labels = f.labels[:len(f.labels)-1]
			}
			f.pc++
		case wasm.OpBr:
			ce.branch(f, int(in.U1))
		case wasm.OpBrIf:
			if ce.popValue() != 0 {
				ce.branch(f, int(in.U1))
			} else {
				f.pc++
			}
		case wasm.OpBrTable:
			idx := ce.popValue()
			depth := in.Labels[len(in.Labels)-1]
			if idx < uint64(len(in.Labels)-1) {
				depth = in.Labels[idx]
			}
			ce.branch(f, int(depth))
		case wasm.OpReturn:
			return
		case wasm.OpCall:
			callee := f.instance.Functions[in.U1]
			results, err := ce.call(ctx, callee)
			if err != nil {
				panic(err)
			}
			ce.pushResults(results)
			f.pc++
		case wasm.OpCallIndirect:
			ce.execCallIndirect(ctx, f, in)
			f.pc++
		case wasm.OpReturnCall:
			callee := f.instance.Functions[in.U1]
			*f = ce.tailCallFrame(callee)
			body = functionBody(f)
			continue
		case wasm.OpReturnCallIndirect:
			callee := ce.resolveIndirectTarget(f, in)
			*f = ce.tailCallFrame(callee)
			body = functionBody(f)
			continue
		case wasm.OpDrop:
			ce.popValue()
			f.pc++
		case wasm.OpSelect, wasm.OpSelectT:
			cond := ce.popValue()
			b := ce.popValue()
			a := ce.popValue()
			if cond != 0 {
				ce.pushValue(a)
			} else {
				ce.pushValue(b)
			}
			f.pc++
		case wasm.OpLocalGet:
			ce.pushValue(f.locals[in.U1])
			f.pc++
		case wasm.OpLocalSet:
			f.locals[in.U1] = ce.popValue()
			f.pc++
		case wasm.OpLocalTee:
			v, _ := ce.values.Peek()
			f.locals[in.U1] = v
			f.pc++
		case wasm.OpGlobalGet:
			g := f.instance.Globals[in.U1]
			ce.pushValue(g.Value.Lo)
			if g.Type.ValType == api.ValueTypeV128 {
				ce.pushValue(g.Value.Hi)
			}
			f.pc++
		case wasm.OpGlobalSet:
			g := f.instance.Globals[in.U1]
			if g.Type.ValType == api.ValueTypeV128 {
				g.Value.Hi = ce.popValue()
			}
			g.Value.Lo = ce.popValue()
			f.pc++
		default:
			ce.execOther(ctx, f, in)
			f.pc++
		}
	}
}

func (ce *callEngine) pushResults(results []api.Value) {
	for _, r := range results {
		ce.pushValue(r.Lo)
		if r.Type == api.ValueTypeV128 {
			ce.pushValue(r.Hi)
		}
	}
}

// branch implements Br(depth): pop the depth-th label (0 = innermost),
// preserve its arity result values across the stack truncation back to
// its entry height, and resume at its recorded target (spec §4.5 "br").
func (ce *callEngine) branch(f *frame, depth int) {
	idx := len(f.labels) - 1 - depth
	lbl := f.labels[idx]
	ce.exitLabel(lbl)
	f.labels = f.labels[:idx+1]
	if !lbl.isLoop {
		f.labels = f.labels[:idx]
	}
	f.pc = lbl.target
}

func (ce *callEngine) exitLabel(lbl label) {
	results := ce.popN(lbl.arity)
	ce.values.Truncate(lbl.stackHeight)
	for _, r := range results {
		ce.pushValue(r)
	}
}

// blockArity resolves a BlockType's result count, one of 0, 1 (via
// ValType), or a type section's declared result arity (multi-value).
func blockArity(f *frame, b wasm.BlockType, results bool) int {
	if b.Empty {
		return 0
	}
	if b.HasValType {
		return 1
	}
	t := f.instance.Module.Types[b.TypeIdx]
	if results {
		return len(t.Results)
	}
	return len(t.Params)
}

func (ce *callEngine) execCallIndirect(ctx context.Context, f *frame, in wasm.Instruction) {
	callee := ce.resolveIndirectTarget(f, in)
	results, err := ce.call(ctx, callee)
	if err != nil {
		panic(err)
	}
	ce.pushResults(results)
}

func (ce *callEngine) resolveIndirectTarget(f *frame, in wasm.Instruction) *wasm.FunctionInstance {
	tableIdx := in.U2
	elemIdx := ce.popValue()
	table := f.instance.Tables[tableIdx]
	if elemIdx >= uint64(len(table.Elems)) {
		panic(wasmruntime.NewTrap(wasmruntime.TrapUndefinedElement, f.fn.FuncIdx, uint32(f.pc), "call_indirect: element index out of range"))
	}
	elem := table.Elems[elemIdx]
	if elem.IsNull {
		panic(wasmruntime.NewTrap(wasmruntime.TrapUndefinedElement, f.fn.FuncIdx, uint32(f.pc), "call_indirect: null element"))
	}
	callee := f.instance.Functions[elem.FuncIdx]
	want := f.instance.Module.Types[in.U1]
	if !callee.Type.Matches(want) {
		panic(wasmruntime.NewTrap(wasmruntime.TrapIndirectCallTypeMismatch, f.fn.FuncIdx, uint32(f.pc), "call_indirect: signature mismatch"))
	}
	return callee
}

// tailCallFrame builds the replacement frame for a return_call(_indirect):
// the current frame's activation is discarded (its locals go out of
// scope) and callee's frame takes its place in the frame stack slot
// without growing it, realizing spec §4.5 "tail calls replace the frame".
func (ce *callEngine) tailCallFrame(callee *wasm.FunctionInstance) frame {
	localIdx := callee.FuncIdx - callee.Module.Module.ImportedFunctionCount
	fn := callee.Module.Module.Functions[localIdx]
	params := ce.popN(len(callee.Type.Params))
	locals := make([]uint64, fn.NumLocals)
	copy(locals, params)
	return frame{instance: callee.Module, fn: callee, locals: locals}
}
