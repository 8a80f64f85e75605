package interpreter

import (
	"context"
	"fmt"

	"github.com/pulseengine/wrtgo/internal/wasm"
)

// execOther dispatches every opcode not handled inline by run's switch
// (control flow, locals, globals): numeric, memory, table, SIMD, and
// atomics instructions, routed by the Op numbering bands the decoder
// assigns (spec §4.4 "Dynamic dispatch").
func (ce *callEngine) execOther(ctx context.Context, f *frame, in wasm.Instruction) {
	switch {
	case in.Op >= 100 && in.Op < 200:
		if ce.execMemory(f, in) || ce.execTable(f, in) {
			return
		}
	case in.Op >= 200 && in.Op < 400:
		if ce.execNumeric(f, in) {
			return
		}
	case in.Op >= 400 && in.Op < 500:
		if ce.execSIMD(f, in) {
			return
		}
	case in.Op >= 500:
		if ce.execAtomics(ctx, f, in) {
			return
		}
	}
	panic(fmt.Sprintf("interpreter: unimplemented opcode %d", in.Op))
}
