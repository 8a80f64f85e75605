// Package interpreter implements wrtgo's Wasm engine: a step loop over a
// bounded value stack and frame stack (spec §4.5). Nested call and
// call_indirect recurse through callEngine.call on the Go stack; the
// frame stack's capacity bounds the logical call depth, and return_call
// replaces the top frame in place. Grounded on
// tetratelabs/wazero's internal/engine/interpreter — see DESIGN.md for
// the engine/moduleEngine/callEngine split this borrows, folding
// moduleEngine's bookkeeping into wasm.ModuleInstance since wrtgo's
// decoder already produces a fully linked instruction stream (no
// separate wazeroir lowering pass is needed).
package interpreter

import (
	"context"
	"errors"
	"fmt"

	"github.com/pulseengine/wrtgo/api"
	"github.com/pulseengine/wrtgo/internal/capability"
	"github.com/pulseengine/wrtgo/internal/safememory"
	"github.com/pulseengine/wrtgo/internal/wasm"
	"github.com/pulseengine/wrtgo/internal/wasm/binary"
	"github.com/pulseengine/wrtgo/internal/wasmruntime"
)

// SuspendReason identifies why the engine is asking its SuspendHook to
// intervene before a potentially blocking instruction proceeds (spec §5:
// threads/atomics wait-notify is routed to an external collaborator
// rather than implemented as real OS blocking).
type SuspendReason uint8

const (
	SuspendReasonAtomicWait SuspendReason = iota
	SuspendReasonAtomicNotify
)

// SuspendHook lets a host intervene on atomic wait/notify instructions.
// The default (nil) hook treats every wait as an immediate timeout (0
// waiters woken) and every notify as a no-op, preserving the "sequential
// semantics" scope decision (SPEC_FULL.md Open Question 1) without
// requiring a host integration to run at all.
type SuspendHook func(ctx context.Context, reason SuspendReason, memIdx wasm.Index, addr uint32) (woken uint32, err error)

// Engine is one wrtgo runtime instance: a single EnginePreset, its
// capability-gated memory provider, and every module it has loaded or
// instantiated (spec §4.5, §6 "Engine API").
type Engine struct {
	preset capability.Preset

	provider safememory.Provider
	memCap   *capability.Capability
	tableCap *capability.Capability
	tag      capability.Tag

	store   *wasm.Store
	modules map[wasm.ModuleID]*wasm.Module

	poisoned bool
	suspend  SuspendHook
}

// NewEngine constructs an Engine parameterized by preset (spec §4.3: QM,
// ASIL-A..D, or a caller-supplied Preset).
func NewEngine(preset capability.Preset) *Engine {
	tag := capability.NewTag()
	memQuotaBytes := uint32(preset.MaxLinearMemoryBytes())
	if preset.MaxLinearMemoryBytes() > uint64(^uint32(0)) {
		memQuotaBytes = ^uint32(0)
	}
	memCap := capability.New(capability.KindGrowMemory, tag, memQuotaBytes, preset.MaxFrames*64)
	tableCap := capability.New(capability.KindAllocateLinearMemory, tag, memQuotaBytes, preset.MaxFrames*64)

	var provider safememory.Provider
	switch preset.Heap {
	case capability.HeapForbidden:
		provider = safememory.NewFixedBufferProvider(0, memCap, tag, levelFromPreset(preset))
	case capability.HeapOptional, capability.HeapAllowed:
		provider = safememory.NewHeapProvider(memCap, tag, levelFromPreset(preset))
	}

	return &Engine{
		preset:   preset,
		provider: provider,
		memCap:   memCap,
		tableCap: tableCap,
		tag:      tag,
		store:    wasm.NewStore(provider, memCap, tableCap, tag, preset.Heap),
		modules:  make(map[wasm.ModuleID]*wasm.Module),
	}
}

func levelFromPreset(p capability.Preset) safememory.VerificationLevel {
	return safememory.VerificationLevel(p.Verification)
}

// SetSuspendHook installs h as the engine's atomic wait/notify collaborator.
func (e *Engine) SetSuspendHook(h SuspendHook) { e.suspend = h }

// Load decodes data into a Module and caches it by ModuleID (spec §6
// "load"). A module already seen with the same ID is returned from cache
// without re-decoding.
func (e *Engine) Load(data []byte) (*wasm.Module, error) {
	if e.poisoned {
		return nil, wasmruntime.ErrEnginePoisoned
	}
	m, err := binary.Decode(data)
	if err != nil {
		return nil, err
	}
	if cached, ok := e.modules[m.ID]; ok {
		return cached, nil
	}
	e.modules[m.ID] = m
	return m, nil
}

// Instantiate allocates a ModuleInstance for module and runs its start
// function if declared (spec §6 "instantiate", §4.6 "Runs start if
// present").
func (e *Engine) Instantiate(module *wasm.Module, imports []wasm.ImportValue) (wasm.Handle, error) {
	if e.poisoned {
		return wasm.Handle{}, wasmruntime.ErrEnginePoisoned
	}
	h, inst, err := e.store.Instantiate(module, imports)
	if err != nil {
		return wasm.Handle{}, err
	}
	if module.HasStart {
		if _, err := e.invokeFunctionIndex(inst, h, module.Start, nil); err != nil {
			return wasm.Handle{}, err
		}
	}
	return h, nil
}

// Invoke calls the exported function named exportName on the instance
// addressed by h (spec §6 "invoke").
func (e *Engine) Invoke(h wasm.Handle, exportName string, args []api.Value) ([]api.Value, error) {
	if e.poisoned {
		return nil, wasmruntime.ErrEnginePoisoned
	}
	inst, err := e.store.Registry.Resolve(h)
	if err != nil {
		return nil, err
	}
	idx, ok := inst.Module.ExportedFunction(exportName)
	if !ok {
		return nil, wasmruntime.NewLinkError(wasmruntime.LinkUnknownImport, "", exportName, "no such exported function")
	}
	return e.invokeFunctionIndex(inst, h, idx, args)
}

// Drop releases the instance addressed by h (spec §6 "drop").
func (e *Engine) Drop(h wasm.Handle) error {
	return e.store.Drop(h)
}

// ReadMemory copies length bytes starting at offset out of the
// instance's memIdx'th linear memory (spec §6 "memory_read").
func (e *Engine) ReadMemory(h wasm.Handle, memIdx wasm.Index, offset, length uint32) ([]byte, error) {
	inst, err := e.store.Registry.Resolve(h)
	if err != nil {
		return nil, err
	}
	if int(memIdx) >= len(inst.Memories) {
		return nil, wasmruntime.NewLinkError(wasmruntime.LinkUnknownImport, "", "", "memory index out of range")
	}
	mem := inst.Memories[memIdx]
	s, err := mem.Provider.Slice(mem.Region, offset, length)
	if err != nil {
		return nil, wasmruntime.NewTrap(wasmruntime.TrapMemoryOutOfBounds, 0, 0, err.Error())
	}
	out := make([]byte, length)
	copy(out, s.Bytes())
	return out, nil
}

// WriteMemory copies data into the instance's memIdx'th linear memory
// starting at offset (spec §6 "memory_write").
func (e *Engine) WriteMemory(h wasm.Handle, memIdx wasm.Index, offset uint32, data []byte) error {
	inst, err := e.store.Registry.Resolve(h)
	if err != nil {
		return err
	}
	if int(memIdx) >= len(inst.Memories) {
		return wasmruntime.NewLinkError(wasmruntime.LinkUnknownImport, "", "", "memory index out of range")
	}
	mem := inst.Memories[memIdx]
	s, err := mem.Provider.Slice(mem.Region, offset, uint32(len(data)))
	if err != nil {
		return wasmruntime.NewTrap(wasmruntime.TrapMemoryOutOfBounds, 0, 0, err.Error())
	}
	copy(s.Bytes(), data)
	return nil
}

// checkArgTypes validates arity and per-argument value types against fn's
// declared signature before anything is pushed onto the value stack (spec
// §4.5 "invoke... checks argument arity and types against the function
// type, fails TypeMismatch"). Without this, a mismatched call silently
// corrupts the stack layout for every local/result read downstream.
func checkArgTypes(fn *wasm.FunctionInstance, args []api.Value) error {
	params := fn.Type.Params
	if len(args) != len(params) {
		return wasmruntime.NewLinkError(wasmruntime.LinkTypeMismatch, "", fn.DebugName,
			fmt.Sprintf("expected %d argument(s), got %d", len(params), len(args)))
	}
	for i, want := range params {
		if args[i].Type != want {
			return wasmruntime.NewLinkError(wasmruntime.LinkTypeMismatch, "", fn.DebugName,
				fmt.Sprintf("argument %d: expected %s, got %s", i, api.ValueTypeName(want), api.ValueTypeName(args[i].Type)))
		}
	}
	return nil
}

func (e *Engine) invokeFunctionIndex(inst *wasm.ModuleInstance, h wasm.Handle, idx wasm.Index, args []api.Value) (results []api.Value, err error) {
	if int(idx) >= len(inst.Functions) {
		return nil, wasmruntime.NewLinkError(wasmruntime.LinkUnknownImport, "", "", "function index out of range")
	}
	fn := inst.Functions[idx]
	if err := checkArgTypes(fn, args); err != nil {
		return nil, err
	}

	ce := newCallEngine(e)
	defer func() {
		if r := recover(); r != nil {
			if trap, ok := r.(error); ok {
				err = trap
			} else {
				err = fmt.Errorf("interpreter: %v", r)
			}
			// Integrity errors are fatal to the engine whenever the preset's
			// trap policy escalates past plain resumability (ASIL-B/C/D),
			// not only under fail-stop (spec §7: "Integrity errors are
			// fatal to the engine under ASIL-C/D and log-and-continue under
			// QM/ASIL-A").
			integrityFatal := errors.Is(err, wasmruntime.ErrChecksumMismatch) && e.preset.Trap != capability.TrapResumable
			if e.preset.Trap == capability.TrapFailStop || integrityFatal {
				e.poisoned = true
			}
		}
	}()

	for _, a := range args {
		if pushErr := ce.values.Push(a.Lo); pushErr != nil {
			return nil, wasmruntime.ErrCapacityExceeded
		}
		if a.Type == api.ValueTypeV128 {
			if pushErr := ce.values.Push(a.Hi); pushErr != nil {
				return nil, wasmruntime.ErrCapacityExceeded
			}
		}
	}

	return ce.call(context.Background(), fn)
}
