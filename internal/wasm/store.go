package wasm

import (
	"fmt"

	"github.com/pulseengine/wrtgo/api"
	"github.com/pulseengine/wrtgo/internal/capability"
	"github.com/pulseengine/wrtgo/internal/safememory"
	"github.com/pulseengine/wrtgo/internal/wasmruntime"
)

// ImportValue is one resolved import, supplied by the host at Instantiate
// time (spec §6 "Import resolution interface"). Exactly one of the typed
// fields is populated, selected by Kind.
type ImportValue struct {
	Kind ExternKind

	Func   *FunctionInstance
	Memory *Memory
	Table  *Table
	Global *Global
}

// Store owns every live ModuleInstance an Engine has instantiated and the
// capability/provider pair new linear memories are carved from. Ground:
// tetratelabs/wazero's internal/wasm.Store, adapted to route all memory
// and table allocation through internal/safememory and internal/capability
// instead of a bare []byte (spec §4.6).
type Store struct {
	Registry *InstanceRegistry

	provider   safememory.Provider
	memCap     *capability.Capability
	tableCap   *capability.Capability
	tag        capability.Tag
	heapPolicy capability.HeapPolicy
}

// NewStore constructs a Store whose memory/table allocations are gated by
// memCap/tableCap under tag, backed by provider.
func NewStore(provider safememory.Provider, memCap, tableCap *capability.Capability, tag capability.Tag, heapPolicy capability.HeapPolicy) *Store {
	return &Store{
		Registry:   NewInstanceRegistry(),
		provider:   provider,
		memCap:     memCap,
		tableCap:   tableCap,
		tag:        tag,
		heapPolicy: heapPolicy,
	}
}

// Instantiate allocates a ModuleInstance for module, resolving each entry
// of module.Imports against imports (by position, in declaration
// order; names are not compared), then materializes locally-declared memories, tables, and
// globals, and finally runs active element/data segment initializers
// (spec §4.6: "decodes, then constructs an Instance by allocating
// memories/tables/globals via the active capability and running
// element/data segment initializers"). The module's start function, if
// any, is reported via the returned ModuleInstance's owning Module.Start
// / HasStart — actually invoking it is the Engine's job, since that
// requires the interpreter's call machinery.
func (s *Store) Instantiate(module *Module, imports []ImportValue) (Handle, *ModuleInstance, error) {
	if s.heapPolicy == capability.HeapForbidden && len(module.Memories) > 0 {
		return Handle{}, nil, wasmruntime.NewLinkError(wasmruntime.LinkLimitMismatch, "", "", "heap memories forbidden under active preset")
	}
	if len(imports) != len(module.Imports) {
		return Handle{}, nil, wasmruntime.NewLinkError(wasmruntime.LinkUnknownImport, "", "", fmt.Sprintf("expected %d imports, got %d", len(module.Imports), len(imports)))
	}

	inst := &ModuleInstance{
		Module:  module,
		Exports: make(map[string]ExportInstance, len(module.Exports)),
	}

	for i, decl := range module.Imports {
		val := imports[i]
		if val.Kind != decl.Kind {
			return Handle{}, nil, wasmruntime.NewLinkError(wasmruntime.LinkTypeMismatch, decl.Module, decl.Name, "import kind mismatch")
		}
		switch decl.Kind {
		case api.ExternTypeFunc:
			if val.Func == nil || !val.Func.Type.Matches(module.Types[decl.TypeIdx]) {
				return Handle{}, nil, wasmruntime.NewLinkError(wasmruntime.LinkTypeMismatch, decl.Module, decl.Name, "function signature mismatch")
			}
			inst.Functions = append(inst.Functions, val.Func)
		case api.ExternTypeMemory:
			if val.Memory == nil || !limitsSatisfy(val.Memory.Type.Limits, decl.MemType.Limits) {
				return Handle{}, nil, wasmruntime.NewLinkError(wasmruntime.LinkLimitMismatch, decl.Module, decl.Name, "memory limits mismatch")
			}
			inst.Memories = append(inst.Memories, val.Memory)
		case api.ExternTypeTable:
			if val.Table == nil || !limitsSatisfy(val.Table.Type.Limits, decl.TableType.Limits) {
				return Handle{}, nil, wasmruntime.NewLinkError(wasmruntime.LinkLimitMismatch, decl.Module, decl.Name, "table limits mismatch")
			}
			inst.Tables = append(inst.Tables, val.Table)
		case api.ExternTypeGlobal:
			if val.Global == nil || val.Global.Type != decl.GlobalType {
				return Handle{}, nil, wasmruntime.NewLinkError(wasmruntime.LinkTypeMismatch, decl.Module, decl.Name, "global type mismatch")
			}
			inst.Globals = append(inst.Globals, val.Global)
		}
	}

	for localIdx, fn := range module.Functions {
		inst.Functions = append(inst.Functions, &FunctionInstance{
			Kind:    FunctionKindWasm,
			Type:    module.Types[fn.TypeIdx],
			Module:  inst,
			FuncIdx: Index(localIdx) + module.ImportedFunctionCount,
		})
	}

	for _, def := range module.Memories {
		mem, err := s.allocateMemory(def.Type)
		if err != nil {
			return Handle{}, nil, err
		}
		inst.Memories = append(inst.Memories, mem)
	}

	for _, def := range module.Tables {
		elems := make([]TableElem, def.Type.Limits.Min)
		for i := range elems {
			elems[i] = TableElem{IsNull: true}
		}
		inst.Tables = append(inst.Tables, &Table{Type: def.Type, Elems: elems})
	}

	for _, g := range module.Globals {
		val, err := evalConstExpr(g.Init, inst)
		if err != nil {
			return Handle{}, nil, err
		}
		inst.Globals = append(inst.Globals, &Global{Type: g.Type, Value: val})
	}

	inst.DataInstances = make([][]byte, len(module.Data))
	for i, d := range module.Data {
		inst.DataInstances[i] = d.Init
	}
	inst.ElementInstances = make([][]TableElem, len(module.Elements))
	for i, e := range module.Elements {
		elems, err := evalElementInit(e, inst)
		if err != nil {
			return Handle{}, nil, err
		}
		inst.ElementInstances[i] = elems
	}

	if err := applyActiveSegments(module, inst); err != nil {
		return Handle{}, nil, err
	}

	for _, e := range module.Exports {
		inst.Exports[e.Name] = ExportInstance{Kind: e.Kind, FuncIdx: e.Index, MemIdx: e.Index, TableIdx: e.Index, GlobalIdx: e.Index}
	}

	h := s.Registry.Register(inst)
	return h, inst, nil
}

// Drop releases h's instance: its memories are returned to the provider
// and the registry slot's generation is bumped so the handle can never be
// resolved again (spec §4.6).
func (s *Store) Drop(h Handle) error {
	inst, err := s.Registry.Resolve(h)
	if err != nil {
		return err
	}
	for _, mem := range inst.Memories {
		if mem.Provider != nil {
			mem.Provider.Release(mem.Region)
		}
	}
	return s.Registry.Drop(h)
}

func (s *Store) allocateMemory(t MemoryType) (*Memory, error) {
	region, err := s.provider.Reserve(t.Limits.Min * PageSize)
	if err != nil {
		return nil, wasmruntime.ErrOutOfBudget
	}
	return &Memory{
		Type:       t,
		Region:     region,
		Provider:   s.provider,
		Capability: s.memCap,
		Tag:        s.tag,
	}, nil
}

func limitsSatisfy(have, want api.Limits) bool {
	if have.Min < want.Min {
		return false
	}
	if want.HasMax {
		if !have.HasMax || have.Max > want.Max {
			return false
		}
	}
	return true
}

// evalConstExpr evaluates a Wasm constant expression: the narrow subset of
// instructions legal in global initializers and segment offsets
// (i32/i64/f32/f64.const, global.get of an imported immutable global,
// ref.null, ref.func). No interpreter loop is needed for this subset, so
// Store evaluates it directly rather than depending on
// internal/engine/interpreter (which would create an import cycle, since
// the interpreter depends on wasm.Module).
func evalConstExpr(expr []Instruction, inst *ModuleInstance) (GlobalValue, error) {
	if len(expr) != 1 {
		return GlobalValue{}, wasmruntime.NewDecodeError(wasmruntime.DecodeInvalid, "const-expr", 0, "expected exactly one instruction")
	}
	in := expr[0]
	switch in.Op {
	case OpI32Const, OpI64Const:
		return GlobalValue{Lo: uint64(in.I1)}, nil
	case OpF32Const, OpF64Const:
		return GlobalValue{Lo: in.U1}, nil
	case OpGlobalGet:
		idx := Index(in.U1)
		if int(idx) >= len(inst.Globals) {
			return GlobalValue{}, wasmruntime.NewDecodeError(wasmruntime.DecodeInvalid, "const-expr", 0, "global index out of range")
		}
		return inst.Globals[idx].Value, nil
	case OpRefNull:
		return GlobalValue{IsNull: true}, nil
	case OpRefFunc:
		return GlobalValue{Lo: in.U1}, nil
	default:
		return GlobalValue{}, wasmruntime.NewDecodeError(wasmruntime.DecodeInvalid, "const-expr", 0, "unsupported constant instruction")
	}
}

// evalElementInit materializes one element segment's TableElem slice by
// evaluating each per-element constant expression (func index, ref.null,
// or ref.func).
func evalElementInit(e ElementSegment, inst *ModuleInstance) ([]TableElem, error) {
	elems := make([]TableElem, 0, len(e.Init))
	for _, init := range e.Init {
		v, err := evalConstExpr([]Instruction{init}, inst)
		if err != nil {
			return nil, err
		}
		elems = append(elems, TableElem{IsNull: v.IsNull, FuncIdx: Index(v.Lo)})
	}
	return elems, nil
}

// applyActiveSegments copies active element segments into their target
// table and active data segments into their target memory, at the offset
// their (already-evaluated) offset expression yields.
func applyActiveSegments(module *Module, inst *ModuleInstance) error {
	for i, e := range module.Elements {
		if e.Mode != ElementModeActive {
			continue
		}
		off, err := evalConstExpr(e.Offset, inst)
		if err != nil {
			return err
		}
		table := inst.Tables[e.TableIdx]
		offset := uint32(off.Lo)
		elems := inst.ElementInstances[i]
		if int(offset)+len(elems) > len(table.Elems) {
			return wasmruntime.NewTrap(wasmruntime.TrapUndefinedElement, 0, 0, "active element segment out of table bounds")
		}
		copy(table.Elems[offset:], elems)
	}

	for i, d := range module.Data {
		if d.Mode != DataModeActive {
			continue
		}
		off, err := evalConstExpr(d.Offset, inst)
		if err != nil {
			return err
		}
		mem := inst.Memories[d.MemIdx]
		offset := uint32(off.Lo)
		data := inst.DataInstances[i]
		slice, err := mem.Provider.Slice(mem.Region, offset, uint32(len(data)))
		if err != nil {
			return wasmruntime.NewTrap(wasmruntime.TrapMemoryOutOfBounds, 0, 0, "active data segment out of memory bounds")
		}
		copy(slice.Bytes(), data)
	}
	return nil
}
