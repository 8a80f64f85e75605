package wasm

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pulseengine/wrtgo/api"
	"github.com/pulseengine/wrtgo/internal/capability"
	"github.com/pulseengine/wrtgo/internal/safememory"
	"github.com/pulseengine/wrtgo/internal/wasmruntime"
)

func newTestStore(heapPolicy capability.HeapPolicy) *Store {
	tag := capability.NewTag()
	memCap := capability.New(capability.KindAllocateLinearMemory, tag, 16*PageSize, 16)
	tableCap := capability.New(capability.KindAllocateLinearMemory, tag, 1<<20, 16)
	provider := safememory.NewHeapProvider(memCap, tag, safememory.VerificationOff)
	return NewStore(provider, memCap, tableCap, tag, heapPolicy)
}

func TestInstantiate_RejectsMemoryUnderHeapForbidden(t *testing.T) {
	s := newTestStore(capability.HeapForbidden)
	m := &Module{
		Memories: []MemoryDef{{Type: api.MemoryType{Limits: api.Limits{Min: 1}}}},
	}

	_, _, err := s.Instantiate(m, nil)
	require.Error(t, err)
	var linkErr *wasmruntime.LinkError
	require.ErrorAs(t, err, &linkErr)
	require.Equal(t, wasmruntime.LinkLimitMismatch, linkErr.Kind)
}

func TestInstantiate_RejectsWrongImportCount(t *testing.T) {
	s := newTestStore(capability.HeapAllowed)
	m := &Module{
		Imports: []Import{{Module: "env", Name: "memory", Kind: api.ExternTypeMemory}},
	}

	_, _, err := s.Instantiate(m, nil)
	require.Error(t, err)
	var linkErr *wasmruntime.LinkError
	require.ErrorAs(t, err, &linkErr)
	require.Equal(t, wasmruntime.LinkUnknownImport, linkErr.Kind)
}

func TestInstantiate_AppliesActiveDataSegment(t *testing.T) {
	s := newTestStore(capability.HeapAllowed)
	m := &Module{
		Memories: []MemoryDef{{Type: api.MemoryType{Limits: api.Limits{Min: 1}}}},
		Data: []DataSegment{{
			Mode:   DataModeActive,
			MemIdx: 0,
			Offset: []Instruction{{Op: OpI32Const, I1: 8}},
			Init:   []byte{1, 2, 3, 4},
		}},
	}

	_, inst, err := s.Instantiate(m, nil)
	require.NoError(t, err)

	mem := inst.Memories[0]
	slice, err := mem.Provider.Slice(mem.Region, 8, 4)
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3, 4}, slice.Bytes())
}

func TestInstantiate_ActiveElementSegmentOutOfBoundsTraps(t *testing.T) {
	s := newTestStore(capability.HeapAllowed)
	m := &Module{
		Tables: []TableDef{{Type: api.TableType{ElemType: api.RefTypeFuncref, Limits: api.Limits{Min: 2}}}},
		Elements: []ElementSegment{{
			Mode:     ElementModeActive,
			TableIdx: 0,
			Offset:   []Instruction{{Op: OpI32Const, I1: 1}},
			Init: []Instruction{
				{Op: OpRefFunc, U1: 0},
				{Op: OpRefFunc, U1: 1},
			},
		}},
	}

	_, _, err := s.Instantiate(m, nil)
	require.Error(t, err)
	var trap *wasmruntime.Trap
	require.ErrorAs(t, err, &trap)
	require.Equal(t, wasmruntime.TrapUndefinedElement, trap.Kind)
}

func TestDropThenResolveIsStaleHandle(t *testing.T) {
	s := newTestStore(capability.HeapAllowed)
	m := &Module{}

	h, _, err := s.Instantiate(m, nil)
	require.NoError(t, err)
	require.NoError(t, s.Drop(h))

	_, err = s.Registry.Resolve(h)
	require.ErrorIs(t, err, wasmruntime.ErrStaleHandle)
}
