package binary

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pulseengine/wrtgo/api"
	"github.com/pulseengine/wrtgo/internal/wasm"
	"github.com/pulseengine/wrtgo/internal/wasmruntime"
)

// addTwoI32Module is the same shape exercised end to end by
// internal/engine/interpreter's tests, used here to check the decoder's
// structural idempotence law (spec §8: decode(encode(decode(m))) ==
// decode(m)) rather than re-deriving it from raw bytes by hand.
func addTwoI32Module() *wasm.Module {
	return &wasm.Module{
		Types: []*wasm.FuncType{{
			Params:  []api.ValueType{api.ValueTypeI32, api.ValueTypeI32},
			Results: []api.ValueType{api.ValueTypeI32},
		}},
		Functions: []*wasm.Function{{
			TypeIdx:   0,
			NumLocals: 2,
			Body: []wasm.Instruction{
				{Op: wasm.OpLocalGet, U1: 0},
				{Op: wasm.OpLocalGet, U1: 1},
				{Op: wasm.OpI32Add},
				{Op: wasm.OpEnd},
			},
		}},
		Exports: []wasm.Export{{Name: "add", Kind: api.ExternTypeFunc, Index: 0}},
	}
}

func TestDecode_RoundTripsEncode(t *testing.T) {
	m := addTwoI32Module()
	data := Encode(m)

	got, err := Decode(data)
	require.NoError(t, err)

	require.Len(t, got.Types, 1)
	require.Equal(t, []api.ValueType{api.ValueTypeI32, api.ValueTypeI32}, got.Types[0].Params)
	require.Equal(t, []api.ValueType{api.ValueTypeI32}, got.Types[0].Results)

	require.Len(t, got.Functions, 1)
	ops := make([]wasm.Op, len(got.Functions[0].Body))
	for i, in := range got.Functions[0].Body {
		ops[i] = in.Op
	}
	require.Equal(t, []wasm.Op{wasm.OpLocalGet, wasm.OpLocalGet, wasm.OpI32Add, wasm.OpEnd}, ops)

	require.Len(t, got.Exports, 1)
	require.Equal(t, "add", got.Exports[0].Name)
}

// TestDecode_RoundTripsDataAndFunctionsTogether exercises the section
// order the encoder actually emits when both sections are present
// (Element, DataCount, Code, Data): DataCount's numeric ID is higher
// than Code's despite sitting earlier in the module, so this is the
// case that would break an ordering check based on raw numeric IDs.
func TestDecode_RoundTripsDataAndFunctionsTogether(t *testing.T) {
	m := &wasm.Module{
		Memories: []wasm.MemoryDef{{Type: api.MemoryType{Limits: api.Limits{Min: 1}}}},
		Functions: []*wasm.Function{{
			TypeIdx: 0,
			Body: []wasm.Instruction{
				{Op: wasm.OpI32Const, I1: 0},
				{Op: wasm.OpEnd},
			},
		}},
		Types: []*wasm.FuncType{{Results: []api.ValueType{api.ValueTypeI32}}},
		Data: []wasm.DataSegment{{
			Mode:   wasm.DataModeActive,
			MemIdx: 0,
			Offset: []wasm.Instruction{{Op: wasm.OpI32Const, I1: 0}, {Op: wasm.OpEnd}},
			Init:   []byte{1, 2, 3, 4},
		}},
		Exports: []wasm.Export{{Name: "get", Kind: api.ExternTypeFunc, Index: 0}},
	}
	data := Encode(m)

	got, err := Decode(data)
	require.NoError(t, err)
	require.Len(t, got.Functions, 1)
	require.Len(t, got.Data, 1)
	require.Equal(t, []byte{1, 2, 3, 4}, got.Data[0].Init)
}

func TestDecode_RejectsBadMagic(t *testing.T) {
	_, err := Decode([]byte("not a wasm file"))
	require.Error(t, err)
	var decodeErr *wasmruntime.DecodeError
	require.ErrorAs(t, err, &decodeErr)
	require.Equal(t, wasmruntime.DecodeBadMagic, decodeErr.Kind)
}

func TestDecode_RejectsUnsupportedVersion(t *testing.T) {
	data := []byte{0x00, 'a', 's', 'm', 0x02, 0x00, 0x00, 0x00}
	_, err := Decode(data)
	require.Error(t, err)
	var decodeErr *wasmruntime.DecodeError
	require.ErrorAs(t, err, &decodeErr)
	require.Equal(t, wasmruntime.DecodeUnsupportedVersion, decodeErr.Kind)
}

func TestDecode_TableGetSetOpcodesDecode(t *testing.T) {
	m := &wasm.Module{
		Types: []*wasm.FuncType{{Results: []api.ValueType{api.ValueTypeFuncref}}},
		Tables: []wasm.TableDef{{Type: api.TableType{
			ElemType: api.RefTypeFuncref,
			Limits:   api.Limits{Min: 1},
		}}},
		Functions: []*wasm.Function{{
			TypeIdx: 0,
			Body: []wasm.Instruction{
				{Op: wasm.OpI32Const, I1: 0},
				{Op: wasm.OpTableGet, U1: 0},
				{Op: wasm.OpEnd},
			},
		}},
		Exports: []wasm.Export{{Name: "get", Kind: api.ExternTypeFunc, Index: 0}},
	}
	data := Encode(m)

	got, err := Decode(data)
	require.NoError(t, err)
	require.Len(t, got.Functions, 1)
	require.Equal(t, wasm.OpTableGet, got.Functions[0].Body[1].Op)
	require.Equal(t, uint64(0), got.Functions[0].Body[1].U1)
}
