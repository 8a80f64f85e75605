package wrtgo

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pulseengine/wrtgo/api"
	"github.com/pulseengine/wrtgo/internal/capability"
	"github.com/pulseengine/wrtgo/internal/wasm"
)

func addOneModule() *wasm.Module {
	return &wasm.Module{
		Types: []*wasm.FuncType{{
			Params:  []api.ValueType{api.ValueTypeI32},
			Results: []api.ValueType{api.ValueTypeI32},
		}},
		Functions: []*wasm.Function{{
			TypeIdx:   0,
			NumLocals: 1,
			Body: []wasm.Instruction{
				{Op: wasm.OpLocalGet, U1: 0},
				{Op: wasm.OpI32Const, I1: 1},
				{Op: wasm.OpI32Add},
				{Op: wasm.OpEnd},
			},
		}},
		Exports: []wasm.Export{{Name: "add_one", Kind: api.ExternTypeFunc, Index: 0}},
	}
}

func TestNewRuntimeConfig_DefaultsToQM(t *testing.T) {
	cfg := NewRuntimeConfig()
	rt := cfg.Build()
	require.Equal(t, capability.QM, rt.Preset())
}

func TestWithPreset_OverridesDefault(t *testing.T) {
	cfg := NewRuntimeConfig().WithPreset(capability.ASILD)
	rt := cfg.Build()
	require.Equal(t, capability.ASILD, rt.Preset())
}

func TestWithPresetName_UnknownNameErrors(t *testing.T) {
	_, err := NewRuntimeConfig().WithPresetName("not-a-preset")
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown preset")
}

func TestWithPresetName_ResolvesKnownSpelling(t *testing.T) {
	cfg, err := NewRuntimeConfig().WithPresetName("asil-c")
	require.NoError(t, err)
	rt := cfg.Build()
	require.Equal(t, capability.ASILC, rt.Preset())
}

func TestWithLogger_NilRestoresDefault(t *testing.T) {
	cfg := NewRuntimeConfig().WithLogger(nil)
	// Build must not panic with a nil logger field; exercising Build is
	// the only externally visible way to check this held.
	require.NotPanics(t, func() { cfg.Build() })
}

func TestRuntime_InstantiateAndInvoke(t *testing.T) {
	rt := NewRuntimeConfig().Build()
	m := addOneModule()

	h, err := rt.Instantiate(m, nil)
	require.NoError(t, err)
	defer rt.Drop(h)

	results, err := rt.Invoke(h, "add_one", []api.Value{api.I32(41)})
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, uint32(42), results[0].AsI32())
}

func TestRuntime_DropThenInvokeIsStaleHandle(t *testing.T) {
	rt := NewRuntimeConfig().Build()
	m := addOneModule()

	h, err := rt.Instantiate(m, nil)
	require.NoError(t, err)
	require.NoError(t, rt.Drop(h))

	_, err = rt.Invoke(h, "add_one", []api.Value{api.I32(1)})
	require.Error(t, err)
}
