package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func runMain(t *testing.T, args []string) (exitCode int, stdOut, stdErr string) {
	t.Helper()
	var out, errOut bytes.Buffer
	exitCode = doMain(args, &out, &errOut)
	return exitCode, out.String(), errOut.String()
}

func TestVersion(t *testing.T) {
	exitCode, stdOut, _ := runMain(t, []string{"version"})
	require.Equal(t, exitOK, exitCode)
	require.Contains(t, stdOut, version)
}

func TestRun_MissingFile(t *testing.T) {
	exitCode, _, stdErr := runMain(t, []string{"run", filepath.Join(t.TempDir(), "nope.wasm")})
	require.Equal(t, exitUsage, exitCode)
	require.Contains(t, stdErr, "error:")
}

func TestRun_BadMagicIsDecodeError(t *testing.T) {
	wasmPath := filepath.Join(t.TempDir(), "bad.wasm")
	require.NoError(t, os.WriteFile(wasmPath, []byte("not wasm"), 0o644))

	exitCode, _, stdErr := runMain(t, []string{"run", wasmPath})
	require.Equal(t, exitDecode, exitCode)
	require.Contains(t, stdErr, "error:")
}

func TestCompile_BadMagicIsDecodeError(t *testing.T) {
	wasmPath := filepath.Join(t.TempDir(), "bad.wasm")
	require.NoError(t, os.WriteFile(wasmPath, []byte("not wasm"), 0o644))

	exitCode, _, _ := runMain(t, []string{"compile", wasmPath})
	require.Equal(t, exitDecode, exitCode)
}

func TestRun_UnknownPreset(t *testing.T) {
	wasmPath := filepath.Join(t.TempDir(), "bad.wasm")
	require.NoError(t, os.WriteFile(wasmPath, []byte("not wasm"), 0o644))

	exitCode, _, stdErr := runMain(t, []string{"run", "--preset", "nope", wasmPath})
	require.Equal(t, exitUsage, exitCode)
	require.Contains(t, stdErr, "unknown preset")
}

func TestUnknownCommand(t *testing.T) {
	exitCode, _, _ := runMain(t, []string{"bogus"})
	require.Equal(t, exitUsage, exitCode)
}
