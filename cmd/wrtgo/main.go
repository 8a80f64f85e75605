// Command wrtgo is a small CLI front end for the wrtgo runtime: decode and
// validate a module (compile), or decode/instantiate/invoke it end to end
// (run). Grounded on the teacher's cmd/wazero/wazero.go doMain/doCompile/
// doRun dispatch shape, reparented onto cobra/pflag per DESIGN.md (the
// teacher's WASI bindings, profiling, and socket/mount flags are all out of
// scope here — wrtgo has no host-I/O surface to wire them to).
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pulseengine/wrtgo"
	"github.com/pulseengine/wrtgo/api"
	"github.com/pulseengine/wrtgo/internal/capability"
	"github.com/pulseengine/wrtgo/internal/wasm"
	"github.com/pulseengine/wrtgo/internal/wasmruntime"
)

// version is overridable at build time via -ldflags "-X main.version=...".
var version = "dev"

// Exit codes (spec §6 "CLI"): 0 success, 1 decode error, 2 link error,
// 3 trap, 4 usage.
const (
	exitOK     = 0
	exitDecode = 1
	exitLink   = 2
	exitTrap   = 3
	exitUsage  = 4
)

func main() {
	os.Exit(doMain(os.Args[1:], os.Stdout, os.Stderr))
}

// doMain is separated from main for testability, mirroring the teacher's
// doMain(stdOut, stdErr) split.
func doMain(args []string, stdOut, stdErr io.Writer) int {
	root := newRootCommand(stdOut, stdErr)
	root.SetArgs(args)
	root.SetOut(stdOut)
	root.SetErr(stdErr)

	exitCode := exitOK
	root.SilenceUsage = true
	root.SilenceErrors = true
	if err := root.Execute(); err != nil {
		fmt.Fprintln(stdErr, "error:", err)
		exitCode = exitCodeFor(err)
	}
	return exitCode
}

func exitCodeFor(err error) int {
	var decodeErr *wasmruntime.DecodeError
	var linkErr *wasmruntime.LinkError
	var trap *wasmruntime.Trap
	switch {
	case errors.As(err, &decodeErr):
		return exitDecode
	case errors.As(err, &linkErr):
		return exitLink
	case errors.As(err, &trap):
		return exitTrap
	default:
		return exitUsage
	}
}

func newRootCommand(stdOut, stdErr io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:           "wrtgo",
		Short:         "wrtgo runs and validates WebAssembly modules under a capability-gated interpreter",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newCompileCommand(stdErr))
	root.AddCommand(newRunCommand(stdOut, stdErr))
	root.AddCommand(newVersionCommand(stdOut))
	return root
}

func newVersionCommand(stdOut io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the wrtgo version",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(stdOut, version)
			return nil
		},
	}
}

func newCompileCommand(stdErr io.Writer) *cobra.Command {
	var presetName string
	cmd := &cobra.Command{
		Use:   "compile <module.wasm>",
		Short: "Decode and validate a module without instantiating it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("reading wasm binary: %w", err)
			}
			cfg, err := wrtgo.NewRuntimeConfig().WithPresetName(presetName)
			if err != nil {
				return err
			}
			rt := cfg.Build()
			if _, err := rt.Load(data); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "ok")
			return nil
		},
	}
	cmd.Flags().StringVar(&presetName, "preset", "qm", "Safety preset: "+strings.Join(presetNames, ", "))
	return cmd
}

func newRunCommand(stdOut, stdErr io.Writer) *cobra.Command {
	var presetName string
	var invokeName string
	cmd := &cobra.Command{
		Use:   "run <module.wasm> [-- ARG...]",
		Short: "Decode, instantiate, and optionally invoke an exported function",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			wasmPath := args[0]
			invokeArgs := args[1:]

			data, err := os.ReadFile(wasmPath)
			if err != nil {
				return fmt.Errorf("reading wasm binary: %w", err)
			}

			cfg, err := wrtgo.NewRuntimeConfig().WithPresetName(presetName)
			if err != nil {
				return err
			}
			rt := cfg.Build()

			module, err := rt.Load(data)
			if err != nil {
				return err
			}
			h, err := rt.Instantiate(module, nil)
			if err != nil {
				return err
			}
			defer rt.Drop(h)

			if invokeName == "" {
				fmt.Fprintln(stdOut, "instantiated ok")
				return nil
			}

			callArgs, err := parseInvokeArgs(module, invokeName, invokeArgs)
			if err != nil {
				return err
			}
			results, err := rt.Invoke(h, invokeName, callArgs)
			if err != nil {
				return err
			}
			for _, r := range results {
				fmt.Fprintln(stdOut, formatResult(r))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&presetName, "preset", "qm", "Safety preset: "+strings.Join(presetNames, ", "))
	cmd.Flags().StringVar(&invokeName, "invoke", "", "Name of the exported function to call after instantiation")
	return cmd
}

// parseInvokeArgs resolves name's declared parameter types from module and
// converts argStrs to matching api.Values, erroring (exit usage) on a type
// or arity mismatch rather than guessing.
func parseInvokeArgs(module *wasm.Module, name string, argStrs []string) ([]api.Value, error) {
	idx, ok := module.ExportedFunction(name)
	if !ok {
		return nil, fmt.Errorf("no exported function %q", name)
	}
	ft, err := module.FunctionTypeIndex(idx)
	if err != nil {
		return nil, err
	}
	if len(ft.Params) != len(argStrs) {
		return nil, fmt.Errorf("%q takes %d argument(s), got %d", name, len(ft.Params), len(argStrs))
	}
	out := make([]api.Value, len(argStrs))
	for i, s := range argStrs {
		v, err := parseArg(ft.Params[i], s)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}

func parseArg(t api.ValueType, s string) (api.Value, error) {
	switch t {
	case api.ValueTypeI32:
		n, err := strconv.ParseUint(s, 10, 32)
		if err != nil {
			return api.Value{}, fmt.Errorf("not a valid i32: %s", s)
		}
		return api.I32(uint32(n)), nil
	case api.ValueTypeI64:
		n, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return api.Value{}, fmt.Errorf("not a valid i64: %s", s)
		}
		return api.I64(n), nil
	case api.ValueTypeF32:
		n, err := strconv.ParseFloat(s, 32)
		if err != nil {
			return api.Value{}, fmt.Errorf("not a valid f32: %s", s)
		}
		return api.F32(float32(n)), nil
	case api.ValueTypeF64:
		n, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return api.Value{}, fmt.Errorf("not a valid f64: %s", s)
		}
		return api.F64(n), nil
	default:
		return api.Value{}, fmt.Errorf("unsupported CLI argument type %s", api.ValueTypeName(t))
	}
}

func formatResult(v api.Value) string {
	switch v.Type {
	case api.ValueTypeI32:
		return strconv.FormatUint(uint64(v.AsI32()), 10)
	case api.ValueTypeI64:
		return strconv.FormatUint(v.AsI64(), 10)
	case api.ValueTypeF32:
		return strconv.FormatFloat(float64(v.AsF32()), 'g', -1, 32)
	case api.ValueTypeF64:
		return strconv.FormatFloat(v.AsF64(), 'g', -1, 64)
	default:
		return fmt.Sprintf("<%s>", api.ValueTypeName(v.Type))
	}
}

// presetNames lists the accepted --preset spellings, for help text only —
// the actual resolution goes through capability.ByName so this list can't
// drift out of sync silently; it's informative, not authoritative.
var presetNames = []string{
	capability.QM.Name,
	capability.ASILA.Name,
	capability.ASILB.Name,
	capability.ASILC.Name,
	capability.ASILD.Name,
}
