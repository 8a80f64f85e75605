package wrtgo

import (
	"github.com/pulseengine/wrtgo/api"
	"github.com/pulseengine/wrtgo/internal/capability"
	"github.com/pulseengine/wrtgo/internal/engine/interpreter"
	"github.com/pulseengine/wrtgo/internal/wasm"
)

// Runtime is the builder's product: one capability-scoped Engine plus the
// RuntimeConfig it was built from, exposing spec §6's external interface
// under Go-idiomatic names (with_preset/load/instantiate/invoke/
// memory_read/memory_write/drop → Build/Load/Instantiate/Invoke/
// ReadMemory/WriteMemory/Drop).
type Runtime struct {
	config RuntimeConfig
	engine *interpreter.Engine
}

// Build constructs a Runtime from c (spec §6 "Engine.with_preset").
func (c RuntimeConfig) Build() *Runtime {
	e := interpreter.NewEngine(c.preset)
	c.logger.WithField("preset", c.preset.Name).Info("wrtgo: engine constructed")
	return &Runtime{config: c, engine: e}
}

// SetSuspendHook installs h as the engine's atomic wait/notify
// collaborator (spec §5).
func (r *Runtime) SetSuspendHook(h interpreter.SuspendHook) { r.engine.SetSuspendHook(h) }

// Load decodes data into a *wasm.Module (spec §6 "Engine.load").
func (r *Runtime) Load(data []byte) (*wasm.Module, error) {
	m, err := r.engine.Load(data)
	if err != nil {
		r.config.logger.WithError(err).Warn("wrtgo: load failed")
	}
	return m, err
}

// Instantiate allocates an instance of module, resolving imports in
// order (spec §6 "Engine.instantiate").
func (r *Runtime) Instantiate(module *wasm.Module, imports []wasm.ImportValue) (wasm.Handle, error) {
	h, err := r.engine.Instantiate(module, imports)
	if err != nil {
		r.config.logger.WithError(err).Warn("wrtgo: instantiate failed")
	}
	return h, err
}

// Invoke calls the exported function exportName on h with args (spec §6
// "Engine.invoke").
func (r *Runtime) Invoke(h wasm.Handle, exportName string, args []api.Value) ([]api.Value, error) {
	return r.engine.Invoke(h, exportName, args)
}

// ReadMemory copies length bytes from h's memIdx'th linear memory (spec
// §6 "Engine.memory_read").
func (r *Runtime) ReadMemory(h wasm.Handle, memIdx wasm.Index, offset, length uint32) ([]byte, error) {
	return r.engine.ReadMemory(h, memIdx, offset, length)
}

// WriteMemory writes data into h's memIdx'th linear memory (spec §6
// "Engine.memory_write").
func (r *Runtime) WriteMemory(h wasm.Handle, memIdx wasm.Index, offset uint32, data []byte) error {
	return r.engine.WriteMemory(h, memIdx, offset, data)
}

// Drop releases h (spec §6 "Engine.drop").
func (r *Runtime) Drop(h wasm.Handle) error {
	return r.engine.Drop(h)
}

// Preset reports the safety preset this Runtime was built with.
func (r *Runtime) Preset() capability.Preset { return r.config.preset }
