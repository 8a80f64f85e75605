// Package wrtgo is the public entry point: a stackless, capability-gated
// WebAssembly runtime core. Construct a RuntimeConfig with NewRuntimeConfig,
// pick a safety preset, and Build an Engine (spec §6 "External Interfaces").
//
// Ground: teacher's root config.go/config_supported.go — the same builder
// shape, reparented from a compiler-vs-interpreter engine choice (wazero
// supports both; wrtgo is interpreter-only, spec.md has no JIT) onto a
// capability.Preset choice (SPEC_FULL.md §4.3).
package wrtgo

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/pulseengine/wrtgo/internal/capability"
)

// RuntimeConfig collects the parameters Build needs before an Engine
// can be built. Immutable once passed to Build; each With* method returns
// a new value rather than mutating the receiver, mirroring the teacher's
// config.go fluent style.
type RuntimeConfig struct {
	preset capability.Preset
	logger *logrus.Logger
}

// NewRuntimeConfig starts from the QM (least restrictive) preset, as the
// teacher's NewRuntimeConfig starts from its default-optimizing engine
// kind.
func NewRuntimeConfig() RuntimeConfig {
	return RuntimeConfig{
		preset: capability.QM,
		logger: defaultLogger(),
	}
}

// WithPreset selects one of the five named safety-integrity presets (spec
// §4.3 "EnginePreset"), replacing whatever preset the config currently
// holds.
func (c RuntimeConfig) WithPreset(p capability.Preset) RuntimeConfig {
	c.preset = p
	return c
}

// WithPresetName resolves name via capability.ByName, returning an error
// for an unrecognized spelling rather than silently falling back to QM.
func (c RuntimeConfig) WithPresetName(name string) (RuntimeConfig, error) {
	p, ok := capability.ByName(name)
	if !ok {
		return c, fmt.Errorf("wrtgo: unknown preset %q", name)
	}
	return c.WithPreset(p), nil
}

// WithLogger overrides the config's structured logger. Passing nil
// restores the default (stderr, text formatter, Info level).
func (c RuntimeConfig) WithLogger(l *logrus.Logger) RuntimeConfig {
	if l == nil {
		l = defaultLogger()
	}
	c.logger = l
	return c
}

func defaultLogger() *logrus.Logger {
	l := logrus.New()
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	l.SetLevel(logrus.InfoLevel)
	return l
}
