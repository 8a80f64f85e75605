// Package wasmruntime defines the error taxonomy of spec §7: decode,
// link, runtime-trap, budget, and integrity error kinds. These are
// ordinary Go errors propagated to the caller, never panics across a
// package boundary — panics are used only inside
// internal/engine/interpreter's own step loop and are recovered at the
// invoke boundary, mirroring tetratelabs/wazero's
// internal/wasmruntime.Error / internal/engine/interpreter panic-recover
// discipline (see DESIGN.md).
package wasmruntime

import (
	"errors"
	"fmt"
)

// DecodeErrorKind enumerates spec §7's Decode error kinds.
type DecodeErrorKind string

const (
	DecodeBadMagic            DecodeErrorKind = "BadMagic"
	DecodeUnsupportedVersion  DecodeErrorKind = "UnsupportedVersion"
	DecodeSectionSizeMismatch DecodeErrorKind = "SectionSizeMismatch"
	DecodeDuplicateSection    DecodeErrorKind = "DuplicateSection"
	DecodeUnknownOpcode       DecodeErrorKind = "UnknownOpcode"
	DecodeMalformedName       DecodeErrorKind = "MalformedName"
	DecodeDataCountMismatch   DecodeErrorKind = "DataCountMismatch"
	DecodeInvalid             DecodeErrorKind = "Invalid"
)

// DecodeError is returned by internal/wasm/binary for any decode failure.
// It pinpoints the section, byte offset, and cause, per spec §4.4.
type DecodeError struct {
	Kind    DecodeErrorKind
	Section string
	Offset  uint32
	Reason  string
}

func (e *DecodeError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("decode: %s in section %q at offset %d: %s", e.Kind, e.Section, e.Offset, e.Reason)
	}
	return fmt.Sprintf("decode: %s in section %q at offset %d", e.Kind, e.Section, e.Offset)
}

// Is supports errors.Is(err, &DecodeError{Kind: k}) style matching against
// the Kind, without exposing DecodeError's other fields to the comparison.
func (e *DecodeError) Is(target error) bool {
	var d *DecodeError
	if errors.As(target, &d) {
		return d.Kind == "" || d.Kind == e.Kind
	}
	return false
}

// NewDecodeError constructs a DecodeError.
func NewDecodeError(kind DecodeErrorKind, section string, offset uint32, reason string) error {
	return &DecodeError{Kind: kind, Section: section, Offset: offset, Reason: reason}
}

// LinkErrorKind enumerates spec §7's Link error kinds.
type LinkErrorKind string

const (
	LinkUnknownImport LinkErrorKind = "UnknownImport"
	LinkTypeMismatch  LinkErrorKind = "TypeMismatch"
	LinkLimitMismatch LinkErrorKind = "LimitMismatch"
)

// LinkError is returned by Engine.Instantiate when import resolution
// fails (spec §6, §7).
type LinkError struct {
	Kind   LinkErrorKind
	Module string
	Name   string
	Reason string
}

func (e *LinkError) Error() string {
	return fmt.Sprintf("link: %s for import %q.%q: %s", e.Kind, e.Module, e.Name, e.Reason)
}

func (e *LinkError) Is(target error) bool {
	var l *LinkError
	if errors.As(target, &l) {
		return l.Kind == "" || l.Kind == e.Kind
	}
	return false
}

func NewLinkError(kind LinkErrorKind, module, name, reason string) error {
	return &LinkError{Kind: kind, Module: module, Name: name, Reason: reason}
}

// TrapKind enumerates spec §7's Runtime Trap sub-kinds.
type TrapKind string

const (
	TrapIntegerDivideByZero        TrapKind = "IntegerDivideByZero"
	TrapIntegerOverflow            TrapKind = "IntegerOverflow"
	TrapInvalidConversionToInteger TrapKind = "InvalidConversionToInteger"
	TrapMemoryOutOfBounds          TrapKind = "MemoryOutOfBounds"
	TrapIndirectCallTypeMismatch   TrapKind = "IndirectCallTypeMismatch"
	TrapUndefinedElement           TrapKind = "UndefinedElement"
	TrapUnreachable                TrapKind = "Unreachable"
	TrapStackOverflow              TrapKind = "StackOverflow"
	TrapCancelled                  TrapKind = "Cancelled"
)

// Trap is a first-class runtime error: kind, originating PC, and function
// index (spec §4.5 "Traps are first-class"). It is the value that unwinds
// an invocation; under halt-on-trap/fail-stop the engine discards the
// invocation, under resumable the caller may invoke again (spec §7).
type Trap struct {
	Kind     TrapKind
	FuncIdx  uint32
	PC       uint32
	Reason   string
}

func (t *Trap) Error() string {
	if t.Reason != "" {
		return fmt.Sprintf("trap: %s in function %d at pc %d: %s", t.Kind, t.FuncIdx, t.PC, t.Reason)
	}
	return fmt.Sprintf("trap: %s in function %d at pc %d", t.Kind, t.FuncIdx, t.PC)
}

func (t *Trap) Is(target error) bool {
	var o *Trap
	if errors.As(target, &o) {
		return o.Kind == "" || o.Kind == t.Kind
	}
	return false
}

// NewTrap constructs a Trap error.
func NewTrap(kind TrapKind, funcIdx uint32, pc uint32, reason string) error {
	return &Trap{Kind: kind, FuncIdx: funcIdx, PC: pc, Reason: reason}
}

// Budget and Integrity error kinds are simple sentinels: they carry no
// per-instance positional data beyond what the caller already has.
var (
	ErrOutOfBudget       = errors.New("budget: OutOfBudget")
	ErrCapacityExceeded  = errors.New("budget: CapacityExceeded")
	ErrChecksumMismatch  = errors.New("integrity: ChecksumMismatch")
	ErrStaleHandle       = errors.New("integrity: StaleHandle")
	ErrCapabilityForgery = errors.New("integrity: CapabilityForgery")
)

// EnginePoisoned is returned by any invocation attempted after a
// fail-stop trap has poisoned the engine (spec §7).
var ErrEnginePoisoned = errors.New("runtime: engine is poisoned after a fail-stop trap")
