package wasmruntime

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodeError_IsMatchesOnKindOnly(t *testing.T) {
	err := NewDecodeError(DecodeBadMagic, "type", 12, "bad header")

	require.ErrorIs(t, err, NewDecodeError(DecodeBadMagic, "", 0, ""))
	require.False(t, errors.Is(err, NewDecodeError(DecodeUnknownOpcode, "", 0, "")))
}

func TestDecodeError_AsExposesFields(t *testing.T) {
	err := NewDecodeError(DecodeSectionSizeMismatch, "code", 99, "size overrun")

	var de *DecodeError
	require.ErrorAs(t, err, &de)
	require.Equal(t, DecodeSectionSizeMismatch, de.Kind)
	require.Equal(t, "code", de.Section)
	require.Equal(t, uint32(99), de.Offset)
	require.Contains(t, err.Error(), "size overrun")
}

func TestDecodeError_WrappedStillMatches(t *testing.T) {
	err := fmt.Errorf("loading module: %w", NewDecodeError(DecodeBadMagic, "", 0, ""))
	require.ErrorIs(t, err, NewDecodeError(DecodeBadMagic, "", 0, ""))
}

func TestLinkError_IsMatchesOnKindOnly(t *testing.T) {
	err := NewLinkError(LinkUnknownImport, "env", "memory", "not provided")

	require.ErrorIs(t, err, NewLinkError(LinkUnknownImport, "", "", ""))
	require.False(t, errors.Is(err, NewLinkError(LinkTypeMismatch, "", "", "")))
}

func TestLinkError_AsExposesFields(t *testing.T) {
	err := NewLinkError(LinkLimitMismatch, "env", "table", "min too small")

	var le *LinkError
	require.ErrorAs(t, err, &le)
	require.Equal(t, "env", le.Module)
	require.Equal(t, "table", le.Name)
}

func TestTrap_IsMatchesOnKindOnly(t *testing.T) {
	err := NewTrap(TrapIntegerDivideByZero, 3, 17, "div by zero")

	require.ErrorIs(t, err, NewTrap(TrapIntegerDivideByZero, 0, 0, ""))
	require.False(t, errors.Is(err, NewTrap(TrapUnreachable, 0, 0, "")))
}

func TestTrap_AsExposesPositionalFields(t *testing.T) {
	err := NewTrap(TrapMemoryOutOfBounds, 2, 55, "")

	var tr *Trap
	require.ErrorAs(t, err, &tr)
	require.Equal(t, uint32(2), tr.FuncIdx)
	require.Equal(t, uint32(55), tr.PC)
}

func TestSentinelErrors_AreDistinct(t *testing.T) {
	sentinels := []error{
		ErrOutOfBudget, ErrCapacityExceeded, ErrChecksumMismatch,
		ErrStaleHandle, ErrCapabilityForgery, ErrEnginePoisoned,
	}
	for i, a := range sentinels {
		for j, b := range sentinels {
			if i == j {
				continue
			}
			require.False(t, errors.Is(a, b), "%v should not match %v", a, b)
		}
	}
}

func TestSentinelErrors_WrapAndUnwrap(t *testing.T) {
	err := fmt.Errorf("growing memory: %w", ErrOutOfBudget)
	require.ErrorIs(t, err, ErrOutOfBudget)
}
