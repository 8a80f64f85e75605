package capability

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestByName_ResolvesAllFiveLevels(t *testing.T) {
	cases := []struct {
		name string
		want Preset
	}{
		{"qm", QM},
		{"asil-a", ASILA},
		{"asil-b", ASILB},
		{"asil-c", ASILC},
		{"asil-d", ASILD},
	}
	for _, c := range cases {
		got, ok := ByName(c.name)
		require.True(t, ok, c.name)
		require.Equal(t, c.want, got)
	}
}

func TestByName_UnknownNameFails(t *testing.T) {
	_, ok := ByName("nope")
	require.False(t, ok)
}

func TestPresetLadder_StricterPresetsNarrowLimits(t *testing.T) {
	// spec §4.3: QM -> ASIL-D tightens every budget monotonically and
	// escalates trap policy from resumable to fail-stop.
	require.Greater(t, QM.MaxLinearMemoryPages, ASILA.MaxLinearMemoryPages)
	require.Greater(t, ASILA.MaxLinearMemoryPages, ASILB.MaxLinearMemoryPages)
	require.Greater(t, ASILB.MaxLinearMemoryPages, ASILC.MaxLinearMemoryPages)
	require.Greater(t, ASILC.MaxLinearMemoryPages, ASILD.MaxLinearMemoryPages)

	require.Equal(t, TrapResumable, QM.Trap)
	require.Equal(t, TrapFailStop, ASILD.Trap)
}

func TestHeapPolicy_ForbiddenOnlyAtHighestIntegrityLevels(t *testing.T) {
	require.Equal(t, HeapAllowed, QM.Heap)
	require.Equal(t, HeapAllowed, ASILA.Heap)
	require.Equal(t, HeapOptional, ASILB.Heap)
	require.Equal(t, HeapForbidden, ASILC.Heap)
	require.Equal(t, HeapForbidden, ASILD.Heap)
}

func TestMaxLinearMemoryBytes_DerivesFromPageCount(t *testing.T) {
	require.Equal(t, uint64(ASILD.MaxLinearMemoryPages)*BytesPerPage, ASILD.MaxLinearMemoryBytes())
}

func TestTrapPolicyString(t *testing.T) {
	require.Equal(t, "resumable", TrapResumable.String())
	require.Equal(t, "halt-on-trap", TrapHaltOnTrap.String())
	require.Equal(t, "fail-stop", TrapFailStop.String())
}
