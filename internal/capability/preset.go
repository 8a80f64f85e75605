package capability

// Level mirrors safememory.VerificationLevel without importing that
// package (capability is a leaf package; safememory depends on
// capability, not the reverse).
type Level uint8

const (
	LevelOff Level = iota
	LevelSampling
	LevelStandard
	LevelFull
)

// TrapPolicy governs what the engine does when a trap is raised.
type TrapPolicy uint8

const (
	// TrapResumable unwinds the current invocation only; the caller may
	// invoke the engine again afterwards.
	TrapResumable TrapPolicy = iota
	// TrapHaltOnTrap discards the invocation. The engine keeps no
	// per-instance halt state: later calls are accepted unless an
	// integrity error has poisoned the engine.
	TrapHaltOnTrap
	// TrapFailStop poisons the whole engine: no further invocation on any
	// instance succeeds.
	TrapFailStop
)

func (p TrapPolicy) String() string {
	switch p {
	case TrapResumable:
		return "resumable"
	case TrapHaltOnTrap:
		return "halt-on-trap"
	case TrapFailStop:
		return "fail-stop"
	default:
		return "unknown"
	}
}

// HeapPolicy governs whether an engine preset may use a heap-backed
// safememory provider at all.
type HeapPolicy uint8

const (
	HeapForbidden HeapPolicy = iota
	HeapOptional
	HeapAllowed
)

// Preset is the parameter bundle spec §4.3 names EnginePreset. Each field
// corresponds to a column of the preset table.
type Preset struct {
	Name                string
	Verification        Level
	Heap                HeapPolicy
	MaxLinearMemoryPages uint32
	MaxFrames           uint32
	MaxValueStack       uint32
	Trap                TrapPolicy
}

// The five safety integrity levels, verbatim from spec §4.3.
var (
	QM = Preset{
		Name: "qm", Verification: LevelOff, Heap: HeapAllowed,
		MaxLinearMemoryPages: 65536, MaxFrames: 1024, MaxValueStack: 1 << 20,
		Trap: TrapResumable,
	}
	ASILA = Preset{
		Name: "asil-a", Verification: LevelSampling, Heap: HeapAllowed,
		MaxLinearMemoryPages: 4096, MaxFrames: 256, MaxValueStack: 1 << 16,
		Trap: TrapResumable,
	}
	ASILB = Preset{
		Name: "asil-b", Verification: LevelStandard, Heap: HeapOptional,
		MaxLinearMemoryPages: 1024, MaxFrames: 128, MaxValueStack: 1 << 14,
		Trap: TrapHaltOnTrap,
	}
	ASILC = Preset{
		Name: "asil-c", Verification: LevelStandard, Heap: HeapForbidden,
		MaxLinearMemoryPages: 256, MaxFrames: 64, MaxValueStack: 1 << 12,
		Trap: TrapHaltOnTrap,
	}
	ASILD = Preset{
		Name: "asil-d", Verification: LevelFull, Heap: HeapForbidden,
		MaxLinearMemoryPages: 64, MaxFrames: 32, MaxValueStack: 1 << 10,
		Trap: TrapFailStop,
	}
)

// ByName resolves a preset from its CLI/config spelling, as used by
// cmd/wrtgo's --preset flag.
func ByName(name string) (Preset, bool) {
	switch name {
	case "qm":
		return QM, true
	case "asil-a":
		return ASILA, true
	case "asil-b":
		return ASILB, true
	case "asil-c":
		return ASILC, true
	case "asil-d":
		return ASILD, true
	default:
		return Preset{}, false
	}
}

// BytesPerPage is the Wasm linear-memory allocation unit (spec GLOSSARY).
const BytesPerPage = 65536

// MaxLinearMemoryBytes is a convenience derived from MaxLinearMemoryPages.
func (p Preset) MaxLinearMemoryBytes() uint64 {
	return uint64(p.MaxLinearMemoryPages) * BytesPerPage
}
