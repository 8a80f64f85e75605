package binary

import (
	"github.com/pulseengine/wrtgo/internal/wasm"
	"github.com/pulseengine/wrtgo/internal/wasmruntime"
)

const (
	magic           = "\x00asm"
	supportedVersion = 1
)

type sectionID byte

const (
	sectionCustom sectionID = iota
	sectionType
	sectionImport
	sectionFunction
	sectionTable
	sectionMemory
	sectionGlobal
	sectionExport
	sectionStart
	sectionElement
	sectionCode
	sectionData
	sectionDataCount
)

// sectionOrder gives each non-custom section's canonical position in the
// module (Wasm core spec §5.5 "Modules"). DataCount's numeric ID (12) is
// higher than Code's (10) and Data's (11), but it must appear between
// Element and Code, not after them — so ordering is checked against this
// table instead of against the raw numeric ID.
var sectionOrder = map[sectionID]int{
	sectionType:      1,
	sectionImport:    2,
	sectionFunction:  3,
	sectionTable:     4,
	sectionMemory:    5,
	sectionGlobal:    6,
	sectionExport:    7,
	sectionStart:     8,
	sectionElement:   9,
	sectionDataCount: 10,
	sectionCode:      11,
	sectionData:      12,
}

// Decode parses a complete Wasm binary module (spec §4.4's decode phases:
// header check, section walk, per-section parse, and instruction
// normalization into wasm.Instruction). The only index checked at decode
// time is each function-section type index; other indices are not
// validated here.
func Decode(data []byte) (*wasm.Module, error) {
	if len(data) < 8 || string(data[0:4]) != magic {
		return nil, wasmruntime.NewDecodeError(wasmruntime.DecodeBadMagic, "header", 0, "missing \\0asm magic")
	}
	version := uint32(data[4]) | uint32(data[5])<<8 | uint32(data[6])<<16 | uint32(data[7])<<24
	if version != supportedVersion {
		return nil, wasmruntime.NewDecodeError(wasmruntime.DecodeUnsupportedVersion, "header", 4, "only binary version 1 is supported")
	}

	d := &decoderState{module: &wasm.Module{}}
	pos := 8
	lastOrder := 0
	seen := map[sectionID]bool{}

	for pos < len(data) {
		id := sectionID(data[pos])
		pos++
		c := newCursor("section-header", data[pos:])
		size, err := c.readU32()
		if err != nil {
			return nil, err
		}
		pos += int(c.pos)
		if pos+int(size) > len(data) {
			return nil, wasmruntime.NewDecodeError(wasmruntime.DecodeSectionSizeMismatch, sectionName(id), uint32(pos), "section size exceeds module length")
		}
		body := data[pos : pos+int(size)]
		pos += int(size)

		if id != sectionCustom {
			if seen[id] {
				return nil, wasmruntime.NewDecodeError(wasmruntime.DecodeDuplicateSection, sectionName(id), uint32(pos), "duplicate section")
			}
			order := sectionOrder[id]
			if order <= lastOrder && lastOrder != 0 {
				return nil, wasmruntime.NewDecodeError(wasmruntime.DecodeInvalid, sectionName(id), uint32(pos), "sections out of order")
			}
			seen[id] = true
			lastOrder = order
		}

		if err := d.decodeSection(id, body); err != nil {
			return nil, err
		}
	}

	if len(d.module.Data) != 0 || d.dataCountSeen {
		if d.dataCountSeen && uint32(len(d.module.Data)) != d.dataCount {
			return nil, wasmruntime.NewDecodeError(wasmruntime.DecodeDataCountMismatch, sectionName(sectionData), uint32(len(data)), "data section count does not match datacount section")
		}
	}
	if len(d.codeBodies) != len(d.module.Functions) {
		return nil, wasmruntime.NewDecodeError(wasmruntime.DecodeInvalid, sectionName(sectionCode), uint32(len(data)), "code section entry count does not match function section")
	}
	for i, body := range d.codeBodies {
		fn := d.module.Functions[i]
		instrs, numLocals, err := decodeFunctionBody(body, len(d.module.Types[fn.TypeIdx].Params))
		if err != nil {
			return nil, err
		}
		fn.Body = instrs
		fn.NumLocals = numLocals
	}

	d.module.ID = wasm.ComputeID(d.typeSectionBytes, d.functionSectionBytes)
	d.module.Names = d.nameSection
	return d.module, nil
}

// decoderState accumulates cross-section bookkeeping that individual
// section decoders need (the code section's raw bodies are decoded only
// after the type/function sections have resolved each function's
// signature, so a function's parameter count is known up front for local
// indexing).
type decoderState struct {
	module *wasm.Module

	typeSectionBytes     []byte
	functionSectionBytes []byte

	codeBodies [][]byte

	dataCountSeen bool
	dataCount     uint32

	nameSection wasm.NameSection
}

func (d *decoderState) decodeSection(id sectionID, body []byte) error {
	switch id {
	case sectionCustom:
		return d.decodeCustomSection(body)
	case sectionType:
		d.typeSectionBytes = body
		return d.decodeTypeSection(body)
	case sectionImport:
		return d.decodeImportSection(body)
	case sectionFunction:
		d.functionSectionBytes = body
		return d.decodeFunctionSection(body)
	case sectionTable:
		return d.decodeTableSection(body)
	case sectionMemory:
		return d.decodeMemorySection(body)
	case sectionGlobal:
		return d.decodeGlobalSection(body)
	case sectionExport:
		return d.decodeExportSection(body)
	case sectionStart:
		return d.decodeStartSection(body)
	case sectionElement:
		return d.decodeElementSection(body)
	case sectionCode:
		return d.decodeCodeSection(body)
	case sectionData:
		return d.decodeDataSection(body)
	case sectionDataCount:
		return d.decodeDataCountSection(body)
	default:
		return nil
	}
}

func sectionName(id sectionID) string {
	names := [...]string{"custom", "type", "import", "function", "table", "memory", "global", "export", "start", "element", "code", "data", "datacount"}
	if int(id) < len(names) {
		return names[id]
	}
	return "unknown"
}
