package binary

import (
	"github.com/pulseengine/wrtgo/api"
	"github.com/pulseengine/wrtgo/internal/wasm"
	"github.com/pulseengine/wrtgo/internal/wasmruntime"
)

const funcTypeTag = 0x60

func (d *decoderState) decodeTypeSection(body []byte) error {
	c := newCursor("type", body)
	count, err := c.readU32()
	if err != nil {
		return err
	}
	d.module.Types = make([]*api.FuncType, 0, count)
	for i := uint32(0); i < count; i++ {
		tag, err := c.readByte()
		if err != nil {
			return err
		}
		if tag != funcTypeTag {
			return c.fail("expected function type tag 0x60")
		}
		params, err := readValueTypeVec(c)
		if err != nil {
			return err
		}
		results, err := readValueTypeVec(c)
		if err != nil {
			return err
		}
		d.module.Types = append(d.module.Types, &api.FuncType{Params: params, Results: results})
	}
	return nil
}

func readValueTypeVec(c *cursor) ([]api.ValueType, error) {
	n, err := c.readU32()
	if err != nil {
		return nil, err
	}
	out := make([]api.ValueType, n)
	for i := range out {
		b, err := c.readByte()
		if err != nil {
			return nil, err
		}
		out[i] = b
	}
	return out, nil
}

func readLimits(c *cursor) (api.Limits, error) {
	flags, err := c.readByte()
	if err != nil {
		return api.Limits{}, err
	}
	min, err := c.readU32()
	if err != nil {
		return api.Limits{}, err
	}
	l := api.Limits{Min: min, Shared: flags&0x02 != 0}
	if flags&0x01 != 0 {
		max, err := c.readU32()
		if err != nil {
			return api.Limits{}, err
		}
		l.Max = max
		l.HasMax = true
	}
	if !l.Valid() {
		return api.Limits{}, c.fail("limits: max < min")
	}
	return l, nil
}

func (d *decoderState) decodeImportSection(body []byte) error {
	c := newCursor("import", body)
	count, err := c.readU32()
	if err != nil {
		return err
	}
	for i := uint32(0); i < count; i++ {
		mod, err := c.readName()
		if err != nil {
			return err
		}
		name, err := c.readName()
		if err != nil {
			return err
		}
		kind, err := c.readByte()
		if err != nil {
			return err
		}
		imp := wasm.Import{Module: mod, Name: name, Kind: kind}
		switch kind {
		case api.ExternTypeFunc:
			idx, err := c.readU32()
			if err != nil {
				return err
			}
			imp.TypeIdx = idx
			d.module.ImportedFunctionCount++
		case api.ExternTypeTable:
			elemType, err := c.readByte()
			if err != nil {
				return err
			}
			limits, err := readLimits(c)
			if err != nil {
				return err
			}
			imp.TableType = api.TableType{ElemType: elemType, Limits: limits}
			d.module.ImportedTableCount++
		case api.ExternTypeMemory:
			limits, err := readLimits(c)
			if err != nil {
				return err
			}
			imp.MemType = api.MemoryType{Limits: limits}
			d.module.ImportedMemoryCount++
		case api.ExternTypeGlobal:
			valType, err := c.readByte()
			if err != nil {
				return err
			}
			mutFlag, err := c.readByte()
			if err != nil {
				return err
			}
			imp.GlobalType = api.GlobalType{ValType: valType, Mutable: mutFlag != 0}
			d.module.ImportedGlobalCount++
		default:
			return c.fail("unknown import kind")
		}
		d.module.Imports = append(d.module.Imports, imp)
	}
	return nil
}

func (d *decoderState) decodeFunctionSection(body []byte) error {
	c := newCursor("function", body)
	count, err := c.readU32()
	if err != nil {
		return err
	}
	d.module.Functions = make([]*wasm.Function, 0, count)
	for i := uint32(0); i < count; i++ {
		typeIdx, err := c.readU32()
		if err != nil {
			return err
		}
		if int(typeIdx) >= len(d.module.Types) {
			return c.fail("type index out of range")
		}
		d.module.Functions = append(d.module.Functions, &wasm.Function{TypeIdx: typeIdx})
	}
	return nil
}

func (d *decoderState) decodeTableSection(body []byte) error {
	c := newCursor("table", body)
	count, err := c.readU32()
	if err != nil {
		return err
	}
	for i := uint32(0); i < count; i++ {
		elemType, err := c.readByte()
		if err != nil {
			return err
		}
		limits, err := readLimits(c)
		if err != nil {
			return err
		}
		d.module.Tables = append(d.module.Tables, wasm.TableDef{Type: api.TableType{ElemType: elemType, Limits: limits}})
	}
	return nil
}

func (d *decoderState) decodeMemorySection(body []byte) error {
	c := newCursor("memory", body)
	count, err := c.readU32()
	if err != nil {
		return err
	}
	for i := uint32(0); i < count; i++ {
		limits, err := readLimits(c)
		if err != nil {
			return err
		}
		d.module.Memories = append(d.module.Memories, wasm.MemoryDef{Type: api.MemoryType{Limits: limits}})
	}
	return nil
}

func (d *decoderState) decodeGlobalSection(body []byte) error {
	c := newCursor("global", body)
	count, err := c.readU32()
	if err != nil {
		return err
	}
	for i := uint32(0); i < count; i++ {
		valType, err := c.readByte()
		if err != nil {
			return err
		}
		mutFlag, err := c.readByte()
		if err != nil {
			return err
		}
		expr, n, err := decodeConstExpr(c.data[c.pos:], c.section, c.offset())
		if err != nil {
			return err
		}
		c.pos += n
		d.module.Globals = append(d.module.Globals, wasm.Global{
			Type: api.GlobalType{ValType: valType, Mutable: mutFlag != 0},
			Init: expr,
		})
	}
	return nil
}

func (d *decoderState) decodeExportSection(body []byte) error {
	c := newCursor("export", body)
	count, err := c.readU32()
	if err != nil {
		return err
	}
	for i := uint32(0); i < count; i++ {
		name, err := c.readName()
		if err != nil {
			return err
		}
		kind, err := c.readByte()
		if err != nil {
			return err
		}
		idx, err := c.readU32()
		if err != nil {
			return err
		}
		d.module.Exports = append(d.module.Exports, wasm.Export{Name: name, Kind: kind, Index: idx})
	}
	return nil
}

func (d *decoderState) decodeStartSection(body []byte) error {
	c := newCursor("start", body)
	idx, err := c.readU32()
	if err != nil {
		return err
	}
	d.module.Start = idx
	d.module.HasStart = true
	return nil
}

func (d *decoderState) decodeElementSection(body []byte) error {
	c := newCursor("element", body)
	count, err := c.readU32()
	if err != nil {
		return err
	}
	for i := uint32(0); i < count; i++ {
		flags, err := c.readU32()
		if err != nil {
			return err
		}
		seg := wasm.ElementSegment{Type: api.RefTypeFuncref}
		switch flags {
		case 0:
			seg.Mode = wasm.ElementModeActive
			expr, n, err := decodeConstExpr(c.data[c.pos:], c.section, c.offset())
			if err != nil {
				return err
			}
			c.pos += n
			seg.Offset = expr
			if seg.Init, err = readFuncIndexInits(c); err != nil {
				return err
			}
		case 1:
			seg.Mode = wasm.ElementModePassive
			if _, err := c.readByte(); err != nil {
				return err
			}
			if seg.Init, err = readFuncIndexInits(c); err != nil {
				return err
			}
		case 2:
			seg.Mode = wasm.ElementModeActive
			tableIdx, err := c.readU32()
			if err != nil {
				return err
			}
			seg.TableIdx = tableIdx
			expr, n, err := decodeConstExpr(c.data[c.pos:], c.section, c.offset())
			if err != nil {
				return err
			}
			c.pos += n
			seg.Offset = expr
			if _, err := c.readByte(); err != nil {
				return err
			}
			if seg.Init, err = readFuncIndexInits(c); err != nil {
				return err
			}
		case 3:
			seg.Mode = wasm.ElementModeDeclarative
			if _, err := c.readByte(); err != nil {
				return err
			}
			if seg.Init, err = readFuncIndexInits(c); err != nil {
				return err
			}
		default:
			return c.fail("unsupported element segment encoding")
		}
		d.module.Elements = append(d.module.Elements, seg)
	}
	return nil
}

func readFuncIndexInits(c *cursor) ([]wasm.Instruction, error) {
	n, err := c.readU32()
	if err != nil {
		return nil, err
	}
	out := make([]wasm.Instruction, n)
	for i := range out {
		idx, err := c.readU32()
		if err != nil {
			return nil, err
		}
		out[i] = wasm.Instruction{Op: wasm.OpRefFunc, U1: uint64(idx)}
	}
	return out, nil
}

func (d *decoderState) decodeCodeSection(body []byte) error {
	c := newCursor("code", body)
	count, err := c.readU32()
	if err != nil {
		return err
	}
	d.codeBodies = make([][]byte, 0, count)
	for i := uint32(0); i < count; i++ {
		size, err := c.readU32()
		if err != nil {
			return err
		}
		b, err := c.readBytes(size)
		if err != nil {
			return err
		}
		d.codeBodies = append(d.codeBodies, b)
	}
	return nil
}

func (d *decoderState) decodeDataSection(body []byte) error {
	c := newCursor("data", body)
	count, err := c.readU32()
	if err != nil {
		return err
	}
	for i := uint32(0); i < count; i++ {
		mode, err := c.readU32()
		if err != nil {
			return err
		}
		seg := wasm.DataSegment{}
		switch mode {
		case 0:
			seg.Mode = wasm.DataModeActive
			expr, n, err := decodeConstExpr(c.data[c.pos:], c.section, c.offset())
			if err != nil {
				return err
			}
			c.pos += n
			seg.Offset = expr
		case 1:
			seg.Mode = wasm.DataModePassive
		case 2:
			seg.Mode = wasm.DataModeActive
			memIdx, err := c.readU32()
			if err != nil {
				return err
			}
			seg.MemIdx = memIdx
			expr, n, err := decodeConstExpr(c.data[c.pos:], c.section, c.offset())
			if err != nil {
				return err
			}
			c.pos += n
			seg.Offset = expr
		default:
			return c.fail("unsupported data segment encoding")
		}
		n, err := c.readU32()
		if err != nil {
			return err
		}
		init, err := c.readBytes(n)
		if err != nil {
			return err
		}
		seg.Init = append([]byte(nil), init...)
		d.module.Data = append(d.module.Data, seg)
	}
	return nil
}

func (d *decoderState) decodeDataCountSection(body []byte) error {
	c := newCursor("datacount", body)
	n, err := c.readU32()
	if err != nil {
		return err
	}
	d.dataCountSeen = true
	d.dataCount = n
	return nil
}

func (d *decoderState) decodeCustomSection(body []byte) error {
	c := newCursor("custom", body)
	name, err := c.readName()
	if err != nil {
		return err
	}
	if name != "name" {
		d.module.CustomSections = append(d.module.CustomSections, wasm.CustomSection{
			Name: name,
			Data: append([]byte(nil), c.data[c.pos:]...),
		})
		return nil
	}
	return d.decodeNameSection(c.data[c.pos:])
}

func (d *decoderState) decodeNameSection(body []byte) error {
	c := newCursor("name", body)
	d.nameSection.Functions = map[wasm.Index]string{}
	d.nameSection.Locals = map[wasm.Index]map[wasm.Index]string{}
	d.nameSection.Labels = map[wasm.Index]map[wasm.Index]string{}

	for !c.eof() {
		subID, err := c.readByte()
		if err != nil {
			return err
		}
		size, err := c.readU32()
		if err != nil {
			return err
		}
		sub, err := c.readBytes(size)
		if err != nil {
			return err
		}
		sc := newCursor("name", sub)
		switch subID {
		case 0: // module name
			n, err := sc.readName()
			if err != nil {
				return wasmruntime.NewDecodeError(wasmruntime.DecodeMalformedName, "name", c.offset(), "malformed module name subsection")
			}
			d.nameSection.ModuleName = n
		case 1: // function names
			if err := decodeNameMap(sc, d.nameSection.Functions); err != nil {
				return err
			}
		case 2: // local names (indirect: funcIdx -> namemap)
			n, err := sc.readU32()
			if err != nil {
				return err
			}
			for i := uint32(0); i < n; i++ {
				funcIdx, err := sc.readU32()
				if err != nil {
					return err
				}
				m := map[wasm.Index]string{}
				if err := decodeNameMap(sc, m); err != nil {
					return err
				}
				d.nameSection.Locals[funcIdx] = m
			}
		case 3: // label names (wasmtools extension), indirect like locals
			n, err := sc.readU32()
			if err != nil {
				return err
			}
			for i := uint32(0); i < n; i++ {
				funcIdx, err := sc.readU32()
				if err != nil {
					return err
				}
				m := map[wasm.Index]string{}
				if err := decodeNameMap(sc, m); err != nil {
					return err
				}
				d.nameSection.Labels[funcIdx] = m
			}
		default:
			// Unknown name subsections are skipped and not kept:
			// malformed known ones still fail MalformedName, but an
			// unrecognized (future) subsection ID alone does not.
		}
	}
	return nil
}

func decodeNameMap(c *cursor, out map[wasm.Index]string) error {
	n, err := c.readU32()
	if err != nil {
		return err
	}
	for i := uint32(0); i < n; i++ {
		idx, err := c.readU32()
		if err != nil {
			return err
		}
		name, err := c.readName()
		if err != nil {
			return wasmruntime.NewDecodeError(wasmruntime.DecodeMalformedName, "name", c.offset(), "malformed name entry")
		}
		out[idx] = name
	}
	return nil
}
