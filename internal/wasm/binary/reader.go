// Package binary decodes and encodes the Wasm binary format into/from
// internal/wasm's Module type (spec §4.4). Grounded on
// tetratelabs/wazero's internal/wasm/binary package — see DESIGN.md for
// the exact surviving sources consulted, since the pack's copy of that
// package's non-test sources did not survive retrieval.
package binary

import (
	"encoding/binary"
	"math"

	"github.com/pulseengine/wrtgo/internal/leb128"
	"github.com/pulseengine/wrtgo/internal/wasmruntime"
)

// cursor is a bounds-checked reader over a section's byte slice. Every
// read fails with a DecodeError carrying the section name and the byte
// offset at which the failure occurred, rather than panicking or
// returning a bare io.ErrUnexpectedEOF (spec §4.4, §7).
type cursor struct {
	section string
	data    []byte
	pos     int
}

func newCursor(section string, data []byte) *cursor {
	return &cursor{section: section, data: data}
}

func (c *cursor) offset() uint32 { return uint32(c.pos) }

func (c *cursor) remaining() int { return len(c.data) - c.pos }

func (c *cursor) eof() bool { return c.pos >= len(c.data) }

func (c *cursor) fail(reason string) error {
	return wasmruntime.NewDecodeError(wasmruntime.DecodeInvalid, c.section, c.offset(), reason)
}

func (c *cursor) readByte() (byte, error) {
	if c.eof() {
		return 0, c.fail("unexpected end of section")
	}
	b := c.data[c.pos]
	c.pos++
	return b, nil
}

func (c *cursor) readBytes(n uint32) ([]byte, error) {
	if n > uint32(c.remaining()) {
		return nil, c.fail("section truncated")
	}
	b := c.data[c.pos : c.pos+int(n)]
	c.pos += int(n)
	return b, nil
}

func (c *cursor) readU32() (uint32, error) {
	v, n, err := leb128.LoadUint32(c.data[c.pos:])
	if err != nil {
		return 0, c.fail(err.Error())
	}
	c.pos += int(n)
	return v, nil
}

func (c *cursor) readU64() (uint64, error) {
	v, n, err := leb128.LoadUint64(c.data[c.pos:])
	if err != nil {
		return 0, c.fail(err.Error())
	}
	c.pos += int(n)
	return v, nil
}

func (c *cursor) readI32() (int32, error) {
	v, n, err := leb128.LoadInt32(c.data[c.pos:])
	if err != nil {
		return 0, c.fail(err.Error())
	}
	c.pos += int(n)
	return v, nil
}

func (c *cursor) readI64() (int64, error) {
	v, n, err := leb128.LoadInt64(c.data[c.pos:])
	if err != nil {
		return 0, c.fail(err.Error())
	}
	c.pos += int(n)
	return v, nil
}

// readBlockType reads a block-type immediate: either a value type byte,
// the empty-block byte 0x40, or a signed 33-bit type-section index.
func (c *cursor) readBlockType() (int64, error) {
	v, n, err := leb128.DecodeInt33AsInt64FromBytes(c.data[c.pos:])
	if err != nil {
		return 0, c.fail(err.Error())
	}
	c.pos += int(n)
	return v, nil
}

func (c *cursor) readF32() (float32, error) {
	b, err := c.readBytes(4)
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(binary.LittleEndian.Uint32(b)), nil
}

func (c *cursor) readF64() (float64, error) {
	b, err := c.readBytes(8)
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(b)), nil
}

// readName reads a length-prefixed UTF-8 string (module/import/export/
// custom-section names).
func (c *cursor) readName() (string, error) {
	n, err := c.readU32()
	if err != nil {
		return "", err
	}
	b, err := c.readBytes(n)
	if err != nil {
		return "", err
	}
	if !validUTF8(b) {
		return "", wasmruntime.NewDecodeError(wasmruntime.DecodeMalformedName, c.section, c.offset(), "name is not valid UTF-8")
	}
	return string(b), nil
}

func validUTF8(b []byte) bool {
	for i := 0; i < len(b); {
		r := b[i]
		if r < 0x80 {
			i++
			continue
		}
		size := 0
		switch {
		case r&0xE0 == 0xC0:
			size = 2
		case r&0xF0 == 0xE0:
			size = 3
		case r&0xF8 == 0xF0:
			size = 4
		default:
			return false
		}
		if i+size > len(b) {
			return false
		}
		for j := 1; j < size; j++ {
			if b[i+j]&0xC0 != 0x80 {
				return false
			}
		}
		i += size
	}
	return true
}
