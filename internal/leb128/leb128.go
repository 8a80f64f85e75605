// Package leb128 implements the LEB128 variable-length integer encoding
// the Wasm binary format uses for every integer immediate (spec §4.4).
package leb128

import (
	"bytes"
	"errors"
	"fmt"
	"io"
)

// ErrOverflow is returned when a varint uses more continuation bytes than
// its target width can hold.
var ErrOverflow = errors.New("leb128: varint overflows target width")

// EncodeUint32 encodes v as an unsigned LEB128 varint.
func EncodeUint32(v uint32) []byte { return encodeUint64(uint64(v)) }

// EncodeUint64 encodes v as an unsigned LEB128 varint.
func EncodeUint64(v uint64) []byte { return encodeUint64(v) }

func encodeUint64(v uint64) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		out = append(out, b)
		if v == 0 {
			break
		}
	}
	return out
}

// EncodeInt32 encodes v as a signed LEB128 varint.
func EncodeInt32(v int32) []byte { return encodeInt64(int64(v)) }

// EncodeInt64 encodes v as a signed LEB128 varint.
func EncodeInt64(v int64) []byte { return encodeInt64(v) }

func encodeInt64(v int64) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		signBitSet := b&0x40 != 0
		done := (v == 0 && !signBitSet) || (v == -1 && signBitSet)
		if !done {
			b |= 0x80
		}
		out = append(out, b)
		if done {
			break
		}
	}
	return out
}

// LoadUint32 decodes an unsigned LEB128 varint from b, returning the
// value, the number of bytes consumed, and an error if b is truncated, the
// varint overflows 32 bits, or more than 5 continuation bytes are used.
func LoadUint32(b []byte) (uint32, uint64, error) {
	v, n, err := loadUnsigned(b, 32)
	return uint32(v), n, err
}

// LoadUint64 decodes an unsigned LEB128 varint limited to 64 bits.
func LoadUint64(b []byte) (uint64, uint64, error) {
	return loadUnsigned(b, 64)
}

func loadUnsigned(b []byte, width uint) (uint64, uint64, error) {
	var result uint64
	var shift uint
	var n uint64
	maxBytes := (width + 6) / 7
	for {
		if n >= uint64(len(b)) {
			return 0, 0, fmt.Errorf("leb128: unexpected end of input")
		}
		byt := b[n]
		n++
		if shift >= 64 {
			return 0, 0, ErrOverflow
		}
		chunk := uint64(byt & 0x7f)
		if shift+7 > width && (chunk>>(width-shift)) != 0 {
			return 0, 0, ErrOverflow
		}
		result |= chunk << shift
		shift += 7
		if byt&0x80 == 0 {
			break
		}
		if n >= maxBytes {
			return 0, 0, ErrOverflow
		}
	}
	return result, n, nil
}

// LoadInt32 decodes a signed LEB128 varint limited to 32 bits.
func LoadInt32(b []byte) (int32, uint64, error) {
	v, n, err := loadSigned(b, 32)
	return int32(v), n, err
}

// LoadInt64 decodes a signed LEB128 varint limited to 64 bits.
func LoadInt64(b []byte) (int64, uint64, error) {
	return loadSigned(b, 64)
}

func loadSigned(b []byte, width uint) (int64, uint64, error) {
	var result int64
	var shift uint
	var n uint64
	var byt byte
	maxBytes := (width + 6) / 7
	for {
		if n >= uint64(len(b)) {
			return 0, 0, fmt.Errorf("leb128: unexpected end of input")
		}
		byt = b[n]
		n++
		result |= int64(byt&0x7f) << shift
		shift += 7
		if byt&0x80 == 0 {
			break
		}
		if n > maxBytes {
			return 0, 0, ErrOverflow
		}
	}
	// Sign-extend if the sign bit of the last chunk is set and we haven't
	// consumed the full width.
	if shift < 64 && byt&0x40 != 0 {
		result |= -1 << shift
	}
	if width < 64 {
		// Verify the value actually fits in `width` bits once sign-extended
		// to 64 bits (mirrors the teacher's overflow-on-too-many-bytes
		// behavior pinned by leb128_test.go's error cases).
		min := int64(-1) << (width - 1)
		max := (int64(1) << (width - 1)) - 1
		if result < min || result > max {
			return 0, 0, ErrOverflow
		}
	}
	return result, n, nil
}

// DecodeInt33AsInt64 reads a 33-bit signed LEB128 varint (used by the
// block-type immediate, which is either a value type or a signed 33-bit
// type-index) from r as an int64.
func DecodeInt33AsInt64(r io.Reader) (int64, uint64, error) {
	var result int64
	var shift uint
	var n uint64
	var byt [1]byte
	for {
		if _, err := io.ReadFull(r, byt[:]); err != nil {
			return 0, 0, fmt.Errorf("leb128: %w", err)
		}
		n++
		result |= int64(byt[0]&0x7f) << shift
		shift += 7
		if byt[0]&0x80 == 0 {
			if shift < 64 && byt[0]&0x40 != 0 {
				result |= -1 << shift
			}
			break
		}
		if shift >= 35 {
			return 0, 0, ErrOverflow
		}
	}
	return result, n, nil
}

// DecodeInt33AsInt64FromBytes is a convenience wrapper over
// DecodeInt33AsInt64 for callers holding a byte slice rather than a Reader.
func DecodeInt33AsInt64FromBytes(b []byte) (int64, uint64, error) {
	return DecodeInt33AsInt64(bytes.NewReader(b))
}
