package leb128

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeInt32(t *testing.T) {
	for _, v := range []int32{-165675008, -624485, -16256, -4, -1, 0, 1, 4, 16256, 624485, 165675008, math.MaxInt32, math.MinInt32} {
		enc := EncodeInt32(v)
		decoded, n, err := LoadInt32(enc)
		require.NoError(t, err)
		require.Equal(t, v, decoded)
		require.Equal(t, uint64(len(enc)), n)
	}
}

func TestEncodeDecodeInt64(t *testing.T) {
	for _, v := range []int64{-165675008, -624485, -1, 0, 1, 624485, math.MaxInt32, math.MaxInt64, math.MinInt64} {
		enc := EncodeInt64(v)
		decoded, n, err := LoadInt64(enc)
		require.NoError(t, err)
		require.Equal(t, v, decoded)
		require.Equal(t, uint64(len(enc)), n)
	}
}

func TestEncodeDecodeUint32(t *testing.T) {
	for _, v := range []uint32{0, 1, 4, 16256, 624485, 165675008, math.MaxUint32} {
		enc := EncodeUint32(v)
		decoded, n, err := LoadUint32(enc)
		require.NoError(t, err)
		require.Equal(t, v, decoded)
		require.Equal(t, uint64(len(enc)), n)
	}
}

func TestLoadUint32_TooManyBytesOverflows(t *testing.T) {
	_, _, err := LoadUint32([]byte{0x83, 0x80, 0x80, 0x80, 0x80, 0x00})
	require.ErrorIs(t, err, ErrOverflow)
}

func TestLoadUint32_TruncatedInputErrors(t *testing.T) {
	_, _, err := LoadUint32([]byte{0x80, 0x80})
	require.Error(t, err)
}

func TestDecodeInt33AsInt64(t *testing.T) {
	for _, c := range []struct {
		bytes []byte
		exp   int64
	}{
		{bytes: []byte{0x00}, exp: 0},
		{bytes: []byte{0x7f}, exp: -1},
		{bytes: []byte{0x40}, exp: -64},
		{bytes: []byte{0x81, 0x01}, exp: 129},
	} {
		actual, n, err := DecodeInt33AsInt64FromBytes(c.bytes)
		require.NoError(t, err)
		require.Equal(t, c.exp, actual)
		require.Equal(t, uint64(len(c.bytes)), n)
	}
}
