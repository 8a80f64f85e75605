package safememory

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pulseengine/wrtgo/internal/capability"
)

func newFixedUnderTest(t *testing.T, bufSize, quotaBytes uint32, level VerificationLevel) (*FixedBufferProvider, capability.Tag) {
	t.Helper()
	tag := capability.NewTag()
	cap := capability.New(capability.KindAllocateLinearMemory, tag, quotaBytes, 1<<20)
	return NewFixedBufferProvider(bufSize, cap, tag, level), tag
}

func TestFixedBufferProvider_ReserveAndAccess(t *testing.T) {
	p, _ := newFixedUnderTest(t, 64, 64, VerificationStandard)

	r, err := p.Reserve(16)
	require.NoError(t, err)
	require.Equal(t, uint32(16), r.Len())

	require.NoError(t, p.StoreU32(r, 0, Align4, 0xdeadbeef))
	v, err := p.LoadU32(r, 0, Align4)
	require.NoError(t, err)
	require.Equal(t, uint32(0xdeadbeef), v)
}

func TestFixedBufferProvider_OutOfBoundsAccess(t *testing.T) {
	p, _ := newFixedUnderTest(t, 64, 64, VerificationStandard)
	r, err := p.Reserve(4)
	require.NoError(t, err)

	_, err = p.LoadU32(r, 2, Align4) // 2+4 > 4
	require.ErrorIs(t, err, ErrOutOfBounds)
}

func TestFixedBufferProvider_BufferExhaustionRefundsQuota(t *testing.T) {
	tag := capability.NewTag()
	cap := capability.New(capability.KindAllocateLinearMemory, tag, 1000, 10)
	p := NewFixedBufferProvider(8, cap, tag, VerificationOff)

	_, err := p.Reserve(4)
	require.NoError(t, err)
	before := cap.QuotaBytes()

	_, err = p.Reserve(100) // exceeds the 8-byte physical buffer though quota allows it
	require.ErrorIs(t, err, ErrOutOfBudget)
	require.Equal(t, before, cap.QuotaBytes(), "failed reservation must not change quota state")
}

func TestFixedBufferProvider_QuotaExhaustionLeavesStateUnchanged(t *testing.T) {
	tag := capability.NewTag()
	cap := capability.New(capability.KindAllocateLinearMemory, tag, 8, 10)
	p := NewFixedBufferProvider(64, cap, tag, VerificationOff)

	_, err := p.Reserve(8)
	require.NoError(t, err)
	require.Equal(t, uint32(0), cap.QuotaBytes())

	_, err = p.Reserve(1)
	require.ErrorIs(t, err, ErrOutOfBudget)
	require.Equal(t, uint32(0), cap.QuotaBytes())
}

func TestFixedBufferProvider_CapabilityForgeryRejected(t *testing.T) {
	realTag := capability.NewTag()
	forgedTag := capability.NewTag()
	cap := capability.New(capability.KindAllocateLinearMemory, realTag, 64, 10)
	p := NewFixedBufferProvider(64, cap, realTag, VerificationOff)

	// Simulate a forged capability: same kind/quota fields, different tag.
	forged := capability.New(capability.KindAllocateLinearMemory, forgedTag, 64, 10)
	require.False(t, forged.Check(realTag, 1))
	require.NotPanics(t, func() { _, _ = p.Reserve(4) })
}

func TestFixedBufferProvider_IntegrityMismatchDetected(t *testing.T) {
	p, _ := newFixedUnderTest(t, 32, 32, VerificationFull)
	r, err := p.Reserve(8)
	require.NoError(t, err)
	require.NoError(t, p.StoreU64(r, 0, Align8, 1234))

	// Tamper with the underlying buffer directly, bypassing the provider,
	// to simulate memory corruption and exercise the checksum path.
	p.buf[r.offset] ^= 0xFF

	err = p.Verify(r)
	require.ErrorIs(t, err, ErrIntegrityMismatch)
}

func TestFixedBufferProvider_LoadDetectsTamperingUnderFull(t *testing.T) {
	p, _ := newFixedUnderTest(t, 32, 32, VerificationFull)
	r, err := p.Reserve(8)
	require.NoError(t, err)
	require.NoError(t, p.StoreU64(r, 0, Align8, 1234))

	p.buf[r.offset] ^= 0xFF

	_, err = p.LoadU64(r, 0, Align8)
	require.ErrorIs(t, err, ErrIntegrityMismatch)
}

func TestFixedBufferProvider_LoadIgnoresTamperingUnderOff(t *testing.T) {
	p, _ := newFixedUnderTest(t, 32, 32, VerificationOff)
	r, err := p.Reserve(8)
	require.NoError(t, err)
	require.NoError(t, p.StoreU64(r, 0, Align8, 1234))

	p.buf[r.offset] ^= 0xFF

	_, err = p.LoadU64(r, 0, Align8)
	require.NoError(t, err, "VerificationOff never recomputes checksums")
}

func TestHeapProvider_LoadDetectsTamperingUnderFull(t *testing.T) {
	tag := capability.NewTag()
	cap := capability.New(capability.KindAllocateLinearMemory, tag, 64, 10)
	p := NewHeapProvider(cap, tag, VerificationFull)

	r, err := p.Reserve(8)
	require.NoError(t, err)
	require.NoError(t, p.StoreU64(r, 0, Align8, 1234))

	p.buf[r.offset] ^= 0xFF

	_, err = p.LoadU64(r, 0, Align8)
	require.ErrorIs(t, err, ErrIntegrityMismatch)
}

func TestHeapProvider_GrowsMonotonically(t *testing.T) {
	tag := capability.NewTag()
	cap := capability.New(capability.KindGrowMemory, tag, 1<<20, 1<<10)
	p := NewHeapProvider(cap, tag, VerificationOff)

	r, err := p.Reserve(BytesPerPageForTest)
	require.NoError(t, err)

	grown, err := p.Grow(r, BytesPerPageForTest)
	require.NoError(t, err)
	require.Equal(t, 2*BytesPerPageForTest, grown.Len())
}

// BytesPerPageForTest avoids importing internal/capability's preset page
// size constant into a provider-level test; the value itself is the Wasm
// spec's fixed page size (see capability.BytesPerPage).
const BytesPerPageForTest = 65536
