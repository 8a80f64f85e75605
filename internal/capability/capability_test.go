package capability

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAuthorize_DeductsBothQuotasTogether(t *testing.T) {
	tag := NewTag()
	c := New(KindWrite, tag, 100, 5)

	require.NoError(t, c.Authorize(tag, 40))
	require.Equal(t, uint32(60), c.QuotaBytes())
	require.Equal(t, uint32(4), c.QuotaOps())
}

func TestAuthorize_WrongTagIsForged(t *testing.T) {
	c := New(KindRead, NewTag(), 100, 5)

	err := c.Authorize(NewTag(), 1)
	require.ErrorIs(t, err, ErrForged)
	require.Equal(t, uint32(100), c.QuotaBytes())
	require.Equal(t, uint32(5), c.QuotaOps())
}

func TestAuthorize_InsufficientBytesLeavesStateUnchanged(t *testing.T) {
	tag := NewTag()
	c := New(KindAllocateLinearMemory, tag, 10, 5)

	err := c.Authorize(tag, 11)
	require.ErrorIs(t, err, ErrExhausted)
	require.Equal(t, uint32(10), c.QuotaBytes())
	require.Equal(t, uint32(5), c.QuotaOps())
}

func TestAuthorize_ZeroOpsQuotaFailsEvenWithByteRoom(t *testing.T) {
	tag := NewTag()
	c := New(KindGrowMemory, tag, 1000, 0)

	err := c.Authorize(tag, 1)
	require.ErrorIs(t, err, ErrExhausted)
}

func TestRefund_RestoresQuota(t *testing.T) {
	tag := NewTag()
	c := New(KindWrite, tag, 100, 5)

	require.NoError(t, c.Authorize(tag, 40))
	c.Refund(40)
	require.Equal(t, uint32(100), c.QuotaBytes())
	require.Equal(t, uint32(5), c.QuotaOps())
}

func TestCheck_DoesNotConsumeQuota(t *testing.T) {
	tag := NewTag()
	c := New(KindRead, tag, 50, 2)

	require.True(t, c.Check(tag, 50))
	require.Equal(t, uint32(50), c.QuotaBytes())
	require.Equal(t, uint32(2), c.QuotaOps())

	require.False(t, c.Check(tag, 51))
	require.False(t, c.Check(NewTag(), 1))
}

func TestNewTag_IsNotConstant(t *testing.T) {
	// Tags are sourced from crypto/rand; collisions across a small sample
	// would indicate the entropy source is broken, not just unlucky.
	seen := make(map[Tag]bool)
	for i := 0; i < 8; i++ {
		seen[NewTag()] = true
	}
	require.Greater(t, len(seen), 1)
}

func TestKindString(t *testing.T) {
	require.Equal(t, "allocate-linear-memory", KindAllocateLinearMemory.String())
	require.Equal(t, "grow-memory", KindGrowMemory.String())
	require.Equal(t, "read", KindRead.String())
	require.Equal(t, "write", KindWrite.String())
}
