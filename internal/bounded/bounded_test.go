package bounded

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSeq_PushRespectsCapacity(t *testing.T) {
	s := NewSeq[int](2)
	require.NoError(t, s.Push(1))
	require.NoError(t, s.Push(2))

	err := s.Push(3)
	require.ErrorIs(t, err, ErrCapacityExceeded)
	require.Equal(t, 2, s.Len(), "failed push must not change length")
	require.Equal(t, []int{1, 2}, s.Slice())
}

func TestMap_UpdateExistingKeyNeverFailsCapacity(t *testing.T) {
	m := NewMap[string, int](1)
	require.NoError(t, m.Put("a", 1))
	require.NoError(t, m.Put("a", 2)) // update, not insert
	require.Equal(t, 1, m.Len())

	err := m.Put("b", 3)
	require.ErrorIs(t, err, ErrCapacityExceeded)
}

func TestSet_InsertionOrderPreserved(t *testing.T) {
	s := NewSet[string](3)
	require.NoError(t, s.Add("x"))
	require.NoError(t, s.Add("y"))
	require.NoError(t, s.Add("z"))
	require.Equal(t, []string{"x", "y", "z"}, s.Elements())
}

func TestStack_PushPop(t *testing.T) {
	s := NewStack[int](4)
	require.NoError(t, s.Push(10))
	require.NoError(t, s.Push(20))

	v, err := s.Pop()
	require.NoError(t, err)
	require.Equal(t, 20, v)

	_, err = s.Pop()
	require.NoError(t, err)
	_, err = s.Pop()
	require.ErrorIs(t, err, ErrEmpty)
}

func TestQueue_FIFOOrderAndCapacity(t *testing.T) {
	q := NewQueue[int](2)
	require.NoError(t, q.Enqueue(1))
	require.NoError(t, q.Enqueue(2))
	require.ErrorIs(t, q.Enqueue(3), ErrCapacityExceeded)

	v, err := q.Dequeue()
	require.NoError(t, err)
	require.Equal(t, 1, v)

	require.NoError(t, q.Enqueue(3))
	v, err = q.Dequeue()
	require.NoError(t, err)
	require.Equal(t, 2, v)
}

func TestString_RejectsInvalidUTF8AndOverCapacity(t *testing.T) {
	s := NewString(4, true)
	require.ErrorIs(t, s.Set("\xff\xfe"), ErrInvalidUTF8)
	require.ErrorIs(t, s.Set("toolong"), ErrCapacityExceeded)

	require.NoError(t, s.Set("ok"))
	require.Equal(t, "ok", s.String())
	require.NotZero(t, s.Checksum())
}
