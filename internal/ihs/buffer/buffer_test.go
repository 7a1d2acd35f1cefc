package buffer

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAppendAndBytes(t *testing.T) {
	b := New(32, 13)
	b.Append([]byte("hello"))
	b.Append([]byte(" world"))
	require.Equal(t, "hello world", string(b.Bytes()))
	require.Equal(t, 13, b.Offset())
	require.Equal(t, 11, b.Size())
	require.Equal(t, 24, b.Len())
}

func TestFillPadsWithValue(t *testing.T) {
	b := New(16, 0)
	b.Append([]byte{1, 2, 3})
	b.Fill(0xFE, 5)
	require.Equal(t, []byte{1, 2, 3, 0xFE, 0xFE, 0xFE, 0xFE, 0xFE}, b.Bytes())
}

func TestWriteAtHeader(t *testing.T) {
	b := New(16, 4)
	b.Append([]byte("body"))
	b.WriteAt(0, []byte{0xAA, 0xBB, 0xCC, 0xDD})
	require.Equal(t, []byte{0xAA, 0xBB, 0xCC, 0xDD, 'b', 'o', 'd', 'y'}, b.All())
}

func TestOffsetByShiftsBoundary(t *testing.T) {
	b := FromBytes([]byte{1, 2, 3, 4, 5})
	b.OffsetBy(2)
	require.Equal(t, 2, b.Offset())
	require.Equal(t, 3, b.Size())
	require.Equal(t, []byte{3, 4, 5}, b.Bytes())
}

func TestGrowBeyondInitialCapacity(t *testing.T) {
	b := New(4, 0)
	b.Append([]byte("this is longer than four bytes"))
	require.Equal(t, "this is longer than four bytes", string(b.Bytes()))
}

func TestTakeTransfersOwnership(t *testing.T) {
	b := New(8, 0)
	b.Append([]byte("abc"))
	out := b.Take()
	require.Equal(t, []byte("abc"), out)
	require.Equal(t, 0, b.Size())
	require.Equal(t, 0, b.Capacity())
}

func TestCloneIsIndependent(t *testing.T) {
	b := New(8, 0)
	b.Append([]byte("abc"))
	c := b.Clone()
	c.Append([]byte("d"))
	require.Equal(t, "abc", string(b.Bytes()))
	require.Equal(t, "abcd", string(c.Bytes()))
}
