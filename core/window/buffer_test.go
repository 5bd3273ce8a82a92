package window

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValueBufferSumSkipsInvalid(t *testing.T) {
	b := NewValueBuffer[int64](4)
	b.Add(1, true)
	b.Add(0, false) // null input occupies a position but doesn't count
	b.Add(3, true)
	require.Equal(t, 2, b.Count(0, 3))
	require.Equal(t, int64(4), b.Sum(0, 3))
	avg, ok := b.Average(0, 3)
	require.True(t, ok)
	require.Equal(t, int64(2), avg)
}

func TestValueBufferGrowsPastInitialCapacity(t *testing.T) {
	b := NewValueBuffer[int64](2)
	for i := int64(0); i < 10; i++ {
		b.Add(i, true)
	}
	require.Equal(t, 10, b.Len())
	for i := 0; i < 10; i++ {
		v, ok := b.Get(i)
		require.True(t, ok)
		require.Equal(t, int64(i), v)
	}
}

func TestValueBufferRemoveAdvancesWindow(t *testing.T) {
	b := NewValueBuffer[int64](4)
	for i := int64(0); i < 4; i++ {
		b.Add(i, true)
	}
	b.Remove(2)
	require.Equal(t, 2, b.Len())
	v, _ := b.Get(0)
	require.Equal(t, int64(2), v)
}

// TestWindowBufferRowsSliding checks the ROWS-mode sliding identity:
// window(rows)[i] == compute(rows[max(0,i+a)..min(n-1,i+b)]) for a
// fixed frame [-1, 1] over a 5-row partition.
func TestWindowBufferRowsSliding(t *testing.T) {
	rows := []int64{10, 20, 30, 40, 50}
	const a, b = -1, 1

	want := make([]int64, len(rows))
	for i := range rows {
		lo, hi := i+a, i+b
		if lo < 0 {
			lo = 0
		}
		if hi > len(rows)-1 {
			hi = len(rows) - 1
		}
		var s int64
		for j := lo; j <= hi; j++ {
			s += rows[j]
		}
		want[i] = s
	}

	wb := NewWindowBuffer[int64](DefaultCapacity)
	wb.Begin(rows[0], true)
	for i := 1; i <= b && i < len(rows); i++ {
		wb.Append(rows[i], true)
	}

	got := make([]int64, len(rows))
	for i := range rows {
		for wb.Ready(b) == false && i+wb.End() < len(rows)-1 {
			next := i + wb.End() + 1
			wb.Append(rows[next], true)
		}
		frameEnd := wb.End()
		if b < frameEnd {
			frameEnd = b
		}
		got[i] = wb.FrameSum(a, frameEnd)
		if i+a >= 0 {
			wb.AdvanceAndRemove(1 + a)
		} else {
			wb.Advance()
		}
	}

	require.Equal(t, want, got)
}

func TestRemainingEncodesPendingAndCount(t *testing.T) {
	r := NewRemaining(true, 0)
	require.True(t, r.InputPending())
	require.Equal(t, 0, r.Count())
	require.True(t, r.HasWork())

	r = r.Grow(3)
	require.Equal(t, 3, r.Count())
	r = r.Dec()
	require.Equal(t, 2, r.Count())

	r = r.Finished()
	require.False(t, r.InputPending())
	require.Equal(t, 2, r.Count())
	require.True(t, r.HasWork())

	r = r.Dec().Dec()
	require.Equal(t, 0, r.Count())
	require.False(t, r.HasWork())
}

func TestLookaheadDoubles(t *testing.T) {
	l := NewLookahead()
	require.Equal(t, DefaultCapacity, l.Width())
	l.Grow()
	require.Equal(t, DefaultCapacity*2, l.Width())
	l.Reset()
	require.Equal(t, DefaultCapacity, l.Width())
}
