// Copyright 2026 The QueryCore Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package window

// WindowBuffer wraps a ValueBuffer with a {start,end} view relative to
// the current row (both inclusive, current row = 0): start is the
// offset of the oldest buffered row still reachable (<= 0), end is the
// offset of the most recently appended row (>= 0 once rows have been
// looked ahead). Values are fed in row arrival order via Begin/Append;
// Advance/AdvanceAndRemove move the current-row pointer forward as
// results are stepped out.
type WindowBuffer[T Numeric] struct {
	buf      *ValueBuffer[T]
	bufStart int // absolute row number of buf position 0
	curRow   int // absolute row number of the current row
}

// NewWindowBuffer allocates a window buffer with the given initial
// ValueBuffer capacity.
func NewWindowBuffer[T Numeric](capacity int) *WindowBuffer[T] {
	return &WindowBuffer[T]{buf: NewValueBuffer[T](capacity)}
}

// Begin resets the buffer to a new partition, with v as row 0.
func (w *WindowBuffer[T]) Begin(v T, ok bool) {
	w.buf.Init()
	w.buf.Add(v, ok)
	w.bufStart, w.curRow = 0, 0
}

// Append extends the buffered end by one row.
func (w *WindowBuffer[T]) Append(v T, ok bool) {
	w.buf.Add(v, ok)
}

// Start is the offset, relative to the current row, of the oldest
// buffered row.
func (w *WindowBuffer[T]) Start() int { return w.bufStart - w.curRow }

// End is the offset, relative to the current row, of the most
// recently appended row.
func (w *WindowBuffer[T]) End() int { return w.bufStart + w.buf.Len() - 1 - w.curRow }

// Get fetches the value at offset pos relative to the current row.
// pos must lie within [Start(), End()].
func (w *WindowBuffer[T]) Get(pos int) (T, bool) {
	return w.buf.Get(pos - w.Start())
}

// Ready reports whether the buffer holds every row needed to compute a
// frame ending at frameEnd (an offset relative to the current row).
func (w *WindowBuffer[T]) Ready(frameEnd int) bool {
	return w.End() >= frameEnd
}

// Advance moves the current-row pointer forward by one without
// discarding any buffered row.
func (w *WindowBuffer[T]) Advance() { w.curRow++ }

// AdvanceAndRemoveHead discards the oldest buffered row, then advances.
func (w *WindowBuffer[T]) AdvanceAndRemoveHead() {
	w.buf.Remove(1)
	w.bufStart++
	w.curRow++
}

// TrimStart discards buffered rows whose offset (relative to the
// current row, before advancing) is strictly less than start.
func (w *WindowBuffer[T]) TrimStart(start int) {
	n := (w.curRow + start) - w.bufStart
	if n > 0 {
		w.buf.Remove(n)
		w.bufStart += n
	}
}

// AdvanceAndRemove trims the buffer to frameStart (relative to the
// current row before advancing), then advances.
func (w *WindowBuffer[T]) AdvanceAndRemove(frameStart int) {
	w.TrimStart(frameStart)
	w.curRow++
}

// findGroupBoundary scans forward (ascending=true) or backward from
// anchor (an offset relative to the current row, already present in
// the buffer) skipping delta+1 runs of equal consecutive values, and
// returns the offset of the last position still within that run before
// the run after it (or the buffer edge, if the scan runs out of
// buffered rows — callers must have verified enough lookahead first).
func (w *WindowBuffer[T]) findGroupBoundary(anchor, delta int, ascending bool) int {
	step := 1
	if !ascending {
		step = -1
	}
	lo, hi := w.Start(), w.End()
	pos := anchor
	anchorVal, _ := w.Get(anchor)
	groupsSkipped := 0
	last := anchor
	for {
		next := pos + step
		if next < lo || next > hi {
			return last
		}
		v, _ := w.Get(next)
		if v != anchorVal {
			groupsSkipped++
			if groupsSkipped > delta {
				return last
			}
			anchorVal, _ = w.Get(next)
		}
		last = next
		pos = next
	}
}

// FindGroupEnd returns the offset of the last row belonging to the
// delta-th group of equal consecutive values after the current row
// (delta=0 means "the current row's own group").
func (w *WindowBuffer[T]) FindGroupEnd(delta int) int { return w.findGroupBoundary(0, delta, true) }

// FindGroupStart returns the offset of the first row belonging to the
// delta-th group of equal consecutive values before the current row.
func (w *WindowBuffer[T]) FindGroupStart(delta int) int { return w.findGroupBoundary(0, delta, false) }

// findRangeBoundary scans from the current row toward lo/hi, returning
// the furthest offset whose value is within delta of the current row's
// value (ascending searches increasing offsets for values <= v+delta;
// descending searches decreasing offsets for values >= v-delta).
func (w *WindowBuffer[T]) findRangeBoundary(delta int, ascending, forStart bool) int {
	v, _ := w.Get(0)
	lo, hi := w.Start(), w.End()
	last := 0
	step := 1
	if forStart {
		step = -1
	}
	for pos := 0 + step; ; pos += step {
		if pos < lo || pos > hi {
			return last
		}
		cur, _ := w.Get(pos)
		var within bool
		if ascending {
			within = cur <= v+T(delta)
		} else {
			within = cur >= v-T(delta)
		}
		if !within {
			return last
		}
		last = pos
	}
}

// FindRangeEndAsc returns the furthest forward offset whose value does
// not exceed the current row's value plus delta.
func (w *WindowBuffer[T]) FindRangeEndAsc(delta int) int { return w.findRangeBoundary(delta, true, false) }

// FindRangeEndDesc returns the furthest forward offset whose value is
// not below the current row's value minus delta.
func (w *WindowBuffer[T]) FindRangeEndDesc(delta int) int { return w.findRangeBoundary(delta, false, false) }

// FindRangeStartAsc returns the furthest backward offset whose value
// does not exceed the current row's value plus delta.
func (w *WindowBuffer[T]) FindRangeStartAsc(delta int) int { return w.findRangeBoundary(delta, true, true) }

// FindRangeStartDesc returns the furthest backward offset whose value
// is not below the current row's value minus delta.
func (w *WindowBuffer[T]) FindRangeStartDesc(delta int) int {
	return w.findRangeBoundary(delta, false, true)
}

// clampFrame intersects [frameStart,frameEnd] with the buffered
// [Start(),End()] range, returning the ValueBuffer-relative (from, n)
// pair to aggregate over.
func (w *WindowBuffer[T]) clampFrame(frameStart, frameEnd int) (from, n int) {
	lo, hi := w.Start(), w.End()
	if frameStart < lo {
		frameStart = lo
	}
	if frameEnd > hi {
		frameEnd = hi
	}
	if frameEnd < frameStart {
		return 0, 0
	}
	return frameStart - lo, frameEnd - frameStart + 1
}

func (w *WindowBuffer[T]) FrameCount(frameStart, frameEnd int) int {
	from, n := w.clampFrame(frameStart, frameEnd)
	return w.buf.Count(from, n)
}

func (w *WindowBuffer[T]) FrameSum(frameStart, frameEnd int) T {
	from, n := w.clampFrame(frameStart, frameEnd)
	return w.buf.Sum(from, n)
}

func (w *WindowBuffer[T]) FrameAverage(frameStart, frameEnd int) (T, bool) {
	from, n := w.clampFrame(frameStart, frameEnd)
	return w.buf.Average(from, n)
}

func (w *WindowBuffer[T]) FrameMin(frameStart, frameEnd int) (T, bool) {
	from, n := w.clampFrame(frameStart, frameEnd)
	return w.buf.Min(from, n)
}

func (w *WindowBuffer[T]) FrameMax(frameStart, frameEnd int) (T, bool) {
	from, n := w.clampFrame(frameStart, frameEnd)
	return w.buf.Max(from, n)
}
