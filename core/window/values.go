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

// Package window implements the sliding-buffer machinery behind
// grouped (window) function evaluation: a growable circular buffer of
// scalar values (ValueBuffer), a current-row-relative view over it
// (WindowBuffer), and the ready-check/step bookkeeping a per-row
// init/begin/accumulate/finished/check/step state machine drives it
// with.
package window

import "golang.org/x/exp/constraints"

// Numeric is the scalar lane a ValueBuffer can be specialized over:
// the long/double/bignum element types a window frame aggregates.
type Numeric interface {
	constraints.Integer | constraints.Float
}

// DefaultCapacity is the initial backing size of a new ValueBuffer, and
// the starting lookahead width the GROUPS/RANGE ready-check doubles
// from.
const DefaultCapacity = 16

// ValueBuffer is a growable circular buffer of scalar values addressed
// by position relative to its own logical start (position 0 is the
// oldest retained value). Values carry a validity flag so a skipped
// null input occupies a position without breaking index alignment
// between the buffer and the row stream it was filled from.
type ValueBuffer[T Numeric] struct {
	data  []T
	valid []bool
	start int
	count int
}

// NewValueBuffer allocates a buffer with the given initial capacity
// (DefaultCapacity if non-positive).
func NewValueBuffer[T Numeric](capacity int) *ValueBuffer[T] {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &ValueBuffer[T]{data: make([]T, capacity), valid: make([]bool, capacity)}
}

// Init resets the buffer to empty, keeping its backing storage.
func (b *ValueBuffer[T]) Init() { b.start, b.count = 0, 0 }

// Len is the number of positions currently held.
func (b *ValueBuffer[T]) Len() int { return b.count }

func (b *ValueBuffer[T]) grow() {
	newCap := len(b.data) * 2
	nd := make([]T, newCap)
	nv := make([]bool, newCap)
	for i := 0; i < b.count; i++ {
		idx := (b.start + i) % len(b.data)
		nd[i] = b.data[idx]
		nv[i] = b.valid[idx]
	}
	b.data, b.valid, b.start = nd, nv, 0
}

// Add appends a value (ok=false marks a skipped/null input) at the
// position immediately past the current end.
func (b *ValueBuffer[T]) Add(v T, ok bool) {
	if b.count == len(b.data) {
		b.grow()
	}
	idx := (b.start + b.count) % len(b.data)
	b.data[idx] = v
	b.valid[idx] = ok
	b.count++
}

// Remove discards the first n positions (clamped to Len()).
func (b *ValueBuffer[T]) Remove(n int) {
	if n > b.count {
		n = b.count
	}
	if n <= 0 {
		return
	}
	b.start = (b.start + n) % len(b.data)
	b.count -= n
}

// Get returns the value at position i and whether it is valid (a
// present, non-null input). i must be within [0, Len()).
func (b *ValueBuffer[T]) Get(i int) (T, bool) {
	idx := (b.start + i) % len(b.data)
	return b.data[idx], b.valid[idx]
}

// Count returns the number of valid positions in [from, from+n).
func (b *ValueBuffer[T]) Count(from, n int) int {
	c := 0
	for i := 0; i < n; i++ {
		if _, ok := b.Get(from + i); ok {
			c++
		}
	}
	return c
}

// Sum returns the sum of valid positions in [from, from+n).
func (b *ValueBuffer[T]) Sum(from, n int) T {
	var s T
	for i := 0; i < n; i++ {
		if v, ok := b.Get(from + i); ok {
			s += v
		}
	}
	return s
}

// Average returns the mean of valid positions in [from, from+n), or
// ok=false if none are valid.
func (b *ValueBuffer[T]) Average(from, n int) (T, bool) {
	c := b.Count(from, n)
	if c == 0 {
		var zero T
		return zero, false
	}
	return b.Sum(from, n) / T(c), true
}

// Min/Max return the smallest/largest valid value in [from, from+n),
// or ok=false if none are valid.
func (b *ValueBuffer[T]) Min(from, n int) (T, bool) {
	return b.extreme(from, n, func(a, best T) bool { return a < best })
}

func (b *ValueBuffer[T]) Max(from, n int) (T, bool) {
	return b.extreme(from, n, func(a, best T) bool { return a > best })
}

func (b *ValueBuffer[T]) extreme(from, n int, better func(a, best T) bool) (T, bool) {
	var best T
	has := false
	for i := 0; i < n; i++ {
		v, ok := b.Get(from + i)
		if !ok {
			continue
		}
		if !has || better(v, best) {
			best, has = v, true
		}
	}
	return best, has
}
