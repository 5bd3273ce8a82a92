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

// Remaining is the per-row emission counter a Grouped (window)
// function's check/step loop drives: the sign bit records whether more
// input rows may still arrive ("not finished"), and the magnitude is
// the number of result rows still owed to the output stream. Encoding
// both in one word lets a single comparison answer "is there anything
// left to do" without a separate finished flag going stale.
type Remaining int64

const remainingPendingBit = int64(1) << 62

// NewRemaining starts a counter for a partition with exactly count rows
// buffered so far and inputPending indicating whether accumulate() may
// still be called again before finished().
func NewRemaining(inputPending bool, count int) Remaining {
	r := int64(count)
	if inputPending {
		r |= remainingPendingBit
	}
	return Remaining(r)
}

// InputPending reports whether more rows may still arrive.
func (r Remaining) InputPending() bool { return int64(r)&remainingPendingBit != 0 }

// Count is the number of result rows still owed.
func (r Remaining) Count() int { return int(int64(r) &^ remainingPendingBit) }

// Grow increments the count by n (called from accumulate/append).
func (r Remaining) Grow(n int) Remaining {
	pending := r.InputPending()
	return NewRemaining(pending, r.Count()+n)
}

// Dec decrements the count by one (called after a successful step).
func (r Remaining) Dec() Remaining {
	return NewRemaining(r.InputPending(), r.Count()-1)
}

// Finished clears the input-pending bit once finished() has been
// observed, leaving the count unchanged.
func (r Remaining) Finished() Remaining {
	return NewRemaining(false, r.Count())
}

// HasWork reports whether check() should still be asked to produce a
// row: either a row is already owed, or input may still arrive and
// grow the count.
func (r Remaining) HasWork() bool { return r.Count() > 0 || r.InputPending() }

// Lookahead implements the GROUPS/RANGE ready-check's doubling search
// width: starting at DefaultCapacity, Grow doubles it each time a
// candidate frame end search comes back inconclusive (the group/range
// boundary has not yet entered the buffer).
type Lookahead struct {
	width int
}

// NewLookahead starts a lookahead search at DefaultCapacity.
func NewLookahead() *Lookahead { return &Lookahead{width: DefaultCapacity} }

// Width is the current search width.
func (l *Lookahead) Width() int { return l.width }

// Grow doubles the search width.
func (l *Lookahead) Grow() { l.width *= 2 }

// Reset returns the lookahead to DefaultCapacity, for reuse at the
// start of the next partition.
func (l *Lookahead) Reset() { l.width = DefaultCapacity }
