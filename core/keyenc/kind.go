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

// Package keyenc implements the canonical cache-key encoder: a byte
// sequence for an expression tree that is stable under structural
// equality (ignoring source positions) and distinct otherwise, used as
// the lookup key into the process-wide compiled-artifact cache in
// core/cache.
package keyenc

// NodeKind discriminates an expression node's shape in the encoded
// key. Per the "no runtime allocation" redesign, these are fixed
// constants assigned once at compile time rather than allocated from a
// monotonic counter at first use.
type NodeKind byte

const (
	KindConstant NodeKind = iota + 1
	KindParam
	KindColumn
	KindVar
	KindAssign
	KindConversion
	KindProj
	KindNot
	KindBinary
	KindRange
	KindIn
	KindCall
	KindFrame

	// kindCycle marks a reentrant node encountered while its own
	// encoding was still in progress (a genuine cycle, not legitimate
	// subexpression sharing).
	kindCycle NodeKind = 0xFF
)
