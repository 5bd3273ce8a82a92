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

// Package errkit declares the typed error kinds raised by the query
// compiler. Each kind is a gopkg.in/src-d/go-errors.v1 Kind, constructed
// once at package init and instantiated with .New(...) at the raise
// site, mirroring how the teacher corpus declares ErrGroupBy,
// ErrNotAuthorized and friends.
package errkit

import (
	"fmt"

	errors "gopkg.in/src-d/go-errors.v1"
)

var (
	// ErrParse covers unexpected tokens, malformed literals and missing
	// delimiters encountered by the parser.
	ErrParse = errors.NewKind("parse error: %s")

	// ErrUnresolvedName covers references to unknown columns, variables
	// or functions.
	ErrUnresolvedName = errors.NewKind("unresolved name: %s")

	// ErrTypeMismatch covers missing common types, non-boolean operands
	// to logical operators, and non-numeric operands to arithmetic.
	ErrTypeMismatch = errors.NewKind("type mismatch: %s")

	// ErrAggregationMisuse covers columns referenced outside their
	// aggregation group and aggregates that depend on accumulating
	// sub-expressions.
	ErrAggregationMisuse = errors.NewKind("invalid aggregation: %s")

	// ErrDuplicateBinding covers repeated projection names, repeated
	// assignments, and excluded-but-absent projections.
	ErrDuplicateBinding = errors.NewKind("duplicate binding: %s")

	// ErrArgumentCount covers too few arguments to CompiledQuery.table
	// and out-of-range explicit parameter numbers.
	ErrArgumentCount = errors.NewKind("argument count: %s")

	// ErrArithmeticOverflow is raised by the exact-arithmetic primitives
	// when a fixed-width integer operation does not fit its result type.
	ErrArithmeticOverflow = errors.NewKind("arithmetic overflow: %s")

	// ErrArithmeticDivZero is raised by division/modulo by zero on
	// fixed-width integer and decimal operands.
	ErrArithmeticDivZero = errors.NewKind("division by zero")
)

// Span is a source offset pair attached to a compile-time error.
type Span struct {
	Start, End int
}

// PosError wraps an underlying *errors.Kind instantiation with the
// source span it was raised against, so callers can report precise
// error locations per spec §6 ("Errors are surfaced with (message,
// startPos, endPos)").
type PosError struct {
	Err  error
	Span Span
}

func (e *PosError) Error() string {
	return fmt.Sprintf("%s (at %d:%d)", e.Err.Error(), e.Span.Start, e.Span.End)
}

func (e *PosError) Unwrap() error { return e.Err }

// At wraps err with the given source span. If err is nil, At returns
// nil so callers can write `return errkit.At(start, end, ErrX.New(...))`
// unconditionally.
func At(start, end int, err error) error {
	if err == nil {
		return nil
	}
	return &PosError{Err: err, Span: Span{Start: start, End: end}}
}
