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

package expression

import (
	"github.com/tupledb/querycore/core/errkit"
	"github.com/tupledb/querycore/core/types"
)

// RangeExpr is a {start, end} range-valued expression; either bound may
// itself evaluate to +-infinity of the element type to represent
// openness (see types.Range).
type RangeExpr struct {
	Start, End     Expr // may be nil for an open bound
	Element        types.Type
	RelativeToCurr bool // true when start/end are relative to "current row" (window frame use)
}

func NewRange(start, end Expr, element types.Type, relativeToCurrent bool) *RangeExpr {
	return &RangeExpr{Start: start, End: end, Element: element, RelativeToCurr: relativeToCurrent}
}

func (e *RangeExpr) Type() types.Type { return types.NewRangeType(e.Element) }

func (e *RangeExpr) AsType(target types.Type) (Expr, error) {
	if types.Equal(e.Type(), target) {
		return e, nil
	}
	return nil, errkit.ErrTypeMismatch.New("ranges cannot be converted")
}

func (e *RangeExpr) MaxArgument() int { return maxArgumentOfAll(e.Start, e.End) }
func (e *RangeExpr) IsPureFunction() bool {
	return purityOfAll(e.Start, e.End)
}
func (e *RangeExpr) GatherEvalColumns(consume func(*ColumnExpr)) {
	gatherAll(consume, e.Start, e.End)
}
func (e *RangeExpr) IsNullable() bool         { return false }
func (e *RangeExpr) IsConstant() bool         { return isConstOrNil(e.Start) && isConstOrNil(e.End) }
func (e *RangeExpr) IsNull() bool             { return false }
func (e *RangeExpr) IsZero() bool             { return false }
func (e *RangeExpr) IsOne() bool              { return false }
func (e *RangeExpr) IsRangeWithCurrent() bool { return e.RelativeToCurr }
func (e *RangeExpr) IsGrouping() bool         { return anyGrouping(e.Start, e.End) }
func (e *RangeExpr) IsAccumulating() bool     { return anyAccumulating(e.Start, e.End) }
func (e *RangeExpr) IsAggregating() bool      { return anyAggregating(e.Start, e.End) }

func isConstOrNil(e Expr) bool { return e == nil || e.IsConstant() }

func (e *RangeExpr) Replace(repl map[Expr]Expr) Expr {
	if r, ok := repl[e]; ok {
		return r
	}
	var ns, ne Expr = e.Start, e.End
	if e.Start != nil {
		ns = e.Start.Replace(repl)
	}
	if e.End != nil {
		ne = e.End.Replace(repl)
	}
	if ns == e.Start && ne == e.End {
		return e
	}
	return NewRange(ns, ne, e.Element, e.RelativeToCurr)
}

func (e *RangeExpr) Eval(ctx *EvalContext) (interface{}, error) {
	rng := types.Range{}
	if e.Start != nil {
		v, err := e.Start.Eval(ctx)
		if err != nil {
			return nil, err
		}
		rng.Start = v
	} else {
		rng.StartOpen = true
	}
	if e.End != nil {
		v, err := e.End.Eval(ctx)
		if err != nil {
			return nil, err
		}
		rng.End = v
	} else {
		rng.EndOpen = true
	}
	return rng, nil
}

func (e *RangeExpr) String() string {
	start, end := "", ""
	if e.Start != nil {
		start = e.Start.String()
	}
	if e.End != nil {
		end = e.End.String()
	}
	return start + ".." + end
}

// InExpr tests membership of Value within Range.
type InExpr struct {
	Value Expr
	Range *RangeExpr
}

func NewIn(value Expr, rng *RangeExpr) *InExpr { return &InExpr{Value: value, Range: rng} }

// Type is always boolean: membership is a predicate over Value, not a
// value sharing Value's type. (Nullable when Value is, since a null
// tested value makes membership unknown rather than false.)
func (e *InExpr) Type() types.Type {
	if e.Value.IsNullable() {
		return types.Boolean.Nullable()
	}
	return types.Boolean
}

func (e *InExpr) AsType(target types.Type) (Expr, error) {
	if types.Equal(e.Type(), target) {
		return e, nil
	}
	return NewConversion(e, target), nil
}

func (e *InExpr) MaxArgument() int       { return maxArgumentOfAll(e.Value, e.Range) }
func (e *InExpr) IsPureFunction() bool   { return purityOfAll(e.Value, e.Range) }
func (e *InExpr) GatherEvalColumns(consume func(*ColumnExpr)) {
	gatherAll(consume, e.Value, e.Range)
}
func (e *InExpr) IsNullable() bool         { return e.Value.IsNullable() }
func (e *InExpr) IsConstant() bool         { return e.Value.IsConstant() && e.Range.IsConstant() }
func (e *InExpr) IsNull() bool             { return false }
func (e *InExpr) IsZero() bool             { return false }
func (e *InExpr) IsOne() bool              { return false }
func (e *InExpr) IsRangeWithCurrent() bool { return false }
func (e *InExpr) IsGrouping() bool         { return anyGrouping(e.Value, e.Range) }
func (e *InExpr) IsAccumulating() bool     { return anyAccumulating(e.Value, e.Range) }
func (e *InExpr) IsAggregating() bool      { return anyAggregating(e.Value, e.Range) }

func (e *InExpr) Replace(repl map[Expr]Expr) Expr {
	if r, ok := repl[e]; ok {
		return r
	}
	nv := e.Value.Replace(repl)
	nr := e.Range.Replace(repl).(*RangeExpr)
	if nv == e.Value && nr == e.Range {
		return e
	}
	return NewIn(nv, nr)
}

func (e *InExpr) Eval(ctx *EvalContext) (interface{}, error) {
	v, err := e.Value.Eval(ctx)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, nil
	}
	rv, err := e.Range.Eval(ctx)
	if err != nil {
		return nil, err
	}
	rng := rv.(types.Range)
	if !rng.StartOpen {
		c, err := compareValues(v, rng.Start)
		if err != nil {
			return nil, err
		}
		if c < 0 || (c == 0 && rng.StartOpen) {
			return false, nil
		}
	}
	if !rng.EndOpen {
		c, err := compareValues(v, rng.End)
		if err != nil {
			return nil, err
		}
		if c > 0 {
			return false, nil
		}
	}
	return true, nil
}

func (e *InExpr) String() string { return e.Value.String() + " in " + e.Range.String() }
