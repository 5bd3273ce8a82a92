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
	"fmt"

	"github.com/tupledb/querycore/core"
	"github.com/tupledb/querycore/core/errkit"
	"github.com/tupledb/querycore/core/types"
)

// ConstantExpr is a literal value of a known type. It is the base case
// most constant-folding rewrites collapse onto.
type ConstantExpr struct {
	Value interface{}
	Typ   types.Type
}

func NewConstant(value interface{}, typ types.Type) *ConstantExpr {
	return &ConstantExpr{Value: value, Typ: typ}
}

func (e *ConstantExpr) Type() types.Type { return e.Typ }

func (e *ConstantExpr) AsType(target types.Type) (Expr, error) {
	if types.Equal(e.Typ, target) {
		return e, nil
	}
	return NewConversion(e, target), nil
}

func (e *ConstantExpr) MaxArgument() int                             { return 0 }
func (e *ConstantExpr) IsPureFunction() bool                         { return true }
func (e *ConstantExpr) GatherEvalColumns(consume func(*ColumnExpr)) {}
func (e *ConstantExpr) IsNullable() bool                             { return e.Typ.IsNullable() }
func (e *ConstantExpr) IsConstant() bool                             { return true }
func (e *ConstantExpr) IsNull() bool                                 { return e.Value == nil }
func (e *ConstantExpr) IsZero() bool                                 { return isNumericEqual(e.Value, 0) }
func (e *ConstantExpr) IsOne() bool                                  { return isNumericEqual(e.Value, 1) }
func (e *ConstantExpr) IsRangeWithCurrent() bool                     { return false }
func (e *ConstantExpr) IsGrouping() bool                             { return true }
func (e *ConstantExpr) IsAccumulating() bool                         { return false }
func (e *ConstantExpr) IsAggregating() bool                          { return false }
func (e *ConstantExpr) Replace(repl map[Expr]Expr) Expr {
	if r, ok := repl[e]; ok {
		return r
	}
	return e
}
func (e *ConstantExpr) Eval(*EvalContext) (interface{}, error)       { return e.Value, nil }
func (e *ConstantExpr) String() string {
	if e.Value == nil {
		return "null"
	}
	if s, ok := e.Value.(string); ok {
		return fmt.Sprintf("%q", s)
	}
	return fmt.Sprintf("%v", e.Value)
}

func isNumericEqual(v interface{}, n int64) bool {
	switch x := v.(type) {
	case int64:
		return x == n
	case uint64:
		return x == uint64(n)
	case int:
		return int64(x) == n
	case float64:
		return x == float64(n)
	case float32:
		return x == float32(n)
	}
	return false
}

// True and False are the canonical boolean constants used by the
// filter splitting algorithm to detect trivial filters.
var (
	True  = NewConstant(true, types.Boolean)
	False = NewConstant(false, types.Boolean)
	Null  = func(t types.Type) *ConstantExpr { return NewConstant(nil, t.Nullable()) }
)

// ParamExpr is a positional placeholder ("?" or "?n") resolved at
// evaluation time against EvalContext.Args. Ordinal is 1-based per the
// grammar ("1 <= n <= 100").
type ParamExpr struct {
	Ordinal int
	Typ     types.Type
}

func NewParam(ordinal int, typ types.Type) *ParamExpr {
	return &ParamExpr{Ordinal: ordinal, Typ: typ}
}

func (e *ParamExpr) Type() types.Type { return e.Typ }

func (e *ParamExpr) AsType(target types.Type) (Expr, error) {
	if types.Equal(e.Typ, target) {
		return e, nil
	}
	return NewConversion(e, target), nil
}

func (e *ParamExpr) MaxArgument() int                             { return e.Ordinal }
func (e *ParamExpr) IsPureFunction() bool                         { return true }
func (e *ParamExpr) GatherEvalColumns(consume func(*ColumnExpr)) {}
func (e *ParamExpr) IsNullable() bool                             { return e.Typ.IsNullable() }
func (e *ParamExpr) IsConstant() bool                             { return false }
func (e *ParamExpr) IsNull() bool                                 { return false }
func (e *ParamExpr) IsZero() bool                                 { return false }
func (e *ParamExpr) IsOne() bool                                  { return false }
func (e *ParamExpr) IsRangeWithCurrent() bool                     { return false }
func (e *ParamExpr) IsGrouping() bool                             { return true }
func (e *ParamExpr) IsAccumulating() bool                         { return false }
func (e *ParamExpr) IsAggregating() bool                          { return false }
func (e *ParamExpr) Replace(repl map[Expr]Expr) Expr {
	if r, ok := repl[e]; ok {
		return r
	}
	return e
}

func (e *ParamExpr) Eval(ctx *EvalContext) (interface{}, error) {
	i := e.Ordinal - 1
	if i < 0 || i >= len(ctx.Args) {
		return nil, errkit.ErrArgumentCount.New(fmt.Sprintf("argument ?%d not supplied", e.Ordinal))
	}
	return ctx.Args[i], nil
}

func (e *ParamExpr) String() string { return fmt.Sprintf("?%d", e.Ordinal) }
