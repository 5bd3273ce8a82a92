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

	"github.com/tupledb/querycore/core/errkit"
	"github.com/tupledb/querycore/core/types"
)

// ColumnExpr reads a column off the source row. It has two shapes: a
// Base column (Parent == nil) indexes directly into RowType, and a Sub
// column (Parent != nil) reads a dotted sub-path off of another
// expression's result. A ColumnExpr holding a nil Column is a wildcard
// ("*") that must be expanded at projection time and must never be
// evaluated directly.
type ColumnExpr struct {
	RowType *types.TupleType // set for Base columns
	Column  *types.Column    // nil => wildcard
	Index   int              // position within RowType, Base columns only
	Parent  Expr             // set for Sub columns
	Path    string           // remaining dotted path, Sub columns only
}

// NewBaseColumn builds a Base ColumnExpr reading column index idx out of
// rowType. col may be nil to represent a wildcard.
func NewBaseColumn(rowType *types.TupleType, idx int, col *types.Column) *ColumnExpr {
	return &ColumnExpr{RowType: rowType, Index: idx, Column: col}
}

// NewSubColumn builds a Sub ColumnExpr reading path off of parent's
// result.
func NewSubColumn(parent Expr, path string, col *types.Column) *ColumnExpr {
	return &ColumnExpr{Parent: parent, Path: path, Column: col}
}

// IsWildcard reports whether this ColumnExpr is the unresolved "*"
// placeholder.
func (e *ColumnExpr) IsWildcard() bool { return e.Column == nil }

// IsBase reports whether this is a direct row column access (as
// opposed to a sub-path off another expression).
func (e *ColumnExpr) IsBase() bool { return e.Parent == nil }

func (e *ColumnExpr) Type() types.Type {
	if e.Column == nil {
		return types.Any
	}
	return e.Column.Type
}

func (e *ColumnExpr) AsType(target types.Type) (Expr, error) {
	if types.Equal(e.Type(), target) {
		return e, nil
	}
	return NewConversion(e, target), nil
}

func (e *ColumnExpr) MaxArgument() int { return 0 }

func (e *ColumnExpr) IsPureFunction() bool {
	if e.Parent != nil {
		return e.Parent.IsPureFunction()
	}
	return true
}

func (e *ColumnExpr) GatherEvalColumns(consume func(*ColumnExpr)) {
	if e.IsBase() {
		consume(e)
		return
	}
	e.Parent.GatherEvalColumns(consume)
}

func (e *ColumnExpr) IsNullable() bool         { return e.Type().IsNullable() }
func (e *ColumnExpr) IsConstant() bool         { return false }
func (e *ColumnExpr) IsNull() bool             { return false }
func (e *ColumnExpr) IsZero() bool             { return false }
func (e *ColumnExpr) IsOne() bool              { return false }
func (e *ColumnExpr) IsRangeWithCurrent() bool { return false }
func (e *ColumnExpr) IsGrouping() bool         { return false }
func (e *ColumnExpr) IsAccumulating() bool     { return false }
func (e *ColumnExpr) IsAggregating() bool      { return false }

func (e *ColumnExpr) Replace(repl map[Expr]Expr) Expr {
	if r, ok := repl[e]; ok {
		return r
	}
	if e.IsBase() {
		return e
	}
	newParent := e.Parent.Replace(repl)
	if newParent == e.Parent {
		return e
	}
	return NewSubColumn(newParent, e.Path, e.Column)
}

func (e *ColumnExpr) Eval(ctx *EvalContext) (interface{}, error) {
	if e.IsWildcard() {
		return nil, errkit.ErrUnresolvedName.New("wildcard column evaluated directly")
	}
	if e.IsBase() {
		if e.Index < 0 || e.Index >= len(ctx.Row) {
			return nil, errkit.ErrUnresolvedName.New(fmt.Sprintf("column index %d out of range", e.Index))
		}
		return ctx.Row[e.Index], nil
	}
	v, err := e.Parent.Eval(ctx)
	if err != nil {
		return nil, err
	}
	return subPath(v, e.Path)
}

// subPath extracts a dotted path out of a decoded parent value. The
// on-disk/in-memory representation of nested values is a storage-engine
// concern; this supports the common case of map[string]interface{}.
func subPath(v interface{}, path string) (interface{}, error) {
	if v == nil {
		return nil, nil
	}
	m, ok := v.(map[string]interface{})
	if !ok {
		return nil, errkit.ErrTypeMismatch.New(fmt.Sprintf("cannot access path %q on %T", path, v))
	}
	return m[path], nil
}

func (e *ColumnExpr) String() string {
	if e.Column == nil {
		return "*"
	}
	if e.IsBase() {
		return types.EscapeName(e.Column.Name)
	}
	return e.Parent.String() + "." + e.Path
}

// VarExpr refers to a value bound earlier in the same evaluation scope
// by an AssignExpr, used by asWindow's deduplication rewrite so a
// repeated aggregate wrapping becomes a single computation referenced
// by name.
type VarExpr struct {
	Name   string
	Assign *AssignExpr
}

func NewVar(name string, assign *AssignExpr) *VarExpr {
	return &VarExpr{Name: name, Assign: assign}
}

func (e *VarExpr) Type() types.Type { return e.Assign.Type() }

func (e *VarExpr) AsType(target types.Type) (Expr, error) {
	if types.Equal(e.Type(), target) {
		return e, nil
	}
	return NewConversion(e, target), nil
}

func (e *VarExpr) MaxArgument() int                             { return 0 }
func (e *VarExpr) IsPureFunction() bool                         { return e.Assign.IsPureFunction() }
func (e *VarExpr) GatherEvalColumns(consume func(*ColumnExpr)) {}
func (e *VarExpr) IsNullable() bool                             { return e.Type().IsNullable() }
func (e *VarExpr) IsConstant() bool                             { return false }
func (e *VarExpr) IsNull() bool                                 { return false }
func (e *VarExpr) IsZero() bool                                 { return false }
func (e *VarExpr) IsOne() bool                                  { return false }
func (e *VarExpr) IsRangeWithCurrent() bool                     { return false }
func (e *VarExpr) IsGrouping() bool                             { return e.Assign.IsGrouping() }
func (e *VarExpr) IsAccumulating() bool                         { return e.Assign.IsAccumulating() }
func (e *VarExpr) IsAggregating() bool                          { return e.Assign.IsAggregating() }
func (e *VarExpr) Replace(repl map[Expr]Expr) Expr {
	if r, ok := repl[e]; ok {
		return r
	}
	return e
}

func (e *VarExpr) Eval(ctx *EvalContext) (interface{}, error) {
	if v, ok := ctx.Vars[e.Name]; ok {
		return v, nil
	}
	v, err := e.Assign.Eval(ctx)
	return v, err
}

func (e *VarExpr) String() string { return e.Name }

// AssignExpr binds expr to name within its query scope; subsequent
// VarExpr references with the same name resolve to it. A name is
// unique within its scope (enforced by the planner/window builder at
// construction).
type AssignExpr struct {
	Name string
	Expr Expr
}

func NewAssign(name string, expr Expr) *AssignExpr {
	return &AssignExpr{Name: name, Expr: expr}
}

func (e *AssignExpr) Type() types.Type { return e.Expr.Type() }

func (e *AssignExpr) AsType(target types.Type) (Expr, error) {
	if types.Equal(e.Type(), target) {
		return e, nil
	}
	return NewConversion(e, target), nil
}

func (e *AssignExpr) MaxArgument() int                             { return e.Expr.MaxArgument() }
func (e *AssignExpr) IsPureFunction() bool                         { return e.Expr.IsPureFunction() }
func (e *AssignExpr) GatherEvalColumns(consume func(*ColumnExpr)) { e.Expr.GatherEvalColumns(consume) }
func (e *AssignExpr) IsNullable() bool                             { return e.Expr.IsNullable() }
func (e *AssignExpr) IsConstant() bool                             { return e.Expr.IsConstant() }
func (e *AssignExpr) IsNull() bool                                 { return e.Expr.IsNull() }
func (e *AssignExpr) IsZero() bool                                 { return e.Expr.IsZero() }
func (e *AssignExpr) IsOne() bool                                  { return e.Expr.IsOne() }
func (e *AssignExpr) IsRangeWithCurrent() bool                     { return e.Expr.IsRangeWithCurrent() }
func (e *AssignExpr) IsGrouping() bool                             { return e.Expr.IsGrouping() }
func (e *AssignExpr) IsAccumulating() bool                         { return e.Expr.IsAccumulating() }
func (e *AssignExpr) IsAggregating() bool                          { return e.Expr.IsAggregating() }

func (e *AssignExpr) Replace(repl map[Expr]Expr) Expr {
	if r, ok := repl[e]; ok {
		return r
	}
	newExpr := e.Expr.Replace(repl)
	if newExpr == e.Expr {
		return e
	}
	return NewAssign(e.Name, newExpr)
}

func (e *AssignExpr) Eval(ctx *EvalContext) (interface{}, error) {
	v, err := e.Expr.Eval(ctx)
	if err != nil {
		return nil, err
	}
	ctx.Vars[e.Name] = v
	return v, nil
}

func (e *AssignExpr) String() string { return e.Name + " = " + e.Expr.String() }
