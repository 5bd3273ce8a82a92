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

// Package expression implements the closed expression AST described by
// the data model: constants, parameters, columns, variables,
// conversions, projections, binary operators, call expressions, and the
// filter<->expression bridge used by the query planner to split work
// between storage pushdown and row-by-row evaluation.
package expression

import (
	"github.com/tupledb/querycore/core"
	"github.com/tupledb/querycore/core/types"
)

// EvalContext carries the per-evaluation state threaded through Eval:
// the current row, the caller's argument list (ParamExpr resolves
// against it), and a scope for AssignExpr/VarExpr bindings established
// earlier in the same evaluation (e.g. a window function's first(col)
// rewrite materialized as an AssignExpr so later references become
// VarExpr, per §4.1's asWindow transform).
type EvalContext struct {
	Row  core.Row
	Args []interface{}
	Vars map[string]interface{}
}

// NewEvalContext builds an EvalContext ready for a single row
// evaluation.
func NewEvalContext(row core.Row, args []interface{}) *EvalContext {
	return &EvalContext{Row: row, Args: args, Vars: make(map[string]interface{})}
}

// Expr is the closed expression node family. Every node has a total
// Type; equality and hashing (see keyenc) ignore source positions.
type Expr interface {
	// Type is this node's semantic type.
	Type() types.Type
	// AsType returns an expression equal to this one but typed as
	// target: either this expression unchanged (if already target) or a
	// new ConversionExpr wrapping it.
	AsType(target types.Type) (Expr, error)
	// MaxArgument is the highest ParamExpr ordinal anywhere in the
	// subtree, or 0 if none.
	MaxArgument() int
	// IsPureFunction reports whether evaluating this node has no
	// observable side effect and cannot throw for reasons other than
	// its own declared failure modes (used to decide safe CNF
	// duplication and short-circuit operand reordering).
	IsPureFunction() bool
	// GatherEvalColumns invokes consume for every base ColumnExpr this
	// subtree reads.
	GatherEvalColumns(consume func(*ColumnExpr))
	IsNullable() bool
	IsConstant() bool
	IsNull() bool
	IsZero() bool
	IsOne() bool
	// IsRangeWithCurrent reports whether this is a RangeExpr whose
	// bounds are relative to "the current row" (used by window frame
	// planning to detect per-row-variable frame bounds).
	IsRangeWithCurrent() bool
	// IsGrouping/IsAccumulating/IsAggregating form the monotone chain
	// aggregating => accumulating => grouping described in §3.
	IsGrouping() bool
	IsAccumulating() bool
	IsAggregating() bool
	// Replace performs structural substitution using repl, returning a
	// rebuilt tree (or this node unchanged if nothing under it matched).
	Replace(repl map[Expr]Expr) Expr
	// Eval evaluates this node against ctx.
	Eval(ctx *EvalContext) (interface{}, error)
	String() string
}

// Negatable is implemented by nodes that can rewrite themselves into a
// negated form without wrapping in a generic NotExpr, e.g. flipping a
// comparison operator. widening controls whether negation may widen the
// result type to remain total over null (used by NotExpr.make).
type Negatable interface {
	Negate(widening bool) (Expr, error)
}

// purityOfAll reports whether every expr in exprs is pure.
func purityOfAll(exprs ...Expr) bool {
	for _, e := range exprs {
		if e != nil && !e.IsPureFunction() {
			return false
		}
	}
	return true
}

func maxArgumentOfAll(exprs ...Expr) int {
	max := 0
	for _, e := range exprs {
		if e == nil {
			continue
		}
		if m := e.MaxArgument(); m > max {
			max = m
		}
	}
	return max
}

func gatherAll(consume func(*ColumnExpr), exprs ...Expr) {
	for _, e := range exprs {
		if e != nil {
			e.GatherEvalColumns(consume)
		}
	}
}

func anyGrouping(exprs ...Expr) bool {
	for _, e := range exprs {
		if e != nil && e.IsGrouping() {
			return true
		}
	}
	return false
}

func anyAccumulating(exprs ...Expr) bool {
	for _, e := range exprs {
		if e != nil && e.IsAccumulating() {
			return true
		}
	}
	return false
}

func anyAggregating(exprs ...Expr) bool {
	for _, e := range exprs {
		if e != nil && e.IsAggregating() {
			return true
		}
	}
	return false
}
