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
	"strings"

	"github.com/tupledb/querycore/core/errkit"
	"github.com/tupledb/querycore/core/types"
)

// CallExpr is a resolved function call. Applier is filled in by the
// function registry's Validate step (see function.FunctionFinder);
// Frame is non-nil only once a Grouped applier has been converted to
// its window-function form (named rows:/groups:/range: arguments
// present, or via asWindow).
type CallExpr struct {
	Name      string
	Args      []Expr
	NamedArgs map[string]Expr
	Applier   Applier
	Frame     *Frame
}

// NewCall constructs a CallExpr, checking the monotone aggregating =>
// accumulating invariant: an aggregate may not depend on an
// accumulating sub-expression (e.g. sum(avg(x)) with avg itself
// aggregated is invalid — aggregates must consume row-local values).
func NewCall(name string, args []Expr, namedArgs map[string]Expr, applier Applier) (*CallExpr, error) {
	if applier.Kind() == KindAggregated {
		for _, a := range args {
			if a.IsAccumulating() {
				return nil, errkit.ErrAggregationMisuse.New("aggregate function " + name + " cannot depend on an accumulating sub-expression")
			}
		}
		for _, a := range namedArgs {
			if a.IsAccumulating() {
				return nil, errkit.ErrAggregationMisuse.New("aggregate function " + name + " cannot depend on an accumulating sub-expression")
			}
		}
	}
	var frame *Frame
	if applier.Kind() == KindGrouped {
		frame = frameFromNamedArgs(namedArgs)
		if frame == nil {
			return nil, errkit.ErrAggregationMisuse.New(name + " is a window function and requires a rows:/groups:/range: frame argument")
		}
	}
	return &CallExpr{Name: name, Args: args, NamedArgs: namedArgs, Applier: applier, Frame: frame}, nil
}

func (e *CallExpr) Type() types.Type { return e.Applier.ResultType() }

func (e *CallExpr) AsType(target types.Type) (Expr, error) {
	if types.Equal(e.Type(), target) {
		return e, nil
	}
	return NewConversion(e, target), nil
}

func (e *CallExpr) MaxArgument() int {
	max := maxArgumentOfAll(e.Args...)
	for _, a := range e.NamedArgs {
		if m := a.MaxArgument(); m > max {
			max = m
		}
	}
	return max
}

func (e *CallExpr) IsPureFunction() bool {
	if !e.Applier.IsPure() {
		return false
	}
	for _, a := range e.Args {
		if !a.IsPureFunction() {
			return false
		}
	}
	for _, a := range e.NamedArgs {
		if !a.IsPureFunction() {
			return false
		}
	}
	return true
}

func (e *CallExpr) GatherEvalColumns(consume func(*ColumnExpr)) {
	gatherAll(consume, e.Args...)
	for _, a := range e.NamedArgs {
		a.GatherEvalColumns(consume)
	}
}

func (e *CallExpr) IsNullable() bool { return e.Type().IsNullable() }
func (e *CallExpr) IsConstant() bool { return false }
func (e *CallExpr) IsNull() bool     { return false }
func (e *CallExpr) IsZero() bool     { return false }
func (e *CallExpr) IsOne() bool      { return false }
func (e *CallExpr) IsRangeWithCurrent() bool { return false }

func (e *CallExpr) IsAggregating() bool { return e.Applier.Kind() == KindAggregated }
func (e *CallExpr) IsAccumulating() bool {
	return e.IsAggregating() || e.Applier.Kind() == KindGrouped
}
func (e *CallExpr) IsGrouping() bool { return e.IsAccumulating() }

func (e *CallExpr) Replace(repl map[Expr]Expr) Expr {
	if r, ok := repl[e]; ok {
		return r
	}
	changed := false
	newArgs := make([]Expr, len(e.Args))
	for i, a := range e.Args {
		newArgs[i] = a.Replace(repl)
		if newArgs[i] != a {
			changed = true
		}
	}
	var newNamed map[string]Expr
	if len(e.NamedArgs) > 0 {
		newNamed = make(map[string]Expr, len(e.NamedArgs))
		for k, a := range e.NamedArgs {
			newNamed[k] = a.Replace(repl)
			if newNamed[k] != a {
				changed = true
			}
		}
	}
	if !changed {
		return e
	}
	return &CallExpr{Name: e.Name, Args: newArgs, NamedArgs: newNamed, Applier: e.Applier, Frame: e.Frame}
}

// frameFromNamedArgs builds a window Frame from whichever one of
// rows:/groups:/range: is present in namedArgs (checked in that
// priority order; a call resolves to at most one, since the parser
// only ever fills in the name the caller wrote). No ordering is
// attached — every window call in this core runs over a single,
// caller-delivered row order (see grouped.go's GroupedQueryExpr).
func frameFromNamedArgs(namedArgs map[string]Expr) *Frame {
	mode, rng, ok := namedFrameRange(namedArgs)
	if !ok {
		return nil
	}
	return &Frame{Mode: mode, Start: rng.Start, End: rng.End}
}

func namedFrameRange(namedArgs map[string]Expr) (FrameMode, *RangeExpr, bool) {
	if e, ok := namedArgs["rows"]; ok {
		if rng, ok := e.(*RangeExpr); ok {
			return FrameRows, rng, true
		}
	}
	if e, ok := namedArgs["groups"]; ok {
		if rng, ok := e.(*RangeExpr); ok {
			return FrameGroups, rng, true
		}
	}
	if e, ok := namedArgs["range"]; ok {
		if rng, ok := e.(*RangeExpr); ok {
			return FrameRange, rng, true
		}
	}
	return 0, nil, false
}

func (e *CallExpr) Eval(ctx *EvalContext) (interface{}, error) {
	plain, ok := e.Applier.(PlainApplier)
	if !ok {
		return nil, errkit.ErrUnresolvedName.New(e.Name + " is not directly evaluable (aggregate/window function outside its execution context)")
	}
	return plain.Apply(ctx, e.Args, e.NamedArgs)
}

func (e *CallExpr) String() string {
	var b strings.Builder
	b.WriteString(e.Name)
	b.WriteByte('(')
	for i, a := range e.Args {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(a.String())
	}
	b.WriteByte(')')
	return b.String()
}

// AsAggregate implements §4.1's asAggregate(group) transform: every
// direct column access not listed in group is wrapped with the
// first(column) aggregate. No column reference is rejected: a column
// outside the group is always wrapped, never reported as an error.
func AsAggregate(e Expr, group map[string]bool, wrapFirst func(col *ColumnExpr) (Expr, error)) (Expr, error) {
	if e.IsAccumulating() {
		return e, nil
	}
	if col, ok := e.(*ColumnExpr); ok && col.IsBase() {
		if col.Column != nil && group[col.Column.Name] {
			return e, nil
		}
		return wrapFirst(col)
	}

	type replacer interface {
		Replace(map[Expr]Expr) Expr
	}
	var walk func(Expr) (Expr, error)
	walk = func(node Expr) (Expr, error) {
		cols := map[string]bool{}
		var firstErr error
		var collected []*ColumnExpr
		node.GatherEvalColumns(func(c *ColumnExpr) {
			if c.Column != nil {
				cols[c.Column.Name] = true
				collected = append(collected, c)
			}
		})
		repl := map[Expr]Expr{}
		for _, c := range collected {
			if group[c.Column.Name] {
				continue
			}
			wrapped, err := wrapFirst(c)
			if err != nil {
				firstErr = err
				continue
			}
			repl[c] = wrapped
		}
		if firstErr != nil {
			return nil, firstErr
		}
		if len(repl) == 0 {
			return node, nil
		}
		return node.Replace(repl), nil
	}
	return walk(e)
}
