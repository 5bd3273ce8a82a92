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

import "github.com/tupledb/querycore/core/types"

// ApplierKind distinguishes the three function shapes the registry can
// resolve a call to: Plain (row-local), Aggregated (per-group) and
// Grouped (per-row window function).
type ApplierKind int

const (
	KindPlain ApplierKind = iota
	KindAggregated
	KindGrouped
)

// Applier is the validated function handle a CallExpr carries after
// resolution: a resolved result type and codegen/interpretation
// contract.
type Applier interface {
	Name() string
	Kind() ApplierKind
	ResultType() types.Type
	// IsPure combines with argument purity to determine
	// CallExpr.IsPureFunction.
	IsPure() bool
}

// PlainApplier evaluates immediately against the current row.
type PlainApplier interface {
	Applier
	Apply(ctx *EvalContext, args []Expr, namedArgs map[string]Expr) (interface{}, error)
}

// AggregatorState is the per-group init/begin/accumulate/finish state
// machine contributed by one Aggregated CallExpr, described in §4.4.
type AggregatorState interface {
	Init()
	Begin(ctx *EvalContext) error
	Accumulate(ctx *EvalContext) error
	Finish(ctx *EvalContext) (interface{}, error)
}

// AggregatedApplier builds a fresh AggregatorState bound to a call's
// resolved arguments.
type AggregatedApplier interface {
	Applier
	NewState(args []Expr, namedArgs map[string]Expr) AggregatorState
}

// FrameMode selects how a window Frame's bounds are interpreted.
type FrameMode int

const (
	FrameRows FrameMode = iota
	FrameGroups
	FrameRange
)

func (m FrameMode) String() string {
	switch m {
	case FrameRows:
		return "rows"
	case FrameGroups:
		return "groups"
	default:
		return "range"
	}
}

// Frame is the {mode, start, end, ordering} tuple describing a window
// function's frame, per §4.5. Start/End are expressions that may be
// compile-time constants, runtime-constants bound to arguments, or
// per-row expressions (evaluated against the current row each time the
// frame bounds are needed).
type Frame struct {
	Mode     FrameMode
	Start    Expr // nil => unbounded start
	End      Expr // nil => unbounded end
	Ordering []Expr
	Desc     []bool
}

// IsOrderDependent reports whether evaluating this frame's result can
// depend on the order rows are delivered in — true whenever RANGE mode
// is used with a non-trivial ordering, per §5 Ordering guarantees.
func (f *Frame) IsOrderDependent() bool {
	return f.Mode == FrameRange && len(f.Ordering) > 0
}

// IsConstantBounds reports whether both bounds are compile-time
// constant expressions (no ParamExpr, no column reference) — the
// simplest and most efficient buffering case.
func (f *Frame) IsConstantBounds() bool {
	return (f.Start == nil || (f.Start.IsConstant() && f.Start.MaxArgument() == 0)) &&
		(f.End == nil || (f.End.IsConstant() && f.End.MaxArgument() == 0))
}

// GrouperState is the per-row init/begin/accumulate/finished/check/step
// state machine contributed by one Grouped (window) CallExpr, per §4.5.
type GrouperState interface {
	Init()
	Begin(ctx *EvalContext) error
	Accumulate(ctx *EvalContext) error
	Finished() error
	Check() (bool, error)
	Step(ctx *EvalContext) (interface{}, error)
}

// GroupedApplier builds a fresh GrouperState bound to a call's resolved
// arguments and frame.
type GroupedApplier interface {
	Applier
	NewState(args []Expr, namedArgs map[string]Expr, frame *Frame) GrouperState
}
