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

package function

import (
	"math/big"
	"math/rand"
	"sync/atomic"

	"github.com/shopspring/decimal"

	"github.com/tupledb/querycore/core/expression"
	"github.com/tupledb/querycore/core/types"
	"github.com/tupledb/querycore/core/window"
)

// registerBuiltins installs the fixed set of built-in functions every
// FunctionFinder starts with: the row-local coalesce/iif/random/self/grn
// primitives, and the per-group count/first/last/min/max/sum/avg
// aggregates.
func registerBuiltins(r *FunctionFinder) {
	r.Register("coalesce", coalesceBuilder)
	r.Register("iif", iifBuilder)
	r.Register("random", randomBuilder)
	r.Register("self", selfBuilder)
	r.Register("grn", grnBuilder)
	r.Register("count", countBuilder)
	r.Register("first", firstBuilder)
	r.Register("last", lastBuilder)
	r.Register("min", minMaxBuilder(-1))
	r.Register("max", minMaxBuilder(1))
	r.Register("sum", sumBuilder)
	r.Register("avg", avgBuilder)
}

// plainFn is the shared Applier implementation for every KindPlain
// built-in: a fixed result type and an apply function closed over the
// validated argument list.
type plainFn struct {
	name     string
	rt       types.Type
	pure     bool
	applyFn  func(ctx *expression.EvalContext, args []expression.Expr, namedArgs map[string]expression.Expr) (interface{}, error)
}

func (f *plainFn) Name() string           { return f.name }
func (f *plainFn) Kind() expression.ApplierKind { return expression.KindPlain }
func (f *plainFn) ResultType() types.Type { return f.rt }
func (f *plainFn) IsPure() bool           { return f.pure }
func (f *plainFn) Apply(ctx *expression.EvalContext, args []expression.Expr, namedArgs map[string]expression.Expr) (interface{}, error) {
	return f.applyFn(ctx, args, namedArgs)
}

// coalesceBuilder returns the first non-null argument, typed at the
// common type of every argument. The result is nullable only if the
// last argument is nullable, since once every earlier argument has
// evaluated to null, the last argument's value is returned unchanged.
func coalesceBuilder(args []expression.Expr, namedArgs map[string]expression.Expr) (expression.Applier, string, error) {
	if len(namedArgs) > 0 {
		return nil, "coalesce takes no named arguments", nil
	}
	if len(args) == 0 {
		return nil, "coalesce requires at least one argument", nil
	}
	rt := args[0].Type()
	for _, a := range args[1:] {
		rt = rt.CommonType(a.Type(), types.OpArith)
	}
	last := args[len(args)-1].Type()
	if last.IsNullable() {
		rt = rt.Nullable()
	} else {
		rt = rt.NotNullable()
	}
	pure := true
	for _, a := range args {
		pure = pure && a.IsPureFunction()
	}
	resultType := rt
	return &plainFn{
		name: "coalesce",
		rt:   resultType,
		pure: pure,
		applyFn: func(ctx *expression.EvalContext, args []expression.Expr, _ map[string]expression.Expr) (interface{}, error) {
			for _, a := range args {
				v, err := a.Eval(ctx)
				if err != nil {
					return nil, err
				}
				if v == nil {
					continue
				}
				return expression.Convert(v, a.Type(), resultType)
			}
			return nil, nil
		},
	}, "", nil
}

// iifBuilder is the ternary conditional: iif(cond, whenTrue, whenFalse).
func iifBuilder(args []expression.Expr, namedArgs map[string]expression.Expr) (expression.Applier, string, error) {
	if len(namedArgs) > 0 {
		return nil, "iif takes no named arguments", nil
	}
	if len(args) != 3 {
		return nil, "iif requires exactly three arguments", nil
	}
	cond, whenTrue, whenFalse := args[0], args[1], args[2]
	if !cond.Type().IsBoolean() {
		return nil, "iif condition must be boolean", nil
	}
	rt := whenTrue.Type().CommonType(whenFalse.Type(), types.OpArith)
	if cond.Type().IsNullable() || whenTrue.Type().IsNullable() || whenFalse.Type().IsNullable() {
		rt = rt.Nullable()
	} else {
		rt = rt.NotNullable()
	}
	pure := cond.IsPureFunction() && whenTrue.IsPureFunction() && whenFalse.IsPureFunction()
	resultType := rt
	return &plainFn{
		name: "iif",
		rt:   resultType,
		pure: pure,
		applyFn: func(ctx *expression.EvalContext, args []expression.Expr, _ map[string]expression.Expr) (interface{}, error) {
			cv, err := args[0].Eval(ctx)
			if err != nil {
				return nil, err
			}
			if cv == nil {
				return nil, nil
			}
			branch := args[1]
			if !cv.(bool) {
				branch = args[2]
			}
			v, err := branch.Eval(ctx)
			if err != nil {
				return nil, err
			}
			if v == nil {
				return nil, nil
			}
			return expression.Convert(v, branch.Type(), resultType)
		},
	}, "", nil
}

// randomBuilder returns a uniform double in [0, 1). It is impure, so
// callers may not constant-fold or otherwise hoist its evaluation.
func randomBuilder(args []expression.Expr, namedArgs map[string]expression.Expr) (expression.Applier, string, error) {
	if len(args) != 0 || len(namedArgs) != 0 {
		return nil, "random takes no arguments", nil
	}
	return &plainFn{
		name: "random",
		rt:   types.Basic(types.CodeDouble),
		pure: false,
		applyFn: func(*expression.EvalContext, []expression.Expr, map[string]expression.Expr) (interface{}, error) {
			return rand.Float64(), nil
		},
	}, "", nil
}

// selfBuilder is the identity function, used by the planner's
// asAggregate/asWindow rewrites as a neutral wrapper that does not by
// itself change a column reference's grouping classification.
func selfBuilder(args []expression.Expr, namedArgs map[string]expression.Expr) (expression.Applier, string, error) {
	if len(args) != 1 || len(namedArgs) != 0 {
		return nil, "self takes exactly one argument", nil
	}
	arg := args[0]
	return &plainFn{
		name: "self",
		rt:   arg.Type(),
		pure: arg.IsPureFunction(),
		applyFn: func(ctx *expression.EvalContext, args []expression.Expr, _ map[string]expression.Expr) (interface{}, error) {
			return args[0].Eval(ctx)
		},
	}, "", nil
}

var grnCounter uint64

// grnBuilder generates a process-wide unique, monotonically increasing
// row identifier, for queries over relations with no natural key. It is
// impure: two calls against the same row must not be folded to one.
func grnBuilder(args []expression.Expr, namedArgs map[string]expression.Expr) (expression.Applier, string, error) {
	if len(args) != 0 || len(namedArgs) != 0 {
		return nil, "grn takes no arguments", nil
	}
	return &plainFn{
		name: "grn",
		rt:   types.Basic(types.CodeULong),
		pure: false,
		applyFn: func(*expression.EvalContext, []expression.Expr, map[string]expression.Expr) (interface{}, error) {
			return atomic.AddUint64(&grnCounter, 1), nil
		},
	}, "", nil
}

// aggFn is the shared Applier implementation for every KindAggregated
// built-in: a fixed result type and a factory producing a fresh
// AggregatorState per group.
type aggFn struct {
	name    string
	rt      types.Type
	newFn   func(args []expression.Expr, namedArgs map[string]expression.Expr) expression.AggregatorState
}

func (f *aggFn) Name() string                 { return f.name }
func (f *aggFn) Kind() expression.ApplierKind { return expression.KindAggregated }
func (f *aggFn) ResultType() types.Type       { return f.rt }
func (f *aggFn) IsPure() bool                 { return true }
func (f *aggFn) NewState(args []expression.Expr, namedArgs map[string]expression.Expr) expression.AggregatorState {
	return f.newFn(args, namedArgs)
}

// isWindowCall reports whether namedArgs carries a rows:/groups:/range:
// frame specification, the signal (§4.6) that an otherwise-aggregated
// builtin should resolve to its window-function variant instead.
func isWindowCall(namedArgs map[string]expression.Expr) bool {
	if namedArgs == nil {
		return false
	}
	_, rows := namedArgs["rows"]
	_, groups := namedArgs["groups"]
	_, rng := namedArgs["range"]
	return rows || groups || rng
}

// groupedFn is the shared Applier implementation for every KindGrouped
// (window-function) variant of a builtin that also has an Aggregated
// form: a fixed result type and a factory producing a fresh GrouperState
// bound to the call's resolved arguments and frame.
type groupedFn struct {
	name  string
	rt    types.Type
	newFn func(args []expression.Expr, namedArgs map[string]expression.Expr, frame *expression.Frame) expression.GrouperState
}

func (f *groupedFn) Name() string                 { return f.name }
func (f *groupedFn) Kind() expression.ApplierKind { return expression.KindGrouped }
func (f *groupedFn) ResultType() types.Type       { return f.rt }
func (f *groupedFn) IsPure() bool                 { return true }
func (f *groupedFn) NewState(args []expression.Expr, namedArgs map[string]expression.Expr, frame *expression.Frame) expression.GrouperState {
	return f.newFn(args, namedArgs, frame)
}

// countState counts rows in the group; with an argument it counts only
// the rows where that argument evaluates non-null.
type countState struct {
	arg expression.Expr
	n   uint64
}

func (s *countState) Init() { s.n = 0 }
func (s *countState) Begin(ctx *expression.EvalContext) error { s.n = 0; return s.Accumulate(ctx) }
func (s *countState) Accumulate(ctx *expression.EvalContext) error {
	if s.arg == nil {
		s.n++
		return nil
	}
	v, err := s.arg.Eval(ctx)
	if err != nil {
		return err
	}
	if v != nil {
		s.n++
	}
	return nil
}
func (s *countState) Finish(*expression.EvalContext) (interface{}, error) { return s.n, nil }

func countBuilder(args []expression.Expr, namedArgs map[string]expression.Expr) (expression.Applier, string, error) {
	if len(args) > 1 || len(namedArgs) > 0 {
		return nil, "count takes at most one argument", nil
	}
	return &aggFn{
		name: "count",
		rt:   types.Basic(types.CodeULong),
		newFn: func(args []expression.Expr, _ map[string]expression.Expr) expression.AggregatorState {
			var a expression.Expr
			if len(args) == 1 {
				a = args[0]
			}
			return &countState{arg: a}
		},
	}, "", nil
}

// firstLastState tracks the first or last non-skipped value of arg
// seen in the group, depending on updateEveryRow.
type firstLastState struct {
	arg            expression.Expr
	updateEveryRow bool
	val            interface{}
	has            bool
}

func (s *firstLastState) Init()                          { s.val, s.has = nil, false }
func (s *firstLastState) Begin(ctx *expression.EvalContext) error {
	s.val, s.has = nil, false
	return s.Accumulate(ctx)
}
func (s *firstLastState) Accumulate(ctx *expression.EvalContext) error {
	if s.has && !s.updateEveryRow {
		return nil
	}
	v, err := s.arg.Eval(ctx)
	if err != nil {
		return err
	}
	s.val, s.has = v, true
	return nil
}
func (s *firstLastState) Finish(*expression.EvalContext) (interface{}, error) { return s.val, nil }

func firstBuilder(args []expression.Expr, namedArgs map[string]expression.Expr) (expression.Applier, string, error) {
	return firstLastBuilder("first", false, args, namedArgs)
}

func lastBuilder(args []expression.Expr, namedArgs map[string]expression.Expr) (expression.Applier, string, error) {
	return firstLastBuilder("last", true, args, namedArgs)
}

func firstLastBuilder(name string, updateEveryRow bool, args []expression.Expr, namedArgs map[string]expression.Expr) (expression.Applier, string, error) {
	if len(args) != 1 || len(namedArgs) > 0 {
		return nil, name + " takes exactly one argument", nil
	}
	rt := args[0].Type().Nullable()
	return &aggFn{
		name: name,
		rt:   rt,
		newFn: func(args []expression.Expr, _ map[string]expression.Expr) expression.AggregatorState {
			return &firstLastState{arg: args[0], updateEveryRow: updateEveryRow}
		},
	}, "", nil
}

// minMaxState keeps the extremal non-null value seen in the group.
// want is -1 for min (keep smaller) or +1 for max (keep larger).
type minMaxState struct {
	arg  expression.Expr
	want int
	val  interface{}
	has  bool
}

func (s *minMaxState) Init()                          { s.val, s.has = nil, false }
func (s *minMaxState) Begin(ctx *expression.EvalContext) error {
	s.val, s.has = nil, false
	return s.Accumulate(ctx)
}
func (s *minMaxState) Accumulate(ctx *expression.EvalContext) error {
	v, err := s.arg.Eval(ctx)
	if err != nil {
		return err
	}
	if v == nil {
		return nil
	}
	if !s.has {
		s.val, s.has = v, true
		return nil
	}
	c, err := expression.CompareValues(v, s.val)
	if err != nil {
		return err
	}
	if (s.want < 0 && c < 0) || (s.want > 0 && c > 0) {
		s.val = v
	}
	return nil
}
func (s *minMaxState) Finish(*expression.EvalContext) (interface{}, error) { return s.val, nil }

func minMaxBuilder(want int) Builder {
	name := "max"
	if want < 0 {
		name = "min"
	}
	return func(args []expression.Expr, namedArgs map[string]expression.Expr) (expression.Applier, string, error) {
		if len(args) != 1 || len(namedArgs) > 0 {
			return nil, name + " takes exactly one argument", nil
		}
		rt := args[0].Type().Nullable()
		return &aggFn{
			name: name,
			rt:   rt,
			newFn: func(args []expression.Expr, _ map[string]expression.Expr) expression.AggregatorState {
				return &minMaxState{arg: args[0], want: want}
			},
		}, "", nil
	}
}

// sumState accumulates arg's non-null values in the widened result
// lane, skipping nulls. An empty or all-null group sums to zero.
type sumState struct {
	arg     expression.Expr
	argType types.Type
	rt      types.Type
	acc     interface{}
}

func (s *sumState) Init() { s.acc = zeroValue(s.rt) }
func (s *sumState) Begin(ctx *expression.EvalContext) error { s.acc = zeroValue(s.rt); return s.Accumulate(ctx) }
func (s *sumState) Accumulate(ctx *expression.EvalContext) error {
	v, err := s.arg.Eval(ctx)
	if err != nil {
		return err
	}
	if v == nil {
		return nil
	}
	cv, err := expression.Convert(v, s.argType, s.rt)
	if err != nil {
		return err
	}
	s.acc, err = expression.EvalArith(expression.OpAdd, s.acc, cv, s.rt)
	return err
}
func (s *sumState) Finish(*expression.EvalContext) (interface{}, error) { return s.acc, nil }

func sumBuilder(args []expression.Expr, namedArgs map[string]expression.Expr) (expression.Applier, string, error) {
	if len(args) != 1 {
		return nil, "sum takes exactly one argument", nil
	}
	argType := args[0].Type()
	rt := widenSum(argType)
	if isWindowCall(namedArgs) {
		return &groupedFn{
			name: "sum",
			rt:   rt,
			newFn: func(args []expression.Expr, _ map[string]expression.Expr, frame *expression.Frame) expression.GrouperState {
				return newWindowAccState(args[0], false, frame)
			},
		}, "", nil
	}
	return &aggFn{
		name: "sum",
		rt:   rt,
		newFn: func(args []expression.Expr, _ map[string]expression.Expr) expression.AggregatorState {
			return &sumState{arg: args[0], argType: argType, rt: rt}
		},
	}, "", nil
}

// avgState computes the arithmetic mean of arg's non-null values,
// skipping nulls. An empty or all-null group's average is null.
type avgState struct {
	arg     expression.Expr
	argType types.Type
	rt      types.Type
	sum     interface{}
	count   uint64
}

func (s *avgState) Init() { s.sum, s.count = zeroValue(s.rt), 0 }
func (s *avgState) Begin(ctx *expression.EvalContext) error {
	s.sum, s.count = zeroValue(s.rt), 0
	return s.Accumulate(ctx)
}
func (s *avgState) Accumulate(ctx *expression.EvalContext) error {
	v, err := s.arg.Eval(ctx)
	if err != nil {
		return err
	}
	if v == nil {
		return nil
	}
	cv, err := expression.Convert(v, s.argType, s.rt)
	if err != nil {
		return err
	}
	s.sum, err = expression.EvalArith(expression.OpAdd, s.sum, cv, s.rt)
	if err != nil {
		return err
	}
	s.count++
	return nil
}
func (s *avgState) Finish(*expression.EvalContext) (interface{}, error) {
	if s.count == 0 {
		return nil, nil
	}
	countAsRT, err := expression.Convert(s.count, types.Basic(types.CodeULong), s.rt)
	if err != nil {
		return nil, err
	}
	return expression.EvalArith(expression.OpDiv, s.sum, countAsRT, s.rt)
}

func avgBuilder(args []expression.Expr, namedArgs map[string]expression.Expr) (expression.Applier, string, error) {
	if len(args) != 1 {
		return nil, "avg takes exactly one argument", nil
	}
	argType := args[0].Type()
	rt := widenAvg(argType).Nullable()
	if isWindowCall(namedArgs) {
		return &groupedFn{
			name: "avg",
			rt:   rt,
			newFn: func(args []expression.Expr, _ map[string]expression.Expr, frame *expression.Frame) expression.GrouperState {
				return newWindowAccState(args[0], true, frame)
			},
		}, "", nil
	}
	return &aggFn{
		name: "avg",
		rt:   rt,
		newFn: func(args []expression.Expr, _ map[string]expression.Expr) expression.AggregatorState {
			return &avgState{arg: args[0], argType: argType, rt: rt}
		},
	}, "", nil
}

// windowAccState is the Grouped (window-function) variant shared by
// sum(…, rows/groups/range: …) and avg(…, rows/groups/range: …). It
// buffers arg's evaluated values in a float64 lane: window.Numeric
// structurally excludes *big.Int/decimal.Decimal, so exact BigInteger/
// BigDecimal sources are widened through float64 for the window lane
// rather than kept exact — a deliberate simplification over the
// Aggregated variant's exact-arithmetic accumulation.
type windowAccState struct {
	arg   expression.Expr
	avg   bool
	frame *expression.Frame

	buf            *window.WindowBuffer[float64]
	look           *window.Lookahead
	remaining      window.Remaining
	unboundedStart bool
	unboundedEnd   bool
	startDelta     int
	endDelta       int
}

func newWindowAccState(arg expression.Expr, avg bool, frame *expression.Frame) *windowAccState {
	s := &windowAccState{arg: arg, avg: avg, frame: frame}
	s.unboundedStart = frame.Start == nil
	s.unboundedEnd = frame.End == nil
	emptyCtx := expression.NewEvalContext(nil, nil)
	if !s.unboundedStart {
		s.startDelta = constIntBound(frame.Start, emptyCtx)
	}
	if !s.unboundedEnd {
		s.endDelta = constIntBound(frame.End, emptyCtx)
	}
	return s
}

func constIntBound(e expression.Expr, ctx *expression.EvalContext) int {
	v, err := e.Eval(ctx)
	if err != nil {
		return 0
	}
	cv, err := expression.Convert(v, e.Type(), types.Basic(types.CodeLong))
	if err != nil {
		return 0
	}
	return int(cv.(int64))
}

func (s *windowAccState) Init() {
	s.buf = window.NewWindowBuffer[float64](window.DefaultCapacity)
	s.look = window.NewLookahead()
	s.remaining = window.NewRemaining(true, 0)
}

func (s *windowAccState) evalArg(ctx *expression.EvalContext) (float64, bool, error) {
	v, err := s.arg.Eval(ctx)
	if err != nil {
		return 0, false, err
	}
	if v == nil {
		return 0, false, nil
	}
	cv, err := expression.Convert(v, s.arg.Type(), types.Basic(types.CodeDouble))
	if err != nil {
		return 0, false, err
	}
	return cv.(float64), true, nil
}

func (s *windowAccState) Begin(ctx *expression.EvalContext) error {
	v, ok, err := s.evalArg(ctx)
	if err != nil {
		return err
	}
	s.buf.Begin(v, ok)
	s.remaining = window.NewRemaining(true, 1)
	s.look.Reset()
	return nil
}

func (s *windowAccState) Accumulate(ctx *expression.EvalContext) error {
	v, ok, err := s.evalArg(ctx)
	if err != nil {
		return err
	}
	s.buf.Append(v, ok)
	s.remaining = s.remaining.Grow(1)
	return nil
}

func (s *windowAccState) Finished() error {
	s.remaining = s.remaining.Finished()
	return nil
}

// Check implements the §4.5 ready-check: ROWS mode is ready once the
// buffer holds the frame's right edge; GROUPS/RANGE mode is ready once
// the group/range boundary following the current row has been observed
// in the buffer, or input is exhausted.
func (s *windowAccState) Check() (bool, error) {
	if !s.remaining.HasWork() {
		return false, nil
	}
	if s.unboundedEnd {
		return !s.remaining.InputPending(), nil
	}
	switch s.frame.Mode {
	case expression.FrameRows:
		return s.buf.Ready(s.endDelta), nil
	case expression.FrameGroups:
		// Below the current lookahead width, more rows may still
		// extend the current group: skip the scan rather than re-walk
		// a buffer too short to conclude anything.
		if s.remaining.InputPending() && s.buf.End() < s.look.Width() {
			return false, nil
		}
		if s.buf.FindGroupEnd(s.endDelta) < s.buf.End() {
			return true, nil
		}
	default: // FrameRange
		if s.remaining.InputPending() && s.buf.End() < s.look.Width() {
			return false, nil
		}
		if s.buf.FindRangeEndAsc(s.endDelta) < s.buf.End() {
			return true, nil
		}
	}
	if !s.remaining.InputPending() {
		return true, nil
	}
	s.look.Grow()
	return false, nil
}

// Step computes the frame bounds for the current row, aggregates over
// them, then advances the buffer: AdvanceAndRemove when the left edge
// is non-negative (at or after the current row), TrimStart+Advance
// otherwise (per
// §4.5 step algorithm).
func (s *windowAccState) Step(*expression.EvalContext) (interface{}, error) {
	start := s.resolveBound(s.startDelta, s.unboundedStart, false)
	end := s.resolveBound(s.endDelta, s.unboundedEnd, true)
	var result interface{}
	if s.avg {
		v, ok := s.buf.FrameAverage(start, end)
		if ok {
			result = v
		}
	} else {
		result = s.buf.FrameSum(start, end)
	}
	s.remaining = s.remaining.Dec()
	if start >= 0 {
		s.buf.AdvanceAndRemove(start)
	} else {
		s.buf.TrimStart(start)
		s.buf.Advance()
	}
	return result, nil
}

func (s *windowAccState) resolveBound(delta int, unbounded, isEnd bool) int {
	if unbounded {
		if isEnd {
			return s.buf.End()
		}
		return s.buf.Start()
	}
	switch s.frame.Mode {
	case expression.FrameRows:
		return delta
	case expression.FrameGroups:
		if isEnd {
			return s.buf.FindGroupEnd(delta)
		}
		return s.buf.FindGroupStart(delta)
	default: // FrameRange
		if isEnd {
			return s.buf.FindRangeEndAsc(delta)
		}
		return s.buf.FindRangeStartAsc(delta)
	}
}

// widenSum promotes an arg type to sum's accumulator lane: signed
// integers widen to long, unsigned integers to unsigned long, float to
// double; big integer/decimal and double pass through unchanged.
func widenSum(t types.Type) types.Type {
	bt, ok := t.(types.BasicType)
	if !ok {
		return t
	}
	switch bt.Code() {
	case types.CodeByte, types.CodeShort, types.CodeInt, types.CodeLong:
		return types.Basic(types.CodeLong)
	case types.CodeUByte, types.CodeUShort, types.CodeUInt, types.CodeULong:
		return types.Basic(types.CodeULong)
	case types.CodeFloat:
		return types.Basic(types.CodeDouble)
	default:
		return types.Basic(bt.Code())
	}
}

// widenAvg promotes an arg type to avg's accumulator lane: every
// integer and float lane widens to double, big integer promotes to big
// decimal (to keep the division exact), big decimal and double pass
// through unchanged.
func widenAvg(t types.Type) types.Type {
	bt, ok := t.(types.BasicType)
	if !ok {
		return t
	}
	switch bt.Code() {
	case types.CodeByte, types.CodeShort, types.CodeInt, types.CodeLong,
		types.CodeUByte, types.CodeUShort, types.CodeUInt, types.CodeULong,
		types.CodeFloat:
		return types.Basic(types.CodeDouble)
	case types.CodeBigInteger:
		return types.Basic(types.CodeBigDecimal)
	default:
		return types.Basic(bt.Code())
	}
}

func zeroValue(t types.Type) interface{} {
	bt, ok := t.(types.BasicType)
	if !ok {
		return nil
	}
	switch bt.Code() {
	case types.CodeByte, types.CodeShort, types.CodeInt, types.CodeLong:
		return int64(0)
	case types.CodeUByte, types.CodeUShort, types.CodeUInt, types.CodeULong:
		return uint64(0)
	case types.CodeFloat:
		return float32(0)
	case types.CodeDouble:
		return float64(0)
	case types.CodeBigInteger:
		return big.NewInt(0)
	case types.CodeBigDecimal:
		return decimal.Zero
	default:
		return nil
	}
}
