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

package plan

import (
	"reflect"

	opentracing "github.com/opentracing/opentracing-go"

	"github.com/tupledb/querycore/core"
	"github.com/tupledb/querycore/core/errkit"
	"github.com/tupledb/querycore/core/expression"
	"github.com/tupledb/querycore/core/types"
)

var (
	aggregateErrNoUpdate = errkit.ErrParse.New("an aggregated or grouped table cannot be updated directly")
	aggregateErrNoView   = errkit.ErrParse.New("view is not supported on an aggregated or grouped table")
)

// AggregatedQueryExpr is the aggregation layer described in §4.4: it
// partitions Source's row stream by the leading GroupBy projection
// columns and runs the Aggregator protocol once per partition.
type AggregatedQueryExpr struct {
	Source     RelationExpr
	GroupBy    int                    // leading projection columns that partition the input; 0 = single group
	Calls      []*expression.CallExpr // aggregating calls referenced by Projection/Filter
	Projection []*expression.ProjExpr
	Filter     expression.Expr // post-aggregation (HAVING-like) filter; nil means none
	RT         *types.TupleType
}

func (q *AggregatedQueryExpr) RowType() *types.TupleType      { return q.RT }
func (q *AggregatedQueryExpr) Cardinality() types.Cardinality { return types.CardinalityMany }

func (q *AggregatedQueryExpr) Build(txn core.Txn, args []interface{}) (core.Table, error) {
	src, err := q.Source.Build(txn, args)
	if err != nil {
		return nil, err
	}
	return &aggregatedTable{plan: q, source: src, args: args}, nil
}

type aggregatedTable struct {
	plan   *AggregatedQueryExpr
	source core.Table
	args   []interface{}
}

func (t *aggregatedTable) RowType() *types.TupleType { return t.plan.RT }

func (t *aggregatedTable) newOutputScanner(inner core.Scanner) core.Scanner {
	span := opentracing.GlobalTracer().StartSpan("plan.Aggregate", opentracing.Tags{
		"groupBy": t.plan.GroupBy,
		"calls":   len(t.plan.Calls),
	})
	agg := &planAggregator{plan: t.plan, args: t.args}
	return traced(span, driveAggregator(inner, t.plan.GroupBy, agg, t.plan.RT.Len()))
}

func (t *aggregatedTable) NewScanner(txn core.Txn, args []interface{}) (core.Scanner, error) {
	inner, err := t.source.NewScanner(txn, args)
	if err != nil {
		return nil, err
	}
	return t.newOutputScanner(inner), nil
}

func (t *aggregatedTable) NewStream(txn core.Txn, args []interface{}) (core.Scanner, error) {
	inner, err := t.source.NewStream(txn, args)
	if err != nil {
		return nil, err
	}
	return t.newOutputScanner(inner), nil
}

func (t *aggregatedTable) QueryAll(txn core.Txn) (core.Scanner, error) {
	inner, err := t.source.QueryAll(txn)
	if err != nil {
		return nil, err
	}
	return t.newOutputScanner(inner), nil
}

// NewUpdater is unsupported: aggregated rows have no one-to-one source
// row to write back to or delete.
func (t *aggregatedTable) NewUpdater(core.Txn, []interface{}) (core.Updater, error) {
	return nil, aggregateErrNoUpdate
}

func (t *aggregatedTable) View(string, []interface{}) (core.Table, error) {
	return nil, aggregateErrNoView
}

func (t *aggregatedTable) Aggregate(rowType *types.TupleType, factory core.AggregatorFactory) (core.Table, error) {
	return newGenericAggregateTable(t, rowType, factory), nil
}

func (t *aggregatedTable) Group(partition, order string, rowType *types.TupleType, factory core.GrouperFactory) (core.Table, error) {
	return newGenericGroupTable(t, rowType, factory), nil
}

// planAggregator is the core.Aggregator driven once per partition: one
// expression.AggregatorState per aggregating call, with the post-
// aggregation projection and filter evaluated by substituting each
// call's finished result in for itself and evaluating the rest against
// firstRow, the group's first source row (the GroupBy columns are
// invariant across the group, so any one member row resolves them; the
// non-group columns that asAggregate couldn't leave plain were already
// wrapped with first() and resolve through states instead).
type planAggregator struct {
	plan     *AggregatedQueryExpr
	args     []interface{}
	states   map[*expression.CallExpr]expression.AggregatorState
	firstRow core.Row
}

func (a *planAggregator) Init() {
	a.states = make(map[*expression.CallExpr]expression.AggregatorState, len(a.plan.Calls))
	for _, c := range a.plan.Calls {
		ap := c.Applier.(expression.AggregatedApplier)
		s := ap.NewState(c.Args, c.NamedArgs)
		s.Init()
		a.states[c] = s
	}
}

func (a *planAggregator) Begin(sourceRow core.Row) (core.Row, error) {
	a.firstRow = sourceRow
	ctx := expression.NewEvalContext(sourceRow, a.args)
	for _, c := range a.plan.Calls {
		if err := a.states[c].Begin(ctx); err != nil {
			return nil, err
		}
	}
	return sourceRow, nil
}

func (a *planAggregator) Accumulate(sourceRow core.Row) (core.Row, error) {
	ctx := expression.NewEvalContext(sourceRow, a.args)
	for _, c := range a.plan.Calls {
		if err := a.states[c].Accumulate(ctx); err != nil {
			return nil, err
		}
	}
	return sourceRow, nil
}

func (a *planAggregator) Finish(core.Row) (core.Row, error) {
	ctx := expression.NewEvalContext(a.firstRow, a.args)
	repl := make(map[expression.Expr]expression.Expr, len(a.states))
	for c, s := range a.states {
		v, err := s.Finish(ctx)
		if err != nil {
			return nil, err
		}
		repl[c] = expression.NewConstant(v, c.Type())
	}
	if a.plan.Filter != nil {
		fv, err := a.plan.Filter.Replace(repl).Eval(ctx)
		if err != nil {
			return nil, err
		}
		if fv == nil || fv == false {
			return nil, nil
		}
	}
	out, err := projectRow(ctx, replaceProjection(a.plan.Projection, repl))
	if err != nil {
		return nil, err
	}
	return out, nil
}

func replaceProjection(projection []*expression.ProjExpr, repl map[expression.Expr]expression.Expr) []*expression.ProjExpr {
	out := make([]*expression.ProjExpr, len(projection))
	for i, p := range projection {
		out[i] = p.Replace(repl).(*expression.ProjExpr)
	}
	return out
}

// driveAggregator runs the core.Aggregator protocol over src, grouping
// by equality of the leading groupKeyCols row columns. groupKeyCols==0
// treats the whole stream as a single group.
func driveAggregator(src core.Scanner, groupKeyCols int, agg core.Aggregator, outLen int) core.Scanner {
	agg.Init()
	return &aggregateScanner{src: src, groupKeyCols: groupKeyCols, agg: agg, outLen: outLen}
}

type aggregateScanner struct {
	src          core.Scanner
	groupKeyCols int
	agg          core.Aggregator
	outLen       int

	pending      core.Row
	pendingValid bool
	srcExhausted bool
	cur          core.Row
	err          error
}

func (s *aggregateScanner) Next() bool {
	for {
		if s.err != nil {
			return false
		}
		if !s.pendingValid && s.srcExhausted {
			return false
		}
		var first core.Row
		if s.pendingValid {
			first, s.pendingValid = s.pending, false
		} else {
			if !s.src.Next() {
				s.err = s.src.Err()
				s.srcExhausted = true
				return false
			}
			first = s.src.Row()
		}
		if _, err := s.agg.Begin(first); err != nil {
			s.err = err
			return false
		}
		key := groupKey(first, s.groupKeyCols)
		for s.src.Next() {
			row := s.src.Row()
			if !sameGroupKey(key, row, s.groupKeyCols) {
				s.pending, s.pendingValid = row, true
				break
			}
			if _, err := s.agg.Accumulate(row); err != nil {
				s.err = err
				return false
			}
		}
		if !s.pendingValid {
			if err := s.src.Err(); err != nil {
				s.err = err
				return false
			}
			s.srcExhausted = true
		}
		target := make(core.Row, s.outLen)
		out, err := s.agg.Finish(target)
		if err != nil {
			s.err = err
			return false
		}
		if out == nil {
			continue
		}
		s.cur = out
		return true
	}
}

func (s *aggregateScanner) Row() core.Row { return s.cur }
func (s *aggregateScanner) Err() error    { return s.err }
func (s *aggregateScanner) Close() error  { return s.src.Close() }

func groupKey(row core.Row, n int) []interface{} {
	if n <= 0 || n > len(row) {
		if n > len(row) {
			n = len(row)
		} else {
			return nil
		}
	}
	key := make([]interface{}, n)
	copy(key, row[:n])
	return key
}

func sameGroupKey(key []interface{}, row core.Row, n int) bool {
	if n <= 0 {
		return true
	}
	if n > len(row) {
		return false
	}
	for i := 0; i < n; i++ {
		if !reflect.DeepEqual(key[i], row[i]) {
			return false
		}
	}
	return true
}

// genericAggregateTable is the core.Table.Aggregate fallback used by
// our own synthetic (non-storage-engine) tables: it has no partition
// key available at this interface boundary, so it treats the whole
// input as one group.
type genericAggregateTable struct {
	source core.Table
	rt     *types.TupleType
	factory core.AggregatorFactory
}

func newGenericAggregateTable(source core.Table, rt *types.TupleType, factory core.AggregatorFactory) *genericAggregateTable {
	return &genericAggregateTable{source: source, rt: rt, factory: factory}
}

func (t *genericAggregateTable) RowType() *types.TupleType { return t.rt }

func (t *genericAggregateTable) newOutputScanner(inner core.Scanner) core.Scanner {
	return driveAggregator(inner, 0, t.factory.NewAggregator(), t.rt.Len())
}

func (t *genericAggregateTable) NewScanner(txn core.Txn, args []interface{}) (core.Scanner, error) {
	inner, err := t.source.NewScanner(txn, args)
	if err != nil {
		return nil, err
	}
	return t.newOutputScanner(inner), nil
}

func (t *genericAggregateTable) NewStream(txn core.Txn, args []interface{}) (core.Scanner, error) {
	inner, err := t.source.NewStream(txn, args)
	if err != nil {
		return nil, err
	}
	return t.newOutputScanner(inner), nil
}

func (t *genericAggregateTable) QueryAll(txn core.Txn) (core.Scanner, error) {
	inner, err := t.source.QueryAll(txn)
	if err != nil {
		return nil, err
	}
	return t.newOutputScanner(inner), nil
}

func (t *genericAggregateTable) NewUpdater(core.Txn, []interface{}) (core.Updater, error) {
	return nil, aggregateErrNoUpdate
}

func (t *genericAggregateTable) View(string, []interface{}) (core.Table, error) {
	return nil, aggregateErrNoView
}

func (t *genericAggregateTable) Aggregate(rowType *types.TupleType, factory core.AggregatorFactory) (core.Table, error) {
	return newGenericAggregateTable(t, rowType, factory), nil
}

func (t *genericAggregateTable) Group(partition, order string, rowType *types.TupleType, factory core.GrouperFactory) (core.Table, error) {
	return newGenericGroupTable(t, rowType, factory), nil
}
