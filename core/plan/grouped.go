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
	opentracing "github.com/opentracing/opentracing-go"

	"github.com/tupledb/querycore/core"
	"github.com/tupledb/querycore/core/expression"
	"github.com/tupledb/querycore/core/types"
)

// GroupedQueryExpr is the window-function layer described in §4.5: it
// runs the Grouper protocol over Source's row stream, one call's
// GrouperState per window function referenced by Projection/Filter, and
// emits a row once every call is ready to step. Partition/order are not
// yet threaded through from groupBy/ordering metadata (tracked in
// DESIGN.md), so the whole input is treated as one partition in
// whatever order Source delivers it.
type GroupedQueryExpr struct {
	Source     RelationExpr
	Calls      []*expression.CallExpr // window calls referenced by Projection/Filter
	Projection []*expression.ProjExpr
	Filter     expression.Expr // post-window filter; nil means none
	RT         *types.TupleType
}

func (q *GroupedQueryExpr) RowType() *types.TupleType      { return q.RT }
func (q *GroupedQueryExpr) Cardinality() types.Cardinality { return types.CardinalityMany }

func (q *GroupedQueryExpr) Build(txn core.Txn, args []interface{}) (core.Table, error) {
	src, err := q.Source.Build(txn, args)
	if err != nil {
		return nil, err
	}
	return &groupedTable{plan: q, source: src, args: args}, nil
}

type groupedTable struct {
	plan   *GroupedQueryExpr
	source core.Table
	args   []interface{}
}

func (t *groupedTable) RowType() *types.TupleType { return t.plan.RT }

func (t *groupedTable) newOutputScanner(inner core.Scanner) core.Scanner {
	span := opentracing.GlobalTracer().StartSpan("plan.Window", opentracing.Tags{
		"calls": len(t.plan.Calls),
	})
	g := &genWindowGrouper{calls: t.plan.Calls, filter: t.plan.Filter, projection: t.plan.Projection, args: t.args}
	return traced(span, driveGrouper(inner, g, t.plan.RT.Len()))
}

func (t *groupedTable) NewScanner(txn core.Txn, args []interface{}) (core.Scanner, error) {
	inner, err := t.source.NewScanner(txn, args)
	if err != nil {
		return nil, err
	}
	return t.newOutputScanner(inner), nil
}

func (t *groupedTable) NewStream(txn core.Txn, args []interface{}) (core.Scanner, error) {
	inner, err := t.source.NewStream(txn, args)
	if err != nil {
		return nil, err
	}
	return t.newOutputScanner(inner), nil
}

func (t *groupedTable) QueryAll(txn core.Txn) (core.Scanner, error) {
	inner, err := t.source.QueryAll(txn)
	if err != nil {
		return nil, err
	}
	return t.newOutputScanner(inner), nil
}

func (t *groupedTable) NewUpdater(core.Txn, []interface{}) (core.Updater, error) {
	return nil, aggregateErrNoUpdate
}

func (t *groupedTable) View(string, []interface{}) (core.Table, error) {
	return nil, aggregateErrNoView
}

func (t *groupedTable) Aggregate(rowType *types.TupleType, factory core.AggregatorFactory) (core.Table, error) {
	return newGenericAggregateTable(t, rowType, factory), nil
}

func (t *groupedTable) Group(partition, order string, rowType *types.TupleType, factory core.GrouperFactory) (core.Table, error) {
	return newGenericGroupTable(t, rowType, factory), nil
}

// genWindowGrouper is the core.Grouper driven once per partition: one
// expression.GrouperState per window call, plus a buffer of every row
// seen so far so Step can evaluate the final projection against the row
// its result actually corresponds to (which lags behind the most
// recently accumulated row by the width of each call's right frame
// edge).
type genWindowGrouper struct {
	calls      []*expression.CallExpr
	filter     expression.Expr
	projection []*expression.ProjExpr
	args       []interface{}

	states map[*expression.CallExpr]expression.GrouperState
	rows   []core.Row
	curIdx int
}

func (g *genWindowGrouper) Init() {
	g.states = make(map[*expression.CallExpr]expression.GrouperState, len(g.calls))
	for _, c := range g.calls {
		ap := c.Applier.(expression.GroupedApplier)
		s := ap.NewState(c.Args, c.NamedArgs, c.Frame)
		s.Init()
		g.states[c] = s
	}
	g.rows = nil
	g.curIdx = 0
}

func (g *genWindowGrouper) Begin(firstRow core.Row) error {
	g.rows = append(g.rows, firstRow)
	ctx := expression.NewEvalContext(firstRow, g.args)
	for _, c := range g.calls {
		if err := g.states[c].Begin(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (g *genWindowGrouper) Accumulate(row core.Row) error {
	g.rows = append(g.rows, row)
	ctx := expression.NewEvalContext(row, g.args)
	for _, c := range g.calls {
		if err := g.states[c].Accumulate(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (g *genWindowGrouper) Finished() error {
	for _, c := range g.calls {
		if err := g.states[c].Finished(); err != nil {
			return err
		}
	}
	return nil
}

func (g *genWindowGrouper) Check() (bool, error) {
	for _, c := range g.calls {
		ok, err := g.states[c].Check()
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

func (g *genWindowGrouper) Step(core.Row) (core.Row, error) {
	if g.curIdx >= len(g.rows) {
		return nil, nil
	}
	row := g.rows[g.curIdx]
	g.curIdx++
	ctx := expression.NewEvalContext(row, g.args)
	repl := make(map[expression.Expr]expression.Expr, len(g.calls))
	for _, c := range g.calls {
		v, err := g.states[c].Step(ctx)
		if err != nil {
			return nil, err
		}
		repl[c] = expression.NewConstant(v, c.Type())
	}
	if g.filter != nil {
		fv, err := g.filter.Replace(repl).Eval(ctx)
		if err != nil {
			return nil, err
		}
		if fv == nil || fv == false {
			return nil, nil
		}
	}
	return projectRow(ctx, replaceProjection(g.projection, repl))
}

// driveGrouper runs the core.Grouper protocol over src, treating the
// whole stream as a single partition.
func driveGrouper(src core.Scanner, g core.Grouper, outLen int) core.Scanner {
	g.Init()
	return &grouperScanner{src: src, g: g, outLen: outLen}
}

type grouperScanner struct {
	src    core.Scanner
	g      core.Grouper
	outLen int

	started bool
	finished bool
	pendingOut []core.Row
	cur core.Row
	err error
}

func (s *grouperScanner) fillFrom(row core.Row) bool {
	var err error
	if !s.started {
		s.started = true
		err = s.g.Begin(row)
	} else {
		err = s.g.Accumulate(row)
	}
	if err != nil {
		s.err = err
		return false
	}
	for {
		ok, cerr := s.g.Check()
		if cerr != nil {
			s.err = cerr
			return false
		}
		if !ok {
			return true
		}
		out, serr := s.g.Step(make(core.Row, s.outLen))
		if serr != nil {
			s.err = serr
			return false
		}
		if out != nil {
			s.pendingOut = append(s.pendingOut, out)
		}
	}
}

func (s *grouperScanner) Next() bool {
	for {
		if len(s.pendingOut) > 0 {
			s.cur, s.pendingOut = s.pendingOut[0], s.pendingOut[1:]
			return true
		}
		if s.err != nil {
			return false
		}
		if s.finished {
			return false
		}
		if s.src.Next() {
			if !s.fillFrom(s.src.Row()) {
				return false
			}
			continue
		}
		if err := s.src.Err(); err != nil {
			s.err = err
			return false
		}
		s.finished = true
		if s.started {
			if err := s.g.Finished(); err != nil {
				s.err = err
				return false
			}
			for {
				ok, cerr := s.g.Check()
				if cerr != nil {
					s.err = cerr
					return false
				}
				if !ok {
					break
				}
				out, serr := s.g.Step(make(core.Row, s.outLen))
				if serr != nil {
					s.err = serr
					return false
				}
				if out != nil {
					s.pendingOut = append(s.pendingOut, out)
				}
			}
		}
	}
}

func (s *grouperScanner) Row() core.Row { return s.cur }
func (s *grouperScanner) Err() error    { return s.err }
func (s *grouperScanner) Close() error  { return s.src.Close() }

// genericGroupTable is the core.Table.Group fallback used by our own
// synthetic (non-storage-engine) tables, per the same single-partition
// simplification genericAggregateTable uses for Aggregate.
type genericGroupTable struct {
	source  core.Table
	rt      *types.TupleType
	factory core.GrouperFactory
}

func newGenericGroupTable(source core.Table, rt *types.TupleType, factory core.GrouperFactory) *genericGroupTable {
	return &genericGroupTable{source: source, rt: rt, factory: factory}
}

func (t *genericGroupTable) RowType() *types.TupleType { return t.rt }

func (t *genericGroupTable) newOutputScanner(inner core.Scanner) core.Scanner {
	return driveGrouper(inner, t.factory.NewGrouper(), t.rt.Len())
}

func (t *genericGroupTable) NewScanner(txn core.Txn, args []interface{}) (core.Scanner, error) {
	inner, err := t.source.NewScanner(txn, args)
	if err != nil {
		return nil, err
	}
	return t.newOutputScanner(inner), nil
}

func (t *genericGroupTable) NewStream(txn core.Txn, args []interface{}) (core.Scanner, error) {
	inner, err := t.source.NewStream(txn, args)
	if err != nil {
		return nil, err
	}
	return t.newOutputScanner(inner), nil
}

func (t *genericGroupTable) QueryAll(txn core.Txn) (core.Scanner, error) {
	inner, err := t.source.QueryAll(txn)
	if err != nil {
		return nil, err
	}
	return t.newOutputScanner(inner), nil
}

func (t *genericGroupTable) NewUpdater(core.Txn, []interface{}) (core.Updater, error) {
	return nil, aggregateErrNoUpdate
}

func (t *genericGroupTable) View(string, []interface{}) (core.Table, error) {
	return nil, aggregateErrNoView
}

func (t *genericGroupTable) Aggregate(rowType *types.TupleType, factory core.AggregatorFactory) (core.Table, error) {
	return newGenericAggregateTable(t, rowType, factory), nil
}

func (t *genericGroupTable) Group(partition, order string, rowType *types.TupleType, factory core.GrouperFactory) (core.Table, error) {
	return newGenericGroupTable(t, rowType, factory), nil
}
