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
	"github.com/tupledb/querycore/core/errkit"
	"github.com/tupledb/querycore/core/expression"
	"github.com/tupledb/querycore/core/types"
)

// MappedQueryExpr is the row-by-row layer of §4.3 step 6: it applies a
// remainder filter (whatever Split couldn't push) and/or reshapes the
// row into the final projection, running in the compiler's own address
// space rather than the storage engine's.
type MappedQueryExpr struct {
	Source     RelationExpr
	FromRT     *types.TupleType // row shape Source.Build produces
	Filter     expression.Expr  // remainder filter, nil/True if none
	Projection []*expression.ProjExpr
	RT         *types.TupleType // final, excluded columns stripped
	Card       types.Cardinality
}

func (q *MappedQueryExpr) RowType() *types.TupleType      { return q.RT }
func (q *MappedQueryExpr) Cardinality() types.Cardinality { return q.Card }

func (q *MappedQueryExpr) Build(txn core.Txn, args []interface{}) (core.Table, error) {
	src, err := q.Source.Build(txn, args)
	if err != nil {
		return nil, err
	}
	return &mappedTable{plan: q, source: src, args: args}, nil
}

// mappedTable is a core.Table materialized by MappedQueryExpr: every
// scan method wraps the source's corresponding scan with row-by-row
// filter/projection.
type mappedTable struct {
	plan   *MappedQueryExpr
	source core.Table
	args   []interface{}
}

func (t *mappedTable) RowType() *types.TupleType { return t.plan.RT }

func (t *mappedTable) newScanSpan() opentracing.Span {
	return opentracing.GlobalTracer().StartSpan("plan.Map", opentracing.Tags{
		"projection": len(t.plan.Projection),
		"filtered":   t.plan.Filter != nil,
	})
}

func (t *mappedTable) NewScanner(txn core.Txn, args []interface{}) (core.Scanner, error) {
	inner, err := t.source.NewScanner(txn, args)
	if err != nil {
		return nil, err
	}
	return traced(t.newScanSpan(), newMappedScanner(inner, t.plan, t.args)), nil
}

func (t *mappedTable) NewUpdater(txn core.Txn, args []interface{}) (core.Updater, error) {
	inner, err := t.source.NewUpdater(txn, args)
	if err != nil {
		return nil, err
	}
	return &mappedUpdater{mappedScanner: newMappedScanner(inner, t.plan, t.args), inner: inner}, nil
}

func (t *mappedTable) NewStream(txn core.Txn, args []interface{}) (core.Scanner, error) {
	inner, err := t.source.NewStream(txn, args)
	if err != nil {
		return nil, err
	}
	return traced(t.newScanSpan(), newMappedScanner(inner, t.plan, t.args)), nil
}

func (t *mappedTable) QueryAll(txn core.Txn) (core.Scanner, error) {
	inner, err := t.source.QueryAll(txn)
	if err != nil {
		return nil, err
	}
	return traced(t.newScanSpan(), newMappedScanner(inner, t.plan, t.args)), nil
}

// View, Aggregate and Group on an already-mapped table have no further
// native pushdown to delegate to (the mapping happens in our own
// address space); Aggregate/Group are still meaningful (a mapper layer
// feeding an aggregator/grouper) and are implemented generically over
// this table's own Scanner by the aggregate/grouper layers, which never
// call through to this method. View has no remaining use once mapping
// has already run.
func (t *mappedTable) View(string, []interface{}) (core.Table, error) {
	return nil, errkit.ErrParse.New("view is not supported on a mapped table")
}

func (t *mappedTable) Aggregate(rowType *types.TupleType, factory core.AggregatorFactory) (core.Table, error) {
	return newGenericAggregateTable(t, rowType, factory), nil
}

func (t *mappedTable) Group(partition, order string, rowType *types.TupleType, factory core.GrouperFactory) (core.Table, error) {
	return newGenericGroupTable(t, rowType, factory), nil
}

type mappedScanner struct {
	inner core.Scanner
	plan  *MappedQueryExpr
	args  []interface{}
	cur   core.Row
	err   error
}

func newMappedScanner(inner core.Scanner, plan *MappedQueryExpr, args []interface{}) *mappedScanner {
	return &mappedScanner{inner: inner, plan: plan, args: args}
}

func (s *mappedScanner) Next() bool {
	for s.inner.Next() {
		row := s.inner.Row()
		ctx := expression.NewEvalContext(row, s.args)
		if s.plan.Filter != nil {
			v, err := s.plan.Filter.Eval(ctx)
			if err != nil {
				s.err = err
				return false
			}
			if v == nil || v == false {
				continue
			}
		}
		out, err := projectRow(ctx, s.plan.Projection)
		if err != nil {
			s.err = err
			return false
		}
		s.cur = out
		return true
	}
	s.err = s.inner.Err()
	return false
}

func (s *mappedScanner) Row() core.Row { return s.cur }
func (s *mappedScanner) Err() error    { return s.err }
func (s *mappedScanner) Close() error  { return s.inner.Close() }

type mappedUpdater struct {
	*mappedScanner
	inner core.Updater
}

func (u *mappedUpdater) Update(newRow core.Row) error { return u.inner.Update(newRow) }
func (u *mappedUpdater) Delete() error                { return u.inner.Delete() }

// projectRow evaluates every non-excluded projection against ctx,
// producing the final output row in projection order.
func projectRow(ctx *expression.EvalContext, projection []*expression.ProjExpr) (core.Row, error) {
	out := make(core.Row, 0, len(projection))
	for _, p := range projection {
		if p.Flags.Has(expression.ProjExclude) {
			continue
		}
		v, err := p.Eval(ctx)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
