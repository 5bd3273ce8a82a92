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
	"fmt"

	"github.com/tupledb/querycore/core"
	"github.com/tupledb/querycore/core/expression"
	"github.com/tupledb/querycore/core/types"
)

// CompiledQuery is the planner's concrete core.CompiledQuery: a
// RelationExpr pipeline closed over its own argument count.
type CompiledQuery struct {
	Relation RelationExpr
	ArgCount int
}

func NewCompiledQuery(relation RelationExpr, argCount int) *CompiledQuery {
	return &CompiledQuery{Relation: relation, ArgCount: argCount}
}

func (q *CompiledQuery) RowType() *types.TupleType { return q.Relation.RowType() }
func (q *CompiledQuery) ArgumentCount() int        { return q.ArgCount }

func (q *CompiledQuery) Table(args ...interface{}) (core.Table, error) {
	return q.Relation.Build(nil, args)
}

func (q *CompiledQuery) NewScanner(txn core.Txn, args ...interface{}) (core.Scanner, error) {
	t, err := q.Relation.Build(txn, args)
	if err != nil {
		return nil, err
	}
	return t.NewScanner(txn, args)
}

func (q *CompiledQuery) NewUpdater(txn core.Txn, args ...interface{}) (core.Updater, error) {
	t, err := q.Relation.Build(txn, args)
	if err != nil {
		return nil, err
	}
	return t.NewUpdater(txn, args)
}

func (q *CompiledQuery) NewStream(txn core.Txn, args ...interface{}) (core.Scanner, error) {
	t, err := q.Relation.Build(txn, args)
	if err != nil {
		return nil, err
	}
	return t.NewStream(txn, args)
}

func (q *CompiledQuery) ScannerPlan() (core.Plan, error) {
	return &relationPlan{op: "scan", relation: q.Relation}, nil
}

func (q *CompiledQuery) UpdaterPlan() (core.Plan, error) {
	return &relationPlan{op: "update", relation: q.Relation}, nil
}

func (q *CompiledQuery) StreamPlan() (core.Plan, error) {
	return &relationPlan{op: "stream", relation: q.Relation}, nil
}

// relationPlan renders a pipeline as a diagnostic tree, innermost
// (source) layer first, indented one level per layer out.
type relationPlan struct {
	op       string
	relation RelationExpr
}

func (p *relationPlan) String() string {
	return p.op + ":\n" + describeRelation(p.relation, 1)
}

func describeRelation(r RelationExpr, depth int) string {
	indent := ""
	for i := 0; i < depth; i++ {
		indent += "  "
	}
	switch n := r.(type) {
	case *TableExpr:
		return fmt.Sprintf("%stable %s (%s)", indent, n.RowType(), n.Cardinality())
	case *UnmappedQueryExpr:
		s := fmt.Sprintf("%sview filter=%s projection=%d cols (%s)\n", indent, filterSummary(n.Filter), len(n.RT.Columns()), n.Cardinality())
		return s + describeRelation(n.Source, depth+1)
	case *MappedQueryExpr:
		s := fmt.Sprintf("%smap filter=%v projection=%d cols (%s)\n", indent, n.Filter != nil, len(n.Projection), n.Cardinality())
		return s + describeRelation(n.Source, depth+1)
	case *AggregatedQueryExpr:
		s := fmt.Sprintf("%saggregate groupBy=%d calls=%d (%s)\n", indent, n.GroupBy, len(n.Calls), n.Cardinality())
		return s + describeRelation(n.Source, depth+1)
	case *GroupedQueryExpr:
		s := fmt.Sprintf("%swindow calls=%d (%s)\n", indent, len(n.Calls), n.Cardinality())
		return s + describeRelation(n.Source, depth+1)
	default:
		return fmt.Sprintf("%s%T", indent, r)
	}
}

func filterSummary(f *expression.RowFilter) string {
	if f == nil || f.IsTrivial() {
		return "none"
	}
	return "pushed"
}
