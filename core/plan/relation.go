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

// Package plan implements the query planner described in §4.3-4.5: it
// turns a parsed {projection} filter query into a layered RelationExpr
// pipeline (pushed-down view, row-by-row mapper, aggregator, grouper)
// and compiles that pipeline into a core.CompiledQuery.
package plan

import (
	"github.com/tupledb/querycore/core"
	"github.com/tupledb/querycore/core/types"
)

// RelationExpr is one layer of the planned pipeline. Build materializes
// this layer into a concrete core.Table given the caller's transaction
// handle and full argument list.
type RelationExpr interface {
	RowType() *types.TupleType
	Cardinality() types.Cardinality
	Build(txn core.Txn, args []interface{}) (core.Table, error)
}

// TableExpr is the pipeline's root: a fixed, caller-supplied source
// table. Cardinality starts at MANY (no filter has narrowed it yet).
type TableExpr struct {
	Source core.Table
}

func NewTableExpr(source core.Table) *TableExpr { return &TableExpr{Source: source} }

func (t *TableExpr) RowType() *types.TupleType { return t.Source.RowType() }
func (t *TableExpr) Cardinality() types.Cardinality { return types.CardinalityMany }
func (t *TableExpr) Build(core.Txn, []interface{}) (core.Table, error) { return t.Source, nil }
