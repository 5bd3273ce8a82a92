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
	"github.com/tupledb/querycore/core"
	"github.com/tupledb/querycore/core/expression"
	"github.com/tupledb/querycore/core/types"
)

// UnmappedQueryExpr is the pushed-down layer of §4.3: it composes
// Source's native view(query, args) call with a pushable RowFilter and
// a projection, canonicalizing literal constants out of the generated
// query string into trailing arguments.
type UnmappedQueryExpr struct {
	Source     RelationExpr
	Filter     *expression.RowFilter // pushable part; nil/trivial means no filter pushed
	Projection []*expression.ProjExpr
	ArgCount   int // overall query argument count (not just this layer's)
	RT         *types.TupleType
	Card       types.Cardinality
}

func (q *UnmappedQueryExpr) RowType() *types.TupleType      { return q.RT }
func (q *UnmappedQueryExpr) Cardinality() types.Cardinality { return q.Card }

func (q *UnmappedQueryExpr) Build(txn core.Txn, args []interface{}) (core.Table, error) {
	src, err := q.Source.Build(txn, args)
	if err != nil {
		return nil, err
	}
	if q.Filter == nil && len(q.Projection) == 0 {
		return src, nil
	}
	filter := q.Filter
	if filter == nil {
		filter = expression.ToRowFilter(nil, nil)
	}
	ordinal, extras := canonicalizeArgs(filter, q.ArgCount)
	queryStr := renderQuery(q.Projection, filter, ordinal)
	if queryStr == "" {
		return src, nil
	}
	return src.View(queryStr, viewArgs(args, q.ArgCount, extras))
}
