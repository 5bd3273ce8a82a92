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
	"io"

	"github.com/sirupsen/logrus"

	"github.com/tupledb/querycore/core/expression"
	"github.com/tupledb/querycore/core/expression/function"
	"github.com/tupledb/querycore/core/types"
)

// log is the package's diagnostic logger, discarding by default; a
// host process calls SetLogger (typically via querycore.Compiler's own
// setter) to observe the planner's pushdown/mapper decisions.
var log = discardEntry()

func discardEntry() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

// SetLogger directs this package's planning diagnostics to l. A nil l
// restores the discarding default.
func SetLogger(l *logrus.Entry) {
	if l == nil {
		l = discardEntry()
	}
	log = l
}

// aggregateDefaults resolves the first() wrapping makeAggregated needs
// for every non-group column reference: first() is a built-in the
// planner itself depends on to give aggregated queries a defined value
// for those columns, not something a caller customizes per Compile, so
// a package-level registry is enough.
var aggregateDefaults = function.NewRegistry()

func wrapFirst(col *expression.ColumnExpr) (expression.Expr, error) {
	applier, err := aggregateDefaults.Resolve("first", []expression.Expr{col}, nil)
	if err != nil {
		return nil, err
	}
	return expression.NewCall("first", []expression.Expr{col}, nil, applier)
}

// Make implements §4.3's query planner: it turns a from relation, an
// optional filter and an optional projection into a layered
// RelationExpr pipeline (pushed-down view, row-by-row mapper,
// aggregator, grouper). argCount is the query's own user-facing
// argument count, the starting ordinal for literal canonicalization in
// the pushed-down layer.
func Make(from RelationExpr, filter expression.Expr, projection []*expression.ProjExpr, argCount int) (RelationExpr, error) {
	fromRT := from.RowType()

	if filter != nil && isTriviallyTrue(filter) {
		filter = nil
	}

	var calls []*expression.CallExpr
	for _, p := range projection {
		collectCalls(p.Child, &calls)
	}
	if filter != nil {
		collectCalls(filter, &calls)
	}
	var winCalls, aggCalls []*expression.CallExpr
	for _, c := range calls {
		switch c.Applier.Kind() {
		case expression.KindGrouped:
			winCalls = append(winCalls, c)
		case expression.KindAggregated:
			aggCalls = append(aggCalls, c)
		}
	}

	switch {
	case len(winCalls) > 0:
		if len(projection) == 0 {
			projection = identityProjection(fromRT)
		}
		return makeGrouped(from, filter, projection, winCalls, argCount)
	case len(aggCalls) > 0:
		if len(projection) == 0 {
			projection = identityProjection(fromRT)
		}
		return makeAggregated(from, filter, projection, aggCalls, argCount)
	default:
		// makeUnaggregated defaults an empty projection itself, only
		// when it actually needs one to build a mapper layer — an
		// unfiltered, unprojected query stays Projection==nil all the
		// way to UnmappedQueryExpr so Build's no-op case applies.
		return makeUnaggregated(from, filter, projection, argCount)
	}
}

// atomCount reports how many filter atoms f's tree holds, for logging
// pushdown/remainder size without exposing expression's own unexported
// countAtoms.
func atomCount(f *expression.RowFilter) int {
	if f == nil {
		return 0
	}
	switch f.Kind {
	case expression.FilterAtomNode:
		return 1
	case expression.FilterAnd, expression.FilterOr:
		n := 0
		for _, c := range f.Children {
			n += atomCount(c)
		}
		return n
	default:
		return 0
	}
}

func isTriviallyTrue(e expression.Expr) bool {
	if !e.IsConstant() {
		return false
	}
	v, err := e.Eval(expression.NewEvalContext(nil, nil))
	return err == nil && v == true
}

func identityProjection(rt *types.TupleType) []*expression.ProjExpr {
	cols := rt.Columns()
	out := make([]*expression.ProjExpr, 0, len(cols))
	for i, c := range cols {
		col := c
		p, _ := expression.NewProj(col.Name, expression.NewBaseColumn(rt, i, &col), 0)
		out = append(out, p)
	}
	return out
}

// collectCalls walks e looking for Aggregated/Grouped CallExprs,
// appending every one found to *out. It does not recurse into a
// matched CallExpr's own arguments (NewCall already forbids an
// aggregate/window call from depending on an accumulating
// sub-expression).
func collectCalls(e expression.Expr, out *[]*expression.CallExpr) {
	if e == nil {
		return
	}
	switch n := e.(type) {
	case *expression.CallExpr:
		if n.Applier.Kind() != expression.KindPlain {
			*out = append(*out, n)
			return
		}
		for _, a := range n.Args {
			collectCalls(a, out)
		}
		for _, a := range n.NamedArgs {
			collectCalls(a, out)
		}
	case *expression.BinaryOpExpr:
		collectCalls(n.Left, out)
		collectCalls(n.Right, out)
	case *expression.FilterExpr:
		collectCalls(n.Left, out)
		collectCalls(n.Right, out)
	case *expression.ConversionExpr:
		collectCalls(n.Child, out)
	case *expression.ProjExpr:
		collectCalls(n.Child, out)
	case *expression.NotExpr:
		collectCalls(n.Child, out)
	case *expression.NegExpr:
		collectCalls(n.Child, out)
	case *expression.RangeExpr:
		collectCalls(n.Start, out)
		collectCalls(n.End, out)
	case *expression.InExpr:
		collectCalls(n.Value, out)
		collectCalls(n.Range, out)
	case *expression.AssignExpr:
		collectCalls(n.Expr, out)
	}
}

// makeUnaggregated handles the non-aggregating, non-window case: split
// the filter into a pushable part and a remainder, build the pushed-
// down layer, and add a mapper layer when anything is left over.
func makeUnaggregated(from RelationExpr, filter expression.Expr, projection []*expression.ProjExpr, argCount int) (RelationExpr, error) {
	fromRT := from.RowType()
	available := nativeColumns(fromRT)

	var pushable, remainder *expression.RowFilter
	if filter != nil {
		rf := expression.ToRowFilter(filter, map[*expression.FilterAtom]*expression.ColumnExpr{})
		if cnf, ok := expression.ToCNF(rf); ok {
			rf = cnf
			log.Debug("filter rewritten to CNF for pushdown")
		} else {
			log.Debug("filter not in CNF form, splitting as-is")
		}
		pushable, remainder = expression.Split(rf, available)
		log.WithFields(logrus.Fields{
			"pushable_atoms":  atomCount(pushable),
			"remainder_atoms": atomCount(remainder),
		}).Debug("filter split for pushdown")
	}

	card := from.Cardinality().Filter(filter == nil)

	// An empty projection means "every column, unreshaped" — the same
	// no-op UnmappedQueryExpr.Build short-circuits on, so it never
	// forces a View() call the way a materialized identity projection
	// would.
	needsMapper := (remainder != nil && !remainder.IsTrivial()) ||
		(len(projection) > 0 && projectionChangesShape(projection, fromRT))
	log.WithField("needs_mapper", needsMapper).Debug("unaggregated query planned")

	if !needsMapper {
		rt := fromRT
		if len(projection) > 0 {
			rt = projectedType(fromRT, projection)
		}
		return &UnmappedQueryExpr{
			Source:     from,
			Filter:     pushable,
			Projection: projection,
			ArgCount:   argCount,
			RT:         rt,
			Card:       card,
		}, nil
	}

	layer := &UnmappedQueryExpr{
		Source:     from,
		Filter:     pushable,
		Projection: nil,
		ArgCount:   argCount,
		RT:         fromRT,
		Card:       card,
	}

	if len(projection) == 0 {
		projection = identityProjection(fromRT)
	}

	var remFilter expression.Expr
	if remainder != nil && !remainder.IsTrivial() {
		var err error
		remFilter, err = expression.ToExpr(remainder)
		if err != nil {
			return nil, err
		}
	}
	return &MappedQueryExpr{
		Source:     layer,
		FromRT:     fromRT,
		Filter:     remFilter,
		Projection: projection,
		RT:         projectedType(fromRT, projection),
		Card:       card,
	}, nil
}

// makeAggregated builds an AggregatedQueryExpr: the leading GroupBy
// projection columns partition the input; every non-group column
// reference is wrapped with first() so the aggregator has a defined
// per-group value for it. Calls is recomputed from the wrapped
// projection/filter rather than reusing the caller's aggCalls, since
// wrapping introduces new first() calls that also need their own
// AggregatorState.
func makeAggregated(from RelationExpr, filter expression.Expr, projection []*expression.ProjExpr, calls []*expression.CallExpr, argCount int) (RelationExpr, error) {
	fromRT := from.RowType()
	groupBy := 0
	for _, p := range projection {
		if p.Child.IsAggregating() || containsCall(p.Child, calls) {
			break
		}
		groupBy++
	}

	group := map[string]bool{}
	for _, p := range projection[:groupBy] {
		p.Child.GatherEvalColumns(func(c *expression.ColumnExpr) {
			if c.Column != nil {
				group[c.Column.Name] = true
			}
		})
	}

	wrappedProjection := make([]*expression.ProjExpr, len(projection))
	for i, p := range projection {
		child, err := expression.AsAggregate(p.Child, group, wrapFirst)
		if err != nil {
			return nil, err
		}
		if child == p.Child {
			wrappedProjection[i] = p
			continue
		}
		np, err := expression.NewProj(p.Name, child, p.Flags)
		if err != nil {
			return nil, err
		}
		wrappedProjection[i] = np
	}

	wrappedFilter := filter
	if filter != nil {
		var err error
		wrappedFilter, err = expression.AsAggregate(filter, group, wrapFirst)
		if err != nil {
			return nil, err
		}
	}

	var allCalls []*expression.CallExpr
	for _, p := range wrappedProjection {
		collectCalls(p.Child, &allCalls)
	}
	if wrappedFilter != nil {
		collectCalls(wrappedFilter, &allCalls)
	}

	return &AggregatedQueryExpr{
		Source:     from,
		GroupBy:    groupBy,
		Calls:      allCalls,
		Projection: wrappedProjection,
		Filter:     wrappedFilter,
		RT:         projectedType(fromRT, wrappedProjection),
	}, nil
}

// makeGrouped builds a GroupedQueryExpr over the full (unfiltered at
// this layer) source row stream; the window protocol itself buffers
// every row so the filter and remaining projection can be evaluated
// against the row each window result corresponds to.
func makeGrouped(from RelationExpr, filter expression.Expr, projection []*expression.ProjExpr, calls []*expression.CallExpr, argCount int) (RelationExpr, error) {
	fromRT := from.RowType()
	return &GroupedQueryExpr{
		Source:     from,
		Calls:      calls,
		Projection: projection,
		Filter:     filter,
		RT:         projectedType(fromRT, projection),
	}, nil
}

func containsCall(e expression.Expr, calls []*expression.CallExpr) bool {
	var found []*expression.CallExpr
	collectCalls(e, &found)
	for _, f := range found {
		for _, c := range calls {
			if f == c {
				return true
			}
		}
	}
	return false
}

// nativeColumns is the column-name set a source's native view() can
// filter on: every column of its row type.
func nativeColumns(rt *types.TupleType) map[string]bool {
	cols := rt.Columns()
	out := make(map[string]bool, len(cols))
	for _, c := range cols {
		out[c.Name] = true
	}
	return out
}

// projectionChangesShape reports whether projection is anything other
// than "every column of rt, in order, unexcluded, no ordering flags" —
// i.e. whether a mapper is needed purely to reshape the row even absent
// a remainder filter.
func projectionChangesShape(projection []*expression.ProjExpr, rt *types.TupleType) bool {
	cols := rt.Columns()
	if len(projection) != len(cols) {
		return true
	}
	for i, p := range projection {
		if p.Flags != 0 {
			return true
		}
		col, ok := p.Child.(*expression.ColumnExpr)
		if !ok || !col.IsBase() || col.Index != i {
			return true
		}
		if p.Name != cols[i].Name {
			return true
		}
	}
	return false
}

func projectedType(fromRT *types.TupleType, projection []*expression.ProjExpr) *types.TupleType {
	cols := make([]types.Column, 0, len(projection))
	for _, p := range projection {
		if p.Flags.Has(expression.ProjExclude) {
			continue
		}
		cols = append(cols, types.Column{Name: p.Name, Type: p.Type()})
	}
	return types.NewTupleType(cols...)
}
