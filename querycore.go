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

// Package querycore compiles a "{projection} filter" query string
// against a row shape and a storage-engine Table into a reusable
// core.CompiledQuery, per §3-§4: parse, plan, and wrap the resulting
// pipeline with a process-wide compiled-artifact cache keyed by the
// query's structural identity.
package querycore

import (
	"encoding/binary"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/tupledb/querycore/core"
	"github.com/tupledb/querycore/core/cache"
	"github.com/tupledb/querycore/core/expression"
	"github.com/tupledb/querycore/core/expression/function"
	"github.com/tupledb/querycore/core/keyenc"
	"github.com/tupledb/querycore/core/parse"
	"github.com/tupledb/querycore/core/plan"
	"github.com/tupledb/querycore/core/types"
)

// Compiler parses and plans query text against a fixed row shape and
// function registry, sharing compiled pipelines across calls that
// produce a structurally identical plan.
type Compiler struct {
	rowType  *types.TupleType
	registry *function.FunctionFinder
	cache    *cache.Cache
	log      *logrus.Entry
}

// NewCompiler builds a Compiler over rowType. A nil registry uses
// function.NewRegistry's built-ins. Diagnostics are discarded until
// SetLogger is called.
func NewCompiler(rowType *types.TupleType, registry *function.FunctionFinder) *Compiler {
	if registry == nil {
		registry = function.NewRegistry()
	}
	l := logrus.New()
	l.SetOutput(io.Discard)
	return &Compiler{rowType: rowType, registry: registry, cache: cache.New(nil), log: logrus.NewEntry(l)}
}

// SetLogger directs the Compiler's own compile-time diagnostics (and,
// since plan.Make shares the same concern, the planner's pushdown
// decisions) to log. A nil log restores the discarding default. It
// does not affect the compiled-artifact cache's own logger, set at
// construction.
func (c *Compiler) SetLogger(log *logrus.Entry) {
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = logrus.NewEntry(l)
	}
	c.log = log
	plan.SetLogger(log)
}

// Compile parses text, plans it against source, and returns the
// resulting CompiledQuery. Two calls with structurally identical
// parsed (projection, filter) pairs share the same planned pipeline,
// released back to the cache when the returned Handle is released.
// Pairs that differ only in the literal values compared against (e.g.
// "id > 1" vs "id > 2") also share a pipeline: their literals are
// canonicalized into trailing arguments before the cache key is
// derived, and the returned CompiledQuery transparently supplies those
// values on every call.
func (c *Compiler) Compile(text string, source core.Table) (core.CompiledQuery, *cache.Handle, error) {
	projection, filter, err := parse.Parse(text, c.rowType, c.registry)
	if err != nil {
		return nil, nil, err
	}
	argCount := maxArgumentOf(filter, projection)

	canonFilter, canonProjection, extras := canonicalizeLiterals(filter, projection, argCount)
	planArgCount := argCount + len(extras)

	key, err := planCacheKey(canonFilter, canonProjection)
	if err != nil {
		return nil, nil, err
	}

	h, err := c.cache.GetOrCreate(key, func() (interface{}, error) {
		relation, err := plan.Make(plan.NewTableExpr(source), canonFilter, canonProjection, planArgCount)
		if err != nil {
			return nil, err
		}
		return plan.NewCompiledQuery(relation, planArgCount), nil
	})
	if err != nil {
		return nil, nil, err
	}
	cq := h.Value().(core.CompiledQuery)
	c.log.WithFields(logrus.Fields{
		"arg_count":     argCount,
		"canonicalized": len(extras),
	}).Debug("query compiled")
	if len(extras) == 0 {
		return cq, h, nil
	}
	return &literalBoundQuery{CompiledQuery: cq, argCount: argCount, extras: extras}, h, nil
}

// literalBoundQuery adapts a pipeline planned with its literal
// comparison values canonicalized into trailing parameters back to the
// argument shape the caller of Compile actually declared: Table/New*
// see only the caller's own args plus the literals this particular
// Compile call extracted, while ArgumentCount still reports the
// original, pre-canonicalization count.
type literalBoundQuery struct {
	core.CompiledQuery
	argCount int
	extras   []interface{}
}

func (q *literalBoundQuery) ArgumentCount() int { return q.argCount }

func (q *literalBoundQuery) Table(args ...interface{}) (core.Table, error) {
	return q.CompiledQuery.Table(q.withExtras(args)...)
}

func (q *literalBoundQuery) NewScanner(txn core.Txn, args ...interface{}) (core.Scanner, error) {
	return q.CompiledQuery.NewScanner(txn, q.withExtras(args)...)
}

func (q *literalBoundQuery) NewUpdater(txn core.Txn, args ...interface{}) (core.Updater, error) {
	return q.CompiledQuery.NewUpdater(txn, q.withExtras(args)...)
}

func (q *literalBoundQuery) NewStream(txn core.Txn, args ...interface{}) (core.Scanner, error) {
	return q.CompiledQuery.NewStream(txn, q.withExtras(args)...)
}

func (q *literalBoundQuery) withExtras(args []interface{}) []interface{} {
	out := make([]interface{}, 0, len(args)+len(q.extras))
	out = append(out, args...)
	out = append(out, q.extras...)
	return out
}

// canonicalizeLiterals extracts every literal reachable from filter and
// projection into a trailing ParamExpr, so two queries whose trees are
// identical except for those literal values plan to the same structural
// key and share one compiled pipeline. Extracted values are returned in
// the synthesized ordinals' order, for the caller to append to its own
// argument list.
//
// Window-call frame bounds (the rows:/groups:/range: named arguments)
// are left untouched: core/expression/function resolves those via a
// constant-only evaluation at call-construction time, so turning one
// into a parameter would silently zero out the frame width rather than
// failing loudly.
func canonicalizeLiterals(filter expression.Expr, projection []*expression.ProjExpr, argCount int) (expression.Expr, []*expression.ProjExpr, []interface{}) {
	repl := make(map[expression.Expr]expression.Expr)
	var extras []interface{}
	next := argCount

	var walk func(e expression.Expr)
	walk = func(e expression.Expr) {
		switch n := e.(type) {
		case nil:
		case *expression.ConstantExpr:
			if _, ok := repl[e]; !ok {
				next++
				repl[e] = expression.NewParam(next, n.Typ)
				extras = append(extras, n.Value)
			}
		case *expression.ParamExpr, *expression.VarExpr:
		case *expression.ColumnExpr:
			if !n.IsBase() {
				walk(n.Parent)
			}
		case *expression.AssignExpr:
			walk(n.Expr)
		case *expression.ConversionExpr:
			walk(n.Child)
		case *expression.ProjExpr:
			walk(n.Child)
		case *expression.NotExpr:
			walk(n.Child)
		case *expression.NegExpr:
			walk(n.Child)
		case *expression.BinaryOpExpr:
			walk(n.Left)
			walk(n.Right)
		case *expression.FilterExpr:
			walk(n.Left)
			walk(n.Right)
		case *expression.RangeExpr:
			walk(n.Start)
			walk(n.End)
		case *expression.InExpr:
			walk(n.Value)
			walk(n.Range)
		case *expression.CallExpr:
			for _, a := range n.Args {
				walk(a)
			}
			for k, a := range n.NamedArgs {
				if k == "rows" || k == "groups" || k == "range" {
					continue
				}
				walk(a)
			}
		}
	}

	walk(filter)
	for _, p := range projection {
		walk(p)
	}
	if len(repl) == 0 {
		return filter, projection, nil
	}

	var newFilter expression.Expr
	if filter != nil {
		newFilter = filter.Replace(repl)
	}
	newProjection := make([]*expression.ProjExpr, len(projection))
	for i, p := range projection {
		newProjection[i] = p.Replace(repl).(*expression.ProjExpr)
	}
	return newFilter, newProjection, extras
}

func maxArgumentOf(filter expression.Expr, projection []*expression.ProjExpr) int {
	best := 0
	if filter != nil {
		if m := filter.MaxArgument(); m > best {
			best = m
		}
	}
	for _, p := range projection {
		if m := p.MaxArgument(); m > best {
			best = m
		}
	}
	return best
}

// planCacheKey folds the filter and every projection expression into a
// single structural key, so that two queries whose parsed trees are
// identical (ignoring source positions) share one planned pipeline.
// Each part is encoded independently and length-prefixed, since
// keyenc.EncodeExpr only ever encodes a single expression tree.
func planCacheKey(filter expression.Expr, projection []*expression.ProjExpr) (keyenc.Key, error) {
	var buf []byte
	appendPart := func(e expression.Expr) error {
		if e == nil {
			buf = append(buf, 0)
			return nil
		}
		k, err := keyenc.EncodeExpr(e)
		if err != nil {
			return err
		}
		buf = append(buf, 1)
		buf = appendVarint(buf, int64(len(k)))
		buf = append(buf, k...)
		return nil
	}
	if err := appendPart(filter); err != nil {
		return "", err
	}
	buf = appendVarint(buf, int64(len(projection)))
	for _, p := range projection {
		if err := appendPart(p); err != nil {
			return "", err
		}
	}
	return keyenc.Key(buf), nil
}

func appendVarint(buf []byte, v int64) []byte {
	var tmp [binary.MaxVarintLen64]byte
	n := binary.PutVarint(tmp[:], v)
	return append(buf, tmp[:n]...)
}
