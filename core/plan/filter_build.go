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
	"strings"

	"github.com/tupledb/querycore/core/expression"
	"github.com/tupledb/querycore/core/types"
)

// constArg is a literal value canonicalized out of a pushed filter into
// an extra trailing argument, per §4.3 step 5: the generated view()
// query string must contain no literal constants, so two structurally
// identical queries differing only in literal values share a cache key
// (§8 "Argument canonicalization").
type constArg struct {
	Value interface{}
	Type  types.Type
}

// canonicalizeArgs walks f assigning a stable "?N" ordinal to every
// atom the rendered query string references: AtomColumnToArg atoms keep
// their existing user-supplied ordinal, AtomColumnToColumn atoms need
// none, and AtomColumnToConstant atoms are assigned a new ordinal past
// argCount, with their literal value collected into extras (appended to
// the caller's argument list in assignment order at Build time).
func canonicalizeArgs(f *expression.RowFilter, argCount int) (ordinal map[*expression.FilterAtom]int, extras []constArg) {
	ordinal = map[*expression.FilterAtom]int{}
	next := argCount
	var walk func(*expression.RowFilter)
	walk = func(n *expression.RowFilter) {
		switch n.Kind {
		case expression.FilterAtomNode:
			a := n.Atom
			switch a.Kind {
			case expression.AtomColumnToArg:
				ordinal[a] = a.ArgOrdinal
			case expression.AtomColumnToConstant:
				next++
				ordinal[a] = next
				extras = append(extras, constArg{Value: a.Const, Type: a.ConstType})
			}
		case expression.FilterAnd, expression.FilterOr:
			for _, c := range n.Children {
				walk(c)
			}
		}
	}
	walk(f)
	return ordinal, extras
}

// viewArgs builds the argument array a pushed view() call receives:
// the caller's own args (sliced to argCount) followed by the
// canonicalized literal values, in assignment order.
func viewArgs(args []interface{}, argCount int, extras []constArg) []interface{} {
	out := make([]interface{}, 0, argCount+len(extras))
	if argCount <= len(args) {
		out = append(out, args[:argCount]...)
	} else {
		out = append(out, args...)
		for i := len(args); i < argCount; i++ {
			out = append(out, nil)
		}
	}
	for _, e := range extras {
		out = append(out, e.Value)
	}
	return out
}

// renderQuery builds the §6 view() query string: "{projection} filter",
// omitting either half when empty.
func renderQuery(projection []*expression.ProjExpr, filter *expression.RowFilter, ordinal map[*expression.FilterAtom]int) string {
	var b strings.Builder
	if len(projection) > 0 {
		b.WriteByte('{')
		for i, p := range projection {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(p.String())
		}
		b.WriteByte('}')
	}
	if filter != nil && !filter.IsTrivial() {
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(expression.QueryString(filter, ordinal))
	}
	return b.String()
}
