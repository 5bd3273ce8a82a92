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

package expression

import (
	"strings"

	"github.com/tupledb/querycore/core/types"
)

// FilterAtomKind classifies a RowFilter leaf.
type FilterAtomKind int

const (
	AtomColumnToArg FilterAtomKind = iota
	AtomColumnToColumn
	AtomColumnToConstant
	AtomOpaque
)

// FilterAtom is one leaf of a RowFilter: a column compared to an
// argument, another column, or a constant, or (AtomOpaque) an arbitrary
// expression that the bridge could not decompose further. Opaque atoms
// are never pushable to storage.
type FilterAtom struct {
	Kind FilterAtomKind
	Op   BinOp

	Column      *ColumnExpr // set for all non-opaque kinds
	ArgOrdinal  int         // AtomColumnToArg
	OtherColumn *ColumnExpr // AtomColumnToColumn
	Const       interface{} // AtomColumnToConstant
	ConstType   types.Type  // AtomColumnToConstant

	Opaque Expr // AtomOpaque
}

func (a *FilterAtom) String() string {
	switch a.Kind {
	case AtomColumnToArg:
		return a.Column.String() + " " + a.Op.String() + " ?"
	case AtomColumnToColumn:
		return a.Column.String() + " " + a.Op.String() + " " + a.OtherColumn.String()
	case AtomColumnToConstant:
		return a.Column.String() + " " + a.Op.String() + " " + NewConstant(a.Const, a.ConstType).String()
	default:
		return a.Opaque.String()
	}
}

// FilterKind is the RowFilter tree's node tag.
type FilterKind int

const (
	FilterTrue FilterKind = iota
	FilterFalse
	FilterAnd
	FilterOr
	FilterAtomNode
)

// RowFilter is a boolean predicate tree whose leaves are FilterAtoms.
type RowFilter struct {
	Kind     FilterKind
	Children []*RowFilter // And/Or
	Atom     *FilterAtom  // AtomNode
}

func rfTrue() *RowFilter  { return &RowFilter{Kind: FilterTrue} }
func rfFalse() *RowFilter { return &RowFilter{Kind: FilterFalse} }
func rfAtom(a *FilterAtom) *RowFilter { return &RowFilter{Kind: FilterAtomNode, Atom: a} }

func (f *RowFilter) IsTrivial() bool { return f.Kind == FilterTrue || f.Kind == FilterFalse }

// ToRowFilter converts e into a RowFilter, recording (atom -> the
// ColumnExpr it was built from) into columns so callers can map split
// results back to the original columns they constrain.
func ToRowFilter(e Expr, columns map[*FilterAtom]*ColumnExpr) *RowFilter {
	if e == nil {
		return rfTrue()
	}
	if c, ok := e.(*ConstantExpr); ok && c.Type().IsBoolean() {
		if c.Value == true {
			return rfTrue()
		}
		if c.Value == false {
			return rfFalse()
		}
	}
	if fe, ok := e.(*FilterExpr); ok {
		switch fe.Op {
		case OpLogAnd:
			return rfAnd(ToRowFilter(fe.Left, columns), ToRowFilter(fe.Right, columns))
		case OpLogOr:
			return rfOr(ToRowFilter(fe.Left, columns), ToRowFilter(fe.Right, columns))
		default:
			if atom, ok := toAtom(fe, columns); ok {
				return rfAtom(atom)
			}
		}
	}
	atom := &FilterAtom{Kind: AtomOpaque, Opaque: e}
	return rfAtom(atom)
}

func toAtom(fe *FilterExpr, columns map[*FilterAtom]*ColumnExpr) (*FilterAtom, bool) {
	left, right := fe.Left, fe.Right
	if lc, ok := left.(*ColumnExpr); ok && lc.IsBase() {
		switch rv := right.(type) {
		case *ParamExpr:
			a := &FilterAtom{Kind: AtomColumnToArg, Op: fe.Op, Column: lc, ArgOrdinal: rv.Ordinal}
			columns[a] = lc
			return a, true
		case *ColumnExpr:
			if rv.IsBase() {
				a := &FilterAtom{Kind: AtomColumnToColumn, Op: fe.Op, Column: lc, OtherColumn: rv}
				columns[a] = lc
				return a, true
			}
		case *ConstantExpr:
			a := &FilterAtom{Kind: AtomColumnToConstant, Op: fe.Op, Column: lc, Const: rv.Value, ConstType: rv.Type()}
			columns[a] = lc
			return a, true
		}
	}
	if rc, ok := right.(*ColumnExpr); ok && rc.IsBase() {
		if lct, ok := left.(*ConstantExpr); ok {
			if flip, ok := flipComparison(fe.Op); ok {
				a := &FilterAtom{Kind: AtomColumnToConstant, Op: flip, Column: rc, Const: lct.Value, ConstType: lct.Type()}
				columns[a] = rc
				return a, true
			}
		}
	}
	return nil, false
}

func flipComparison(op BinOp) (BinOp, bool) {
	switch op {
	case OpEq:
		return OpEq, true
	case OpNe:
		return OpNe, true
	case OpLt:
		return OpGt, true
	case OpLe:
		return OpGe, true
	case OpGt:
		return OpLt, true
	case OpGe:
		return OpLe, true
	default:
		return 0, false
	}
}

func rfAnd(a, b *RowFilter) *RowFilter {
	if a.Kind == FilterFalse || b.Kind == FilterFalse {
		return rfFalse()
	}
	if a.Kind == FilterTrue {
		return b
	}
	if b.Kind == FilterTrue {
		return a
	}
	children := flattenAnd(a)
	children = append(children, flattenAnd(b)...)
	return &RowFilter{Kind: FilterAnd, Children: children}
}

func rfOr(a, b *RowFilter) *RowFilter {
	if a.Kind == FilterTrue || b.Kind == FilterTrue {
		return rfTrue()
	}
	if a.Kind == FilterFalse {
		return b
	}
	if b.Kind == FilterFalse {
		return a
	}
	children := flattenOr(a)
	children = append(children, flattenOr(b)...)
	return &RowFilter{Kind: FilterOr, Children: children}
}

func flattenAnd(f *RowFilter) []*RowFilter {
	if f.Kind == FilterAnd {
		return f.Children
	}
	return []*RowFilter{f}
}

func flattenOr(f *RowFilter) []*RowFilter {
	if f.Kind == FilterOr {
		return f.Children
	}
	return []*RowFilter{f}
}

// ToExpr reconstructs an Expr from a RowFilter, required after
// splitting (the ToExprVisitor of §4.2).
func ToExpr(f *RowFilter) (Expr, error) {
	switch f.Kind {
	case FilterTrue:
		return True, nil
	case FilterFalse:
		return False, nil
	case FilterAtomNode:
		return atomToExpr(f.Atom)
	case FilterAnd, FilterOr:
		op := OpLogAnd
		if f.Kind == FilterOr {
			op = OpLogOr
		}
		exprs := make([]Expr, len(f.Children))
		for i, c := range f.Children {
			e, err := ToExpr(c)
			if err != nil {
				return nil, err
			}
			exprs[i] = e
		}
		result := exprs[0]
		for _, e := range exprs[1:] {
			var err error
			result, err = Make(op, result, e)
			if err != nil {
				return nil, err
			}
		}
		return result, nil
	default:
		panic("unknown filter kind")
	}
}

func atomToExpr(a *FilterAtom) (Expr, error) {
	switch a.Kind {
	case AtomOpaque:
		return a.Opaque, nil
	case AtomColumnToArg:
		return Make(a.Op, a.Column, NewParam(a.ArgOrdinal, a.Column.Type()))
	case AtomColumnToColumn:
		return Make(a.Op, a.Column, a.OtherColumn)
	case AtomColumnToConstant:
		return Make(a.Op, a.Column, NewConstant(a.Const, a.ConstType))
	default:
		panic("unknown atom kind")
	}
}

// ToCNF normalizes f into conjunctive normal form (AND-of-ORs),
// distributing OR over AND. If doing so would cause a non-pure atom or
// opaque expression to be duplicated, ToCNF returns f unchanged and ok
// = false (the §8 "CNF safety" property): non-pure sub-expressions may
// not be duplicated.
func ToCNF(f *RowFilter) (*RowFilter, bool) {
	if !containsNonPure(f) {
		return distributeCNF(f), true
	}
	normalized := distributeCNF(f)
	if countAtoms(normalized) > countAtoms(f) && duplicatesNonPure(normalized) {
		return f, false
	}
	return normalized, true
}

func containsNonPure(f *RowFilter) bool {
	switch f.Kind {
	case FilterAtomNode:
		return !atomIsPure(f.Atom)
	case FilterAnd, FilterOr:
		for _, c := range f.Children {
			if containsNonPure(c) {
				return true
			}
		}
	}
	return false
}

func atomIsPure(a *FilterAtom) bool {
	if a.Kind == AtomOpaque {
		return a.Opaque.IsPureFunction()
	}
	return true
}

func countAtoms(f *RowFilter) int {
	switch f.Kind {
	case FilterAtomNode:
		return 1
	case FilterAnd, FilterOr:
		n := 0
		for _, c := range f.Children {
			n += countAtoms(c)
		}
		return n
	default:
		return 0
	}
}

// duplicatesNonPure reports whether any non-pure atom's identity
// appears more than once in the tree (by pointer identity of the
// originating FilterAtom is not preserved through distribution, so this
// checks by rendered string identity of opaque sub-expressions instead).
func duplicatesNonPure(f *RowFilter) bool {
	seen := map[string]int{}
	var walk func(*RowFilter)
	walk = func(n *RowFilter) {
		switch n.Kind {
		case FilterAtomNode:
			if !atomIsPure(n.Atom) {
				seen[n.Atom.String()]++
			}
		case FilterAnd, FilterOr:
			for _, c := range n.Children {
				walk(c)
			}
		}
	}
	walk(f)
	for _, n := range seen {
		if n > 1 {
			return true
		}
	}
	return false
}

// distributeCNF recursively rewrites f into AND-of-ORs form.
func distributeCNF(f *RowFilter) *RowFilter {
	switch f.Kind {
	case FilterAnd:
		children := make([]*RowFilter, len(f.Children))
		for i, c := range f.Children {
			children[i] = distributeCNF(c)
		}
		result := children[0]
		for _, c := range children[1:] {
			result = rfAnd(result, c)
		}
		return result
	case FilterOr:
		children := make([]*RowFilter, len(f.Children))
		for i, c := range f.Children {
			children[i] = distributeCNF(c)
		}
		result := children[0]
		for _, c := range children[1:] {
			result = distributeOr(result, c)
		}
		return result
	default:
		return f
	}
}

// distributeOr computes a OR b where a, b are already in CNF, producing
// a CNF result: (a1 ∧ a2 ∧ ...) ∨ (b1 ∧ b2 ∧ ...) => AND over all
// pairwise ORs (ai ∨ bj).
func distributeOr(a, b *RowFilter) *RowFilter {
	as := flattenAnd(a)
	bs := flattenAnd(b)
	var clauses []*RowFilter
	for _, ai := range as {
		for _, bj := range bs {
			clauses = append(clauses, rfOr(ai, bj))
		}
	}
	if len(clauses) == 0 {
		return rfTrue()
	}
	result := clauses[0]
	for _, c := range clauses[1:] {
		result = rfAnd(result, c)
	}
	return result
}

// Split partitions a CNF RowFilter's top-level AND-clauses into a
// pushable part (every clause references only columns in available and
// contains no opaque atom) and a remainder, per §4.3 step 4. Both
// results are themselves RowFilters (True when empty).
func Split(f *RowFilter, available map[string]bool) (pushable, remainder *RowFilter) {
	clauses := flattenAnd(f)
	var pushed, kept []*RowFilter
	for _, clause := range clauses {
		if clauseIsPushable(clause, available) {
			pushed = append(pushed, clause)
		} else {
			kept = append(kept, clause)
		}
	}
	return andAll(pushed), andAll(kept)
}

func andAll(clauses []*RowFilter) *RowFilter {
	if len(clauses) == 0 {
		return rfTrue()
	}
	result := clauses[0]
	for _, c := range clauses[1:] {
		result = rfAnd(result, c)
	}
	return result
}

func clauseIsPushable(clause *RowFilter, available map[string]bool) bool {
	switch clause.Kind {
	case FilterTrue, FilterFalse:
		return true
	case FilterAtomNode:
		return atomIsPushable(clause.Atom, available)
	case FilterOr:
		for _, d := range clause.Children {
			if !clauseIsPushable(d, available) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func atomIsPushable(a *FilterAtom, available map[string]bool) bool {
	if a.Kind == AtomOpaque {
		return false
	}
	if !available[a.Column.Name()] {
		return false
	}
	if a.Kind == AtomColumnToColumn && !available[a.OtherColumn.Name()] {
		return false
	}
	return true
}

// Name returns the resolved column's name, or "" for a wildcard.
func (e *ColumnExpr) Name() string {
	if e.Column == nil {
		return ""
	}
	return e.Column.Name
}

// QueryString renders the pushable RowFilter as the native view() query
// string fragment described in §6, with each column-to-arg atom
// emitting "?N" against the provided argument renumbering map (so the
// generated string contains no literal constants: UnmappedQueryExpr
// passes literals as additional arguments instead, per §4.3 step 5).
func QueryString(f *RowFilter, argOrdinal map[*FilterAtom]int) string {
	switch f.Kind {
	case FilterTrue:
		return ""
	case FilterFalse:
		return "false"
	case FilterAtomNode:
		return atomQueryString(f.Atom, argOrdinal[f.Atom])
	case FilterAnd:
		parts := make([]string, len(f.Children))
		for i, c := range f.Children {
			parts[i] = QueryString(c, argOrdinal)
		}
		return strings.Join(parts, " && ")
	case FilterOr:
		parts := make([]string, len(f.Children))
		for i, c := range f.Children {
			parts[i] = "(" + QueryString(c, argOrdinal) + ")"
		}
		return strings.Join(parts, " || ")
	default:
		return ""
	}
}

func atomQueryString(a *FilterAtom, ordinal int) string {
	switch a.Kind {
	case AtomColumnToColumn:
		return types.EscapeName(a.Column.Name()) + " " + a.Op.String() + " " + types.EscapeName(a.OtherColumn.Name())
	default:
		return types.EscapeName(a.Column.Name()) + " " + a.Op.String() + " ?" + itoa(ordinal)
	}
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
