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

package types

import "strings"

// Column is a named, typed slot in a TupleType. Names may contain dots
// for subpath access (e.g. "addr.city"); EscapeName/UnescapeName quote
// a literal dotted identifier so it is not mistaken for a path.
type Column struct {
	Name   string
	Type   Type
	Hidden bool
}

// EscapeName quotes name if it contains a dot, so a column literally
// named "a.b" is distinguishable from a path access into column "a".
func EscapeName(name string) string {
	if strings.Contains(name, ".") {
		return "`" + strings.ReplaceAll(name, "`", "``") + "`"
	}
	return name
}

// UnescapeName reverses EscapeName.
func UnescapeName(name string) string {
	if len(name) >= 2 && name[0] == '`' && name[len(name)-1] == '`' {
		return strings.ReplaceAll(name[1:len(name)-1], "``", "`")
	}
	return name
}

// TupleType is an ordered, name-unique list of Columns with
// deterministic iteration order.
type TupleType struct {
	columns []Column
	index   map[string]int
	nullable bool
}

// NewTupleType builds a TupleType from columns in the given order.
// Column names must be unique; callers are expected to have validated
// this already (the parser/planner never constructs a TupleType with
// colliding names without first raising DuplicateBinding).
func NewTupleType(columns ...Column) *TupleType {
	idx := make(map[string]int, len(columns))
	for i, c := range columns {
		idx[c.Name] = i
	}
	return &TupleType{columns: columns, index: idx}
}

func (t *TupleType) Columns() []Column { return t.columns }

func (t *TupleType) Len() int { return len(t.columns) }

// TryColumnFor returns the column named name, or false if absent.
func (t *TupleType) TryColumnFor(name string) (Column, bool) {
	i, ok := t.index[name]
	if !ok {
		return Column{}, false
	}
	return t.columns[i], true
}

// TryFindColumn resolves a dotted path to its base column, returning
// the base column and the remaining sub-path (possibly empty).
func (t *TupleType) TryFindColumn(path string) (base Column, rest string, ok bool) {
	if c, found := t.TryColumnFor(path); found {
		return c, "", true
	}
	parts := strings.SplitN(path, ".", 2)
	if len(parts) == 0 {
		return Column{}, "", false
	}
	c, found := t.TryColumnFor(parts[0])
	if !found {
		return Column{}, "", false
	}
	if len(parts) == 2 {
		return c, parts[1], true
	}
	return c, "", true
}

// Matches reports whether every column named in projection exists in t
// with a compatible (assignable) type.
func (t *TupleType) Matches(projection []string) bool {
	for _, name := range projection {
		if _, ok := t.TryColumnFor(name); !ok {
			return false
		}
	}
	return true
}

// CanRepresent reports whether t has at least the columns named in
// projection (ignoring hidden columns that aren't requested).
func (t *TupleType) CanRepresent(projection []string) bool {
	return t.Matches(projection)
}

// Project returns a new TupleType containing only the named columns,
// in the requested order.
func (t *TupleType) Project(projection []string) *TupleType {
	cols := make([]Column, 0, len(projection))
	for _, name := range projection {
		if c, ok := t.TryColumnFor(name); ok {
			cols = append(cols, c)
		}
	}
	return NewTupleType(cols...)
}

func (t *TupleType) IsNullable() bool  { return t.nullable }
func (t *TupleType) Nullable() Type {
	n := *t
	n.nullable = true
	return &n
}
func (t *TupleType) NotNullable() Type {
	n := *t
	n.nullable = false
	return &n
}
func (t *TupleType) IsBoolean() bool         { return false }
func (t *TupleType) IsInteger() bool         { return false }
func (t *TupleType) IsNumber() bool          { return false }
func (t *TupleType) IsUnsignedInteger() bool { return false }

func (t *TupleType) CommonType(other Type, _ Op) Type {
	if Equal(t, other) {
		return t
	}
	return nil
}

func (t *TupleType) String() string {
	var b strings.Builder
	b.WriteByte('{')
	for i, c := range t.columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(EscapeName(c.Name))
	}
	b.WriteByte('}')
	return b.String()
}

func (t *TupleType) equalsType(o Type) bool {
	other, ok := o.(*TupleType)
	if !ok || len(other.columns) != len(t.columns) || other.nullable != t.nullable {
		return false
	}
	for i, c := range t.columns {
		oc := other.columns[i]
		if c.Name != oc.Name || c.Hidden != oc.Hidden || !Equal(c.Type, oc.Type) {
			return false
		}
	}
	return true
}
