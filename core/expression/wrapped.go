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
	"github.com/tupledb/querycore/core/errkit"
	"github.com/tupledb/querycore/core/types"
)

// wrapped is the shared shell for single-child nodes (ConversionExpr,
// ProjExpr, NotExpr): they delegate purity, argument counting and
// column gathering to their child and only override Type/Eval/String.
type wrapped struct {
	Child Expr
}

func (w wrapped) MaxArgument() int                             { return w.Child.MaxArgument() }
func (w wrapped) IsPureFunction() bool                         { return w.Child.IsPureFunction() }
func (w wrapped) GatherEvalColumns(consume func(*ColumnExpr)) { w.Child.GatherEvalColumns(consume) }
func (w wrapped) IsConstant() bool                             { return w.Child.IsConstant() }
func (w wrapped) IsRangeWithCurrent() bool                     { return w.Child.IsRangeWithCurrent() }
func (w wrapped) IsGrouping() bool                             { return w.Child.IsGrouping() }
func (w wrapped) IsAccumulating() bool                         { return w.Child.IsAccumulating() }
func (w wrapped) IsAggregating() bool                          { return w.Child.IsAggregating() }

// ConversionExpr performs a safe type conversion of Child's value to
// Target, using the exact-arithmetic conversion primitives for numeric
// narrowing/widening and failing with TypeMismatch for incompatible
// conversions.
type ConversionExpr struct {
	wrapped
	Target types.Type
}

func NewConversion(child Expr, target types.Type) *ConversionExpr {
	return &ConversionExpr{wrapped: wrapped{Child: child}, Target: target}
}

func (e *ConversionExpr) Type() types.Type { return e.Target }

func (e *ConversionExpr) AsType(target types.Type) (Expr, error) {
	if types.Equal(e.Target, target) {
		return e, nil
	}
	return NewConversion(e.Child, target), nil
}

func (e *ConversionExpr) IsNullable() bool { return e.Target.IsNullable() }
func (e *ConversionExpr) IsNull() bool     { return e.Child.IsNull() }
func (e *ConversionExpr) IsZero() bool     { return e.Child.IsZero() }
func (e *ConversionExpr) IsOne() bool      { return e.Child.IsOne() }

func (e *ConversionExpr) Replace(repl map[Expr]Expr) Expr {
	if r, ok := repl[e]; ok {
		return r
	}
	nc := e.Child.Replace(repl)
	if nc == e.Child {
		return e
	}
	return NewConversion(nc, e.Target)
}

func (e *ConversionExpr) Eval(ctx *EvalContext) (interface{}, error) {
	v, err := e.Child.Eval(ctx)
	if err != nil {
		return nil, err
	}
	return Convert(v, e.Child.Type(), e.Target)
}

func (e *ConversionExpr) String() string { return "convert(" + e.Child.String() + ", " + e.Target.String() + ")" }

// ProjFlag is a bitset entry on ProjExpr.
type ProjFlag int

const (
	ProjOrderBy ProjFlag = 1 << iota
	ProjDescending
	ProjNullLow
	ProjExclude
)

// Has reports whether flags contains flag.
func (flags ProjFlag) Has(flag ProjFlag) bool { return flags&flag != 0 }

// ProjExpr is a projected column or derived expression with ordering
// and exclusion flags. NULL_LOW is only meaningful alongside ORDER_BY;
// EXCLUDE alongside ORDER_BY retains the column through pushdown (for
// sorting) but strips it from what the caller sees.
type ProjExpr struct {
	wrapped
	Name  string
	Flags ProjFlag
}

func NewProj(name string, child Expr, flags ProjFlag) (*ProjExpr, error) {
	if flags.Has(ProjNullLow) && !flags.Has(ProjOrderBy) {
		return nil, errkit.ErrDuplicateBinding.New("NULL_LOW is only valid with ORDER_BY")
	}
	return &ProjExpr{wrapped: wrapped{Child: child}, Name: name, Flags: flags}, nil
}

func (e *ProjExpr) Type() types.Type { return e.Child.Type() }

func (e *ProjExpr) AsType(target types.Type) (Expr, error) {
	nc, err := e.Child.AsType(target)
	if err != nil {
		return nil, err
	}
	if nc == e.Child {
		return e, nil
	}
	return &ProjExpr{wrapped: wrapped{Child: nc}, Name: e.Name, Flags: e.Flags}, nil
}

func (e *ProjExpr) IsNullable() bool { return e.Child.IsNullable() }
func (e *ProjExpr) IsNull() bool     { return e.Child.IsNull() }
func (e *ProjExpr) IsZero() bool     { return e.Child.IsZero() }
func (e *ProjExpr) IsOne() bool      { return e.Child.IsOne() }

func (e *ProjExpr) Replace(repl map[Expr]Expr) Expr {
	if r, ok := repl[e]; ok {
		return r
	}
	nc := e.Child.Replace(repl)
	if nc == e.Child {
		return e
	}
	return &ProjExpr{wrapped: wrapped{Child: nc}, Name: e.Name, Flags: e.Flags}
}

func (e *ProjExpr) Eval(ctx *EvalContext) (interface{}, error) { return e.Child.Eval(ctx) }

func (e *ProjExpr) String() string {
	prefix := ""
	if e.Flags.Has(ProjExclude) {
		prefix += "~"
	}
	if e.Flags.Has(ProjOrderBy) {
		if e.Flags.Has(ProjDescending) {
			prefix += "-"
		} else {
			prefix += "+"
		}
		if e.Flags.Has(ProjNullLow) {
			prefix += "!"
		}
	}
	if e.Name == "" {
		return prefix + e.Child.String()
	}
	return prefix + types.EscapeName(e.Name) + " = " + e.Child.String()
}

// NotExpr is the generic logical negation wrapper used when Child does
// not implement Negatable (and thus cannot rewrite itself in place,
// e.g. flip a comparison operator).
type NotExpr struct {
	wrapped
}

// MakeNot builds the negation of child, preferring child's own
// Negatable rewrite (widening=false, since NotExpr.make never needs to
// widen the type: boolean negation stays boolean) and falling back to a
// NotExpr wrapper.
func MakeNot(child Expr) (Expr, error) {
	if !child.Type().IsBoolean() {
		return nil, errkit.ErrTypeMismatch.New("not() requires a boolean operand")
	}
	if n, ok := child.(Negatable); ok {
		return n.Negate(false)
	}
	if ne, ok := child.(*NotExpr); ok {
		return ne.Child, nil
	}
	return &NotExpr{wrapped: wrapped{Child: child}}, nil
}

func (e *NotExpr) Type() types.Type { return types.Boolean.CommonType(e.Child.Type(), types.OpLogical) }

func (e *NotExpr) AsType(target types.Type) (Expr, error) {
	if types.Equal(e.Type(), target) {
		return e, nil
	}
	return NewConversion(e, target), nil
}

func (e *NotExpr) IsNullable() bool { return e.Child.IsNullable() }
func (e *NotExpr) IsNull() bool     { return e.Child.IsNull() }
func (e *NotExpr) IsZero() bool     { return false }
func (e *NotExpr) IsOne() bool      { return false }

func (e *NotExpr) Replace(repl map[Expr]Expr) Expr {
	if r, ok := repl[e]; ok {
		return r
	}
	nc := e.Child.Replace(repl)
	if nc == e.Child {
		return e
	}
	made, err := MakeNot(nc)
	if err != nil {
		return e
	}
	return made
}

func (e *NotExpr) Negate(widening bool) (Expr, error) { return e.Child, nil }

func (e *NotExpr) Eval(ctx *EvalContext) (interface{}, error) {
	v, err := e.Child.Eval(ctx)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, nil
	}
	return !v.(bool), nil
}

func (e *NotExpr) String() string { return "!" + e.Child.String() }

// NegExpr is arithmetic negation (-x). Constant children fold
// immediately in MakeNeg rather than wrapping, same as BinaryOpExpr's
// constant-folding identities.
type NegExpr struct {
	wrapped
}

// MakeNeg builds the arithmetic negation of child, folding constants
// immediately.
func MakeNeg(child Expr) (Expr, error) {
	if !child.Type().IsNumber() {
		return nil, errkit.ErrTypeMismatch.New("unary - requires a numeric operand")
	}
	if c, ok := child.(*ConstantExpr); ok && c.Value != nil {
		v, err := negateNumeric(c.Value, c.Typ)
		if err != nil {
			return nil, err
		}
		return NewConstant(v, c.Typ), nil
	}
	if n, ok := child.(*NegExpr); ok {
		return n.Child, nil
	}
	return &NegExpr{wrapped: wrapped{Child: child}}, nil
}

func (e *NegExpr) Type() types.Type { return e.Child.Type() }

func (e *NegExpr) AsType(target types.Type) (Expr, error) {
	if types.Equal(e.Type(), target) {
		return e, nil
	}
	return NewConversion(e, target), nil
}

func (e *NegExpr) IsNullable() bool { return e.Child.IsNullable() }
func (e *NegExpr) IsNull() bool     { return e.Child.IsNull() }
func (e *NegExpr) IsZero() bool     { return e.Child.IsZero() }
func (e *NegExpr) IsOne() bool      { return false }

func (e *NegExpr) Replace(repl map[Expr]Expr) Expr {
	if r, ok := repl[e]; ok {
		return r
	}
	nc := e.Child.Replace(repl)
	if nc == e.Child {
		return e
	}
	made, err := MakeNeg(nc)
	if err != nil {
		return e
	}
	return made
}

func (e *NegExpr) Eval(ctx *EvalContext) (interface{}, error) {
	v, err := e.Child.Eval(ctx)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, nil
	}
	return negateNumeric(v, e.Child.Type())
}

func (e *NegExpr) String() string { return "-" + e.Child.String() }
