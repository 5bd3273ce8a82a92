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
	"math/big"

	"github.com/shopspring/decimal"

	"github.com/tupledb/querycore/core/errkit"
	"github.com/tupledb/querycore/core/types"
)

// BinOp enumerates the binary operators the grammar admits. Boolean
// "&"/"|"/"^" double as eager logical operators and as bitwise
// operators depending on operand type; Make disambiguates at
// construction time.
type BinOp int

const (
	OpAdd BinOp = iota
	OpSub
	OpMul
	OpDiv
	OpMod
	OpBitAnd // "&" over integers
	OpBitOr  // "|" over integers
	OpBitXor // "^" over integers
	OpShl
	OpShr
	OpLogAnd // "&&", always short-circuit
	OpLogOr  // "||", always short-circuit
	OpLogXor // "^" over booleans
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
)

func (op BinOp) String() string {
	return [...]string{
		"+", "-", "*", "/", "%", "&", "|", "^", "<<", ">>",
		"&&", "||", "^", "==", "!=", "<", "<=", ">", ">=",
	}[op]
}

func (op BinOp) isArithmetic() bool {
	switch op {
	case OpAdd, OpSub, OpMul, OpDiv, OpMod:
		return true
	}
	return false
}

func (op BinOp) isBitwise() bool {
	switch op {
	case OpBitAnd, OpBitOr, OpBitXor, OpShl, OpShr:
		return true
	}
	return false
}

func (op BinOp) isComparison() bool {
	switch op {
	case OpEq, OpNe, OpLt, OpLe, OpGt, OpGe:
		return true
	}
	return false
}

func (op BinOp) isShortCircuit() bool { return op == OpLogAnd || op == OpLogOr }

// BinaryOpExpr is a plain (non-filter) binary operator node: arithmetic
// or bitwise. Comparisons and short-circuit logic are represented by
// the FilterExpr subtype instead, since they participate in the
// RowFilter bridge.
type BinaryOpExpr struct {
	Op          BinOp
	Left, Right Expr
	Typ         types.Type
}

// Make builds a BinaryOpExpr (or a FilterExpr, or a constant, depending
// on the operator and operands) applying the rewrite chain from §4.1:
// common-type resolution, short-circuit lowering, XOR/EQ CNF expansion,
// constant folding, and the purity-based operand swap that minimizes
// thrown exceptions under short-circuit evaluation.
func Make(op BinOp, left, right Expr) (Expr, error) {
	commonOpKind := types.OpArith
	switch {
	case op.isComparison():
		commonOpKind = types.OpCompare
	case op == OpLogAnd || op == OpLogOr || op == OpLogXor || op == OpBitAnd || op == OpBitOr || op == OpBitXor:
		commonOpKind = types.OpLogical
		if left.Type().IsBoolean() && right.Type().IsBoolean() {
			commonOpKind = types.OpLogical
		} else {
			commonOpKind = types.OpBitwise
		}
	case op.isBitwise() || op == OpShl || op == OpShr:
		commonOpKind = types.OpBitwise
	}

	common := left.Type().CommonType(right.Type(), commonOpKind)
	if common == nil {
		return nil, errkit.ErrTypeMismatch.New("no common type for " + left.Type().String() + " " + op.String() + " " + right.Type().String())
	}

	isBooleanOp := (op == OpBitAnd || op == OpBitOr || op == OpBitXor) && common.IsBoolean()
	if op == OpLogAnd || op == OpLogOr || op == OpLogXor {
		isBooleanOp = true
	}

	if isBooleanOp || op.isComparison() {
		if isBooleanOp && !common.IsBoolean() {
			return nil, errkit.ErrTypeMismatch.New("logical operator requires boolean operands")
		}
		l, err := left.AsType(common)
		if err != nil {
			return nil, err
		}
		r, err := right.AsType(common)
		if err != nil {
			return nil, err
		}

		// Step 2: lower eager & / | to short-circuit && / || when both
		// operands are pure (pure operands have nothing to gain from
		// eager evaluation, and short-circuiting avoids unnecessary
		// work/exceptions).
		if op == OpBitAnd && isBooleanOp && purityOfAll(l, r) {
			op = OpLogAnd
		} else if op == OpBitOr && isBooleanOp && purityOfAll(l, r) {
			op = OpLogOr
		}

		// Step 3: expand boolean ==/!=/^ into CNF-friendly AND/OR/NOT
		// form when both operands are pure and support negation, so the
		// planner's CNF pass can split them.
		if common.IsBoolean() && (op == OpLogXor || op == OpBitXor || op == OpEq || op == OpNe) && purityOfAll(l, r) {
			if expanded, ok, err := expandBooleanEquivalence(op, l, r); err != nil {
				return nil, err
			} else if ok {
				return expanded, nil
			}
		}

		folded, ok, err := constantFoldLogicalOrCompare(op, l, r, common)
		if err != nil {
			return nil, err
		}
		if ok {
			return folded, nil
		}

		if op.isShortCircuit() {
			l, r = swapForExceptionMinimization(l, r)
		}

		return &FilterExpr{BinaryOpExpr: BinaryOpExpr{Op: op, Left: l, Right: r, Typ: common}}, nil
	}

	l, err := left.AsType(common)
	if err != nil {
		return nil, err
	}
	r, err := right.AsType(common)
	if err != nil {
		return nil, err
	}

	if folded, ok := constantFoldArith(op, l, r, common); ok {
		return folded, nil
	}

	return &BinaryOpExpr{Op: op, Left: l, Right: r, Typ: common}, nil
}

// expandBooleanEquivalence implements a^b <=> (!a&&b)||(a&&!b) and
// a==b <=> (a||!b)&&(!a||b); a!=b is the negation of a==b's expansion.
func expandBooleanEquivalence(op BinOp, a, b Expr) (Expr, bool, error) {
	notA, err := MakeNot(a)
	if err != nil {
		return nil, false, nil // a doesn't support negation; fall through to plain form
	}
	notB, err := MakeNot(b)
	if err != nil {
		return nil, false, nil
	}

	switch op {
	case OpLogXor, OpBitXor:
		left, err := Make(OpLogAnd, notA, b)
		if err != nil {
			return nil, false, err
		}
		right, err := Make(OpLogAnd, a, notB)
		if err != nil {
			return nil, false, err
		}
		res, err := Make(OpLogOr, left, right)
		return res, true, err
	case OpEq:
		left, err := Make(OpLogOr, a, notB)
		if err != nil {
			return nil, false, err
		}
		right, err := Make(OpLogOr, notA, b)
		if err != nil {
			return nil, false, err
		}
		res, err := Make(OpLogAnd, left, right)
		return res, true, err
	case OpNe:
		eq, ok, err := expandBooleanEquivalence(OpEq, a, b)
		if err != nil || !ok {
			return nil, false, err
		}
		res, err := MakeNot(eq)
		return res, true, err
	default:
		return nil, false, nil
	}
}

// swapForExceptionMinimization reorders the operands of a short-circuit
// && / || so that a fallible (non-pure) subtree sits on the right,
// where it may never be evaluated.
func swapForExceptionMinimization(l, r Expr) (Expr, Expr) {
	if !l.IsPureFunction() && r.IsPureFunction() {
		return r, l
	}
	return l, r
}

func constantFoldLogicalOrCompare(op BinOp, l, r Expr, common types.Type) (Expr, bool, error) {
	lc, lok := l.(*ConstantExpr)
	rc, rok := r.(*ConstantExpr)
	if !lok && !rok {
		return nil, false, nil
	}
	if lok && rok {
		v, err := evalConstCompareOrLogic(op, lc.Value, rc.Value)
		if err != nil {
			return nil, false, err
		}
		return NewConstant(v, common), true, nil
	}
	return nil, false, nil
}

func evalConstCompareOrLogic(op BinOp, a, b interface{}) (interface{}, error) {
	if op == OpLogAnd || op == OpLogOr {
		if a == nil || b == nil {
			return nil, nil
		}
		ab, bb := a.(bool), b.(bool)
		if op == OpLogAnd {
			return ab && bb, nil
		}
		return ab || bb, nil
	}
	return nil, errNotFoldable
}

var errNotFoldable = errkit.ErrTypeMismatch.New("not constant foldable")

// constantFoldArith implements the step-4 identities: x+0, x-0, x*0,
// x*1, x/1, x%1, x&x=>x (and their commuted forms).
func constantFoldArith(op BinOp, l, r Expr, common types.Type) (Expr, bool) {
	if lc, ok := l.(*ConstantExpr); ok {
		if rc, ok := r.(*ConstantExpr); ok {
			if v, err := evalConstArith(op, lc.Value, rc.Value, common); err == nil {
				return NewConstant(v, common), true
			}
		}
	}

	switch op {
	case OpAdd:
		if l.IsZero() {
			return r, true
		}
		if r.IsZero() {
			return l, true
		}
	case OpSub:
		if r.IsZero() {
			return l, true
		}
	case OpMul:
		if l.IsZero() || r.IsZero() {
			return NewConstant(zeroValue(common), common), true
		}
		if l.IsOne() {
			return r, true
		}
		if r.IsOne() {
			return l, true
		}
	case OpDiv, OpMod:
		if r.IsOne() {
			if op == OpDiv {
				return l, true
			}
			return NewConstant(zeroValue(common), common), true
		}
	case OpBitAnd:
		if sameExpr(l, r) {
			return l, true
		}
	}
	return nil, false
}

func sameExpr(a, b Expr) bool { return a.String() == b.String() }

func zeroValue(t types.Type) interface{} {
	bt, ok := t.(types.BasicType)
	if !ok {
		return nil
	}
	switch {
	case bt.IsUnsignedInteger():
		return uint64(0)
	case bt.Code() == types.CodeBigInteger:
		return big.NewInt(0)
	case bt.Code() == types.CodeBigDecimal:
		return decimal.Zero
	case bt.Code() == types.CodeFloat:
		return float32(0)
	case bt.Code() == types.CodeDouble:
		return float64(0)
	default:
		return int64(0)
	}
}

func (e *BinaryOpExpr) Type() types.Type { return e.Typ }

func (e *BinaryOpExpr) AsType(target types.Type) (Expr, error) {
	if types.Equal(e.Typ, target) {
		return e, nil
	}
	return NewConversion(e, target), nil
}

func (e *BinaryOpExpr) MaxArgument() int { return maxArgumentOfAll(e.Left, e.Right) }
func (e *BinaryOpExpr) IsPureFunction() bool {
	return purityOfAll(e.Left, e.Right)
}
func (e *BinaryOpExpr) GatherEvalColumns(consume func(*ColumnExpr)) {
	gatherAll(consume, e.Left, e.Right)
}
func (e *BinaryOpExpr) IsNullable() bool { return e.Typ.IsNullable() }
func (e *BinaryOpExpr) IsConstant() bool { return e.Left.IsConstant() && e.Right.IsConstant() }
func (e *BinaryOpExpr) IsNull() bool     { return false }
func (e *BinaryOpExpr) IsZero() bool     { return false }
func (e *BinaryOpExpr) IsOne() bool      { return false }
func (e *BinaryOpExpr) IsRangeWithCurrent() bool { return false }
func (e *BinaryOpExpr) IsGrouping() bool         { return anyGrouping(e.Left, e.Right) }
func (e *BinaryOpExpr) IsAccumulating() bool     { return anyAccumulating(e.Left, e.Right) }
func (e *BinaryOpExpr) IsAggregating() bool      { return anyAggregating(e.Left, e.Right) }

func (e *BinaryOpExpr) Replace(repl map[Expr]Expr) Expr {
	if r, ok := repl[e]; ok {
		return r
	}
	nl, nr := e.Left.Replace(repl), e.Right.Replace(repl)
	if nl == e.Left && nr == e.Right {
		return e
	}
	made, err := Make(e.Op, nl, nr)
	if err != nil {
		return e
	}
	return made
}

func (e *BinaryOpExpr) Eval(ctx *EvalContext) (interface{}, error) {
	l, err := e.Left.Eval(ctx)
	if err != nil {
		return nil, err
	}
	r, err := e.Right.Eval(ctx)
	if err != nil {
		return nil, err
	}
	if l == nil || r == nil {
		return nil, nil
	}
	if e.Op.isBitwise() {
		return evalBitwise(e.Op, l, r, e.Typ)
	}
	return evalConstArith(e.Op, l, r, e.Typ)
}

func (e *BinaryOpExpr) String() string {
	return "(" + e.Left.String() + " " + e.Op.String() + " " + e.Right.String() + ")"
}

// FilterExpr is the comparison/short-circuit-logic subtype of
// BinaryOpExpr: the node family recognized by the filter<->expression
// bridge as a pushable atom candidate.
type FilterExpr struct {
	BinaryOpExpr
}

// Type overrides BinaryOpExpr.Type for comparisons: Typ there holds the
// widened operand type the comparison was evaluated in, not the
// result type, which is always boolean (nullable if either operand
// is, since a null operand makes the comparison's three-valued result
// unknown). Logical && / || already have boolean Typ, so they fall
// through unchanged.
func (e *FilterExpr) Type() types.Type {
	if !e.Op.isComparison() {
		return e.Typ
	}
	if e.Left.IsNullable() || e.Right.IsNullable() {
		return types.Boolean.Nullable()
	}
	return types.Boolean
}

func (e *FilterExpr) AsType(target types.Type) (Expr, error) {
	if types.Equal(e.Type(), target) {
		return e, nil
	}
	return NewConversion(e, target), nil
}

func (e *FilterExpr) Negate(widening bool) (Expr, error) {
	negated, ok := negatedOp(e.Op)
	if !ok {
		return &NotExpr{wrapped: wrapped{Child: e}}, nil
	}
	if widening && e.Op.isComparison() && (e.Left.IsNullable() || e.Right.IsNullable()) {
		// A three-valued (nullable) comparison's negation is not a
		// total complement (NULL stays NULL either way), but the
		// caller asked for a widened/total negation; fall back to a
		// generic NotExpr rather than silently changing null semantics.
		return &NotExpr{wrapped: wrapped{Child: e}}, nil
	}
	return Make(negated, e.Left, e.Right)
}

func negatedOp(op BinOp) (BinOp, bool) {
	switch op {
	case OpEq:
		return OpNe, true
	case OpNe:
		return OpEq, true
	case OpLt:
		return OpGe, true
	case OpLe:
		return OpGt, true
	case OpGt:
		return OpLe, true
	case OpGe:
		return OpLt, true
	default:
		return 0, false
	}
}

func (e *FilterExpr) Eval(ctx *EvalContext) (interface{}, error) {
	if e.Op == OpLogAnd || e.Op == OpLogOr {
		l, err := e.Left.Eval(ctx)
		if err != nil {
			return nil, err
		}
		if e.Op == OpLogAnd {
			if l == false {
				return false, nil
			}
		} else {
			if l == true {
				return true, nil
			}
		}
		r, err := e.Right.Eval(ctx)
		if err != nil {
			return nil, err
		}
		if l == nil || r == nil {
			if e.Op == OpLogAnd && (l == false || r == false) {
				return false, nil
			}
			if e.Op == OpLogOr && (l == true || r == true) {
				return true, nil
			}
			return nil, nil
		}
		return r, nil
	}

	l, err := e.Left.Eval(ctx)
	if err != nil {
		return nil, err
	}
	r, err := e.Right.Eval(ctx)
	if err != nil {
		return nil, err
	}
	if l == nil || r == nil {
		return nil, nil
	}
	return evalCompare(e.Op, l, r)
}
