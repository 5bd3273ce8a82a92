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
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"

	"github.com/tupledb/querycore/core/errkit"
	"github.com/tupledb/querycore/core/types"
)

func arithOpFor(op BinOp) types.ArithOp {
	switch op {
	case OpAdd:
		return types.ArithAdd
	case OpSub:
		return types.ArithSub
	case OpMul:
		return types.ArithMul
	case OpDiv:
		return types.ArithDiv
	case OpMod:
		return types.ArithMod
	default:
		panic("not an arithmetic op")
	}
}

// evalConstArith dispatches +,-,*,/,% to the exact-arithmetic
// primitive matching typ's numeric lane.
func evalConstArith(op BinOp, l, r interface{}, typ types.Type) (interface{}, error) {
	bt, ok := typ.(types.BasicType)
	if !ok {
		return nil, errkit.ErrTypeMismatch.New("arithmetic requires a scalar type")
	}
	aop := arithOpFor(op)

	switch bt.Code() {
	case types.CodeByte, types.CodeShort, types.CodeInt, types.CodeLong:
		li, err := toInt64(l)
		if err != nil {
			return nil, err
		}
		ri, err := toInt64(r)
		if err != nil {
			return nil, err
		}
		return types.FixedSigned(bt.Code(), aop, li, ri)
	case types.CodeUByte, types.CodeUShort, types.CodeUInt, types.CodeULong:
		lu, err := toUint64(l)
		if err != nil {
			return nil, err
		}
		ru, err := toUint64(r)
		if err != nil {
			return nil, err
		}
		return types.FixedUnsigned(bt.Code(), aop, lu, ru)
	case types.CodeBigInteger:
		lb, err := toBigInt(l)
		if err != nil {
			return nil, err
		}
		rb, err := toBigInt(r)
		if err != nil {
			return nil, err
		}
		return types.BigIntegerOp(aop, lb, rb)
	case types.CodeBigDecimal:
		ld, err := toDecimal(l)
		if err != nil {
			return nil, err
		}
		rd, err := toDecimal(r)
		if err != nil {
			return nil, err
		}
		return types.DecimalOp(aop, ld, rd)
	case types.CodeFloat:
		lf, rf := l.(float32), r.(float32)
		return evalFloat32(op, lf, rf)
	case types.CodeDouble:
		lf, rf := toFloat64(l), toFloat64(r)
		return evalFloat64(op, lf, rf)
	default:
		return nil, errkit.ErrTypeMismatch.New("non-numeric operand to arithmetic operator")
	}
}

// negateNumeric computes -v for a value already proven numeric by
// typ, via the same exact-arithmetic subtraction lane used for binary
// arithmetic: 0 - v. This keeps negation's overflow/precision behavior
// identical to subtraction rather than introducing a second code path.
func negateNumeric(v interface{}, typ types.Type) (interface{}, error) {
	bt, ok := typ.(types.BasicType)
	if !ok {
		return nil, errkit.ErrTypeMismatch.New("unary - requires a scalar type")
	}
	switch bt.Code() {
	case types.CodeByte, types.CodeShort, types.CodeInt, types.CodeLong:
		return evalConstArith(OpSub, int64(0), v, typ)
	case types.CodeUByte, types.CodeUShort, types.CodeUInt, types.CodeULong:
		return evalConstArith(OpSub, uint64(0), v, typ)
	case types.CodeBigInteger:
		return evalConstArith(OpSub, big.NewInt(0), v, typ)
	case types.CodeBigDecimal:
		return evalConstArith(OpSub, decimal.Zero, v, typ)
	case types.CodeFloat:
		return evalConstArith(OpSub, float32(0), v, typ)
	case types.CodeDouble:
		return evalConstArith(OpSub, float64(0), v, typ)
	default:
		return nil, errkit.ErrTypeMismatch.New("non-numeric operand to unary -")
	}
}

// evalFloat32/evalFloat64 use the Go runtime's own IEEE 754 semantics:
// division by zero produces +-Inf or NaN rather than an error, matching
// the "target language's IEEE semantics" rule.
func evalFloat32(op BinOp, l, r float32) (float32, error) {
	switch op {
	case OpAdd:
		return l + r, nil
	case OpSub:
		return l - r, nil
	case OpMul:
		return l * r, nil
	case OpDiv:
		return l / r, nil
	case OpMod:
		return float32(modFloat(float64(l), float64(r))), nil
	default:
		panic("unreachable")
	}
}

func evalFloat64(op BinOp, l, r float64) (float64, error) {
	switch op {
	case OpAdd:
		return l + r, nil
	case OpSub:
		return l - r, nil
	case OpMul:
		return l * r, nil
	case OpDiv:
		return l / r, nil
	case OpMod:
		return modFloat(l, r), nil
	default:
		panic("unreachable")
	}
}

func modFloat(l, r float64) float64 {
	q := l / r
	trunc := float64(int64(q))
	return l - trunc*r
}

func evalBitwise(op BinOp, l, r interface{}, typ types.Type) (interface{}, error) {
	bt, ok := typ.(types.BasicType)
	if !ok {
		return nil, errkit.ErrTypeMismatch.New("bitwise operator requires a scalar type")
	}
	if bt.IsUnsignedInteger() {
		lu, err := toUint64(l)
		if err != nil {
			return nil, err
		}
		ru, err := toUint64(r)
		if err != nil {
			return nil, err
		}
		switch op {
		case OpBitAnd:
			return lu & ru, nil
		case OpBitOr:
			return lu | ru, nil
		case OpBitXor:
			return lu ^ ru, nil
		case OpShl:
			return lu << ru, nil
		case OpShr:
			return lu >> ru, nil
		}
	}
	li, err := toInt64(l)
	if err != nil {
		return nil, err
	}
	ri, err := toInt64(r)
	if err != nil {
		return nil, err
	}
	switch op {
	case OpBitAnd:
		return li & ri, nil
	case OpBitOr:
		return li | ri, nil
	case OpBitXor:
		return li ^ ri, nil
	case OpShl:
		return li << ri, nil
	case OpShr:
		return li >> ri, nil
	}
	return nil, errkit.ErrTypeMismatch.New("unknown bitwise operator")
}

func evalCompare(op BinOp, l, r interface{}) (interface{}, error) {
	c, err := compareValues(l, r)
	if err != nil {
		return nil, err
	}
	switch op {
	case OpEq:
		return c == 0, nil
	case OpNe:
		return c != 0, nil
	case OpLt:
		return c < 0, nil
	case OpLe:
		return c <= 0, nil
	case OpGt:
		return c > 0, nil
	case OpGe:
		return c >= 0, nil
	default:
		return nil, errkit.ErrTypeMismatch.New("not a comparison operator")
	}
}

func compareValues(l, r interface{}) (int, error) {
	switch lv := l.(type) {
	case int64:
		rv, err := toInt64(r)
		if err != nil {
			return 0, err
		}
		switch {
		case lv < rv:
			return -1, nil
		case lv > rv:
			return 1, nil
		default:
			return 0, nil
		}
	case uint64:
		rv, err := toUint64(r)
		if err != nil {
			return 0, err
		}
		switch {
		case lv < rv:
			return -1, nil
		case lv > rv:
			return 1, nil
		default:
			return 0, nil
		}
	case float32:
		return compareFloat(float64(lv), toFloat64(r)), nil
	case float64:
		return compareFloat(lv, toFloat64(r)), nil
	case *big.Int:
		rv, err := toBigInt(r)
		if err != nil {
			return 0, err
		}
		return lv.Cmp(rv), nil
	case decimal.Decimal:
		rv, err := toDecimal(r)
		if err != nil {
			return 0, err
		}
		return lv.Cmp(rv), nil
	case string:
		rv, ok := r.(string)
		if !ok {
			return 0, errkit.ErrTypeMismatch.New("cannot compare string to non-string")
		}
		switch {
		case lv < rv:
			return -1, nil
		case lv > rv:
			return 1, nil
		default:
			return 0, nil
		}
	case bool:
		rv, ok := r.(bool)
		if !ok {
			return 0, errkit.ErrTypeMismatch.New("cannot compare bool to non-bool")
		}
		if lv == rv {
			return 0, nil
		}
		if !lv {
			return -1, nil
		}
		return 1, nil
	default:
		return 0, errkit.ErrTypeMismatch.New(fmt.Sprintf("uncomparable type %T", l))
	}
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func toInt64(v interface{}) (int64, error) {
	switch x := v.(type) {
	case int64:
		return x, nil
	case int:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case uint64:
		return int64(x), nil
	default:
		return 0, errkit.ErrTypeMismatch.New(fmt.Sprintf("expected integer, got %T", v))
	}
}

func toUint64(v interface{}) (uint64, error) {
	switch x := v.(type) {
	case uint64:
		return x, nil
	case uint32:
		return uint64(x), nil
	case int64:
		return uint64(x), nil
	default:
		return 0, errkit.ErrTypeMismatch.New(fmt.Sprintf("expected unsigned integer, got %T", v))
	}
}

func toFloat64(v interface{}) float64 {
	switch x := v.(type) {
	case float64:
		return x
	case float32:
		return float64(x)
	case int64:
		return float64(x)
	case uint64:
		return float64(x)
	default:
		return 0
	}
}

func toBigInt(v interface{}) (*big.Int, error) {
	switch x := v.(type) {
	case *big.Int:
		return x, nil
	case int64:
		return big.NewInt(x), nil
	case uint64:
		return new(big.Int).SetUint64(x), nil
	default:
		return nil, errkit.ErrTypeMismatch.New(fmt.Sprintf("expected big integer, got %T", v))
	}
}

func toDecimal(v interface{}) (decimal.Decimal, error) {
	switch x := v.(type) {
	case decimal.Decimal:
		return x, nil
	case int64:
		return decimal.NewFromInt(x), nil
	case uint64:
		return decimal.NewFromBigInt(new(big.Int).SetUint64(x), 0), nil
	case float64:
		return decimal.NewFromFloat(x), nil
	case *big.Int:
		return decimal.NewFromBigInt(x, 0), nil
	default:
		return decimal.Decimal{}, errkit.ErrTypeMismatch.New(fmt.Sprintf("expected decimal, got %T", v))
	}
}

// CompareValues exposes the internal value comparator to sibling
// packages (the function registry's min/max/order-sensitive window
// built-ins) without making the whole arithmetic evaluation surface
// public.
func CompareValues(l, r interface{}) (int, error) { return compareValues(l, r) }

// EvalArith exposes the internal exact-arithmetic dispatcher to the
// function registry's sum/avg built-ins.
func EvalArith(op BinOp, l, r interface{}, typ types.Type) (interface{}, error) {
	return evalConstArith(op, l, r, typ)
}
