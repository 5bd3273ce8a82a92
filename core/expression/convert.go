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
	"github.com/spf13/cast"

	"github.com/tupledb/querycore/core/errkit"
	"github.com/tupledb/querycore/core/types"
)

// Convert performs the safe type conversion backing ConversionExpr:
// exact-arithmetic bound checks for fixed-width integer narrowing/
// widening and BigInteger/BigDecimal promotion (grounded on §4.1), and
// github.com/spf13/cast for everything else (float/string coercions,
// where MySQL-style best-effort conversion rather than exact-arithmetic
// failure is the expected behavior).
func Convert(v interface{}, from, to types.Type) (interface{}, error) {
	if v == nil {
		if !to.IsNullable() {
			return nil, errkit.ErrTypeMismatch.New("cannot convert null to non-nullable type " + to.String())
		}
		return nil, nil
	}

	toBasic, ok := to.(types.BasicType)
	if !ok {
		return v, nil
	}

	switch toBasic.Code() {
	case types.CodeBoolean:
		return cast.ToBoolE(v)
	case types.CodeByte, types.CodeShort, types.CodeInt, types.CodeLong:
		return convertSigned(v, toBasic.Code())
	case types.CodeUByte, types.CodeUShort, types.CodeUInt, types.CodeULong:
		return convertUnsigned(v, toBasic.Code())
	case types.CodeFloat:
		return cast.ToFloat32E(v)
	case types.CodeDouble:
		return cast.ToFloat64E(v)
	case types.CodeBigInteger:
		return convertBigInt(v)
	case types.CodeBigDecimal:
		return convertBigDecimal(v)
	case types.CodeString:
		return cast.ToStringE(v)
	case types.CodeChar:
		s, err := cast.ToStringE(v)
		if err != nil || len(s) == 0 {
			return nil, errkit.ErrTypeMismatch.New("cannot convert to char")
		}
		return rune(s[0]), nil
	default:
		return v, nil
	}
}

func asBigInt(v interface{}) (*big.Int, error) {
	switch x := v.(type) {
	case *big.Int:
		return x, nil
	case decimal.Decimal:
		return x.Truncate(0).BigInt(), nil
	default:
		i, err := cast.ToInt64E(v)
		if err != nil {
			return nil, errkit.ErrTypeMismatch.New(fmt.Sprintf("cannot convert %T to integer", v))
		}
		return big.NewInt(i), nil
	}
}

func convertSigned(v interface{}, code types.Code) (int64, error) {
	bi, err := asBigInt(v)
	if err != nil {
		return 0, err
	}
	lo, hi := signedBoundsFor(code)
	if bi.Cmp(lo) < 0 || bi.Cmp(hi) > 0 {
		return 0, errkit.ErrArithmeticOverflow.New("conversion to " + code.String())
	}
	return bi.Int64(), nil
}

func convertUnsigned(v interface{}, code types.Code) (uint64, error) {
	bi, err := asBigInt(v)
	if err != nil {
		return 0, err
	}
	lo, hi := unsignedBoundsFor(code)
	if bi.Cmp(lo) < 0 || bi.Cmp(hi) > 0 {
		return 0, errkit.ErrArithmeticOverflow.New("conversion to " + code.String())
	}
	return bi.Uint64(), nil
}

func convertBigInt(v interface{}) (*big.Int, error) { return asBigInt(v) }

func convertBigDecimal(v interface{}) (decimal.Decimal, error) {
	switch x := v.(type) {
	case decimal.Decimal:
		return x, nil
	case *big.Int:
		return decimal.NewFromBigInt(x, 0), nil
	case float64:
		return decimal.NewFromFloat(x), nil
	case float32:
		return decimal.NewFromFloat32(x), nil
	case string:
		return decimal.NewFromString(x)
	default:
		i, err := cast.ToInt64E(v)
		if err != nil {
			return decimal.Decimal{}, errkit.ErrTypeMismatch.New(fmt.Sprintf("cannot convert %T to decimal", v))
		}
		return decimal.NewFromInt(i), nil
	}
}

// signedBoundsFor/unsignedBoundsFor duplicate the width bounds used by
// the exact-arithmetic primitives; exported from types would require
// the same computation, so they are kept local to avoid a public API
// surface only this file needs.
func signedBoundsFor(code types.Code) (lo, hi *big.Int) {
	bits := map[types.Code]uint{
		types.CodeByte: 8, types.CodeShort: 16, types.CodeInt: 32, types.CodeLong: 64,
	}[code]
	hi = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), bits-1), big.NewInt(1))
	lo = new(big.Int).Neg(new(big.Int).Lsh(big.NewInt(1), bits-1))
	return
}

func unsignedBoundsFor(code types.Code) (lo, hi *big.Int) {
	bits := map[types.Code]uint{
		types.CodeUByte: 8, types.CodeUShort: 16, types.CodeUInt: 32, types.CodeULong: 64,
	}[code]
	hi = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), bits), big.NewInt(1))
	return big.NewInt(0), hi
}
