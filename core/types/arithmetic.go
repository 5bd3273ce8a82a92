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

import (
	"math/big"

	"github.com/shopspring/decimal"

	"github.com/tupledb/querycore/core/errkit"
)

// DecimalDivisionScale is the fixed precision (number of digits after
// the point) used by BigDecimal division, matching the "fixed
// precision (64-bit decimal)" rule from the exact-arithmetic spec.
const DecimalDivisionScale = 16

// bitWidth reports the bit width of a fixed-width integer Code, or 0
// for codes that are not fixed-width (BigInteger is arbitrary width).
func bitWidth(code Code) int {
	switch code {
	case CodeByte, CodeUByte:
		return 8
	case CodeShort, CodeUShort:
		return 16
	case CodeInt, CodeUInt:
		return 32
	case CodeLong, CodeULong:
		return 64
	default:
		return 0
	}
}

// signedBounds returns the [min,max] big.Int bounds of a signed
// fixed-width code.
func signedBounds(code Code) (min, max *big.Int) {
	bits := bitWidth(code)
	max = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), uint(bits-1)), big.NewInt(1))
	min = new(big.Int).Neg(new(big.Int).Lsh(big.NewInt(1), uint(bits-1)))
	return
}

// unsignedBounds returns the [0,max] big.Int bounds of an unsigned
// fixed-width code.
func unsignedBounds(code Code) (min, max *big.Int) {
	bits := bitWidth(code)
	max = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), uint(bits)), big.NewInt(1))
	return big.NewInt(0), max
}

// ArithOp names the four exact-arithmetic operators plus modulo; each
// is implemented once over *big.Int and then range-checked against the
// operand Code's bounds, which is the Go expression of "extend to a
// wider accumulator for the overflow check".
type ArithOp int

const (
	ArithAdd ArithOp = iota
	ArithSub
	ArithMul
	ArithDiv
	ArithMod
)

func bigApply(op ArithOp, a, b *big.Int) (*big.Int, error) {
	switch op {
	case ArithAdd:
		return new(big.Int).Add(a, b), nil
	case ArithSub:
		return new(big.Int).Sub(a, b), nil
	case ArithMul:
		return new(big.Int).Mul(a, b), nil
	case ArithDiv:
		if b.Sign() == 0 {
			return nil, errkit.ErrArithmeticDivZero.New()
		}
		q, _ := new(big.Int).QuoRem(a, b, new(big.Int))
		return q, nil
	case ArithMod:
		if b.Sign() == 0 {
			return nil, errkit.ErrArithmeticDivZero.New()
		}
		_, r := new(big.Int).QuoRem(a, b, new(big.Int))
		return r, nil
	default:
		panic("unknown ArithOp")
	}
}

// FixedSigned performs an exact-arithmetic operation over a signed
// fixed-width integer Code, raising ArithmeticOverflow if the result
// does not fit in the target width and ArithmeticDivZero for div/mod by
// zero.
func FixedSigned(code Code, op ArithOp, a, b int64) (int64, error) {
	res, err := bigApply(op, big.NewInt(a), big.NewInt(b))
	if err != nil {
		return 0, err
	}
	min, max := signedBounds(code)
	if res.Cmp(min) < 0 || res.Cmp(max) > 0 {
		return 0, errkit.ErrArithmeticOverflow.New(code.String())
	}
	return res.Int64(), nil
}

// FixedUnsigned performs an exact-arithmetic operation over an unsigned
// fixed-width integer Code, using unsigned comparison for the bound
// check.
func FixedUnsigned(code Code, op ArithOp, a, b uint64) (uint64, error) {
	res, err := bigApply(op, new(big.Int).SetUint64(a), new(big.Int).SetUint64(b))
	if err != nil {
		return 0, err
	}
	min, max := unsignedBounds(code)
	if res.Cmp(min) < 0 || res.Cmp(max) > 0 {
		return 0, errkit.ErrArithmeticOverflow.New(code.String())
	}
	return res.Uint64(), nil
}

// BigIntegerOp performs op over arbitrary-precision integers. BigInteger
// never overflows; only div/mod by zero can fail.
func BigIntegerOp(op ArithOp, a, b *big.Int) (*big.Int, error) {
	return bigApply(op, a, b)
}

// DecimalOp performs op over shopspring/decimal values. Division uses a
// fixed DecimalDivisionScale, matching the "BigDecimal division uses a
// fixed precision" rule; add/sub/mul are exact and division by zero
// fails with ArithmeticDivZero (BigDecimal's own div-by-zero panics, so
// it is checked explicitly here instead of delegating).
func DecimalOp(op ArithOp, a, b decimal.Decimal) (decimal.Decimal, error) {
	switch op {
	case ArithAdd:
		return a.Add(b), nil
	case ArithSub:
		return a.Sub(b), nil
	case ArithMul:
		return a.Mul(b), nil
	case ArithDiv:
		if b.IsZero() {
			return decimal.Decimal{}, errkit.ErrArithmeticDivZero.New()
		}
		return a.DivRound(b, DecimalDivisionScale), nil
	case ArithMod:
		if b.IsZero() {
			return decimal.Decimal{}, errkit.ErrArithmeticDivZero.New()
		}
		return a.Mod(b), nil
	default:
		panic("unknown ArithOp")
	}
}

// MinSigned/MaxSigned/MinUnsigned/MaxUnsigned implement the min/max
// built-ins' comparison rule: plain signed comparison for signed lanes,
// unsigned comparison for unsigned lanes (min/max is defined over every
// numeric type).
func MinSigned(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}

func MaxSigned(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

func MinUnsigned(a, b uint64) uint64 {
	if a < b {
		return a
	}
	return b
}

func MaxUnsigned(a, b uint64) uint64 {
	if a > b {
		return a
	}
	return b
}
