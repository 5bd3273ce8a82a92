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

// BasicType is a scalar primitive type: a Code paired with a nullable
// bit. Two BasicType values with the same Code but different
// nullability are distinct Type values (T.Nullable() != T), matching
// the data model's "primitives map to their boxed peer" rule.
type BasicType struct {
	code     Code
	nullable bool
}

// Basic constructs a non-nullable BasicType for code.
func Basic(code Code) BasicType { return BasicType{code: code} }

func (t BasicType) Code() Code { return t.code }

func (t BasicType) IsNullable() bool { return t.nullable }

func (t BasicType) Nullable() Type {
	return BasicType{code: t.code, nullable: true}
}

func (t BasicType) NotNullable() Type {
	return BasicType{code: t.code, nullable: false}
}

func (t BasicType) IsBoolean() bool { return t.code == CodeBoolean }

func (t BasicType) IsInteger() bool {
	switch t.code {
	case CodeByte, CodeShort, CodeInt, CodeLong,
		CodeUByte, CodeUShort, CodeUInt, CodeULong, CodeBigInteger:
		return true
	default:
		return false
	}
}

func (t BasicType) IsUnsignedInteger() bool {
	switch t.code {
	case CodeUByte, CodeUShort, CodeUInt, CodeULong:
		return true
	default:
		return false
	}
}

func (t BasicType) IsNumber() bool {
	return t.IsInteger() || t.code == CodeFloat || t.code == CodeDouble || t.code == CodeBigDecimal
}

func (t BasicType) String() string {
	if t.nullable {
		return t.code.String() + "?"
	}
	return t.code.String()
}

func (t BasicType) equalsType(o Type) bool {
	other, ok := o.(BasicType)
	return ok && other.code == t.code && other.nullable == t.nullable
}

// Well-known non-nullable primitives, used pervasively by the parser,
// planner and function registry.
var (
	Boolean    = Basic(CodeBoolean)
	Byte       = Basic(CodeByte)
	Short      = Basic(CodeShort)
	Int        = Basic(CodeInt)
	Long       = Basic(CodeLong)
	UByte      = Basic(CodeUByte)
	UShort     = Basic(CodeUShort)
	UInt       = Basic(CodeUInt)
	ULong      = Basic(CodeULong)
	Float      = Basic(CodeFloat)
	Double     = Basic(CodeDouble)
	BigInt     = Basic(CodeBigInteger)
	BigDecimal = Basic(CodeBigDecimal)
	String     = Basic(CodeString)
	Char       = Basic(CodeChar)
)

// rank orders numeric codes from narrowest to widest within their
// family, used by CommonType to find the least upper bound.
var signedRank = map[Code]int{
	CodeByte: 1, CodeShort: 2, CodeInt: 3, CodeLong: 4,
}

var unsignedRank = map[Code]int{
	CodeUByte: 1, CodeUShort: 2, CodeUInt: 3, CodeULong: 4,
}

var floatRank = map[Code]int{
	CodeFloat: 1, CodeDouble: 2,
}

// CommonType computes the least-upper-bound of t and other for op, or
// nil if the two families cannot be unified. Nullability of the result
// is the OR of both operands' nullability, since a nullable operand can
// produce a null result.
func (t BasicType) CommonType(other Type, op Op) Type {
	switch o := other.(type) {
	case anyType:
		return t
	case BasicType:
		return commonBasic(t, o, op)
	default:
		return nil
	}
}

func commonBasic(a, b BasicType, op Op) Type {
	nullable := a.nullable || b.nullable
	wrap := func(code Code) Type {
		return BasicType{code: code, nullable: nullable}
	}

	if a.code == b.code {
		return wrap(a.code)
	}

	if a.code == CodeBoolean || b.code == CodeBoolean {
		if a.code == b.code {
			return wrap(CodeBoolean)
		}
		return nil
	}

	if a.code == CodeString || b.code == CodeString || a.code == CodeChar || b.code == CodeChar {
		if a.code == b.code {
			return wrap(a.code)
		}
		// string/char only unify with themselves.
		return nil
	}

	// BigDecimal/BigInteger absorb anything numeric.
	if a.code == CodeBigDecimal || b.code == CodeBigDecimal {
		if a.IsNumber() && b.IsNumber() {
			return wrap(CodeBigDecimal)
		}
		return nil
	}
	if a.code == CodeBigInteger || b.code == CodeBigInteger {
		if a.IsInteger() && b.IsInteger() {
			if (a.code == CodeBigInteger && b.code != CodeBigInteger && unsignedRank[b.code] > 0) ||
				(b.code == CodeBigInteger && a.code != CodeBigInteger && unsignedRank[a.code] > 0) {
				return wrap(CodeBigInteger)
			}
			return wrap(CodeBigInteger)
		}
		if a.IsNumber() && b.IsNumber() {
			return wrap(CodeBigDecimal)
		}
		return nil
	}

	// float/double mix with any other number by widening to double.
	if fr, ok := floatRank[a.code]; ok {
		_ = fr
		if b.IsNumber() {
			if b.code == CodeFloat || b.code == CodeDouble {
				if floatRank[a.code] >= floatRank[b.code] {
					return wrap(a.code)
				}
				return wrap(b.code)
			}
			return wrap(CodeDouble)
		}
		return nil
	}
	if _, ok := floatRank[b.code]; ok {
		return commonBasic(b, a, op)
	}

	// Mixed signed/unsigned integers: widen to a signed type one size up
	// that can hold both, per the exact-arithmetic "extend to a wider
	// accumulator" rule (byte->int, int->long, long->bignum).
	sa, signedA := signedRank[a.code]
	ua, unsignedA := unsignedRank[a.code]
	sb, signedB := signedRank[b.code]
	ub, unsignedB := unsignedRank[b.code]

	if signedA && signedB {
		if sa >= sb {
			return wrap(a.code)
		}
		return wrap(b.code)
	}
	if unsignedA && unsignedB {
		if ua >= ub {
			return wrap(a.code)
		}
		return wrap(b.code)
	}

	// one signed, one unsigned: widen to the next signed size able to
	// hold the unsigned operand exactly, defaulting to BigInteger for
	// ulong mixed with any signed type.
	if signedA && unsignedB {
		return widenMixed(sa, ub, wrap)
	}
	if signedB && unsignedA {
		return widenMixed(sb, ua, wrap)
	}

	return nil
}

func widenMixed(signedRank, unsignedRank int, wrap func(Code) Type) Type {
	needed := unsignedRank + 1 // unsigned N-bit needs signed 2N-bit to be exact
	rank := signedRank
	if needed > rank {
		rank = needed
	}
	switch rank {
	case 1:
		return wrap(CodeByte)
	case 2:
		return wrap(CodeShort)
	case 3:
		return wrap(CodeInt)
	case 4:
		return wrap(CodeLong)
	default:
		return wrap(CodeBigInteger)
	}
}
