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

// Package types implements the closed scalar/tuple/relation/range type
// lattice described by the query compiler's data model: a family of
// Type values with nullability, common-type resolution and safe
// conversion, plus the exact-arithmetic primitives layered on top of the
// numeric type codes.
package types

import "fmt"

// Code enumerates the primitive type families. The low bit of a Code's
// position in typeCodeNullable is not used directly; nullability is
// tracked on BasicType itself so that T and T.Nullable() remain
// distinct values sharing the same Code.
type Code int

const (
	CodeBoolean Code = iota
	CodeByte
	CodeShort
	CodeInt
	CodeLong
	CodeUByte
	CodeUShort
	CodeUInt
	CodeULong
	CodeFloat
	CodeDouble
	CodeBigInteger
	CodeBigDecimal
	CodeString
	CodeChar
)

func (c Code) String() string {
	switch c {
	case CodeBoolean:
		return "boolean"
	case CodeByte:
		return "byte"
	case CodeShort:
		return "short"
	case CodeInt:
		return "int"
	case CodeLong:
		return "long"
	case CodeUByte:
		return "ubyte"
	case CodeUShort:
		return "ushort"
	case CodeUInt:
		return "uint"
	case CodeULong:
		return "ulong"
	case CodeFloat:
		return "float"
	case CodeDouble:
		return "double"
	case CodeBigInteger:
		return "bigInteger"
	case CodeBigDecimal:
		return "bigDecimal"
	case CodeString:
		return "string"
	case CodeChar:
		return "char"
	default:
		return fmt.Sprintf("Code(%d)", int(c))
	}
}

// Op names the operator a commonType resolution is being performed for.
// Some lattice decisions (e.g. whether to widen to a signed type) are
// operator sensitive: comparisons only need a common representation,
// while arithmetic needs a type that can hold the result.
type Op int

const (
	OpCompare Op = iota
	OpArith
	OpLogical
	OpBitwise
)

// Type is the closed variant at the root of the data model: AnyType,
// BasicType, TupleType, RelationType and RangeType all implement it.
type Type interface {
	// IsNullable reports whether this type admits a null value.
	IsNullable() bool
	// Nullable returns the nullable peer of this type. For a type that
	// is already nullable, Nullable returns itself.
	Nullable() Type
	// NotNullable returns the non-nullable peer. For AnyType this is a
	// no-op: AnyType has no non-nullable form.
	NotNullable() Type
	IsBoolean() bool
	IsInteger() bool
	IsNumber() bool
	IsUnsignedInteger() bool
	// CommonType returns the least-upper-bound of this type and other
	// for the given operator, or nil if none exists.
	CommonType(other Type, op Op) Type
	String() string
	// equalsType is unexported so only this package's types can satisfy
	// Type's equality contract; external Type implementations are not
	// part of the closed variant described by the data model.
	equalsType(Type) bool
}

// Equal reports whether a and b are the same type. AnyType is only
// equal to itself.
func Equal(a, b Type) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.equalsType(b)
}

// anyType is the singleton top type used for untyped wildcards (e.g. a
// ColumnExpr wildcard before projection expansion assigns it a concrete
// TupleType).
type anyType struct{}

// Any is the top type.
var Any Type = anyType{}

func (anyType) IsNullable() bool       { return true }
func (anyType) Nullable() Type         { return Any }
func (anyType) NotNullable() Type      { return Any }
func (anyType) IsBoolean() bool        { return false }
func (anyType) IsInteger() bool        { return false }
func (anyType) IsNumber() bool         { return false }
func (anyType) IsUnsignedInteger() bool { return false }
func (anyType) String() string         { return "any" }
func (t anyType) equalsType(o Type) bool {
	_, ok := o.(anyType)
	return ok
}
func (t anyType) CommonType(other Type, _ Op) Type {
	if other == nil {
		return nil
	}
	return other
}
