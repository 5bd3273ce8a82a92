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

package keyenc

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/mitchellh/hashstructure"

	"github.com/tupledb/querycore/core/expression"
	"github.com/tupledb/querycore/core/types"
)

// Key is an opaque, comparable cache key: two expressions that are
// structurally equal ignoring source positions encode to the same Key,
// and (with overwhelming probability) two that differ do not.
type Key string

// Encoder accumulates an expression's canonical byte encoding. The
// zero value is ready to use.
type Encoder struct {
	buf      []byte
	visiting map[expression.Expr]bool
}

// EncodeExpr is the package's main entry point: it encodes a single
// expression tree to a Key.
func EncodeExpr(e expression.Expr) (Key, error) {
	enc := &Encoder{visiting: make(map[expression.Expr]bool)}
	if err := enc.expr(e); err != nil {
		return "", err
	}
	return Key(enc.buf), nil
}

func (enc *Encoder) byte(b byte) { enc.buf = append(enc.buf, b) }

func (enc *Encoder) kind(k NodeKind) { enc.byte(byte(k)) }

func (enc *Encoder) varint(v int64) {
	var tmp [binary.MaxVarintLen64]byte
	n := binary.PutVarint(tmp[:], v)
	enc.buf = append(enc.buf, tmp[:n]...)
}

func (enc *Encoder) str(s string) {
	enc.varint(int64(len(s)))
	enc.buf = append(enc.buf, s...)
}

func (enc *Encoder) floatBits(f float64) {
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], math.Float64bits(f))
	enc.buf = append(enc.buf, tmp[:]...)
}

func (enc *Encoder) bool(b bool) {
	if b {
		enc.byte(1)
	} else {
		enc.byte(0)
	}
}

// ref encodes an arbitrary Go value (a literal's value, a type, a
// column identity) as an identity-hash pair: the structural hash of
// the value, computed once and treated as opaque thereafter.
func (enc *Encoder) ref(v interface{}) error {
	if v == nil {
		enc.varint(0)
		return nil
	}
	h, err := hashstructure.Hash(v, nil)
	if err != nil {
		return fmt.Errorf("keyenc: hashing reference: %w", err)
	}
	enc.varint(1)
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], h)
	enc.buf = append(enc.buf, tmp[:]...)
	return nil
}

// guard wraps the encoding of a multi-part node with reentrancy
// protection: if node is already being encoded higher up the call
// stack, a cycle marker is written instead of recursing forever.
func (enc *Encoder) guard(node expression.Expr, body func() error) error {
	if enc.visiting[node] {
		enc.kind(kindCycle)
		return nil
	}
	enc.visiting[node] = true
	defer delete(enc.visiting, node)
	return body()
}

func (enc *Encoder) expr(e expression.Expr) error {
	switch n := e.(type) {
	case *expression.ConstantExpr:
		enc.kind(KindConstant)
		if err := enc.typ(n.Typ); err != nil {
			return err
		}
		return enc.ref(n.Value)

	case *expression.ParamExpr:
		enc.kind(KindParam)
		enc.varint(int64(n.Ordinal))
		return enc.typ(n.Typ)

	case *expression.ColumnExpr:
		enc.kind(KindColumn)
		return enc.guard(e, func() error {
			enc.varint(int64(n.Index))
			enc.str(n.Path)
			if n.Parent != nil {
				enc.byte(1)
				if err := enc.expr(n.Parent); err != nil {
					return err
				}
			} else {
				enc.byte(0)
			}
			if n.Column != nil {
				enc.str(n.Column.Name)
			} else {
				enc.str("*")
			}
			return nil
		})

	case *expression.VarExpr:
		enc.kind(KindVar)
		enc.str(n.Name)
		return nil

	case *expression.AssignExpr:
		enc.kind(KindAssign)
		return enc.guard(e, func() error {
			enc.str(n.Name)
			return enc.expr(n.Expr)
		})

	case *expression.ConversionExpr:
		enc.kind(KindConversion)
		return enc.guard(e, func() error {
			if err := enc.typ(n.Target); err != nil {
				return err
			}
			return enc.expr(n.Child)
		})

	case *expression.ProjExpr:
		enc.kind(KindProj)
		return enc.guard(e, func() error {
			enc.str(n.Name)
			enc.byte(byte(n.Flags))
			return enc.expr(n.Child)
		})

	case *expression.NotExpr:
		enc.kind(KindNot)
		return enc.guard(e, func() error { return enc.expr(n.Child) })

	case *expression.BinaryOpExpr:
		enc.kind(KindBinary)
		return enc.guard(e, func() error {
			enc.varint(int64(n.Op))
			if err := enc.expr(n.Left); err != nil {
				return err
			}
			return enc.expr(n.Right)
		})

	case *expression.FilterExpr:
		enc.kind(KindBinary)
		return enc.guard(e, func() error {
			enc.varint(int64(n.Op))
			if err := enc.expr(n.Left); err != nil {
				return err
			}
			return enc.expr(n.Right)
		})

	case *expression.RangeExpr:
		enc.kind(KindRange)
		return enc.guard(e, func() error {
			enc.bool(n.RelativeToCurr)
			if n.Start != nil {
				enc.byte(1)
				if err := enc.expr(n.Start); err != nil {
					return err
				}
			} else {
				enc.byte(0)
			}
			if n.End != nil {
				enc.byte(1)
				return enc.expr(n.End)
			}
			enc.byte(0)
			return nil
		})

	case *expression.InExpr:
		enc.kind(KindIn)
		return enc.guard(e, func() error {
			if err := enc.expr(n.Value); err != nil {
				return err
			}
			return enc.expr(n.Range)
		})

	case *expression.CallExpr:
		enc.kind(KindCall)
		return enc.guard(e, func() error {
			enc.str(n.Name)
			enc.varint(int64(len(n.Args)))
			for _, a := range n.Args {
				if err := enc.expr(a); err != nil {
					return err
				}
			}
			names := make([]string, 0, len(n.NamedArgs))
			for k := range n.NamedArgs {
				names = append(names, k)
			}
			sortStrings(names)
			enc.varint(int64(len(names)))
			for _, k := range names {
				enc.str(k)
				if err := enc.expr(n.NamedArgs[k]); err != nil {
					return err
				}
			}
			if n.Frame != nil {
				enc.byte(1)
				if err := enc.frame(n.Frame); err != nil {
					return err
				}
			} else {
				enc.byte(0)
			}
			return nil
		})

	default:
		return fmt.Errorf("keyenc: unsupported expression node %T", e)
	}
}

func (enc *Encoder) frame(f *expression.Frame) error {
	enc.kind(KindFrame)
	enc.varint(int64(f.Mode))
	if f.Start != nil {
		enc.byte(1)
		if err := enc.expr(f.Start); err != nil {
			return err
		}
	} else {
		enc.byte(0)
	}
	if f.End != nil {
		enc.byte(1)
		if err := enc.expr(f.End); err != nil {
			return err
		}
	} else {
		enc.byte(0)
	}
	enc.varint(int64(len(f.Ordering)))
	for i, o := range f.Ordering {
		if err := enc.expr(o); err != nil {
			return err
		}
		enc.bool(f.Desc[i])
	}
	return nil
}

// typ encodes a types.Type by its canonical string rendering, which is
// already a structural, position-free representation of the type
// lattice (nullability, element/column shape).
func (enc *Encoder) typ(t types.Type) error {
	enc.str(t.String())
	return nil
}

func sortStrings(s []string) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}
