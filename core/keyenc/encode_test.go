package keyenc

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tupledb/querycore/core/expression"
	"github.com/tupledb/querycore/core/types"
)

func TestKeyStableUnderStructuralEquality(t *testing.T) {
	mkFilter := func(lit int64) expression.Expr {
		col := expression.NewBaseColumn(nil, 0, &types.Column{Name: "salary", Type: types.Double})
		bin, err := expression.Make(expression.OpGt, col, expression.NewConstant(lit, types.Long))
		require.NoError(t, err)
		return bin
	}

	k1, err := EncodeExpr(mkFilter(5))
	require.NoError(t, err)
	k2, err := EncodeExpr(mkFilter(5))
	require.NoError(t, err)
	require.Equal(t, k1, k2, "structurally identical expressions must encode to the same key")

	k3, err := EncodeExpr(mkFilter(6))
	require.NoError(t, err)
	require.NotEqual(t, k1, k3, "literal value differences must change the key")
}

func TestKeyDistinguishesShape(t *testing.T) {
	col := expression.NewBaseColumn(nil, 0, &types.Column{Name: "id", Type: types.Long})
	a, err := expression.Make(expression.OpAdd, col, expression.NewConstant(int64(1), types.Long))
	require.NoError(t, err)
	b, err := expression.Make(expression.OpSub, col, expression.NewConstant(int64(1), types.Long))
	require.NoError(t, err)

	ka, err := EncodeExpr(a)
	require.NoError(t, err)
	kb, err := EncodeExpr(b)
	require.NoError(t, err)
	require.NotEqual(t, ka, kb)
}
