package parse

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tupledb/querycore/core/expression"
	"github.com/tupledb/querycore/core/expression/function"
	"github.com/tupledb/querycore/core/types"
)

func testRowType() *types.TupleType {
	return types.NewTupleType(
		types.Column{Name: "id", Type: types.Long},
		types.Column{Name: "salary", Type: types.Double.Nullable()},
		types.Column{Name: "dept", Type: types.String},
		types.Column{Name: "active", Type: types.Boolean},
	)
}

func TestParseFilterOnly(t *testing.T) {
	rowType := testRowType()
	reg := function.NewRegistry()

	projs, filter, err := Parse("active && salary > 1000L", rowType, reg)
	require.NoError(t, err)
	require.Nil(t, projs)
	require.True(t, filter.Type().IsBoolean())
}

func TestParseProjectionsAndFilter(t *testing.T) {
	rowType := testRowType()
	reg := function.NewRegistry()

	projs, filter, err := Parse("{id, +dept, total = sum(salary)} active == true", rowType, reg)
	require.NoError(t, err)
	require.Len(t, projs, 3)
	require.Equal(t, "id", projs[0].Name)
	require.Equal(t, "dept", projs[1].Name)
	require.True(t, projs[1].Flags.Has(expression.ProjOrderBy))
	require.Equal(t, "total", projs[2].Name)
	require.NotNil(t, filter)
}

func TestParseWildcardExpandsAllColumns(t *testing.T) {
	rowType := testRowType()
	reg := function.NewRegistry()

	projs, _, err := Parse("{*}", rowType, reg)
	require.NoError(t, err)
	require.Len(t, projs, rowType.Len())
}

func TestParseWindowCallWithNamedRangeArgument(t *testing.T) {
	rowType := testRowType()
	reg := function.NewRegistry()

	projs, _, err := Parse("{id, avg3 = avg(salary, rows: -1..1)}", rowType, reg)
	require.NoError(t, err)
	require.Len(t, projs, 2)

	call, ok := projs[1].Child.(*expression.CallExpr)
	require.True(t, ok)
	rng, ok := call.NamedArgs["rows"].(*expression.RangeExpr)
	require.True(t, ok)
	require.Equal(t, "-1", rng.Start.String())
	require.Equal(t, "1", rng.End.String())
}

func TestParseUnknownColumnIsUnresolvedName(t *testing.T) {
	rowType := testRowType()
	reg := function.NewRegistry()

	_, _, err := Parse("nope > 1", rowType, reg)
	require.Error(t, err)
}

func TestParseExplicitParamOutOfRangeIsArgumentCount(t *testing.T) {
	rowType := testRowType()
	reg := function.NewRegistry()

	_, _, err := Parse("id == ?101", rowType, reg)
	require.Error(t, err)
}

func TestParseAutoNumberedParamsIncrement(t *testing.T) {
	rowType := testRowType()
	reg := function.NewRegistry()

	_, filter, err := Parse("id == ? && salary > ?", rowType, reg)
	require.NoError(t, err)
	f := filter.(*expression.FilterExpr)
	left := f.Left.(*expression.FilterExpr)
	right := f.Right.(*expression.FilterExpr)
	require.Equal(t, 1, left.Right.(*expression.ParamExpr).Ordinal)
	require.Equal(t, 2, right.Right.(*expression.ParamExpr).Ordinal)
}

// Identity parse: a query's toString rendering re-parses to an
// identical rendering.
func TestIdentityParse(t *testing.T) {
	rowType := testRowType()
	reg := function.NewRegistry()

	const q = "{id, dept} active && salary > 1000L"
	projs1, filter1, err := Parse(q, rowType, reg)
	require.NoError(t, err)

	rendered := "{"
	for i, p := range projs1 {
		if i > 0 {
			rendered += ", "
		}
		rendered += p.String()
	}
	rendered += "} " + filter1.String()

	projs2, filter2, err := Parse(rendered, rowType, reg)
	require.NoError(t, err)

	rendered2 := "{"
	for i, p := range projs2 {
		if i > 0 {
			rendered2 += ", "
		}
		rendered2 += p.String()
	}
	rendered2 += "} " + filter2.String()

	require.Equal(t, rendered, rendered2)
}
