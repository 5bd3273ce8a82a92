package expression

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tupledb/querycore/core/types"
)

func asAggRowType() *types.TupleType {
	return types.NewTupleType(
		types.Column{Name: "dept", Type: types.String},
		types.Column{Name: "salary", Type: types.Double},
		types.Column{Name: "bonus", Type: types.Double},
	)
}

func asAggCol(t *testing.T, idx int) *ColumnExpr {
	t.Helper()
	rt := asAggRowType()
	cols := rt.Columns()
	return NewBaseColumn(rt, idx, &cols[idx])
}

// markerWrap stands in for the real first() wrapper: it returns a
// constant tagged with the wrapped column's name, typed to match the
// column so callers building composite expressions around it (e.g.
// arithmetic) don't trip a type mismatch.
func markerWrap(col *ColumnExpr) (Expr, error) {
	return NewConstant("first("+col.Column.Name+")", col.Column.Type), nil
}

// fakeAggApplier is just enough of an Applier to mark a CallExpr as
// already accumulating, so AsAggregate's short-circuit can be exercised
// without pulling in the real function registry.
type fakeAggApplier struct{ rt types.Type }

func (a *fakeAggApplier) Name() string          { return "sum" }
func (a *fakeAggApplier) Kind() ApplierKind     { return KindAggregated }
func (a *fakeAggApplier) ResultType() types.Type { return a.rt }
func (a *fakeAggApplier) IsPure() bool          { return true }

func TestAsAggregateWrapsColumnOutsideGroup(t *testing.T) {
	salary := asAggCol(t, 1)
	out, err := AsAggregate(salary, map[string]bool{"dept": true}, markerWrap)
	require.NoError(t, err)
	c, ok := out.(*ConstantExpr)
	require.True(t, ok)
	require.Equal(t, "first(salary)", c.Value)
}

func TestAsAggregateLeavesGroupColumnUnchanged(t *testing.T) {
	dept := asAggCol(t, 0)
	out, err := AsAggregate(dept, map[string]bool{"dept": true}, markerWrap)
	require.NoError(t, err)
	require.Same(t, dept, out)
}

func TestAsAggregateLeavesAccumulatingCallUnchanged(t *testing.T) {
	salary := asAggCol(t, 1)
	call, err := NewCall("sum", []Expr{salary}, nil, &fakeAggApplier{rt: types.Double})
	require.NoError(t, err)
	out, err := AsAggregate(call, map[string]bool{"dept": true}, markerWrap)
	require.NoError(t, err)
	require.Same(t, Expr(call), out)
}

// salary is the group column here (an atypical grouping key, but the
// point is only to exercise AsAggregate's partial wrapping of a
// composite expression): salary+bonus must come back with salary
// untouched and bonus alone wrapped.
func TestAsAggregateWrapsOnlyNonGroupColumnsOfComposite(t *testing.T) {
	salary := asAggCol(t, 1)
	bonus := asAggCol(t, 2)
	expr, err := Make(OpAdd, salary, bonus)
	require.NoError(t, err)

	out, err := AsAggregate(expr, map[string]bool{"salary": true}, markerWrap)
	require.NoError(t, err)
	require.NotSame(t, expr, out)

	bin, ok := out.(*BinaryOpExpr)
	require.True(t, ok)
	require.Same(t, salary, bin.Left)
	c, ok := bin.Right.(*ConstantExpr)
	require.True(t, ok)
	require.Equal(t, "first(bonus)", c.Value)
}
