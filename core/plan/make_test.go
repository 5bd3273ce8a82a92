package plan

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tupledb/querycore/core"
	"github.com/tupledb/querycore/core/expression/function"
	"github.com/tupledb/querycore/core/parse"
)

func sampleRows() []core.Row {
	return []core.Row{
		{int64(1), "eng", 100.0},
		{int64(2), "eng", 200.0},
		{int64(3), "sales", 50.0},
		{int64(4), "sales", 150.0},
	}
}

func planQuery(t *testing.T, source core.Table, text string) (core.CompiledQuery, []core.Row) {
	t.Helper()
	rt := source.RowType()
	reg := function.NewRegistry()
	projection, filter, err := parse.Parse(text, rt, reg)
	require.NoError(t, err)

	argCount := 0
	relation, err := Make(NewTableExpr(source), filter, projection, argCount)
	require.NoError(t, err)

	cq := NewCompiledQuery(relation, argCount)
	rows, err := scanAll(mustTable(t, cq), nil, nil)
	require.NoError(t, err)
	return cq, rows
}

func mustTable(t *testing.T, cq core.CompiledQuery) core.Table {
	t.Helper()
	tb, err := cq.Table()
	require.NoError(t, err)
	return tb
}

func TestMakeTrivialQueryNeverCallsView(t *testing.T) {
	src := &viewForbiddenTable{fakeTable: newFakeTable(testRowType(), sampleRows())}
	_, rows := planQuery(t, src, "")
	require.Len(t, rows, 4)
}

func TestMakeFilterOnlyPushesDown(t *testing.T) {
	src := newFakeTable(testRowType(), sampleRows())
	_, rows := planQuery(t, src, "dept == \"eng\"")
	require.Len(t, rows, 2)
	for _, r := range rows {
		require.Equal(t, "eng", r[1])
	}
}

func TestMakeProjectionReshapesRow(t *testing.T) {
	src := newFakeTable(testRowType(), sampleRows())
	_, rows := planQuery(t, src, "{dept, salary}")
	require.Len(t, rows, 4)
	require.Len(t, rows[0], 2)
}

func TestMakeUnpushableFilterUsesMapper(t *testing.T) {
	src := newFakeTable(testRowType(), sampleRows())
	// iif(...) resolves to an opaque call atom: Split must refuse to
	// push it down, forcing the MappedQueryExpr row-by-row path instead
	// of the native view() pushdown for this conjunct.
	_, rows := planQuery(t, src, "id > 0 && iif(dept == \"eng\", true, false)")
	require.Len(t, rows, 2)
}

func TestMakeAggregatedGroupsAndSums(t *testing.T) {
	src := newFakeTable(testRowType(), sampleRows())
	_, rows := planQuery(t, src, "{dept, total = sum(salary)}")
	require.Len(t, rows, 2)
	totals := map[string]float64{}
	for _, r := range rows {
		totals[r[0].(string)] = r[1].(float64)
	}
	require.Equal(t, 300.0, totals["eng"])
	require.Equal(t, 200.0, totals["sales"])
}

func TestMakeAggregatedWithoutGroupByIsSingleGroup(t *testing.T) {
	src := newFakeTable(testRowType(), sampleRows())
	_, rows := planQuery(t, src, "{total = sum(salary)}")
	require.Len(t, rows, 1)
	require.Equal(t, 500.0, rows[0][0])
}

// A projection column that is neither a GroupBy column nor itself
// aggregating (id here, trailing after the sum) must resolve to a
// defined per-group value — the first row's value for that column —
// rather than erroring against an empty evaluation row.
func TestMakeAggregatedWrapsExtraColumnWithFirst(t *testing.T) {
	src := newFakeTable(testRowType(), sampleRows())
	_, rows := planQuery(t, src, "{dept, total = sum(salary), id}")
	require.Len(t, rows, 2)
	byDept := map[string]core.Row{}
	for _, r := range rows {
		byDept[r[0].(string)] = r
	}
	require.Equal(t, 300.0, byDept["eng"][1])
	require.Equal(t, int64(1), byDept["eng"][2])
	require.Equal(t, 200.0, byDept["sales"][1])
	require.Equal(t, int64(3), byDept["sales"][2])
}

func TestMakeWindowRunningSum(t *testing.T) {
	src := newFakeTable(testRowType(), sampleRows())
	_, rows := planQuery(t, src, "{id, running = sum(salary, rows: ..0)}")
	require.Len(t, rows, 4)
	require.Equal(t, 100.0, rows[0][1])
	require.Equal(t, 300.0, rows[1][1])
	require.Equal(t, 350.0, rows[2][1])
	require.Equal(t, 500.0, rows[3][1])
}

// viewForbiddenTable wraps fakeTable and fails the test if View is ever
// called, to pin down the no-op "no filter, no projection" pipeline
// path never forcing a native pushdown call.
type viewForbiddenTable struct {
	*fakeTable
}

func (t *viewForbiddenTable) View(query string, args []interface{}) (core.Table, error) {
	panic("View should not be called for a trivial query: " + query)
}
