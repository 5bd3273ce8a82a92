package plan

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tupledb/querycore/core/expression/function"
	"github.com/tupledb/querycore/core/parse"
)

func TestCompiledQueryPlanDescribesPipeline(t *testing.T) {
	src := newFakeTable(testRowType(), sampleRows())
	rt := src.RowType()
	reg := function.NewRegistry()
	projection, filter, err := parse.Parse("{dept, total = sum(salary)}", rt, reg)
	require.NoError(t, err)

	relation, err := Make(NewTableExpr(src), filter, projection, 0)
	require.NoError(t, err)
	cq := NewCompiledQuery(relation, 0)

	p, err := cq.ScannerPlan()
	require.NoError(t, err)
	require.Contains(t, p.String(), "aggregate")
	require.True(t, strings.HasPrefix(p.String(), "scan:"))
}

func TestCompiledQueryArgumentCountAndRowType(t *testing.T) {
	src := newFakeTable(testRowType(), sampleRows())
	rt := src.RowType()
	reg := function.NewRegistry()
	projection, filter, err := parse.Parse("id == ?1", rt, reg)
	require.NoError(t, err)

	relation, err := Make(NewTableExpr(src), filter, projection, 1)
	require.NoError(t, err)
	cq := NewCompiledQuery(relation, 1)

	require.Equal(t, 1, cq.ArgumentCount())
	require.Equal(t, rt.Len(), cq.RowType().Len())

	s, err := cq.NewScanner(nil, int64(2))
	require.NoError(t, err)
	defer s.Close()
	var rows [][]interface{}
	for s.Next() {
		rows = append(rows, s.Row())
	}
	require.NoError(t, s.Err())
	require.Len(t, rows, 1)
	require.Equal(t, int64(2), rows[0][0])
}
