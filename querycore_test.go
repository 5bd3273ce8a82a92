package querycore

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tupledb/querycore/core"
	"github.com/tupledb/querycore/core/expression"
	"github.com/tupledb/querycore/core/expression/function"
	"github.com/tupledb/querycore/core/parse"
	"github.com/tupledb/querycore/core/types"
)

func employeeRowType() *types.TupleType {
	return types.NewTupleType(
		types.Column{Name: "id", Type: types.Long},
		types.Column{Name: "dept", Type: types.String},
		types.Column{Name: "salary", Type: types.Double},
	)
}

// memTable is a minimal in-process core.Table for end-to-end Compile
// tests; View is unsupported since these tests exercise the compiler's
// own row-by-row and aggregate/window layers rather than native
// pushdown.
type memTable struct {
	rt   *types.TupleType
	rows []core.Row
}

func (t *memTable) RowType() *types.TupleType { return t.rt }

func (t *memTable) NewScanner(core.Txn, []interface{}) (core.Scanner, error) {
	return &memScanner{rows: t.rows}, nil
}
func (t *memTable) NewStream(txn core.Txn, args []interface{}) (core.Scanner, error) {
	return t.NewScanner(txn, args)
}
func (t *memTable) QueryAll(txn core.Txn) (core.Scanner, error) { return t.NewScanner(txn, nil) }
func (t *memTable) NewUpdater(core.Txn, []interface{}) (core.Updater, error) {
	return nil, nil
}

// View reuses the real parser to interpret the query string the
// planner's pushdown layer generates, rather than hand-rolling a second
// copy of the query grammar just for this test double.
func (t *memTable) View(query string, args []interface{}) (core.Table, error) {
	projection, filter, err := parse.Parse(query, t.rt, function.NewRegistry())
	if err != nil {
		return nil, err
	}
	if len(projection) == 0 {
		projection = identityProjectionFor(t.rt)
	}
	var out []core.Row
	for _, row := range t.rows {
		ctx := expression.NewEvalContext(row, args)
		v, err := filter.Eval(ctx)
		if err != nil {
			return nil, err
		}
		if v == nil || v == false {
			continue
		}
		rowOut := make(core.Row, 0, len(projection))
		for _, p := range projection {
			if p.Flags.Has(expression.ProjExclude) {
				continue
			}
			pv, err := p.Eval(ctx)
			if err != nil {
				return nil, err
			}
			rowOut = append(rowOut, pv)
		}
		out = append(out, rowOut)
	}
	cols := make([]types.Column, 0, len(projection))
	for _, p := range projection {
		if p.Flags.Has(expression.ProjExclude) {
			continue
		}
		cols = append(cols, types.Column{Name: p.Name, Type: p.Type()})
	}
	return &memTable{rt: types.NewTupleType(cols...), rows: out}, nil
}

func identityProjectionFor(rt *types.TupleType) []*expression.ProjExpr {
	cols := rt.Columns()
	out := make([]*expression.ProjExpr, 0, len(cols))
	for i, c := range cols {
		col := c
		p, _ := expression.NewProj(col.Name, expression.NewBaseColumn(rt, i, &col), 0)
		out = append(out, p)
	}
	return out
}
func (t *memTable) Aggregate(rt *types.TupleType, factory core.AggregatorFactory) (core.Table, error) {
	return nil, nil
}
func (t *memTable) Group(partition, order string, rt *types.TupleType, factory core.GrouperFactory) (core.Table, error) {
	return nil, nil
}

type memScanner struct {
	rows []core.Row
	idx  int
}

func (s *memScanner) Next() bool {
	if s.idx >= len(s.rows) {
		return false
	}
	s.idx++
	return true
}
func (s *memScanner) Row() core.Row { return s.rows[s.idx-1] }
func (s *memScanner) Err() error    { return nil }
func (s *memScanner) Close() error  { return nil }

func TestCompilerCompilesAndScans(t *testing.T) {
	source := &memTable{rt: employeeRowType(), rows: []core.Row{
		{int64(1), "eng", 100.0},
		{int64(2), "sales", 200.0},
	}}
	c := NewCompiler(employeeRowType(), nil)

	cq, h, err := c.Compile("dept == \"eng\"", source)
	require.NoError(t, err)
	defer h.Release()

	scanner, err := cq.NewScanner(nil)
	require.NoError(t, err)
	defer scanner.Close()

	var rows []core.Row
	for scanner.Next() {
		rows = append(rows, scanner.Row())
	}
	require.NoError(t, scanner.Err())
	require.Len(t, rows, 1)
	require.Equal(t, "eng", rows[0][1])
}

func TestCompilerSharesPlanForStructurallyIdenticalQueries(t *testing.T) {
	source := &memTable{rt: employeeRowType()}
	c := NewCompiler(employeeRowType(), nil)

	_, h1, err := c.Compile("id > 1", source)
	require.NoError(t, err)
	defer h1.Release()

	_, h2, err := c.Compile("id > 1", source)
	require.NoError(t, err)
	defer h2.Release()

	require.Equal(t, 1, c.cache.Len())
}

// Two queries that differ only in the literal compared against must
// still share one planned pipeline: the literal is canonicalized into a
// trailing argument before the cache key is derived.
func TestCompilerSharesQueriesDifferingOnlyByLiteral(t *testing.T) {
	source := &memTable{rt: employeeRowType(), rows: []core.Row{
		{int64(1), "eng", 100.0},
		{int64(3), "eng", 100.0},
		{int64(10), "eng", 100.0},
	}}
	c := NewCompiler(employeeRowType(), nil)

	cq1, h1, err := c.Compile("id > 1", source)
	require.NoError(t, err)
	defer h1.Release()

	cq2, h2, err := c.Compile("id > 9", source)
	require.NoError(t, err)
	defer h2.Release()

	require.Equal(t, 1, c.cache.Len())

	scanner, err := cq1.NewScanner(nil)
	require.NoError(t, err)
	defer scanner.Close()
	var rows []core.Row
	for scanner.Next() {
		rows = append(rows, scanner.Row())
	}
	require.Len(t, rows, 2)

	scanner2, err := cq2.NewScanner(nil)
	require.NoError(t, err)
	defer scanner2.Close()
	rows = rows[:0]
	for scanner2.Next() {
		rows = append(rows, scanner2.Row())
	}
	require.Len(t, rows, 1)
	require.Equal(t, int64(10), rows[0][0])
}

func TestCompilerDoesNotShareStructurallyDifferentQueries(t *testing.T) {
	source := &memTable{rt: employeeRowType()}
	c := NewCompiler(employeeRowType(), nil)

	_, h1, err := c.Compile("id > 1", source)
	require.NoError(t, err)
	defer h1.Release()

	_, h2, err := c.Compile("salary > 1", source)
	require.NoError(t, err)
	defer h2.Release()

	require.Equal(t, 2, c.cache.Len())
}

func TestCompileRejectsSyntaxError(t *testing.T) {
	source := &memTable{rt: employeeRowType()}
	c := NewCompiler(employeeRowType(), nil)

	_, _, err := c.Compile("id >", source)
	require.Error(t, err)
}
