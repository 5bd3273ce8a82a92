package plan

import (
	"errors"

	"github.com/tupledb/querycore/core"
	"github.com/tupledb/querycore/core/expression"
	"github.com/tupledb/querycore/core/expression/function"
	"github.com/tupledb/querycore/core/parse"
	"github.com/tupledb/querycore/core/types"
)

// fakeTable is a minimal in-memory core.Table for exercising the
// planner end to end: View re-parses its query string with the real
// parser and evaluates it in Go, rather than hand-rolling a second
// grammar just for tests.
type fakeTable struct {
	rt       *types.TupleType
	rows     []core.Row
	registry *function.FunctionFinder
}

func newFakeTable(rt *types.TupleType, rows []core.Row) *fakeTable {
	return &fakeTable{rt: rt, rows: rows, registry: function.NewRegistry()}
}

func (t *fakeTable) RowType() *types.TupleType { return t.rt }

func (t *fakeTable) NewScanner(core.Txn, []interface{}) (core.Scanner, error) {
	return &sliceScanner{rows: t.rows}, nil
}

func (t *fakeTable) NewStream(txn core.Txn, args []interface{}) (core.Scanner, error) {
	return t.NewScanner(txn, args)
}

func (t *fakeTable) QueryAll(txn core.Txn) (core.Scanner, error) {
	return t.NewScanner(txn, nil)
}

func (t *fakeTable) NewUpdater(core.Txn, []interface{}) (core.Updater, error) {
	return nil, errors.New("fakeTable: update not supported")
}

func (t *fakeTable) View(query string, args []interface{}) (core.Table, error) {
	projection, filter, err := parse.Parse(query, t.rt, t.registry)
	if err != nil {
		return nil, err
	}
	if len(projection) == 0 {
		projection = identityProjection(t.rt)
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
		projected, err := projectRow(ctx, projection)
		if err != nil {
			return nil, err
		}
		out = append(out, projected)
	}
	return newFakeTable(projectedType(t.rt, projection), out), nil
}

func (t *fakeTable) Aggregate(rowType *types.TupleType, factory core.AggregatorFactory) (core.Table, error) {
	return newGenericAggregateTable(t, rowType, factory), nil
}

func (t *fakeTable) Group(partition, order string, rowType *types.TupleType, factory core.GrouperFactory) (core.Table, error) {
	return newGenericGroupTable(t, rowType, factory), nil
}

type sliceScanner struct {
	rows []core.Row
	idx  int
}

func (s *sliceScanner) Next() bool {
	if s.idx >= len(s.rows) {
		return false
	}
	s.idx++
	return true
}

func (s *sliceScanner) Row() core.Row { return s.rows[s.idx-1] }
func (s *sliceScanner) Err() error    { return nil }
func (s *sliceScanner) Close() error  { return nil }

func testRowType() *types.TupleType {
	return types.NewTupleType(
		types.Column{Name: "id", Type: types.Long},
		types.Column{Name: "dept", Type: types.String},
		types.Column{Name: "salary", Type: types.Double},
	)
}

func scanAll(t core.Table, txn core.Txn, args []interface{}) ([]core.Row, error) {
	s, err := t.NewScanner(txn, args)
	if err != nil {
		return nil, err
	}
	defer s.Close()
	var out []core.Row
	for s.Next() {
		row := s.Row()
		cp := make(core.Row, len(row))
		copy(cp, row)
		out = append(out, cp)
	}
	return out, s.Err()
}
