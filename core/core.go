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

// Package core declares the external interfaces the query compiler
// consumes from the surrounding storage engine (Table, Scanner,
// Updater) and exposes to its caller (CompiledQuery), per the OUT OF
// SCOPE boundary: physical storage, transaction semantics and
// caller-facing row identity are collaborators specified only at the
// interface here.
package core

import "github.com/tupledb/querycore/core/types"

// Row is a tuple of column values in TupleType column order. Row
// identity beyond that positional contract is a storage-engine concern
// and is not specified further here.
type Row []interface{}

// Txn is an opaque transaction handle threaded through scanner/updater
// construction. Transaction semantics are out of scope for the core;
// it only ever forwards the handle it was given.
type Txn interface{}

// Scanner iterates the rows of a Table.
type Scanner interface {
	// Next advances to the next row, returning false at end of input or
	// on error (check Err to distinguish the two).
	Next() bool
	Row() Row
	Err() error
	Close() error
}

// Updater is a Scanner that can additionally mutate or delete the
// current row.
type Updater interface {
	Scanner
	Update(newRow Row) error
	Delete() error
}

// AggregatorFactory produces a fresh Aggregator per scan, since a
// compiled aggregator holds per-invocation work state that must not be
// shared across concurrent scans of the same compiled query.
type AggregatorFactory interface {
	NewAggregator() Aggregator
}

// Aggregator is the per-group state machine described in §4.4: Init
// once, Begin starts a new group with its first row, Accumulate folds
// in each subsequent row (a nil row/nil error return means the
// aggregator chose to skip the row), Finish emits the group's row (a
// nil row/nil error return means the group is filtered out).
type Aggregator interface {
	Init()
	Begin(sourceRow Row) (Row, error)
	Accumulate(sourceRow Row) (Row, error)
	Finish(targetRow Row) (Row, error)
}

// GrouperFactory produces a fresh Grouper per scan.
type GrouperFactory interface {
	NewGrouper() Grouper
}

// Grouper is the per-row window-function state machine described in
// §4.5.
type Grouper interface {
	Init()
	Begin(firstRow Row) error
	Accumulate(row Row) error
	Finished() error
	// Check reports whether Step can currently emit a result row.
	Check() (bool, error)
	Step(targetRow Row) (Row, error)
}

// Table is the physical storage collaborator: row access, native
// view(query, args) filtering/projection, and the aggregate/group
// transforms that attach a compiled Aggregator/Grouper to a row stream.
type Table interface {
	RowType() *types.TupleType
	NewScanner(txn Txn, args []interface{}) (Scanner, error)
	NewUpdater(txn Txn, args []interface{}) (Updater, error)
	NewStream(txn Txn, args []interface{}) (Scanner, error)
	QueryAll(txn Txn) (Scanner, error)
	// View returns a narrower Table natively filtered/projected/ordered
	// per the query string grammar in §6.
	View(query string, args []interface{}) (Table, error)
	Aggregate(rowType *types.TupleType, factory AggregatorFactory) (Table, error)
	Group(partition, order string, rowType *types.TupleType, factory GrouperFactory) (Table, error)
}

// Plan is an explanation object for a compiled scanner/updater/stream.
// Plan-explanation formatting is out of scope beyond this marker
// interface; String is expected to render a human-readable pipeline
// description for diagnostics.
type Plan interface {
	String() string
}

// CompiledQuery is the downstream-facing artifact produced by the
// planner: rowType/argumentCount describe its shape, Table materializes
// it over a concrete argument list, and the New* methods are scan
// convenience delegates.
type CompiledQuery interface {
	RowType() *types.TupleType
	ArgumentCount() int
	Table(args ...interface{}) (Table, error)
	NewScanner(txn Txn, args ...interface{}) (Scanner, error)
	NewUpdater(txn Txn, args ...interface{}) (Updater, error)
	NewStream(txn Txn, args ...interface{}) (Scanner, error)
	ScannerPlan() (Plan, error)
	UpdaterPlan() (Plan, error)
	StreamPlan() (Plan, error)
}
