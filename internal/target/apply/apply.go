// Copyright 2023 The Cockroach Authors
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
//
// SPDX-License-Identifier: Apache-2.0

// Package apply synthesizes the SQL statements that replicate a
// change event into a cache table.
package apply

import (
	"strings"

	"github.com/cachesink/cachesink/internal/types"
	"github.com/cachesink/cachesink/internal/util/literal"
)

// Names of the audit columns written in change-log mode.
const (
	OperationColumn  = "operation"
	InsertTimeColumn = "insert_time"
	RowStatusColumn  = "rowstatus"
)

// Values of the operation column in change-log mode.
const (
	ChangeInsert = "insert"
	ChangeDelete = "delete"
)

// Audit values appended to each change-log row.
const (
	currentTimestamp = "CURRENT_TIMESTAMP"
	rowStatusValid   = "'V'"
)

// Synthesize returns the ordered statements that replicate the event
// into the table. It has no side effects: the same inputs always
// produce byte-identical output.
//
// An update becomes two statements, a delete of the before image and
// an insert of the after image. In change-log mode no DELETE is ever
// produced; each image becomes an audited insert instead.
func Synthesize(ev *types.ChangeEvent, table string, mode types.Mode) ([]string, error) {
	if err := ev.Validate(); err != nil {
		return nil, err
	}

	type step struct {
		kind  string
		image *types.FieldMap
	}
	var steps []step
	switch ev.Operation {
	case types.OpCreate, types.OpSnapshot:
		steps = []step{{ChangeInsert, ev.After}}
	case types.OpDelete:
		steps = []step{{ChangeDelete, ev.Before}}
	case types.OpUpdate:
		steps = []step{{ChangeDelete, ev.Before}, {ChangeInsert, ev.After}}
	default:
		return nil, types.ErrUnsupportedOperation.New("unsupported op %q for %s", ev.Operation.Code(), ev.SourceName())
	}

	ret := make([]string, 0, len(steps))
	for _, s := range steps {
		// A direct delete with no columns would have no WHERE clause.
		if mode == types.ModeDirect && s.kind == ChangeDelete && s.image.Len() == 0 {
			return nil, types.ErrMalformedEvent.New(
				"op=%q for datasource=%s table=%s has an empty before image",
				ev.Operation.Code(), ev.Datasource, ev.SourceName())
		}
		switch {
		case mode == types.ModeChangeLog:
			ret = append(ret, changeLogInsert(table, s.kind, s.image))
		case s.kind == ChangeDelete:
			ret = append(ret, deleteStmt(table, s.image))
		default:
			ret = append(ret, insertStmt(table, s.image))
		}
	}
	return ret, nil
}

// insertStmt returns INSERT INTO t (c1, c2) VALUES (v1, v2);
func insertStmt(table string, image *types.FieldMap) string {
	cols, vals := columnsAndValues(image)
	return buildInsert(table, cols, vals)
}

// deleteStmt returns DELETE FROM t WHERE c1=v1 AND c2=v2;
//
// Every column of the image takes part in the condition. A null
// column is rendered as c=NULL, which matches no rows.
func deleteStmt(table string, image *types.FieldMap) string {
	var sb strings.Builder
	sb.WriteString("DELETE FROM ")
	sb.WriteString(table)
	sb.WriteString(" WHERE ")
	for idx, f := range image.Fields() {
		if idx > 0 {
			sb.WriteString(" AND ")
		}
		sb.WriteString(f.Name)
		sb.WriteByte('=')
		sb.WriteString(literal.Encode(f.Value))
	}
	sb.WriteByte(';')
	return sb.String()
}

// changeLogInsert returns an insert carrying the operation, the
// image's columns, and the audit columns.
func changeLogInsert(table, kind string, image *types.FieldMap) string {
	cols, vals := columnsAndValues(image)
	cols = append(append([]string{OperationColumn}, cols...), InsertTimeColumn, RowStatusColumn)
	vals = append(append([]string{literal.Quote(kind)}, vals...), currentTimestamp, rowStatusValid)
	return buildInsert(table, cols, vals)
}

func columnsAndValues(image *types.FieldMap) (cols, vals []string) {
	fields := image.Fields()
	cols = make([]string, len(fields))
	vals = make([]string, len(fields))
	for idx, f := range fields {
		cols[idx] = f.Name
		vals[idx] = literal.Encode(f.Value)
	}
	return cols, vals
}

func buildInsert(table string, cols, vals []string) string {
	var sb strings.Builder
	sb.WriteString("INSERT INTO ")
	sb.WriteString(table)
	sb.WriteString(" (")
	sb.WriteString(strings.Join(cols, ", "))
	sb.WriteString(") VALUES (")
	sb.WriteString(strings.Join(vals, ", "))
	sb.WriteString(");")
	return sb.String()
}
