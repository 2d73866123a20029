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

// Package types contains data types and interfaces that define the
// major functional blocks of code within cachesink. The goal of placing
// the types into this package is to make it easy to compose
// functionality as the cachesink project evolves.
package types

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// A Decoder turns one raw change-event message into a ChangeEvent.
// Implementations must not retain any state between calls.
type Decoder interface {
	Decode(msg string) (*ChangeEvent, error)
}

// Rows is the subset of [sql.Rows] consumed by a Querier's caller.
type Rows interface {
	Close() error
	Err() error
	Next() bool
	Scan(dest ...any) error
}

var _ Rows = (*sql.Rows)(nil)

// A Querier runs a parameterized, read-only query.
type Querier interface {
	Query(ctx context.Context, query string, args ...any) (Rows, error)
}

// An Executor runs a single, fully-rendered SQL statement.
type Executor interface {
	Exec(ctx context.Context, stmt string) error
}

// Operation is the logical kind of row mutation described by a
// ChangeEvent.
type Operation int

// The operations a change event may describe.
const (
	OpUnknown Operation = iota
	OpCreate
	OpUpdate
	OpDelete
	OpSnapshot
)

// opCodes maps the single-character codes in a change event's op field
// to an Operation.
var opCodes = map[string]Operation{
	"c": OpCreate,
	"u": OpUpdate,
	"d": OpDelete,
	"r": OpSnapshot,
}

// ParseOperation maps a source op code to an Operation.
func ParseOperation(code string) (Operation, bool) {
	op, ok := opCodes[code]
	return op, ok
}

// Code returns the single-character source code for the Operation.
func (o Operation) Code() string {
	switch o {
	case OpCreate:
		return "c"
	case OpUpdate:
		return "u"
	case OpDelete:
		return "d"
	case OpSnapshot:
		return "r"
	default:
		return "?"
	}
}

func (o Operation) String() string {
	switch o {
	case OpCreate:
		return "Create"
	case OpUpdate:
		return "Update"
	case OpDelete:
		return "Delete"
	case OpSnapshot:
		return "Snapshot"
	default:
		return fmt.Sprintf("Operation(%d)", int(o))
	}
}

// Mode selects how a ChangeEvent is replicated into its cache table.
type Mode int

const (
	// ModeDirect mutates the mirror table in place.
	ModeDirect Mode = iota
	// ModeChangeLog appends every mutation as a new, audited row.
	ModeChangeLog
)

// ModeFor returns ModeChangeLog if changeLog is set.
func ModeFor(changeLog bool) Mode {
	if changeLog {
		return ModeChangeLog
	}
	return ModeDirect
}

func (m Mode) String() string {
	if m == ModeChangeLog {
		return "changelog"
	}
	return "direct"
}

// A ChangeEvent is the normalized form of a single row-level mutation.
// It is created once per message and never modified afterwards.
type ChangeEvent struct {
	Operation      Operation
	Datasource     string    // The connector that produced the event.
	SourceDatabase string    // The origin database.
	SourceTable    string    // The origin table.
	Before         *FieldMap // Row image prior to the change; nil if absent.
	After          *FieldMap // Row image following the change; nil if absent.
}

// SourceName returns the fully-qualified database.table name of the
// origin table. This is the key used for mapping lookups.
func (e *ChangeEvent) SourceName() string {
	return e.SourceDatabase + "." + e.SourceTable
}

// Validate ensures that the row images required by the event's
// Operation are present.
func (e *ChangeEvent) Validate() error {
	var missing []string
	switch e.Operation {
	case OpCreate, OpSnapshot:
		if e.After == nil {
			missing = append(missing, "after")
		}
	case OpDelete:
		if e.Before == nil {
			missing = append(missing, "before")
		}
	case OpUpdate:
		if e.Before == nil {
			missing = append(missing, "before")
		}
		if e.After == nil {
			missing = append(missing, "after")
		}
	default:
		return ErrUnsupportedOperation.New("unsupported op %q for %s", e.Operation.Code(), e.SourceName())
	}
	if len(missing) > 0 {
		return ErrMalformedEvent.New("op=%q for datasource=%s table=%s requires %s",
			e.Operation.Code(), e.Datasource, e.SourceName(), strings.Join(missing, " and "))
	}
	return nil
}
