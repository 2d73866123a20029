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

// Package logfmt contains a logrus formatter that adds the details of
// database and execution errors to log entries.
package logfmt

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/cachesink/cachesink/internal/types"
	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	log "github.com/sirupsen/logrus"
)

const (
	detailKey     = "detail"
	errorKindKey  = "errorKind"
	sqlKey        = "sql"
	statementsKey = "statements"
	failedKey     = "failedStatement"
)

// Wrap adds a workaround for there being no support for automatically
// printing the details of an error to expose the stack trace. This
// formatter adds an extra detail field to log entries that contain an
// ErrorKey. If the error to be formatted is a database error, its
// subfields will also be added to the entry. An execution error adds
// the statements that were synthesized for the failed event.
//
// https://github.com/sirupsen/logrus/issues/895
func Wrap(f log.Formatter) log.Formatter {
	return &detailer{f}
}

type detailer struct {
	log.Formatter
}

// sqlDetail represents a driver error in a way that plays nicely with
// the various formatters.
type sqlDetail struct {
	Severity       string `json:"severity,omitempty"`
	Code           string `json:"code,omitempty"`
	Number         uint16 `json:"number,omitempty"`
	Message        string `json:"message,omitempty"`
	Detail         string `json:"detail,omitempty"`
	Hint           string `json:"hint,omitempty"`
	Position       int32  `json:"position,omitempty"`
	Where          string `json:"where,omitempty"`
	SchemaName     string `json:"schemaName,omitempty"`
	TableName      string `json:"tableName,omitempty"`
	ColumnName     string `json:"columnName,omitempty"`
	ConstraintName string `json:"constraintName,omitempty"`
}

func (s *sqlDetail) String() string {
	var sb strings.Builder
	enc := json.NewEncoder(&sb)
	enc.SetIndent("", " ")
	_ = enc.Encode(s)
	return sb.String()
}

func pgDetail(err *pgconn.PgError) *sqlDetail {
	return &sqlDetail{
		Severity:       err.Severity,
		Code:           err.Code,
		Message:        err.Message,
		Detail:         err.Detail,
		Hint:           err.Hint,
		Position:       err.Position,
		Where:          err.Where,
		SchemaName:     err.SchemaName,
		TableName:      err.TableName,
		ColumnName:     err.ColumnName,
		ConstraintName: err.ConstraintName,
	}
}

func myDetail(err *mysql.MySQLError) *sqlDetail {
	ret := &sqlDetail{
		Number:  err.Number,
		Message: err.Message,
	}
	if err.SQLState != [5]byte{} {
		ret.Code = string(err.SQLState[:])
	}
	return ret
}

// Format implements log.Formatter.
func (d *detailer) Format(e *log.Entry) ([]byte, error) {
	if e.Data != nil {
		if err, ok := e.Data[log.ErrorKey].(error); ok {
			// Don't overwrite anywhere there may already be a detail key.
			if _, existing := e.Data[detailKey]; !existing {
				e.Data[detailKey] = fmt.Sprintf("%+v", err)
			}
			if kind := types.Kind(err); kind != types.KindUnknown {
				e.Data[errorKindKey] = kind
			}

			if pgErr := (*pgconn.PgError)(nil); errors.As(err, &pgErr) {
				e.Data[sqlKey] = pgDetail(pgErr)
			} else if myErr := (*mysql.MySQLError)(nil); errors.As(err, &myErr) {
				e.Data[sqlKey] = myDetail(myErr)
			}

			if exec, ok := types.AsExecutionError(err); ok {
				e.Data[statementsKey] = exec.Statements
				e.Data[failedKey] = exec.Failed
			}
		}
	}
	return d.Formatter.Format(e)
}
