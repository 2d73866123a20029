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

package types

import (
	"errors"
	"fmt"
	"strings"

	"github.com/zeebo/errs"
)

// Error classes returned by the translation pipeline.
var (
	ErrMalformedEvent       = errs.Class("malformed event")
	ErrUnsupportedOperation = errs.Class("unsupported operation")
	ErrTargetNotFound       = errs.Class("target not found")
	ErrResolverUnavailable  = errs.Class("resolver unavailable")
	ErrExecutionFailed      = errs.Class("execution failed")
)

// Kind names, as returned by Kind.
const (
	KindMalformedEvent       = "MalformedEvent"
	KindUnsupportedOperation = "UnsupportedOperation"
	KindTargetNotFound       = "TargetNotFound"
	KindResolverUnavailable  = "ResolverUnavailable"
	KindExecutionFailed      = "ExecutionFailed"
	KindUnknown              = "Unknown"
)

var kinds = []struct {
	class *errs.Class
	name  string
}{
	{&ErrMalformedEvent, KindMalformedEvent},
	{&ErrUnsupportedOperation, KindUnsupportedOperation},
	{&ErrTargetNotFound, KindTargetNotFound},
	{&ErrResolverUnavailable, KindResolverUnavailable},
	{&ErrExecutionFailed, KindExecutionFailed},
}

// Kind returns a stable name for the class of the error, suitable for
// use as a metric label. A nil error returns the empty string.
func Kind(err error) string {
	if err == nil {
		return ""
	}
	for _, k := range kinds {
		if k.class.Has(err) {
			return k.name
		}
	}
	return KindUnknown
}

// ExecutionError reports the failure of one statement within an
// ordered sequence. Statements before Failed have already been
// applied to the target.
type ExecutionError struct {
	Statements []string
	Failed     int
	cause      error
}

// NewExecutionError returns an error of class ErrExecutionFailed.
func NewExecutionError(stmts []string, failed int, cause error) error {
	return ErrExecutionFailed.Wrap(&ExecutionError{
		Statements: stmts,
		Failed:     failed,
		cause:      cause,
	})
}

// Applied returns the statements that were executed successfully
// before the failure.
func (e *ExecutionError) Applied() []string {
	return e.Statements[:e.Failed]
}

// Statement returns the statement that failed.
func (e *ExecutionError) Statement() string {
	return e.Statements[e.Failed]
}

func (e *ExecutionError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "statement %d of %d failed: %s", e.Failed+1, len(e.Statements), e.Statement())
	if e.Failed > 0 {
		fmt.Fprintf(&sb, " (already applied: %s)", strings.Join(e.Applied(), " "))
	}
	if e.cause != nil {
		sb.WriteString(": ")
		sb.WriteString(e.cause.Error())
	}
	return sb.String()
}

// Unwrap returns the underlying cause.
func (e *ExecutionError) Unwrap() error { return e.cause }

// AsExecutionError extracts an ExecutionError from the chain.
func AsExecutionError(err error) (*ExecutionError, bool) {
	var ret *ExecutionError
	if errors.As(err, &ret) {
		return ret, true
	}
	return nil, false
}
