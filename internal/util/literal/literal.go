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

// Package literal renders column values as inline SQL literals.
package literal

import (
	"regexp"
	"strings"

	"github.com/cachesink/cachesink/internal/types"
)

// numericToken matches the struct-text values that are passed through
// without quoting.
var numericToken = regexp.MustCompile(`^-?\d+(\.\d+)?$`)

// Encode returns the SQL literal for the value.
func Encode(v types.Value) string {
	switch v.Kind {
	case types.KindNull:
		return "NULL"
	case types.KindNumber:
		return v.Text
	case types.KindBool:
		if v.Text == "true" {
			return "TRUE"
		}
		return "FALSE"
	case types.KindToken:
		if numericToken.MatchString(v.Text) {
			return v.Text
		}
		return Quote(v.Text)
	default:
		return Quote(v.Text)
	}
}

// Quote wraps s in single quotes, doubling any embedded quote.
func Quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
