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

package debezium

import (
	"regexp"
	"strings"

	"github.com/cachesink/cachesink/internal/types"
)

// Patterns used to pick apart a struct-text message. They match the
// first occurrence anywhere in the message.
var (
	structOp        = regexp.MustCompile(`op=(\w)`)
	structDB        = regexp.MustCompile(`db=([^,}]+)`)
	structConnector = regexp.MustCompile(`connector=([^,}]+)`)
	structTable     = regexp.MustCompile(`table=([^,}]+)`)
	structBefore    = regexp.MustCompile(regexp.QuoteMeta("before=Struct") + `\{([^}]*)\}`)
	structAfter     = regexp.MustCompile(regexp.QuoteMeta("after=Struct") + `\{([^}]*)\}`)
	structSplit     = regexp.MustCompile(`,\s*`)
)

// StructDecoder decodes the textual form of a Kafka Connect Struct,
// for example:
//
//	Struct{after=Struct{id=1,name=Ann},source=Struct{connector=pg,db=sales,table=orders},op=c}
//
// This is a best-effort extraction, not a lossless parse:
//   - Struct bodies do not nest; a '}' inside a value ends the body.
//   - Fields are split on commas, so a value containing a comma is
//     mis-split and a piece without '=' is dropped.
//   - Values have no type information. See [types.Token].
//   - A missing connector, db, or table is decoded as an empty string.
//     Such an event can only be applied with an override table; a
//     mapping lookup always reports TargetNotFound.
type StructDecoder struct{}

var _ types.Decoder = StructDecoder{}

// Decode implements [types.Decoder].
func (StructDecoder) Decode(msg string) (*types.ChangeEvent, error) {
	code := extract(structOp, msg)
	if code == "" {
		return nil, types.ErrMalformedEvent.New("could not extract op from message")
	}

	ev := &types.ChangeEvent{
		Datasource:     extract(structConnector, msg),
		SourceDatabase: extract(structDB, msg),
		SourceTable:    extract(structTable, msg),
	}

	op, ok := types.ParseOperation(code)
	if !ok {
		return nil, types.ErrUnsupportedOperation.New("unsupported op %q for datasource=%s table=%s",
			code, ev.Datasource, ev.SourceName())
	}
	ev.Operation = op

	if body, ok := extractStruct(structBefore, msg); ok {
		ev.Before = parseFields(body)
	}
	if body, ok := extractStruct(structAfter, msg); ok {
		ev.After = parseFields(body)
	}

	if err := ev.Validate(); err != nil {
		return nil, err
	}
	return ev, nil
}

func extract(pattern *regexp.Regexp, msg string) string {
	if m := pattern.FindStringSubmatch(msg); m != nil {
		return m[1]
	}
	return ""
}

func extractStruct(pattern *regexp.Regexp, msg string) (string, bool) {
	m := pattern.FindStringSubmatch(msg)
	if m == nil {
		return "", false
	}
	return strings.TrimSpace(m[1]), true
}

// parseFields splits a struct body into key=value pairs.
func parseFields(body string) *types.FieldMap {
	ret := &types.FieldMap{}
	if body == "" {
		return ret
	}
	for _, pair := range structSplit.Split(body, -1) {
		k, v, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		ret.Put(strings.TrimSpace(k), types.Token(strings.TrimSpace(v)))
	}
	return ret
}
