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
	_ "embed"
	"testing"

	"github.com/cachesink/cachesink/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	//go:embed testdata/delete.txt
	deleteText string
	//go:embed testdata/insert.txt
	insertText string
	//go:embed testdata/update.txt
	updateText string
)

func tokens(kv ...string) *types.FieldMap {
	ret := &types.FieldMap{}
	for i := 0; i < len(kv); i += 2 {
		ret.Put(kv[i], types.Token(kv[i+1]))
	}
	return ret
}

func TestStructDecode(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		expected *types.ChangeEvent
		kind     string
	}{
		{
			name: "insert",
			in:   insertText,
			expected: &types.ChangeEvent{
				Operation:      types.OpCreate,
				Datasource:     "postgresql",
				SourceDatabase: "sales",
				SourceTable:    "orders",
				After:          tokens("id", "1", "name", "Ann", "price", "12.50"),
			},
		},
		{
			name: "update",
			in:   updateText,
			expected: &types.ChangeEvent{
				Operation:      types.OpUpdate,
				Datasource:     "postgresql",
				SourceDatabase: "sales",
				SourceTable:    "orders",
				Before:         tokens("id", "1", "name", "Ann"),
				After:          tokens("id", "1", "name", "Bob", "zip", "00501"),
			},
		},
		{
			name: "delete",
			in:   deleteText,
			expected: &types.ChangeEvent{
				Operation:      types.OpDelete,
				Datasource:     "postgresql",
				SourceDatabase: "sales",
				SourceTable:    "orders",
				Before:         tokens("id", "1", "name", "Ann"),
			},
		},
		{
			name: "snapshot",
			in:   `after=Struct{id=2}, source=Struct{connector=pg,db=d,table=t}, op=r`,
			expected: &types.ChangeEvent{
				Operation:      types.OpSnapshot,
				Datasource:     "pg",
				SourceDatabase: "d",
				SourceTable:    "t",
				After:          tokens("id", "2"),
			},
		},
		{
			name: "comma in value is mis-split",
			in:   `after=Struct{id=3,addr=1 Main St, Springfield,zip=1} connector=pg,db=d,table=t,op=c`,
			expected: &types.ChangeEvent{
				Operation:      types.OpCreate,
				Datasource:     "pg",
				SourceDatabase: "d",
				SourceTable:    "t",
				After:          tokens("id", "3", "addr", "1 Main St", "zip", "1"),
			},
		},
		{
			name: "brace in value truncates body",
			in:   `after=Struct{id=4,note=a}b,x=y} connector=pg,db=d,table=t,op=c`,
			expected: &types.ChangeEvent{
				Operation:      types.OpCreate,
				Datasource:     "pg",
				SourceDatabase: "d",
				SourceTable:    "t",
				After:          tokens("id", "4", "note", "a"),
			},
		},
		{
			name: "missing source fields are empty",
			in:   `after=Struct{id=5},op=c`,
			expected: &types.ChangeEvent{
				Operation: types.OpCreate,
				After:     tokens("id", "5"),
			},
		},
		{
			name: "missing op",
			in:   `after=Struct{id=5},connector=pg,db=d,table=t`,
			kind: types.KindMalformedEvent,
		},
		{
			name: "unsupported op",
			in:   `after=Struct{id=5},connector=pg,db=d,table=t,op=x`,
			kind: types.KindUnsupportedOperation,
		},
		{
			name: "delete without before",
			in:   `after=Struct{id=5},connector=pg,db=d,table=t,op=d`,
			kind: types.KindMalformedEvent,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := assert.New(t)
			r := require.New(t)

			ev, err := StructDecoder{}.Decode(tt.in)
			if tt.kind != "" {
				r.Error(err)
				a.Equal(tt.kind, types.Kind(err))
				return
			}
			r.NoError(err)
			a.Equal(tt.expected, ev)
		})
	}
}

func TestParseFields(t *testing.T) {
	a := assert.New(t)

	a.Equal(0, parseFields("").Len())
	a.Equal(tokens("a", "1", "b", "x=y", "c", ""), parseFields("a=1,   b=x=y, junk, c="))
	a.Equal(tokens("a", "2"), parseFields("a=1, a=2"))
}

func TestFormat(t *testing.T) {
	a := assert.New(t)
	r := require.New(t)

	f, err := ParseFormat("STRUCT")
	r.NoError(err)
	a.Equal(FormatStruct, f)

	dec, err := NewDecoder(f)
	r.NoError(err)
	a.IsType(StructDecoder{}, dec)

	_, err = ParseFormat("avro")
	a.ErrorContains(err, "unknown message format")

	cfg := &Config{}
	r.NoError(cfg.Preflight())
	dec, err = cfg.Decoder()
	r.NoError(err)
	a.IsType(JSONDecoder{}, dec)
}
