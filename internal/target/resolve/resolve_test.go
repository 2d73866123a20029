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

package resolve

import (
	"context"
	"strings"
	"testing"

	"github.com/cachesink/cachesink/internal/types"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRows struct {
	values []string
	idx    int
	err    error
}

func (r *fakeRows) Close() error { return nil }
func (r *fakeRows) Err() error   { return r.err }
func (r *fakeRows) Next() bool {
	if r.idx >= len(r.values) {
		return false
	}
	r.idx++
	return true
}
func (r *fakeRows) Scan(dest ...any) error {
	*dest[0].(*string) = r.values[r.idx-1]
	return nil
}

type fakeQuerier struct {
	calls   int
	lastQ   string
	lastArg []any
	rows    map[string][]string
	err     error
}

func (q *fakeQuerier) Query(_ context.Context, query string, args ...any) (types.Rows, error) {
	q.calls++
	q.lastQ = query
	q.lastArg = args
	if q.err != nil {
		return nil, q.err
	}
	key := args[0].(string) + "/" + args[1].(string)
	return &fakeRows{values: q.rows[key]}, nil
}

func TestResolve(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name       string
		datasource string
		table      string
		override   string
		queryErr   error
		expected   Target
		kind       string
		calls      int
	}{
		{
			name:       "mapped",
			datasource: "pg",
			table:      "sales.orders",
			expected:   Target{Table: "cache.orders"},
			calls:      1,
		},
		{
			name:       "first row wins",
			datasource: "pg",
			table:      "sales.dupes",
			expected:   Target{Table: "cache.first"},
			calls:      1,
		},
		{
			name:       "override skips lookup",
			datasource: "pg",
			table:      "sales.orders",
			override:   " cache.override ",
			expected:   Target{Table: "cache.override", Overridden: true},
		},
		{
			name:       "blank override is ignored",
			datasource: "pg",
			table:      "sales.orders",
			override:   "   ",
			expected:   Target{Table: "cache.orders"},
			calls:      1,
		},
		{
			name:       "not found",
			datasource: "pg",
			table:      "sales.missing",
			kind:       types.KindTargetNotFound,
			calls:      1,
		},
		{
			name:       "empty datasource",
			datasource: "",
			table:      "sales.orders",
			kind:       types.KindTargetNotFound,
		},
		{
			name:       "empty database",
			datasource: "pg",
			table:      ".orders",
			kind:       types.KindTargetNotFound,
		},
		{
			name:       "incomplete origin with override",
			datasource: "",
			table:      ".",
			override:   "cache.override",
			expected:   Target{Table: "cache.override", Overridden: true},
		},
		{
			name:       "lookup fails",
			datasource: "pg",
			table:      "sales.orders",
			queryErr:   errors.New("connection refused"),
			kind:       types.KindResolverUnavailable,
			calls:      1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := assert.New(t)
			r := require.New(t)

			q := &fakeQuerier{
				err: tt.queryErr,
				rows: map[string][]string{
					"pg/sales.orders": {"cache.orders"},
					"pg/sales.dupes":  {"cache.first", "cache.second"},
					"/sales.orders":   {"cache.blank"},
					"pg/.orders":      {"cache.blank"},
				},
			}
			res := New(NewSQLStore(q, types.ProductMySQL, ""))
			tgt, err := res.Resolve(ctx, tt.datasource, tt.table, tt.override)
			a.Equal(tt.calls, q.calls)
			if tt.kind != "" {
				r.Error(err)
				a.Equal(tt.kind, types.Kind(err))
				a.ErrorContains(err, tt.datasource)
				a.ErrorContains(err, tt.table)
				if tt.queryErr != nil {
					a.ErrorIs(err, tt.queryErr)
				}
				return
			}
			r.NoError(err)
			a.Equal(tt.expected, tgt)
			if tt.calls > 0 {
				a.Equal([]any{tt.datasource, tt.table}, q.lastArg)
			}
		})
	}
}

func TestSQLStoreQuery(t *testing.T) {
	a := assert.New(t)

	a.Equal("SELECT target_table_name FROM admin.target_mapping WHERE datasource = ? AND table_name = ?",
		NewSQLStore(nil, types.ProductMySQL, "").Query())
	a.Equal("SELECT target_table_name FROM admin.target_mapping WHERE datasource = $1 AND table_name = $2",
		NewSQLStore(nil, types.ProductPostgreSQL, "").Query())
	a.Equal("SELECT target_table_name FROM meta.map WHERE datasource = ? AND table_name = ?",
		NewSQLStore(nil, types.ProductMariaDB, "meta.map").Query())
}

func TestNoStore(t *testing.T) {
	a := assert.New(t)

	_, err := New(nil).Resolve(context.Background(), "pg", "sales.orders", "")
	a.Equal(types.KindResolverUnavailable, types.Kind(err))

	tgt, err := New(nil).Resolve(context.Background(), "pg", "sales.orders", "cache.x")
	a.NoError(err)
	a.True(tgt.Overridden)
}

func TestFileStore(t *testing.T) {
	a := assert.New(t)
	r := require.New(t)
	ctx := context.Background()

	store, err := LoadFileStore("testdata/mapping.yaml")
	r.NoError(err)

	tgt, ok, err := store.Lookup(ctx, "pg", "sales.orders")
	r.NoError(err)
	a.True(ok)
	a.Equal("cache.orders", tgt)

	tgt, ok, err = store.Lookup(ctx, "mysql", "inventory.items")
	r.NoError(err)
	a.True(ok)
	a.Equal("cache.items", tgt)

	_, ok, err = store.Lookup(ctx, "mysql", "sales.orders")
	r.NoError(err)
	a.False(ok)

	res, err := New(store).Resolve(ctx, "pg", "nope.nope", "")
	a.Equal(types.KindTargetNotFound, types.Kind(err))
	a.Empty(res.Table)

	_, err = ReadFileStore(strings.NewReader("mappings:\n  - datasource: pg\n"))
	a.ErrorContains(err, "required")

	_, err = ReadFileStore(strings.NewReader("mappings:\n  - bogus: 1\n"))
	a.Error(err)

	empty, err := ReadFileStore(strings.NewReader(""))
	r.NoError(err)
	_, ok, _ = empty.Lookup(ctx, "pg", "sales.orders")
	a.False(ok)

	_, err = LoadFileStore("testdata/missing.yaml")
	a.Error(err)
}
