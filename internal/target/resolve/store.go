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
	"fmt"
	"strings"

	"github.com/cachesink/cachesink/internal/types"
	"github.com/pkg/errors"
)

// DefaultMappingTable is the table consulted by a SQLStore when no
// other table is configured.
const DefaultMappingTable = "admin.target_mapping"

const lookupTemplate = "SELECT target_table_name FROM %s WHERE datasource = ? AND table_name = ?"

// SQLStore looks up mappings in a database table with the columns
// datasource, table_name, and target_table_name.
type SQLStore struct {
	q     types.Querier
	query string
}

var _ Store = (*SQLStore)(nil)

// NewSQLStore returns a Store that reads from the given mapping table
// using the querier. The product determines the placeholder syntax.
func NewSQLStore(q types.Querier, product types.Product, table string) *SQLStore {
	if table == "" {
		table = DefaultMappingTable
	}
	query := fmt.Sprintf(lookupTemplate, table)
	if product.PositionalParams() {
		query = strings.Replace(query, "?", "$1", 1)
		query = strings.Replace(query, "?", "$2", 1)
	}
	return &SQLStore{q: q, query: query}
}

// Query returns the lookup statement, for logging.
func (s *SQLStore) Query() string { return s.query }

// Lookup implements [Store]. The first row wins if the mapping table
// contains duplicates.
func (s *SQLStore) Lookup(
	ctx context.Context, datasource, table string,
) (string, bool, error) {
	rows, err := s.q.Query(ctx, s.query, datasource, table)
	if err != nil {
		return "", false, errors.WithStack(err)
	}
	defer func() { _ = rows.Close() }()

	if !rows.Next() {
		return "", false, errors.WithStack(rows.Err())
	}
	var target string
	if err := rows.Scan(&target); err != nil {
		return "", false, errors.WithStack(err)
	}
	return target, true, nil
}
