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
	"context"
	"database/sql"
)

// Product is an enum type to make it easy to switch on the underlying
// database.
type Product int

// The supported database products.
const (
	ProductUnknown Product = iota
	ProductCockroachDB
	ProductMariaDB
	ProductMySQL
	ProductPostgreSQL
)

func (p Product) String() string {
	switch p {
	case ProductCockroachDB:
		return "CockroachDB"
	case ProductMariaDB:
		return "MariaDB"
	case ProductMySQL:
		return "MySQL"
	case ProductPostgreSQL:
		return "PostgreSQL"
	default:
		return "Unknown"
	}
}

// PositionalParams returns true if the product uses $1-style query
// placeholders instead of ?.
func (p Product) PositionalParams() bool {
	switch p {
	case ProductCockroachDB, ProductPostgreSQL:
		return true
	default:
		return false
	}
}

// PoolInfo describes a database connection pool and what it's
// connected to.
type PoolInfo struct {
	ConnectionString string
	Product          Product
	Version          string
}

// Info returns the PoolInfo.
func (i *PoolInfo) Info() *PoolInfo { return i }

// TargetPool is an injection point for a connection to a target
// database. It provides both the mapping lookup and statement
// execution capabilities.
type TargetPool struct {
	*sql.DB
	PoolInfo
}

var (
	_ Executor = (*TargetPool)(nil)
	_ Querier  = (*TargetPool)(nil)
)

// Exec implements [Executor].
func (p *TargetPool) Exec(ctx context.Context, stmt string) error {
	_, err := p.DB.ExecContext(ctx, stmt)
	return err
}

// Query implements [Querier].
func (p *TargetPool) Query(ctx context.Context, query string, args ...any) (Rows, error) {
	rows, err := p.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return rows, nil
}
