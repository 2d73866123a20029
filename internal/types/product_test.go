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
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProduct(t *testing.T) {
	tcs := []struct {
		product    Product
		name       string
		positional bool
	}{
		{ProductUnknown, "Unknown", false},
		{ProductCockroachDB, "CockroachDB", true},
		{ProductMariaDB, "MariaDB", false},
		{ProductMySQL, "MySQL", false},
		{ProductPostgreSQL, "PostgreSQL", true},
	}
	for _, tc := range tcs {
		t.Run(fmt.Sprint(tc.product), func(t *testing.T) {
			a := assert.New(t)
			a.Equal(tc.name, tc.product.String())
			a.Equal(tc.positional, tc.product.PositionalParams())
		})
	}
}

func TestPoolInfo(t *testing.T) {
	pool := &TargetPool{PoolInfo: PoolInfo{Product: ProductMySQL, Version: "8.0.36"}}
	assert.Same(t, &pool.PoolInfo, pool.Info())
}
