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

package stdpool

import (
	"context"
	"net/url"
	"strings"

	"github.com/cachesink/cachesink/internal/types"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// OpenPgxAsTarget uses pgx to open a database connection, returning it
// as a stdlib pool.
func OpenPgxAsTarget(
	ctx context.Context, u *url.URL, options ...Option,
) (*types.TargetPool, error) {
	connectString := pgxConnString(u)
	cfg, err := pgx.ParseConfig(connectString)
	if err != nil {
		return nil, errors.Wrapf(err, "could not parse %q", redact(u))
	}
	// Identify traffic.
	if _, found := cfg.RuntimeParams["application_name"]; !found {
		cfg.RuntimeParams["application_name"] = "cachesink"
	}
	log.WithField("conn", redact(u)).Debug("opening postgres target")

	ret := &types.TargetPool{
		DB: stdlib.OpenDB(*cfg),
		PoolInfo: types.PoolInfo{
			ConnectionString: connectString,
			Product:          types.ProductPostgreSQL,
		},
	}
	if err := finishOpen(ctx, ret, "SELECT version()", options); err != nil {
		_ = ret.Close()
		return nil, err
	}
	if strings.HasPrefix(ret.Version, "CockroachDB") {
		ret.Product = types.ProductCockroachDB
	}
	return ret, nil
}

// pgxConnString rewrites the URL scheme into one that pgx accepts.
func pgxConnString(u *url.URL) string {
	cpy := *u
	cpy.Scheme = "postgres"
	return cpy.String()
}
