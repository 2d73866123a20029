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

// Package stdpool creates standardized database connection pools.
package stdpool

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/cachesink/cachesink/internal/types"
	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// OpenTarget selects from target connector implementations based on the
// URL scheme contained in the connection string.
func OpenTarget(
	ctx context.Context, connectString string, options ...Option,
) (*types.TargetPool, error) {
	u, err := url.Parse(connectString)
	if err != nil {
		return nil, errors.Wrap(err, "could not parse connection string")
	}

	switch strings.ToLower(u.Scheme) {
	case "mysql":
		return OpenMySQLAsTarget(ctx, u, options...)
	case "pg", "pgx", "postgres", "postgresql":
		return OpenPgxAsTarget(ctx, u, options...)
	default:
		return nil, errors.Errorf("unknown URL scheme: %s", u.Scheme)
	}
}

// finishOpen applies options to the pool, waits for the database to
// answer, and records its version.
func finishOpen(
	ctx context.Context, ret *types.TargetPool, versionQuery string, options []Option,
) error {
	if err := attachOptions(ctx, ret.DB, options); err != nil {
		return err
	}

	var ctl startupControl
	if err := attachOptions(ctx, &ctl, options); err != nil {
		return err
	}

	var policy backoff.BackOff = &backoff.StopBackOff{}
	if ctl.wait > 0 {
		exp := backoff.NewExponentialBackOff()
		exp.MaxElapsedTime = ctl.wait
		policy = exp
	}
	if err := backoff.RetryNotify(func() error {
		return ret.QueryRowContext(ctx, versionQuery).Scan(&ret.Version)
	}, backoff.WithContext(policy, ctx), func(err error, next time.Duration) {
		log.WithError(err).WithField("retry", next).Info("waiting for database to become ready")
	}); err != nil {
		return errors.Wrap(err, "could not determine database version")
	}
	log.WithFields(log.Fields{
		"product": ret.Product,
		"version": ret.Version,
	}).Info("connected to target database")

	return attachOptions(ctx, &ret.PoolInfo, options)
}

// redact removes the password from a connection string.
func redact(u *url.URL) string {
	return u.Redacted()
}
