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
	"database/sql"
	"time"

	"github.com/cachesink/cachesink/internal/types"
	"github.com/pkg/errors"
)

// Option abstracts over driver-specific configuration.
type Option interface {
	option()
}

// These types are capability interfaces to receive objects that can be
// configured.
type (
	// attachable are all types on which attachOptions can operate.
	attachable interface {
		*sql.DB | *startupControl | *types.PoolInfo
	}

	poolInfoOption interface {
		poolInfo(ctx context.Context, info *types.PoolInfo) error
	}

	sqlDBOption interface {
		sqlDB(ctx context.Context, db *sql.DB) error
	}

	startupOption interface {
		startup(ctx context.Context, ctl *startupControl) error
	}
)

// startupControl governs the initial connection attempt.
type startupControl struct {
	wait time.Duration
}

const defaultStartupWait = 30 * time.Second

// attachOptions loops over the provided options to compose their
// functionality.
func attachOptions[T attachable](ctx context.Context, target T, options []Option) error {
	// Prepend reasonable defaults.
	options = append([]Option{&withConnectionLifetime{}, &withStartupWait{defaultStartupWait}}, options...)

	switch t := any(target).(type) {
	case *sql.DB:
		for _, option := range options {
			if x, ok := option.(sqlDBOption); ok {
				if err := x.sqlDB(ctx, t); err != nil {
					return err
				}
			}
		}

	case *startupControl:
		for _, option := range options {
			if x, ok := option.(startupOption); ok {
				if err := x.startup(ctx, t); err != nil {
					return err
				}
			}
		}

	case *types.PoolInfo:
		for _, option := range options {
			if x, ok := option.(poolInfoOption); ok {
				if err := x.poolInfo(ctx, t); err != nil {
					return err
				}
			}
		}

	default:
		return errors.Errorf("unimplemented: %T", t)
	}

	return nil
}

// WithStartupWait sets the length of time to wait for the database to
// become ready. A zero value disables retries.
func WithStartupWait(d time.Duration) Option { return &withStartupWait{d} }

type withStartupWait struct{ d time.Duration }

func (o *withStartupWait) option() {}
func (o *withStartupWait) startup(_ context.Context, ctl *startupControl) error {
	ctl.wait = o.d
	return nil
}
