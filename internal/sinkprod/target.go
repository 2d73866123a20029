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

package sinkprod

import (
	"context"
	"time"

	"github.com/cachesink/cachesink/internal/types"
	"github.com/cachesink/cachesink/internal/util/stdpool"
	"github.com/spf13/pflag"
)

// TargetConfig defines target-database connection behaviors.
type TargetConfig struct {
	CommonConfig

	// The maximum length of time to wait for a statement to execute.
	ApplyTimeout time.Duration
}

// Bind adds flags to the set.
func (c *TargetConfig) Bind(f *pflag.FlagSet) {
	c.CommonConfig.bind(f, "target")

	f.DurationVar(&c.ApplyTimeout, "applyTimeout", defaultApplyTimeout,
		"the maximum amount of time to wait for a statement to be applied")
}

// Preflight ensures that unset configuration options have sane defaults
// and returns an error if the TargetConfig is missing any fields for which a
// default cannot be provided.
func (c *TargetConfig) Preflight() error {
	if err := c.CommonConfig.preflight("target", false); err != nil {
		return err
	}
	if c.ApplyTimeout == 0 {
		c.ApplyTimeout = defaultApplyTimeout
	}
	return nil
}

// OpenTargetPool creates a connection pool that accesses the target
// database. The caller must close the pool. A nil pool and nil error
// are returned if no connection string was configured.
func OpenTargetPool(ctx context.Context, config *TargetConfig) (*types.TargetPool, error) {
	if config.Conn == "" {
		return nil, nil
	}
	return stdpool.OpenTarget(ctx, config.Conn, config.options("target")...)
}

// TimeoutExecutor bounds the duration of each statement.
type TimeoutExecutor struct {
	Delegate types.Executor
	Timeout  time.Duration
}

var _ types.Executor = (*TimeoutExecutor)(nil)

// Exec implements [types.Executor].
func (e *TimeoutExecutor) Exec(ctx context.Context, stmt string) error {
	if e.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.Timeout)
		defer cancel()
	}
	return e.Delegate.Exec(ctx, stmt)
}
