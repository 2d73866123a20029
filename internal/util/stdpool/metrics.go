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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	poolLabels = []string{"pool"}

	poolAcquireCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pool_acquire_wait_count",
		Help: "the total number of times we waited for a connection from the pool",
	}, poolLabels)
	poolAcquireDelay = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pool_acquire_wait_seconds",
		Help: "the total amount of time spent waiting for connection acquisition",
	}, poolLabels)
	poolAcquiredCount = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "pool_acquired_connection_count",
		Help: "the number of in-use database connections",
	}, poolLabels)
	poolIdleCount = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "pool_idle_connection_count",
		Help: "the number of idle database connections",
	}, poolLabels)
	poolMaxCount = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "pool_max_connection_count",
		Help: "the maximum number of connections in the pool",
	}, poolLabels)
)

// WithMetrics publishes the pool's statistics under the given label
// until the context passed to the open function is canceled.
func WithMetrics(label string) Option {
	return &withMetrics{label}
}

type withMetrics struct {
	label string
}

func (o *withMetrics) option() {}
func (o *withMetrics) sqlDB(ctx context.Context, db *sql.DB) error {
	go publishMetrics(ctx, db, o.label, time.Second)
	return nil
}

// publishMetrics updates the pool gauges at a fixed interval.
func publishMetrics(ctx context.Context, db *sql.DB, label string, every time.Duration) {
	acquireCount := poolAcquireCount.WithLabelValues(label)
	acquireDelay := poolAcquireDelay.WithLabelValues(label)
	acquiredCount := poolAcquiredCount.WithLabelValues(label)
	idleCount := poolIdleCount.WithLabelValues(label)
	maxCount := poolMaxCount.WithLabelValues(label)

	// These metrics are reported to us as counters, so we need to
	// compute the deltas to pass them into the API.
	var prevWaitCount int64
	var prevWaitDuration time.Duration

	for {
		stat := db.Stats()

		acquireCount.Add(float64(stat.WaitCount - prevWaitCount))
		prevWaitCount = stat.WaitCount

		acquireDelay.Add((stat.WaitDuration - prevWaitDuration).Seconds())
		prevWaitDuration = stat.WaitDuration

		acquiredCount.Set(float64(stat.InUse))
		idleCount.Set(float64(stat.Idle))
		maxCount.Set(float64(stat.MaxOpenConnections))

		select {
		case <-ctx.Done():
			return
		case <-time.After(every):
		}
	}
}
