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
	"github.com/cachesink/cachesink/internal/util/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// The origin names are not used as labels: struct-text messages can
// carry arbitrary values.
var (
	resolveDurations = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "resolve_lookup_duration_seconds",
		Help:    "the length of time it took to query the table mapping",
		Buckets: metrics.LatencyBuckets,
	})
	resolveErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "resolve_lookup_errors_total",
		Help: "the number of table mapping lookups that failed",
	})
	resolveMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "resolve_lookup_misses_total",
		Help: "the number of table mapping lookups that found no mapping",
	})
	resolveOverrides = promauto.NewCounter(prometheus.CounterOpts{
		Name: "resolve_overrides_total",
		Help: "the number of events that used an override table",
	})
)
