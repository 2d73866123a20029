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

package translate

import (
	"github.com/cachesink/cachesink/internal/util/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	translateDurations = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "translate_duration_seconds",
		Help:    "the length of time it took to successfully process an event",
		Buckets: metrics.LatencyBuckets,
	}, metrics.SourceLabels)
	translateEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "translate_events_total",
		Help: "the number of events processed, by outcome",
	}, metrics.OutcomeLabels)
	translateStatements = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "translate_statements_total",
		Help: "the number of SQL statements synthesized for successful events",
	}, metrics.SourceLabels)
)
