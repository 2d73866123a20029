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

package stdserver

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	authFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "http_auth_failures_total",
		Help: "the number of requests rejected for a missing or invalid token",
	})
	httpCodes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_status_codes_total",
		Help: "the number of HTTP responses, by status code",
	}, []string{"code"})
	httpLatency = promauto.NewSummary(prometheus.SummaryOpts{
		Name: "http_latency_seconds",
		Help: "the HTTP response latency for successful requests",
	})
	httpPanics = promauto.NewCounter(prometheus.CounterOpts{
		Name: "http_handler_panics_total",
		Help: "the number of requests whose handler panicked",
	})
	httpPayloadIn = promauto.NewCounter(prometheus.CounterOpts{
		Name: "http_payload_in_bytes_total",
		Help: "the number HTTP payload body bytes read",
	})
)
