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

package nats

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	messagesApplied = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nats_messages_applied_total",
		Help: "the total number of messages that were successfully applied",
	}, []string{"subject"})
	messagesFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nats_messages_failed_total",
		Help: "the total number of messages that encountered an error during processing",
	}, []string{"subject", "kind"})
	messagesReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nats_messages_received_total",
		Help: "the total number of messages received from the server",
	}, []string{"subject"})
	reconnects = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nats_reconnects_total",
		Help: "the number of times the client reconnected to the server",
	})
)
