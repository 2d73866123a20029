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

package kafka

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	messagesApplied = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kafka_messages_applied_total",
		Help: "the total number of messages that were successfully applied",
	}, []string{"topic", "partition"})
	messagesFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kafka_messages_failed_total",
		Help: "the total number of messages that encountered an error during processing",
	}, []string{"topic", "partition", "kind"})
	messagesReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kafka_messages_received_total",
		Help: "the total number of messages received from the source",
	}, []string{"topic", "partition"})
	messagesSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kafka_messages_skipped_total",
		Help: "the total number of tombstone messages that were ignored",
	}, []string{"topic", "partition"})
	reconnects = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kafka_reconnects_total",
		Help: "the number of times the consumer group session was restarted after an error",
	})
)
