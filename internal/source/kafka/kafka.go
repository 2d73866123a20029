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

// Package kafka applies change events read from Kafka topics. Each
// message value holds one Debezium event in the configured format.
package kafka

import (
	"context"

	"github.com/cachesink/cachesink/internal/sinkprod"
)

// Kafka is a long-running replication process.
type Kafka struct {
	Conn     *Conn
	Pipeline *sinkprod.Pipeline
}

// Start opens the target database and joins the consumer group. The
// caller must call Close.
func Start(ctx context.Context, config *Config) (*Kafka, error) {
	pipeline, err := sinkprod.OpenPipeline(ctx, &config.Pipeline)
	if err != nil {
		return nil, err
	}
	conn, err := NewConn(config, pipeline.Translator())
	if err != nil {
		_ = pipeline.Close()
		return nil, err
	}
	return &Kafka{Conn: conn, Pipeline: pipeline}, nil
}

// CheckHealth reports on the target database.
func (k *Kafka) CheckHealth(ctx context.Context) error {
	return k.Pipeline.CheckHealth(ctx)
}

// Close releases database connections.
func (k *Kafka) Close() error {
	return k.Pipeline.Close()
}

// Run consumes messages until the context is canceled.
func (k *Kafka) Run(ctx context.Context) error {
	return k.Conn.Run(ctx)
}
