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
	"context"
	"time"

	"github.com/IBM/sarama"
	"github.com/cachesink/cachesink/internal/translate"
	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Conn encapsulates all wire-connection behavior. It receives messages
// from the consumer group and hands them to the Handler.
type Conn struct {
	// The connector configuration.
	config *Config
	// The consumer group used when connecting to the broker.
	group sarama.ConsumerGroup
	// The handler that processes the events.
	handler sarama.ConsumerGroupHandler
	// Computes the delay between failed sessions.
	newBackOff func() backoff.BackOff
}

// NewConn joins the configured consumer group. If more than one process
// is started, the partitions within the topics are allocated to each
// process based on the chosen rebalance strategy.
func NewConn(config *Config, processor translate.Processor) (*Conn, error) {
	group, err := sarama.NewConsumerGroup(config.Brokers, config.Group, config.saramaConfig)
	if err != nil {
		return nil, errors.Wrap(err, "error creating consumer group client")
	}
	return newConn(config, group, processor), nil
}

func newConn(config *Config, group sarama.ConsumerGroup, processor translate.Processor) *Conn {
	return &Conn{
		config: config,
		group:  group,
		handler: &Handler{
			options:    config.Pipeline.Translate.Options(),
			processor:  processor,
			skipErrors: config.OnError == OnErrorSkip,
		},
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.MaxElapsedTime = 0
			return b
		},
	}
}

// Run is the replication loop. It consumes the configured topics until
// the context is canceled. A failed session is retried with an
// exponential backoff.
func (c *Conn) Run(ctx context.Context) error {
	defer func() {
		if err := c.group.Close(); err != nil {
			log.WithError(err).Warn("could not close consumer group")
		}
	}()

	go func() {
		for err := range c.group.Errors() {
			log.WithError(err).Warn("kafka consumer error")
		}
	}()

	b := c.newBackOff()
	for ctx.Err() == nil {
		err := c.group.Consume(ctx, c.config.Topics, c.handler)
		switch {
		case err == nil:
			// A rebalance ended the session.
			b.Reset()
			continue
		case errors.Is(err, sarama.ErrClosedConsumerGroup):
			return nil
		case ctx.Err() != nil:
			return nil
		}

		reconnects.Inc()
		delay := b.NextBackOff()
		if delay == backoff.Stop {
			return err
		}
		log.WithError(err).Warnf("error while consuming messages; will retry in %s", delay)
		select {
		case <-ctx.Done():
		case <-time.After(delay):
		}
	}
	return nil
}
