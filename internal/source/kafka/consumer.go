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
	"strconv"

	"github.com/IBM/sarama"
	"github.com/cachesink/cachesink/internal/translate"
	"github.com/cachesink/cachesink/internal/types"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

var _ sarama.ConsumerGroupHandler = &Handler{}

// Handler represents a Sarama consumer group consumer. Each message
// value is a single change event.
type Handler struct {
	options    translate.Options
	processor  translate.Processor
	skipErrors bool
}

// Setup is run at the beginning of a new session, before ConsumeClaim
func (c *Handler) Setup(session sarama.ConsumerGroupSession) error {
	log.WithField("claims", session.Claims()).Debug("kafka session started")
	return nil
}

// Cleanup is run at the end of a session, once all ConsumeClaim goroutines have exited
func (c *Handler) Cleanup(session sarama.ConsumerGroupSession) error {
	if err := session.Context().Err(); err != nil {
		log.WithError(err).Debug("kafka session ended")
	}
	return nil
}

// ConsumeClaim processes new messages for the topic/partition specified
// in the claim. Messages are applied one at a time, in offset order.
func (c *Handler) ConsumeClaim(
	session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim,
) error {
	log.Debugf("ConsumeClaim topic=%s partition=%d offset=%d",
		claim.Topic(), claim.Partition(), claim.InitialOffset())
	ctx := session.Context()
	// ConsumeClaim is already called within its own goroutine.
	for {
		select {
		case message, ok := <-claim.Messages():
			if !ok {
				log.Debugf("message channel for topic=%s partition=%d was closed",
					claim.Topic(), claim.Partition())
				return nil
			}
			if err := c.handle(session, message); err != nil {
				return err
			}
		// Should return when `session.Context()` is done, otherwise a
		// rebalance will stall. https://github.com/IBM/sarama/issues/1192
		case <-ctx.Done():
			return nil
		}
	}
}

// handle applies a single message. The offset is marked once the
// message has been applied, or when it fails and errors are skipped.
func (c *Handler) handle(session sarama.ConsumerGroupSession, msg *sarama.ConsumerMessage) error {
	partition := strconv.Itoa(int(msg.Partition))
	messagesReceived.WithLabelValues(msg.Topic, partition).Inc()

	// Tombstones follow deletes when log compaction is enabled.
	if msg.Value == nil {
		log.Tracef("tombstone %s@%d:%d", msg.Topic, msg.Partition, msg.Offset)
		messagesSkipped.WithLabelValues(msg.Topic, partition).Inc()
		session.MarkMessage(msg, "")
		return nil
	}

	res, err := c.processor.Process(session.Context(), string(msg.Value), c.options)
	if err != nil {
		messagesFailed.WithLabelValues(msg.Topic, partition, types.Kind(err)).Inc()
		entry := log.WithError(err).WithFields(log.Fields{
			"topic":     msg.Topic,
			"partition": msg.Partition,
			"offset":    msg.Offset,
		})
		if c.skipErrors {
			entry.Warn("skipping message that could not be applied")
			session.MarkMessage(msg, "")
			return nil
		}
		return errors.Wrapf(err, "could not apply message %s@%d:%d",
			msg.Topic, msg.Partition, msg.Offset)
	}
	log.Debug(res.Summary())
	messagesApplied.WithLabelValues(msg.Topic, partition).Inc()
	session.MarkMessage(msg, "")
	return nil
}
