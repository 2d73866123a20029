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

// Package nats applies change events received on a NATS subject. Each
// message holds one Debezium event in the configured format.
package nats

import (
	"context"
	"time"

	"github.com/cachesink/cachesink/internal/sinkprod"
	"github.com/cachesink/cachesink/internal/translate"
	"github.com/cachesink/cachesink/internal/types"
	"github.com/cenkalti/backoff/v4"
	"github.com/nats-io/nats.go"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// ErrorPrefix begins the reply to a request that could not be applied.
const ErrorPrefix = "ERROR: "

// Handler applies messages and, for requests, replies with the
// statement summary.
type Handler struct {
	ctx       context.Context
	options   translate.Options
	processor translate.Processor
	respond   func(msg *nats.Msg, data []byte) error
}

// NewHandler constructs a Handler. Messages run with the values of ctx
// but not its cancellation, so that messages delivered while the
// subscription drains are still applied.
func NewHandler(
	ctx context.Context, processor translate.Processor, options translate.Options,
) *Handler {
	return &Handler{
		ctx:       context.WithoutCancel(ctx),
		options:   options,
		processor: processor,
		respond: func(msg *nats.Msg, data []byte) error {
			return msg.Respond(data)
		},
	}
}

// OnMessage is a [nats.MsgHandler].
func (h *Handler) OnMessage(msg *nats.Msg) {
	messagesReceived.WithLabelValues(msg.Subject).Inc()

	var reply string
	res, err := h.processor.Process(h.ctx, string(msg.Data), h.options)
	if err != nil {
		messagesFailed.WithLabelValues(msg.Subject, types.Kind(err)).Inc()
		log.WithError(err).WithField("subject", msg.Subject).Warn("could not apply message")
		reply = ErrorPrefix + err.Error()
	} else {
		messagesApplied.WithLabelValues(msg.Subject).Inc()
		reply = res.Summary()
		log.Debug(reply)
	}

	if msg.Reply == "" {
		return
	}
	if err := h.respond(msg, []byte(reply)); err != nil {
		log.WithError(err).WithField("reply", msg.Reply).Warn("could not send reply")
	}
}

// Subscriber is a long-running replication process.
type Subscriber struct {
	Config   *Config
	Pipeline *sinkprod.Pipeline

	conn *nats.Conn
}

// Start opens the target database and connects to the NATS server. The
// caller must call Close.
func Start(ctx context.Context, config *Config) (*Subscriber, error) {
	pipeline, err := sinkprod.OpenPipeline(ctx, &config.Pipeline)
	if err != nil {
		return nil, err
	}
	conn, err := nats.Connect(config.URL, config.options()...)
	if err != nil {
		_ = pipeline.Close()
		return nil, errors.Wrap(err, "failed to connect to NATS")
	}
	log.Infof("Connected to NATS at %s", conn.ConnectedUrl())
	return &Subscriber{Config: config, Pipeline: pipeline, conn: conn}, nil
}

// CheckHealth reports on the NATS connection and the target database.
func (s *Subscriber) CheckHealth(ctx context.Context) error {
	if !s.conn.IsConnected() {
		return errors.Errorf("NATS connection is %s", s.conn.Status())
	}
	return s.Pipeline.CheckHealth(ctx)
}

// Close releases the connections.
func (s *Subscriber) Close() error {
	s.conn.Close()
	return s.Pipeline.Close()
}

// Run subscribes to the configured subject until the context is
// canceled. Messages already received are applied before returning.
func (s *Subscriber) Run(ctx context.Context) error {
	h := NewHandler(ctx, s.Pipeline.Translator(), s.Pipeline.Options)
	sub, err := s.conn.QueueSubscribe(s.Config.Subject, s.Config.Queue, h.OnMessage)
	if err != nil {
		return errors.Wrapf(err, "could not subscribe to %s", s.Config.Subject)
	}
	log.WithFields(log.Fields{
		"subject": s.Config.Subject,
		"queue":   s.Config.Queue,
	}).Info("subscribed")

	<-ctx.Done()
	log.Info("draining NATS subscription")
	return awaitDrain(sub, s.Config.DrainTimeout)
}

// subscription is the subset of [nats.Subscription] used at shutdown.
type subscription interface {
	Drain() error
	IsValid() bool
}

var _ subscription = (*nats.Subscription)(nil)

// awaitDrain starts draining the subscription and blocks until every
// pending callback has returned or the timeout elapses. Drain itself
// does not wait.
func awaitDrain(sub subscription, timeout time.Duration) error {
	if err := sub.Drain(); err != nil {
		return errors.Wrap(err, "could not drain subscription")
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 10 * time.Millisecond
	b.MaxInterval = 250 * time.Millisecond
	b.MaxElapsedTime = timeout
	err := backoff.Retry(func() error {
		if sub.IsValid() {
			return errors.New("subscription has pending messages")
		}
		return nil
	}, b)
	return errors.Wrapf(err, "subscription not drained after %s", timeout)
}
