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
	"time"

	"github.com/cachesink/cachesink/internal/sinkprod"
	"github.com/cachesink/cachesink/internal/util/secure"
	"github.com/nats-io/nats.go"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
)

const (
	defaultDrainTimeout  = 30 * time.Second
	defaultMaxReconnect  = 60
	defaultReconnectWait = 2 * time.Second
)

// Config contains the configuration for subscribing to a NATS subject.
type Config struct {
	Pipeline sinkprod.PipelineConfig
	TLS      secure.Config

	DrainTimeout  time.Duration // The time allowed to finish pending messages at shutdown.
	MaxReconnect  int           // A negative value reconnects forever.
	Name          string        // The client name reported to the server.
	Queue         string        // The queue group; may be empty.
	ReconnectWait time.Duration // The delay between reconnect attempts.
	Subject       string        // The subject to subscribe to.
	URL           string        // The NATS server(s), comma-separated.
}

// Bind adds flags to the set.
func (c *Config) Bind(f *pflag.FlagSet) {
	c.Pipeline.Bind(f)
	c.TLS.Bind(f)

	f.DurationVar(&c.DrainTimeout, "natsDrainTimeout", defaultDrainTimeout,
		"the time allowed to apply messages already received when shutting down")
	f.IntVar(&c.MaxReconnect, "natsMaxReconnect", defaultMaxReconnect,
		"the number of reconnect attempts before giving up; negative to retry forever")
	f.StringVar(&c.Name, "natsName", "cachesink", "the client name reported to the NATS server")
	f.StringVar(&c.Queue, "natsQueue", "",
		"a queue group to join, so that messages are shared between subscribers")
	f.DurationVar(&c.ReconnectWait, "natsReconnectWait", defaultReconnectWait,
		"the delay between reconnect attempts")
	f.StringVar(&c.Subject, "natsSubject", "", "the subject to receive change events from")
	f.StringVar(&c.URL, "natsURL", nats.DefaultURL, "the NATS server URL(s), comma-separated")
}

// Preflight returns an error if a required option is missing.
func (c *Config) Preflight() error {
	if err := c.Pipeline.Preflight(); err != nil {
		return err
	}
	if err := c.TLS.Preflight(); err != nil {
		return err
	}
	if c.URL == "" {
		return errors.New("natsURL must be set")
	}
	if c.Subject == "" {
		return errors.New("natsSubject must be set")
	}
	if c.ReconnectWait <= 0 {
		c.ReconnectWait = defaultReconnectWait
	}
	if c.DrainTimeout <= 0 {
		c.DrainTimeout = defaultDrainTimeout
	}
	return nil
}

// options returns the connection options, mirroring the reconnect
// behavior of a long-lived publisher.
func (c *Config) options() []nats.Option {
	opts := []nats.Option{
		nats.Name(c.Name),
		nats.MaxReconnects(c.MaxReconnect),
		nats.ReconnectWait(c.ReconnectWait),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.WithError(err).Warn("NATS disconnected")
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			reconnects.Inc()
			log.Infof("NATS reconnected to %s", nc.ConnectedUrl())
		}),
		nats.ClosedHandler(func(*nats.Conn) {
			log.Warn("NATS connection closed")
		}),
		nats.ErrorHandler(func(_ *nats.Conn, sub *nats.Subscription, err error) {
			entry := log.WithError(err)
			if sub != nil {
				entry = entry.WithField("subject", sub.Subject)
			}
			entry.Warn("NATS asynchronous error")
		}),
	}
	if tlsConfig := c.TLS.AsTLSConfig(); tlsConfig != nil {
		opts = append(opts, nats.Secure(tlsConfig))
	}
	return opts
}
