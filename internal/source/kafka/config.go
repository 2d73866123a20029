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
	"net/url"
	"strings"

	"github.com/IBM/sarama"
	"github.com/cachesink/cachesink/internal/sinkprod"
	"github.com/cachesink/cachesink/internal/util/secure"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"golang.org/x/oauth2/clientcredentials"
)

// Error policies for messages that cannot be processed.
const (
	// OnErrorFail leaves the offset unmarked and restarts the session,
	// so the message will be delivered again.
	OnErrorFail = "fail"
	// OnErrorSkip logs the failure and marks the offset.
	OnErrorSkip = "skip"
)

// Config contains the configuration necessary for creating a
// replication connection.
type Config struct {
	Pipeline sinkprod.PipelineConfig
	TLS      secure.Config

	Brokers  []string // The address of the Kafka brokers
	Group    string   // the Kafka consumer group id.
	OnError  string   // One of OnErrorFail or OnErrorSkip.
	Strategy string   // Kafka consumer group re-balance strategy
	Topics   []string // The list of topics that the consumer should use.
	Version  string   // The Kafka protocol version to use.

	// SASL
	saslClientID     string
	saslClientSecret string
	saslGrantType    string
	saslMechanism    string
	saslScopes       []string
	saslTokenURL     string
	saslUser         string
	saslPassword     string

	// The kafka connector configuration, computed by Preflight.
	saramaConfig *sarama.Config
}

// Bind adds flags to the set.
func (c *Config) Bind(f *pflag.FlagSet) {
	c.Pipeline.Bind(f)
	c.TLS.Bind(f)

	f.StringArrayVar(&c.Brokers, "broker", nil, "address of Kafka broker(s)")
	f.StringVar(&c.Group, "group", "", "the Kafka consumer group id")
	f.StringVar(&c.OnError, "onError", OnErrorFail,
		"what to do with a message that cannot be applied; "+
			"'fail' redelivers it after reconnecting, 'skip' logs and commits it")
	f.StringVar(&c.Strategy, "strategy", "sticky", "Kafka consumer group re-balance strategy")
	f.StringArrayVar(&c.Topics, "topic", nil, "the topic(s) that the consumer should use")
	f.StringVar(&c.Version, "kafkaVersion", "", "the Kafka protocol version; defaults to the client's default")

	// SASL
	f.StringVar(&c.saslClientID, "saslClientId", "", "client ID for OAuth authentication from a third-party provider")
	f.StringVar(&c.saslClientSecret, "saslClientSecret", "", "Client secret for OAuth authentication from a third-party provider")
	f.StringVar(&c.saslGrantType, "saslGrantType", "", "Override the default OAuth client credentials grant type for other implementations")
	f.StringVar(&c.saslMechanism, "saslMechanism", "", "Can be set to OAUTHBEARER, SCRAM-SHA-256, SCRAM-SHA-512, or PLAIN")
	f.StringArrayVar(&c.saslScopes, "saslScope", nil, "Scopes that the OAuth token should have access for.")
	f.StringVar(&c.saslTokenURL, "saslTokenURL", "", "Client token URL for OAuth authentication from a third-party provider")
	f.StringVar(&c.saslUser, "saslUser", "", "SASL username")
	f.StringVar(&c.saslPassword, "saslPassword", "", "SASL password")
}

// Preflight updates the configuration with sane defaults or returns an
// error if there are missing options for which a default cannot be
// provided.
func (c *Config) Preflight() error {
	if err := c.Pipeline.Preflight(); err != nil {
		return err
	}
	if err := c.TLS.Preflight(); err != nil {
		return err
	}
	return c.preflight(context.Background())
}

func (c *Config) preflight(ctx context.Context) error {
	if c.Group == "" {
		return errors.New("no group was configured")
	}
	if len(c.Brokers) == 0 {
		return errors.New("no brokers were configured")
	}
	if len(c.Topics) == 0 {
		return errors.New("no topics were configured")
	}
	c.OnError = strings.ToLower(strings.TrimSpace(c.OnError))
	switch c.OnError {
	case "":
		c.OnError = OnErrorFail
	case OnErrorFail, OnErrorSkip:
	default:
		return errors.Errorf("unknown onError policy %q; expecting %s or %s",
			c.OnError, OnErrorFail, OnErrorSkip)
	}

	sc := sarama.NewConfig()
	if c.Version != "" {
		version, err := sarama.ParseKafkaVersion(c.Version)
		if err != nil {
			return errors.Wrap(err, "could not parse kafkaVersion")
		}
		sc.Version = version
	}
	switch c.Strategy {
	case "sticky":
		sc.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategySticky()}
	case "roundrobin":
		sc.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategyRoundRobin()}
	case "range":
		sc.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategyRange()}
	default:
		return errors.Errorf("unrecognized consumer rebalance strategy: %s", c.Strategy)
	}

	sc.Net.TLS.Config = c.TLS.AsTLSConfig()
	sc.Net.TLS.Enable = sc.Net.TLS.Config != nil
	// if saslMechanism is not null, then authentication is done via SASL.
	if c.saslMechanism != "" {
		sc.Net.SASL.Enable = true
		switch c.saslMechanism {
		case sarama.SASLTypeSCRAMSHA512:
			sc.Net.SASL.SCRAMClientGeneratorFunc = sha512ClientGenerator
		case sarama.SASLTypeSCRAMSHA256:
			sc.Net.SASL.SCRAMClientGeneratorFunc = sha256ClientGenerator
		case sarama.SASLTypeOAuth:
			var err error
			sc.Net.SASL.TokenProvider, err = c.newTokenProvider(ctx)
			if err != nil {
				return err
			}
		}
		sc.Net.SASL.Mechanism = sarama.SASLMechanism(c.saslMechanism)
		sc.Net.SASL.User = c.saslUser
		sc.Net.SASL.Password = c.saslPassword
		log.Infof("Using SASL %s", c.saslMechanism)
	}
	sc.Consumer.Offsets.Initial = sarama.OffsetOldest
	// Consume errors are reported by the group rather than dropped.
	sc.Consumer.Return.Errors = true
	c.saramaConfig = sc
	return sc.Validate()
}

func (c *Config) newTokenProvider(ctx context.Context) (sarama.AccessTokenProvider, error) {
	// grant_type is by default going to be set to 'client_credentials' by the
	// clientcredentials library, however non-compliant auth server
	// implementations may want a custom type
	var endpointParams url.Values
	if c.saslGrantType != `` {
		endpointParams = url.Values{"grant_type": {c.saslGrantType}}
	}
	if c.saslTokenURL == "" {
		return nil, errors.New("OAUTH2 requires a token URL")
	}
	tokenURL, err := url.Parse(c.saslTokenURL)
	if err != nil {
		return nil, errors.Wrap(err, "malformed token url")
	}
	if c.saslClientID == "" {
		return nil, errors.New("OAUTH2 requires a client id")
	}
	if c.saslClientSecret == "" {
		return nil, errors.New("OAUTH2 requires a client secret")
	}
	// The TokenSource caches a token until it expires and then
	// requests a new one from the endpoint.
	cfg := clientcredentials.Config{
		ClientID:       c.saslClientID,
		ClientSecret:   c.saslClientSecret,
		TokenURL:       tokenURL.String(),
		Scopes:         c.saslScopes,
		EndpointParams: endpointParams,
	}
	return &tokenProvider{
		tokenSource: cfg.TokenSource(ctx),
	}, nil
}
