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

package secure

import (
	"crypto/tls"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"
)

// Config holds client-side TLS options for connecting to a message
// broker.
type Config struct {
	CaCert     string
	ClientCert string
	ClientKey  string
	ServerName string
	SkipVerify bool

	built *tls.Config // computed by Preflight
}

// Bind adds flags to the set.
func (c *Config) Bind(f *pflag.FlagSet) {
	f.StringVar(&c.CaCert, "tlsCACertificate", "", "the path of a PEM-encoded CA certificate to trust")
	f.StringVar(&c.ClientCert, "tlsCertificate", "", "the path of a PEM-encoded client certificate")
	f.StringVar(&c.ClientKey, "tlsPrivateKey", "", "the path of a PEM-encoded client private key")
	f.StringVar(&c.ServerName, "tlsServerName", "", "override the host name used to verify the server certificate")
	f.BoolVar(&c.SkipVerify, "insecureSkipVerify", false, "if true, disable validation of the server certificate")
}

// Preflight builds the tls.Config. TLS remains disabled unless at least
// one option is set.
func (c *Config) Preflight() error {
	c.built = nil
	tlsConfig := &tls.Config{}
	enabled := false
	if c.ClientCert != "" || c.ClientKey != "" {
		if c.ClientCert == "" {
			return errors.New("tlsCertificate must be specified if tlsPrivateKey is present")
		}
		if c.ClientKey == "" {
			return errors.New("tlsPrivateKey must be specified if tlsCertificate is present")
		}
		var err error
		if tlsConfig, err = TLSConfig(c.ClientCert, c.ClientKey, false); err != nil {
			return errors.Wrap(err, "cannot load certificate or key")
		}
		enabled = true
	}
	if c.CaCert != "" {
		caPool, err := GetCA(c.CaCert)
		if err != nil {
			return errors.Wrap(err, "cannot load CA certificate")
		}
		tlsConfig.RootCAs = caPool
		enabled = true
	}
	if c.ServerName != "" {
		tlsConfig.ServerName = c.ServerName
		enabled = true
	}
	if c.SkipVerify {
		tlsConfig.InsecureSkipVerify = true
		enabled = true
	}
	if enabled {
		c.built = tlsConfig
	}
	return nil
}

// AsTLSConfig returns the configuration built by Preflight, or nil if
// TLS is disabled.
func (c *Config) AsTLSConfig() *tls.Config {
	return c.built
}
