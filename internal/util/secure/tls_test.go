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
	"crypto/ecdsa"
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"net/url"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeKeyPair writes a self-signed certificate and its key as PEM
// files, returning their paths.
func writeKeyPair(t *testing.T) (certPath, keyPath string) {
	t.Helper()
	r := require.New(t)
	cert, err := SelfSigned()
	r.NoError(err)

	dir := t.TempDir()
	certPath = filepath.Join(dir, "test.crt")
	keyPath = filepath.Join(dir, "test.key")

	r.NoError(os.WriteFile(certPath, pem.EncodeToMemory(&pem.Block{
		Type:  "CERTIFICATE",
		Bytes: cert.Certificate[0],
	}), 0600))
	keyBytes, err := x509.MarshalECPrivateKey(cert.PrivateKey.(*ecdsa.PrivateKey))
	r.NoError(err)
	r.NoError(os.WriteFile(keyPath, pem.EncodeToMemory(&pem.Block{
		Type:  "EC PRIVATE KEY",
		Bytes: keyBytes,
	}), 0600))
	return certPath, keyPath
}

// TestParseTLSOptions verifies that postgres-style sslmode parameters
// are turned into TLS configurations.
func TestParseTLSOptions(t *testing.T) {
	a := assert.New(t)
	r := require.New(t)

	certPath, keyPath := writeKeyPair(t)
	missing := filepath.Join(t.TempDir(), "not_there.crt")

	tests := []struct {
		name   string
		url    string
		want   []*tls.Config
		errMsg string
	}{
		{
			name: "none",
			url:  "db://localhost:1000",
			want: []*tls.Config{nil},
		},
		{
			name: "insecure",
			url:  "db://localhost:1000?sslmode=disable",
			want: []*tls.Config{nil},
		},
		{
			name: "allow",
			url:  "db://localhost:1000?sslmode=allow",
			want: []*tls.Config{nil, {InsecureSkipVerify: true}},
		},
		{
			name: "prefer",
			url:  "db://localhost:1000?sslmode=prefer",
			want: []*tls.Config{{InsecureSkipVerify: true}, nil},
		},
		{
			name: "require",
			url:  "db://localhost:1000?sslmode=require",
			want: []*tls.Config{{InsecureSkipVerify: true}},
		},
		{
			name: "require with ca",
			url:  "db://localhost:1000?sslmode=require&sslrootcert=" + certPath,
			want: []*tls.Config{{InsecureSkipVerify: true}},
		},
		{
			name: "verify-ca",
			url:  "db://localhost:1000?sslmode=verify-ca&sslrootcert=" + certPath,
			want: []*tls.Config{{InsecureSkipVerify: true}},
		},
		{
			name:   "verify-ca invalid",
			url:    "db://localhost:1000?sslmode=verify-ca&sslrootcert=" + missing,
			errMsg: "no such file or directory",
		},
		{
			name: "verify-full",
			url: "db://localhost:1000?sslmode=verify-full&sslrootcert=" + certPath +
				"&sslcert=" + certPath + "&sslkey=" + keyPath,
			want: []*tls.Config{{InsecureSkipVerify: false}},
		},
		{
			name:   "verify-full missing key",
			url:    "db://localhost:1000?sslmode=verify-full&sslrootcert=" + certPath + "&sslcert=" + certPath,
			errMsg: "unable to read key pair",
		},
		{
			name:   "invalid mode",
			url:    "db://localhost:1000?sslmode=dummy",
			errMsg: `sslmode "dummy" is invalid`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parsed, err := url.Parse(tt.url)
			r.NoError(err)
			results, err := ParseTLSOptions(parsed)
			if tt.errMsg != "" {
				a.ErrorContains(err, tt.errMsg)
				return
			}
			r.NoError(err)
			r.Len(results, len(tt.want))
			for i, want := range tt.want {
				got := results[i]
				if want == nil {
					a.Nil(got)
					continue
				}
				a.Equal(want.InsecureSkipVerify, got.InsecureSkipVerify)
			}
		})
	}

	// Full verification checks the host name and presents the key pair.
	parsed, err := url.Parse("db://localhost:1000?sslmode=verify-full&sslrootcert=" + certPath +
		"&sslcert=" + certPath + "&sslkey=" + keyPath)
	r.NoError(err)
	results, err := ParseTLSOptions(parsed)
	r.NoError(err)
	a.Equal("localhost", results[0].ServerName)
	a.Len(results[0].Certificates, 1)
	a.NotNil(results[0].RootCAs)
}

func TestTLSConfig(t *testing.T) {
	a := assert.New(t)
	r := require.New(t)

	cfg, err := TLSConfig("", "", false)
	r.NoError(err)
	a.Nil(cfg)

	cfg, err = TLSConfig("", "", true)
	r.NoError(err)
	r.Len(cfg.Certificates, 1)
	leaf, err := x509.ParseCertificate(cfg.Certificates[0].Certificate[0])
	r.NoError(err)
	a.NoError(leaf.VerifyHostname("localhost"))

	certPath, keyPath := writeKeyPair(t)
	cfg, err = TLSConfig(certPath, keyPath, false)
	r.NoError(err)
	a.Len(cfg.Certificates, 1)
}

func TestConfig(t *testing.T) {
	certPath, keyPath := writeKeyPair(t)

	tests := []struct {
		name    string
		args    []string
		enabled bool
		errMsg  string
	}{
		{name: "disabled"},
		{name: "skip verify", args: []string{"--insecureSkipVerify"}, enabled: true},
		{name: "ca", args: []string{"--tlsCACertificate", certPath}, enabled: true},
		{
			name:    "client cert",
			args:    []string{"--tlsCertificate", certPath, "--tlsPrivateKey", keyPath},
			enabled: true,
		},
		{
			name:   "cert without key",
			args:   []string{"--tlsCertificate", certPath},
			errMsg: "tlsPrivateKey must be specified",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := assert.New(t)
			var cfg Config
			flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
			cfg.Bind(flags)
			require.NoError(t, flags.Parse(tt.args))
			err := cfg.Preflight()
			if tt.errMsg != "" {
				a.ErrorContains(err, tt.errMsg)
				return
			}
			require.NoError(t, err)
			a.Equal(tt.enabled, cfg.AsTLSConfig() != nil)
		})
	}
}
