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

package stdlogical

import (
	"context"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testConfig struct {
	name      string
	preflight bool
}

func (c *testConfig) Bind(f *pflag.FlagSet) { f.StringVar(&c.name, "name", "", "") }
func (c *testConfig) Preflight() error {
	c.preflight = true
	return nil
}

type unhealthy struct{}

func (unhealthy) CheckHealth(context.Context) error { return errors.New("not ready") }

func TestSmoke(t *testing.T) {
	a := assert.New(t)
	r := require.New(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ready := make(chan struct{})
	cfg := &testConfig{}

	cmd := New(&Template{
		Config:  cfg,
		Metrics: "127.0.0.1:13013",
		Start: func(context.Context, *cobra.Command) (any, error) {
			return unhealthy{}, nil
		},
		Use: "test",
		testCallback: func() {
			close(ready)
		},
	})
	// Override os.Args.
	cmd.SetArgs([]string{"--name", "x"})

	// Start the server in the background.
	done := make(chan error, 1)
	go func() {
		done <- cmd.ExecuteContext(ctx)
	}()

	select {
	case <-ctx.Done():
		r.Fail("timed out waiting for server")
	case <-ready:
	}
	a.True(cfg.preflight)
	a.Equal("x", cfg.name)

	resp, err := http.Get("http://127.0.0.1:13013/_/varz")
	r.NoError(err)
	r.Equal(http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	r.NoError(err)
	r.NoError(resp.Body.Close())
	a.Contains(string(body), "promhttp_metric_handler_requests_total")

	resp, err = http.Get("http://127.0.0.1:13013/_/healthz")
	r.NoError(err)
	r.NoError(resp.Body.Close())
	a.Equal(http.StatusServiceUnavailable, resp.StatusCode)

	cancel()
	r.NoError(<-done)
}
