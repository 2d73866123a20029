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

package sinkprod

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cachesink/cachesink/internal/target/resolve"
	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBindDefaults(t *testing.T) {
	a := assert.New(t)
	r := require.New(t)

	var tgt TargetConfig
	var mapping MappingConfig
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	tgt.Bind(flags)
	mapping.Bind(flags)
	r.NoError(flags.Parse([]string{
		"--targetConn", "mysql://root@localhost/cache",
		"--targetMaxPoolSize", "4",
		"--mappingTable", "meta.map",
	}))
	r.NoError(tgt.Preflight())
	r.NoError(mapping.Preflight())

	a.Equal("mysql://root@localhost/cache", tgt.Conn)
	a.Equal(4, tgt.MaxPoolSize)
	a.Equal(defaultApplyTimeout, tgt.ApplyTimeout)
	a.Equal(defaultMaxLifetime, tgt.MaxLifetime)
	a.Equal("meta.map", mapping.Table)
	a.Equal(defaultMaxPoolSize, mapping.MaxPoolSize)
}

func TestPreflightErrors(t *testing.T) {
	a := assert.New(t)

	mapping := &MappingConfig{File: "x.yaml", CommonConfig: CommonConfig{Conn: "mysql://x"}}
	a.ErrorContains(mapping.Preflight(), "mutually exclusive")

	tgt := &TargetConfig{CommonConfig: CommonConfig{MaxPoolSize: -1}}
	a.ErrorContains(tgt.Preflight(), "targetMaxPoolSize")
}

func TestOpenMappingStore(t *testing.T) {
	a := assert.New(t)
	r := require.New(t)
	ctx := context.Background()

	// Nothing configured.
	store, cleanup, err := OpenMappingStore(ctx, &MappingConfig{}, nil)
	r.NoError(err)
	a.Nil(store)
	cleanup()

	// From a file.
	path := filepath.Join(t.TempDir(), "mapping.yaml")
	r.NoError(os.WriteFile(path, []byte(`
mappings:
  - datasource: pg
    table_name: sales.orders
    target_table_name: cache.orders
`), 0644))
	store, cleanup, err = OpenMappingStore(ctx, &MappingConfig{File: path}, nil)
	r.NoError(err)
	defer cleanup()
	r.IsType(&resolve.FileStore{}, store)
	tbl, ok, err := store.Lookup(ctx, "pg", "sales.orders")
	r.NoError(err)
	a.True(ok)
	a.Equal("cache.orders", tbl)
}

type slowExec struct{}

func (slowExec) Exec(ctx context.Context, _ string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(time.Minute):
		return nil
	}
}

func TestTimeoutExecutor(t *testing.T) {
	a := assert.New(t)

	exec := &TimeoutExecutor{Delegate: slowExec{}, Timeout: 10 * time.Millisecond}
	err := exec.Exec(context.Background(), "SELECT 1")
	a.True(errors.Is(err, context.DeadlineExceeded))
}

func TestPipelineDryRun(t *testing.T) {
	a := assert.New(t)
	r := require.New(t)
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "mapping.yaml")
	r.NoError(os.WriteFile(path, []byte(`
mappings:
  - datasource: pg
    table_name: sales.orders
    target_table_name: cache.orders
`), 0644))

	var cfg PipelineConfig
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	cfg.Bind(flags)
	r.NoError(flags.Parse([]string{"--dryRun", "--mappingFile", path}))
	r.NoError(cfg.Preflight())

	p, err := OpenPipeline(ctx, &cfg)
	r.NoError(err)
	defer func() { _ = p.Close() }()
	a.Nil(p.Target)
	r.NoError(p.CheckHealth(ctx))

	res, err := p.Translator().Process(ctx, `{"payload":{"op":"c","after":{"id":1},
		"source":{"connector":"pg","db":"sales","table":"orders"}}}`, p.Options)
	r.NoError(err)
	a.False(res.Executed)
	a.Equal("Executed: INSERT INTO cache.orders (id) VALUES (1);", res.Summary())
}

func TestPipelineRequiresTarget(t *testing.T) {
	var cfg PipelineConfig
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	cfg.Bind(flags)
	require.NoError(t, flags.Parse(nil))
	assert.ErrorContains(t, cfg.Preflight(), "targetConn")
}
