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

	"github.com/cachesink/cachesink/internal/target/resolve"
	"github.com/cachesink/cachesink/internal/types"
	"github.com/cachesink/cachesink/internal/util/stdpool"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
)

// MappingConfig defines where table mappings are read from. By default,
// mappings are read from the target database.
type MappingConfig struct {
	CommonConfig

	// A YAML file to read mappings from instead of a database.
	File string
	// The table holding datasource, table_name, and target_table_name.
	Table string
}

// Bind adds flags to the set.
func (c *MappingConfig) Bind(f *pflag.FlagSet) {
	c.CommonConfig.bind(f, "mapping")

	f.StringVar(&c.File, "mappingFile", "",
		"a YAML file of table mappings to use instead of a mapping table")
	f.StringVar(&c.Table, "mappingTable", resolve.DefaultMappingTable,
		"the table that maps source tables to cache tables; "+
			"read via mappingConn if set, otherwise via targetConn")
}

// Preflight ensures that unset configuration options have sane
// defaults.
func (c *MappingConfig) Preflight() error {
	if err := c.CommonConfig.preflight("mapping", false); err != nil {
		return err
	}
	if c.File != "" && c.Conn != "" {
		return errors.New("mappingFile and mappingConn are mutually exclusive")
	}
	if c.Table == "" {
		c.Table = resolve.DefaultMappingTable
	}
	return nil
}

// OpenMappingStore returns the configured mapping store. The target
// pool is used if neither a file nor a separate connection has been
// configured; it may be nil, in which case only override tables can be
// resolved. The returned cleanup function must be called.
func OpenMappingStore(
	ctx context.Context, config *MappingConfig, target *types.TargetPool,
) (resolve.Store, func(), error) {
	switch {
	case config.File != "":
		store, err := resolve.LoadFileStore(config.File)
		if err != nil {
			return nil, nil, err
		}
		return store, func() {}, nil

	case config.Conn != "":
		pool, err := stdpool.OpenTarget(ctx, config.Conn, config.options("mapping")...)
		if err != nil {
			return nil, nil, errors.Wrap(err, "could not open mapping database")
		}
		return resolve.NewSQLStore(pool, pool.Product, config.Table),
			func() { _ = pool.Close() }, nil

	case target != nil:
		return resolve.NewSQLStore(target, target.Product, config.Table), func() {}, nil

	default:
		log.Warn("no mapping source configured; only override tables can be resolved")
		return nil, func() {}, nil
	}
}
