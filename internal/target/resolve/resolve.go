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

// Package resolve determines the cache table that receives the
// statements synthesized for a change event.
package resolve

import (
	"context"
	"strings"
	"time"

	"github.com/cachesink/cachesink/internal/types"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// A Store maps an origin table to a cache table. Lookup returns
// ok=false if no mapping exists.
type Store interface {
	Lookup(ctx context.Context, datasource, table string) (target string, ok bool, err error)
}

// Target is the result of a resolution.
type Target struct {
	Table      string
	Overridden bool // The table was supplied by the caller.
}

// Resolver chooses a cache table for a change event. It is safe for
// concurrent use and retains no state between calls.
type Resolver struct {
	Store Store
}

// New constructs a Resolver.
func New(store Store) *Resolver {
	return &Resolver{Store: store}
}

// Resolve returns the cache table for the named origin table. A
// non-empty override is returned as-is, without consulting the Store.
// Otherwise an origin with an empty datasource, database, or table name
// never matches a mapping.
func (r *Resolver) Resolve(
	ctx context.Context, datasource, sourceTable, override string,
) (Target, error) {
	if override = strings.TrimSpace(override); override != "" {
		log.WithFields(log.Fields{
			"datasource": datasource,
			"table":      sourceTable,
			"target":     override,
		}).Warn("using override table")
		resolveOverrides.Inc()
		return Target{Table: override, Overridden: true}, nil
	}

	if r.Store == nil {
		return Target{}, types.ErrResolverUnavailable.New(
			"no mapping store configured for datasource=%s and table=%s", datasource, sourceTable)
	}

	if !complete(datasource, sourceTable) {
		resolveMisses.Inc()
		return Target{}, types.ErrTargetNotFound.New(
			"incomplete origin datasource=%q and table=%q cannot be mapped", datasource, sourceTable)
	}

	start := time.Now()
	target, ok, err := r.Store.Lookup(ctx, datasource, sourceTable)
	resolveDurations.Observe(time.Since(start).Seconds())
	if err != nil {
		resolveErrors.Inc()
		return Target{}, types.ErrResolverUnavailable.Wrap(errors.Wrapf(err,
			"failed to query mapping for datasource=%s and table=%s", datasource, sourceTable))
	}
	if !ok {
		resolveMisses.Inc()
		return Target{}, types.ErrTargetNotFound.New(
			"no mapping found for datasource=%s and table=%s", datasource, sourceTable)
	}
	log.WithFields(log.Fields{
		"datasource": datasource,
		"table":      sourceTable,
		"target":     target,
	}).Debug("mapped to cache table")
	return Target{Table: target}, nil
}

// complete reports whether none of the origin names is empty.
func complete(datasource, sourceTable string) bool {
	db, table, ok := strings.Cut(sourceTable, ".")
	return ok && datasource != "" && db != "" && table != ""
}
