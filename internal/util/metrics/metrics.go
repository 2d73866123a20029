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

// Package metrics contains some common utility functions for
// constructing performance-monitoring metrics.
package metrics

import (
	"math"
	"time"

	"github.com/cachesink/cachesink/internal/types"
)

const (
	datasourceLabel = "datasource"
	kindLabel       = "kind"
	modeLabel       = "mode"
	opLabel         = "op"
	tableLabel      = "table"
)

var (
	// LatencyBuckets is a default collection of histogram buckets
	// for latency metrics. The values in this slice assume that the
	// metric's base units are measured in seconds.
	LatencyBuckets = Buckets(time.Millisecond.Seconds(), time.Minute.Seconds())
	// SourceLabels are the labels to be applied to metrics that are
	// specific to an origin table.
	SourceLabels = []string{datasourceLabel, tableLabel}
	// OutcomeLabels break down the result of processing one event.
	OutcomeLabels = []string{datasourceLabel, tableLabel, opLabel, modeLabel, kindLabel}
)

// Buckets computes a linear log10 sequence of buckets, starting
// from the base unit, up to the specified maximum.
func Buckets(base, max float64) []float64 {
	var ret []float64
	for {
		for i := 0; i < 9; i++ {
			// next = i*base + base
			next := math.FMA(float64(i), base, base)
			if next > max {
				return ret
			}
			// Round to three decimal places to avoid awkward mantissas.
			next = math.Round(next*1000) / 1000
			ret = append(ret, next)
		}
		base *= 10
	}
}

// SourceValues returns the values to plug into a vector metric that
// expects SourceLabels. A nil event, as when decoding fails, is
// reported with empty values.
func SourceValues(ev *types.ChangeEvent) []string {
	if ev == nil {
		return []string{"", ""}
	}
	return []string{ev.Datasource, ev.SourceName()}
}

// OutcomeValues returns the values to plug into a vector metric that
// expects OutcomeLabels. The kind is "OK" for a nil error.
func OutcomeValues(ev *types.ChangeEvent, mode types.Mode, err error) []string {
	kind := types.Kind(err)
	if kind == "" {
		kind = "OK"
	}
	op := ""
	if ev != nil {
		op = ev.Operation.Code()
	}
	return append(SourceValues(ev), op, mode.String(), kind)
}

// Unattributed clears the origin-table values from the result of
// OutcomeValues. It is used for events whose names were never matched
// against a mapping, so that arbitrary input does not create new
// series.
func Unattributed(values []string) []string {
	values[0], values[1] = "", ""
	return values
}
