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

package translate

import (
	"strings"

	"github.com/spf13/pflag"
)

// Config contains the user-visible defaults applied to every message
// that does not carry its own options.
type Config struct {
	ChangeLog     bool
	DryRun        bool
	OverrideTable string
}

// Bind registers flags.
func (c *Config) Bind(flags *pflag.FlagSet) {
	flags.BoolVar(&c.ChangeLog, "changeLog", false,
		"append audited rows to the cache table instead of mirroring the source row")
	flags.BoolVar(&c.DryRun, "dryRun", false,
		"synthesize statements without executing them")
	flags.StringVar(&c.OverrideTable, "overrideTable", "",
		"write to this cache table instead of consulting the table mapping")
}

// Preflight normalizes the configuration.
func (c *Config) Preflight() error {
	c.OverrideTable = strings.TrimSpace(c.OverrideTable)
	return nil
}

// Options returns the per-message options implied by the Config.
func (c *Config) Options() Options {
	return Options{
		ChangeLog:     c.ChangeLog,
		OverrideTable: c.OverrideTable,
	}
}
