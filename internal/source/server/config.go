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

package server

import (
	"github.com/cachesink/cachesink/internal/sinkprod"
	"github.com/cachesink/cachesink/internal/util/stdserver"
	"github.com/spf13/pflag"
)

// Config contains the user-visible configuration for running an HTTP
// server that accepts change events.
type Config struct {
	HTTP     stdserver.Config
	Pipeline sinkprod.PipelineConfig
}

// Bind registers flags.
func (c *Config) Bind(flags *pflag.FlagSet) {
	c.HTTP.Bind(flags)
	c.Pipeline.Bind(flags)
}

// Preflight validates the nested configurations.
func (c *Config) Preflight() error {
	if err := c.HTTP.Preflight(); err != nil {
		return err
	}
	return c.Pipeline.Preflight()
}
