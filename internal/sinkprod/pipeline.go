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

	"github.com/cachesink/cachesink/internal/source/debezium"
	"github.com/cachesink/cachesink/internal/target/resolve"
	"github.com/cachesink/cachesink/internal/translate"
	"github.com/cachesink/cachesink/internal/types"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
)

// PipelineConfig gathers everything needed to turn messages into
// executed statements.
type PipelineConfig struct {
	Decode    debezium.Config
	Mapping   MappingConfig
	Target    TargetConfig
	Translate translate.Config
}

// Bind adds flags to the set.
func (c *PipelineConfig) Bind(f *pflag.FlagSet) {
	c.Decode.Bind(f)
	c.Mapping.Bind(f)
	c.Target.Bind(f)
	c.Translate.Bind(f)
}

// Preflight validates the nested configurations.
func (c *PipelineConfig) Preflight() error {
	if err := c.Decode.Preflight(); err != nil {
		return err
	}
	if err := c.Mapping.Preflight(); err != nil {
		return err
	}
	if err := c.Target.Preflight(); err != nil {
		return err
	}
	if err := c.Translate.Preflight(); err != nil {
		return err
	}
	if c.Target.Conn == "" && !c.Translate.DryRun {
		return errors.New("targetConn must be set unless dryRun is enabled")
	}
	return nil
}

// Pipeline holds the opened resources shared by all message sources.
type Pipeline struct {
	// The default decoding for sources that do not choose their own.
	Format debezium.Format
	// The default per-message options.
	Options translate.Options
	// Nil when running without a target database.
	Target *types.TargetPool

	translators map[debezium.Format]*translate.Translator
	cleanup     []func()
}

// OpenPipeline connects to the target and mapping databases. The
// caller must call [Pipeline.Close].
func OpenPipeline(ctx context.Context, config *PipelineConfig) (*Pipeline, error) {
	p := &Pipeline{
		Format:      config.Decode.Format,
		Options:     config.Translate.Options(),
		translators: make(map[debezium.Format]*translate.Translator, len(debezium.Formats)),
	}

	target, err := OpenTargetPool(ctx, &config.Target)
	if err != nil {
		return nil, err
	}
	if target != nil {
		p.Target = target
		p.cleanup = append(p.cleanup, func() { _ = target.Close() })
	}

	store, closeStore, err := OpenMappingStore(ctx, &config.Mapping, target)
	if err != nil {
		p.Close()
		return nil, err
	}
	p.cleanup = append(p.cleanup, closeStore)
	resolver := resolve.New(store)

	var exec types.Executor
	if target != nil && !config.Translate.DryRun {
		exec = &TimeoutExecutor{Delegate: target, Timeout: config.Target.ApplyTimeout}
	} else {
		log.Warn("dry run: statements will be logged but not executed")
	}

	for _, format := range debezium.Formats {
		dec, err := debezium.NewDecoder(format)
		if err != nil {
			p.Close()
			return nil, err
		}
		p.translators[format] = &translate.Translator{
			Decoder:  dec,
			Resolver: resolver,
			Executor: exec,
		}
	}
	return p, nil
}

// CheckHealth pings the target database, if one is configured.
func (p *Pipeline) CheckHealth(ctx context.Context) error {
	if p.Target == nil {
		return nil
	}
	return errors.Wrap(p.Target.PingContext(ctx), "target database unreachable")
}

// Close releases the pipeline's database connections.
func (p *Pipeline) Close() error {
	for i := len(p.cleanup) - 1; i >= 0; i-- {
		p.cleanup[i]()
	}
	p.cleanup = nil
	return nil
}

// Translator returns the Translator for the configured default format.
func (p *Pipeline) Translator() *translate.Translator {
	return p.translators[p.Format]
}

// TranslatorFor returns the Translator for the given format, or nil if
// the format is unknown.
func (p *Pipeline) TranslatorFor(format debezium.Format) *translate.Translator {
	return p.translators[format]
}
