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

// Package apply contains a command to translate and apply a single
// change event.
package apply

import (
	"fmt"
	"io"
	"os"

	"github.com/cachesink/cachesink/internal/sinkprod"
	"github.com/cachesink/cachesink/internal/util/cfgfile"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Config selects the message to apply.
type Config struct {
	Pipeline sinkprod.PipelineConfig

	File    string // A path, or "-" for stdin.
	Message string // Takes precedence over File.
}

// Bind registers flags.
func (c *Config) Bind(f *pflag.FlagSet) {
	c.Pipeline.Bind(f)
	f.StringVar(&c.File, "file", "-", "read the message from this file; - reads stdin")
	f.StringVar(&c.Message, "message", "", "the message to apply")
}

// Preflight validates the configuration.
func (c *Config) Preflight() error {
	if c.Message != "" && c.File != "" && c.File != "-" {
		return errors.New("message and file are mutually exclusive")
	}
	return c.Pipeline.Preflight()
}

func (c *Config) read(stdin io.Reader) (string, error) {
	if c.Message != "" {
		return c.Message, nil
	}
	if c.File == "" || c.File == "-" {
		buf, err := io.ReadAll(stdin)
		return string(buf), errors.Wrap(err, "could not read stdin")
	}
	buf, err := os.ReadFile(c.File)
	return string(buf), errors.WithStack(err)
}

// Command returns the one-shot apply command. The statement summary is
// printed to stdout.
func Command() *cobra.Command {
	var cfg Config
	var configPath string
	cmd := &cobra.Command{
		Args:  cobra.NoArgs,
		Short: "translate and apply a single change event",
		Use:   "apply",
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := cfgfile.Apply(cmd.Flags(), configPath); err != nil {
				return err
			}
			return cfg.Preflight()
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			msg, err := cfg.read(cmd.InOrStdin())
			if err != nil {
				return err
			}

			pipeline, err := sinkprod.OpenPipeline(ctx, &cfg.Pipeline)
			if err != nil {
				return err
			}
			defer func() { _ = pipeline.Close() }()

			res, err := pipeline.Translator().Process(ctx, msg, pipeline.Options)
			if err != nil {
				return err
			}
			if res.Overridden {
				log.WithField("table", res.Table).Debug("mapping lookup bypassed")
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), res.Summary())
			return errors.WithStack(err)
		},
	}
	cfg.Bind(cmd.Flags())
	cfgfile.Bind(cmd.Flags(), &configPath)
	return cmd
}
