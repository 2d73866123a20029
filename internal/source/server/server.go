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

// Package server accepts change events over HTTP.
package server

import (
	"context"
	"net/http"

	"github.com/cachesink/cachesink/internal/sinkprod"
	"github.com/cachesink/cachesink/internal/source/debezium"
	"github.com/cachesink/cachesink/internal/translate"
	"github.com/cachesink/cachesink/internal/util/stdlogical"
	"github.com/cachesink/cachesink/internal/util/stdserver"
)

// A Server receives change events and applies them to the target
// database.
type Server struct {
	*stdserver.Server
	Pipeline *sinkprod.Pipeline
}

var (
	_ stdlogical.HasHealthCheck = (*Server)(nil)
	_ stdlogical.HasServeMux    = (*Server)(nil)
	_ stdlogical.Runner         = (*Server)(nil)
)

// NewHandler routes each supported format to the pipeline's
// Translator for it.
func NewHandler(pipeline *sinkprod.Pipeline) *Handler {
	procs := make(map[debezium.Format]translate.Processor, len(debezium.Formats))
	for _, format := range debezium.Formats {
		procs[format] = pipeline.TranslatorFor(format)
	}
	return &Handler{Defaults: pipeline.Options, Processors: procs}
}

// Start opens the target database and binds the listener. Requests are
// served once Run is called. The caller must call Close.
func Start(ctx context.Context, config *Config) (*Server, error) {
	pipeline, err := sinkprod.OpenPipeline(ctx, &config.Pipeline)
	if err != nil {
		return nil, err
	}
	srv, err := newServer(config, pipeline, NewHandler(pipeline))
	if err != nil {
		_ = pipeline.Close()
		return nil, err
	}
	return srv, nil
}

func newServer(config *Config, pipeline *sinkprod.Pipeline, handler http.Handler) (*Server, error) {
	l, err := stdserver.Listener(&config.HTTP)
	if err != nil {
		return nil, err
	}
	srv, err := stdserver.New(&config.HTTP, l, stdserver.Mux(&config.HTTP, handler))
	if err != nil {
		_ = l.Close()
		return nil, err
	}
	return &Server{Server: srv, Pipeline: pipeline}, nil
}

// CheckHealth implements [stdlogical.HasHealthCheck].
func (s *Server) CheckHealth(ctx context.Context) error {
	return s.Pipeline.CheckHealth(ctx)
}

// Close releases database connections.
func (s *Server) Close() error {
	return s.Pipeline.Close()
}
