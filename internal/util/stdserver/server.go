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

// Package stdserver contains a generic HTTP server that
// can be used by sources that receive http requests.
package stdserver

import (
	"context"
	"crypto/tls"
	"net"
	"net/http"
	"time"

	"github.com/cachesink/cachesink/internal/util/secure"
	"github.com/cachesink/cachesink/internal/util/stdlogical"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
	"golang.org/x/sync/errgroup"
)

// shutdownGrace bounds the time spent draining in-flight requests.
const shutdownGrace = 10 * time.Second

// A Server receives incoming messages and hands them to a handler.
type Server struct {
	listener net.Listener
	mux      *http.ServeMux
	srv      *http.Server
}

var (
	_ stdlogical.HasServeMux = (*Server)(nil)
	_ stdlogical.Runner      = (*Server)(nil)
)

// GetServeMux implements [stdlogical.HasServeMux].
func (s *Server) GetServeMux() *http.ServeMux {
	return s.mux
}

// Addr returns the address the server is bound to.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// New constructs the top-level network server. Requests are served
// once Run is called.
func New(config *Config, listener net.Listener, mux *http.ServeMux) (*Server, error) {
	tlsConfig, err := secure.TLSConfig(config.TLSCertFile, config.TLSPrivateKey, config.GenerateSelfSigned)
	if err != nil {
		return nil, err
	}
	return newServer(listener, mux, tlsConfig), nil
}

func newServer(listener net.Listener, mux *http.ServeMux, tlsConfig *tls.Config) *Server {
	return &Server{
		listener: listener,
		mux:      mux,
		srv: &http.Server{
			Handler:           h2c.NewHandler(mux, &http2.Server{}),
			ReadHeaderTimeout: 10 * time.Second,
			TLSConfig:         tlsConfig,
		},
	}
}

// Run serves requests until the context is canceled, then gracefully
// drains the server.
func (s *Server) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if s.srv.TLSConfig != nil {
			err = s.srv.ServeTLS(s.listener, "", "")
		} else {
			err = s.srv.Serve(s.listener)
		}
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrap(err, "unable to serve requests")
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Error("did not shut down cleanly")
		} else {
			log.Info("Server shutdown complete")
		}
		return nil
	})
	return g.Wait()
}

// Mux constructs the http.ServeMux that routes requests. The handler
// receives every request outside of the /_/ diagnostic prefix.
func Mux(config *Config, handler http.Handler) *http.ServeMux {
	mux := &http.ServeMux{}
	h := http.MaxBytesHandler(handler, config.MaxBodySize)
	mux.Handle("/", logWrapper(authWrapper(config.AuthToken, h)))
	return mux
}
