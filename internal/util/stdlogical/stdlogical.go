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

// Package stdlogical contains a template for building a standard
// long-running CLI command.
package stdlogical

import (
	"context"
	"net"
	"net/http"
	_ "net/http/pprof" // Register pprof handlers.
	"runtime"
	"runtime/debug"
	"time"

	"github.com/cachesink/cachesink/internal/util/cfgfile"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

// Since we're installing the pprof handlers, we also want to enable
// profiling for blocking calls and mutex locking at a low sampling rate.
func init() {
	runtime.SetBlockProfileRate(1000)
	runtime.SetMutexProfileFraction(1000)
}

// MetricsAddrFlag is a global flag that will start an HTTP server.
const MetricsAddrFlag = "metricsAddr"

// Config is our standard protocol for configuration objects.
type Config interface {
	Bind(set *pflag.FlagSet)
	Preflight() error
}

// HasHealthCheck allows the object to report on its readiness.
type HasHealthCheck interface {
	CheckHealth(ctx context.Context) error
}

// HasServeMux allows the object to provide a [http.ServeMux] to bind
// the endpoints to, if the [MetricsAddrFlag] is not set.
type HasServeMux interface {
	GetServeMux() *http.ServeMux
}

// Runner is implemented by objects that do work until the context is
// canceled. A nil error should be returned on a graceful shutdown.
type Runner interface {
	Run(ctx context.Context) error
}

// A Template contains the input for [New].
type Template struct {
	// An optional object for CLI flag registration.
	Config Config
	// Passed to [cobra.Command.Long].
	Long string
	// An optional default value for [MetricsAddrFlag].
	Metrics string
	// Passed to [cobra.Command.Short].
	Short string
	// Start should return an object that implements zero or more of the
	// capability interfaces in this package.
	Start func(ctx context.Context, cmd *cobra.Command) (started any, err error)
	// Passed to [cobra.Command.Use].
	Use string
	// Called once all setup has been completed.
	testCallback func()
}

// New constructs a standard long-running command.
func New(t *Template) *cobra.Command {
	var configPath, metricsAddr string
	cmd := &cobra.Command{
		Args:  cobra.NoArgs,
		Long:  t.Long,
		Short: t.Short,
		Use:   t.Use,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := cfgfile.Apply(cmd.Flags(), configPath); err != nil {
				return err
			}
			if t.Config != nil {
				return t.Config.Preflight()
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			// Print build info on startup so we always have a place
			// to start debugging from.
			if bi, ok := debug.ReadBuildInfo(); ok {
				info := make(log.Fields, len(bi.Settings))
				for _, s := range bi.Settings {
					info[s.Key] = s.Value
				}
				log.WithFields(info).Info("cachesink starting")
			}

			started, err := t.Start(ctx, cmd)
			if err != nil {
				return err
			}
			if x, ok := started.(interface{ Close() error }); ok {
				defer func() { _ = x.Close() }()
			}

			var health HasHealthCheck
			if x, ok := started.(HasHealthCheck); ok {
				health = x
			}

			// Start metrics on a separate port or bind to an existing mux.
			if metricsAddr != "" {
				cancelServer, err := MetricsServer(metricsAddr, health)
				if err != nil {
					return err
				}
				defer cancelServer()
			} else if x, ok := started.(HasServeMux); ok {
				AddHandlers(x.GetServeMux(), health)
			}

			if t.testCallback != nil {
				t.testCallback()
			}

			if x, ok := started.(Runner); ok {
				return x.Run(ctx)
			}
			// Wait for shutdown. The main function uses log.Exit()
			// to call the above handler.
			<-ctx.Done()
			return nil
		},
	}
	if t.Config != nil {
		t.Config.Bind(cmd.Flags())
	}
	cfgfile.Bind(cmd.Flags(), &configPath)
	cmd.Flags().StringVar(&metricsAddr, MetricsAddrFlag, t.Metrics,
		"a host:port on which to serve metrics and diagnostics")
	return cmd
}

// AddHandlers populates the ServeMux with diagnostic endpoints.
func AddHandlers(mux *http.ServeMux, health HasHealthCheck) {
	// The pprof handlers attach themselves to the system-default mux.
	// The index page also assumes that the handlers are reachable from
	// this specific prefix.
	mux.Handle("/debug/pprof/", http.DefaultServeMux)
	mux.HandleFunc("/_/healthz", func(w http.ResponseWriter, r *http.Request) {
		if health != nil {
			if err := health.CheckHealth(r.Context()); err != nil {
				log.WithError(err).Warn("health check failed")
				http.Error(w, "health check failed", http.StatusServiceUnavailable)
				return
			}
		}
		http.Error(w, "OK", http.StatusOK)
	})
	mux.Handle("/_/varz", promhttp.InstrumentMetricHandler(
		prometheus.DefaultRegisterer,
		promhttp.HandlerFor(
			prometheus.DefaultGatherer,
			promhttp.HandlerOpts{
				EnableOpenMetrics: true,
				ErrorLog:          log.StandardLogger().WithField("promhttp", "true"),
			})))
	mux.Handle("/_/", http.NotFoundHandler()) // Reserve all under /_/
}

// MetricsServer starts a trivial HTTP server which runs until canceled.
func MetricsServer(bindAddr string, health HasHealthCheck) (func(), error) {
	mux := &http.ServeMux{}
	AddHandlers(mux, health)
	mux.Handle("/", http.NotFoundHandler())

	l, err := net.Listen("tcp", bindAddr)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	srv := &http.Server{
		Handler:           h2c.NewHandler(mux, &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}
	log.Infof("metrics server bound to %s", l.Addr())
	go func() { _ = srv.Serve(l) }()
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}
