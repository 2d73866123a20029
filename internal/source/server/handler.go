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
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/cachesink/cachesink/internal/source/debezium"
	"github.com/cachesink/cachesink/internal/translate"
	"github.com/cachesink/cachesink/internal/types"
	"github.com/cachesink/cachesink/internal/util/stdserver"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Query parameters that override the server defaults for a request.
const (
	ChangeLogParam     = "changeLog"
	OverrideTableParam = "overrideTable"
)

// Handler accepts one change event per POST request. The path selects
// the decoding: /json or /struct.
type Handler struct {
	// Applied unless overridden by query parameters.
	Defaults translate.Options
	// Indexed by format name.
	Processors map[debezium.Format]translate.Processor
}

var _ http.Handler = (*Handler)(nil)

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	format, err := debezium.ParseFormat(strings.Trim(r.URL.Path, "/"))
	if err != nil {
		http.NotFound(w, r)
		return
	}
	proc, ok := h.Processors[format]
	if !ok {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "only POST is supported", http.StatusMethodNotAllowed)
		return
	}

	opts, err := h.options(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		status := http.StatusBadRequest
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		http.Error(w, "could not read request body", status)
		return
	}

	res, err := proc.Process(r.Context(), string(body), opts)
	if err != nil {
		status := StatusFor(err)
		entry := log.WithError(err).WithFields(log.Fields{
			"format":    format,
			"requestID": stdserver.RequestID(r.Context()),
			"status":    status,
		})
		if status >= http.StatusInternalServerError {
			entry.Error("could not apply change event")
		} else {
			entry.Debug("rejected change event")
		}
		http.Error(w, err.Error(), status)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, res.Summary())
}

// options overlays the request's query parameters onto the defaults.
func (h *Handler) options(r *http.Request) (translate.Options, error) {
	opts := h.Defaults
	query := r.URL.Query()
	if query.Has(ChangeLogParam) {
		raw := query.Get(ChangeLogParam)
		// A bare ?changeLog enables the mode.
		if raw == "" {
			opts.ChangeLog = true
		} else {
			b, err := strconv.ParseBool(raw)
			if err != nil {
				return opts, types.ErrMalformedEvent.New("invalid %s parameter %q", ChangeLogParam, raw)
			}
			opts.ChangeLog = b
		}
	}
	if query.Has(OverrideTableParam) {
		opts.OverrideTable = strings.TrimSpace(query.Get(OverrideTableParam))
	}
	return opts, nil
}

// StatusFor maps an error kind onto an HTTP status code.
func StatusFor(err error) int {
	switch types.Kind(err) {
	case types.KindMalformedEvent, types.KindUnsupportedOperation:
		return http.StatusBadRequest
	case types.KindTargetNotFound:
		return http.StatusNotFound
	case types.KindResolverUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
