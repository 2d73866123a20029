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

package stdserver

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	joonix "github.com/joonix/log"
	log "github.com/sirupsen/logrus"
)

// RequestIDHeader carries the request id. A caller-supplied value is
// preserved; otherwise one is generated.
const RequestIDHeader = "X-Request-Id"

type requestIDKey struct{}

// RequestID returns the id assigned to the request by the server, or
// an empty string.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

type readerSpy struct {
	r     io.ReadCloser
	count int64
}

var _ io.ReadCloser = (*readerSpy)(nil)

func (s *readerSpy) Close() error {
	return s.r.Close()
}

func (s *readerSpy) Read(dest []byte) (int, error) {
	n, err := s.r.Read(dest)
	s.count += int64(n)
	return n, err
}

type responseSpy struct {
	http.ResponseWriter
	statusCode int
	count      int64
}

var _ http.ResponseWriter = (*responseSpy)(nil)

func (s *responseSpy) Write(buf []byte) (int, error) {
	if s.statusCode == 0 {
		s.statusCode = http.StatusOK
	}
	n, err := s.ResponseWriter.Write(buf)
	s.count += int64(n)
	return n, err
}

func (s *responseSpy) WriteHeader(statusCode int) {
	s.statusCode = statusCode
	s.ResponseWriter.WriteHeader(statusCode)
}

// logWrapper wraps the given handler with request ids, performance
// monitoring, and logging. A panicking handler results in a 500
// response.
func logWrapper(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		r = r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id))

		// Wrap interfaces, so we can observe payload sizes.
		bodySpy := &readerSpy{r: r.Body}
		r.Body = bodySpy
		rSpy := &responseSpy{w, 0, 0}

		start := time.Now()
		defer func() {
			recovered := recover()
			if recovered != nil {
				httpPanics.Inc()
				if rSpy.statusCode == 0 {
					http.Error(rSpy, "internal error", http.StatusInternalServerError)
				}
			}

			latency := time.Since(start)
			// Per https://github.com/joonix/log#log
			msg := log.WithFields(log.Fields{
				"httpRequest": &joonix.HTTPRequest{
					Latency:      latency,
					Status:       rSpy.statusCode,
					Request:      r,
					ResponseSize: rSpy.count,
					RequestSize:  bodySpy.count,
				},
				"requestID": id,
			})
			httpCodes.WithLabelValues(strconv.Itoa(rSpy.statusCode)).Inc()
			httpPayloadIn.Add(float64(bodySpy.count))

			if recovered == nil {
				httpLatency.Observe(latency.Seconds())
				msg.Debug()
				return
			}
			if err, ok := recovered.(error); ok {
				msg = msg.WithError(err)
			} else {
				msg = msg.WithField("panic", fmt.Sprint(recovered))
			}
			msg.Error("panic in request handler")
		}()

		h.ServeHTTP(rSpy, r)
	})
}
