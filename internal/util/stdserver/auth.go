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
	"crypto/subtle"
	"net/http"
	"strings"

	log "github.com/sirupsen/logrus"
)

// Token returns the bearer authorization header or the access_token
// HTTP parameter associated with the request. If the query parameter
// is used, it is removed from the request so that it is not logged.
// An empty string is returned if the request carries no token.
func Token(req *http.Request) string {
	var token string
	if raw := req.Header.Get("Authorization"); raw != "" {
		if strings.HasPrefix(raw, "Bearer ") {
			token = raw[7:]
		}
	} else if token = req.URL.Query().Get("access_token"); token != "" {
		values := req.URL.Query()
		values.Del("access_token")
		req.URL.RawQuery = values.Encode()
	}
	return token
}

// authWrapper rejects requests that do not present the expected
// token. If the expected token is empty, all requests are allowed.
func authWrapper(expected string, h http.Handler) http.Handler {
	if expected == "" {
		log.Info("authentication disabled, any caller may write to the target database")
		return h
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := Token(r)
		if subtle.ConstantTimeCompare([]byte(token), []byte(expected)) != 1 {
			authFailures.Inc()
			http.Error(w, "missing or invalid bearer token", http.StatusUnauthorized)
			return
		}
		h.ServeHTTP(w, r)
	})
}
