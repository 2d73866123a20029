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

package debezium

import (
	"bytes"
	"encoding/json"
)

// {
//   "schema": { ... },
//   "payload": {
//     "before": null,
//     "after": {
//       "id": 1,
//       "name": "Ann"
//     },
//     "source": {
//       "version": "2.5.0.Final",
//       "connector": "postgresql",
//       "name": "pg",
//       "ts_ms": 1699713099000,
//       "db": "sales",
//       "schema": "public",
//       "table": "orders"
//     },
//     "op": "c",
//     "ts_ms": 1699713101435,
//     "transaction": null
//   }
// }
//
// Keys are matched exactly, so the envelope is decoded into maps
// rather than structs.

// envelope is the top-level message. Only the payload is inspected.
type envelope map[string]json.RawMessage

// payload contains before/after state for a row and additional
// metadata for the change event.
type payload map[string]json.RawMessage

// source contains information about the origin of the event.
type source map[string]json.RawMessage

// Keys that are read from the envelope.
const (
	keyPayload   = "payload"
	keyBefore    = "before"
	keyAfter     = "after"
	keyOp        = "op"
	keySource    = "source"
	keyConnector = "connector"
	keyDB        = "db"
	keyTable     = "table"
)

// stringField returns the value of a JSON string member.
func stringField(m map[string]json.RawMessage, key string) (string, bool) {
	raw, ok := m[key]
	if !ok || string(bytes.TrimSpace(raw)) == "null" {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

// isObject returns true if the raw message is a JSON object.
func isObject(raw json.RawMessage) bool {
	for _, b := range raw {
		switch b {
		case ' ', '\t', '\r', '\n':
			continue
		case '{':
			return true
		default:
			return false
		}
	}
	return false
}
