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

// Package debezium decodes Debezium change events, in either their
// JSON serialization or the struct-text rendering produced by a Kafka
// Connect Struct's toString method.
package debezium

import (
	"bytes"
	"encoding/json"

	"github.com/cachesink/cachesink/internal/types"
	"github.com/pkg/errors"
)

// JSONDecoder decodes Debezium JSON envelopes. Column values keep
// their JSON type so that the literal encoding is exact.
type JSONDecoder struct{}

var _ types.Decoder = JSONDecoder{}

// Decode implements [types.Decoder].
func (JSONDecoder) Decode(msg string) (*types.ChangeEvent, error) {
	var env envelope
	if err := decodeObject([]byte(msg), &env); err != nil {
		return nil, types.ErrMalformedEvent.Wrap(errors.Wrap(err, "could not parse message"))
	}
	if env == nil {
		return nil, types.ErrMalformedEvent.New("message is not a JSON object")
	}

	raw, ok := env[keyPayload]
	if !ok {
		return nil, types.ErrMalformedEvent.New("missing payload in message")
	}
	var pay payload
	if err := decodeObject(raw, &pay); err != nil || pay == nil {
		return nil, types.ErrMalformedEvent.New("payload is not a JSON object")
	}

	raw, ok = pay[keySource]
	if !ok {
		return nil, types.ErrMalformedEvent.New("missing source info in message")
	}
	var src source
	if err := decodeObject(raw, &src); err != nil || src == nil {
		return nil, types.ErrMalformedEvent.New("source is not a JSON object")
	}

	code, ok := stringField(pay, keyOp)
	if !ok {
		return nil, types.ErrMalformedEvent.New("missing or non-string op in message")
	}

	ev := &types.ChangeEvent{}
	for _, f := range []struct {
		key  string
		dest *string
	}{
		{keyConnector, &ev.Datasource},
		{keyDB, &ev.SourceDatabase},
		{keyTable, &ev.SourceTable},
	} {
		s, _ := stringField(src, f.key)
		if s == "" {
			return nil, types.ErrMalformedEvent.New("missing %s in source info (op=%q)", f.key, code)
		}
		*f.dest = s
	}

	op, ok := types.ParseOperation(code)
	if !ok {
		return nil, types.ErrUnsupportedOperation.New("unsupported op %q for datasource=%s table=%s",
			code, ev.Datasource, ev.SourceName())
	}
	ev.Operation = op

	var err error
	if ev.Before, err = rowImage(pay[keyBefore]); err != nil {
		return nil, types.ErrMalformedEvent.Wrap(errors.Wrapf(err, "before image of %s", ev.SourceName()))
	}
	if ev.After, err = rowImage(pay[keyAfter]); err != nil {
		return nil, types.ErrMalformedEvent.Wrap(errors.Wrapf(err, "after image of %s", ev.SourceName()))
	}

	if err := ev.Validate(); err != nil {
		return nil, err
	}
	return ev, nil
}

// decodeObject decodes a JSON value, preserving numeric text.
func decodeObject(data []byte, dest any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(dest); err != nil {
		return err
	}
	if dec.More() {
		return errors.New("unexpected data after JSON value")
	}
	return nil
}

// rowImage returns nil for anything other than a JSON object.
func rowImage(raw json.RawMessage) (*types.FieldMap, error) {
	if !isObject(raw) {
		return nil, nil
	}
	ret := &types.FieldMap{}
	if err := ret.UnmarshalJSON(raw); err != nil {
		return nil, err
	}
	return ret, nil
}
