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

package types

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/pkg/errors"
)

// ValueKind identifies the representation of a column Value.
type ValueKind int

// The kinds of values that may appear in a row image.
const (
	KindNull ValueKind = iota
	KindNumber
	KindBool
	KindString
	KindJSON
	KindToken
)

func (k ValueKind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindString:
		return "string"
	case KindJSON:
		return "json"
	case KindToken:
		return "token"
	default:
		return "unknown"
	}
}

// A Value is a single column value taken from a row image. Text holds
// the value's source representation: the exact decimal text of a
// number, the unescaped contents of a string, the compact encoding of a
// nested array or object, or the raw text of a struct-text token.
type Value struct {
	Kind ValueKind
	Text string
}

// Null returns a null Value.
func Null() Value { return Value{Kind: KindNull} }

// Number returns a numeric Value that will be rendered as text.
func Number(text string) Value { return Value{Kind: KindNumber, Text: text} }

// Bool returns a boolean Value.
func Bool(b bool) Value {
	if b {
		return Value{Kind: KindBool, Text: "true"}
	}
	return Value{Kind: KindBool, Text: "false"}
}

// String returns a string Value.
func String(s string) Value { return Value{Kind: KindString, Text: s} }

// JSON returns a Value containing a nested array or object.
func JSON(compact string) Value { return Value{Kind: KindJSON, Text: compact} }

// Token returns a Value of unknown type, as extracted from struct-text.
func Token(s string) Value { return Value{Kind: KindToken, Text: s} }

// IsNull returns true if the Value is a null.
func (v Value) IsNull() bool { return v.Kind == KindNull }

// UnmarshalJSON decodes any JSON value into a Value, retaining the
// exact text of numbers.
func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return errors.New("empty value")
	}
	switch data[0] {
	case 'n':
		*v = Null()
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return errors.WithStack(err)
		}
		*v = Bool(b)
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return errors.WithStack(err)
		}
		*v = String(s)
	case '[', '{':
		var buf bytes.Buffer
		if err := json.Compact(&buf, data); err != nil {
			return errors.WithStack(err)
		}
		*v = JSON(buf.String())
	default:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		var n json.Number
		if err := dec.Decode(&n); err != nil {
			return errors.WithStack(err)
		}
		*v = Number(n.String())
	}
	return nil
}

// A Field is a named column Value.
type Field struct {
	Name  string
	Value Value
}

// A FieldMap is an ordered mapping of column names to values. Names
// are unique and iteration follows insertion order. The zero value is
// ready to use.
type FieldMap struct {
	fields []Field
	index  map[string]int
}

// NewFieldMap returns a FieldMap populated with the given fields.
// Later duplicates replace earlier values in place.
func NewFieldMap(fields ...Field) *FieldMap {
	ret := &FieldMap{}
	for _, f := range fields {
		ret.Put(f.Name, f.Value)
	}
	return ret
}

// Put sets the value of the named column. A column that already
// exists keeps its original position.
func (m *FieldMap) Put(name string, value Value) {
	if idx, ok := m.index[name]; ok {
		m.fields[idx].Value = value
		return
	}
	if m.index == nil {
		m.index = make(map[string]int)
	}
	m.index[name] = len(m.fields)
	m.fields = append(m.fields, Field{Name: name, Value: value})
}

// Get returns the value of the named column.
func (m *FieldMap) Get(name string) (Value, bool) {
	if m == nil {
		return Value{}, false
	}
	idx, ok := m.index[name]
	if !ok {
		return Value{}, false
	}
	return m.fields[idx].Value, true
}

// Len returns the number of columns.
func (m *FieldMap) Len() int {
	if m == nil {
		return 0
	}
	return len(m.fields)
}

// Fields returns the columns in insertion order. The returned slice
// must not be modified.
func (m *FieldMap) Fields() []Field {
	if m == nil {
		return nil
	}
	return m.fields
}

// Names returns the column names in insertion order.
func (m *FieldMap) Names() []string {
	ret := make([]string, m.Len())
	for i, f := range m.Fields() {
		ret[i] = f.Name
	}
	return ret
}

// String is for debugging use only.
func (m *FieldMap) String() string {
	var sb strings.Builder
	sb.WriteByte('{')
	for i, f := range m.Fields() {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(f.Name)
		sb.WriteByte('=')
		sb.WriteString(f.Value.Text)
	}
	sb.WriteByte('}')
	return sb.String()
}

// UnmarshalJSON reads a JSON object, preserving the order in which its
// keys appear.
func (m *FieldMap) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return errors.WithStack(err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return errors.Errorf("expecting JSON object, got %v", tok)
	}
	*m = FieldMap{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return errors.WithStack(err)
		}
		name, ok := tok.(string)
		if !ok {
			return errors.Errorf("expecting object key, got %v", tok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return errors.Wrapf(err, "column %s", name)
		}
		var value Value
		if err := value.UnmarshalJSON(raw); err != nil {
			return errors.Wrapf(err, "column %s", name)
		}
		m.Put(name, value)
	}
	if _, err := dec.Token(); err != nil {
		return errors.WithStack(err)
	}
	return nil
}
