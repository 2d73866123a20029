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
	"fmt"
	"strings"

	"github.com/cachesink/cachesink/internal/types"
	"github.com/pkg/errors"
	"github.com/spf13/pflag"
)

// Format identifies a message encoding.
type Format string

// The supported message encodings.
const (
	FormatJSON   Format = "json"
	FormatStruct Format = "struct"
)

// Formats lists the known encodings.
var Formats = []Format{FormatJSON, FormatStruct}

// ParseFormat returns the Format with the given name.
func ParseFormat(name string) (Format, error) {
	for _, f := range Formats {
		if strings.EqualFold(name, string(f)) {
			return f, nil
		}
	}
	return "", errors.Errorf("unknown message format %q; expecting one of %v", name, Formats)
}

// NewDecoder returns the Decoder for the format.
func NewDecoder(f Format) (types.Decoder, error) {
	switch f {
	case FormatJSON:
		return JSONDecoder{}, nil
	case FormatStruct:
		return StructDecoder{}, nil
	default:
		return nil, errors.Errorf("unknown message format %q", string(f))
	}
}

// Config contains the user-visible configuration for decoding
// messages.
type Config struct {
	Format Format
}

// Bind registers flags.
func (c *Config) Bind(flags *pflag.FlagSet) {
	if c.Format == "" {
		c.Format = FormatJSON
	}
	flags.Var(&formatFlag{&c.Format}, "format",
		fmt.Sprintf("the encoding of incoming messages; one of %v", Formats))
}

// Preflight ensures that the format is known.
func (c *Config) Preflight() error {
	if c.Format == "" {
		c.Format = FormatJSON
	}
	_, err := ParseFormat(string(c.Format))
	return err
}

// Decoder returns the configured Decoder.
func (c *Config) Decoder() (types.Decoder, error) {
	return NewDecoder(c.Format)
}

type formatFlag struct {
	f *Format
}

var _ pflag.Value = (*formatFlag)(nil)

func (f *formatFlag) Set(s string) error {
	parsed, err := ParseFormat(s)
	if err != nil {
		return err
	}
	*f.f = parsed
	return nil
}

func (f *formatFlag) String() string {
	if f.f == nil {
		return ""
	}
	return string(*f.f)
}

func (f *formatFlag) Type() string { return "format" }
