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

package resolve

import (
	"context"
	"io"
	"os"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Mapping is one row of a mapping file.
type Mapping struct {
	Datasource string `yaml:"datasource"`
	Table      string `yaml:"table_name"`
	Target     string `yaml:"target_table_name"`
}

// mappingFile is the document structure of a mapping file:
//
//	mappings:
//	  - datasource: pg
//	    table_name: sales.orders
//	    target_table_name: cache.orders
type mappingFile struct {
	Mappings []Mapping `yaml:"mappings"`
}

type mappingKey struct {
	datasource, table string
}

// FileStore is a read-only Store loaded from a YAML document.
type FileStore struct {
	entries map[mappingKey]string
}

var _ Store = (*FileStore)(nil)

// LoadFileStore reads a mapping file from disk.
func LoadFileStore(path string) (*FileStore, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "could not open mapping file %s", path)
	}
	defer f.Close()
	ret, err := ReadFileStore(f)
	if err != nil {
		return nil, errors.Wrap(err, path)
	}
	log.WithField("path", path).Infof("loaded %d table mappings", len(ret.entries))
	return ret, nil
}

// ReadFileStore decodes a mapping document. If a (datasource,
// table_name) pair appears more than once, the first entry is used.
func ReadFileStore(r io.Reader) (*FileStore, error) {
	var doc mappingFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, errors.Wrap(err, "could not decode mapping file")
	}
	ret := &FileStore{entries: make(map[mappingKey]string, len(doc.Mappings))}
	for idx, m := range doc.Mappings {
		if m.Datasource == "" || m.Table == "" || m.Target == "" {
			return nil, errors.Errorf("mapping %d: datasource, table_name, and target_table_name are required", idx)
		}
		key := mappingKey{m.Datasource, m.Table}
		if _, dup := ret.entries[key]; dup {
			log.WithFields(log.Fields{
				"datasource": m.Datasource,
				"table":      m.Table,
			}).Warn("ignoring duplicate table mapping")
			continue
		}
		ret.entries[key] = m.Target
	}
	return ret, nil
}

// Lookup implements [Store].
func (s *FileStore) Lookup(_ context.Context, datasource, table string) (string, bool, error) {
	target, ok := s.entries[mappingKey{datasource, table}]
	return target, ok, nil
}
