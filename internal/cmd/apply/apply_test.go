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

package apply

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cachesink/cachesink/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const update = `{"payload":{"op":"u","before":{"id":7,"name":"old"},"after":{"id":7,"name":"new"},
  "source":{"connector":"mysql","db":"shop","table":"items"}}}`

func TestApply(t *testing.T) {
	dir := t.TempDir()
	msgFile := filepath.Join(dir, "msg.json")
	require.NoError(t, os.WriteFile(msgFile, []byte(update), 0644))
	mapFile := filepath.Join(dir, "mapping.yaml")
	require.NoError(t, os.WriteFile(mapFile, []byte(`
mappings:
  - datasource: mysql
    table_name: shop.items
    target_table_name: cache.items
`), 0644))

	direct := "Executed: DELETE FROM cache.items WHERE id=7 AND name='old';\n" +
		"INSERT INTO cache.items (id, name) VALUES (7, 'new');\n"

	tcs := []struct {
		name    string
		args    []string
		stdin   string
		want    string
		wantErr string
		kind    string
	}{
		{
			name: "message",
			args: []string{"--message", update, "--mappingFile", mapFile},
			want: direct,
		},
		{
			name: "file",
			args: []string{"--file", msgFile, "--mappingFile", mapFile},
			want: direct,
		},
		{
			name:  "stdin",
			args:  []string{"--mappingFile", mapFile},
			stdin: update,
			want:  direct,
		},
		{
			name: "change log override",
			args: []string{"--message", update, "--changeLog", "--overrideTable", "audit.items"},
			want: "Executed: INSERT INTO audit.items (operation, id, name, insert_time, rowstatus) " +
				"VALUES ('delete', 7, 'old', CURRENT_TIMESTAMP, 'V');\n" +
				"INSERT INTO audit.items (operation, id, name, insert_time, rowstatus) " +
				"VALUES ('insert', 7, 'new', CURRENT_TIMESTAMP, 'V');\n",
		},
		{
			name: "no mapping",
			args: []string{"--message", strings.Replace(update, "items", "other", 1),
				"--mappingFile", mapFile},
			kind: types.KindTargetNotFound,
		},
		{
			name:    "both inputs",
			args:    []string{"--message", update, "--file", msgFile},
			wantErr: "mutually exclusive",
		},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			a := assert.New(t)
			var out bytes.Buffer
			cmd := Command()
			cmd.SetArgs(append([]string{"--dryRun"}, tc.args...))
			cmd.SetIn(strings.NewReader(tc.stdin))
			cmd.SetOut(&out)
			cmd.SetErr(&bytes.Buffer{})
			cmd.SilenceUsage = true

			err := cmd.ExecuteContext(context.Background())
			switch {
			case tc.kind != "":
				a.Equal(tc.kind, types.Kind(err))
			case tc.wantErr != "":
				a.ErrorContains(err, tc.wantErr)
			default:
				require.NoError(t, err)
				a.Equal(tc.want, out.String())
			}
		})
	}
}
