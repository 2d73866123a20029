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

package stdpool

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"net/url"
	"sort"
	"strings"

	"github.com/cachesink/cachesink/internal/types"
	"github.com/cachesink/cachesink/internal/util/secure"
	"github.com/go-sql-driver/mysql"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const defaultMySQLPort = "3306"

// OpenMySQLAsTarget opens a database connection, returning it as
// a pool.
func OpenMySQLAsTarget(
	ctx context.Context, u *url.URL, options ...Option,
) (*types.TargetPool, error) {
	tlsName, err := registerTLS(u)
	if err != nil {
		return nil, err
	}
	connectString, err := getConnString(u, tlsName)
	if err != nil {
		return nil, err
	}
	log.WithField("conn", redact(u)).Debug("opening mysql target")

	db, err := sql.Open("mysql", connectString)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	ret := &types.TargetPool{
		DB: db,
		PoolInfo: types.PoolInfo{
			ConnectionString: connectString,
			Product:          types.ProductMySQL,
		},
	}
	if err := finishOpen(ctx, ret, "SELECT VERSION()", options); err != nil {
		_ = ret.Close()
		return nil, err
	}
	if strings.Contains(strings.ToLower(ret.Version), "mariadb") {
		ret.Product = types.ProductMariaDB
	}
	return ret, nil
}

// sslParams are postgres-style TLS parameters, which the mysql driver
// does not understand.
var sslParams = map[string]bool{
	"sslcert":     true,
	"sslkey":      true,
	"sslmode":     true,
	"sslrootcert": true,
}

// registerTLS maps an sslmode parameter onto a TLS configuration
// registered with the driver. It returns the name to use for the DSN's
// tls parameter, or an empty string if TLS is disabled.
func registerTLS(u *url.URL) (string, error) {
	configs, err := secure.ParseTLSOptions(u)
	if err != nil {
		return "", err
	}
	// Only the preferred configuration is used.
	if configs[0] == nil {
		return "", nil
	}
	name := "cachesink-" + u.Host
	if err := mysql.RegisterTLSConfig(name, configs[0]); err != nil {
		return "", errors.WithStack(err)
	}
	return name, nil
}

// getConnString converts a mysql:// URL into the DSN format expected
// by the driver. Query parameters are passed through in sorted order.
func getConnString(u *url.URL, tlsName string) (string, error) {
	if u.Host == "" {
		return "", errors.New("missing host in mysql connection string")
	}
	host := u.Host
	if u.Port() == "" {
		host = net.JoinHostPort(u.Hostname(), defaultMySQLPort)
	}

	var sb strings.Builder
	if u.User != nil {
		sb.WriteString(u.User.Username())
		if pass, ok := u.User.Password(); ok {
			sb.WriteByte(':')
			sb.WriteString(pass)
		}
		sb.WriteByte('@')
	}
	fmt.Fprintf(&sb, "tcp(%s)/%s", host, strings.TrimPrefix(u.Path, "/"))

	query := u.Query()
	if tlsName != "" {
		query.Set("tls", tlsName)
	}
	keys := make([]string, 0, len(query))
	for k := range query {
		if !sslParams[k] {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for idx, k := range keys {
		if idx == 0 {
			sb.WriteByte('?')
		} else {
			sb.WriteByte('&')
		}
		sb.WriteString(url.QueryEscape(k))
		sb.WriteByte('=')
		sb.WriteString(url.QueryEscape(query.Get(k)))
	}
	return sb.String(), nil
}
