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

// Package cfgfile fills command-line flags from a configuration file
// and from the environment.
package cfgfile

import (
	"fmt"
	"os"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to the upper-cased flag name to form the
// environment variable that sets a flag, e.g. CACHESINK_TARGETCONN.
const EnvPrefix = "CACHESINK"

// ConfigFlag is the name of the flag that selects a file.
const ConfigFlag = "config"

// Bind registers the --config flag.
func Bind(flags *pflag.FlagSet, path *string) {
	flags.StringVar(path, ConfigFlag, "",
		"a YAML file of flag values; keys are flag names. "+
			"Flags may also be set from "+EnvPrefix+"_<FLAGNAME> environment variables")
}

// Apply sets every flag that was not given on the command line from
// the environment or, failing that, from the configuration file at
// path. An empty path consults only the environment. Values in the
// file may reference environment variables as $VAR or ${VAR}.
func Apply(flags *pflag.FlagSet, path string) error {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return errors.Wrapf(err, "failed to read config file %s", path)
		}
		for _, key := range v.AllKeys() {
			val := v.GetString(key)
			if expanded := os.ExpandEnv(val); expanded != val {
				v.Set(key, expanded)
			}
		}
	}

	known := make(map[string]bool)
	var setErr error
	flags.VisitAll(func(f *pflag.Flag) {
		known[strings.ToLower(f.Name)] = true
		if setErr != nil || f.Changed || f.Name == ConfigFlag || !v.IsSet(f.Name) {
			return
		}
		value := stringValue(v.Get(f.Name))
		if err := flags.Set(f.Name, value); err != nil {
			setErr = errors.Wrapf(err, "invalid value for %s", f.Name)
			return
		}
		log.WithField("flag", f.Name).Trace("set from configuration")
	})
	if setErr != nil {
		return setErr
	}

	for _, key := range v.AllKeys() {
		if !known[key] {
			return errors.Errorf("unknown configuration key %q", key)
		}
	}
	return nil
}

// stringValue renders a configuration value in the form accepted by
// pflag.Value.Set. Lists are comma-joined for slice flags.
func stringValue(val any) string {
	switch t := val.(type) {
	case []any:
		parts := make([]string, len(t))
		for i, p := range t {
			parts[i] = fmt.Sprint(p)
		}
		return strings.Join(parts, ",")
	case []string:
		return strings.Join(t, ",")
	default:
		return fmt.Sprint(t)
	}
}
