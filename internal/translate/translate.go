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

// Package translate ties together decoding, table resolution, SQL
// synthesis, and execution for a single change event.
package translate

import (
	"context"
	"strings"
	"time"

	"github.com/cachesink/cachesink/internal/target/apply"
	"github.com/cachesink/cachesink/internal/target/resolve"
	"github.com/cachesink/cachesink/internal/types"
	"github.com/cachesink/cachesink/internal/util/metrics"
	log "github.com/sirupsen/logrus"
)

// SummaryPrefix begins every Result summary.
const SummaryPrefix = "Executed: "

// TableResolver is implemented by [resolve.Resolver].
type TableResolver interface {
	Resolve(ctx context.Context, datasource, sourceTable, override string) (resolve.Target, error)
}

var _ TableResolver = (*resolve.Resolver)(nil)

// Options are supplied with each message.
type Options struct {
	ChangeLog     bool   // Append audited rows instead of mirroring.
	OverrideTable string // If non-empty, bypasses the mapping lookup.
}

// Result describes a successfully processed event.
type Result struct {
	Event      *types.ChangeEvent
	Table      string
	Overridden bool
	Statements []string
	Executed   bool // False in dry-run mode.
}

// Summary reports the statements, one per line.
func (r *Result) Summary() string {
	return SummaryPrefix + strings.Join(r.Statements, "\n")
}

// Processor is implemented by [Translator]. Message sources depend on
// it so they can be tested without a database.
type Processor interface {
	Process(ctx context.Context, msg string, opts Options) (*Result, error)
}

var _ Processor = (*Translator)(nil)

// Translator processes change events. It holds no mutable state, so a
// single instance may be shared by concurrent callers.
type Translator struct {
	Decoder  types.Decoder
	Resolver TableResolver
	Executor types.Executor // If nil, statements are not executed.
}

// Process decodes the message, resolves its cache table, synthesizes
// SQL, and executes each statement in order. Execution stops at the
// first failure; the returned error then identifies which statements
// were already applied.
func (t *Translator) Process(ctx context.Context, msg string, opts Options) (*Result, error) {
	start := time.Now()
	mode := types.ModeFor(opts.ChangeLog)

	res, err := t.process(ctx, msg, opts, mode)

	var ev *types.ChangeEvent
	if res != nil {
		ev = res.Event
	}
	labels := metrics.OutcomeValues(ev, mode, err)
	if res == nil || res.Table == "" || res.Overridden {
		labels = metrics.Unattributed(labels)
	}
	translateEvents.WithLabelValues(labels...).Inc()
	if err != nil {
		return nil, err
	}
	translateDurations.WithLabelValues(labels[:2]...).Observe(time.Since(start).Seconds())
	translateStatements.WithLabelValues(labels[:2]...).Add(float64(len(res.Statements)))
	return res, nil
}

// process returns a partial Result alongside an error once the event
// has been decoded, so that failures can be attributed.
func (t *Translator) process(
	ctx context.Context, msg string, opts Options, mode types.Mode,
) (*Result, error) {
	if strings.TrimSpace(msg) == "" {
		return nil, types.ErrMalformedEvent.New("input message is empty")
	}

	ev, err := t.Decoder.Decode(msg)
	if err != nil {
		return nil, err
	}
	res := &Result{Event: ev}

	tgt, err := t.Resolver.Resolve(ctx, ev.Datasource, ev.SourceName(), opts.OverrideTable)
	if err != nil {
		return res, err
	}
	res.Table = tgt.Table
	res.Overridden = tgt.Overridden

	res.Statements, err = apply.Synthesize(ev, tgt.Table, mode)
	if err != nil {
		return res, err
	}

	entry := log.WithFields(log.Fields{
		"datasource": ev.Datasource,
		"table":      ev.SourceName(),
		"target":     tgt.Table,
		"op":         ev.Operation.Code(),
		"mode":       mode.String(),
	})

	if t.Executor == nil {
		entry.Debug("dry run; statements not executed")
		return res, nil
	}

	for idx, stmt := range res.Statements {
		if err := t.Executor.Exec(ctx, stmt); err != nil {
			return res, types.NewExecutionError(res.Statements, idx, err)
		}
		entry.WithField("stmt", stmt).Trace("executed")
	}
	res.Executed = true
	entry.Debugf("applied %d statements", len(res.Statements))
	return res, nil
}
