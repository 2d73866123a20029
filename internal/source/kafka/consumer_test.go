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

package kafka

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/IBM/sarama"
	"github.com/cachesink/cachesink/internal/translate"
	"github.com/cachesink/cachesink/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeProcessor fails any message containing "bad".
type fakeProcessor struct {
	mu   sync.Mutex
	seen []string
	opts []translate.Options
}

func (p *fakeProcessor) Process(
	_ context.Context, msg string, opts translate.Options,
) (*translate.Result, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seen = append(p.seen, msg)
	p.opts = append(p.opts, opts)
	if strings.Contains(msg, "bad") {
		return nil, types.ErrMalformedEvent.New("bad message")
	}
	return &translate.Result{Statements: []string{"SELECT 1;"}}, nil
}

type fakeSession struct {
	ctx    context.Context
	mu     sync.Mutex
	marked []int64
}

var _ sarama.ConsumerGroupSession = (*fakeSession)(nil)

func (s *fakeSession) Claims() map[string][]int32 { return nil }
func (s *fakeSession) MemberID() string           { return "member" }
func (s *fakeSession) GenerationID() int32        { return 1 }
func (s *fakeSession) MarkOffset(string, int32, int64, string) {
}
func (s *fakeSession) Commit() {}
func (s *fakeSession) ResetOffset(string, int32, int64, string) {
}
func (s *fakeSession) MarkMessage(msg *sarama.ConsumerMessage, _ string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.marked = append(s.marked, msg.Offset)
}
func (s *fakeSession) Context() context.Context { return s.ctx }

type fakeClaim struct {
	ch chan *sarama.ConsumerMessage
}

var _ sarama.ConsumerGroupClaim = (*fakeClaim)(nil)

func newFakeClaim(values ...[]byte) *fakeClaim {
	ch := make(chan *sarama.ConsumerMessage, len(values))
	for idx, v := range values {
		ch <- &sarama.ConsumerMessage{
			Topic:     "cdc",
			Partition: 0,
			Offset:    int64(idx),
			Value:     v,
		}
	}
	close(ch)
	return &fakeClaim{ch: ch}
}

func (c *fakeClaim) Topic() string                            { return "cdc" }
func (c *fakeClaim) Partition() int32                         { return 0 }
func (c *fakeClaim) InitialOffset() int64                     { return 0 }
func (c *fakeClaim) HighWaterMarkOffset() int64               { return int64(cap(c.ch)) }
func (c *fakeClaim) Messages() <-chan *sarama.ConsumerMessage { return c.ch }

func TestConsumeClaim(t *testing.T) {
	tcs := []struct {
		name       string
		values     [][]byte
		skipErrors bool
		wantErr    bool
		wantSeen   int
		wantMarked []int64
	}{
		{
			name:       "all good",
			values:     [][]byte{[]byte("one"), []byte("two")},
			wantSeen:   2,
			wantMarked: []int64{0, 1},
		},
		{
			name:       "tombstone",
			values:     [][]byte{[]byte("one"), nil, []byte("three")},
			wantSeen:   2,
			wantMarked: []int64{0, 1, 2},
		},
		{
			name:       "failure stops the claim",
			values:     [][]byte{[]byte("one"), []byte("bad"), []byte("three")},
			wantErr:    true,
			wantSeen:   2,
			wantMarked: []int64{0},
		},
		{
			name:       "failure skipped",
			values:     [][]byte{[]byte("one"), []byte("bad"), []byte("three")},
			skipErrors: true,
			wantSeen:   3,
			wantMarked: []int64{0, 1, 2},
		},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			a := assert.New(t)
			proc := &fakeProcessor{}
			h := &Handler{
				options:    translate.Options{ChangeLog: true},
				processor:  proc,
				skipErrors: tc.skipErrors,
			}
			sess := &fakeSession{ctx: context.Background()}
			require.NoError(t, h.Setup(sess))

			err := h.ConsumeClaim(sess, newFakeClaim(tc.values...))
			if tc.wantErr {
				a.True(types.ErrMalformedEvent.Has(err))
			} else {
				a.NoError(err)
			}
			a.Len(proc.seen, tc.wantSeen)
			a.Equal(tc.wantMarked, sess.marked)
			for _, opts := range proc.opts {
				a.True(opts.ChangeLog)
			}
			a.NoError(h.Cleanup(sess))
		})
	}
}

func TestConsumeClaimCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	h := &Handler{processor: &fakeProcessor{}}
	// An open channel with no messages; only cancellation ends the loop.
	claim := &fakeClaim{ch: make(chan *sarama.ConsumerMessage)}
	assert.NoError(t, h.ConsumeClaim(&fakeSession{ctx: ctx}, claim))
}
