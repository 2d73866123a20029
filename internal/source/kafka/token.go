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
	"github.com/IBM/sarama"
	"github.com/pkg/errors"
	"golang.org/x/oauth2"
)

// tokenProvider adapts an OAuth2 token source for SASL/OAUTHBEARER.
type tokenProvider struct {
	tokenSource oauth2.TokenSource
}

var _ sarama.AccessTokenProvider = (*tokenProvider)(nil)

// Token implements [sarama.AccessTokenProvider]. It is called whenever
// sarama connects to a broker. An error causes sarama to retry the
// connection.
func (t *tokenProvider) Token() (*sarama.AccessToken, error) {
	token, err := t.tokenSource.Token()
	if err != nil {
		return nil, errors.Wrap(err, "could not obtain OAuth token")
	}
	if !token.Valid() {
		return nil, errors.New("OAuth token source returned an invalid token")
	}
	return &sarama.AccessToken{Token: token.AccessToken}, nil
}
