// Copyright © 2025 CipherFleet Technologies Ltd.
//
// SPDX-License-Identifier: Apache-2.0
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

package retry

import (
	"context"
	"fmt"
	"testing"

	"github.com/cipherfleet/cipherfleet/pkg/cfconf"
	"github.com/cipherfleet/cipherfleet/pkg/confutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetry() *Retry {
	return NewRetryIndefinite(&cfconf.RetryConfig{
		InitialDelay: confutil.P("1ns"),
		MaxDelay:     confutil.P("1ms"),
	}, &Defaults.RetryConfig)
}

func TestRetryEventualSuccess(t *testing.T) {
	r := fastRetry()
	attempts := 0
	err := r.Do(context.Background(), func(attempt int) (bool, error) {
		attempts++
		if attempt < 3 {
			return true, fmt.Errorf("pop")
		}
		return false, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestRetryNonRetryable(t *testing.T) {
	r := fastRetry()
	err := r.Do(context.Background(), func(attempt int) (bool, error) {
		return false, fmt.Errorf("fatal")
	})
	assert.Regexp(t, "fatal", err)
}

func TestRetryLimitedPops(t *testing.T) {
	r := NewRetryLimited(&cfconf.RetryConfigWithMax{
		RetryConfig: cfconf.RetryConfig{
			InitialDelay: confutil.P("1ns"),
			MaxDelay:     confutil.P("1ms"),
		},
		MaxAttempts: confutil.P(2),
	}, Defaults)
	attempts := 0
	err := r.Do(context.Background(), func(attempt int) (bool, error) {
		attempts++
		return true, fmt.Errorf("pop")
	})
	assert.Regexp(t, "pop", err)
	assert.Equal(t, 2, attempts)
}

func TestRetryCancelledContext(t *testing.T) {
	r := NewRetryIndefinite(&cfconf.RetryConfig{
		InitialDelay: confutil.P("1h"),
		MaxDelay:     confutil.P("1h"),
	}, &Defaults.RetryConfig)
	ctx, cancelCtx := context.WithCancel(context.Background())
	cancelCtx()
	err := r.Do(ctx, func(attempt int) (bool, error) {
		return true, fmt.Errorf("pop")
	})
	assert.Regexp(t, "CF010409", err)
}
