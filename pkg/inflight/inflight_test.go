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

package inflight

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager() *InflightManager[uint64, string] {
	return NewInflightManager[uint64, string](func(s string) (uint64, error) {
		return strconv.ParseUint(s, 10, 64)
	})
}

func TestInflightCompleteDelivers(t *testing.T) {
	ifm := newTestManager()
	defer ifm.Close()

	req := ifm.AddInflight(context.Background(), 42)
	assert.Equal(t, uint64(42), req.ID())
	assert.Equal(t, 1, ifm.InFlightCount())

	go func() {
		found := ifm.GetInflight(42)
		require.NotNil(t, found)
		found.Complete("done")
	}()

	v, err := req.Wait()
	require.NoError(t, err)
	assert.Equal(t, "done", v)
	assert.GreaterOrEqual(t, req.Age(), time.Duration(0))
}

func TestInflightGetStr(t *testing.T) {
	ifm := newTestManager()
	defer ifm.Close()

	req := ifm.AddInflight(context.Background(), 100)
	defer req.Cancel()

	assert.Equal(t, req, ifm.GetInflightStr("100"))
	assert.Nil(t, ifm.GetInflightStr("101"))
	assert.Nil(t, ifm.GetInflightStr("!wrong"))
}

func TestInflightCancelledContext(t *testing.T) {
	ifm := newTestManager()
	defer ifm.Close()

	ctx, cancelCtx := context.WithCancel(context.Background())
	req := ifm.AddInflight(ctx, 1)
	cancelCtx()

	_, err := req.Wait()
	assert.Regexp(t, "CF010410", err)
}

func TestInflightCancelRemoves(t *testing.T) {
	ifm := newTestManager()
	defer ifm.Close()

	req := ifm.AddInflight(context.Background(), 7)
	req.Cancel()
	assert.Nil(t, ifm.GetInflight(7))
	assert.Equal(t, 0, ifm.InFlightCount())

	// double complete after cancel does not block or panic
	req.Complete("late")
}

func TestInflightCloseCancelsWaiters(t *testing.T) {
	ifm := newTestManager()
	req := ifm.AddInflight(context.Background(), 9)
	go ifm.Close()
	_, err := req.Wait()
	assert.Error(t, err)
}
