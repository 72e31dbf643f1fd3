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

package ratelimiter

import (
	"context"
	"sync"
	"testing"

	"github.com/cipherfleet/cipherfleet/internal/accessmgr"
	"github.com/cipherfleet/cipherfleet/internal/auditmgr"
	"github.com/cipherfleet/cipherfleet/internal/components"
	"github.com/cipherfleet/cipherfleet/pkg/cfapi"
	"github.com/cipherfleet/cipherfleet/pkg/cfconf"
	"github.com/cipherfleet/cipherfleet/pkg/cftypes"
	"github.com/cipherfleet/cipherfleet/pkg/confutil"
	"github.com/cipherfleet/cipherfleet/pkg/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testComponents struct {
	components.AllComponents
	p          persistence.Persistence
	writerLock sync.Mutex
	accessMgr  components.AccessManager
	auditMgr   components.AuditManager
}

func (tc *testComponents) Persistence() persistence.Persistence    { return tc.p }
func (tc *testComponents) WriterLock() *sync.Mutex                 { return &tc.writerLock }
func (tc *testComponents) AccessManager() components.AccessManager { return tc.accessMgr }
func (tc *testComponents) AuditManager() components.AuditManager   { return tc.auditMgr }

func newTestRateLimiter(t *testing.T, initialCooldown string) (context.Context, components.RateLimiter, *testComponents, func()) {
	ctx := context.Background()
	p, pDone, err := persistence.NewUnitTestPersistence(ctx, "ratelimiter")
	require.NoError(t, err)

	tc := &testComponents{p: p}

	audit := auditmgr.NewAuditManager(ctx, &cfconf.AuditConfig{})
	_, err = audit.PreInit(tc)
	require.NoError(t, err)
	tc.auditMgr = audit

	access := accessmgr.NewAccessManager(ctx, &cfconf.AccessConfig{
		InitialAdministrator: confutil.P(cftypes.RandAddress().String()),
		InitialCooldown:      confutil.P(initialCooldown),
	})
	_, err = access.PreInit(tc)
	require.NoError(t, err)
	tc.accessMgr = access

	rl := NewRateLimiter(ctx)
	_, err = rl.PreInit(tc)
	require.NoError(t, err)

	require.NoError(t, access.PostInit(tc))
	require.NoError(t, audit.PostInit(tc))
	require.NoError(t, rl.PostInit(tc))
	require.NoError(t, access.Start())

	return ctx, rl, tc, func() {
		rl.Stop()
		access.Stop()
		audit.Stop()
		pDone()
	}
}

func (tc *testComponents) checkAndRecord(ctx context.Context, rl components.RateLimiter, actor *cftypes.EthAddress, class cfapi.ActionClass, now cftypes.Timestamp) error {
	return tc.p.Transaction(ctx, func(ctx context.Context, dbTX persistence.DBTX) error {
		return rl.CheckAndRecord(ctx, dbTX, actor, class, now)
	})
}

func TestCooldownBlocksWithinWindow(t *testing.T) {
	ctx, rl, tc, done := newTestRateLimiter(t, "60s")
	defer done()

	actor := cftypes.RandAddress()
	base := cftypes.TimestampNow()

	require.NoError(t, tc.checkAndRecord(ctx, rl, actor, cfapi.ActionClassSubmission, base))

	err := tc.checkAndRecord(ctx, rl, actor, cfapi.ActionClassSubmission, cftypes.TimestampFromUnix(base.UnixSeconds()+30))
	assert.Regexp(t, "CF010600", err)

	// Exactly at the boundary the action is allowed again
	boundary := cftypes.TimestampFromUnix(base.UnixSeconds() + 60)
	require.NoError(t, tc.checkAndRecord(ctx, rl, actor, cfapi.ActionClassSubmission, boundary))

	// And the window re-arms from the new timestamp
	err = tc.checkAndRecord(ctx, rl, actor, cfapi.ActionClassSubmission, cftypes.TimestampFromUnix(boundary.UnixSeconds()+1))
	assert.Regexp(t, "CF010600", err)
}

func TestCooldownIndependentPerActorAndClass(t *testing.T) {
	ctx, rl, tc, done := newTestRateLimiter(t, "60s")
	defer done()

	actor1 := cftypes.RandAddress()
	actor2 := cftypes.RandAddress()
	now := cftypes.TimestampNow()

	require.NoError(t, tc.checkAndRecord(ctx, rl, actor1, cfapi.ActionClassSubmission, now))
	require.NoError(t, tc.checkAndRecord(ctx, rl, actor2, cfapi.ActionClassSubmission, now))
	require.NoError(t, tc.checkAndRecord(ctx, rl, actor1, cfapi.ActionClassDisclosure, now))

	err := tc.checkAndRecord(ctx, rl, actor1, cfapi.ActionClassSubmission, now)
	assert.Regexp(t, "CF010600", err)
}

func TestZeroCooldownNeverBlocks(t *testing.T) {
	ctx, rl, tc, done := newTestRateLimiter(t, "0s")
	defer done()

	actor := cftypes.RandAddress()
	now := cftypes.TimestampNow()
	for i := 0; i < 3; i++ {
		require.NoError(t, tc.checkAndRecord(ctx, rl, actor, cfapi.ActionClassSubmission, now))
	}
}

func TestCooldownChangeTakesEffectImmediately(t *testing.T) {
	ctx, rl, tc, done := newTestRateLimiter(t, "3600s")
	defer done()

	actor := cftypes.RandAddress()
	base := cftypes.TimestampNow()
	require.NoError(t, tc.checkAndRecord(ctx, rl, actor, cfapi.ActionClassSubmission, base))

	later := cftypes.TimestampFromUnix(base.UnixSeconds() + 30)
	err := tc.checkAndRecord(ctx, rl, actor, cfapi.ActionClassSubmission, later)
	assert.Regexp(t, "CF010600", err)

	// Lowering the cooldown below the elapsed time unblocks the recorded timestamp
	status, err := tc.accessMgr.Status(ctx)
	require.NoError(t, err)
	require.NoError(t, tc.accessMgr.SetCooldown(ctx, status.Administrator, 10))
	require.NoError(t, tc.checkAndRecord(ctx, rl, actor, cfapi.ActionClassSubmission, later))
}

func TestFailedTransactionDoesNotConsumeCooldown(t *testing.T) {
	ctx, rl, tc, done := newTestRateLimiter(t, "60s")
	defer done()

	actor := cftypes.RandAddress()
	base := cftypes.TimestampNow()

	// A later guard failure rolls the recorded timestamp back
	err := tc.p.Transaction(ctx, func(ctx context.Context, dbTX persistence.DBTX) error {
		if err := rl.CheckAndRecord(ctx, dbTX, actor, cfapi.ActionClassSubmission, base); err != nil {
			return err
		}
		return assert.AnError
	})
	require.Error(t, err)

	require.NoError(t, tc.checkAndRecord(ctx, rl, actor, cfapi.ActionClassSubmission, base))
}
