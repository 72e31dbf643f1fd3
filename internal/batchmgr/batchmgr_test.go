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

package batchmgr

import (
	"context"
	"sync"
	"testing"

	"github.com/cipherfleet/cipherfleet/internal/accessmgr"
	"github.com/cipherfleet/cipherfleet/internal/auditmgr"
	"github.com/cipherfleet/cipherfleet/internal/components"
	"github.com/cipherfleet/cipherfleet/internal/ratelimiter"
	"github.com/cipherfleet/cipherfleet/pkg/cfapi"
	"github.com/cipherfleet/cipherfleet/pkg/cfconf"
	"github.com/cipherfleet/cipherfleet/pkg/cftypes"
	"github.com/cipherfleet/cipherfleet/pkg/confutil"
	"github.com/cipherfleet/cipherfleet/pkg/oracle"
	"github.com/cipherfleet/cipherfleet/pkg/oracle/devoracle"
	"github.com/cipherfleet/cipherfleet/pkg/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testComponents struct {
	components.AllComponents
	p          persistence.Persistence
	writerLock sync.Mutex
	oracle     *devoracle.DevOracle
	accessMgr  components.AccessManager
	ratelimit  components.RateLimiter
	auditMgr   components.AuditManager

	admin *cftypes.EthAddress
	actor *cftypes.EthAddress
}

func (tc *testComponents) Persistence() persistence.Persistence    { return tc.p }
func (tc *testComponents) WriterLock() *sync.Mutex                 { return &tc.writerLock }
func (tc *testComponents) ComputeService() oracle.ComputeService   { return tc.oracle }
func (tc *testComponents) AccessManager() components.AccessManager { return tc.accessMgr }
func (tc *testComponents) RateLimiter() components.RateLimiter     { return tc.ratelimit }
func (tc *testComponents) AuditManager() components.AuditManager   { return tc.auditMgr }

func newTestBatchManager(t *testing.T, initialCooldown string) (context.Context, components.BatchManager, *testComponents, func()) {
	ctx := context.Background()
	p, pDone, err := persistence.NewUnitTestPersistence(ctx, "batchmgr")
	require.NoError(t, err)

	tc := &testComponents{
		p:     p,
		admin: cftypes.RandAddress(),
		actor: cftypes.RandAddress(),
	}
	tc.oracle, err = devoracle.NewDevOracle(ctx)
	require.NoError(t, err)

	audit := auditmgr.NewAuditManager(ctx, &cfconf.AuditConfig{})
	_, err = audit.PreInit(tc)
	require.NoError(t, err)
	tc.auditMgr = audit

	access := accessmgr.NewAccessManager(ctx, &cfconf.AccessConfig{
		InitialAdministrator: confutil.P(tc.admin.String()),
		InitialCooldown:      confutil.P(initialCooldown),
	})
	_, err = access.PreInit(tc)
	require.NoError(t, err)
	tc.accessMgr = access

	rl := ratelimiter.NewRateLimiter(ctx)
	_, err = rl.PreInit(tc)
	require.NoError(t, err)
	tc.ratelimit = rl

	bm := NewBatchManager(ctx, &cfconf.BatchLedgerConfig{})
	_, err = bm.PreInit(tc)
	require.NoError(t, err)

	for _, m := range []components.ManagerLifecycle{audit, access, rl, bm} {
		require.NoError(t, m.PostInit(tc))
	}
	require.NoError(t, access.Start())
	require.NoError(t, tc.accessMgr.AuthorizeSubmitter(ctx, tc.admin, tc.actor))

	return ctx, bm, tc, func() {
		bm.Stop()
		rl.Stop()
		access.Stop()
		audit.Stop()
		pDone()
	}
}

func (tc *testComponents) auditTypes(t *testing.T, ctx context.Context) []cfapi.AuditEventType {
	events, err := tc.auditMgr.Query(ctx, &cfapi.AuditQuery{Limit: confutil.P(100)})
	require.NoError(t, err)
	types := make([]cfapi.AuditEventType, len(events))
	for i, ev := range events {
		types[i] = ev.Type
	}
	return types
}

func TestActiveIDBeforeFirstOpen(t *testing.T) {
	ctx, bm, _, done := newTestBatchManager(t, "0s")
	defer done()

	activeID, err := bm.ActiveID(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), activeID)
}

func TestBatchLifecycle(t *testing.T) {
	ctx, bm, tc, done := newTestBatchManager(t, "0s")
	defer done()

	batch, err := bm.OpenBatch(ctx, tc.actor)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), batch.ID)
	assert.Equal(t, cfapi.BatchStateOpen, batch.State)
	assert.True(t, tc.actor.Equals(batch.OpenedBy))
	assert.False(t, batch.HasPair())

	pkg1 := devoracle.EncryptValue(100)
	veh1 := devoracle.EncryptValue(200)
	batch, err = bm.SubmitPair(ctx, tc.actor, 1, pkg1, veh1)
	require.NoError(t, err)
	assert.Equal(t, pkg1, batch.PackageHandle)
	assert.True(t, batch.HasPair())

	// Latest wins before close
	pkg2 := devoracle.EncryptValue(101)
	veh2 := devoracle.EncryptValue(201)
	batch, err = bm.SubmitPair(ctx, tc.actor, 1, pkg2, veh2)
	require.NoError(t, err)
	assert.Equal(t, pkg2, batch.PackageHandle)
	assert.Equal(t, veh2, batch.VehicleHandle)

	batch, err = bm.CloseBatch(ctx, tc.actor, 1)
	require.NoError(t, err)
	assert.Equal(t, cfapi.BatchStateClosed, batch.State)

	activeID, err := bm.ActiveID(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), activeID)

	// The closed batch retains the last pair
	stored, err := bm.GetBatch(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, pkg2, stored.PackageHandle)

	assert.Equal(t, []cfapi.AuditEventType{
		cfapi.EventSubmitterAuthorized,
		cfapi.EventBatchOpened,
		cfapi.EventPairSubmitted,
		cfapi.EventPairOverwritten,
		cfapi.EventBatchClosed,
	}, tc.auditTypes(t, ctx))
}

func TestOpenBatchAlreadyOpen(t *testing.T) {
	ctx, bm, tc, done := newTestBatchManager(t, "0s")
	defer done()

	_, err := bm.OpenBatch(ctx, tc.actor)
	require.NoError(t, err)
	_, err = bm.OpenBatch(ctx, tc.actor)
	assert.Regexp(t, "CF010700", err)
}

func TestSubmitPairBatchNotFound(t *testing.T) {
	ctx, bm, tc, done := newTestBatchManager(t, "0s")
	defer done()

	// The active id is 1 but no batch has ever been opened
	_, err := bm.SubmitPair(ctx, tc.actor, 1, devoracle.EncryptValue(1), devoracle.EncryptValue(2))
	assert.Regexp(t, "CF010703", err)
}

func TestSubmitPairWrongBatchID(t *testing.T) {
	ctx, bm, tc, done := newTestBatchManager(t, "0s")
	defer done()

	_, err := bm.OpenBatch(ctx, tc.actor)
	require.NoError(t, err)
	_, err = bm.SubmitPair(ctx, tc.actor, 7, devoracle.EncryptValue(1), devoracle.EncryptValue(2))
	assert.Regexp(t, "CF010702", err)
}

func TestSubmitPairAfterClose(t *testing.T) {
	ctx, bm, tc, done := newTestBatchManager(t, "0s")
	defer done()

	_, err := bm.OpenBatch(ctx, tc.actor)
	require.NoError(t, err)
	_, err = bm.CloseBatch(ctx, tc.actor, 1)
	require.NoError(t, err)

	// The counter has advanced, so the closed batch id is stale
	_, err = bm.SubmitPair(ctx, tc.actor, 1, devoracle.EncryptValue(1), devoracle.EncryptValue(2))
	assert.Regexp(t, "CF010702", err)
}

func TestSubmitPairUninitializedHandle(t *testing.T) {
	ctx, bm, tc, done := newTestBatchManager(t, "0s")
	defer done()

	_, err := bm.OpenBatch(ctx, tc.actor)
	require.NoError(t, err)
	_, err = bm.SubmitPair(ctx, tc.actor, 1, devoracle.EncryptValue(1), cftypes.HexBytes{0xde, 0xad})
	assert.Regexp(t, "CF010705", err)

	// The failed submission leaves the batch pairless
	batch, err := bm.GetBatch(ctx, 1)
	require.NoError(t, err)
	assert.False(t, batch.HasPair())
}

func TestUnauthorizedActorDenied(t *testing.T) {
	ctx, bm, _, done := newTestBatchManager(t, "0s")
	defer done()

	_, err := bm.OpenBatch(ctx, cftypes.RandAddress())
	assert.Regexp(t, "CF010501", err)
}

func TestPausedSystemRejectsSubmissions(t *testing.T) {
	ctx, bm, tc, done := newTestBatchManager(t, "0s")
	defer done()

	require.NoError(t, tc.accessMgr.Pause(ctx, tc.admin))
	_, err := bm.OpenBatch(ctx, tc.actor)
	assert.Regexp(t, "CF010503", err)

	require.NoError(t, tc.accessMgr.Resume(ctx, tc.admin))
	_, err = bm.OpenBatch(ctx, tc.actor)
	require.NoError(t, err)
}

func TestCooldownGatesOpenAndSubmitButNotClose(t *testing.T) {
	ctx, bm, tc, done := newTestBatchManager(t, "60s")
	defer done()

	_, err := bm.OpenBatch(ctx, tc.actor)
	require.NoError(t, err)

	_, err = bm.SubmitPair(ctx, tc.actor, 1, devoracle.EncryptValue(1), devoracle.EncryptValue(2))
	assert.Regexp(t, "CF010600", err)

	// Close is not a rate limited action class
	_, err = bm.CloseBatch(ctx, tc.actor, 1)
	require.NoError(t, err)
}

func TestGetBatchNotFound(t *testing.T) {
	ctx, bm, _, done := newTestBatchManager(t, "0s")
	defer done()

	_, err := bm.GetBatch(ctx, 42)
	assert.Regexp(t, "CF010703", err)
}

func TestListBatches(t *testing.T) {
	ctx, bm, tc, done := newTestBatchManager(t, "0s")
	defer done()

	for i := 0; i < 3; i++ {
		batch, err := bm.OpenBatch(ctx, tc.actor)
		require.NoError(t, err)
		_, err = bm.CloseBatch(ctx, tc.actor, batch.ID)
		require.NoError(t, err)
	}

	batches, err := bm.ListBatches(ctx, &cfapi.BatchListQuery{})
	require.NoError(t, err)
	require.Len(t, batches, 3)
	assert.Equal(t, uint64(1), batches[0].ID)
	assert.Equal(t, uint64(3), batches[2].ID)

	batches, err = bm.ListBatches(ctx, &cfapi.BatchListQuery{
		AfterID: confutil.P(uint64(1)),
		Limit:   confutil.P(1),
	})
	require.NoError(t, err)
	require.Len(t, batches, 1)
	assert.Equal(t, uint64(2), batches[0].ID)
}
