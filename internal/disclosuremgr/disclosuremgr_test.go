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

package disclosuremgr

import (
	"context"
	"sync"
	"testing"

	"github.com/cipherfleet/cipherfleet/internal/accessmgr"
	"github.com/cipherfleet/cipherfleet/internal/auditmgr"
	"github.com/cipherfleet/cipherfleet/internal/batchmgr"
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
	batchMgr   components.BatchManager
	auditMgr   components.AuditManager

	admin *cftypes.EthAddress
	actor *cftypes.EthAddress
}

func (tc *testComponents) Persistence() persistence.Persistence { return tc.p }
func (tc *testComponents) WriterLock() *sync.Mutex { return &tc.writerLock }
func (tc *testComponents) ComputeService() oracle.ComputeService { return tc.oracle }
func (tc *testComponents) DisclosureOracle() oracle.DisclosureOracle { return tc.oracle }
func (tc *testComponents) AccessManager() components.AccessManager { return tc.accessMgr }
func (tc *testComponents) RateLimiter() components.RateLimiter { return tc.ratelimit }
func (tc *testComponents) BatchManager() components.BatchManager { return tc.batchMgr }
func (tc *testComponents) AuditManager() components.AuditManager { return tc.auditMgr }

func newTestDisclosureManager(t *testing.T, initialCooldown string, autoDeliver bool) (context.Context, components.DisclosureManager, *testComponents, func()) {
	ctx := context.Background()
	p, pDone, err := persistence.NewUnitTestPersistence(ctx, "disclosuremgr")
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

	bm := batchmgr.NewBatchManager(ctx, &cfconf.BatchLedgerConfig{})
	_, err = bm.PreInit(tc)
	require.NoError(t, err)
	tc.batchMgr = bm

	dm := NewDisclosureManager(ctx, &cfconf.DisclosureConfig{})
	_, err = dm.PreInit(tc)
	require.NoError(t, err)

	for _, m := range []components.ManagerLifecycle{audit, access, rl, bm, dm} {
		require.NoError(t, m.PostInit(tc))
	}
	require.NoError(t, access.Start())
	require.NoError(t, tc.accessMgr.AuthorizeSubmitter(ctx, tc.admin, tc.actor))

	tc.oracle.SetReplyHandler(dm, autoDeliver)

	return ctx, dm, tc, func() {
		dm.Stop()
		bm.Stop()
		rl.Stop()
		access.Stop()
		audit.Stop()
		pDone()
	}
}

// closedBatch opens the active batch, submits encrypted values and closes it.
func (tc *testComponents) closedBatch(t *testing.T, ctx context.Context, packageID, vehicleID uint64) uint64 {
	batch, err := tc.batchMgr.OpenBatch(ctx, tc.actor)
	require.NoError(t, err)
	_, err = tc.batchMgr.SubmitPair(ctx, tc.actor, batch.ID,
		devoracle.EncryptValue(packageID), devoracle.EncryptValue(vehicleID))
	require.NoError(t, err)
	_, err = tc.batchMgr.CloseBatch(ctx, tc.actor, batch.ID)
	require.NoError(t, err)
	return batch.ID
}

func TestRequestDisclosureBatchNotClosed(t *testing.T) {
	ctx, dm, tc, done := newTestDisclosureManager(t, "0s", false)
	defer done()

	batch, err := tc.batchMgr.OpenBatch(ctx, tc.actor)
	require.NoError(t, err)
	_, err = dm.RequestDisclosure(ctx, tc.actor, batch.ID)
	assert.Regexp(t, "CF010800", err)

	_, err = dm.RequestDisclosure(ctx, tc.actor, 42)
	assert.Regexp(t, "CF010703", err)
}

func TestDisclosureHappyPath(t *testing.T) {
	ctx, dm, tc, done := newTestDisclosureManager(t, "0s", false)
	defer done()

	batchID := tc.closedBatch(t, ctx, 12345, 67890)

	req, err := dm.RequestDisclosure(ctx, tc.actor, batchID)
	require.NoError(t, err)
	assert.Equal(t, cfapi.DisclosureStatusPending, req.Status)
	assert.Equal(t, batchID, req.BatchID)
	assert.False(t, req.IntegrityDigest.IsZero())
	assert.Nil(t, req.PackageID)

	require.NoError(t, tc.oracle.Deliver(ctx, req.ID))

	completed, err := dm.GetRequest(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, cfapi.DisclosureStatusCompleted, completed.Status)
	assert.Equal(t, uint64(12345), completed.PackageID.Uint64())
	assert.Equal(t, uint64(67890), completed.VehicleID.Uint64())
	assert.NotNil(t, completed.Completed)

	events, err := tc.auditMgr.Query(ctx, &cfapi.AuditQuery{})
	require.NoError(t, err)
	var types []cfapi.AuditEventType
	for _, ev := range events {
		types = append(types, ev.Type)
	}
	assert.Contains(t, types, cfapi.EventDisclosureRequested)
	assert.Contains(t, types, cfapi.EventDisclosureCompleted)
}

func TestDeliverReplayRejected(t *testing.T) {
	ctx, dm, tc, done := newTestDisclosureManager(t, "0s", false)
	defer done()

	batchID := tc.closedBatch(t, ctx, 1, 2)
	req, err := dm.RequestDisclosure(ctx, tc.actor, batchID)
	require.NoError(t, err)

	require.NoError(t, tc.oracle.Deliver(ctx, req.ID))
	err = tc.oracle.Deliver(ctx, req.ID)
	assert.Regexp(t, "CF010802", err)

	// The stored result is unchanged by the replay
	completed, err := dm.GetRequest(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), completed.PackageID.Uint64())
}

func TestDeliverUnknownRequest(t *testing.T) {
	ctx, dm, _, done := newTestDisclosureManager(t, "0s", false)
	defer done()

	err := dm.DeliverReply(ctx, 999, cftypes.HexBytes{}, cftypes.HexBytes{})
	assert.Regexp(t, "CF010801", err)
}

func TestDeliverVerificationFailed(t *testing.T) {
	ctx, dm, tc, done := newTestDisclosureManager(t, "0s", false)
	defer done()

	batchID := tc.closedBatch(t, ctx, 3, 4)
	req, err := dm.RequestDisclosure(ctx, tc.actor, batchID)
	require.NoError(t, err)

	payload, proof, err := tc.oracle.BuildReply(ctx, req.ID)
	require.NoError(t, err)

	// A tampered payload no longer recovers the oracle signer
	tampered := append(cftypes.HexBytes{}, payload...)
	tampered[len(tampered)-1] ^= 0xff
	err = dm.DeliverReply(ctx, req.ID, tampered, proof)
	assert.Regexp(t, "CF010804", err)

	// The failure leaves the request pending, so a corrected redelivery succeeds
	pending, err := dm.GetRequest(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, cfapi.DisclosureStatusPending, pending.Status)

	require.NoError(t, dm.DeliverReply(ctx, req.ID, payload, proof))
}

func TestDeliverBlockedWhilePaused(t *testing.T) {
	ctx, dm, tc, done := newTestDisclosureManager(t, "0s", false)
	defer done()

	batchID := tc.closedBatch(t, ctx, 21, 22)
	req, err := dm.RequestDisclosure(ctx, tc.actor, batchID)
	require.NoError(t, err)

	require.NoError(t, tc.accessMgr.Pause(ctx, tc.admin))
	err = tc.oracle.Deliver(ctx, req.ID)
	assert.Regexp(t, "CF010503", err)

	// The rejected delivery leaves the request pending
	pending, err := dm.GetRequest(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, cfapi.DisclosureStatusPending, pending.Status)

	// After a resume the oracle can redeliver the same reply
	require.NoError(t, tc.accessMgr.Resume(ctx, tc.admin))
	require.NoError(t, tc.oracle.Deliver(ctx, req.ID))
	completed, err := dm.GetRequest(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, cfapi.DisclosureStatusCompleted, completed.Status)
	assert.Equal(t, uint64(21), completed.PackageID.Uint64())
}

func TestDeliverUndecodableProof(t *testing.T) {
	ctx, dm, tc, done := newTestDisclosureManager(t, "0s", false)
	defer done()

	batchID := tc.closedBatch(t, ctx, 7, 8)
	req, err := dm.RequestDisclosure(ctx, tc.actor, batchID)
	require.NoError(t, err)

	payload, proof, err := tc.oracle.BuildReply(ctx, req.ID)
	require.NoError(t, err)

	// A structurally invalid proof fails verification rather than
	// surfacing a raw decode error
	err = dm.DeliverReply(ctx, req.ID, payload, cftypes.HexBytes{0x01, 0x02, 0x03})
	assert.Regexp(t, "CF010804", err)

	pending, err := dm.GetRequest(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, cfapi.DisclosureStatusPending, pending.Status)

	require.NoError(t, dm.DeliverReply(ctx, req.ID, payload, proof))
}

func TestDeliverStateMismatch(t *testing.T) {
	ctx, dm, tc, done := newTestDisclosureManager(t, "0s", false)
	defer done()

	batchID := tc.closedBatch(t, ctx, 5, 6)
	req, err := dm.RequestDisclosure(ctx, tc.actor, batchID)
	require.NoError(t, err)

	// Mutate the stored handles underneath the issued request
	err = tc.p.Transaction(ctx, func(ctx context.Context, dbTX persistence.DBTX) error {
		return dbTX.DB().WithContext(ctx).Model(&cfapi.Batch{}).Where("id = ?", batchID).
			Update("package_handle", devoracle.EncryptValue(999)).Error
	})
	require.NoError(t, err)

	err = tc.oracle.Deliver(ctx, req.ID)
	assert.Regexp(t, "CF010803", err)
}

func TestRequestAndWait(t *testing.T) {
	ctx, dm, tc, done := newTestDisclosureManager(t, "0s", true)
	defer done()

	batchID := tc.closedBatch(t, ctx, 777, 888)

	completed, err := dm.RequestAndWait(ctx, tc.actor, batchID)
	require.NoError(t, err)
	assert.Equal(t, cfapi.DisclosureStatusCompleted, completed.Status)
	assert.Equal(t, uint64(777), completed.PackageID.Uint64())
	assert.Equal(t, uint64(888), completed.VehicleID.Uint64())
}

func TestRequestDisclosureCooldown(t *testing.T) {
	ctx, dm, tc, done := newTestDisclosureManager(t, "60s", false)
	defer done()

	// Close is not rate limited and submission/disclosure are independent
	// classes, so the setup consumes only the submission window
	batchID := tc.closedBatch(t, ctx, 1, 2)

	_, err := dm.RequestDisclosure(ctx, tc.actor, batchID)
	require.NoError(t, err)
	_, err = dm.RequestDisclosure(ctx, tc.actor, batchID)
	assert.Regexp(t, "CF010600", err)
}

func TestListRequests(t *testing.T) {
	ctx, dm, tc, done := newTestDisclosureManager(t, "0s", false)
	defer done()

	batch1 := tc.closedBatch(t, ctx, 1, 2)
	batch2 := tc.closedBatch(t, ctx, 3, 4)

	req1, err := dm.RequestDisclosure(ctx, tc.actor, batch1)
	require.NoError(t, err)
	_, err = dm.RequestDisclosure(ctx, tc.actor, batch2)
	require.NoError(t, err)

	reqs, err := dm.ListRequests(ctx, &cfapi.DisclosureListQuery{})
	require.NoError(t, err)
	require.Len(t, reqs, 2)

	reqs, err = dm.ListRequests(ctx, &cfapi.DisclosureListQuery{BatchID: &batch1})
	require.NoError(t, err)
	require.Len(t, reqs, 1)
	assert.Equal(t, req1.ID, reqs[0].ID)

	reqs, err = dm.ListRequests(ctx, &cfapi.DisclosureListQuery{AfterID: &req1.ID})
	require.NoError(t, err)
	require.Len(t, reqs, 1)
}
