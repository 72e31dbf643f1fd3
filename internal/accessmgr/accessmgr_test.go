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

package accessmgr

import (
	"context"
	"sync"
	"testing"

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
	auditMgr   components.AuditManager
}

func (tc *testComponents) Persistence() persistence.Persistence  { return tc.p }
func (tc *testComponents) WriterLock() *sync.Mutex               { return &tc.writerLock }
func (tc *testComponents) AuditManager() components.AuditManager { return tc.auditMgr }

func newTestAccessManager(t *testing.T, conf *cfconf.AccessConfig) (context.Context, components.AccessManager, *testComponents, func()) {
	ctx := context.Background()
	p, pDone, err := persistence.NewUnitTestPersistence(ctx, "accessmgr")
	require.NoError(t, err)

	tc := &testComponents{p: p}

	audit := auditmgr.NewAuditManager(ctx, &cfconf.AuditConfig{})
	_, err = audit.PreInit(tc)
	require.NoError(t, err)
	tc.auditMgr = audit

	am := NewAccessManager(ctx, conf)
	_, err = am.PreInit(tc)
	require.NoError(t, err)
	require.NoError(t, am.PostInit(tc))
	require.NoError(t, audit.PostInit(tc))
	require.NoError(t, am.Start())

	return ctx, am, tc, func() {
		am.Stop()
		audit.Stop()
		pDone()
	}
}

func adminConf(admin *cftypes.EthAddress) *cfconf.AccessConfig {
	return &cfconf.AccessConfig{
		InitialAdministrator: confutil.P(admin.String()),
		InitialCooldown:      confutil.P("5m"),
	}
}

func TestBootstrapAndStatus(t *testing.T) {
	admin := cftypes.RandAddress()
	ctx, am, _, done := newTestAccessManager(t, adminConf(admin))
	defer done()

	status, err := am.Status(ctx)
	require.NoError(t, err)
	assert.True(t, admin.Equals(status.Administrator))
	assert.False(t, status.Paused)
	assert.Equal(t, int64(300), status.CooldownSeconds)
	assert.NotEqual(t, [16]byte{}, [16]byte(status.ContextID))

	// Re-running bootstrap does not mint a new context id
	require.NoError(t, am.Start())
	status2, err := am.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, status.ContextID, status2.ContextID)
}

func TestBootstrapSkippedWithoutAdministrator(t *testing.T) {
	ctx, am, _, done := newTestAccessManager(t, &cfconf.AccessConfig{})
	defer done()

	status, err := am.Status(ctx)
	require.NoError(t, err)
	assert.Nil(t, status.Administrator)

	// With no registry every administrator gated call is denied
	err = am.Pause(ctx, cftypes.RandAddress())
	assert.Regexp(t, "CF010500", err)
}

func TestAuthorizeAndRevokeSubmitter(t *testing.T) {
	admin := cftypes.RandAddress()
	ctx, am, tc, done := newTestAccessManager(t, adminConf(admin))
	defer done()

	actor := cftypes.RandAddress()
	ok, err := am.IsSubmitter(ctx, actor)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, am.AuthorizeSubmitter(ctx, admin, actor))
	ok, err = am.IsSubmitter(ctx, actor)
	require.NoError(t, err)
	assert.True(t, ok)

	// Re-authorizing is idempotent and records no extra event
	require.NoError(t, am.AuthorizeSubmitter(ctx, admin, actor))
	events, err := tc.auditMgr.Query(ctx, &cfapi.AuditQuery{})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, cfapi.EventSubmitterAuthorized, events[0].Type)

	require.NoError(t, am.RevokeSubmitter(ctx, admin, actor))
	ok, err = am.IsSubmitter(ctx, actor)
	require.NoError(t, err)
	assert.False(t, ok)

	// Revoking an unauthorized actor is a no-op
	require.NoError(t, am.RevokeSubmitter(ctx, admin, actor))
	events, err = tc.auditMgr.Query(ctx, &cfapi.AuditQuery{})
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, cfapi.EventSubmitterRevoked, events[1].Type)
}

func TestAuthorizeSubmitterDeniedForNonAdmin(t *testing.T) {
	admin := cftypes.RandAddress()
	ctx, am, _, done := newTestAccessManager(t, adminConf(admin))
	defer done()

	err := am.AuthorizeSubmitter(ctx, cftypes.RandAddress(), cftypes.RandAddress())
	assert.Regexp(t, "CF010500", err)
}

func TestAuthorizeSubmitterZeroActor(t *testing.T) {
	admin := cftypes.RandAddress()
	ctx, am, _, done := newTestAccessManager(t, adminConf(admin))
	defer done()

	err := am.AuthorizeSubmitter(ctx, admin, &cftypes.EthAddress{})
	assert.Regexp(t, "CF010502", err)
}

func TestPauseResume(t *testing.T) {
	admin := cftypes.RandAddress()
	ctx, am, tc, done := newTestAccessManager(t, adminConf(admin))
	defer done()

	require.NoError(t, am.Pause(ctx, admin))
	err := am.RequireNotPaused(ctx, tc.p.NOTX())
	assert.Regexp(t, "CF010503", err)

	err = am.Pause(ctx, admin)
	assert.Regexp(t, "CF010504", err)

	require.NoError(t, am.Resume(ctx, admin))
	require.NoError(t, am.RequireNotPaused(ctx, tc.p.NOTX()))

	err = am.Resume(ctx, admin)
	assert.Regexp(t, "CF010505", err)

	events, err := tc.auditMgr.Query(ctx, &cfapi.AuditQuery{})
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, cfapi.EventPaused, events[0].Type)
	assert.Equal(t, cfapi.EventResumed, events[1].Type)
}

func TestTransferAdministration(t *testing.T) {
	admin := cftypes.RandAddress()
	ctx, am, _, done := newTestAccessManager(t, adminConf(admin))
	defer done()

	err := am.TransferAdministration(ctx, admin, &cftypes.EthAddress{})
	assert.Regexp(t, "CF010502", err)

	newAdmin := cftypes.RandAddress()
	require.NoError(t, am.TransferAdministration(ctx, admin, newAdmin))

	// The old administrator is immediately denied
	err = am.SetCooldown(ctx, admin, 10)
	assert.Regexp(t, "CF010500", err)

	require.NoError(t, am.SetCooldown(ctx, newAdmin, 10))
	status, err := am.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(10), status.CooldownSeconds)
	assert.True(t, newAdmin.Equals(status.Administrator))
}

func TestSetCooldownNegative(t *testing.T) {
	admin := cftypes.RandAddress()
	ctx, am, _, done := newTestAccessManager(t, adminConf(admin))
	defer done()

	err := am.SetCooldown(ctx, admin, -1)
	assert.Regexp(t, "CF010601", err)
}

func TestRequireSubmitterZeroActor(t *testing.T) {
	admin := cftypes.RandAddress()
	ctx, am, tc, done := newTestAccessManager(t, adminConf(admin))
	defer done()

	err := am.RequireSubmitter(ctx, tc.p.NOTX(), &cftypes.EthAddress{})
	assert.Regexp(t, "CF010502", err)

	err = am.RequireSubmitter(ctx, tc.p.NOTX(), cftypes.RandAddress())
	assert.Regexp(t, "CF010501", err)
}

func TestContextIDAndCooldownSeconds(t *testing.T) {
	admin := cftypes.RandAddress()
	ctx, am, tc, done := newTestAccessManager(t, adminConf(admin))
	defer done()

	ctxID, err := am.ContextID(ctx, tc.p.NOTX())
	require.NoError(t, err)
	assert.NotEqual(t, [16]byte{}, [16]byte(ctxID))

	secs, err := am.CooldownSeconds(ctx, tc.p.NOTX())
	require.NoError(t, err)
	assert.Equal(t, int64(300), secs)
}
