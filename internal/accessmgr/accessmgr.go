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
	"time"

	"github.com/cipherfleet/cipherfleet/internal/components"
	"github.com/cipherfleet/cipherfleet/internal/msgs"
	"github.com/cipherfleet/cipherfleet/internal/rpcserver"
	"github.com/cipherfleet/cipherfleet/pkg/cfapi"
	"github.com/cipherfleet/cipherfleet/pkg/cfconf"
	"github.com/cipherfleet/cipherfleet/pkg/cftypes"
	"github.com/cipherfleet/cipherfleet/pkg/persistence"
	"github.com/google/uuid"
	"github.com/hyperledger/firefly-common/pkg/i18n"
	"github.com/hyperledger/firefly-common/pkg/log"
)

// The registry is a singleton row. It does not exist until bootstrap runs
// with a configured initial administrator; until then every administrator
// gated operation fails AccessDenied.
type registry struct {
	ID            int64               `gorm:"column:id;primaryKey"`
	Administrator *cftypes.EthAddress `gorm:"column:administrator"`
	Paused        bool                `gorm:"column:paused"`
	CooldownSecs  int64               `gorm:"column:cooldown_secs"`
	ContextID     string              `gorm:"column:context_id"`
	Updated       cftypes.Timestamp   `gorm:"column:updated"`
}

func (registry) TableName() string { return "registry" }

type submitter struct {
	Actor        cftypes.EthAddress  `gorm:"column:actor;primaryKey"`
	AuthorizedBy *cftypes.EthAddress `gorm:"column:authorized_by"`
	Created      cftypes.Timestamp   `gorm:"column:created"`
}

func (submitter) TableName() string { return "submitters" }

const registryID = int64(1)

type accessManager struct {
	bgCtx     context.Context
	cancelCtx context.CancelFunc

	conf      *cfconf.AccessConfig
	rpcModule *rpcserver.RPCModule

	p          persistence.Persistence
	writerLock *sync.Mutex
	auditMgr   components.AuditManager
}

func NewAccessManager(bgCtx context.Context, conf *cfconf.AccessConfig) components.AccessManager {
	am := &accessManager{
		conf: conf,
	}
	am.bgCtx, am.cancelCtx = context.WithCancel(bgCtx)
	return am
}

func (am *accessManager) PreInit(pic components.PreInitComponents) (*components.ManagerInitResult, error) {
	am.p = pic.Persistence()
	am.writerLock = pic.WriterLock()
	am.initRPC()
	return &components.ManagerInitResult{
		RPCModules: []*rpcserver.RPCModule{am.rpcModule},
	}, nil
}

func (am *accessManager) PostInit(c components.AllComponents) error {
	am.auditMgr = c.AuditManager()
	return nil
}

func (am *accessManager) Start() error {
	return am.bootstrap(am.bgCtx)
}

func (am *accessManager) Stop() {
	am.cancelCtx()
}

// bootstrap creates the registry row on first startup, minting the
// per-deployment context identifier that binds integrity digests to this
// deployment. Re-running against an existing registry is a no-op.
func (am *accessManager) bootstrap(ctx context.Context) error {
	if am.conf.InitialAdministrator == nil {
		log.L(ctx).Warnf("No initial administrator configured - registry bootstrap skipped")
		return nil
	}
	admin, err := cftypes.ParseEthAddress(*am.conf.InitialAdministrator)
	if err != nil {
		return err
	}
	cooldownSecs := int64(0)
	if am.conf.InitialCooldown != nil {
		d, err := time.ParseDuration(*am.conf.InitialCooldown)
		if err != nil {
			return err
		}
		cooldownSecs = int64(d.Seconds())
	}
	return am.p.Transaction(ctx, func(ctx context.Context, dbTX persistence.DBTX) error {
		existing, err := am.loadRegistry(ctx, dbTX)
		if err != nil || existing != nil {
			return err
		}
		reg := &registry{
			ID:            registryID,
			Administrator: admin,
			Paused:        false,
			CooldownSecs:  cooldownSecs,
			ContextID:     uuid.New().String(),
			Updated:       cftypes.TimestampNow(),
		}
		log.L(ctx).Infof("Bootstrapping registry: administrator=%s cooldown=%ds context=%s", admin, cooldownSecs, reg.ContextID)
		return dbTX.DB().WithContext(ctx).Create(reg).Error
	})
}

func (am *accessManager) loadRegistry(ctx context.Context, dbTX persistence.DBTX) (*registry, error) {
	var regs []*registry
	err := dbTX.DB().WithContext(ctx).Where("id = ?", registryID).Limit(1).Find(&regs).Error
	if err != nil || len(regs) == 0 {
		return nil, err
	}
	return regs[0], nil
}

func (am *accessManager) saveRegistry(ctx context.Context, dbTX persistence.DBTX, reg *registry) error {
	reg.Updated = cftypes.TimestampNow()
	return dbTX.DB().WithContext(ctx).Model(&registry{}).Where("id = ?", registryID).
		Updates(map[string]interface{}{
			"administrator": reg.Administrator,
			"paused":        reg.Paused,
			"cooldown_secs": reg.CooldownSecs,
			"updated":       reg.Updated,
		}).Error
}

func (am *accessManager) RequireAdministrator(ctx context.Context, dbTX persistence.DBTX, caller *cftypes.EthAddress) error {
	reg, err := am.loadRegistry(ctx, dbTX)
	if err != nil {
		return err
	}
	if reg == nil || reg.Administrator == nil || !reg.Administrator.Equals(caller) {
		return i18n.NewError(ctx, msgs.MsgAccessNotAdministrator, caller)
	}
	return nil
}

func (am *accessManager) RequireSubmitter(ctx context.Context, dbTX persistence.DBTX, actor *cftypes.EthAddress) error {
	if actor.IsZero() {
		return i18n.NewError(ctx, msgs.MsgAccessInvalidActor)
	}
	authorized, err := am.isSubmitter(ctx, dbTX, actor)
	if err != nil {
		return err
	}
	if !authorized {
		return i18n.NewError(ctx, msgs.MsgAccessNotSubmitter, actor)
	}
	return nil
}

func (am *accessManager) RequireNotPaused(ctx context.Context, dbTX persistence.DBTX) error {
	reg, err := am.loadRegistry(ctx, dbTX)
	if err != nil {
		return err
	}
	if reg != nil && reg.Paused {
		return i18n.NewError(ctx, msgs.MsgSystemPaused)
	}
	return nil
}

func (am *accessManager) CooldownSeconds(ctx context.Context, dbTX persistence.DBTX) (int64, error) {
	reg, err := am.loadRegistry(ctx, dbTX)
	if err != nil || reg == nil {
		return 0, err
	}
	return reg.CooldownSecs, nil
}

func (am *accessManager) ContextID(ctx context.Context, dbTX persistence.DBTX) (uuid.UUID, error) {
	reg, err := am.loadRegistry(ctx, dbTX)
	if err != nil || reg == nil {
		return uuid.UUID{}, err
	}
	ctxID, err := uuid.Parse(reg.ContextID)
	if err != nil {
		return uuid.UUID{}, err
	}
	return ctxID, nil
}

func (am *accessManager) isSubmitter(ctx context.Context, dbTX persistence.DBTX, actor *cftypes.EthAddress) (bool, error) {
	var count int64
	err := dbTX.DB().WithContext(ctx).Model(&submitter{}).Where("actor = ?", actor).Count(&count).Error
	return count > 0, err
}

func (am *accessManager) TransferAdministration(ctx context.Context, caller, newAdmin *cftypes.EthAddress) error {
	am.writerLock.Lock()
	defer am.writerLock.Unlock()
	return am.p.Transaction(ctx, func(ctx context.Context, dbTX persistence.DBTX) error {
		if err := am.RequireAdministrator(ctx, dbTX, caller); err != nil {
			return err
		}
		if newAdmin.IsZero() {
			return i18n.NewError(ctx, msgs.MsgAccessInvalidActor)
		}
		reg, err := am.loadRegistry(ctx, dbTX)
		if err != nil {
			return err
		}
		previous := reg.Administrator
		reg.Administrator = newAdmin
		if err := am.saveRegistry(ctx, dbTX, reg); err != nil {
			return err
		}
		return am.auditMgr.Append(ctx, dbTX, &cfapi.AuditEvent{
			Type:  cfapi.EventOwnerTransferred,
			Actor: caller,
			Data:  cftypes.JSONString(map[string]any{"from": previous, "to": newAdmin}),
		})
	})
}

func (am *accessManager) AuthorizeSubmitter(ctx context.Context, caller, actor *cftypes.EthAddress) error {
	am.writerLock.Lock()
	defer am.writerLock.Unlock()
	return am.p.Transaction(ctx, func(ctx context.Context, dbTX persistence.DBTX) error {
		if err := am.RequireAdministrator(ctx, dbTX, caller); err != nil {
			return err
		}
		if actor.IsZero() {
			return i18n.NewError(ctx, msgs.MsgAccessInvalidActor)
		}
		authorized, err := am.isSubmitter(ctx, dbTX, actor)
		if err != nil || authorized {
			// Idempotent: already authorized is a no-op with no event
			return err
		}
		err = dbTX.DB().WithContext(ctx).Create(&submitter{
			Actor:        *actor,
			AuthorizedBy: caller,
			Created:      cftypes.TimestampNow(),
		}).Error
		if err != nil {
			return err
		}
		return am.auditMgr.Append(ctx, dbTX, &cfapi.AuditEvent{
			Type:  cfapi.EventSubmitterAuthorized,
			Actor: caller,
			Data:  cftypes.JSONString(map[string]any{"submitter": actor}),
		})
	})
}

func (am *accessManager) RevokeSubmitter(ctx context.Context, caller, actor *cftypes.EthAddress) error {
	am.writerLock.Lock()
	defer am.writerLock.Unlock()
	return am.p.Transaction(ctx, func(ctx context.Context, dbTX persistence.DBTX) error {
		if err := am.RequireAdministrator(ctx, dbTX, caller); err != nil {
			return err
		}
		if actor.IsZero() {
			return i18n.NewError(ctx, msgs.MsgAccessInvalidActor)
		}
		res := dbTX.DB().WithContext(ctx).Where("actor = ?", actor).Delete(&submitter{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// Idempotent: revoking an unauthorized actor is a no-op with no event
			return nil
		}
		return am.auditMgr.Append(ctx, dbTX, &cfapi.AuditEvent{
			Type:  cfapi.EventSubmitterRevoked,
			Actor: caller,
			Data:  cftypes.JSONString(map[string]any{"submitter": actor}),
		})
	})
}

func (am *accessManager) Pause(ctx context.Context, caller *cftypes.EthAddress) error {
	am.writerLock.Lock()
	defer am.writerLock.Unlock()
	return am.p.Transaction(ctx, func(ctx context.Context, dbTX persistence.DBTX) error {
		if err := am.RequireAdministrator(ctx, dbTX, caller); err != nil {
			return err
		}
		reg, err := am.loadRegistry(ctx, dbTX)
		if err != nil {
			return err
		}
		if reg.Paused {
			return i18n.NewError(ctx, msgs.MsgSystemAlreadyPaused)
		}
		reg.Paused = true
		if err := am.saveRegistry(ctx, dbTX, reg); err != nil {
			return err
		}
		return am.auditMgr.Append(ctx, dbTX, &cfapi.AuditEvent{
			Type:  cfapi.EventPaused,
			Actor: caller,
		})
	})
}

func (am *accessManager) Resume(ctx context.Context, caller *cftypes.EthAddress) error {
	am.writerLock.Lock()
	defer am.writerLock.Unlock()
	return am.p.Transaction(ctx, func(ctx context.Context, dbTX persistence.DBTX) error {
		if err := am.RequireAdministrator(ctx, dbTX, caller); err != nil {
			return err
		}
		reg, err := am.loadRegistry(ctx, dbTX)
		if err != nil {
			return err
		}
		if !reg.Paused {
			return i18n.NewError(ctx, msgs.MsgSystemNotPaused)
		}
		reg.Paused = false
		if err := am.saveRegistry(ctx, dbTX, reg); err != nil {
			return err
		}
		return am.auditMgr.Append(ctx, dbTX, &cfapi.AuditEvent{
			Type:  cfapi.EventResumed,
			Actor: caller,
		})
	})
}

func (am *accessManager) SetCooldown(ctx context.Context, caller *cftypes.EthAddress, seconds int64) error {
	am.writerLock.Lock()
	defer am.writerLock.Unlock()
	return am.p.Transaction(ctx, func(ctx context.Context, dbTX persistence.DBTX) error {
		if err := am.RequireAdministrator(ctx, dbTX, caller); err != nil {
			return err
		}
		if seconds < 0 {
			return i18n.NewError(ctx, msgs.MsgCooldownInvalidSeconds)
		}
		reg, err := am.loadRegistry(ctx, dbTX)
		if err != nil {
			return err
		}
		previous := reg.CooldownSecs
		reg.CooldownSecs = seconds
		if err := am.saveRegistry(ctx, dbTX, reg); err != nil {
			return err
		}
		return am.auditMgr.Append(ctx, dbTX, &cfapi.AuditEvent{
			Type:  cfapi.EventCooldownChanged,
			Actor: caller,
			Data:  cftypes.JSONString(map[string]any{"from": previous, "to": seconds}),
		})
	})
}

func (am *accessManager) Status(ctx context.Context) (*cfapi.AccessStatus, error) {
	dbTX := am.p.NOTX()
	reg, err := am.loadRegistry(ctx, dbTX)
	if err != nil {
		return nil, err
	}
	status := &cfapi.AccessStatus{}
	if reg != nil {
		status.Administrator = reg.Administrator
		status.Paused = reg.Paused
		status.CooldownSeconds = reg.CooldownSecs
		if ctxID, err := uuid.Parse(reg.ContextID); err == nil {
			status.ContextID = ctxID
		}
	}
	return status, nil
}

func (am *accessManager) IsSubmitter(ctx context.Context, actor *cftypes.EthAddress) (bool, error) {
	if actor.IsZero() {
		return false, nil
	}
	return am.isSubmitter(ctx, am.p.NOTX(), actor)
}
