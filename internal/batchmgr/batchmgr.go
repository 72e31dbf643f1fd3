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

	"github.com/cipherfleet/cipherfleet/internal/components"
	"github.com/cipherfleet/cipherfleet/internal/msgs"
	"github.com/cipherfleet/cipherfleet/internal/rpcserver"
	"github.com/cipherfleet/cipherfleet/pkg/cache"
	"github.com/cipherfleet/cipherfleet/pkg/cfapi"
	"github.com/cipherfleet/cipherfleet/pkg/cfconf"
	"github.com/cipherfleet/cipherfleet/pkg/cftypes"
	"github.com/cipherfleet/cipherfleet/pkg/confutil"
	"github.com/cipherfleet/cipherfleet/pkg/oracle"
	"github.com/cipherfleet/cipherfleet/pkg/persistence"
	"github.com/hyperledger/firefly-common/pkg/i18n"
	"github.com/hyperledger/firefly-common/pkg/log"
	"gorm.io/gorm/clause"
)

// batch_counter is a singleton row tracking the active batch id. No row
// means no batch has ever been opened and the first open targets id 1.
type batchCounter struct {
	ID       int64  `gorm:"column:id;primaryKey"`
	ActiveID uint64 `gorm:"column:active_id"`
}

func (batchCounter) TableName() string { return "batch_counter" }

const counterID = int64(1)

var batchCacheDefaults = &cfconf.CacheConfig{
	Capacity: confutil.P(100),
}

const defaultListLimit = 50

type batchManager struct {
	bgCtx     context.Context
	cancelCtx context.CancelFunc

	conf      *cfconf.BatchLedgerConfig
	rpcModule *rpcserver.RPCModule

	p          persistence.Persistence
	writerLock *sync.Mutex
	compute    oracle.ComputeService
	accessMgr  components.AccessManager
	ratelimit  components.RateLimiter
	auditMgr   components.AuditManager

	batchCache cache.Cache[uint64, *cfapi.Batch]
}

func NewBatchManager(bgCtx context.Context, conf *cfconf.BatchLedgerConfig) components.BatchManager {
	bm := &batchManager{
		conf:       conf,
		batchCache: cache.NewCache[uint64, *cfapi.Batch](&conf.Cache, batchCacheDefaults),
	}
	bm.bgCtx, bm.cancelCtx = context.WithCancel(bgCtx)
	return bm
}

func (bm *batchManager) PreInit(pic components.PreInitComponents) (*components.ManagerInitResult, error) {
	bm.p = pic.Persistence()
	bm.writerLock = pic.WriterLock()
	bm.compute = pic.ComputeService()
	bm.initRPC()
	return &components.ManagerInitResult{
		RPCModules: []*rpcserver.RPCModule{bm.rpcModule},
	}, nil
}

func (bm *batchManager) PostInit(c components.AllComponents) error {
	bm.accessMgr = c.AccessManager()
	bm.ratelimit = c.RateLimiter()
	bm.auditMgr = c.AuditManager()
	return nil
}

func (bm *batchManager) Start() error { return nil }

func (bm *batchManager) Stop() { bm.cancelCtx() }

func (bm *batchManager) activeID(ctx context.Context, dbTX persistence.DBTX) (uint64, error) {
	var counters []*batchCounter
	err := dbTX.DB().WithContext(ctx).Where("id = ?", counterID).Limit(1).Find(&counters).Error
	if err != nil {
		return 0, err
	}
	if len(counters) == 0 {
		return 1, nil
	}
	return counters[0].ActiveID, nil
}

func (bm *batchManager) advanceActiveID(ctx context.Context, dbTX persistence.DBTX, newActiveID uint64) error {
	return dbTX.DB().WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"active_id"}),
		}).
		Create(&batchCounter{ID: counterID, ActiveID: newActiveID}).Error
}

// submissionGuards run in fixed order before any mutation: submitter,
// pause, cooldown.
func (bm *batchManager) submissionGuards(ctx context.Context, dbTX persistence.DBTX, actor *cftypes.EthAddress, rateLimited bool, now cftypes.Timestamp) error {
	if err := bm.accessMgr.RequireSubmitter(ctx, dbTX, actor); err != nil {
		return err
	}
	if err := bm.accessMgr.RequireNotPaused(ctx, dbTX); err != nil {
		return err
	}
	if rateLimited {
		return bm.ratelimit.CheckAndRecord(ctx, dbTX, actor, cfapi.ActionClassSubmission, now)
	}
	return nil
}

func (bm *batchManager) OpenBatch(ctx context.Context, actor *cftypes.EthAddress) (batch *cfapi.Batch, err error) {
	bm.writerLock.Lock()
	defer bm.writerLock.Unlock()
	now := cftypes.TimestampNow()
	err = bm.p.Transaction(ctx, func(ctx context.Context, dbTX persistence.DBTX) error {
		if err := bm.submissionGuards(ctx, dbTX, actor, true, now); err != nil {
			return err
		}
		activeID, err := bm.activeID(ctx, dbTX)
		if err != nil {
			return err
		}
		existing, err := bm.GetBatchTX(ctx, dbTX, activeID)
		if err != nil {
			return err
		}
		if existing != nil {
			return i18n.NewError(ctx, msgs.MsgBatchAlreadyOpen, activeID)
		}
		batch = &cfapi.Batch{
			ID:             activeID,
			State:          cfapi.BatchStateOpen,
			OpenedBy:       actor,
			LastTransition: now,
		}
		if err := dbTX.DB().WithContext(ctx).Create(batch).Error; err != nil {
			return err
		}
		bm.cacheAfterCommit(dbTX, batch)
		log.L(ctx).Infof("Batch %d opened by %s", batch.ID, actor)
		return bm.auditMgr.Append(ctx, dbTX, &cfapi.AuditEvent{
			Type:    cfapi.EventBatchOpened,
			Actor:   actor,
			BatchID: &batch.ID,
		})
	})
	if err != nil {
		return nil, err
	}
	return batch, nil
}

func (bm *batchManager) SubmitPair(ctx context.Context, actor *cftypes.EthAddress, batchID uint64, packageHandle, vehicleHandle cftypes.HexBytes) (batch *cfapi.Batch, err error) {
	bm.writerLock.Lock()
	defer bm.writerLock.Unlock()
	now := cftypes.TimestampNow()
	err = bm.p.Transaction(ctx, func(ctx context.Context, dbTX persistence.DBTX) error {
		if err := bm.submissionGuards(ctx, dbTX, actor, true, now); err != nil {
			return err
		}
		activeID, err := bm.activeID(ctx, dbTX)
		if err != nil {
			return err
		}
		if batchID != activeID {
			return i18n.NewError(ctx, msgs.MsgBatchInvalidID, batchID, activeID)
		}
		if batch, err = bm.GetBatchTX(ctx, dbTX, batchID); err != nil {
			return err
		}
		if batch == nil {
			return i18n.NewError(ctx, msgs.MsgBatchNotFound, batchID)
		}
		if batch.State != cfapi.BatchStateOpen {
			return i18n.NewError(ctx, msgs.MsgBatchAlreadyClosed, batchID)
		}
		for _, handle := range []cftypes.HexBytes{packageHandle, vehicleHandle} {
			initialized, err := bm.compute.IsInitialized(ctx, handle)
			if err != nil {
				return err
			}
			if !initialized {
				return i18n.NewError(ctx, msgs.MsgHandleUninitialized)
			}
		}
		// Latest wins: a resubmission before close replaces the pair, but
		// is audited distinctly from a first submission
		eventType := cfapi.EventPairSubmitted
		if batch.HasPair() {
			eventType = cfapi.EventPairOverwritten
		}
		batch.PackageHandle = packageHandle
		batch.VehicleHandle = vehicleHandle
		batch.LastTransition = now
		err = dbTX.DB().WithContext(ctx).Model(&cfapi.Batch{}).Where("id = ?", batchID).
			Updates(map[string]interface{}{
				"package_handle":  packageHandle,
				"vehicle_handle":  vehicleHandle,
				"last_transition": now,
			}).Error
		if err != nil {
			return err
		}
		bm.cacheAfterCommit(dbTX, batch)
		// Events carry the opaque handles only - never cleartext
		return bm.auditMgr.Append(ctx, dbTX, &cfapi.AuditEvent{
			Type:    eventType,
			Actor:   actor,
			BatchID: &batch.ID,
			Data: cftypes.JSONString(map[string]any{
				"packageHandle": packageHandle,
				"vehicleHandle": vehicleHandle,
			}),
		})
	})
	if err != nil {
		return nil, err
	}
	return batch, nil
}

func (bm *batchManager) CloseBatch(ctx context.Context, actor *cftypes.EthAddress, batchID uint64) (batch *cfapi.Batch, err error) {
	bm.writerLock.Lock()
	defer bm.writerLock.Unlock()
	now := cftypes.TimestampNow()
	err = bm.p.Transaction(ctx, func(ctx context.Context, dbTX persistence.DBTX) error {
		if err := bm.submissionGuards(ctx, dbTX, actor, false, now); err != nil {
			return err
		}
		activeID, err := bm.activeID(ctx, dbTX)
		if err != nil {
			return err
		}
		if batchID != activeID {
			return i18n.NewError(ctx, msgs.MsgBatchInvalidID, batchID, activeID)
		}
		if batch, err = bm.GetBatchTX(ctx, dbTX, batchID); err != nil {
			return err
		}
		if batch == nil {
			return i18n.NewError(ctx, msgs.MsgBatchNotFound, batchID)
		}
		if batch.State != cfapi.BatchStateOpen {
			return i18n.NewError(ctx, msgs.MsgBatchAlreadyClosed, batchID)
		}
		batch.State = cfapi.BatchStateClosed
		batch.LastTransition = now
		err = dbTX.DB().WithContext(ctx).Model(&cfapi.Batch{}).Where("id = ?", batchID).
			Updates(map[string]interface{}{
				"state":           cfapi.BatchStateClosed,
				"last_transition": now,
			}).Error
		if err != nil {
			return err
		}
		// The next open targets a fresh id
		if err := bm.advanceActiveID(ctx, dbTX, activeID+1); err != nil {
			return err
		}
		bm.cacheAfterCommit(dbTX, batch)
		log.L(ctx).Infof("Batch %d closed by %s", batch.ID, actor)
		return bm.auditMgr.Append(ctx, dbTX, &cfapi.AuditEvent{
			Type:    cfapi.EventBatchClosed,
			Actor:   actor,
			BatchID: &batch.ID,
		})
	})
	if err != nil {
		return nil, err
	}
	return batch, nil
}

func (bm *batchManager) cacheAfterCommit(dbTX persistence.DBTX, batch *cfapi.Batch) {
	dbTX.AddPostCommit(func(ctx context.Context) {
		bm.batchCache.Set(batch.ID, batch)
	})
}

func (bm *batchManager) GetBatchTX(ctx context.Context, dbTX persistence.DBTX, batchID uint64) (*cfapi.Batch, error) {
	var batches []*cfapi.Batch
	err := dbTX.DB().WithContext(ctx).Where("id = ?", batchID).Limit(1).Find(&batches).Error
	if err != nil || len(batches) == 0 {
		return nil, err
	}
	return batches[0], nil
}

func (bm *batchManager) GetBatch(ctx context.Context, batchID uint64) (*cfapi.Batch, error) {
	if batch, ok := bm.batchCache.Get(batchID); ok {
		return batch, nil
	}
	batch, err := bm.GetBatchTX(ctx, bm.p.NOTX(), batchID)
	if err != nil {
		return nil, err
	}
	if batch == nil {
		return nil, i18n.NewError(ctx, msgs.MsgBatchNotFound, batchID)
	}
	bm.batchCache.Set(batchID, batch)
	return batch, nil
}

func (bm *batchManager) ListBatches(ctx context.Context, q *cfapi.BatchListQuery) ([]*cfapi.Batch, error) {
	batches := []*cfapi.Batch{}
	db := bm.p.NOTX().DB().WithContext(ctx).Order("id ASC").Limit(confutil.Int(q.Limit, defaultListLimit))
	if q.AfterID != nil {
		db = db.Where("id > ?", *q.AfterID)
	}
	return batches, db.Find(&batches).Error
}

func (bm *batchManager) ActiveID(ctx context.Context) (uint64, error) {
	return bm.activeID(ctx, bm.p.NOTX())
}
