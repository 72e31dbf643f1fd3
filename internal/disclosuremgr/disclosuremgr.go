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
	"strconv"
	"sync"

	"github.com/cipherfleet/cipherfleet/internal/components"
	"github.com/cipherfleet/cipherfleet/internal/msgs"
	"github.com/cipherfleet/cipherfleet/internal/rpcserver"
	"github.com/cipherfleet/cipherfleet/pkg/cache"
	"github.com/cipherfleet/cipherfleet/pkg/cfapi"
	"github.com/cipherfleet/cipherfleet/pkg/cfconf"
	"github.com/cipherfleet/cipherfleet/pkg/cftypes"
	"github.com/cipherfleet/cipherfleet/pkg/confutil"
	"github.com/cipherfleet/cipherfleet/pkg/inflight"
	"github.com/cipherfleet/cipherfleet/pkg/oracle"
	"github.com/cipherfleet/cipherfleet/pkg/persistence"
	"github.com/hyperledger/firefly-common/pkg/i18n"
	"github.com/hyperledger/firefly-common/pkg/log"
	"github.com/google/uuid"
)

var requestCacheDefaults = &cfconf.CacheConfig{
	Capacity: confutil.P(100),
}

const defaultListLimit = 50

type disclosureManager struct {
	bgCtx     context.Context
	cancelCtx context.CancelFunc

	conf      *cfconf.DisclosureConfig
	rpcModule *rpcserver.RPCModule

	p          persistence.Persistence
	writerLock *sync.Mutex
	oracle     oracle.DisclosureOracle
	accessMgr  components.AccessManager
	ratelimit  components.RateLimiter
	batchMgr   components.BatchManager
	auditMgr   components.AuditManager

	requestCache cache.Cache[uint64, *cfapi.DisclosureRequest]
	inflight     *inflight.InflightManager[uint64, *cfapi.DisclosureRequest]
}

func NewDisclosureManager(bgCtx context.Context, conf *cfconf.DisclosureConfig) components.DisclosureManager {
	dm := &disclosureManager{
		conf:         conf,
		requestCache: cache.NewCache[uint64, *cfapi.DisclosureRequest](&conf.Cache, requestCacheDefaults),
		inflight: inflight.NewInflightManager[uint64, *cfapi.DisclosureRequest](func(s string) (uint64, error) {
			return strconv.ParseUint(s, 10, 64)
		}),
	}
	dm.bgCtx, dm.cancelCtx = context.WithCancel(bgCtx)
	return dm
}

func (dm *disclosureManager) PreInit(pic components.PreInitComponents) (*components.ManagerInitResult, error) {
	dm.p = pic.Persistence()
	dm.writerLock = pic.WriterLock()
	dm.oracle = pic.DisclosureOracle()
	dm.initRPC()
	return &components.ManagerInitResult{
		RPCModules: []*rpcserver.RPCModule{dm.rpcModule},
	}, nil
}

func (dm *disclosureManager) PostInit(c components.AllComponents) error {
	dm.accessMgr = c.AccessManager()
	dm.ratelimit = c.RateLimiter()
	dm.batchMgr = c.BatchManager()
	dm.auditMgr = c.AuditManager()
	return nil
}

func (dm *disclosureManager) Start() error { return nil }

func (dm *disclosureManager) Stop() {
	dm.inflight.Close()
	dm.cancelCtx()
}

// integrityDigest binds a request to the exact handles it was issued
// against, and to this deployment's context identifier so a proof replayed
// from another deployment can never match.
func integrityDigest(batch *cfapi.Batch, contextID uuid.UUID) cftypes.Bytes32 {
	preimage := make([]byte, 0, len(batch.PackageHandle)+len(batch.VehicleHandle)+16)
	preimage = append(preimage, batch.PackageHandle...)
	preimage = append(preimage, batch.VehicleHandle...)
	preimage = append(preimage, contextID[:]...)
	return cftypes.Bytes32Keccak(preimage)
}

func (dm *disclosureManager) RequestDisclosure(ctx context.Context, actor *cftypes.EthAddress, batchID uint64) (req *cfapi.DisclosureRequest, err error) {
	dm.writerLock.Lock()
	defer dm.writerLock.Unlock()
	now := cftypes.TimestampNow()
	err = dm.p.Transaction(ctx, func(ctx context.Context, dbTX persistence.DBTX) error {
		if err := dm.accessMgr.RequireSubmitter(ctx, dbTX, actor); err != nil {
			return err
		}
		if err := dm.accessMgr.RequireNotPaused(ctx, dbTX); err != nil {
			return err
		}
		if err := dm.ratelimit.CheckAndRecord(ctx, dbTX, actor, cfapi.ActionClassDisclosure, now); err != nil {
			return err
		}
		batch, err := dm.batchMgr.GetBatchTX(ctx, dbTX, batchID)
		if err != nil {
			return err
		}
		if batch == nil {
			return i18n.NewError(ctx, msgs.MsgBatchNotFound, batchID)
		}
		if batch.State != cfapi.BatchStateClosed {
			return i18n.NewError(ctx, msgs.MsgDisclosureBatchNotClosed, batchID)
		}
		contextID, err := dm.accessMgr.ContextID(ctx, dbTX)
		if err != nil {
			return err
		}
		requestID, err := dm.oracle.RequestDisclosure(ctx, []cftypes.HexBytes{batch.PackageHandle, batch.VehicleHandle})
		if err != nil {
			return i18n.WrapError(ctx, err, msgs.MsgDisclosureOracleRequestFailed, err)
		}
		req = &cfapi.DisclosureRequest{
			ID:              requestID,
			BatchID:         batchID,
			RequestedBy:     actor,
			IntegrityDigest: integrityDigest(batch, contextID),
			Status:          cfapi.DisclosureStatusPending,
			Created:         now,
		}
		if err := dbTX.DB().WithContext(ctx).Create(req).Error; err != nil {
			return err
		}
		dm.cacheAfterCommit(dbTX, req)
		log.L(ctx).Infof("Disclosure request %d issued for batch %d by %s", requestID, batchID, actor)
		return dm.auditMgr.Append(ctx, dbTX, &cfapi.AuditEvent{
			Type:      cfapi.EventDisclosureRequested,
			Actor:     actor,
			BatchID:   &batchID,
			RequestID: &requestID,
			Data: cftypes.JSONString(map[string]any{
				"integrityDigest": req.IntegrityDigest,
			}),
		})
	})
	if err != nil {
		return nil, err
	}
	return req, nil
}

// RequestAndWait issues the request and blocks until the oracle's reply is
// validated and committed, or the caller's context is cancelled.
func (dm *disclosureManager) RequestAndWait(ctx context.Context, actor *cftypes.EthAddress, batchID uint64) (*cfapi.DisclosureRequest, error) {
	req, err := dm.RequestDisclosure(ctx, actor, batchID)
	if err != nil {
		return nil, err
	}
	ifr := dm.inflight.AddInflight(ctx, req.ID)
	defer ifr.Cancel()
	// The reply might have been delivered and committed between the
	// request returning and the in-flight registration
	stored, err := dm.GetRequest(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	if stored.Status == cfapi.DisclosureStatusCompleted {
		return stored, nil
	}
	return ifr.Wait()
}

// DeliverReply is the oracle-facing entry point. Validation runs in a fixed
// order with no partial mutation: any failure leaves the request Pending so
// a corrected redelivery can still succeed.
func (dm *disclosureManager) DeliverReply(ctx context.Context, requestID uint64, payload, proof cftypes.HexBytes) error {
	dm.writerLock.Lock()
	defer dm.writerLock.Unlock()
	now := cftypes.TimestampNow()
	var completed *cfapi.DisclosureRequest
	err := dm.p.Transaction(ctx, func(ctx context.Context, dbTX persistence.DBTX) error {
		// The pause switch gates oracle deliveries like every other state
		// mutation. The request stays pending, so the oracle can redeliver
		// after a resume.
		if err := dm.accessMgr.RequireNotPaused(ctx, dbTX); err != nil {
			return err
		}
		req, err := dm.getRequestTX(ctx, dbTX, requestID)
		if err != nil {
			return err
		}
		if req == nil {
			return i18n.NewError(ctx, msgs.MsgDisclosureUnknownRequest, requestID)
		}
		if req.Status == cfapi.DisclosureStatusCompleted {
			return i18n.NewError(ctx, msgs.MsgDisclosureReplayDetected, requestID)
		}
		batch, err := dm.batchMgr.GetBatchTX(ctx, dbTX, req.BatchID)
		if err != nil {
			return err
		}
		if batch == nil {
			return i18n.NewError(ctx, msgs.MsgBatchNotFound, req.BatchID)
		}
		contextID, err := dm.accessMgr.ContextID(ctx, dbTX)
		if err != nil {
			return err
		}
		if !integrityDigest(batch, contextID).Equals(&req.IntegrityDigest) {
			return i18n.NewError(ctx, msgs.MsgDisclosureStateMismatch, req.BatchID, requestID)
		}
		verified, err := dm.oracle.Verify(ctx, requestID, payload, proof)
		if err != nil {
			// A proof that cannot be decoded fails verification the same
			// way as one recovering the wrong signer
			return i18n.WrapError(ctx, err, msgs.MsgDisclosureVerificationFailed, requestID)
		}
		if !verified {
			return i18n.NewError(ctx, msgs.MsgDisclosureVerificationFailed, requestID)
		}
		packageID, vehicleID, err := oracle.DecodePayload(ctx, payload)
		if err != nil {
			return i18n.WrapError(ctx, err, msgs.MsgDisclosureMalformedPayload, requestID, err)
		}
		pkg := cftypes.HexUint64(packageID.Uint64())
		veh := cftypes.HexUint64(vehicleID.Uint64())
		req.Status = cfapi.DisclosureStatusCompleted
		req.PackageID = &pkg
		req.VehicleID = &veh
		req.Completed = &now
		err = dbTX.DB().WithContext(ctx).Model(&cfapi.DisclosureRequest{}).Where("id = ?", requestID).
			Updates(map[string]interface{}{
				"status":     cfapi.DisclosureStatusCompleted,
				"package_id": pkg,
				"vehicle_id": veh,
				"completed":  now,
			}).Error
		if err != nil {
			return err
		}
		completed = req
		dm.cacheAfterCommit(dbTX, req)
		// The only point in the protocol where cleartext values surface
		log.L(ctx).Infof("Disclosure request %d completed for batch %d", requestID, req.BatchID)
		return dm.auditMgr.Append(ctx, dbTX, &cfapi.AuditEvent{
			Type:      cfapi.EventDisclosureCompleted,
			BatchID:   &req.BatchID,
			RequestID: &requestID,
			Data: cftypes.JSONString(map[string]any{
				"packageId": pkg,
				"vehicleId": veh,
			}),
		})
	})
	if err != nil {
		return err
	}
	if ifr := dm.inflight.GetInflight(requestID); ifr != nil {
		ifr.Complete(completed)
	}
	return nil
}

func (dm *disclosureManager) cacheAfterCommit(dbTX persistence.DBTX, req *cfapi.DisclosureRequest) {
	dbTX.AddPostCommit(func(ctx context.Context) {
		dm.requestCache.Set(req.ID, req)
	})
}

func (dm *disclosureManager) getRequestTX(ctx context.Context, dbTX persistence.DBTX, requestID uint64) (*cfapi.DisclosureRequest, error) {
	var reqs []*cfapi.DisclosureRequest
	err := dbTX.DB().WithContext(ctx).Where("id = ?", requestID).Limit(1).Find(&reqs).Error
	if err != nil || len(reqs) == 0 {
		return nil, err
	}
	return reqs[0], nil
}

func (dm *disclosureManager) GetRequest(ctx context.Context, requestID uint64) (*cfapi.DisclosureRequest, error) {
	if req, ok := dm.requestCache.Get(requestID); ok {
		return req, nil
	}
	req, err := dm.getRequestTX(ctx, dm.p.NOTX(), requestID)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, i18n.NewError(ctx, msgs.MsgDisclosureUnknownRequest, requestID)
	}
	dm.requestCache.Set(requestID, req)
	return req, nil
}

func (dm *disclosureManager) ListRequests(ctx context.Context, q *cfapi.DisclosureListQuery) ([]*cfapi.DisclosureRequest, error) {
	reqs := []*cfapi.DisclosureRequest{}
	db := dm.p.NOTX().DB().WithContext(ctx).Order("id ASC").Limit(confutil.Int(q.Limit, defaultListLimit))
	if q.BatchID != nil {
		db = db.Where("batch_id = ?", *q.BatchID)
	}
	if q.AfterID != nil {
		db = db.Where("id > ?", *q.AfterID)
	}
	return reqs, db.Find(&reqs).Error
}
