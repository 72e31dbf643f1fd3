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

package auditmgr

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/cipherfleet/cipherfleet/internal/msgs"
	"github.com/cipherfleet/cipherfleet/internal/rpcserver"
	"github.com/cipherfleet/cipherfleet/pkg/cfapi"
	"github.com/cipherfleet/cipherfleet/pkg/cftypes"
	"github.com/cipherfleet/cipherfleet/pkg/persistence"
	"github.com/cipherfleet/cipherfleet/pkg/rpcclient"
	"github.com/hyperledger/firefly-common/pkg/i18n"
	"github.com/hyperledger/firefly-common/pkg/log"
	"gorm.io/gorm/clause"
)

// auditCheckpoint lets a named subscriber resume the feed where its last
// acknowledged batch ended. Anonymous subscriptions are not checkpointed.
type auditCheckpoint struct {
	Listener string            `gorm:"column:listener;primaryKey"`
	Sequence uint64            `gorm:"column:sequence"`
	Time     cftypes.Timestamp `gorm:"column:time"`
}

func (auditCheckpoint) TableName() string { return "audit_checkpoints" }

type rpcEventStreams struct {
	am      *auditManager
	subLock sync.Mutex
	subs    map[string]*auditSubscription
}

func newRPCEventStreams(am *auditManager) *rpcEventStreams {
	return &rpcEventStreams{
		am:   am,
		subs: make(map[string]*auditSubscription),
	}
}

func (es *rpcEventStreams) StartMethod() string {
	return "audit_subscribe"
}

func (es *rpcEventStreams) LifecycleMethods() []string {
	return []string{"audit_unsubscribe", "audit_ack", "audit_nack"}
}

type rpcAckNack struct {
	ack bool
}

type auditSubscription struct {
	es   *rpcEventStreams
	ctrl rpcserver.RPCAsyncControl

	ctx       context.Context
	cancelCtx context.CancelFunc

	// empty for an anonymous subscription
	listenerName string
	checkpoint   *uint64

	nextBatchID uint64
	newEvents   chan bool
	acksNacks   chan *rpcAckNack
	closed      chan struct{}
	done        chan struct{}
}

// audit_subscribe takes an optional listener name as the first parameter,
// and an optional starting sequence as the second. A named subscription
// resumes from its persisted checkpoint, ignoring the starting sequence
// once a checkpoint exists.
func (es *rpcEventStreams) HandleStart(ctx context.Context, req *rpcclient.RPCRequest, ctrl rpcserver.RPCAsyncControl) (rpcserver.RPCAsyncInstance, *rpcclient.RPCResponse) {
	es.subLock.Lock()
	defer es.subLock.Unlock()

	sub := &auditSubscription{
		es:        es,
		ctrl:      ctrl,
		newEvents: make(chan bool, 1),
		acksNacks: make(chan *rpcAckNack, 1),
		closed:    make(chan struct{}),
		done:      make(chan struct{}),
	}
	if len(req.Params) >= 1 && !req.Params[0].IsNil() {
		sub.listenerName = req.Params[0].StringValue()
	}
	if len(req.Params) >= 2 && !req.Params[1].IsNil() {
		var afterSequence uint64
		if err := json.Unmarshal(req.Params[1].Bytes(), &afterSequence); err != nil {
			return nil, rpcclient.NewRPCErrorResponse(err, req.ID, rpcclient.RPCCodeInvalidRequest)
		}
		sub.checkpoint = &afterSequence
	}
	sub.ctx, sub.cancelCtx = context.WithCancel(log.WithLogField(es.am.bgCtx, "audit-subscription", ctrl.ID()))

	es.subs[ctrl.ID()] = sub
	go sub.run()

	return sub, &rpcclient.RPCResponse{
		JSONRpc: "2.0",
		ID:      req.ID,
		Result:  cftypes.JSONString(ctrl.ID()),
	}
}

func (es *rpcEventStreams) HandleLifecycle(ctx context.Context, req *rpcclient.RPCRequest) *rpcclient.RPCResponse {
	if len(req.Params) < 1 {
		return rpcclient.NewRPCErrorResponse(i18n.NewError(ctx, msgs.MsgAuditSubIDRequired), req.ID, rpcclient.RPCCodeInvalidRequest)
	}
	subID := req.Params[0].StringValue()
	sub := es.getSubscription(subID)
	switch req.Method {
	case "audit_ack", "audit_nack":
		if sub != nil {
			select {
			case sub.acksNacks <- &rpcAckNack{ack: req.Method == "audit_ack"}:
				log.L(ctx).Debugf("ack/nack received for subscription %s ack=%t", subID, req.Method == "audit_ack")
			default:
			}
		}
		return nil // no reply to acks/nacks - we just send more batches
	case "audit_unsubscribe":
		if sub != nil {
			sub.ctrl.Closed()
			es.cleanupSubscription(subID)
		}
		return &rpcclient.RPCResponse{
			JSONRpc: "2.0",
			ID:      req.ID,
			Result:  cftypes.JSONString(sub != nil),
		}
	default:
		return rpcclient.NewRPCErrorResponse(i18n.NewError(ctx, msgs.MsgAuditLifecycleMethodUnknown, req.Method), req.ID, rpcclient.RPCCodeInvalidRequest)
	}
}

func (es *rpcEventStreams) getSubscription(subID string) *auditSubscription {
	es.subLock.Lock()
	defer es.subLock.Unlock()
	return es.subs[subID]
}

func (es *rpcEventStreams) cleanupSubscription(subID string) {
	es.subLock.Lock()
	defer es.subLock.Unlock()
	if sub := es.subs[subID]; sub != nil {
		es.cleanupLocked(sub)
	}
}

func (es *rpcEventStreams) cleanupLocked(sub *auditSubscription) {
	delete(es.subs, sub.ctrl.ID())
	sub.cancelCtx()
	close(sub.closed)
}

func (es *rpcEventStreams) notifyNewEvents() {
	es.subLock.Lock()
	defer es.subLock.Unlock()
	for _, sub := range es.subs {
		select {
		case sub.newEvents <- true:
		default:
		}
	}
}

func (es *rpcEventStreams) stop() {
	es.subLock.Lock()
	defer es.subLock.Unlock()
	for _, sub := range es.subs {
		es.cleanupLocked(sub)
	}
}

func (sub *auditSubscription) ConnectionClosed() {
	sub.es.cleanupSubscription(sub.ctrl.ID())
}

func (sub *auditSubscription) loadCheckpoint() error {
	if sub.listenerName == "" {
		return nil
	}
	var checkpoints []*auditCheckpoint
	err := sub.es.am.p.NOTX().DB().
		WithContext(sub.ctx).
		Where("listener = ?", sub.listenerName).
		Limit(1).
		Find(&checkpoints).
		Error
	if err != nil {
		return err
	}
	if len(checkpoints) > 0 {
		cpSequence := checkpoints[0].Sequence
		sub.checkpoint = &cpSequence
		log.L(sub.ctx).Infof("Subscription '%s' resuming from checkpoint %d", sub.listenerName, cpSequence)
	}
	return nil
}

func (sub *auditSubscription) updateCheckpoint(newSequence uint64) error {
	if sub.listenerName != "" {
		err := sub.es.am.p.Transaction(sub.ctx, func(ctx context.Context, dbTX persistence.DBTX) error {
			return dbTX.DB().
				WithContext(ctx).
				Clauses(clause.OnConflict{
					Columns:   []clause.Column{{Name: "listener"}},
					DoUpdates: clause.AssignmentColumns([]string{"sequence", "time"}),
				}).
				Create(&auditCheckpoint{
					Listener: sub.listenerName,
					Sequence: newSequence,
					Time:     cftypes.TimestampNow(),
				}).
				Error
		})
		if err != nil {
			return err
		}
	}
	sub.checkpoint = &newSequence
	return nil
}

func (sub *auditSubscription) readPage() ([]*cfapi.AuditEvent, error) {
	var events []*cfapi.AuditEvent
	err := sub.es.am.retry.Do(sub.ctx, func(attempt int) (retryable bool, err error) {
		events, err = sub.es.am.queryTX(sub.ctx, sub.es.am.p.NOTX(), &cfapi.AuditQuery{
			AfterSequence: sub.checkpoint,
		})
		return true, err
	})
	return events, err
}

func (sub *auditSubscription) deliverBatch(events []*cfapi.AuditEvent) error {
	batchID := sub.nextBatchID
	sub.nextBatchID++
	log.L(sub.ctx).Debugf("Delivering audit batch %d (events=%d)", batchID, len(events))
	sub.ctrl.Send("audit_subscription", &cfapi.AuditEventBatch{
		Subscription: sub.ctrl.ID(),
		BatchID:      batchID,
		Events:       events,
	})
	select {
	case ackNack := <-sub.acksNacks:
		if !ackNack.ack {
			log.L(sub.ctx).Warnf("Audit batch %d negatively acknowledged by subscription %s", batchID, sub.ctrl.ID())
			return i18n.NewError(sub.ctx, msgs.MsgAuditSubscriptionNack, sub.ctrl.ID())
		}
		return nil
	case <-sub.closed:
		return i18n.NewError(sub.ctx, msgs.MsgAuditSubscriptionClosed, sub.ctrl.ID())
	case <-sub.ctx.Done():
		return i18n.NewError(sub.ctx, msgs.MsgContextCanceled)
	}
}

// run polls the ordered feed from the checkpoint, delivering pages as
// acknowledged batches. The feed is append-only so a page is never
// reordered or retracted once read.
func (sub *auditSubscription) run() {
	defer close(sub.done)

	if err := sub.loadCheckpoint(); err != nil {
		log.L(sub.ctx).Warnf("subscription stopping before reading checkpoint: %s", err)
		return
	}

	for {
		page, err := sub.readPage()
		if err != nil {
			log.L(sub.ctx).Warnf("subscription stopping: %s", err)
			return
		}

		if len(page) > 0 {
			err := sub.es.am.retry.Do(sub.ctx, func(attempt int) (retryable bool, err error) {
				return true, sub.deliverBatch(page)
			})
			if err != nil {
				log.L(sub.ctx).Warnf("subscription stopping (delivering %d events): %s", len(page), err)
				return
			}
			if err := sub.updateCheckpoint(page[len(page)-1].Sequence); err != nil {
				log.L(sub.ctx).Warnf("subscription stopping (updating checkpoint): %s", err)
				return
			}
		}

		if len(page) < sub.es.am.readPageSize {
			select {
			case <-sub.newEvents:
			case <-sub.ctx.Done():
				log.L(sub.ctx).Debugf("subscription closed")
				return
			}
		}
	}
}
