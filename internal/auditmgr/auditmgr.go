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

	"github.com/cipherfleet/cipherfleet/internal/components"
	"github.com/cipherfleet/cipherfleet/internal/rpcserver"
	"github.com/cipherfleet/cipherfleet/pkg/cfapi"
	"github.com/cipherfleet/cipherfleet/pkg/cfconf"
	"github.com/cipherfleet/cipherfleet/pkg/cftypes"
	"github.com/cipherfleet/cipherfleet/pkg/confutil"
	"github.com/cipherfleet/cipherfleet/pkg/persistence"
	"github.com/cipherfleet/cipherfleet/pkg/retry"
)

var auditDefaults = &cfconf.AuditConfig{
	ReadPageSize: confutil.P(100),
	Retry: cfconf.RetryConfigWithMax{
		RetryConfig: cfconf.RetryConfig{
			InitialDelay: confutil.P("250ms"),
			MaxDelay:     confutil.P("10s"),
			Factor:       confutil.P(2.0),
		},
		MaxAttempts: confutil.P(10),
	},
}

type auditManager struct {
	bgCtx     context.Context
	cancelCtx context.CancelFunc

	conf      *cfconf.AuditConfig
	rpcModule *rpcserver.RPCModule

	p            persistence.Persistence
	retry        *retry.Retry
	readPageSize int
	es           *rpcEventStreams
}

func NewAuditManager(bgCtx context.Context, conf *cfconf.AuditConfig) components.AuditManager {
	am := &auditManager{
		conf:         conf,
		retry:        retry.NewRetryLimited(&conf.Retry, &auditDefaults.Retry),
		readPageSize: confutil.IntMin(conf.ReadPageSize, 1, *auditDefaults.ReadPageSize),
	}
	am.bgCtx, am.cancelCtx = context.WithCancel(bgCtx)
	am.es = newRPCEventStreams(am)
	return am
}

func (am *auditManager) PreInit(pic components.PreInitComponents) (*components.ManagerInitResult, error) {
	am.p = pic.Persistence()
	am.initRPC()
	return &components.ManagerInitResult{
		RPCModules: []*rpcserver.RPCModule{am.rpcModule},
	}, nil
}

func (am *auditManager) PostInit(c components.AllComponents) error { return nil }

func (am *auditManager) Start() error { return nil }

func (am *auditManager) Stop() {
	am.es.stop()
	am.cancelCtx()
}

// Append inserts the events inside the caller's transaction, so the state
// change and its audit trail commit (or roll back) together. Sequences are
// allocated by the database at insert, keeping the feed ordered by
// occurrence under the single-writer lock.
func (am *auditManager) Append(ctx context.Context, dbTX persistence.DBTX, events ...*cfapi.AuditEvent) error {
	now := cftypes.TimestampNow()
	for _, ev := range events {
		ev.Created = now
	}
	if err := dbTX.DB().WithContext(ctx).Create(events).Error; err != nil {
		return err
	}
	dbTX.AddPostCommit(func(ctx context.Context) {
		am.es.notifyNewEvents()
	})
	return nil
}

func (am *auditManager) Query(ctx context.Context, q *cfapi.AuditQuery) ([]*cfapi.AuditEvent, error) {
	return am.queryTX(ctx, am.p.NOTX(), q)
}

func (am *auditManager) queryTX(ctx context.Context, dbTX persistence.DBTX, q *cfapi.AuditQuery) ([]*cfapi.AuditEvent, error) {
	events := []*cfapi.AuditEvent{}
	db := dbTX.DB().WithContext(ctx).
		Order("sequence ASC").
		Limit(confutil.IntMin(q.Limit, 1, am.readPageSize))
	if q.AfterSequence != nil {
		db = db.Where("sequence > ?", *q.AfterSequence)
	}
	return events, db.Find(&events).Error
}

func (am *auditManager) initRPC() {
	am.rpcModule = rpcserver.NewRPCModule("audit").
		Add("audit_query", am.rpcQuery()).
		AddAsync(am.es)
}

func (am *auditManager) rpcQuery() rpcserver.RPCHandler {
	return rpcserver.RPCMethod1(func(ctx context.Context,
		query cfapi.AuditQuery,
	) ([]*cfapi.AuditEvent, error) {
		return am.Query(ctx, &query)
	})
}
