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

// Package kvstore is a string-keyed JSON blob store for the view layer.
// It is not part of the core protocol and carries no access control
// beyond the RPC surface it is registered on.
package kvstore

import (
	"context"
	"strings"

	"github.com/cipherfleet/cipherfleet/internal/components"
	"github.com/cipherfleet/cipherfleet/internal/msgs"
	"github.com/cipherfleet/cipherfleet/internal/rpcserver"
	"github.com/cipherfleet/cipherfleet/pkg/cfapi"
	"github.com/cipherfleet/cipherfleet/pkg/cftypes"
	"github.com/cipherfleet/cipherfleet/pkg/persistence"
	"github.com/hyperledger/firefly-common/pkg/i18n"
	"gorm.io/gorm/clause"
)

type kvEntry struct {
	Key     string            `gorm:"column:k;primaryKey"`
	Value   cftypes.RawJSON   `gorm:"column:v"`
	Updated cftypes.Timestamp `gorm:"column:updated"`
}

func (kvEntry) TableName() string { return "kv_entries" }

type kvManager struct {
	bgCtx     context.Context
	cancelCtx context.CancelFunc

	rpcModule *rpcserver.RPCModule
	p         persistence.Persistence
}

func NewKVManager(bgCtx context.Context) components.KVManager {
	km := &kvManager{}
	km.bgCtx, km.cancelCtx = context.WithCancel(bgCtx)
	return km
}

func (km *kvManager) PreInit(pic components.PreInitComponents) (*components.ManagerInitResult, error) {
	km.p = pic.Persistence()
	km.initRPC()
	return &components.ManagerInitResult{
		RPCModules: []*rpcserver.RPCModule{km.rpcModule},
	}, nil
}

func (km *kvManager) PostInit(c components.AllComponents) error { return nil }

func (km *kvManager) Start() error { return nil }

func (km *kvManager) Stop() { km.cancelCtx() }

func (e *kvEntry) mapToAPI() *cfapi.KVEntry {
	return &cfapi.KVEntry{
		Key:     e.Key,
		Value:   e.Value,
		Updated: e.Updated,
	}
}

func (km *kvManager) Put(ctx context.Context, key string, value cftypes.RawJSON) (*cfapi.KVEntry, error) {
	if key == "" {
		return nil, i18n.NewError(ctx, msgs.MsgKVKeyRequired)
	}
	entry := &kvEntry{
		Key:     key,
		Value:   value,
		Updated: cftypes.TimestampNow(),
	}
	err := km.p.NOTX().DB().WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "k"}},
			DoUpdates: clause.AssignmentColumns([]string{"v", "updated"}),
		}).
		Create(entry).Error
	if err != nil {
		return nil, err
	}
	return entry.mapToAPI(), nil
}

func (km *kvManager) Get(ctx context.Context, key string) (*cfapi.KVEntry, error) {
	var entries []*kvEntry
	err := km.p.NOTX().DB().WithContext(ctx).Where("k = ?", key).Limit(1).Find(&entries).Error
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, i18n.NewError(ctx, msgs.MsgKVNotFound, key)
	}
	return entries[0].mapToAPI(), nil
}

func (km *kvManager) Delete(ctx context.Context, key string) error {
	return km.p.NOTX().DB().WithContext(ctx).Where("k = ?", key).Delete(&kvEntry{}).Error
}

func (km *kvManager) List(ctx context.Context, prefix string) ([]*cfapi.KVEntry, error) {
	var entries []*kvEntry
	db := km.p.NOTX().DB().WithContext(ctx).Order("k ASC")
	if prefix != "" {
		escaped := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(prefix)
		db = db.Where("k LIKE ? ESCAPE '\\'", escaped+"%")
	}
	if err := db.Find(&entries).Error; err != nil {
		return nil, err
	}
	results := make([]*cfapi.KVEntry, len(entries))
	for i, e := range entries {
		results[i] = e.mapToAPI()
	}
	return results, nil
}
