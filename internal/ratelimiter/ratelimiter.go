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

	"github.com/cipherfleet/cipherfleet/internal/components"
	"github.com/cipherfleet/cipherfleet/internal/msgs"
	"github.com/cipherfleet/cipherfleet/pkg/cfapi"
	"github.com/cipherfleet/cipherfleet/pkg/cftypes"
	"github.com/cipherfleet/cipherfleet/pkg/persistence"
	"github.com/hyperledger/firefly-common/pkg/i18n"
	"github.com/hyperledger/firefly-common/pkg/log"
	"gorm.io/gorm/clause"
)

type cooldown struct {
	Actor       cftypes.EthAddress `gorm:"column:actor;primaryKey"`
	ActionClass cfapi.ActionClass  `gorm:"column:action_class;primaryKey"`
	LastAction  cftypes.Timestamp  `gorm:"column:last_action"`
}

func (cooldown) TableName() string { return "cooldowns" }

type rateLimiter struct {
	bgCtx     context.Context
	cancelCtx context.CancelFunc

	accessMgr components.AccessManager
}

func NewRateLimiter(bgCtx context.Context) components.RateLimiter {
	rl := &rateLimiter{}
	rl.bgCtx, rl.cancelCtx = context.WithCancel(bgCtx)
	return rl
}

func (rl *rateLimiter) PreInit(pic components.PreInitComponents) (*components.ManagerInitResult, error) {
	return &components.ManagerInitResult{}, nil
}

func (rl *rateLimiter) PostInit(c components.AllComponents) error {
	rl.accessMgr = c.AccessManager()
	return nil
}

func (rl *rateLimiter) Start() error { return nil }

func (rl *rateLimiter) Stop() { rl.cancelCtx() }

// CheckAndRecord runs inside the caller's transaction: if any later guard
// or mutation fails, the recorded timestamp rolls back and the cooldown is
// not consumed. The cooldown seconds are read from the registry row on
// every check, so a SetCooldown takes effect immediately without re-arming
// timestamps already recorded.
func (rl *rateLimiter) CheckAndRecord(ctx context.Context, dbTX persistence.DBTX, actor *cftypes.EthAddress, class cfapi.ActionClass, now cftypes.Timestamp) error {
	cooldownSecs, err := rl.accessMgr.CooldownSeconds(ctx, dbTX)
	if err != nil {
		return err
	}
	if cooldownSecs > 0 {
		var records []*cooldown
		err = dbTX.DB().WithContext(ctx).
			Where("actor = ?", actor).
			Where("action_class = ?", class).
			Limit(1).
			Find(&records).Error
		if err != nil {
			return err
		}
		if len(records) > 0 {
			readyAt := records[0].LastAction.UnixSeconds() + cooldownSecs
			if now.UnixSeconds() < readyAt {
				remaining := readyAt - now.UnixSeconds()
				log.L(ctx).Debugf("Cooldown rejection actor=%s class=%s remaining=%ds", actor, class, remaining)
				return i18n.NewError(ctx, msgs.MsgCooldownActive, actor, class, remaining)
			}
		}
	}
	return dbTX.DB().WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "actor"}, {Name: "action_class"}},
			DoUpdates: clause.AssignmentColumns([]string{"last_action"}),
		}).
		Create(&cooldown{
			Actor:       *actor,
			ActionClass: class,
			LastAction:  now,
		}).Error
}
