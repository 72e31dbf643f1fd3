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

package cfapi

import (
	"github.com/cipherfleet/cipherfleet/pkg/cftypes"
)

type AuditEventType string

const (
	EventOwnerTransferred    AuditEventType = "owner_transferred"
	EventPaused              AuditEventType = "paused"
	EventResumed             AuditEventType = "resumed"
	EventSubmitterAuthorized AuditEventType = "submitter_authorized"
	EventSubmitterRevoked    AuditEventType = "submitter_revoked"
	EventCooldownChanged     AuditEventType = "cooldown_changed"
	EventBatchOpened         AuditEventType = "batch_opened"
	EventPairSubmitted       AuditEventType = "pair_submitted"
	EventPairOverwritten     AuditEventType = "pair_overwritten"
	EventBatchClosed         AuditEventType = "batch_closed"
	EventDisclosureRequested AuditEventType = "disclosure_requested"
	EventDisclosureCompleted AuditEventType = "disclosure_completed"
)

// AuditEvent is one entry of the append-only event stream. The sequence is
// DB-allocated and strictly increasing; consumers read in sequence order and
// events are never reordered or retracted.
type AuditEvent struct {
	Sequence  uint64              `json:"sequence"            gorm:"column:sequence;primaryKey;autoIncrement"`
	Type      AuditEventType      `json:"type"                gorm:"column:type"`
	Actor     *cftypes.EthAddress `json:"actor,omitempty"     gorm:"column:actor"`
	BatchID   *uint64             `json:"batchId,omitempty"   gorm:"column:batch_id"`
	RequestID *uint64             `json:"requestId,omitempty" gorm:"column:request_id"`
	Data      cftypes.RawJSON     `json:"data,omitempty"      gorm:"column:data"`
	Created   cftypes.Timestamp   `json:"created"             gorm:"column:created;autoCreateTime:false"`
}

// AuditQuery reads events after a sequence checkpoint, ascending.
type AuditQuery struct {
	AfterSequence *uint64 `json:"afterSequence,omitempty"`
	Limit         *int    `json:"limit,omitempty"`
}

// AuditEventBatch is the unit of delivery on a WebSocket subscription.
// Batches must be acknowledged in order for delivery to proceed.
type AuditEventBatch struct {
	Subscription string        `json:"subscription"`
	BatchID      uint64        `json:"batchId"`
	Events       []*AuditEvent `json:"events"`
}
