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

package components

import (
	"context"

	"github.com/cipherfleet/cipherfleet/pkg/cfapi"
	"github.com/cipherfleet/cipherfleet/pkg/cftypes"
	"github.com/cipherfleet/cipherfleet/pkg/persistence"
	"github.com/google/uuid"
)

// AccessManager owns the registry singleton: administrator, authorized
// submitter set, pause switch and the shared cooldown configuration. The
// guard accessors (RequireAdministrator, RequireSubmitter, RequireNotPaused)
// are composed by the other managers inside their own transactions, in a
// fixed order before any mutation.
type AccessManager interface {
	ManagerLifecycle

	TransferAdministration(ctx context.Context, caller, newAdmin *cftypes.EthAddress) error
	AuthorizeSubmitter(ctx context.Context, caller, actor *cftypes.EthAddress) error
	RevokeSubmitter(ctx context.Context, caller, actor *cftypes.EthAddress) error
	Pause(ctx context.Context, caller *cftypes.EthAddress) error
	Resume(ctx context.Context, caller *cftypes.EthAddress) error
	SetCooldown(ctx context.Context, caller *cftypes.EthAddress, seconds int64) error

	Status(ctx context.Context) (*cfapi.AccessStatus, error)
	IsSubmitter(ctx context.Context, actor *cftypes.EthAddress) (bool, error)

	RequireAdministrator(ctx context.Context, dbTX persistence.DBTX, caller *cftypes.EthAddress) error
	RequireSubmitter(ctx context.Context, dbTX persistence.DBTX, actor *cftypes.EthAddress) error
	RequireNotPaused(ctx context.Context, dbTX persistence.DBTX) error
	CooldownSeconds(ctx context.Context, dbTX persistence.DBTX) (int64, error)
	ContextID(ctx context.Context, dbTX persistence.DBTX) (uuid.UUID, error)
}

// RateLimiter enforces the per-(actor, action-class) cooldown. CheckAndRecord
// runs inside the caller's transaction so a failed operation rolls the
// recorded timestamp back with everything else.
type RateLimiter interface {
	ManagerLifecycle

	CheckAndRecord(ctx context.Context, dbTX persistence.DBTX, actor *cftypes.EthAddress, class cfapi.ActionClass, now cftypes.Timestamp) error
}

// BatchManager owns the batch lifecycle state machine.
type BatchManager interface {
	ManagerLifecycle

	OpenBatch(ctx context.Context, actor *cftypes.EthAddress) (*cfapi.Batch, error)
	SubmitPair(ctx context.Context, actor *cftypes.EthAddress, batchID uint64, packageHandle, vehicleHandle cftypes.HexBytes) (*cfapi.Batch, error)
	CloseBatch(ctx context.Context, actor *cftypes.EthAddress, batchID uint64) (*cfapi.Batch, error)

	GetBatch(ctx context.Context, batchID uint64) (*cfapi.Batch, error)
	ListBatches(ctx context.Context, q *cfapi.BatchListQuery) ([]*cfapi.Batch, error)
	ActiveID(ctx context.Context) (uint64, error)

	// GetBatchTX reads uncached within the supplied transaction - the
	// disclosure coordinator uses this for digest computations that must
	// see the current committed handles.
	GetBatchTX(ctx context.Context, dbTX persistence.DBTX, batchID uint64) (*cfapi.Batch, error)
}

// DisclosureManager issues disclosure requests against closed batches and
// correlates the oracle's asynchronous replies. It is the reply handler the
// oracle delivers into.
type DisclosureManager interface {
	ManagerLifecycle

	RequestDisclosure(ctx context.Context, actor *cftypes.EthAddress, batchID uint64) (*cfapi.DisclosureRequest, error)
	RequestAndWait(ctx context.Context, actor *cftypes.EthAddress, batchID uint64) (*cfapi.DisclosureRequest, error)
	DeliverReply(ctx context.Context, requestID uint64, payload, proof cftypes.HexBytes) error

	GetRequest(ctx context.Context, requestID uint64) (*cfapi.DisclosureRequest, error)
	ListRequests(ctx context.Context, q *cfapi.DisclosureListQuery) ([]*cfapi.DisclosureRequest, error)
}

// AuditManager appends events inside the transactions of the managers that
// raise them, and serves the ordered feed to readers and subscribers.
type AuditManager interface {
	ManagerLifecycle

	Append(ctx context.Context, dbTX persistence.DBTX, events ...*cfapi.AuditEvent) error
	Query(ctx context.Context, q *cfapi.AuditQuery) ([]*cfapi.AuditEvent, error)
}

// KVManager is the view-layer JSON blob store.
type KVManager interface {
	ManagerLifecycle

	Put(ctx context.Context, key string, value cftypes.RawJSON) (*cfapi.KVEntry, error)
	Get(ctx context.Context, key string) (*cfapi.KVEntry, error)
	Delete(ctx context.Context, key string) error
	List(ctx context.Context, prefix string) ([]*cfapi.KVEntry, error)
}
