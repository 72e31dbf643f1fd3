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

type DisclosureStatus string

const (
	DisclosureStatusPending   DisclosureStatus = "pending"
	DisclosureStatusCompleted DisclosureStatus = "completed"
)

// DisclosureRequest correlates one outstanding oracle decryption call.
// Requests are never deleted: a completed request is the replay-detection
// record for any later duplicate delivery.
type DisclosureRequest struct {
	ID              uint64              `json:"id"                  gorm:"column:id;primaryKey"`
	BatchID         uint64              `json:"batchId"             gorm:"column:batch_id"`
	RequestedBy     *cftypes.EthAddress `json:"requestedBy"         gorm:"column:requested_by"`
	IntegrityDigest cftypes.Bytes32     `json:"integrityDigest"     gorm:"column:integrity_digest"`
	Status          DisclosureStatus    `json:"status"              gorm:"column:status"`
	PackageID       *cftypes.HexUint64  `json:"packageId,omitempty" gorm:"column:package_id"`
	VehicleID       *cftypes.HexUint64  `json:"vehicleId,omitempty" gorm:"column:vehicle_id"`
	Created         cftypes.Timestamp   `json:"created"             gorm:"column:created"`
	Completed       *cftypes.Timestamp  `json:"completed,omitempty" gorm:"column:completed"`
}

// DisclosureListQuery pages through disclosure requests in ascending id
// order, optionally scoped to one batch.
type DisclosureListQuery struct {
	BatchID *uint64 `json:"batchId,omitempty"`
	AfterID *uint64 `json:"afterId,omitempty"`
	Limit   *int    `json:"limit,omitempty"`
}
