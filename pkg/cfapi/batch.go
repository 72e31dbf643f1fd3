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

// Package cfapi holds the JSON-serializable API objects of the coordinator,
// shared between the RPC surface, the persistence layer and clients.
package cfapi

import (
	"github.com/cipherfleet/cipherfleet/pkg/cftypes"
)

type BatchState string

const (
	BatchStateOpen   BatchState = "open"
	BatchStateClosed BatchState = "closed"
)

// Batch is the unit of confidential work: exactly one encrypted pair
// submitted between an open and a close transition. Handles are opaque;
// their cleartext is only ever observable through a completed disclosure.
type Batch struct {
	ID             uint64              `json:"id"             gorm:"column:id;primaryKey"`
	State          BatchState          `json:"state"          gorm:"column:state"`
	PackageHandle  cftypes.HexBytes    `json:"packageHandle"  gorm:"column:package_handle"`
	VehicleHandle  cftypes.HexBytes    `json:"vehicleHandle"  gorm:"column:vehicle_handle"`
	OpenedBy       *cftypes.EthAddress `json:"openedBy"       gorm:"column:opened_by"`
	LastTransition cftypes.Timestamp   `json:"lastTransition" gorm:"column:last_transition"`
}

func (b *Batch) HasPair() bool {
	return len(b.PackageHandle) > 0 && len(b.VehicleHandle) > 0
}

// BatchListQuery pages through batches in ascending id order.
type BatchListQuery struct {
	AfterID *uint64 `json:"afterId,omitempty"`
	Limit   *int    `json:"limit,omitempty"`
}
