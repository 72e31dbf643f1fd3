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

// KVEntry is a view-layer blob: an arbitrary JSON value under a string key.
type KVEntry struct {
	Key     string            `json:"key"     gorm:"column:k;primaryKey"`
	Value   cftypes.RawJSON   `json:"value"   gorm:"column:v"`
	Updated cftypes.Timestamp `json:"updated" gorm:"column:updated"`
}
