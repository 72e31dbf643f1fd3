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
	"github.com/google/uuid"
)

// AccessStatus is the read view of the access registry singleton.
type AccessStatus struct {
	Administrator   *cftypes.EthAddress `json:"administrator"`
	Paused          bool                `json:"paused"`
	CooldownSeconds int64               `json:"cooldownSeconds"`
	ContextID       uuid.UUID           `json:"contextId"`
}

type ActionClass string

const (
	ActionClassSubmission ActionClass = "submission"
	ActionClassDisclosure ActionClass = "disclosure"
)
