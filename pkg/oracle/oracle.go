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

// Package oracle defines the interfaces the coordinator consumes from the
// external confidential compute estate. Handles, payloads and proofs are
// opaque byte strings whose sizes the implementations fix.
package oracle

import (
	"context"

	"github.com/cipherfleet/cipherfleet/pkg/cftypes"
)

// ComputeService is the confidential compute capability that mints opaque
// handles upstream of the coordinator. The coordinator only needs to query
// initialization status at submission time.
type ComputeService interface {
	IsInitialized(ctx context.Context, handle cftypes.HexBytes) (bool, error)
}

// DisclosureOracle reveals the cleartext behind a set of opaque handles.
// RequestDisclosure is fire-and-forget: the reply arrives later as an
// independent delivery against the coordinator's reply entry point, echoing
// the request id allocated here.
type DisclosureOracle interface {
	RequestDisclosure(ctx context.Context, handles []cftypes.HexBytes) (uint64, error)
	Verify(ctx context.Context, requestID uint64, payload, proof cftypes.HexBytes) (bool, error)
}

// ReplyHandler is the coordinator's single well-known entry point for oracle
// deliveries. The payload is authenticated by its proof, not by the identity
// of whoever performs the delivery.
type ReplyHandler interface {
	DeliverReply(ctx context.Context, requestID uint64, payload, proof cftypes.HexBytes) error
}
