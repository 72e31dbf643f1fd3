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

package oracle

import (
	"context"
	"math/big"

	"github.com/cipherfleet/cipherfleet/internal/msgs"
	"github.com/cipherfleet/cipherfleet/pkg/cftypes"
	"github.com/hyperledger/firefly-common/pkg/i18n"
	"github.com/hyperledger/firefly-signer/pkg/abi"
)

// The cleartext payload is two ABI-encoded uint256 words.
var payloadABI = &abi.ParameterArray{
	{Name: "packageId", Type: "uint256"},
	{Name: "vehicleId", Type: "uint256"},
}

const payloadLength = 64

func EncodePayload(ctx context.Context, packageID, vehicleID uint64) (cftypes.HexBytes, error) {
	b, err := payloadABI.EncodeABIDataValuesCtx(ctx, map[string]interface{}{
		"packageId": new(big.Int).SetUint64(packageID),
		"vehicleId": new(big.Int).SetUint64(vehicleID),
	})
	return cftypes.HexBytes(b), err
}

// DecodePayload rejects anything that is not exactly two ABI uint256 words.
// Callers map failures to their own malformed-payload taxonomy.
func DecodePayload(ctx context.Context, payload cftypes.HexBytes) (packageID, vehicleID *big.Int, err error) {
	if len(payload) != payloadLength {
		return nil, nil, i18n.NewError(ctx, msgs.MsgTypesInvalidLength, payloadLength, len(payload))
	}
	cv, err := payloadABI.DecodeABIDataCtx(ctx, payload, 0)
	if err != nil {
		return nil, nil, err
	}
	packageID = cv.Children[0].Value.(*big.Int)
	vehicleID = cv.Children[1].Value.(*big.Int)
	return packageID, vehicleID, nil
}
