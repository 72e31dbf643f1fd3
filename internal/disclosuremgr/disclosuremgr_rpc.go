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

package disclosuremgr

import (
	"context"

	"github.com/cipherfleet/cipherfleet/internal/rpcserver"
	"github.com/cipherfleet/cipherfleet/pkg/cfapi"
	"github.com/cipherfleet/cipherfleet/pkg/cftypes"
)

func (dm *disclosureManager) initRPC() {
	dm.rpcModule = rpcserver.NewRPCModule("disc").
		Add("disc_request", dm.rpcRequestDisclosure()).
		Add("disc_requestAndWait", dm.rpcRequestAndWait()).
		Add("disc_deliverReply", dm.rpcDeliverReply()).
		Add("disc_get", dm.rpcGetRequest()).
		Add("disc_list", dm.rpcListRequests())
}

func (dm *disclosureManager) rpcRequestDisclosure() rpcserver.RPCHandler {
	return rpcserver.RPCMethod2(func(ctx context.Context,
		actor cftypes.EthAddress,
		batchID uint64,
	) (*cfapi.DisclosureRequest, error) {
		return dm.RequestDisclosure(ctx, &actor, batchID)
	})
}

func (dm *disclosureManager) rpcRequestAndWait() rpcserver.RPCHandler {
	return rpcserver.RPCMethod2(func(ctx context.Context,
		actor cftypes.EthAddress,
		batchID uint64,
	) (*cfapi.DisclosureRequest, error) {
		return dm.RequestAndWait(ctx, &actor, batchID)
	})
}

// disc_deliverReply is the ingress for an out-of-process oracle. The
// built-in development oracle calls DeliverReply directly instead.
func (dm *disclosureManager) rpcDeliverReply() rpcserver.RPCHandler {
	return rpcserver.RPCMethod3(func(ctx context.Context,
		requestID uint64,
		payload cftypes.HexBytes,
		proof cftypes.HexBytes,
	) (bool, error) {
		err := dm.DeliverReply(ctx, requestID, payload, proof)
		return err == nil, err
	})
}

func (dm *disclosureManager) rpcGetRequest() rpcserver.RPCHandler {
	return rpcserver.RPCMethod1(func(ctx context.Context,
		requestID uint64,
	) (*cfapi.DisclosureRequest, error) {
		return dm.GetRequest(ctx, requestID)
	})
}

func (dm *disclosureManager) rpcListRequests() rpcserver.RPCHandler {
	return rpcserver.RPCMethod1(func(ctx context.Context,
		query cfapi.DisclosureListQuery,
	) ([]*cfapi.DisclosureRequest, error) {
		return dm.ListRequests(ctx, &query)
	})
}
