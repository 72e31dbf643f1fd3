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

package batchmgr

import (
	"context"

	"github.com/cipherfleet/cipherfleet/internal/rpcserver"
	"github.com/cipherfleet/cipherfleet/pkg/cfapi"
	"github.com/cipherfleet/cipherfleet/pkg/cftypes"
)

func (bm *batchManager) initRPC() {
	bm.rpcModule = rpcserver.NewRPCModule("batch").
		Add("batch_open", bm.rpcOpenBatch()).
		Add("batch_submitPair", bm.rpcSubmitPair()).
		Add("batch_close", bm.rpcCloseBatch()).
		Add("batch_get", bm.rpcGetBatch()).
		Add("batch_list", bm.rpcListBatches()).
		Add("batch_activeId", bm.rpcActiveID())
}

func (bm *batchManager) rpcOpenBatch() rpcserver.RPCHandler {
	return rpcserver.RPCMethod1(func(ctx context.Context,
		actor cftypes.EthAddress,
	) (*cfapi.Batch, error) {
		return bm.OpenBatch(ctx, &actor)
	})
}

func (bm *batchManager) rpcSubmitPair() rpcserver.RPCHandler {
	return rpcserver.RPCMethod4(func(ctx context.Context,
		actor cftypes.EthAddress,
		batchID uint64,
		packageHandle cftypes.HexBytes,
		vehicleHandle cftypes.HexBytes,
	) (*cfapi.Batch, error) {
		return bm.SubmitPair(ctx, &actor, batchID, packageHandle, vehicleHandle)
	})
}

func (bm *batchManager) rpcCloseBatch() rpcserver.RPCHandler {
	return rpcserver.RPCMethod2(func(ctx context.Context,
		actor cftypes.EthAddress,
		batchID uint64,
	) (*cfapi.Batch, error) {
		return bm.CloseBatch(ctx, &actor, batchID)
	})
}

func (bm *batchManager) rpcGetBatch() rpcserver.RPCHandler {
	return rpcserver.RPCMethod1(func(ctx context.Context,
		batchID uint64,
	) (*cfapi.Batch, error) {
		return bm.GetBatch(ctx, batchID)
	})
}

func (bm *batchManager) rpcListBatches() rpcserver.RPCHandler {
	return rpcserver.RPCMethod1(func(ctx context.Context,
		query cfapi.BatchListQuery,
	) ([]*cfapi.Batch, error) {
		return bm.ListBatches(ctx, &query)
	})
}

func (bm *batchManager) rpcActiveID() rpcserver.RPCHandler {
	return rpcserver.RPCMethod0(func(ctx context.Context) (uint64, error) {
		return bm.ActiveID(ctx)
	})
}
