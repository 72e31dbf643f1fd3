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

package kvstore

import (
	"context"

	"github.com/cipherfleet/cipherfleet/internal/rpcserver"
	"github.com/cipherfleet/cipherfleet/pkg/cfapi"
	"github.com/cipherfleet/cipherfleet/pkg/cftypes"
)

func (km *kvManager) initRPC() {
	km.rpcModule = rpcserver.NewRPCModule("kv").
		Add("kv_put", km.rpcPut()).
		Add("kv_get", km.rpcGet()).
		Add("kv_delete", km.rpcDelete()).
		Add("kv_list", km.rpcList())
}

func (km *kvManager) rpcPut() rpcserver.RPCHandler {
	return rpcserver.RPCMethod2(func(ctx context.Context,
		key string,
		value cftypes.RawJSON,
	) (*cfapi.KVEntry, error) {
		return km.Put(ctx, key, value)
	})
}

func (km *kvManager) rpcGet() rpcserver.RPCHandler {
	return rpcserver.RPCMethod1(func(ctx context.Context,
		key string,
	) (*cfapi.KVEntry, error) {
		return km.Get(ctx, key)
	})
}

func (km *kvManager) rpcDelete() rpcserver.RPCHandler {
	return rpcserver.RPCMethod1(func(ctx context.Context,
		key string,
	) (bool, error) {
		err := km.Delete(ctx, key)
		return err == nil, err
	})
}

func (km *kvManager) rpcList() rpcserver.RPCHandler {
	return rpcserver.RPCMethod1(func(ctx context.Context,
		prefix string,
	) ([]*cfapi.KVEntry, error) {
		return km.List(ctx, prefix)
	})
}
