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

package accessmgr

import (
	"context"

	"github.com/cipherfleet/cipherfleet/internal/rpcserver"
	"github.com/cipherfleet/cipherfleet/pkg/cfapi"
	"github.com/cipherfleet/cipherfleet/pkg/cftypes"
)

func (am *accessManager) initRPC() {
	am.rpcModule = rpcserver.NewRPCModule("access").
		Add("access_transferAdministration", rpcserver.RPCMethod2(am.rpcTransferAdministration)).
		Add("access_authorizeSubmitter", rpcserver.RPCMethod2(am.rpcAuthorizeSubmitter)).
		Add("access_revokeSubmitter", rpcserver.RPCMethod2(am.rpcRevokeSubmitter)).
		Add("access_pause", rpcserver.RPCMethod1(am.rpcPause)).
		Add("access_resume", rpcserver.RPCMethod1(am.rpcResume)).
		Add("access_setCooldown", rpcserver.RPCMethod2(am.rpcSetCooldown)).
		Add("access_status", rpcserver.RPCMethod0(am.rpcStatus)).
		Add("access_isSubmitter", rpcserver.RPCMethod1(am.rpcIsSubmitter))
}

func (am *accessManager) rpcTransferAdministration(ctx context.Context, caller, newAdmin cftypes.EthAddress) (bool, error) {
	err := am.TransferAdministration(ctx, &caller, &newAdmin)
	return err == nil, err
}

func (am *accessManager) rpcAuthorizeSubmitter(ctx context.Context, caller, actor cftypes.EthAddress) (bool, error) {
	err := am.AuthorizeSubmitter(ctx, &caller, &actor)
	return err == nil, err
}

func (am *accessManager) rpcRevokeSubmitter(ctx context.Context, caller, actor cftypes.EthAddress) (bool, error) {
	err := am.RevokeSubmitter(ctx, &caller, &actor)
	return err == nil, err
}

func (am *accessManager) rpcPause(ctx context.Context, caller cftypes.EthAddress) (bool, error) {
	err := am.Pause(ctx, &caller)
	return err == nil, err
}

func (am *accessManager) rpcResume(ctx context.Context, caller cftypes.EthAddress) (bool, error) {
	err := am.Resume(ctx, &caller)
	return err == nil, err
}

func (am *accessManager) rpcSetCooldown(ctx context.Context, caller cftypes.EthAddress, seconds int64) (bool, error) {
	err := am.SetCooldown(ctx, &caller, seconds)
	return err == nil, err
}

func (am *accessManager) rpcStatus(ctx context.Context) (*cfapi.AccessStatus, error) {
	return am.Status(ctx)
}

func (am *accessManager) rpcIsSubmitter(ctx context.Context, actor cftypes.EthAddress) (bool, error) {
	return am.IsSubmitter(ctx, &actor)
}
