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

package rpcclient

import (
	"context"

	"github.com/cipherfleet/cipherfleet/pkg/cftypes"
	"github.com/hyperledger/firefly-common/pkg/i18n"
)

type RPCCode int64

const (
	RPCCodeParseError     RPCCode = -32700
	RPCCodeInvalidRequest RPCCode = -32600
	RPCCodeInternalError  RPCCode = -32603
)

type RPCRequest struct {
	JSONRpc string            `json:"jsonrpc"`
	ID      cftypes.RawJSON   `json:"id"`
	Method  string            `json:"method"`
	Params  []cftypes.RawJSON `json:"params,omitempty"`
}

type RPCResponse struct {
	JSONRpc string          `json:"jsonrpc"`
	ID      cftypes.RawJSON `json:"id"`
	Result  cftypes.RawJSON `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
	// Only for subscription notifications
	Method string          `json:"method,omitempty"`
	Params cftypes.RawJSON `json:"params,omitempty"`
}

type RPCError struct {
	Code    int64           `json:"code"`
	Message string          `json:"message"`
	Data    cftypes.RawJSON `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	return e.Message
}

func (e *RPCError) RPCError() *RPCError {
	return e
}

func WrapRPCError(rpcError *RPCError) ErrorRPC {
	if rpcError == nil {
		return nil
	}
	return rpcError
}

func NewRPCError(ctx context.Context, code RPCCode, msg i18n.ErrorMessageKey, inserts ...interface{}) ErrorRPC {
	return NewRPCErrorResponse(i18n.NewError(ctx, msg, inserts...), cftypes.RawJSON(`null`), code).Error
}

func NewRPCErrorResponse(err error, id cftypes.RawJSON, code RPCCode) *RPCResponse {
	return &RPCResponse{
		JSONRpc: "2.0",
		ID:      id,
		Error: &RPCError{
			Code:    int64(code),
			Message: err.Error(),
		},
	}
}
