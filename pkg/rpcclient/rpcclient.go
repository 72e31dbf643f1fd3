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
	"encoding/json"
	"fmt"
	"sync/atomic"

	"github.com/cipherfleet/cipherfleet/internal/msgs"
	"github.com/cipherfleet/cipherfleet/pkg/cftypes"
	"github.com/go-resty/resty/v2"
	"github.com/hyperledger/firefly-common/pkg/i18n"
	"github.com/hyperledger/firefly-common/pkg/log"
	"github.com/sirupsen/logrus"
)

// Client is a JSON/RPC 2.0 client to the CipherFleet coordinator API.
type Client interface {
	CallRPC(ctx context.Context, result interface{}, method string, params ...interface{}) ErrorRPC
}

// ErrorRPC carries the RPC error payload alongside the mapped Go error.
type ErrorRPC interface {
	error
	RPCError() *RPCError
}

type rpcClient struct {
	client        *resty.Client
	requestCount  atomic.Int64
	requestMapper func(*RPCRequest)
}

func NewHTTPClient(ctx context.Context, url string) Client {
	return &rpcClient{
		client: resty.New().SetBaseURL(url),
	}
}

func (rc *rpcClient) allocateRequestID(req *RPCRequest) string {
	reqID := fmt.Sprintf(`%.9d`, rc.requestCount.Add(1))
	req.ID = cftypes.RawJSON(`"` + reqID + `"`)
	return reqID
}

func (rc *rpcClient) CallRPC(ctx context.Context, result interface{}, method string, params ...interface{}) ErrorRPC {
	req, err := buildRequest(ctx, method, params)
	if err != nil {
		return WrapRPCError(&RPCError{Code: int64(RPCCodeInvalidRequest), Message: err.Error()})
	}
	res, rpcErr := rc.SyncRequest(ctx, req)
	if rpcErr != nil {
		return rpcErr
	}
	if result != nil {
		if err = json.Unmarshal(res.Result.Bytes(), result); err != nil {
			return NewRPCError(ctx, RPCCodeParseError, msgs.MsgRPCClientRequestFailed, err)
		}
	}
	return nil
}

// SyncRequest sends an individual RPC request (blocking until a response
// is available, or the context is cancelled).
func (rc *rpcClient) SyncRequest(ctx context.Context, rpcReq *RPCRequest) (rpcRes *RPCResponse, err ErrorRPC) {

	// We always set the back-end request ID - as we need to support requests
	// coming in from multiple concurrent clients on our front-end, that might
	// use clashing IDs.
	var beReq = *rpcReq
	beReq.JSONRpc = "2.0"
	rpcTraceID := rc.allocateRequestID(&beReq)
	if rpcReq.ID != nil {
		// We're proxying a request with front-end RPC ID - log that as well
		rpcTraceID = fmt.Sprintf("%s->%s", rpcReq.ID, rpcTraceID)
	}

	rpcRes = new(RPCResponse)

	log.L(ctx).Debugf("RPC[%s] --> %s", rpcTraceID, rpcReq.Method)
	if logrus.IsLevelEnabled(logrus.TraceLevel) {
		jsonInput, _ := json.Marshal(rpcReq)
		log.L(ctx).Tracef("RPC[%s] INPUT: %s", rpcTraceID, jsonInput)
	}
	res, resErr := rc.client.R().
		SetContext(ctx).
		SetBody(beReq).
		SetResult(&rpcRes).
		SetError(&rpcRes).
		Post("")

	// Restore the original ID
	rpcRes.ID = rpcReq.ID
	if resErr != nil {
		log.L(ctx).Errorf("RPC[%s] <-- ERROR: %s", rpcTraceID, resErr)
		return rpcRes, NewRPCError(ctx, RPCCodeInternalError, msgs.MsgRPCClientRequestFailed, resErr)
	}
	if res.IsError() || rpcRes.Error != nil {
		rpcMsg := ""
		if rpcRes.Error != nil {
			rpcMsg = rpcRes.Error.Message
		}
		if rpcMsg == "" {
			rpcMsg = res.Status()
		}
		log.L(ctx).Errorf("RPC[%s] <-- [%d]: %s", rpcTraceID, res.StatusCode(), rpcMsg)
		return rpcRes, WrapRPCError(rpcRes.Error)
	}
	log.L(ctx).Debugf("RPC[%s] <-- %s [%d] OK", rpcTraceID, rpcReq.Method, res.StatusCode())
	if rpcRes.Result == nil {
		rpcRes.Result = cftypes.RawJSON(`null`)
	}
	return rpcRes, nil
}

func buildRequest(ctx context.Context, method string, params []interface{}) (*RPCRequest, error) {
	req := &RPCRequest{
		JSONRpc: "2.0",
		Method:  method,
		Params:  make([]cftypes.RawJSON, len(params)),
	}
	for i, param := range params {
		b, err := json.Marshal(param)
		if err != nil {
			return nil, i18n.WrapError(ctx, err, msgs.MsgRPCClientInvalidParam, i, method)
		}
		req.Params[i] = cftypes.RawJSON(b)
	}
	return req, nil
}
