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

package cfconf

import (
	"github.com/cipherfleet/cipherfleet/pkg/confutil"
)

const DefaultHTTPPort = 8645
const DefaultWebSocketPort = 8646

var WSDefaults = RPCServerConfigWS{
	ReadBufferSize:  confutil.P("64KB"),
	WriteBufferSize: confutil.P("64KB"),
}

type RPCServerConfigHTTP struct {
	Disabled         bool `json:"disabled,omitempty" yaml:"disabled,omitempty"`
	HTTPServerConfig `json:",inline" yaml:",inline"`
}

type RPCServerConfigWS struct {
	Disabled         bool `json:"disabled,omitempty" yaml:"disabled,omitempty"`
	HTTPServerConfig `json:",inline" yaml:",inline"`
	ReadBufferSize   *string `json:"readBufferSize" yaml:"readBufferSize"`
	WriteBufferSize  *string `json:"writeBufferSize" yaml:"writeBufferSize"`
}

type RPCServerConfig struct {
	HTTP RPCServerConfigHTTP `json:"http,omitempty" yaml:"http,omitempty"`
	WS   RPCServerConfigWS   `json:"ws,omitempty" yaml:"ws,omitempty"`
}
