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

package componenttest

import (
	"context"
	"fmt"
	"testing"

	"github.com/cipherfleet/cipherfleet/internal/componentmgr"
	"github.com/cipherfleet/cipherfleet/pkg/cfconf"
	"github.com/cipherfleet/cipherfleet/pkg/cftypes"
	"github.com/cipherfleet/cipherfleet/pkg/confutil"
	"github.com/cipherfleet/cipherfleet/pkg/oracle/devoracle"
	"github.com/cipherfleet/cipherfleet/pkg/rpcclient"
	"github.com/stretchr/testify/require"
)

type instance struct {
	t     *testing.T
	ctx   context.Context
	cm    componentmgr.ComponentManager
	rpc   rpcclient.Client
	admin *cftypes.EthAddress
}

type devOracleProvider interface {
	DevOracle() *devoracle.DevOracle
}

func testConfig(admin *cftypes.EthAddress, cooldown string) *componentmgr.Config {
	return &componentmgr.Config{
		Log: cfconf.LogConfig{Level: confutil.P("debug")},
		DB: cfconf.DBConfig{
			Type: "sqlite",
			SQLite: cfconf.SQLiteConfig{
				SQLDBConfig: cfconf.SQLDBConfig{
					DSN:           ":memory:",
					AutoMigrate:   confutil.P(true),
					MigrationsDir: "../db/migrations/sqlite",
				},
			},
		},
		RPCServer: cfconf.RPCServerConfig{
			HTTP: cfconf.RPCServerConfigHTTP{
				HTTPServerConfig: cfconf.HTTPServerConfig{Port: confutil.P(0)},
			},
			WS: cfconf.RPCServerConfigWS{
				HTTPServerConfig: cfconf.HTTPServerConfig{Port: confutil.P(0)},
			},
		},
		Access: cfconf.AccessConfig{
			InitialAdministrator: confutil.P(admin.String()),
			InitialCooldown:      confutil.P(cooldown),
		},
	}
}

func newInstance(t *testing.T, cooldown string) *instance {
	ctx := context.Background()
	admin := cftypes.RandAddress()

	cm := componentmgr.NewComponentManager(ctx, testConfig(admin, cooldown))
	require.NoError(t, cm.Init())
	require.NoError(t, cm.StartManagers())
	require.NoError(t, cm.CompleteStart())
	t.Cleanup(cm.Stop)

	return &instance{
		t:     t,
		ctx:   ctx,
		cm:    cm,
		rpc:   rpcclient.NewHTTPClient(ctx, fmt.Sprintf("http://%s", cm.RPCServer().HTTPAddr())),
		admin: admin,
	}
}

func (i *instance) oracle() *devoracle.DevOracle {
	return i.cm.(devOracleProvider).DevOracle()
}

// authorizedSubmitter registers a fresh actor via the admin RPC surface.
func (i *instance) authorizedSubmitter() *cftypes.EthAddress {
	actor := cftypes.RandAddress()
	rpcErr := i.rpc.CallRPC(i.ctx, nil, "access_authorizeSubmitter", i.admin, actor)
	require.Nil(i.t, rpcErr)
	return actor
}
