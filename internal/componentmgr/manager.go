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

package componentmgr

import (
	"context"
	"sync"

	"github.com/cipherfleet/cipherfleet/internal/accessmgr"
	"github.com/cipherfleet/cipherfleet/internal/auditmgr"
	"github.com/cipherfleet/cipherfleet/internal/batchmgr"
	"github.com/cipherfleet/cipherfleet/internal/components"
	"github.com/cipherfleet/cipherfleet/internal/disclosuremgr"
	"github.com/cipherfleet/cipherfleet/internal/kvstore"
	"github.com/cipherfleet/cipherfleet/internal/msgs"
	"github.com/cipherfleet/cipherfleet/internal/ratelimiter"
	"github.com/cipherfleet/cipherfleet/internal/rpcserver"
	"github.com/cipherfleet/cipherfleet/pkg/cftypes"
	"github.com/cipherfleet/cipherfleet/pkg/confutil"
	"github.com/cipherfleet/cipherfleet/pkg/oracle"
	"github.com/cipherfleet/cipherfleet/pkg/oracle/devoracle"
	"github.com/cipherfleet/cipherfleet/pkg/persistence"
	"github.com/hyperledger/firefly-common/pkg/i18n"
	"github.com/hyperledger/firefly-common/pkg/log"
)

type ComponentManager interface {
	components.AllComponents
	Init() error
	StartManagers() error
	CompleteStart() error
	Stop()
}

type componentManager struct {
	bgCtx context.Context
	conf  *Config

	// the single-writer lock every mutating operation serializes through
	writerLock sync.Mutex

	// pre-init
	persistence persistence.Persistence
	rpcServer   rpcserver.RPCServer
	devOracle   *devoracle.DevOracle

	// managers
	accessManager     components.AccessManager
	rateLimiter       components.RateLimiter
	batchManager      components.BatchManager
	disclosureManager components.DisclosureManager
	auditManager      components.AuditManager
	kvManager         components.KVManager

	initResults map[string]*components.ManagerInitResult

	// keep track of everything we started
	started map[string]stoppable
	opened  map[string]closeable
}

// things that have a running component that is active in the background and hence "stops"
type stoppable interface {
	Stop()
}

// things that need to cleanly disconnect all connections and hence "close"
type closeable interface {
	Close()
}

func NewComponentManager(bgCtx context.Context, conf *Config) ComponentManager {
	log.SetLevel(confutil.StringNotEmpty(conf.Log.Level, "info"))
	return &componentManager{
		bgCtx:       bgCtx,
		conf:        conf,
		initResults: make(map[string]*components.ManagerInitResult),
		started:     make(map[string]stoppable),
		opened:      make(map[string]closeable),
	}
}

func (cm *componentManager) Init() (err error) {
	cm.persistence, err = persistence.NewPersistence(cm.bgCtx, &cm.conf.DB)
	err = cm.addIfOpened("database", cm.persistence, err, msgs.MsgComponentDBInitError)

	if err == nil {
		cm.rpcServer, err = rpcserver.NewRPCServer(cm.bgCtx, &cm.conf.RPCServer)
		err = cm.wrapIfErr(err, msgs.MsgComponentRPCServerInitError)
	}
	if err == nil {
		cm.devOracle, err = devoracle.NewDevOracle(cm.bgCtx)
		err = cm.wrapIfErr(err, msgs.MsgComponentInitError, "oracle")
	}
	if err == nil && cm.conf.Disclosure.OracleSigner != nil {
		var signer *cftypes.EthAddress
		signer, err = cftypes.ParseEthAddress(*cm.conf.Disclosure.OracleSigner)
		if err == nil {
			cm.devOracle.PinSigner(signer)
		}
		err = cm.wrapIfErr(err, msgs.MsgComponentInitError, "oracle")
	}

	// pre-init managers
	if err == nil {
		cm.accessManager = accessmgr.NewAccessManager(cm.bgCtx, &cm.conf.Access)
		cm.initResults["access_manager"], err = cm.accessManager.PreInit(cm)
		err = cm.wrapIfErr(err, msgs.MsgComponentInitError, "access_manager")
	}
	if err == nil {
		cm.rateLimiter = ratelimiter.NewRateLimiter(cm.bgCtx)
		cm.initResults["rate_limiter"], err = cm.rateLimiter.PreInit(cm)
		err = cm.wrapIfErr(err, msgs.MsgComponentInitError, "rate_limiter")
	}
	if err == nil {
		cm.batchManager = batchmgr.NewBatchManager(cm.bgCtx, &cm.conf.BatchLedger)
		cm.initResults["batch_manager"], err = cm.batchManager.PreInit(cm)
		err = cm.wrapIfErr(err, msgs.MsgComponentInitError, "batch_manager")
	}
	if err == nil {
		cm.disclosureManager = disclosuremgr.NewDisclosureManager(cm.bgCtx, &cm.conf.Disclosure)
		cm.initResults["disclosure_manager"], err = cm.disclosureManager.PreInit(cm)
		err = cm.wrapIfErr(err, msgs.MsgComponentInitError, "disclosure_manager")
	}
	if err == nil {
		cm.auditManager = auditmgr.NewAuditManager(cm.bgCtx, &cm.conf.Audit)
		cm.initResults["audit_manager"], err = cm.auditManager.PreInit(cm)
		err = cm.wrapIfErr(err, msgs.MsgComponentInitError, "audit_manager")
	}
	if err == nil {
		cm.kvManager = kvstore.NewKVManager(cm.bgCtx)
		cm.initResults["kv_manager"], err = cm.kvManager.PreInit(cm)
		err = cm.wrapIfErr(err, msgs.MsgComponentInitError, "kv_manager")
	}

	// post-init the managers, so they can cross-bind
	if err == nil {
		err = cm.accessManager.PostInit(cm)
		err = cm.wrapIfErr(err, msgs.MsgComponentInitError, "access_manager")
	}
	if err == nil {
		err = cm.rateLimiter.PostInit(cm)
		err = cm.wrapIfErr(err, msgs.MsgComponentInitError, "rate_limiter")
	}
	if err == nil {
		err = cm.batchManager.PostInit(cm)
		err = cm.wrapIfErr(err, msgs.MsgComponentInitError, "batch_manager")
	}
	if err == nil {
		err = cm.disclosureManager.PostInit(cm)
		err = cm.wrapIfErr(err, msgs.MsgComponentInitError, "disclosure_manager")
	}
	if err == nil {
		err = cm.auditManager.PostInit(cm)
		err = cm.wrapIfErr(err, msgs.MsgComponentInitError, "audit_manager")
	}
	if err == nil {
		err = cm.kvManager.PostInit(cm)
		err = cm.wrapIfErr(err, msgs.MsgComponentInitError, "kv_manager")
	}
	return err
}

func (cm *componentManager) StartManagers() (err error) {
	// the development oracle delivers replies straight back into the
	// disclosure manager
	cm.devOracle.SetReplyHandler(cm.disclosureManager, true)

	// the access manager goes first - it bootstraps the registry
	err = cm.accessManager.Start()
	err = cm.addIfStarted("access_manager", cm.accessManager, err, msgs.MsgComponentStartError, "access_manager")

	if err == nil {
		err = cm.rateLimiter.Start()
		err = cm.addIfStarted("rate_limiter", cm.rateLimiter, err, msgs.MsgComponentStartError, "rate_limiter")
	}
	if err == nil {
		err = cm.batchManager.Start()
		err = cm.addIfStarted("batch_manager", cm.batchManager, err, msgs.MsgComponentStartError, "batch_manager")
	}
	if err == nil {
		err = cm.disclosureManager.Start()
		err = cm.addIfStarted("disclosure_manager", cm.disclosureManager, err, msgs.MsgComponentStartError, "disclosure_manager")
	}
	if err == nil {
		err = cm.auditManager.Start()
		err = cm.addIfStarted("audit_manager", cm.auditManager, err, msgs.MsgComponentStartError, "audit_manager")
	}
	if err == nil {
		err = cm.kvManager.Start()
		err = cm.addIfStarted("kv_manager", cm.kvManager, err, msgs.MsgComponentStartError, "kv_manager")
	}
	return err
}

func (cm *componentManager) CompleteStart() error {
	// start the RPC server last
	cm.registerRPCModules()
	err := cm.rpcServer.Start()
	err = cm.addIfStarted("rpc_server", cm.rpcServer, err, msgs.MsgComponentStartError, "rpc_server")
	if err == nil {
		httpEndpoint := "disabled"
		if cm.rpcServer.HTTPAddr() != nil {
			httpEndpoint = cm.rpcServer.HTTPAddr().String()
		}
		wsEndpoint := "disabled"
		if cm.rpcServer.WSAddr() != nil {
			wsEndpoint = cm.rpcServer.WSAddr().String()
		}
		log.L(cm.bgCtx).Infof("RPC endpoints http=%s ws=%s", httpEndpoint, wsEndpoint)
		log.L(cm.bgCtx).Infof("Startup complete (oracle signer=%s)", cm.devOracle.SignerAddress())
	}
	return err
}

func (cm *componentManager) registerRPCModules() {
	for _, initResult := range cm.initResults {
		for _, rpcMod := range initResult.RPCModules {
			cm.rpcServer.Register(rpcMod)
		}
	}
}

func (cm *componentManager) wrapIfErr(err error, failMsg i18n.ErrorMessageKey, inserts ...any) error {
	if err != nil {
		return i18n.WrapError(cm.bgCtx, err, failMsg, inserts...)
	}
	return nil
}

func (cm *componentManager) addIfStarted(desc string, c stoppable, err error, failMsg i18n.ErrorMessageKey, inserts ...any) error {
	if err != nil {
		return i18n.WrapError(cm.bgCtx, err, failMsg, inserts...)
	}
	cm.started[desc] = c
	return nil
}

func (cm *componentManager) addIfOpened(desc string, c closeable, err error, failMsg i18n.ErrorMessageKey) error {
	if err != nil {
		return i18n.WrapError(cm.bgCtx, err, failMsg)
	}
	cm.opened[desc] = c
	return nil
}

func (cm *componentManager) Stop() {
	log.L(cm.bgCtx).Info("Stopping")
	for name, c := range cm.started {
		log.L(cm.bgCtx).Infof("Stopping %s", name)
		c.Stop()
		log.L(cm.bgCtx).Debugf("Stopped %s", name)
	}
	for name, c := range cm.opened {
		log.L(cm.bgCtx).Infof("Stopping %s", name)
		c.Close()
		log.L(cm.bgCtx).Debugf("Stopped %s", name)
	}
	log.L(cm.bgCtx).Debug("Stopped")
}

func (cm *componentManager) Persistence() persistence.Persistence {
	return cm.persistence
}

func (cm *componentManager) RPCServer() rpcserver.RPCServer {
	return cm.rpcServer
}

func (cm *componentManager) ComputeService() oracle.ComputeService {
	return cm.devOracle
}

func (cm *componentManager) DisclosureOracle() oracle.DisclosureOracle {
	return cm.devOracle
}

func (cm *componentManager) WriterLock() *sync.Mutex {
	return &cm.writerLock
}

func (cm *componentManager) AccessManager() components.AccessManager {
	return cm.accessManager
}

func (cm *componentManager) RateLimiter() components.RateLimiter {
	return cm.rateLimiter
}

func (cm *componentManager) BatchManager() components.BatchManager {
	return cm.batchManager
}

func (cm *componentManager) DisclosureManager() components.DisclosureManager {
	return cm.disclosureManager
}

func (cm *componentManager) AuditManager() components.AuditManager {
	return cm.auditManager
}

func (cm *componentManager) KVManager() components.KVManager {
	return cm.kvManager
}

// DevOracle exposes the built-in oracle for local development and tests.
func (cm *componentManager) DevOracle() *devoracle.DevOracle {
	return cm.devOracle
}
