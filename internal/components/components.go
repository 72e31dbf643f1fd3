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

package components

import (
	"sync"

	"github.com/cipherfleet/cipherfleet/internal/rpcserver"
	"github.com/cipherfleet/cipherfleet/pkg/oracle"
	"github.com/cipherfleet/cipherfleet/pkg/persistence"
)

// PreInitComponents are initialized before managers. They do not depend on
// any other components, and hold their own interfaces in their packages.
type PreInitComponents interface {
	Persistence() persistence.Persistence
	RPCServer() rpcserver.RPCServer
	ComputeService() oracle.ComputeService
	DisclosureOracle() oracle.DisclosureOracle

	// WriterLock serializes every state-mutating operation across all
	// managers. Each mutating call takes the lock, runs one atomic DB
	// transaction (state change + audit events), and releases it. This
	// reintroduces the single-writer ordering the protocol requires on a
	// concurrent host.
	WriterLock() *sync.Mutex
}

// Managers are initialized after base components with access to them. So
// that they can call each other, their external mockable interfaces are all
// defined in this package.
type Managers interface {
	AccessManager() AccessManager
	RateLimiter() RateLimiter
	BatchManager() BatchManager
	DisclosureManager() DisclosureManager
	AuditManager() AuditManager
	KVManager() KVManager
}

// All managers conform to a standard lifecycle
type ManagerLifecycle interface {
	// Init only depends on the configuration and components - no other managers
	PreInit(PreInitComponents) (*ManagerInitResult, error)
	// Post-init allows the manager to cross-bind to other managers
	PostInit(AllComponents) error
	Start() error
	Stop()
}

// Managers can instruct the init of the RPC server in a generic way
type ManagerInitResult struct {
	RPCModules []*rpcserver.RPCModule
}

type AllComponents interface {
	PreInitComponents
	Managers
}
