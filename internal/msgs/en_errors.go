// Copyright © 2025 CipherFleet Technologies Ltd.
//
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package msgs

import (
	"fmt"
	"strings"
	"sync"

	"github.com/hyperledger/firefly-common/pkg/i18n"
	"golang.org/x/text/language"
)

const cipherfleetPrefix = "CF01"

var registered sync.Once
var ffe = func(key, translation string, statusHint ...int) i18n.ErrorMessageKey {
	registered.Do(func() {
		i18n.RegisterPrefix(cipherfleetPrefix, "CipherFleet Disclosure Coordinator")
	})
	if !strings.HasPrefix(key, cipherfleetPrefix) {
		panic(fmt.Errorf("must have prefix '%s': %s", cipherfleetPrefix, key))
	}
	return i18n.FFE(language.AmericanEnglish, key, translation, statusHint...)
}

var (
	// Components CF0100XX
	MsgComponentDBInitError        = ffe("CF010000", "Error initializing database")
	MsgComponentRPCServerInitError = ffe("CF010001", "Error initializing RPC server")
	MsgComponentStartError         = ffe("CF010002", "Error starting %s")
	MsgComponentInitError          = ffe("CF010003", "Error initializing %s")

	// Types CF0101XX
	MsgTypesInvalidHex         = ffe("CF010100", "Invalid hex: %s")
	MsgTypesScanFail           = ffe("CF010101", "Unable to scan type %T into type %T")
	MsgTypesTimeParseFail      = ffe("CF010102", "Cannot parse time as RFC3339, Unix, or UnixNano: '%s'")
	MsgTypesRestoreFailed      = ffe("CF010103", "Failed to restore type '%T' into '%T'")
	MsgTypesInvalidHexInteger  = ffe("CF010104", "Invalid integer: %s")
	MsgTypesInvalidLength      = ffe("CF010105", "Invalid length expected=%d actual=%d")
	MsgTypesInvalidJSON        = ffe("CF010106", "JSON parse error: %s")

	// Persistence CF0102XX
	MsgPersistenceInvalidType         = ffe("CF010200", "Invalid database type: %s")
	MsgPersistenceMissingDSN          = ffe("CF010201", "Missing DSN for database connection")
	MsgPersistenceInitFailed          = ffe("CF010202", "Database init failed")
	MsgPersistenceMigrationFailed     = ffe("CF010203", "Database migration failed")
	MsgPersistenceMissingMigrationDir = ffe("CF010204", "Missing migration directory for autoMigrate")
	MsgPersistenceErrorInDBTransaction = ffe("CF010205", "Error within database transaction: %v")

	// Config CF0103XX
	MsgConfigFileMissing    = ffe("CF010300", "Config file not found: %s")
	MsgConfigFileReadError  = ffe("CF010301", "Failed to read config file %s: %s")
	MsgConfigFileParseError = ffe("CF010302", "Failed to parse config file: %s")

	// HTTP/JSON-RPC server CF0104XX
	MsgHTTPServerStartFailed         = ffe("CF010400", "Failed to start server on '%s'")
	MsgHTTPServerMissingPort         = ffe("CF010401", "HTTP server port must be specified for '%s'")
	MsgHTTPServerNoWSUpgradeSupport  = ffe("CF010413", "HTTP server does not support WebSocket upgrade (%T)")
	MsgJSONRPCInvalidRequest         = ffe("CF010402", "Invalid JSON/RPC request data", 400)
	MsgJSONRPCMissingRequestID       = ffe("CF010403", "Invalid JSON/RPC request. Must set request ID", 400)
	MsgJSONRPCUnsupportedMethod      = ffe("CF010404", "method not supported %s", 404)
	MsgJSONRPCIncorrectParamCount    = ffe("CF010405", "method %s requires %d params (supplied=%d)", 400)
	MsgJSONRPCInvalidParam           = ffe("CF010406", "method %s parameter %d invalid: %s", 400)
	MsgJSONRPCResultSerialization    = ffe("CF010407", "method %s result serialization failed: %s", 500)
	MsgJSONRPCAsyncNonWSConn         = ffe("CF010408", "method %s only available over WebSocket connections", 400)
	MsgContextCanceled               = ffe("CF010409", "Context canceled")
	MsgInflightRequestCancelled      = ffe("CF010410", "Request cancelled after %s")
	MsgRPCClientRequestFailed        = ffe("CF010411", "JSON/RPC request failed: %s")
	MsgRPCClientInvalidParam         = ffe("CF010412", "Invalid parameter %d for method %s: %s")

	// Access registry CF0105XX
	MsgAccessNotAdministrator = ffe("CF010500", "Access denied: '%s' is not the administrator", 403)
	MsgAccessNotSubmitter     = ffe("CF010501", "Access denied: '%s' is not an authorized submitter", 403)
	MsgAccessInvalidActor     = ffe("CF010502", "Invalid parameter: actor address must not be empty or zero", 400)
	MsgSystemPaused           = ffe("CF010503", "System is paused", 409)
	MsgSystemAlreadyPaused    = ffe("CF010504", "System is already paused", 409)
	MsgSystemNotPaused        = ffe("CF010505", "System is not paused", 409)

	// Rate limiter CF0106XX
	MsgCooldownActive         = ffe("CF010600", "Cooldown active for '%s' action class '%s': %ds remaining", 429)
	MsgCooldownInvalidSeconds = ffe("CF010601", "Invalid parameter: cooldown seconds must be >= 0", 400)

	// Batch ledger CF0107XX
	MsgBatchAlreadyOpen   = ffe("CF010700", "Batch %d is already open", 409)
	MsgBatchAlreadyClosed = ffe("CF010701", "Batch %d is already closed", 409)
	MsgBatchInvalidID     = ffe("CF010702", "Invalid batch id %d (active id is %d)", 400)
	MsgBatchNotFound      = ffe("CF010703", "Batch %d not found", 404)
	MsgBatchNotOpen       = ffe("CF010704", "Batch %d is not open", 409)
	MsgHandleUninitialized = ffe("CF010705", "Encrypted handle is not an initialized confidential handle", 400)

	// Disclosure coordinator CF0108XX
	MsgDisclosureBatchNotClosed      = ffe("CF010800", "Batch %d must be closed before disclosure can be requested", 409)
	MsgDisclosureUnknownRequest      = ffe("CF010801", "Unknown disclosure request '%d'", 404)
	MsgDisclosureReplayDetected      = ffe("CF010802", "Replay detected: disclosure request '%d' is already completed", 409)
	MsgDisclosureStateMismatch       = ffe("CF010803", "State mismatch: batch %d handles changed since disclosure request '%d' was issued", 409)
	MsgDisclosureVerificationFailed  = ffe("CF010804", "Disclosure proof verification failed for request '%d'", 400)
	MsgDisclosureMalformedPayload    = ffe("CF010805", "Malformed disclosure payload for request '%d': %s", 400)
	MsgDisclosureOracleRequestFailed = ffe("CF010806", "Disclosure oracle request failed: %s", 502)

	// Audit log CF0109XX
	MsgAuditSubIDRequired          = ffe("CF010900", "Subscription ID required", 400)
	MsgAuditLifecycleMethodUnknown = ffe("CF010901", "Unknown subscription lifecycle method '%s'", 400)
	MsgAuditSubscriptionNack       = ffe("CF010902", "Event batch negatively acknowledged by subscription '%s'")
	MsgAuditSubscriptionClosed     = ffe("CF010903", "Subscription '%s' closed")

	// KV store CF0110XX
	MsgKVKeyRequired = ffe("CF011000", "Key must not be empty", 400)
	MsgKVNotFound    = ffe("CF011001", "No value stored for key '%s'", 404)
)
