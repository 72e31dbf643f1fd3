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

type CacheConfig struct {
	Capacity *int `json:"capacity" yaml:"capacity"`
}

type RetryConfig struct {
	InitialDelay *string  `json:"initialDelay" yaml:"initialDelay"`
	MaxDelay     *string  `json:"maxDelay" yaml:"maxDelay"`
	Factor       *float64 `json:"factor" yaml:"factor"`
}

type RetryConfigWithMax struct {
	RetryConfig `json:",inline" yaml:",inline"`
	MaxAttempts *int `json:"maxAttempts" yaml:"maxAttempts"`
}

// AccessConfig bootstraps the registry: the initial administrator and
// the initial cooldown applied to rate-limited action classes.
type AccessConfig struct {
	InitialAdministrator *string `json:"initialAdministrator" yaml:"initialAdministrator"`
	InitialCooldown      *string `json:"initialCooldown" yaml:"initialCooldown"`
}

type BatchLedgerConfig struct {
	Cache CacheConfig `json:"cache" yaml:"cache"`
}

// DisclosureConfig identifies the oracle trusted to deliver disclosure
// replies. OracleSigner pins the address proofs must recover to; unset,
// the built-in development oracle trusts its own generated keypair.
type DisclosureConfig struct {
	OracleSigner *string     `json:"oracleSigner" yaml:"oracleSigner"`
	Cache        CacheConfig `json:"cache" yaml:"cache"`
}

type AuditConfig struct {
	ReadPageSize *int               `json:"readPageSize" yaml:"readPageSize"`
	Retry        RetryConfigWithMax `json:"retry" yaml:"retry"`
}

type LogConfig struct {
	Level  *string `json:"level" yaml:"level"`
	Output *string `json:"output" yaml:"output"`
}
