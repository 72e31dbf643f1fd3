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

type DBConfig struct {
	Type     string         `json:"type" yaml:"type"`
	Postgres PostgresConfig `json:"postgres" yaml:"postgres"`
	SQLite   SQLiteConfig   `json:"sqlite" yaml:"sqlite"`
}

type PostgresConfig struct {
	SQLDBConfig `json:",inline" yaml:",inline"`
}

type SQLiteConfig struct {
	SQLDBConfig `json:",inline" yaml:",inline"`
}

type SQLDBConfig struct {
	DSN             string  `json:"dsn" yaml:"dsn"`
	MaxOpenConns    *int    `json:"maxOpenConns" yaml:"maxOpenConns"`
	MaxIdleConns    *int    `json:"maxIdleConns" yaml:"maxIdleConns"`
	ConnMaxIdleTime *string `json:"connMaxIdleTime" yaml:"connMaxIdleTime"`
	ConnMaxLifetime *string `json:"connMaxLifetime" yaml:"connMaxLifetime"`
	AutoMigrate     *bool   `json:"autoMigrate" yaml:"autoMigrate"`
	MigrationsDir   string  `json:"migrationsDir" yaml:"migrationsDir"`
	DebugQueries    bool    `json:"debugQueries" yaml:"debugQueries"`
	StatementCache  *bool   `json:"statementCache" yaml:"statementCache"`
}
