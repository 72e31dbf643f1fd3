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

type HTTPServerConfig struct {
	CORS                  CORSConfig `json:"cors" yaml:"cors"`
	Address               *string    `json:"address" yaml:"address"`
	Port                  *int       `json:"port" yaml:"port"`
	DefaultRequestTimeout *string    `json:"defaultRequestTimeout" yaml:"defaultRequestTimeout"`
	MaxRequestTimeout     *string    `json:"maxRequestTimeout" yaml:"maxRequestTimeout"`
	ReadTimeout           *string    `json:"readTimeout" yaml:"readTimeout"`
	WriteTimeout          *string    `json:"writeTimeout" yaml:"writeTimeout"`
	ShutdownTimeout       *string    `json:"shutdownTimeout" yaml:"shutdownTimeout"`
}

var HTTPDefaults = &HTTPServerConfig{
	Address:               confutil.P("127.0.0.1"),
	DefaultRequestTimeout: confutil.P("2m"),
	MaxRequestTimeout:     confutil.P("10m"),
	ShutdownTimeout:       confutil.P("10s"),
}

type CORSConfig struct {
	Enabled          bool     `json:"enabled" yaml:"enabled"`
	Debug            bool     `json:"debug" yaml:"debug"`
	AllowCredentials *bool    `json:"allowCredentials" yaml:"allowCredentials"`
	AllowedHeaders   []string `json:"allowedHeaders" yaml:"allowedHeaders"`
	AllowedMethods   []string `json:"allowedMethods" yaml:"allowedMethods"`
	AllowedOrigins   []string `json:"allowedOrigins" yaml:"allowedOrigins"`
	MaxAge           *string  `json:"maxAge" yaml:"maxAge"`
}
