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

package cftypes

import (
	"context"
	"database/sql/driver"
	"encoding/json"

	"github.com/cipherfleet/cipherfleet/internal/msgs"
	"github.com/hyperledger/firefly-common/pkg/i18n"
)

// RawJSON is byte-identical pass-through JSON, with DB storage as a string
type RawJSON json.RawMessage

func JSONString(v any) RawJSON {
	b, _ := json.Marshal(v)
	return b
}

func (m RawJSON) MarshalJSON() ([]byte, error) {
	if m == nil {
		return []byte("null"), nil
	}
	return m, nil
}

func (m *RawJSON) UnmarshalJSON(data []byte) error {
	if m == nil {
		return i18n.NewError(context.Background(), msgs.MsgTypesInvalidJSON, "nil target")
	}
	*m = append((*m)[0:0], data...)
	return nil
}

func (m RawJSON) Bytes() []byte {
	if m == nil {
		return nil
	}
	return m
}

func (m RawJSON) String() string {
	if m == nil {
		return "null"
	}
	return (string)(m)
}

// StringValue returns the string content if (and only if) the JSON is a string,
// otherwise the raw JSON text
func (m RawJSON) StringValue() (s string) {
	if err := json.Unmarshal(m, &s); err != nil {
		return m.String()
	}
	return s
}

func (m RawJSON) IsNil() bool {
	return m == nil || string(m) == "null"
}

// Pretty is only for logging, with stable formatting
func (m RawJSON) Pretty() string {
	var v any
	if err := json.Unmarshal(m, &v); err != nil {
		return m.String()
	}
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

func (m RawJSON) Value() (driver.Value, error) {
	if m.IsNil() {
		return nil, nil
	}
	return m.String(), nil
}

func (m *RawJSON) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*m = nil
		return nil
	case string:
		*m = RawJSON(v)
		return nil
	case []byte:
		*m = RawJSON(v)
		return nil
	default:
		return i18n.NewError(context.Background(), msgs.MsgTypesScanFail, src, m)
	}
}
