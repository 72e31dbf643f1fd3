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
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/cipherfleet/cipherfleet/internal/msgs"
	"github.com/hyperledger/firefly-common/pkg/i18n"
)

// HexUint64 is an unsigned 64-bit integer, serialized to JSON as 0x-prefixed hex,
// parseable from hex or decimal, and stored in the DB as a 64-bit integer
type HexUint64 uint64

func ParseHexUint64(ctx context.Context, s string) (HexUint64, error) {
	v, ok := new(big.Int).SetString(s, 0)
	if !ok || v.Sign() < 0 || v.BitLen() > 64 {
		return 0, i18n.NewError(ctx, msgs.MsgTypesInvalidHexInteger, s)
	}
	return HexUint64(v.Uint64()), nil
}

func MustParseHexUint64(s string) HexUint64 {
	v, err := ParseHexUint64(context.Background(), s)
	if err != nil {
		panic(err)
	}
	return v
}

func (h HexUint64) Uint64() uint64 {
	return (uint64)(h)
}

func (h HexUint64) String() string {
	return fmt.Sprintf("0x%x", (uint64)(h))
}

func (h HexUint64) MarshalJSON() ([]byte, error) {
	return json.Marshal(h.String())
}

func (h *HexUint64) UnmarshalJSON(b []byte) error {
	var iVal interface{}
	decoder := json.NewDecoder(strings.NewReader(string(b)))
	decoder.UseNumber()
	err := decoder.Decode(&iVal)
	if err != nil {
		return i18n.NewError(context.Background(), msgs.MsgTypesInvalidHexInteger, string(b))
	}
	switch v := iVal.(type) {
	case string:
		parsed, err := ParseHexUint64(context.Background(), v)
		if err != nil {
			return err
		}
		*h = parsed
		return nil
	case json.Number:
		u, err := strconv.ParseUint(v.String(), 10, 64)
		if err != nil {
			return i18n.NewError(context.Background(), msgs.MsgTypesInvalidHexInteger, v.String())
		}
		*h = HexUint64(u)
		return nil
	default:
		return i18n.NewError(context.Background(), msgs.MsgTypesInvalidHexInteger, string(b))
	}
}

// Scan implements sql.Scanner
func (h *HexUint64) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*h = 0
		return nil
	case int64:
		*h = HexUint64(v)
		return nil
	case uint64:
		*h = HexUint64(v)
		return nil
	default:
		return i18n.NewError(context.Background(), msgs.MsgTypesScanFail, src, h)
	}
}

// Value implements sql.Valuer
func (h HexUint64) Value() (driver.Value, error) {
	return (int64)(h), nil
}
