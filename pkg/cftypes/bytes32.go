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
	"encoding/hex"
	"strings"

	"github.com/cipherfleet/cipherfleet/internal/msgs"
	"github.com/hyperledger/firefly-common/pkg/i18n"
	"golang.org/x/crypto/sha3"
)

// Bytes32 is a 32 byte value, formatted in JSON as 0x-prefixed hex, stored in the DB as hex
type Bytes32 [32]byte

func NewBytes32FromSlice(bytes []byte) (b32 Bytes32) {
	copy(b32[:], bytes)
	return b32
}

// Bytes32Keccak returns the Keccak-256 hash of the input as a Bytes32
func Bytes32Keccak(b []byte) Bytes32 {
	h := sha3.NewLegacyKeccak256()
	h.Write(b)
	return NewBytes32FromSlice(h.Sum(nil))
}

func ParseBytes32(ctx context.Context, s string) (Bytes32, error) {
	b, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return Bytes32{}, i18n.NewError(ctx, msgs.MsgTypesInvalidHex, err)
	}
	if len(b) != 32 {
		return Bytes32{}, i18n.NewError(ctx, msgs.MsgTypesInvalidLength, 32, len(b))
	}
	return NewBytes32FromSlice(b), nil
}

func MustParseBytes32(s string) Bytes32 {
	b32, err := ParseBytes32(context.Background(), s)
	if err != nil {
		panic(err)
	}
	return b32
}

func RandBytes32() Bytes32 {
	return NewBytes32FromSlice(RandBytes(32))
}

func (b32 Bytes32) String() string {
	return "0x" + hex.EncodeToString(b32[:])
}

func (b32 Bytes32) HexString() string {
	return hex.EncodeToString(b32[:])
}

func (b32 Bytes32) Bytes() []byte {
	return b32[:]
}

func (b32 Bytes32) Equals(b2 *Bytes32) bool {
	if b2 == nil {
		return false
	}
	return b32 == *b2
}

var zeroBytes32 = Bytes32{}

func (b32 Bytes32) IsZero() bool {
	return b32 == zeroBytes32
}

func (b32 Bytes32) MarshalText() ([]byte, error) {
	return ([]byte)(b32.String()), nil
}

func (b32 *Bytes32) UnmarshalText(text []byte) error {
	parsed, err := ParseBytes32(context.Background(), string(text))
	if err != nil {
		return err
	}
	*b32 = parsed
	return nil
}

func (b32 Bytes32) Value() (driver.Value, error) {
	return b32.HexString(), nil // no 0x prefix in the DB
}

func (b32 *Bytes32) Scan(src interface{}) error {
	switch v := src.(type) {
	case string:
		parsed, err := ParseBytes32(context.Background(), v)
		if err != nil {
			return err
		}
		*b32 = parsed
		return nil
	case []byte:
		switch len(v) {
		case 32:
			*b32 = NewBytes32FromSlice(v)
			return nil
		case 64, 66 /* with 0x */ :
			parsed, err := ParseBytes32(context.Background(), string(v))
			if err != nil {
				return err
			}
			*b32 = parsed
			return nil
		}
		return i18n.NewError(context.Background(), msgs.MsgTypesInvalidLength, 32, len(v))
	default:
		return i18n.NewError(context.Background(), msgs.MsgTypesScanFail, src, b32)
	}
}
