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

package oracle

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPayloadRoundTrip(t *testing.T) {
	ctx := context.Background()
	payload, err := EncodePayload(ctx, 12345, 67890)
	require.NoError(t, err)
	assert.Len(t, []byte(payload), 64)

	packageID, vehicleID, err := DecodePayload(ctx, payload)
	require.NoError(t, err)
	assert.Equal(t, uint64(12345), packageID.Uint64())
	assert.Equal(t, uint64(67890), vehicleID.Uint64())
}

func TestPayloadZeroValues(t *testing.T) {
	ctx := context.Background()
	payload, err := EncodePayload(ctx, 0, 0)
	require.NoError(t, err)

	packageID, vehicleID, err := DecodePayload(ctx, payload)
	require.NoError(t, err)
	assert.Zero(t, packageID.Uint64())
	assert.Zero(t, vehicleID.Uint64())
}

func TestPayloadWrongLength(t *testing.T) {
	_, _, err := DecodePayload(context.Background(), []byte{0x01, 0x02})
	assert.Regexp(t, "CF010105", err)
}
