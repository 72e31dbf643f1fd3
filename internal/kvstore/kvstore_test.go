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

package kvstore

import (
	"context"
	"testing"

	"github.com/cipherfleet/cipherfleet/internal/components"
	"github.com/cipherfleet/cipherfleet/pkg/cftypes"
	"github.com/cipherfleet/cipherfleet/pkg/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testComponents struct {
	components.AllComponents
	p persistence.Persistence
}

func (tc *testComponents) Persistence() persistence.Persistence { return tc.p }

func newTestKVManager(t *testing.T) (context.Context, components.KVManager, func()) {
	ctx := context.Background()
	p, pDone, err := persistence.NewUnitTestPersistence(ctx, "kvstore")
	require.NoError(t, err)

	km := NewKVManager(ctx)
	_, err = km.PreInit(&testComponents{p: p})
	require.NoError(t, err)
	require.NoError(t, km.PostInit(nil))
	require.NoError(t, km.Start())

	return ctx, km, func() {
		km.Stop()
		pDone()
	}
}

func TestPutGetDelete(t *testing.T) {
	ctx, km, done := newTestKVManager(t)
	defer done()

	entry, err := km.Put(ctx, "fleet/region", cftypes.JSONString("eu-west"))
	require.NoError(t, err)
	assert.Equal(t, "fleet/region", entry.Key)

	stored, err := km.Get(ctx, "fleet/region")
	require.NoError(t, err)
	assert.JSONEq(t, `"eu-west"`, string(stored.Value))

	// Put on an existing key overwrites
	_, err = km.Put(ctx, "fleet/region", cftypes.JSONString("us-east"))
	require.NoError(t, err)
	stored, err = km.Get(ctx, "fleet/region")
	require.NoError(t, err)
	assert.JSONEq(t, `"us-east"`, string(stored.Value))

	require.NoError(t, km.Delete(ctx, "fleet/region"))
	_, err = km.Get(ctx, "fleet/region")
	assert.Regexp(t, "CF011001", err)

	// Deleting an absent key is a no-op
	require.NoError(t, km.Delete(ctx, "fleet/region"))
}

func TestPutEmptyKey(t *testing.T) {
	ctx, km, done := newTestKVManager(t)
	defer done()

	_, err := km.Put(ctx, "", cftypes.JSONString("x"))
	assert.Regexp(t, "CF011000", err)
}

func TestListByPrefix(t *testing.T) {
	ctx, km, done := newTestKVManager(t)
	defer done()

	for _, key := range []string{"config/a", "config/b", "other/c"} {
		_, err := km.Put(ctx, key, cftypes.JSONString(key))
		require.NoError(t, err)
	}

	entries, err := km.List(ctx, "config/")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "config/a", entries[0].Key)
	assert.Equal(t, "config/b", entries[1].Key)

	entries, err = km.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}

func TestListPrefixEscapesWildcards(t *testing.T) {
	ctx, km, done := newTestKVManager(t)
	defer done()

	_, err := km.Put(ctx, "a_b", cftypes.JSONString(1))
	require.NoError(t, err)
	_, err = km.Put(ctx, "axb", cftypes.JSONString(2))
	require.NoError(t, err)

	// The underscore is a literal, not a single-character wildcard
	entries, err := km.List(ctx, "a_")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "a_b", entries[0].Key)
}
