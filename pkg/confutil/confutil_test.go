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

package confutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIntDefaults(t *testing.T) {
	assert.Equal(t, 10, Int(nil, 10))
	assert.Equal(t, 20, Int(P(20), 10))
	assert.Equal(t, 5, IntMin(P(1), 5, 10))
	assert.Equal(t, int64(7), Int64(P(int64(7)), 1))
	assert.Equal(t, int64(5), Int64Min(P(int64(-1)), 5, 10))
}

func TestFloatAndBool(t *testing.T) {
	assert.Equal(t, 2.0, Float64Min(nil, 1.0, 2.0))
	assert.Equal(t, 1.0, Float64Min(P(0.5), 1.0, 2.0))
	assert.True(t, Bool(nil, true))
	assert.False(t, Bool(P(false), true))
}

func TestStrings(t *testing.T) {
	assert.Equal(t, "def", StringNotEmpty(P(""), "def"))
	assert.Equal(t, "set", StringNotEmpty(P("set"), "def"))
	assert.Equal(t, "", StringOrEmpty(P(""), "def"))
	assert.Equal(t, []string{"a"}, StringSlice(nil, []string{"a"}))
}

func TestDurations(t *testing.T) {
	assert.Equal(t, 5*time.Second, DurationMin(P("5s"), 0, "1s"))
	assert.Equal(t, time.Second, DurationMin(P("wrong"), 0, "1s"))
	assert.Equal(t, time.Second, DurationMin(P("1ms"), time.Second, "10s"))
	assert.Equal(t, int64(90), DurationSeconds(P("90s"), 0, "1s"))
}

func TestByteSize(t *testing.T) {
	assert.Equal(t, int64(65536), ByteSize(P("64KB"), 0, "1KB"))
	assert.Equal(t, int64(1024), ByteSize(P("bad"), 0, "1KB"))
}
