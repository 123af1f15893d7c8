//  Copyright (c) 2017-2018 Uber Technologies, Inc.
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

package diskstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDirIndexForKeyIsDeterministic(t *testing.T) {
	a := dirIndexForKey("rdd_1_0", 64)
	b := dirIndexForKey("rdd_1_0", 64)
	assert.Equal(t, a, b)
	assert.True(t, a >= 0 && a < 64)
}

func TestDirIndexForKeySpreadsAcrossShards(t *testing.T) {
	seen := make(map[int]bool)
	for i := 0; i < 200; i++ {
		key := "rdd_1_" + string(rune('a'+i%26)) + string(rune(i))
		seen[dirIndexForKey(key, 16)] = true
	}
	assert.True(t, len(seen) > 1, "expected keys to spread across more than one shard directory")
}

func TestGetPathForBlock(t *testing.T) {
	path := getPathForBlock("/root", "rdd_1_0", 64)
	assert.Contains(t, path, "/root/blocks/")
	assert.Contains(t, path, "rdd_1_0")
}

func TestDirIndexForKeyHandlesEmptyKey(t *testing.T) {
	idx := dirIndexForKey("", 64)
	assert.True(t, idx >= 0 && idx < 64)
}

func TestDirIndexForKeyGuardsNonPositiveShardCount(t *testing.T) {
	idx := dirIndexForKey("rdd_1_0", 0)
	assert.Equal(t, 0, idx)
}
