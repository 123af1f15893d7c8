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
	"fmt"
	"path/filepath"
	"unsafe"

	"github.com/uber/blockmanager/utils"
)

const blocksDir string = "blocks"

// dirIndexForKey deterministically hashes blockKey into [0, subDirsPerLocalDir)
// so that block files fan out evenly across sibling directories instead of
// piling millions of entries into one, the same sharding aresdb's disk
// layout gets from its table/shard directory split, just keyed on a hash
// instead of two path components.
func dirIndexForKey(blockKey string, subDirsPerLocalDir int) int {
	if subDirsPerLocalDir <= 0 {
		subDirsPerLocalDir = 1
	}
	b := []byte(blockKey)
	var p unsafe.Pointer
	if len(b) > 0 {
		p = unsafe.Pointer(&b[0])
	}
	h := utils.Murmur3Sum32(p, len(b), 0)
	return int(h % uint32(subDirsPerLocalDir))
}

// getPathForBlock returns the on-disk path for blockKey:
//   {root_path}/blocks/{shard_dir}/{block_key}
func getPathForBlock(rootPath, blockKey string, subDirsPerLocalDir int) string {
	shardDir := fmt.Sprintf("%02d", dirIndexForKey(blockKey, subDirsPerLocalDir))
	return filepath.Join(rootPath, blocksDir, shardDir, blockKey)
}
