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

package memstore

import "github.com/uber/blockmanager/block"

// EvictionHandler is the small capability object the BlockManager passes
// into MemoryStore at construction so the store can ask its owner to spill
// a victim block without the store needing a reference cycle back onto a
// concrete BlockManager type.
type EvictionHandler interface {
	// TryLockVictim attempts, without blocking, to acquire exclusive
	// (write) access to id. The store only removes id's entry and calls
	// DropFromMemory if this returns true; a candidate this returns false
	// for (e.g. a block another task currently holds a lock on) is left in
	// place and the store tries the next LRU candidate instead. This is
	// what keeps a block someone is actively reading or writing from
	// vanishing out from under them mid-eviction.
	TryLockVictim(id block.ID) bool
	// DropFromMemory is called immediately after a successful TryLockVictim
	// call for id, once the store has already removed id's entry from
	// memory and released its reservation. data is the entry being evicted
	// (values or bytes, whichever the store held). DropFromMemory owns
	// releasing the lock TryLockVictim acquired before it returns. It
	// returns the block's new effective storage level: if the block could
	// be persisted to disk that level still has UseDisk set; if not, the
	// returned level no longer has UseMemory or UseDisk set and the block
	// is lost.
	DropFromMemory(id block.ID, data Entry) block.Level
}
