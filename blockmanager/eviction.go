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

package blockmanager

import (
	"github.com/uber/blockmanager/block"
	"github.com/uber/blockmanager/blockinfo"
	"github.com/uber/blockmanager/memstore"
)

// TryLockVictim implements memstore.EvictionHandler. It attempts, without
// blocking, to take id's write lock on behalf of eviction; the store only
// proceeds to strip id's entry and call DropFromMemory if this succeeds, so
// a block someone else currently holds a read or write lock on is left
// alone rather than evicted out from under them.
func (m *Manager) TryLockVictim(id block.ID) bool {
	_, ok := m.info.LockForWriting(blockinfo.NonTaskWriter, id, false)
	return ok
}

// DropFromMemory implements memstore.EvictionHandler. It is invoked
// immediately after a successful TryLockVictim call for the same id, once
// the MemoryStore has already removed the victim's entry from memory and
// released its reservation, so getCurrentBlockStatus below sees the
// post-eviction truth directly. The write lock TryLockVictim took is still
// held; DropFromMemory either persists the bytes to disk (if the block's
// level allows it and disk does not already have it) or lets the block be
// fully lost, then releases the lock before returning.
func (m *Manager) DropFromMemory(id block.ID, data memstore.Entry) block.Level {
	info := m.info.AssertBlockIsLockedForWriting(blockinfo.NonTaskWriter, id)

	newLevel := info.Level
	newLevel.UseMemory = false

	if info.Level.UseDisk && !m.disk.Contains(id.String()) {
		bytesOut, err := m.entryBytes(data)
		if err != nil {
			m.logger.Warnf("failed to serialize evicted block %s for spill: %v", id, err)
			newLevel.UseDisk = false
		} else if err := m.disk.WriteBlock(id.String(), bytesOut); err != nil {
			m.logger.Warnf("failed to spill evicted block %s to disk: %v", id, err)
			newLevel.UseDisk = false
		}
	}

	info.Level = newLevel
	status := m.getCurrentBlockStatus(id)
	m.metrics.blocksEvicted.Inc(1)

	if !status.Level.IsValid() {
		m.metrics.blocksDropped.Inc(1)
		m.info.RemoveBlock(id)
		m.reportBlockStatus(id, info.TellMaster, block.Status{})
		return newLevel
	}

	m.info.Unlock(blockinfo.NonTaskWriter, id)
	m.reportBlockStatus(id, info.TellMaster, status)
	return newLevel
}

// entryBytes returns data's byte form, serializing values if the entry held
// them as values rather than bytes.
func (m *Manager) entryBytes(data memstore.Entry) ([]byte, error) {
	if data.IsBytes() {
		return data.Bytes, nil
	}
	return m.serializer.Serialize(data.Values)
}
