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
	"github.com/uber/blockmanager/utils"
)

// lockReleasingIterator wraps a value iterator so that exhausting it (or
// explicitly closing it) releases the read lock the caller acquired to get
// it: callers of GetLocalValues never manage the lock themselves.
type lockReleasingIterator struct {
	memstore.ValueIterator
	m       *Manager
	taskID  int64
	id      block.ID
	release bool
}

func newLockReleasingIterator(m *Manager, taskID int64, id block.ID, values []interface{}) *lockReleasingIterator {
	return &lockReleasingIterator{
		ValueIterator: memstore.NewSliceIterator(values),
		m:             m,
		taskID:        taskID,
		id:            id,
		release:       true,
	}
}

func (l *lockReleasingIterator) Next() (interface{}, bool, error) {
	v, ok, err := l.ValueIterator.Next()
	if (!ok || err != nil) && l.release {
		l.release = false
		l.m.info.Unlock(l.taskID, l.id)
	}
	return v, ok, err
}

func (l *lockReleasingIterator) Close() error {
	err := l.ValueIterator.Close()
	if l.release {
		l.release = false
		l.m.info.Unlock(l.taskID, l.id)
	}
	return err
}

// GetLocalValues acquires a read lock on id and returns an iterator over its
// values: direct values if memory holds it as values, otherwise its bytes
// (from memory or disk) run through the deserializer. If only disk holds
// the block and memory has room, the block is opportunistically re-cached
// into memory as it is read. Exhausting or closing the returned iterator
// releases the read lock.
func (m *Manager) GetLocalValues(taskID int64, id block.ID) (memstore.ValueIterator, bool, error) {
	info, ok := m.info.LockForReading(taskID, id, true)
	if !ok {
		return nil, false, nil
	}

	if values, ok := m.mem.GetValues(id); ok {
		return newLockReleasingIterator(m, taskID, id, values), true, nil
	}

	fromDisk := m.disk.Contains(id.String())
	data, err := m.readBytes(id, info)
	if err != nil {
		m.handleLocalReadFailure(taskID, id)
		return nil, false, err
	}
	if data == nil {
		m.info.Unlock(taskID, id)
		return nil, false, nil
	}

	values, err := m.serializer.Deserialize(data)
	if err != nil {
		m.handleLocalReadFailure(taskID, id)
		return nil, false, utils.StackError(err, "failed to deserialize block %s", id)
	}

	if fromDisk && !m.mem.Contains(id) {
		if m.mem.PutBytes(id, int64(len(data)), info.ClassTag, func() []byte { return data }) {
			m.logger.Debugf("re-cached block %s into memory on read", id)
		}
	}

	return newLockReleasingIterator(m, taskID, id, values), true, nil
}

// GetLocalBytes returns id's serialized bytes without deserializing them.
// Shuffle blocks bypass the lock manager entirely: they are written once
// and never mutated, so there is nothing for a lock to protect. All other
// kinds probe memory and disk in an order chosen by the level: a
// deserialized level means memory holds values, not bytes, so disk
// (already serialized) is checked first there; otherwise memory is checked
// first.
func (m *Manager) GetLocalBytes(taskID int64, id block.ID) ([]byte, bool, error) {
	if id.IsShuffle() {
		data, err := m.disk.ReadBlock(id.String())
		if err != nil {
			return nil, false, nil
		}
		return data, true, nil
	}

	info, ok := m.info.LockForReading(taskID, id, true)
	if !ok {
		return nil, false, nil
	}
	defer m.info.Unlock(taskID, id)

	data, err := m.readBytes(id, info)
	if err != nil {
		m.handleLocalReadFailure(taskID, id)
		return nil, false, err
	}
	return data, data != nil, nil
}

// readBytes returns id's bytes per the tier-probing order, without touching
// locks. It returns (nil, nil), not an error, when the block is absent from
// both tiers.
func (m *Manager) readBytes(id block.ID, info *blockinfo.Info) ([]byte, error) {
	key := id.String()

	if info.Level.Deserialized {
		if m.disk.Contains(key) {
			data, err := m.disk.ReadBlock(key)
			if err != nil {
				return nil, utils.StackError(err, "failed to read block %s from disk", id)
			}
			return data, nil
		}
		if values, ok := m.mem.GetValues(id); ok {
			data, err := m.serializer.Serialize(values)
			if err != nil {
				return nil, utils.StackError(err, "failed to serialize block %s", id)
			}
			return data, nil
		}
		return nil, nil
	}

	if data, ok := m.mem.GetBytes(id); ok {
		return data, nil
	}
	if m.disk.Contains(key) {
		data, err := m.disk.ReadBlock(key)
		if err != nil {
			return nil, utils.StackError(err, "failed to read block %s from disk", id)
		}
		return data, nil
	}
	return nil, nil
}

// handleLocalReadFailure implements the ReadCorrupted taxonomy entry: the
// lock is released, the block is removed from both tiers and the info
// manager, and the master is notified so it stops advertising a location
// that cannot actually serve the block.
func (m *Manager) handleLocalReadFailure(taskID int64, id block.ID) {
	m.info.Unlock(taskID, id)
	m.mem.Remove(id)
	m.disk.Remove(id.String())
	m.info.RemoveBlock(id)
	if m.master != nil {
		_, _ = m.master.UpdateBlockInfo(m.self, id, block.Status{})
	}
}

// Get retrieves id's bytes, checking locally first and falling through to a
// remote fetch when the block is not held anywhere on this node.
func (m *Manager) Get(taskID int64, id block.ID) ([]byte, error) {
	defer m.metrics.timeGet()()

	if data, ok, err := m.GetLocalBytes(taskID, id); err != nil {
		return nil, err
	} else if ok {
		return data, nil
	}

	m.metrics.getMisses.Inc(1)
	data, err := m.fetcher.GetRemoteBytes(id)
	if err != nil {
		return nil, ErrBlockNotFound
	}
	m.metrics.remoteFetches.Inc(1)
	return data, nil
}
