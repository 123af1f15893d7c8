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

package blockinfo

import (
	"sync"

	"github.com/uber/blockmanager/block"
	"github.com/uber/blockmanager/common"
)

// Manager provides multi-reader/single-writer locks keyed by block.ID, with
// lock ownership tracked per task so a task's locks can all be released at
// once when it terminates. It is a single monitor guarded by one mutex and
// one condition variable: block locking is not a hot enough path to justify
// a lock-free or per-block-mutex implementation, and a single monitor makes
// the per-task bookkeeping in releaseAllLocksForTask trivial to get right.
type Manager struct {
	mu   sync.Mutex
	cond *sync.Cond

	infos map[block.ID]*Info

	// readLocksByTask[taskID][id] counts how many times taskID currently
	// holds a read lock on id (a task may read-lock the same block more
	// than once).
	readLocksByTask map[int64]map[block.ID]int
	// writeLocksByTask[taskID] is the set of blocks taskID currently holds
	// the write lock on.
	writeLocksByTask map[int64]map[block.ID]struct{}

	logger common.Logger
}

// NewManager creates an empty Manager.
func NewManager(logger common.Logger) *Manager {
	if logger == nil {
		logger = &common.NoopLogger{}
	}
	m := &Manager{
		infos:            make(map[block.ID]*Info),
		readLocksByTask:  make(map[int64]map[block.ID]int),
		writeLocksByTask: make(map[int64]map[block.ID]struct{}),
		logger:           logger,
	}
	m.cond = sync.NewCond(&m.mu)
	return m
}

// Get returns the Info for id without acquiring any lock. Intended for
// read-only inspection (e.g. status reporting) where the caller already
// holds an appropriate lock or tolerates a racy read.
func (m *Manager) Get(id block.ID) (*Info, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	info, ok := m.infos[id]
	return info, ok
}

// LockForReading blocks (unless blocking is false) until id can be
// read-locked, then returns its Info. It returns (nil, false) if the block
// does not exist, or if a writer holds it and blocking is false.
func (m *Manager) LockForReading(taskID int64, id block.ID, blocking bool) (*Info, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for {
		info, ok := m.infos[id]
		if !ok {
			return nil, false
		}
		if info.writerTask == noWriter {
			info.readerCount++
			m.recordReadLock(taskID, id)
			return info, true
		}
		if !blocking {
			return nil, false
		}
		m.cond.Wait()
	}
}

// LockForWriting blocks (unless blocking is false) until id can be
// write-locked exclusively, then returns its Info. It returns (nil, false)
// if the block does not exist, or if it is currently locked and blocking is
// false.
func (m *Manager) LockForWriting(taskID int64, id block.ID, blocking bool) (*Info, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for {
		info, ok := m.infos[id]
		if !ok {
			return nil, false
		}
		if info.readerCount == 0 && info.writerTask == noWriter {
			info.writerTask = taskID
			m.recordWriteLock(taskID, id)
			return info, true
		}
		if !blocking {
			return nil, false
		}
		m.cond.Wait()
	}
}

// LockNewBlockForWriting atomically inserts info under id if absent and
// returns true holding the write lock. If id is already present, it
// acquires a read lock on the existing entry instead and returns false;
// that read lock is taken with LockForReading in blocking mode, so the call
// waits while a writer holds the block.
func (m *Manager) LockNewBlockForWriting(taskID int64, id block.ID, info *Info) (*Info, bool) {
	m.mu.Lock()
	if _, ok := m.infos[id]; !ok {
		info.writerTask = taskID
		m.infos[id] = info
		m.recordWriteLock(taskID, id)
		m.mu.Unlock()
		return info, true
	}
	m.mu.Unlock()

	existing, _ := m.LockForReading(taskID, id, true)
	return existing, false
}

// Unlock releases whichever lock taskID holds on id: if id currently has a
// writer it must be taskID, and the write lock is released; otherwise one
// read lock recorded against taskID is released.
func (m *Manager) Unlock(taskID int64, id block.ID) {
	m.mu.Lock()
	defer m.mu.Unlock()

	info, ok := m.infos[id]
	if !ok {
		return
	}
	if info.writerTask != noWriter {
		info.writerTask = noWriter
		m.forgetWriteLock(taskID, id)
		m.cond.Broadcast()
		return
	}
	if info.readerCount > 0 {
		info.readerCount--
		m.forgetReadLock(taskID, id)
		if info.readerCount == 0 {
			m.cond.Broadcast()
		}
	}
}

// DowngradeLock atomically transitions id from write-locked to read-locked
// by taskID, with no window in which another writer could interpose.
func (m *Manager) DowngradeLock(taskID int64, id block.ID) {
	m.mu.Lock()
	defer m.mu.Unlock()

	info, ok := m.infos[id]
	if !ok || info.writerTask != taskID {
		return
	}
	info.writerTask = noWriter
	info.readerCount = 1
	m.forgetWriteLock(taskID, id)
	m.recordReadLock(taskID, id)
	m.cond.Broadcast()
}

// ReleaseAllLocksForTask releases every lock (read or write) taskID
// currently holds and returns the affected block ids. It is idempotent:
// calling it again for a task with no remaining locks is a no-op.
func (m *Manager) ReleaseAllLocksForTask(taskID int64) []block.ID {
	m.mu.Lock()
	defer m.mu.Unlock()

	var released []block.ID

	if writes, ok := m.writeLocksByTask[taskID]; ok {
		for id := range writes {
			if info, ok := m.infos[id]; ok && info.writerTask == taskID {
				info.writerTask = noWriter
				released = append(released, id)
			}
		}
		delete(m.writeLocksByTask, taskID)
	}

	if reads, ok := m.readLocksByTask[taskID]; ok {
		for id, count := range reads {
			if info, ok := m.infos[id]; ok {
				info.readerCount -= count
				if info.readerCount < 0 {
					info.readerCount = 0
				}
				released = append(released, id)
			}
		}
		delete(m.readLocksByTask, taskID)
	}

	if len(released) > 0 {
		m.cond.Broadcast()
	}
	return released
}

// RemoveBlock erases id's entry. It must be called by the current write
// lock holder; callers that are not the write lock holder will corrupt the
// invariant that removal only happens under exclusive access.
func (m *Manager) RemoveBlock(id block.ID) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if info, ok := m.infos[id]; ok {
		m.forgetWriteLock(info.writerTask, id)
	}
	delete(m.infos, id)
	m.cond.Broadcast()
}

// AssertBlockIsLockedForWriting is a debug-only invariant check returning
// id's Info, panicking if taskID does not hold its write lock.
func (m *Manager) AssertBlockIsLockedForWriting(taskID int64, id block.ID) *Info {
	m.mu.Lock()
	defer m.mu.Unlock()

	info, ok := m.infos[id]
	if !ok || info.writerTask != taskID {
		m.logger.Panicf("block %s is not write-locked by task %d", id, taskID)
	}
	return info
}

func (m *Manager) recordReadLock(taskID int64, id block.ID) {
	blocks, ok := m.readLocksByTask[taskID]
	if !ok {
		blocks = make(map[block.ID]int)
		m.readLocksByTask[taskID] = blocks
	}
	blocks[id]++
}

func (m *Manager) forgetReadLock(taskID int64, id block.ID) {
	blocks, ok := m.readLocksByTask[taskID]
	if !ok {
		return
	}
	blocks[id]--
	if blocks[id] <= 0 {
		delete(blocks, id)
	}
	if len(blocks) == 0 {
		delete(m.readLocksByTask, taskID)
	}
}

func (m *Manager) recordWriteLock(taskID int64, id block.ID) {
	blocks, ok := m.writeLocksByTask[taskID]
	if !ok {
		blocks = make(map[block.ID]struct{})
		m.writeLocksByTask[taskID] = blocks
	}
	blocks[id] = struct{}{}
}

func (m *Manager) forgetWriteLock(taskID int64, id block.ID) {
	blocks, ok := m.writeLocksByTask[taskID]
	if !ok {
		return
	}
	delete(blocks, id)
	if len(blocks) == 0 {
		delete(m.writeLocksByTask, taskID)
	}
}
