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

import "github.com/uber/blockmanager/block"

// ReleaseTaskLocks releases every lock taskID currently holds, for use at
// task completion or failure so a leaked lock can never wedge another
// task's access to a block.
func (m *Manager) ReleaseTaskLocks(taskID int64) []block.ID {
	return m.info.ReleaseAllLocksForTask(taskID)
}

// RemoveBlock removes id from both tiers and the info manager, notifying
// the master unless tellMaster is false for this block. It acquires the
// write lock itself, so it must not be called by a caller already holding
// one on id.
func (m *Manager) RemoveBlock(taskID int64, id block.ID) bool {
	info, ok := m.info.LockForWriting(taskID, id, true)
	if !ok {
		return false
	}

	m.mem.Remove(id)
	if err := m.disk.Remove(id.String()); err != nil {
		m.logger.Warnf("failed to remove block %s from disk: %v", id, err)
	}
	m.info.RemoveBlock(id)

	if info.TellMaster {
		m.reportBlockStatus(id, true, block.Status{})
	}
	m.postStatusChanged(id, block.Status{})
	return true
}
