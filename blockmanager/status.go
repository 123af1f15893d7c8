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
	"sync/atomic"

	"github.com/uber/blockmanager/block"
)

// getCurrentBlockStatus synthesizes a live snapshot from the two stores; it
// never trusts a cached field, since the whole point of this call is to
// report ground truth to the master after a put or eviction. Replication
// defaults to 1 when the block is no longer present anywhere: an absent
// block has no meaningful copy count of its own.
func (m *Manager) getCurrentBlockStatus(id block.ID) block.Status {
	status := block.Status{Level: block.Level{Replication: 1}}

	if size, ok := m.mem.GetSize(id); ok {
		status.MemSize = size
		status.Level.UseMemory = true
	}
	if m.disk.Contains(id.String()) {
		if size, err := m.disk.GetSize(id.String()); err == nil {
			status.DiskSize = size
		}
		status.Level.UseDisk = true
	}

	if info, ok := m.info.Get(id); ok {
		status.Level.Deserialized = info.Level.Deserialized
		status.Level.UseOffHeap = info.Level.UseOffHeap
		if info.Level.Replication > 0 {
			status.Level.Replication = info.Level.Replication
		}
	}

	return status
}

// GetCurrentBlockStatus is the exported form callers outside this package
// use to inspect a block's live placement, e.g. before deciding whether to
// request a remote fetch.
func (m *Manager) GetCurrentBlockStatus(id block.ID) block.Status {
	return m.getCurrentBlockStatus(id)
}

// reportBlockStatus sends id's status to the master. If tellMaster is
// false, the report is a broadcast-block-style suppression and nothing is
// sent. If the master replies that this node is unknown to it, an
// asynchronous re-registration is scheduled rather than surfacing an error:
// the next successful heartbeat will simply retry.
func (m *Manager) reportBlockStatus(id block.ID, tellMaster bool, status block.Status) {
	if !tellMaster || m.master == nil {
		return
	}
	known, err := m.master.UpdateBlockInfo(m.self, id, status)
	if err != nil {
		m.logger.Warnf("failed to report status for block %s: %v", id, err)
		return
	}
	if !known {
		m.asyncReregister()
	}
}

// asyncReregister re-registers this node with the master in the
// background. It is best-effort: failures are logged, not retried here,
// since the surrounding heartbeat loop is expected to notice and drive the
// next attempt.
func (m *Manager) asyncReregister() {
	if !atomic.CompareAndSwapInt32(&m.reregistering, 0, 1) {
		return
	}
	go func() {
		defer atomic.StoreInt32(&m.reregistering, 0)
		if _, err := m.master.RegisterBlockManager(m.self, 0, 0); err != nil {
			m.logger.Warnf("failed to re-register block manager %s with master: %v", m.self, err)
		}
	}()
}

// ReportAllBlocks re-reports every currently-known block's status to the
// master. It is re-entrant and idempotent, and silently skips individual
// failures: the next heartbeat retries them.
func (m *Manager) ReportAllBlocks(ids []block.ID) {
	for _, id := range ids {
		info, ok := m.info.Get(id)
		if !ok {
			continue
		}
		status := m.getCurrentBlockStatus(id)
		m.reportBlockStatus(id, info.TellMaster, status)
	}
}
