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

// BlockStatusChanged is posted to the manager's event queue whenever a
// block's status is reported to the master, so listeners outside the put
// path (task metrics, UI storage tab equivalents) can observe placement and
// eviction without polling the stores directly.
type BlockStatusChanged struct {
	BlockID block.ID
	Status  block.Status
}

// postStatusChanged is a no-op if the manager was built without an event
// queue.
func (m *Manager) postStatusChanged(id block.ID, status block.Status) {
	if m.events == nil {
		return
	}
	m.events.Post(BlockStatusChanged{BlockID: id, Status: status})
}
