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

package master

import (
	"sync"

	"github.com/uber/blockmanager/block"
)

// Standalone is an in-process Client for a single-node deployment: no
// driver exists to register with, so it just remembers the last status
// reported for each block and answers every location query with an empty
// location list. It
// exists to let cmd/blockmanagerd start without a real directory service;
// a distributed deployment supplies its own Client instead.
type Standalone struct {
	mu       sync.Mutex
	statuses map[block.ID]block.Status
}

// NewStandalone creates a Standalone client.
func NewStandalone() *Standalone {
	return &Standalone{statuses: make(map[block.ID]block.Status)}
}

// RegisterBlockManager always succeeds and returns id unchanged: there is
// no driver to canonicalize it against.
func (s *Standalone) RegisterBlockManager(id block.ManagerID, maxOnHeapMemory, maxOffHeapMemory int64) (block.ManagerID, error) {
	return id, nil
}

// UpdateBlockInfo records status for blockID and always reports success.
func (s *Standalone) UpdateBlockInfo(id block.ManagerID, blockID block.ID, status block.Status) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses[blockID] = status
	return true, nil
}

// GetLocations returns nil: with no peers registered, no location besides
// this node itself is ever known.
func (s *Standalone) GetLocations(blockID block.ID) ([]block.ManagerID, error) {
	return nil, nil
}

// GetLocationsAndStatus returns the last status reported for blockID, if
// any, with an empty location list.
func (s *Standalone) GetLocationsAndStatus(blockID block.ID) (locations []block.ManagerID, status block.Status, ok bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	status, ok = s.statuses[blockID]
	return nil, status, ok, nil
}

// GetPeers returns nil: a standalone node has no peers.
func (s *Standalone) GetPeers(self block.ManagerID) ([]block.ManagerID, error) {
	return nil, nil
}
