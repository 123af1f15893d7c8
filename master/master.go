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

// Package master defines the client contract for the driver-side directory
// service that tracks which BlockManagerId holds which BlockId. The
// directory itself is out of scope; this package only names the capability
// the block manager core calls into.
package master

import "github.com/uber/blockmanager/block"

// Client is the directory service capability the block manager core relies
// on for registration, status reporting, and peer/location discovery.
type Client interface {
	// RegisterBlockManager registers id with the given on-heap/off-heap
	// memory capacities and returns the id the master wants callers to use
	// going forward (the master may canonicalize it).
	RegisterBlockManager(id block.ManagerID, maxOnHeapMemory, maxOffHeapMemory int64) (block.ManagerID, error)
	// UpdateBlockInfo reports a block's current status. false tells the
	// caller it is unknown to the master and must re-register.
	UpdateBlockInfo(id block.ManagerID, blockID block.ID, status block.Status) (bool, error)
	// GetLocations returns every BlockManagerID known to hold blockID.
	GetLocations(blockID block.ID) ([]block.ManagerID, error)
	// GetLocationsAndStatus returns locations plus the master's best-known
	// status for blockID. ok is false if the master has no record of it.
	GetLocationsAndStatus(blockID block.ID) (locations []block.ManagerID, status block.Status, ok bool, err error)
	// GetPeers returns every other BlockManagerID in the cluster, excluding
	// self.
	GetPeers(self block.ManagerID) ([]block.ManagerID, error)
}
