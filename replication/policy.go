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

// Package replication implements peer selection and bounded-retry
// replication of newly-placed blocks to other nodes in the cluster.
package replication

import (
	"math/rand"

	"github.com/uber/blockmanager/block"
	"github.com/uber/blockmanager/topology"
)

// BlockReplicationPolicy chooses and orders candidate peers to replicate a
// block to. Prioritize returns up to numPeers candidates, most preferred
// first.
type BlockReplicationPolicy interface {
	Prioritize(self block.ManagerID, candidates []block.ManagerID, numPeers int, rng *rand.Rand) []block.ManagerID
}

// RandomPolicy is the default policy: topology-aware ordering (same host,
// then same rack, then everything else) with a random shuffle within each
// tier, truncated to numPeers.
type RandomPolicy struct{}

// Prioritize implements BlockReplicationPolicy.
func (RandomPolicy) Prioritize(self block.ManagerID, candidates []block.ManagerID, numPeers int, rng *rand.Rand) []block.ManagerID {
	ordered := topology.Tier(self, candidates, rng)
	if numPeers < len(ordered) {
		ordered = ordered[:numPeers]
	}
	return ordered
}
