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

package block

import "fmt"

// ManagerID is the composite identity of a node's BlockManager. Equality
// between two ManagerIDs deliberately ignores TopologyInfo: two
// observations of the same node may carry differently-refreshed topology
// tags, but they are still the same peer.
type ManagerID struct {
	ExecutorID   string
	Host         string
	Port         int
	TopologyInfo *TopologyInfo
}

// TopologyInfo tags a node with its rack/zone for affinity-aware ordering.
type TopologyInfo struct {
	Rack string
}

// Equal compares two ManagerIDs ignoring TopologyInfo.
func (id ManagerID) Equal(o ManagerID) bool {
	return id.ExecutorID == o.ExecutorID && id.Host == o.Host && id.Port == o.Port
}

func (id ManagerID) String() string {
	return fmt.Sprintf("BlockManagerId(%s, %s:%d)", id.ExecutorID, id.Host, id.Port)
}

// SameHost reports whether id and o are on the same physical host.
func (id ManagerID) SameHost(o ManagerID) bool {
	return id.Host == o.Host
}

// SameRack reports whether id and o carry the same non-empty rack tag.
func (id ManagerID) SameRack(o ManagerID) bool {
	if id.TopologyInfo == nil || o.TopologyInfo == nil {
		return false
	}
	return id.TopologyInfo.Rack != "" && id.TopologyInfo.Rack == o.TopologyInfo.Rack
}
