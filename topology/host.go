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

// Package topology provides cluster placement information consumed by the
// replicator and the remote fetcher: which nodes exist, and how they relate
// to each other by host and rack, for affinity-aware ordering.
package topology

import "github.com/uber/blockmanager/block"

// Host is a container of a host in the cluster.
type Host interface {
	// ID is the identifier of the host.
	ID() string
	// Address returns the address of the host.
	Address() string
	// String returns a string representation of the host.
	String() string
	// BlockManagerID returns the block manager identity of this host.
	BlockManagerID() block.ManagerID
}

type host struct {
	id  block.ManagerID
	str string
}

// NewHost creates a new Host wrapping a block manager identity.
func NewHost(id block.ManagerID) Host {
	return &host{id: id, str: id.String()}
}

func (h *host) ID() string {
	return h.id.ExecutorID
}

func (h *host) Address() string {
	return h.id.Host
}

func (h *host) String() string {
	return h.str
}

func (h *host) BlockManagerID() block.ManagerID {
	return h.id
}
