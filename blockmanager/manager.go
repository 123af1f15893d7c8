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

// Package blockmanager is the storage subsystem's core: it orchestrates
// admission, tiered placement, eviction, and get/put across the memory and
// disk tiers, wiring the block lock manager, the two stores, the master
// directory client, the transport client, the replicator, and the remote
// fetcher into one per-node service.
package blockmanager

import (
	"github.com/uber-go/tally"

	"github.com/uber/blockmanager/block"
	"github.com/uber/blockmanager/blockinfo"
	"github.com/uber/blockmanager/common"
	"github.com/uber/blockmanager/diskstore"
	"github.com/uber/blockmanager/events"
	"github.com/uber/blockmanager/master"
	"github.com/uber/blockmanager/memstore"
	"github.com/uber/blockmanager/remote"
	"github.com/uber/blockmanager/replication"
	"github.com/uber/blockmanager/transport"
)

// Manager owns references to both stores, the block info lock manager, the
// master handle, the transport handle, and the replicator. It does not own
// the master's own directory state: getCurrentBlockStatus always synthesizes
// a fresh view from the two stores rather than trusting anything cached.
type Manager struct {
	self block.ManagerID
	cfg  Config

	info *blockinfo.Manager
	mem  *memstore.MemoryStore
	disk diskstore.DiskStore

	master      master.Client
	transport   transport.Client
	replicator  *replication.Replicator
	fetcher     *remote.Fetcher
	tempFiles   *remote.TempFileManager
	serializer  Serializer

	events *events.AsyncEventQueue

	logger  common.Logger
	metrics *metrics

	// reregistering guards against overlapping asyncReregister attempts;
	// accessed only via sync/atomic.
	reregistering int32
}

// Deps bundles the collaborators Manager needs at construction. New takes
// Info, Mem, Disk and Events as given and does not construct them when nil;
// Mem alone may be supplied afterward through SetMemoryStore.
type Deps struct {
	Self       block.ManagerID
	Info       *blockinfo.Manager
	// Mem may be left nil if the caller cannot build it before this
	// Manager exists (memstore.NewMemoryStore takes this Manager as its
	// EvictionHandler); call SetMemoryStore afterward in that case.
	Mem        *memstore.MemoryStore
	Disk       diskstore.DiskStore
	Master     master.Client
	Transport  transport.Client
	Serializer Serializer
	Policy     replication.BlockReplicationPolicy
	Events     *events.AsyncEventQueue
	Logger     common.Logger
	Scope      tally.Scope
}

// New wires up a Manager from its collaborators. tempFiles, the
// replicator and the fetcher are constructed here rather than injected,
// since nothing outside this package needs to reach them independently.
func New(deps Deps, cfg Config) *Manager {
	logger := deps.Logger
	if logger == nil {
		logger = &common.NoopLogger{}
	}

	tempFiles := remote.NewTempFileManager(logger)
	fetcher := remote.NewFetcher(deps.Self, deps.Master, deps.Transport, tempFiles, remote.Config{
		MaxRemoteBlockSizeFetchToMem:     cfg.MaxRemoteBlockSizeFetchToMem,
		MaxFailuresBeforeLocationRefresh: cfg.FailuresBeforeLocationRefresh,
	}, logger)

	replicator := replication.NewReplicator(deps.Self, deps.Master, deps.Transport, deps.Policy, replication.Config{
		MaxReplicationFailures: cfg.MaxReplicationFailures,
		CachedPeersTTL:         cfg.CachedPeersTTL,
	}, logger)

	m := &Manager{
		self:       deps.Self,
		cfg:        cfg,
		info:       deps.Info,
		mem:        deps.Mem,
		disk:       deps.Disk,
		master:     deps.Master,
		transport:  deps.Transport,
		replicator: replicator,
		fetcher:    fetcher,
		tempFiles:  tempFiles,
		serializer: deps.Serializer,
		events:     deps.Events,
		logger:     logger,
		metrics:    newMetrics(deps.Scope),
	}
	return m
}

// SetMemoryStore wires mem into an already-constructed Manager. It exists
// for callers that must build mem's EvictionHandler (this Manager) before
// mem itself can be constructed, breaking the cycle between New and
// memstore.NewMemoryStore; Deps.Mem can be left nil when the caller intends
// to call this afterward instead.
func (m *Manager) SetMemoryStore(mem *memstore.MemoryStore) {
	m.mem = mem
}

// Close stops the temp file manager and, when Deps supplied one, the event
// queue. It does not close the other injected collaborators (stores,
// clients) since their lifecycle belongs to whoever constructed them.
func (m *Manager) Close() {
	m.tempFiles.Stop()
	if m.events != nil {
		m.events.Stop()
	}
}
