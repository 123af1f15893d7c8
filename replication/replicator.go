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

package replication

import (
	"math/rand"
	"sync"
	"time"

	"github.com/uber/blockmanager/block"
	"github.com/uber/blockmanager/common"
	"github.com/uber/blockmanager/master"
	"github.com/uber/blockmanager/transport"
	"github.com/uber/blockmanager/utils"
)

// Config controls the replicator's retry and peer-caching behavior.
type Config struct {
	// MaxReplicationFailures is how many peer upload failures a single
	// replicate call tolerates before giving up. Default 1.
	MaxReplicationFailures int
	// CachedPeersTTL bounds how long a fetched peer set is reused before
	// GetPeers is called again.
	CachedPeersTTL time.Duration
}

// Replicator pushes a newly-placed block's bytes out to other nodes to
// satisfy a Level's replication factor, following spec-mandated peer
// selection and bounded retries.
type Replicator struct {
	self      block.ManagerID
	master    master.Client
	transport transport.Client
	policy    BlockReplicationPolicy
	cfg       Config
	logger    common.Logger

	mu           sync.Mutex
	cachedPeers  []block.ManagerID
	cachedAt     time.Time
	rng          *rand.Rand
}

// NewReplicator creates a Replicator.
func NewReplicator(self block.ManagerID, masterClient master.Client, transportClient transport.Client, policy BlockReplicationPolicy, cfg Config, logger common.Logger) *Replicator {
	if cfg.MaxReplicationFailures <= 0 {
		cfg.MaxReplicationFailures = 1
	}
	if cfg.CachedPeersTTL <= 0 {
		cfg.CachedPeersTTL = 60 * time.Second
	}
	if policy == nil {
		policy = RandomPolicy{}
	}
	if logger == nil {
		logger = &common.NoopLogger{}
	}
	return &Replicator{
		self:      self,
		master:    masterClient,
		transport: transportClient,
		policy:    policy,
		cfg:       cfg,
		logger:    logger,
		rng:       rand.New(rand.NewSource(1)),
	}
}

// peers returns the cached peer set, refreshing it from the master if it is
// older than CachedPeersTTL or forceRefresh is set.
func (r *Replicator) peers(forceRefresh bool) ([]block.ManagerID, error) {
	r.mu.Lock()
	fresh := !forceRefresh && r.cachedPeers != nil && utils.Now().Sub(r.cachedAt) <= r.cfg.CachedPeersTTL
	if fresh {
		cached := r.cachedPeers
		r.mu.Unlock()
		return cached, nil
	}
	r.mu.Unlock()

	fetched, err := r.master.GetPeers(r.self)
	if err != nil {
		return nil, utils.StackError(err, "failed to fetch peers for replication")
	}

	r.mu.Lock()
	r.cachedPeers = fetched
	r.cachedAt = utils.Now()
	r.mu.Unlock()
	return fetched, nil
}

// Replicate uploads data for blockID to enough peers to satisfy level's
// replication factor beyond the local copy already written by the caller.
// It excludes peers already known to hold a replica (alreadyReplicatedTo),
// retries against a re-prioritized peer set on individual upload failures,
// and gives up once more than cfg.MaxReplicationFailures uploads have
// failed, the candidate peer set is exhausted, or the target count is
// reached. A shortfall is logged as a warning; it never causes an error,
// since the local write already succeeded.
func (r *Replicator) Replicate(blockID block.ID, data []byte, level block.Level, classTag string, alreadyReplicatedTo []block.ManagerID) {
	target := int(level.Replication) - 1
	if target <= 0 {
		return
	}

	excluded := make(map[peerKey]struct{}, len(alreadyReplicatedTo)+1)
	excluded[keyOf(r.self)] = struct{}{}
	for _, p := range alreadyReplicatedTo {
		excluded[keyOf(p)] = struct{}{}
	}

	candidates, err := r.peers(false)
	if err != nil {
		r.logger.Warnf("replicate block %s: failed to fetch peers: %v", blockID, err)
		return
	}

	succeeded := 0
	numFailures := 0
	forceRefresh := false

	for succeeded < target {
		if forceRefresh {
			refreshed, err := r.peers(true)
			if err != nil {
				r.logger.Warnf("replicate block %s: failed to refresh peers: %v", blockID, err)
				break
			}
			candidates = refreshed
			forceRefresh = false
		}

		available := excludePeers(candidates, excluded)
		if len(available) == 0 {
			break
		}

		ordered := r.policy.Prioritize(r.self, available, target-succeeded, r.rng)
		if len(ordered) == 0 {
			break
		}

		madeProgress := false
		for _, peer := range ordered {
			if succeeded >= target {
				break
			}
			if err := r.transport.UploadBlockSync(peer.Host, peer.Port, peer.ExecutorID, blockID, data, level, classTag); err != nil {
				r.logger.Warnf("replicate block %s to %s failed: %v", blockID, peer, err)
				excluded[keyOf(peer)] = struct{}{}
				numFailures++
				if numFailures > r.cfg.MaxReplicationFailures {
					r.warnShortfall(blockID, succeeded, target)
					return
				}
				forceRefresh = true
				continue
			}
			excluded[keyOf(peer)] = struct{}{}
			succeeded++
			madeProgress = true
		}

		if !madeProgress && !forceRefresh {
			break
		}
	}

	if succeeded < target {
		r.warnShortfall(blockID, succeeded, target)
	}
}

func (r *Replicator) warnShortfall(blockID block.ID, succeeded, target int) {
	r.logger.Warnf("block %s replicated to only %d of %d requested peers", blockID, succeeded, target)
}

func excludePeers(candidates []block.ManagerID, excluded map[peerKey]struct{}) []block.ManagerID {
	out := make([]block.ManagerID, 0, len(candidates))
	for _, c := range candidates {
		if _, skip := excluded[keyOf(c)]; skip {
			continue
		}
		out = append(out, c)
	}
	return out
}

// peerKey identifies a ManagerID the way Equal does, ignoring TopologyInfo,
// so it is safe to use as a map key even when two observations of the same
// peer carry differently-refreshed topology tags.
type peerKey struct {
	executorID string
	host       string
	port       int
}

func keyOf(id block.ManagerID) peerKey {
	return peerKey{executorID: id.ExecutorID, host: id.Host, port: id.Port}
}
